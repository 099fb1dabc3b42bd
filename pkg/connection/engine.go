// Package connection decides and performs port-to-port connections.
//
// Rule violations are values: IsConnectable reports a reason and Connect returns
// a *RuleError without touching the graph. ConnectReplacing is the user-facing
// variant that makes room on exclusive ports by dropping their single connector.
package connection

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/aretw0/nodegraph/pkg/registry"
	"github.com/aretw0/nodegraph/pkg/schema"
	"github.com/google/uuid"
)

// Reasons reported by IsConnectable.
const (
	ReasonSamePort            = "cannot connect a port to itself"
	ReasonMissingPort         = "port is not registered"
	ReasonDifferentFlowCharts = "ports belong to different flow charts"
	ReasonSameDirection       = "both ports have the same direction"
	ReasonKindMismatch        = "flow ports connect only to flow ports"
	ReasonDisabled            = "port is disabled"
	ReasonSameNode            = "node does not allow circular connections"
	ReasonTypeMismatch        = "value types are not assignable"
	ReasonAlreadyConnected    = "ports are already connected"
	ReasonInputFull           = "input port does not allow more connections"
	ReasonOutputFull          = "output port does not allow more connections"
	ReasonCycle               = "connection would create a cycle"
)

// RuleError is returned when a requested connection breaks a connection rule.
type RuleError struct {
	Reason string
}

func (e *RuleError) Error() string {
	return "connection rejected: " + e.Reason
}

// Engine applies connection rules on top of a registry.
type Engine struct {
	reg    *registry.Registry
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for debug tracing of connection decisions.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an engine for the entities of reg.
func New(reg *registry.Registry, opts ...Option) *Engine {
	e := &Engine{reg: reg}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return e
}

// Orient returns the ports as (output, input), whichever order they were given in.
func Orient(a, b *domain.Port) (start, end *domain.Port) {
	if a != nil && a.IsInput() {
		return b, a
	}
	return a, b
}

// IsConnectable reports whether a and b may be connected, in either drag direction.
func (e *Engine) IsConnectable(a, b *domain.Port) (bool, string) {
	_, _, _, reason := e.check(a, b, false)
	return reason == "", reason
}

// IsConnectableReplacing is IsConnectable for ConnectReplacing: an exclusive port at
// capacity does not block the connection.
func (e *Engine) IsConnectableReplacing(a, b *domain.Port) (bool, string) {
	_, _, _, reason := e.check(a, b, true)
	return reason == "", reason
}

// Connect validates and creates a connector from the output to the input of a and b.
func (e *Engine) Connect(a, b *domain.Port) (*domain.Connector, error) {
	start, end, _, reason := e.check(a, b, false)
	if reason != "" {
		e.logger.Debug("connection: rejected", "reason", reason)
		return nil, &RuleError{Reason: reason}
	}
	return e.create(start, end)
}

// ConnectReplacing connects a and b, first disconnecting the single connector of an
// exclusive port that is already at capacity. Other rules apply as in Connect.
func (e *Engine) ConnectReplacing(a, b *domain.Port) (*domain.Connector, error) {
	start, end, replaced, reason := e.check(a, b, true)
	if reason != "" {
		e.logger.Debug("connection: rejected", "reason", reason)
		return nil, &RuleError{Reason: reason}
	}
	for _, c := range replaced {
		e.logger.Debug("connection: replace", "connector", c.GUID())
		if err := e.reg.DestroyConnector(c.GUID()); err != nil {
			return nil, fmt.Errorf("replace connector %s: %w", c.GUID(), err)
		}
	}
	return e.create(start, end)
}

func (e *Engine) create(start, end *domain.Port) (*domain.Connector, error) {
	fc := start.Owner().Owner()
	c, err := e.reg.CreateConnector(uuid.Nil, fc, start, end)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("connection: connected", "connector", c.GUID(), "start", start.GUID(), "end", end.GUID())
	return c, nil
}

// Disconnect detaches c from its ports and destroys it.
func (e *Engine) Disconnect(c *domain.Connector) error {
	if c == nil {
		return nil
	}
	return e.reg.DestroyConnector(c.GUID())
}

// DisconnectAll disconnects every connector attached to p.
func (e *Engine) DisconnectAll(p *domain.Port) error {
	for _, id := range p.Connectors() {
		if err := e.reg.DestroyConnector(id); err != nil {
			return err
		}
	}
	return nil
}

// check orients a and b and applies every rule in order. With replacing set, a full
// exclusive port is not a violation; its connector is returned for removal instead.
func (e *Engine) check(a, b *domain.Port, replacing bool) (start, end *domain.Port, replaced []*domain.Connector, reason string) {
	if a != nil && a == b {
		return nil, nil, nil, ReasonSamePort
	}
	if !e.live(a) || !e.live(b) {
		return nil, nil, nil, ReasonMissingPort
	}
	if a.Owner().Owner() != b.Owner().Owner() {
		return nil, nil, nil, ReasonDifferentFlowCharts
	}
	if a.IsInput() == b.IsInput() {
		return nil, nil, nil, ReasonSameDirection
	}
	start, end = Orient(a, b)
	if start.PortKind() != end.PortKind() {
		return nil, nil, nil, ReasonKindMismatch
	}
	if !start.IsPortEnabled() || !end.IsPortEnabled() {
		return nil, nil, nil, ReasonDisabled
	}

	sameNode := start.Owner() == end.Owner()
	if sameNode && !start.Owner().AllowCircularConnection() {
		return nil, nil, nil, ReasonSameNode
	}
	if start.IsProperty() && !schema.Assignable(start.ValueType(), end.ValueType()) {
		return nil, nil, nil, ReasonTypeMismatch
	}
	if e.connected(start, end) {
		return nil, nil, nil, ReasonAlreadyConnected
	}

	seen := make(map[uuid.UUID]bool)
	for _, side := range []struct {
		port   *domain.Port
		reason string
	}{{end, ReasonInputFull}, {start, ReasonOutputFull}} {
		if !side.port.IsFull() {
			continue
		}
		if !replacing || side.port.Capacity() != 1 {
			return nil, nil, nil, side.reason
		}
		for _, id := range side.port.Connectors() {
			if c, ok := e.reg.FindConnector(id); ok && !seen[id] {
				replaced = append(replaced, c)
				seen[id] = true
			}
		}
	}

	fc := start.Owner().Owner()
	if !sameNode && !fc.AllowCircularConnection() && e.reaches(end.Owner(), start.Owner()) {
		return nil, nil, nil, ReasonCycle
	}
	return start, end, replaced, ""
}

func (e *Engine) live(p *domain.Port) bool {
	if p == nil {
		return false
	}
	found, ok := e.reg.FindNodePort(p.GUID())
	return ok && found == p && p.Owner() != nil && p.Owner().Owner() != nil
}

func (e *Engine) connected(start, end *domain.Port) bool {
	for _, id := range start.Connectors() {
		if c, ok := e.reg.FindConnector(id); ok && c.EndPort() == end.GUID() {
			return true
		}
	}
	return false
}

// reaches reports whether target is reachable from from along connectors.
func (e *Engine) reaches(from, target *domain.Node) bool {
	visited := make(map[uuid.UUID]bool)
	var visit func(n *domain.Node) bool
	visit = func(n *domain.Node) bool {
		if n == target {
			return true
		}
		if visited[n.GUID()] {
			return false
		}
		visited[n.GUID()] = true
		for _, next := range e.successors(n) {
			if visit(next) {
				return true
			}
		}
		return false
	}
	return visit(from)
}

func (e *Engine) successors(n *domain.Node) []*domain.Node {
	var out []*domain.Node
	for _, g := range []domain.PortGroup{domain.OutputFlowPorts, domain.OutputPropertyPorts} {
		for _, p := range n.Ports(g) {
			for _, id := range p.Connectors() {
				c, ok := e.reg.FindConnector(id)
				if !ok {
					continue
				}
				if end, ok := e.reg.FindNodePort(c.EndPort()); ok {
					out = append(out, end.Owner())
				}
			}
		}
	}
	return out
}
