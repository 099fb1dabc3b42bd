package domain

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// Connector is a directed edge from an output port to an input port.
// Ports are referenced by GUID; the owning flow chart resolves them.
type Connector struct {
	notifier
	id          uuid.UUID
	owner       *FlowChart
	startPort   uuid.UUID
	endPort     uuid.UUID
	viewType    string
	initialized bool
	unsubscribe func()
}

// NewConnector creates an unattached connector.
func NewConnector(id uuid.UUID, owner *FlowChart) *Connector {
	return &Connector{id: id, owner: owner}
}

func (c *Connector) GUID() uuid.UUID     { return c.id }
func (c *Connector) Kind() Kind          { return KindConnector }
func (c *Connector) IsInitialized() bool { return c.initialized }

// MarkInitialized flags the end of creation or deserialization.
func (c *Connector) MarkInitialized() { c.initialized = true }

func (c *Connector) Owner() *FlowChart    { return c.owner }
func (c *Connector) StartPort() uuid.UUID { return c.startPort }
func (c *Connector) EndPort() uuid.UUID   { return c.endPort }
func (c *Connector) ViewType() string     { return c.viewType }

// SetViewType sets the opaque view-binding tag.
func (c *Connector) SetViewType(v string) { c.viewType = v }

// IsWired reports whether both ends are attached.
func (c *Connector) IsWired() bool {
	return c.startPort != uuid.Nil && c.endPort != uuid.Nil
}

// Wire attaches c to start (an output) and end (an input).
// It fails without side effects when either port is at capacity.
// Value changes of a property start port are re-raised on the end port.
func Wire(c *Connector, start, end *Port) error {
	if err := CheckWire(c, start, end, uuid.Nil); err != nil {
		return err
	}

	c.startPort = start.id
	c.endPort = end.id
	start.connectors = append(start.connectors, c.id)
	end.connectors = append(end.connectors, c.id)

	if start.kind == PortProperty {
		c.unsubscribe = start.Subscribe(func(change PropertyChange) {
			if change.Property == PropValue && end.Source() == start {
				end.raiseValue()
			}
		})
	}

	start.raise(PropertyChange{Source: start.id, Kind: KindPort, Property: PropConnectors})
	end.raise(PropertyChange{Source: end.id, Kind: KindPort, Property: PropConnectors})
	c.raise(PropertyChange{Source: c.id, Kind: KindConnector, Property: PropStartPort})
	c.raise(PropertyChange{Source: c.id, Kind: KindConnector, Property: PropEndPort})
	if end.kind == PortProperty {
		end.raiseValue()
	}
	return nil
}

// CheckWire reports the error Wire(c, start, end) would return once the connector
// freed is detached from its ports. uuid.Nil frees nothing.
func CheckWire(c *Connector, start, end *Port, freed uuid.UUID) error {
	if start == nil || end == nil {
		return fmt.Errorf("connector %s: %w: missing port", c.id, ErrInvalidReference)
	}
	if start.isInput || !end.isInput {
		return fmt.Errorf("connector %s: start must be an output and end an input", c.id)
	}
	if c.IsWired() {
		return fmt.Errorf("connector %s: already wired", c.id)
	}
	for _, p := range []*Port{start, end} {
		if p.fullWithout(freed) {
			return fmt.Errorf("port %s (%s): %w", p.name, p.id, ErrCapacity)
		}
	}
	return nil
}

// Unwire detaches c from its ports. Nil ports are skipped.
func Unwire(c *Connector, start, end *Port) {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	for _, p := range []*Port{start, end} {
		if p == nil {
			continue
		}
		if i := slices.Index(p.connectors, c.id); i >= 0 {
			p.connectors = slices.Delete(p.connectors, i, i+1)
			p.raise(PropertyChange{Source: p.id, Kind: KindPort, Property: PropConnectors})
		}
	}
	if end != nil && end.kind == PortProperty {
		end.raiseValue()
	}
}
