package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/aretw0/nodegraph/internal/logging"
	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/google/uuid"
)

// DefaultMaxSteps bounds runs of circular flow charts.
const DefaultMaxSteps = 10000

// ErrStepLimit is returned when a run executes more nodes than allowed.
var ErrStepLimit = errors.New("execution step limit reached")

// NodeError reports the node whose Execute phase failed.
type NodeError struct {
	Node uuid.UUID
	Type string
	Err  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s (%s): %v", e.Node, e.Type, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }

// Executor runs nodes. It holds no per-run state and may be reused.
type Executor struct {
	logger   *slog.Logger
	hooks    Hooks
	maxSteps int
	now      func() time.Time
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithHooks registers observability hooks.
func WithHooks(hooks Hooks) Option {
	return func(e *Executor) {
		e.hooks = hooks
	}
}

// WithMaxSteps sets how many node executions a run may take. Zero or less disables the limit.
func WithMaxSteps(n int) Option {
	return func(e *Executor) {
		e.maxSteps = n
	}
}

// New creates an Executor.
func New(opts ...Option) *Executor {
	e := &Executor{
		logger:   logging.NewNop(),
		maxSteps: DefaultMaxSteps,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// run tracks the steps shared by every entry of one Run.
type run struct {
	*Executor
	steps int
}

// RunFrom executes n and, depth first, everything reachable through its output flow ports.
// It returns the number of executed nodes.
func (e *Executor) RunFrom(ctx context.Context, n *domain.Node) (int, error) {
	r := &run{Executor: e}
	err := r.from(ctx, n)
	return r.steps, err
}

// Run resets every node of fc and runs from each entry node in creation order.
func (e *Executor) Run(ctx context.Context, fc *domain.FlowChart) (int, error) {
	for _, n := range fc.Nodes() {
		n.SetExecutionState(domain.StateNone)
	}
	entries := Entries(fc)
	e.logger.Debug("execution: run", "flowchart", fc.GUID(), "entries", len(entries))

	r := &run{Executor: e}
	for _, n := range entries {
		if err := r.from(ctx, n); err != nil {
			return r.steps, err
		}
	}
	return r.steps, nil
}

// Entries returns the nodes with output flow ports and no connected input flow port.
func Entries(fc *domain.FlowChart) []*domain.Node {
	var out []*domain.Node
	for _, n := range fc.Nodes() {
		if len(n.Ports(domain.OutputFlowPorts)) == 0 {
			continue
		}
		if slices.ContainsFunc(n.Ports(domain.InputFlowPorts), (*domain.Port).IsConnected) {
			continue
		}
		out = append(out, n)
	}
	return out
}

func (r *run) from(ctx context.Context, start *domain.Node) error {
	stack := []*domain.Node{start}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if err := ctx.Err(); err != nil {
			return err
		}
		if r.maxSteps > 0 && r.steps >= r.maxSteps {
			return fmt.Errorf("%w: %d", ErrStepLimit, r.maxSteps)
		}
		r.steps++

		r.preExecute(ctx, n)
		if err := r.execute(ctx, n); err != nil {
			return err
		}
		next := r.postExecute(ctx, n)
		// Reverse so the first connector is executed first.
		for i := len(next) - 1; i >= 0; i-- {
			stack = append(stack, next[i])
		}
	}
	return nil
}

func (r *run) preExecute(ctx context.Context, n *domain.Node) {
	n.SetExecutionState(domain.StateExecuting)
	r.logger.Debug("execution: enter", "node", n.GUID(), "type", n.Type(), "step", r.steps)
	if r.hooks.OnNodeEnter != nil {
		r.hooks.OnNodeEnter(ctx, r.event(EventNodeEnter, n, nil))
	}
}

func (r *run) execute(ctx context.Context, n *domain.Node) error {
	executor, ok := n.Behavior().(domain.NodeExecutor)
	if !ok {
		return nil
	}
	err := executor.Execute(ctx, n)
	if err == nil {
		return nil
	}
	n.SetExecutionState(domain.StateFailed)
	r.logger.Debug("execution: failed", "node", n.GUID(), "type", n.Type(), "error", err)
	if r.hooks.OnNodeLeave != nil {
		r.hooks.OnNodeLeave(ctx, r.event(EventNodeLeave, n, err))
	}
	return &NodeError{Node: n.GUID(), Type: n.Type(), Err: err}
}

func (r *run) postExecute(ctx context.Context, n *domain.Node) []*domain.Node {
	n.SetExecutionState(domain.StateExecuted)
	if r.hooks.OnNodeLeave != nil {
		r.hooks.OnNodeLeave(ctx, r.event(EventNodeLeave, n, nil))
	}

	fc := n.Owner()
	if fc == nil {
		return nil
	}
	var next []*domain.Node
	for _, p := range n.Ports(domain.OutputFlowPorts) {
		if !p.IsEnabled() {
			continue
		}
		for _, id := range p.Connectors() {
			c, ok := fc.Connector(id)
			if !ok {
				continue
			}
			if end, ok := fc.Port(c.EndPort()); ok && end.Owner() != nil {
				next = append(next, end.Owner())
			}
		}
	}
	return next
}

func (r *run) event(t EventType, n *domain.Node, err error) *NodeEvent {
	return &NodeEvent{
		Timestamp: r.now(),
		Type:      t,
		Step:      r.steps,
		NodeID:    n.GUID(),
		NodeType:  n.Type(),
		State:     n.ExecutionState(),
		Err:       err,
	}
}
