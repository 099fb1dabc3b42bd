package domain

import "context"

// LifecycleHooks defines callbacks for entity lifecycle observability.
// Any field may be nil.
type LifecycleHooks struct {
	OnCreate      func(Entity)
	OnPreDestroy  func(Entity)
	OnPostDestroy func(Entity)
	OnDeserialize func(Entity)
	OnConnect     func(*Port, *Connector)
	OnDisconnect  func(*Port, *Connector)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnCreate:      chainEntity(h.OnCreate, other.OnCreate),
		OnPreDestroy:  chainEntity(h.OnPreDestroy, other.OnPreDestroy),
		OnPostDestroy: chainEntity(h.OnPostDestroy, other.OnPostDestroy),
		OnDeserialize: chainEntity(h.OnDeserialize, other.OnDeserialize),
		OnConnect:     chainPort(h.OnConnect, other.OnConnect),
		OnDisconnect:  chainPort(h.OnDisconnect, other.OnDisconnect),
	}
}

func chainEntity(a, b func(Entity)) func(Entity) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(e Entity) {
		a(e)
		b(e)
	}
}

func chainPort(a, b func(*Port, *Connector)) func(*Port, *Connector) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(p *Port, c *Connector) {
		a(p, c)
		b(p, c)
	}
}

// NodeCreateHandler is implemented by node behaviors that react to creation.
type NodeCreateHandler interface {
	OnCreate(n *Node)
}

// NodeDestroyHandler is implemented by node behaviors that release resources on destruction.
type NodeDestroyHandler interface {
	OnPreDestroy(n *Node)
	OnPostDestroy(n *Node)
}

// NodeExecutor is implemented by node behaviors that do work when the node is executed.
type NodeExecutor interface {
	Execute(ctx context.Context, n *Node) error
}

// ExecutionState is the run status of a node.
type ExecutionState int

const (
	StateNone ExecutionState = iota
	StateExecuting
	StateExecuted
	StateFailed
)

func (s ExecutionState) String() string {
	switch s {
	case StateExecuting:
		return "Executing"
	case StateExecuted:
		return "Executed"
	case StateFailed:
		return "Failed"
	default:
		return "None"
	}
}
