package domain

import (
	"github.com/google/uuid"
)

// Kind identifies the entity family a GUID belongs to.
type Kind int

const (
	KindFlowChart Kind = iota + 1
	KindNode
	KindPort
	KindConnector
)

func (k Kind) String() string {
	switch k {
	case KindFlowChart:
		return "flowchart"
	case KindNode:
		return "node"
	case KindPort:
		return "port"
	case KindConnector:
		return "connector"
	default:
		return "unknown"
	}
}

// Entity is implemented by every GUID-identified model object.
type Entity interface {
	GUID() uuid.UUID
	Kind() Kind
	IsInitialized() bool
}

// PropertyChange describes a state change on an entity.
type PropertyChange struct {
	Source   uuid.UUID
	Kind     Kind
	Property string
}

// Listener receives property change notifications.
type Listener func(PropertyChange)

type subscription struct {
	id int
	fn Listener
}

// notifier dispatches property changes to listeners in subscription order.
type notifier struct {
	listeners []subscription
	nextID    int
}

// Subscribe registers fn and returns a function that removes it.
func (n *notifier) Subscribe(fn Listener) func() {
	n.nextID++
	id := n.nextID
	n.listeners = append(n.listeners, subscription{id: id, fn: fn})
	return func() {
		for i, s := range n.listeners {
			if s.id == id {
				n.listeners = append(n.listeners[:i], n.listeners[i+1:]...)
				return
			}
		}
	}
}

func (n *notifier) raise(change PropertyChange) {
	// Listeners may unsubscribe while being notified
	listeners := make([]subscription, len(n.listeners))
	copy(listeners, n.listeners)
	for _, s := range listeners {
		s.fn(change)
	}
}
