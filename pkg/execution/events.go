package execution

import (
	"context"
	"time"

	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/google/uuid"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeEnter EventType = "node_enter"
	EventNodeLeave EventType = "node_leave"
)

// NodeEvent reports entry into or exit from a node.
type NodeEvent struct {
	Timestamp time.Time             `json:"timestamp"`
	Type      EventType             `json:"type"`
	Step      int                   `json:"step"`
	NodeID    uuid.UUID             `json:"node_id"`
	NodeType  string                `json:"node_type"`
	State     domain.ExecutionState `json:"state"`
	Err       error                 `json:"-"`
}

// Hooks observe a run. Any field may be nil.
type Hooks struct {
	OnNodeEnter func(context.Context, *NodeEvent)
	OnNodeLeave func(context.Context, *NodeEvent)
}
