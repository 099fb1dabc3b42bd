package domain

import (
	"slices"

	"github.com/aretw0/nodegraph/pkg/history"
	"github.com/google/uuid"
)

// Viewport is the pan offset and zoom scale of a flow chart view.
type Viewport = history.Viewport

// DefaultViewport is the unpanned, unzoomed view.
var DefaultViewport = Viewport{Scale: 1}

// Resolver answers GUID lookups for the relations held inside the model.
type Resolver interface {
	FindNodePort(id uuid.UUID) (*Port, bool)
	FindConnector(id uuid.UUID) (*Connector, bool)
}

// FlowChart is the root container of nodes and connectors. It owns its history.
type FlowChart struct {
	notifier
	id            uuid.UUID
	nodes         []*Node
	connectors    []*Connector
	viewport      Viewport
	allowCircular bool
	initialized   bool
	resolver      Resolver

	// History records edits to this flow chart.
	History *history.History
}

// NewFlowChart creates an empty, uninitialized flow chart.
func NewFlowChart(id uuid.UUID, resolver Resolver) *FlowChart {
	return &FlowChart{
		id:       id,
		resolver: resolver,
		viewport: DefaultViewport,
	}
}

func (f *FlowChart) GUID() uuid.UUID     { return f.id }
func (f *FlowChart) Kind() Kind          { return KindFlowChart }
func (f *FlowChart) IsInitialized() bool { return f.initialized }

// MarkInitialized flags the end of creation or deserialization.
func (f *FlowChart) MarkInitialized() { f.initialized = true }

// Nodes returns the nodes in insertion order.
func (f *FlowChart) Nodes() []*Node { return slices.Clone(f.nodes) }

// Connectors returns the connectors in insertion order.
func (f *FlowChart) Connectors() []*Connector { return slices.Clone(f.connectors) }

// AppendNode adds n to the node collection.
func (f *FlowChart) AppendNode(n *Node) {
	f.nodes = append(f.nodes, n)
	f.raise(PropertyChange{Source: f.id, Kind: KindFlowChart, Property: PropNodes})
}

// InsertNode adds n at index i of the node collection. An index out of range appends it.
func (f *FlowChart) InsertNode(i int, n *Node) {
	if i < 0 || i > len(f.nodes) {
		i = len(f.nodes)
	}
	f.nodes = slices.Insert(f.nodes, i, n)
	f.raise(PropertyChange{Source: f.id, Kind: KindFlowChart, Property: PropNodes})
}

// NodeIndex returns the position of n in the node collection, or -1.
func (f *FlowChart) NodeIndex(n *Node) int { return slices.Index(f.nodes, n) }

// RemoveNode removes n from the node collection.
func (f *FlowChart) RemoveNode(n *Node) {
	if i := slices.Index(f.nodes, n); i >= 0 {
		f.nodes = slices.Delete(f.nodes, i, i+1)
		f.raise(PropertyChange{Source: f.id, Kind: KindFlowChart, Property: PropNodes})
	}
}

// AppendConnector adds c to the connector collection.
func (f *FlowChart) AppendConnector(c *Connector) {
	f.connectors = append(f.connectors, c)
	f.raise(PropertyChange{Source: f.id, Kind: KindFlowChart, Property: PropConnectors})
}

// RemoveConnector removes c from the connector collection.
func (f *FlowChart) RemoveConnector(c *Connector) {
	if i := slices.Index(f.connectors, c); i >= 0 {
		f.connectors = slices.Delete(f.connectors, i, i+1)
		f.raise(PropertyChange{Source: f.id, Kind: KindFlowChart, Property: PropConnectors})
	}
}

// Port resolves a port GUID through the owning registry.
func (f *FlowChart) Port(id uuid.UUID) (*Port, bool) {
	if f.resolver == nil {
		return nil, false
	}
	return f.resolver.FindNodePort(id)
}

// Connector resolves a connector GUID through the owning registry.
func (f *FlowChart) Connector(id uuid.UUID) (*Connector, bool) {
	if f.resolver == nil {
		return nil, false
	}
	return f.resolver.FindConnector(id)
}

// Viewport returns the current pan and zoom.
func (f *FlowChart) Viewport() Viewport { return f.viewport }

// SetViewport changes pan and zoom. It is not recorded; ZoomPan commands are
// committed by the interaction layer once a gesture ends.
func (f *FlowChart) SetViewport(v Viewport) {
	if v == f.viewport {
		return
	}
	f.viewport = v
	f.raise(PropertyChange{Source: f.id, Kind: KindFlowChart, Property: PropViewport})
}

// AllowCircularConnection reports whether connections may close a cycle in the node graph.
func (f *FlowChart) AllowCircularConnection() bool { return f.allowCircular }

// SetAllowCircularConnection changes the graph-level cycle rule.
func (f *FlowChart) SetAllowCircularConnection(v bool) {
	if v == f.allowCircular {
		return
	}
	old := f.allowCircular
	f.allowCircular = v
	f.record(PropAllowCircularConnection, old, v)
	f.raise(PropertyChange{Source: f.id, Kind: KindFlowChart, Property: PropAllowCircularConnection})
}

func (f *FlowChart) record(property string, old, new any) {
	if !f.initialized || f.History == nil {
		return
	}
	f.History.Record(TransactionSetProperty, &history.SetProperty{Target: f.id, Property: property, Old: old, New: new})
}

// NodeByID returns the node of this flow chart with the given GUID.
func (f *FlowChart) NodeByID(id uuid.UUID) (*Node, bool) {
	for _, n := range f.nodes {
		if n.id == id {
			return n, true
		}
	}
	return nil, false
}
