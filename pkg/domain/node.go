package domain

import (
	"slices"

	"github.com/aretw0/nodegraph/pkg/history"
	"github.com/google/uuid"
)

// PortGroup selects one of a node's four ordered port collections.
type PortGroup int

const (
	InputFlowPorts PortGroup = iota
	OutputFlowPorts
	InputPropertyPorts
	OutputPropertyPorts
)

// PortGroups lists the groups in persisted order.
var PortGroups = []PortGroup{InputFlowPorts, OutputFlowPorts, InputPropertyPorts, OutputPropertyPorts}

func (g PortGroup) String() string {
	switch g {
	case InputFlowPorts:
		return "InputFlowPorts"
	case OutputFlowPorts:
		return "OutputFlowPorts"
	case InputPropertyPorts:
		return "InputPropertyPorts"
	default:
		return "OutputPropertyPorts"
	}
}

// GroupOf returns the group a port of the given kind and direction belongs to.
func GroupOf(kind PortKind, isInput bool) PortGroup {
	switch {
	case kind == PortFlow && isInput:
		return InputFlowPorts
	case kind == PortFlow:
		return OutputFlowPorts
	case isInput:
		return InputPropertyPorts
	default:
		return OutputPropertyPorts
	}
}

// Node is a vertex of a flow chart.
//
// Behavior holds the type-specific value created by the node type; static property
// ports read and write it through their accessors.
type Node struct {
	notifier
	id                 uuid.UUID
	owner              *FlowChart
	typeName           string
	viewType           string
	header             string
	headerBackground   Color
	headerFont         Color
	allowEditingHeader bool
	allowCircular      bool
	x, y               float64
	zIndex             int
	state              ExecutionState
	selected           bool
	behavior           any
	ports              [4][]*Port
	initialized        bool
}

// NewNode creates an uninitialized node with the default header settings.
func NewNode(id uuid.UUID, owner *FlowChart, typeName string, behavior any) *Node {
	return &Node{
		id:                 id,
		owner:              owner,
		typeName:           typeName,
		headerBackground:   Black,
		headerFont:         White,
		allowEditingHeader: true,
		zIndex:             1,
		behavior:           behavior,
	}
}

func (n *Node) GUID() uuid.UUID     { return n.id }
func (n *Node) Kind() Kind          { return KindNode }
func (n *Node) IsInitialized() bool { return n.initialized }

// MarkInitialized flags the end of creation or deserialization.
// From then on edits of recorded properties go into the owner's history.
func (n *Node) MarkInitialized() { n.initialized = true }

func (n *Node) Owner() *FlowChart { return n.owner }
func (n *Node) Type() string      { return n.typeName }
func (n *Node) Behavior() any     { return n.behavior }

func (n *Node) ViewType() string               { return n.viewType }
func (n *Node) Header() string                 { return n.header }
func (n *Node) HeaderBackgroundColor() Color   { return n.headerBackground }
func (n *Node) HeaderFontColor() Color         { return n.headerFont }
func (n *Node) AllowEditingHeader() bool       { return n.allowEditingHeader }
func (n *Node) AllowCircularConnection() bool  { return n.allowCircular }
func (n *Node) X() float64                     { return n.x }
func (n *Node) Y() float64                     { return n.y }
func (n *Node) ZIndex() int                    { return n.zIndex }
func (n *Node) ExecutionState() ExecutionState { return n.state }
func (n *Node) IsSelected() bool               { return n.selected }

// SetViewType sets the opaque view-binding tag.
func (n *Node) SetViewType(v string) { n.viewType = v }

func (n *Node) SetHeader(v string) { setNodeField(n, &n.header, v, PropHeader, true) }

func (n *Node) SetHeaderBackgroundColor(v Color) {
	setNodeField(n, &n.headerBackground, v, PropHeaderBackgroundColor, true)
}

func (n *Node) SetHeaderFontColor(v Color) {
	setNodeField(n, &n.headerFont, v, PropHeaderFontColor, true)
}

func (n *Node) SetAllowEditingHeader(v bool) {
	setNodeField(n, &n.allowEditingHeader, v, PropAllowEditingHeader, true)
}

func (n *Node) SetAllowCircularConnection(v bool) {
	setNodeField(n, &n.allowCircular, v, PropAllowCircularConnection, true)
}

// SetX moves the node horizontally. Position changes are recorded by the drag gesture, not here.
func (n *Node) SetX(v float64) { setNodeField(n, &n.x, v, PropX, false) }

// SetY moves the node vertically.
func (n *Node) SetY(v float64) { setNodeField(n, &n.y, v, PropY, false) }

func (n *Node) SetZIndex(v int) { setNodeField(n, &n.zIndex, v, PropZIndex, false) }

func (n *Node) SetSelected(v bool) { setNodeField(n, &n.selected, v, PropIsSelected, false) }

func (n *Node) SetExecutionState(v ExecutionState) {
	setNodeField(n, &n.state, v, PropExecutionState, false)
}

func setNodeField[T comparable](n *Node, field *T, v T, property string, record bool) {
	if *field == v {
		return
	}
	old := *field
	*field = v
	if record {
		n.record(property, old, v)
	}
	n.raise(PropertyChange{Source: n.id, Kind: KindNode, Property: property})
}

func (n *Node) record(property string, old, new any) {
	if !n.initialized || n.owner == nil || n.owner.History == nil {
		return
	}
	n.owner.History.Record(TransactionSetProperty, &history.SetProperty{Target: n.id, Property: property, Old: old, New: new})
}

// Ports returns the ports of one group in order.
func (n *Node) Ports(group PortGroup) []*Port { return slices.Clone(n.ports[group]) }

// AllPorts returns every port, grouped in persisted order.
func (n *Node) AllPorts() []*Port {
	var all []*Port
	for _, g := range PortGroups {
		all = append(all, n.ports[g]...)
	}
	return all
}

// PortByName returns the first port with the given name in group.
func (n *Node) PortByName(group PortGroup, name string) (*Port, bool) {
	for _, p := range n.ports[group] {
		if p.name == name {
			return p, true
		}
	}
	return nil, false
}

// AppendPort adds p to the group matching its kind and direction.
func (n *Node) AppendPort(p *Port) {
	g := GroupOf(p.kind, p.isInput)
	n.ports[g] = append(n.ports[g], p)
	n.raise(PropertyChange{Source: n.id, Kind: KindNode, Property: PropPorts})
}

// RemovePort removes p from its group.
func (n *Node) RemovePort(p *Port) {
	g := GroupOf(p.kind, p.isInput)
	if i := slices.Index(n.ports[g], p); i >= 0 {
		n.ports[g] = slices.Delete(n.ports[g], i, i+1)
		n.raise(PropertyChange{Source: n.id, Kind: KindNode, Property: PropPorts})
	}
}

// PropertyValues returns the value of every property port keyed by port name.
func (n *Node) PropertyValues() map[string]any {
	values := make(map[string]any)
	for _, g := range []PortGroup{InputPropertyPorts, OutputPropertyPorts} {
		for _, p := range n.ports[g] {
			values[p.name] = p.Value()
		}
	}
	return values
}
