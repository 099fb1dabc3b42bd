package history

import (
	"github.com/google/uuid"
)

// Graph is the mutation surface commands are applied to.
// Every target must exist; implementations fail otherwise.
type Graph interface {
	DestroyNode(id uuid.UUID) error
	// RestoreNode rebuilds a node at index in its flow chart; a negative index appends it.
	RestoreNode(fragment []byte, index int) error
	DestroyNodePort(id uuid.UUID) error
	RestoreNodePort(fragment []byte) error
	DestroyConnector(id uuid.UUID) error
	RestoreConnector(fragment []byte) error
	SetProperty(target uuid.UUID, property string, value any) error
	SetViewport(flowChart uuid.UUID, v Viewport) error
}

// Command is one reversible mutation inside a transaction.
type Command interface {
	Name() string
	Undo(g Graph) error
	Redo(g Graph) error
}

// CreateNode records the creation of a node together with its ports.
type CreateNode struct {
	Node     uuid.UUID
	Fragment []byte
}

func (c *CreateNode) Name() string       { return "CreateNode" }
func (c *CreateNode) Undo(g Graph) error { return g.DestroyNode(c.Node) }
func (c *CreateNode) Redo(g Graph) error { return g.RestoreNode(c.Fragment, -1) }

// DestroyNode records the removal of a node. Fragment is the node as it was before removal
// and Index its position among the nodes of its flow chart.
type DestroyNode struct {
	Node     uuid.UUID
	Fragment []byte
	Index    int
}

func (c *DestroyNode) Name() string       { return "DestroyNode" }
func (c *DestroyNode) Undo(g Graph) error { return g.RestoreNode(c.Fragment, c.Index) }
func (c *DestroyNode) Redo(g Graph) error { return g.DestroyNode(c.Node) }

// CreateNodePort records a port added to an existing node.
type CreateNodePort struct {
	Port     uuid.UUID
	Fragment []byte
}

func (c *CreateNodePort) Name() string       { return "CreateNodePort" }
func (c *CreateNodePort) Undo(g Graph) error { return g.DestroyNodePort(c.Port) }
func (c *CreateNodePort) Redo(g Graph) error { return g.RestoreNodePort(c.Fragment) }

// DestroyNodePort records a port removed from a live node.
type DestroyNodePort struct {
	Port     uuid.UUID
	Fragment []byte
}

func (c *DestroyNodePort) Name() string       { return "DestroyNodePort" }
func (c *DestroyNodePort) Undo(g Graph) error { return g.RestoreNodePort(c.Fragment) }
func (c *DestroyNodePort) Redo(g Graph) error { return g.DestroyNodePort(c.Port) }

// Connect records a connector created between two ports.
type Connect struct {
	Connector uuid.UUID
	Fragment  []byte
}

func (c *Connect) Name() string       { return "CreateConnector" }
func (c *Connect) Undo(g Graph) error { return g.DestroyConnector(c.Connector) }
func (c *Connect) Redo(g Graph) error { return g.RestoreConnector(c.Fragment) }

// Disconnect records a connector removed from its ports.
type Disconnect struct {
	Connector uuid.UUID
	Fragment  []byte
}

func (c *Disconnect) Name() string       { return "DestroyConnector" }
func (c *Disconnect) Undo(g Graph) error { return g.RestoreConnector(c.Fragment) }
func (c *Disconnect) Redo(g Graph) error { return g.DestroyConnector(c.Connector) }

// SetProperty records a property change on a node, port or flow chart.
type SetProperty struct {
	Target   uuid.UUID
	Property string
	Old      any
	New      any
}

func (c *SetProperty) Name() string       { return "SetProperty " + c.Property }
func (c *SetProperty) Undo(g Graph) error { return g.SetProperty(c.Target, c.Property, c.Old) }
func (c *SetProperty) Redo(g Graph) error { return g.SetProperty(c.Target, c.Property, c.New) }

// ZoomPan records a viewport change of a flow chart.
type ZoomPan struct {
	FlowChart uuid.UUID
	From      Viewport
	To        Viewport
}

// Viewport is the pan offset and zoom scale of a flow chart view.
type Viewport struct {
	OffsetX float64
	OffsetY float64
	Scale   float64
}

func (c *ZoomPan) Name() string       { return "ZoomAndPan" }
func (c *ZoomPan) Undo(g Graph) error { return g.SetViewport(c.FlowChart, c.From) }
func (c *ZoomPan) Redo(g Graph) error { return g.SetViewport(c.FlowChart, c.To) }
