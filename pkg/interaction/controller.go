package interaction

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/aretw0/nodegraph/internal/logging"
	"github.com/aretw0/nodegraph/pkg/connection"
	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/aretw0/nodegraph/pkg/history"
	"github.com/aretw0/nodegraph/pkg/registry"
	"github.com/google/uuid"
)

// Mode is the gesture the controller is in the middle of.
type Mode int

const (
	Idle Mode = iota
	Connecting
	DraggingNodes
	Selecting
)

func (m Mode) String() string {
	switch m {
	case Connecting:
		return "connecting"
	case DraggingNodes:
		return "dragging"
	case Selecting:
		return "selecting"
	default:
		return "idle"
	}
}

// Transaction names of the gestures.
const (
	TransactionCreatingConnection = "Creating Connection"
	TransactionMovingNodes        = "Moving Nodes"
	TransactionSelectingNodes     = "Selecting Nodes"
	TransactionDeletingNodes      = "Deleting Nodes"
	TransactionZoomAndPan         = "Zoom and Pan"
)

// Default node extent used for hit tests and bounds.
const (
	DefaultNodeWidth  = 160
	DefaultNodeHeight = 80
)

var (
	// ErrBusy is returned when a gesture starts while another one is in progress.
	ErrBusy = errors.New("interaction in progress")
	// ErrNoGesture is returned when a gesture is updated or ended without being started.
	ErrNoGesture = errors.New("no interaction in progress")
)

// Rect is an axis-aligned rectangle in flow chart coordinates.
type Rect struct {
	X, Y, Width, Height float64
}

// RectFromPoints returns the rectangle spanned by two corners in any order.
func RectFromPoints(x1, y1, x2, y2 float64) Rect {
	return Rect{
		X:      math.Min(x1, x2),
		Y:      math.Min(y1, y2),
		Width:  math.Abs(x2 - x1),
		Height: math.Abs(y2 - y1),
	}
}

// Intersects reports whether r and o overlap or touch.
func (r Rect) Intersects(o Rect) bool {
	return r.X <= o.X+o.Width && o.X <= r.X+r.Width &&
		r.Y <= o.Y+o.Height && o.Y <= r.Y+r.Height
}

// Union returns the smallest rectangle containing r and o.
func (r Rect) Union(o Rect) Rect {
	x := math.Min(r.X, o.X)
	y := math.Min(r.Y, o.Y)
	return Rect{
		X:      x,
		Y:      y,
		Width:  math.Max(r.X+r.Width, o.X+o.Width) - x,
		Height: math.Max(r.Y+r.Height, o.Y+o.Height) - y,
	}
}

// SizeFunc reports the rendered extent of a node.
type SizeFunc func(n *domain.Node) (width, height float64)

// Controller turns editor gestures into recorded graph edits.
// It is not safe for concurrent use; one controller serves one editor view.
type Controller struct {
	reg    *registry.Registry
	engine *connection.Engine
	size   SizeFunc
	logger *slog.Logger

	mode Mode
	fc   *domain.FlowChart

	// Connecting
	from *domain.Port
	to   *domain.Port

	// DraggingNodes
	dragged []*domain.Node
	origins map[uuid.UUID][2]float64

	// Selecting
	anchorX, anchorY float64
	before           map[uuid.UUID]bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger for gesture tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithNodeSize sets how node extents are measured.
func WithNodeSize(size SizeFunc) Option {
	return func(c *Controller) {
		c.size = size
	}
}

// New creates an idle controller editing the entities of reg.
func New(reg *registry.Registry, engine *connection.Engine, opts ...Option) *Controller {
	c := &Controller{
		reg:    reg,
		engine: engine,
		logger: logging.NewNop(),
		size: func(*domain.Node) (float64, float64) {
			return DefaultNodeWidth, DefaultNodeHeight
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mode returns the gesture in progress.
func (c *Controller) Mode() Mode { return c.mode }

func (c *Controller) begin(mode Mode, fc *domain.FlowChart, transaction string) error {
	if c.mode != Idle {
		return fmt.Errorf("%w: %s", ErrBusy, c.mode)
	}
	if fc == nil {
		return fmt.Errorf("%w: flow chart is nil", domain.ErrInvalidReference)
	}
	if _, ok := c.reg.FindFlowChart(fc.GUID()); !ok {
		return fmt.Errorf("%w: flowchart %s", domain.ErrInvalidReference, fc.GUID())
	}
	c.mode = mode
	c.fc = fc
	if transaction != "" {
		fc.History.BeginTransaction(transaction)
	}
	c.logger.Debug("interaction: begin", "mode", mode, "flowchart", fc.GUID())
	return nil
}

func (c *Controller) expect(mode Mode) error {
	if c.mode != mode {
		return fmt.Errorf("%w: want %s, in %s", ErrNoGesture, mode, c.mode)
	}
	return nil
}

func (c *Controller) reset() {
	c.mode = Idle
	c.fc = nil
	c.from, c.to = nil, nil
	c.dragged, c.origins = nil, nil
	c.before = nil
}

// BeginConnection starts dragging a connection out of p.
func (c *Controller) BeginConnection(p *domain.Port) error {
	if p == nil || p.Owner() == nil {
		return fmt.Errorf("%w: port is not attached", domain.ErrInvalidReference)
	}
	if found, ok := c.reg.FindNodePort(p.GUID()); !ok || found != p {
		return fmt.Errorf("%w: port %s", domain.ErrInvalidReference, p.GUID())
	}
	if err := c.begin(Connecting, p.Owner().Owner(), TransactionCreatingConnection); err != nil {
		return err
	}
	c.from = p
	return nil
}

// SetOtherConnectionPort sets the port under the pointer and reports whether releasing
// there would connect. A nil port or a rejected one clears the target.
func (c *Controller) SetOtherConnectionPort(p *domain.Port) (bool, string) {
	if c.mode != Connecting {
		return false, ErrNoGesture.Error()
	}
	c.to = nil
	if p == nil {
		return false, ""
	}
	ok, reason := c.engine.IsConnectableReplacing(c.from, p)
	if ok {
		c.to = p
	}
	return ok, reason
}

// EndConnection finishes the gesture. With a valid target the ports are connected,
// replacing the connector of a full exclusive port, and the transaction is committed.
// Without one the transaction is cancelled and false is returned.
func (c *Controller) EndConnection() (bool, error) {
	if err := c.expect(Connecting); err != nil {
		return false, err
	}
	fc, from, to := c.fc, c.from, c.to
	defer c.reset()

	if to == nil {
		fc.History.EndTransaction(true)
		c.logger.Debug("interaction: connection cancelled", "flowchart", fc.GUID())
		return false, nil
	}
	conn, err := c.engine.ConnectReplacing(from, to)
	if err != nil {
		fc.History.EndTransaction(true)
		return false, err
	}
	fc.History.EndTransaction(false)
	c.logger.Debug("interaction: connection created", "flowchart", fc.GUID(), "connector", conn.GUID())
	return true, nil
}

// CancelConnection abandons the gesture without connecting.
func (c *Controller) CancelConnection() {
	if c.mode != Connecting {
		return
	}
	c.fc.History.EndTransaction(true)
	c.reset()
}

// BeginDragNode starts moving nodes. Without explicit nodes the selection is moved.
func (c *Controller) BeginDragNode(fc *domain.FlowChart, nodes ...*domain.Node) error {
	if len(nodes) == 0 && fc != nil {
		nodes = SelectedNodes(fc)
	}
	if err := c.begin(DraggingNodes, fc, TransactionMovingNodes); err != nil {
		return err
	}
	c.origins = make(map[uuid.UUID][2]float64, len(nodes))
	for _, n := range nodes {
		if n.Owner() != fc {
			continue
		}
		if _, dup := c.origins[n.GUID()]; dup {
			continue
		}
		c.dragged = append(c.dragged, n)
		c.origins[n.GUID()] = [2]float64{n.X(), n.Y()}
	}
	return nil
}

// DragNode moves the dragged nodes by (dx, dy). Intermediate positions are not recorded.
func (c *Controller) DragNode(dx, dy float64) error {
	if err := c.expect(DraggingNodes); err != nil {
		return err
	}
	for _, n := range c.dragged {
		n.SetX(n.X() + dx)
		n.SetY(n.Y() + dy)
	}
	return nil
}

// EndDragNode records the net move of every dragged node and commits the transaction.
func (c *Controller) EndDragNode() error {
	if err := c.expect(DraggingNodes); err != nil {
		return err
	}
	fc := c.fc
	defer c.reset()

	for _, n := range c.dragged {
		origin := c.origins[n.GUID()]
		if n.X() != origin[0] {
			fc.History.AddCommand(&history.SetProperty{Target: n.GUID(), Property: domain.PropX, Old: origin[0], New: n.X()})
		}
		if n.Y() != origin[1] {
			fc.History.AddCommand(&history.SetProperty{Target: n.GUID(), Property: domain.PropY, Old: origin[1], New: n.Y()})
		}
	}
	fc.History.EndTransaction(false)
	return nil
}

// BeginDragSelection starts a rubber-band selection anchored at (x, y).
func (c *Controller) BeginDragSelection(fc *domain.FlowChart, x, y float64) error {
	if err := c.begin(Selecting, fc, ""); err != nil {
		return err
	}
	c.anchorX, c.anchorY = x, y
	c.before = make(map[uuid.UUID]bool)
	for _, n := range fc.Nodes() {
		c.before[n.GUID()] = n.IsSelected()
	}
	return nil
}

// UpdateDragSelection previews the selection of the rectangle from the anchor to (x, y).
func (c *Controller) UpdateDragSelection(x, y float64) error {
	if err := c.expect(Selecting); err != nil {
		return err
	}
	box := RectFromPoints(c.anchorX, c.anchorY, x, y)
	for _, n := range c.fc.Nodes() {
		n.SetSelected(box.Intersects(c.bounds(n)))
	}
	return nil
}

// EndDragSelection keeps the previewed selection, recording each change in one
// transaction, or restores the previous selection when cancel is set. It reports
// whether the selection changed.
func (c *Controller) EndDragSelection(cancel bool) (bool, error) {
	if err := c.expect(Selecting); err != nil {
		return false, err
	}
	fc, before := c.fc, c.before
	defer c.reset()

	if cancel {
		for _, n := range fc.Nodes() {
			n.SetSelected(before[n.GUID()])
		}
		return false, nil
	}

	changed := false
	fc.History.BeginTransaction(TransactionSelectingNodes)
	for _, n := range fc.Nodes() {
		if was := before[n.GUID()]; was != n.IsSelected() {
			fc.History.AddCommand(&history.SetProperty{Target: n.GUID(), Property: domain.PropIsSelected, Old: was, New: n.IsSelected()})
			changed = true
		}
	}
	fc.History.EndTransaction(false)
	return changed, nil
}

// SelectNode sets the selection state of n as its own recorded edit.
func (c *Controller) SelectNode(n *domain.Node, selected bool) {
	if n == nil || n.IsSelected() == selected {
		return
	}
	n.SetSelected(selected)
	if fc := n.Owner(); fc != nil {
		fc.History.Record(TransactionSelectingNodes, &history.SetProperty{Target: n.GUID(), Property: domain.PropIsSelected, Old: !selected, New: selected})
	}
}

// SelectAll selects every node of fc in one transaction.
func (c *Controller) SelectAll(fc *domain.FlowChart) {
	c.selectEvery(fc, true)
}

// DeselectAll clears the selection of fc in one transaction.
func (c *Controller) DeselectAll(fc *domain.FlowChart) {
	c.selectEvery(fc, false)
}

func (c *Controller) selectEvery(fc *domain.FlowChart, selected bool) {
	fc.History.BeginTransaction(TransactionSelectingNodes)
	for _, n := range fc.Nodes() {
		if n.IsSelected() == selected {
			continue
		}
		n.SetSelected(selected)
		fc.History.AddCommand(&history.SetProperty{Target: n.GUID(), Property: domain.PropIsSelected, Old: !selected, New: selected})
	}
	fc.History.EndTransaction(false)
}

// SelectedNodes returns the selected nodes of fc in creation order.
func SelectedNodes(fc *domain.FlowChart) []*domain.Node {
	var out []*domain.Node
	for _, n := range fc.Nodes() {
		if n.IsSelected() {
			out = append(out, n)
		}
	}
	return out
}

// SelectedNodes returns the selected nodes of fc in creation order.
func (c *Controller) SelectedNodes(fc *domain.FlowChart) []*domain.Node {
	return SelectedNodes(fc)
}

// DestroySelectedNodes destroys the selected nodes of fc and their connectors as one
// transaction. It returns the number of destroyed nodes.
func (c *Controller) DestroySelectedNodes(fc *domain.FlowChart) (int, error) {
	if c.mode != Idle {
		return 0, fmt.Errorf("%w: %s", ErrBusy, c.mode)
	}
	selected := SelectedNodes(fc)
	if len(selected) == 0 {
		return 0, nil
	}
	fc.History.BeginTransaction(TransactionDeletingNodes)
	for i, n := range selected {
		if err := c.reg.DestroyNode(n.GUID()); err != nil {
			fc.History.EndTransaction(false)
			return i, fmt.Errorf("destroy node %s: %w", n.GUID(), err)
		}
	}
	fc.History.EndTransaction(false)
	return len(selected), nil
}

// ContentBounds returns the rectangle around the nodes of fc, or only around the
// selected ones. It reports false when there is nothing to bound.
func (c *Controller) ContentBounds(fc *domain.FlowChart, onlySelected bool) (Rect, bool) {
	var (
		bounds Rect
		found  bool
	)
	for _, n := range fc.Nodes() {
		if onlySelected && !n.IsSelected() {
			continue
		}
		if !found {
			bounds, found = c.bounds(n), true
			continue
		}
		bounds = bounds.Union(c.bounds(n))
	}
	return bounds, found
}

func (c *Controller) bounds(n *domain.Node) Rect {
	w, h := c.size(n)
	return Rect{X: n.X(), Y: n.Y(), Width: w, Height: h}
}

// CommitZoomAndPan applies to and records the change from from as one ZoomPan command.
// Equal viewports record nothing.
func (c *Controller) CommitZoomAndPan(fc *domain.FlowChart, from, to domain.Viewport) {
	if from == to {
		return
	}
	fc.SetViewport(to)
	fc.History.Record(TransactionZoomAndPan, &history.ZoomPan{FlowChart: fc.GUID(), From: from, To: to})
}
