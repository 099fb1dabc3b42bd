package registry

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/aretw0/nodegraph/pkg/format"
	"github.com/aretw0/nodegraph/pkg/history"
	"github.com/aretw0/nodegraph/pkg/schema"
	"github.com/google/uuid"
)

// Registry is the identity-keyed store of one editing session.
// It creates, finds and destroys every flow chart, node, port and connector,
// and applies history commands back onto them.
//
// A Registry is not safe for concurrent use.
type Registry struct {
	flowCharts map[uuid.UUID]*domain.FlowChart
	nodes      map[uuid.UUID]*domain.Node
	ports      map[uuid.UUID]*domain.Port
	connectors map[uuid.UUID]*domain.Connector
	order      []uuid.UUID

	catalog         *Catalog
	types           *schema.Catalog
	codec           format.Codec
	hooks           domain.LifecycleHooks
	historyCapacity int
	historyHooks    history.Hooks
	logger          *slog.Logger
	graph           *applier
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger for debug tracing of entity lifecycles.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithHooks registers lifecycle hooks. Repeated calls merge.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(r *Registry) {
		r.hooks = r.hooks.Merge(hooks)
	}
}

// WithCodec sets the codec of history snapshots and single-entity fragments.
func WithCodec(codec format.Codec) Option {
	return func(r *Registry) {
		r.codec = codec
	}
}

// WithCatalog sets the node types available to CreateNode and deserialization.
func WithCatalog(catalog *Catalog) Option {
	return func(r *Registry) {
		r.catalog = catalog
	}
}

// WithHistoryCapacity sets the transaction capacity of new flow charts.
func WithHistoryCapacity(n int) Option {
	return func(r *Registry) {
		r.historyCapacity = n
	}
}

// WithHistoryHooks registers hooks on the history of every new flow chart.
func WithHistoryHooks(hooks history.Hooks) Option {
	return func(r *Registry) {
		r.historyHooks = hooks
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		flowCharts:      make(map[uuid.UUID]*domain.FlowChart),
		nodes:           make(map[uuid.UUID]*domain.Node),
		ports:           make(map[uuid.UUID]*domain.Port),
		connectors:      make(map[uuid.UUID]*domain.Connector),
		codec:           format.YAML(),
		historyCapacity: history.DefaultCapacity,
		types:           schema.NewCatalog(domain.ColorType()),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.catalog == nil {
		r.catalog = NewCatalog()
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	r.graph = &applier{r: r}
	return r
}

// Catalog returns the node types of this registry.
func (r *Registry) Catalog() *Catalog { return r.catalog }

// Types returns the value-type catalog used to resolve persisted type names.
func (r *Registry) Types() *schema.Catalog { return r.types }

// Codec returns the fragment codec.
func (r *Registry) Codec() format.Codec { return r.codec }

// Graph returns the strict mutation surface history commands are applied to.
func (r *Registry) Graph() history.Graph { return r.graph }

// Close destroys every flow chart and ends the session.
func (r *Registry) Close() error {
	for _, id := range slices.Clone(r.order) {
		r.DestroyFlowChart(id)
	}
	return nil
}

// Len returns the number of registered entities of all kinds.
func (r *Registry) Len() int {
	return len(r.flowCharts) + len(r.nodes) + len(r.ports) + len(r.connectors)
}

// FlowCharts returns the live flow charts in creation order.
func (r *Registry) FlowCharts() []*domain.FlowChart {
	out := make([]*domain.FlowChart, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.flowCharts[id])
	}
	return out
}

func (r *Registry) FindFlowChart(id uuid.UUID) (*domain.FlowChart, bool) {
	fc, ok := r.flowCharts[id]
	return fc, ok
}

func (r *Registry) FindNode(id uuid.UUID) (*domain.Node, bool) {
	n, ok := r.nodes[id]
	return n, ok
}

func (r *Registry) FindNodePort(id uuid.UUID) (*domain.Port, bool) {
	p, ok := r.ports[id]
	return p, ok
}

func (r *Registry) FindConnector(id uuid.UUID) (*domain.Connector, bool) {
	c, ok := r.connectors[id]
	return c, ok
}

// FindNodePropertyPort returns the input or output property port of n named name.
func (r *Registry) FindNodePropertyPort(n *domain.Node, name string) (*domain.Port, bool) {
	if p, ok := n.PortByName(domain.InputPropertyPorts, name); ok {
		return p, true
	}
	return n.PortByName(domain.OutputPropertyPorts, name)
}

// FindConnectedPorts returns the ports at the other end of every connector of p.
func (r *Registry) FindConnectedPorts(p *domain.Port) []*domain.Port {
	var out []*domain.Port
	for _, cid := range p.Connectors() {
		c, ok := r.connectors[cid]
		if !ok {
			continue
		}
		other := c.StartPort()
		if other == p.GUID() {
			other = c.EndPort()
		}
		if op, ok := r.ports[other]; ok {
			out = append(out, op)
		}
	}
	return out
}

// kindOf reports the kind a GUID is registered as.
func (r *Registry) kindOf(id uuid.UUID) (domain.Kind, bool) {
	switch {
	case r.flowCharts[id] != nil:
		return domain.KindFlowChart, true
	case r.nodes[id] != nil:
		return domain.KindNode, true
	case r.ports[id] != nil:
		return domain.KindPort, true
	case r.connectors[id] != nil:
		return domain.KindConnector, true
	}
	return 0, false
}

// claim returns id, or a new GUID for uuid.Nil, after checking it is not live.
func (r *Registry) claim(id uuid.UUID, kind domain.Kind) (uuid.UUID, error) {
	if id == uuid.Nil {
		return uuid.New(), nil
	}
	if live, ok := r.kindOf(id); ok {
		if live == kind {
			return id, fmt.Errorf("%s %s: %w", kind, id, domain.ErrDuplicateID)
		}
		return id, fmt.Errorf("%s %s is a %s: %w", kind, id, live, domain.ErrKindMismatch)
	}
	return id, nil
}

func (r *Registry) newFlowChart(id uuid.UUID) *domain.FlowChart {
	fc := domain.NewFlowChart(id, r)
	fc.History = history.New(r.graph,
		history.WithCapacity(r.historyCapacity),
		history.WithHooks(r.historyHooks),
		history.WithLogger(r.logger.With("flowchart", id)),
	)
	return fc
}

func (r *Registry) addFlowChart(fc *domain.FlowChart) {
	r.flowCharts[fc.GUID()] = fc
	r.order = append(r.order, fc.GUID())
}

// recording reports whether edits of fc currently go into its open transaction.
func recording(fc *domain.FlowChart) bool {
	h := fc.History
	return h != nil && h.IsTransactionOpen() && !h.IsProcessing()
}

// CreateFlowChart creates and registers an empty flow chart. uuid.Nil generates a GUID.
func (r *Registry) CreateFlowChart(id uuid.UUID) (*domain.FlowChart, error) {
	id, err := r.claim(id, domain.KindFlowChart)
	if err != nil {
		return nil, err
	}
	fc := r.newFlowChart(id)
	r.addFlowChart(fc)
	fc.MarkInitialized()

	r.logger.Debug("registry: create flowchart", "flowchart", id)
	r.onCreate(fc)
	return fc, nil
}

// CreateNode creates a node of the named type in fc with the type's declared ports.
// Inside an open transaction the creation is recorded as one CreateNode command.
func (r *Registry) CreateNode(id uuid.UUID, fc *domain.FlowChart, typeName string, x, y float64) (*domain.Node, error) {
	if fc == nil || r.flowCharts[fc.GUID()] != fc {
		return nil, fmt.Errorf("node owner: %w", domain.ErrInvalidReference)
	}
	nt, ok := r.catalog.Lookup(typeName)
	if !ok {
		return nil, fmt.Errorf("node type %q: %w", typeName, domain.ErrUnknownType)
	}
	id, err := r.claim(id, domain.KindNode)
	if err != nil {
		return nil, err
	}

	var behavior any
	if nt.New != nil {
		behavior = nt.New()
	}
	n := domain.NewNode(id, fc, typeName, behavior)
	n.SetViewType(nt.ViewType)
	n.SetHeader(nt.Header)
	n.SetX(x)
	n.SetY(y)
	for _, spec := range nt.Ports {
		p, err := domain.NewPort(uuid.New(), n, spec)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", id, err)
		}
		n.AppendPort(p)
	}

	var cmd history.Command
	if recording(fc) {
		fragment, err := r.SerializeNode(n)
		if err != nil {
			return nil, err
		}
		cmd = &history.CreateNode{Node: id, Fragment: fragment}
	}

	r.addNode(n)
	fc.AppendNode(n)
	r.initNode(n)

	r.logger.Debug("registry: create node", "node", id, "type", typeName, "flowchart", fc.GUID())
	if h, ok := behavior.(domain.NodeCreateHandler); ok {
		h.OnCreate(n)
	}
	r.onCreate(n)
	for _, p := range n.AllPorts() {
		r.onCreate(p)
	}
	if cmd != nil {
		fc.History.AddCommand(cmd)
	}
	return n, nil
}

func (r *Registry) addNode(n *domain.Node) {
	r.nodes[n.GUID()] = n
	for _, p := range n.AllPorts() {
		r.ports[p.GUID()] = p
	}
}

func (r *Registry) initNode(n *domain.Node) {
	for _, p := range n.AllPorts() {
		p.MarkInitialized()
	}
	n.MarkInitialized()
}

// CreateNodePort adds a port declared by spec to a live node.
func (r *Registry) CreateNodePort(id uuid.UUID, n *domain.Node, spec domain.PortSpec) (*domain.Port, error) {
	if n == nil || r.nodes[n.GUID()] != n {
		return nil, fmt.Errorf("port owner: %w", domain.ErrInvalidReference)
	}
	id, err := r.claim(id, domain.KindPort)
	if err != nil {
		return nil, err
	}
	p, err := domain.NewPort(id, n, spec)
	if err != nil {
		return nil, err
	}

	fc := n.Owner()
	var cmd history.Command
	if recording(fc) {
		fragment, err := r.SerializeNodePort(p)
		if err != nil {
			return nil, err
		}
		cmd = &history.CreateNodePort{Port: id, Fragment: fragment}
	}

	r.ports[id] = p
	n.AppendPort(p)
	p.MarkInitialized()

	r.logger.Debug("registry: create port", "port", id, "name", spec.Name, "node", n.GUID())
	r.onCreate(p)
	if cmd != nil {
		fc.History.AddCommand(cmd)
	}
	return p, nil
}

// CreateConnector registers a connector from start to end in fc.
// It does not apply connection rules; callers go through the connection engine.
func (r *Registry) CreateConnector(id uuid.UUID, fc *domain.FlowChart, start, end *domain.Port) (*domain.Connector, error) {
	if fc == nil || r.flowCharts[fc.GUID()] != fc {
		return nil, fmt.Errorf("connector owner: %w", domain.ErrInvalidReference)
	}
	if err := r.livePorts(start, end); err != nil {
		return nil, err
	}
	id, err := r.claim(id, domain.KindConnector)
	if err != nil {
		return nil, err
	}

	c := domain.NewConnector(id, fc)
	if err := domain.Wire(c, start, end); err != nil {
		return nil, err
	}

	var cmd history.Command
	if recording(fc) {
		fragment, err := r.SerializeConnector(c)
		if err != nil {
			domain.Unwire(c, start, end)
			return nil, err
		}
		cmd = &history.Connect{Connector: id, Fragment: fragment}
	}

	r.connectors[id] = c
	fc.AppendConnector(c)
	c.MarkInitialized()

	r.logger.Debug("registry: create connector", "connector", id, "start", start.GUID(), "end", end.GUID())
	r.onCreate(c)
	r.onConnect(start, end, c)
	if cmd != nil {
		fc.History.AddCommand(cmd)
	}
	return c, nil
}

func (r *Registry) livePorts(ports ...*domain.Port) error {
	for _, p := range ports {
		if p == nil {
			return fmt.Errorf("connector port: %w", domain.ErrInvalidReference)
		}
		if r.ports[p.GUID()] != p {
			return fmt.Errorf("port %s: %w", p.GUID(), domain.ErrInvalidReference)
		}
	}
	return nil
}

// DestroyFlowChart destroys fc with all its nodes and connectors, and drops its history.
// An unknown GUID is a no-op.
func (r *Registry) DestroyFlowChart(id uuid.UUID) {
	fc, ok := r.flowCharts[id]
	if !ok {
		return
	}
	r.onPreDestroy(fc)
	fc.History.EndTransaction(true)
	for _, c := range fc.Connectors() {
		r.destroyConnector(c, false)
	}
	for _, n := range fc.Nodes() {
		r.destroyNode(n, false)
	}
	fc.History.Clear()

	delete(r.flowCharts, id)
	if i := slices.Index(r.order, id); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
	r.logger.Debug("registry: destroy flowchart", "flowchart", id)
	r.onPostDestroy(fc)
}

// DestroyNode destroys a node, its ports and every connector attached to them.
// Inside an open transaction each connector is recorded as a Disconnect before the
// node is recorded as DestroyNode. An unknown GUID is a no-op.
func (r *Registry) DestroyNode(id uuid.UUID) error {
	n, ok := r.nodes[id]
	if !ok {
		return nil
	}
	return r.destroyNode(n, true)
}

func (r *Registry) destroyNode(n *domain.Node, record bool) error {
	fc := n.Owner()
	record = record && recording(fc)

	r.onPreDestroy(n)
	destroyHandler, _ := n.Behavior().(domain.NodeDestroyHandler)
	if destroyHandler != nil {
		destroyHandler.OnPreDestroy(n)
	}

	for _, p := range n.AllPorts() {
		if err := r.disconnectPort(p, record); err != nil {
			return err
		}
	}

	var cmd history.Command
	if record {
		fragment, err := r.SerializeNode(n)
		if err != nil {
			return err
		}
		cmd = &history.DestroyNode{Node: n.GUID(), Fragment: fragment, Index: fc.NodeIndex(n)}
	}

	for _, p := range n.AllPorts() {
		r.onPreDestroy(p)
		delete(r.ports, p.GUID())
		r.onPostDestroy(p)
	}
	fc.RemoveNode(n)
	delete(r.nodes, n.GUID())

	r.logger.Debug("registry: destroy node", "node", n.GUID(), "flowchart", fc.GUID())
	if destroyHandler != nil {
		destroyHandler.OnPostDestroy(n)
	}
	r.onPostDestroy(n)
	if cmd != nil {
		fc.History.AddCommand(cmd)
	}
	return nil
}

// DestroyNodePort removes a port and its connectors from a live node. An unknown GUID is a no-op.
func (r *Registry) DestroyNodePort(id uuid.UUID) error {
	p, ok := r.ports[id]
	if !ok {
		return nil
	}
	return r.destroyNodePort(p, true)
}

func (r *Registry) destroyNodePort(p *domain.Port, record bool) error {
	n := p.Owner()
	fc := n.Owner()
	record = record && recording(fc)

	r.onPreDestroy(p)
	if err := r.disconnectPort(p, record); err != nil {
		return err
	}

	var cmd history.Command
	if record {
		fragment, err := r.SerializeNodePort(p)
		if err != nil {
			return err
		}
		cmd = &history.DestroyNodePort{Port: p.GUID(), Fragment: fragment}
	}

	n.RemovePort(p)
	delete(r.ports, p.GUID())

	r.logger.Debug("registry: destroy port", "port", p.GUID(), "node", n.GUID())
	r.onPostDestroy(p)
	if cmd != nil {
		fc.History.AddCommand(cmd)
	}
	return nil
}

func (r *Registry) disconnectPort(p *domain.Port, record bool) error {
	for _, cid := range p.Connectors() {
		c, ok := r.connectors[cid]
		if !ok {
			continue
		}
		if err := r.destroyConnector(c, record); err != nil {
			return err
		}
	}
	return nil
}

// DestroyConnector detaches a connector from its ports and unregisters it.
// An unknown GUID is a no-op.
func (r *Registry) DestroyConnector(id uuid.UUID) error {
	c, ok := r.connectors[id]
	if !ok {
		return nil
	}
	return r.destroyConnector(c, true)
}

func (r *Registry) destroyConnector(c *domain.Connector, record bool) error {
	fc := c.Owner()
	record = record && recording(fc)

	var cmd history.Command
	if record {
		fragment, err := r.SerializeConnector(c)
		if err != nil {
			return err
		}
		cmd = &history.Disconnect{Connector: c.GUID(), Fragment: fragment}
	}

	r.onPreDestroy(c)
	start := r.ports[c.StartPort()]
	end := r.ports[c.EndPort()]
	domain.Unwire(c, start, end)
	r.onDisconnect(start, end, c)
	fc.RemoveConnector(c)
	delete(r.connectors, c.GUID())

	r.logger.Debug("registry: destroy connector", "connector", c.GUID(), "flowchart", fc.GUID())
	r.onPostDestroy(c)
	if cmd != nil {
		fc.History.AddCommand(cmd)
	}
	return nil
}

func (r *Registry) onCreate(e domain.Entity) {
	if r.hooks.OnCreate != nil {
		r.hooks.OnCreate(e)
	}
}

func (r *Registry) onPreDestroy(e domain.Entity) {
	if r.hooks.OnPreDestroy != nil {
		r.hooks.OnPreDestroy(e)
	}
}

func (r *Registry) onPostDestroy(e domain.Entity) {
	if r.hooks.OnPostDestroy != nil {
		r.hooks.OnPostDestroy(e)
	}
}

func (r *Registry) onDeserialize(e domain.Entity) {
	if r.hooks.OnDeserialize != nil {
		r.hooks.OnDeserialize(e)
	}
}

func (r *Registry) onConnect(start, end *domain.Port, c *domain.Connector) {
	if r.hooks.OnConnect == nil {
		return
	}
	r.hooks.OnConnect(start, c)
	r.hooks.OnConnect(end, c)
}

func (r *Registry) onDisconnect(start, end *domain.Port, c *domain.Connector) {
	if r.hooks.OnDisconnect == nil {
		return
	}
	if start != nil {
		r.hooks.OnDisconnect(start, c)
	}
	if end != nil {
		r.hooks.OnDisconnect(end, c)
	}
}
