package registry_test

import (
	"strconv"
	"testing"

	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/aretw0/nodegraph/pkg/registry"
	"github.com/aretw0/nodegraph/pkg/schema"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type adder struct {
	A, B float64
}

// tracker records the lifecycle calls a behavior receives.
type tracker struct {
	calls []string
	ports int
}

func (tr *tracker) OnCreate(n *domain.Node) {
	tr.calls = append(tr.calls, "create")
	tr.ports = len(n.AllPorts())
}

func (tr *tracker) OnPreDestroy(n *domain.Node) {
	tr.calls = append(tr.calls, "pre-destroy:"+strconv.FormatBool(n.Ports(domain.InputFlowPorts)[0].IsConnected()))
}

func (tr *tracker) OnPostDestroy(*domain.Node) { tr.calls = append(tr.calls, "post-destroy") }

func testCatalog() *registry.Catalog {
	a := domain.PropertyPortSpec("A", true, schema.Float())
	a.Accessor = domain.Bind(func(b *adder) float64 { return b.A }, func(b *adder, v float64) { b.A = v })
	b := domain.PropertyPortSpec("B", true, schema.Float())
	b.Accessor = domain.Bind(func(b *adder) float64 { return b.B }, func(b *adder, v float64) { b.B = v })

	return registry.NewCatalog(
		registry.NodeType{
			Name:   "test.Add",
			Header: "Add",
			New:    func() any { return &adder{} },
			Ports: []domain.PortSpec{
				domain.FlowPortSpec("In", true),
				domain.FlowPortSpec("Out", false),
				a,
				b,
				domain.PropertyPortSpec("Sum", false, schema.Float()),
			},
		},
		registry.NodeType{
			Name:   "test.Value",
			Header: "Value",
			Ports: []domain.PortSpec{
				domain.PropertyPortSpec("Value", false, schema.Any()),
				domain.PropertyPortSpec("Tint", false, domain.ColorType()),
			},
		},
	)
}

func newRegistry(t *testing.T, opts ...registry.Option) *registry.Registry {
	t.Helper()
	r := registry.New(append([]registry.Option{registry.WithCatalog(testCatalog())}, opts...)...)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func port(t *testing.T, n *domain.Node, group domain.PortGroup, name string) *domain.Port {
	t.Helper()
	p, ok := n.PortByName(group, name)
	require.True(t, ok, "port %s", name)
	return p
}

func TestCreate_GUIDs(t *testing.T) {
	r := newRegistry(t)

	fc, err := r.CreateFlowChart(uuid.Nil)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, fc.GUID())
	assert.True(t, fc.IsInitialized())

	id := uuid.New()
	n, err := r.CreateNode(id, fc, "test.Add", 10, 20)
	require.NoError(t, err)
	assert.Equal(t, id, n.GUID())

	_, err = r.CreateNode(id, fc, "test.Add", 0, 0)
	assert.ErrorIs(t, err, domain.ErrDuplicateID)

	_, err = r.CreateFlowChart(id)
	assert.ErrorIs(t, err, domain.ErrKindMismatch)

	_, err = r.CreateNode(uuid.Nil, fc, "test.Missing", 0, 0)
	assert.ErrorIs(t, err, domain.ErrUnknownType)
}

func TestCreateNode_DeclaredPorts(t *testing.T) {
	var created []domain.Kind
	r := newRegistry(t, registry.WithHooks(domain.LifecycleHooks{
		OnCreate: func(e domain.Entity) { created = append(created, e.Kind()) },
	}))
	fc, err := r.CreateFlowChart(uuid.Nil)
	require.NoError(t, err)

	n, err := r.CreateNode(uuid.Nil, fc, "test.Add", 10, 20)
	require.NoError(t, err)

	assert.Equal(t, "Add", n.Header())
	assert.Equal(t, 10.0, n.X())
	assert.Len(t, n.Ports(domain.InputFlowPorts), 1)
	assert.Len(t, n.Ports(domain.OutputFlowPorts), 1)
	assert.Len(t, n.Ports(domain.InputPropertyPorts), 2)
	assert.Len(t, n.Ports(domain.OutputPropertyPorts), 1)
	assert.Equal(t, []*domain.Node{n}, fc.Nodes())

	for _, p := range n.AllPorts() {
		found, ok := r.FindNodePort(p.GUID())
		require.True(t, ok)
		assert.Same(t, p, found)
		assert.True(t, p.IsInitialized())
	}

	a, ok := r.FindNodePropertyPort(n, "A")
	require.True(t, ok)
	assert.True(t, a.IsStatic())
	require.NoError(t, a.SetValue(3.0))
	assert.Equal(t, 3.0, n.Behavior().(*adder).A)

	sum, ok := r.FindNodePropertyPort(n, "Sum")
	require.True(t, ok)
	assert.False(t, sum.IsInput())

	assert.Equal(t, []domain.Kind{
		domain.KindFlowChart, domain.KindNode,
		domain.KindPort, domain.KindPort, domain.KindPort, domain.KindPort, domain.KindPort,
	}, created)
}

func TestCreateNodePort(t *testing.T) {
	r := newRegistry(t)
	fc, _ := r.CreateFlowChart(uuid.Nil)
	n, err := r.CreateNode(uuid.Nil, fc, domain.TypeNode, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, n.AllPorts())

	p, err := r.CreateNodePort(uuid.Nil, n, domain.PropertyPortSpec("Label", true, schema.String()))
	require.NoError(t, err)
	assert.Equal(t, []*domain.Port{p}, n.Ports(domain.InputPropertyPorts))
	assert.Equal(t, "", p.Value())

	_, err = r.CreateNodePort(uuid.Nil, n, domain.PortSpec{Kind: domain.PortProperty, Name: "untyped"})
	assert.ErrorIs(t, err, domain.ErrUnknownType)
}

func TestCreateConnector_FindConnectedPorts(t *testing.T) {
	r := newRegistry(t)
	fc, _ := r.CreateFlowChart(uuid.Nil)
	a, _ := r.CreateNode(uuid.Nil, fc, "test.Add", 0, 0)
	b, _ := r.CreateNode(uuid.Nil, fc, "test.Add", 100, 0)

	out := port(t, a, domain.OutputFlowPorts, "Out")
	in := port(t, b, domain.InputFlowPorts, "In")
	c, err := r.CreateConnector(uuid.Nil, fc, out, in)
	require.NoError(t, err)

	assert.Equal(t, []*domain.Port{in}, r.FindConnectedPorts(out))
	assert.Equal(t, []*domain.Port{out}, r.FindConnectedPorts(in))
	assert.Equal(t, []*domain.Connector{c}, fc.Connectors())

	stray, _ := domain.NewPort(uuid.New(), b, domain.FlowPortSpec("Stray", true))
	_, err = r.CreateConnector(uuid.Nil, fc, out, stray)
	assert.ErrorIs(t, err, domain.ErrInvalidReference)
}

func TestDestroyNode(t *testing.T) {
	var destroyed []domain.Kind
	var disconnected int
	r := newRegistry(t, registry.WithHooks(domain.LifecycleHooks{
		OnPostDestroy: func(e domain.Entity) { destroyed = append(destroyed, e.Kind()) },
		OnDisconnect:  func(*domain.Port, *domain.Connector) { disconnected++ },
	}))
	fc, _ := r.CreateFlowChart(uuid.Nil)
	a, _ := r.CreateNode(uuid.Nil, fc, "test.Add", 0, 0)
	b, _ := r.CreateNode(uuid.Nil, fc, "test.Add", 100, 0)
	out := port(t, a, domain.OutputFlowPorts, "Out")
	in := port(t, b, domain.InputFlowPorts, "In")
	c, err := r.CreateConnector(uuid.Nil, fc, out, in)
	require.NoError(t, err)

	require.NoError(t, r.DestroyNode(b.GUID()))

	_, ok := r.FindNode(b.GUID())
	assert.False(t, ok)
	_, ok = r.FindConnector(c.GUID())
	assert.False(t, ok)
	_, ok = r.FindNodePort(in.GUID())
	assert.False(t, ok)
	assert.False(t, out.IsConnected())
	assert.Empty(t, fc.Connectors())
	assert.Equal(t, []*domain.Node{a}, fc.Nodes())
	assert.Equal(t, 2, disconnected)
	assert.Equal(t, domain.KindConnector, destroyed[0], "connectors are detached before the node goes")
	assert.Equal(t, domain.KindNode, destroyed[len(destroyed)-1])

	assert.NoError(t, r.DestroyNode(uuid.New()), "unknown GUID is a no-op")
	assert.NoError(t, r.DestroyConnector(uuid.New()))
	assert.NoError(t, r.DestroyNodePort(uuid.New()))
}

func TestNodeBehavior_LifecycleHandlers(t *testing.T) {
	c := testCatalog()
	require.NoError(t, c.Register(registry.NodeType{
		Name:  "test.Tracked",
		New:   func() any { return &tracker{} },
		Ports: []domain.PortSpec{domain.FlowPortSpec("In", true), domain.FlowPortSpec("Out", false)},
	}))
	r := newRegistry(t, registry.WithCatalog(c))
	fc, _ := r.CreateFlowChart(uuid.Nil)
	a, _ := r.CreateNode(uuid.Nil, fc, "test.Add", 0, 0)
	n, err := r.CreateNode(uuid.Nil, fc, "test.Tracked", 100, 0)
	require.NoError(t, err)
	tr := n.Behavior().(*tracker)
	assert.Equal(t, []string{"create"}, tr.calls)
	assert.Equal(t, 2, tr.ports, "ports exist when OnCreate runs")

	_, err = r.CreateConnector(uuid.Nil, fc, port(t, a, domain.OutputFlowPorts, "Out"), port(t, n, domain.InputFlowPorts, "In"))
	require.NoError(t, err)
	require.NoError(t, r.DestroyNode(n.GUID()))
	assert.Equal(t, []string{"create", "pre-destroy:true", "post-destroy"}, tr.calls)
}

func TestDestroyNodePort(t *testing.T) {
	r := newRegistry(t)
	fc, _ := r.CreateFlowChart(uuid.Nil)
	a, _ := r.CreateNode(uuid.Nil, fc, "test.Add", 0, 0)
	b, _ := r.CreateNode(uuid.Nil, fc, "test.Add", 0, 0)
	out := port(t, a, domain.OutputFlowPorts, "Out")
	in := port(t, b, domain.InputFlowPorts, "In")
	_, err := r.CreateConnector(uuid.Nil, fc, out, in)
	require.NoError(t, err)

	require.NoError(t, r.DestroyNodePort(in.GUID()))
	assert.Empty(t, b.Ports(domain.InputFlowPorts))
	assert.Empty(t, fc.Connectors())
	assert.False(t, out.IsConnected())
}

func TestClose(t *testing.T) {
	r := registry.New(registry.WithCatalog(testCatalog()))
	for range 3 {
		fc, err := r.CreateFlowChart(uuid.Nil)
		require.NoError(t, err)
		_, err = r.CreateNode(uuid.Nil, fc, "test.Add", 0, 0)
		require.NoError(t, err)
	}
	assert.Len(t, r.FlowCharts(), 3)

	require.NoError(t, r.Close())
	assert.Zero(t, r.Len())
	assert.Empty(t, r.FlowCharts())
}

func TestCatalog(t *testing.T) {
	c := testCatalog()
	assert.Equal(t, []string{domain.TypeNode, "test.Add", "test.Value"}, c.Names())

	err := c.Register(registry.NodeType{Name: "test.Add"})
	assert.ErrorIs(t, err, domain.ErrDuplicateID)

	static := domain.PropertyPortSpec("A", true, schema.Float())
	static.Accessor = domain.Bind(func(b *adder) float64 { return b.A }, func(b *adder, v float64) { b.A = v })
	assert.Error(t, c.Register(registry.NodeType{Name: "test.NoBehavior", Ports: []domain.PortSpec{static}}))

	s, ok := c.Schema("test.Add")
	require.True(t, ok)
	assert.NoError(t, schema.Validate(s, map[string]any{"A": 1.0, "B": 2.0, "Sum": 3.0}))
	assert.Error(t, schema.Validate(s, map[string]any{"A": "one"}))
}
