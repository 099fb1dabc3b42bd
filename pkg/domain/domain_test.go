package domain_test

import (
	"testing"

	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/aretw0/nodegraph/pkg/history"
	"github.com/aretw0/nodegraph/pkg/schema"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapResolver is a minimal stand-in for the registry.
type mapResolver struct {
	ports      map[uuid.UUID]*domain.Port
	connectors map[uuid.UUID]*domain.Connector
}

func newResolver() *mapResolver {
	return &mapResolver{
		ports:      make(map[uuid.UUID]*domain.Port),
		connectors: make(map[uuid.UUID]*domain.Connector),
	}
}

func (r *mapResolver) FindNodePort(id uuid.UUID) (*domain.Port, bool) {
	p, ok := r.ports[id]
	return p, ok
}

func (r *mapResolver) FindConnector(id uuid.UUID) (*domain.Connector, bool) {
	c, ok := r.connectors[id]
	return c, ok
}

func (r *mapResolver) port(t *testing.T, n *domain.Node, spec domain.PortSpec) *domain.Port {
	t.Helper()
	p, err := domain.NewPort(uuid.New(), n, spec)
	require.NoError(t, err)
	n.AppendPort(p)
	r.ports[p.GUID()] = p
	return p
}

func (r *mapResolver) wire(t *testing.T, fc *domain.FlowChart, start, end *domain.Port) *domain.Connector {
	t.Helper()
	c := domain.NewConnector(uuid.New(), fc)
	require.NoError(t, domain.Wire(c, start, end))
	r.connectors[c.GUID()] = c
	fc.AppendConnector(c)
	return c
}

type adder struct {
	A, B float64
}

func TestNode_Defaults(t *testing.T) {
	fc := domain.NewFlowChart(uuid.New(), newResolver())
	n := domain.NewNode(uuid.New(), fc, domain.TypeNode, nil)

	assert.Equal(t, domain.Black, n.HeaderBackgroundColor())
	assert.Equal(t, domain.White, n.HeaderFontColor())
	assert.True(t, n.AllowEditingHeader())
	assert.False(t, n.AllowCircularConnection())
	assert.Equal(t, 1, n.ZIndex())
	assert.Equal(t, domain.StateNone, n.ExecutionState())
	assert.Equal(t, domain.DefaultViewport, fc.Viewport())
}

func TestNode_PropertyChangesAreRaisedAndRecorded(t *testing.T) {
	fc := domain.NewFlowChart(uuid.New(), newResolver())
	fc.History = history.New(nil)
	n := domain.NewNode(uuid.New(), fc, domain.TypeNode, nil)

	var changes []string
	n.Subscribe(func(c domain.PropertyChange) { changes = append(changes, c.Property) })

	// Not recorded before initialization
	n.SetHeader("draft")
	assert.False(t, fc.History.CanUndo())

	n.MarkInitialized()
	n.SetHeader("Add")
	n.SetHeader("Add") // unchanged, no event
	n.SetX(10)         // position is not recorded by its setter

	assert.Equal(t, []string{domain.PropHeader, domain.PropHeader, domain.PropX}, changes)

	_, current, _ := fc.History.GetTransactionList()
	require.NotNil(t, current)
	assert.Equal(t, domain.TransactionSetProperty, current.Name)
	require.Len(t, current.Commands, 1)
	cmd := current.Commands[0].(*history.SetProperty)
	assert.Equal(t, n.GUID(), cmd.Target)
	assert.Equal(t, "draft", cmd.Old)
	assert.Equal(t, "Add", cmd.New)
}

func TestPort_Defaults(t *testing.T) {
	flowIn := domain.FlowPortSpec("In", true)
	assert.True(t, flowIn.AllowMultipleInput)
	assert.False(t, flowIn.AllowMultipleOutput)

	propIn := domain.PropertyPortSpec("A", true, schema.Float())
	assert.False(t, propIn.AllowMultipleInput)
	assert.True(t, propIn.AllowMultipleOutput)

	fc := domain.NewFlowChart(uuid.New(), newResolver())
	n := domain.NewNode(uuid.New(), fc, domain.TypeNode, nil)

	in, err := domain.NewPort(uuid.New(), n, flowIn)
	require.NoError(t, err)
	assert.Equal(t, domain.Unlimited, in.Capacity())

	out, err := domain.NewPort(uuid.New(), n, domain.FlowPortSpec("Out", false))
	require.NoError(t, err)
	assert.Equal(t, 1, out.Capacity())

	prop, err := domain.NewPort(uuid.New(), n, propIn)
	require.NoError(t, err)
	assert.Equal(t, 0.0, prop.Value())
}

func TestPort_TypeChecking(t *testing.T) {
	fc := domain.NewFlowChart(uuid.New(), newResolver())
	n := domain.NewNode(uuid.New(), fc, domain.TypeNode, nil)

	spec := domain.PropertyPortSpec("Count", true, schema.Int())
	spec.Value = "three"
	_, err := domain.NewPort(uuid.New(), n, spec)
	assert.ErrorIs(t, err, domain.ErrTypeMismatch)

	spec.Value = float64(3) // decoded JSON number
	p, err := domain.NewPort(uuid.New(), n, spec)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Value())

	assert.ErrorIs(t, p.SetValue(nil), domain.ErrTypeMismatch, "int is not nullable")
	assert.ErrorIs(t, p.SetValue(2.5), domain.ErrTypeMismatch)

	flow, err := domain.NewPort(uuid.New(), n, domain.FlowPortSpec("In", true))
	require.NoError(t, err)
	assert.ErrorIs(t, flow.SetValue(1), domain.ErrReadOnly)

	_, err = domain.NewPort(uuid.New(), n, domain.PortSpec{Kind: domain.PortProperty, Name: "x"})
	assert.ErrorIs(t, err, domain.ErrUnknownType)
}

func TestPort_StaticAccessor(t *testing.T) {
	behavior := &adder{A: 1}
	fc := domain.NewFlowChart(uuid.New(), newResolver())
	n := domain.NewNode(uuid.New(), fc, "math.Add", behavior)

	spec := domain.PropertyPortSpec("A", true, schema.Float())
	spec.Accessor = domain.Bind(func(a *adder) float64 { return a.A }, func(a *adder, v float64) { a.A = v })
	p, err := domain.NewPort(uuid.New(), n, spec)
	require.NoError(t, err)
	assert.True(t, p.IsStatic())
	assert.Equal(t, 1.0, p.Value())

	var nodeChanges []string
	n.Subscribe(func(c domain.PropertyChange) { nodeChanges = append(nodeChanges, c.Property) })

	require.NoError(t, p.SetValue(4)) // int coerced to float
	assert.Equal(t, 4.0, behavior.A)
	assert.Equal(t, []string{"A"}, nodeChanges)
}

func TestWire_PullThroughAndCapacity(t *testing.T) {
	r := newResolver()
	fc := domain.NewFlowChart(uuid.New(), r)
	src := domain.NewNode(uuid.New(), fc, domain.TypeNode, nil)
	dst := domain.NewNode(uuid.New(), fc, domain.TypeNode, nil)

	outSpec := domain.PropertyPortSpec("Value", false, schema.Float())
	outSpec.Value = 2.0
	out := r.port(t, src, outSpec)

	inSpec := domain.PropertyPortSpec("A", true, schema.Float())
	inSpec.Value = 7.0
	in := r.port(t, dst, inSpec)

	var inChanges int
	in.Subscribe(func(c domain.PropertyChange) {
		if c.Property == domain.PropValue {
			inChanges++
		}
	})

	c := r.wire(t, fc, out, in)
	assert.Equal(t, 2.0, in.Value(), "connected input reads its source")
	assert.Equal(t, 7.0, in.OwnValue())
	assert.True(t, in.IsFull())

	require.NoError(t, out.SetValue(3.0))
	assert.Equal(t, 3.0, in.Value())
	assert.Equal(t, 2, inChanges, "connect and source change both notify the input")

	other := domain.NewConnector(uuid.New(), fc)
	assert.ErrorIs(t, domain.Wire(other, out, in), domain.ErrCapacity)
	assert.Empty(t, other.StartPort(), "failed wire leaves the connector untouched")
	assert.Len(t, out.Connectors(), 1)

	domain.Unwire(c, out, in)
	assert.Equal(t, 7.0, in.Value(), "own value is visible again")
	assert.False(t, out.IsConnected())

	require.NoError(t, out.SetValue(9.0))
	assert.Equal(t, 3, inChanges, "unsubscribed after unwire")
}

func TestWire_RejectsDirection(t *testing.T) {
	r := newResolver()
	fc := domain.NewFlowChart(uuid.New(), r)
	n := domain.NewNode(uuid.New(), fc, domain.TypeNode, nil)
	in := r.port(t, n, domain.FlowPortSpec("In", true))
	out := r.port(t, n, domain.FlowPortSpec("Out", false))

	assert.Error(t, domain.Wire(domain.NewConnector(uuid.New(), fc), in, out))
	assert.ErrorIs(t, domain.Wire(domain.NewConnector(uuid.New(), fc), out, nil), domain.ErrInvalidReference)
}

func TestColor(t *testing.T) {
	c, err := domain.ParseColor("#ff102030")
	require.NoError(t, err)
	assert.Equal(t, "#FF102030", c.String())

	opaque, err := domain.ParseColor("102030")
	require.NoError(t, err)
	assert.Equal(t, c, opaque)

	_, err = domain.ParseColor("#12")
	assert.Error(t, err)

	typ := domain.ColorType()
	v, err := typ.Coerce("#FFFFFFFF")
	require.NoError(t, err)
	assert.Equal(t, domain.White, v)
	assert.False(t, typ.Nullable())
}

func TestLifecycleHooks_Merge(t *testing.T) {
	var calls []string
	a := domain.LifecycleHooks{OnCreate: func(domain.Entity) { calls = append(calls, "a") }}
	b := domain.LifecycleHooks{
		OnCreate:     func(domain.Entity) { calls = append(calls, "b") },
		OnDisconnect: func(*domain.Port, *domain.Connector) { calls = append(calls, "b-disconnect") },
	}

	merged := a.Merge(b)
	merged.OnCreate(nil)
	merged.OnDisconnect(nil, nil)
	assert.Nil(t, merged.OnPreDestroy)
	assert.Equal(t, []string{"a", "b", "b-disconnect"}, calls)
}
