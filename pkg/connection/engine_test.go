package connection_test

import (
	"math/rand"
	"testing"

	"github.com/aretw0/nodegraph/pkg/connection"
	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/aretw0/nodegraph/pkg/registry"
	"github.com/aretw0/nodegraph/pkg/schema"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog() *registry.Catalog {
	return registry.NewCatalog(
		registry.NodeType{Name: "test.Flow", Ports: []domain.PortSpec{
			domain.FlowPortSpec("In", true),
			domain.FlowPortSpec("Out", false),
		}},
		registry.NodeType{Name: "test.Num", Ports: []domain.PortSpec{
			domain.FlowPortSpec("In", true),
			domain.PropertyPortSpec("A", true, schema.Float()),
			domain.PropertyPortSpec("Result", false, schema.Float()),
			domain.PropertyPortSpec("Count", false, schema.Int()),
			domain.PropertyPortSpec("Label", false, schema.String()),
		}},
	)
}

type fixture struct {
	reg    *registry.Registry
	engine *connection.Engine
	fc     *domain.FlowChart
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := registry.New(registry.WithCatalog(testCatalog()))
	t.Cleanup(func() { _ = reg.Close() })
	fc, err := reg.CreateFlowChart(uuid.Nil)
	require.NoError(t, err)
	return &fixture{reg: reg, engine: connection.New(reg), fc: fc}
}

func (f *fixture) node(t *testing.T, typeName string) *domain.Node {
	t.Helper()
	n, err := f.reg.CreateNode(uuid.Nil, f.fc, typeName, 0, 0)
	require.NoError(t, err)
	return n
}

func pin(t *testing.T, n *domain.Node, group domain.PortGroup, name string) *domain.Port {
	t.Helper()
	p, ok := n.PortByName(group, name)
	require.True(t, ok, "port %s", name)
	return p
}

func TestConnectDisconnect(t *testing.T) {
	f := newFixture(t)
	a, err := f.reg.CreateNode(uuid.MustParse("00000000-0000-0000-0000-0000000000a1"), f.fc, "test.Flow", 0, 0)
	require.NoError(t, err)
	b, err := f.reg.CreateNode(uuid.MustParse("00000000-0000-0000-0000-0000000000a2"), f.fc, "test.Flow", 100, 0)
	require.NoError(t, err)
	out := pin(t, a, domain.OutputFlowPorts, "Out")
	in := pin(t, b, domain.InputFlowPorts, "In")

	c, err := f.engine.Connect(out, in)
	require.NoError(t, err)
	assert.Len(t, out.Connectors(), 1)
	assert.Len(t, in.Connectors(), 1)
	assert.Equal(t, out.GUID(), c.StartPort())
	assert.Equal(t, in.GUID(), c.EndPort())

	require.NoError(t, f.engine.Disconnect(c))
	assert.Empty(t, out.Connectors())
	assert.Empty(t, in.Connectors())
	_, ok := f.reg.FindConnector(c.GUID())
	assert.False(t, ok)
}

func TestConnect_EitherDirection(t *testing.T) {
	f := newFixture(t)
	a := f.node(t, "test.Flow")
	b := f.node(t, "test.Flow")

	c, err := f.engine.Connect(pin(t, b, domain.InputFlowPorts, "In"), pin(t, a, domain.OutputFlowPorts, "Out"))
	require.NoError(t, err)
	assert.Equal(t, pin(t, a, domain.OutputFlowPorts, "Out").GUID(), c.StartPort())
}

func TestConnect_SelfConnectionRejected(t *testing.T) {
	f := newFixture(t)
	a := f.node(t, "test.Flow")
	out := pin(t, a, domain.OutputFlowPorts, "Out")
	in := pin(t, a, domain.InputFlowPorts, "In")

	ok, reason := f.engine.IsConnectable(out, in)
	assert.False(t, ok)
	assert.NotEmpty(t, reason)

	_, err := f.engine.Connect(out, in)
	var rule *connection.RuleError
	require.ErrorAs(t, err, &rule)
	assert.Equal(t, connection.ReasonSameNode, rule.Reason)
	assert.Empty(t, f.fc.Connectors())
	assert.False(t, out.IsConnected())

	// The node rule alone governs self loops
	a.SetAllowCircularConnection(true)
	ok, reason = f.engine.IsConnectable(out, in)
	assert.True(t, ok, reason)
}

func TestIsConnectable_Rules(t *testing.T) {
	f := newFixture(t)
	flow := f.node(t, "test.Flow")
	num := f.node(t, "test.Num")
	other := f.node(t, "test.Num")

	elsewhere, err := f.reg.CreateFlowChart(uuid.Nil)
	require.NoError(t, err)
	remote, err := f.reg.CreateNode(uuid.Nil, elsewhere, "test.Flow", 0, 0)
	require.NoError(t, err)

	destroyed := f.node(t, "test.Flow")
	destroyedIn := pin(t, destroyed, domain.InputFlowPorts, "In")
	require.NoError(t, f.reg.DestroyNode(destroyed.GUID()))

	disabled := f.node(t, "test.Flow")
	disabledIn := pin(t, disabled, domain.InputFlowPorts, "In")
	disabledIn.SetPortEnabled(false)

	out := pin(t, flow, domain.OutputFlowPorts, "Out")

	tests := []struct {
		name   string
		a, b   *domain.Port
		reason string
	}{
		{"same port", out, out, connection.ReasonSamePort},
		{"nil port", out, nil, connection.ReasonMissingPort},
		{"destroyed port", out, destroyedIn, connection.ReasonMissingPort},
		{"other flow chart", out, pin(t, remote, domain.InputFlowPorts, "In"), connection.ReasonDifferentFlowCharts},
		{"two outputs", out, pin(t, num, domain.OutputPropertyPorts, "Result"), connection.ReasonSameDirection},
		{"flow to property", out, pin(t, num, domain.InputPropertyPorts, "A"), connection.ReasonKindMismatch},
		{"disabled", out, disabledIn, connection.ReasonDisabled},
		{"string into float", pin(t, other, domain.OutputPropertyPorts, "Label"), pin(t, num, domain.InputPropertyPorts, "A"), connection.ReasonTypeMismatch},
		{"int into float", pin(t, other, domain.OutputPropertyPorts, "Count"), pin(t, num, domain.InputPropertyPorts, "A"), ""},
		{"flow to flow", out, pin(t, num, domain.InputFlowPorts, "In"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := f.engine.IsConnectable(tt.a, tt.b)
			assert.Equal(t, tt.reason == "", ok)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestConnect_AlreadyConnected(t *testing.T) {
	f := newFixture(t)
	a := f.node(t, "test.Num")
	b := f.node(t, "test.Num")
	result := pin(t, a, domain.OutputPropertyPorts, "Result")
	in := pin(t, b, domain.InputPropertyPorts, "A")

	_, err := f.engine.Connect(result, in)
	require.NoError(t, err)
	ok, reason := f.engine.IsConnectable(result, in)
	assert.False(t, ok)
	assert.Equal(t, connection.ReasonAlreadyConnected, reason)
}

func TestConnect_Multiplicity(t *testing.T) {
	f := newFixture(t)
	a := f.node(t, "test.Flow")
	b := f.node(t, "test.Flow")
	c := f.node(t, "test.Flow")
	out := pin(t, a, domain.OutputFlowPorts, "Out")

	_, err := f.engine.Connect(out, pin(t, b, domain.InputFlowPorts, "In"))
	require.NoError(t, err)

	ok, reason := f.engine.IsConnectable(out, pin(t, c, domain.InputFlowPorts, "In"))
	assert.False(t, ok)
	assert.Equal(t, connection.ReasonOutputFull, reason)

	// Flow inputs take many connectors
	_, err = f.engine.Connect(pin(t, c, domain.OutputFlowPorts, "Out"), pin(t, b, domain.InputFlowPorts, "In"))
	require.NoError(t, err)
	assert.Len(t, pin(t, b, domain.InputFlowPorts, "In").Connectors(), 2)
}

func TestConnectReplacing(t *testing.T) {
	f := newFixture(t)
	x := f.node(t, "test.Num")
	y := f.node(t, "test.Num")
	target := f.node(t, "test.Num")
	in := pin(t, target, domain.InputPropertyPorts, "A")

	first, err := f.engine.Connect(pin(t, x, domain.OutputPropertyPorts, "Result"), in)
	require.NoError(t, err)

	_, err = f.engine.Connect(pin(t, y, domain.OutputPropertyPorts, "Result"), in)
	var rule *connection.RuleError
	require.ErrorAs(t, err, &rule)
	assert.Equal(t, connection.ReasonInputFull, rule.Reason)

	second, err := f.engine.ConnectReplacing(pin(t, y, domain.OutputPropertyPorts, "Result"), in)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{second.GUID()}, in.Connectors())
	_, ok := f.reg.FindConnector(first.GUID())
	assert.False(t, ok, "the replaced connector is destroyed")
	assert.False(t, pin(t, x, domain.OutputPropertyPorts, "Result").IsConnected())

	require.NoError(t, pin(t, y, domain.OutputPropertyPorts, "Result").SetValue(5.0))
	assert.Equal(t, 5.0, in.Value())
}

func TestConnectReplacing_StillAppliesOtherRules(t *testing.T) {
	f := newFixture(t)
	a := f.node(t, "test.Flow")
	_, err := f.engine.ConnectReplacing(pin(t, a, domain.OutputFlowPorts, "Out"), pin(t, a, domain.InputFlowPorts, "In"))
	var rule *connection.RuleError
	require.ErrorAs(t, err, &rule)
	assert.Equal(t, connection.ReasonSameNode, rule.Reason)
}

func TestConnect_Cycle(t *testing.T) {
	f := newFixture(t)
	a := f.node(t, "test.Flow")
	b := f.node(t, "test.Flow")
	c := f.node(t, "test.Flow")

	_, err := f.engine.Connect(pin(t, a, domain.OutputFlowPorts, "Out"), pin(t, b, domain.InputFlowPorts, "In"))
	require.NoError(t, err)
	_, err = f.engine.Connect(pin(t, b, domain.OutputFlowPorts, "Out"), pin(t, c, domain.InputFlowPorts, "In"))
	require.NoError(t, err)

	ok, reason := f.engine.IsConnectable(pin(t, c, domain.OutputFlowPorts, "Out"), pin(t, a, domain.InputFlowPorts, "In"))
	assert.False(t, ok)
	assert.Equal(t, connection.ReasonCycle, reason)

	f.fc.SetAllowCircularConnection(true)
	ok, reason = f.engine.IsConnectable(pin(t, c, domain.OutputFlowPorts, "Out"), pin(t, a, domain.InputFlowPorts, "In"))
	assert.True(t, ok, reason)
}

func TestConnectReplacing_ExclusiveOutput(t *testing.T) {
	f := newFixture(t)
	a := f.node(t, "test.Flow")
	b := f.node(t, "test.Flow")
	c := f.node(t, "test.Flow")
	out := pin(t, a, domain.OutputFlowPorts, "Out")

	old, err := f.engine.Connect(out, pin(t, b, domain.InputFlowPorts, "In"))
	require.NoError(t, err)

	replacement, err := f.engine.ConnectReplacing(pin(t, c, domain.InputFlowPorts, "In"), out)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{replacement.GUID()}, out.Connectors())
	assert.False(t, pin(t, b, domain.InputFlowPorts, "In").IsConnected())
	_, ok := f.reg.FindConnector(old.GUID())
	assert.False(t, ok)
}

func TestDisconnectAll(t *testing.T) {
	f := newFixture(t)
	a := f.node(t, "test.Flow")
	b := f.node(t, "test.Flow")
	c := f.node(t, "test.Flow")
	target := pin(t, c, domain.InputFlowPorts, "In")

	_, err := f.engine.Connect(pin(t, a, domain.OutputFlowPorts, "Out"), target)
	require.NoError(t, err)
	_, err = f.engine.Connect(pin(t, b, domain.OutputFlowPorts, "Out"), target)
	require.NoError(t, err)

	require.NoError(t, f.engine.DisconnectAll(target))
	assert.Empty(t, target.Connectors())
	assert.Empty(t, f.fc.Connectors())
}

func TestMultiplicityNeverExceeded(t *testing.T) {
	f := newFixture(t)
	f.fc.SetAllowCircularConnection(true)

	var ports []*domain.Port
	for range 6 {
		n := f.node(t, "test.Num")
		n.SetAllowCircularConnection(true)
		ports = append(ports, n.AllPorts()...)
	}

	rng := rand.New(rand.NewSource(42))
	for range 500 {
		a := ports[rng.Intn(len(ports))]
		b := ports[rng.Intn(len(ports))]
		switch rng.Intn(3) {
		case 0:
			_, _ = f.engine.Connect(a, b)
		case 1:
			_, _ = f.engine.ConnectReplacing(a, b)
		default:
			require.NoError(t, f.engine.DisconnectAll(a))
		}

		for _, p := range ports {
			if p.Capacity() != domain.Unlimited {
				require.LessOrEqual(t, len(p.Connectors()), p.Capacity(), "port %s", p.Name())
			}
		}
	}
}
