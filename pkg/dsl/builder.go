package dsl

import (
	"fmt"

	"github.com/aretw0/nodegraph/pkg/connection"
	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/aretw0/nodegraph/pkg/registry"
	"github.com/google/uuid"
)

// TransactionBuild names the cancelled transaction that gathers the property edits of Build.
const TransactionBuild = "Building Flow Chart"

// Builder manages the graph construction.
type Builder struct {
	nodes    map[string]*NodeBuilder
	order    []string
	circular bool
}

// Graph is the result of Build.
type Graph struct {
	FlowChart *domain.FlowChart
	Nodes     map[string]*domain.Node
}

// New creates a new graph builder.
func New() *Builder {
	return &Builder{
		nodes: make(map[string]*NodeBuilder),
	}
}

// AllowCircularConnection lets connections close cycles in the built flow chart.
func (b *Builder) AllowCircularConnection() *Builder {
	b.circular = true
	return b
}

// Add declares a node of the given type under a local name.
// If the name is already declared, it returns the existing builder.
func (b *Builder) Add(name, typeName string) *NodeBuilder {
	if nb, ok := b.nodes[name]; ok {
		return nb
	}
	nb := &NodeBuilder{
		name:     name,
		typeName: typeName,
		values:   make(map[string]any),
		builder:  b,
	}
	b.nodes[name] = nb
	b.order = append(b.order, name)
	return nb
}

// Build creates the flow chart in reg: nodes in declaration order, then port values,
// then connections. The history of the result is empty. On failure the partially built
// flow chart is destroyed.
func (b *Builder) Build(reg *registry.Registry) (*Graph, error) {
	fc, err := reg.CreateFlowChart(uuid.Nil)
	if err != nil {
		return nil, err
	}
	g, err := b.build(reg, fc)
	if err != nil {
		reg.DestroyFlowChart(fc.GUID())
		return nil, err
	}
	return g, nil
}

func (b *Builder) build(reg *registry.Registry, fc *domain.FlowChart) (*Graph, error) {
	g := &Graph{FlowChart: fc, Nodes: make(map[string]*domain.Node, len(b.order))}

	for _, name := range b.order {
		nb := b.nodes[name]
		n, err := reg.CreateNode(nb.id, fc, nb.typeName, nb.x, nb.y)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", name, err)
		}
		g.Nodes[name] = n
	}

	// Property edits are gathered in one transaction and cancelled so nothing is committed.
	fc.History.BeginTransaction(TransactionBuild)
	if err := b.assign(fc, g); err != nil {
		return nil, err
	}
	fc.History.EndTransaction(true)

	engine := connection.New(reg)
	for _, name := range b.order {
		for _, l := range b.nodes[name].links {
			if err := l.connect(engine, g); err != nil {
				return nil, fmt.Errorf("node %q: %w", name, err)
			}
		}
	}
	fc.History.Clear()
	return g, nil
}

func (b *Builder) assign(fc *domain.FlowChart, g *Graph) error {
	fc.SetAllowCircularConnection(b.circular)
	for _, name := range b.order {
		nb := b.nodes[name]
		n := g.Nodes[name]
		if nb.header != "" {
			n.SetHeader(nb.header)
		}
		for _, port := range nb.valueOrder {
			p, ok := propertyPort(n, port)
			if !ok {
				return fmt.Errorf("node %q: no property port %q", name, port)
			}
			if err := p.SetValue(nb.values[port]); err != nil {
				return fmt.Errorf("node %q: port %q: %w", name, port, err)
			}
		}
	}
	return nil
}

// link is a declared connection from an output of the declaring node.
type link struct {
	from, out string
	to, in    string
	group     domain.PortGroup
}

func (l link) connect(engine *connection.Engine, g *Graph) error {
	target, ok := g.Nodes[l.to]
	if !ok {
		return fmt.Errorf("unknown target node %q", l.to)
	}
	outGroup, inGroup := domain.OutputFlowPorts, domain.InputFlowPorts
	if l.group == domain.InputPropertyPorts {
		outGroup, inGroup = domain.OutputPropertyPorts, domain.InputPropertyPorts
	}
	start, ok := g.Nodes[l.from].PortByName(outGroup, l.out)
	if !ok {
		return fmt.Errorf("no %s port %q", outGroup, l.out)
	}
	end, ok := target.PortByName(inGroup, l.in)
	if !ok {
		return fmt.Errorf("node %q: no %s port %q", l.to, inGroup, l.in)
	}
	if _, err := engine.Connect(start, end); err != nil {
		return fmt.Errorf("connect %s.%s to %s.%s: %w", l.from, l.out, l.to, l.in, err)
	}
	return nil
}

func propertyPort(n *domain.Node, name string) (*domain.Port, bool) {
	if p, ok := n.PortByName(domain.InputPropertyPorts, name); ok {
		return p, true
	}
	return n.PortByName(domain.OutputPropertyPorts, name)
}
