package nodes

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/aretw0/nodegraph/pkg/registry"
	"github.com/aretw0/nodegraph/pkg/schema"
)

// Node type names.
const (
	TypeStart    = "nodegraph.Start"
	TypeConstant = "nodegraph.Constant"
	TypeAdd      = "nodegraph.Add"
	TypeLog      = "nodegraph.Log"
)

// Port names shared by the standard types.
const (
	PortIn    = "In"
	PortOut   = "Out"
	PortValue = "Value"
	PortA     = "A"
	PortB     = "B"
	PortSum   = "Sum"
	PortMsg   = "Message"
)

type config struct {
	out io.Writer
}

// Option configures the standard types.
type Option func(*config)

// WithOutput sets where Log nodes write. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(c *config) {
		c.out = w
	}
}

// Start is the entry point of a run. It only triggers its output.
type Start struct{}

func (*Start) Execute(context.Context, *domain.Node) error { return nil }

// Constant exposes a fixed value of any type.
type Constant struct {
	Value any
}

// Add sums its two inputs into Sum.
type Add struct {
	A, B float64
	Sum  float64
}

func (a *Add) Execute(_ context.Context, n *domain.Node) error {
	x, err := floatInput(n, PortA)
	if err != nil {
		return err
	}
	y, err := floatInput(n, PortB)
	if err != nil {
		return err
	}
	// Written to the field so that results are not recorded as edits.
	a.Sum = x + y
	return nil
}

// Log writes its message to the configured output.
type Log struct {
	Message any
	out     io.Writer
}

func (l *Log) Execute(_ context.Context, n *domain.Node) error {
	p, ok := n.PortByName(domain.InputPropertyPorts, PortMsg)
	if !ok {
		return fmt.Errorf("log: missing %s port", PortMsg)
	}
	_, err := fmt.Fprintf(l.out, "%s: %v\n", n.Header(), p.Value())
	return err
}

func floatInput(n *domain.Node, name string) (float64, error) {
	p, ok := n.PortByName(domain.InputPropertyPorts, name)
	if !ok {
		return 0, fmt.Errorf("add: missing %s port", name)
	}
	v, err := schema.Float().Coerce(p.Value())
	if err != nil {
		return 0, fmt.Errorf("add: port %s: %w", name, err)
	}
	return v.(float64), nil
}

// Types returns the standard node types.
func Types(opts ...Option) []registry.NodeType {
	cfg := &config{out: os.Stdout}
	for _, opt := range opts {
		opt(cfg)
	}

	constant := domain.PropertyPortSpec(PortValue, false, schema.Any())
	constant.HasEditor = true
	constant.Accessor = domain.Bind(func(c *Constant) any { return c.Value }, func(c *Constant, v any) { c.Value = v })

	a := domain.PropertyPortSpec(PortA, true, schema.Float())
	a.Accessor = domain.Bind(func(n *Add) float64 { return n.A }, func(n *Add, v float64) { n.A = v })
	b := domain.PropertyPortSpec(PortB, true, schema.Float())
	b.Accessor = domain.Bind(func(n *Add) float64 { return n.B }, func(n *Add, v float64) { n.B = v })
	sum := domain.PropertyPortSpec(PortSum, false, schema.Float())
	sum.Accessor = domain.Bind(func(n *Add) float64 { return n.Sum }, func(n *Add, v float64) { n.Sum = v })

	msg := domain.PropertyPortSpec(PortMsg, true, schema.Any())
	msg.Accessor = domain.Bind(func(l *Log) any { return l.Message }, func(l *Log, v any) { l.Message = v })

	return []registry.NodeType{
		{
			Name:   TypeStart,
			Header: "Start",
			New:    func() any { return &Start{} },
			Ports:  []domain.PortSpec{domain.FlowPortSpec(PortOut, false)},
		},
		{
			Name:   TypeConstant,
			Header: "Constant",
			New:    func() any { return &Constant{} },
			Ports:  []domain.PortSpec{constant},
		},
		{
			Name:   TypeAdd,
			Header: "Add",
			New:    func() any { return &Add{} },
			Ports: []domain.PortSpec{
				domain.FlowPortSpec(PortIn, true),
				domain.FlowPortSpec(PortOut, false),
				a, b, sum,
			},
		},
		{
			Name:   TypeLog,
			Header: "Log",
			New:    func() any { return &Log{out: cfg.out} },
			Ports: []domain.PortSpec{
				domain.FlowPortSpec(PortIn, true),
				domain.FlowPortSpec(PortOut, false),
				msg,
			},
		},
	}
}

// Register adds the standard types to c.
func Register(c *registry.Catalog, opts ...Option) error {
	for _, t := range Types(opts...) {
		if err := c.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// Catalog returns a new catalog holding the standard types.
func Catalog(opts ...Option) *registry.Catalog {
	return registry.NewCatalog(Types(opts...)...)
}
