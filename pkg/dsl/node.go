package dsl

import (
	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/google/uuid"
)

// Default port names used by Go.
const (
	DefaultFlowOut = "Out"
	DefaultFlowIn  = "In"
)

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	name     string
	typeName string
	id       uuid.UUID
	x, y     float64
	header   string

	values     map[string]any
	valueOrder []string
	links      []link

	builder *Builder
}

// ID fixes the GUID of the node. By default one is generated.
func (n *NodeBuilder) ID(id uuid.UUID) *NodeBuilder {
	n.id = id
	return n
}

// At sets the position of the node.
func (n *NodeBuilder) At(x, y float64) *NodeBuilder {
	n.x, n.y = x, y
	return n
}

// Header overrides the header of the node type.
func (n *NodeBuilder) Header(header string) *NodeBuilder {
	n.header = header
	return n
}

// Set assigns the value of a property port, looked up among inputs first.
func (n *NodeBuilder) Set(port string, value any) *NodeBuilder {
	if _, ok := n.values[port]; !ok {
		n.valueOrder = append(n.valueOrder, port)
	}
	n.values[port] = value
	return n
}

// Go connects the default output flow port to the default input flow port of target.
func (n *NodeBuilder) Go(target string) *NodeBuilder {
	return n.GoFrom(DefaultFlowOut, target)
}

// GoFrom connects the named output flow port to the default input flow port of target.
func (n *NodeBuilder) GoFrom(out, target string) *NodeBuilder {
	n.links = append(n.links, link{from: n.name, out: out, to: target, in: DefaultFlowIn, group: domain.InputFlowPorts})
	return n
}

// Wire connects the named output property port to the input property port of target.
func (n *NodeBuilder) Wire(out, target, in string) *NodeBuilder {
	n.links = append(n.links, link{from: n.name, out: out, to: target, in: in, group: domain.InputPropertyPorts})
	return n
}

// Then returns the builder for chaining another declaration.
func (n *NodeBuilder) Then() *Builder {
	return n.builder
}
