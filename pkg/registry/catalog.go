package registry

import (
	"fmt"
	"slices"
	"sync"

	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/aretw0/nodegraph/pkg/schema"
)

// NodeType declares a kind of node: its view binding, default header, the behavior
// value each node carries and the ports it is created with.
type NodeType struct {
	Name     string
	ViewType string
	Header   string

	// New creates the behavior of a node. Static property ports bind to it. Optional.
	New func() any

	Ports []domain.PortSpec
}

// Catalog holds the available node types.
// It is safe for concurrent use and may be shared between registries.
type Catalog struct {
	mu    sync.RWMutex
	types map[string]NodeType
}

// NewCatalog creates a catalog holding the built-in port-less node type plus the given ones.
func NewCatalog(types ...NodeType) *Catalog {
	c := &Catalog{
		types: map[string]NodeType{
			domain.TypeNode: {Name: domain.TypeNode},
		},
	}
	for _, t := range types {
		c.types[t.Name] = t
	}
	return c
}

// Register adds a node type. Names must be unique.
func (c *Catalog) Register(t NodeType) error {
	if t.Name == "" {
		return fmt.Errorf("node type: missing name")
	}
	for _, spec := range t.Ports {
		if spec.Accessor != nil && t.New == nil {
			return fmt.Errorf("node type %s: port %s is static but the type has no behavior", t.Name, spec.Name)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.types[t.Name]; exists {
		return fmt.Errorf("node type %s: %w", t.Name, domain.ErrDuplicateID)
	}
	c.types[t.Name] = t
	return nil
}

// MustRegister is like Register but panics on error.
func (c *Catalog) MustRegister(t NodeType) {
	if err := c.Register(t); err != nil {
		panic(err)
	}
}

// Lookup returns the node type registered under name.
func (c *Catalog) Lookup(name string) (NodeType, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.types[name]
	return t, ok
}

// Names returns the registered type names in sorted order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.types))
	for name := range c.types {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Schema returns the declared value types of a node type's property ports keyed by port name.
func (c *Catalog) Schema(name string) (schema.Schema, bool) {
	t, ok := c.Lookup(name)
	if !ok {
		return nil, false
	}
	s := make(schema.Schema)
	for _, spec := range t.Ports {
		if spec.Kind == domain.PortProperty {
			s[spec.Name] = spec.ValueType
		}
	}
	return s, true
}

// spec returns the declared port of t matching the group and name of a persisted port.
func (t NodeType) spec(group domain.PortGroup, name string) (domain.PortSpec, bool) {
	for _, spec := range t.Ports {
		if domain.GroupOf(spec.Kind, spec.IsInput) == group && spec.Name == name {
			return spec, true
		}
	}
	return domain.PortSpec{}, false
}

// TypeDescription summarizes a node type for inspection surfaces.
type TypeDescription struct {
	Name   string            `json:"name"`
	Header string            `json:"header,omitempty"`
	Ports  []PortDescription `json:"ports"`
}

// PortDescription summarizes a declared port.
type PortDescription struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Input     bool   `json:"input"`
	ValueType string `json:"value_type,omitempty"`
}

// Describe summarizes types in order.
func Describe(types []NodeType) []TypeDescription {
	out := make([]TypeDescription, 0, len(types))
	for _, t := range types {
		d := TypeDescription{Name: t.Name, Header: t.Header, Ports: []PortDescription{}}
		for _, spec := range t.Ports {
			p := PortDescription{Name: spec.Name, Kind: spec.Kind.String(), Input: spec.IsInput}
			if spec.ValueType != nil {
				p.ValueType = spec.ValueType.Name()
			}
			d.Ports = append(d.Ports, p)
		}
		out = append(out, d)
	}
	return out
}
