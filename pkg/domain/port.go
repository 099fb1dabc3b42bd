package domain

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/aretw0/nodegraph/pkg/history"
	"github.com/aretw0/nodegraph/pkg/schema"
	"github.com/google/uuid"
)

// PortKind distinguishes control-flow ports from data ports.
type PortKind int

const (
	PortFlow PortKind = iota + 1
	PortProperty
)

func (k PortKind) String() string {
	if k == PortProperty {
		return "property"
	}
	return "flow"
}

// Unlimited is the capacity of a port that accepts any number of connectors.
const Unlimited = -1

// Accessor binds a static property port to a field of the node's behavior.
type Accessor struct {
	Get func(behavior any) any
	Set func(behavior any, value any) error
}

// Bind builds a typed accessor for behaviors of type B holding a field of type T.
func Bind[B any, T any](get func(B) T, set func(B, T)) *Accessor {
	return &Accessor{
		Get: func(behavior any) any {
			b, ok := behavior.(B)
			if !ok {
				var zero T
				return zero
			}
			return get(b)
		},
		Set: func(behavior any, value any) error {
			b, ok := behavior.(B)
			if !ok {
				return fmt.Errorf("%w: behavior is %T", ErrTypeMismatch, behavior)
			}
			var v T
			if value != nil {
				typed, ok := value.(T)
				if !ok {
					return fmt.Errorf("%w: want %T, got %T", ErrTypeMismatch, v, value)
				}
				v = typed
			}
			set(b, v)
			return nil
		},
	}
}

// PortSpec declares a port. Node types list specs for the ports they are created with.
type PortSpec struct {
	Kind                PortKind
	IsInput             bool
	Name                string
	DisplayName         string
	AllowMultipleInput  bool
	AllowMultipleOutput bool
	IsPortEnabled       bool
	IsEnabled           bool
	ViewType            string

	// Property ports only.
	ValueType schema.Type
	HasEditor bool
	Accessor  *Accessor
	Value     any
}

// FlowPortSpec declares a flow port: inputs accept many connectors, outputs one.
func FlowPortSpec(name string, isInput bool) PortSpec {
	return PortSpec{
		Kind:                PortFlow,
		IsInput:             isInput,
		Name:                name,
		DisplayName:         name,
		AllowMultipleInput:  true,
		AllowMultipleOutput: false,
		IsPortEnabled:       true,
		IsEnabled:           true,
	}
}

// PropertyPortSpec declares a property port: inputs accept one connector, outputs many.
func PropertyPortSpec(name string, isInput bool, valueType schema.Type) PortSpec {
	return PortSpec{
		Kind:                PortProperty,
		IsInput:             isInput,
		Name:                name,
		DisplayName:         name,
		AllowMultipleInput:  false,
		AllowMultipleOutput: true,
		IsPortEnabled:       true,
		IsEnabled:           true,
		ValueType:           valueType,
		HasEditor:           isInput,
	}
}

// Port is a connection point of a node. Kind and direction are fixed at creation,
// and so are the multiplicity flags.
type Port struct {
	notifier
	id                  uuid.UUID
	owner               *Node
	kind                PortKind
	isInput             bool
	name                string
	displayName         string
	allowMultipleInput  bool
	allowMultipleOutput bool
	isPortEnabled       bool
	isEnabled           bool
	viewType            string
	connectors          []uuid.UUID
	initialized         bool

	valueType schema.Type
	hasEditor bool
	accessor  *Accessor
	value     any
}

// NewPort creates an uninitialized port owned by owner.
// Property ports require a value type; the initial value is checked against it.
func NewPort(id uuid.UUID, owner *Node, spec PortSpec) (*Port, error) {
	p := &Port{
		id:                  id,
		owner:               owner,
		kind:                spec.Kind,
		isInput:             spec.IsInput,
		name:                spec.Name,
		displayName:         spec.DisplayName,
		allowMultipleInput:  spec.AllowMultipleInput,
		allowMultipleOutput: spec.AllowMultipleOutput,
		isPortEnabled:       spec.IsPortEnabled,
		isEnabled:           spec.IsEnabled,
		viewType:            spec.ViewType,
	}
	if p.kind != PortFlow && p.kind != PortProperty {
		return nil, fmt.Errorf("port %s: %w: kind %d", spec.Name, ErrUnknownType, spec.Kind)
	}
	if p.kind == PortFlow {
		return p, nil
	}

	if spec.ValueType == nil {
		return nil, fmt.Errorf("property port %s: %w: missing value type", spec.Name, ErrUnknownType)
	}
	p.valueType = spec.ValueType
	p.hasEditor = spec.HasEditor
	p.accessor = spec.Accessor

	switch {
	case spec.Value != nil:
		if err := p.write(spec.Value); err != nil {
			return nil, err
		}
	case spec.Accessor == nil:
		p.value = p.valueType.Zero()
	}
	if err := p.CheckValidity(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Port) GUID() uuid.UUID     { return p.id }
func (p *Port) Kind() Kind          { return KindPort }
func (p *Port) IsInitialized() bool { return p.initialized }

// MarkInitialized flags the end of creation or deserialization.
func (p *Port) MarkInitialized() { p.initialized = true }

func (p *Port) Owner() *Node              { return p.owner }
func (p *Port) PortKind() PortKind        { return p.kind }
func (p *Port) IsInput() bool             { return p.isInput }
func (p *Port) IsFlow() bool              { return p.kind == PortFlow }
func (p *Port) IsProperty() bool          { return p.kind == PortProperty }
func (p *Port) Name() string              { return p.name }
func (p *Port) DisplayName() string       { return p.displayName }
func (p *Port) AllowMultipleInput() bool  { return p.allowMultipleInput }
func (p *Port) AllowMultipleOutput() bool { return p.allowMultipleOutput }
func (p *Port) IsPortEnabled() bool       { return p.isPortEnabled }
func (p *Port) IsEnabled() bool           { return p.isEnabled }
func (p *Port) ViewType() string          { return p.viewType }
func (p *Port) ValueType() schema.Type    { return p.valueType }
func (p *Port) HasEditor() bool           { return p.hasEditor }
func (p *Port) IsStatic() bool            { return p.accessor != nil }

// Connectors returns the GUIDs of attached connectors in attach order.
func (p *Port) Connectors() []uuid.UUID { return slices.Clone(p.connectors) }

// IsConnected reports whether any connector is attached.
func (p *Port) IsConnected() bool { return len(p.connectors) > 0 }

// Capacity is 1 for an exclusive direction and Unlimited otherwise.
func (p *Port) Capacity() int {
	allow := p.allowMultipleOutput
	if p.isInput {
		allow = p.allowMultipleInput
	}
	if allow {
		return Unlimited
	}
	return 1
}

// IsFull reports whether attaching another connector would exceed the capacity.
func (p *Port) IsFull() bool { return p.fullWithout(uuid.Nil) }

func (p *Port) fullWithout(freed uuid.UUID) bool {
	c := p.Capacity()
	if c == Unlimited {
		return false
	}
	n := len(p.connectors)
	if freed != uuid.Nil && slices.Contains(p.connectors, freed) {
		n--
	}
	return n >= c
}

func (p *Port) SetDisplayName(v string) {
	if v == p.displayName {
		return
	}
	p.displayName = v
	p.raise(PropertyChange{Source: p.id, Kind: KindPort, Property: PropDisplayName})
}

func (p *Port) SetPortEnabled(v bool) {
	if v == p.isPortEnabled {
		return
	}
	p.isPortEnabled = v
	p.raise(PropertyChange{Source: p.id, Kind: KindPort, Property: PropIsPortEnabled})
}

func (p *Port) SetEnabled(v bool) {
	if v == p.isEnabled {
		return
	}
	p.isEnabled = v
	p.raise(PropertyChange{Source: p.id, Kind: KindPort, Property: PropIsEnabled})
}

// Value returns the effective value of a property port.
// A connected input reads the value of its source through the first connector,
// converted to its own declared type when possible.
func (p *Port) Value() any {
	if p.kind != PortProperty {
		return nil
	}
	if p.isInput {
		if src := p.Source(); src != nil && src.kind == PortProperty {
			v := src.Value()
			if coerced, err := p.valueType.Coerce(v); err == nil {
				return coerced
			}
			return v
		}
	}
	return p.OwnValue()
}

// OwnValue returns the value stored by this port, ignoring connections.
func (p *Port) OwnValue() any {
	if p.accessor != nil {
		return p.accessor.Get(p.owner.behavior)
	}
	return p.value
}

// Source returns the start port of the first connector of an input port.
func (p *Port) Source() *Port {
	if !p.isInput || len(p.connectors) == 0 || p.owner == nil || p.owner.owner == nil {
		return nil
	}
	fc := p.owner.owner
	c, ok := fc.Connector(p.connectors[0])
	if !ok {
		return nil
	}
	src, ok := fc.Port(c.startPort)
	if !ok {
		return nil
	}
	return src
}

// SetValue coerces v to the declared type and stores it.
// Changes of initialized ports are recorded in the flow chart's history.
func (p *Port) SetValue(v any) error {
	if p.kind != PortProperty {
		return fmt.Errorf("port %s: %w: flow ports carry no value", p.name, ErrReadOnly)
	}
	old := p.OwnValue()
	if err := p.write(v); err != nil {
		return err
	}
	current := p.OwnValue()
	if reflect.DeepEqual(old, current) {
		return nil
	}
	p.record(old, current)
	p.raiseValue()
	return nil
}

func (p *Port) write(v any) error {
	coerced := v
	if v != nil {
		var err error
		coerced, err = p.valueType.Coerce(v)
		if err != nil {
			return typeMismatch(p.name, err, v)
		}
	}
	if err := schema.Check(p.valueType, coerced); err != nil {
		return typeMismatch(p.name, err, v)
	}
	if p.accessor != nil {
		return p.accessor.Set(p.owner.behavior, coerced)
	}
	p.value = coerced
	return nil
}

// CheckValidity verifies the stored value against the declared type.
func (p *Port) CheckValidity() error {
	if p.kind != PortProperty {
		return nil
	}
	if err := schema.Check(p.valueType, p.OwnValue()); err != nil {
		return typeMismatch(p.name, err, p.OwnValue())
	}
	return nil
}

func typeMismatch(port string, cause error, value any) error {
	return fmt.Errorf("%w: %w", ErrTypeMismatch, &schema.ValidationError{Key: port, Reason: cause.Error(), Value: value})
}

func (p *Port) record(old, new any) {
	if !p.initialized || p.owner == nil || p.owner.owner == nil || p.owner.owner.History == nil {
		return
	}
	p.owner.owner.History.Record(TransactionSetProperty, &history.SetProperty{Target: p.id, Property: PropValue, Old: old, New: new})
}

// raiseValue notifies the port and, for static ports, the owning node under the port's name.
func (p *Port) raiseValue() {
	p.raise(PropertyChange{Source: p.id, Kind: KindPort, Property: PropValue})
	if p.accessor != nil && p.owner != nil {
		p.owner.raise(PropertyChange{Source: p.owner.id, Kind: KindNode, Property: p.name})
	}
}
