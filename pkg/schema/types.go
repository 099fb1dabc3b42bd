package schema

import (
	"fmt"
	"math"
	"reflect"
)

// Type defines the contract for a declared port value type.
// Implementations determine how values are validated and how values decoded
// by a generic codec are turned back into their canonical Go representation.
type Type interface {
	// Name returns the type identifier used in persisted documents (e.g., "string", "[int]").
	Name() string
	// Validate checks if a value already conforms to this type.
	Validate(value any) error
	// Coerce converts a decoded value into the canonical Go value for this type.
	Coerce(value any) (any, error)
	// Zero returns the default value for the type.
	Zero() any
	// Nullable reports whether nil is an acceptable value.
	Nullable() bool
}

// --- Built-in Type Implementations ---

// StringType validates string values.
type StringType struct{}

func (t *StringType) Name() string   { return "string" }
func (t *StringType) Zero() any      { return "" }
func (t *StringType) Nullable() bool { return false }

func (t *StringType) Validate(value any) error {
	_, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	return nil
}

func (t *StringType) Coerce(value any) (any, error) {
	if err := t.Validate(value); err != nil {
		return nil, err
	}
	return value, nil
}

// IntType validates integer values. The canonical representation is int.
type IntType struct{}

func (t *IntType) Name() string   { return "int" }
func (t *IntType) Zero() any      { return 0 }
func (t *IntType) Nullable() bool { return false }

func (t *IntType) Validate(value any) error {
	_, ok := value.(int)
	if !ok {
		return fmt.Errorf("expected int, got %T", value)
	}
	return nil
}

func (t *IntType) Coerce(value any) (any, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int8:
		return int(v), nil
	case int16:
		return int(v), nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case uint8:
		return int(v), nil
	case uint16:
		return int(v), nil
	case uint32:
		return int(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return nil, fmt.Errorf("int overflow: %d", v)
		}
		return int(v), nil
	case float32:
		return wholeFloat(float64(v))
	case float64:
		// JSON numbers decode as float64
		return wholeFloat(v)
	default:
		return nil, fmt.Errorf("expected int, got %T", value)
	}
}

func wholeFloat(v float64) (any, error) {
	if v != math.Trunc(v) {
		return nil, fmt.Errorf("expected int, got float (not a whole number)")
	}
	return int(v), nil
}

// FloatType validates floating-point values. The canonical representation is float64.
type FloatType struct{}

func (t *FloatType) Name() string   { return "float" }
func (t *FloatType) Zero() any      { return float64(0) }
func (t *FloatType) Nullable() bool { return false }

func (t *FloatType) Validate(value any) error {
	_, ok := value.(float64)
	if !ok {
		return fmt.Errorf("expected float, got %T", value)
	}
	return nil
}

func (t *FloatType) Coerce(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	default:
		return nil, fmt.Errorf("expected float, got %T", value)
	}
}

// BoolType validates boolean values.
type BoolType struct{}

func (t *BoolType) Name() string   { return "bool" }
func (t *BoolType) Zero() any      { return false }
func (t *BoolType) Nullable() bool { return false }

func (t *BoolType) Validate(value any) error {
	_, ok := value.(bool)
	if !ok {
		return fmt.Errorf("expected bool, got %T", value)
	}
	return nil
}

func (t *BoolType) Coerce(value any) (any, error) {
	if err := t.Validate(value); err != nil {
		return nil, err
	}
	return value, nil
}

// AnyType accepts every value, including nil.
type AnyType struct{}

func (t *AnyType) Name() string                  { return "any" }
func (t *AnyType) Zero() any                     { return nil }
func (t *AnyType) Nullable() bool                { return true }
func (t *AnyType) Validate(any) error            { return nil }
func (t *AnyType) Coerce(value any) (any, error) { return value, nil }

// SliceType validates slices of a specific element type.
type SliceType struct {
	elemType Type
}

func (t *SliceType) Name() string {
	return fmt.Sprintf("[%s]", t.elemType.Name())
}

func (t *SliceType) Nullable() bool { return true }

func (t *SliceType) Zero() any {
	return reflect.Zero(t.goType()).Interface()
}

// goType is []T for element types with a typed zero value and []any otherwise.
func (t *SliceType) goType() reflect.Type {
	zero := t.elemType.Zero()
	if zero == nil {
		return reflect.TypeOf([]any(nil))
	}
	return reflect.SliceOf(reflect.TypeOf(zero))
}

func (t *SliceType) Validate(value any) error {
	if value == nil {
		return nil
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return fmt.Errorf("expected slice, got %T", value)
	}

	// Validate each element
	for i := 0; i < rv.Len(); i++ {
		elem := rv.Index(i).Interface()
		if err := t.elemType.Validate(elem); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

func (t *SliceType) Coerce(value any) (any, error) {
	if value == nil {
		return t.Zero(), nil
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("expected slice, got %T", value)
	}

	out := reflect.MakeSlice(t.goType(), rv.Len(), rv.Len())
	for i := 0; i < rv.Len(); i++ {
		elem, err := t.elemType.Coerce(rv.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		if elem != nil {
			out.Index(i).Set(reflect.ValueOf(elem))
		}
	}
	return out.Interface(), nil
}

// CustomType applies a user-defined validation function.
type CustomType struct {
	name     string
	validate func(any) error
	coerce   func(any) (any, error)
	zero     any
}

func (t *CustomType) Name() string   { return t.name }
func (t *CustomType) Zero() any      { return t.zero }
func (t *CustomType) Nullable() bool { return t.zero == nil }

func (t *CustomType) Validate(value any) error {
	return t.validate(value)
}

func (t *CustomType) Coerce(value any) (any, error) {
	if t.coerce != nil {
		return t.coerce(value)
	}
	if err := t.validate(value); err != nil {
		return nil, err
	}
	return value, nil
}

// --- Factory Functions ---

// String creates a string type validator.
func String() Type { return &StringType{} }

// Int creates an integer type validator.
func Int() Type { return &IntType{} }

// Float creates a float type validator.
func Float() Type { return &FloatType{} }

// Bool creates a boolean type validator.
func Bool() Type { return &BoolType{} }

// Any creates a type that accepts every value.
func Any() Type { return &AnyType{} }

// Slice creates a slice type validator for elements of the given type.
func Slice(elemType Type) Type {
	return &SliceType{elemType: elemType}
}

// Custom creates a custom type validator with a user-defined function.
// The custom type is nullable and coerces by validating.
func Custom(name string, validate func(any) error) Type {
	return &CustomType{name: name, validate: validate}
}

// CustomCoerced creates a custom type with an explicit coercion function and zero value.
// A non-nil zero value makes the type non-nullable.
func CustomCoerced(name string, zero any, validate func(any) error, coerce func(any) (any, error)) Type {
	return &CustomType{name: name, validate: validate, coerce: coerce, zero: zero}
}

// ParseType converts a string type name to a built-in Type.
// Supports "string", "int", "float", "bool", "any" and slices such as "[string]".
func ParseType(typeStr string) (Type, error) {
	return builtins.Parse(typeStr)
}

// Assignable reports whether values of type from can flow into a port of type to.
func Assignable(from, to Type) bool {
	if from == nil || to == nil {
		return false
	}
	if to.Name() == "any" || from.Name() == to.Name() {
		return true
	}
	return from.Name() == "int" && to.Name() == "float"
}

// Check validates value against t the way a property port does:
// nil is rejected for non-nullable types, everything else must validate.
func Check(t Type, value any) error {
	if value == nil {
		if t.Nullable() {
			return nil
		}
		return fmt.Errorf("type %s does not accept nil", t.Name())
	}
	return t.Validate(value)
}
