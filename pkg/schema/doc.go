// Package schema provides the declared value types of property ports.
//
// It defines a small type system with built-in types (string, int, float, bool, any)
// and support for slices and custom types. Every type can validate a canonical
// value and coerce a value produced by a generic decoder (YAML, JSON, MessagePack)
// into its canonical Go representation:
//
//	t, _ := schema.ParseType("[int]")
//	v, err := t.Coerce([]any{float64(1), int8(2)}) // []int{1, 2}
//
// Host applications register domain types (such as colors) in a Catalog:
//
//	catalog := schema.NewCatalog(colorType)
//	t, err := catalog.Parse("[color]")
//
// Schemas map property names to types and validate whole property sets:
//
//	s := schema.Schema{"A": schema.Float(), "B": schema.Float()}
//	err := schema.Validate(s, map[string]any{"A": 1.0})
//	// err is an *AggregateError reporting "B" as required
//
// The package has no dependencies beyond the Go standard library.
package schema
