package schema

import (
	"fmt"
	"sync"
)

// builtins resolves only the built-in types.
var builtins = NewCatalog()

// Catalog resolves type names, including custom types registered by the host.
// Safe for concurrent use.
type Catalog struct {
	mu     sync.RWMutex
	custom map[string]Type
}

// NewCatalog creates a catalog that knows the built-in types plus the given custom ones.
func NewCatalog(custom ...Type) *Catalog {
	c := &Catalog{custom: make(map[string]Type)}
	for _, t := range custom {
		c.custom[t.Name()] = t
	}
	return c
}

// Register adds a custom type. A type with the same name is overwritten.
func (c *Catalog) Register(t Type) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.custom[t.Name()] = t
}

// Parse converts a type name to a Type.
func (c *Catalog) Parse(typeStr string) (Type, error) {
	// Handle slice types: [string], [int], etc.
	if len(typeStr) > 2 && typeStr[0] == '[' && typeStr[len(typeStr)-1] == ']' {
		elemType, err := c.Parse(typeStr[1 : len(typeStr)-1])
		if err != nil {
			return nil, err
		}
		return Slice(elemType), nil
	}

	switch typeStr {
	case "string":
		return String(), nil
	case "int":
		return Int(), nil
	case "float":
		return Float(), nil
	case "bool":
		return Bool(), nil
	case "any":
		return Any(), nil
	}

	c.mu.RLock()
	t, ok := c.custom[typeStr]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported type: %s", typeStr)
	}
	return t, nil
}

// ParseTypeMap converts a map of field names to type strings into a Schema.
// Example: {"A": "float", "Tags": "[string]"}
func (c *Catalog) ParseTypeMap(typeMap map[string]string) (Schema, error) {
	result := make(Schema)
	for key, typeStr := range typeMap {
		t, err := c.Parse(typeStr)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
		result[key] = t
	}
	return result, nil
}
