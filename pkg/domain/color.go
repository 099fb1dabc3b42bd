package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/nodegraph/pkg/schema"
)

// Color is an ARGB color, written as "#AARRGGBB".
type Color uint32

const (
	Black Color = 0xFF000000
	White Color = 0xFFFFFFFF
)

// ParseColor reads "#AARRGGBB" or "#RRGGBB" (opaque).
func ParseColor(s string) (Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(hex) {
	case 6:
		hex = "FF" + hex
	case 8:
	default:
		return 0, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return Color(v), nil
}

func (c Color) String() string {
	return fmt.Sprintf("#%08X", uint32(c))
}

// MarshalText implements encoding.TextMarshaler.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ColorType is the "color" property port type. Persisted colors are strings.
func ColorType() schema.Type {
	return schema.CustomCoerced("color", Color(0),
		func(v any) error {
			if _, ok := v.(Color); !ok {
				return fmt.Errorf("expected color, got %T", v)
			}
			return nil
		},
		func(v any) (any, error) {
			switch c := v.(type) {
			case Color:
				return c, nil
			case string:
				return ParseColor(c)
			default:
				return nil, fmt.Errorf("expected color, got %T", v)
			}
		},
	)
}
