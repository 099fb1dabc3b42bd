package domain

import "errors"

// ErrInvalidReference is returned when a GUID does not resolve to a live entity of the expected kind.
var ErrInvalidReference = errors.New("invalid reference")

// ErrDuplicateID is returned when a GUID is already registered for an entity of the same kind.
var ErrDuplicateID = errors.New("duplicate id")

// ErrKindMismatch is returned when a GUID is already registered for an entity of another kind.
var ErrKindMismatch = errors.New("id registered for another kind")

// ErrUnknownType is returned when a node type or value type name cannot be resolved.
var ErrUnknownType = errors.New("unknown type")

// ErrMalformed is returned when persisted data cannot be turned back into entities.
var ErrMalformed = errors.New("malformed document")

// ErrCapacity is returned when attaching a connector would exceed a port's multiplicity.
var ErrCapacity = errors.New("port capacity exceeded")

// ErrTypeMismatch is returned when a value does not conform to a property port's declared type.
var ErrTypeMismatch = errors.New("value type mismatch")

// ErrReadOnly is returned when writing a property that cannot be changed.
var ErrReadOnly = errors.New("read-only property")
