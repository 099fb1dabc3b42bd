package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"
)

// ErrDocumentNotFound is returned when no document is stored under a name.
var ErrDocumentNotFound = errors.New("document not found")

// ErrInvalidName is returned for document names the stores cannot keep.
var ErrInvalidName = errors.New("invalid document name")

// DocumentStore persists encoded flow chart documents by name.
type DocumentStore interface {
	// Save stores data under name, replacing any previous document.
	Save(ctx context.Context, name string, data []byte) error

	// Load retrieves the document stored under name.
	// Returns ErrDocumentNotFound if there is none.
	Load(ctx context.Context, name string) ([]byte, error)

	// Delete removes the document. Deleting a missing document is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the names of all stored documents in sorted order.
	List(ctx context.Context) ([]string, error)
}

// UnlockFunc releases a lock obtained from a Locker.
type UnlockFunc func(ctx context.Context) error

// Locker serializes writers of the same document across editor instances.
type Locker interface {
	// Lock blocks until the lock for key is acquired or ctx is done.
	// The lock expires after ttl if it is never released.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}

// Middleware wraps a DocumentStore to add behavior.
type Middleware func(DocumentStore) DocumentStore

// Chain applies middlewares so that the first one is the outermost.
func Chain(s DocumentStore, mws ...Middleware) DocumentStore {
	for i := len(mws) - 1; i >= 0; i-- {
		s = mws[i](s)
	}
	return s
}

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidateName checks that name is usable as a key and as a file name.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
