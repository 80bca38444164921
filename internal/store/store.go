// Package store persists engine state (active board, history archive, daily
// alert ledger) as JSON documents behind a minimal key-value interface.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("store: key not found")

// Store is a schema-agnostic JSON document store. Implementations must be
// safe for concurrent use.
type Store interface {
	// GetJSON unmarshals the value at key into dest. Returns ErrNotFound
	// when the key is absent.
	GetJSON(ctx context.Context, key string, dest interface{}) error
	// SetJSON marshals value and stores it at key.
	SetJSON(ctx context.Context, key string, value interface{}) error
	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases any underlying resources.
	Close() error
}
