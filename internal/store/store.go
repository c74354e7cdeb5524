// Package store provides the durable key-value substrate and its SQLite implementation.
package store

import (
	"context"
	"errors"
)

// Regions partition the store so each component owns its own keys.
const (
	RegionSession = "session"
	RegionHistory = "history"
)

// ErrNotFound is returned by Get when no value exists for ns/key.
var ErrNotFound = errors.New("not found")

// Store defines the durable key-value interface.
type Store interface {
	// Get returns the value stored under ns/key, or ErrNotFound.
	Get(ctx context.Context, ns, key string) ([]byte, error)

	// Put replaces the value stored under ns/key.
	Put(ctx context.Context, ns, key string, value []byte) error

	// Delete removes ns/key. Deleting a missing key is not an error.
	Delete(ctx context.Context, ns, key string) error

	// Keys lists the keys of a region in ascending order.
	Keys(ctx context.Context, ns string) ([]string, error)

	// Close closes the store.
	Close() error
}
