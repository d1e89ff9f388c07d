// Package store provides the key/value backends that hold client-side state:
// the session record and the completion-time index. Values are opaque
// strings, as in browser local storage.
package store

import (
	"context"
	"errors"
)

var ErrClosed = errors.New("store is closed")

// KV is a string key/value store.
type KV interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// ChangeFunc receives a key modified outside this process.
type ChangeFunc func(key string)

// Watcher is implemented by backends that can report external changes.
type Watcher interface {
	Watch(ctx context.Context, fn ChangeFunc) error
}
