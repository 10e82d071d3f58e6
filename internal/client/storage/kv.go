package storage

import "context"

//go:generate moq -out kvstorage_mock.go . KVStorage

// KVStorage defines the raw key/value layer the override store persists to.
// It is the client-side analogue of browser storage: opaque byte values
// addressed by string keys, whole-value replace, no transactions across keys.
type KVStorage interface {
	// Get returns the value stored under key
	// Returns ErrKeyNotFound if nothing is stored yet
	Get(ctx context.Context, key string) ([]byte, error)

	// Put replaces the value stored under key
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error

	// Keys returns all stored keys in lexical order
	Keys(ctx context.Context) ([]string, error)
}

// Watcher is implemented by backends that can observe changes made
// by other processes (the "storage event" of the browser model).
type Watcher interface {
	// Watch calls onChange with the key of every externally modified value
	// until ctx is cancelled. Writes made through the same backend instance
	// are not reported.
	Watch(ctx context.Context, onChange func(key string)) error
}
