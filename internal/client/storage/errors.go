package storage

import "errors"

// Common client storage errors
var (
	// ErrKeyNotFound indicates that nothing is stored under the key
	ErrKeyNotFound = errors.New("key not found")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")

	// ErrQuotaExceeded indicates that the value does not fit into the storage quota
	ErrQuotaExceeded = errors.New("storage quota exceeded")

	// ErrInvalidKey indicates that the key cannot be used by the backend
	ErrInvalidKey = errors.New("invalid storage key")
)
