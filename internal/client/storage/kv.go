package storage

import "context"

// DefaultCapacity is the byte budget of a KV when none is configured (5 MiB)
const DefaultCapacity int64 = 5 << 20

//go:generate moq -out kv_mock.go . KV

// KV is the persistent string-keyed store used by the client.
// Operations are synchronous; implementations are safe for concurrent use.
type KV interface {
	// Get returns the value stored under key.
	// Returns ErrKeyNotFound if the key is absent
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	// Returns ErrQuotaExceeded if the total stored bytes would exceed the capacity
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes key. Removing an absent key is not an error
	Remove(ctx context.Context, key string) error

	// Close releases the underlying resources
	Close() error
}

// ExceedsCapacity reports whether replacing a value of oldSize bytes with one of
// newSize bytes pushes usage over capacity. Sizes count key and value bytes.
// A capacity <= 0 means unlimited.
func ExceedsCapacity(capacity, used, oldSize, newSize int64) bool {
	if capacity <= 0 {
		return false
	}
	return used-oldSize+newSize > capacity
}
