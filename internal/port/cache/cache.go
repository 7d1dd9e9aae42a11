// Package cache defines the port interface for caching parsed governance
// documents and other hot lookups.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-value cache keyed by string. Implementations are free
// to evict at any time; callers must treat every Get miss as a signal to
// rebuild from the source of truth, never as data loss.
type Cache interface {
	// Get returns the cached value and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key for at most ttl; ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
