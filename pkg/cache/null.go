package cache

import (
	"context"
	"time"
)

// nullCache discards every write and misses every read. It backs the
// --no-cache flag and is the fallback when no cache directory can be
// resolved, so callers never need to branch on "caching disabled".
type nullCache struct{}

// NewNullCache creates a cache that stores nothing.
func NewNullCache() Cache { return nullCache{} }

// Get always misses.
func (nullCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}

// Set discards the value.
func (nullCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return nil
}

// Delete is a no-op.
func (nullCache) Delete(ctx context.Context, key string) error { return nil }

// Close is a no-op.
func (nullCache) Close() error { return nil }
