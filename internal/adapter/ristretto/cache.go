// Package ristretto implements the cache port with an in-process
// ristretto cache. It holds parsed constitution documents so rule
// evaluation stays off the disk between edits.
package ristretto

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Cache adapts ristretto to the cache port. Cost accounting is by value
// size in bytes.
type Cache struct {
	c *ristretto.Cache[string, []byte]
}

// New creates a cache bounded at maxCostBytes of stored values.
func New(maxCostBytes int64) (*Cache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: maxCostBytes / 100 * 10, // ~10x expected items
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{c: c}, nil
}

func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	val, found := c.c.Get(key)
	if !found {
		return nil, false, nil
	}
	return val, true, nil
}

// Set stores value with the given TTL. Ristretto applies writes
// asynchronously: a Get immediately after Set may miss, which the
// constitution store tolerates by re-reading from disk.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.c.SetWithTTL(key, value, int64(len(value)), ttl)
	return nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.c.Del(key)
	return nil
}

// Wait blocks until buffered writes are applied. Intended for tests and
// warm-up paths.
func (c *Cache) Wait() {
	c.c.Wait()
}

// Close releases the cache's internal goroutines.
func (c *Cache) Close() {
	c.c.Close()
}
