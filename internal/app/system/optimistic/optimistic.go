// Package optimistic caches a read-mostly value and applies mutations to the
// cached copy before the backing write completes. Readers see the patched
// value immediately; a failed write restores the pre-mutation snapshot, and a
// successful write invalidates the cache so the next read refetches the
// authoritative state.
package optimistic

import (
	"context"
	"sync"
	"time"
)

// Loader fetches the authoritative value.
type Loader[T any] func(ctx context.Context) (T, error)

// Cache holds one value of type T with optimistic mutation support.
type Cache[T any] struct {
	mu       sync.Mutex
	load     Loader[T]
	ttl      time.Duration
	value    T
	loadedAt time.Time
	valid    bool
}

// New builds a cache around load. ttl bounds how stale a cached read may be;
// zero means cached values never expire on their own.
func New[T any](load Loader[T], ttl time.Duration) *Cache[T] {
	return &Cache[T]{load: load, ttl: ttl}
}

// Get returns the cached value, fetching through load when the cache is
// empty or expired.
func (c *Cache[T]) Get(ctx context.Context) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.valid && (c.ttl == 0 || time.Since(c.loadedAt) < c.ttl) {
		return c.value, nil
	}

	v, err := c.load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	c.value = v
	c.loadedAt = time.Now()
	c.valid = true
	return v, nil
}

// Invalidate drops the cached value so the next Get refetches.
func (c *Cache[T]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
	var zero T
	c.value = zero
}

// Mutate applies patch to the cached value, then runs write against the
// backing store. On success the cache is invalidated so the next read picks
// up the server's version of the change. On failure the pre-patch snapshot
// is restored and the write's error returned.
//
// patch must not retain or mutate its argument; it returns a new value.
func (c *Cache[T]) Mutate(ctx context.Context, patch func(T) T, write func(ctx context.Context) error) error {
	c.mu.Lock()
	snapshot := c.value
	hadValue := c.valid
	if c.valid {
		c.value = patch(c.value)
	}
	c.mu.Unlock()

	if err := write(ctx); err != nil {
		c.mu.Lock()
		if hadValue {
			c.value = snapshot
			c.valid = true
		}
		c.mu.Unlock()
		return err
	}

	c.Invalidate()
	return nil
}
