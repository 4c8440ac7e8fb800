// Package cache provides a TTL-bounded in-memory cache keyed by string.
//
// The mutex guards only the map access; callers rebuild expensive values
// outside the lock (the service layer deduplicates concurrent rebuilds
// with singleflight) so unrelated keys never serialize each other.
package cache

import (
	"sync"
	"time"
)

type entry[T any] struct {
	data     T
	storedAt time.Time
}

// TTLMap memoizes values per key with a shared time-to-live.
type TTLMap[T any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]entry[T]
}

// New creates a cache whose entries stay fresh for ttl.
func New[T any](ttl time.Duration) *TTLMap[T] {
	return NewWithClock[T](ttl, time.Now)
}

// NewWithClock is New with an injectable clock, for freshness tests.
func NewWithClock[T any](ttl time.Duration, now func() time.Time) *TTLMap[T] {
	return &TTLMap[T]{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]entry[T]),
	}
}

// Get returns the cached value for key if it is still fresh. A stale entry
// is evicted and reported as a miss.
func (c *TTLMap[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		var zero T
		return zero, false
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		delete(c.entries, key)
		var zero T
		return zero, false
	}
	return e.data, true
}

// Put stores data for key with a fresh timestamp.
func (c *TTLMap[T]) Put(key string, data T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[T]{data: data, storedAt: c.now()}
}

// Invalidate drops the entry for key, if any.
func (c *TTLMap[T]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear drops every entry.
func (c *TTLMap[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[T])
}

// Len returns the number of stored entries, fresh or stale.
func (c *TTLMap[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
