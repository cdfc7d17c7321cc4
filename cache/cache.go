// Package cache provides a bounded, time-expiring result store keyed by
// serialized query parameters.
package cache

import (
	"sync"
	"time"
)

const (
	// DefaultTTL bounds the staleness of a cached result.
	DefaultTTL = 300 * time.Second

	// DefaultCapacity bounds the number of retained entries.
	DefaultCapacity = 50
)

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// ResultCache memoizes recent query responses to avoid redundant network
// round-trips. Eviction on overflow follows insertion order, not access
// order: this is a FIFO bound, not LRU, and overwriting an existing key
// keeps its original position. A single mutex serializes all operations
// since eviction and lookup share the same ordering.
type ResultCache[V any] struct {
	mu       sync.Mutex
	entries  map[string]entry[V]
	order    []string
	ttl      time.Duration
	capacity int
	now      func() time.Time
}

// New creates a cache with the given TTL and capacity. Non-positive
// values fall back to the defaults.
func New[V any](ttl time.Duration, capacity int) *ResultCache[V] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &ResultCache[V]{
		entries:  make(map[string]entry[V]),
		ttl:      ttl,
		capacity: capacity,
		now:      time.Now,
	}
}

// Get returns the cached value for key if it was stored less than the
// TTL ago. An expired entry is evicted and reported as absent.
func (c *ResultCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if ok && c.now().Sub(e.storedAt) < c.ttl {
		return e.value, true
	}
	if ok {
		c.removeLocked(key)
	}
	var zero V
	return zero, false
}

// Put stores value under key, overwriting any prior entry. When the
// entry count exceeds the capacity afterwards, the oldest-inserted
// entry is evicted.
func (c *ResultCache[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		c.order = append(c.order, key)
	}
	c.entries[key] = entry[V]{value: value, storedAt: c.now()}

	if len(c.entries) > c.capacity {
		c.removeLocked(c.order[0])
	}
}

// Clear empties the store unconditionally. It is invoked whenever
// context outside the query parameters invalidates all cached results.
func (c *ResultCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]entry[V])
	c.order = c.order[:0]
}

// Len returns the number of retained entries, expired or not.
func (c *ResultCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *ResultCache[V]) removeLocked(key string) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
