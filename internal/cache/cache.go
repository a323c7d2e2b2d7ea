// Package cache provides a small in-process TTL cache with an aggregate
// memory budget enforced by per-entry size accounting. It only ever saves a
// document-store round trip; a miss or eviction always falls back to the
// persistent store, so stale entries can never flip an authentication
// decision.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	size      int64
	expiresAt time.Time
}

// Cache is safe for concurrent use. It is constructed once at service start
// and injected; there is no package-level instance.
type Cache[V any] struct {
	mu      sync.Mutex
	maxSize int64
	size    int64
	entries map[string]entry[V]
	now     func() time.Time
}

// New builds a cache bounded to maxSize accounting units (bytes, by
// convention). A non-positive maxSize disables the bound.
func New[V any](maxSize int64) *Cache[V] {
	return &Cache[V]{
		maxSize: maxSize,
		entries: make(map[string]entry[V]),
		now:     time.Now,
	}
}

// Get returns the cached value for key, or the zero value and false when the
// key is absent or expired. Expired entries are dropped on access.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.now().After(e.expiresAt) {
		c.remove(key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key for ttl. Size is the entry's accounting weight;
// alias keys pointing at an already-accounted value should pass size 0. An
// entry bigger than the whole budget is not cached at all.
func (c *Cache[V]) Set(key string, value V, size int64, ttl time.Duration) {
	if c.maxSize > 0 && size > c.maxSize {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remove(key)
	c.entries[key] = entry[V]{value: value, size: size, expiresAt: c.now().Add(ttl)}
	c.size += size
	if c.maxSize > 0 && c.size > c.maxSize {
		c.evict(key)
	}
}

// Delete drops the entry for key if present.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remove(key)
}

// Len reports the number of live entries, counting expired ones not yet
// dropped.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache[V]) remove(key string) {
	if e, ok := c.entries[key]; ok {
		c.size -= e.size
		delete(c.entries, key)
	}
}

// evict brings the cache back under budget: expired entries go first, then
// the entries closest to expiry. The key just inserted is spared.
func (c *Cache[V]) evict(keep string) {
	now := c.now()
	for key, e := range c.entries {
		if key != keep && now.After(e.expiresAt) {
			c.remove(key)
		}
	}
	for c.size > c.maxSize {
		victim := ""
		var victimExpiry time.Time
		for key, e := range c.entries {
			if key == keep {
				continue
			}
			if victim == "" || e.expiresAt.Before(victimExpiry) {
				victim = key
				victimExpiry = e.expiresAt
			}
		}
		if victim == "" {
			return
		}
		c.remove(victim)
	}
}
