package vsphere

import (
	"sync"
	"time"
)

type cacheEntry[V any] struct {
	value     V
	fetchedAt time.Time
}

// cache is a TTL-bounded read cache for inventory lookups, so repeated
// tool calls within one agent run do not hammer vCenter. A TTL of zero
// disables it.
type cache[V any] struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry[V]
}

func newCache[V any](ttl time.Duration) *cache[V] {
	return &cache[V]{
		ttl:     ttl,
		entries: make(map[string]cacheEntry[V]),
	}
}

func (c *cache[V]) Get(key string) (V, bool) {
	var zero V
	if c.ttl <= 0 {
		return zero, false
	}

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return zero, false
	}

	if time.Since(entry.fetchedAt) > c.ttl {
		c.mu.Lock()
		// Re-check: another goroutine may have refreshed the entry
		// between the read unlock and here.
		if current, still := c.entries[key]; still && time.Since(current.fetchedAt) > c.ttl {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return zero, false
	}

	return entry.value, true
}

func (c *cache[V]) Set(key string, value V) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[key] = cacheEntry[V]{value: value, fetchedAt: time.Now()}
	c.mu.Unlock()
}

func (c *cache[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}
