package guard

import (
	"sync"
	"time"
)

type cacheEntry struct {
	value     map[string]interface{}
	expiresAt time.Time
}

// Cache is a per-key TTL cache. A read of an expired entry evicts it
// lazily, matching the original's cache_get behavior — there is no
// background sweeper.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	now     func() time.Time
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]*cacheEntry), now: time.Now}
}

// Get returns the cached value for key, if present and unexpired.
func (c *Cache) Get(key string) (map[string]interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// Put stores value for key with the given TTL.
func (c *Cache) Put(key string, value map[string]interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &cacheEntry{value: value, expiresAt: c.now().Add(ttl)}
}
