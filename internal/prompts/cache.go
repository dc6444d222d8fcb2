package prompts

import (
	"sync"
	"time"
)

// DefaultCacheTTL is how long a looked-up template stays fresh.
const DefaultCacheTTL = 5 * time.Minute

type cacheEntry struct {
	template  *Template // nil is cached too: "tenant has no override"
	expiresAt time.Time
}

// Cache is a TTL cache for template lookups. It is injected into the
// Manager at construction; a nil *Cache disables caching entirely.
type Cache struct {
	ttl     time.Duration
	mu      sync.RWMutex
	entries map[string]cacheEntry
	now     func() time.Time
}

// NewCache creates a cache with the given TTL. A non-positive TTL falls
// back to DefaultCacheTTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

func (c *Cache) get(key string) (*Template, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return entry.template, true
}

func (c *Cache) set(key string, tmpl *Template) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{template: tmpl, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// Invalidate drops all cached lookups. Called after template edits.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}
