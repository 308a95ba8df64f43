package geo

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"
)

// Cache stores successful external lookups so later runs can skip the call.
type Cache interface {
	Get(ctx context.Context, query string) (Place, bool)
	Set(ctx context.Context, query string, p Place)
}

// CacheKey normalizes a query so trivially different spellings share an entry.
func CacheKey(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// MemoryCache is a TTL-bound LRU of geocoding results.
type MemoryCache struct {
	mu    sync.Mutex
	cap   int
	ttl   time.Duration
	now   func() time.Time
	ll    *list.List               // most-recent at front
	items map[string]*list.Element // key -> element
}

type cacheEntry struct {
	key   string
	place Place
	exp   time.Time
}

func NewMemoryCache(maxKeys int, ttl time.Duration) *MemoryCache {
	if maxKeys <= 0 {
		maxKeys = 5000
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MemoryCache{cap: maxKeys, ttl: ttl, now: time.Now, ll: list.New(), items: make(map[string]*list.Element)}
}

func (c *MemoryCache) Get(_ context.Context, query string) (Place, bool) {
	key := CacheKey(query)
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return Place{}, false
	}
	en := el.Value.(cacheEntry)
	if !c.now().Before(en.exp) {
		c.ll.Remove(el)
		delete(c.items, key)
		return Place{}, false
	}
	c.ll.MoveToFront(el)
	return en.place, true
}

func (c *MemoryCache) Set(_ context.Context, query string, p Place) {
	key := CacheKey(query)
	c.mu.Lock()
	defer c.mu.Unlock()
	exp := c.now().Add(c.ttl)
	if el, ok := c.items[key]; ok {
		el.Value = cacheEntry{key: key, place: p, exp: exp}
		c.ll.MoveToFront(el)
		return
	}
	c.items[key] = c.ll.PushFront(cacheEntry{key: key, place: p, exp: exp})
	for c.ll.Len() > c.cap {
		c.evict(c.ll.Back())
	}
	// drop expired entries from the tail
	for t := c.ll.Back(); t != nil && !c.now().Before(t.Value.(cacheEntry).exp); t = c.ll.Back() {
		c.evict(t)
	}
}

func (c *MemoryCache) evict(el *list.Element) {
	c.ll.Remove(el)
	delete(c.items, el.Value.(cacheEntry).key)
}

// Len returns the number of cached entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}
