package geocode

import (
	"slices"
	"sync"
	"time"

	"github.com/octobees/prospector/internal/clock"
)

const (
	defaultCacheTTL      = 24 * time.Hour
	defaultCacheMaxItems = 5000
)

type cacheItem struct {
	result  Result
	expires time.Time
}

// Cache is a bounded TTL cache of geocode results. Writes evict expired
// entries first and then the oldest insertions until the bound holds.
type Cache struct {
	mu       sync.Mutex
	ttl      time.Duration
	maxItems int
	now      func() time.Time
	items    map[string]cacheItem
	order    []string
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithCacheClock replaces the clock used for expiry.
func WithCacheClock(c clock.Clock) CacheOption {
	return func(cache *Cache) {
		if c != nil {
			cache.now = c.Now
		}
	}
}

// NewCache builds a cache. Non-positive arguments select the defaults
// (24h, 5000 items).
func NewCache(ttl time.Duration, maxItems int, opts ...CacheOption) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if maxItems <= 0 {
		maxItems = defaultCacheMaxItems
	}
	c := &Cache{
		ttl:      ttl,
		maxItems: maxItems,
		now:      time.Now,
		items:    make(map[string]cacheItem),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a live entry. Expired entries are removed on read.
func (c *Cache) Get(key string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if !ok {
		return Result{}, false
	}
	if !c.now().Before(item.expires) {
		c.remove(key)
		return Result{}, false
	}
	return item.result, true
}

// Set stores result under key, refreshing its position and expiry.
func (c *Cache) Set(key string, result Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; exists {
		c.remove(key)
	}
	c.items[key] = cacheItem{result: result, expires: c.now().Add(c.ttl)}
	c.order = append(c.order, key)

	if len(c.items) <= c.maxItems {
		return
	}
	c.purgeExpired()
	for len(c.items) > c.maxItems && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.items, oldest)
	}
}

// Len reports the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Cache) purgeExpired() {
	now := c.now()
	kept := c.order[:0]
	for _, key := range c.order {
		if now.Before(c.items[key].expires) {
			kept = append(kept, key)
			continue
		}
		delete(c.items, key)
	}
	c.order = kept
}

func (c *Cache) remove(key string) {
	delete(c.items, key)
	if i := slices.Index(c.order, key); i >= 0 {
		c.order = slices.Delete(c.order, i, i+1)
	}
}
