// Package memcache is an in-process ports.SeriesCache with a fixed TTL.
package memcache

import (
	"context"
	"sync"
	"time"

	"stockanalyzer/internal/domain"
	"stockanalyzer/internal/ports"
)

// Cache keeps fetches in memory for a bounded time. It is safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[ports.CacheKey]*ports.CachedFetch
	ttl     time.Duration
	now     func() time.Time
}

// Compile-time check
var _ ports.SeriesCache = (*Cache)(nil)

// New creates a cache whose entries expire after ttl.
func New(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[ports.CacheKey]*ports.CachedFetch),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *Cache) expired(entry *ports.CachedFetch) bool {
	return c.now().Sub(entry.StoredAt) >= c.ttl
}

// Get returns a live entry or nil on a miss. Expired entries are dropped lazily.
func (c *Cache) Get(ctx context.Context, key ports.CacheKey) (*ports.CachedFetch, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if c.expired(entry) {
		c.mu.Lock()
		if current, ok := c.entries[key]; ok && current == entry {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, nil
	}
	return cloneEntry(entry), nil
}

// Put stores entry under key, stamping it with the current time.
func (c *Cache) Put(ctx context.Context, key ports.CacheKey, entry *ports.CachedFetch) error {
	if entry == nil {
		return nil
	}
	stored := cloneEntry(entry)
	stored.StoredAt = c.now()

	c.mu.Lock()
	c.entries[key] = stored
	c.mu.Unlock()
	return nil
}

// cloneEntry copies the series and its bars so callers never share them with the cache.
func cloneEntry(entry *ports.CachedFetch) *ports.CachedFetch {
	out := *entry
	if entry.Series != nil {
		series := *entry.Series
		series.Bars = append([]domain.PriceBar(nil), entry.Series.Bars...)
		out.Series = &series
	}
	return &out
}

// Purge drops every expired entry.
func (c *Cache) Purge(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.entries {
		if c.expired(e) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored entries, live or not yet purged.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close is a no-op.
func (c *Cache) Close() error { return nil }
