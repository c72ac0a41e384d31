package ports

import (
	"context"
	"time"

	"stockanalyzer/internal/domain"
)

// CacheKey identifies one cached fetch.
type CacheKey struct {
	Source string
	Symbol string
	Period domain.Period
}

// CachedFetch is the payload stored for a CacheKey.
type CachedFetch struct {
	Series   *domain.PriceSeries
	Metadata domain.IssuerMetadata
	StoredAt time.Time
}

// SeriesCache holds recent fetches for a bounded time-to-live.
// It is never a system of record: an expired or missing entry simply means refetching.
type SeriesCache interface {
	// Get returns the entry if present and younger than the cache TTL.
	// Returns nil, nil on a miss.
	Get(ctx context.Context, key CacheKey) (*CachedFetch, error)
	// Put stores or replaces the entry for key.
	Put(ctx context.Context, key CacheKey, entry *CachedFetch) error
	// Purge drops every expired entry and reports how many were removed.
	Purge(ctx context.Context) (int, error)
	// Close releases any resources held by the cache.
	Close() error
}

// String renders the key as "source:SYMBOL:period".
func (k CacheKey) String() string {
	return k.Source + ":" + k.Symbol + ":" + string(k.Period)
}
