package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockanalyzer/internal/domain"
	"stockanalyzer/internal/ports"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// setupTestCache creates a cache in a temporary directory.
func setupTestCache(t *testing.T, ttl time.Duration) (*Cache, *time.Time, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "stockanalyzer-cache-test-*")
	require.NoError(t, err)

	cache, err := NewCache(Config{
		DBPath: filepath.Join(tmpDir, "nested", "cache.db"),
		TTL:    ttl,
		Logger: &mockLogger{},
	})
	require.NoError(t, err)

	now := time.Date(2024, 6, 3, 9, 30, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	cleanup := func() {
		cache.Close()
		os.RemoveAll(tmpDir)
	}
	return cache, &now, cleanup
}

func sampleFetch() *ports.CachedFetch {
	return &ports.CachedFetch{
		Series: &domain.PriceSeries{
			Symbol: "AAPL",
			Period: domain.Period1Month,
			Source: "yahoo",
			Bars: []domain.PriceBar{
				{Time: time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC), Open: 190, High: 192.5, Low: 189, Close: 191.25, Volume: 5_000_000},
				{Time: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), Open: 191.5, High: 194, Low: 191, Close: 193.75, Volume: 6_100_000},
			},
		},
		Metadata: domain.NewIssuerMetadata(map[string]any{
			domain.FactLongName:  "Apple Inc.",
			domain.FactMarketCap: 2.95e12,
		}),
	}
}

func TestCache_PutAndGet(t *testing.T) {
	cache, now, cleanup := setupTestCache(t, 5*time.Minute)
	defer cleanup()
	ctx := context.Background()
	key := ports.CacheKey{Source: "yahoo", Symbol: "AAPL", Period: domain.Period1Month}

	got, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got, "empty cache should miss")

	require.NoError(t, cache.Put(ctx, key, sampleFetch()))

	got, err = cache.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.Series.Bars, 2)
	assert.Equal(t, 193.75, got.Series.Bars[1].Close)
	assert.True(t, got.Series.Bars[0].Time.Equal(time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "Apple Inc.", got.Metadata.StringOr(domain.FactLongName, ""))
	assert.Equal(t, 2.95e12, got.Metadata.Float(domain.FactMarketCap).Float64)
	assert.True(t, got.StoredAt.Equal(*now))

	miss, err := cache.Get(ctx, ports.CacheKey{Source: "binance", Symbol: "AAPL", Period: domain.Period1Month})
	require.NoError(t, err)
	assert.Nil(t, miss, "source is part of the key")
}

func TestCache_Replace(t *testing.T) {
	cache, _, cleanup := setupTestCache(t, 5*time.Minute)
	defer cleanup()
	ctx := context.Background()
	key := ports.CacheKey{Source: "yahoo", Symbol: "AAPL", Period: domain.Period1Month}

	require.NoError(t, cache.Put(ctx, key, sampleFetch()))
	updated := sampleFetch()
	updated.Series.Bars = updated.Series.Bars[:1]
	require.NoError(t, cache.Put(ctx, key, updated))

	got, err := cache.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Len(t, got.Series.Bars, 1)
}

func TestCache_ExpiryAndPurge(t *testing.T) {
	cache, now, cleanup := setupTestCache(t, 5*time.Minute)
	defer cleanup()
	ctx := context.Background()
	old := ports.CacheKey{Source: "yahoo", Symbol: "AAPL", Period: domain.Period1Year}
	fresh := ports.CacheKey{Source: "yahoo", Symbol: "MSFT", Period: domain.Period1Year}

	require.NoError(t, cache.Put(ctx, old, sampleFetch()))
	*now = now.Add(6 * time.Minute)
	require.NoError(t, cache.Put(ctx, fresh, sampleFetch()))

	got, err := cache.Get(ctx, old)
	require.NoError(t, err)
	assert.Nil(t, got, "entry older than TTL must miss")

	removed, err := cache.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	got, err = cache.Get(ctx, fresh)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestNewCache_Validation(t *testing.T) {
	_, err := NewCache(Config{DBPath: filepath.Join(os.TempDir(), "x.db"), TTL: time.Minute})
	assert.Error(t, err, "logger is required")

	_, err = NewCache(Config{Logger: &mockLogger{}})
	assert.ErrorIs(t, err, ports.ErrConfigurationError)
}
