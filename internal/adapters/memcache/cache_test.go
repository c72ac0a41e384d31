package memcache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockanalyzer/internal/domain"
	"stockanalyzer/internal/ports"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(ttl time.Duration) (*Cache, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	c := New(ttl)
	c.now = clock.now
	return c, clock
}

func testKey(symbol string) ports.CacheKey {
	return ports.CacheKey{Source: "yahoo", Symbol: symbol, Period: domain.Period1Year}
}

func TestCache_GetPut(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestCache(5 * time.Minute)

	got, err := c.Get(ctx, testKey("AAPL"))
	require.NoError(t, err)
	assert.Nil(t, got)

	series := &domain.PriceSeries{Symbol: "AAPL"}
	require.NoError(t, c.Put(ctx, testKey("AAPL"), &ports.CachedFetch{Series: series}))

	got, err = c.Get(ctx, testKey("AAPL"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, series, got.Series)
	assert.Equal(t, clock.t, got.StoredAt)

	other, err := c.Get(ctx, testKey("MSFT"))
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestCache_EntriesAreNotShared(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(5 * time.Minute)

	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	series := &domain.PriceSeries{Symbol: "AAPL", Bars: []domain.PriceBar{{Time: day, Close: 100}}}
	require.NoError(t, c.Put(ctx, testKey("AAPL"), &ports.CachedFetch{Series: series}))
	series.Bars[0].Close = 1

	first, err := c.Get(ctx, testKey("AAPL"))
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, 100.0, first.Series.Bars[0].Close)

	first.Series.Bars[0].Close = 2
	first.Series.Bars = append(first.Series.Bars, domain.PriceBar{Time: day.AddDate(0, 0, 1), Close: 3})

	second, err := c.Get(ctx, testKey("AAPL"))
	require.NoError(t, err)
	require.Len(t, second.Series.Bars, 1)
	assert.Equal(t, 100.0, second.Series.Bars[0].Close)
}

func TestCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestCache(5 * time.Minute)
	require.NoError(t, c.Put(ctx, testKey("AAPL"), &ports.CachedFetch{}))

	clock.advance(4*time.Minute + 59*time.Second)
	got, _ := c.Get(ctx, testKey("AAPL"))
	assert.NotNil(t, got)

	clock.advance(time.Second)
	got, _ = c.Get(ctx, testKey("AAPL"))
	assert.Nil(t, got)
	assert.Zero(t, c.Len())
}

func TestCache_Purge(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestCache(time.Minute)
	require.NoError(t, c.Put(ctx, testKey("AAPL"), &ports.CachedFetch{}))
	clock.advance(2 * time.Minute)
	require.NoError(t, c.Put(ctx, testKey("MSFT"), &ports.CachedFetch{}))

	removed, err := c.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, c.Len())
}

func TestCache_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := New(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := testKey([]string{"AAPL", "MSFT", "GOOG"}[i%3])
			_ = c.Put(ctx, key, &ports.CachedFetch{})
			_, _ = c.Get(ctx, key)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 3, c.Len())
}
