package ports

import (
	"context"

	"stockanalyzer/internal/domain"
)

// MarketDataSource retrieves price history and issuer facts for a symbol.
// Implementations return bars already normalized (ascending, unique timestamps).
type MarketDataSource interface {
	// Name identifies the source (e.g. "yahoo", "binance"); it is part of cache keys.
	Name() string

	// FetchHistory returns daily bars covering the requested period.
	// An empty history is reported as ErrNoData.
	FetchHistory(ctx context.Context, symbol string, period domain.Period) (*domain.PriceSeries, error)

	// FetchMetadata returns whatever issuer facts the source knows about.
	// Missing facts are not an error; an unknown symbol may still be.
	FetchMetadata(ctx context.Context, symbol string) (domain.IssuerMetadata, error)
}
