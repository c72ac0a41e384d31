package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stockanalyzer/internal/domain"
	"stockanalyzer/internal/indicators"
	"stockanalyzer/internal/ports"
)

// Analysis is everything produced for one symbol and period.
type Analysis struct {
	Symbol    string
	Period    domain.Period
	Source    string
	Series    *domain.PriceSeries
	Metadata  domain.IssuerMetadata
	Result    *indicators.Result
	Quote     QuoteSummary
	Profile   Profile
	Metrics   []Metric
	FromCache bool
}

// Analyzer fetches price history through a data source, consulting the
// series cache first, and derives indicators from it.
type Analyzer struct {
	logger ports.Logger
	source ports.MarketDataSource
	cache  ports.SeriesCache
	engine *indicators.Engine
}

// NewAnalyzer creates an analyzer. cache may be nil to disable caching.
func NewAnalyzer(logger ports.Logger, source ports.MarketDataSource, cache ports.SeriesCache, engine *indicators.Engine) (*Analyzer, error) {
	if logger == nil || source == nil || engine == nil {
		return nil, fmt.Errorf("missing required dependencies for Analyzer")
	}
	return &Analyzer{
		logger: logger,
		source: source,
		cache:  cache,
		engine: engine,
	}, nil
}

// Source returns the name of the underlying data source.
func (a *Analyzer) Source() string { return a.source.Name() }

// Analyze validates the request, loads the series and metadata, and computes
// every configured indicator. Only retrieval and validation can fail.
func (a *Analyzer) Analyze(ctx context.Context, symbol string, period domain.Period) (*Analysis, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if err := domain.ValidateSymbol(symbol); err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrInvalidSymbol, err)
	}
	period, err := domain.ParsePeriod(string(period))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrInvalidPeriod, err)
	}

	ctx = ports.WithFields(ctx, map[string]interface{}{"symbol": symbol, "period": period.String(), "source": a.source.Name()})
	series, meta, fromCache, err := a.load(ctx, symbol, period)
	if err != nil {
		a.logger.Error(ctx, err, "Failed to load price history")
		return nil, err
	}

	res := a.engine.Compute(series)
	quote, _ := NewQuoteSummary(series, meta)
	a.logger.Info(ctx, "Analysis complete", map[string]interface{}{"bars": series.Len(), "cached": fromCache})

	return &Analysis{
		Symbol:    symbol,
		Period:    period,
		Source:    a.source.Name(),
		Series:    series,
		Metadata:  meta,
		Result:    res,
		Quote:     quote,
		Profile:   NewProfile(symbol, meta),
		Metrics:   KeyMetrics(meta),
		FromCache: fromCache,
	}, nil
}

func (a *Analyzer) load(ctx context.Context, symbol string, period domain.Period) (*domain.PriceSeries, domain.IssuerMetadata, bool, error) {
	key := ports.CacheKey{Source: a.source.Name(), Symbol: symbol, Period: period}

	if a.cache != nil {
		entry, err := a.cache.Get(ctx, key)
		if err != nil {
			a.logger.Warn(ctx, "Cache lookup failed, fetching from source", map[string]interface{}{"key": key.String(), "error": err.Error()})
		} else if entry != nil && entry.Series.Len() > 0 {
			a.logger.Debug(ctx, "Cache hit", map[string]interface{}{"key": key.String()})
			return entry.Series, entry.Metadata, true, nil
		}
	}

	series, err := a.source.FetchHistory(ctx, symbol, period)
	if err != nil {
		return nil, domain.IssuerMetadata{}, false, fmt.Errorf("error retrieving data for %s: %w", symbol, err)
	}
	if series.Len() == 0 {
		return nil, domain.IssuerMetadata{}, false, fmt.Errorf("%w for %s", ports.ErrNoData, symbol)
	}
	if err := series.Validate(); err != nil {
		return nil, domain.IssuerMetadata{}, false, fmt.Errorf("%w: %s: %w", ports.ErrInvalidSeries, symbol, err)
	}

	// Missing metadata only degrades the report to N/A values.
	meta, err := a.source.FetchMetadata(ctx, symbol)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, ports.ErrContextCanceled) {
			return nil, domain.IssuerMetadata{}, false, err
		}
		a.logger.Warn(ctx, "Issuer metadata unavailable", map[string]interface{}{"symbol": symbol, "error": err.Error()})
		meta = domain.NewIssuerMetadata(nil)
	}

	if a.cache != nil {
		entry := &ports.CachedFetch{Series: series, Metadata: meta, StoredAt: time.Now()}
		if err := a.cache.Put(ctx, key, entry); err != nil {
			a.logger.Warn(ctx, "Failed to cache fetch", map[string]interface{}{"key": key.String(), "error": err.Error()})
		}
	}
	return series, meta, false, nil
}
