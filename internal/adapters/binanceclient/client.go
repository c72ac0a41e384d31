package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"stockanalyzer/internal/domain"
	"stockanalyzer/internal/ports"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/shopspring/decimal"
)

const (
	// Base URLs
	baseURLProduction = "https://api.binance.com"
	baseURLTestnet    = "https://testnet.binance.vision"

	// SourceName identifies this data source in cache keys and reports.
	SourceName = "binance"

	dailyInterval = "1d"
	maxLimit      = 1000
)

// spotLaunch bounds "max" history requests; there are no klines before it.
var spotLaunch = time.Date(2017, time.July, 1, 0, 0, 0, 0, time.UTC)

// Client implements ports.MarketDataSource on the Binance spot market using
// the go-binance library. Only public market-data endpoints are used.
type Client struct {
	spotClient *binance.Client
	logger     ports.Logger
	now        func() time.Time
}

// Compile-time check
var _ ports.MarketDataSource = (*Client)(nil)

// Config holds configuration specific to the Binance client adapter.
type Config struct {
	APIKey     string
	SecretKey  string
	UseTestnet bool
	BaseURL    string // Overrides the production/testnet URL when set
	Timeout    time.Duration
	Logger     ports.Logger
}

// New creates a new Binance client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}

	client := binance.NewClient(cfg.APIKey, cfg.SecretKey)
	switch {
	case cfg.BaseURL != "":
		client.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	case cfg.UseTestnet:
		client.BaseURL = baseURLTestnet
	default:
		client.BaseURL = baseURLProduction
	}
	if cfg.Timeout > 0 {
		client.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	cfg.Logger.Debug(context.Background(), "Binance client configured", map[string]interface{}{"baseURL": client.BaseURL})

	return &Client{
		spotClient: client,
		logger:     cfg.Logger,
		now:        time.Now,
	}, nil
}

// Name returns the source name.
func (c *Client) Name() string { return SourceName }

// handleError translates common Binance API errors into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message

		var mappedErr error
		switch apiErr.Code {
		case -1003: // Too many requests
			mappedErr = ports.ErrRateLimited
		case -1007: // Timeout waiting for response from backend server
			mappedErr = ports.ErrTimeout
		case -1121: // Invalid symbol
			mappedErr = ports.ErrInvalidSymbol
		case -1100, -1101, -1102, -1103, -1104, -1105, -1106, -1111, -1115, -1120, -1127, -1128, -1130: // Parameter/Request format errors
			mappedErr = ports.ErrInvalidRequest
		default:
			mappedErr = ports.ErrUnknown
		}
		c.logger.Error(ctx, err, fmt.Sprintf("%s failed with API error", operation), fields)
		return fmt.Errorf("%s failed: %w: %w", operation, mappedErr, err)
	}

	// Sentinel errors raised inside the adapter pass through unchanged.
	for _, sentinel := range []error{ports.ErrNoData, ports.ErrUnexpectedResponse} {
		if errors.Is(err, sentinel) {
			c.logger.Warn(ctx, fmt.Sprintf("%s failed", operation), fields)
			return fmt.Errorf("%s failed: %w", operation, err)
		}
	}

	var finalErr error
	if errors.Is(err, context.DeadlineExceeded) {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	} else if errors.Is(err, context.Canceled) {
		finalErr = fmt.Errorf("%s operation canceled: %w: %w", operation, ports.ErrContextCanceled, err)
	} else if strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "connection reset by peer") ||
		strings.Contains(err.Error(), "no such host") {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrConnectionFailed, err)
	} else {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrUnknown, err)
	}

	c.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	return finalErr
}

// FetchHistory pages through daily klines covering the period.
func (c *Client) FetchHistory(ctx context.Context, symbol string, period domain.Period) (*domain.PriceSeries, error) {
	op := "FetchHistory"
	end := c.now()
	from := period.Start(end)
	if from.Before(spotLaunch) {
		from = spotLaunch
	}

	var bars []domain.PriceBar
	for {
		klines, err := c.spotClient.NewKlinesService().
			Symbol(symbol).
			Interval(dailyInterval).
			StartTime(from.UnixMilli()).
			EndTime(end.UnixMilli()).
			Limit(maxLimit).
			Do(ctx)
		if err != nil {
			return nil, c.handleError(ctx, err, op)
		}
		if len(klines) == 0 {
			break
		}
		for _, bk := range klines {
			bar, err := translateBinanceKline(bk)
			if err != nil {
				return nil, c.handleError(ctx, fmt.Errorf("%w: %w", ports.ErrUnexpectedResponse, err), op)
			}
			bars = append(bars, bar)
		}
		last := klines[len(klines)-1]
		from = time.UnixMilli(last.CloseTime + 1)
		if from.After(end) || len(klines) < maxLimit {
			break
		}
	}

	if len(bars) == 0 {
		return nil, c.handleError(ctx, fmt.Errorf("%w for %s", ports.ErrNoData, symbol), op)
	}

	c.logger.Debug(ctx, op+" successful", map[string]interface{}{"symbol": symbol, "period": period.String(), "bars": len(bars)})
	return &domain.PriceSeries{
		Symbol:    symbol,
		Period:    period,
		Source:    SourceName,
		Bars:      domain.NormalizeBars(bars),
		FetchedAt: end,
	}, nil
}

// FetchMetadata reports the facts available from 24h ticker statistics.
// Fundamentals such as P/E or market cap do not exist for spot pairs.
func (c *Client) FetchMetadata(ctx context.Context, symbol string) (domain.IssuerMetadata, error) {
	op := "FetchMetadata"
	stats, err := c.spotClient.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
	if err != nil {
		return domain.IssuerMetadata{}, c.handleError(ctx, err, op)
	}
	if len(stats) == 0 {
		return domain.IssuerMetadata{}, c.handleError(ctx, fmt.Errorf("%w: no ticker data returned for symbol %s", ports.ErrNoData, symbol), op)
	}

	s := stats[0]
	facts := map[string]any{
		domain.FactLongName: symbol,
		domain.FactExchange: "Binance",
	}
	for key, raw := range map[string]string{
		domain.FactPreviousClose: s.PrevClosePrice,
		domain.FactVolume:        s.Volume,
	} {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			c.logger.Warn(ctx, "Ignoring unparsable ticker field", map[string]interface{}{"symbol": symbol, "field": key, "value": raw})
			continue
		}
		facts[key] = d
	}
	return domain.NewIssuerMetadata(facts), nil
}

// translateBinanceKline converts a spot kline into a domain bar.
// Prices arrive as decimal strings and are parsed exactly before conversion.
func translateBinanceKline(bk *binance.Kline) (domain.PriceBar, error) {
	fields := [...]struct {
		name string
		raw  string
	}{
		{"open", bk.Open}, {"high", bk.High}, {"low", bk.Low}, {"close", bk.Close}, {"volume", bk.Volume},
	}
	var values [5]float64
	for i, f := range fields {
		d, err := decimal.NewFromString(f.raw)
		if err != nil {
			return domain.PriceBar{}, fmt.Errorf("could not parse kline %s '%s': %w", f.name, f.raw, err)
		}
		values[i] = d.InexactFloat64()
	}

	return domain.PriceBar{
		Time:   time.UnixMilli(bk.OpenTime).UTC(),
		Open:   values[0],
		High:   values[1],
		Low:    values[2],
		Close:  values[3],
		Volume: values[4],
	}, nil
}
