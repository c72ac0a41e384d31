// Package yahoo implements ports.MarketDataSource on Yahoo Finance: daily
// history from the v8 chart API, issuer facts from the quote API and the
// company profile from the quoteSummary API.
package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/piquette/finance-go"
	"github.com/piquette/finance-go/equity"
	"github.com/shopspring/decimal"

	"stockanalyzer/internal/domain"
	"stockanalyzer/internal/ports"
)

const (
	// SourceName identifies this data source in cache keys and reports.
	SourceName = "yahoo"

	// DefaultBaseURL is the public chart API host.
	DefaultBaseURL = "https://query1.finance.yahoo.com"

	chartPath   = "/v8/finance/chart/{symbol}"
	summaryPath = "/v10/finance/quoteSummary/{symbol}"
)

// equityFunc fetches quote-level facts for a symbol.
type equityFunc func(symbol string) (*finance.Equity, error)

// Client implements ports.MarketDataSource against Yahoo Finance.
type Client struct {
	http   *resty.Client
	equity equityFunc
	logger ports.Logger
}

// Compile-time check
var _ ports.MarketDataSource = (*Client)(nil)

// Config holds configuration for the Yahoo client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Retries int
	Logger  ports.Logger
}

// New creates a Yahoo Finance client.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Yahoo client")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("User-Agent", "Mozilla/5.0").
		SetHeader("Accept", "application/json").
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return r != nil && (r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError)
		})

	return &Client{
		http:   client,
		equity: equity.Get,
		logger: cfg.Logger,
	}, nil
}

// Name returns the source name.
func (c *Client) Name() string { return SourceName }

// chartResponse is the subset of the chart API payload that is consumed.
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta       chartMeta `json:"meta"`
	Timestamp  []int64   `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

type chartMeta struct {
	Currency             string       `json:"currency"`
	Symbol               string       `json:"symbol"`
	ExchangeName         string       `json:"exchangeName"`
	FullExchangeName     string       `json:"fullExchangeName"`
	LongName             string       `json:"longName"`
	ShortName            string       `json:"shortName"`
	GMTOffset            int          `json:"gmtoffset"`
	ExchangeTimezoneName string       `json:"exchangeTimezoneName"`
	RegularMarketPrice   *json.Number `json:"regularMarketPrice"`
	RegularMarketVolume  *json.Number `json:"regularMarketVolume"`
	PreviousClose        *json.Number `json:"previousClose"`
	ChartPreviousClose   *json.Number `json:"chartPreviousClose"`
	FiftyTwoWeekHigh     *json.Number `json:"fiftyTwoWeekHigh"`
	FiftyTwoWeekLow      *json.Number `json:"fiftyTwoWeekLow"`
}

// fetchChart requests daily bars for the given range token.
func (c *Client) fetchChart(ctx context.Context, op, symbol, rng string) (*chartResult, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("symbol", symbol).
		SetQueryParams(map[string]string{
			"interval": "1d",
			"range":    rng,
		}).
		Get(chartPath)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	var chart chartResponse
	decodeErr := json.Unmarshal(resp.Body(), &chart)

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, c.handleError(ctx, fmt.Errorf("%w: %s", ports.ErrNotFound, describe(chart.Chart.Error, resp)), op)
	case resp.StatusCode() == http.StatusTooManyRequests:
		return nil, c.handleError(ctx, fmt.Errorf("%w: status %d", ports.ErrRateLimited, resp.StatusCode()), op)
	case resp.StatusCode() != http.StatusOK:
		return nil, c.handleError(ctx, fmt.Errorf("%w: %s", ports.ErrUnexpectedResponse, describe(chart.Chart.Error, resp)), op)
	case decodeErr != nil:
		return nil, c.handleError(ctx, fmt.Errorf("%w: decode chart: %w", ports.ErrUnexpectedResponse, decodeErr), op)
	case chart.Chart.Error != nil:
		return nil, c.handleError(ctx, fmt.Errorf("%w: %s", ports.ErrNotFound, chart.Chart.Error.Description), op)
	case len(chart.Chart.Result) == 0:
		return nil, c.handleError(ctx, fmt.Errorf("%w for %s", ports.ErrNoData, symbol), op)
	}
	return &chart.Chart.Result[0], nil
}

func describe(e *chartError, resp *resty.Response) string {
	if e != nil && e.Description != "" {
		return e.Description
	}
	return fmt.Sprintf("status %d", resp.StatusCode())
}

// FetchHistory returns daily bars for the period. The period token doubles as
// the chart API range parameter.
func (c *Client) FetchHistory(ctx context.Context, symbol string, period domain.Period) (*domain.PriceSeries, error) {
	op := "FetchHistory"
	result, err := c.fetchChart(ctx, op, symbol, period.String())
	if err != nil {
		return nil, err
	}

	bars, err := translateChart(result)
	if err != nil {
		return nil, c.handleError(ctx, fmt.Errorf("%w: %w", ports.ErrUnexpectedResponse, err), op)
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
		FetchedAt: time.Now(),
	}, nil
}

// translateChart converts the chart arrays into bars dated by the exchange's
// session day. Entries without a close (holidays, halted sessions) are skipped.
func translateChart(r *chartResult) ([]domain.PriceBar, error) {
	if len(r.Timestamp) == 0 {
		return nil, nil
	}
	if len(r.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("chart result has timestamps but no quote arrays")
	}
	q := r.Indicators.Quote[0]
	n := len(r.Timestamp)
	if len(q.Close) != n || len(q.Open) != n || len(q.High) != n || len(q.Low) != n {
		return nil, fmt.Errorf("chart arrays are misaligned with %d timestamps", n)
	}

	zone := time.FixedZone(r.Meta.ExchangeTimezoneName, r.Meta.GMTOffset)
	bars := make([]domain.PriceBar, 0, n)
	for i, ts := range r.Timestamp {
		if q.Close[i] == nil {
			continue
		}
		closePrice := *q.Close[i]
		local := time.Unix(ts, 0).In(zone)
		bars = append(bars, domain.PriceBar{
			Time:   time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC),
			Open:   valueOr(q.Open[i], closePrice),
			High:   valueOr(q.High[i], closePrice),
			Low:    valueOr(q.Low[i], closePrice),
			Close:  closePrice,
			Volume: valueOr(at(q.Volume, i), 0),
		})
	}
	return bars, nil
}

func at(values []*float64, i int) *float64 {
	if i < len(values) {
		return values[i]
	}
	return nil
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

// FetchMetadata returns issuer facts from the quote API. When the quote API
// is unavailable the chart metadata is used instead, which carries fewer facts.
// Sector, beta and business summary are added from the quoteSummary API when
// it answers.
func (c *Client) FetchMetadata(ctx context.Context, symbol string) (domain.IssuerMetadata, error) {
	op := "FetchMetadata"
	var facts map[string]any

	if eq, err := c.equity(symbol); err == nil && eq != nil {
		facts = equityFacts(eq)
	} else {
		if err != nil {
			c.logger.Warn(ctx, "Quote API unavailable, falling back to chart metadata", map[string]interface{}{"symbol": symbol, "error": err.Error()})
		}
		result, err := c.fetchChart(ctx, op, symbol, "5d")
		if err != nil {
			return domain.IssuerMetadata{}, err
		}
		facts = chartFacts(&result.Meta)
	}

	profile, err := c.fetchProfile(ctx, symbol)
	if err != nil {
		if ctx.Err() != nil {
			return domain.IssuerMetadata{}, c.handleError(ctx, ctx.Err(), op)
		}
		c.logger.Debug(ctx, "Company profile unavailable", map[string]interface{}{"symbol": symbol, "error": err.Error()})
	}
	for k, v := range profile {
		facts[k] = v
	}
	return domain.NewIssuerMetadata(facts), nil
}

// putNonZero stores v under key unless it is zero. The quote API decodes
// omitted numbers as zero.
func putNonZero(facts map[string]any, key string, v float64) {
	if v != 0 {
		facts[key] = v
	}
}

func equityFacts(eq *finance.Equity) map[string]any {
	name := eq.LongName
	if name == "" {
		name = eq.ShortName
	}
	facts := map[string]any{
		domain.FactLongName: name,
		domain.FactExchange: eq.FullExchangeName,
		domain.FactCurrency: eq.CurrencyID,
	}
	putNonZero(facts, domain.FactMarketCap, float64(eq.MarketCap))
	putNonZero(facts, domain.FactVolume, float64(eq.RegularMarketVolume))
	putNonZero(facts, domain.FactTrailingPE, eq.TrailingPE)
	putNonZero(facts, domain.FactTrailingEPS, eq.EpsTrailingTwelveMonths)
	putNonZero(facts, domain.FactDividendYield, eq.TrailingAnnualDividendYield)
	putNonZero(facts, domain.FactFiftyTwoWeekHi, eq.FiftyTwoWeekHigh)
	putNonZero(facts, domain.FactFiftyTwoWeekLo, eq.FiftyTwoWeekLow)
	putNonZero(facts, domain.FactPreviousClose, eq.RegularMarketPreviousClose)
	return facts
}

func chartFacts(m *chartMeta) map[string]any {
	name := m.LongName
	if name == "" {
		name = m.ShortName
	}
	exchange := m.FullExchangeName
	if exchange == "" {
		exchange = m.ExchangeName
	}
	facts := map[string]any{
		domain.FactLongName: name,
		domain.FactExchange: exchange,
		domain.FactCurrency: m.Currency,
	}
	for key, n := range map[string]*json.Number{
		domain.FactVolume:         m.RegularMarketVolume,
		domain.FactPreviousClose:  m.PreviousClose,
		domain.FactFiftyTwoWeekHi: m.FiftyTwoWeekHigh,
		domain.FactFiftyTwoWeekLo: m.FiftyTwoWeekLow,
	} {
		if n == nil {
			continue
		}
		if d, err := decimal.NewFromString(n.String()); err == nil {
			facts[key] = d
		}
	}
	return facts
}

// summaryResponse is the subset of the quoteSummary payload that is consumed.
type summaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			AssetProfile struct {
				Sector              string `json:"sector"`
				LongBusinessSummary string `json:"longBusinessSummary"`
			} `json:"assetProfile"`
			SummaryDetail struct {
				Beta struct {
					Raw *json.Number `json:"raw"`
				} `json:"beta"`
			} `json:"summaryDetail"`
		} `json:"result"`
		Error *chartError `json:"error"`
	} `json:"quoteSummary"`
}

// fetchProfile reads sector, business summary and beta. Errors are returned
// unmapped; a missing profile only leaves those facts unavailable.
func (c *Client) fetchProfile(ctx context.Context, symbol string) (map[string]any, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("symbol", symbol).
		SetQueryParam("modules", "assetProfile,summaryDetail").
		Get(summaryPath)
	if err != nil {
		return nil, err
	}

	var body summaryResponse
	decodeErr := json.Unmarshal(resp.Body(), &body)
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", ports.ErrUnexpectedResponse, describe(body.QuoteSummary.Error, resp))
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: decode profile: %w", ports.ErrUnexpectedResponse, decodeErr)
	}
	if len(body.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("%w: empty profile for %s", ports.ErrNoData, symbol)
	}

	r := body.QuoteSummary.Result[0]
	facts := map[string]any{}
	if r.AssetProfile.Sector != "" {
		facts[domain.FactSector] = r.AssetProfile.Sector
	}
	if r.AssetProfile.LongBusinessSummary != "" {
		facts[domain.FactBusinessSummary] = r.AssetProfile.LongBusinessSummary
	}
	if raw := r.SummaryDetail.Beta.Raw; raw != nil {
		if d, err := decimal.NewFromString(raw.String()); err == nil && !d.IsZero() {
			facts[domain.FactBeta] = d
		}
	}
	return facts, nil
}

// handleError maps transport failures onto ports errors, passing through
// errors that already carry a ports sentinel.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}
	fields := map[string]interface{}{"operation": operation}

	for _, sentinel := range []error{
		ports.ErrNotFound, ports.ErrNoData, ports.ErrRateLimited, ports.ErrUnexpectedResponse,
	} {
		if errors.Is(err, sentinel) {
			c.logger.Warn(ctx, fmt.Sprintf("%s failed", operation), map[string]interface{}{"operation": operation, "error": err.Error()})
			return fmt.Errorf("%s failed: %w", operation, err)
		}
	}

	var finalErr error
	if errors.Is(err, context.DeadlineExceeded) {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	} else if errors.Is(err, context.Canceled) {
		finalErr = fmt.Errorf("%s operation canceled: %w: %w", operation, ports.ErrContextCanceled, err)
	} else if isTimeout(err) {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	} else {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrConnectionFailed, err)
	}

	c.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	return finalErr
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
