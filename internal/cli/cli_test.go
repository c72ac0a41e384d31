package cli

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockanalyzer/config"
	"stockanalyzer/internal/adapters/logger"
	"stockanalyzer/internal/app"
	"stockanalyzer/internal/domain"
	"stockanalyzer/internal/indicators"
	"stockanalyzer/internal/ports"
)

type fakeSource struct {
	bars []domain.PriceBar
	meta domain.IssuerMetadata
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) FetchHistory(ctx context.Context, symbol string, period domain.Period) (*domain.PriceSeries, error) {
	return &domain.PriceSeries{Symbol: symbol, Period: period, Source: f.Name(), Bars: f.bars, FetchedAt: time.Now()}, nil
}

func (f *fakeSource) FetchMetadata(ctx context.Context, symbol string) (domain.IssuerMetadata, error) {
	return f.meta, nil
}

func risingBars(n int) []domain.PriceBar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.PriceBar, n)
	for i := range bars {
		c := 100 + float64(i)
		bars[i] = domain.PriceBar{
			Time:   start.AddDate(0, 0, i),
			Open:   c - 0.5,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1_000_000,
		}
	}
	return bars
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		bars: risingBars(60),
		meta: domain.NewIssuerMetadata(map[string]any{
			domain.FactLongName:      "Apple Inc.",
			domain.FactExchange:      "NMS",
			domain.FactSector:        "Technology",
			domain.FactMarketCap:     2.5e12,
			domain.FactPreviousClose: 158.0,
		}),
	}
}

// isolateEnv clears configuration variables the host environment may set.
func isolateEnv(t *testing.T) string {
	t.Helper()
	for _, key := range []string{
		"CONFIG_PATH", "DATA_SOURCE", "DEFAULT_PERIOD", "SMA_WINDOWS", "CACHE_DB_PATH",
		"EXPORT_DIR", "EXPORT_ASCENDING", "REFRESH_SYMBOLS", "REFRESH_CRON", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
	return filepath.Join(t.TempDir(), "missing.yaml")
}

func execute(t *testing.T, src ports.MarketDataSource, args ...string) (string, error) {
	t.Helper()
	cfgPath := isolateEnv(t)
	root := newRootCmd(func(*config.Config, string, ports.Logger) (ports.MarketDataSource, error) {
		return src, nil
	})
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append(args, "--config", cfgPath, "--log-level", "ERROR"))
	err := root.Execute()
	return out.String(), err
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestAnalyzeCommand(t *testing.T) {
	out, err := execute(t, newFakeSource(), "analyze", "aapl", "--period", "3mo")
	require.NoError(t, err)

	assert.Contains(t, out, "Apple Inc. (AAPL)")
	assert.Contains(t, out, "Exchange: NMS | Sector: Technology")
	assert.Contains(t, out, "$159.00")
	assert.Contains(t, out, "▲ $1.00 (0.63%)")
	assert.Contains(t, out, "Key Financial Metrics")
	assert.Contains(t, out, "2.50T")
	assert.Contains(t, out, "MA20")
	assert.Contains(t, out, "N/A (needs 200 bars)")
	assert.Contains(t, out, "RSI Zone")
	assert.Contains(t, out, "overbought")
	assert.Contains(t, out, "2024-02-29")
	assert.Contains(t, out, "No business summary available.")
}

func TestAnalyzeCommandSelectionAndExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "aapl.csv")
	out, err := execute(t, newFakeSource(), "analyze", "AAPL", "--indicators", "rsi", "--export", path, "--rows", "0")
	require.NoError(t, err)

	assert.NotContains(t, out, "MA20")
	assert.NotContains(t, out, "Historical Data")
	assert.Contains(t, out, "Data exported to "+path)

	records := readCSV(t, path)
	require.Len(t, records, 61)
	assert.Equal(t, []string{"Date", "Open", "High", "Low", "Close", "Volume", "RSI"}, records[0])
	assert.Equal(t, "2024-02-29", records[1][0], "most recent row first")
}

func TestAnalyzeCommandErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{"invalid symbol", []string{"analyze", "BAD$"}, ports.ErrInvalidSymbol},
		{"invalid period", []string{"analyze", "AAPL", "--period", "7d"}, ports.ErrInvalidPeriod},
		{"unknown indicator", []string{"analyze", "AAPL", "--indicators", "ma,vwap"}, ports.ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, newFakeSource(), tt.args...)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := execute(t, newFakeSource(), "analyze")
	assert.Error(t, err, "symbol argument is required")
}

func TestExportCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "msft.csv")
	out, err := execute(t, newFakeSource(), "export", "msft", "-o", path, "--ascending")
	require.NoError(t, err)
	assert.Equal(t, "Data exported to "+path+"\n", out)

	records := readCSV(t, path)
	require.Len(t, records, 61)
	assert.True(t, strings.HasPrefix(strings.Join(records[0], ","), "Date,Open,High,Low,Close,Volume,MA20,MA50,MA200,RSI"))
	assert.Equal(t, "2024-01-01", records[1][0])
	assert.Equal(t, "100.00", records[1][4])
	assert.Equal(t, "1000000", records[1][5])
}

func TestExportCommandDefaultPath(t *testing.T) {
	dir := t.TempDir()
	cfgPath := isolateEnv(t)
	t.Setenv("EXPORT_DIR", dir)

	root := newRootCmd(func(*config.Config, string, ports.Logger) (ports.MarketDataSource, error) {
		return newFakeSource(), nil
	})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"export", "tsla", "--config", cfgPath})
	require.NoError(t, root.Execute())

	assert.FileExists(t, filepath.Join(dir, "TSLA_historical_data.csv"))
}

func TestRefreshOnce(t *testing.T) {
	dir := t.TempDir()
	cfgPath := isolateEnv(t)
	t.Setenv("EXPORT_DIR", dir)
	t.Setenv("REFRESH_SYMBOLS", "aapl, msft")

	root := newRootCmd(func(*config.Config, string, ports.Logger) (ports.MarketDataSource, error) {
		return newFakeSource(), nil
	})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"refresh", "--once", "--config", cfgPath})
	require.NoError(t, root.Execute())

	assert.FileExists(t, filepath.Join(dir, "AAPL_historical_data.csv"))
	assert.FileExists(t, filepath.Join(dir, "MSFT_historical_data.csv"))
	assert.Equal(t, 2, strings.Count(out.String(), "Data exported to"))
}

func TestRefreshRequiresSymbols(t *testing.T) {
	_, err := execute(t, newFakeSource(), "refresh", "--once")
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrConfigurationError)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, newFakeSource(), "version")
	require.NoError(t, err)
	assert.Equal(t, "stockanalyzer version "+Version+"\n", out)
}

func TestApplySelection(t *testing.T) {
	base := indicators.DefaultConfig()

	tests := []struct {
		name      string
		selection string
		wantMA    bool
		rsi       bool
		macd      bool
		bollinger bool
		wantErr   bool
	}{
		{name: "empty keeps all", selection: "", wantMA: true, rsi: true, macd: true, bollinger: true},
		{name: "moving averages only", selection: "ma", wantMA: true},
		{name: "aliases and spacing", selection: " SMA , bb ", wantMA: true, bollinger: true},
		{name: "rsi and macd", selection: "rsi,macd", rsi: true, macd: true},
		{name: "unknown", selection: "rsi,obv", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := applySelection(base, tt.selection)
			if tt.wantErr {
				assert.ErrorIs(t, err, ports.ErrInvalidRequest)
				return
			}
			require.NoError(t, err)
			if tt.wantMA {
				assert.Equal(t, base.SMAWindows, got.SMAWindows)
			} else {
				assert.Empty(t, got.SMAWindows)
			}
			assert.Equal(t, tt.rsi, got.RSIEnabled)
			assert.Equal(t, tt.macd, got.MACDEnabled)
			assert.Equal(t, tt.bollinger, got.BollingerEnabled)
		})
	}
}

func TestNewSource(t *testing.T) {
	cfg := config.Defaults()
	log := logger.New(&bytes.Buffer{}, logger.LevelError)

	src, err := newSource(cfg, config.SourceYahoo, log)
	require.NoError(t, err)
	assert.Equal(t, "yahoo", src.Name())

	src, err = newSource(cfg, config.SourceBinance, log)
	require.NoError(t, err)
	assert.Equal(t, "binance", src.Name())

	_, err = newSource(cfg, "bloomberg", log)
	assert.ErrorIs(t, err, ports.ErrConfigurationError)
}

func TestNewCacheUsesSQLiteWhenPathSet(t *testing.T) {
	cfg := config.Defaults()
	log := logger.New(&bytes.Buffer{}, logger.LevelError)

	mem, err := newCache(cfg, log)
	require.NoError(t, err)
	assert.NoError(t, mem.Close())

	cfg.Cache.DBPath = filepath.Join(t.TempDir(), "cache.db")
	disk, err := newCache(cfg, log)
	require.NoError(t, err)
	defer disk.Close()
	assert.FileExists(t, cfg.Cache.DBPath)
}

func TestRenderReportDownDay(t *testing.T) {
	bars := risingBars(3)
	bars[2].Close = 99
	series := &domain.PriceSeries{Symbol: "XYZ", Period: domain.Period1Month, Source: "fake", Bars: bars}
	meta := domain.NewIssuerMetadata(nil)

	engine, err := indicators.NewEngine(indicators.DefaultConfig())
	require.NoError(t, err)
	quote, ok := app.NewQuoteSummary(series, meta)
	require.True(t, ok)

	analysis := &app.Analysis{
		Symbol:  "XYZ",
		Period:  domain.Period1Month,
		Source:  "fake",
		Series:  series,
		Result:  engine.Compute(series),
		Quote:   quote,
		Profile: app.NewProfile("XYZ", meta),
		Metrics: app.KeyMetrics(meta),
	}

	var buf bytes.Buffer
	require.NoError(t, RenderReport(&buf, analysis, 2))
	out := buf.String()

	assert.Contains(t, out, "XYZ (XYZ)")
	assert.Contains(t, out, "▼ $2.00 (-1.98%)")
	assert.Contains(t, out, "Market Cap")
	assert.Contains(t, out, "N/A")
	assert.Equal(t, 1, strings.Count(out, "2024-01-03"))
	assert.NotContains(t, out, "2024-01-01", "only two history rows are shown")
}

func TestRenderError(t *testing.T) {
	assert.Contains(t, RenderError(ports.ErrNoData), "Error: no data available")
}
