package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockanalyzer/internal/adapters/logger"
	"stockanalyzer/internal/domain"
)

var configEnvKeys = []string{
	"DATA_SOURCE", "DEFAULT_PERIOD", "SMA_WINDOWS", "RSI_PERIOD", "MACD_FAST", "MACD_SLOW",
	"MACD_SIGNAL", "BOLLINGER_PERIOD", "BOLLINGER_K", "CACHE_TTL_SECONDS", "CACHE_DB_PATH",
	"HTTP_TIMEOUT_SECONDS", "HTTP_RETRIES", "YAHOO_BASE_URL", "BINANCE_API_KEY",
	"BINANCE_API_SECRET", "BINANCE_TESTNET", "EXPORT_DIR", "EXPORT_ASCENDING",
	"REFRESH_CRON", "REFRESH_SYMBOLS", "LOG_LEVEL",
}

// clearEnv blanks every key the loader reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnvKeys {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, SourceYahoo, cfg.DataSource)
	assert.Equal(t, domain.Period1Year, cfg.Period())
	assert.Equal(t, []int{20, 50, 200}, cfg.Indicators.SMAWindows)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL())
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout())
	assert.Equal(t, logger.LevelInfo, cfg.LogLevel)
	assert.Empty(t, cfg.Cache.DBPath)

	ic := cfg.IndicatorConfig()
	assert.True(t, ic.RSIEnabled)
	assert.Equal(t, 14, ic.RSI.Period)
	assert.Equal(t, 2.0, ic.Bollinger.K)
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
data_source: binance
default_period: 6MO
indicators:
  sma_windows: [10, 30]
  rsi_period: 21
cache:
  ttl_seconds: 60
  db_path: /tmp/cache.db
refresh:
  symbols: [btcusdt, ethusdt]
log_level: debug
`)
	t.Setenv("RSI_PERIOD", "9")
	t.Setenv("EXPORT_DIR", "/tmp/exports")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, SourceBinance, cfg.DataSource)
	assert.Equal(t, domain.Period6Months, cfg.Period())
	assert.Equal(t, []int{10, 30}, cfg.Indicators.SMAWindows)
	assert.Equal(t, 9, cfg.Indicators.RSIPeriod, "env overrides file")
	assert.Equal(t, time.Minute, cfg.CacheTTL())
	assert.Equal(t, "/tmp/cache.db", cfg.Cache.DBPath)
	assert.Equal(t, "/tmp/exports", cfg.Export.Dir)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, cfg.Refresh.Symbols)
	assert.Equal(t, logger.LevelDebug, cfg.LogLevel)
}

func TestLoad_EnvLists(t *testing.T) {
	clearEnv(t)
	t.Setenv("SMA_WINDOWS", "5, 15 ,45")
	t.Setenv("REFRESH_SYMBOLS", "aapl, msft,,brk.b")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []int{5, 15, 45}, cfg.Indicators.SMAWindows)
	assert.Equal(t, []string{"AAPL", "MSFT", "BRK.B"}, cfg.Refresh.Symbols)
}

func TestLoad_CollectsAllErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATA_SOURCE", "bloomberg")
	t.Setenv("DEFAULT_PERIOD", "10y")
	t.Setenv("RSI_PERIOD", "fourteen")
	t.Setenv("MACD_FAST", "30")
	t.Setenv("CACHE_TTL_SECONDS", "0")
	t.Setenv("REFRESH_SYMBOLS", "AAPL,BAD SYMBOL")

	_, err := Load("")
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{
		"DATA_SOURCE must be",
		"invalid DEFAULT_PERIOD",
		"invalid RSI_PERIOD",
		"MACD fast span (30) must be less than slow span (26)",
		"CACHE_TTL_SECONDS must be positive",
		"invalid REFRESH_SYMBOLS entry",
	} {
		assert.Contains(t, msg, want)
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeFile(t, "indicators: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}
