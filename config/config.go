package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"stockanalyzer/internal/adapters/logger"
	"stockanalyzer/internal/domain"
	"stockanalyzer/internal/indicators"
)

// Supported data sources.
const (
	SourceYahoo   = "yahoo"
	SourceBinance = "binance"
)

// DefaultConfigPath is read when CONFIG_PATH is not set. A missing file is not an error.
const DefaultConfigPath = "config.yaml"

// Config holds all application configuration.
type Config struct {
	DataSource    string `yaml:"data_source"`
	DefaultPeriod string `yaml:"default_period"`

	Indicators struct {
		SMAWindows      []int   `yaml:"sma_windows"`
		RSIPeriod       int     `yaml:"rsi_period"`
		MACDFast        int     `yaml:"macd_fast"`
		MACDSlow        int     `yaml:"macd_slow"`
		MACDSignal      int     `yaml:"macd_signal"`
		BollingerPeriod int     `yaml:"bollinger_period"`
		BollingerK      float64 `yaml:"bollinger_k"`
	} `yaml:"indicators"`

	Cache struct {
		TTLSeconds int    `yaml:"ttl_seconds"`
		DBPath     string `yaml:"db_path"` // Empty keeps the cache in memory
	} `yaml:"cache"`

	HTTP struct {
		TimeoutSeconds int `yaml:"timeout_seconds"`
		Retries        int `yaml:"retries"`
	} `yaml:"http"`

	Yahoo struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"yahoo"`

	// Binance API. Keys are optional: only public market data is read.
	Binance struct {
		APIKey     string `yaml:"api_key"`
		SecretKey  string `yaml:"secret_key"`
		UseTestnet bool   `yaml:"use_testnet"`
	} `yaml:"binance"`

	Export struct {
		Dir       string `yaml:"dir"`
		Ascending bool   `yaml:"ascending"`
	} `yaml:"export"`

	Refresh struct {
		Cron    string   `yaml:"cron"`
		Symbols []string `yaml:"symbols"`
	} `yaml:"refresh"`

	LogLevelName string          `yaml:"log_level"`
	LogLevel     logger.LogLevel `yaml:"-"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() *Config {
	cfg := &Config{
		DataSource:    SourceYahoo,
		DefaultPeriod: string(domain.DefaultPeriod),
		LogLevelName:  "INFO",
	}
	cfg.Indicators.SMAWindows = []int{20, 50, 200}
	cfg.Indicators.RSIPeriod = 14
	cfg.Indicators.MACDFast = 12
	cfg.Indicators.MACDSlow = 26
	cfg.Indicators.MACDSignal = 9
	cfg.Indicators.BollingerPeriod = 20
	cfg.Indicators.BollingerK = 2
	cfg.Cache.TTLSeconds = 300
	cfg.HTTP.TimeoutSeconds = 30
	cfg.HTTP.Retries = 2
	cfg.Export.Dir = "."
	cfg.Refresh.Cron = "0 0 18 * * 1-5"
	return cfg
}

// LoadConfig loads .env (if present), then the YAML file named by CONFIG_PATH,
// then environment variable overrides.
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()
	return Load(getEnv("CONFIG_PATH", DefaultConfigPath))
}

// Load builds the configuration from defaults, the YAML file at path (optional)
// and environment overrides, and validates the result. All problems are
// reported together.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	errs := applyEnv(cfg)
	errs = append(errs, cfg.validate()...)

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

// applyEnv overrides file values with environment variables.
func applyEnv(cfg *Config) []string {
	var errs []string
	var err error

	cfg.DataSource = getEnv("DATA_SOURCE", cfg.DataSource)
	cfg.DefaultPeriod = getEnv("DEFAULT_PERIOD", cfg.DefaultPeriod)

	if v := os.Getenv("SMA_WINDOWS"); v != "" {
		windows, err := parseIntList(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid SMA_WINDOWS: %v", err))
		} else {
			cfg.Indicators.SMAWindows = windows
		}
	}
	for _, item := range []struct {
		key string
		dst *int
	}{
		{"RSI_PERIOD", &cfg.Indicators.RSIPeriod},
		{"MACD_FAST", &cfg.Indicators.MACDFast},
		{"MACD_SLOW", &cfg.Indicators.MACDSlow},
		{"MACD_SIGNAL", &cfg.Indicators.MACDSignal},
		{"BOLLINGER_PERIOD", &cfg.Indicators.BollingerPeriod},
		{"CACHE_TTL_SECONDS", &cfg.Cache.TTLSeconds},
		{"HTTP_TIMEOUT_SECONDS", &cfg.HTTP.TimeoutSeconds},
		{"HTTP_RETRIES", &cfg.HTTP.Retries},
	} {
		if *item.dst, err = getEnvAsIntRequired(item.key, *item.dst); err != nil {
			errs = append(errs, fmt.Sprintf("invalid %s: %v", item.key, err))
		}
	}
	if cfg.Indicators.BollingerK, err = getEnvAsFloatRequired("BOLLINGER_K", cfg.Indicators.BollingerK); err != nil {
		errs = append(errs, fmt.Sprintf("invalid BOLLINGER_K: %v", err))
	}

	cfg.Cache.DBPath = getEnv("CACHE_DB_PATH", cfg.Cache.DBPath)
	cfg.Yahoo.BaseURL = getEnv("YAHOO_BASE_URL", cfg.Yahoo.BaseURL)
	cfg.Binance.APIKey = getEnv("BINANCE_API_KEY", cfg.Binance.APIKey)
	cfg.Binance.SecretKey = getEnv("BINANCE_API_SECRET", cfg.Binance.SecretKey)
	cfg.Binance.UseTestnet = getEnvAsBool("BINANCE_TESTNET", cfg.Binance.UseTestnet)
	cfg.Export.Dir = getEnv("EXPORT_DIR", cfg.Export.Dir)
	cfg.Export.Ascending = getEnvAsBool("EXPORT_ASCENDING", cfg.Export.Ascending)
	cfg.Refresh.Cron = getEnv("REFRESH_CRON", cfg.Refresh.Cron)
	if v := os.Getenv("REFRESH_SYMBOLS"); v != "" {
		cfg.Refresh.Symbols = splitList(v)
	}
	cfg.LogLevelName = getEnv("LOG_LEVEL", cfg.LogLevelName)

	return errs
}

// validate normalizes values in place and returns every problem found.
func (c *Config) validate() []string {
	var errs []string

	c.DataSource = strings.ToLower(strings.TrimSpace(c.DataSource))
	if c.DataSource != SourceYahoo && c.DataSource != SourceBinance {
		errs = append(errs, fmt.Sprintf("DATA_SOURCE must be %q or %q, got %q", SourceYahoo, SourceBinance, c.DataSource))
	}

	if p, err := domain.ParsePeriod(c.DefaultPeriod); err != nil {
		errs = append(errs, fmt.Sprintf("invalid DEFAULT_PERIOD: %v", err))
	} else {
		c.DefaultPeriod = string(p)
	}

	if err := c.IndicatorConfig().Validate(); err != nil {
		errs = append(errs, err.Error())
	}

	if c.Cache.TTLSeconds <= 0 {
		errs = append(errs, "CACHE_TTL_SECONDS must be positive")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		errs = append(errs, "HTTP_TIMEOUT_SECONDS must be positive")
	}
	if c.HTTP.Retries < 0 {
		errs = append(errs, "HTTP_RETRIES cannot be negative")
	}

	for i, s := range c.Refresh.Symbols {
		c.Refresh.Symbols[i] = domain.NormalizeSymbol(s)
		if err := domain.ValidateSymbol(c.Refresh.Symbols[i]); err != nil {
			errs = append(errs, fmt.Sprintf("invalid REFRESH_SYMBOLS entry: %v", err))
		}
	}

	c.LogLevel = logger.ParseLevel(c.LogLevelName)
	return errs
}

// Period returns the validated default period.
func (c *Config) Period() domain.Period {
	return domain.Period(c.DefaultPeriod)
}

// IndicatorConfig converts the indicator settings into an engine configuration
// with every indicator enabled.
func (c *Config) IndicatorConfig() indicators.Config {
	ic := indicators.DefaultConfig()
	ic.SMAWindows = append([]int(nil), c.Indicators.SMAWindows...)
	ic.RSI.Period = c.Indicators.RSIPeriod
	ic.MACD = indicators.MACDConfig{Fast: c.Indicators.MACDFast, Slow: c.Indicators.MACDSlow, Signal: c.Indicators.MACDSignal}
	ic.Bollinger.Period = c.Indicators.BollingerPeriod
	ic.Bollinger.K = c.Indicators.BollingerK
	return ic
}

// CacheTTL returns the cache time-to-live.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// HTTPTimeout returns the per-request timeout for data sources.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(valueStr))
	if err != nil {
		return defaultValue, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(valueStr), 64)
	if err != nil {
		return defaultValue, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseIntList(s string) ([]int, error) {
	parts := splitList(s)
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", p)
		}
		out = append(out, n)
	}
	return out, nil
}
