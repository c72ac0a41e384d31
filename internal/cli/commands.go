package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"stockanalyzer/config"
	"stockanalyzer/internal/adapters/binanceclient"
	"stockanalyzer/internal/adapters/logger"
	"stockanalyzer/internal/adapters/memcache"
	"stockanalyzer/internal/adapters/sqlite"
	"stockanalyzer/internal/adapters/yahoo"
	"stockanalyzer/internal/app"
	"stockanalyzer/internal/domain"
	"stockanalyzer/internal/export"
	"stockanalyzer/internal/indicators"
	"stockanalyzer/internal/ports"
)

// Version is overridden at build time with -ldflags.
var Version = "dev"

const defaultHistoryRows = 10

// sourceFactory builds the market data source named by a command.
type sourceFactory func(cfg *config.Config, name string, log ports.Logger) (ports.MarketDataSource, error)

type rootOptions struct {
	configPath string
	logLevel   string
	newSource  sourceFactory
}

// NewRootCmd creates the stockanalyzer command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(newSource)
}

func newRootCmd(factory sourceFactory) *cobra.Command {
	opts := &rootOptions{newSource: factory}

	rootCmd := &cobra.Command{
		Use:   "stockanalyzer",
		Short: "Stock analysis with technical indicators",
		Long: `stockanalyzer downloads daily price history for a stock or crypto symbol,
computes moving averages, RSI, MACD and Bollinger Bands, and prints a
summary report or exports the data to CSV.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML config file (default $CONFIG_PATH or config.yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: DEBUG, INFO, WARN or ERROR (default $LOG_LEVEL)")

	rootCmd.AddCommand(
		newAnalyzeCmd(opts),
		newExportCmd(opts),
		newRefreshCmd(opts),
		newVersionCmd(),
	)
	return rootCmd
}

func newAnalyzeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze SYMBOL",
		Short: "Print a report with key metrics and technical indicators",
		Example: `  stockanalyzer analyze AAPL
  stockanalyzer analyze BTCUSDT --source binance --period 6mo
  stockanalyzer analyze MSFT --indicators ma,rsi --export msft.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exportPath, _ := cmd.Flags().GetString("export")
			rows, _ := cmd.Flags().GetInt("rows")

			sess, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer sess.Close()

			analysis, err := sess.analyze(cmd, args[0])
			if err != nil {
				return err
			}
			if err := RenderReport(cmd.OutOrStdout(), analysis, rows); err != nil {
				return err
			}

			if exportPath == "" {
				return nil
			}
			if err := export.WriteFile(exportPath, analysis.Result, sess.exportOptions(cmd)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nData exported to %s\n", exportPath)
			return nil
		},
	}

	addAnalysisFlags(cmd)
	cmd.Flags().String("export", "", "also write the data with indicators to this CSV file")
	cmd.Flags().Int("rows", defaultHistoryRows, "number of recent bars to show (0 hides the table)")
	return cmd
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export SYMBOL",
		Short: "Write price history with indicators to CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")

			sess, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer sess.Close()

			analysis, err := sess.analyze(cmd, args[0])
			if err != nil {
				return err
			}
			if output == "" {
				output = filepath.Join(sess.cfg.Export.Dir, export.DefaultFileName(analysis.Symbol))
			}
			if err := export.WriteFile(output, analysis.Result, sess.exportOptions(cmd)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Data exported to %s\n", output)
			return nil
		},
	}

	addAnalysisFlags(cmd)
	cmd.Flags().StringP("output", "o", "", "CSV file to write (default EXPORT_DIR/SYMBOL_historical_data.csv)")
	return cmd
}

func newRefreshCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Re-export the configured symbols on a cron schedule",
		Long: `refresh re-analyzes every symbol in REFRESH_SYMBOLS and rewrites its CSV
export in EXPORT_DIR whenever REFRESH_CRON fires. It runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			once, _ := cmd.Flags().GetBool("once")

			sess, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer sess.Close()

			refresher, err := app.NewRefresher(app.RefresherConfig{
				Schedule:  sess.cfg.Refresh.Cron,
				Symbols:   sess.cfg.Refresh.Symbols,
				Period:    sess.cfg.Period(),
				ExportDir: sess.cfg.Export.Dir,
				Ascending: sess.cfg.Export.Ascending,
			}, sess.analyzer, sess.cache, sess.logger)
			if err != nil {
				return err
			}

			if once {
				written, err := refresher.RunOnce(cmd.Context())
				for _, path := range written {
					fmt.Fprintf(cmd.OutOrStdout(), "Data exported to %s\n", path)
				}
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			refresher.Start(ctx)
			<-ctx.Done()
			refresher.Stop(context.Background())
			return nil
		},
	}

	cmd.Flags().Bool("once", false, "refresh every symbol immediately and exit")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "stockanalyzer version %s\n", Version)
		},
	}
}

func addAnalysisFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("period", "p", "", fmt.Sprintf("history period: %s (default $DEFAULT_PERIOD)", periodList()))
	cmd.Flags().StringP("source", "s", "", "data source: yahoo or binance (default $DATA_SOURCE)")
	cmd.Flags().String("indicators", "", "comma-separated indicators to compute: ma,rsi,macd,bollinger (default all)")
	cmd.Flags().Bool("ascending", false, "write CSV rows oldest first (default $EXPORT_ASCENDING)")
}

func periodList() string {
	periods := domain.Periods()
	names := make([]string, len(periods))
	for i, p := range periods {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}

// session holds the dependencies wired for one command invocation.
type session struct {
	cfg      *config.Config
	logger   *logger.StdLogger
	cache    ports.SeriesCache
	analyzer *app.Analyzer
}

// openSession loads configuration and wires logger, data source, cache and
// indicator engine from it and the command's flags.
func openSession(cmd *cobra.Command, opts *rootOptions) (*session, error) {
	ctx := cmd.Context()

	// 1. Load Configuration
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}

	// 2. Initialize Logger
	level := cfg.LogLevel
	if opts.logLevel != "" {
		level = logger.ParseLevel(opts.logLevel)
	}
	appLogger := logger.New(cmd.ErrOrStderr(), level)
	appLogger.Debug(ctx, "Logger initialized", map[string]interface{}{"level": level.String()})

	// 3. Initialize Data Source
	sourceName := cfg.DataSource
	if cmd.Flags().Lookup("source") != nil {
		if s, _ := cmd.Flags().GetString("source"); s != "" {
			sourceName = strings.ToLower(strings.TrimSpace(s))
		}
	}
	source, err := opts.newSource(cfg, sourceName, appLogger)
	if err != nil {
		return nil, err
	}

	// 4. Initialize Indicator Engine
	indicatorCfg := cfg.IndicatorConfig()
	if cmd.Flags().Lookup("indicators") != nil {
		selection, _ := cmd.Flags().GetString("indicators")
		if indicatorCfg, err = applySelection(indicatorCfg, selection); err != nil {
			return nil, err
		}
	}
	engine, err := indicators.NewEngine(indicatorCfg)
	if err != nil {
		return nil, err
	}

	// 5. Initialize Cache
	cache, err := newCache(cfg, appLogger)
	if err != nil {
		return nil, err
	}

	// 6. Initialize Analyzer
	analyzer, err := app.NewAnalyzer(appLogger, source, cache, engine)
	if err != nil {
		cache.Close()
		return nil, err
	}

	return &session{cfg: cfg, logger: appLogger, cache: cache, analyzer: analyzer}, nil
}

func (s *session) analyze(cmd *cobra.Command, symbol string) (*app.Analysis, error) {
	period := s.cfg.Period()
	if p, _ := cmd.Flags().GetString("period"); p != "" {
		period = domain.Period(p)
	}
	return s.analyzer.Analyze(cmd.Context(), symbol, period)
}

func (s *session) exportOptions(cmd *cobra.Command) export.Options {
	ascending := s.cfg.Export.Ascending
	if cmd.Flags().Changed("ascending") {
		ascending, _ = cmd.Flags().GetBool("ascending")
	}
	return export.Options{Ascending: ascending}
}

// Close releases the cache.
func (s *session) Close() {
	if err := s.cache.Close(); err != nil {
		s.logger.Error(context.Background(), err, "Error closing series cache")
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.LoadConfig()
	}
	_ = godotenv.Load()
	return config.Load(path)
}

func newSource(cfg *config.Config, name string, log ports.Logger) (ports.MarketDataSource, error) {
	switch name {
	case config.SourceYahoo:
		client, err := yahoo.New(yahoo.Config{
			BaseURL: cfg.Yahoo.BaseURL,
			Timeout: cfg.HTTPTimeout(),
			Retries: cfg.HTTP.Retries,
			Logger:  log,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.SourceBinance:
		client, err := binanceclient.New(binanceclient.Config{
			APIKey:     cfg.Binance.APIKey,
			SecretKey:  cfg.Binance.SecretKey,
			UseTestnet: cfg.Binance.UseTestnet,
			Timeout:    cfg.HTTPTimeout(),
			Logger:     log,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("%w: unknown data source %q (want %q or %q)",
			ports.ErrConfigurationError, name, config.SourceYahoo, config.SourceBinance)
	}
}

func newCache(cfg *config.Config, log ports.Logger) (ports.SeriesCache, error) {
	if cfg.Cache.DBPath == "" {
		return memcache.New(cfg.CacheTTL()), nil
	}
	cache, err := sqlite.NewCache(sqlite.Config{
		DBPath: cfg.Cache.DBPath,
		TTL:    cfg.CacheTTL(),
		Logger: log,
	})
	if err != nil {
		return nil, err
	}
	return cache, nil
}

// applySelection restricts cfg to the comma-separated indicator names in
// selection. An empty selection keeps every indicator.
func applySelection(cfg indicators.Config, selection string) (indicators.Config, error) {
	if strings.TrimSpace(selection) == "" {
		return cfg, nil
	}

	windows := cfg.SMAWindows
	cfg.SMAWindows = nil
	cfg.RSIEnabled = false
	cfg.MACDEnabled = false
	cfg.BollingerEnabled = false

	for _, name := range strings.Split(selection, ",") {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "ma", "sma":
			cfg.SMAWindows = windows
		case "rsi":
			cfg.RSIEnabled = true
		case "macd":
			cfg.MACDEnabled = true
		case "bollinger", "bb":
			cfg.BollingerEnabled = true
		case "":
		default:
			return cfg, fmt.Errorf("%w: unknown indicator %q (want ma, rsi, macd or bollinger)", ports.ErrInvalidRequest, name)
		}
	}
	return cfg, nil
}
