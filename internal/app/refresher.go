package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/robfig/cron/v3"

	"stockanalyzer/internal/domain"
	"stockanalyzer/internal/export"
	"stockanalyzer/internal/ports"
)

// analyzer is the part of Analyzer the refresher depends on.
type analyzer interface {
	Analyze(ctx context.Context, symbol string, period domain.Period) (*Analysis, error)
}

// RefresherConfig describes what is re-exported and when.
type RefresherConfig struct {
	Schedule  string // Cron expression with a leading seconds field
	Symbols   []string
	Period    domain.Period
	ExportDir string
	Ascending bool
}

// Refresher periodically re-analyzes a fixed list of symbols and rewrites
// their CSV exports.
type Refresher struct {
	cron     *cron.Cron
	cfg      RefresherConfig
	analyzer analyzer
	cache    ports.SeriesCache
	logger   ports.Logger

	// runCtx scopes scheduled runs; Stop cancels it.
	runCtx context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	running bool
}

// NewRefresher validates cfg and registers the refresh job. cache may be nil;
// when set, expired entries are purged after each run.
func NewRefresher(cfg RefresherConfig, a analyzer, cache ports.SeriesCache, logger ports.Logger) (*Refresher, error) {
	if a == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for Refresher")
	}
	if len(cfg.Symbols) == 0 {
		return nil, fmt.Errorf("%w: no symbols to refresh", ports.ErrConfigurationError)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	r := &Refresher{
		runCtx:   runCtx,
		cancel:   cancel,
		cron:     cron.New(cron.WithSeconds()),
		cfg:      cfg,
		analyzer: a,
		cache:    cache,
		logger:   logger,
	}
	if _, err := r.cron.AddFunc(cfg.Schedule, func() { _ = r.runScheduled() }); err != nil {
		cancel()
		return nil, fmt.Errorf("%w: register refresh task %q: %w", ports.ErrConfigurationError, cfg.Schedule, err)
	}
	return r, nil
}

// Start starts the cron scheduler.
func (r *Refresher) Start(ctx context.Context) {
	r.cron.Start()
	r.logger.Info(ctx, "Refresher started", map[string]interface{}{"schedule": r.cfg.Schedule, "symbols": len(r.cfg.Symbols)})
}

// Stop stops the scheduler, cancels a running refresh and waits for it to return.
func (r *Refresher) Stop(ctx context.Context) {
	r.cancel()
	<-r.cron.Stop().Done()
	r.logger.Info(ctx, "Refresher stopped")
}

// runScheduled is the cron job body.
func (r *Refresher) runScheduled() error {
	_, err := r.RunOnce(r.runCtx)
	return err
}

// RunOnce refreshes every symbol and returns the paths written. A failing
// symbol is logged and skipped; the joined errors are returned at the end.
// Overlapping runs are skipped.
func (r *Refresher) RunOnce(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		r.logger.Warn(ctx, "Previous refresh still running, skipping")
		return nil, nil
	}
	r.running = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	var (
		written []string
		errs    []error
	)
	for _, symbol := range r.cfg.Symbols {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		path, err := r.refreshSymbol(ctx, symbol)
		if err != nil {
			r.logger.Error(ctx, err, "Refresh failed", map[string]interface{}{"symbol": symbol})
			errs = append(errs, err)
			continue
		}
		written = append(written, path)
	}

	if r.cache != nil {
		if _, err := r.cache.Purge(ctx); err != nil {
			r.logger.Warn(ctx, "Cache purge failed", map[string]interface{}{"error": err.Error()})
		}
	}

	r.logger.Info(ctx, "Refresh finished", map[string]interface{}{"written": len(written), "failed": len(errs)})
	return written, errors.Join(errs...)
}

func (r *Refresher) refreshSymbol(ctx context.Context, symbol string) (string, error) {
	analysis, err := r.analyzer.Analyze(ctx, symbol, r.cfg.Period)
	if err != nil {
		return "", err
	}
	path := filepath.Join(r.cfg.ExportDir, export.DefaultFileName(analysis.Symbol))
	if err := export.WriteFile(path, analysis.Result, export.Options{Ascending: r.cfg.Ascending}); err != nil {
		return "", fmt.Errorf("export %s: %w", analysis.Symbol, err)
	}
	return path, nil
}
