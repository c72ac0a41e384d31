package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"stockanalyzer/internal/domain"
	"stockanalyzer/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Cache implements ports.SeriesCache on a SQLite file so that consecutive CLI
// runs can share recent fetches. Entries older than the TTL are ignored and purged.
type Cache struct {
	db     *sql.DB
	logger ports.Logger
	ttl    time.Duration
	now    func() time.Time
}

// Compile-time check
var _ ports.SeriesCache = (*Cache)(nil)

// Config holds configuration for the SQLite cache.
type Config struct {
	DBPath string
	TTL    time.Duration
	Logger ports.Logger
}

// cachedPayload is the JSON document stored per entry.
type cachedPayload struct {
	Series   *domain.PriceSeries   `json:"series"`
	Metadata domain.IssuerMetadata `json:"metadata"`
}

// NewCache opens (creating if needed) the cache database.
func NewCache(cfg Config) (*Cache, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite cache")
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("%w: cache TTL must be positive, got %s", ports.ErrConfigurationError, cfg.TTL)
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/cache.db"
	}
	ctx := context.Background()

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create cache directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(ctx, err, "SQLite cache initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open cache database at '%s': %w", dbPath, err)
		cfg.Logger.Error(ctx, err, "SQLite cache initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping cache database at '%s': %w", dbPath, err)
		cfg.Logger.Error(ctx, err, "SQLite cache initialization failed")
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	c := &Cache{db: db, logger: cfg.Logger, ttl: cfg.TTL, now: time.Now}
	if err := c.initializeSchema(ctx); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize cache schema: %w", err)
		cfg.Logger.Error(ctx, err, "SQLite cache initialization failed")
		return nil, err
	}
	cfg.Logger.Debug(ctx, "SQLite cache ready", map[string]interface{}{"path": dbPath, "ttl": cfg.TTL.String()})

	return c, nil
}

func (c *Cache) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS series_cache (
		source TEXT NOT NULL,
		symbol TEXT NOT NULL,
		period TEXT NOT NULL,
		stored_at INTEGER NOT NULL,
		payload BLOB NOT NULL,
		PRIMARY KEY (source, symbol, period)
	);
	CREATE INDEX IF NOT EXISTS idx_series_cache_stored_at ON series_cache (stored_at);
	`
	if _, err := c.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func (c *Cache) cutoff() int64 {
	return c.now().Add(-c.ttl).UnixNano()
}

// Get returns the entry for key if it is younger than the TTL.
func (c *Cache) Get(ctx context.Context, key ports.CacheKey) (*ports.CachedFetch, error) {
	const query = `SELECT stored_at, payload FROM series_cache
		WHERE source = ? AND symbol = ? AND period = ? AND stored_at > ?`

	var (
		storedAt int64
		raw      []byte
	)
	err := c.db.QueryRowContext(ctx, query, key.Source, key.Symbol, string(key.Period), c.cutoff()).Scan(&storedAt, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache lookup for %s failed: %w: %w", key, ports.ErrCacheFailure, err)
	}

	var payload cachedPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.logger.Warn(ctx, "Discarding unreadable cache entry", map[string]interface{}{"key": key.String(), "error": err.Error()})
		return nil, nil
	}
	return &ports.CachedFetch{
		Series:   payload.Series,
		Metadata: payload.Metadata,
		StoredAt: time.Unix(0, storedAt),
	}, nil
}

// Put stores or replaces the entry for key.
func (c *Cache) Put(ctx context.Context, key ports.CacheKey, entry *ports.CachedFetch) error {
	if entry == nil {
		return nil
	}
	raw, err := json.Marshal(cachedPayload{Series: entry.Series, Metadata: entry.Metadata})
	if err != nil {
		return fmt.Errorf("cache encode for %s failed: %w: %w", key, ports.ErrCacheFailure, err)
	}

	const query = `INSERT INTO series_cache (source, symbol, period, stored_at, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (source, symbol, period) DO UPDATE SET stored_at = excluded.stored_at, payload = excluded.payload`
	if _, err := c.db.ExecContext(ctx, query, key.Source, key.Symbol, string(key.Period), c.now().UnixNano(), raw); err != nil {
		return fmt.Errorf("cache store for %s failed: %w: %w", key, ports.ErrCacheFailure, err)
	}
	return nil
}

// Purge deletes every expired entry.
func (c *Cache) Purge(ctx context.Context) (int, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM series_cache WHERE stored_at <= ?`, c.cutoff())
	if err != nil {
		return 0, fmt.Errorf("cache purge failed: %w: %w", ports.ErrCacheFailure, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cache purge failed: %w: %w", ports.ErrCacheFailure, err)
	}
	if n > 0 {
		c.logger.Debug(ctx, "Purged expired cache entries", map[string]interface{}{"count": n})
	}
	return int(n), nil
}
