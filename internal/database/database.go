package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"media-catalogue/internal/logging"
	"media-catalogue/internal/metrics"
	"media-catalogue/internal/sanitize"
	"media-catalogue/internal/workers"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// maxIdleConns keeps a portion of the pool warm without holding every
// connection open on small machines.
func maxIdleConns(poolSize int) int {
	idle := poolSize / 2
	if idle < 2 {
		idle = 2
	}
	return idle
}

// Database manages the catalogue cache store.
type Database struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
	san    *sanitize.Sanitizer

	// ftsDriver is the driver capability; ftsEnabled additionally requires
	// the items_fts table to exist. They diverge when the FTS migration was
	// recorded by a build without FTS5 support.
	ftsDriver  bool
	ftsEnabled bool

	migrations []Migration
}

// New opens (or creates) the cache store at dbPath. It creates the base
// schema and the migration ledger and probes full-text search availability,
// but never applies migrations — call RunMigrations explicitly before content
// operations.
//
// dbPath must be the full path to the database file; the parent directory
// must exist and be writable.
func New(ctx context.Context, dbPath string) (*Database, error) {
	logging.Info("Cache database path: %s", dbPath)

	// WAL mode plus busy_timeout keeps concurrent readers from tripping
	// over "database is locked" errors.
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_temp_store=MEMORY&_busy_timeout=5000&_foreign_keys=on", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Bounded pool sized from available CPUs: many concurrent readers,
	// writes serialize at the engine level.
	poolSize := workers.ForIO(25)
	db.SetMaxOpenConns(poolSize)
	db.SetMaxIdleConns(maxIdleConns(poolSize))
	db.SetConnMaxLifetime(time.Hour)

	d := &Database{
		db:     db,
		dbPath: dbPath,
		san:    sanitize.New(&sanitize.LogSink{Source: "query"}),
	}

	if err := d.createSchema(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after schema failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to create base schema: %w", err)
	}

	// The query engine branches on the capability flag instead of probing
	// ad hoc. The effective flag requires both driver support and the
	// items_fts table, so a cache file migrated by a build without FTS5
	// keeps serving LIKE queries instead of failing.
	d.ftsDriver = detectFTS5(ctx, db)
	if !d.ftsDriver {
		logging.Warn("FTS5 unavailable, text search falls back to LIKE matching")
	}
	d.ftsEnabled = d.ftsDriver && d.hasFTSTable(ctx)

	d.migrations = d.buildMigrations()

	logging.Info("Cache database opened at %s (fts=%v)", dbPath, d.ftsEnabled)
	return d, nil
}

func (d *Database) createSchema(ctx context.Context) error {
	done := observeQuery("initialize_schema")

	schema := `
	-- Catalogue items, keyed by the upstream claim identifier
	CREATE TABLE IF NOT EXISTS items (
		claim_id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		title_lower TEXT NOT NULL,
		description TEXT,
		tags TEXT NOT NULL DEFAULT '[]',
		thumbnail_url TEXT,
		duration INTEGER,
		release_time INTEGER NOT NULL DEFAULT 0,
		video_urls TEXT NOT NULL DEFAULT '{}',
		compatible INTEGER NOT NULL DEFAULT 1,
		fallback_available INTEGER NOT NULL DEFAULT 0,
		compat_reason TEXT,
		etag TEXT,
		content_hash TEXT,
		raw_json TEXT,
		last_accessed INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		access_count INTEGER NOT NULL DEFAULT 0,
		inserted_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_items_title_lower ON items(title_lower);
	CREATE INDEX IF NOT EXISTS idx_items_release_time ON items(release_time);

	-- Normalized tag mirror for indexed match-any filtering. release_time is
	-- denormalized from items so tag-filtered, time-ordered listings can be
	-- served from one composite index.
	CREATE TABLE IF NOT EXISTS item_tags (
		claim_id TEXT NOT NULL,
		tag TEXT NOT NULL,
		release_time INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (claim_id, tag),
		FOREIGN KEY (claim_id) REFERENCES items(claim_id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_item_tags_tag ON item_tags(tag);

	-- Migration ledger: applied versions are never reapplied
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);
	`

	_, err := d.db.ExecContext(ctx, schema)
	done(err)
	return err
}

// detectFTS5 reports whether the driver was built with FTS5 support.
func detectFTS5(ctx context.Context, db *sql.DB) bool {
	if _, err := db.ExecContext(ctx, "CREATE VIRTUAL TABLE temp.fts5_probe USING fts5(probe)"); err != nil {
		return false
	}
	if _, err := db.ExecContext(ctx, "DROP TABLE temp.fts5_probe"); err != nil {
		logging.Warn("failed to drop fts5 probe table: %v", err)
	}
	return true
}

// hasFTSTable reports whether the items_fts virtual table exists in the
// on-disk schema.
func (d *Database) hasFTSTable(ctx context.Context) bool {
	var n int
	err := d.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'items_fts'").Scan(&n)
	if err != nil {
		logging.Warn("failed to check for items_fts table: %v", err)
		return false
	}
	return n > 0
}

// FTSEnabled reports whether full-text search is available: the driver
// supports FTS5 and the items_fts table exists. Recomputed after migrations.
func (d *Database) FTSEnabled() bool {
	return d.ftsEnabled
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// ClearAll removes every cached item and its tag rows. Offline media
// bookkeeping is left alone; downloaded files remain playable.
func (d *Database) ClearAll(ctx context.Context) error {
	done := observeQuery("clear_all")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx, "DELETE FROM items")
	done(err)
	if err != nil {
		return fmt.Errorf("clear all: %w", err)
	}
	return nil
}

// CountItems returns the number of cached items.
func (d *Database) CountItems(ctx context.Context) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var count int
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM items").Scan(&count); err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return count, nil
}

// CalculateStats computes current cache statistics.
func (d *Database) CalculateStats(ctx context.Context) (CacheStats, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	stats := CacheStats{FTSEnabled: d.ftsEnabled, DBPath: d.dbPath}

	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM items", &stats.TotalItems},
		{"SELECT COUNT(DISTINCT tag) FROM item_tags", &stats.TotalTags},
		{"SELECT COUNT(*) FROM offline_media", &stats.OfflineMedia},
		{"SELECT COUNT(*) FROM offline_media WHERE encrypted = 1", &stats.OfflineMediaEncrypted},
		{"SELECT COALESCE(MAX(version), 0) FROM schema_migrations", &stats.SchemaVersion},
	}

	for _, q := range queries {
		if err := d.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return stats, fmt.Errorf("stats query failed: %w", err)
		}
	}

	if info, err := os.Stat(d.dbPath); err == nil {
		stats.DBSizeBytes = info.Size()
	}

	return stats, nil
}

// GetStats implements metrics.StatsProvider for the periodic collector.
func (d *Database) GetStats() metrics.Stats {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	stats, err := d.CalculateStats(ctx)
	if err != nil {
		logging.Error("stats collection failed: %v", err)
		return metrics.Stats{}
	}

	out := metrics.Stats{
		TotalItems:            stats.TotalItems,
		TotalTags:             stats.TotalTags,
		OfflineMedia:          stats.OfflineMedia,
		OfflineMediaEncrypted: stats.OfflineMediaEncrypted,
		DBSizeBytes:           stats.DBSizeBytes,
	}
	if info, err := os.Stat(d.dbPath + "-wal"); err == nil {
		out.WALSizeBytes = info.Size()
	}
	if info, err := os.Stat(d.dbPath + "-shm"); err == nil {
		out.SHMSizeBytes = info.Size()
	}
	return out
}

// UpdateDBMetrics updates database connection pool metrics.
func (d *Database) UpdateDBMetrics() {
	stats := d.db.Stats()
	metrics.DBConnectionsOpen.Set(float64(stats.OpenConnections))
}

// recordQuery records database query metrics.
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// observeQuery starts a query timer; call the returned func with the final
// error on every exit path.
func observeQuery(operation string) func(error) {
	start := time.Now()
	return func(err error) {
		recordQuery(operation, start, err)
	}
}
