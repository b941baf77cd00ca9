package database

import (
	"context"
	"fmt"
	"time"

	"media-catalogue/internal/logging"
	"media-catalogue/internal/metrics"
)

// DefaultCleanupBatchSize bounds how many rows one cleanup pass may remove.
const DefaultCleanupBatchSize = 500

// Cleanup evicts cache entries whose last access is older than ttl, oldest
// and least-accessed first, bounded by batchSize (DefaultCleanupBatchSize
// when <= 0). The candidate selection runs on the (last_accessed,
// access_count) composite index. Returns the number of items removed.
func (d *Database) Cleanup(ctx context.Context, ttl time.Duration, batchSize int) (int64, error) {
	done := observeQuery("cleanup")

	if batchSize <= 0 {
		batchSize = DefaultCleanupBatchSize
	}
	cutoff := time.Now().Add(-ttl).Unix()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	result, err := d.db.ExecContext(ctx, `
		DELETE FROM items WHERE claim_id IN (
			SELECT claim_id FROM items
			WHERE last_accessed < ?
			ORDER BY last_accessed ASC, access_count ASC
			LIMIT ?
		)
	`, cutoff, batchSize)
	if err != nil {
		done(err)
		metrics.CleanupRunsTotal.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("cleanup: %w", err)
	}

	removed, err := result.RowsAffected()
	done(err)
	if err != nil {
		metrics.CleanupRunsTotal.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("cleanup rows affected: %w", err)
	}

	metrics.CleanupRunsTotal.WithLabelValues("success").Inc()
	if removed > 0 {
		metrics.CleanupItemsRemoved.Add(float64(removed))
		metrics.DBRowsAffected.WithLabelValues("cleanup").Observe(float64(removed))
		logging.Info("cleanup removed %d cache entries older than %v", removed, ttl)
	}
	return removed, nil
}

// Optimize runs storage maintenance: statistics refresh and, when available,
// full-text index compaction. Idempotent and safe to call at any time; it
// affects query-plan quality only, never correctness.
func (d *Database) Optimize(ctx context.Context) error {
	done := observeQuery("optimize")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	stmts := []string{"ANALYZE", "PRAGMA optimize"}
	if d.ftsEnabled {
		stmts = append(stmts, "INSERT INTO items_fts(items_fts) VALUES('optimize')")
	}

	for _, stmt := range stmts {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			done(err)
			return fmt.Errorf("optimize (%s): %w", stmt, err)
		}
	}

	done(nil)
	return nil
}

// AnalyzeQuery returns the engine's query-plan description for sqlText.
// Verification and tuning only — never call this with untrusted input.
func (d *Database) AnalyzeQuery(ctx context.Context, sqlText string) ([]string, error) {
	done := observeQuery("analyze_query")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, "EXPLAIN QUERY PLAN "+sqlText)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("analyze query: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.Error("error closing rows: %v", err)
		}
	}()

	var plan []string
	for rows.Next() {
		var id, parent, notUsed int
		var detail string
		if err := rows.Scan(&id, &parent, &notUsed, &detail); err != nil {
			done(err)
			return nil, fmt.Errorf("scan query plan: %w", err)
		}
		plan = append(plan, detail)
	}
	if err := rows.Err(); err != nil {
		done(err)
		return nil, fmt.Errorf("query plan rows: %w", err)
	}

	done(nil)
	return plan, nil
}
