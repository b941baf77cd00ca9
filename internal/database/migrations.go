package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"media-catalogue/internal/logging"
	"media-catalogue/internal/metrics"
)

// Migration is one versioned schema change. Versions are monotonic and
// applied in ascending order, each inside its own transaction.
type Migration struct {
	Version     int
	Description string
	Up          func(ctx context.Context, tx *sql.Tx) error
}

// MigrationError reports which migration version failed to apply.
type MigrationError struct {
	Version int
	Err     error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration %d failed: %v", e.Version, e.Err)
}

func (e *MigrationError) Unwrap() error {
	return e.Err
}

// buildMigrations returns the ordered migration set. Closures capture the
// driver capability flag so the text-search migration degrades gracefully on
// drivers built without FTS5.
func (d *Database) buildMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "full-text search over title and description",
			Up: func(ctx context.Context, tx *sql.Tx) error {
				if !d.ftsDriver {
					// Recorded as applied; the capability flag keeps the
					// query engine on the LIKE fallback.
					return nil
				}

				stmts := []string{
					`CREATE VIRTUAL TABLE IF NOT EXISTS items_fts USING fts5(
						title,
						description,
						content='items',
						content_rowid='rowid',
						tokenize='trigram'
					)`,
					`CREATE TRIGGER IF NOT EXISTS items_ai AFTER INSERT ON items BEGIN
						INSERT INTO items_fts(rowid, title, description)
						VALUES (new.rowid, new.title, COALESCE(new.description, ''));
					END`,
					`CREATE TRIGGER IF NOT EXISTS items_ad AFTER DELETE ON items BEGIN
						INSERT INTO items_fts(items_fts, rowid, title, description)
						VALUES('delete', old.rowid, old.title, COALESCE(old.description, ''));
					END`,
					`CREATE TRIGGER IF NOT EXISTS items_au AFTER UPDATE ON items BEGIN
						INSERT INTO items_fts(items_fts, rowid, title, description)
						VALUES('delete', old.rowid, old.title, COALESCE(old.description, ''));
						INSERT INTO items_fts(rowid, title, description)
						VALUES (new.rowid, new.title, COALESCE(new.description, ''));
					END`,
					`INSERT INTO items_fts(rowid, title, description)
						SELECT rowid, title, COALESCE(description, '') FROM items
						WHERE rowid NOT IN (SELECT rowid FROM items_fts)`,
				}
				for _, stmt := range stmts {
					if _, err := tx.ExecContext(ctx, stmt); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			Version:     2,
			Description: "offline media bookkeeping",
			Up: func(ctx context.Context, tx *sql.Tx) error {
				_, err := tx.ExecContext(ctx, `
					CREATE TABLE IF NOT EXISTS offline_media (
						claim_id TEXT PRIMARY KEY,
						file_path TEXT NOT NULL UNIQUE,
						size INTEGER NOT NULL DEFAULT 0,
						encrypted INTEGER NOT NULL DEFAULT 0,
						quality TEXT,
						added_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
					)
				`)
				if err != nil {
					return err
				}
				_, err = tx.ExecContext(ctx,
					`CREATE INDEX IF NOT EXISTS idx_offline_media_encrypted ON offline_media(encrypted)`)
				return err
			},
		},
		{
			Version:     3,
			Description: "composite indices for cleanup and tag-filter query shapes",
			Up: func(ctx context.Context, tx *sql.Tx) error {
				stmts := []string{
					// TTL cleanup ordering: oldest, least-accessed first
					`CREATE INDEX IF NOT EXISTS idx_items_cleanup ON items(last_accessed, access_count)`,
					// Tag-filtered, time-ordered listing
					`CREATE INDEX IF NOT EXISTS idx_item_tags_tag_release ON item_tags(tag, release_time)`,
					// TTL window combined with tag joins
					`CREATE INDEX IF NOT EXISTS idx_items_access_release ON items(last_accessed, release_time)`,
				}
				for _, stmt := range stmts {
					if _, err := tx.ExecContext(ctx, stmt); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}

// appliedVersions reads the migration ledger.
func (d *Database) appliedVersions(ctx context.Context) (map[int]bool, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("read migration ledger: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.Error("error closing rows: %v", err)
		}
	}()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("scan migration version: %w", err)
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

// PendingMigrations returns the versions not yet recorded in the ledger, in
// ascending order.
func (d *Database) PendingMigrations(ctx context.Context) ([]int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	applied, err := d.appliedVersions(ctx)
	if err != nil {
		return nil, err
	}

	var pending []int
	for _, m := range d.migrations {
		if !applied[m.Version] {
			pending = append(pending, m.Version)
		}
	}
	sort.Ints(pending)
	return pending, nil
}

// RunMigrations applies all pending migrations in ascending version order,
// each in its own transaction, recording successes in the ledger. A failure
// rolls back that single migration and returns a *MigrationError; versions
// applied before the failure stay recorded. Calling this when fully up to
// date is a no-op.
//
// Callers must not issue content operations concurrently with RunMigrations;
// this is a documented contract, not an internal lock.
func (d *Database) RunMigrations(ctx context.Context) error {
	done := observeQuery("run_migrations")

	d.mu.Lock()
	defer d.mu.Unlock()

	applied, err := d.appliedVersions(ctx)
	if err != nil {
		done(err)
		return err
	}

	pending := make([]Migration, 0, len(d.migrations))
	for _, m := range d.migrations {
		if !applied[m.Version] {
			pending = append(pending, m)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].Version < pending[j].Version })

	if len(pending) == 0 {
		logging.Debug("migrations up to date")
		done(nil)
		return nil
	}

	for _, m := range pending {
		if err := d.applyMigration(ctx, m); err != nil {
			merr := &MigrationError{Version: m.Version, Err: err}
			done(merr)
			return merr
		}
		metrics.MigrationsApplied.Inc()
		logging.Info("applied migration %d: %s", m.Version, m.Description)
	}

	// The FTS migration may be in the ledger without the table existing
	// (recorded by a build without FTS5). Re-derive the effective flag from
	// the on-disk schema so text queries never reference a missing table.
	d.ftsEnabled = d.ftsDriver && d.hasFTSTable(ctx)

	done(nil)
	return nil
}

func (d *Database) applyMigration(ctx context.Context, m Migration) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.Error("rollback of migration %d failed: %v", m.Version, rbErr)
			}
		}
	}()

	if err := m.Up(ctx, tx); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version) VALUES (?)", m.Version); err != nil {
		return fmt.Errorf("record version in ledger: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}
