package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

// Integration tests against a real SQLite database.

// setupTestDB creates a migrated test database in a temp directory.
func setupTestDB(t testing.TB) *Database {
	t.Helper()

	db := setupUnmigratedDB(t)
	if err := db.RunMigrations(context.Background()); err != nil {
		t.Fatalf("RunMigrations failed: %v", err)
	}
	return db
}

// setupUnmigratedDB opens a fresh store without applying migrations.
func setupUnmigratedDB(t testing.TB) *Database {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close test database: %v", err)
		}
	})
	return db
}

func TestNewDoesNotRunMigrations(t *testing.T) {
	t.Parallel()

	db := setupUnmigratedDB(t)
	ctx := context.Background()

	// The ledger must exist but be empty: open() reaches SchemaReady only.
	var count int
	if err := db.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("ledger table missing after New: %v", err)
	}
	if count != 0 {
		t.Errorf("ledger has %d entries after New, want 0", count)
	}

	pending, err := db.PendingMigrations(ctx)
	if err != nil {
		t.Fatalf("PendingMigrations failed: %v", err)
	}
	if len(pending) != len(db.migrations) {
		t.Errorf("pending = %v, want all %d registered versions", pending, len(db.migrations))
	}
}

func TestRunMigrationsAppliesAllVersions(t *testing.T) {
	t.Parallel()

	db := setupUnmigratedDB(t)
	ctx := context.Background()

	if err := db.RunMigrations(ctx); err != nil {
		t.Fatalf("RunMigrations failed: %v", err)
	}

	pending, err := db.PendingMigrations(ctx)
	if err != nil {
		t.Fatalf("PendingMigrations failed: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending after RunMigrations = %v, want none", pending)
	}

	// Migration 2 must have created the offline media table.
	var count int
	if err := db.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM offline_media").Scan(&count); err != nil {
		t.Errorf("offline_media table missing after migrations: %v", err)
	}
}

func TestRunMigrationsIdempotent(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	// Already current: must be a no-op returning success.
	if err := db.RunMigrations(ctx); err != nil {
		t.Fatalf("second RunMigrations failed: %v", err)
	}

	var count int
	if err := db.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("ledger read failed: %v", err)
	}
	if count != len(db.migrations) {
		t.Errorf("ledger has %d entries after replay, want %d", count, len(db.migrations))
	}
}

func TestFTSFlagTracksSchema(t *testing.T) {
	t.Parallel()

	db := setupUnmigratedDB(t)
	ctx := context.Background()

	// A store migrated by a build without FTS5 records migration 1 in the
	// ledger without creating items_fts. An FTS-capable build opening that
	// file must fall back to LIKE, not reference the missing table.
	if _, err := db.db.ExecContext(ctx,
		"INSERT INTO schema_migrations (version) VALUES (1)"); err != nil {
		t.Fatalf("seeding ledger failed: %v", err)
	}

	if err := db.RunMigrations(ctx); err != nil {
		t.Fatalf("RunMigrations failed: %v", err)
	}

	if db.FTSEnabled() {
		t.Fatal("FTSEnabled = true with no items_fts table")
	}

	item := testItem("claim-fallback")
	item.Title = "Fallback Feature"
	if err := db.StoreItems(ctx, []*ContentItem{item}); err != nil {
		t.Fatalf("StoreItems failed: %v", err)
	}

	text := "fallback"
	items, err := db.GetCachedContent(ctx, CacheQuery{Text: &text})
	if err != nil {
		t.Fatalf("text query failed instead of using LIKE: %v", err)
	}
	if len(items) != 1 || items[0].ClaimID != "claim-fallback" {
		t.Errorf("got %v, want the single matching item", claimIDs(items))
	}
}

func TestRunMigrationsReportsFailingVersion(t *testing.T) {
	t.Parallel()

	db := setupUnmigratedDB(t)
	ctx := context.Background()

	boom := errors.New("boom")
	db.migrations = append(db.migrations, Migration{
		Version:     99,
		Description: "deliberately broken",
		Up: func(ctx context.Context, tx *sql.Tx) error {
			// Leave a visible side effect that the rollback must undo.
			if _, err := tx.ExecContext(ctx, "CREATE TABLE should_not_exist (id INTEGER)"); err != nil {
				return err
			}
			return boom
		},
	})

	err := db.RunMigrations(ctx)
	if err == nil {
		t.Fatal("RunMigrations succeeded with a broken migration")
	}

	var merr *MigrationError
	if !errors.As(err, &merr) {
		t.Fatalf("error type %T, want *MigrationError", err)
	}
	if merr.Version != 99 {
		t.Errorf("failing version = %d, want 99", merr.Version)
	}
	if !errors.Is(err, boom) {
		t.Errorf("MigrationError does not wrap the underlying cause")
	}

	// The failed migration rolled back alone; prior versions stay recorded.
	var count int
	if err := db.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("ledger read failed: %v", err)
	}
	if count != 3 {
		t.Errorf("ledger has %d entries after partial failure, want 3", count)
	}

	if _, tableErr := db.db.ExecContext(ctx, "SELECT 1 FROM should_not_exist"); tableErr == nil {
		t.Error("failed migration's table survived the rollback")
	}

	// The ledger does not retry recorded versions: a second run fails on 99
	// again, not on 1..3.
	err = db.RunMigrations(ctx)
	if !errors.As(err, &merr) || merr.Version != 99 {
		t.Errorf("replay error = %v, want MigrationError for version 99", err)
	}
}

func TestClearAll(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.StoreItems(ctx, []*ContentItem{testItem("claim-1"), testItem("claim-2")}); err != nil {
		t.Fatalf("StoreItems failed: %v", err)
	}

	if err := db.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll failed: %v", err)
	}

	count, err := db.CountItems(ctx)
	if err != nil {
		t.Fatalf("CountItems failed: %v", err)
	}
	if count != 0 {
		t.Errorf("count after ClearAll = %d, want 0", count)
	}

	// Tag mirror rows must cascade away with their items.
	var tagRows int
	if err := db.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM item_tags").Scan(&tagRows); err != nil {
		t.Fatalf("tag mirror read failed: %v", err)
	}
	if tagRows != 0 {
		t.Errorf("item_tags has %d rows after ClearAll, want 0", tagRows)
	}
}

func TestCalculateStats(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	item := testItem("claim-stats")
	item.Tags = []string{"movie", "comedy"}
	if err := db.StoreItems(ctx, []*ContentItem{item}); err != nil {
		t.Fatalf("StoreItems failed: %v", err)
	}

	stats, err := db.CalculateStats(ctx)
	if err != nil {
		t.Fatalf("CalculateStats failed: %v", err)
	}

	if stats.TotalItems != 1 {
		t.Errorf("TotalItems = %d, want 1", stats.TotalItems)
	}
	if stats.TotalTags != 2 {
		t.Errorf("TotalTags = %d, want 2", stats.TotalTags)
	}
	if stats.SchemaVersion != 3 {
		t.Errorf("SchemaVersion = %d, want 3", stats.SchemaVersion)
	}
	if !stats.FTSEnabled {
		t.Error("FTSEnabled = false with the bundled driver")
	}
}
