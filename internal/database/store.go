package database

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"media-catalogue/internal/logging"
	"media-catalogue/internal/metrics"
)

// ErrNotFound is returned when a requested item or offline entry is not
// cached.
var ErrNotFound = errors.New("not found")

// contentHash derives a deterministic digest of the item's content fields.
// It is recomputed on every store so change detection survives partial
// upstream payloads. Maps serialize with sorted keys, so the digest is
// stable across runs.
func contentHash(item *ContentItem) string {
	payload := struct {
		Title         string              `json:"title"`
		Description   string              `json:"description"`
		Tags          []string            `json:"tags"`
		ThumbnailURL  string              `json:"thumbnailUrl"`
		Duration      int64               `json:"duration"`
		ReleaseTime   int64               `json:"releaseTime"`
		VideoURLs     map[string]VideoURL `json:"videoUrls"`
		Compatibility Compatibility       `json:"compatibility"`
	}{
		Title:         item.Title,
		Description:   item.Description,
		Tags:          item.Tags,
		ThumbnailURL:  item.ThumbnailURL,
		Duration:      item.Duration,
		ReleaseTime:   item.ReleaseTime,
		VideoURLs:     item.VideoURLs,
		Compatibility: item.Compatibility,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		// Marshal of these field types cannot fail in practice.
		logging.Error("content hash marshal failed: %v", err)
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// StoreItems bulk-upserts catalogue items by claim_id in a single
// transaction. Each stored item gets a recomputed content_hash and
// title_lower and a refreshed updated_at; inserted_at, last_accessed and
// access_count are preserved when the row already exists. Tag mirror rows
// are rewritten to match the stored tags.
func (d *Database) StoreItems(ctx context.Context, items []*ContentItem) error {
	done := observeQuery("store_items")

	if len(items) == 0 {
		done(nil)
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	txStart := time.Now()
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		done(err)
		return fmt.Errorf("store items: begin transaction: %w", err)
	}

	committed := false
	defer func() {
		outcome := "commit"
		if !committed {
			outcome = "rollback"
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.Error("store items rollback failed: %v", rbErr)
			}
		}
		metrics.DBTransactionDuration.WithLabelValues(outcome).Observe(time.Since(txStart).Seconds())
	}()

	for _, item := range items {
		if err := storeItemTx(ctx, tx, item); err != nil {
			done(err)
			return fmt.Errorf("store item %q: %w", item.ClaimID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		done(err)
		return fmt.Errorf("store items: commit: %w", err)
	}
	committed = true

	metrics.DBRowsAffected.WithLabelValues("store_items").Observe(float64(len(items)))
	done(nil)
	return nil
}

func storeItemTx(ctx context.Context, tx *sql.Tx, item *ContentItem) error {
	if strings.TrimSpace(item.ClaimID) == "" {
		return errors.New("empty claim_id")
	}

	item.ContentHash = contentHash(item)

	tagsJSON, err := json.Marshal(item.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	urlsJSON, err := json.Marshal(item.VideoURLs)
	if err != nil {
		return fmt.Errorf("marshal video urls: %w", err)
	}

	var rawJSON sql.NullString
	if len(item.RawJSON) > 0 {
		rawJSON = sql.NullString{String: string(item.RawJSON), Valid: true}
	}

	// inserted_at, last_accessed and access_count deliberately absent from
	// the UPDATE set: replacement refreshes content, not access history.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO items (
			claim_id, title, title_lower, description, tags, thumbnail_url,
			duration, release_time, video_urls, compatible, fallback_available,
			compat_reason, etag, content_hash, raw_json, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, strftime('%s', 'now'))
		ON CONFLICT(claim_id) DO UPDATE SET
			title = excluded.title,
			title_lower = excluded.title_lower,
			description = excluded.description,
			tags = excluded.tags,
			thumbnail_url = excluded.thumbnail_url,
			duration = excluded.duration,
			release_time = excluded.release_time,
			video_urls = excluded.video_urls,
			compatible = excluded.compatible,
			fallback_available = excluded.fallback_available,
			compat_reason = excluded.compat_reason,
			etag = excluded.etag,
			content_hash = excluded.content_hash,
			raw_json = excluded.raw_json,
			updated_at = strftime('%s', 'now')
	`,
		item.ClaimID,
		item.Title,
		strings.ToLower(item.Title),
		nullString(item.Description),
		string(tagsJSON),
		nullString(item.ThumbnailURL),
		nullInt64(item.Duration),
		item.ReleaseTime,
		string(urlsJSON),
		boolToInt(item.Compatibility.Compatible),
		boolToInt(item.Compatibility.FallbackAvailable),
		nullString(item.Compatibility.Reason),
		nullString(item.ETag),
		item.ContentHash,
		rawJSON,
	)
	if err != nil {
		return err
	}

	// Rewrite the tag mirror.
	if _, err := tx.ExecContext(ctx, "DELETE FROM item_tags WHERE claim_id = ?", item.ClaimID); err != nil {
		return fmt.Errorf("clear tag mirror: %w", err)
	}
	for _, tag := range item.Tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO item_tags (claim_id, tag, release_time) VALUES (?, ?, ?)
		`, item.ClaimID, tag, item.ReleaseTime); err != nil {
			return fmt.Errorf("insert tag mirror: %w", err)
		}
	}

	return nil
}

// GetItem returns a single cached item by claim ID, or ErrNotFound.
func (d *Database) GetItem(ctx context.Context, claimID string) (*ContentItem, error) {
	done := observeQuery("get_item")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := d.db.QueryRowContext(ctx, selectItemColumns+" FROM items WHERE claim_id = ?", claimID)

	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		done(nil)
		return nil, fmt.Errorf("item %q: %w", claimID, ErrNotFound)
	}
	done(err)
	if err != nil {
		return nil, fmt.Errorf("get item %q: %w", claimID, err)
	}
	return item, nil
}

// TouchItem records a playback access: bumps access_count and refreshes
// last_accessed, which feeds TTL cleanup ordering.
func (d *Database) TouchItem(ctx context.Context, claimID string) error {
	done := observeQuery("touch_item")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx, `
		UPDATE items
		SET last_accessed = strftime('%s', 'now'), access_count = access_count + 1
		WHERE claim_id = ?
	`, claimID)
	done(err)
	if err != nil {
		return fmt.Errorf("touch item %q: %w", claimID, err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt64(n int64) sql.NullInt64 {
	return sql.NullInt64{Int64: n, Valid: n != 0}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
