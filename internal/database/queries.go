package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"media-catalogue/internal/logging"
	"media-catalogue/internal/sanitize"
)

const selectItemColumns = `SELECT
	claim_id, title, description, tags, thumbnail_url, duration, release_time,
	video_urls, compatible, fallback_available, compat_reason, etag,
	content_hash, raw_json, last_accessed, access_count, inserted_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (*ContentItem, error) {
	var (
		item         ContentItem
		description  sql.NullString
		tagsJSON     string
		thumbnail    sql.NullString
		duration     sql.NullInt64
		urlsJSON     string
		compatible   int
		fallback     int
		reason       sql.NullString
		etag         sql.NullString
		contentHash  sql.NullString
		rawJSON      sql.NullString
		lastAccessed int64
		insertedAt   int64
		updatedAt    int64
	)

	err := row.Scan(
		&item.ClaimID, &item.Title, &description, &tagsJSON, &thumbnail,
		&duration, &item.ReleaseTime, &urlsJSON, &compatible, &fallback,
		&reason, &etag, &contentHash, &rawJSON, &lastAccessed,
		&item.AccessCount, &insertedAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.Description = description.String
	item.ThumbnailURL = thumbnail.String
	item.Duration = duration.Int64
	item.Compatibility = Compatibility{
		Compatible:        compatible != 0,
		FallbackAvailable: fallback != 0,
		Reason:            reason.String,
	}
	item.ETag = etag.String
	item.ContentHash = contentHash.String
	if rawJSON.Valid {
		item.RawJSON = json.RawMessage(rawJSON.String)
	}
	item.LastAccessed = time.Unix(lastAccessed, 0)
	item.InsertedAt = time.Unix(insertedAt, 0)
	item.UpdatedAt = time.Unix(updatedAt, 0)

	if err := json.Unmarshal([]byte(tagsJSON), &item.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags for %q: %w", item.ClaimID, err)
	}
	if err := json.Unmarshal([]byte(urlsJSON), &item.VideoURLs); err != nil {
		return nil, fmt.Errorf("unmarshal video urls for %q: %w", item.ClaimID, err)
	}

	return &item, nil
}

// GetCachedContent executes a structured query against the cache. Every
// dynamic fragment passes through the sanitizer; the SQL text is assembled
// only from validated fragment values and bound parameters.
//
// A query matching zero rows returns an empty slice, never an error. A
// non-nil empty Text returns an empty slice without touching the store.
func (d *Database) GetCachedContent(ctx context.Context, q CacheQuery) ([]ContentItem, error) {
	done := observeQuery("get_cached_content")
	items, err := d.getCachedContent(ctx, q)
	done(err)
	return items, err
}

// getCachedContent carries no metric observation so callers that are
// themselves observed do not count each query twice.
func (d *Database) getCachedContent(ctx context.Context, q CacheQuery) ([]ContentItem, error) {
	// Empty search text means "the user cleared the box", not "no filter".
	if q.Text != nil && strings.TrimSpace(*q.Text) == "" {
		return []ContentItem{}, nil
	}

	query, args, err := d.buildContentQuery(q)
	if err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("content query failed: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.Error("error closing rows: %v", err)
		}
	}()

	items := []ContentItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

// buildContentQuery assembles the SQL statement and bind arguments for a
// CacheQuery from sanitizer-approved fragments only.
func (d *Database) buildContentQuery(q CacheQuery) (string, []interface{}, error) {
	var (
		where []string
		args  []interface{}
	)

	if len(q.Tags) > 0 {
		tags, err := d.san.Tags(q.Tags)
		if err != nil {
			return "", nil, err
		}

		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(tags)), ", ")
		if q.MatchAll {
			where = append(where, fmt.Sprintf(
				"(SELECT COUNT(DISTINCT it.tag) FROM item_tags it WHERE it.claim_id = items.claim_id AND it.tag IN (%s)) = %d",
				placeholders, len(tags)))
		} else {
			where = append(where, fmt.Sprintf(
				"EXISTS (SELECT 1 FROM item_tags it WHERE it.claim_id = items.claim_id AND it.tag IN (%s))",
				placeholders))
		}
		for _, tag := range tags {
			args = append(args, string(tag))
		}
	}

	if q.Text != nil {
		clause, textArgs, err := d.textSearchClause(*q.Text)
		if err != nil {
			return "", nil, err
		}
		where = append(where, clause)
		args = append(args, textArgs...)
	}

	orderBy := q.OrderBy
	if orderBy == "" {
		orderBy = "releaseTime DESC"
	}
	ob, err := d.san.OrderBy(orderBy)
	if err != nil {
		return "", nil, err
	}

	query := selectItemColumns + " FROM items"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	// Explicit claim_id tie-break keeps pagination stable regardless of
	// storage order.
	query += " ORDER BY " + ob.Clause() + ", claim_id ASC"

	if q.Limit > 0 || q.Offset > 0 {
		limit := -1 // SQLite: LIMIT -1 means unbounded, required when OFFSET is used alone
		if q.Limit > 0 {
			validated, err := d.san.Limit(q.Limit)
			if err != nil {
				return "", nil, err
			}
			limit = int(validated)
		}

		offset := 0
		if q.Offset > 0 {
			validated, err := d.san.Offset(q.Offset)
			if err != nil {
				return "", nil, err
			}
			offset = int(validated)
		}

		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	}

	return query, args, nil
}

// textSearchClause routes text search through FTS5 when available, or an
// escaped LIKE substring match across title and description otherwise.
func (d *Database) textSearchClause(text string) (string, []interface{}, error) {
	if d.ftsEnabled {
		match, err := d.san.MatchQuery(text)
		if err != nil {
			return "", nil, err
		}
		return "items.rowid IN (SELECT rowid FROM items_fts WHERE items_fts MATCH ?)",
			[]interface{}{string(match)}, nil
	}

	pattern, err := d.san.LikePattern(strings.ToLower(text))
	if err != nil {
		return "", nil, err
	}
	operand := "%" + string(pattern) + "%"
	return `(items.title_lower LIKE ? ESCAPE '\' OR LOWER(COALESCE(items.description, '')) LIKE ? ESCAPE '\')`,
		[]interface{}{operand, operand}, nil
}

// SearchContent is the text-only query surface: newest matches first, bounded
// by limit (default 50). An empty query returns an empty result set.
func (d *Database) SearchContent(ctx context.Context, text string, limit int) ([]ContentItem, error) {
	done := observeQuery("search_content")

	if strings.TrimSpace(text) == "" {
		done(nil)
		return []ContentItem{}, nil
	}

	if limit <= 0 {
		limit = 50
	}
	if _, err := d.san.Limit(limit); err != nil {
		done(err)
		return nil, err
	}

	items, err := d.getCachedContent(ctx, CacheQuery{Text: &text, Limit: limit})
	done(err)
	return items, err
}

// IsInvalidQuery reports whether err came from sanitizer validation rather
// than storage.
func IsInvalidQuery(err error) bool {
	return errors.Is(err, sanitize.ErrInvalidInput) || errors.Is(err, sanitize.ErrOutOfRange)
}
