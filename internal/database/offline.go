package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SaveOfflineMedia records a downloaded media file for a claim, replacing
// any previous entry.
func (d *Database) SaveOfflineMedia(ctx context.Context, media *OfflineMedia) error {
	done := observeQuery("save_offline_media")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO offline_media (claim_id, file_path, size, encrypted, quality)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(claim_id) DO UPDATE SET
			file_path = excluded.file_path,
			size = excluded.size,
			encrypted = excluded.encrypted,
			quality = excluded.quality
	`, media.ClaimID, media.FilePath, media.Size, boolToInt(media.Encrypted), nullString(media.Quality))
	done(err)
	if err != nil {
		return fmt.Errorf("save offline media %q: %w", media.ClaimID, err)
	}
	return nil
}

// GetOfflineMedia returns the offline entry for a claim, or ErrNotFound.
func (d *Database) GetOfflineMedia(ctx context.Context, claimID string) (*OfflineMedia, error) {
	done := observeQuery("get_offline_media")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var (
		media     OfflineMedia
		encrypted int
		quality   sql.NullString
		addedAt   int64
	)
	err := d.db.QueryRowContext(ctx, `
		SELECT claim_id, file_path, size, encrypted, quality, added_at
		FROM offline_media WHERE claim_id = ?
	`, claimID).Scan(&media.ClaimID, &media.FilePath, &media.Size, &encrypted, &quality, &addedAt)

	if errors.Is(err, sql.ErrNoRows) {
		done(nil)
		return nil, fmt.Errorf("offline media %q: %w", claimID, ErrNotFound)
	}
	done(err)
	if err != nil {
		return nil, fmt.Errorf("get offline media %q: %w", claimID, err)
	}

	media.Encrypted = encrypted != 0
	media.Quality = quality.String
	media.AddedAt = time.Unix(addedAt, 0)
	return &media, nil
}

// DeleteOfflineMedia removes the offline entry for a claim. Removing an
// absent entry is not an error.
func (d *Database) DeleteOfflineMedia(ctx context.Context, claimID string) error {
	done := observeQuery("delete_offline_media")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx, "DELETE FROM offline_media WHERE claim_id = ?", claimID)
	done(err)
	if err != nil {
		return fmt.Errorf("delete offline media %q: %w", claimID, err)
	}
	return nil
}

// ListOfflineMedia returns all offline entries, optionally restricted to
// encrypted ones, ordered by most recently added.
func (d *Database) ListOfflineMedia(ctx context.Context, encryptedOnly bool) ([]OfflineMedia, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := `
		SELECT claim_id, file_path, size, encrypted, quality, added_at
		FROM offline_media
	`
	if encryptedOnly {
		// Served by the single-column encrypted index.
		query += " WHERE encrypted = 1"
	}
	query += " ORDER BY added_at DESC, claim_id ASC"

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list offline media: %w", err)
	}
	defer rows.Close()

	media := []OfflineMedia{}
	for rows.Next() {
		var (
			m         OfflineMedia
			encrypted int
			quality   sql.NullString
			addedAt   int64
		)
		if err := rows.Scan(&m.ClaimID, &m.FilePath, &m.Size, &encrypted, &quality, &addedAt); err != nil {
			return nil, fmt.Errorf("scan offline media: %w", err)
		}
		m.Encrypted = encrypted != 0
		m.Quality = quality.String
		m.AddedAt = time.Unix(addedAt, 0)
		media = append(media, m)
	}
	return media, rows.Err()
}
