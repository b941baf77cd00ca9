package database

import (
	"context"
	"errors"
	"testing"
)

func TestOfflineMediaRoundTrip(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	media := &OfflineMedia{
		ClaimID:   "claim-1",
		FilePath:  "/cache/claim-1/720p.mp4",
		Size:      1 << 20,
		Encrypted: true,
		Quality:   "720p",
	}
	if err := db.SaveOfflineMedia(ctx, media); err != nil {
		t.Fatalf("SaveOfflineMedia failed: %v", err)
	}

	got, err := db.GetOfflineMedia(ctx, "claim-1")
	if err != nil {
		t.Fatalf("GetOfflineMedia failed: %v", err)
	}
	if got.FilePath != media.FilePath || got.Size != media.Size || !got.Encrypted || got.Quality != "720p" {
		t.Errorf("round trip = %+v, want %+v", got, media)
	}
	if got.AddedAt.IsZero() {
		t.Error("AddedAt not populated")
	}

	// Replacing updates in place.
	media.FilePath = "/cache/claim-1/1080p.mp4"
	media.Quality = "1080p"
	if err := db.SaveOfflineMedia(ctx, media); err != nil {
		t.Fatalf("replace failed: %v", err)
	}
	got, err = db.GetOfflineMedia(ctx, "claim-1")
	if err != nil {
		t.Fatalf("GetOfflineMedia after replace failed: %v", err)
	}
	if got.Quality != "1080p" {
		t.Errorf("Quality = %q after replace, want 1080p", got.Quality)
	}
}

func TestOfflineMediaNotFound(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)

	if _, err := db.GetOfflineMedia(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetOfflineMedia(missing) = %v, want ErrNotFound", err)
	}
}

func TestDeleteOfflineMedia(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.SaveOfflineMedia(ctx, &OfflineMedia{ClaimID: "claim-1", FilePath: "/cache/a", Size: 1}); err != nil {
		t.Fatalf("SaveOfflineMedia failed: %v", err)
	}
	if err := db.DeleteOfflineMedia(ctx, "claim-1"); err != nil {
		t.Fatalf("DeleteOfflineMedia failed: %v", err)
	}
	if _, err := db.GetOfflineMedia(ctx, "claim-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("entry still present after delete: %v", err)
	}

	// Deleting again is fine.
	if err := db.DeleteOfflineMedia(ctx, "claim-1"); err != nil {
		t.Errorf("repeat delete errored: %v", err)
	}
}

func TestListOfflineMedia(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	entries := []*OfflineMedia{
		{ClaimID: "plain", FilePath: "/cache/plain", Size: 10},
		{ClaimID: "secret", FilePath: "/cache/secret", Size: 20, Encrypted: true},
	}
	for _, e := range entries {
		if err := db.SaveOfflineMedia(ctx, e); err != nil {
			t.Fatalf("SaveOfflineMedia(%q) failed: %v", e.ClaimID, err)
		}
	}

	all, err := db.ListOfflineMedia(ctx, false)
	if err != nil {
		t.Fatalf("ListOfflineMedia failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("listed %d entries, want 2", len(all))
	}

	encrypted, err := db.ListOfflineMedia(ctx, true)
	if err != nil {
		t.Fatalf("ListOfflineMedia(encrypted) failed: %v", err)
	}
	if len(encrypted) != 1 || encrypted[0].ClaimID != "secret" {
		t.Errorf("encrypted list = %v", encrypted)
	}
}
