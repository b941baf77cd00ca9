package database

import (
	"encoding/json"
	"time"
)

// VideoURL describes one playable rendition of an item.
type VideoURL struct {
	URL     string `json:"url"`
	Quality string `json:"quality"`
	URLType string `json:"urlType"`
	Codec   string `json:"codec,omitempty"`
}

// Compatibility records whether an item's encoding is known-playable on this
// device, and whether a fallback rendition exists when it is not.
type Compatibility struct {
	Compatible        bool   `json:"compatible"`
	FallbackAvailable bool   `json:"fallbackAvailable"`
	Reason            string `json:"reason,omitempty"`
}

// ContentItem is one cached catalogue entry, keyed by ClaimID.
type ContentItem struct {
	ClaimID       string              `json:"claimId"`
	Title         string              `json:"title"`
	Description   string              `json:"description,omitempty"`
	Tags          []string            `json:"tags,omitempty"`
	ThumbnailURL  string              `json:"thumbnailUrl,omitempty"`
	Duration      int64               `json:"duration,omitempty"` // seconds
	ReleaseTime   int64               `json:"releaseTime"`        // epoch seconds
	VideoURLs     map[string]VideoURL `json:"videoUrls,omitempty"`
	Compatibility Compatibility       `json:"compatibility"`
	ETag          string              `json:"etag,omitempty"`
	ContentHash   string              `json:"contentHash,omitempty"`
	RawJSON       json.RawMessage     `json:"rawJson,omitempty"`

	// Storage-managed fields, populated on read.
	LastAccessed time.Time `json:"lastAccessed,omitzero"`
	AccessCount  int64     `json:"accessCount,omitempty"`
	InsertedAt   time.Time `json:"insertedAt,omitzero"`
	UpdatedAt    time.Time `json:"updatedAt,omitzero"`
}

// CacheQuery is a structured request descriptor. Exactly these fields are
// ever forwarded to SQL construction; every string passes through the
// sanitizer before it reaches a statement.
type CacheQuery struct {
	// Tags filters to items carrying the requested tags. By default an item
	// matching ANY requested tag is returned (match-any). Set MatchAll for
	// items carrying every requested tag. Easy to get backwards — the
	// default is deliberately match-any, mirroring how tag browsing works
	// in the catalogue UI.
	Tags     []string
	MatchAll bool

	// Text is an optional free-text filter. nil means no text filter; a
	// non-nil empty (or whitespace-only) string short-circuits to an empty
	// result set without touching the store.
	Text *string

	// OrderBy is "<column> [ASC|DESC]" against the sanitizer's column
	// allow-list. Empty defaults to "releaseTime DESC". Ties are always
	// broken by claim_id ascending for stable pagination.
	OrderBy string

	// Limit and Offset bound the result window; zero values mean
	// "unbounded" and "from the start" respectively. Non-zero values pass
	// through the sanitizer's range checks.
	Limit  int
	Offset int
}

// OfflineMedia records a downloaded media file available for local playback.
type OfflineMedia struct {
	ClaimID   string    `json:"claimId"`
	FilePath  string    `json:"filePath"`
	Size      int64     `json:"size"`
	Encrypted bool      `json:"encrypted"`
	Quality   string    `json:"quality,omitempty"`
	AddedAt   time.Time `json:"addedAt,omitzero"`
}

// CacheStats summarizes the cache for the stats endpoint.
type CacheStats struct {
	TotalItems            int    `json:"totalItems"`
	TotalTags             int    `json:"totalTags"`
	OfflineMedia          int    `json:"offlineMedia"`
	OfflineMediaEncrypted int    `json:"offlineMediaEncrypted"`
	FTSEnabled            bool   `json:"ftsEnabled"`
	SchemaVersion         int    `json:"schemaVersion"`
	DBSizeBytes           int64  `json:"dbSizeBytes"`
	DBPath                string `json:"-"`
}
