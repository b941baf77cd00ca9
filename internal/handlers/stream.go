package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"media-catalogue/internal/database"
	"media-catalogue/internal/filesystem"
	"media-catalogue/internal/httprange"
	"media-catalogue/internal/logging"
	"media-catalogue/internal/metrics"
	"media-catalogue/internal/streaming"

	"github.com/gorilla/mux"
)

// StreamMedia serves a downloaded media file with byte-range support.
// Absent Range header: 200 with the full file. Valid Range: 206 with the
// requested slice. Unsatisfiable Range: 416 with the total length.
func (h *Handlers) StreamMedia(w http.ResponseWriter, r *http.Request) {
	claimID := mux.Vars(r)["claimId"]

	media, err := h.db.GetOfflineMedia(r.Context(), claimID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeJSONError(w, "no offline media for claim", http.StatusNotFound)
			return
		}
		logging.Error("offline media lookup %q failed: %v", claimID, err)
		writeJSONError(w, "lookup failed", http.StatusInternalServerError)
		return
	}

	if media.Encrypted {
		// Encrypted downloads are decrypted by the player, not streamed raw.
		writeJSONError(w, "media is encrypted", http.StatusConflict)
		return
	}

	// Media cache may live on an NFS volume; retry stale handles.
	file, err := filesystem.OpenWithRetry(media.FilePath, filesystem.DefaultRetryConfig())
	if err != nil {
		logging.Error("open media file %q failed: %v", media.FilePath, err)
		writeJSONError(w, "media file unavailable", http.StatusNotFound)
		return
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Error("error closing media file: %v", err)
		}
	}()

	info, err := file.Stat()
	if err != nil {
		logging.Error("stat media file %q failed: %v", media.FilePath, err)
		writeJSONError(w, "media file unavailable", http.StatusInternalServerError)
		return
	}
	size := uint64(info.Size())

	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", contentTypeFor(media.FilePath))

	rangeHeader := r.Header.Get("Range")
	if rangeHeader == "" {
		metrics.RangeRequestsTotal.WithLabelValues("none").Inc()
		w.Header().Set("Content-Length", strconv.FormatUint(size, 10))
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			if _, err := streaming.Copy(r.Context(), w, file, -1, streaming.DefaultTimeoutWriterConfig()); err != nil {
				logging.Debug("stream copy for %q aborted: %v", claimID, err)
			}
		}
		h.touchAfterServe(claimID)
		return
	}

	rng, err := httprange.Resolve(rangeHeader, size)
	if err != nil {
		metrics.RangeRequestsTotal.WithLabelValues("rejected").Inc()
		logging.Debug("rejected range %q for %q: %v", rangeHeader, claimID, err)
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		writeJSONError(w, "unsatisfiable range", http.StatusRequestedRangeNotSatisfiable)
		return
	}

	metrics.RangeRequestsTotal.WithLabelValues("resolved").Inc()

	if _, err := file.Seek(int64(rng.Start), io.SeekStart); err != nil {
		logging.Error("seek media file %q failed: %v", media.FilePath, err)
		writeJSONError(w, "media file unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Range", rng.ContentRange(size))
	w.Header().Set("Content-Length", strconv.FormatUint(rng.Length(), 10))
	w.WriteHeader(http.StatusPartialContent)

	if r.Method != http.MethodHead {
		if _, err := streaming.Copy(r.Context(), w, file, int64(rng.Length()), streaming.DefaultTimeoutWriterConfig()); err != nil {
			// Players abort ranges mid-flight constantly; not an error.
			logging.Debug("range copy for %q aborted: %v", claimID, err)
		}
	}

	h.touchAfterServe(claimID)
}

// touchAfterServe records the playback access for TTL accounting. Uses a
// fresh context: the request context is already canceled when a player
// drops the connection mid-range.
func (h *Handlers) touchAfterServe(claimID string) {
	if err := h.db.TouchItem(context.Background(), claimID); err != nil {
		logging.Warn("failed to record access for %q: %v", claimID, err)
	}
}

func contentTypeFor(path string) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
