package handlers

import (
	"net/http"
	"strconv"
	"time"

	"media-catalogue/internal/logging"
)

// CleanupResponse reports the outcome of a cleanup pass
type CleanupResponse struct {
	Removed   int64  `json:"removed"`
	TTL       string `json:"ttl"`
	BatchSize int    `json:"batchSize"`
}

// TriggerCleanup runs one TTL cleanup pass. Optional query parameters:
// ttl (Go duration), batch_size.
func (h *Handlers) TriggerCleanup(w http.ResponseWriter, r *http.Request) {
	ttl := h.config.CacheTTL
	if raw := r.URL.Query().Get("ttl"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			writeJSONError(w, "invalid ttl", http.StatusBadRequest)
			return
		}
		ttl = parsed
	}

	batchSize := h.config.CleanupBatchSize
	if raw := r.URL.Query().Get("batch_size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeJSONError(w, "invalid batch_size", http.StatusBadRequest)
			return
		}
		batchSize = parsed
	}

	removed, err := h.db.Cleanup(r.Context(), ttl, batchSize)
	if err != nil {
		logging.Error("manual cleanup failed: %v", err)
		writeJSONError(w, "cleanup failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, CleanupResponse{
		Removed:   removed,
		TTL:       ttl.String(),
		BatchSize: batchSize,
	})
}

// TriggerClear drops every cached item. Offline media records are kept;
// only catalogue metadata is rebuilt from upstream on next sync.
func (h *Handlers) TriggerClear(w http.ResponseWriter, r *http.Request) {
	if err := h.db.ClearAll(r.Context()); err != nil {
		logging.Error("cache clear failed: %v", err)
		writeJSONError(w, "clear failed", http.StatusInternalServerError)
		return
	}

	logging.Info("cache cleared on request")
	writeJSONStatus(w, "cleared")
}

// TriggerOptimize runs storage maintenance (statistics refresh and
// full-text index compaction).
func (h *Handlers) TriggerOptimize(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if err := h.db.Optimize(r.Context()); err != nil {
		logging.Error("optimize failed: %v", err)
		writeJSONError(w, "optimize failed", http.StatusInternalServerError)
		return
	}

	logging.Info("storage optimize completed in %v", time.Since(start))
	writeJSONStatus(w, "optimized")
}

// GetStats returns cache statistics
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.db.CalculateStats(r.Context())
	if err != nil {
		logging.Error("stats calculation failed: %v", err)
		writeJSONError(w, "stats unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, stats)
}
