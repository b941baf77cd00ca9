package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"media-catalogue/internal/database"
	"media-catalogue/internal/logging"

	"github.com/gorilla/mux"
)

// GetContent serves structured catalogue queries. Supported query
// parameters: tags (repeatable or comma-separated), match=all, text,
// order_by, limit, offset.
func (h *Handlers) GetContent(w http.ResponseWriter, r *http.Request) {
	query := database.CacheQuery{
		MatchAll: r.URL.Query().Get("match") == "all",
		OrderBy:  r.URL.Query().Get("order_by"),
	}

	for _, raw := range r.URL.Query()["tags"] {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				query.Tags = append(query.Tags, tag)
			}
		}
	}

	if r.URL.Query().Has("text") {
		text := r.URL.Query().Get("text")
		query.Text = &text
	}

	if r.URL.Query().Has("limit") {
		limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
		if err != nil || limit < 1 {
			writeJSONError(w, "invalid query parameters", http.StatusBadRequest)
			return
		}
		query.Limit = limit
	}
	if r.URL.Query().Has("offset") {
		offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
		if err != nil || offset < 0 {
			writeJSONError(w, "invalid query parameters", http.StatusBadRequest)
			return
		}
		query.Offset = offset
	}

	items, err := h.db.GetCachedContent(r.Context(), query)
	if err != nil {
		if database.IsInvalidQuery(err) {
			writeJSONError(w, "invalid query parameters", http.StatusBadRequest)
			return
		}
		logging.Error("content query failed: %v", err)
		writeJSONError(w, "query failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, items)
}

// GetContentItem serves a single cached item by claim ID.
func (h *Handlers) GetContentItem(w http.ResponseWriter, r *http.Request) {
	claimID := mux.Vars(r)["claimId"]

	item, err := h.db.GetItem(r.Context(), claimID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeJSONError(w, "not found", http.StatusNotFound)
			return
		}
		logging.Error("get item %q failed: %v", claimID, err)
		writeJSONError(w, "lookup failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, item)
}

// StoreContent upserts a batch of catalogue items from the request body.
func (h *Handlers) StoreContent(w http.ResponseWriter, r *http.Request) {
	var items []*database.ContentItem
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		writeJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if len(items) == 0 {
		writeJSONError(w, "empty batch", http.StatusBadRequest)
		return
	}

	if err := h.db.StoreItems(r.Context(), items); err != nil {
		logging.Error("store content failed: %v", err)
		writeJSONError(w, "store failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, map[string]int{"stored": len(items)})
}

// Search serves free-text search over cached titles and descriptions.
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")

	limit := 0
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}

	items, err := h.db.SearchContent(r.Context(), q, limit)
	if err != nil {
		if database.IsInvalidQuery(err) {
			writeJSONError(w, "invalid search query", http.StatusBadRequest)
			return
		}
		logging.Error("search failed: %v", err)
		writeJSONError(w, "search failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{
		"query": q,
		"items": items,
	})
}
