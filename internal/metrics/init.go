package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, file := range []string{"main", "wal", "shm"} {
		DBSizeBytes.WithLabelValues(file)
	}

	for _, op := range []string{"initialize_schema", "run_migrations", "store_items",
		"get_cached_content", "search_content", "get_item", "touch_item",
		"cleanup", "optimize", "analyze_query", "clear_all",
		"save_offline_media", "get_offline_media", "delete_offline_media"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, outcome := range []string{"commit", "rollback"} {
		DBTransactionDuration.WithLabelValues(outcome)
	}

	for _, kind := range []string{"tag", "order_by", "like_pattern", "fts_query", "limit", "offset"} {
		SanitizerRejections.WithLabelValues(kind, "query")
	}

	for _, result := range []string{"resolved", "rejected", "none"} {
		RangeRequestsTotal.WithLabelValues(result)
	}

	for _, enc := range []string{"yes", "no"} {
		OfflineMediaTotal.WithLabelValues(enc)
	}

	CleanupRunsTotal.WithLabelValues("success")
	CleanupRunsTotal.WithLabelValues("error")
}
