// Package metrics declares the Prometheus metrics exported by the catalogue
// cache service and provides a periodic collector for gauge-style statistics.
//
// All metrics use the "catalogue_cache_" prefix. Counters and histograms are
// registered via promauto at package load; InitializeMetrics pre-populates
// known label combinations so every series is present from the first scrape.
package metrics
