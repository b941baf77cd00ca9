package metrics

import (
	"time"
)

// StatsProvider supplies point-in-time cache statistics for gauge metrics.
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds the current cache statistics.
type Stats struct {
	TotalItems            int
	TotalTags             int
	OfflineMedia          int
	OfflineMediaEncrypted int
	DBSizeBytes           int64
	WALSizeBytes          int64
	SHMSizeBytes          int64
}

// Collector periodically collects and updates gauge metrics.
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector.
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop.
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection.
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	// Collect immediately on start
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()

	CachedItemsTotal.Set(float64(stats.TotalItems))
	CachedTagsTotal.Set(float64(stats.TotalTags))
	OfflineMediaTotal.WithLabelValues("yes").Set(float64(stats.OfflineMediaEncrypted))
	OfflineMediaTotal.WithLabelValues("no").Set(float64(stats.OfflineMedia - stats.OfflineMediaEncrypted))
	DBSizeBytes.WithLabelValues("main").Set(float64(stats.DBSizeBytes))
	DBSizeBytes.WithLabelValues("wal").Set(float64(stats.WALSizeBytes))
	DBSizeBytes.WithLabelValues("shm").Set(float64(stats.SHMSizeBytes))
}
