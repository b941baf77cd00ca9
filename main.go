package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"media-catalogue/internal/database"
	"media-catalogue/internal/handlers"
	"media-catalogue/internal/logging"
	"media-catalogue/internal/memory"
	"media-catalogue/internal/metrics"
	"media-catalogue/internal/middleware"
	"media-catalogue/internal/startup"

	"github.com/gorilla/mux"
)

func main() {
	startTime := time.Now()

	// Configure GOMEMLIMIT from container limits before allocating anything
	memory.ConfigureFromEnv()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	if config.MetricsEnabled {
		metrics.InitializeMetrics()
	}

	// Open database (schema and ledger only; migrations run explicitly below)
	dbStart := time.Now()
	db, err := database.New(context.Background(), config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to open database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error("error closing database: %v", err)
		}
	}()
	startup.LogDatabaseInit(time.Since(dbStart), db.FTSEnabled())

	// Run schema migrations
	migStart := time.Now()
	pending, err := db.PendingMigrations(context.Background())
	if err != nil {
		startup.LogFatal("Failed to inspect schema state: %v", err)
	}
	if err := db.RunMigrations(context.Background()); err != nil {
		startup.LogFatal("Schema migration failed: %v", err)
	}
	startup.LogMigrations(len(pending), time.Since(migStart))

	// Start cache cleanup scheduler
	startup.LogCleanupInit(config.CleanupInterval, config.CacheTTL)
	cleanupStop := make(chan struct{})
	go runCleanupLoop(db, config, cleanupStop)
	startup.LogCleanupStarted()

	// Start periodic stats collection for Prometheus
	var collector *metrics.Collector
	if config.MetricsEnabled {
		collector = metrics.NewCollector(db, 30*time.Second)
		collector.Start()
	}

	// Initialize handlers
	h := handlers.New(db, config)

	// Setup router
	router := setupRouter(h, config)

	// Log routes dynamically
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	// Apply metrics middleware
	var handler http.Handler = router
	if config.MetricsEnabled {
		handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)
	}

	// Apply logging middleware
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler = middleware.Logger(loggingConfig)(handler)

	// Apply compression middleware
	handler = middleware.Compression(middleware.DefaultCompressionConfig())(handler)

	// Create server
	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	// Serve /metrics on its own port so scrapes bypass the API middleware
	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", h.MetricsHandler())
		metricsSrv = &http.Server{
			Addr:        ":" + config.MetricsPort,
			Handler:     metricsMux,
			ReadTimeout: 15 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != http.ErrServerClosed {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	// Start graceful shutdown handler
	go handleShutdown(srv, metricsSrv, collector, cleanupStop)

	// Start server
	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
}

func setupRouter(h *handlers.Handlers, config *startup.Config) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	// API routes
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/content", h.GetContent).Methods("GET")
	api.HandleFunc("/content", h.StoreContent).Methods("POST")
	api.HandleFunc("/content/{claimId}", h.GetContentItem).Methods("GET")
	api.HandleFunc("/search", h.Search).Methods("GET")
	api.HandleFunc("/stats", h.GetStats).Methods("GET")
	api.HandleFunc("/stream/{claimId}", h.StreamMedia).Methods("GET", "HEAD")

	// Maintenance
	api.HandleFunc("/maintenance/cleanup", h.TriggerCleanup).Methods("POST")
	api.HandleFunc("/maintenance/optimize", h.TriggerOptimize).Methods("POST")
	api.HandleFunc("/maintenance/clear", h.TriggerClear).Methods("POST")

	// Metrics also on the main port for single-port deployments
	if config.MetricsEnabled {
		r.Handle("/metrics", h.MetricsHandler()).Methods("GET")
	}

	return r
}

// runCleanupLoop evicts expired cache entries on a fixed interval until
// stop is closed.
func runCleanupLoop(db *database.Database, config *startup.Config, stop <-chan struct{}) {
	ticker := time.NewTicker(config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			removed, err := db.Cleanup(ctx, config.CacheTTL, config.CleanupBatchSize)
			cancel()
			if err != nil {
				logging.Error("scheduled cleanup failed: %v", err)
			} else if removed > 0 {
				logging.Debug("scheduled cleanup removed %d entries", removed)
			}
		case <-stop:
			return
		}
	}
}

func handleShutdown(srv, metricsSrv *http.Server, collector *metrics.Collector, cleanupStop chan struct{}) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Stopping cleanup scheduler")
	close(cleanupStop)
	startup.LogShutdownStepComplete("Cleanup scheduler stopped")

	if collector != nil {
		startup.LogShutdownStep("Stopping metrics collector")
		collector.Stop()
		startup.LogShutdownStepComplete("Metrics collector stopped")
	}

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownComplete()
}
