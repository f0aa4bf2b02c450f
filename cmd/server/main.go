package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"rastreo/internal/cache"
	"rastreo/internal/carriers"
	"rastreo/internal/config"
	"rastreo/internal/database"
	"rastreo/internal/server"
	"rastreo/internal/tracking"
	"rastreo/internal/workers"
)

func main() {
	cfg, err := config.Load(nil)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := newLogger(cfg.LogLevel)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	logger.Info("database initialized", "path", cfg.DBPath)

	headless := carriers.DefaultHeadlessOptions()
	headless.Timeout = cfg.HeadlessTimeout

	factory := carriers.NewClientFactory(headless)
	for tag, baseURL := range cfg.CarrierBaseURLs {
		factory.SetCarrierConfig(carriers.Carrier(tag), &carriers.CarrierConfig{BaseURL: baseURL})
	}
	defer factory.Close()

	if cfg.HeadlessEnabled {
		if err := carriers.ValidateChromeAvailable(); err != nil {
			logger.Warn("headless browser unavailable, browser-driven carriers will fail", "error", err)
		}
	}

	service := tracking.NewService(factory, logger)
	service.SetTimeout(cfg.QueryTimeout)

	thresholds := cache.Thresholds{
		Stale:      cfg.CacheStale,
		Revalidate: cfg.CacheRevalidate,
		Expire:     cfg.CacheExpire,
	}
	cacheManager := cache.NewManager(service, db.ResultCache, thresholds, logger)
	defer cacheManager.Stop()

	refresher := workers.NewRefresher(cacheManager, db.History, cfg.RefreshInterval, cfg.RefreshWindow, logger)
	if cfg.RefreshEnabled {
		refresher.Start()
		defer refresher.Stop()
	}

	srv := &http.Server{
		Addr:    cfg.Address(),
		Handler: server.NewRouter(db, cacheManager, refresher, logger),

		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute, // headless queries can run long
		IdleTimeout:  60 * time.Second,
	}

	if err := server.HandleSignals(srv, 30*time.Second); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
