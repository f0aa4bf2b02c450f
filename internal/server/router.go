package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rastreo/internal/cache"
	"rastreo/internal/database"
	"rastreo/internal/handlers"
	"rastreo/internal/workers"
)

// NewRouter wires the API routes.
func NewRouter(db *database.DB, cacheManager *cache.Manager, refresher *workers.Refresher, logger *slog.Logger) http.Handler {
	trackHandler := handlers.NewTrackHandler(cacheManager, db.History, logger)
	historyHandler := handlers.NewHistoryHandler(db.History, logger)
	refreshHandler := handlers.NewRefreshHandler(refresher)
	cacheHandler := handlers.NewCacheHandler(cacheManager)
	carrierHandler := handlers.NewCarrierHandler()
	healthHandler := handlers.NewHealthHandler(db)

	r := chi.NewRouter()
	r.Use(Logging(logger))
	r.Use(Recovery(logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.HealthCheck)

		r.Post("/track", trackHandler.Track)
		r.Get("/track/{carrier}/{identifier}", trackHandler.TrackByPath)

		r.Get("/history", historyHandler.List)
		r.Delete("/history", historyHandler.Clear)
		r.Delete("/history/{id}", historyHandler.Delete)

		r.Get("/refresh", refreshHandler.Status)
		r.Post("/refresh", refreshHandler.Trigger)
		r.Post("/refresh/pause", refreshHandler.Pause)
		r.Post("/refresh/resume", refreshHandler.Resume)

		r.Delete("/cache", cacheHandler.Clear)
		r.Get("/cache/{tag}", cacheHandler.State)
		r.Delete("/cache/{tag}", cacheHandler.Invalidate)

		r.Get("/carriers", carrierHandler.List)
		r.Get("/carriers/{carrier}", carrierHandler.Get)
	})

	return r
}
