package handlers

import (
	"net/http"

	"rastreo/internal/workers"
)

// RefreshHandler controls the background refresh scheduler.
type RefreshHandler struct {
	refresher *workers.Refresher
}

// NewRefreshHandler creates a new refresh handler
func NewRefreshHandler(refresher *workers.Refresher) *RefreshHandler {
	return &RefreshHandler{refresher: refresher}
}

// Trigger handles POST /api/refresh, running one refresh pass.
func (h *RefreshHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	refreshed := h.refresher.RefreshRecent(r.Context())
	writeJSON(w, http.StatusOK, map[string]int{"refreshed": refreshed})
}

// Pause handles POST /api/refresh/pause
func (h *RefreshHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.refresher.Pause()
	writeJSON(w, http.StatusOK, map[string]bool{"paused": true})
}

// Resume handles POST /api/refresh/resume
func (h *RefreshHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.refresher.Resume()
	writeJSON(w, http.StatusOK, map[string]bool{"paused": false})
}

// Status handles GET /api/refresh
func (h *RefreshHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"paused": h.refresher.IsPaused()})
}
