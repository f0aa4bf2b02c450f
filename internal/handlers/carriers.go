package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"rastreo/internal/carriers"
)

// CarrierHandler serves the carrier metadata registry.
type CarrierHandler struct{}

// NewCarrierHandler creates a new carrier handler
func NewCarrierHandler() *CarrierHandler {
	return &CarrierHandler{}
}

// List handles GET /api/carriers
func (h *CarrierHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, carriers.AllInfo())
}

// Get handles GET /api/carriers/{carrier}
func (h *CarrierHandler) Get(w http.ResponseWriter, r *http.Request) {
	info, ok := carriers.Info(carriers.Carrier(chi.URLParam(r, "carrier")))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown carrier")
		return
	}
	writeJSON(w, http.StatusOK, info)
}
