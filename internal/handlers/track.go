package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rastreo/internal/cache"
	"rastreo/internal/carriers"
	"rastreo/internal/database"
)

// TrackRequest is the POST body for a tracking query. Single-key carriers
// use trackingNumber; the composite carrier uses letra/boca/numero.
type TrackRequest struct {
	Carrier        string `json:"carrier"`
	TrackingNumber string `json:"trackingNumber"`
	Letra          string `json:"letra"`
	Boca           string `json:"boca"`
	Numero         string `json:"numero"`
}

// TrackHandler serves tracking queries through the cache layer and records
// successful lookups in the history.
type TrackHandler struct {
	cache   *cache.Manager
	history *database.HistoryStore
	logger  *slog.Logger
}

// NewTrackHandler creates a new track handler
func NewTrackHandler(cacheManager *cache.Manager, history *database.HistoryStore, logger *slog.Logger) *TrackHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TrackHandler{cache: cacheManager, history: history, logger: logger}
}

// Track handles POST /api/track
func (h *TrackHandler) Track(w http.ResponseWriter, r *http.Request) {
	var req TrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	carrier := carriers.Carrier(req.Carrier)
	if !carrier.IsValid() {
		writeError(w, http.StatusBadRequest, "unknown carrier: "+req.Carrier)
		return
	}

	var id carriers.TrackingID
	if carrier == carriers.BusPack {
		id = carriers.NewBusPackID(req.Letra, req.Boca, req.Numero)
	} else {
		id = carriers.NewTrackingID(carrier, req.TrackingNumber)
	}
	h.respond(w, r, id)
}

// TrackByPath handles GET /api/track/{carrier}/{identifier}. The composite
// carrier's identifier is its "letra-boca-numero" display form.
func (h *TrackHandler) TrackByPath(w http.ResponseWriter, r *http.Request) {
	carrier := carriers.Carrier(chi.URLParam(r, "carrier"))
	if !carrier.IsValid() {
		writeError(w, http.StatusBadRequest, "unknown carrier")
		return
	}
	identifier := chi.URLParam(r, "identifier")

	id, ok := carriers.ParseIdentifier(carrier, identifier)
	if !ok {
		writeError(w, http.StatusBadRequest, "malformed identifier")
		return
	}
	h.respond(w, r, id)
}

// respond runs the query and writes the envelope. The envelope itself is
// always 200; HTTP status codes are reserved for malformed requests.
func (h *TrackHandler) respond(w http.ResponseWriter, r *http.Request, id carriers.TrackingID) {
	result := h.cache.Track(r.Context(), id)

	if result.Success && h.history != nil {
		id = id.Normalize()
		if err := h.history.AddOrUpdate(id.Carrier, id.Display(), result.Data); err != nil {
			h.logger.Error("failed to record history", "id", id.Key(), "error", err)
		}
	}
	writeJSON(w, http.StatusOK, result)
}
