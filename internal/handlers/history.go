package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"rastreo/internal/database"
	"rastreo/internal/workers"
)

// HistoryHandler serves the stored query history.
type HistoryHandler struct {
	history *database.HistoryStore
	logger  *slog.Logger
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(history *database.HistoryStore, logger *slog.Logger) *HistoryHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryHandler{history: history, logger: logger}
}

// List handles GET /api/history. Optional query params: limit, and
// status=delivered|in-transit to filter by terminal state.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	entries, err := h.history.GetRecent(limit)
	if err != nil {
		h.logger.Error("failed to read history", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read history")
		return
	}

	switch r.URL.Query().Get("status") {
	case "":
	case "delivered":
		entries = filterEntries(entries, true)
	case "in-transit":
		entries = filterEntries(entries, false)
	default:
		writeError(w, http.StatusBadRequest, "invalid status filter (use delivered or in-transit)")
		return
	}

	if entries == nil {
		entries = []database.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// Delete handles DELETE /api/history/{id}. Absent ids are a no-op.
func (h *HistoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.history.Delete(id); err != nil {
		h.logger.Error("failed to delete history entry", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete entry")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Clear handles DELETE /api/history
func (h *HistoryHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.history.Clear(); err != nil {
		h.logger.Error("failed to clear history", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to clear history")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func filterEntries(entries []database.HistoryEntry, delivered bool) []database.HistoryEntry {
	out := make([]database.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		if workers.IsTerminal(e) == delivered {
			out = append(out, e)
		}
	}
	return out
}
