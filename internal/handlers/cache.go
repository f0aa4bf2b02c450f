package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"rastreo/internal/cache"
)

// CacheHandler exposes cache invalidation and inspection.
type CacheHandler struct {
	cache *cache.Manager
}

// NewCacheHandler creates a new cache handler
func NewCacheHandler(cacheManager *cache.Manager) *CacheHandler {
	return &CacheHandler{cache: cacheManager}
}

// Invalidate handles DELETE /api/cache/{tag}. The tag for one shipment is
// its "carrier-identifier" key.
func (h *CacheHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	tag := chi.URLParam(r, "tag")
	if tag == "" {
		writeError(w, http.StatusBadRequest, "missing tag")
		return
	}
	h.cache.Invalidate(tag)
	w.WriteHeader(http.StatusNoContent)
}

// Clear handles DELETE /api/cache
func (h *CacheHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.cache.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// State handles GET /api/cache/{tag}, reporting the freshness class of a key.
func (h *CacheHandler) State(w http.ResponseWriter, r *http.Request) {
	tag := chi.URLParam(r, "tag")
	if tag == "" {
		writeError(w, http.StatusBadRequest, "missing tag")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": tag, "state": h.cache.State(tag)})
}
