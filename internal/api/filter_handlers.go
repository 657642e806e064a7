package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/loglens/loglens/internal/store"
)

// FilterStoreHandler manages saved filter definitions.
type FilterStoreHandler struct {
	store *store.BoltStore
}

// NewFilterStoreHandler creates the handler.
func NewFilterStoreHandler(st *store.BoltStore) *FilterStoreHandler {
	return &FilterStoreHandler{store: st}
}

// SaveFilter persists a named filter request.
func (h *FilterStoreHandler) SaveFilter(w http.ResponseWriter, r *http.Request) {
	var f store.SavedFilter
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if f.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	if err := h.store.SaveFilter(&f); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, f)
}

// ListFilters returns all saved filters.
func (h *FilterStoreHandler) ListFilters(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.ListFilters()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// GetFilter returns one saved filter.
func (h *FilterStoreHandler) GetFilter(w http.ResponseWriter, r *http.Request) {
	f, err := h.store.GetFilter(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, f)
}

// DeleteFilter removes one saved filter.
func (h *FilterStoreHandler) DeleteFilter(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteFilter(chi.URLParam(r, "id")); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
