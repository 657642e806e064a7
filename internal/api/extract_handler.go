package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/loglens/loglens/internal/extract"
	"github.com/loglens/loglens/internal/models"
	"github.com/loglens/loglens/internal/session"
	"github.com/loglens/loglens/internal/store"
)

// ExtractHandler runs field extraction and manages saved extractor
// definitions.
type ExtractHandler struct {
	session *session.Session
	store   *store.BoltStore
}

// NewExtractHandler creates the handler.
func NewExtractHandler(s *session.Session, st *store.BoltStore) *ExtractHandler {
	return &ExtractHandler{session: s, store: st}
}

// RunExtractors applies the request's extractors; an empty list runs every
// enabled saved extractor instead.
func (h *ExtractHandler) RunExtractors(w http.ResponseWriter, r *http.Request) {
	var req models.ExtractionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Extractors) == 0 {
		saved, err := h.store.ListExtractors()
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		for _, ex := range saved {
			req.Extractors = append(req.Extractors, *ex)
		}
	}
	respondJSON(w, http.StatusOK, h.session.RunExtractors(req))
}

// SaveExtractor persists an extractor definition. The pattern must compile.
func (h *ExtractHandler) SaveExtractor(w http.ResponseWriter, r *http.Request) {
	var ex models.Extractor
	if err := json.NewDecoder(r.Body).Decode(&ex); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if ex.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	if _, err := extract.Compile(ex.Pattern); err != nil {
		respondError(w, http.StatusBadRequest, "invalid pattern: "+err.Error())
		return
	}
	if err := h.store.SaveExtractor(&ex); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, ex)
}

// ListExtractors returns all saved extractors in execution order.
func (h *ExtractHandler) ListExtractors(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.ListExtractors()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// GetExtractor returns one saved extractor.
func (h *ExtractHandler) GetExtractor(w http.ResponseWriter, r *http.Request) {
	ex, err := h.store.GetExtractor(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, ex)
}

// DeleteExtractor removes one saved extractor.
func (h *ExtractHandler) DeleteExtractor(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteExtractor(chi.URLParam(r, "id")); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
