package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/loglens/loglens/internal/cache"
	"github.com/loglens/loglens/internal/models"
	"github.com/loglens/loglens/internal/pagination"
	"github.com/loglens/loglens/internal/session"
)

// maxChunkBytes caps one ingestion request body.
const maxChunkBytes = 64 << 20

// SessionHandler exposes the analysis session over HTTP: ingestion,
// filtering, paging and statistics.
type SessionHandler struct {
	session     *session.Session
	paginator   *pagination.Paginator
	filterCache *cache.FilterCache

	// lastAppliedKey identifies the filter pass whose view the session
	// currently holds. A cache hit only counts when it matches, otherwise
	// the view would be stale for paging.
	lastAppliedKey string
}

// NewSessionHandler creates the handler around one session.
func NewSessionHandler(s *session.Session, p *pagination.Paginator, fc *cache.FilterCache) *SessionHandler {
	return &SessionHandler{session: s, paginator: p, filterCache: fc}
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// HealthCheck reports service liveness and dataset size.
func (h *SessionHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"time":    time.Now().UTC(),
		"entries": h.session.TotalCount(),
	})
}

// IngestChunk accepts one chunk of raw log text. The body may end
// mid-line; ?final=true flushes the held-back tail and completes the
// dataset.
func (h *SessionHandler) IngestChunk(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxChunkBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	final := r.URL.Query().Get("final") == "true"

	appended := h.session.Feed(string(body), final)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"appended": appended,
		"total":    h.session.TotalCount(),
		"final":    final,
	})
}

// ResetSession drops the loaded dataset.
func (h *SessionHandler) ResetSession(w http.ResponseWriter, r *http.Request) {
	h.session.Reset()
	h.lastAppliedKey = ""
	respondJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// ApplyFilter runs a filter pass and returns the match counts. Repeated
// identical requests against an unchanged dataset come from the cache.
func (h *SessionHandler) ApplyFilter(w http.ResponseWriter, r *http.Request) {
	var req models.FilterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	key := h.filterCache.Key(h.session.Generation(), req)
	if key != "" && key == h.lastAppliedKey {
		if cached, ok := h.filterCache.Get(key); ok {
			if result, ok := cached.(*models.FilterResult); ok {
				respondJSON(w, http.StatusOK, result)
				return
			}
		}
	}

	result, err := h.session.ApplyFilter(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.filterCache.Set(key, result)
	h.lastAppliedKey = key
	respondJSON(w, http.StatusOK, result)
}

// ClearFilter restores the unfiltered view.
func (h *SessionHandler) ClearFilter(w http.ResponseWriter, r *http.Request) {
	h.session.ClearFilter()
	h.lastAppliedKey = ""
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "cleared",
		"total":  h.session.TotalCount(),
	})
}

// GetEntries returns one page of the current view.
func (h *SessionHandler) GetEntries(w http.ResponseWriter, r *http.Request) {
	req := pagination.PageRequest{
		Page:     queryInt(r, "page"),
		PageSize: queryInt(r, "page_size"),
	}
	resp, err := h.session.Page(h.paginator, req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetFields returns the field type registry snapshot.
func (h *SessionHandler) GetFields(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.session.Registry().Snapshot())
}

// GetStats returns per-field statistics over the current view.
func (h *SessionHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.session.Summary())
}

// GetFieldStats returns statistics for a single field.
func (h *SessionHandler) GetFieldStats(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "field")
	if name == "" {
		respondError(w, http.StatusBadRequest, "missing field name")
		return
	}
	respondJSON(w, http.StatusOK, h.session.FieldSummary(name))
}

// GetHistogram returns the time histogram of the current view.
// ?bucket_seconds selects the bucket width, defaulting to one minute.
func (h *SessionHandler) GetHistogram(w http.ResponseWriter, r *http.Request) {
	bucket := time.Duration(queryInt(r, "bucket_seconds")) * time.Second
	respondJSON(w, http.StatusOK, h.session.Histogram(bucket))
}

func queryInt(r *http.Request, name string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(name))
	return n
}
