package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/loglens/loglens/internal/fields"
	"github.com/loglens/loglens/internal/models"
	"github.com/loglens/loglens/internal/query"
	"github.com/loglens/loglens/internal/session"
	"github.com/loglens/loglens/internal/store"
)

// QueryHandler serves textual-query parsing and saved query definitions.
type QueryHandler struct {
	session *session.Session
	store   *store.BoltStore
}

// NewQueryHandler creates the handler.
func NewQueryHandler(s *session.Session, st *store.BoltStore) *QueryHandler {
	return &QueryHandler{session: s, store: st}
}

type parseQueryRequest struct {
	Query string `json:"query"`
}

type parseQueryResponse struct {
	Valid bool `json:"valid"`

	// Error details when Valid is false.
	Error    string `json:"error,omitempty"`
	Fragment string `json:"fragment,omitempty"`
	Pos      int    `json:"pos,omitempty"`

	// Flattened form when the query is expressible as a flat rule list.
	Expressible bool                `json:"expressible"`
	Rules       []models.FilterRule `json:"rules,omitempty"`
	QuickSearch string              `json:"quick_search,omitempty"`
}

// ParseQuery validates a textual query without running it. When the parse
// tree flattens to a plain rule list, the flattened form is included so a
// builder UI can mirror the query.
func (h *QueryHandler) ParseQuery(w http.ResponseWriter, r *http.Request) {
	var req parseQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	node, err := query.Compile(req.Query)
	if err != nil {
		resp := parseQueryResponse{Error: err.Error()}
		var parseErr *query.ParseError
		if errors.As(err, &parseErr) {
			resp.Error = parseErr.Message
			resp.Fragment = parseErr.Fragment
			resp.Pos = parseErr.Pos
		}
		respondJSON(w, http.StatusOK, resp)
		return
	}

	resp := parseQueryResponse{Valid: true}
	if rules, quickSearch, ok := query.Flatten(node); ok {
		resp.Expressible = true
		resp.Rules = rules
		resp.QuickSearch = quickSearch
	}
	respondJSON(w, http.StatusOK, resp)
}

// FieldOperators returns the operator vocabulary for one field, based on
// its registered type.
func (h *QueryHandler) FieldOperators(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "field")
	if name == "" {
		respondError(w, http.StatusBadRequest, "missing field name")
		return
	}
	sample := fields.Sample{}
	if d, ok := h.session.Registry().Snapshot()[name]; ok {
		sample.IsList = d.IsArray
		if len(d.SampleValues) > 0 {
			sample.Text = d.SampleValues[0]
		}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"field":     name,
		"operators": h.session.Registry().OperatorsFor(name, sample),
	})
}

// SaveQuery persists a named textual query. The query must parse.
func (h *QueryHandler) SaveQuery(w http.ResponseWriter, r *http.Request) {
	var q store.SavedQuery
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if q.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	if _, err := query.Compile(q.Query); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.store.SaveQuery(&q); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, q)
}

// ListQueries returns all saved queries.
func (h *QueryHandler) ListQueries(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.ListQueries()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// DeleteQuery removes one saved query.
func (h *QueryHandler) DeleteQuery(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteQuery(chi.URLParam(r, "id")); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
