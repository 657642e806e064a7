package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handlers bundles everything the route table needs.
type Handlers struct {
	Session     *SessionHandler
	Query       *QueryHandler
	Extract     *ExtractHandler
	Export      *ExportHandler
	FilterStore *FilterStoreHandler
	WebSocket   http.HandlerFunc
	JWTSecret   string
}

// Routes mounts the API under the given router.
func Routes(r chi.Router, h Handlers) {
	r.Get("/health", h.Session.HealthCheck)

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(h.JWTSecret))

		r.Route("/session", func(r chi.Router) {
			r.Post("/ingest", h.Session.IngestChunk)
			r.Post("/reset", h.Session.ResetSession)
		})

		r.Route("/filter", func(r chi.Router) {
			r.Post("/", h.Session.ApplyFilter)
			r.Post("/clear", h.Session.ClearFilter)
		})

		r.Get("/entries", h.Session.GetEntries)
		r.Get("/fields", h.Session.GetFields)
		r.Get("/fields/{field}/operators", h.Query.FieldOperators)

		r.Route("/stats", func(r chi.Router) {
			r.Get("/", h.Session.GetStats)
			r.Get("/histogram", h.Session.GetHistogram)
			r.Get("/{field}", h.Session.GetFieldStats)
		})

		r.Post("/query/parse", h.Query.ParseQuery)

		r.Post("/extract", h.Extract.RunExtractors)

		r.Route("/extractors", func(r chi.Router) {
			r.Get("/", h.Extract.ListExtractors)
			r.Post("/", h.Extract.SaveExtractor)
			r.Get("/{id}", h.Extract.GetExtractor)
			r.Delete("/{id}", h.Extract.DeleteExtractor)
		})

		r.Route("/filters", func(r chi.Router) {
			r.Get("/", h.FilterStore.ListFilters)
			r.Post("/", h.FilterStore.SaveFilter)
			r.Get("/{id}", h.FilterStore.GetFilter)
			r.Delete("/{id}", h.FilterStore.DeleteFilter)
		})

		r.Route("/queries", func(r chi.Router) {
			r.Get("/", h.Query.ListQueries)
			r.Post("/", h.Query.SaveQuery)
			r.Delete("/{id}", h.Query.DeleteQuery)
		})

		r.Route("/export", func(r chi.Router) {
			r.Get("/", h.Export.ExportView)
			r.Get("/formats", h.Export.GetExportFormats)
		})
	})

	if h.WebSocket != nil {
		r.HandleFunc("/ws", h.WebSocket)
	}
}
