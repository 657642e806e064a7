package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/loglens/loglens/internal/export"
	"github.com/loglens/loglens/internal/session"
)

// ExportHandler streams the current view out in a downloadable format.
type ExportHandler struct {
	session  *session.Session
	exporter *export.Exporter
}

// NewExportHandler creates the handler.
func NewExportHandler(s *session.Session, e *export.Exporter) *ExportHandler {
	return &ExportHandler{session: s, exporter: e}
}

// ExportView writes the current filtered view in the requested format.
// Query parameters: format (csv, json, xlsx), fields (comma separated),
// limit, headers=false to omit the CSV header row.
func (h *ExportHandler) ExportView(w http.ResponseWriter, r *http.Request) {
	options := h.parseQueryOptions(r)

	view := h.session.View()
	contentType := map[export.Format]string{
		export.FormatCSV:   "text/csv",
		export.FormatJSON:  "application/json",
		export.FormatExcel: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	}[options.Format]
	if contentType == "" {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("unsupported export format: %s", options.Format))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=logs.%s", options.Format))

	result, err := h.exporter.Export(w, view, options)
	if err != nil {
		// Headers are committed; the truncated body is all we can signal.
		log.Error().Err(err).Msg("Export failed mid-stream")
		return
	}
	log.Info().
		Str("format", string(result.Format)).
		Int("rows", result.RowCount).
		Dur("duration", result.Duration).
		Msg("Export complete")
}

// GetExportFormats lists the supported formats.
func (h *ExportHandler) GetExportFormats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"formats": []string{string(export.FormatCSV), string(export.FormatJSON), string(export.FormatExcel)},
	})
}

func (h *ExportHandler) parseQueryOptions(r *http.Request) export.Options {
	options := export.Options{
		Format:         export.Format(r.URL.Query().Get("format")),
		Limit:          queryInt(r, "limit"),
		IncludeHeaders: r.URL.Query().Get("headers") != "false",
	}
	if options.Format == "" {
		options.Format = export.FormatCSV
	}
	if raw := r.URL.Query().Get("fields"); raw != "" {
		for _, f := range strings.Split(raw, ",") {
			if f = strings.TrimSpace(f); f != "" {
				options.Fields = append(options.Fields, f)
			}
		}
	}
	return options
}
