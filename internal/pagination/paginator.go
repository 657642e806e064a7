package pagination

import (
	"fmt"
	"strings"

	"github.com/loglens/loglens/internal/models"
)

// Paginator slices the in-memory filtered view into pages.
type Paginator struct {
	DefaultPageSize int
	MaxPageSize     int
}

// PageRequest addresses one page of the current view.
type PageRequest struct {
	Page      int    `json:"page"`
	PageSize  int    `json:"page_size"`
	SortBy    string `json:"sort_by,omitempty"`
	SortOrder string `json:"sort_order,omitempty"`
}

// PageResponse is one page of rows plus enough shape for a pager UI.
type PageResponse struct {
	Rows        []*models.LogEntry `json:"rows"`
	CurrentPage int                `json:"current_page"`
	TotalPages  int                `json:"total_pages"`
	PageSize    int                `json:"page_size"`
	TotalRows   int                `json:"total_rows"`
	HasMore     bool               `json:"has_more"`
}

// NewPaginator creates a paginator with the given size bounds.
func NewPaginator(defaultSize, maxSize int) *Paginator {
	return &Paginator{DefaultPageSize: defaultSize, MaxPageSize: maxSize}
}

// ValidateRequest normalizes a page request in place: defaults, clamping,
// sort-order casing.
func (p *Paginator) ValidateRequest(req *PageRequest) error {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = p.DefaultPageSize
	}
	if req.PageSize > p.MaxPageSize {
		req.PageSize = p.MaxPageSize
	}
	if req.SortOrder != "" {
		req.SortOrder = strings.ToLower(req.SortOrder)
		if req.SortOrder != "asc" && req.SortOrder != "desc" {
			return fmt.Errorf("invalid sort order: %s", req.SortOrder)
		}
	}
	return nil
}

// Page slices the view for the requested page. Page numbers past the end
// come back as an empty page with the correct totals.
func (p *Paginator) Page(view []*models.LogEntry, req PageRequest) *PageResponse {
	total := len(view)
	totalPages := 0
	if req.PageSize > 0 {
		totalPages = (total + req.PageSize - 1) / req.PageSize
	}

	start := (req.Page - 1) * req.PageSize
	if start > total {
		start = total
	}
	end := start + req.PageSize
	if end > total {
		end = total
	}

	return &PageResponse{
		Rows:        view[start:end],
		CurrentPage: req.Page,
		TotalPages:  totalPages,
		PageSize:    req.PageSize,
		TotalRows:   total,
		HasMore:     end < total,
	}
}
