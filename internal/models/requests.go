package models

// SortSpec orders the filtered view by one field.
type SortSpec struct {
	Field string `json:"field"`
	Order string `json:"order"` // "asc" or "desc"
}

// FilterRequest carries everything one filter pass needs: an ordered rule
// list, optional rule groups, an optional textual query, an optional
// quick-search string and the sort to apply to the surviving view.
type FilterRequest struct {
	Rules       []FilterRule `json:"rules,omitempty"`
	Groups      []RuleGroup  `json:"groups,omitempty"`
	Query       string       `json:"query,omitempty"`
	QuickSearch string       `json:"quick_search,omitempty"`
	Sort        *SortSpec    `json:"sort,omitempty"`
}

// FilterResult summarizes a completed filter pass. Rows are pulled
// separately, a page at a time.
type FilterResult struct {
	MatchedCount int                    `json:"matched_count"`
	TotalCount   int                    `json:"total_count"`
	Stats        map[string]*FieldStats `json:"stats,omitempty"`
}

// ExtractionRequest runs the listed extractors over all entries or only
// the current filtered view.
type ExtractionRequest struct {
	Extractors []Extractor   `json:"extractors"`
	Scope      string        `json:"scope,omitempty"` // "all" (default) or "filtered"
	Strategy   MergeStrategy `json:"strategy,omitempty"`
}

// ExtractionResult reports how many entries each extractor touched and the
// field names discovered across the pass.
type ExtractionResult struct {
	TotalHits         int                         `json:"total_hits"`
	PerExtractorHits  map[string]int              `json:"per_extractor_hits"`
	UpdatedFieldNames []string                    `json:"updated_field_names"`
	Registry          map[string]*FieldDescriptor `json:"registry,omitempty"`
}

// FieldDescriptor is the transport form of one Field Type Registry entry.
// UniqueValues is the registry's internal set flattened to a list so the
// snapshot serializes across a process boundary.
type FieldDescriptor struct {
	Name         string    `json:"name"`
	Type         FieldType `json:"type"`
	SampleValues []string  `json:"sample_values,omitempty"`
	UniqueValues []string  `json:"unique_values,omitempty"`
	IsArray      bool      `json:"is_array"`
	IsNumeric    bool      `json:"is_numeric"`
	IsDate       bool      `json:"is_date"`
}

// FieldStats is the per-field summary computed over the filtered view.
// Only the branch matching the field's registered type is populated.
type FieldStats struct {
	Field        string    `json:"field"`
	Type         FieldType `json:"type"`
	WithValue    int       `json:"with_value"`
	WithoutValue int       `json:"without_value"`
	UniqueCount  int       `json:"unique_count"`

	// Numeric.
	Min    *float64 `json:"min,omitempty"`
	Max    *float64 `json:"max,omitempty"`
	Mean   *float64 `json:"mean,omitempty"`
	Median *float64 `json:"median,omitempty"`
	Mode   string   `json:"mode,omitempty"`

	// Date.
	Earliest string `json:"earliest,omitempty"`
	Latest   string `json:"latest,omitempty"`

	// Text.
	MinLength int          `json:"min_length,omitempty"`
	MaxLength int          `json:"max_length,omitempty"`
	AvgLength float64      `json:"avg_length,omitempty"`
	TopValues []ValueCount `json:"top_values,omitempty"`
}

// ValueCount pairs an exact value with its frequency.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// HistogramBucket is one slot of the time-bucketed entry histogram.
type HistogramBucket struct {
	Start string `json:"start"` // ISO-8601 UTC bucket lower bound
	Count int    `json:"count"`
}
