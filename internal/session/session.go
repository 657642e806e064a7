package session

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/loglens/loglens/internal/extract"
	"github.com/loglens/loglens/internal/fields"
	"github.com/loglens/loglens/internal/filter"
	"github.com/loglens/loglens/internal/models"
	"github.com/loglens/loglens/internal/pagination"
	"github.com/loglens/loglens/internal/parsing"
	"github.com/loglens/loglens/internal/query"
	"github.com/loglens/loglens/internal/stats"
)

// ProgressFunc receives progress updates during long passes. It may be nil.
type ProgressFunc func(models.Progress)

// progressStride bounds how often a pass reports progress.
const progressStride = 5000

// Session owns one loaded dataset and everything derived from it: the
// assembled entries, the current filtered view, the field type registry
// and the last applied filter. All state lives here rather than in
// package-level variables so several sessions can coexist in one process.
type Session struct {
	mu sync.RWMutex

	assembler *parsing.Assembler
	registry  *fields.Registry
	evaluator *filter.Evaluator

	entries []*models.LogEntry
	view    []*models.LogEntry
	applied *models.FilterRequest

	// generation increments on every dataset mutation (feed, reset,
	// extraction) and is folded into filter cache keys.
	generation uint64

	progress ProgressFunc
}

// New creates an empty session.
func New(progress ProgressFunc) *Session {
	registry := fields.NewRegistry()
	return &Session{
		assembler: parsing.NewAssembler(),
		registry:  registry,
		evaluator: filter.NewEvaluator(registry),
		progress:  progress,
	}
}

// Reset drops all entries and derived state. The session is reusable
// immediately afterwards.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assembler.Reset()
	s.registry.Clear()
	s.entries = nil
	s.view = nil
	s.applied = nil
	s.generation++
	log.Debug().Msg("Session reset")
}

// Feed ingests one chunk of log text. Chunks may split lines at arbitrary
// byte offsets; the final flag flushes the held-back tail. Returns the
// number of entries appended by this chunk.
func (s *Session) Feed(chunk string, final bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	produced := s.assembler.Feed(chunk, final)
	s.entries = append(s.entries, produced...)
	s.generation++

	if final {
		s.registry.RebuildFromDataset(s.entries)
		if s.applied == nil {
			s.view = s.entries
		}
		log.Debug().Int("entries", len(s.entries)).Msg("Ingestion complete")
	}
	return len(produced)
}

// TotalCount returns the number of assembled entries.
func (s *Session) TotalCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Generation returns the dataset mutation counter.
func (s *Session) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// AppliedFilter returns the last applied filter request, or nil.
func (s *Session) AppliedFilter() *models.FilterRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.applied
}

// Registry exposes the session's field type registry.
func (s *Session) Registry() *fields.Registry {
	return s.registry
}

// ApplyFilter runs one full filter pass: structured rules, rule groups,
// a compiled textual query and quick search all AND together, then the
// surviving view is sorted. A query that fails to compile aborts the
// pass with the parse error and leaves the previous view intact.
func (s *Session) ApplyFilter(req models.FilterRequest) (*models.FilterResult, error) {
	var ast query.Node
	if strings.TrimSpace(req.Query) != "" {
		node, err := query.Compile(req.Query)
		if err != nil {
			return nil, err
		}
		ast = node
	}
	words := quickSearchWords(req.QuickSearch)

	s.mu.Lock()
	defer s.mu.Unlock()

	view := make([]*models.LogEntry, 0, len(s.entries))
	for i, entry := range s.entries {
		s.report("filter", i, len(s.entries))
		if !s.evaluator.EvaluateRules(entry, req.Rules) {
			continue
		}
		if ast != nil && !query.EvaluateAST(s.evaluator, entry, ast) {
			continue
		}
		if !matchesQuickSearch(entry, words) {
			continue
		}
		view = append(view, entry)
	}
	if len(req.Groups) > 0 {
		view = s.evaluator.ApplyGroups(s.entries, view, req.Groups)
		// OR groups append out of order; restore ingestion order.
		sort.SliceStable(view, func(i, j int) bool { return view[i].ID < view[j].ID })
	}
	s.sortView(view, req.Sort)

	s.view = view
	applied := req
	s.applied = &applied
	s.report("filter", len(s.entries), len(s.entries))

	log.Debug().
		Int("matched", len(view)).
		Int("total", len(s.entries)).
		Msg("Filter pass complete")

	return &models.FilterResult{
		MatchedCount: len(view),
		TotalCount:   len(s.entries),
	}, nil
}

// ClearFilter restores the unfiltered view in ingestion order.
func (s *Session) ClearFilter() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = s.entries
	s.applied = nil
}

// Page returns one page of the current view.
func (s *Session) Page(p *pagination.Paginator, req pagination.PageRequest) (*pagination.PageResponse, error) {
	if err := p.ValidateRequest(&req); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return p.Page(s.currentView(), req), nil
}

// View returns the current filtered view.
func (s *Session) View() []*models.LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentView()
}

func (s *Session) currentView() []*models.LogEntry {
	if s.applied == nil {
		return s.entries
	}
	return s.view
}

// RunExtractors applies the requested extractors, rebuilds the registry to
// reflect new and removed fields, and re-runs the applied filter so the
// view stays consistent with the mutated entries.
func (s *Session) RunExtractors(req models.ExtractionRequest) *models.ExtractionResult {
	strategy := req.Strategy
	if strategy == "" {
		strategy = models.MergeLastWins
	}

	s.mu.Lock()
	scope := s.entries
	if req.Scope == "filtered" {
		scope = s.currentView()
	}
	s.report("extract", 0, len(scope))
	result := extract.RunAll(req.Extractors, scope, strategy)
	s.registry.RebuildFromDataset(s.entries)
	s.generation++
	s.report("extract", len(scope), len(scope))
	applied := s.applied
	s.mu.Unlock()

	if applied != nil {
		if _, err := s.ApplyFilter(*applied); err != nil {
			log.Debug().Err(err).Msg("Filter re-application after extraction failed")
		}
	}

	log.Debug().
		Int("hits", result.TotalHits).
		Int("fields", len(result.FieldNames)).
		Msg("Extraction pass complete")

	return &models.ExtractionResult{
		TotalHits:         result.TotalHits,
		PerExtractorHits:  result.PerExtractorHits,
		UpdatedFieldNames: result.FieldNames,
		Registry:          s.registry.Snapshot(),
	}
}

// Summary computes per-field statistics over the current view.
func (s *Session) Summary() map[string]*models.FieldStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return stats.Compute(s.currentView(), s.registry)
}

// FieldSummary computes statistics for a single field over the current view.
func (s *Session) FieldSummary(name string) *models.FieldStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return stats.ComputeField(s.currentView(), name, s.registry)
}

// Histogram buckets the current view's entries by time.
func (s *Session) Histogram(bucket time.Duration) []models.HistogramBucket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return stats.Histogram(s.currentView(), bucket)
}

// report emits a progress update every progressStride items and at the end
// of a pass.
func (s *Session) report(operation string, done, total int) {
	if s.progress == nil || total == 0 {
		return
	}
	if done != total && done%progressStride != 0 {
		return
	}
	status := "running"
	if done == total {
		status = "done"
	}
	s.progress(models.Progress{
		Operation: operation,
		Percent:   done * 100 / total,
		Status:    status,
	})
}

// sortView orders the view by one field. Entries are compared numerically
// when the field's registered type is numeric and both values parse;
// otherwise comparison is lexicographic, which leaves entries with no
// value below all valued entries in ascending order. Ties keep ingestion
// order.
func (s *Session) sortView(view []*models.LogEntry, spec *models.SortSpec) {
	if spec == nil || spec.Field == "" {
		return
	}
	desc := strings.EqualFold(spec.Order, "desc")
	numeric := false
	if typ, ok := s.registry.FieldType(spec.Field); ok && typ == models.TypeNumeric {
		numeric = true
	}

	sort.SliceStable(view, func(i, j int) bool {
		a := sortKey(view[i], spec.Field)
		b := sortKey(view[j], spec.Field)
		c := compareValues(a, b, numeric)
		if desc {
			return c > 0
		}
		return c < 0
	})
}

// compareValues orders two field values: numerically when both parse and
// the field is numeric, lexicographically otherwise. An unparsable value
// sorts below a parsable one.
func compareValues(a, b string, numeric bool) int {
	if numeric {
		af, aerr := strconv.ParseFloat(a, 64)
		bf, berr := strconv.ParseFloat(b, 64)
		switch {
		case aerr == nil && berr == nil:
			if af < bf {
				return -1
			}
			if af > bf {
				return 1
			}
			return 0
		case aerr == nil:
			return 1
		case berr == nil:
			return -1
		}
	}
	return strings.Compare(a, b)
}

func sortKey(entry *models.LogEntry, field string) string {
	if v, ok := entry.Attribute(field); ok {
		return v
	}
	if values, ok := entry.Fields[field]; ok && len(values) > 0 {
		return values[0]
	}
	return ""
}

// quickSearchWords splits a quick-search string into lowercase words.
func quickSearchWords(input string) []string {
	return strings.Fields(strings.ToLower(input))
}

// matchesQuickSearch requires every word to appear somewhere in the
// entry's search index.
func matchesQuickSearch(entry *models.LogEntry, words []string) bool {
	for _, w := range words {
		if !strings.Contains(entry.SearchIndex, w) {
			return false
		}
	}
	return true
}
