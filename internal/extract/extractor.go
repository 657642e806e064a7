package extract

import (
	"regexp"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/loglens/loglens/internal/models"
	"github.com/loglens/loglens/internal/parsing"
)

// namedGroupSpelling rewrites the (?<name>...) capture syntax some hosts
// use into Go's (?P<name>...) form before compilation.
var namedGroupSpelling = regexp.MustCompile(`\(\?<([A-Za-z_][A-Za-z0-9_]*)>`)

// Compile prepares an extractor pattern, accepting both named-group
// spellings.
func Compile(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile(namedGroupSpelling.ReplaceAllString(pattern, `(?P<$1>`))
}

// Result reports one extraction pass.
type Result struct {
	TotalHits        int
	PerExtractorHits map[string]int
	FieldNames       []string
}

// Run applies one pattern to every entry, collecting all occurrences of
// each named group into an array per entry and merging under the given
// strategy. Returns the number of entries with at least one named
// capture. An invalid pattern mutates nothing and counts zero hits.
func Run(patternSource string, entries []*models.LogEntry, strategy models.MergeStrategy) int {
	hits, _ := run(patternSource, entries, strategy, nil)
	return hits
}

func run(patternSource string, entries []*models.LogEntry, strategy models.MergeStrategy, discovered map[string]struct{}) (int, bool) {
	re, err := Compile(patternSource)
	if err != nil {
		log.Warn().Err(err).Str("pattern", patternSource).Msg("Invalid extractor pattern")
		return 0, false
	}

	groupNames := re.SubexpNames()
	named := false
	for _, name := range groupNames {
		if name != "" {
			named = true
			break
		}
	}
	if !named {
		return 0, true
	}

	hits := 0
	for _, entry := range entries {
		captured := capture(re, groupNames, entry.Raw)
		if len(captured) == 0 {
			continue
		}

		merge(entry, captured, strategy)
		applyReserved(entry, captured)
		entry.RefreshSearchIndex()
		hits++

		if discovered != nil {
			for name := range captured {
				if !isReservedCapture(name) {
					discovered[name] = struct{}{}
				}
			}
		}
	}
	return hits, true
}

// capture collects every named group's values across all non-overlapping
// matches, in match order.
func capture(re *regexp.Regexp, groupNames []string, raw string) map[string][]string {
	matches := re.FindAllStringSubmatchIndex(raw, -1)
	if matches == nil {
		return nil
	}
	captured := map[string][]string{}
	for _, match := range matches {
		for gi, name := range groupNames {
			if name == "" {
				continue
			}
			lo, hi := match[2*gi], match[2*gi+1]
			if lo < 0 {
				continue // group did not participate in this match
			}
			captured[name] = append(captured[name], raw[lo:hi])
		}
	}
	return captured
}

// merge folds captured arrays into the entry's field map. Reserved names
// are written back to top-level attributes instead and never land in
// Fields. "merge" is an explicit alias for last-wins.
func merge(entry *models.LogEntry, captured map[string][]string, strategy models.MergeStrategy) {
	if entry.Fields == nil {
		entry.Fields = map[string][]string{}
	}
	for name, values := range captured {
		if models.IsReservedField(name) {
			continue
		}
		if strategy == models.MergeFirstWins {
			if _, exists := entry.Fields[name]; exists {
				continue
			}
		}
		entry.Fields[name] = values
	}
}

// applyReserved post-processes the reserved capture names using only the
// first captured value: ts overwrites the entry timestamp when it
// normalizes, level is canonicalized, message replaces verbatim.
func applyReserved(entry *models.LogEntry, captured map[string][]string) {
	if values := captured[models.FieldTimestamp]; len(values) > 0 {
		if normalized := parsing.NormalizeTimestamp(values[0]); normalized != "" {
			entry.Timestamp = normalized
		}
	}
	if values := captured[models.FieldLevel]; len(values) > 0 {
		entry.Level = models.CanonicalLevel(values[0])
	}
	if values := captured[models.FieldMessage]; len(values) > 0 {
		entry.Message = values[0]
	}
}

func isReservedCapture(name string) bool {
	return name == models.FieldTimestamp || name == models.FieldLevel || name == models.FieldMessage
}

// RunAll applies every enabled extractor in deterministic order: explicit
// Order first, CreatedAt breaking ties. Disabled extractors are skipped
// and do not appear in the per-extractor tally.
func RunAll(extractors []models.Extractor, entries []*models.LogEntry, strategy models.MergeStrategy) Result {
	ordered := make([]models.Extractor, 0, len(extractors))
	for _, ex := range extractors {
		if ex.Enabled {
			ordered = append(ordered, ex)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Order != ordered[j].Order {
			return ordered[i].Order < ordered[j].Order
		}
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	result := Result{PerExtractorHits: map[string]int{}}
	discovered := map[string]struct{}{}
	for _, ex := range ordered {
		hits, ok := run(ex.Pattern, entries, strategy, discovered)
		if !ok {
			log.Debug().Str("extractor", ex.Name).Msg("Extractor skipped: pattern failed to compile")
		}
		key := ex.ID
		if key == "" {
			key = ex.Name
		}
		result.PerExtractorHits[key] = hits
		result.TotalHits += hits
	}

	result.FieldNames = make([]string, 0, len(discovered))
	for name := range discovered {
		result.FieldNames = append(result.FieldNames, name)
	}
	sort.Strings(result.FieldNames)
	return result
}
