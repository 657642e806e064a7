package stats

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/loglens/loglens/internal/models"
	"github.com/loglens/loglens/internal/parsing"
)

// serializationSentinel stands in for values that cannot be stringified
// for uniqueness counting.
const serializationSentinel = "\x00unserializable"

// TypeResolver reports the registry-inferred type of a field.
type TypeResolver interface {
	FieldType(name string) (models.FieldType, bool)
	Names() []string
}

// Compute summarizes every known field (standard plus extracted) over the
// given view, branching per the field's registered type.
func Compute(view []*models.LogEntry, types TypeResolver) map[string]*models.FieldStats {
	out := map[string]*models.FieldStats{}
	for _, name := range types.Names() {
		typ, _ := types.FieldType(name)
		out[name] = computeField(view, name, typ)
	}
	return out
}

// ComputeField summarizes a single field over the view.
func ComputeField(view []*models.LogEntry, name string, types TypeResolver) *models.FieldStats {
	typ := models.FieldType(models.TypeText)
	if types != nil {
		typ, _ = types.FieldType(name)
	}
	return computeField(view, name, typ)
}

func computeField(view []*models.LogEntry, name string, typ models.FieldType) *models.FieldStats {
	fs := &models.FieldStats{Field: name, Type: typ}

	unique := map[string]struct{}{}
	var scalars []string
	for _, entry := range view {
		value, isList, ok := resolve(entry, name)
		if !ok || (len(value) == 0) || (!isList && strings.TrimSpace(value[0]) == "") {
			fs.WithoutValue++
			continue
		}
		fs.WithValue++
		unique[uniqueKey(value, isList)] = struct{}{}
		if isList {
			scalars = append(scalars, value...)
		} else {
			scalars = append(scalars, value[0])
		}
	}
	fs.UniqueCount = len(unique)

	switch typ {
	case models.TypeNumeric:
		numericStats(fs, scalars)
	case models.TypeDate:
		dateStats(fs, scalars)
	case models.TypeArray:
		// Cardinality numbers only; no per-element breakdown.
	default:
		textStats(fs, scalars)
	}
	return fs
}

// resolve returns a field's values on one entry: a single-element slice
// for scalars, the full array for extracted fields.
func resolve(entry *models.LogEntry, name string) ([]string, bool, bool) {
	if s, ok := entry.Attribute(name); ok {
		return []string{s}, false, true
	}
	if values, ok := entry.Fields[name]; ok {
		return values, true, true
	}
	return nil, false, false
}

// uniqueKey derives a stable identity for a value. Arrays go through a
// structural serialization; a marshalling failure substitutes a sentinel.
func uniqueKey(value []string, isList bool) string {
	if !isList {
		return value[0]
	}
	data, err := json.Marshal(value)
	if err != nil {
		log.Debug().Err(err).Msg("Value serialization failed, using sentinel")
		return serializationSentinel
	}
	return string(data)
}

func numericStats(fs *models.FieldStats, scalars []string) {
	var nums []float64
	freq := map[string]int{}
	var order []string
	for _, s := range scalars {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			continue
		}
		nums = append(nums, f)
		if freq[s] == 0 {
			order = append(order, s)
		}
		freq[s]++
	}
	if len(nums) == 0 {
		return
	}
	sorted := append([]float64(nil), nums...)
	sort.Float64s(sorted)

	min, max := sorted[0], sorted[len(sorted)-1]
	sum := 0.0
	for _, f := range nums {
		sum += f
	}
	mean := sum / float64(len(nums))
	median := sorted[len(sorted)/2]
	if len(sorted)%2 == 0 {
		median = (sorted[len(sorted)/2-1] + sorted[len(sorted)/2]) / 2
	}

	fs.Min, fs.Max, fs.Mean, fs.Median = &min, &max, &mean, &median

	// Mode: highest frequency, first seen wins ties.
	best := -1
	for _, s := range order {
		if freq[s] > best {
			best = freq[s]
			fs.Mode = s
		}
	}
}

func dateStats(fs *models.FieldStats, scalars []string) {
	for _, s := range scalars {
		normalized := parsing.NormalizeTimestamp(s)
		if normalized == "" {
			continue
		}
		if fs.Earliest == "" || normalized < fs.Earliest {
			fs.Earliest = normalized
		}
		if fs.Latest == "" || normalized > fs.Latest {
			fs.Latest = normalized
		}
	}
}

func textStats(fs *models.FieldStats, scalars []string) {
	if len(scalars) == 0 {
		return
	}
	freq := map[string]int{}
	var order []string
	total := 0
	fs.MinLength = len(scalars[0])
	for _, s := range scalars {
		n := len(s)
		total += n
		if n < fs.MinLength {
			fs.MinLength = n
		}
		if n > fs.MaxLength {
			fs.MaxLength = n
		}
		if freq[s] == 0 {
			order = append(order, s)
		}
		freq[s]++
	}
	fs.AvgLength = float64(total) / float64(len(scalars))

	sort.SliceStable(order, func(i, j int) bool {
		return freq[order[i]] > freq[order[j]]
	})
	for i := 0; i < len(order) && i < 3; i++ {
		fs.TopValues = append(fs.TopValues, models.ValueCount{Value: order[i], Count: freq[order[i]]})
	}
}

// Histogram buckets the view's timestamped entries into fixed-width time
// slots. Entries without a recognized timestamp are left out.
func Histogram(view []*models.LogEntry, bucket time.Duration) []models.HistogramBucket {
	if bucket <= 0 {
		bucket = time.Minute
	}
	counts := map[int64]int{}
	for _, entry := range view {
		if entry.Timestamp == "" {
			continue
		}
		t, err := time.Parse(parsing.ISOMillisUTC, entry.Timestamp)
		if err != nil {
			continue
		}
		counts[t.Unix()/int64(bucket.Seconds())]++
	}

	slots := make([]int64, 0, len(counts))
	for slot := range counts {
		slots = append(slots, slot)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })

	out := make([]models.HistogramBucket, 0, len(slots))
	for _, slot := range slots {
		start := time.Unix(slot*int64(bucket.Seconds()), 0).UTC()
		out = append(out, models.HistogramBucket{
			Start: start.Format(parsing.ISOMillisUTC),
			Count: counts[slot],
		})
	}
	return out
}
