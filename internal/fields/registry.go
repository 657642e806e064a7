package fields

import (
	"sort"
	"strconv"
	"strings"

	"github.com/loglens/loglens/internal/models"
	"github.com/loglens/loglens/internal/parsing"
)

// maxSamples bounds the per-field sample ring buffer.
const maxSamples = 100

// Sample is one observed field value. Multi-valued captures register as
// list samples; everything else registers as scalar text.
type Sample struct {
	Text   string
	List   []string
	IsList bool
}

// descriptor tracks what the registry has seen for one field name.
type descriptor struct {
	name    string
	typ     models.FieldType
	samples []Sample
	unique  map[string]struct{}
}

// Registry samples observed values per field name and infers a semantic
// type used to select comparison operators. It is rebuilt wholesale every
// time the underlying dataset changes, never partially invalidated.
type Registry struct {
	descriptors map[string]*descriptor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{descriptors: map[string]*descriptor{}}
}

// Clear drops every descriptor.
func (r *Registry) Clear() {
	r.descriptors = map[string]*descriptor{}
}

// Register appends samples for a field (evicting the oldest beyond the
// ring-buffer cap) and recomputes its inferred type.
func (r *Registry) Register(name string, samples ...Sample) {
	d := r.descriptors[name]
	if d == nil {
		d = &descriptor{name: name, typ: models.TypeText, unique: map[string]struct{}{}}
		r.descriptors[name] = d
	}
	for _, s := range samples {
		d.samples = append(d.samples, s)
		if s.IsList {
			d.unique[strings.Join(s.List, "\x1f")] = struct{}{}
		} else {
			d.unique[s.Text] = struct{}{}
		}
	}
	if excess := len(d.samples) - maxSamples; excess > 0 {
		d.samples = d.samples[excess:]
	}
	d.typ = inferType(d.samples)
}

// inferType decides the semantic type of a sample set. Order matters:
// array dominates, then numeric, then date; text is the default. The
// length guard on dates keeps short numeric-looking strings out.
func inferType(samples []Sample) models.FieldType {
	if len(samples) == 0 {
		return models.TypeText
	}
	numeric, date := 0, 0
	for _, s := range samples {
		if s.IsList {
			return models.TypeArray
		}
		if isFiniteNumber(s.Text) {
			numeric++
		}
		if len(s.Text) >= 8 && parsing.NormalizeTimestamp(s.Text) != "" {
			date++
		}
	}
	total := len(samples)
	if float64(numeric)/float64(total) > 0.8 {
		return models.TypeNumeric
	}
	if float64(date)/float64(total) > 0.8 {
		return models.TypeDate
	}
	return models.TypeText
}

func isFiniteNumber(s string) bool {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return false
	}
	return f == f && f < 1e308 && f > -1e308
}

// RebuildFromDataset clears the registry and re-registers the standard
// fields followed by every distinct extracted-field name across entries.
func (r *Registry) RebuildFromDataset(entries []*models.LogEntry) {
	r.Clear()
	for _, e := range entries {
		if e.Level != "" {
			r.Register(models.FieldLevel, Sample{Text: e.Level})
		}
		if e.Timestamp != "" {
			r.Register(models.FieldTimestamp, Sample{Text: e.Timestamp})
		}
		if e.Message != "" {
			r.Register(models.FieldMessage, Sample{Text: e.Message})
		}
	}
	for _, e := range entries {
		for name, values := range e.Fields {
			if len(values) == 0 {
				continue
			}
			if len(values) == 1 {
				if values[0] == "" {
					continue
				}
				r.Register(name, Sample{Text: values[0]})
			} else {
				r.Register(name, Sample{List: values, IsList: true})
			}
		}
	}
}

// FieldType returns the inferred type for a field, defaulting to text for
// unknown names. The second return reports whether the field is known.
func (r *Registry) FieldType(name string) (models.FieldType, bool) {
	if d, ok := r.descriptors[name]; ok {
		return d.typ, true
	}
	return models.TypeText, false
}

// Names returns every registered field name, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.descriptors))
	for name := range r.descriptors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OperatorsFor selects the operator vocabulary for a field. Explicit
// field-name overrides (level, ts) win over anything inferred from the
// sample value.
func (r *Registry) OperatorsFor(name string, sample Sample) []models.Operator {
	switch name {
	case models.FieldLevel:
		return []models.Operator{models.OpEquals, models.OpNotEquals}
	case models.FieldTimestamp, "timestamp":
		return dateOperators()
	}
	if sample.IsList {
		return arrayOperators()
	}
	if isFiniteNumber(sample.Text) {
		return numericOperators()
	}
	return textOperators()
}

func textOperators() []models.Operator {
	return []models.Operator{
		models.OpEquals, models.OpNotEquals, models.OpContains, models.OpNotContains,
		models.OpStartsWith, models.OpEndsWith, models.OpMatches,
		models.OpEmpty, models.OpNotEmpty,
	}
}

func numericOperators() []models.Operator {
	return []models.Operator{
		models.OpEquals, models.OpNotEquals, models.OpGreaterThan,
		models.OpGreaterOrEqual, models.OpLessThan, models.OpLessOrEqual,
	}
}

func dateOperators() []models.Operator {
	return []models.Operator{models.OpBefore, models.OpAfter, models.OpBetween, models.OpOn}
}

func arrayOperators() []models.Operator {
	return []models.Operator{
		models.OpContains, models.OpContainsAll, models.OpContainsAny,
		models.OpEmpty, models.OpNotEmpty,
	}
}

// Snapshot serializes every descriptor for transport across the
// foreground/background boundary.
func (r *Registry) Snapshot() map[string]*models.FieldDescriptor {
	out := make(map[string]*models.FieldDescriptor, len(r.descriptors))
	for name, d := range r.descriptors {
		fd := &models.FieldDescriptor{
			Name:    name,
			Type:    d.typ,
			IsArray: d.typ == models.TypeArray,
		}
		fd.IsNumeric = d.typ == models.TypeNumeric
		fd.IsDate = d.typ == models.TypeDate
		for _, s := range d.samples {
			if s.IsList {
				fd.SampleValues = append(fd.SampleValues, strings.Join(s.List, ","))
			} else {
				fd.SampleValues = append(fd.SampleValues, s.Text)
			}
		}
		for v := range d.unique {
			fd.UniqueValues = append(fd.UniqueValues, v)
		}
		sort.Strings(fd.UniqueValues)
		out[name] = fd
	}
	return out
}
