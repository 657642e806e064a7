package filter

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/loglens/loglens/internal/models"
	"github.com/loglens/loglens/internal/parsing"
)

// TypeResolver reports the registry-inferred type of a field. The second
// return is false for unregistered fields.
type TypeResolver interface {
	FieldType(name string) (models.FieldType, bool)
}

// Evaluator applies structured filter rules to entries, selecting the
// per-type operator function from the field's registered type.
type Evaluator struct {
	Types TypeResolver
}

// NewEvaluator builds an evaluator over the given type source.
func NewEvaluator(types TypeResolver) *Evaluator {
	return &Evaluator{Types: types}
}

// fieldValue is the resolved value of an entry field: either a scalar
// string or an array of strings, or absent entirely.
type fieldValue struct {
	str    string
	list   []string
	isList bool
	ok     bool
}

func (v fieldValue) empty() bool {
	if !v.ok {
		return true
	}
	if v.isList {
		return len(v.list) == 0
	}
	return strings.TrimSpace(v.str) == ""
}

// resolve looks a field up on an entry: reserved names hit top-level
// attributes, everything else hits the extracted-field map.
func resolve(entry *models.LogEntry, field string) fieldValue {
	if s, ok := entry.Attribute(field); ok {
		return fieldValue{str: s, ok: true}
	}
	if values, ok := entry.Fields[field]; ok {
		return fieldValue{list: values, isList: true, ok: true}
	}
	return fieldValue{}
}

// EvaluateRule applies one rule to one entry. Disabled and nil rules are
// no-ops (always true). A thrown comparison fault never propagates: the
// rule just evaluates false for that entry.
func (e *Evaluator) EvaluateRule(entry *models.LogEntry, rule *models.FilterRule) bool {
	if rule == nil || rule.Disabled() {
		return true
	}

	value := resolve(entry, rule.Field)

	if value.empty() {
		switch rule.Operator {
		case models.OpEmpty:
			return true
		default:
			return false
		}
	}
	if rule.Operator == models.OpEmpty {
		return false
	}
	if rule.Operator == models.OpNotEmpty {
		return true
	}

	// A blank comparison value cannot match anything else.
	if strings.TrimSpace(rule.Value) == "" && len(rule.Values) == 0 {
		return false
	}

	matched := false
	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Warn().Interface("fault", r).Str("field", rule.Field).
					Str("operator", string(rule.Operator)).Msg("Rule evaluation fault")
				matched = false
			}
		}()
		matched = e.compare(value, rule)
	}()
	return matched
}

// compare dispatches on the field's registered type. Unregistered fields
// default to the array table for list values and the text table otherwise.
func (e *Evaluator) compare(value fieldValue, rule *models.FilterRule) bool {
	typ, known := models.TypeText, false
	if e.Types != nil {
		typ, known = e.Types.FieldType(rule.Field)
	}
	if !known {
		if value.isList {
			typ = models.TypeArray
		} else {
			typ = models.TypeText
		}
	}

	if rule.Operator == models.OpIn {
		return evalIn(value, rule.Values)
	}

	switch typ {
	case models.TypeNumeric:
		return evalNumeric(value.scalar(), rule.Operator, rule.Value)
	case models.TypeDate:
		return evalDate(value.scalar(), rule.Operator, rule.Value)
	case models.TypeArray:
		return evalArray(value.elements(), rule.Operator, rule.Value)
	default:
		return evalText(value.scalar(), rule.Operator, rule.Value)
	}
}

// scalar flattens a value to a single string for scalar operators.
func (v fieldValue) scalar() string {
	if v.isList {
		return strings.Join(v.list, ",")
	}
	return v.str
}

// elements views a value as an array for the array operator set.
func (v fieldValue) elements() []string {
	if v.isList {
		return v.list
	}
	return []string{v.str}
}

func evalText(value string, op models.Operator, operand string) bool {
	lower := strings.ToLower(value)
	lowerOperand := strings.ToLower(operand)
	switch op {
	case models.OpEquals:
		return value == operand
	case models.OpNotEquals:
		return value != operand
	case models.OpContains:
		return strings.Contains(lower, lowerOperand)
	case models.OpNotContains:
		return !strings.Contains(lower, lowerOperand)
	case models.OpStartsWith:
		return strings.HasPrefix(lower, lowerOperand)
	case models.OpEndsWith:
		return strings.HasSuffix(lower, lowerOperand)
	case models.OpMatches:
		re, err := regexp.Compile("(?i)" + operand)
		if err != nil {
			log.Debug().Err(err).Str("pattern", operand).Msg("Invalid match pattern")
			return false
		}
		return re.MatchString(value)
	}
	return false
}

func evalNumeric(value string, op models.Operator, operand string) bool {
	a, errA := strconv.ParseFloat(strings.TrimSpace(value), 64)
	b, errB := strconv.ParseFloat(strings.TrimSpace(operand), 64)
	if errA != nil || errB != nil {
		// NaN semantics: any comparison against an unparseable side is false.
		return false
	}
	switch op {
	case models.OpEquals:
		return a == b
	case models.OpNotEquals:
		return a != b
	case models.OpGreaterThan:
		return a > b
	case models.OpGreaterOrEqual:
		return a >= b
	case models.OpLessThan:
		return a < b
	case models.OpLessOrEqual:
		return a <= b
	}
	return false
}

// normalizeOrRaw runs a candidate through timestamp normalization, keeping
// the raw string when normalization fails so comparisons degrade to
// lexicographic rather than erroring.
func normalizeOrRaw(s string) string {
	if n := parsing.NormalizeTimestamp(s); n != "" {
		return n
	}
	return s
}

func evalDate(value string, op models.Operator, operand string) bool {
	v := normalizeOrRaw(value)
	switch op {
	case models.OpBefore:
		return v < normalizeOrRaw(operand)
	case models.OpAfter:
		return v > normalizeOrRaw(operand)
	case models.OpBetween:
		parts := strings.SplitN(operand, ",", 2)
		if len(parts) != 2 {
			return false
		}
		lo := normalizeOrRaw(strings.TrimSpace(parts[0]))
		hi := normalizeOrRaw(strings.TrimSpace(parts[1]))
		return v >= lo && v <= hi
	case models.OpOn, models.OpEquals:
		// Calendar-day equality on the UTC-normalized date portion. Near
		// midnight in non-UTC zones this can surprise; documented as-is.
		return datePortion(v) == datePortion(normalizeOrRaw(operand))
	}
	return false
}

func datePortion(iso string) string {
	if len(iso) >= 10 {
		return iso[:10]
	}
	return iso
}

func evalArray(elements []string, op models.Operator, operand string) bool {
	switch op {
	case models.OpContains:
		return anyElementContains(elements, operand)
	case models.OpContainsAll:
		for _, term := range splitTerms(operand) {
			if !anyElementContains(elements, term) {
				return false
			}
		}
		return true
	case models.OpContainsAny:
		for _, term := range splitTerms(operand) {
			if anyElementContains(elements, term) {
				return true
			}
		}
		return false
	}
	return false
}

func splitTerms(operand string) []string {
	parts := strings.Split(operand, ",")
	terms := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			terms = append(terms, p)
		}
	}
	return terms
}

func anyElementContains(elements []string, term string) bool {
	term = strings.ToLower(term)
	for _, el := range elements {
		if strings.Contains(strings.ToLower(el), term) {
			return true
		}
	}
	return false
}

// evalIn tests case-insensitive equality of the value (or any element)
// against any listed term.
func evalIn(value fieldValue, terms []string) bool {
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		for _, el := range value.elements() {
			if strings.ToLower(el) == term {
				return true
			}
		}
	}
	return false
}

// EvaluateRules folds an ordered rule list left to right, each rule's own
// Logic joining it to the next. A false accumulator short-circuits only
// when no OR remains downstream; a later OR can still flip the result.
func (e *Evaluator) EvaluateRules(entry *models.LogEntry, rules []models.FilterRule) bool {
	if len(rules) == 0 {
		return true
	}

	result := e.EvaluateRule(entry, &rules[0])
	for i := 1; i < len(rules); i++ {
		connective := rules[i-1].Logic
		if connective != models.LogicOr {
			connective = models.LogicAnd
		}

		if connective == models.LogicAnd && !result && !orRemains(rules, i) {
			return false
		}

		current := e.EvaluateRule(entry, &rules[i])
		if connective == models.LogicAnd {
			result = result && current
		} else {
			result = result || current
		}
	}
	return result
}

// orRemains reports whether any rule at or after index i joins via OR.
func orRemains(rules []models.FilterRule, i int) bool {
	for j := i - 1; j < len(rules)-1; j++ {
		if rules[j].Logic == models.LogicOr {
			return true
		}
	}
	return false
}

// ApplyGroups composes rule groups onto a base match set: OR groups union
// in additional matching entries, AND groups intersect the set down to
// entries also satisfying the group.
func (e *Evaluator) ApplyGroups(entries []*models.LogEntry, base []*models.LogEntry, groups []models.RuleGroup) []*models.LogEntry {
	matched := base
	for _, g := range groups {
		if len(g.Rules) == 0 {
			continue
		}
		switch g.Logic {
		case models.LogicOr:
			in := make(map[int]struct{}, len(matched))
			for _, entry := range matched {
				in[entry.ID] = struct{}{}
			}
			for _, entry := range entries {
				if _, ok := in[entry.ID]; ok {
					continue
				}
				if e.EvaluateRules(entry, g.Rules) {
					matched = append(matched, entry)
					in[entry.ID] = struct{}{}
				}
			}
		default: // AND
			kept := matched[:0:0]
			for _, entry := range matched {
				if e.EvaluateRules(entry, g.Rules) {
					kept = append(kept, entry)
				}
			}
			matched = kept
		}
	}
	return matched
}
