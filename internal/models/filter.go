package models

// Operator identifies one comparison from the closed per-type vocabulary.
type Operator string

const (
	// Text operators.
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "notEquals"
	OpContains    Operator = "contains"
	OpNotContains Operator = "notContains"
	OpStartsWith  Operator = "startsWith"
	OpEndsWith    Operator = "endsWith"
	OpMatches     Operator = "matches"
	OpEmpty       Operator = "empty"
	OpNotEmpty    Operator = "notEmpty"

	// Numeric operators.
	OpGreaterThan    Operator = "greaterThan"
	OpGreaterOrEqual Operator = "greaterOrEqual"
	OpLessThan       Operator = "lessThan"
	OpLessOrEqual    Operator = "lessOrEqual"

	// Date operators.
	OpBefore  Operator = "before"
	OpAfter   Operator = "after"
	OpBetween Operator = "between"
	OpOn      Operator = "on"

	// Array operators.
	OpContainsAll Operator = "containsAll"
	OpContainsAny Operator = "containsAny"

	// Set membership, produced by the query compiler's IN(...) form.
	OpIn Operator = "in"
)

// Logic connectives between consecutive rules.
const (
	LogicAnd = "AND"
	LogicOr  = "OR"
)

// FilterRule is one (field, operator, value, logic) condition. Logic is the
// connective applied between this rule and the next one in sequence, empty
// on the last rule. A rule with Enabled pointing at false is skipped
// without being removed from the list.
type FilterRule struct {
	ID       string   `json:"id,omitempty"`
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    string   `json:"value,omitempty"`
	Values   []string `json:"values,omitempty"`
	Logic    string   `json:"logic,omitempty"`
	Enabled  *bool    `json:"enabled,omitempty"`
}

// Disabled reports whether the rule was explicitly switched off.
func (r *FilterRule) Disabled() bool {
	return r != nil && r.Enabled != nil && !*r.Enabled
}

// RuleGroup is a parenthesized set of rules composed with the base rule
// list via set intersection (AND) or union (OR).
type RuleGroup struct {
	ID    string       `json:"id,omitempty"`
	Logic string       `json:"logic"`
	Rules []FilterRule `json:"rules"`
}

// FieldType is the registry-inferred semantic type of a field.
type FieldType string

const (
	TypeText    FieldType = "text"
	TypeNumeric FieldType = "numeric"
	TypeDate    FieldType = "date"
	TypeArray   FieldType = "array"
)
