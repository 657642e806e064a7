package filter

import (
	"testing"

	"github.com/loglens/loglens/internal/models"
)

type fakeTypes map[string]models.FieldType

func (f fakeTypes) FieldType(name string) (models.FieldType, bool) {
	t, ok := f[name]
	return t, ok
}

func boolPtr(b bool) *bool { return &b }

func entry() *models.LogEntry {
	e := &models.LogEntry{
		ID:        1,
		Timestamp: "2023-06-15T10:00:00.000Z",
		Level:     "ERROR",
		Message:   "connection refused to db-01",
		Raw:       "2023-06-15 10:00:00 ERROR connection refused to db-01",
		Fields: map[string][]string{
			"latency": {"250"},
			"tags":    {"db", "network"},
			"empty":   {},
		},
	}
	e.RefreshSearchIndex()
	return e
}

func newEval() *Evaluator {
	return NewEvaluator(fakeTypes{
		"level":   models.TypeText,
		"message": models.TypeText,
		"ts":      models.TypeDate,
		"latency": models.TypeNumeric,
		"tags":    models.TypeArray,
	})
}

func rule(field string, op models.Operator, value string) *models.FilterRule {
	return &models.FilterRule{Field: field, Operator: op, Value: value}
}

func TestTextOperators(t *testing.T) {
	e := newEval()
	en := entry()
	cases := []struct {
		op    models.Operator
		value string
		want  bool
	}{
		{models.OpEquals, "ERROR", true},
		{models.OpEquals, "error", false}, // exact equality is case-sensitive
		{models.OpNotEquals, "INFO", true},
		{models.OpContains, "err", true}, // contains is case-insensitive
		{models.OpNotContains, "warn", true},
		{models.OpStartsWith, "err", true},
		{models.OpEndsWith, "OR", true},
		{models.OpMatches, "^E.*R$", true},
		{models.OpMatches, "[invalid", false}, // bad regex evaluates false
		{models.OpNotEmpty, "x", true},
	}
	for _, tc := range cases {
		if got := e.EvaluateRule(en, rule("level", tc.op, tc.value)); got != tc.want {
			t.Errorf("level %s %q = %v, want %v", tc.op, tc.value, got, tc.want)
		}
	}
}

func TestNumericOperators(t *testing.T) {
	e := newEval()
	en := entry()
	cases := []struct {
		op    models.Operator
		value string
		want  bool
	}{
		{models.OpEquals, "250", true},
		{models.OpNotEquals, "100", true},
		{models.OpGreaterThan, "100", true},
		{models.OpGreaterOrEqual, "250", true},
		{models.OpLessThan, "300", true},
		{models.OpLessOrEqual, "249", false},
		{models.OpGreaterThan, "abc", false}, // NaN comparisons are false
	}
	for _, tc := range cases {
		if got := e.EvaluateRule(en, rule("latency", tc.op, tc.value)); got != tc.want {
			t.Errorf("latency %s %q = %v, want %v", tc.op, tc.value, got, tc.want)
		}
	}
}

func TestDateOperators(t *testing.T) {
	e := newEval()
	en := entry()
	cases := []struct {
		op    models.Operator
		value string
		want  bool
	}{
		{models.OpBefore, "2023-06-16T00:00:00Z", true},
		{models.OpAfter, "2023-06-14T00:00:00Z", true},
		{models.OpAfter, "2023-06-16T00:00:00Z", false},
		{models.OpBetween, "2023-06-14T00:00:00Z,2023-06-16T00:00:00Z", true},
		{models.OpBetween, "2023-06-16T00:00:00Z,2023-06-17T00:00:00Z", false},
		{models.OpOn, "2023-06-15T23:59:00Z", true},
		{models.OpEquals, "2023-06-15T01:00:00Z", true}, // equals is calendar-day equality
		{models.OpOn, "2023-06-16T00:00:01Z", false},
	}
	for _, tc := range cases {
		if got := e.EvaluateRule(en, rule("ts", tc.op, tc.value)); got != tc.want {
			t.Errorf("ts %s %q = %v, want %v", tc.op, tc.value, got, tc.want)
		}
	}
}

func TestArrayOperators(t *testing.T) {
	e := newEval()
	en := entry()
	cases := []struct {
		op    models.Operator
		value string
		want  bool
	}{
		{models.OpContains, "net", true},
		{models.OpContains, "disk", false},
		{models.OpContainsAll, "db,net", true},
		{models.OpContainsAll, "db,disk", false},
		{models.OpContainsAny, "disk,net", true},
		{models.OpContainsAny, "disk,cpu", false},
	}
	for _, tc := range cases {
		if got := e.EvaluateRule(en, rule("tags", tc.op, tc.value)); got != tc.want {
			t.Errorf("tags %s %q = %v, want %v", tc.op, tc.value, got, tc.want)
		}
	}
}

func TestEmptySemantics(t *testing.T) {
	e := newEval()
	en := entry()
	en.Fields["blank"] = []string{}

	// Empty field value: empty -> true, notEmpty -> false, others -> false.
	for _, field := range []string{"blank", "unknown"} {
		if !e.EvaluateRule(en, rule(field, models.OpEmpty, "")) {
			t.Errorf("%s empty should be true", field)
		}
		if e.EvaluateRule(en, rule(field, models.OpNotEmpty, "")) {
			t.Errorf("%s notEmpty should be false", field)
		}
		if e.EvaluateRule(en, rule(field, models.OpContains, "x")) {
			t.Errorf("%s contains on empty should be false", field)
		}
	}

	// Whitespace-only scalar counts as empty too.
	en.Level = "   "
	if !e.EvaluateRule(en, rule("level", models.OpEmpty, "")) {
		t.Error("whitespace-only level should be empty")
	}

	// Non-empty field but blank comparison value: notEmpty -> true,
	// everything else -> false.
	en.Level = "ERROR"
	if !e.EvaluateRule(en, rule("level", models.OpNotEmpty, "  ")) {
		t.Error("notEmpty with blank operand should be true")
	}
	if e.EvaluateRule(en, rule("level", models.OpContains, "   ")) {
		t.Error("contains with blank operand should be false")
	}
}

func TestDisabledRuleIsNoOp(t *testing.T) {
	e := newEval()
	r := rule("level", models.OpEquals, "NOPE")
	r.Enabled = boolPtr(false)
	if !e.EvaluateRule(entry(), r) {
		t.Error("disabled rule should evaluate true")
	}
	if !e.EvaluateRule(entry(), nil) {
		t.Error("nil rule should evaluate true")
	}
}

func TestInOperator(t *testing.T) {
	e := newEval()
	en := entry()
	r := &models.FilterRule{Field: "level", Operator: models.OpIn, Values: []string{"error", "WARNING"}}
	if !e.EvaluateRule(en, r) {
		t.Error("in should match case-insensitively")
	}
	r.Values = []string{"INFO", "DEBUG"}
	if e.EvaluateRule(en, r) {
		t.Error("in should not match")
	}
}

func TestEvaluateRulesConnectives(t *testing.T) {
	e := newEval()
	en := entry()

	and := []models.FilterRule{
		{Field: "level", Operator: models.OpEquals, Value: "ERROR", Logic: models.LogicAnd},
		{Field: "latency", Operator: models.OpGreaterThan, Value: "100"},
	}
	if !e.EvaluateRules(en, and) {
		t.Error("AND chain should match")
	}

	// false AND ... OR true: the later OR must still be evaluated.
	mixed := []models.FilterRule{
		{Field: "level", Operator: models.OpEquals, Value: "INFO", Logic: models.LogicAnd},
		{Field: "latency", Operator: models.OpGreaterThan, Value: "100", Logic: models.LogicOr},
		{Field: "message", Operator: models.OpContains, Value: "refused"},
	}
	if !e.EvaluateRules(en, mixed) {
		t.Error("later OR should rescue a false AND prefix")
	}

	// All-AND tail short-circuits once false.
	allAnd := []models.FilterRule{
		{Field: "level", Operator: models.OpEquals, Value: "INFO", Logic: models.LogicAnd},
		{Field: "latency", Operator: models.OpGreaterThan, Value: "100", Logic: models.LogicAnd},
		{Field: "message", Operator: models.OpContains, Value: "refused"},
	}
	if e.EvaluateRules(en, allAnd) {
		t.Error("all-AND chain with a false head should fail")
	}

	if !e.EvaluateRules(en, nil) {
		t.Error("empty rule list matches everything")
	}
}

func TestApplyGroups(t *testing.T) {
	e := newEval()
	a := entry()
	b := entry()
	b.ID = 2
	b.Level = "INFO"
	c := entry()
	c.ID = 3
	c.Level = "DEBUG"
	all := []*models.LogEntry{a, b, c}
	base := []*models.LogEntry{a}

	orGroup := models.RuleGroup{Logic: models.LogicOr, Rules: []models.FilterRule{
		{Field: "level", Operator: models.OpEquals, Value: "INFO"},
	}}
	got := e.ApplyGroups(all, base, []models.RuleGroup{orGroup})
	if len(got) != 2 {
		t.Fatalf("OR group should union, got %d entries", len(got))
	}

	andGroup := models.RuleGroup{Logic: models.LogicAnd, Rules: []models.FilterRule{
		{Field: "level", Operator: models.OpEquals, Value: "ERROR"},
	}}
	got = e.ApplyGroups(all, got, []models.RuleGroup{andGroup})
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("AND group should intersect down to entry 1, got %+v", got)
	}
}
