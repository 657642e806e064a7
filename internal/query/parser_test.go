package query

import (
	"errors"
	"testing"

	"github.com/loglens/loglens/internal/filter"
	"github.com/loglens/loglens/internal/models"
)

// newTestEvaluator runs rule leaves with no registry: scalar fields fall
// back to the text table, extracted arrays to the array table.
func newTestEvaluator() *filter.Evaluator {
	return filter.NewEvaluator(nil)
}

func mustCompile(t *testing.T, input string) Node {
	t.Helper()
	node, err := Compile(input)
	if err != nil {
		t.Fatalf("Compile(%q): %v", input, err)
	}
	return node
}

func asRule(t *testing.T, node Node) models.FilterRule {
	t.Helper()
	rn, ok := node.(*RuleNode)
	if !ok {
		t.Fatalf("expected RuleNode, got %T", node)
	}
	return rn.Rule
}

func TestCompileSingleTerm(t *testing.T) {
	rule := asRule(t, mustCompile(t, "level:ERROR"))
	if rule.Field != "level" || rule.Operator != models.OpContains || rule.Value != "ERROR" {
		t.Errorf("got %+v", rule)
	}
}

func TestCompileImplicitAnd(t *testing.T) {
	node := mustCompile(t, "level:ERROR app:main")
	ln, ok := node.(*LogicNode)
	if !ok || ln.Op != models.LogicAnd {
		t.Fatalf("expected AND node, got %#v", node)
	}
	if asRule(t, ln.Left).Field != "level" || asRule(t, ln.Right).Field != "app" {
		t.Errorf("wrong operands: %+v / %+v", ln.Left, ln.Right)
	}
}

func TestCompileComparisonOperators(t *testing.T) {
	cases := []struct {
		input string
		op    models.Operator
		value string
	}{
		{"latency:=100", models.OpEquals, "100"},
		{"latency:!=100", models.OpNotEquals, "100"},
		{"latency:>100", models.OpGreaterThan, "100"},
		{"latency:>=100", models.OpGreaterOrEqual, "100"},
		{"latency:<100", models.OpLessThan, "100"},
		{"latency:<=100", models.OpLessOrEqual, "100"},
		{"latency:> 100", models.OpGreaterThan, "100"}, // spaced comparand
	}
	for _, tc := range cases {
		rule := asRule(t, mustCompile(t, tc.input))
		if rule.Operator != tc.op || rule.Value != tc.value {
			t.Errorf("%q: got %s %q, want %s %q", tc.input, rule.Operator, rule.Value, tc.op, tc.value)
		}
	}
}

func TestCompileWildcards(t *testing.T) {
	rule := asRule(t, mustCompile(t, "user:admin*"))
	if rule.Operator != models.OpMatches || rule.Value != "^admin.*$" {
		t.Errorf("prefix wildcard: %+v", rule)
	}
	rule = asRule(t, mustCompile(t, "user:*admin"))
	if rule.Operator != models.OpMatches || rule.Value != "^.*admin$" {
		t.Errorf("suffix wildcard: %+v", rule)
	}
}

func TestCompileAnchors(t *testing.T) {
	rule := asRule(t, mustCompile(t, "user:^adm"))
	if rule.Operator != models.OpStartsWith || rule.Value != "adm" {
		t.Errorf("caret anchor: %+v", rule)
	}
	rule = asRule(t, mustCompile(t, "user:min$"))
	if rule.Operator != models.OpEndsWith || rule.Value != "min" {
		t.Errorf("dollar anchor: %+v", rule)
	}
}

func TestCompileRegexLiteral(t *testing.T) {
	rule := asRule(t, mustCompile(t, `msg:/time?out/`))
	if rule.Operator != models.OpMatches || rule.Value != "time?out" {
		t.Errorf("regex literal: %+v", rule)
	}
	rule = asRule(t, mustCompile(t, `msg:"/space out/"`))
	if rule.Operator != models.OpMatches || rule.Value != "space out" {
		t.Errorf("quoted regex literal: %+v", rule)
	}
}

func TestCompileInList(t *testing.T) {
	rule := asRule(t, mustCompile(t, "level:IN(ERROR, WARN, INFO)"))
	if rule.Operator != models.OpIn {
		t.Fatalf("operator: %s", rule.Operator)
	}
	want := []string{"ERROR", "WARN", "INFO"}
	if len(rule.Values) != len(want) {
		t.Fatalf("values: %v", rule.Values)
	}
	for i := range want {
		if rule.Values[i] != want[i] {
			t.Errorf("values[%d] = %q, want %q", i, rule.Values[i], want[i])
		}
	}
}

func TestCompileExistenceChecks(t *testing.T) {
	rule := asRule(t, mustCompile(t, "has:level"))
	if rule.Field != "level" || rule.Operator != models.OpNotEmpty {
		t.Errorf("has: %+v", rule)
	}
	rule = asRule(t, mustCompile(t, "missing:user"))
	if rule.Field != "user" || rule.Operator != models.OpEmpty {
		t.Errorf("missing: %+v", rule)
	}
}

func TestCompileBareWordsAndPhrases(t *testing.T) {
	rule := asRule(t, mustCompile(t, "timeout"))
	if rule.Field != "raw" || rule.Operator != models.OpContains || rule.Value != "timeout" {
		t.Errorf("bare word: %+v", rule)
	}
	rule = asRule(t, mustCompile(t, `"connection refused"`))
	if rule.Value != "connection refused" {
		t.Errorf("phrase: %+v", rule)
	}
}

func TestCompileQuotedFieldValue(t *testing.T) {
	rule := asRule(t, mustCompile(t, `msg:"disk full"`))
	if rule.Field != "msg" || rule.Operator != models.OpContains || rule.Value != "disk full" {
		t.Errorf("quoted value: %+v", rule)
	}
}

func TestCompilePrecedenceAndGrouping(t *testing.T) {
	// a OR b c parses as a OR (b AND c).
	node := mustCompile(t, "level:ERROR OR level:WARNING app:main")
	or, ok := node.(*LogicNode)
	if !ok || or.Op != models.LogicOr {
		t.Fatalf("expected OR root, got %#v", node)
	}
	if and, ok := or.Right.(*LogicNode); !ok || and.Op != models.LogicAnd {
		t.Fatalf("expected AND under OR, got %#v", or.Right)
	}

	// Parentheses override.
	node = mustCompile(t, "(level:ERROR OR level:WARNING) app:main")
	and, ok := node.(*LogicNode)
	if !ok || and.Op != models.LogicAnd {
		t.Fatalf("expected AND root, got %#v", node)
	}
	if inner, ok := and.Left.(*LogicNode); !ok || inner.Op != models.LogicOr {
		t.Fatalf("expected OR inside parens, got %#v", and.Left)
	}
}

func TestCompileNot(t *testing.T) {
	node := mustCompile(t, "NOT level:DEBUG")
	nn, ok := node.(*NotNode)
	if !ok {
		t.Fatalf("expected NOT node, got %#v", node)
	}
	if asRule(t, nn.Operand).Field != "level" {
		t.Errorf("operand: %#v", nn.Operand)
	}
}

func TestCompileErrors(t *testing.T) {
	cases := []string{
		"",
		"(level:ERROR",
		"level:ERROR)",
		`msg:"unterminated`,
		`msg:/unterminated`,
		"level:IN(ERROR",
		"latency:>",
		"level:",
		"has:",
	}
	for _, input := range cases {
		_, err := Compile(input)
		if err == nil {
			t.Errorf("Compile(%q) should fail", input)
			continue
		}
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Errorf("Compile(%q) returned %T, want *ParseError", input, err)
		}
	}
}

func TestEvaluateAST(t *testing.T) {
	e := newTestEvaluator()
	en := &models.LogEntry{
		ID: 1, Level: "ERROR", Message: "connection refused",
		Raw:    "2023-01-01 ERROR connection refused",
		Fields: map[string][]string{"app": {"main"}},
	}
	en.RefreshSearchIndex()

	cases := []struct {
		query string
		want  bool
	}{
		{"level:ERROR", true},
		{"level:DEBUG", false},
		{"level:ERROR app:main", true},
		{"level:ERROR app:worker", false},
		{"level:DEBUG OR app:main", true},
		{"NOT level:DEBUG", true},
		{"NOT level:ERROR", false},
		{"(level:DEBUG OR level:ERROR) refused", true},
		{"(level:DEBUG OR level:ERROR) granted", false},
		{"level:IN(ERROR, WARN)", true},
		{"has:app missing:user", true},
	}
	for _, tc := range cases {
		node := mustCompile(t, tc.query)
		if got := EvaluateAST(e, en, node); got != tc.want {
			t.Errorf("EvaluateAST(%q) = %v, want %v", tc.query, got, tc.want)
		}
	}
}

func TestFlatten(t *testing.T) {
	rules, quick, ok := Flatten(mustCompile(t, "level:ERROR app:main timeout"))
	if !ok {
		t.Fatal("expected flattenable query")
	}
	if len(rules) != 2 {
		t.Fatalf("rules: %+v", rules)
	}
	if rules[0].Logic != models.LogicAnd || rules[1].Logic != "" {
		t.Errorf("logic chain: %+v", rules)
	}
	if quick != "timeout" {
		t.Errorf("quick search: %q", quick)
	}

	rules, _, ok = Flatten(mustCompile(t, "NOT level:DEBUG"))
	if !ok || rules[0].Operator != models.OpNotContains {
		t.Errorf("NOT inversion: ok=%v rules=%+v", ok, rules)
	}

	// Mixed precedence cannot flatten.
	if _, _, ok := Flatten(mustCompile(t, "a:1 AND (b:2 OR c:3)")); ok {
		t.Error("mixed-precedence tree should not flatten")
	}
}
