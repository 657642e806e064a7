package query

import (
	"strings"

	"github.com/loglens/loglens/internal/models"
)

// symbolOperators maps the grammar's comparison symbols onto the
// structured evaluator's operator vocabulary.
var symbolOperators = map[string]models.Operator{
	"=":  models.OpEquals,
	"!=": models.OpNotEquals,
	">":  models.OpGreaterThan,
	">=": models.OpGreaterOrEqual,
	"<":  models.OpLessThan,
	"<=": models.OpLessOrEqual,
}

type parser struct {
	tokens []token
	pos    int
}

// Compile tokenizes and parses a query string into an expression tree.
// A single bare term compiles to a lone RuleNode with no enclosing logic.
// Failures come back as *ParseError; the caller keeps its previous query.
func Compile(input string) (Node, error) {
	if strings.TrimSpace(input) == "" {
		return nil, parseErrorf(0, "", "empty query")
	}
	tokens, err := tokenize(input)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.tokens) {
		t := p.tokens[p.pos]
		return nil, parseErrorf(t.pos, p.fragment(t), "unexpected %s", describe(t))
	}
	return node, nil
}

func (p *parser) peek() (token, bool) {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos], true
	}
	return token{}, false
}

func (p *parser) fragment(t token) string {
	switch t.kind {
	case tokLParen:
		return "("
	case tokRParen:
		return ")"
	case tokTerm:
		return t.field + ":" + t.value
	default:
		return t.text
	}
}

func describe(t token) string {
	switch t.kind {
	case tokRParen:
		return "closing parenthesis"
	case tokLParen:
		return "opening parenthesis"
	default:
		return "token"
	}
}

// keyword reports whether the upcoming token is the given bare keyword.
func (p *parser) keyword(word string) bool {
	t, ok := p.peek()
	return ok && t.kind == tokWord && strings.EqualFold(t.text, word)
}

// startsOperand reports whether the upcoming token can begin an operand,
// which drives implicit-AND juxtaposition.
func (p *parser) startsOperand() bool {
	t, ok := p.peek()
	if !ok {
		return false
	}
	switch t.kind {
	case tokRParen:
		return false
	case tokWord:
		return !strings.EqualFold(t.text, "AND") && !strings.EqualFold(t.text, "OR")
	default:
		return true
	}
}

func (p *parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.keyword("OR") {
		p.pos++
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &LogicNode{Op: models.LogicOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for {
		if p.keyword("AND") {
			p.pos++
		} else if !p.startsOperand() {
			return left, nil
		}
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &LogicNode{Op: models.LogicAnd, Left: left, Right: right}
	}
}

func (p *parser) parseNot() (Node, error) {
	if p.keyword("NOT") {
		p.pos++
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &NotNode{Operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Node, error) {
	t, ok := p.peek()
	if !ok {
		return nil, parseErrorf(p.endPos(), "", "expected a term")
	}
	switch t.kind {
	case tokLParen:
		p.pos++
		node, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		closing, ok := p.peek()
		if !ok || closing.kind != tokRParen {
			return nil, parseErrorf(t.pos, "(", "unbalanced parentheses")
		}
		p.pos++
		return node, nil
	case tokRParen:
		return nil, parseErrorf(t.pos, ")", "unbalanced parentheses")
	case tokWord, tokPhrase:
		p.pos++
		// Bare word or quoted phrase: full-text term against raw.
		return &RuleNode{Rule: models.FilterRule{
			Field:    models.FieldRaw,
			Operator: models.OpContains,
			Value:    t.text,
		}}, nil
	case tokTerm:
		p.pos++
		return p.termRule(t)
	}
	return nil, parseErrorf(t.pos, p.fragment(t), "unexpected token")
}

func (p *parser) endPos() int {
	if len(p.tokens) == 0 {
		return 0
	}
	return p.tokens[len(p.tokens)-1].pos
}

// termRule finishes a field:... token into a rule node.
func (p *parser) termRule(t token) (Node, error) {
	// Existence checks.
	if t.op == "" && !t.valueQuoted && !t.valueRegex && !t.hasInList {
		switch strings.ToLower(t.field) {
		case "has":
			if t.value == "" {
				return nil, parseErrorf(t.pos, "has:", "has: requires a field name")
			}
			return &RuleNode{Rule: models.FilterRule{Field: t.value, Operator: models.OpNotEmpty}}, nil
		case "missing":
			if t.value == "" {
				return nil, parseErrorf(t.pos, "missing:", "missing: requires a field name")
			}
			return &RuleNode{Rule: models.FilterRule{Field: t.value, Operator: models.OpEmpty}}, nil
		}
	}

	if t.hasInList {
		return &RuleNode{Rule: models.FilterRule{
			Field:    t.field,
			Operator: models.OpIn,
			Values:   t.inList,
		}}, nil
	}

	if t.op != "" {
		value := t.value
		if t.needsValue {
			next, ok := p.peek()
			if !ok || (next.kind != tokWord && next.kind != tokPhrase) {
				return nil, parseErrorf(t.pos, t.field+":"+t.op, "operator %q requires a value", t.op)
			}
			p.pos++
			value = next.text
		}
		return &RuleNode{Rule: models.FilterRule{
			Field:    t.field,
			Operator: symbolOperators[t.op],
			Value:    value,
		}}, nil
	}

	if t.valueRegex {
		return &RuleNode{Rule: models.FilterRule{
			Field:    t.field,
			Operator: models.OpMatches,
			Value:    t.value,
		}}, nil
	}

	value := t.value
	if value == "" {
		return nil, parseErrorf(t.pos, t.field+":", "missing value after %q", t.field+":")
	}

	// A quoted "/regex/" is still a regex literal.
	if t.valueQuoted && len(value) >= 2 && value[0] == '/' && value[len(value)-1] == '/' {
		return &RuleNode{Rule: models.FilterRule{
			Field:    t.field,
			Operator: models.OpMatches,
			Value:    value[1 : len(value)-1],
		}}, nil
	}

	// Anchors switch the default operator before any unwrapping.
	switch {
	case strings.HasPrefix(value, "^"):
		return &RuleNode{Rule: models.FilterRule{
			Field: t.field, Operator: models.OpStartsWith, Value: value[1:],
		}}, nil
	case strings.HasSuffix(value, "$"):
		return &RuleNode{Rule: models.FilterRule{
			Field: t.field, Operator: models.OpEndsWith, Value: value[:len(value)-1],
		}}, nil
	}

	// Wildcards rewrite into anchored regular expressions.
	switch {
	case strings.HasSuffix(value, "*") && !strings.HasPrefix(value, "*"):
		return &RuleNode{Rule: models.FilterRule{
			Field: t.field, Operator: models.OpMatches,
			Value: "^" + strings.TrimSuffix(value, "*") + ".*$",
		}}, nil
	case strings.HasPrefix(value, "*"):
		return &RuleNode{Rule: models.FilterRule{
			Field: t.field, Operator: models.OpMatches,
			Value: "^.*" + strings.TrimPrefix(value, "*") + "$",
		}}, nil
	}

	return &RuleNode{Rule: models.FilterRule{
		Field: t.field, Operator: models.OpContains, Value: value,
	}}, nil
}
