package query

import (
	"strings"

	"github.com/loglens/loglens/internal/models"
)

// negatedOperators are the pairs the flat dialect can invert in place.
var negatedOperators = map[models.Operator]models.Operator{
	models.OpEquals:      models.OpNotEquals,
	models.OpNotEquals:   models.OpEquals,
	models.OpContains:    models.OpNotContains,
	models.OpNotContains: models.OpContains,
	models.OpEmpty:       models.OpNotEmpty,
	models.OpNotEmpty:    models.OpEmpty,
}

// Flatten lowers an expression tree to the simpler dialect: an ordered
// rule list (each rule's Logic joining it to the next) plus the bare
// full-text words joined into one quick-search string. The third return is
// false when the tree uses shapes the flat dialect cannot express (mixed
// precedence under OR, non-invertible NOT); callers then evaluate the AST
// directly.
func Flatten(node Node) ([]models.FilterRule, string, bool) {
	var rules []models.FilterRule
	var words []string
	if !flattenInto(node, models.LogicAnd, &rules, &words) {
		return nil, "", false
	}
	if len(rules) > 0 {
		rules[len(rules)-1].Logic = ""
	}
	return rules, strings.Join(words, " "), true
}

func flattenInto(node Node, connective string, rules *[]models.FilterRule, words *[]string) bool {
	switch n := node.(type) {
	case *RuleNode:
		rule := n.Rule
		// Bare full-text terms become quick-search words, but only under
		// AND; under OR they must stay rules to keep the connective.
		if rule.Field == models.FieldRaw && rule.Operator == models.OpContains && connective == models.LogicAnd {
			*words = append(*words, rule.Value)
			return true
		}
		rule.Logic = connective
		*rules = append(*rules, rule)
		return true
	case *LogicNode:
		// Only uniform chains flatten faithfully: an OR under an AND (or
		// the reverse) would change meaning in a flat left-to-right fold.
		if child, ok := n.Left.(*LogicNode); ok && child.Op != n.Op {
			return false
		}
		if child, ok := n.Right.(*LogicNode); ok && child.Op != n.Op {
			return false
		}
		if !flattenInto(n.Left, n.Op, rules, words) {
			return false
		}
		return flattenInto(n.Right, connective, rules, words)
	case *NotNode:
		inner, ok := n.Operand.(*RuleNode)
		if !ok {
			return false
		}
		inverted, ok := negatedOperators[inner.Rule.Operator]
		if !ok {
			return false
		}
		rule := inner.Rule
		rule.Operator = inverted
		rule.Logic = connective
		*rules = append(*rules, rule)
		return true
	}
	return false
}
