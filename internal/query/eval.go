package query

import (
	"github.com/loglens/loglens/internal/filter"
	"github.com/loglens/loglens/internal/models"
)

// EvaluateAST runs a compiled expression tree against one entry. Rule
// leaves share the structured evaluator's single-rule semantics; logic
// nodes short-circuit conventionally since the tree already encodes
// precedence.
func EvaluateAST(e *filter.Evaluator, entry *models.LogEntry, node Node) bool {
	switch n := node.(type) {
	case nil:
		return true
	case *RuleNode:
		return e.EvaluateRule(entry, &n.Rule)
	case *LogicNode:
		left := EvaluateAST(e, entry, n.Left)
		if n.Op == models.LogicOr {
			return left || EvaluateAST(e, entry, n.Right)
		}
		return left && EvaluateAST(e, entry, n.Right)
	case *NotNode:
		return !EvaluateAST(e, entry, n.Operand)
	}
	return false
}
