package query

import (
	"fmt"

	"github.com/loglens/loglens/internal/models"
)

// Node is one vertex of a compiled query expression tree.
type Node interface {
	node()
}

// RuleNode is a leaf condition, evaluated with the same single-rule
// semantics as the structured rule evaluator.
type RuleNode struct {
	Rule models.FilterRule
}

// LogicNode joins two subtrees with AND or OR.
type LogicNode struct {
	Op    string // models.LogicAnd or models.LogicOr
	Left  Node
	Right Node
}

// NotNode inverts its operand.
type NotNode struct {
	Operand Node
}

func (*RuleNode) node()  {}
func (*LogicNode) node() {}
func (*NotNode) node()   {}

// ParseError is the typed failure returned when the query grammar rejects
// the input. It carries the offending fragment so callers can surface a
// message and keep their previous valid query active.
type ParseError struct {
	Message  string
	Fragment string
	Pos      int
}

func (e *ParseError) Error() string {
	if e.Fragment != "" {
		return fmt.Sprintf("query parse error at position %d near %q: %s", e.Pos, e.Fragment, e.Message)
	}
	return fmt.Sprintf("query parse error at position %d: %s", e.Pos, e.Message)
}

func parseErrorf(pos int, fragment, format string, args ...interface{}) *ParseError {
	return &ParseError{Message: fmt.Sprintf(format, args...), Fragment: fragment, Pos: pos}
}
