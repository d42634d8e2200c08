// Package filter evaluates boolean expressions against scanned anchors.
//
// It uses the expr-lang/expr library over the flat fields of one anchor:
// type, file, line, column, project, message, metadata, owner, issue,
// anchorId. Anything expr supports works, including string operators.
//
// Example expressions:
//
//	type == "TODO" && owner == "mads"
//	line > 100 || project == "Services"
//	message matches "retry|backoff"
//	issue != ""
package filter

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/tombee/commentary/pkg/anchor"
	commentaryerrors "github.com/tombee/commentary/pkg/errors"
)

// Filter is a compiled anchor predicate. Compile once, match many; watch
// mode reuses one program across rescans. A nil Filter matches everything.
type Filter struct {
	source  string
	program *vm.Program
}

// Compile builds a filter from an expression. An empty expression yields a
// filter that matches every anchor.
//
// Field references resolve at evaluation time, so an unknown name compares
// as nil rather than failing compilation.
func Compile(expression string) (*Filter, error) {
	if expression == "" {
		return &Filter{}, nil
	}

	program, err := expr.Compile(expression,
		expr.Env(map[string]interface{}{}),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, &commentaryerrors.ValidationError{
			Field:      "filter",
			Message:    fmt.Sprintf("failed to compile expression: %s", err.Error()),
			Suggestion: "check expression syntax; fields are type, file, line, column, project, message, metadata, owner, issue, anchorId",
		}
	}

	return &Filter{source: expression, program: program}, nil
}

// Source returns the original expression text.
func (f *Filter) Source() string {
	if f == nil {
		return ""
	}
	return f.source
}

// Match evaluates the filter against one anchor.
func (f *Filter) Match(it anchor.Item) (bool, error) {
	if f == nil || f.program == nil {
		return true, nil
	}

	result, err := expr.Run(f.program, it.Fields())
	if err != nil {
		return false, &commentaryerrors.ValidationError{
			Field:      "filter",
			Message:    fmt.Sprintf("expression evaluation failed: %s", err.Error()),
			Suggestion: "verify field names and value types in the expression",
		}
	}

	ok, isBool := result.(bool)
	if !isBool {
		return false, &commentaryerrors.ValidationError{
			Field:      "filter",
			Message:    fmt.Sprintf("expression must return boolean, got %T (%v)", result, result),
			Suggestion: "use comparison operators (==, !=, <, >) or boolean logic",
		}
	}

	return ok, nil
}

// Apply returns the anchors matching the filter, preserving input order.
func (f *Filter) Apply(items []anchor.Item) ([]anchor.Item, error) {
	if f == nil || f.program == nil {
		return items, nil
	}

	out := make([]anchor.Item, 0, len(items))
	for _, it := range items {
		ok, err := f.Match(it)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, it)
		}
	}
	return out, nil
}
