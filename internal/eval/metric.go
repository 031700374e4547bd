// Package eval implements the evaluation harness for generated lesson plans:
// pure comparison metrics, a sequential test-suite runner, and a model-graded
// evaluator with heuristic fallback scoring.
package eval

import (
	"fmt"
	"strings"
)

// Metric is a pure predicate comparing actual vs. expected output.
// Implementations carry no state and never fail; a panicking custom predicate
// is an invocation error handled by the runner, not a metric concern.
type Metric interface {
	Evaluate(output, expected any) bool
	Name() string
}

// ExactMatch compares the string forms of both operands after trimming
// surrounding whitespace. Internal whitespace and case are significant.
type ExactMatch struct{}

func (ExactMatch) Evaluate(output, expected any) bool {
	return strings.TrimSpace(stringify(output)) == strings.TrimSpace(stringify(expected))
}

func (ExactMatch) Name() string { return "exact_match" }

// Contains reports whether the expected value's string form occurs within the
// output's string form, case-insensitively.
type Contains struct{}

func (Contains) Evaluate(output, expected any) bool {
	return strings.Contains(strings.ToLower(stringify(output)), strings.ToLower(stringify(expected)))
}

func (Contains) Name() string { return "contains" }

// Custom wraps a caller-supplied predicate under a caller-supplied label.
type Custom struct {
	Func  func(output, expected any) bool
	Label string
}

func (c Custom) Evaluate(output, expected any) bool {
	return c.Func(output, expected)
}

func (c Custom) Name() string { return c.Label }

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
