// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package model

import (
	"fmt"

	"github.com/specialistvlad/pipegridgo/internal/jsonpath"
)

// JSONGet addresses a scalar inside a property file produced by a step:
// "extract the value at Path from PropertyFile on Step, once Step has
// completed". It is the only left-operand form a Condition accepts.
type JSONGet struct {
	Step         string
	PropertyFile string
	Path         *jsonpath.Path
}

// String renders the operand for logs and error messages.
func (j JSONGet) String() string {
	return fmt.Sprintf("jsonget(%s, %s, %s)", j.Step, j.PropertyFile, j.Path.String())
}

// Operator is the comparison a Condition applies. Only less-than-or-equal
// is defined; the type exists so the graph document names the operator
// explicitly instead of implying it.
type Operator string

// OpLessThanOrEqual compares with <= (inclusive).
const OpLessThanOrEqual Operator = "lte"

// Condition is a boolean predicate over a property-file value and a literal
// numeric threshold. Multiple conditions on one conditional step are
// AND-combined.
type Condition struct {
	Op        Operator
	Left      JSONGet
	Threshold float64
}

// LessThanOrEqual constructs the one supported condition form.
func LessThanOrEqual(left JSONGet, threshold float64) Condition {
	return Condition{Op: OpLessThanOrEqual, Left: left, Threshold: threshold}
}

// Holds evaluates the condition against an already-extracted value. The
// comparison is inclusive: a value exactly equal to the threshold selects
// the if-branch.
func (c Condition) Holds(value float64) bool {
	return value <= c.Threshold
}
