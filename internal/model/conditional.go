// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package model

// ConditionalStep is a branch node in the pipeline graph. At run time the
// backend evaluates its conditions once their property files exist and
// selects exactly one branch; the other branch's steps are permanently
// skipped and produce no outputs.
type ConditionalStep struct {
	Name       string
	Conditions []Condition
	IfSteps    []*Step
	ElseSteps  []*Step
}

// NewConditionalStep constructs a ConditionalStep. A nil else-branch is
// normalized to an empty one, so an omitted else and an explicitly empty
// else are the same thing everywhere downstream.
func NewConditionalStep(name string, conditions []Condition, ifSteps, elseSteps []*Step) *ConditionalStep {
	if ifSteps == nil {
		ifSteps = []*Step{}
	}
	if elseSteps == nil {
		elseSteps = []*Step{}
	}
	return &ConditionalStep{
		Name:       name,
		Conditions: conditions,
		IfSteps:    ifSteps,
		ElseSteps:  elseSteps,
	}
}

// BranchSteps returns the union of both branches.
func (c *ConditionalStep) BranchSteps() []*Step {
	steps := make([]*Step, 0, len(c.IfSteps)+len(c.ElseSteps))
	steps = append(steps, c.IfSteps...)
	steps = append(steps, c.ElseSteps...)
	return steps
}
