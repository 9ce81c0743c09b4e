// Package backend defines the ports for running a built pipeline graph.
// A Backend takes a graph plus parameter overrides and produces an
// Execution record; where step artifacts live and how steps actually run
// are behind the ArtifactStore and StepExecutor interfaces, so backends
// range from in-process simulation to remote services.
package backend

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/pipegridgo/internal/builder"
	"github.com/specialistvlad/pipegridgo/internal/model"
)

// ErrConditionExtraction is returned when a condition's value cannot be
// pulled out of its property file: the file is missing, is not valid JSON,
// or the path does not land on a number. It is deliberately distinct from a
// condition that evaluates to false, which is a normal outcome.
var ErrConditionExtraction = errors.New("condition value extraction failed")

// StepStatus is the terminal state of one step within an execution.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepSucceeded StepStatus = "succeeded"
	StepFailed    StepStatus = "failed"
	// StepSkipped marks a branch step whose branch was not selected. A
	// skipped step produces no outputs.
	StepSkipped StepStatus = "skipped"
)

// ConditionalState tracks a conditional node through evaluation.
type ConditionalState string

const (
	ConditionalPending        ConditionalState = "pending"
	ConditionalEvaluating     ConditionalState = "evaluating"
	ConditionalBranchSelected ConditionalState = "branch_selected"
)

// StepResult records the outcome of one step.
type StepResult struct {
	Name     string
	Status   StepStatus
	Outputs  map[string]string // channel name -> artifact location
	Error    string
	Started  time.Time
	Finished time.Time
}

// ConditionalResult records how a conditional resolved.
type ConditionalResult struct {
	Name    string
	State   ConditionalState
	Outcome bool      // true when all conditions held and the if branch ran
	Values  []float64 // extracted condition values, in declaration order
}

// Execution is the record of one pipeline run.
type Execution struct {
	ID           uuid.UUID
	Pipeline     string
	Parameters   map[string]cty.Value // effective values after overrides
	StartedAt    time.Time
	FinishedAt   time.Time
	Steps        map[string]*StepResult
	Conditionals map[string]*ConditionalResult
}

// Backend runs a built graph. Overrides replace parameter defaults by name;
// an override for an undeclared parameter is an error.
type Backend interface {
	Submit(ctx context.Context, g *builder.Graph, overrides map[string]cty.Value) (*Execution, error)
}

// ArtifactStore reads step artifacts. Property files are addressed by the
// producing step and the relative path declared on the step.
type ArtifactStore interface {
	ReadPropertyFile(ctx context.Context, step, path string) ([]byte, error)
}

// StepExecutor runs a single step. Parameters carry the execution's
// effective parameter values so bindings can be materialized. The returned
// map gives an artifact location per declared output channel.
type StepExecutor interface {
	ExecuteStep(ctx context.Context, step *model.Step, params map[string]cty.Value) (map[string]string, error)
}
