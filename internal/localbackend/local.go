package localbackend

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/pipegridgo/internal/backend"
	"github.com/specialistvlad/pipegridgo/internal/builder"
	"github.com/specialistvlad/pipegridgo/internal/ctxlog"
	"github.com/specialistvlad/pipegridgo/internal/model"
)

// Local is the in-process Backend.
type Local struct {
	store    backend.ArtifactStore
	executor backend.StepExecutor
}

var _ backend.Backend = (*Local)(nil)

// New creates a Local backend reading property files from store. A nil
// executor defaults to the NoopExecutor.
func New(store backend.ArtifactStore, executor backend.StepExecutor) *Local {
	if executor == nil {
		executor = NoopExecutor{}
	}
	return &Local{store: store, executor: executor}
}

// Submit runs the graph to completion. Steps run sequentially in
// topological order; conditionals evaluate their conditions against
// produced property files and run exactly one branch. The returned
// Execution is populated even when Submit fails partway, so callers can see
// how far the run got.
func (l *Local) Submit(ctx context.Context, g *builder.Graph, overrides map[string]cty.Value) (*backend.Execution, error) {
	logger := ctxlog.FromContext(ctx)

	params, err := effectiveParameters(g, overrides)
	if err != nil {
		return nil, err
	}

	exec := &backend.Execution{
		ID:           uuid.New(),
		Pipeline:     g.Name(),
		Parameters:   params,
		StartedAt:    time.Now(),
		Steps:        make(map[string]*backend.StepResult),
		Conditionals: make(map[string]*backend.ConditionalResult),
	}
	for _, s := range g.Steps() {
		exec.Steps[s.Name] = &backend.StepResult{Name: s.Name, Status: backend.StepPending}
	}
	for _, c := range g.Conditionals() {
		exec.Conditionals[c.Name] = &backend.ConditionalResult{Name: c.Name, State: backend.ConditionalPending}
		for _, s := range c.BranchSteps() {
			exec.Steps[s.Name] = &backend.StepResult{Name: s.Name, Status: backend.StepPending}
		}
	}

	logger.Info("Starting local pipeline run.", "pipeline", g.Name(), "execution_id", exec.ID)

	order, err := g.TopoOrder()
	if err != nil {
		return nil, err
	}

	for _, name := range order {
		if step, ok := g.Step(name); ok {
			if err := l.runStep(ctx, exec, step, params); err != nil {
				exec.FinishedAt = time.Now()
				return exec, err
			}
			continue
		}
		cond, ok := g.Conditional(name)
		if !ok {
			return nil, fmt.Errorf("node %q is neither a step nor a conditional", name)
		}
		if err := l.runConditional(ctx, exec, g, cond, params); err != nil {
			exec.FinishedAt = time.Now()
			return exec, err
		}
	}

	exec.FinishedAt = time.Now()
	logger.Info("Local pipeline run finished.", "pipeline", g.Name(), "execution_id", exec.ID)
	return exec, nil
}

func (l *Local) runStep(ctx context.Context, exec *backend.Execution, step *model.Step, params map[string]cty.Value) error {
	logger := ctxlog.FromContext(ctx)
	result := exec.Steps[step.Name]
	result.Status = backend.StepRunning
	result.Started = time.Now()

	outputs, err := l.executor.ExecuteStep(ctx, step, params)
	result.Finished = time.Now()
	if err != nil {
		result.Status = backend.StepFailed
		result.Error = err.Error()
		return fmt.Errorf("step %q failed: %w", step.Name, err)
	}

	result.Status = backend.StepSucceeded
	result.Outputs = outputs
	logger.Debug("Step finished.", "step", step.Name)
	return nil
}

// runConditional drives a conditional through its state machine: all
// condition values are extracted first, then exactly one branch runs and
// the other is marked skipped.
func (l *Local) runConditional(ctx context.Context, exec *backend.Execution, g *builder.Graph, c *model.ConditionalStep, params map[string]cty.Value) error {
	logger := ctxlog.FromContext(ctx)
	result := exec.Conditionals[c.Name]
	result.State = backend.ConditionalEvaluating

	holds := true
	for _, cond := range c.Conditions {
		value, err := l.extractConditionValue(ctx, g, cond)
		if err != nil {
			return fmt.Errorf("conditional %q: %w", c.Name, err)
		}
		result.Values = append(result.Values, value)
		holds = holds && cond.Holds(value)
	}

	result.State = backend.ConditionalBranchSelected
	result.Outcome = holds

	selected, skipped := c.IfSteps, c.ElseSteps
	if !holds {
		selected, skipped = c.ElseSteps, c.IfSteps
	}
	logger.Info("Conditional branch selected.",
		"conditional", c.Name, "outcome", holds, "values", result.Values)

	for _, s := range skipped {
		exec.Steps[s.Name].Status = backend.StepSkipped
	}
	for _, s := range selected {
		if err := l.runStep(ctx, exec, s, params); err != nil {
			return err
		}
	}
	return nil
}

// extractConditionValue reads the condition's property file and pulls out
// the addressed number. Any failure along the way is an extraction error,
// which is a different outcome from the condition holding or not.
func (l *Local) extractConditionValue(ctx context.Context, g *builder.Graph, cond model.Condition) (float64, error) {
	producer, ok := g.Step(cond.Left.Step)
	if !ok {
		return 0, fmt.Errorf("%w: step %q not found", backend.ErrConditionExtraction, cond.Left.Step)
	}
	pf, ok := producer.PropertyFileByName(cond.Left.PropertyFile)
	if !ok {
		return 0, fmt.Errorf("%w: step %q has no property file %q",
			backend.ErrConditionExtraction, cond.Left.Step, cond.Left.PropertyFile)
	}

	data, err := l.store.ReadPropertyFile(ctx, cond.Left.Step, pf.Path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", backend.ErrConditionExtraction, err)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("%w: property file %q is not valid JSON: %v",
			backend.ErrConditionExtraction, pf.Path, err)
	}

	value, err := cond.Left.Path.ExtractNumber(doc)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", backend.ErrConditionExtraction, err)
	}
	return value, nil
}

// effectiveParameters applies overrides to the declared parameter defaults.
// Overriding an undeclared parameter is an error.
func effectiveParameters(g *builder.Graph, overrides map[string]cty.Value) (map[string]cty.Value, error) {
	params := make(map[string]cty.Value)
	for _, p := range g.Parameters() {
		params[p.Name] = p.Default
	}
	for name, value := range overrides {
		if _, ok := params[name]; !ok {
			return nil, fmt.Errorf("%w: override for %q", builder.ErrUnknownParameter, name)
		}
		params[name] = value
	}
	return params, nil
}
