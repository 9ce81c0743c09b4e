package localbackend

import (
	"context"

	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/pipegridgo/internal/ctxlog"
	"github.com/specialistvlad/pipegridgo/internal/model"
)

// NoopExecutor is a StepExecutor that runs nothing. Every declared output
// channel resolves to its configured source location, which is exactly what
// a real run would report once the step's container finished writing there.
// It is the default executor for local dry runs.
type NoopExecutor struct{}

// ExecuteStep reports the step's declared outputs without running anything.
func (NoopExecutor) ExecuteStep(ctx context.Context, step *model.Step, _ map[string]cty.Value) (map[string]string, error) {
	ctxlog.FromContext(ctx).Debug("Simulating step execution.", "step", step.Name, "kind", step.Kind)

	outputs := make(map[string]string, len(step.Outputs))
	for _, out := range step.Outputs {
		outputs[out.Name] = out.Source
	}
	return outputs, nil
}
