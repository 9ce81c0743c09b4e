package builder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/pipegridgo/internal/model"
)

func testCompute() model.ComputeSpec {
	return model.ComputeSpec{
		ImageRef:      "123456789012.dkr.ecr.eu-west-1.amazonaws.com/xgboost:1.0-1",
		InstanceType:  "ml.m5.xlarge",
		InstanceCount: 1,
		Role:          "arn:aws:iam::123456789012:role/pipeline",
	}
}

// abalonePipeline wires the canonical four-node training pipeline:
// Preprocess -> Train -> Evaluate -> CheckMSE (if: RegisterModel).
func abalonePipeline(t *testing.T) *Builder {
	t.Helper()
	b := New("AbalonePipeline")

	_, err := b.ParameterNumber("ProcessingInstanceCount", 1)
	require.NoError(t, err)
	_, err = b.ParameterString("InputDataUrl", "s3://sample-bucket/dataset/abalone-dataset.csv")
	require.NoError(t, err)

	process, err := b.AddStep(model.Step{
		Name: "PreprocessData",
		Kind: model.KindProcess,
		Script: &model.ScriptConfig{
			Path: "source_scripts/preprocessing.py",
			Args: []model.Input{
				{Name: "--input-data", Binding: model.BindParameter("InputDataUrl")},
			},
		},
		Outputs: []model.OutputChannel{
			{Name: "train", Source: "/opt/ml/processing/train"},
			{Name: "validation", Source: "/opt/ml/processing/validation"},
			{Name: "test", Source: "/opt/ml/processing/test"},
		},
		Compute: testCompute(),
	})
	require.NoError(t, err)

	train, err := b.AddStep(model.Step{
		Name: "TrainModel",
		Kind: model.KindTrain,
		Train: &model.TrainConfig{
			OutputPath: "s3://sample-bucket/AbaloneTrain",
			Hyperparameters: map[string]cty.Value{
				"objective": cty.StringVal("reg:linear"),
				"num_round": cty.NumberIntVal(50),
				"max_depth": cty.NumberIntVal(5),
			},
		},
		Inputs: []model.Input{
			{Name: "train", Binding: model.BindReference(process.MustOutput("train"))},
			{Name: "validation", Binding: model.BindReference(process.MustOutput("validation"))},
		},
		Outputs: []model.OutputChannel{
			{Name: "model", Source: "s3://sample-bucket/AbaloneTrain"},
		},
		Compute: testCompute(),
	})
	require.NoError(t, err)

	evaluate, err := b.AddStep(model.Step{
		Name:   "EvaluateModel",
		Kind:   model.KindEvaluate,
		Script: &model.ScriptConfig{Path: "source_scripts/evaluate.py"},
		Inputs: []model.Input{
			{Name: "model", Binding: model.BindReference(train.MustOutput("model"))},
			{Name: "test", Binding: model.BindReference(process.MustOutput("test"))},
		},
		Outputs: []model.OutputChannel{
			{Name: "evaluation", Source: "/opt/ml/processing/evaluation"},
		},
		PropertyFiles: []model.PropertyFile{
			{Name: "EvaluationReport", OutputChannel: "evaluation", Path: "evaluation.json"},
		},
		Compute: testCompute(),
	})
	require.NoError(t, err)

	mse, err := evaluate.JSONGet("EvaluationReport", "regression_metrics.mse.value")
	require.NoError(t, err)

	register := model.Step{
		Name: "RegisterModel",
		Kind: model.KindRegister,
		Register: &model.RegisterConfig{
			PackageGroup:      "AbalonePackageGroup",
			ApprovalStatus:    "PendingManualApproval",
			ContentTypes:      []string{"text/csv"},
			ResponseTypes:     []string{"text/csv"},
			InferenceTypes:    []string{"ml.t2.medium", "ml.m5.large"},
			TransformTypes:    []string{"ml.m5.large"},
			MetricsSource:     model.BindReference(evaluate.MustOutput("evaluation")),
			MetricsSourceType: "application/json",
		},
		Inputs: []model.Input{
			{Name: "model", Binding: model.BindReference(train.MustOutput("model"))},
		},
		Compute: testCompute(),
	}

	err = b.AddConditional("CheckMSE",
		[]model.Condition{model.LessThanOrEqual(mse, 6.0)},
		[]model.Step{register},
		nil,
	)
	require.NoError(t, err)

	return b
}

func TestBuildLinearChain(t *testing.T) {
	g, err := abalonePipeline(t).Build(context.Background())
	require.NoError(t, err)

	// Four top-level nodes; the register step exists only inside the branch.
	assert.Equal(t, 4, g.NodeCount())
	assert.Equal(t, []string{"PreprocessData", "TrainModel", "EvaluateModel", "CheckMSE"}, g.Nodes())

	assert.Equal(t, [][2]string{
		{"EvaluateModel", "CheckMSE"},
		{"PreprocessData", "EvaluateModel"},
		{"PreprocessData", "TrainModel"},
		{"TrainModel", "EvaluateModel"},
	}, g.Edges())

	cond, ok := g.Conditional("CheckMSE")
	require.True(t, ok)
	require.Len(t, cond.IfSteps, 1)
	assert.Empty(t, cond.ElseSteps)

	owner, inBranch := g.InBranch("RegisterModel")
	require.True(t, inBranch)
	assert.Equal(t, "CheckMSE", owner)

	order, err := g.TopoOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"PreprocessData", "TrainModel", "EvaluateModel", "CheckMSE"}, order)
}

func TestBuildIsIdempotent(t *testing.T) {
	b := abalonePipeline(t)

	g1, err := b.Build(context.Background())
	require.NoError(t, err)
	g2, err := b.Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, g1.Nodes(), g2.Nodes())
	assert.Equal(t, g1.Edges(), g2.Edges())

	d1, err := g1.Document()
	require.NoError(t, err)
	d2, err := g2.Document()
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}

func TestDuplicateStepName(t *testing.T) {
	b := New("p")
	step := model.Step{
		Name:    "PreprocessData",
		Kind:    model.KindProcess,
		Script:  &model.ScriptConfig{Path: "p.py"},
		Compute: testCompute(),
	}

	_, err := b.AddStep(step)
	require.NoError(t, err)

	_, err = b.AddStep(step)
	assert.ErrorIs(t, err, ErrDuplicateStepName)

	// The collision is order-independent: a conditional claiming the same
	// name fails the same way.
	err = b.AddConditional("PreprocessData", nil, nil, nil)
	assert.ErrorIs(t, err, ErrDuplicateStepName)
}

func TestDuplicateParameterName(t *testing.T) {
	b := New("p")
	_, err := b.ParameterString("InputDataUrl", "s3://a")
	require.NoError(t, err)

	_, err = b.ParameterString("InputDataUrl", "s3://b")
	assert.ErrorIs(t, err, ErrDuplicateParameterName)

	_, err = b.ParameterNumber("InputDataUrl", 1)
	assert.ErrorIs(t, err, ErrDuplicateParameterName)
}

func TestUnknownOutputChannelIsEager(t *testing.T) {
	b := New("p")
	process, err := b.AddStep(model.Step{
		Name:   "PreprocessData",
		Kind:   model.KindProcess,
		Script: &model.ScriptConfig{Path: "p.py"},
		Outputs: []model.OutputChannel{
			{Name: "train", Source: "/opt/ml/processing/train"},
			{Name: "test", Source: "/opt/ml/processing/test"},
		},
		Compute: testCompute(),
	})
	require.NoError(t, err)

	// The producing step declared train and test, not validation. The
	// mistake surfaces at reference creation, before any graph exists.
	_, err = process.Output("validation")
	assert.ErrorIs(t, err, ErrUnknownOutputChannel)
}

func TestUnknownStepAtBuild(t *testing.T) {
	b := New("p")
	_, err := b.AddStep(model.Step{
		Name:  "TrainModel",
		Kind:  model.KindTrain,
		Train: &model.TrainConfig{},
		Inputs: []model.Input{
			{Name: "train", Binding: model.BindReference(model.PropertyRef{Step: "Ghost", Channel: "train"})},
		},
		Compute: testCompute(),
	})
	require.NoError(t, err)

	_, err = b.Build(context.Background())
	assert.ErrorIs(t, err, ErrUnknownStep)
}

func TestUnknownParameter(t *testing.T) {
	b := New("p")
	_, err := b.AddStep(model.Step{
		Name:   "PreprocessData",
		Kind:   model.KindProcess,
		Script: &model.ScriptConfig{Path: "p.py"},
		Inputs: []model.Input{
			{Name: "data", Binding: model.BindParameter("Undeclared")},
		},
		Compute: testCompute(),
	})
	require.NoError(t, err)

	_, err = b.Build(context.Background())
	assert.ErrorIs(t, err, ErrUnknownParameter)
}

func TestCycleDetected(t *testing.T) {
	b := New("p")

	// References crafted directly, bypassing handles, so a cycle can exist
	// for Build to find.
	_, err := b.AddStep(model.Step{
		Name:    "StepA",
		Kind:    model.KindProcess,
		Script:  &model.ScriptConfig{Path: "a.py"},
		Outputs: []model.OutputChannel{{Name: "out", Source: "/a"}},
		Inputs: []model.Input{
			{Name: "in", Binding: model.BindReference(model.PropertyRef{Step: "StepB", Channel: "out"})},
		},
		Compute: testCompute(),
	})
	require.NoError(t, err)

	_, err = b.AddStep(model.Step{
		Name:    "StepB",
		Kind:    model.KindProcess,
		Script:  &model.ScriptConfig{Path: "b.py"},
		Outputs: []model.OutputChannel{{Name: "out", Source: "/b"}},
		Inputs: []model.Input{
			{Name: "in", Binding: model.BindReference(model.PropertyRef{Step: "StepA", Channel: "out"})},
		},
		Compute: testCompute(),
	})
	require.NoError(t, err)

	_, err = b.Build(context.Background())
	require.ErrorIs(t, err, ErrCycleDetected)
	assert.ErrorContains(t, err, "StepA")
	assert.ErrorContains(t, err, "StepB")
}

func TestSelfReferenceRejected(t *testing.T) {
	b := New("p")
	_, err := b.AddStep(model.Step{
		Name:    "StepA",
		Kind:    model.KindProcess,
		Script:  &model.ScriptConfig{Path: "a.py"},
		Outputs: []model.OutputChannel{{Name: "out", Source: "/a"}},
		Inputs: []model.Input{
			{Name: "in", Binding: model.BindReference(model.PropertyRef{Step: "StepA", Channel: "out"})},
		},
		Compute: testCompute(),
	})
	require.NoError(t, err)

	_, err = b.Build(context.Background())
	assert.ErrorIs(t, err, ErrCycleDetected)
}

func TestBranchOverlap(t *testing.T) {
	b := New("p")
	evaluate := addEvaluate(t, b)

	mse, err := evaluate.JSONGet("EvaluationReport", "regression_metrics.mse.value")
	require.NoError(t, err)

	register := model.Step{
		Name:     "RegisterModel",
		Kind:     model.KindRegister,
		Register: &model.RegisterConfig{PackageGroup: "g"},
		Compute:  testCompute(),
	}

	err = b.AddConditional("CheckMSE",
		[]model.Condition{model.LessThanOrEqual(mse, 6.0)},
		[]model.Step{register},
		[]model.Step{register},
	)
	assert.ErrorIs(t, err, ErrBranchOverlap)

	// A failed add leaves nothing half-registered: the branch step's name
	// is still free.
	_, err = b.AddStep(register)
	assert.NoError(t, err)
}

func TestUnknownPropertyFile(t *testing.T) {
	b := New("p")
	evaluate := addEvaluate(t, b)

	_, err := evaluate.JSONGet("MissingReport", "regression_metrics.mse.value")
	assert.ErrorIs(t, err, ErrUnknownPropertyFile)
}

func TestUnreachableAfterSkip(t *testing.T) {
	b := New("p")
	evaluate := addEvaluate(t, b)

	mse, err := evaluate.JSONGet("EvaluationReport", "regression_metrics.mse.value")
	require.NoError(t, err)

	register := model.Step{
		Name:     "RegisterModel",
		Kind:     model.KindRegister,
		Register: &model.RegisterConfig{PackageGroup: "g"},
		Outputs:  []model.OutputChannel{{Name: "package", Source: "/pkg"}},
		Compute:  testCompute(),
	}
	require.NoError(t, b.AddConditional("CheckMSE",
		[]model.Condition{model.LessThanOrEqual(mse, 6.0)},
		[]model.Step{register},
		nil,
	))

	// A step outside the branch consumes the register step's output. When
	// the else path is taken that output never exists, so the graph is
	// rejected at build time.
	_, err = b.AddStep(model.Step{
		Name:   "NotifyDownstream",
		Kind:   model.KindProcess,
		Script: &model.ScriptConfig{Path: "notify.py"},
		Inputs: []model.Input{
			{Name: "package", Binding: model.BindReference(model.PropertyRef{Step: "RegisterModel", Channel: "package"})},
		},
		Compute: testCompute(),
	})
	require.NoError(t, err)

	_, err = b.Build(context.Background())
	assert.ErrorIs(t, err, ErrUnreachableAfterSkip)
}

func TestConditionOnBranchStepRejected(t *testing.T) {
	b := New("p")
	evaluate := addEvaluate(t, b)

	mse, err := evaluate.JSONGet("EvaluationReport", "regression_metrics.mse.value")
	require.NoError(t, err)

	branchEval := model.Step{
		Name:   "BranchEvaluate",
		Kind:   model.KindEvaluate,
		Script: &model.ScriptConfig{Path: "e.py"},
		Outputs: []model.OutputChannel{
			{Name: "evaluation", Source: "/opt/ml/processing/evaluation"},
		},
		PropertyFiles: []model.PropertyFile{
			{Name: "Report", OutputChannel: "evaluation", Path: "evaluation.json"},
		},
		Compute: testCompute(),
	}
	require.NoError(t, b.AddConditional("First",
		[]model.Condition{model.LessThanOrEqual(mse, 6.0)},
		[]model.Step{branchEval},
		nil,
	))

	// A later conditional cannot condition on a property file produced
	// inside another conditional's branch.
	branchPath := mse.Path
	err = b.AddConditional("Second",
		[]model.Condition{{
			Op:        model.OpLessThanOrEqual,
			Left:      model.JSONGet{Step: "BranchEvaluate", PropertyFile: "Report", Path: branchPath},
			Threshold: 1.0,
		}},
		nil,
		nil,
	)
	assert.ErrorIs(t, err, ErrUnreachableAfterSkip)
}

func TestEmptyElseBranchIsNormalized(t *testing.T) {
	g, err := abalonePipeline(t).Build(context.Background())
	require.NoError(t, err)

	cond, ok := g.Conditional("CheckMSE")
	require.True(t, ok)
	require.NotNil(t, cond.ElseSteps)
	assert.Empty(t, cond.ElseSteps)
}

// addEvaluate registers a minimal evaluate step with one property file.
func addEvaluate(t *testing.T, b *Builder) *StepHandle {
	t.Helper()
	evaluate, err := b.AddStep(model.Step{
		Name:   "EvaluateModel",
		Kind:   model.KindEvaluate,
		Script: &model.ScriptConfig{Path: "evaluate.py"},
		Outputs: []model.OutputChannel{
			{Name: "evaluation", Source: "/opt/ml/processing/evaluation"},
		},
		PropertyFiles: []model.PropertyFile{
			{Name: "EvaluationReport", OutputChannel: "evaluation", Path: "evaluation.json"},
		},
		Compute: testCompute(),
	})
	require.NoError(t, err)
	return evaluate
}
