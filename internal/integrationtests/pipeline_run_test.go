package integrationtests

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/pipegridgo/internal/backend"
	"github.com/specialistvlad/pipegridgo/internal/localbackend"
	"github.com/specialistvlad/pipegridgo/internal/testutil"
)

const trainingPipeline = `
pipeline "AbalonePipeline" {
  region = "eu-west-1"
}

parameter "InputDataUrl" {
  type    = "string"
  default = "s3://sample-bucket/dataset/abalone-dataset.csv"
}

step "process" "PreprocessData" {
  script = "preprocessing.py"

  arg "--input-data" {
    value = param.InputDataUrl
  }

  output "train" {
    source = "/opt/ml/processing/train"
  }
  output "test" {
    source = "/opt/ml/processing/test"
  }

  compute {
    framework     = "sklearn"
    version       = "0.23-1"
    instance_type = "ml.m5.xlarge"
  }
}

step "train" "TrainModel" {
  output_path = "s3://sample-bucket/AbaloneTrain"

  hyperparameters {
    objective = "reg:linear"
    num_round = 50
  }

  input "train" {
    value = step.PreprocessData.outputs.train
  }

  output "model" {
    source = "s3://sample-bucket/AbaloneTrain"
  }

  compute {
    framework     = "xgboost"
    version       = "1.0-1"
    instance_type = "ml.m5.xlarge"
  }
}

step "evaluate" "EvaluateModel" {
  script = "evaluate.py"

  input "model" {
    value = step.TrainModel.outputs.model
  }
  input "test" {
    value = step.PreprocessData.outputs.test
  }

  output "evaluation" {
    source = "/opt/ml/processing/evaluation"
  }

  property_file "EvaluationReport" {
    output = "evaluation"
    path   = "evaluation.json"
  }

  compute {
    framework     = "xgboost"
    version       = "1.0-1"
    instance_type = "ml.m5.xlarge"
  }
}

conditional "CheckMSE" {
  condition {
    file = step.EvaluateModel.files.EvaluationReport
    path = "regression_metrics.mse.value"
    lte  = 6.0
  }

  if {
    step "register" "RegisterModel" {
      register {
        package_group   = "AbalonePackageGroup"
        approval_status = "PendingManualApproval"
      }

      input "model" {
        value = step.TrainModel.outputs.model
      }

      compute {
        framework     = "xgboost"
        version       = "1.0-1"
        instance_type = "ml.m5.xlarge"
      }
    }
  }
}
`

func TestPipelineAssemblyFromDefinition(t *testing.T) {
	result := testutil.RunPipelineTest(t, map[string]string{
		"pipeline.hcl": trainingPipeline,
	})
	require.NoError(t, result.Err, "logs:\n%s", result.LogOutput)
	require.NotNil(t, result.Graph)

	g := result.Graph
	assert.Equal(t, 4, g.NodeCount())
	assert.Equal(t, [][2]string{
		{"EvaluateModel", "CheckMSE"},
		{"PreprocessData", "EvaluateModel"},
		{"PreprocessData", "TrainModel"},
		{"TrainModel", "EvaluateModel"},
	}, g.Edges())
}

func TestPipelineRunEndToEnd(t *testing.T) {
	result := testutil.RunPipelineTest(t, map[string]string{
		"pipeline.hcl": trainingPipeline,
	})
	require.NoError(t, result.Err, "logs:\n%s", result.LogOutput)

	store := localbackend.NewMemoryStore()
	store.Put("EvaluateModel", "evaluation.json",
		[]byte(`{"regression_metrics": {"mse": {"value": 4.5, "standard_deviation": 2.2}}}`))

	exec, err := localbackend.New(store, nil).Submit(context.Background(), result.Graph, nil)
	require.NoError(t, err)

	for _, name := range []string{"PreprocessData", "TrainModel", "EvaluateModel", "RegisterModel"} {
		require.Contains(t, exec.Steps, name)
		assert.Equal(t, backend.StepSucceeded, exec.Steps[name].Status, "step %s", name)
	}
	assert.True(t, exec.Conditionals["CheckMSE"].Outcome)
}

func TestPipelineDefinitionSplitAcrossFiles(t *testing.T) {
	result := testutil.RunPipelineTest(t, map[string]string{
		"pipeline.hcl": `
pipeline "Split" {}
`,
		"steps/process.hcl": `
step "process" "PreprocessData" {
  script = "preprocessing.py"

  output "train" {
    source = "/opt/ml/processing/train"
  }

  compute {
    image         = "example.com/img:1"
    instance_type = "ml.m5.xlarge"
  }
}
`,
	})
	require.NoError(t, result.Err, "logs:\n%s", result.LogOutput)
	assert.Equal(t, 1, result.Graph.NodeCount())
}

func TestPipelineUnknownChannelReported(t *testing.T) {
	result := testutil.RunPipelineTest(t, map[string]string{
		"pipeline.hcl": `
pipeline "Broken" {}

step "process" "PreprocessData" {
  script = "preprocessing.py"

  output "train" {
    source = "/opt/ml/processing/train"
  }

  compute {
    image         = "example.com/img:1"
    instance_type = "ml.m5.xlarge"
  }
}

step "train" "TrainModel" {
  input "validation" {
    value = step.PreprocessData.outputs.validation
  }

  compute {
    image         = "example.com/img:1"
    instance_type = "ml.m5.xlarge"
  }
}
`,
	})
	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "validation")
}
