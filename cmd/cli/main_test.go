package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	// The "-h" (help) flag should cause cli.Parse to return shouldExit=true.
	args := []string{"-h"}
	out := &bytes.Buffer{}

	err := run(out, args)

	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_NoArgsPrintsUsage(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	err := run(out, nil)

	require.NoError(t, err)
	require.Contains(t, out.String(), "PIPELINE_PATH")
}

func TestRun_InvalidFlag(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	err := run(out, []string{"-log-level", "loud", "pipeline.hcl"})

	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid log-level")
}

func TestRun_ParseFailure(t *testing.T) {
	t.Parallel()

	invalidHCL := `
		step "process" "A" {
	// Missing closing brace here
	`
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "main.hcl")
	require.NoError(t, os.WriteFile(filePath, []byte(invalidHCL), 0o600))

	out := &bytes.Buffer{}
	err := run(out, []string{filePath})

	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to load pipeline definition")
}

func TestRun_EmitsDocument(t *testing.T) {
	t.Parallel()

	pipelineHCL := `
pipeline "Minimal" {}

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
`
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "main.hcl")
	require.NoError(t, os.WriteFile(filePath, []byte(pipelineHCL), 0o600))

	out := &bytes.Buffer{}
	err := run(out, []string{"-log-level", "error", filePath})

	require.NoError(t, err)
	require.Contains(t, out.String(), `"Minimal"`)
	require.Contains(t, out.String(), `"PreprocessData"`)
}
