// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the Step structure, the atomic unit of work within a
// pipeline. It represents a single, configured invocation of a processing,
// training, evaluation, or registration job.
//
// Why ordered slices instead of maps for inputs and outputs?
//
// Declaration order is part of the user's intent and must survive into the
// serialized graph document so that two builds of the same pipeline are
// byte-identical. Uniqueness of names is enforced by the builder, not by the
// shape of the container.
package model

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// StepKind distinguishes the kinds of work a step can perform.
type StepKind string

const (
	// KindProcess runs a script in a container to transform data.
	KindProcess StepKind = "process"
	// KindTrain fits a model with an opaque hyperparameter mapping.
	KindTrain StepKind = "train"
	// KindEvaluate runs a script that produces property-file artifacts
	// for condition evaluation.
	KindEvaluate StepKind = "evaluate"
	// KindRegister publishes a trained model into a package group.
	KindRegister StepKind = "register"
)

// Valid reports whether the kind is one of the declared step kinds.
func (k StepKind) Valid() bool {
	switch k {
	case KindProcess, KindTrain, KindEvaluate, KindRegister:
		return true
	}
	return false
}

// Input is a single named input binding on a step.
type Input struct {
	Name    string
	Binding Binding
}

// OutputChannel is a named output declaration on a step. Source is the
// artifact-producing location inside the job container; the builder treats
// it as an opaque string in the backend's addressing scheme.
type OutputChannel struct {
	Name   string
	Source string
}

// PropertyFile declares a structured JSON artifact a step is expected to
// produce under one of its output channels. Scalar values are extracted
// from it by path after the owning step completes, never before.
type PropertyFile struct {
	// Name is the logical handle conditions use to refer to this file.
	Name string
	// OutputChannel is the declared output channel the file lives under.
	OutputChannel string
	// Path is the file's location relative to the channel's artifact root.
	Path string
}

// ScriptConfig carries the kind-specific configuration for Process and
// Evaluate steps: the entry-point script and its arguments. Argument values
// are bindings, so a script argument can reference a parameter or an
// upstream output just like a named input can.
type ScriptConfig struct {
	Path string
	Args []Input
}

// TrainConfig carries the kind-specific configuration for Train steps.
// Hyperparameters are passed through opaquely; validating them against the
// target algorithm is the backend's concern.
type TrainConfig struct {
	Hyperparameters map[string]cty.Value
	// OutputPath is where the backend should place the model artifact.
	OutputPath string
}

// RegisterConfig carries the kind-specific configuration for Register steps.
type RegisterConfig struct {
	PackageGroup      string
	ApprovalStatus    string
	ContentTypes      []string
	ResponseTypes     []string
	InferenceTypes    []string
	TransformTypes    []string
	MetricsSource     Binding // location of the statistics artifact, usually a PropertyRef
	MetricsSourceType string
}

// Step is a typed unit of work in the pipeline graph.
type Step struct {
	Name string
	Kind StepKind

	// Exactly one of the following is set, matching Kind. Process and
	// Evaluate share ScriptConfig.
	Script   *ScriptConfig
	Train    *TrainConfig
	Register *RegisterConfig

	Inputs        []Input
	Outputs       []OutputChannel
	PropertyFiles []PropertyFile
	Compute       ComputeSpec
}

// HasOutput reports whether the step declares an output channel with the
// given name.
func (s *Step) HasOutput(channel string) bool {
	for _, out := range s.Outputs {
		if out.Name == channel {
			return true
		}
	}
	return false
}

// PropertyFileByName looks up a declared property file by its logical name.
func (s *Step) PropertyFileByName(name string) (PropertyFile, bool) {
	for _, pf := range s.PropertyFiles {
		if pf.Name == name {
			return pf, true
		}
	}
	return PropertyFile{}, false
}

// ValidateShape checks the step's internal consistency: kind config
// presence, and uniqueness of input and output channel names within the
// step. Cross-step concerns (name collisions, reference validity) belong to
// the builder.
func (s *Step) ValidateShape() error {
	if s.Name == "" {
		return fmt.Errorf("step name cannot be empty")
	}
	if !s.Kind.Valid() {
		return fmt.Errorf("step %q: unknown kind %q", s.Name, s.Kind)
	}

	switch s.Kind {
	case KindProcess, KindEvaluate:
		if s.Script == nil || s.Script.Path == "" {
			return fmt.Errorf("step %q: kind %s requires a script path", s.Name, s.Kind)
		}
	case KindTrain:
		if s.Train == nil {
			return fmt.Errorf("step %q: kind train requires a train config", s.Name)
		}
	case KindRegister:
		if s.Register == nil {
			return fmt.Errorf("step %q: kind register requires a register config", s.Name)
		}
	}

	seen := make(map[string]struct{}, len(s.Inputs))
	for _, in := range s.Inputs {
		if _, dup := seen[in.Name]; dup {
			return fmt.Errorf("step %q: duplicate input name %q", s.Name, in.Name)
		}
		seen[in.Name] = struct{}{}
	}

	seenOut := make(map[string]struct{}, len(s.Outputs))
	for _, out := range s.Outputs {
		if _, dup := seenOut[out.Name]; dup {
			return fmt.Errorf("step %q: duplicate output channel %q", s.Name, out.Name)
		}
		seenOut[out.Name] = struct{}{}
	}

	for _, pf := range s.PropertyFiles {
		if _, ok := seenOut[pf.OutputChannel]; !ok {
			return fmt.Errorf("step %q: property file %q declared under unknown output channel %q",
				s.Name, pf.Name, pf.OutputChannel)
		}
	}

	return s.Compute.Validate()
}
