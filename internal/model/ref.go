// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines PropertyRef, the deferred-value handle at the heart of
// graph wiring.
//
// Why an explicit value type?
//
// A reference to "the S3 URI of output channel train produced by step
// PreprocessData" cannot be resolved while the graph is being built — the
// step has not run. Modeling the reference as a plain (step, channel, path)
// triple keeps resolution explicit and testable: the builder only validates
// and serializes it, and the execution backend substitutes the real value
// after the producing step completes.
package model

import (
	"fmt"

	"github.com/specialistvlad/pipegridgo/internal/jsonpath"
)

// PropertyRef is a symbolic handle to a value produced by another step,
// resolvable only after that step executes.
type PropertyRef struct {
	// Step is the name of the producing step.
	Step string
	// Channel is the producing step's output channel.
	Channel string
	// Path optionally addresses a scalar inside the channel's artifact.
	Path *jsonpath.Path
}

// String returns the canonical address of the reference,
// e.g. "steps.TrainModel.outputs.model".
func (r PropertyRef) String() string {
	s := fmt.Sprintf("steps.%s.outputs.%s", r.Step, r.Channel)
	if r.Path != nil {
		s += "#" + r.Path.String()
	}
	return s
}

// Template serializes the reference into the artifact-location template the
// execution backend substitutes at run time. The builder stitches this into
// the graph document; it never parses or dereferences it.
func (r PropertyRef) Template() string {
	return "${" + r.String() + "}"
}
