// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package model provides the Go struct representation of a training pipeline
// definition. Its core purpose is to create a strongly-typed, in-memory model
// of the user's pipeline before any graph is assembled.
//
// # Core Concepts
//
// The model is built around a few key structures:
//
//   - Parameter: A named, typed, defaulted value declared on the pipeline and
//     referenced by steps. Immutable once declared.
//
//   - Step: A single unit of work (Process, Train, Evaluate, Register) with
//     named input bindings, named output channels, and a compute spec. A step
//     is a node in the pipeline graph.
//
//   - Binding: What an input is wired to — a literal, a parameter, or a
//     PropertyRef into another step's output channel. The last one is what
//     turns a flat list of steps into a graph.
//
//   - PropertyRef: A symbolic handle to a value that will only exist after
//     another step completes. The builder serializes it; only the execution
//     backend ever dereferences it.
//
//   - Condition / ConditionalStep: A runtime branch. The condition compares a
//     value extracted from a property-file artifact against a literal
//     threshold and selects one of two step subsets for execution.
//
// Why a separate model package?
//
// It keeps the shape of a pipeline independent of how it was expressed
// (programmatic builder calls or HCL definition files) and independent of how
// it will be executed. The builder consumes this model to derive edges and
// validate the graph; the execution backend consumes the finished graph and
// never sees these types directly.
package model
