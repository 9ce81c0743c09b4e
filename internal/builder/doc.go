// Package builder assembles typed, parameterized steps into a validated
// pipeline graph.
//
// The builder is a single-threaded, synchronous construction process: every
// validation is immediate, in-memory, and CPU-bound. Wiring mistakes surface
// at the call that makes them — creating a property reference to an
// undeclared output channel fails right there, not at some later "close"
// pass — and Build re-verifies the whole graph before returning an immutable
// Graph artifact.
//
// Edges are never declared by the user. They are derived: every input
// binding and every condition operand that reaches into another step's
// outputs emits a directed edge from the producing step to the referencing
// node. The execution backend may parallelize any nodes with no path between
// them, so the builder's one obligation is that the derived edge set capture
// every true data dependency.
package builder
