package builder

import "errors"

// Build-time error taxonomy. Every violation aborts construction; nothing is
// retried and no partial graph is ever returned. Callers match with
// errors.Is.
var (
	// ErrDuplicateStepName reports a namespace collision between step names,
	// including names nested inside conditional branches.
	ErrDuplicateStepName = errors.New("duplicate step name")

	// ErrDuplicateParameterName reports a namespace collision between
	// pipeline parameters.
	ErrDuplicateParameterName = errors.New("duplicate parameter name")

	// ErrUnknownStep reports a property reference to a step that is not part
	// of the pipeline.
	ErrUnknownStep = errors.New("unknown step")

	// ErrUnknownOutputChannel reports a property reference to an output
	// channel the producing step never declared.
	ErrUnknownOutputChannel = errors.New("unknown output channel")

	// ErrUnknownPropertyFile reports a condition operand naming a property
	// file its step never declared.
	ErrUnknownPropertyFile = errors.New("unknown property file")

	// ErrUnknownParameter reports an input bound to a parameter the pipeline
	// never declared.
	ErrUnknownParameter = errors.New("unknown parameter")

	// ErrCycleDetected reports that edge derivation produced a cycle. The
	// wrapped dag.CycleError carries the full cycle membership.
	ErrCycleDetected = errors.New("cycle detected")

	// ErrBranchOverlap reports a step present in both branches of one
	// conditional.
	ErrBranchOverlap = errors.New("conditional branches overlap")

	// ErrUnreachableAfterSkip reports a reference to a branch-only step's
	// output from outside that branch. Since the unselected branch is
	// permanently skipped at run time, such a reference can never resolve.
	ErrUnreachableAfterSkip = errors.New("reference to a branch-only step from outside the branch")
)
