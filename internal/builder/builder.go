package builder

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/pipegridgo/internal/jsonpath"
	"github.com/specialistvlad/pipegridgo/internal/model"
)

// nodeKind records what a name in the pipeline namespace belongs to.
type nodeKind int

const (
	kindStep nodeKind = iota
	kindBranchStep
	kindConditional
)

// membership locates a branch step: which conditional owns it and which
// branch it sits on.
type membership struct {
	conditional string
	ifBranch    bool
}

// Builder accumulates parameters, steps, and conditionals for one pipeline
// and validates eagerly as they are added. It is not safe for concurrent
// use and is typically discarded after Build.
type Builder struct {
	name string

	parameters []model.Parameter
	paramNames map[string]struct{}

	steps        []*model.Step
	conditionals []*model.ConditionalStep

	// names is the global namespace: every step, branch step, and
	// conditional name in the pipeline, each claimed exactly once.
	names map[string]nodeKind
	// stepsByName indexes every step, including branch steps.
	stepsByName map[string]*model.Step
	// branches maps a branch step's name to its owning conditional.
	branches map[string]membership
}

// New creates a Builder for a pipeline with the given name.
func New(name string) *Builder {
	return &Builder{
		name:        name,
		paramNames:  make(map[string]struct{}),
		names:       make(map[string]nodeKind),
		stepsByName: make(map[string]*model.Step),
		branches:    make(map[string]membership),
	}
}

// ParameterNumber declares a numeric pipeline parameter with a default.
func (b *Builder) ParameterNumber(name string, def float64) (model.Parameter, error) {
	return b.addParameter(name, cty.Number, cty.NumberFloatVal(def))
}

// ParameterString declares a string pipeline parameter with a default.
func (b *Builder) ParameterString(name, def string) (model.Parameter, error) {
	return b.addParameter(name, cty.String, cty.StringVal(def))
}

func (b *Builder) addParameter(name string, typ cty.Type, def cty.Value) (model.Parameter, error) {
	if _, exists := b.paramNames[name]; exists {
		return model.Parameter{}, fmt.Errorf("%w: %q", ErrDuplicateParameterName, name)
	}
	p, err := model.NewParameter(name, typ, def)
	if err != nil {
		return model.Parameter{}, err
	}
	b.paramNames[name] = struct{}{}
	b.parameters = append(b.parameters, p)
	return p, nil
}

// StepHandle is the caller's grip on a registered step: the only way to
// mint property references into its outputs, so dangling references are
// impossible to construct without an error.
type StepHandle struct {
	step *model.Step
}

// Name returns the step's unique name.
func (h *StepHandle) Name() string {
	return h.step.Name
}

// Output creates a deferred reference to one of the step's declared output
// channels. Referencing an undeclared channel is an immediate build error.
func (h *StepHandle) Output(channel string) (model.PropertyRef, error) {
	if !h.step.HasOutput(channel) {
		return model.PropertyRef{}, fmt.Errorf("%w: step %q declares no output %q",
			ErrUnknownOutputChannel, h.step.Name, channel)
	}
	return model.PropertyRef{Step: h.step.Name, Channel: channel}, nil
}

// MustOutput is Output for statically-known channels; it panics on a
// wiring mistake instead of returning it.
func (h *StepHandle) MustOutput(channel string) model.PropertyRef {
	ref, err := h.Output(channel)
	if err != nil {
		panic(err)
	}
	return ref
}

// JSONGet creates a condition operand addressing a scalar inside one of the
// step's declared property files. The property file and the path syntax are
// both validated immediately.
func (h *StepHandle) JSONGet(propertyFile, path string) (model.JSONGet, error) {
	pf, ok := h.step.PropertyFileByName(propertyFile)
	if !ok {
		return model.JSONGet{}, fmt.Errorf("%w: step %q declares no property file %q",
			ErrUnknownPropertyFile, h.step.Name, propertyFile)
	}
	p, err := jsonpath.Parse(path)
	if err != nil {
		return model.JSONGet{}, fmt.Errorf("invalid json path for property file %q: %w", pf.Name, err)
	}
	return model.JSONGet{Step: h.step.Name, PropertyFile: propertyFile, Path: p}, nil
}

// AddStep registers a top-level step. The step's shape is validated and its
// name claimed in the pipeline namespace before anything is stored, so a
// failed add leaves the builder untouched.
func (b *Builder) AddStep(s model.Step) (*StepHandle, error) {
	if err := s.ValidateShape(); err != nil {
		return nil, err
	}
	if _, taken := b.names[s.Name]; taken {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateStepName, s.Name)
	}

	step := &s
	b.names[s.Name] = kindStep
	b.stepsByName[s.Name] = step
	b.steps = append(b.steps, step)
	return &StepHandle{step: step}, nil
}

// AddConditional registers a branch node. Branch steps live only inside the
// conditional: they are claimed in the global namespace (so names stay
// unique across the whole pipeline) but are not top-level nodes, and the
// unselected branch is permanently skipped at run time.
//
// An omitted else branch and an explicitly empty one are equivalent.
func (b *Builder) AddConditional(name string, conditions []model.Condition, ifSteps, elseSteps []model.Step) error {
	if _, taken := b.names[name]; taken {
		return fmt.Errorf("%w: %q", ErrDuplicateStepName, name)
	}
	if len(conditions) == 0 {
		return fmt.Errorf("conditional %q: at least one condition is required", name)
	}

	// Branch disjointness comes first so an overlapping step is reported as
	// overlap, not as a duplicate name.
	ifNames := make(map[string]struct{}, len(ifSteps))
	for _, s := range ifSteps {
		ifNames[s.Name] = struct{}{}
	}
	for _, s := range elseSteps {
		if _, shared := ifNames[s.Name]; shared {
			return fmt.Errorf("%w: conditional %q lists step %q in both branches",
				ErrBranchOverlap, name, s.Name)
		}
	}

	// Validate everything before registering anything: a failed add must
	// leave no step half-registered.
	branchSteps := make([]*model.Step, 0, len(ifSteps)+len(elseSteps))
	branchNames := make(map[string]struct{})
	validateBranch := func(steps []model.Step) error {
		for i := range steps {
			s := &steps[i]
			if err := s.ValidateShape(); err != nil {
				return err
			}
			if _, taken := b.names[s.Name]; taken {
				return fmt.Errorf("%w: %q", ErrDuplicateStepName, s.Name)
			}
			if _, taken := branchNames[s.Name]; taken {
				return fmt.Errorf("%w: %q", ErrDuplicateStepName, s.Name)
			}
			branchNames[s.Name] = struct{}{}
			branchSteps = append(branchSteps, s)
		}
		return nil
	}
	if err := validateBranch(ifSteps); err != nil {
		return err
	}
	if err := validateBranch(elseSteps); err != nil {
		return err
	}

	for _, cond := range conditions {
		if err := b.validateConditionOperand(name, cond); err != nil {
			return err
		}
	}

	ifPtrs := make([]*model.Step, len(ifSteps))
	for i := range ifSteps {
		ifPtrs[i] = branchSteps[i]
	}
	elsePtrs := make([]*model.Step, len(elseSteps))
	for i := range elseSteps {
		elsePtrs[i] = branchSteps[len(ifSteps)+i]
	}

	b.names[name] = kindConditional
	for i, s := range branchSteps {
		b.names[s.Name] = kindBranchStep
		b.stepsByName[s.Name] = s
		b.branches[s.Name] = membership{conditional: name, ifBranch: i < len(ifSteps)}
	}
	b.conditionals = append(b.conditionals, model.NewConditionalStep(name, conditions, ifPtrs, elsePtrs))
	return nil
}

// validateConditionOperand checks that a condition's left operand points at
// an existing, non-branch step that declares the named property file.
func (b *Builder) validateConditionOperand(conditional string, cond model.Condition) error {
	producer, ok := b.stepsByName[cond.Left.Step]
	if !ok {
		return fmt.Errorf("%w: conditional %q condition references step %q",
			ErrUnknownStep, conditional, cond.Left.Step)
	}
	if _, inBranch := b.branches[cond.Left.Step]; inBranch {
		return fmt.Errorf("%w: conditional %q condition reads property file from branch step %q",
			ErrUnreachableAfterSkip, conditional, cond.Left.Step)
	}
	if _, ok := producer.PropertyFileByName(cond.Left.PropertyFile); !ok {
		return fmt.Errorf("%w: step %q declares no property file %q",
			ErrUnknownPropertyFile, cond.Left.Step, cond.Left.PropertyFile)
	}
	if cond.Left.Path == nil {
		return fmt.Errorf("conditional %q: condition on %q has no json path", conditional, cond.Left.Step)
	}
	return nil
}
