package builder

import (
	"context"
	"fmt"

	"github.com/specialistvlad/pipegridgo/internal/ctxlog"
	"github.com/specialistvlad/pipegridgo/internal/dag"
	"github.com/specialistvlad/pipegridgo/internal/model"
)

// bindingSite is one place on a step where a binding appears, labeled for
// error messages.
type bindingSite struct {
	where   string
	binding model.Binding
}

// bindingSites collects every binding a step carries: named inputs, script
// arguments, and the register metrics source. Edge derivation walks this
// list so no data dependency can hide in a kind-specific corner.
func bindingSites(s *model.Step) []bindingSite {
	var sites []bindingSite
	for _, in := range s.Inputs {
		sites = append(sites, bindingSite{where: fmt.Sprintf("input %q", in.Name), binding: in.Binding})
	}
	if s.Script != nil {
		for _, arg := range s.Script.Args {
			sites = append(sites, bindingSite{where: fmt.Sprintf("script argument %q", arg.Name), binding: arg.Binding})
		}
	}
	if s.Register != nil && s.Register.MetricsSource.Kind == model.BindReferenceKind {
		sites = append(sites, bindingSite{where: "metrics source", binding: s.Register.MetricsSource})
	}
	return sites
}

// Build performs the whole-graph validation passes in order and returns the
// immutable Graph artifact. Any violated invariant aborts construction;
// a partial graph is never returned.
func (b *Builder) Build(ctx context.Context) (*Graph, error) {
	logger := ctxlog.FromContext(ctx).With("pipeline", b.name)
	logger.Debug("Build: Starting graph construction.")

	// First pass: re-verify namespace uniqueness as a whole-graph invariant.
	// The eager add methods already guarantee it; this keeps Build sound even
	// if a future entry point forgets to.
	if err := b.verifyNamespaces(); err != nil {
		return nil, err
	}
	logger.Debug("Build: Namespace verification passed.",
		"parameters", len(b.parameters), "steps", len(b.steps), "conditionals", len(b.conditionals))

	// Second pass: create one node per top-level step and per conditional.
	// Branch steps are internal to their conditional, which the acyclicity
	// check treats as a single opaque node.
	topo := dag.New()
	for _, s := range b.steps {
		topo.AddNode(s.Name)
	}
	for _, c := range b.conditionals {
		topo.AddNode(c.Name)
	}
	logger.Debug("Build: Node creation complete.", "node_count", topo.Len())

	// Third pass: derive edges from every binding and condition operand.
	if err := b.linkSteps(ctx, topo); err != nil {
		return nil, err
	}
	if err := b.linkConditionals(ctx, topo); err != nil {
		return nil, err
	}
	logger.Debug("Build: Edge derivation complete.", "edge_count", len(topo.Edges()))

	// Final pass: cycle detection over the derived edge set.
	if err := topo.DetectCycles(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCycleDetected, err)
	}
	logger.Debug("Build: Cycle detection passed.")

	logger.Info("Build: Graph construction successful.")
	return newGraph(b, topo), nil
}

// verifyNamespaces re-checks parameter and node name uniqueness across the
// whole pipeline, including names nested inside branches.
func (b *Builder) verifyNamespaces() error {
	params := make(map[string]struct{}, len(b.parameters))
	for _, p := range b.parameters {
		if _, dup := params[p.Name]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateParameterName, p.Name)
		}
		params[p.Name] = struct{}{}
	}

	names := make(map[string]struct{}, len(b.names))
	claim := func(name string) error {
		if _, dup := names[name]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateStepName, name)
		}
		names[name] = struct{}{}
		return nil
	}
	for _, s := range b.steps {
		if err := claim(s.Name); err != nil {
			return err
		}
	}
	for _, c := range b.conditionals {
		if err := claim(c.Name); err != nil {
			return err
		}
		for _, s := range c.BranchSteps() {
			if err := claim(s.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolveReference validates a property reference from a given consumer and
// returns the producing step. fromBranch carries the consumer's branch
// membership, or nil for top-level consumers.
func (b *Builder) resolveReference(consumer string, fromBranch *membership, where string, ref model.PropertyRef) (*model.Step, error) {
	producer, ok := b.stepsByName[ref.Step]
	if !ok {
		return nil, fmt.Errorf("%w: %s of %q references step %q", ErrUnknownStep, where, consumer, ref.Step)
	}
	if !producer.HasOutput(ref.Channel) {
		return nil, fmt.Errorf("%w: %s of %q references %q on step %q",
			ErrUnknownOutputChannel, where, consumer, ref.Channel, ref.Step)
	}
	if ref.Step == consumer {
		return nil, fmt.Errorf("%w: %w", ErrCycleDetected,
			&dag.CycleError{Members: []string{consumer}})
	}

	if pm, producerInBranch := b.branches[ref.Step]; producerInBranch {
		sameBranch := fromBranch != nil &&
			fromBranch.conditional == pm.conditional &&
			fromBranch.ifBranch == pm.ifBranch
		if !sameBranch {
			return nil, fmt.Errorf("%w: %s of %q references %q, which exists only inside conditional %q",
				ErrUnreachableAfterSkip, where, consumer, ref.Step, pm.conditional)
		}
	}
	return producer, nil
}

// linkSteps derives edges for every top-level step's bindings.
func (b *Builder) linkSteps(ctx context.Context, topo *dag.Graph) error {
	logger := ctxlog.FromContext(ctx)
	for _, s := range b.steps {
		for _, site := range bindingSites(s) {
			switch site.binding.Kind {
			case model.BindParameterKind:
				if _, ok := b.paramNames[site.binding.Parameter]; !ok {
					return fmt.Errorf("%w: %s of %q references parameter %q",
						ErrUnknownParameter, site.where, s.Name, site.binding.Parameter)
				}
			case model.BindReferenceKind:
				ref := site.binding.Reference
				if _, err := b.resolveReference(s.Name, nil, site.where, ref); err != nil {
					return err
				}
				logger.Debug("Linking data dependency.", "from", ref.Step, "to", s.Name)
				if err := topo.AddEdge(ref.Step, s.Name); err != nil {
					return fmt.Errorf("error linking dependency: %w", err)
				}
			}
		}
	}
	return nil
}

// linkConditionals derives edges for condition operands and for branch-step
// bindings that reach outside their branch.
func (b *Builder) linkConditionals(ctx context.Context, topo *dag.Graph) error {
	logger := ctxlog.FromContext(ctx)
	for _, c := range b.conditionals {
		for _, cond := range c.Conditions {
			if err := b.validateConditionOperand(c.Name, cond); err != nil {
				return err
			}
			logger.Debug("Linking condition dependency.", "from", cond.Left.Step, "to", c.Name)
			if err := topo.AddEdge(cond.Left.Step, c.Name); err != nil {
				return fmt.Errorf("error linking condition dependency: %w", err)
			}
		}

		link := func(steps []*model.Step, ifBranch bool) error {
			branch := membership{conditional: c.Name, ifBranch: ifBranch}
			for _, s := range steps {
				for _, site := range bindingSites(s) {
					switch site.binding.Kind {
					case model.BindParameterKind:
						if _, ok := b.paramNames[site.binding.Parameter]; !ok {
							return fmt.Errorf("%w: %s of %q references parameter %q",
								ErrUnknownParameter, site.where, s.Name, site.binding.Parameter)
						}
					case model.BindReferenceKind:
						ref := site.binding.Reference
						producer, err := b.resolveReference(s.Name, &branch, site.where, ref)
						if err != nil {
							return err
						}
						// A reference that stays inside the branch is internal
						// to the conditional node; only references that reach
						// outside contribute a graph edge.
						if _, internal := b.branches[producer.Name]; internal {
							continue
						}
						logger.Debug("Linking branch dependency.", "from", ref.Step, "to", c.Name, "via", s.Name)
						if err := topo.AddEdge(ref.Step, c.Name); err != nil {
							return fmt.Errorf("error linking branch dependency: %w", err)
						}
					}
				}
			}
			return nil
		}
		if err := link(c.IfSteps, true); err != nil {
			return err
		}
		if err := link(c.ElseSteps, false); err != nil {
			return err
		}
	}
	return nil
}
