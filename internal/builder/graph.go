package builder

import (
	"github.com/specialistvlad/pipegridgo/internal/dag"
	"github.com/specialistvlad/pipegridgo/internal/model"
)

// Graph is the builder's sole artifact: a named, parameterized, validated
// DAG ready to hand to an execution backend. It is immutable once returned;
// each Build call produces an independent Graph and no state is shared
// between builds.
type Graph struct {
	name         string
	parameters   []model.Parameter
	steps        []*model.Step
	conditionals []*model.ConditionalStep

	stepsByName map[string]*model.Step
	branches    map[string]membership
	topo        *dag.Graph
}

func newGraph(b *Builder, topo *dag.Graph) *Graph {
	g := &Graph{
		name:         b.name,
		parameters:   append([]model.Parameter(nil), b.parameters...),
		steps:        append([]*model.Step(nil), b.steps...),
		conditionals: append([]*model.ConditionalStep(nil), b.conditionals...),
		stepsByName:  make(map[string]*model.Step, len(b.stepsByName)),
		branches:     make(map[string]membership, len(b.branches)),
		topo:         topo,
	}
	for name, s := range b.stepsByName {
		g.stepsByName[name] = s
	}
	for name, m := range b.branches {
		g.branches[name] = m
	}
	return g
}

// Name returns the pipeline name.
func (g *Graph) Name() string {
	return g.name
}

// Parameters returns the declared parameters in declaration order.
func (g *Graph) Parameters() []model.Parameter {
	return append([]model.Parameter(nil), g.parameters...)
}

// Steps returns the top-level steps in declaration order.
func (g *Graph) Steps() []*model.Step {
	return append([]*model.Step(nil), g.steps...)
}

// Conditionals returns the conditional steps in declaration order.
func (g *Graph) Conditionals() []*model.ConditionalStep {
	return append([]*model.ConditionalStep(nil), g.conditionals...)
}

// NodeCount returns the number of graph nodes: top-level steps plus
// conditionals, with each conditional counting as one opaque node.
func (g *Graph) NodeCount() int {
	return g.topo.Len()
}

// Nodes returns every node name in declaration order: top-level steps
// first, then conditionals.
func (g *Graph) Nodes() []string {
	names := make([]string, 0, len(g.steps)+len(g.conditionals))
	for _, s := range g.steps {
		names = append(names, s.Name)
	}
	for _, c := range g.conditionals {
		names = append(names, c.Name)
	}
	return names
}

// Edges returns every derived edge as [from, to] pairs in sorted order.
func (g *Graph) Edges() [][2]string {
	return g.topo.Edges()
}

// Dependencies returns the names of the nodes the given node depends on.
func (g *Graph) Dependencies(name string) ([]string, error) {
	return g.topo.Dependencies(name)
}

// TopoOrder returns all node names in a stable dependency order.
func (g *Graph) TopoOrder() ([]string, error) {
	return g.topo.TopoSort()
}

// Step looks up any step by name, including steps nested inside branches.
func (g *Graph) Step(name string) (*model.Step, bool) {
	s, ok := g.stepsByName[name]
	return s, ok
}

// Conditional looks up a conditional step by name.
func (g *Graph) Conditional(name string) (*model.ConditionalStep, bool) {
	for _, c := range g.conditionals {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// InBranch reports whether the named step exists only inside a conditional
// branch, and if so which conditional owns it.
func (g *Graph) InBranch(name string) (conditional string, ok bool) {
	m, ok := g.branches[name]
	return m.conditional, ok
}
