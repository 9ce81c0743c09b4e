package builder

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/specialistvlad/pipegridgo/internal/model"
)

// Document is the declarative, backend-facing form of a Graph: nodes, edges,
// parameters, and conditions, with every deferred value serialized into the
// backend's template syntax. Field order and slice order are stable, so two
// builds of the same pipeline marshal byte-identically.
type Document struct {
	Name       string         `json:"name"`
	Parameters []ParameterDoc `json:"parameters"`
	Nodes      []NodeDoc      `json:"nodes"`
	Edges      []EdgeDoc      `json:"edges"`
}

// ParameterDoc is a declared pipeline parameter.
type ParameterDoc struct {
	Name    string          `json:"name"`
	Type    string          `json:"type"`
	Default json.RawMessage `json:"default"`
}

// EdgeDoc is one derived dependency edge.
type EdgeDoc struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// BindingDoc is a named, serialized binding. Literals marshal as their JSON
// value; parameters and property references marshal as template strings.
type BindingDoc struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

// OutputDoc is a declared output channel.
type OutputDoc struct {
	Name   string `json:"name"`
	Source string `json:"source"`
}

// PropertyFileDoc is a declared property file.
type PropertyFileDoc struct {
	Name          string `json:"name"`
	OutputChannel string `json:"output_channel"`
	Path          string `json:"path"`
}

// ComputeDoc is a step's compute specification.
type ComputeDoc struct {
	ImageRef         string   `json:"image_ref"`
	InstanceType     string   `json:"instance_type"`
	InstanceCount    int      `json:"instance_count"`
	Role             string   `json:"role,omitempty"`
	Subnets          []string `json:"subnets,omitempty"`
	SecurityGroups   []string `json:"security_groups,omitempty"`
	NetworkIsolation bool     `json:"network_isolation"`
	EncryptTraffic   bool     `json:"encrypt_inter_container_traffic"`
}

// ConditionDoc is one condition on a conditional node.
type ConditionDoc struct {
	Op           string  `json:"op"`
	Step         string  `json:"step"`
	PropertyFile string  `json:"property_file"`
	JSONPath     string  `json:"json_path"`
	Threshold    float64 `json:"threshold"`
}

// RegisterDoc is the kind-specific payload of a register step.
type RegisterDoc struct {
	PackageGroup      string          `json:"package_group"`
	ApprovalStatus    string          `json:"approval_status,omitempty"`
	ContentTypes      []string        `json:"content_types,omitempty"`
	ResponseTypes     []string        `json:"response_types,omitempty"`
	InferenceTypes    []string        `json:"inference_types,omitempty"`
	TransformTypes    []string        `json:"transform_types,omitempty"`
	MetricsSource     json.RawMessage `json:"metrics_source,omitempty"`
	MetricsSourceType string          `json:"metrics_source_type,omitempty"`
}

// NodeDoc is one node of the graph. Conditional nodes carry their branches
// as nested node lists; branch nodes never appear at the top level.
type NodeDoc struct {
	Name string `json:"name"`
	Type string `json:"type"` // "step" or "conditional"

	Kind            string                     `json:"kind,omitempty"`
	ScriptPath      string                     `json:"script_path,omitempty"`
	ScriptArgs      []BindingDoc               `json:"script_args,omitempty"`
	Hyperparameters map[string]json.RawMessage `json:"hyperparameters,omitempty"`
	ModelOutputPath string                     `json:"model_output_path,omitempty"`
	Register        *RegisterDoc               `json:"register,omitempty"`
	Inputs          []BindingDoc               `json:"inputs,omitempty"`
	Outputs         []OutputDoc                `json:"outputs,omitempty"`
	PropertyFiles   []PropertyFileDoc          `json:"property_files,omitempty"`
	Compute         *ComputeDoc                `json:"compute,omitempty"`

	Conditions []ConditionDoc `json:"conditions,omitempty"`
	IfSteps    []NodeDoc      `json:"if_steps,omitempty"`
	ElseSteps  []NodeDoc      `json:"else_steps,omitempty"`
}

// Document renders the graph into its declarative form.
func (g *Graph) Document() (*Document, error) {
	doc := &Document{
		Name:       g.name,
		Parameters: make([]ParameterDoc, 0, len(g.parameters)),
		Nodes:      make([]NodeDoc, 0, len(g.steps)+len(g.conditionals)),
		Edges:      make([]EdgeDoc, 0),
	}

	for _, p := range g.parameters {
		raw, err := ctyjson.Marshal(p.Default, p.Type)
		if err != nil {
			return nil, fmt.Errorf("serializing default for parameter %q: %w", p.Name, err)
		}
		typeName := "string"
		if p.Type.Equals(cty.Number) {
			typeName = "number"
		}
		doc.Parameters = append(doc.Parameters, ParameterDoc{Name: p.Name, Type: typeName, Default: raw})
	}

	for _, s := range g.steps {
		node, err := stepDoc(s)
		if err != nil {
			return nil, err
		}
		doc.Nodes = append(doc.Nodes, node)
	}
	for _, c := range g.conditionals {
		node, err := conditionalDoc(c)
		if err != nil {
			return nil, err
		}
		doc.Nodes = append(doc.Nodes, node)
	}

	for _, e := range g.topo.Edges() {
		doc.Edges = append(doc.Edges, EdgeDoc{From: e[0], To: e[1]})
	}

	return doc, nil
}

func stepDoc(s *model.Step) (NodeDoc, error) {
	node := NodeDoc{
		Name: s.Name,
		Type: "step",
		Kind: string(s.Kind),
	}

	for _, in := range s.Inputs {
		bd, err := bindingDoc(in)
		if err != nil {
			return NodeDoc{}, fmt.Errorf("step %q: %w", s.Name, err)
		}
		node.Inputs = append(node.Inputs, bd)
	}
	for _, out := range s.Outputs {
		node.Outputs = append(node.Outputs, OutputDoc{Name: out.Name, Source: out.Source})
	}
	for _, pf := range s.PropertyFiles {
		node.PropertyFiles = append(node.PropertyFiles, PropertyFileDoc{
			Name:          pf.Name,
			OutputChannel: pf.OutputChannel,
			Path:          pf.Path,
		})
	}

	if s.Script != nil {
		node.ScriptPath = s.Script.Path
		for _, arg := range s.Script.Args {
			bd, err := bindingDoc(arg)
			if err != nil {
				return NodeDoc{}, fmt.Errorf("step %q: %w", s.Name, err)
			}
			node.ScriptArgs = append(node.ScriptArgs, bd)
		}
	}
	if s.Train != nil {
		node.ModelOutputPath = s.Train.OutputPath
		if len(s.Train.Hyperparameters) > 0 {
			node.Hyperparameters = make(map[string]json.RawMessage, len(s.Train.Hyperparameters))
			for name, v := range s.Train.Hyperparameters {
				raw, err := ctyjson.Marshal(v, v.Type())
				if err != nil {
					return NodeDoc{}, fmt.Errorf("step %q: serializing hyperparameter %q: %w", s.Name, name, err)
				}
				node.Hyperparameters[name] = raw
			}
		}
	}
	if s.Register != nil {
		reg := &RegisterDoc{
			PackageGroup:      s.Register.PackageGroup,
			ApprovalStatus:    s.Register.ApprovalStatus,
			ContentTypes:      s.Register.ContentTypes,
			ResponseTypes:     s.Register.ResponseTypes,
			InferenceTypes:    s.Register.InferenceTypes,
			TransformTypes:    s.Register.TransformTypes,
			MetricsSourceType: s.Register.MetricsSourceType,
		}
		if !isZeroBinding(s.Register.MetricsSource) {
			raw, err := bindingValue(s.Register.MetricsSource)
			if err != nil {
				return NodeDoc{}, fmt.Errorf("step %q: metrics source: %w", s.Name, err)
			}
			reg.MetricsSource = raw
		}
		node.Register = reg
	}

	node.Compute = &ComputeDoc{
		ImageRef:         s.Compute.ImageRef,
		InstanceType:     s.Compute.InstanceType,
		InstanceCount:    s.Compute.InstanceCount,
		Role:             s.Compute.Role,
		Subnets:          s.Compute.Network.SubnetIDs,
		SecurityGroups:   s.Compute.Network.SecurityGroupIDs,
		NetworkIsolation: s.Compute.Network.EnableIsolation,
		EncryptTraffic:   s.Compute.Network.EncryptInterContainerTraffic,
	}

	return node, nil
}

func conditionalDoc(c *model.ConditionalStep) (NodeDoc, error) {
	node := NodeDoc{
		Name: c.Name,
		Type: "conditional",
	}
	for _, cond := range c.Conditions {
		node.Conditions = append(node.Conditions, ConditionDoc{
			Op:           string(cond.Op),
			Step:         cond.Left.Step,
			PropertyFile: cond.Left.PropertyFile,
			JSONPath:     cond.Left.Path.String(),
			Threshold:    cond.Threshold,
		})
	}
	for _, s := range c.IfSteps {
		sd, err := stepDoc(s)
		if err != nil {
			return NodeDoc{}, err
		}
		node.IfSteps = append(node.IfSteps, sd)
	}
	for _, s := range c.ElseSteps {
		sd, err := stepDoc(s)
		if err != nil {
			return NodeDoc{}, err
		}
		node.ElseSteps = append(node.ElseSteps, sd)
	}
	return node, nil
}

func bindingDoc(in model.Input) (BindingDoc, error) {
	raw, err := bindingValue(in.Binding)
	if err != nil {
		return BindingDoc{}, fmt.Errorf("input %q: %w", in.Name, err)
	}
	return BindingDoc{Name: in.Name, Value: raw}, nil
}

// isZeroBinding reports whether a binding was never set: the zero Binding is
// a literal holding cty's nil value.
func isZeroBinding(b model.Binding) bool {
	return b.Kind == model.BindLiteralKind && b.Literal.IsNull()
}

// bindingValue serializes a binding into the value the backend consumes:
// literals as plain JSON, parameters and property references as opaque
// template strings the backend substitutes at run time.
func bindingValue(b model.Binding) (json.RawMessage, error) {
	switch b.Kind {
	case model.BindLiteralKind:
		raw, err := ctyjson.Marshal(b.Literal, b.Literal.Type())
		if err != nil {
			return nil, fmt.Errorf("serializing literal: %w", err)
		}
		return json.RawMessage(raw), nil
	case model.BindParameterKind:
		return json.Marshal("${parameters." + b.Parameter + "}")
	case model.BindReferenceKind:
		return json.Marshal(b.Reference.Template())
	}
	return nil, fmt.Errorf("invalid binding kind %d", b.Kind)
}
