package hcldef

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/pipegridgo/internal/builder"
	"github.com/specialistvlad/pipegridgo/internal/ctxlog"
	"github.com/specialistvlad/pipegridgo/internal/jsonpath"
	"github.com/specialistvlad/pipegridgo/internal/model"
	"github.com/specialistvlad/pipegridgo/internal/schema"
)

// defaultRegion is used when the pipeline block does not fix a region.
const defaultRegion = "us-east-1"

// translate converts the merged schema blocks into a populated builder.
// Top-level steps are added before conditionals so condition operands can be
// checked against already-registered producers.
func (l *Loader) translate(ctx context.Context, file *schema.PipelineFile) (*builder.Builder, error) {
	logger := ctxlog.FromContext(ctx)

	region := file.Pipeline.Region
	if region == "" {
		region = defaultRegion
	}

	b := builder.New(file.Pipeline.Name)

	for _, p := range file.Parameters {
		if err := l.translateParameter(b, p); err != nil {
			return nil, err
		}
	}

	for _, s := range file.Steps {
		step, err := l.translateStep(ctx, s, region)
		if err != nil {
			return nil, err
		}
		if _, err := b.AddStep(*step); err != nil {
			return nil, err
		}
		logger.Debug("Translated step block.", "step", s.Name, "kind", s.Kind)
	}

	for _, c := range file.Conditionals {
		if err := l.translateConditional(ctx, b, c, region); err != nil {
			return nil, err
		}
		logger.Debug("Translated conditional block.", "conditional", c.Name)
	}

	return b, nil
}

func (l *Loader) translateParameter(b *builder.Builder, p *schema.Parameter) error {
	val, diags := p.Default.Value(nil)
	if diags.HasErrors() {
		return fmt.Errorf("parameter %q: invalid default: %w", p.Name, diags)
	}

	switch p.Type {
	case "number":
		if val.Type() != cty.Number {
			return fmt.Errorf("parameter %q: default is not a number", p.Name)
		}
		f, _ := val.AsBigFloat().Float64()
		_, err := b.ParameterNumber(p.Name, f)
		return err
	case "string":
		if val.Type() != cty.String {
			return fmt.Errorf("parameter %q: default is not a string", p.Name)
		}
		_, err := b.ParameterString(p.Name, val.AsString())
		return err
	default:
		return fmt.Errorf("parameter %q: unsupported type %q (want number or string)", p.Name, p.Type)
	}
}

func (l *Loader) translateStep(ctx context.Context, s *schema.Step, region string) (*model.Step, error) {
	step := &model.Step{
		Name: s.Name,
		Kind: model.StepKind(s.Kind),
	}

	for _, in := range s.Inputs {
		binding, err := translateBinding(in.Value)
		if err != nil {
			return nil, fmt.Errorf("step %q input %q: %w", s.Name, in.Name, err)
		}
		step.Inputs = append(step.Inputs, model.Input{Name: in.Name, Binding: binding})
	}

	for _, out := range s.Outputs {
		step.Outputs = append(step.Outputs, model.OutputChannel{Name: out.Name, Source: out.Source})
	}

	for _, pf := range s.PropertyFiles {
		step.PropertyFiles = append(step.PropertyFiles, model.PropertyFile{
			Name:          pf.Name,
			OutputChannel: pf.Output,
			Path:          pf.Path,
		})
	}

	switch step.Kind {
	case model.KindProcess, model.KindEvaluate:
		script := &model.ScriptConfig{Path: s.Script}
		for _, arg := range s.Args {
			binding, err := translateBinding(arg.Value)
			if err != nil {
				return nil, fmt.Errorf("step %q arg %q: %w", s.Name, arg.Name, err)
			}
			script.Args = append(script.Args, model.Input{Name: arg.Name, Binding: binding})
		}
		step.Script = script
	case model.KindTrain:
		train := &model.TrainConfig{OutputPath: s.OutputPath}
		if s.Hyperparameters != nil {
			hp, err := translateHyperparameters(s.Hyperparameters.Body)
			if err != nil {
				return nil, fmt.Errorf("step %q: %w", s.Name, err)
			}
			train.Hyperparameters = hp
		}
		step.Train = train
	case model.KindRegister:
		if s.Register == nil {
			return nil, fmt.Errorf("step %q: kind register requires a register block", s.Name)
		}
		reg, err := translateRegister(s.Register)
		if err != nil {
			return nil, fmt.Errorf("step %q: %w", s.Name, err)
		}
		step.Register = reg
	}

	if s.Compute == nil {
		return nil, fmt.Errorf("step %q: a compute block is required", s.Name)
	}
	compute, err := l.translateCompute(ctx, s.Compute, region)
	if err != nil {
		return nil, fmt.Errorf("step %q: %w", s.Name, err)
	}
	step.Compute = compute

	return step, nil
}

func (l *Loader) translateCompute(ctx context.Context, c *schema.ComputeBlock, region string) (model.ComputeSpec, error) {
	imageRef := c.Image
	if imageRef == "" {
		if c.Framework == "" || c.Version == "" {
			return model.ComputeSpec{}, fmt.Errorf("compute block needs either image or framework and version")
		}
		res, err := l.resolver.Resolve(ctx, c.Framework, c.Version, region)
		if err != nil {
			return model.ComputeSpec{}, err
		}
		imageRef = res.Ref
	}

	count := c.InstanceCount
	if count == 0 {
		count = 1
	}

	network := model.NetworkConfig{
		SubnetIDs:                    c.Subnets,
		SecurityGroupIDs:             c.SecurityGroups,
		EnableIsolation:              c.Isolation,
		EncryptInterContainerTraffic: c.EncryptTraffic,
	}
	if network.IsZero() {
		network = l.DefaultNetwork
	}

	return model.ComputeSpec{
		ImageRef:      imageRef,
		InstanceType:  c.InstanceType,
		InstanceCount: count,
		Role:          c.Role,
		Network:       network,
	}, nil
}

func translateRegister(r *schema.RegisterBlock) (*model.RegisterConfig, error) {
	reg := &model.RegisterConfig{
		PackageGroup:      r.PackageGroup,
		ApprovalStatus:    r.ApprovalStatus,
		ContentTypes:      r.ContentTypes,
		ResponseTypes:     r.ResponseTypes,
		InferenceTypes:    r.InferenceTypes,
		TransformTypes:    r.TransformTypes,
		MetricsSourceType: r.MetricsSourceType,
	}
	if r.MetricsSource != nil {
		binding, err := translateBinding(r.MetricsSource)
		if err != nil {
			return nil, fmt.Errorf("metrics_source: %w", err)
		}
		reg.MetricsSource = binding
	}
	return reg, nil
}

func (l *Loader) translateConditional(ctx context.Context, b *builder.Builder, c *schema.Conditional, region string) error {
	conditions := make([]model.Condition, 0, len(c.Conditions))
	for i, raw := range c.Conditions {
		cond, err := translateCondition(raw)
		if err != nil {
			return fmt.Errorf("conditional %q condition %d: %w", c.Name, i, err)
		}
		conditions = append(conditions, cond)
	}

	translateBranch := func(branch *schema.Branch) ([]model.Step, error) {
		if branch == nil {
			return nil, nil
		}
		steps := make([]model.Step, 0, len(branch.Steps))
		for _, s := range branch.Steps {
			step, err := l.translateStep(ctx, s, region)
			if err != nil {
				return nil, err
			}
			steps = append(steps, *step)
		}
		return steps, nil
	}

	ifSteps, err := translateBranch(c.If)
	if err != nil {
		return fmt.Errorf("conditional %q if branch: %w", c.Name, err)
	}
	elseSteps, err := translateBranch(c.Else)
	if err != nil {
		return fmt.Errorf("conditional %q else branch: %w", c.Name, err)
	}

	return b.AddConditional(c.Name, conditions, ifSteps, elseSteps)
}

func translateCondition(c *schema.Condition) (model.Condition, error) {
	step, file, ok := parsePropertyFileRef(c.File)
	if !ok {
		return model.Condition{}, fmt.Errorf("file must be a reference of the form step.<name>.files.<property_file>")
	}
	path, err := jsonpath.Parse(c.Path)
	if err != nil {
		return model.Condition{}, fmt.Errorf("invalid json path %q: %w", c.Path, err)
	}
	return model.Condition{
		Op:        model.OpLessThanOrEqual,
		Left:      model.JSONGet{Step: step, PropertyFile: file, Path: path},
		Threshold: c.LTE,
	}, nil
}

// translateHyperparameters decodes a hyperparameters block. Values must be
// literals; references make no sense for training configuration baked into
// the job definition.
func translateHyperparameters(body hcl.Body) (map[string]cty.Value, error) {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid hyperparameters block: %w", diags)
	}

	hp := make(map[string]cty.Value, len(attrs))
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("hyperparameter %q must be a literal: %w", name, diags)
		}
		hp[name] = val
	}
	return hp, nil
}

// translateBinding turns an HCL expression into a binding. Expressions with
// no variables are literals. A single traversal of a recognized form becomes
// a parameter or step output reference.
func translateBinding(expr hcl.Expression) (model.Binding, error) {
	vars := expr.Variables()
	if len(vars) == 0 {
		val, diags := expr.Value(nil)
		if diags.HasErrors() {
			return model.Binding{}, fmt.Errorf("invalid literal: %w", diags)
		}
		return model.BindLiteral(val), nil
	}
	if len(vars) > 1 {
		return model.Binding{}, fmt.Errorf("expression mixes multiple references")
	}

	traversal := vars[0]
	if name, ok := parseParamRef(traversal); ok {
		return model.BindParameter(name), nil
	}
	if step, channel, ok := parseOutputRef(traversal); ok {
		return model.BindReference(model.PropertyRef{Step: step, Channel: channel}), nil
	}
	return model.Binding{}, fmt.Errorf("unrecognized reference %q", traversalString(traversal))
}

// parseParamRef matches param.<name>.
func parseParamRef(traversal hcl.Traversal) (string, bool) {
	if len(traversal) != 2 || traversal.RootName() != "param" {
		return "", false
	}
	attr, ok := traversal[1].(hcl.TraverseAttr)
	if !ok {
		return "", false
	}
	return attr.Name, true
}

// parseOutputRef matches step.<name>.outputs.<channel>.
func parseOutputRef(traversal hcl.Traversal) (step, channel string, ok bool) {
	step, channel, ok = parseDotted(traversal, "outputs")
	return
}

// parsePropertyFileRef matches step.<name>.files.<property_file> in a
// condition's file expression.
func parsePropertyFileRef(expr hcl.Expression) (step, file string, ok bool) {
	vars := expr.Variables()
	if len(vars) != 1 {
		return "", "", false
	}
	return parseDotted(vars[0], "files")
}

func parseDotted(traversal hcl.Traversal, keyword string) (string, string, bool) {
	if len(traversal) != 4 || traversal.RootName() != "step" {
		return "", "", false
	}
	nameAttr, nameOk := traversal[1].(hcl.TraverseAttr)
	kwAttr, kwOk := traversal[2].(hcl.TraverseAttr)
	leafAttr, leafOk := traversal[3].(hcl.TraverseAttr)
	if !nameOk || !kwOk || !leafOk || kwAttr.Name != keyword {
		return "", "", false
	}
	return nameAttr.Name, leafAttr.Name, true
}

func traversalString(traversal hcl.Traversal) string {
	out := traversal.RootName()
	for _, part := range traversal[1:] {
		if attr, ok := part.(hcl.TraverseAttr); ok {
			out += "." + attr.Name
		}
	}
	return out
}
