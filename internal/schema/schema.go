package schema

import (
	"github.com/hashicorp/hcl/v2"
)

// --- Pipeline Definition Structures ---

// Pipeline represents the top-level `pipeline` block naming the workflow and
// fixing the region used for image resolution.
type Pipeline struct {
	Name   string `hcl:"name,label"`
	Region string `hcl:"region,optional"`
}

// Parameter represents a `parameter` block. The default stays an expression
// so the translator can type-check it against the declared type.
type Parameter struct {
	Name    string         `hcl:"name,label"`
	Type    string         `hcl:"type"`
	Default hcl.Expression `hcl:"default"`
}

// HyperparametersBlock holds free-form training hyperparameters. Values must
// be literals.
type HyperparametersBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// Input represents an `input` or `arg` block wiring a named value to an
// expression, typically a step output or parameter reference. The label is
// quoted, so argument names like "--input-data" are legal.
type Input struct {
	Name  string         `hcl:"name,label"`
	Value hcl.Expression `hcl:"value"`
}

// Output represents an `output` block declaring a named output channel and
// where the step materializes it.
type Output struct {
	Name   string `hcl:"name,label"`
	Source string `hcl:"source"`
}

// PropertyFileBlock represents a `property_file` block attaching a named
// JSON document to one of the step's output channels.
type PropertyFileBlock struct {
	Name   string `hcl:"name,label"`
	Output string `hcl:"output"`
	Path   string `hcl:"path"`
}

// ComputeBlock represents a `compute` block. Either a full image reference
// or a framework/version pair must be given; the latter is resolved against
// the image registry with a deterministic fallback.
type ComputeBlock struct {
	Image          string   `hcl:"image,optional"`
	Framework      string   `hcl:"framework,optional"`
	Version        string   `hcl:"version,optional"`
	InstanceType   string   `hcl:"instance_type"`
	InstanceCount  int      `hcl:"instance_count,optional"`
	Role           string   `hcl:"role,optional"`
	Subnets        []string `hcl:"subnets,optional"`
	SecurityGroups []string `hcl:"security_groups,optional"`
	Isolation      bool     `hcl:"network_isolation,optional"`
	EncryptTraffic bool     `hcl:"encrypt_inter_container_traffic,optional"`
}

// RegisterBlock represents a `register` block configuring model package
// registration for a register-kind step.
type RegisterBlock struct {
	PackageGroup      string         `hcl:"package_group"`
	ApprovalStatus    string         `hcl:"approval_status,optional"`
	ContentTypes      []string       `hcl:"content_types,optional"`
	ResponseTypes     []string       `hcl:"response_types,optional"`
	InferenceTypes    []string       `hcl:"inference_types,optional"`
	TransformTypes    []string       `hcl:"transform_types,optional"`
	MetricsSource     hcl.Expression `hcl:"metrics_source,optional"`
	MetricsSourceType string         `hcl:"metrics_source_type,optional"`
}

// Step represents a `step` block from a user's pipeline file. The first
// label is the step kind (process, train, evaluate, register) and the second
// is the unique step name.
type Step struct {
	Kind            string                `hcl:"kind,label"`
	Name            string                `hcl:"name,label"`
	Script          string                `hcl:"script,optional"`
	OutputPath      string                `hcl:"output_path,optional"`
	Args            []*Input              `hcl:"arg,block"`
	Hyperparameters *HyperparametersBlock `hcl:"hyperparameters,block"`
	Inputs          []*Input              `hcl:"input,block"`
	Outputs         []*Output             `hcl:"output,block"`
	PropertyFiles   []*PropertyFileBlock  `hcl:"property_file,block"`
	Compute         *ComputeBlock         `hcl:"compute,block"`
	Register        *RegisterBlock        `hcl:"register,block"`
}

// Condition represents a `condition` block. The file expression must be a
// property-file reference of the form step.<name>.files.<property_file>.
type Condition struct {
	File hcl.Expression `hcl:"file"`
	Path string         `hcl:"path"`
	LTE  float64        `hcl:"lte"`
}

// Branch represents the `if` or `else` block of a conditional, holding the
// steps that run when that branch is selected.
type Branch struct {
	Steps []*Step `hcl:"step,block"`
}

// Conditional represents a `conditional` block gating its branches on the
// conjunction of its conditions.
type Conditional struct {
	Name       string       `hcl:"name,label"`
	Conditions []*Condition `hcl:"condition,block"`
	If         *Branch      `hcl:"if,block"`
	Else       *Branch      `hcl:"else,block"`
}

// PipelineFile represents the top-level structure of a pipeline definition
// file. Definitions may be split across files; the loader merges them.
type PipelineFile struct {
	Pipeline     *Pipeline      `hcl:"pipeline,block"`
	Parameters   []*Parameter   `hcl:"parameter,block"`
	Steps        []*Step        `hcl:"step,block"`
	Conditionals []*Conditional `hcl:"conditional,block"`
	Body         hcl.Body       `hcl:",remain"`
}
