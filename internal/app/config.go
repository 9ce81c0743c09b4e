package app

import (
	"fmt"

	"dario.cat/mergo"
	"github.com/go-playground/validator/v10"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// PipelinePath is a .hcl file or a directory of .hcl files.
	PipelinePath string `validate:"required"`
	// ArtifactsPath is the directory the local backend reads property files
	// from. Empty means an in-memory store, which only suits dry runs.
	ArtifactsPath string

	LogFormat string `validate:"oneof=text json"`
	LogLevel  string `validate:"oneof=debug info warn error"`

	// Execute runs the pipeline on the local backend after assembly. When
	// false the app only emits the pipeline document.
	Execute bool
	// Overrides replace parameter defaults, as raw name=value strings. They
	// are typed against the declared parameters at run time.
	Overrides map[string]string
}

// defaults are merged into any caller-supplied config before validation.
var defaults = Config{
	LogFormat: "json",
	LogLevel:  "info",
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewConfig fills unset fields from the defaults and validates the result.
func NewConfig(cfg Config) (*Config, error) {
	if err := mergo.Merge(&cfg, defaults); err != nil {
		return nil, fmt.Errorf("failed to apply config defaults: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
