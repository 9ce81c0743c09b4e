// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the compute specification a step runs under. The values
// are inert configuration passed through to the execution backend unchanged;
// the builder validates their shape, never their meaning.
package model

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is shared by all ComputeSpec checks; the struct tags are the
// single source of truth for what "structurally valid" means.
var validate = validator.New(validator.WithRequiredStructEnabled())

// ComputeSpec describes the container image and instances a step runs on.
// Image resolution happens before the spec reaches a step; the step never
// performs discovery itself.
type ComputeSpec struct {
	ImageRef      string `validate:"required"`
	InstanceType  string `validate:"required"`
	InstanceCount int    `validate:"min=1"`
	// Role is the opaque credential capability handed through to the backend.
	Role    string
	Network NetworkConfig
}

// Validate checks the spec's structural constraints.
func (c ComputeSpec) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid compute spec: %w", err)
	}
	return nil
}

// NetworkConfig carries the network policy a step's job runs under. It is an
// explicit struct — never read from ambient process state — so that builds
// are reproducible and testable without environment mutation.
type NetworkConfig struct {
	SubnetIDs                    []string
	SecurityGroupIDs             []string
	EnableIsolation              bool
	EncryptInterContainerTraffic bool
}

// IsZero reports whether no field of the config was set. A zero config on a
// step means "use the pipeline-wide default", resolved at definition time.
func (n NetworkConfig) IsZero() bool {
	return len(n.SubnetIDs) == 0 && len(n.SecurityGroupIDs) == 0 &&
		!n.EnableIsolation && !n.EncryptInterContainerTraffic
}

// WithoutIsolation returns a copy of the config with network isolation
// disabled. Preprocessing jobs need this to reach the artifact store while
// the rest of the pipeline stays isolated.
func (n NetworkConfig) WithoutIsolation() NetworkConfig {
	n.EnableIsolation = false
	return n
}
