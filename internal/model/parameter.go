// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package model

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// Parameter is a named, typed value declared on a pipeline. It carries a
// default and may be overridden at submission time, but the declaration
// itself never changes after the pipeline is built.
type Parameter struct {
	Name    string
	Type    cty.Type
	Default cty.Value
}

// NewParameter constructs a Parameter, checking that the default value
// matches the declared type.
func NewParameter(name string, typ cty.Type, def cty.Value) (Parameter, error) {
	if name == "" {
		return Parameter{}, fmt.Errorf("parameter name cannot be empty")
	}
	if typ != cty.Number && typ != cty.String {
		return Parameter{}, fmt.Errorf("parameter %q: unsupported type %s, must be number or string", name, typ.FriendlyName())
	}
	if !def.Type().Equals(typ) {
		return Parameter{}, fmt.Errorf("parameter %q: default value type %s does not match declared type %s",
			name, def.Type().FriendlyName(), typ.FriendlyName())
	}
	return Parameter{Name: name, Type: typ, Default: def}, nil
}
