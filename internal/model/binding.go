// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the Binding union: the three ways a step input can be
// supplied. Keeping it a closed, tagged type (rather than an interface with
// open-ended implementations) makes edge derivation in the builder a simple
// switch and keeps serialization total.
package model

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// BindingKind tags the variant held by a Binding.
type BindingKind int

const (
	// BindLiteralKind binds an input to a constant value.
	BindLiteralKind BindingKind = iota
	// BindParameterKind binds an input to a declared pipeline parameter.
	BindParameterKind
	// BindReferenceKind binds an input to another step's deferred output.
	BindReferenceKind
)

// Binding is what a step input is wired to. Exactly one variant is set,
// indicated by Kind.
type Binding struct {
	Kind      BindingKind
	Literal   cty.Value
	Parameter string
	Reference PropertyRef
}

// BindLiteral binds an input to a constant value.
func BindLiteral(v cty.Value) Binding {
	return Binding{Kind: BindLiteralKind, Literal: v}
}

// BindString binds an input to a constant string value.
func BindString(s string) Binding {
	return BindLiteral(cty.StringVal(s))
}

// BindParameter binds an input to a declared pipeline parameter by name.
func BindParameter(name string) Binding {
	return Binding{Kind: BindParameterKind, Parameter: name}
}

// BindReference binds an input to the deferred output of another step.
func BindReference(ref PropertyRef) Binding {
	return Binding{Kind: BindReferenceKind, Reference: ref}
}

// String renders the binding for logs and error messages.
func (b Binding) String() string {
	switch b.Kind {
	case BindLiteralKind:
		return fmt.Sprintf("literal(%s)", b.Literal.GoString())
	case BindParameterKind:
		return fmt.Sprintf("param.%s", b.Parameter)
	case BindReferenceKind:
		return b.Reference.String()
	}
	return "invalid-binding"
}
