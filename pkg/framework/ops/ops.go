// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package ops defines operators and the registry of their kernels.
//
// An operator type (e.g. "assign_value") is registered once with an OpInfo, describing its output slots,
// its attribute declarations and how to infer its output dimensions. Kernels are registered separately for
// each KernelKey (data type and device kind) they support.
//
// Operator instances are described by an OpDesc, which binds output slots to variable names and holds the
// attribute values. The executor (package executor) resolves the kernel for each OpDesc and calls
// Kernel.Compute with an ExecutionContext.
package ops

import (
	"fmt"
	"slices"

	"github.com/gomlx/opkernels/pkg/core/devices"
	"github.com/gomlx/opkernels/pkg/core/dtypes"
	"github.com/gomlx/opkernels/pkg/framework/attributes"
	"github.com/pkg/errors"
)

// OpDesc describes an instance of an operator in a program.
type OpDesc struct {
	// Type of the operator, it must have been registered with RegisterOp.
	Type string

	// Inputs maps input slot names to the names of the variables read.
	Inputs map[string][]string

	// Outputs maps output slot names to the names of the variables written.
	Outputs map[string][]string

	// Attrs are the attribute values of this instance.
	Attrs attributes.Map
}

// Output returns the single variable name bound to the output slot.
func (op *OpDesc) Output(slot string) (string, error) {
	names := op.Outputs[slot]
	if len(names) != 1 {
		return "", errors.Errorf("operator %q: output slot %q must have exactly one variable, got %v", op.Type, slot, names)
	}
	return names[0], nil
}

// OutputNames returns all variable names written by the operator, sorted by slot name.
func (op *OpDesc) OutputNames() []string {
	var names []string
	for _, slot := range sortedKeys(op.Outputs) {
		names = append(names, op.Outputs[slot]...)
	}
	return names
}

// String implements fmt.Stringer.
func (op *OpDesc) String() string {
	return fmt.Sprintf("%s(outputs=%v, attrs=%v)", op.Type, op.Outputs, op.Attrs.Names())
}

// OpInfo holds the static information of an operator type.
type OpInfo struct {
	// Type name of the operator.
	Type string

	// Comment describes the operator, used in listings.
	Comment string

	// Inputs are the names of the input slots.
	Inputs []string

	// Outputs are the names of the output slots.
	Outputs []string

	// Checker validates the attributes and fills in their defaults. If nil, operators of this type
	// must have no attributes.
	Checker *attributes.Checker

	// InferShape sets the output dimensions from the (checked) attributes. Optional.
	InferShape func(ctx *InferShapeContext) error

	// ExpectedKernelDType returns the data type used to select the kernel. Required.
	ExpectedKernelDType func(attrs attributes.Map) (dtypes.DType, error)
}

// KernelKey selects a kernel implementation of an operator.
type KernelKey struct {
	DType dtypes.DType
	Kind  devices.Kind
}

// String implements fmt.Stringer.
func (k KernelKey) String() string {
	return fmt.Sprintf("%s/%s", k.DType, k.Kind)
}

// Kernel is the implementation of an operator for one KernelKey.
type Kernel interface {
	// Compute executes the operator: it reads the attributes and inputs from ctx and writes its outputs.
	Compute(ctx *ExecutionContext) error
}

// KernelFunc adapts a function to the Kernel interface.
type KernelFunc func(ctx *ExecutionContext) error

// Compute implements Kernel.
func (fn KernelFunc) Compute(ctx *ExecutionContext) error { return fn(ctx) }

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}
