// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ops

import (
	"github.com/gomlx/opkernels/pkg/core/devices"
	"github.com/gomlx/opkernels/pkg/core/tensors"
	"github.com/gomlx/opkernels/pkg/framework/attributes"
	"github.com/pkg/errors"
)

// ExecutionContext is given to Kernel.Compute. It gives access to the operator's attributes, its input and
// output tensors, and the device context to use.
//
// It is only valid during the call to Compute.
type ExecutionContext struct {
	op      *OpDesc
	attrs   attributes.Map
	devCtx  devices.Context
	inputs  map[string][]*tensors.Tensor
	outputs map[string][]*tensors.Tensor
}

// NewExecutionContext is used by executors to create the context for one kernel call.
// attrs should be the attributes already checked (with defaults filled in).
func NewExecutionContext(op *OpDesc, attrs attributes.Map, devCtx devices.Context,
	inputs, outputs map[string][]*tensors.Tensor) *ExecutionContext {
	return &ExecutionContext{
		op:      op,
		attrs:   attrs,
		devCtx:  devCtx,
		inputs:  inputs,
		outputs: outputs,
	}
}

// Op returns the description of the operator being executed.
func (ctx *ExecutionContext) Op() *OpDesc { return ctx.op }

// Attrs returns the attributes of the operator, with defaults filled in.
func (ctx *ExecutionContext) Attrs() attributes.Map { return ctx.attrs }

// DeviceContext where the kernel is executing.
func (ctx *ExecutionContext) DeviceContext() devices.Context { return ctx.devCtx }

// Input returns the single tensor bound to the input slot.
func (ctx *ExecutionContext) Input(slot string) (*tensors.Tensor, error) {
	return single(ctx.op, "input", slot, ctx.inputs[slot])
}

// Output returns the single tensor bound to the output slot.
func (ctx *ExecutionContext) Output(slot string) (*tensors.Tensor, error) {
	return single(ctx.op, "output", slot, ctx.outputs[slot])
}

// Outputs returns all tensors bound to the output slot.
func (ctx *ExecutionContext) Outputs(slot string) []*tensors.Tensor {
	return ctx.outputs[slot]
}

func single(op *OpDesc, kind, slot string, list []*tensors.Tensor) (*tensors.Tensor, error) {
	if len(list) != 1 || list[0] == nil {
		return nil, errors.Errorf("operator %q: %s slot %q must have exactly one tensor, got %d", op.Type, kind, slot, len(list))
	}
	return list[0], nil
}

// InferShapeContext is given to OpInfo.InferShape.
type InferShapeContext struct {
	op         *OpDesc
	attrs      attributes.Map
	outputDims map[string][]int
}

// NewInferShapeContext is used by executors to infer the output dimensions of op.
func NewInferShapeContext(op *OpDesc, attrs attributes.Map) *InferShapeContext {
	return &InferShapeContext{op: op, attrs: attrs, outputDims: make(map[string][]int)}
}

// Op returns the description of the operator.
func (ctx *InferShapeContext) Op() *OpDesc { return ctx.op }

// Attrs returns the attributes of the operator, with defaults filled in.
func (ctx *InferShapeContext) Attrs() attributes.Map { return ctx.attrs }

// SetOutputDims sets the inferred dimensions of the output slot.
func (ctx *InferShapeContext) SetOutputDims(slot string, dims []int) error {
	if _, found := ctx.op.Outputs[slot]; !found {
		return errors.Errorf("operator %q has no output slot %q", ctx.op.Type, slot)
	}
	ctx.outputDims[slot] = append([]int{}, dims...)
	return nil
}

// OutputDims returns the dimensions inferred for the output slot, and whether they were set.
func (ctx *InferShapeContext) OutputDims(slot string) ([]int, bool) {
	dims, found := ctx.outputDims[slot]
	return dims, found
}
