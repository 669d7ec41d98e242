// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package executor runs programs: it resolves the kernel of each operator for its data type and the
// device in use, and calls it with the variables of a Scope.
//
// Example:
//
//	program := executor.NewProgram()
//	out, err := layers.Assign(program, [][]int32{{1, 2}, {3, 4}})
//	...
//	scope := executor.NewScope()
//	exec := executor.New(devices.MustNew())
//	err = exec.Run(ctx, program, scope)
//	fmt.Println(scope.FindVar(out))
package executor

import (
	"context"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/opkernels/pkg/core/devices"
	"github.com/gomlx/opkernels/pkg/core/tensors"
	"github.com/gomlx/opkernels/pkg/framework/attributes"
	"github.com/gomlx/opkernels/pkg/framework/ops"
	"github.com/gomlx/opkernels/pkg/support/sets"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Executor runs programs on one device context.
// Operators of a program are executed sequentially, and a program run finishes only when the
// device finished all the work enqueued by its kernels.
type Executor struct {
	device devices.Context
}

// New returns an Executor that uses the given device context.
// The device context is owned by the caller.
func New(device devices.Context) *Executor {
	if device == nil {
		exceptions.Panicf("executor.New: nil device context")
	}
	return &Executor{device: device}
}

// Device returns the device context used by the executor.
func (e *Executor) Device() devices.Context { return e.device }

// Run executes the operators of the program in order, creating their output variables in scope.
// It stops at the first error, and checks ctx for cancellation before each operator.
func (e *Executor) Run(ctx context.Context, program *Program, scope *Scope) error {
	if program == nil || scope == nil {
		return errors.New("Executor.Run: program and scope must be given")
	}
	klog.V(1).Infof("running program with %d ops on %s", program.NumOps(), e.device.Place())
	for ii, op := range program.Ops {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "program interrupted before op #%d (%s)", ii, op.Type)
		}
		if err := e.RunOp(op, scope); err != nil {
			return errors.WithMessagef(err, "while executing op #%d", ii)
		}
	}
	return nil
}

// MustRun is like Run, but panics on error.
func (e *Executor) MustRun(ctx context.Context, program *Program, scope *Scope) {
	if err := e.Run(ctx, program, scope); err != nil {
		panic(err)
	}
}

// RunOp executes one operator with the variables in scope, and waits for the device to finish.
//
// If the operator fails before its kernel is called (unknown operator, invalid attributes, no kernel for the
// data type), its output variables are not touched.
func (e *Executor) RunOp(op *ops.OpDesc, scope *Scope) error {
	if op == nil {
		return errors.New("nil operator")
	}
	info, err := ops.LookupOp(op.Type)
	if err != nil {
		return err
	}
	attrs, err := checkAttributes(info, op)
	if err != nil {
		return err
	}
	if err := checkSlots(info, op); err != nil {
		return err
	}

	var inferred *ops.InferShapeContext
	if info.InferShape != nil {
		inferred = ops.NewInferShapeContext(op, attrs)
		if err := info.InferShape(inferred); err != nil {
			return errors.WithMessagef(err, "operator %q: failed to infer output shapes", op.Type)
		}
	}

	dtype, err := info.ExpectedKernelDType(attrs)
	if err != nil {
		return errors.WithMessagef(err, "operator %q", op.Type)
	}
	key := ops.KernelKey{DType: dtype, Kind: e.device.Place().Kind}
	kernel, err := ops.LookupKernel(op.Type, key)
	if err != nil {
		return err
	}
	klog.V(2).Infof("op %s: selected kernel %s", op.Type, key)

	inputs := make(map[string][]*tensors.Tensor, len(op.Inputs))
	for slot, names := range op.Inputs {
		for _, name := range names {
			t := scope.FindVar(name)
			if t == nil {
				return errors.Errorf("operator %q: input %q (slot %q) not found in scope", op.Type, name, slot)
			}
			inputs[slot] = append(inputs[slot], t)
		}
	}
	outputs := make(map[string][]*tensors.Tensor, len(op.Outputs))
	for slot, names := range op.Outputs {
		for _, name := range names {
			outputs[slot] = append(outputs[slot], scope.Var(name))
		}
	}

	execCtx := ops.NewExecutionContext(op, attrs, e.device, inputs, outputs)
	var computeErr error
	err = exceptions.TryCatch[error](func() {
		computeErr = kernel.Compute(execCtx)
	})
	if err == nil {
		err = computeErr
	}
	if err != nil {
		// Drain the device, so work enqueued before the failure doesn't leak into the next operator.
		if waitErr := e.device.Wait(); waitErr != nil {
			klog.Warningf("op %s: device %s error after kernel failure: %v", op.Type, e.device.Place(), waitErr)
		}
		return errors.WithMessagef(err, "operator %q (kernel %s)", op.Type, key)
	}
	if err := e.device.Wait(); err != nil {
		return errors.WithMessagef(err, "operator %q: device %s failed", op.Type, e.device.Place())
	}
	if inferred != nil {
		if err := checkInferredDims(op, inferred, outputs); err != nil {
			return err
		}
	}
	klog.V(1).Infof("op %s: done, outputs %v", op.Type, op.OutputNames())
	return nil
}

// checkAttributes returns the attributes with defaults filled in.
func checkAttributes(info *ops.OpInfo, op *ops.OpDesc) (attributes.Map, error) {
	if info.Checker == nil {
		if len(op.Attrs) > 0 {
			return nil, errors.Errorf("operator %q takes no attributes, got %v", op.Type, op.Attrs.Names())
		}
		return attributes.Map{}, nil
	}
	attrs, err := info.Checker.Check(op.Attrs)
	if err != nil {
		return nil, errors.WithMessagef(err, "operator %q", op.Type)
	}
	return attrs, nil
}

// checkSlots verifies the operator binds exactly the slots declared by its type.
func checkSlots(info *ops.OpInfo, op *ops.OpDesc) error {
	for _, slot := range info.Outputs {
		if len(op.Outputs[slot]) == 0 {
			return errors.Errorf("operator %q: output slot %q not bound", op.Type, slot)
		}
	}
	if extra := sets.FromKeys(op.Outputs).Sub(sets.MakeWith(info.Outputs...)); len(extra) > 0 {
		return errors.Errorf("operator %q has no output slots %v, declared: %v", op.Type, sets.Sorted(extra), info.Outputs)
	}
	if extra := sets.FromKeys(op.Inputs).Sub(sets.MakeWith(info.Inputs...)); len(extra) > 0 {
		return errors.Errorf("operator %q has no input slots %v, declared: %v", op.Type, sets.Sorted(extra), info.Inputs)
	}
	return nil
}

// checkInferredDims verifies the kernel produced the dimensions inferred for single-variable output slots.
func checkInferredDims(op *ops.OpDesc, inferred *ops.InferShapeContext, outputs map[string][]*tensors.Tensor) error {
	for slot, list := range outputs {
		dims, found := inferred.OutputDims(slot)
		if !found || len(list) != 1 {
			continue
		}
		if got := list[0].Shape().Dimensions; !slices.Equal(got, dims) {
			return errors.Errorf("operator %q: output slot %q has dimensions %v, but %v were inferred",
				op.Type, slot, got, dims)
		}
	}
	return nil
}
