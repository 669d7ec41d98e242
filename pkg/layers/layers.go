// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package layers has helpers to build programs (see executor.Program) from Go values.
package layers

import (
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/opkernels/pkg/core/dtypes"
	"github.com/gomlx/opkernels/pkg/core/shapes"
	"github.com/gomlx/opkernels/pkg/core/tensors"
	"github.com/gomlx/opkernels/pkg/framework/attributes"
	"github.com/gomlx/opkernels/pkg/framework/executor"
	"github.com/gomlx/opkernels/pkg/framework/ops"
	"github.com/gomlx/opkernels/pkg/kernels/assignvalue"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Assign appends to the program an "assign_value" operator that sets a variable to value, and returns the
// name of the variable.
//
// value can be a scalar or a regular multidimensional slice of int32 or float32 (e.g. [][]float32{{1, 2}, {3, 4}}).
// Values of other types return an error matching assignvalue.ErrUnsupportedDType.
//
// The name of the variable can be given; otherwise a unique one is generated.
func Assign(program *executor.Program, value any, name ...string) (string, error) {
	shape, err := shapes.FromAnyValue(value)
	if err != nil {
		return "", errors.WithMessage(err, "layers.Assign")
	}
	var values any
	err = exceptions.TryCatch[error](func() {
		t := tensors.FromAnyValue(value)
		switch shape.DType {
		case dtypes.INT32:
			values = tensors.MustCopyFlatData[int32](t)
		case dtypes.FP32:
			values = tensors.MustCopyFlatData[float32](t)
		}
	})
	if err != nil {
		return "", errors.WithMessage(err, "layers.Assign")
	}
	if values == nil {
		return "", errors.Wrapf(assignvalue.ErrUnsupportedDType, "layers.Assign: value of type %T (%s), only int32 and float32 are accepted",
			value, shape.DType)
	}
	return AssignValue(program, shape.DType, shape.Dimensions, values, name...)
}

// AssignValue appends to the program an "assign_value" operator with the given dtype, dimensions and
// flat values ([]int32 for dtypes.INT32, []float32 for dtypes.FP32), and returns the name of the variable.
//
// The name of the variable can be given; otherwise a unique one is generated.
func AssignValue(program *executor.Program, dtype dtypes.DType, dims []int, values any, name ...string) (string, error) {
	if program == nil {
		return "", errors.New("layers.AssignValue: nil program")
	}
	if len(name) > 1 {
		return "", errors.Errorf("layers.AssignValue: at most one name can be given, got %q", name)
	}
	attrs := attributes.Map{
		assignvalue.AttrShape: append([]int{}, dims...),
		assignvalue.AttrDType: int(dtype),
	}
	switch dtype {
	case dtypes.INT32:
		int32Values, ok := values.([]int32)
		if !ok {
			return "", errors.Errorf("layers.AssignValue: dtype %s requires []int32 values, got %T", dtype, values)
		}
		attrs[assignvalue.AttrInt32Values] = append([]int32{}, int32Values...)
	case dtypes.FP32:
		fp32Values, ok := values.([]float32)
		if !ok {
			return "", errors.Errorf("layers.AssignValue: dtype %s requires []float32 values, got %T", dtype, values)
		}
		attrs[assignvalue.AttrFP32Values] = append([]float32{}, fp32Values...)
	default:
		return "", &assignvalue.UnsupportedDTypeError{DType: int(dtype)}
	}
	var varName string
	if len(name) == 1 && name[0] != "" {
		varName = name[0]
	} else {
		varName = UniqueName(assignvalue.OpType)
	}
	program.AppendOp(&ops.OpDesc{
		Type:    assignvalue.OpType,
		Outputs: map[string][]string{assignvalue.OutputSlot: {varName}},
		Attrs:   attrs,
	})
	return varName, nil
}

// UniqueName returns a new variable name with the given prefix.
func UniqueName(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "_" + id[:12]
}
