// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package assignvalue implements the "assign_value" operator: it fills its output tensor with constant
// values given as attributes, and sets the output dimensions.
//
// Attributes:
//
//   - "shape" ([]int, required): dimensions of the output.
//   - "dtype" (int, default dtypes.FP32): framework data type tag, only dtypes.INT32 and dtypes.FP32 are supported.
//   - "int32_values" ([]int32): the values, used when dtype is INT32.
//   - "fp32_values" ([]float32): the values, used when dtype is FP32.
//
// The values are in row-major order, and their number must match the number of elements of "shape".
//
// Importing this package registers the operator and its kernels for all devices.
package assignvalue

import (
	"fmt"

	"github.com/gomlx/opkernels/pkg/core/devices"
	"github.com/gomlx/opkernels/pkg/core/dtypes"
	"github.com/gomlx/opkernels/pkg/core/shapes"
	"github.com/gomlx/opkernels/pkg/core/tensors"
	"github.com/gomlx/opkernels/pkg/framework/attributes"
	"github.com/gomlx/opkernels/pkg/framework/ops"
	"github.com/pkg/errors"
)

const (
	// OpType is the registered name of the operator.
	OpType = "assign_value"

	// OutputSlot is the name of the output slot.
	OutputSlot = "Out"

	AttrShape       = "shape"
	AttrDType       = "dtype"
	AttrInt32Values = "int32_values"
	AttrFP32Values  = "fp32_values"
)

var (
	// ErrUnsupportedDType is matched (with errors.Is) by UnsupportedDTypeError.
	ErrUnsupportedDType = errors.New("unsupported dtype")

	// ErrShapeMismatch is returned when the number of elements of "shape" differs from the number of values.
	ErrShapeMismatch = errors.New("shape and values size mismatch")
)

// UnsupportedDTypeError is returned when the "dtype" attribute is not one of the supported types.
type UnsupportedDTypeError struct {
	DType int
}

// Error implements error.
func (e *UnsupportedDTypeError) Error() string {
	return fmt.Sprintf("Unsupported dtype for assign_value_op: %d", e.DType)
}

// Is makes UnsupportedDTypeError match ErrUnsupportedDType.
func (e *UnsupportedDTypeError) Is(target error) bool {
	return target == ErrUnsupportedDType
}

// SupportedDTypes lists the data types the operator accepts.
var SupportedDTypes = []dtypes.DType{dtypes.INT32, dtypes.FP32}

var checker *attributes.Checker

func init() {
	checker = attributes.NewChecker()
	checker.Add(AttrShape).Required().Comment("dimensions of the output").
		Validate(func(value any) error {
			dims, err := toDims(value)
			if err != nil {
				return err
			}
			return shapes.CheckDims(dims...)
		})
	checker.Add(AttrDType).Default(int(dtypes.FP32)).Comment("data type tag of the output")
	checker.Add(AttrInt32Values).Default([]int32{}).Comment("values for INT32")
	checker.Add(AttrFP32Values).Default([]float32{}).Comment("values for FP32")

	ops.RegisterOp(&ops.OpInfo{
		Type:                OpType,
		Comment:             "fills the output with constant values given as attributes",
		Outputs:             []string{OutputSlot},
		Checker:             checker,
		InferShape:          InferShape,
		ExpectedKernelDType: ExpectedKernelDType,
	})
	for _, kind := range []devices.Kind{devices.CPU, devices.Stream} {
		ops.RegisterKernel(OpType, ops.KernelKey{DType: dtypes.INT32, Kind: kind}, &Kernel[int32]{})
		ops.RegisterKernel(OpType, ops.KernelKey{DType: dtypes.FP32, Kind: kind}, &Kernel[float32]{})
	}
}

// Attributes returns the attribute declarations of the operator.
func Attributes() *attributes.Checker { return checker }

func toDims(value any) ([]int, error) {
	return attributes.Get[[]int](attributes.Map{AttrShape: value}, AttrShape)
}

// InferShape sets the output dimensions to the "shape" attribute.
func InferShape(ctx *ops.InferShapeContext) error {
	dims, err := attributes.Get[[]int](ctx.Attrs(), AttrShape)
	if err != nil {
		return err
	}
	return ctx.SetOutputDims(OutputSlot, dims)
}

// ExpectedKernelDType returns the data type selected by the "dtype" attribute, or an *UnsupportedDTypeError.
func ExpectedKernelDType(attrs attributes.Map) (dtypes.DType, error) {
	tag, err := attributes.GetOr(attrs, AttrDType, int(dtypes.FP32))
	if err != nil {
		return dtypes.InvalidDType, err
	}
	dtype := dtypes.DType(tag)
	if int(dtype) != tag {
		// Tag doesn't fit the enum: never truncate it into a valid one.
		return dtypes.InvalidDType, &UnsupportedDTypeError{DType: tag}
	}
	switch dtype {
	case dtypes.INT32, dtypes.FP32:
		return dtype, nil
	default:
		return dtypes.InvalidDType, &UnsupportedDTypeError{DType: tag}
	}
}

// valuesAttr returns the name of the attribute holding the values for the dtype.
func valuesAttr(dtype dtypes.DType) string {
	if dtype == dtypes.INT32 {
		return AttrInt32Values
	}
	return AttrFP32Values
}

// Kernel implements the operator for values of type T.
type Kernel[T dtypes.KernelValue] struct{}

// Compute implements ops.Kernel.
func (k *Kernel[T]) Compute(ctx *ops.ExecutionContext) error {
	out, err := ctx.Output(OutputSlot)
	if err != nil {
		return err
	}
	return assign[T](ctx.DeviceContext(), ctx.Attrs(), out)
}

// assign copies the values of type T from attrs to out, and resizes out to the "shape" attribute.
// out is not modified on error.
func assign[T dtypes.KernelValue](devCtx devices.Context, attrs attributes.Map, out *tensors.Tensor) error {
	dtype := dtypes.FromGenericsType[T]()
	dims, err := attributes.Get[[]int](attrs, AttrShape)
	if err != nil {
		return err
	}
	if err := shapes.CheckDims(dims...); err != nil {
		return err
	}
	values, err := attributes.GetOr(attrs, valuesAttr(dtype), []T{})
	if err != nil {
		return err
	}
	if size := shapes.SizeOf(dims...); size != len(values) {
		return errors.Wrapf(ErrShapeMismatch, "%s: shape %v has %d elements, but %d %s values were given",
			OpType, dims, size, len(values), dtype)
	}
	if err := tensors.CopyFromVector(values, devCtx, out); err != nil {
		return err
	}
	return out.Resize(dims...)
}

// Run executes the operator directly, without a program: it fills out with the values in attrs, using
// devCtx. For asynchronous devices the data is only available after devCtx.Wait.
//
// Errors: *UnsupportedDTypeError (matching ErrUnsupportedDType) if "dtype" is not supported, ErrShapeMismatch
// if the number of values doesn't match "shape", or an attributes error if attrs are invalid.
// In all of these cases out is not touched.
func Run(devCtx devices.Context, attrs attributes.Map, out *tensors.Tensor) error {
	if out == nil {
		return errors.Errorf("%s: output tensor is nil", OpType)
	}
	checked, err := checker.Check(attrs)
	if err != nil {
		return errors.WithMessagef(err, "%s", OpType)
	}
	dtype, err := ExpectedKernelDType(checked)
	if err != nil {
		return err
	}
	switch dtype {
	case dtypes.INT32:
		return assign[int32](devCtx, checked, out)
	default:
		return assign[float32](devCtx, checked, out)
	}
}

// MustRun is like Run, but panics on error.
func MustRun(devCtx devices.Context, attrs attributes.Map, out *tensors.Tensor) {
	if err := Run(devCtx, attrs, out); err != nil {
		panic(err)
	}
}
