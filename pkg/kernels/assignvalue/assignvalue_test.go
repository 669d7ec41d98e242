// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package assignvalue

import (
	"context"
	"testing"

	"github.com/gomlx/opkernels/pkg/core/devices"
	"github.com/gomlx/opkernels/pkg/core/dtypes"
	"github.com/gomlx/opkernels/pkg/core/shapes"
	"github.com/gomlx/opkernels/pkg/core/tensors"
	"github.com/gomlx/opkernels/pkg/framework/attributes"
	"github.com/gomlx/opkernels/pkg/framework/executor"
	"github.com/gomlx/opkernels/pkg/framework/ops"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var deviceConfigs = []string{"cpu", "stream", "stream:4"}

func forEachDevice(t *testing.T, testFn func(t *testing.T, devCtx devices.Context)) {
	for _, config := range deviceConfigs {
		t.Run(config, func(t *testing.T) {
			devCtx := must.M1(devices.NewWithConfig(config))
			defer devCtx.Finalize()
			testFn(t, devCtx)
		})
	}
}

func TestRunInt32(t *testing.T) {
	forEachDevice(t, func(t *testing.T, devCtx devices.Context) {
		out := tensors.New(dtypes.InvalidDType)
		err := Run(devCtx, attributes.Map{
			AttrShape:       []int{2, 2},
			AttrDType:       int(dtypes.INT32),
			AttrInt32Values: []int32{1, 2, 3, 4},
		}, out)
		require.NoError(t, err)
		require.NoError(t, devCtx.Wait())
		assert.True(t, out.Shape().Equal(shapes.Make(dtypes.Int32, 2, 2)), "got shape %s", out.Shape())
		assert.Equal(t, []int32{1, 2, 3, 4}, tensors.MustCopyFlatData[int32](out))
		assert.Equal(t, [][]int32{{1, 2}, {3, 4}}, out.Value())
		assert.Equal(t, devCtx.Place(), out.Place())
	})
}

func TestRunFloat32(t *testing.T) {
	forEachDevice(t, func(t *testing.T, devCtx devices.Context) {
		out := tensors.New(dtypes.InvalidDType)
		// dtype defaults to FP32, shape given as []int32.
		MustRun(devCtx, attributes.Map{
			AttrShape:      []int32{2},
			AttrFP32Values: []float32{1.5, 2.5},
		}, out)
		require.NoError(t, devCtx.Wait())
		assert.True(t, out.Shape().Equal(shapes.Make(dtypes.Float32, 2)))
		assert.Equal(t, []float32{1.5, 2.5}, out.Value())
	})
}

func TestRunScalarAndEmpty(t *testing.T) {
	devCtx := must.M1(devices.NewWithConfig("cpu"))
	scalar := tensors.New(dtypes.InvalidDType)
	MustRun(devCtx, attributes.Map{AttrShape: []int{}, AttrFP32Values: []float32{7}}, scalar)
	assert.True(t, scalar.IsScalar())
	assert.Equal(t, float32(7), scalar.Value())

	empty := tensors.New(dtypes.InvalidDType)
	MustRun(devCtx, attributes.Map{AttrShape: []int{0, 3}, AttrDType: int(dtypes.INT32)}, empty)
	assert.Equal(t, []int{0, 3}, empty.Shape().Dimensions)
	assert.Equal(t, 0, empty.Size())
}

func TestUnsupportedDType(t *testing.T) {
	devCtx := must.M1(devices.NewWithConfig("cpu"))
	out := tensors.FromFlatDataAndDimensions([]float32{9}, 1)
	attrs := attributes.Map{AttrShape: []int{1}, AttrDType: 99, AttrFP32Values: []float32{1}}
	err := Run(devCtx, attrs, out)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedDType)
	var dtypeErr *UnsupportedDTypeError
	require.True(t, errors.As(err, &dtypeErr))
	assert.Equal(t, 99, dtypeErr.DType)
	assert.Equal(t, "Unsupported dtype for assign_value_op: 99", err.Error())

	// Output untouched.
	assert.Equal(t, []float32{9}, out.Value())

	assert.Panics(t, func() { MustRun(devCtx, attrs, out) })

	for _, dtype := range []dtypes.DType{dtypes.Bool, dtypes.INT64, dtypes.FP16, dtypes.FP64, dtypes.UINT8} {
		_, err := ExpectedKernelDType(attributes.Map{AttrDType: int(dtype)})
		assert.ErrorIs(t, err, ErrUnsupportedDType, "dtype %s", dtype)
	}
}

func TestOverflowingShape(t *testing.T) {
	devCtx := must.M1(devices.NewWithConfig("cpu"))
	for _, attrs := range []attributes.Map{
		{AttrShape: []int{1<<62 + 1, 4}, AttrDType: int(dtypes.INT32), AttrInt32Values: []int32{1, 2, 3, 4}},
		{AttrShape: []int{1 << 32, 1 << 32}},
	} {
		out := tensors.New(dtypes.InvalidDType)
		err := Run(devCtx, attrs, out)
		require.Error(t, err, "shape %v", attrs[AttrShape])
		assert.ErrorIs(t, err, shapes.ErrInvalidDimension)
		assert.ErrorIs(t, err, attributes.ErrInvalidValue)
		assert.False(t, out.IsInitialized())

		// Kernel called directly, bypassing the attributes check.
		err = assign[int32](devCtx, attrs, out)
		assert.ErrorIs(t, err, shapes.ErrInvalidDimension)
		assert.False(t, out.IsInitialized())
	}
}

func TestOutOfRangeDTypeTag(t *testing.T) {
	devCtx := must.M1(devices.NewWithConfig("cpu"))
	out := tensors.New(dtypes.InvalidDType)
	// 1<<32 + 2 would truncate to INT32.
	for _, tag := range []any{int64(1<<32 + 2), 1<<32 + 5, -1} {
		err := Run(devCtx, attributes.Map{
			AttrShape:       []int{2},
			AttrDType:       tag,
			AttrInt32Values: []int32{1, 2},
			AttrFP32Values:  []float32{1, 2},
		}, out)
		require.Error(t, err, "dtype tag %v", tag)
		assert.ErrorIs(t, err, ErrUnsupportedDType)
		var dtypeErr *UnsupportedDTypeError
		require.True(t, errors.As(err, &dtypeErr))
		assert.EqualValues(t, tag, dtypeErr.DType)
		assert.False(t, out.IsInitialized())
	}
}

func TestShapeMismatch(t *testing.T) {
	forEachDevice(t, func(t *testing.T, devCtx devices.Context) {
		out := tensors.New(dtypes.InvalidDType)
		err := Run(devCtx, attributes.Map{
			AttrShape:       []int{2, 2},
			AttrDType:       int(dtypes.INT32),
			AttrInt32Values: []int32{1, 2, 3},
		}, out)
		assert.ErrorIs(t, err, ErrShapeMismatch)
		require.NoError(t, devCtx.Wait())
		assert.False(t, out.IsInitialized())

		// The values of the other dtype are ignored.
		err = Run(devCtx, attributes.Map{
			AttrShape:       []int{2},
			AttrInt32Values: []int32{1, 2},
		}, out)
		assert.ErrorIs(t, err, ErrShapeMismatch)
	})
}

func TestInvalidAttributes(t *testing.T) {
	devCtx := must.M1(devices.NewWithConfig("cpu"))
	out := tensors.New(dtypes.InvalidDType)
	assert.ErrorIs(t, Run(devCtx, attributes.Map{AttrFP32Values: []float32{1}}, out), attributes.ErrMissingRequired)
	assert.ErrorIs(t, Run(devCtx, attributes.Map{AttrShape: []int{-1}}, out), attributes.ErrInvalidValue)
	assert.ErrorIs(t, Run(devCtx, attributes.Map{AttrShape: []int{1}, "value": 1}, out), attributes.ErrUnknown)
	assert.ErrorIs(t, Run(devCtx, attributes.Map{AttrShape: []int{1}, AttrFP32Values: []string{"x"}}, out),
		attributes.ErrWrongType)
	assert.Error(t, Run(devCtx, attributes.Map{AttrShape: []int{1}}, nil))
	assert.False(t, out.IsInitialized())
}

func TestRegistration(t *testing.T) {
	info, err := ops.LookupOp(OpType)
	require.NoError(t, err)
	assert.Equal(t, []string{OutputSlot}, info.Outputs)
	assert.Equal(t, []ops.KernelKey{
		{DType: dtypes.INT32, Kind: devices.CPU},
		{DType: dtypes.INT32, Kind: devices.Stream},
		{DType: dtypes.FP32, Kind: devices.CPU},
		{DType: dtypes.FP32, Kind: devices.Stream},
	}, ops.KernelKeys(OpType))
	assert.Equal(t, []string{AttrShape, AttrDType, AttrInt32Values, AttrFP32Values}, Attributes().Names())
}

func TestExecutor(t *testing.T) {
	forEachDevice(t, func(t *testing.T, devCtx devices.Context) {
		program := executor.NewProgram()
		program.AppendOp(&ops.OpDesc{
			Type:    OpType,
			Outputs: map[string][]string{OutputSlot: {"x"}},
			Attrs: attributes.Map{
				AttrShape:       []int{3, 1},
				AttrDType:       int(dtypes.INT32),
				AttrInt32Values: []int32{7, 8, 9},
			},
		})
		program.AppendOp(&ops.OpDesc{
			Type:    OpType,
			Outputs: map[string][]string{OutputSlot: {"bad"}},
			Attrs:   attributes.Map{AttrShape: []int{1}, AttrDType: 99},
		})
		scope := executor.NewScope()
		err := executor.New(devCtx).Run(context.Background(), program, scope)
		assert.ErrorIs(t, err, ErrUnsupportedDType)
		assert.Equal(t, [][]int32{{7}, {8}, {9}}, scope.FindVar("x").Value())
		assert.Nil(t, scope.FindVar("bad"))
	})
}
