// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"testing"

	"github.com/gomlx/opkernels/pkg/core/devices"
	"github.com/gomlx/opkernels/pkg/core/dtypes"
	"github.com/gomlx/opkernels/pkg/core/shapes"
	mustpkg "github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func TestFromShape(t *testing.T) {
	tensor := FromShape(shapes.Make(dtypes.Float32, 2, 3))
	require.True(t, tensor.Ok())
	assert.Equal(t, 6, tensor.Size())
	assert.Equal(t, 2, tensor.Rank())
	assert.Equal(t, uintptr(24), tensor.Memory())
	assert.Equal(t, [][]float32{{0, 0, 0}, {0, 0, 0}}, tensor.Value())
	require.Panics(t, func() { _ = FromShape(shapes.Invalid()) })
}

func TestFromFlatDataAndDimensions(t *testing.T) {
	tensor := FromFlatDataAndDimensions([]int32{1, 2, 3, 4}, 2, 2)
	assert.Equal(t, dtypes.Int32, tensor.DType())
	assert.Equal(t, [][]int32{{1, 2}, {3, 4}}, tensor.Value())

	scalar := FromScalar(float32(7))
	assert.True(t, scalar.IsScalar())
	assert.Equal(t, float32(7), scalar.Value())
	assert.Equal(t, float32(7), ToScalar[float32](scalar))

	goInts := FromFlatDataAndDimensions([]int{1, 2, 3}, 3)
	assert.Equal(t, dtypes.Int64, goInts.DType())
	assert.Equal(t, []int64{1, 2, 3}, goInts.Value())

	require.Panics(t, func() { _ = FromFlatDataAndDimensions([]int32{1, 2, 3}, 2, 2) })
}

func TestFromAnyValue(t *testing.T) {
	tensor := FromAnyValue([][]float32{{1, 2}, {3, 4}, {5, 6}})
	assert.True(t, tensor.Shape().Equal(shapes.Make(dtypes.Float32, 3, 2)))
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, MustCopyFlatData[float32](tensor))

	assert.Same(t, tensor, FromAnyValue(tensor))
	assert.Equal(t, int8(3), FromAnyValue(int8(3)).Value())
	assert.Equal(t, []int64{1, 2}, FromAnyValue([]int{1, 2}).Value())
	require.Panics(t, func() { _ = FromAnyValue([][]int32{{1}, {2, 3}}) })
}

func TestResize(t *testing.T) {
	tensor := FromFlatDataAndDimensions([]float32{1, 2, 3, 4, 5, 6}, 6)
	require.NoError(t, tensor.Resize(2, 3))
	assert.Equal(t, []int{2, 3}, tensor.Shape().Dimensions)
	assert.Equal(t, [][]float32{{1, 2, 3}, {4, 5, 6}}, tensor.Value())

	// Metadata only: same storage.
	require.NoError(t, tensor.Resize(3, 2))
	assert.Equal(t, [][]float32{{1, 2}, {3, 4}, {5, 6}}, tensor.Value())

	err := tensor.Resize(4, 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSizeMismatch)
	assert.Equal(t, []int{3, 2}, tensor.Shape().Dimensions, "failed resize must not change the tensor")

	err = tensor.Resize(-1, 6)
	assert.ErrorIs(t, err, shapes.ErrInvalidDimension)
	assert.Panics(t, func() { tensor.MustResize(5) })

	empty := New(dtypes.Int32)
	require.False(t, empty.IsInitialized())
	require.NoError(t, empty.Resize(7, 7))
	assert.Equal(t, []int{7, 7}, empty.Shape().Dimensions)
	assert.Equal(t, uintptr(0), empty.Memory())
}

func TestCopyFromVector(t *testing.T) {
	for _, config := range []string{"cpu", "stream:2"} {
		t.Run(config, func(t *testing.T) {
			devCtx := mustpkg.M1(devices.NewWithConfig(config))
			defer devCtx.Finalize()

			out := New(dtypes.InvalidDType)
			values := []int32{1, 2, 3, 4}
			require.NoError(t, CopyFromVector(values, devCtx, out))
			require.NoError(t, devCtx.Wait())
			assert.Equal(t, devCtx.Place(), out.Place())
			assert.True(t, out.Shape().Equal(shapes.Make(dtypes.Int32, 4)))
			assert.Equal(t, values, MustCopyFlatData[int32](out))

			// Storage is a copy.
			values[0] = 100
			assert.Equal(t, int32(1), MustCopyFlatData[int32](out)[0])

			// Replacing content with a different type.
			require.NoError(t, CopyFromVector([]float32{1.5, 2.5}, devCtx, out))
			require.NoError(t, devCtx.Wait())
			assert.Equal(t, dtypes.Float32, out.DType())
			assert.Equal(t, []float32{1.5, 2.5}, out.Value())
		})
	}

	cpu := mustpkg.M1(devices.NewWithConfig("cpu"))
	require.Error(t, CopyFromVector([]int32{1}, cpu, nil))
	require.Error(t, CopyFromVector([]int32{1}, nil, New(dtypes.Int32)))
	require.Error(t, CopyFromVector([]int{1}, cpu, New(dtypes.Int64)))

	finalized := New(dtypes.Int32)
	finalized.FinalizeAll()
	require.Error(t, CopyFromVector([]int32{1}, cpu, finalized))
}

func TestConstFlatData(t *testing.T) {
	tensor := FromFlatDataAndDimensions([]float32{1, 2}, 2)
	err := ConstFlatData(tensor, func(flat []int32) {})
	assert.ErrorIs(t, err, ErrDTypeMismatch)

	err = New(dtypes.Float32).ConstFlatData(func(flat any) {})
	assert.ErrorIs(t, err, ErrNotInitialized)

	require.NoError(t, tensor.MutableFlatData(func(flat any) {
		flat.([]float32)[1] = 5
	}))
	assert.Equal(t, []float32{1, 5}, tensor.Value())

	tensor.FinalizeAll()
	assert.False(t, tensor.Ok())
	assert.Error(t, tensor.CheckValid())
	assert.Panics(t, func() { tensor.AssertValid() })
}

func TestEqual(t *testing.T) {
	a := FromFlatDataAndDimensions([]int32{1, 2, 3, 4}, 2, 2)
	b := FromAnyValue([][]int32{{1, 2}, {3, 4}})
	c := FromFlatDataAndDimensions([]int32{1, 2, 3, 4}, 4)
	assert.True(t, a.Equal(a))
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	b.MustConstFlatData(func(flat any) { flat.([]int32)[3] = 0 })
	assert.False(t, a.Equal(b))
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "[2][2]int32{{1, 2},\n {3, 4}}", FromFlatDataAndDimensions([]int32{1, 2, 3, 4}, 2, 2).String())
	assert.Equal(t, "[2]float32{1.5, 2.5}", FromFlatDataAndDimensions([]float32{1.5, 2.5}, 2).String())
	assert.Equal(t, "float32(3)", FromScalar(float32(3)).String())
	assert.Equal(t, "[8]int32{0, 1, 2, ..., 5, 6, 7}",
		FromFlatDataAndDimensions([]int32{0, 1, 2, 3, 4, 5, 6, 7}, 8).String())
	assert.Equal(t, "[1]float16.Float16{0.5}",
		FromFlatDataAndDimensions([]float16.Float16{float16.Fromfloat32(0.5)}, 1).String())
	assert.Equal(t, "(Int32)<uninitialized>", New(dtypes.Int32).String())
}
