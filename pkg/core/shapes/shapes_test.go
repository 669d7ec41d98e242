// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"testing"

	"github.com/gomlx/opkernels/pkg/core/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShape(t *testing.T) {
	invalidShape := Invalid()
	require.False(t, invalidShape.Ok())
	require.False(t, Shape{DType: 99}.Ok())

	shape0 := Make(dtypes.Float64)
	require.True(t, shape0.Ok())
	require.True(t, shape0.IsScalar())
	require.Equal(t, 0, shape0.Rank())
	require.Len(t, shape0.Dimensions, 0)
	require.Equal(t, 1, shape0.Size())
	require.Equal(t, 8, int(shape0.Memory()))

	shape1 := Make(dtypes.Float32, 4, 3, 2)
	require.True(t, shape1.Ok())
	require.False(t, shape1.IsScalar())
	require.Equal(t, 3, shape1.Rank())
	require.Equal(t, 4*3*2, shape1.Size())
	require.Equal(t, 4*4*3*2, int(shape1.Memory()))
	require.Equal(t, "(Float32)[4 3 2]", shape1.String())

	require.Panics(t, func() { _ = Make(dtypes.Int32, 2, -1) })
	require.True(t, Make(dtypes.Int32, 2, 0).IsZeroSize())
}

func TestDim(t *testing.T) {
	shape := Make(dtypes.Float32, 4, 3, 2)
	require.Equal(t, 4, shape.Dim(0))
	require.Equal(t, 2, shape.Dim(-1))
	require.Equal(t, 4, shape.Dim(-3))
	require.Panics(t, func() { _ = shape.Dim(3) })
	require.Panics(t, func() { _ = shape.Dim(-4) })
}

func TestCheckDims(t *testing.T) {
	require.NoError(t, CheckDims())
	require.NoError(t, CheckDims(2, 0, 3))
	err := CheckDims(2, -1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidDimension)
	assert.Equal(t, 6, SizeOf(2, 3))
	assert.Equal(t, 1, SizeOf())

	// Number of elements overflowing int.
	assert.ErrorIs(t, CheckDims(1<<62+1, 4), ErrInvalidDimension)
	assert.ErrorIs(t, CheckDims(1<<32, 1<<32), ErrInvalidDimension)
	require.NoError(t, CheckDims(1<<32, 1<<30))
	require.NoError(t, CheckDims(1<<62, 1<<62, 0), "empty shapes never overflow")
}

func TestEqualAndClone(t *testing.T) {
	s := Make(dtypes.Int32, 2, 2)
	c := s.Clone()
	c.Dimensions[0] = 4
	assert.Equal(t, 2, s.Dimensions[0])
	assert.False(t, s.Equal(c))
	assert.True(t, s.Equal(Make(dtypes.Int32, 2, 2)))
	assert.False(t, s.Equal(Make(dtypes.Float32, 2, 2)))
	assert.True(t, s.EqualDimensions(Make(dtypes.Float32, 2, 2)))
	assert.True(t, s.WithDimensions(4).Equal(Make(dtypes.Int32, 4)))
}

func TestStridesAndIter(t *testing.T) {
	s := Make(dtypes.Float32, 2, 3)
	assert.Equal(t, []int{3, 1}, s.Strides())

	var got [][]int
	for flatIdx, indices := range s.Iter() {
		assert.Equal(t, len(got), flatIdx)
		got = append(got, append([]int(nil), indices...))
	}
	assert.Equal(t, [][]int{{0, 0}, {0, 1}, {0, 2}, {1, 0}, {1, 1}, {1, 2}}, got)

	count := 0
	for range Make(dtypes.Float32).Iter() {
		count++
	}
	assert.Equal(t, 1, count)

	count = 0
	for range Make(dtypes.Float32, 3, 0).Iter() {
		count++
	}
	assert.Equal(t, 0, count)
}

func TestFromAnyValue(t *testing.T) {
	shape, err := FromAnyValue([]int32{1, 2, 3})
	require.NoError(t, err)
	assert.True(t, shape.Equal(Make(dtypes.Int32, 3)))

	shape, err = FromAnyValue([][]float32{{1, 2}, {3, 4}, {5, 6}})
	require.NoError(t, err)
	assert.True(t, shape.Equal(Make(dtypes.Float32, 3, 2)))

	shape, err = FromAnyValue(float32(7))
	require.NoError(t, err)
	assert.True(t, shape.IsScalar())

	// Irregular shape is not accepted:
	shape, err = FromAnyValue([][]float32{{1, 2, 3}, {4, 5}})
	require.Errorf(t, err, "irregular shape should have returned an error, instead got shape %s", shape)

	_, err = FromAnyValue([]string{"a"})
	require.Error(t, err)
	_, err = FromAnyValue([]int32{})
	require.Error(t, err)
	_, err = FromAnyValue(nil)
	require.Error(t, err)
}
