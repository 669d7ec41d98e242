// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package attributes

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	attrs := Map{
		"shape":        []int32{2, 3},
		"dtype":        int64(5),
		"fp32_values":  []float64{1.5, 2.5},
		"int32_values": []int{1, 1 << 40},
		"name":         "x",
	}

	shape, err := Get[[]int](attrs, "shape")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, shape)

	dtype, err := Get[int](attrs, "dtype")
	require.NoError(t, err)
	assert.Equal(t, 5, dtype)

	fp32, err := Get[[]float32](attrs, "fp32_values")
	require.NoError(t, err)
	assert.Equal(t, []float32{1.5, 2.5}, fp32)

	_, err = Get[[]int32](attrs, "int32_values")
	assert.ErrorIs(t, err, ErrWrongType, "1<<40 overflows int32")

	_, err = Get[int](attrs, "name")
	assert.ErrorIs(t, err, ErrWrongType)

	_, err = Get[[]int32](attrs, "fp32_values")
	assert.ErrorIs(t, err, ErrWrongType, "floats are not converted to integers")

	_, err = Get[int](attrs, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	v, err := GetOr(attrs, "missing", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	assert.Equal(t, "x", MustGet[string](attrs, "name"))
	assert.Panics(t, func() { _ = MustGet[string](attrs, "missing") })
}

func TestClone(t *testing.T) {
	values := []int32{1, 2}
	attrs := Map{"values": values}
	clone := attrs.Clone()
	values[0] = 10
	assert.Equal(t, []int32{1, 2}, clone["values"])
	assert.Equal(t, []string{"values"}, clone.Names())
	assert.Equal(t, Map{}, Map(nil).Clone())
}

func TestChecker(t *testing.T) {
	checker := NewChecker()
	checker.Add("shape").Required().Comment("output dimensions")
	checker.Add("dtype").Default(5).InSet(2, 5)
	checker.Add("values").Default([]int32{})
	errNegative := errors.New("must be non-negative")
	checker.Add("limit").Validate(func(value any) error {
		if value.(int) < 0 {
			return errNegative
		}
		return nil
	})
	assert.Panics(t, func() { checker.Add("shape") })

	input := Map{"shape": []int{2}}
	checked, err := checker.Check(input)
	require.NoError(t, err)
	assert.Equal(t, 5, checked["dtype"])
	assert.Equal(t, []int32{}, checked["values"])
	assert.False(t, checked.Has("limit"))
	assert.False(t, input.Has("dtype"), "input attributes must not be modified")

	// Allowed set is compared after conversion.
	_, err = checker.Check(Map{"shape": []int{2}, "dtype": int32(2)})
	require.NoError(t, err)

	_, err = checker.Check(Map{"shape": []int{2}, "dtype": 99})
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, err = checker.Check(Map{"shape": []int{2}, "limit": -1})
	assert.ErrorIs(t, err, ErrInvalidValue)
	assert.ErrorIs(t, err, errNegative, "validation error must be kept in the chain")
	assert.Contains(t, err.Error(), `"limit"`)

	_, err = checker.Check(Map{"dtype": 2})
	assert.ErrorIs(t, err, ErrMissingRequired)

	_, err = checker.Check(Map{"shape": []int{2}, "bogus": true})
	assert.ErrorIs(t, err, ErrUnknown)

	assert.Equal(t, "shape (required): output dimensions\ndtype (default 5)\nvalues (default [])\nlimit", checker.String())
}
