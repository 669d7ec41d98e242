// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package shapes defines Shape and associated tools.
//
// Shape represents the dimensions and DType of a Tensor. It is pure metadata: changing the
// shape of a tensor (a "resize" or "reshape") never moves data, it only reinterprets the flat
// storage, which is always laid out in row-major order.
//
// ## Glossary
//
//   - Rank: number of axes (dimensions) of a Tensor.
//   - Axis: is the index of a dimension on a multidimensional Tensor.
//   - Dimension: the size of a multi-dimensions Tensor in one of its axes.
//   - DType: the data type of the unit element in a tensor. Enumeration defined in package dtypes.
//   - Scalar: is a shape where there are no axes (or dimensions), only a single value
//     of the associated DType.
//
// Example: The multi-dimensional array `[][]int32{{0, 1, 2}, {3, 4, 5}}` if converted to a Tensor
// would have shape `(Int32)[2 3]`. We say it has rank 2 (so 2 axes), axis 0 has
// dimension 2, and axis 1 has dimension 3. This shape could be created with
// `shapes.Make(dtypes.Int32, 2, 3)`.
package shapes

import (
	"fmt"
	"math"
	"math/bits"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/opkernels/pkg/core/dtypes"
	"github.com/pkg/errors"
)

// Shape represents the shape of a Tensor.
//
// Use Make to create a new shape.
type Shape struct {
	DType      dtypes.DType
	Dimensions []int
}

// ErrInvalidDimension is returned by CheckDims for negative dimensions, or dimensions whose number of
// elements doesn't fit an int.
var ErrInvalidDimension = errors.New("invalid dimension")

// Make returns a Shape structure filled with the values given.
//
// It panics if any of the dimensions is negative or if the number of elements overflows int.
func Make(dtype dtypes.DType, dimensions ...int) Shape {
	s := Shape{Dimensions: slices.Clone(dimensions), DType: dtype}
	if err := CheckDims(dimensions...); err != nil {
		exceptions.Panicf("shapes.Make(%s): %v", s, err)
	}
	return s
}

// Scalar returns a scalar Shape for the given type.
func Scalar[T dtypes.Supported]() Shape {
	return Shape{DType: dtypes.FromGenericsType[T]()}
}

// Invalid returns an invalid shape.
//
// Invalid().Ok() == false.
func Invalid() Shape {
	return Shape{DType: dtypes.InvalidDType}
}

// CheckDims returns an error if any of the dimensions is negative, or if their product (the number of
// elements) overflows an int.
// A zero dimension is accepted: it represents an empty axis.
func CheckDims(dimensions ...int) error {
	hasZero := false
	for axis, dim := range dimensions {
		if dim < 0 {
			return errors.Wrapf(ErrInvalidDimension, "axis %d has dimension %d in %v", axis, dim, dimensions)
		}
		hasZero = hasZero || dim == 0
	}
	if hasZero {
		return nil
	}
	var size uint64 = 1
	for _, dim := range dimensions {
		hi, lo := bits.Mul64(size, uint64(dim))
		if hi != 0 || lo > math.MaxInt {
			return errors.Wrapf(ErrInvalidDimension, "number of elements of dimensions %v overflows int", dimensions)
		}
		size = lo
	}
	return nil
}

// SizeOf returns the number of elements for the given dimensions: the product of all of them, 1 for a scalar.
// The dimensions must have passed CheckDims.
func SizeOf(dimensions ...int) int {
	size := 1
	for _, d := range dimensions {
		size *= d
	}
	return size
}

// Ok returns whether this is a valid Shape.
func (s Shape) Ok() bool { return s.DType.IsValid() }

// Rank of the shape, that is, the number of dimensions.
func (s Shape) Rank() int { return len(s.Dimensions) }

// IsScalar returns whether the shape represents a scalar, that is there are no dimensions (rank==0).
func (s Shape) IsScalar() bool { return s.Ok() && s.Rank() == 0 }

// IsZeroSize returns whether any of the axes has dimension 0.
func (s Shape) IsZeroSize() bool {
	return slices.Contains(s.Dimensions, 0)
}

// Dim returns the dimension of the given axis. axis can take negative numbers, in which
// case it counts as starting from the end -- so axis=-1 refers to the last axis.
// Like with a slice indexing, it panics for an out-of-bound axis.
func (s Shape) Dim(axis int) int {
	adjustedAxis := axis
	if adjustedAxis < 0 {
		adjustedAxis += s.Rank()
	}
	if adjustedAxis < 0 || adjustedAxis >= s.Rank() {
		exceptions.Panicf("Shape.Dim(%d) out-of-bounds for rank %d (shape=%s)", axis, s.Rank(), s)
	}
	return s.Dimensions[adjustedAxis]
}

// String implements stringer, pretty-prints the shape.
func (s Shape) String() string {
	if s.Rank() == 0 {
		return fmt.Sprintf("(%s)", s.DType)
	}
	return fmt.Sprintf("(%s)%v", s.DType, s.Dimensions)
}

// Size returns the number of elements of DType are needed for this shape. It's the product of all dimensions.
func (s Shape) Size() int {
	return SizeOf(s.Dimensions...)
}

// Memory returns the memory used to store an array of the given shape, the same as the size in bytes.
func (s Shape) Memory() uintptr {
	if !s.Ok() {
		return 0
	}
	return s.DType.Memory() * uintptr(s.Size())
}

// Equal compares two shapes for equality: dtype and dimensions are compared.
func (s Shape) Equal(s2 Shape) bool {
	if s.DType != s2.DType {
		return false
	}
	return s.EqualDimensions(s2)
}

// EqualDimensions compares two shapes for equality of dimensions. Dtypes can be different.
func (s Shape) EqualDimensions(s2 Shape) bool {
	return slices.Equal(s.Dimensions, s2.Dimensions)
}

// Clone returns a new deep copy of the shape.
func (s Shape) Clone() (s2 Shape) {
	s2.DType = s.DType
	s2.Dimensions = slices.Clone(s.Dimensions)
	return
}

// WithDimensions returns a copy of the shape, with the same DType, but the given dimensions.
func (s Shape) WithDimensions(dimensions ...int) Shape {
	return Shape{DType: s.DType, Dimensions: slices.Clone(dimensions)}
}
