// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package tensors implement a `Tensor`, a representation of a multidimensional array.
//
// Tensors are multidimensional arrays (from scalar with 0 dimensions, to arbitrarily large dimensions), defined
// by their shape (a data type and its axes' dimensions) and their actual content, stored as a flat slice of
// the Go type of the dtype, in row-major order.
//
// Tensors are the outputs of operator kernels: the execution framework creates an empty (uninitialized)
// tensor for each output variable, and the kernel fills its storage (see CopyFromVector) and sets its
// dimensions (see Tensor.Resize). The tensor's lifetime is owned by the scope holding it, not by the kernel.
//
// There are various ways to construct a Tensor from local data:
//
//   - New(dtype dtypes.DType): an empty tensor, with no storage, to be filled by a kernel.
//
//   - FromShape(shape shapes.Shape): creates a tensor with the given shape, and zero values.
//
//   - FromFlatDataAndDimensions[T dtypes.Supported](data []T, dimensions ...int): creates a Tensor with the
//     given dimensions and set the flattened values with the given data. Example:
//
//     t := FromFlatDataAndDimensions([]int32{1, 2, 3, 4}, 2, 2}) // Tensor with [[1,2], [3,4]]
//
//   - FromAnyValue(value any): converts a scalar or a regular multidimensional slice. Example:
//
//     t := FromAnyValue([][]float32{{1,2}, {3, 5}, {7, 11}})
//
// Storage written through an asynchronous device context (see package devices) is only valid after the
// device context's Wait returns.
package tensors

import (
	"sync"

	"github.com/gomlx/opkernels/pkg/core/devices"
	"github.com/gomlx/opkernels/pkg/core/dtypes"
	"github.com/gomlx/opkernels/pkg/core/shapes"
	"github.com/pkg/errors"
)

// Tensor represents a multidimensional array (from scalar with 0 dimensions, to arbitrarily large dimensions), defined
// by their shape, a data type (dtypes.DType) and its axes' dimensions, and their actual content stored as a flat (1D)
// array of values.
//
// A Tensor may be uninitialized (no storage yet): that is the state of output variables before a kernel runs.
type Tensor struct {
	// mu protects all fields.
	mu sync.Mutex

	// shape of the tensor. For uninitialized tensors only the DType may be set.
	shape shapes.Shape

	// flat holds the data: a slice of the Go type for the shape's dtype. nil if uninitialized.
	flat any

	// place where the storage was written to.
	place devices.Place

	finalized bool
}

var (
	// ErrSizeMismatch is returned when resizing would change the number of elements of the tensor.
	ErrSizeMismatch = errors.New("number of elements mismatch")

	// ErrNotInitialized is returned when accessing the data of a tensor without storage.
	ErrNotInitialized = errors.New("tensor has no storage")

	// ErrDTypeMismatch is returned when accessing the data with a Go type that doesn't match the tensor's dtype.
	ErrDTypeMismatch = errors.New("dtype mismatch")
)

// New returns an uninitialized tensor: it has no storage and no dimensions.
// The dtype may be dtypes.InvalidDType if unknown, it will be set when storage is assigned.
func New(dtype dtypes.DType) *Tensor {
	return &Tensor{shape: shapes.Shape{DType: dtype}}
}

// Shape of the tensor, includes DType.
func (t *Tensor) Shape() shapes.Shape {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.shape.Clone()
}

// DType returns the DType of the tensor's shape.
// It is a shortcut to `Tensor.Shape().DType`.
func (t *Tensor) DType() dtypes.DType {
	if t == nil {
		return dtypes.InvalidDType
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.shape.DType
}

// Rank returns the rank of the tensor's shape.
// It is a shortcut to `Tensor.Shape().Rank()`.
func (t *Tensor) Rank() int { return t.Shape().Rank() }

// IsScalar returns whether the tensor represents a scalar value.
// It is a shortcut to `Tensor.Shape().IsScalar()`.
func (t *Tensor) IsScalar() bool { return t.Shape().IsScalar() }

// Size returns the number of elements in the tensor.
// It is a shortcut to `Tensor.Shape().Size()`.
func (t *Tensor) Size() int { return t.Shape().Size() }

// Memory returns the number of bytes used to store the tensor. An alias to Tensor.Shape().Memory().
func (t *Tensor) Memory() uintptr {
	if !t.IsInitialized() {
		return 0
	}
	return t.Shape().Memory()
}

// Place returns where the tensor storage was written to.
func (t *Tensor) Place() devices.Place {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.place
}

// IsInitialized returns whether the tensor has storage.
func (t *Tensor) IsInitialized() bool {
	if t == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flat != nil && !t.finalized
}

// Ok returns whether the Tensor is in a valid state: it is not nil, it has storage, and it hasn't been finalized.
func (t *Tensor) Ok() bool {
	return t.CheckValid() == nil
}

// CheckValid returns an error if it's nil, uninitialized, has been finalized, or if its shape is invalid.
func (t *Tensor) CheckValid() error {
	if t == nil {
		return errors.New("Tensor is nil")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lockedCheckValid()
}

func (t *Tensor) lockedCheckValid() error {
	if t.finalized {
		return errors.New("Tensor has been finalized")
	}
	if t.flat == nil {
		return ErrNotInitialized
	}
	if !t.shape.Ok() {
		return errors.Errorf("Tensor shape %s is invalid", t.shape)
	}
	return nil
}

// AssertValid panics if it's nil, uninitialized, has been finalized, or if its shape is invalid.
func (t *Tensor) AssertValid() {
	if err := t.CheckValid(); err != nil {
		panic(err)
	}
}

// Resize changes the dimensions of the tensor. It is pure metadata: the storage is not touched.
//
// For an initialized tensor the number of elements must be preserved, otherwise it returns
// an error matching ErrSizeMismatch and the tensor is left unchanged.
// For an uninitialized tensor it only records the dimensions.
func (t *Tensor) Resize(dimensions ...int) error {
	if err := shapes.CheckDims(dimensions...); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finalized {
		return errors.New("cannot resize a finalized Tensor")
	}
	if t.flat != nil {
		newSize := shapes.SizeOf(dimensions...)
		if current := lenOf(t.flat); newSize != current {
			return errors.Wrapf(ErrSizeMismatch, "cannot resize tensor %s with %d elements to dimensions %v (%d elements)",
				t.shape, current, dimensions, newSize)
		}
	}
	t.shape = t.shape.WithDimensions(dimensions...)
	return nil
}

// MustResize is like Resize, but panics on error.
func (t *Tensor) MustResize(dimensions ...int) {
	must(t.Resize(dimensions...))
}

// FinalizeAll immediately frees the associated storage and leaves the Tensor in an invalid state.
//
// It's the caller's responsibility to ensure no asynchronous device operation is still writing to it.
func (t *Tensor) FinalizeAll() {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.flat = nil
	t.shape = shapes.Invalid()
	t.finalized = true
}

// must panics if err is not nil.
func must(err error) {
	if err != nil {
		panic(err)
	}
}
