// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"reflect"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/opkernels/pkg/core/dtypes"
	"github.com/gomlx/opkernels/pkg/core/shapes"
	"github.com/pkg/errors"
)

// FromShape returns a Tensor with the given shape, with the data initialized with zeros.
//
// It panics if you provide an invalid shape.
func FromShape(shape shapes.Shape) *Tensor {
	if !shape.Ok() {
		exceptions.Panicf("tensors.FromShape(%s): invalid shape", shape)
	}
	size := shape.Size()
	flatV := reflect.MakeSlice(reflect.SliceOf(shape.DType.GoType()), size, size)
	return &Tensor{
		shape: shape.Clone(),
		flat:  flatV.Interface(),
	}
}

// FromScalar returns a scalar tensor with the given value.
func FromScalar[T dtypes.Supported](value T) *Tensor {
	return FromFlatDataAndDimensions([]T{value})
}

// FromFlatDataAndDimensions creates a tensor with the given dimensions, filled with the flattened values given in `data`.
// The data is copied to the Tensor.
//
// It panics if len(data) doesn't match the size given by the dimensions.
func FromFlatDataAndDimensions[T dtypes.Supported](data []T, dimensions ...int) *Tensor {
	dtype := dtypes.FromGenericsType[T]()
	shape := shapes.Make(dtype, dimensions...)
	if len(data) != shape.Size() {
		exceptions.Panicf("FromFlatDataAndDimensions(%s): data has %d elements, but shape requires %d",
			shape, len(data), shape.Size())
	}
	t := FromShape(shape)
	copyToFlat(t.flat, data)
	return t
}

// copyToFlat copies data ([]T) to flat, which is a slice of the dtype's Go type. They differ only for `int`,
// which is stored as int32 or int64 depending on the platform.
func copyToFlat[T dtypes.Supported](flat any, data []T) {
	if dst, ok := flat.([]T); ok {
		copy(dst, data)
		return
	}
	flatV := reflect.ValueOf(flat)
	elemT := flatV.Type().Elem()
	for ii, v := range data {
		flatV.Index(ii).Set(reflect.ValueOf(v).Convert(elemT))
	}
}

// FromAnyValue converts a scalar, or a regular multidimensional slice, of any of the supported types to a Tensor.
// If value is already a *Tensor, it is returned as is.
//
// It panics with an error if the value type is unsupported or the shape is not regular.
func FromAnyValue(value any) *Tensor {
	if valueT, ok := value.(*Tensor); ok {
		return valueT
	}
	shape, err := shapes.FromAnyValue(value)
	if err != nil {
		panic(errors.WithMessagef(err, "cannot create tensor from %T", value))
	}
	t := FromShape(shape)
	flatV := reflect.ValueOf(t.flat)
	if shape.IsScalar() {
		flatV.Index(0).Set(reflect.ValueOf(value).Convert(flatV.Type().Elem()))
		return t
	}
	copySlicesRecursively(flatV, reflect.ValueOf(value), shape.Strides())
	return t
}

// copySlicesRecursively copy values on a multi-dimension slice to a flat data slice
// assuming the strides for each dimension.
func copySlicesRecursively(data reflect.Value, mdSlice reflect.Value, strides []int) {
	if len(strides) == 1 {
		if mdSlice.Type().Elem() == data.Type().Elem() {
			reflect.Copy(data, mdSlice)
			return
		}
		// Go's `int`: converted element by element.
		elemT := data.Type().Elem()
		for ii := range mdSlice.Len() {
			data.Index(ii).Set(mdSlice.Index(ii).Convert(elemT))
		}
		return
	}
	numElements := mdSlice.Len()
	subStrides := strides[1:]
	for ii := 0; ii < numElements; ii++ {
		start := ii * strides[0]
		end := (ii + 1) * strides[0]
		copySlicesRecursively(data.Slice(start, end), mdSlice.Index(ii), subStrides)
	}
}

// ConstFlatData calls accessFn with the flattened data as a slice of the Go type corresponding to the DType type.
// Even scalar values have a flattened data representation of one element.
// It locks the Tensor until accessFn returns.
//
// This provides accessFn with the actual Tensor data (not a copy), and it's owned by the Tensor: it should not be
// changed. See Tensor.MutableFlatData to access a mutable version of the flat data.
func (t *Tensor) ConstFlatData(accessFn func(flat any)) error {
	if t == nil {
		return errors.New("Tensor is nil")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.lockedCheckValid(); err != nil {
		return err
	}
	accessFn(t.flat)
	return nil
}

// MustConstFlatData is like ConstFlatData, but panics on error.
func (t *Tensor) MustConstFlatData(accessFn func(flat any)) {
	must(t.ConstFlatData(accessFn))
}

// MutableFlatData calls accessFn with a flat slice pointing to the Tensor data.
// The type of the slice corresponds to the DType of the tensor.
// The contents of the slice itself can be changed until accessFn returns.
// During this time the Tensor is locked.
func (t *Tensor) MutableFlatData(accessFn func(flat any)) error {
	// Storage is always local, so there is no copy to invalidate.
	return t.ConstFlatData(accessFn)
}

// ConstFlatData calls accessFn with the flattened data as a slice of the Go type corresponding to the DType type.
//
// It is the "generics" version of Tensor.ConstFlatData(): it returns an error matching ErrDTypeMismatch if T doesn't
// match the tensor's dtype.
func ConstFlatData[T dtypes.Supported](t *Tensor, accessFn func(flat []T)) error {
	wantDType := dtypes.FromGenericsType[T]()
	if dtype := t.DType(); dtype != wantDType {
		var v T
		return errors.Wrapf(ErrDTypeMismatch, "ConstFlatData[%T] is incompatible with Tensor's dtype %s -- expected dtype %s",
			v, dtype, wantDType)
	}
	var err error
	errAccess := t.ConstFlatData(func(anyFlat any) {
		flat, ok := anyFlat.([]T)
		if !ok {
			// Go's `int`: the storage is []int32 or []int64.
			err = errors.Wrapf(ErrDTypeMismatch, "storage is %T", anyFlat)
			return
		}
		accessFn(flat)
	})
	if errAccess != nil {
		return errAccess
	}
	return err
}

// MustConstFlatData is the generic version of Tensor.MustConstFlatData. It panics on error.
func MustConstFlatData[T dtypes.Supported](t *Tensor, accessFn func(flat []T)) {
	must(ConstFlatData(t, accessFn))
}

// CopyFlatData returns a copy of the flat data of the Tensor.
func CopyFlatData[T dtypes.Supported](t *Tensor) ([]T, error) {
	var data []T
	err := ConstFlatData(t, func(flat []T) {
		data = make([]T, len(flat))
		copy(data, flat)
	})
	return data, err
}

// MustCopyFlatData is like CopyFlatData, but panics on error.
func MustCopyFlatData[T dtypes.Supported](t *Tensor) []T {
	data, err := CopyFlatData[T](t)
	must(err)
	return data
}

// ToScalar returns the scalar value of the Tensor. It panics if the tensor is not a scalar (one element) of type T.
func ToScalar[T dtypes.Supported](t *Tensor) T {
	data := MustCopyFlatData[T](t)
	if len(data) != 1 {
		exceptions.Panicf("ToScalar[%T] called on a tensor with %d elements", *new(T), len(data))
	}
	return data[0]
}

// Value returns a multidimensional slice (except if shape is a scalar) containing a copy of the values stored
// in the tensor.
// It panics if the tensor is not valid, see ValueSafe.
func (t *Tensor) Value() any {
	value, err := t.ValueSafe()
	must(err)
	return value
}

// ValueSafe is like Value, but returns an error instead of panicking.
func (t *Tensor) ValueSafe() (any, error) {
	var value any
	err := t.ConstFlatData(func(flat any) {
		flatV := reflect.ValueOf(flat)
		if t.shape.IsScalar() {
			value = flatV.Index(0).Interface()
			return
		}
		cloneV := reflect.MakeSlice(flatV.Type(), flatV.Len(), flatV.Len())
		reflect.Copy(cloneV, flatV)
		value = convertDataToSlices(cloneV, t.shape.Dimensions...).Interface()
	})
	return value, err
}

// convertDataToSlices takes data as a flat slice and creates a multidimensional slice with the given dimensions that
// points to the given data.
func convertDataToSlices(dataV reflect.Value, dimensions ...int) reflect.Value {
	if len(dimensions) <= 1 {
		return dataV
	}
	resultT := dataV.Type().Elem()
	for range dimensions {
		resultT = reflect.SliceOf(resultT)
	}
	strides := shapes.Shape{Dimensions: dimensions}.Strides()
	return createSlicesRecursively(resultT, dataV, dimensions, strides)
}

// createSlicesRecursively recursively creates slices pointing to the flat data, assuming the strides for each dimension.
func createSlicesRecursively(resultT reflect.Type, data reflect.Value, dimensions []int, strides []int) reflect.Value {
	if len(strides) == 1 {
		return data
	}
	numElements := dimensions[0]
	slice := reflect.MakeSlice(resultT, numElements, numElements)
	subStrides := strides[1:]
	subDimensions := dimensions[1:]
	subResultT := resultT.Elem()
	for ii := 0; ii < numElements; ii++ {
		start := ii * strides[0]
		end := (ii + 1) * strides[0]
		subSlice := createSlicesRecursively(subResultT, data.Slice(start, end), subDimensions, subStrides)
		slice.Index(ii).Set(subSlice)
	}
	return slice
}

// Equal checks weather t == otherTensor: same shape and same values.
// If they are the same pointer, they are considered equal.
// If either side is invalid, it panics.
func (t *Tensor) Equal(otherTensor *Tensor) bool {
	t.AssertValid()
	otherTensor.AssertValid()
	if t == otherTensor {
		return true
	}
	if !t.Shape().Equal(otherTensor.Shape()) {
		return false
	}
	equal := true
	t.MustConstFlatData(func(flat0 any) {
		otherTensor.MustConstFlatData(func(flat1 any) {
			t0V, t1V := reflect.ValueOf(flat0), reflect.ValueOf(flat1)
			for ii := range t0V.Len() {
				if !t0V.Index(ii).Equal(t1V.Index(ii)) {
					equal = false
					return
				}
			}
		})
	})
	return equal
}

// lenOf returns the length of a slice given as any.
func lenOf(slice any) int {
	return reflect.ValueOf(slice).Len()
}
