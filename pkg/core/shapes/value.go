// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"reflect"

	"github.com/gomlx/opkernels/pkg/core/dtypes"
	"github.com/pkg/errors"
)

// FromAnyValue returns the shape of a scalar or of a regular multi-dimensional slice of a supported type.
//
// Slices of rank > 1 must be regular: all sub-slices at the same level must have the same length.
// Empty slices can't be represented, since the element type alone carries no dimension information
// for the inner axes.
func FromAnyValue(value any) (Shape, error) {
	if value == nil {
		return Invalid(), errors.New("cannot get the shape of a nil value")
	}
	var shape Shape
	err := shapeForValueRecursive(&shape, reflect.ValueOf(value), reflect.TypeOf(value))
	if err != nil {
		return Invalid(), err
	}
	return shape, nil
}

func shapeForValueRecursive(shape *Shape, v reflect.Value, t reflect.Type) error {
	switch t.Kind() {
	case reflect.Slice:
		t = t.Elem()
		shape.Dimensions = append(shape.Dimensions, v.Len())
		shapePrefix := shape.Clone()
		if v.Len() == 0 {
			return errors.Errorf("value with empty slice not valid for shape conversion: %s", v.Type())
		}

		// The first element is the reference.
		err := shapeForValueRecursive(shape, v.Index(0), t)
		if err != nil {
			return err
		}

		// Test that other elements have the same shape as the first one.
		for ii := 1; ii < v.Len(); ii++ {
			shapeTest := shapePrefix.Clone()
			err = shapeForValueRecursive(&shapeTest, v.Index(ii), t)
			if err != nil {
				return err
			}
			if !shape.Equal(shapeTest) {
				return errors.Errorf("sub-slices have irregular shapes, found shapes %q, and %q", shape, shapeTest)
			}
		}

	case reflect.Pointer:
		return errors.Errorf("cannot convert Pointer (%s) to a concrete value for tensors", t)

	default:
		shape.DType = dtypes.FromGoType(t)
		if shape.DType == dtypes.InvalidDType {
			return errors.Errorf("cannot convert type %s to a concrete tensor type", t)
		}
	}
	return nil
}
