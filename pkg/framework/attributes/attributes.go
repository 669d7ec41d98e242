// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package attributes implements the attribute store of operators: named, statically supplied
// configuration values attached to an operator instance (as opposed to runtime tensor inputs).
//
// A Map is filled by whoever builds the operator and is read-only afterwards. Kernels read typed
// values with Get, which accepts the usual numeric conversions (any integer kind for an int, []int32
// for []int, []float64 for []float32, ...), so attributes decoded from different sources work the same.
//
// Operators declare their attributes with a Checker, which fills in defaults and validates values
// before a kernel ever sees them.
package attributes

import (
	"maps"
	"reflect"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
)

// Map of attribute names to values. Supported value types are bool, string, the Go integer and float
// types, and slices of those.
type Map map[string]any

var (
	// ErrNotFound is returned when an attribute is not present.
	ErrNotFound = errors.New("attribute not found")

	// ErrWrongType is returned when an attribute can't be converted to the requested type.
	ErrWrongType = errors.New("attribute has the wrong type")
)

// Clone returns a copy of the map. Slice values are copied too, so changes to the slices given by the
// caller don't affect the clone.
func (m Map) Clone() Map {
	if m == nil {
		return Map{}
	}
	clone := make(Map, len(m))
	for name, value := range m {
		v := reflect.ValueOf(value)
		if v.Kind() == reflect.Slice {
			cloneV := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
			reflect.Copy(cloneV, v)
			value = cloneV.Interface()
		}
		clone[name] = value
	}
	return clone
}

// Has returns whether the attribute is present.
func (m Map) Has(name string) bool {
	_, found := m[name]
	return found
}

// Names returns the sorted list of attribute names.
func (m Map) Names() []string {
	return slices.Sorted(maps.Keys(m))
}

// Get returns the attribute converted to T.
//
// Numeric conversions between Go integer kinds (and between float kinds) are accepted for scalars and
// slices, as long as no integer value overflows the target type.
func Get[T any](m Map, name string) (T, error) {
	var zero T
	value, found := m[name]
	if !found {
		return zero, errors.Wrapf(ErrNotFound, "%q", name)
	}
	if typed, ok := value.(T); ok {
		return typed, nil
	}
	converted, err := convert(value, reflect.TypeFor[T]())
	if err != nil {
		return zero, errors.WithMessagef(err, "attribute %q", name)
	}
	return converted.(T), nil
}

// MustGet is like Get, but panics (with an error) if the attribute is missing or has the wrong type.
func MustGet[T any](m Map, name string) T {
	value, err := Get[T](m, name)
	if err != nil {
		exceptions.Panicf("%v", err)
	}
	return value
}

// GetOr returns the attribute converted to T, or defaultValue if it is not present.
// It still returns an error if the attribute is present with an incompatible type.
func GetOr[T any](m Map, name string, defaultValue T) (T, error) {
	if !m.Has(name) {
		return defaultValue, nil
	}
	return Get[T](m, name)
}

// convert value to the target type, or returns an error matching ErrWrongType.
func convert(value any, target reflect.Type) (any, error) {
	v := reflect.ValueOf(value)
	if !v.IsValid() {
		return nil, errors.Wrapf(ErrWrongType, "nil value can't be converted to %s", target)
	}
	if v.Type().ConvertibleTo(target) && sameCategory(v.Type(), target) && v.Kind() != reflect.Slice {
		if err := checkRange(v, target); err != nil {
			return nil, err
		}
		return v.Convert(target).Interface(), nil
	}
	if v.Kind() == reflect.Slice && target.Kind() == reflect.Slice && sameCategory(v.Type().Elem(), target.Elem()) {
		out := reflect.MakeSlice(target, v.Len(), v.Len())
		elemT := target.Elem()
		for ii := range v.Len() {
			elem := v.Index(ii)
			if err := checkRange(elem, elemT); err != nil {
				return nil, errors.WithMessagef(err, "element #%d", ii)
			}
			out.Index(ii).Set(elem.Convert(elemT))
		}
		return out.Interface(), nil
	}
	return nil, errors.Wrapf(ErrWrongType, "value of type %s can't be converted to %s", v.Type(), target)
}

type category int

const (
	otherCategory category = iota
	intCategory
	floatCategory
	boolCategory
	stringCategory
)

func categoryOf(t reflect.Type) category {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return intCategory
	case reflect.Float32, reflect.Float64:
		return floatCategory
	case reflect.Bool:
		return boolCategory
	case reflect.String:
		return stringCategory
	default:
		return otherCategory
	}
}

// sameCategory returns whether the two types are both integers, both floats, both bools or both strings.
// Integer <-> float conversions are not accepted: the value arrays of an attribute are typed by their dtype.
func sameCategory(a, b reflect.Type) bool {
	ca := categoryOf(a)
	return ca != otherCategory && ca == categoryOf(b)
}

// checkRange returns an error if the integer value v doesn't fit in the target integer type.
func checkRange(v reflect.Value, target reflect.Type) error {
	if categoryOf(v.Type()) != intCategory {
		return nil
	}
	var fits bool
	switch v.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		fits = fitsUnsigned(v.Uint(), target)
	default:
		fits = fitsSigned(v.Int(), target)
	}
	if !fits {
		return errors.Wrapf(ErrWrongType, "value %v overflows %s", v.Interface(), target)
	}
	return nil
}

func fitsSigned(x int64, target reflect.Type) bool {
	switch target.Kind() {
	case reflect.Int8:
		return inRange[int64](x, -1<<7, 1<<7-1)
	case reflect.Int16:
		return inRange[int64](x, -1<<15, 1<<15-1)
	case reflect.Int32:
		return inRange[int64](x, -1<<31, 1<<31-1)
	case reflect.Uint8:
		return inRange[int64](x, 0, 1<<8-1)
	case reflect.Uint16:
		return inRange[int64](x, 0, 1<<16-1)
	case reflect.Uint32:
		return inRange[int64](x, 0, 1<<32-1)
	case reflect.Uint, reflect.Uint64:
		return x >= 0
	default:
		return true
	}
}

func fitsUnsigned(x uint64, target reflect.Type) bool {
	switch target.Kind() {
	case reflect.Int8:
		return x <= 1<<7-1
	case reflect.Int16:
		return x <= 1<<15-1
	case reflect.Int32:
		return x <= 1<<31-1
	case reflect.Int, reflect.Int64:
		return x <= 1<<63-1
	case reflect.Uint8:
		return x <= 1<<8-1
	case reflect.Uint16:
		return x <= 1<<16-1
	case reflect.Uint32:
		return x <= 1<<32-1
	default:
		return true
	}
}

func inRange[T constraints.Integer](x, lower, upper T) bool {
	return x >= lower && x <= upper
}
