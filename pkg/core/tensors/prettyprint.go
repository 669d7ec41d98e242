// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"

	"github.com/x448/float16"
)

var typeFloat16 = reflect.TypeOf(float16.Float16(0))

// maxRowElements is the number of elements in a row above which the row is abbreviated with an ellipsis.
const maxRowElements = 6

// Summary returns a multi-line summary of the Tensor's content.
// Inspired by numpy output.
func (t *Tensor) Summary(precision int) string {
	shape := t.Shape()
	if !t.IsInitialized() {
		return fmt.Sprintf("%s<uninitialized>", shape)
	}
	if shape.IsZeroSize() {
		return shape.String()
	}

	var buf bytes.Buffer
	w := func(format string, args ...any) { _, _ = fmt.Fprintf(&buf, format, args...) }
	wValue := func(v reflect.Value) {
		if v.Type() == typeFloat16 {
			w("%.*g", precision, v.Interface().(float16.Float16).Float32())
			return
		}
		switch v.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			w("%d", v.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			w("%d", v.Uint())
		case reflect.Bool:
			w("%v", v.Bool())
		default:
			w("%.*g", precision, v.Interface())
		}
	}

	dims := shape.Dimensions
	err := t.ConstFlatData(func(flat any) {
		values := reflect.ValueOf(flat)
		for _, dim := range dims {
			w("[%d]", dim)
		}
		w("%s", values.Type().Elem())
		if len(dims) == 0 {
			w("(")
			wValue(values.Index(0))
			w(")")
			return
		}

		// writeRow writes the innermost axis, starting at the flat index.
		writeRow := func(index, length int) {
			w("{")
			for i := 0; i < length; i++ {
				if length > maxRowElements && i == 3 {
					w(", ...")
					i = length - 3
				}
				if i > 0 {
					w(", ")
				}
				wValue(values.Index(index + i))
			}
			w("}")
		}

		var printElements func(index, depth int, currentDims []int)
		printElements = func(index, depth int, currentDims []int) {
			if len(currentDims) == 1 {
				writeRow(index, currentDims[0])
				return
			}
			stride := 1
			for _, dim := range currentDims[1:] {
				stride *= dim
			}
			indent := strings.Repeat(" ", depth+1)
			w("{")
			for ii := 0; ii < currentDims[0]; ii++ {
				if currentDims[0] > maxRowElements && ii == 3 {
					w(",\n%s...", indent)
					ii = currentDims[0] - 3
				}
				if ii > 0 {
					w(",\n%s", indent)
				}
				printElements(index+ii*stride, depth+1, currentDims[1:])
			}
			w("}")
		}
		printElements(0, 0, dims)
	})
	if err != nil {
		return fmt.Sprintf("%s<%v>", shape, err)
	}
	return buf.String()
}

// String converts to string, using a summary of the values.
func (t *Tensor) String() string {
	if t == nil {
		return "<nil>"
	}
	return t.Summary(6)
}
