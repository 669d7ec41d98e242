// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package dtypes

import "strconv"

// DType is an enum that represents the data type of a tensor, or of the value arrays of an attribute.
//
// The numbering follows the framework's serialized data-type tags (the "dtype" attribute of an
// operator holds one of these numbers), so the values are not contiguous and must not be reordered.
type DType int32

const (
	// InvalidDType is used for uninitialized tensors and for conversions that failed.
	InvalidDType DType = -1

	// Bool is a two-state boolean.
	Bool DType = 0

	// Int16 is a signed 16-bit integer.
	Int16 DType = 1

	// Int32 is a signed 32-bit integer ("INT32" tag).
	Int32 DType = 2

	// Int64 is a signed 64-bit integer.
	Int64 DType = 3

	// Float16 is the IEEE half-precision float, see github.com/x448/float16.
	Float16 DType = 4

	// Float32 is the IEEE single-precision float ("FP32" tag).
	Float32 DType = 5

	// Float64 is the IEEE double-precision float.
	Float64 DType = 6

	// Uint8 is an unsigned 8-bit integer.
	Uint8 DType = 20

	// Int8 is a signed 8-bit integer.
	Int8 DType = 21
)

// Aliases using the framework tag names.
const (
	BOOL  = Bool
	INT16 = Int16
	INT32 = Int32
	INT64 = Int64
	FP16  = Float16
	FP32  = Float32
	FP64  = Float64
	UINT8 = Uint8
	INT8  = Int8
)

// dtypeNames is indexed by the DType value for the valid ones.
var dtypeNames = map[DType]string{
	InvalidDType: "InvalidDType",
	Bool:         "Bool",
	Int16:        "Int16",
	Int32:        "Int32",
	Int64:        "Int64",
	Float16:      "Float16",
	Float32:      "Float32",
	Float64:      "Float64",
	Uint8:        "Uint8",
	Int8:         "Int8",
}

// String implements fmt.Stringer.
// Unknown values are printed as "DType(<n>)", so diagnostics always show the offending number.
func (dtype DType) String() string {
	if name, found := dtypeNames[dtype]; found {
		return name
	}
	return "DType(" + strconv.FormatInt(int64(dtype), 10) + ")"
}

// DTypeValues returns all valid values of the enum, in tag order.
func DTypeValues() []DType {
	return []DType{Bool, Int16, Int32, Int64, Float16, Float32, Float64, Uint8, Int8}
}

// MapOfNames to their dtypes. It includes the framework tag names ("INT32", "FP32", ...) and
// the lower-case version of every name (added during initialization).
var MapOfNames = map[string]DType{
	"InvalidDType": InvalidDType,
	"Bool":         Bool,
	"Int16":        Int16,
	"Int32":        Int32,
	"Int64":        Int64,
	"Float16":      Float16,
	"Float32":      Float32,
	"Float64":      Float64,
	"Uint8":        Uint8,
	"Int8":         Int8,

	"BOOL":  Bool,
	"INT16": Int16,
	"INT32": Int32,
	"INT64": Int64,
	"FP16":  Float16,
	"FP32":  Float32,
	"FP64":  Float64,
	"UINT8": Uint8,
	"INT8":  Int8,

	"F16": Float16,
	"F32": Float32,
	"F64": Float64,
}
