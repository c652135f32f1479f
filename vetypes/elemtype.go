// Copyright 2025 Bohrium VE-core Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package vetypes defines the data model shared by every component of the
// vector-engine core: element types, base arrays, strided views, and
// instructions. These are the only types instructions and blocks ever
// reference; nothing downstream branches on anything but ElemType.
package vetypes

import "fmt"

// ElemType is the tagged enumeration of element types the engine understands.
// The code generator is the only place that branches on ElemType to pick a
// concrete C spelling; every other component treats it as an opaque tag.
type ElemType uint8

const (
	I8 ElemType = iota
	I16
	I32
	I64
	U8
	U16
	U32
	U64
	F32
	F64
	Complex64
	Complex128
	Bool
)

var elemTypeNames = [...]string{
	I8: "i8", I16: "i16", I32: "i32", I64: "i64",
	U8: "u8", U16: "u16", U32: "u32", U64: "u64",
	F32: "f32", F64: "f64",
	Complex64: "complex64", Complex128: "complex128",
	Bool: "bool",
}

func (t ElemType) String() string {
	if int(t) < len(elemTypeNames) {
		return elemTypeNames[t]
	}
	return fmt.Sprintf("ElemType(%d)", t)
}

// byteSizes holds the storage size of each element type in bytes.
var byteSizes = [...]int64{
	I8: 1, I16: 2, I32: 4, I64: 8,
	U8: 1, U16: 2, U32: 4, U64: 8,
	F32: 4, F64: 8,
	Complex64: 8, Complex128: 16,
	Bool: 1,
}

// ByteSize returns the size in bytes of one element of this type.
func (t ElemType) ByteSize() int64 {
	if int(t) < len(byteSizes) {
		return byteSizes[t]
	}
	return 0
}

// IsFloat reports whether t is a real or complex floating-point type.
func (t ElemType) IsFloat() bool {
	switch t {
	case F32, F64, Complex64, Complex128:
		return true
	default:
		return false
	}
}

// IsComplex reports whether t is a complex floating-point type.
func (t ElemType) IsComplex() bool {
	return t == Complex64 || t == Complex128
}

// IsSigned reports whether t is a signed integer type.
func (t ElemType) IsSigned() bool {
	switch t {
	case I8, I16, I32, I64:
		return true
	default:
		return false
	}
}

// CType returns the C99 type spelling used by the code generator, e.g.
// "int32_t" for I32 and "double complex" for Complex128.
func (t ElemType) CType() string {
	switch t {
	case I8:
		return "int8_t"
	case I16:
		return "int16_t"
	case I32:
		return "int32_t"
	case I64:
		return "int64_t"
	case U8:
		return "uint8_t"
	case U16:
		return "uint16_t"
	case U32:
		return "uint32_t"
	case U64:
		return "uint64_t"
	case F32:
		return "float"
	case F64:
		return "double"
	case Complex64:
		return "float complex"
	case Complex128:
		return "double complex"
	case Bool:
		return "uint8_t"
	default:
		return "void"
	}
}

// ElemTypeFromString parses the names used in ElemType.String.
func ElemTypeFromString(s string) (ElemType, error) {
	for i, n := range elemTypeNames {
		if n == s {
			return ElemType(i), nil
		}
	}
	return 0, fmt.Errorf("vetypes: unknown element type %q", s)
}
