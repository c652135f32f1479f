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

package vetypes

import "unsafe"

// Base is a contiguous typed buffer owned by the upstream runtime. The
// engine is the sole mutator of Data: it is set by the victim cache on
// allocation and cleared to nil when the base is freed. Every other field
// is set once by the upstream runtime and never changed by the engine.
//
// Base identity for map keys and overlap analysis is the *Base pointer
// itself; the upstream runtime is expected to hand the engine the same
// pointer across every instruction that refers to the same array.
type Base struct {
	Type  ElemType
	NElem int64
	Data  unsafe.Pointer
}

// NBytes returns the total size in bytes of the base's backing buffer.
func (b *Base) NBytes() int64 {
	return b.NElem * b.Type.ByteSize()
}

// Allocated reports whether the base currently owns a buffer.
func (b *Base) Allocated() bool {
	return b != nil && b.Data != nil
}

// View is a strided window over a Base, or a constant scalar. Views are
// immutable inputs to instructions; nothing in the engine mutates a View
// once an Instruction has been constructed.
type View struct {
	Base   *Base // nil if IsConst
	NDim   int
	Shape  []int64
	Stride []int64 // in elements, may be negative
	Offset int64   // in elements, from Base.Data

	IsConst  bool
	ConstTy  ElemType
	ConstVal uint64 // raw bit pattern of the scalar, reinterpreted per ConstTy
}

// NewArrayView builds a View over base with the given shape and stride.
func NewArrayView(base *Base, shape, stride []int64, offset int64) View {
	return View{
		Base:   base,
		NDim:   len(shape),
		Shape:  shape,
		Stride: stride,
		Offset: offset,
	}
}

// NewConstView builds a scalar constant View.
func NewConstView(ty ElemType, bits uint64) View {
	return View{IsConst: true, ConstTy: ty, ConstVal: bits}
}

// Type returns the element type of the view, whether constant or array.
func (v View) Type() ElemType {
	if v.IsConst {
		return v.ConstTy
	}
	if v.Base != nil {
		return v.Base.Type
	}
	return Bool
}

// Contiguous reports whether the view's stride matches a dense row-major
// layout for its shape (the last axis has stride 1 and every other axis's
// stride equals the product of the faster axes' extents).
func (v View) Contiguous() bool {
	if v.IsConst || v.NDim == 0 {
		return true
	}
	want := int64(1)
	for i := v.NDim - 1; i >= 0; i-- {
		if v.Stride[i] != want {
			return false
		}
		want *= v.Shape[i]
	}
	return true
}

// extentElems returns the [lo, hi] inclusive element-offset range the view
// spans within its base, accounting for negative strides.
func (v View) extentElems() (lo, hi int64) {
	lo, hi = v.Offset, v.Offset
	for i := 0; i < v.NDim; i++ {
		if v.Shape[i] == 0 {
			continue
		}
		delta := (v.Shape[i] - 1) * v.Stride[i]
		if delta >= 0 {
			hi += delta
		} else {
			lo += delta
		}
	}
	return lo, hi
}

// SameBase reports whether v and o reference the same non-constant base.
func (v View) SameBase(o View) bool {
	return !v.IsConst && !o.IsConst && v.Base != nil && v.Base == o.Base
}

// Aligned reports whether v and o are identical windows over the same base:
// same base, rank, shape, stride, and offset.
func (v View) Aligned(o View) bool {
	if !v.SameBase(o) {
		return false
	}
	if v.NDim != o.NDim || v.Offset != o.Offset {
		return false
	}
	for i := 0; i < v.NDim; i++ {
		if v.Shape[i] != o.Shape[i] || v.Stride[i] != o.Stride[i] {
			return false
		}
	}
	return true
}

// DisjointOrAligned implements the fuser's overlap predicate: two views
// over different bases, or where either is a constant, never alias.
// Views over the same base are compatible only if they are an exact
// identical window (Aligned) or their spanned element ranges do not
// intersect at all. Any other same-base relationship — partial overlap,
// shifted windows, strided interleavings — is conservatively treated as
// aliasing and disqualifies fusion.
func (v View) DisjointOrAligned(o View) bool {
	if v.IsConst || o.IsConst {
		return true
	}
	if !v.SameBase(o) {
		return true
	}
	if v.Aligned(o) {
		return true
	}
	lo1, hi1 := v.extentElems()
	lo2, hi2 := o.extentElems()
	return hi1 < lo2 || hi2 < lo1
}
