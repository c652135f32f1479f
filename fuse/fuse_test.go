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

package fuse

import (
	"testing"

	"github.com/Thunderl3ear/bohrium/vetypes"
)

func denseView(b *vetypes.Base, n int64, offset int64) vetypes.View {
	return vetypes.NewArrayView(b, []int64{n}, []int64{1}, offset)
}

func zipAdd(out, a, b *vetypes.Base, n int64) *vetypes.Instruction {
	return &vetypes.Instruction{
		Opcode: vetypes.OpZip,
		Func:   vetypes.FuncAdd,
		Operands: []vetypes.View{
			denseView(out, n, 0), denseView(a, n, 0), denseView(b, n, 0),
		},
	}
}

func mapMul(out, in *vetypes.Base, n int64) *vetypes.Instruction {
	return &vetypes.Instruction{
		Opcode: vetypes.OpMap,
		Func:   vetypes.FuncMul,
		Operands: []vetypes.View{
			denseView(out, n, 0), denseView(in, n, 0),
		},
	}
}

// A single elementwise add fuses into exactly one block.
func TestRunElementwiseAddSingleBlock(t *testing.T) {
	t.Parallel()
	n := int64(1000)
	a := &vetypes.Base{Type: vetypes.F64, NElem: n}
	b := &vetypes.Base{Type: vetypes.F64, NElem: n}
	out := &vetypes.Base{Type: vetypes.F64, NElem: n}
	add := zipAdd(out, a, b, n)

	blocks := Run([]*vetypes.Instruction{add}, nil, Options{FusionEnabled: true})
	if len(blocks) != 1 {
		t.Fatalf("got %d blocks, want 1", len(blocks))
	}
	if blocks[0].Size != n {
		t.Fatalf("block size = %d, want %d", blocks[0].Size, n)
	}
}

// t = b + c; a = t * d fuses into a single block because t's instructions
// are view-aligned between producer and consumer.
func TestRunChainedZipFuses(t *testing.T) {
	t.Parallel()
	n := int64(64)
	bb := &vetypes.Base{Type: vetypes.F32, NElem: n}
	c := &vetypes.Base{Type: vetypes.F32, NElem: n}
	tt := &vetypes.Base{Type: vetypes.F32, NElem: n}
	d := &vetypes.Base{Type: vetypes.F32, NElem: n}
	a := &vetypes.Base{Type: vetypes.F32, NElem: n}

	i1 := zipAdd(tt, bb, c, n)
	i2 := &vetypes.Instruction{
		Opcode: vetypes.OpZip,
		Func:   vetypes.FuncMul,
		Operands: []vetypes.View{
			denseView(a, n, 0), denseView(tt, n, 0), denseView(d, n, 0),
		},
	}

	blocks := Run([]*vetypes.Instruction{i1, i2}, nil, Options{FusionEnabled: true})
	if len(blocks) != 1 {
		t.Fatalf("got %d blocks, want 1 fused block", len(blocks))
	}
	got := blocks[0].AllInstr()
	if len(got) != 2 || got[0] != i1 || got[1] != i2 {
		t.Fatalf("fused block instructions = %v, want [i1, i2] in order", got)
	}
}

// a[0:10] = f(b) followed by c = g(a[1:11]) must not fuse — the second
// instruction reads a shifted, unaligned, but
// overlapping window of the base the first just wrote, so the
// disjoint-or-aligned predicate rejects the pair.
func TestRunShiftedOverlapDoesNotFuse(t *testing.T) {
	t.Parallel()
	n := int64(10)
	a := &vetypes.Base{Type: vetypes.F64, NElem: 11}
	b := &vetypes.Base{Type: vetypes.F64, NElem: n}
	c := &vetypes.Base{Type: vetypes.F64, NElem: n}

	i1 := &vetypes.Instruction{
		Opcode: vetypes.OpMap,
		Func:   vetypes.FuncAdd,
		Operands: []vetypes.View{
			denseView(a, n, 0), // a[0:10]
			denseView(b, n, 0),
		},
	}
	i2 := &vetypes.Instruction{
		Opcode: vetypes.OpMap,
		Func:   vetypes.FuncMul,
		Operands: []vetypes.View{
			denseView(c, n, 0),
			denseView(a, n, 1), // a[1:11], overlaps i1's write to a[0:10]
		},
	}

	if DataParallelCompatible(i1, i2) {
		t.Fatal("shifted overlapping instructions must not be compatible")
	}

	blocks := Run([]*vetypes.Instruction{i1, i2}, nil, Options{FusionEnabled: true})
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want 2 (no fusion across shifted overlap)", len(blocks))
	}
}

// jit_fusion=false selects SIJ mode: every instruction keeps its own block.
func TestRunFusionDisabledKeepsSingletons(t *testing.T) {
	t.Parallel()
	n := int64(32)
	a := &vetypes.Base{Type: vetypes.F64, NElem: n}
	b := &vetypes.Base{Type: vetypes.F64, NElem: n}
	out1 := &vetypes.Base{Type: vetypes.F64, NElem: n}
	out2 := &vetypes.Base{Type: vetypes.F64, NElem: n}

	i1 := zipAdd(out1, a, b, n)
	i2 := mapMul(out2, out1, n)

	blocks := Run([]*vetypes.Instruction{i1, i2}, nil, Options{FusionEnabled: false})
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks in SIJ mode, want 2", len(blocks))
	}
}

// A size-12 reshapable block merged with a size-3 block yields a nested
// 4x3 kernel.
func TestRunReshapeMerge(t *testing.T) {
	t.Parallel()
	twelve := int64(12)
	three := int64(3)
	a := &vetypes.Base{Type: vetypes.F64, NElem: twelve}
	b := &vetypes.Base{Type: vetypes.F64, NElem: twelve}
	out1 := &vetypes.Base{Type: vetypes.F64, NElem: twelve}
	i1 := zipAdd(out1, a, b, twelve)

	c := &vetypes.Base{Type: vetypes.F64, NElem: three}
	out2 := &vetypes.Base{Type: vetypes.F64, NElem: three}
	i2 := mapMul(out2, c, three)

	blocks := Run([]*vetypes.Instruction{i1, i2}, nil, Options{FusionEnabled: true})
	if len(blocks) != 1 {
		t.Fatalf("got %d blocks, want 1 reshape-merged block", len(blocks))
	}
	top := blocks[0]
	if top.Size != twelve/three {
		t.Fatalf("outer size = %d, want %d", top.Size, twelve/three)
	}
	if len(top.Children) != 1 {
		t.Fatalf("expected a single nested inner block, got %d children", len(top.Children))
	}
	inner := top.Children[0]
	if inner.Size != three {
		t.Fatalf("inner size = %d, want %d", inner.Size, three)
	}
	if got := len(inner.AllInstr()); got != 2 {
		t.Fatalf("inner block should contain both instructions, got %d", got)
	}
}

// A reshape-merged block inherits the pending sweeps of its ingredients, so
// a further neighbor cannot be absorbed into it before the reduction it
// carries is peeled.
func TestRunReshapeMergeCarriesSweepsToBlockNeighbor(t *testing.T) {
	t.Parallel()
	twelve := int64(12)
	three := int64(3)
	a := &vetypes.Base{Type: vetypes.F64, NElem: twelve}
	b := &vetypes.Base{Type: vetypes.F64, NElem: twelve}
	out1 := &vetypes.Base{Type: vetypes.F64, NElem: twelve}
	i1 := zipAdd(out1, a, b, twelve)

	c := &vetypes.Base{Type: vetypes.F64, NElem: three}
	accum := &vetypes.Base{Type: vetypes.F64, NElem: three}
	i2 := &vetypes.Instruction{
		Opcode: vetypes.OpReduce,
		Func:   vetypes.FuncAdd,
		Operands: []vetypes.View{
			denseView(accum, three, 0), denseView(c, three, 0),
		},
	}

	d := &vetypes.Base{Type: vetypes.F64, NElem: three}
	out3 := &vetypes.Base{Type: vetypes.F64, NElem: three}
	i3 := mapMul(out3, d, three)

	blocks := Run([]*vetypes.Instruction{i1, i2, i3}, nil, Options{FusionEnabled: true})
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want 2 (i3 must stay separate from the pending-reduction merge)", len(blocks))
	}
	if len(blocks[0].Sweeps) == 0 {
		t.Fatal("reshape-merged block lost its pending reduction's sweep marker")
	}
}
