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

// Package fuse transforms a flat instruction list into a sequence of
// blocks: singleton wrapping, serial adjacency fusion with reshape
// support, and empty-block elimination.
package fuse

import "github.com/Thunderl3ear/bohrium/vetypes"

// DataParallelCompatible decides whether two instructions may share a
// block: system opcodes are always compatible; otherwise, every operand of
// a is checked against b's output, and every operand of b is checked
// against a's output, each pair required to be disjoint-or-aligned.
//
// Bohrium's two historical fuser implementations disagree here — one
// checks only output-vs-all-operands in each direction (what's implemented
// below), the other checks every operand against every operand. This
// fuser implements the output-vs-operand form (see DESIGN.md).
func DataParallelCompatible(a, b *vetypes.Instruction) bool {
	if a.Opcode.IsSystem() || b.Opcode.IsSystem() {
		return true
	}
	if len(a.Operands) == 0 || len(b.Operands) == 0 {
		return true
	}
	bOut := b.Output()
	for _, x := range a.Operands {
		if !x.DisjointOrAligned(bOut) {
			return false
		}
	}
	aOut := a.Output()
	for _, y := range b.Operands {
		if !aOut.DisjointOrAligned(y) {
			return false
		}
	}
	return true
}

// BlocksCompatible checks DataParallelCompatible pairwise over every
// instruction contained in two candidate blocks.
func BlocksCompatible(a, b instrLister) bool {
	ai := a.AllInstr()
	bi := b.AllInstr()
	for _, x := range ai {
		for _, y := range bi {
			if !DataParallelCompatible(x, y) {
				return false
			}
		}
	}
	return true
}

// instrLister is satisfied by *block.Block without importing it here,
// keeping this file's unit tests free of the block package's recursion.
type instrLister interface {
	AllInstr() []*vetypes.Instruction
}
