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

// Package block implements the nested block model: the tree
// representation of a group of fused instructions that the fuser builds
// and the code generator walks.
package block

import (
	"github.com/Thunderl3ear/bohrium/vetypes"
)

// Kind distinguishes an instruction leaf from a loop-nest interior node.
type Kind uint8

const (
	KindInstr Kind = iota
	KindLoop
)

// Block is either an instruction-leaf carrying one instruction, or a
// loop-nest carrying a rank, a size, an ordered list of children, and the
// set of reduction instructions that must be peeled as a prologue.
type Block struct {
	Kind Kind

	// Valid when Kind == KindInstr.
	Instr *vetypes.Instruction

	// Valid when Kind == KindLoop.
	Rank       int
	Size       int64
	Children   []*Block
	Sweeps     map[*vetypes.Instruction]bool
	Reshapable bool
}

// Leaf wraps a single instruction as an instruction-leaf block.
func Leaf(instr *vetypes.Instruction) *Block {
	return &Block{Kind: KindInstr, Instr: instr}
}

// IsInstr reports whether b is an instruction-leaf.
func (b *Block) IsInstr() bool {
	return b.Kind == KindInstr
}

// IsSystemOnly reports whether every instruction contained in b (recursively)
// uses a system opcode.
func (b *Block) IsSystemOnly() bool {
	for _, in := range b.AllInstr() {
		if !in.Opcode.IsSystem() {
			return false
		}
	}
	return true
}

// AllInstr flattens b into the ordered list of instructions it contains.
func (b *Block) AllInstr() []*vetypes.Instruction {
	if b == nil {
		return nil
	}
	if b.IsInstr() {
		return []*vetypes.Instruction{b.Instr}
	}
	var out []*vetypes.Instruction
	for _, c := range b.Children {
		out = append(out, c.AllInstr()...)
	}
	return out
}

// FindInstrBlock locates the leaf block holding instr, or nil if absent.
func (b *Block) FindInstrBlock(instr *vetypes.Instruction) *Block {
	if b == nil {
		return nil
	}
	if b.IsInstr() {
		if b.Instr == instr {
			return b
		}
		return nil
	}
	for _, c := range b.Children {
		if found := c.FindInstrBlock(instr); found != nil {
			return found
		}
	}
	return nil
}

// dominatingDepth returns the number of axes an instruction's dominating
// shape spans, i.e. how many nested loop ranks it takes to reach its leaf.
func dominatingDepth(instr *vetypes.Instruction) int {
	return len(instr.DominatingShape())
}

// New builds a loop-nest block at the given rank wrapping instrs, whose
// dominating shapes must all agree on extent `size` along this rank. news
// marks first-writer instructions; it is passed down the recursion but is
// neither stored on the returned blocks nor consulted when peeling, so every
// swept reduction is peeled as an identity copy whether or not its output
// base is new. A
// reduction or scan is marked in Sweeps once, on the block returned by this
// entry call, however many further ranks its own dominating shape forces
// New to recurse through to reach the instruction's leaf: the swept axes of
// a multi-axis reduction are a single contiguous run starting at this rank,
// so one peel at this rank, recursively covering every rank nested beneath
// it, accounts for the whole reduction. Marking the same instruction again
// at an inner rank it recurses through would make the code generator reset
// the accumulator once per enclosing loop iteration instead of once overall
// (see codegen.emitPrologueBlock, which peels the corresponding rank nest
// recursively for exactly this reason). A block built from a single
// instruction is marked reshapable only if that instruction's dominating
// view is dense row-major (see DESIGN.md for why this conservative rule was
// chosen).
func New(instrs []*vetypes.Instruction, rank int, size int64, news map[*vetypes.Instruction]bool) *Block {
	return newBlock(instrs, rank, size, news, true)
}

func newBlock(instrs []*vetypes.Instruction, rank int, size int64, news map[*vetypes.Instruction]bool, markSweeps bool) *Block {
	var sweeps map[*vetypes.Instruction]bool
	if markSweeps {
		for _, in := range instrs {
			if in.Opcode.IsReduction() {
				if sweeps == nil {
					sweeps = map[*vetypes.Instruction]bool{}
				}
				sweeps[in] = true
			}
		}
	}

	children := make([]*Block, 0, len(instrs))
	for _, in := range instrs {
		depth := dominatingDepth(in)
		if depth <= rank+1 {
			children = append(children, Leaf(in))
			continue
		}
		shape := in.DominatingShape()
		children = append(children, newBlock([]*vetypes.Instruction{in}, rank+1, shape[rank+1], news, false))
	}

	reshapable := false
	if len(instrs) == 1 {
		reshapable = isDenseAt(instrs[0], rank)
	}

	return &Block{
		Kind:       KindLoop,
		Rank:       rank,
		Size:       size,
		Children:   children,
		Sweeps:     sweeps,
		Reshapable: reshapable,
	}
}

// isDenseAt reports whether every non-constant operand of instr that spans
// the full dominating rank is row-major dense over its whole shape, making
// it safe to repartition during a reshape-merge. rank is not consulted: the
// check always covers every axis, not only those from rank outward.
func isDenseAt(instr *vetypes.Instruction, rank int) bool {
	for _, op := range instr.Operands {
		if op.IsConst {
			continue
		}
		if len(op.Shape) != len(instr.DominatingShape()) {
			continue
		}
		if !op.Contiguous() {
			return false
		}
	}
	return true
}
