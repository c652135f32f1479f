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
	"github.com/samber/lo"

	"github.com/Thunderl3ear/bohrium/block"
	"github.com/Thunderl3ear/bohrium/vetypes"
)

// Options controls the fuser's passes.
type Options struct {
	// FusionEnabled selects fuse mode (serial adjacency fusion runs) versus
	// SIJ mode (every instruction stays its own block, controlled by the
	// engine's jit_fusion setting).
	FusionEnabled bool
}

// News marks the first-writer instruction of every base observed in a
// batch; threaded straight into block.New, which does not record it on the
// blocks it builds.
type News = map[*vetypes.Instruction]bool

// Run performs the three fuser passes in order and returns the resulting
// top-level blocks, ready for code generation.
func Run(instrs []*vetypes.Instruction, news News, opts Options) []*block.Block {
	blocks := singletonWrap(instrs, news)
	if opts.FusionEnabled {
		blocks = serialFuse(blocks, news)
	}
	return eliminateEmpty(blocks)
}

// singletonWrap is fuser pass 1: wrap every non-noop instruction with
// operands in its own rank-0 loop-nest block sized to the
// outer extent of its dominating shape. Instructions with zero operands
// (bare NONE/SYNC markers with nothing to range over) are skipped.
func singletonWrap(instrs []*vetypes.Instruction, news News) []*block.Block {
	withOperands := lo.Filter(instrs, func(in *vetypes.Instruction, _ int) bool {
		return in.NumOperands() > 0
	})
	return lo.Map(withOperands, func(in *vetypes.Instruction, _ int) *block.Block {
		shape := in.DominatingShape()
		size := int64(1)
		if len(shape) > 0 {
			size = shape[0]
		}
		return block.New([]*vetypes.Instruction{in}, 0, size, news)
	})
}

// serialFuse is fuser pass 2: a left-to-right scan that
// greedily absorbs compatible neighboring blocks into a running
// accumulator, then recurses one level down into the merged children.
func serialFuse(blocks []*block.Block, news News) []*block.Block {
	out := make([]*block.Block, 0, len(blocks))
	i := 0
	for i < len(blocks) {
		acc := blocks[i]
		j := i + 1
		for j < len(blocks) {
			cand := blocks[j]
			merged, ok := tryMerge(acc, cand, news)
			if !ok {
				break
			}
			acc = merged
			j++
		}
		if !acc.IsInstr() {
			acc.Children = serialFuse(acc.Children, news)
		}
		out = append(out, acc)
		i = j
	}
	return out
}

// tryMerge attempts to fold cand into acc, returning the merged block and
// true on success. Fusion requires: cand is not an instruction-leaf, acc
// and cand are data-parallel compatible, acc has no pending sweeps, and
// either the sizes match (direct merge) or one side is reshapable with a
// size that is a whole multiple of the other's (reshape merge).
func tryMerge(acc, cand *block.Block, news News) (*block.Block, bool) {
	if cand.IsInstr() {
		return nil, false
	}
	if len(acc.Sweeps) > 0 {
		return nil, false
	}
	if !BlocksCompatible(acc, cand) {
		return nil, false
	}

	switch {
	case acc.Size == cand.Size:
		return directMerge(acc, cand), true
	case acc.Reshapable && acc.Size%cand.Size == 0:
		return reshapeMerge(acc, cand, news), true
	case cand.Reshapable && cand.Size%acc.Size == 0:
		return reshapeMerge(acc, cand, news), true
	default:
		return nil, false
	}
}

// directMerge combines two equal-size loop-nest blocks at the same rank by
// concatenating their children; reshapable survives only if both sides were.
func directMerge(acc, cand *block.Block) *block.Block {
	children := make([]*block.Block, 0, len(acc.Children)+len(cand.Children))
	children = append(children, acc.Children...)
	children = append(children, cand.Children...)

	sweeps := unionSweeps(acc.Sweeps, cand.Sweeps)

	return &block.Block{
		Kind:       block.KindLoop,
		Rank:       acc.Rank,
		Size:       acc.Size,
		Children:   children,
		Sweeps:     sweeps,
		Reshapable: acc.Reshapable && cand.Reshapable,
	}
}

// reshapeMerge combines a reshapable block (the "big" side, whose size is
// a whole multiple of the other's) with the "small" side by splitting the
// big side's outer axis into [big.Size/small.Size, small.Size] and nesting
// both sides' instructions — the big side's split leaves and the small
// side's unmodified leaves — inside one new inner block of the small
// side's size. The result is a loop-nest executing
// (big.Size/small.Size) x small.Size.
// The merged outer block's reshapable flag is the conjunction of the two
// inputs' — a reshape-merged block may only be reshaped again if both of
// its ingredients were safe to repartition (resolved conservatively; see
// DESIGN.md).
func reshapeMerge(acc, cand *block.Block, news News) *block.Block {
	big, small := acc, cand
	if cand.Size > acc.Size {
		big, small = cand, acc
	}
	outerSize := big.Size / small.Size

	splitInstrs := lo.Map(big.AllInstr(), func(in *vetypes.Instruction, _ int) *vetypes.Instruction {
		return splitOuterAxis(in, small.Size)
	})
	innerInstrs := append(splitInstrs, small.AllInstr()...)
	inner := block.New(innerInstrs, acc.Rank+1, small.Size, news)

	return &block.Block{
		Kind:       block.KindLoop,
		Rank:       acc.Rank,
		Size:       outerSize,
		Children:   []*block.Block{inner},
		Sweeps:     unionSweeps(acc.Sweeps, cand.Sweeps),
		Reshapable: acc.Reshapable && cand.Reshapable,
	}
}

// splitOuterAxis rewrites instr's array operand views to carry an extra
// leading axis of extent innerSize, turning a flat [N] view into [N/inner,
// inner]. Only valid for dense operands along that axis, which reshapable
// blocks (block.isDenseAt) guarantee.
func splitOuterAxis(instr *vetypes.Instruction, innerSize int64) *vetypes.Instruction {
	clone := *instr
	clone.Operands = make([]vetypes.View, len(instr.Operands))
	for i, op := range instr.Operands {
		if op.IsConst || op.NDim == 0 {
			clone.Operands[i] = op
			continue
		}
		outer := op.Shape[0] / innerSize
		shape := append([]int64{outer, innerSize}, op.Shape[1:]...)
		stride := append([]int64{op.Stride[0] * innerSize, op.Stride[0]}, op.Stride[1:]...)
		clone.Operands[i] = vetypes.View{
			Base:   op.Base,
			NDim:   op.NDim + 1,
			Shape:  shape,
			Stride: stride,
			Offset: op.Offset,
		}
	}
	return &clone
}

func unionSweeps(a, b map[*vetypes.Instruction]bool) map[*vetypes.Instruction]bool {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make(map[*vetypes.Instruction]bool, len(a)+len(b))
	for k := range a {
		out[k] = true
	}
	for k := range b {
		out[k] = true
	}
	return out
}

// eliminateEmpty is fuser pass 3: drop any top-level block whose flattened
// instruction list is empty or entirely system opcodes.
func eliminateEmpty(blocks []*block.Block) []*block.Block {
	return lo.Filter(blocks, func(b *block.Block, _ int) bool {
		instrs := b.AllInstr()
		return len(instrs) > 0 && !b.IsSystemOnly()
	})
}
