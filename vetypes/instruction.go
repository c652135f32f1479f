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

import "fmt"

// Opcode identifies the class of operation an Instruction performs.
type Opcode uint8

const (
	// System opcodes: bookkeeping, never realized as generated C.
	OpNone Opcode = iota
	OpSync
	OpDiscard
	OpFree
	OpTally

	// Array opcodes.
	OpMap      // unary element-wise
	OpZip      // binary element-wise
	OpGenerate // random fill
	OpReduce   // full or axis reduction
	OpScan     // running/prefix reduction

	// User-func / extension: dispatched directly, bypassing the fuser.
	OpExtension
)

func (op Opcode) String() string {
	switch op {
	case OpNone:
		return "NONE"
	case OpSync:
		return "SYNC"
	case OpDiscard:
		return "DISCARD"
	case OpFree:
		return "FREE"
	case OpTally:
		return "TALLY"
	case OpMap:
		return "MAP"
	case OpZip:
		return "ZIP"
	case OpGenerate:
		return "GENERATE"
	case OpReduce:
		return "REDUCE"
	case OpScan:
		return "SCAN"
	case OpExtension:
		return "EXTENSION"
	default:
		return fmt.Sprintf("Opcode(%d)", op)
	}
}

// IsSystem reports whether op is a bookkeeping opcode that never produces
// generated C: system opcodes are always data-parallel compatible with
// everything else, blocks made only of them are dropped before code
// generation, and the code generator emits no statement for them.
func (op Opcode) IsSystem() bool {
	switch op {
	case OpNone, OpSync, OpDiscard, OpFree, OpTally:
		return true
	default:
		return false
	}
}

// IsReduction reports whether op accumulates across an axis and therefore
// needs prologue peeling when it is the first instruction seen along a
// loop-nest's outer axis (the "sweep" case).
func (op Opcode) IsReduction() bool {
	return op == OpReduce || op == OpScan
}

// Func names the concrete element-wise or reduction operator an instruction
// performs. The set is intentionally small and flat — the code generator
// maps each Func to a C expression template; extending the operator set
// means adding one entry in codegen, not touching the fuser or block model.
type Func string

const (
	FuncIdentity Func = "identity"
	FuncAdd      Func = "add"
	FuncSub      Func = "sub"
	FuncMul      Func = "mul"
	FuncDiv      Func = "div"
	FuncMin      Func = "min"
	FuncMax      Func = "max"
	FuncMod      Func = "mod"
	FuncNeg      Func = "neg"
	FuncAbs      Func = "abs"
	FuncSqrt     Func = "sqrt"
	FuncExp      Func = "exp"
	FuncLog      Func = "log"
	FuncSin      Func = "sin"
	FuncCos      Func = "cos"
	FuncLogicalAnd Func = "logical_and"
	FuncLogicalOr  Func = "logical_or"
	FuncLogicalNot Func = "logical_not"
	FuncEqual      Func = "equal"
	FuncLessThan   Func = "less_than"
)

// RandomParams carries the counter-based PRNG seed for a GENERATE
// instruction. The primitive itself is an external collaborator; the
// engine only needs to know the two seed words to bake into the
// generated call site. The per-element counter is the flat loop index,
// supplied by the code generator, not stored here.
type RandomParams struct {
	Start uint64
	Key   uint64
}

// ExtensionPayload identifies an opcode bound by the upstream runtime's
// extension-method registration plumbing. The engine driver dispatches
// OpExtension instructions to the handler bound
// under Name without running them through the fuser.
type ExtensionPayload struct {
	Name string
}

// Instruction is one primitive array operation. By convention Operands[0]
// is the output.
type Instruction struct {
	Opcode   Opcode
	Operands []View
	Func     Func
	Random   *RandomParams
	Ext      *ExtensionPayload
}

// Output returns the instruction's output view. Panics if called on an
// instruction with no operands (callers must check NumOperands first;
// system opcodes with zero operands never reach code that calls Output).
func (in *Instruction) Output() View {
	return in.Operands[0]
}

// NumOperands returns len(Operands), a convenience used by the singleton
// wrapping pass to skip no-operand instructions.
func (in *Instruction) NumOperands() int {
	return len(in.Operands)
}

// OutputBase returns the output's base array, or nil if the output is a
// constant (which should never happen for a well-formed instruction).
func (in *Instruction) OutputBase() *Base {
	if len(in.Operands) == 0 {
		return nil
	}
	return in.Operands[0].Base
}

// DominatingShape returns the shape that determines loop extents for this
// instruction: the shape of the operand with the most dimensions among its
// non-constant operands, breaking ties toward the earliest operand. For a
// full reduction this is the input's shape (more dimensions than the
// scalar output); for a plain map/zip every live operand shares a shape so
// the choice is immaterial.
func (in *Instruction) DominatingShape() []int64 {
	var best []int64
	for _, op := range in.Operands {
		if op.IsConst {
			continue
		}
		if len(op.Shape) > len(best) {
			best = op.Shape
		}
	}
	return best
}

// NonConstBases returns the distinct non-constant base arrays referenced by
// the instruction's operands, output included.
func (in *Instruction) NonConstBases() []*Base {
	seen := make(map[*Base]bool, len(in.Operands))
	var out []*Base
	for _, op := range in.Operands {
		if op.IsConst || op.Base == nil {
			continue
		}
		if !seen[op.Base] {
			seen[op.Base] = true
			out = append(out, op.Base)
		}
	}
	return out
}
