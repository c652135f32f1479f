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

package codegen

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Thunderl3ear/bohrium/vetypes"
)

// emitInstr emits the single C statement realizing one instruction inside
// the loop nest currently open at g.indices.
func (g *gen) emitInstr(in *vetypes.Instruction, depth int) {
	switch in.Opcode {
	case vetypes.OpMap, vetypes.OpZip:
		g.emitElementwise(in, depth)
	case vetypes.OpReduce:
		g.emitReduce(in, depth)
	case vetypes.OpScan:
		g.emitScan(in, depth)
	case vetypes.OpGenerate:
		g.emitGenerate(in, depth)
	case vetypes.OpExtension:
		fmt.Fprintf(g.sb, "%s/* extension %q dispatched outside generated source */\n", g.indent(depth), extensionName(in))
	default:
		// System opcodes (NONE/SYNC/DISCARD/FREE/TALLY) emit nothing. They
		// can still appear as leaves of a block that survives
		// fuse.eliminateEmpty when fused alongside array instructions.
	}
}

// emitIdentityPeel emits the prologue-iteration statement for a sweep
// instruction: a plain copy of its first input into the output, skipping
// the accumulation operator entirely, per the loop nest's reduction
// peeling scheme.
func (g *gen) emitIdentityPeel(in *vetypes.Instruction, depth int) {
	out := g.ref(in.Output(), depth)
	src := g.ref(in.Operands[1], depth)
	fmt.Fprintf(g.sb, "%s%s = %s;\n", g.indent(depth), out, src)
}

func (g *gen) emitElementwise(in *vetypes.Instruction, depth int) {
	out := g.ref(in.Output(), depth)
	args := make([]string, 0, len(in.Operands)-1)
	for _, op := range in.Operands[1:] {
		args = append(args, g.ref(op, depth))
	}
	expr := cExpr(in.Func, in.Output().Type(), args)
	fmt.Fprintf(g.sb, "%s%s = %s;\n", g.indent(depth), out, expr)
}

// emitReduce emits the accumulation statement for a non-peeled reduction
// iteration: out = out OP in. The peeled first iteration is handled
// separately by emitIdentityPeel.
func (g *gen) emitReduce(in *vetypes.Instruction, depth int) {
	out := g.ref(in.Output(), depth)
	src := g.ref(in.Operands[1], depth)
	fmt.Fprintf(g.sb, "%s%s = %s;\n", g.indent(depth), out, cBinOp(in.Func, out, src))
}

func (g *gen) emitScan(in *vetypes.Instruction, depth int) {
	out := g.ref(in.Output(), depth)
	src := g.ref(in.Operands[1], depth)
	fmt.Fprintf(g.sb, "%s%s = %s;\n", g.indent(depth), out, cBinOp(in.Func, out, src))
}

// flatCounter renders the linearized element index for the currently open
// loop nest: each index variable weighted by the product of the extents of
// the axes nested inside it, so distinct (i0, i1, ...) tuples never collide.
func (g *gen) flatCounter() string {
	if len(g.indices) == 0 {
		return "0"
	}
	weight := int64(1)
	terms := make([]string, len(g.indices))
	for i := len(g.indices) - 1; i >= 0; i-- {
		if weight == 1 {
			terms[i] = g.indices[i]
		} else {
			terms[i] = fmt.Sprintf("%s*%d", g.indices[i], weight)
		}
		weight *= g.sizes[i]
	}
	return strings.Join(terms, " + ")
}

func (g *gen) emitGenerate(in *vetypes.Instruction, depth int) {
	out := g.ref(in.Output(), depth)
	counter := g.flatCounter()
	start, key := uint64(0), uint64(0)
	if in.Random != nil {
		start, key = in.Random.Start, in.Random.Key
	}
	fmt.Fprintf(g.sb, "%s%s = ve_random_u64(%dULL, %dULL, %s);\n", g.indent(depth), out, start, key, counter)
}

func extensionName(in *vetypes.Instruction) string {
	if in.Ext == nil {
		return ""
	}
	return in.Ext.Name
}

// ref renders a C lvalue/rvalue expression for a view: a constant's bit
// pattern reinterpreted to its type, or a flat-indexed array reference
// a<id>[offset + sum(stride[k]*i[k])], using the trailing g.indices that
// align with the view's own rank (views narrower than the open loop nest
// are implicitly broadcast over the leading axes).
func (g *gen) ref(v vetypes.View, depth int) string {
	if v.IsConst {
		return constLiteral(v)
	}
	id := g.ids[v.Base]
	idx := g.indexExpr(v)
	return fmt.Sprintf("a%d[%s]", id, idx)
}

func (g *gen) indexExpr(v vetypes.View) string {
	if v.NDim == 0 {
		return fmt.Sprintf("%d", v.Offset)
	}
	names := g.indices[len(g.indices)-v.NDim:]
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d", v.Offset)
	for i, name := range names {
		if v.Stride[i] == 0 {
			continue
		}
		fmt.Fprintf(&sb, " + %s*%d", name, v.Stride[i])
	}
	return sb.String()
}

func constLiteral(v vetypes.View) string {
	bits := v.ConstVal
	switch v.ConstTy {
	case vetypes.F64:
		return floatLiteral(math.Float64frombits(bits), 64)
	case vetypes.F32:
		return floatLiteral(float64(math.Float32frombits(uint32(bits))), 32) + "f"
	case vetypes.Bool:
		if bits != 0 {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("(%s)%dULL", v.ConstTy.CType(), bits)
	}
}

// floatLiteral renders f as a C99 hex-float literal, the only textual form
// that reproduces an IEEE-754 bit pattern exactly regardless of decimal
// rounding, with NAN/INFINITY macros (from the generated source's <math.h>
// include) standing in for the values hex-float syntax cannot spell.
func floatLiteral(f float64, bitSize int) string {
	switch {
	case math.IsNaN(f):
		return "NAN"
	case math.IsInf(f, 1):
		return "INFINITY"
	case math.IsInf(f, -1):
		return "-INFINITY"
	default:
		return strconv.FormatFloat(f, 'x', -1, bitSize)
	}
}
