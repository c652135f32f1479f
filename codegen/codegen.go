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

// Package codegen walks a block tree and emits C source for a launcher +
// execute pair: computed includes, the loop nest with peeled reduction
// prologues, and a trampoline converting void*[] to typed pointer
// arguments.
package codegen

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Thunderl3ear/bohrium/block"
	"github.com/Thunderl3ear/bohrium/vetypes"
)

// IDMap assigns each referenced base array a dense integer id in
// first-appearance order. Both the code generator and the engine driver's
// invocation step iterate ids in this same order.
type IDMap = map[*vetypes.Base]int

// titleCaser canonicalizes the banner comment at the top of each generated
// source;
// purely cosmetic, but it must be deterministic like everything else in
// the generated source.
var titleCaser = cases.Title(language.English)

// Generate emits complete C source for blocks. name is used only in the
// banner comment; the exported symbols are always "execute" and
// "launcher".
func Generate(blocks []*block.Block, ids IDMap, name string) (string, error) {
	if len(blocks) == 0 {
		return "", fmt.Errorf("codegen: no blocks to generate")
	}

	bases := orderedBases(ids)
	if len(bases) == 0 {
		return "", fmt.Errorf("codegen: no base arrays referenced")
	}

	usesRandom := false
	for _, b := range blocks {
		for _, in := range b.AllInstr() {
			if in.Opcode == vetypes.OpGenerate {
				usesRandom = true
			}
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "/* %s kernel, generated source — do not edit. */\n", titleCaser.String(name))
	writeIncludes(&sb, usesRandom)
	if usesRandom {
		writeRandomPrimitive(&sb)
	}

	writeExecute(&sb, blocks, ids, bases)
	writeLauncher(&sb, bases)

	return sb.String(), nil
}

// orderedBases returns the bases in ids sorted by their assigned id.
func orderedBases(ids IDMap) []*vetypes.Base {
	bases := make([]*vetypes.Base, len(ids))
	for b, id := range ids {
		if id < 0 || id >= len(bases) {
			continue
		}
		bases[id] = b
	}
	return bases
}

func writeIncludes(sb *strings.Builder, usesRandom bool) {
	includes := []string{"<stdint.h>", "<stdbool.h>", "<math.h>", "<complex.h>", "<string.h>"}
	if usesRandom {
		includes = append(includes, "<stddef.h>")
	}
	sort.Strings(includes)
	for _, inc := range includes {
		fmt.Fprintf(sb, "#include %s\n", inc)
	}
	sb.WriteByte('\n')
}

func writeExecute(sb *strings.Builder, blocks []*block.Block, ids IDMap, bases []*vetypes.Base) {
	sb.WriteString("static void execute(")
	for i, b := range bases {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(sb, "%s a%d[]", b.Type.CType(), i)
	}
	sb.WriteString(") {\n")

	g := &gen{sb: sb, ids: ids}
	for _, b := range blocks {
		g.emitBlock(b, 1)
	}
	sb.WriteString("}\n\n")
}

func writeLauncher(sb *strings.Builder, bases []*vetypes.Base) {
	sb.WriteString("void launcher(void** data_list) {\n")
	sb.WriteString("  execute(\n")
	for i, b := range bases {
		comma := ","
		if i == len(bases)-1 {
			comma = ""
		}
		fmt.Fprintf(sb, "    (%s*)data_list[%d]%s\n", b.Type.CType(), i, comma)
	}
	sb.WriteString("  );\n")
	sb.WriteString("}\n")
}

// gen carries the mutable state of a single Generate call's recursive
// block walk: the output buffer, the base-id map, and the stack of
// induction variable names for the ranks currently open.
type gen struct {
	sb      *strings.Builder
	ids     IDMap
	indices []string
	sizes   []int64
}

func (g *gen) indent(depth int) string {
	return strings.Repeat("  ", depth)
}

func (g *gen) emitBlock(b *block.Block, depth int) {
	if b.IsInstr() {
		g.emitInstr(b.Instr, depth)
		return
	}

	idx := fmt.Sprintf("i%d", b.Rank)
	if len(b.Sweeps) > 0 {
		g.emitPeeledLoop(b, idx, depth)
		return
	}

	fmt.Fprintf(g.sb, "%sfor (int64_t %s = 0; %s < %d; %s++) {\n", g.indent(depth), idx, idx, b.Size, idx)
	g.indices = append(g.indices, idx)
	g.sizes = append(g.sizes, b.Size)
	for _, c := range b.Children {
		g.emitBlock(c, depth+1)
	}
	g.indices = g.indices[:len(g.indices)-1]
	g.sizes = g.sizes[:len(g.sizes)-1]
	fmt.Fprintf(g.sb, "%s}\n", g.indent(depth))
}

// emitPeeledLoop emits a reduction's prologue (the induction variable held
// at 0, with sweep instructions replaced by identity copies, recursing into
// any nested rank the same way) followed by a for loop starting at 1.
func (g *gen) emitPeeledLoop(b *block.Block, idx string, depth int) {
	fmt.Fprintf(g.sb, "%s{\n", g.indent(depth))
	fmt.Fprintf(g.sb, "%sint64_t %s = 0;\n", g.indent(depth+1), idx)
	g.indices = append(g.indices, idx)
	g.sizes = append(g.sizes, b.Size)
	for _, c := range b.Children {
		g.emitPrologueBlock(c, depth+1, b.Sweeps)
	}

	if b.Size > 1 {
		fmt.Fprintf(g.sb, "%sfor (%s = 1; %s < %d; %s++) {\n", g.indent(depth+1), idx, idx, b.Size, idx)
		for _, c := range b.Children {
			g.emitBlock(c, depth+2)
		}
		fmt.Fprintf(g.sb, "%s}\n", g.indent(depth+1))
	}
	g.indices = g.indices[:len(g.indices)-1]
	g.sizes = g.sizes[:len(g.sizes)-1]
	fmt.Fprintf(g.sb, "%s}\n", g.indent(depth))
}

// emitPrologueBlock walks the same child tree as emitBlock, but an
// instruction in sweeps is realized as an identity copy instead of its
// normal reduction statement. A multi-axis reduction's swept run spans
// every rank from the peeled loop down to the instruction's own leaf, so a
// nested loop block encountered here is peeled recursively in exactly the
// same first-iteration/remaining-iterations split as emitPeeledLoop: only
// the single leading element of the whole swept run is ever an identity
// copy, and every other element, including the rest of this nested loop's
// first parent iteration, accumulates normally via emitBlock.
func (g *gen) emitPrologueBlock(b *block.Block, depth int, sweeps map[*vetypes.Instruction]bool) {
	if b.IsInstr() {
		if sweeps[b.Instr] {
			g.emitIdentityPeel(b.Instr, depth)
		} else {
			g.emitInstr(b.Instr, depth)
		}
		return
	}
	idx := fmt.Sprintf("i%d", b.Rank)

	fmt.Fprintf(g.sb, "%s{\n", g.indent(depth))
	fmt.Fprintf(g.sb, "%sint64_t %s = 0;\n", g.indent(depth+1), idx)
	g.indices = append(g.indices, idx)
	g.sizes = append(g.sizes, b.Size)
	for _, c := range b.Children {
		g.emitPrologueBlock(c, depth+1, sweeps)
	}
	if b.Size > 1 {
		fmt.Fprintf(g.sb, "%sfor (%s = 1; %s < %d; %s++) {\n", g.indent(depth+1), idx, idx, b.Size, idx)
		for _, c := range b.Children {
			g.emitBlock(c, depth+2)
		}
		fmt.Fprintf(g.sb, "%s}\n", g.indent(depth+1))
	}
	g.indices = g.indices[:len(g.indices)-1]
	g.sizes = g.sizes[:len(g.sizes)-1]
	fmt.Fprintf(g.sb, "%s}\n", g.indent(depth))
}
