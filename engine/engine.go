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

// Package engine is the top-level orchestrator: it owns the victim cache,
// the kernel store, and the extensions map, and drives the per-batch
// pipeline from raw instructions to an invoked compiled kernel.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/Thunderl3ear/bohrium/block"
	"github.com/Thunderl3ear/bohrium/codegen"
	"github.com/Thunderl3ear/bohrium/compiler"
	"github.com/Thunderl3ear/bohrium/fuse"
	"github.com/Thunderl3ear/bohrium/internal/cpufeatures"
	"github.com/Thunderl3ear/bohrium/store"
	"github.com/Thunderl3ear/bohrium/vcache"
	"github.com/Thunderl3ear/bohrium/vetypes"
)

// ExtensionHandler runs an OpExtension instruction dispatched directly by
// name, bypassing the fuser entirely.
type ExtensionHandler func(*vetypes.Instruction) error

// Stats reports lifetime counters, mirroring the original engine's
// exec_count and the victim cache's own hit/miss tracking.
type Stats struct {
	BatchesExecuted int64
	VCache          vcache.Stats
}

// Engine is the single explicit owner of the store, vcache, and extensions
// map: no package-level globals here, so multiple engines never collide.
type Engine struct {
	log *slog.Logger
	cfg Config

	store    *store.Store
	vcache   *vcache.Cache
	compiler *compiler.Driver

	extensions map[string]ExtensionHandler
	live       map[*vetypes.Base]bool

	execCount int64
}

// New constructs an Engine from cfg. Callers must call Init before the
// first Execute if cfg.Preload is set.
func New(cfg Config, log *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	features := cpufeatures.Detect()
	return &Engine{
		log:        log,
		cfg:        cfg,
		store:      store.New(log, cfg.ObjectDir, cfg.JITDumpSrc),
		vcache:     vcache.New(cfg.VCacheSize),
		compiler:   compiler.New(cfg.CompilerCmd, features, cfg.PreLint),
		extensions: make(map[string]ExtensionHandler),
		live:       make(map[*vetypes.Base]bool),
	}, nil
}

// Init runs startup-time side effects, currently just kernel preload.
func (e *Engine) Init() error {
	if !e.cfg.Preload {
		return nil
	}
	if err := e.store.Preload(); err != nil {
		return fmt.Errorf("engine: init: %w", err)
	}
	return nil
}

// Shutdown releases every cached buffer and loaded kernel handle.
func (e *Engine) Shutdown() error {
	e.vcache.Clear()
	e.store.Close()
	return nil
}

// RegisterExtension binds name to a handler for OpExtension dispatch.
func (e *Engine) RegisterExtension(name string, h ExtensionHandler) error {
	if name == "" {
		return fmt.Errorf("engine: extension name must not be empty")
	}
	if h == nil {
		return fmt.Errorf("engine: extension %q: nil handler", name)
	}
	e.extensions[name] = h
	return nil
}

// Describe returns a human-readable snapshot of the engine's configuration
// and collaborator state, printed by cmd/vejit-inspect.
func (e *Engine) Describe() string {
	stats := e.vcache.Stats()
	return fmt.Sprintf(
		"bohrium vector engine: jit_enabled=%v jit_fusion=%v jit_dumpsrc=%v vcache_capacity=%d vcache_used=%d object_dir=%q batches_executed=%d",
		e.cfg.JITEnabled, e.cfg.JITFusion, e.cfg.JITDumpSrc, stats.Capacity, stats.UsedBytes, e.cfg.ObjectDir, e.execCount,
	)
}

// Stats reports lifetime counters: the exec counter and vcache
// statistics.
func (e *Engine) Stats() Stats {
	return Stats{BatchesExecuted: e.execCount, VCache: e.vcache.Stats()}
}

// Execute processes one batch of instructions. Extension opcodes are
// dispatched immediately as encountered, in source order, splitting the
// surrounding instructions into JIT-processed runs so total ordering is
// preserved across the split.
func (e *Engine) Execute(ctx context.Context, instrs []*vetypes.Instruction) error {
	e.execCount++
	if e.cfg.DumpRepresentation {
		e.log.Debug("engine: batch representation", "count", len(instrs), "instructions", instrs)
	}

	var pending []*vetypes.Instruction
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		batch := pending
		pending = nil
		return e.executeBatch(ctx, batch)
	}

	for _, in := range instrs {
		if in.Opcode == vetypes.OpExtension {
			if err := flush(); err != nil {
				return err
			}
			if err := e.dispatchExtension(in); err != nil {
				return err
			}
			continue
		}
		pending = append(pending, in)
	}
	return flush()
}

func (e *Engine) dispatchExtension(in *vetypes.Instruction) error {
	if in.Ext == nil {
		return fmt.Errorf("%w: extension instruction with no payload", ErrUnsupported)
	}
	h, ok := e.extensions[in.Ext.Name]
	if !ok {
		return fmt.Errorf("%w: extension %q not registered", ErrUnsupported, in.Ext.Name)
	}
	return h(in)
}

// executeBatch runs the full allocate/fuse/generate/compile/invoke/free
// pipeline over a run of non-extension instructions.
func (e *Engine) executeBatch(ctx context.Context, instrs []*vetypes.Instruction) error {
	news, freeSet, err := e.updateAllocatedBases(instrs)
	if err != nil {
		return err
	}

	if !batchHasNonConstOperand(instrs) {
		return nil
	}

	useSIJ := !e.cfg.JITEnabled || !e.cfg.JITFusion
	blocks := fuse.Run(instrs, news, fuse.Options{FusionEnabled: !useSIJ})

	if len(blocks) == 0 {
		return e.processFrees(freeSet)
	}

	if useSIJ {
		for i, b := range blocks {
			if err := e.resolveAndInvoke(ctx, []*block.Block{b}, fmt.Sprintf("sij_%d", i)); err != nil {
				return err
			}
		}
	} else {
		if err := e.resolveAndInvoke(ctx, blocks, "fused"); err != nil {
			return err
		}
	}

	return e.processFrees(freeSet)
}

// updateAllocatedBases tracks newly-live output bases and validates every
// FREE against the engine's live set.
func (e *Engine) updateAllocatedBases(instrs []*vetypes.Instruction) (fuse.News, []*vetypes.Base, error) {
	news := fuse.News{}
	var freeSet []*vetypes.Base

	for _, in := range instrs {
		if in.Opcode == vetypes.OpFree {
			if in.NumOperands() == 0 {
				return nil, nil, fmt.Errorf("%w: FREE with no target base", ErrInvariant)
			}
			base := in.Output().Base
			if base == nil || !e.live[base] {
				return nil, nil, fmt.Errorf("%w: FREE of untracked base", ErrInvariant)
			}
			delete(e.live, base)
			freeSet = append(freeSet, base)
			continue
		}
		if in.NumOperands() == 0 {
			continue
		}
		base := in.OutputBase()
		if base != nil && !e.live[base] {
			e.live[base] = true
			news[in] = true
		}
	}
	return news, freeSet, nil
}

func batchHasNonConstOperand(instrs []*vetypes.Instruction) bool {
	for _, in := range instrs {
		for _, op := range in.Operands {
			if !op.IsConst {
				return true
			}
		}
	}
	return false
}

// resolveAndInvoke drives one group of blocks destined for a single
// compiled kernel: allocate any unbacked output bases, generate and
// fingerprint source, resolve it in the kernel store, and invoke the
// loaded launcher with pointers in base-id order.
func (e *Engine) resolveAndInvoke(ctx context.Context, blocks []*block.Block, label string) error {
	ids := buildIDs(blocks)
	if len(ids) == 0 {
		return nil
	}

	for base := range ids {
		if err := e.vcache.MallocBase(base); err != nil {
			return fmt.Errorf("%w: %v", ErrAllocation, err)
		}
	}

	src, err := codegen.Generate(blocks, ids, label)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	fp := codegen.Fingerprint(src)

	compile := func(objPath string, srcBytes []byte) error {
		return e.compiler.Compile(ctx, objPath, srcBytes)
	}
	if err := e.store.Resolve(fp, func() (string, error) { return src, nil }, compile); err != nil {
		return fmt.Errorf("%w: %v", ErrCompilation, err)
	}

	ptrs := make([]unsafe.Pointer, len(ids))
	for base, id := range ids {
		ptrs[id] = base.Data
	}
	if err := e.store.Invoke(fp, ptrs); err != nil {
		return fmt.Errorf("%w: %v", ErrLoad, err)
	}
	return nil
}

// buildIDs assigns dense base ids in first-appearance order over every
// instruction reachable from blocks, scoped per compiled kernel rather
// than per whole batch so SIJ mode's isolated per-instruction kernels
// only see their own bases.
func buildIDs(blocks []*block.Block) codegen.IDMap {
	ids := codegen.IDMap{}
	next := 0
	for _, b := range blocks {
		for _, in := range b.AllInstr() {
			for _, op := range in.Operands {
				if op.IsConst || op.Base == nil {
					continue
				}
				if _, ok := ids[op.Base]; !ok {
					ids[op.Base] = next
					next++
				}
			}
		}
	}
	return ids
}

func (e *Engine) processFrees(freeSet []*vetypes.Base) error {
	for _, base := range freeSet {
		if err := e.vcache.FreeBase(base); err != nil {
			return fmt.Errorf("%w: %v", ErrInvariant, err)
		}
	}
	return nil
}
