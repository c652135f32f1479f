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

package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/Thunderl3ear/bohrium/vetypes"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		VCacheSize:  0,
		JITEnabled:  true,
		JITFusion:   true,
		CompilerCmd: "cc -x c -fPIC -shared -O3 -o {OUT} -",
		ObjectDir:   t.TempDir(),
	}
}

func TestConfigValidateRejectsNegativeCacheSize(t *testing.T) {
	t.Parallel()
	cfg := Config{VCacheSize: -1}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for a negative vcache_size")
	}
}

func TestConfigValidateRequiresCompilerCmdWhenJITEnabled(t *testing.T) {
	t.Parallel()
	cfg := Config{VCacheSize: 0, JITEnabled: true, ObjectDir: "/tmp"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for jit_enabled with no compiler_cmd")
	}
}

func TestConfigValidateAllowsJITDisabledWithNoCompiler(t *testing.T) {
	t.Parallel()
	cfg := Config{VCacheSize: 0, JITEnabled: false}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestExecuteEmptyBatchIsNoop(t *testing.T) {
	t.Parallel()
	e, err := New(testConfig(t), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := e.Execute(context.Background(), nil); err != nil {
		t.Fatalf("Execute(nil): %v", err)
	}
}

func TestExecuteRejectsFreeOfUntrackedBase(t *testing.T) {
	t.Parallel()
	e, err := New(testConfig(t), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	base := &vetypes.Base{Type: vetypes.F64, NElem: 4}
	free := &vetypes.Instruction{
		Opcode:   vetypes.OpFree,
		Operands: []vetypes.View{vetypes.NewArrayView(base, []int64{4}, []int64{1}, 0)},
	}
	err = e.Execute(context.Background(), []*vetypes.Instruction{free})
	if err == nil {
		t.Fatal("expected an error freeing a base the engine never saw allocated")
	}
	if !errors.Is(err, ErrInvariant) {
		t.Fatalf("error = %v, want wrapping ErrInvariant", err)
	}
}

func TestExecuteSystemOnlyBatchProcessesFrees(t *testing.T) {
	t.Parallel()
	e, err := New(testConfig(t), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	base := &vetypes.Base{Type: vetypes.F64, NElem: 4}

	// Directly seed the live set and the buffer the way a prior batch's
	// allocation would, since this test only exercises the FREE bookkeeping
	// path.
	e.live[base] = true
	if err := e.vcache.MallocBase(base); err != nil {
		t.Fatalf("MallocBase: %v", err)
	}

	sync := &vetypes.Instruction{Opcode: vetypes.OpSync}
	free := &vetypes.Instruction{
		Opcode:   vetypes.OpFree,
		Operands: []vetypes.View{vetypes.NewArrayView(base, []int64{4}, []int64{1}, 0)},
	}
	if err := e.Execute(context.Background(), []*vetypes.Instruction{sync, free}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if e.live[base] {
		t.Fatal("FREE did not remove the base from the live set")
	}
}

func TestRegisterExtensionRejectsEmptyName(t *testing.T) {
	t.Parallel()
	e, err := New(testConfig(t), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := e.RegisterExtension("", func(*vetypes.Instruction) error { return nil }); err == nil {
		t.Fatal("expected an error registering an empty extension name")
	}
}

func TestExecuteDispatchesRegisteredExtension(t *testing.T) {
	t.Parallel()
	e, err := New(testConfig(t), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	called := false
	if err := e.RegisterExtension("my_extension", func(*vetypes.Instruction) error {
		called = true
		return nil
	}); err != nil {
		t.Fatalf("RegisterExtension: %v", err)
	}

	ext := &vetypes.Instruction{Opcode: vetypes.OpExtension, Ext: &vetypes.ExtensionPayload{Name: "my_extension"}}
	if err := e.Execute(context.Background(), []*vetypes.Instruction{ext}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !called {
		t.Fatal("extension handler was not invoked")
	}
}

func TestExecuteUnregisteredExtensionIsUnsupported(t *testing.T) {
	t.Parallel()
	e, err := New(testConfig(t), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ext := &vetypes.Instruction{Opcode: vetypes.OpExtension, Ext: &vetypes.ExtensionPayload{Name: "nope"}}
	err = e.Execute(context.Background(), []*vetypes.Instruction{ext})
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("error = %v, want wrapping ErrUnsupported", err)
	}
}

func TestStatsTracksBatchesExecuted(t *testing.T) {
	t.Parallel()
	e, err := New(testConfig(t), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_ = e.Execute(context.Background(), nil)
	_ = e.Execute(context.Background(), nil)
	if got := e.Stats().BatchesExecuted; got != 2 {
		t.Fatalf("BatchesExecuted = %d, want 2", got)
	}
}

func TestDescribeIncludesConfig(t *testing.T) {
	t.Parallel()
	e, err := New(testConfig(t), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := e.Describe(); got == "" {
		t.Fatal("Describe returned an empty string")
	}
}
