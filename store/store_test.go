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

package store

import (
	"path/filepath"
	"testing"
)

func TestAbsPaths(t *testing.T) {
	t.Parallel()
	s := New(nil, "/var/lib/bohrium/kernels", false)
	if got, want := s.SrcAbsPath("deadbeef"), filepath.Join("/var/lib/bohrium/kernels", "deadbeef.c"); got != want {
		t.Fatalf("SrcAbsPath = %q, want %q", got, want)
	}
	if got, want := s.ObjAbsPath("deadbeef"), filepath.Join("/var/lib/bohrium/kernels", "deadbeef.so"); got != want {
		t.Fatalf("ObjAbsPath = %q, want %q", got, want)
	}
}

func TestPreloadOnMissingDirectoryIsNoop(t *testing.T) {
	t.Parallel()
	s := New(nil, filepath.Join(t.TempDir(), "does-not-exist"), false)
	if err := s.Preload(); err != nil {
		t.Fatalf("Preload on a missing directory should be a no-op, got %v", err)
	}
}

func TestLoadOfMissingFingerprintReportsAbsent(t *testing.T) {
	t.Parallel()
	s := New(nil, t.TempDir(), false)
	ok, err := s.Load("nonexistent")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ok {
		t.Fatal("Load reported success for a fingerprint with no object file")
	}
}

func TestSymbolReadyFalseBeforeLoad(t *testing.T) {
	t.Parallel()
	s := New(nil, t.TempDir(), false)
	s.AddSymbol("abc123", "abc123.so")
	if s.SymbolReady("abc123") {
		t.Fatal("SymbolReady should be false until Load succeeds")
	}
}

func TestInvokeOfUnloadedFingerprintErrors(t *testing.T) {
	t.Parallel()
	s := New(nil, t.TempDir(), false)
	if err := s.Invoke("missing", nil); err == nil {
		t.Fatal("expected an error invoking an unloaded fingerprint")
	}
}
