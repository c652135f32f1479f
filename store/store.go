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

// Package store implements the persistent, content-addressed kernel
// store: an on-disk directory of compiled objects, and an in-memory map
// from fingerprint to loaded launcher function pointer.
package store

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"unsafe"

	"golang.org/x/sync/singleflight"
)

// kernel is one loaded compiled object.
type kernel struct {
	handle unsafe.Pointer // dlopen handle, closed on Close
	fn     unsafe.Pointer // resolved "launcher" symbol
}

// Store owns the object directory and the fingerprint -> loaded-kernel map.
// It never compiles anything itself; Resolve's caller supplies the
// generate/compile steps and Store handles only the persistent-cache and
// dlopen/dlsym bookkeeping, leaving compilation to the compiler driver.
type Store struct {
	log *slog.Logger

	objDir  string
	dumpSrc bool

	mu       sync.RWMutex
	kernels  map[string]*kernel
	objFiles map[string]string
	group    singleflight.Group
}

// New builds a Store rooted at objDir. dumpSrc mirrors the engine's
// jit_dumpsrc setting: when set, Resolve writes each newly generated source
// to SrcAbsPath before compiling it.
func New(log *slog.Logger, objDir string, dumpSrc bool) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		log:      log,
		objDir:   objDir,
		dumpSrc:  dumpSrc,
		kernels:  make(map[string]*kernel),
		objFiles: make(map[string]string),
	}
}

// SymbolReady reports whether fp has a loaded, callable function pointer.
func (s *Store) SymbolReady(fp string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.kernels[fp]
	return ok && k.fn != nil
}

// Preload scans the object directory at startup and loads every present
// object, populating the fingerprint map.
func (s *Store) Preload() error {
	entries, err := os.ReadDir(s.objDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("store: preload: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".so" {
			continue
		}
		fp := e.Name()[:len(e.Name())-len(".so")]
		s.AddSymbol(fp, e.Name())
		if _, err := s.Load(fp); err != nil {
			s.log.Warn("store: preload failed to load object", "fingerprint", fp, "error", err)
		}
	}
	return nil
}

// AddSymbol records that an object file exists for fp, without loading it.
func (s *Store) AddSymbol(fp, filename string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objFiles[fp] = filename
}

// Load opens the object file for fp, resolves the launcher symbol, and
// inserts it into the map. Returns false without error if the object does
// not exist; returns an error if it exists but lacks the symbol.
func (s *Store) Load(fp string) (bool, error) {
	path := s.ObjAbsPath(fp)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("store: stat %s: %w", path, err)
	}

	handle, err := dlopenLib(path)
	if err != nil {
		return false, fmt.Errorf("store: load %s: %w", fp, err)
	}
	fn, err := dlsymLauncher(handle)
	if err != nil {
		dlcloseLib(handle)
		return false, fmt.Errorf("store: resolve launcher in %s: %w", fp, err)
	}

	s.mu.Lock()
	s.kernels[fp] = &kernel{handle: handle, fn: fn}
	s.mu.Unlock()
	return true, nil
}

// SrcAbsPath and ObjAbsPath derive the deterministic on-disk paths for a
// fingerprint: "{fingerprint}.so" and "{fingerprint}.c" under objDir.
func (s *Store) SrcAbsPath(fp string) string {
	return filepath.Join(s.objDir, fp+".c")
}

func (s *Store) ObjAbsPath(fp string) string {
	return filepath.Join(s.objDir, fp+".so")
}

// DumpSourceEnabled reports whether Resolve writes generated source to
// SrcAbsPath for debugging.
func (s *Store) DumpSourceEnabled() bool {
	return s.dumpSrc
}

// CompileFunc produces an object file at objPath from src. Supplied by the
// engine driver, backed by the compiler package; kept as a function type
// here so Store has no import-time dependency on it.
type CompileFunc func(objPath string, src []byte) error

// Resolve ensures fp is loaded, compiling on a miss. genSource is called at
// most once per miss to produce the C source; concurrent Resolve calls for
// the same fingerprint are deduplicated via singleflight so only one
// compilation happens even under concurrent callers — the engine itself
// runs single-threaded, but Store is built to be safe if that ever
// changes.
func (s *Store) Resolve(fp string, genSource func() (string, error), compile CompileFunc) error {
	if s.SymbolReady(fp) {
		return nil
	}

	_, err, _ := s.group.Do(fp, func() (any, error) {
		if s.SymbolReady(fp) {
			return nil, nil
		}
		src, err := genSource()
		if err != nil {
			return nil, fmt.Errorf("store: generate source for %s: %w", fp, err)
		}
		if s.dumpSrc {
			if err := os.WriteFile(s.SrcAbsPath(fp), []byte(src), 0o644); err != nil {
				s.log.Warn("store: failed to dump source", "fingerprint", fp, "error", err)
			}
		}
		objPath := s.ObjAbsPath(fp)
		if err := compile(objPath, []byte(src)); err != nil {
			return nil, fmt.Errorf("store: compile %s: %w", fp, err)
		}
		s.AddSymbol(fp, filepath.Base(objPath))
		ok, err := s.Load(fp)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("store: compiled object for %s vanished before load", fp)
		}
		return nil, nil
	})
	return err
}

// Invoke calls fp's loaded launcher with dataPtrs, in base-id order.
func (s *Store) Invoke(fp string, dataPtrs []unsafe.Pointer) error {
	s.mu.RLock()
	k, ok := s.kernels[fp]
	s.mu.RUnlock()
	if !ok || k.fn == nil {
		return fmt.Errorf("store: invoke: fingerprint %s not loaded", fp)
	}
	callLauncher(k.fn, dataPtrs)
	return nil
}

// Close releases every loaded dlopen handle. Intended for engine shutdown.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for fp, k := range s.kernels {
		if k.handle != nil {
			dlcloseLib(k.handle)
		}
		delete(s.kernels, fp)
	}
}
