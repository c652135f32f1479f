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

// Package cpufeatures detects the running CPU's vector-instruction
// capabilities and turns them into flags for the compiler driver. The
// generated C source (package codegen) never branches on ISA itself; only
// the auto-vectorizing back end benefits from knowing what's available.
package cpufeatures

import (
	"runtime"

	"golang.org/x/sys/cpu"
)

// Set is a detected CPU feature snapshot for the host running the engine.
type Set struct {
	GOARCH string
	AVX2   bool
	AVX512 bool
	FMA    bool
	SSE42  bool
	NEON   bool
	SVE    bool
}

// Detect inspects the running host via golang.org/x/sys/cpu.
func Detect() *Set {
	s := &Set{GOARCH: runtime.GOARCH}
	switch runtime.GOARCH {
	case "amd64":
		s.AVX2 = cpu.X86.HasAVX2
		s.AVX512 = cpu.X86.HasAVX512F
		s.FMA = cpu.X86.HasFMA
		s.SSE42 = cpu.X86.HasSSE42
	case "arm64":
		s.NEON = cpu.ARM64.HasASIMD
		s.SVE = cpu.ARM64.HasSVE
	}
	return s
}

// CompilerFlags maps detected features onto GCC/Clang-compatible -m flags.
// Conservative by construction: a flag is only emitted when the detecting
// host itself has the feature, since the compiled kernel runs on the same
// machine that JIT-compiled it — there is no cross-compilation.
func (s *Set) CompilerFlags() []string {
	if s == nil {
		return nil
	}
	var flags []string
	switch s.GOARCH {
	case "amd64":
		if s.AVX512 {
			flags = append(flags, "-mavx512f")
		} else if s.AVX2 {
			flags = append(flags, "-mavx2")
		} else if s.SSE42 {
			flags = append(flags, "-msse4.2")
		}
		if s.FMA {
			flags = append(flags, "-mfma")
		}
	case "arm64":
		if s.SVE {
			flags = append(flags, "-march=armv8-a+sve")
		} else if s.NEON {
			flags = append(flags, "-march=armv8-a")
		}
	}
	return flags
}
