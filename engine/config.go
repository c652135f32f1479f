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
	"fmt"
	"os"
	"strconv"
)

// Config carries the engine's startup configuration, sourced either
// programmatically or via VE_-prefixed environment variables (mirroring
// the original engine's BH_VE_CPU_* variables).
type Config struct {
	VCacheSize         int64
	Preload            bool
	JITEnabled         bool
	JITFusion          bool
	JITDumpSrc         bool
	CompilerCmd        string
	TemplateDir        string
	KernelDir          string
	ObjectDir          string
	DumpRepresentation bool

	// PreLint parses generated source with the bundled C front end before
	// handing it to the external compiler, turning a codegen bug into a
	// precise parse error instead of an opaque compiler exit status.
	PreLint bool
}

// Validate rejects malformed configuration before the engine touches disk
// or the compiler: a negative cache size can never be satisfied, and a
// JIT-enabled engine with nowhere to put objects or nothing to compile
// with can never resolve a single kernel.
func (c Config) Validate() error {
	if c.VCacheSize < 0 {
		return fmt.Errorf("engine: vcache_size must be >= 0, got %d", c.VCacheSize)
	}
	if c.JITEnabled {
		if c.CompilerCmd == "" {
			return fmt.Errorf("engine: compiler_cmd is required when jit_enabled is true")
		}
		if c.ObjectDir == "" {
			return fmt.Errorf("engine: object_directory is required when jit_enabled is true")
		}
	}
	return nil
}

// ConfigFromEnv populates a Config from VE_-prefixed environment variables,
// defaulting VE_JIT_ENABLED and VE_JIT_FUSION to true, the other unset
// booleans to false, VCacheSize to 64 MiB, and CompilerCmd to the common
// shared-object recipe used throughout the retrieval pack's own examples.
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		Preload:     envBool("VE_PRELOAD", false),
		JITEnabled:  envBool("VE_JIT_ENABLED", true),
		JITFusion:   envBool("VE_JIT_FUSION", true),
		JITDumpSrc:  envBool("VE_JIT_DUMPSRC", false),
		CompilerCmd: envString("VE_COMPILER_CMD", "cc -x c -fPIC -shared -O3 -o {OUT} -"),
		TemplateDir: envString("VE_TEMPLATE_DIR", ""),
		KernelDir:   envString("VE_KERNEL_DIR", ""),
		ObjectDir:   envString("VE_OBJECT_DIR", ""),
		PreLint:     envBool("VE_JIT_PRELINT", false),
	}
	size, err := envInt64("VE_VCACHE_SIZE", 64<<20)
	if err != nil {
		return Config{}, err
	}
	cfg.VCacheSize = size
	return cfg, nil
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt64(key string, def int64) (int64, error) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("engine: %s: %w", key, err)
	}
	return n, nil
}
