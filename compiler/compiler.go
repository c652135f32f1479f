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

// Package compiler is the compiler driver: it shells out to an externally
// configured C compiler command, streaming generated source on stdin so
// concurrent calls never contend over a shared temp path.
package compiler

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/Thunderl3ear/bohrium/internal/cpufeatures"
)

// Driver invokes an external compiler command to turn generated C source
// into a shared object.
type Driver struct {
	// CmdTemplate is a whitespace-split command line (no shell quoting is
	// interpreted) containing the literal
	// token "{OUT}" where the output path is substituted, e.g.
	// "cc -x c -fPIC -shared -O3 -o {OUT} -".
	CmdTemplate string

	// Features, when non-nil, appends target-appropriate flags (-mavx2,
	// -msse4.2, …) derived from runtime CPU detection. The emitted code
	// itself never branches on ISA, but the compiler's auto-vectorizer
	// benefits from knowing what's available.
	Features *cpufeatures.Set

	// PreLint runs generated source through Lint before shelling out,
	// turning a codegen bug into a precise parse error instead of an
	// opaque `cc` exit status.
	PreLint bool
}

// New builds a Driver from a compiler_cmd template.
func New(cmdTemplate string, features *cpufeatures.Set, preLint bool) *Driver {
	return &Driver{CmdTemplate: cmdTemplate, Features: features, PreLint: preLint}
}

// Compile invokes the configured compiler synchronously, feeding src on
// stdin and expecting the resulting shared object at objPath. Errors are
// returned, never panicked.
func (d *Driver) Compile(ctx context.Context, objPath string, src []byte) error {
	if d.PreLint {
		if err := Lint(src); err != nil {
			return err
		}
	}

	args, err := d.buildArgs(objPath)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdin = bytes.NewReader(src)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("compiler: %s failed: %w: %s", args[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}

// buildArgs splits CmdTemplate into argv, substitutes {OUT}, and appends
// any CPU feature flags.
func (d *Driver) buildArgs(objPath string) ([]string, error) {
	if d.CmdTemplate == "" {
		return nil, fmt.Errorf("compiler: empty compiler_cmd")
	}
	fields := strings.Fields(d.CmdTemplate)
	found := false
	args := make([]string, 0, len(fields)+4)
	for _, f := range fields {
		if f == "{OUT}" {
			args = append(args, objPath)
			found = true
			continue
		}
		args = append(args, f)
	}
	if !found {
		return nil, fmt.Errorf("compiler: compiler_cmd %q missing {OUT} placeholder", d.CmdTemplate)
	}
	if d.Features != nil {
		args = append(args, d.Features.CompilerFlags()...)
	}
	return args, nil
}
