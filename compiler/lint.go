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

package compiler

import (
	"fmt"
	"runtime"

	"modernc.org/cc/v4"
)

// Lint parses generated C source with a portable, cgo-free C front end
// before it is ever handed to the external compiler. A syntax error caught
// here is a bug in package codegen, not a bad kernel; failing fast with a
// precise parse error is far more useful than the anonymous nonzero exit
// status an external `cc` invocation returns for the same mistake.
func Lint(src []byte) error {
	cfg, err := cc.NewConfig(runtime.GOOS, runtime.GOARCH)
	if err != nil {
		return fmt.Errorf("compiler: lint: build config: %w", err)
	}
	sources := []cc.Source{
		{Name: "predefined", Value: cfg.Predefined},
		{Name: "builtin", Value: cc.Builtin},
		{Name: "kernel.c", Value: string(src)},
	}
	if _, err := cc.Parse(cfg, sources); err != nil {
		return fmt.Errorf("compiler: lint: %w", err)
	}
	return nil
}
