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

import "testing"

func TestLintAcceptsWellFormedKernel(t *testing.T) {
	t.Parallel()
	src := `
#include <stdint.h>
static void execute(double a0[], double a1[], double a2[]) {
  int64_t i0;
  for (i0 = 0; i0 < 10; i0++) {
    a0[i0] = a1[i0] + a2[i0];
  }
}
void launcher(void** data_list) {
  execute((double*)data_list[0], (double*)data_list[1], (double*)data_list[2]);
}
`
	if err := Lint([]byte(src)); err != nil {
		t.Fatalf("Lint rejected well-formed source: %v", err)
	}
}

func TestLintRejectsSyntaxError(t *testing.T) {
	t.Parallel()
	src := `static void execute(double a0[]) { a0[0] = ; }`
	if err := Lint([]byte(src)); err == nil {
		t.Fatal("expected Lint to reject malformed source")
	}
}
