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
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Thunderl3ear/bohrium/internal/cpufeatures"
)

func TestBuildArgsSubstitutesOutAndAppendsFeatureFlags(t *testing.T) {
	t.Parallel()
	d := New("cc -x c -fPIC -shared -O3 -o {OUT} -", &cpufeatures.Set{GOARCH: "amd64", AVX2: true}, false)
	args, err := d.buildArgs("/tmp/deadbeef.so")
	if err != nil {
		t.Fatalf("buildArgs: %v", err)
	}
	want := []string{"cc", "-x", "c", "-fPIC", "-shared", "-O3", "-o", "/tmp/deadbeef.so", "-", "-mavx2"}
	if strings.Join(args, " ") != strings.Join(want, " ") {
		t.Fatalf("args = %v, want %v", args, want)
	}
}

func TestBuildArgsRejectsMissingPlaceholder(t *testing.T) {
	t.Parallel()
	d := New("cc -o out.so -", nil, false)
	if _, err := d.buildArgs("/tmp/x.so"); err == nil {
		t.Fatal("expected an error for a template missing {OUT}")
	}
}

func TestBuildArgsRejectsEmptyTemplate(t *testing.T) {
	t.Parallel()
	d := New("", nil, false)
	if _, err := d.buildArgs("/tmp/x.so"); err == nil {
		t.Fatal("expected an error for an empty compiler_cmd")
	}
}

func TestCompileReportsMissingCompiler(t *testing.T) {
	t.Parallel()
	d := New("this-compiler-does-not-exist -o {OUT} -", nil, false)
	objPath := filepath.Join(t.TempDir(), "out.so")
	err := d.Compile(context.Background(), objPath, []byte("int x;"))
	if err == nil {
		t.Fatal("expected an error invoking a nonexistent compiler")
	}
	if _, statErr := os.Stat(objPath); statErr == nil {
		t.Fatal("object file should not exist after a failed compile")
	}
}

func TestCompileWithPreLintCatchesSyntaxErrorBeforeShellingOut(t *testing.T) {
	t.Parallel()
	d := New("this-compiler-does-not-exist -o {OUT} -", nil, true)
	objPath := filepath.Join(t.TempDir(), "out.so")
	err := d.Compile(context.Background(), objPath, []byte("int x"))
	if err == nil {
		t.Fatal("expected a lint error for a missing semicolon")
	}
	if strings.Contains(err.Error(), "this-compiler-does-not-exist") {
		t.Fatalf("expected Lint to reject the source before exec, got: %v", err)
	}
}
