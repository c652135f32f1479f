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

package vcache

import (
	"testing"

	"github.com/Thunderl3ear/bohrium/vetypes"
)

func TestMallocBaseReusesFreedBuffer(t *testing.T) {
	t.Parallel()
	c := New(1 << 20)
	a := &vetypes.Base{Type: vetypes.F64, NElem: 128}
	if err := c.MallocBase(a); err != nil {
		t.Fatalf("MallocBase: %v", err)
	}
	ptr := a.Data
	if err := c.FreeBase(a); err != nil {
		t.Fatalf("FreeBase: %v", err)
	}
	if a.Data != nil {
		t.Fatal("FreeBase did not clear Data")
	}

	b := &vetypes.Base{Type: vetypes.F64, NElem: 128}
	if err := c.MallocBase(b); err != nil {
		t.Fatalf("MallocBase: %v", err)
	}
	if b.Data != ptr {
		t.Fatal("expected the cached buffer to be reused")
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Fatalf("stats = %+v, want 1 hit and 1 miss", stats)
	}
	c.Clear()
}

func TestMallocBaseIsNoopWhenAlreadyAllocated(t *testing.T) {
	t.Parallel()
	c := New(0)
	a := &vetypes.Base{Type: vetypes.I32, NElem: 4}
	if err := c.MallocBase(a); err != nil {
		t.Fatalf("MallocBase: %v", err)
	}
	ptr := a.Data
	if err := c.MallocBase(a); err != nil {
		t.Fatalf("MallocBase (second call): %v", err)
	}
	if a.Data != ptr {
		t.Fatal("MallocBase reallocated an already-allocated base")
	}
	if err := c.FreeBase(a); err != nil {
		t.Fatalf("FreeBase: %v", err)
	}
}

func TestFreeBaseRejectsUnallocated(t *testing.T) {
	t.Parallel()
	c := New(1024)
	a := &vetypes.Base{Type: vetypes.F32, NElem: 8}
	if err := c.FreeBase(a); err == nil {
		t.Fatal("expected an error freeing a never-allocated base")
	}
}

func TestZeroCapacityDisablesCache(t *testing.T) {
	t.Parallel()
	c := New(0)
	a := &vetypes.Base{Type: vetypes.F64, NElem: 16}
	if err := c.MallocBase(a); err != nil {
		t.Fatalf("MallocBase: %v", err)
	}
	if err := c.FreeBase(a); err != nil {
		t.Fatalf("FreeBase: %v", err)
	}
	stats := c.Stats()
	if stats.UsedBytes != 0 || stats.Hits != 0 || stats.Misses != 0 {
		t.Fatalf("disabled cache should not track buckets, got %+v", stats)
	}
}

func TestEvictionUnderCapacityPressure(t *testing.T) {
	t.Parallel()
	bufSize := int64(64)
	c := New(bufSize) // room for exactly one buffer

	a := &vetypes.Base{Type: vetypes.U8, NElem: bufSize}
	b := &vetypes.Base{Type: vetypes.U8, NElem: bufSize}
	if err := c.MallocBase(a); err != nil {
		t.Fatalf("MallocBase a: %v", err)
	}
	if err := c.MallocBase(b); err != nil {
		t.Fatalf("MallocBase b: %v", err)
	}
	if err := c.FreeBase(a); err != nil {
		t.Fatalf("FreeBase a: %v", err)
	}
	if err := c.FreeBase(b); err != nil {
		t.Fatalf("FreeBase b: %v", err)
	}

	stats := c.Stats()
	if stats.Evictions != 1 {
		t.Fatalf("evictions = %d, want 1 (a's buffer pushed out by b)", stats.Evictions)
	}
	if stats.UsedBytes != bufSize {
		t.Fatalf("used = %d, want %d", stats.UsedBytes, bufSize)
	}
	c.Clear()
}
