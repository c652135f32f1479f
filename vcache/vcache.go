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

// Package vcache implements the victim cache: a pool of recently-freed
// array buffers keyed by byte size, reused to satisfy subsequent
// allocations instead of round-tripping through the system allocator on
// every base lifecycle.
package vcache

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/Thunderl3ear/bohrium/vetypes"
)

// entry is one cached buffer awaiting reuse.
type entry struct {
	ptr  unsafe.Pointer
	size int64
	seq  int64 // monotonically increasing touch order, used for LRU eviction
}

// Cache is a size-bucketed victim cache with a fixed byte-capacity LRU
// eviction policy across all buckets combined. Capacity 0 disables the
// cache: every malloc/free goes straight to the system allocator.
type Cache struct {
	mu       sync.Mutex
	capacity int64
	used     int64
	buckets  map[int64][]*entry
	seq      int64

	hits      int64
	misses    int64
	evictions int64
}

// New builds a Cache with the given byte capacity.
func New(capacityBytes int64) *Cache {
	return &Cache{capacity: capacityBytes, buckets: make(map[int64][]*entry)}
}

// MallocBase satisfies base's allocation from the cache if a buffer of
// exactly base.NBytes() is available, falling back to the system allocator
// on a miss. A no-op if base is already allocated.
func (c *Cache) MallocBase(base *vetypes.Base) error {
	if base.Allocated() {
		return nil
	}
	n := base.NBytes()

	if c.capacity > 0 {
		c.mu.Lock()
		if bucket := c.buckets[n]; len(bucket) > 0 {
			e := bucket[len(bucket)-1]
			c.buckets[n] = bucket[:len(bucket)-1]
			c.used -= e.size
			c.hits++
			c.mu.Unlock()
			base.Data = e.ptr
			return nil
		}
		c.misses++
		c.mu.Unlock()
	}

	p := systemAlloc(n)
	if p == nil && n > 0 {
		return fmt.Errorf("vcache: out of memory allocating %d bytes", n)
	}
	base.Data = p
	return nil
}

// FreeBase returns base's buffer to the cache, then evicts the globally
// least-recently-freed entries to the system allocator until the cache fits
// its capacity again; with capacity 0 the buffer goes straight to the system
// allocator. Freeing an already-empty base is a programmer error and is
// reported.
func (c *Cache) FreeBase(base *vetypes.Base) error {
	if !base.Allocated() {
		return fmt.Errorf("vcache: free of untracked/already-freed base")
	}
	p := base.Data
	n := base.NBytes()
	base.Data = nil

	if c.capacity <= 0 {
		systemFree(p)
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.buckets[n] = append(c.buckets[n], &entry{ptr: p, size: n, seq: c.seq})
	c.used += n
	c.evictLocked()
	return nil
}

// evictLocked releases the globally least-recently-touched entries across
// all size buckets until used fits within capacity. Must be called with
// c.mu held.
func (c *Cache) evictLocked() {
	for c.used > c.capacity {
		var oldestSize int64 = -1
		var oldestSeq int64
		for size, bucket := range c.buckets {
			if len(bucket) == 0 {
				continue
			}
			if oldestSize == -1 || bucket[0].seq < oldestSeq {
				oldestSize = size
				oldestSeq = bucket[0].seq
			}
		}
		if oldestSize == -1 {
			return
		}
		bucket := c.buckets[oldestSize]
		victim := bucket[0]
		c.buckets[oldestSize] = bucket[1:]
		c.used -= victim.size
		c.evictions++
		systemFree(victim.ptr)
	}
}

// Clear releases every cached buffer to the system allocator, for use on
// engine shutdown.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for size, bucket := range c.buckets {
		for _, e := range bucket {
			systemFree(e.ptr)
		}
		delete(c.buckets, size)
	}
	c.used = 0
}

// Stats reports cumulative cache performance counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	UsedBytes int64
	Capacity  int64
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		UsedBytes: c.used,
		Capacity:  c.capacity,
	}
}
