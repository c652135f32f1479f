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

package codegen

import "strings"

// randomPrimitiveSrc is a counter-based PRNG (splitmix64, keyed by the
// GENERATE instruction's start/key pair) inlined into any kernel using
// OpGenerate, so the kernel stays a single translation unit compilable
// with nothing but the C standard library.
const randomPrimitiveSrc = `
static uint64_t ve_random_u64(uint64_t start, uint64_t key, uint64_t counter) {
  uint64_t z = start + key + counter + 0x9E3779B97F4A7C15ULL;
  z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9ULL;
  z = (z ^ (z >> 27)) * 0x94D049BB133111EBULL;
  return z ^ (z >> 31);
}
`

func writeRandomPrimitive(sb *strings.Builder) {
	sb.WriteString(randomPrimitiveSrc)
	sb.WriteByte('\n')
}
