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

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint derives the kernel store's cache key from generated source.
// Two batches that fuse into structurally identical block trees produce
// byte-identical source because base ids are assigned
// in first-appearance order, so hashing the source text directly gives a
// fingerprint that is stable up to base-id renaming without needing a
// separate canonical descriptor.
func Fingerprint(src string) string {
	sum := sha256.Sum256([]byte(src))
	return hex.EncodeToString(sum[:])
}
