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

/*
#include <stdlib.h>
*/
import "C"

import "unsafe"

// systemAlloc and systemFree are the only two functions in this package
// that touch cgo. Base buffers must be malloc'd (not Go-allocated) because
// compiled kernels receive them as raw pointers with no Go runtime in the
// loop.
func systemAlloc(n int64) unsafe.Pointer {
	if n <= 0 {
		return nil
	}
	return C.malloc(C.size_t(n))
}

func systemFree(p unsafe.Pointer) {
	C.free(p)
}
