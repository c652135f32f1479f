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

//go:build linux

package store

/*
#define _GNU_SOURCE
#cgo LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdlib.h>

typedef void (*launcher_fn)(void**);

static void call_launcher(void* fn, void** data) {
  ((launcher_fn)fn)(data);
}
*/
import "C"

import (
	"fmt"
	"runtime"
	"unsafe"
)

func dlopenLib(path string) (unsafe.Pointer, error) {
	cs := C.CString(path)
	defer C.free(unsafe.Pointer(cs))
	h := C.dlopen(cs, C.RTLD_NOW|C.RTLD_LOCAL)
	if h == nil {
		return nil, fmt.Errorf("dlopen(%q): %s", path, C.GoString(C.dlerror()))
	}
	return h, nil
}

func dlcloseLib(handle unsafe.Pointer) {
	C.dlclose(handle)
}

func dlsymLauncher(handle unsafe.Pointer) (unsafe.Pointer, error) {
	cs := C.CString("launcher")
	defer C.free(unsafe.Pointer(cs))
	C.dlerror() // clear
	p := C.dlsym(handle, cs)
	if err := C.dlerror(); err != nil {
		return nil, fmt.Errorf("dlsym(launcher): %s", C.GoString(err))
	}
	if p == nil {
		return nil, fmt.Errorf("dlsym(launcher): symbol not found")
	}
	return p, nil
}

// callLauncher invokes fn, a resolved "void launcher(void**)" symbol, with
// dataPtrs as its argument vector. Go-allocated buffers among dataPtrs are
// pinned for the duration of the call so cgo accepts the pointer vector.
func callLauncher(fn unsafe.Pointer, dataPtrs []unsafe.Pointer) {
	if len(dataPtrs) == 0 {
		C.call_launcher(fn, nil)
		return
	}
	var pinner runtime.Pinner
	defer pinner.Unpin()
	for _, p := range dataPtrs {
		if p != nil {
			pinner.Pin(p)
		}
	}
	C.call_launcher(fn, (*unsafe.Pointer)(unsafe.Pointer(&dataPtrs[0])))
}
