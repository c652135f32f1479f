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

package engine

import "errors"

// Every failure the engine surfaces wraps one of these sentinels so a
// caller can classify a batch failure with errors.Is, without parsing
// message text.
var (
	ErrAllocation  = errors.New("engine: allocation failure")
	ErrCompilation = errors.New("engine: compilation failure")
	ErrLoad        = errors.New("engine: load failure")
	ErrUnsupported = errors.New("engine: unsupported opcode or element type")
	ErrInvariant   = errors.New("engine: invariant violation")
)
