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
	"fmt"

	"github.com/Thunderl3ear/bohrium/vetypes"
)

// cExpr renders a Func applied to its C argument expressions. Unary
// functions take args[0]; binary take args[0] and args[1]. ty selects the
// floating/complex math.h variant (fabs vs fabsf vs cabs, etc.) where
// applicable.
func cExpr(fn vetypes.Func, ty vetypes.ElemType, args []string) string {
	switch fn {
	case vetypes.FuncIdentity:
		return args[0]
	case vetypes.FuncAdd:
		return fmt.Sprintf("%s + %s", args[0], args[1])
	case vetypes.FuncSub:
		return fmt.Sprintf("%s - %s", args[0], args[1])
	case vetypes.FuncMul:
		return fmt.Sprintf("%s * %s", args[0], args[1])
	case vetypes.FuncDiv:
		return fmt.Sprintf("%s / %s", args[0], args[1])
	case vetypes.FuncMod:
		if ty.IsFloat() {
			return fmt.Sprintf("%s(%s, %s)", mathFn("fmod", ty), args[0], args[1])
		}
		return fmt.Sprintf("%s %% %s", args[0], args[1])
	case vetypes.FuncMin:
		return fmt.Sprintf("(%s) < (%s) ? (%s) : (%s)", args[0], args[1], args[0], args[1])
	case vetypes.FuncMax:
		return fmt.Sprintf("(%s) > (%s) ? (%s) : (%s)", args[0], args[1], args[0], args[1])
	case vetypes.FuncNeg:
		return fmt.Sprintf("-(%s)", args[0])
	case vetypes.FuncAbs:
		if ty.IsComplex() {
			return fmt.Sprintf("cabs(%s)", args[0])
		}
		return fmt.Sprintf("%s(%s)", mathFn("fabs", ty), args[0])
	case vetypes.FuncSqrt:
		return fmt.Sprintf("%s(%s)", mathFn("sqrt", ty), args[0])
	case vetypes.FuncExp:
		return fmt.Sprintf("%s(%s)", mathFn("exp", ty), args[0])
	case vetypes.FuncLog:
		return fmt.Sprintf("%s(%s)", mathFn("log", ty), args[0])
	case vetypes.FuncSin:
		return fmt.Sprintf("%s(%s)", mathFn("sin", ty), args[0])
	case vetypes.FuncCos:
		return fmt.Sprintf("%s(%s)", mathFn("cos", ty), args[0])
	case vetypes.FuncLogicalAnd:
		return fmt.Sprintf("(%s) && (%s)", args[0], args[1])
	case vetypes.FuncLogicalOr:
		return fmt.Sprintf("(%s) || (%s)", args[0], args[1])
	case vetypes.FuncLogicalNot:
		return fmt.Sprintf("!(%s)", args[0])
	case vetypes.FuncEqual:
		return fmt.Sprintf("(%s) == (%s)", args[0], args[1])
	case vetypes.FuncLessThan:
		return fmt.Sprintf("(%s) < (%s)", args[0], args[1])
	default:
		return fmt.Sprintf("/* unknown func %q */ %s", fn, args[0])
	}
}

// cBinOp renders the in-place accumulation expression "acc OP src" used by
// reductions and scans; FuncMin/FuncMax need the ternary form since C has
// no generic min/max operator.
func cBinOp(fn vetypes.Func, acc, src string) string {
	switch fn {
	case vetypes.FuncMin:
		return fmt.Sprintf("(%s) < (%s) ? (%s) : (%s)", acc, src, acc, src)
	case vetypes.FuncMax:
		return fmt.Sprintf("(%s) > (%s) ? (%s) : (%s)", acc, src, acc, src)
	default:
		return cExpr(fn, vetypes.F64, []string{acc, src})
	}
}

// mathFn picks the C99 math.h suffix variant for a floating or complex type:
// plain for double, f-suffixed for float, c-prefixed for complex.
func mathFn(base string, ty vetypes.ElemType) string {
	if ty.IsComplex() {
		return "c" + base
	}
	if ty == vetypes.F32 {
		return base + "f"
	}
	return base
}
