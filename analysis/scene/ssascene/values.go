// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ssascene

import (
	"fmt"
	"go/types"

	"github.com/awslabs/ar-go-spds/analysis/scene"
	"golang.org/x/tools/go/ssa"
)

var (
	// derefField is the content of a pointer, and the elements of slices and arrays
	derefField = scene.NewField("*")
	// elemField is the content of maps and channels. Elements are not distinguished.
	elemField = scene.NewField("[*]")
)

// Type is a canonical Go type: identical types are represented by the same *Type
type Type struct {
	t types.Type
}

func (t *Type) String() string { return t.t.String() }

// GoType returns the Go type
func (t *Type) GoType() types.Type { return t.t }

// Local is an SSA value scoped to a function: a parameter, a free variable or the value of an instruction
type Local struct {
	value  ssa.Value
	method *Method
	typ    *Type
}

// Value returns the SSA value
func (l Local) Value() ssa.Value { return l.value }

// Method returns the function of the value
func (l Local) Method() scene.Method { return l.method }

// Type returns the type of the value
func (l Local) Type() scene.Type { return l.typ }

// IsLocal returns true
func (Local) IsLocal() bool { return true }

// IsStatic returns false
func (Local) IsStatic() bool { return false }

// IsNewExpr returns false
func (Local) IsNewExpr() bool { return false }

// IsNull returns false
func (Local) IsNull() bool { return false }

// IsConstant returns false
func (Local) IsConstant() bool { return false }

func (l Local) String() string { return l.value.Name() }

// NewExpr is the right-hand side of an allocating instruction: new, make, composite literals and closures
// Closure is the value a function with free variables is called with. The free variables are loaded from it when
// the function starts.
type Closure struct {
	method *Method
	typ    *Type
}

func (c Closure) Method() scene.Method { return c.method }

func (c Closure) Type() scene.Type { return c.typ }

func (Closure) IsLocal() bool { return true }

func (Closure) IsStatic() bool { return false }

func (Closure) IsNewExpr() bool { return false }

func (Closure) IsNull() bool { return false }

func (Closure) IsConstant() bool { return false }

func (Closure) String() string { return "closure" }

// Temp holds a field while a struct is copied
type Temp struct {
	id     int
	method *Method
	typ    *Type
}

func (t Temp) Method() scene.Method { return t.method }

func (t Temp) Type() scene.Type { return t.typ }

func (Temp) IsLocal() bool { return true }

func (Temp) IsStatic() bool { return false }

func (Temp) IsNewExpr() bool { return false }

func (Temp) IsNull() bool { return false }

func (Temp) IsConstant() bool { return false }

func (t Temp) String() string { return fmt.Sprintf("tmp%d", t.id) }

type NewExpr struct {
	instr ssa.Value
	typ   *Type
}

// Method returns nil
func (NewExpr) Method() scene.Method { return nil }

// Type returns the type of the allocated value
func (e NewExpr) Type() scene.Type { return e.typ }

// IsLocal returns false
func (NewExpr) IsLocal() bool { return false }

// IsStatic returns false
func (NewExpr) IsStatic() bool { return false }

// IsNewExpr returns true
func (NewExpr) IsNewExpr() bool { return true }

// IsNull returns false
func (NewExpr) IsNull() bool { return false }

// IsConstant returns false
func (NewExpr) IsConstant() bool { return false }

func (e NewExpr) String() string { return "new " + e.typ.String() }

// Const is a constant operand. Functions and builtins used as values are constants too.
type Const struct {
	value ssa.Value
	typ   *Type
}

// Method returns nil
func (Const) Method() scene.Method { return nil }

// Type returns the type of the constant
func (c Const) Type() scene.Type { return c.typ }

// IsLocal returns false
func (Const) IsLocal() bool { return false }

// IsStatic returns false
func (Const) IsStatic() bool { return false }

// IsNewExpr returns false
func (Const) IsNewExpr() bool { return false }

// IsNull returns true for the nil constant
func (c Const) IsNull() bool {
	k, ok := c.value.(*ssa.Const)
	return ok && k.IsNil()
}

// IsConstant returns true
func (Const) IsConstant() bool { return true }

func (c Const) String() string {
	if k, ok := c.value.(*ssa.Const); ok {
		return k.RelString(nil)
	}
	return c.value.Name()
}
