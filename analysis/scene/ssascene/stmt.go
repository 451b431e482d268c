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
	"go/token"
	"strings"

	"github.com/awslabs/ar-go-spds/analysis/scene"
	"golang.org/x/tools/go/ssa"
)

type stmtKind uint8

const (
	nopStmt stmtKind = iota
	assignStmt
	loadStmt
	storeStmt
	staticLoadStmt
	staticStoreStmt
	phiStmt
	callStmt
	returnStmt
)

// Stmt is an SSA instruction, or the entry statement of a function when the instruction is nil
type Stmt struct {
	method  *Method
	instr   ssa.Instruction
	kind    stmtKind
	lhs     scene.Val
	rhs     scene.Val
	base    scene.Val
	field   scene.Field
	static  scene.StaticFieldVal
	ops     []scene.Val
	invoke  *InvokeExpr
	uses    []scene.Val
	// derived statements are added to the statement of instr, or to the entry when instr is nil
	derived bool
}

// Instruction returns the SSA instruction, or nil for the entry statement
func (s *Stmt) Instruction() ssa.Instruction { return s.instr }

// Pos returns the position of the instruction
func (s *Stmt) Pos() token.Pos {
	if s.instr == nil {
		return s.method.fn.Pos()
	}
	return s.instr.Pos()
}

// Position returns the position of the instruction in its file
func (s *Stmt) Position() token.Position {
	return s.method.fn.Prog.Fset.Position(s.Pos())
}

func (s *Stmt) String() string {
	if s.derived {
		return fmt.Sprintf("%s: %s", s.method.fn.Name(), s.render())
	}
	if s.instr == nil {
		return s.method.fn.Name() + ": entry"
	}
	if v, ok := s.instr.(ssa.Value); ok && v.Name() != "" {
		return fmt.Sprintf("%s: %s = %s", s.method.fn.Name(), v.Name(), s.instr)
	}
	return fmt.Sprintf("%s: %s", s.method.fn.Name(), s.instr)
}

// Method returns the function of the statement
func (s *Stmt) render() string {
	switch s.kind {
	case assignStmt:
		return fmt.Sprintf("%v = %v", s.lhs, s.rhs)
	case loadStmt:
		return fmt.Sprintf("%v = %v.%v", s.lhs, s.base, s.field)
	case storeStmt:
		return fmt.Sprintf("%v.%v = %v", s.base, s.field, s.rhs)
	}
	return "nop"
}

func (s *Stmt) Method() scene.Method { return s.method }

// ContainsInvokeExpr returns true for calls, go and defer statements
func (s *Stmt) ContainsInvokeExpr() bool { return s.kind == callStmt }

// InvokeExpr returns the call of the statement, or nil
func (s *Stmt) InvokeExpr() scene.InvokeExpr {
	if s.invoke == nil {
		return nil
	}
	return s.invoke
}

// IsAssign returns true for copies, conversions and allocations
func (s *Stmt) IsAssign() bool { return s.kind == assignStmt }

// LeftOp returns the value defined by the statement
func (s *Stmt) LeftOp() scene.Val { return s.lhs }

// RightOp returns the value read by an assignment or stored by a store
func (s *Stmt) RightOp() scene.Val { return s.rhs }

// IsFieldStore returns true for base.f = v
func (s *Stmt) IsFieldStore() bool { return s.kind == storeStmt }

// IsFieldLoad returns true for v = base.f
func (s *Stmt) IsFieldLoad() bool { return s.kind == loadStmt }

// FieldAccess returns the base and field of a load or a store
func (s *Stmt) FieldAccess() (scene.Val, scene.Field) { return s.base, s.field }

// IsStaticFieldStore returns true for stores to package-level variables
func (s *Stmt) IsStaticFieldStore() bool { return s.kind == staticStoreStmt }

// IsStaticFieldLoad returns true for loads of package-level variables
func (s *Stmt) IsStaticFieldLoad() bool { return s.kind == staticLoadStmt }

// StaticField returns the package-level variable of a static load or store
func (s *Stmt) StaticField() scene.StaticFieldVal { return s.static }

// IsPhi returns true for phi nodes
func (s *Stmt) IsPhi() bool { return s.kind == phiStmt }

// PhiOps returns the incoming values of a phi node
func (s *Stmt) PhiOps() []scene.Val { return s.ops }

// IsReturn returns true for return instructions
func (s *Stmt) IsReturn() bool { return s.kind == returnStmt }

// ReturnOps returns the returned values
func (s *Stmt) ReturnOps() []scene.Val { return s.ops }

// Uses returns true if v is an operand of the statement
func (s *Stmt) Uses(v scene.Val) bool {
	for _, u := range s.uses {
		if u == v {
			return true
		}
	}
	return false
}

// InvokeExpr is the call of a call, go or defer instruction
type InvokeExpr struct {
	call   *ssa.CallCommon
	callee Declared
	base   scene.Val
	args   []scene.Val
	mode   invokeMode
}

type invokeMode uint8

const (
	staticInvoke invokeMode = iota
	specialInvoke
	instanceInvoke
)

// Common returns the SSA call
func (e *InvokeExpr) Common() *ssa.CallCommon { return e.call }

// Arg returns the i-th argument, receiver excluded
func (e *InvokeExpr) Arg(i int) (scene.Val, bool) {
	if i < 0 || i >= len(e.args) {
		return nil, false
	}
	return e.args[i], true
}

// Args returns the arguments, receiver excluded
func (e *InvokeExpr) Args() []scene.Val { return e.args }

// Callee returns the statically named callee
func (e *InvokeExpr) Callee() scene.DeclaredMethod { return e.callee }

// Base returns the receiver of method calls
func (e *InvokeExpr) Base() scene.Val { return e.base }

// IsInstance returns true for calls of interface methods
func (e *InvokeExpr) IsInstance() bool { return e.mode == instanceInvoke }

// IsSpecial returns true for calls of concrete methods
func (e *InvokeExpr) IsSpecial() bool { return e.mode == specialInvoke }

// IsStatic returns true for calls of functions and closures
func (e *InvokeExpr) IsStatic() bool { return e.mode == staticInvoke }

func (e *InvokeExpr) String() string {
	args := make([]string, len(e.args))
	for i, a := range e.args {
		args[i] = a.String()
	}
	if e.base != nil && e.mode != staticInvoke {
		return fmt.Sprintf("%v.%s(%s)", e.base, e.callee.name, strings.Join(args, ", "))
	}
	return fmt.Sprintf("%s(%s)", e.callee.name, strings.Join(args, ", "))
}

// Declared is the callee named by a call
type Declared struct {
	name     string
	pkg      string
	receiver string
}

func (d Declared) String() string {
	if d.receiver != "" {
		return fmt.Sprintf("(%s).%s", d.receiver, d.name)
	}
	if d.pkg != "" {
		return d.pkg + "." + d.name
	}
	return d.name
}

// Name returns the name of the callee
func (d Declared) Name() string { return d.name }

// Package returns the package path of the callee, or ""
func (d Declared) Package() string { return d.pkg }

// ReceiverType returns the receiver type of method callees
func (d Declared) ReceiverType() string { return d.receiver }
