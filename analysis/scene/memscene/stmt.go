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

package memscene

import (
	"fmt"
	"strings"

	"github.com/awslabs/ar-go-spds/analysis/scene"
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
	retStmt
)

// Stmt is a statement of a Method. Only the fields relevant to its kind are set.
type Stmt struct {
	kind   stmtKind
	method *Method
	index  int
	label  string

	lhs    scene.Val
	rhs    scene.Val
	base   scene.Val
	field  scene.Field
	static scene.StaticFieldVal
	ops    []scene.Val
	invoke *Invoke
}

func (s *Stmt) String() string {
	return fmt.Sprintf("%s:%d: %s", s.method.name, s.index, s.text())
}

// Index returns the position of the statement in its method
func (s *Stmt) Index() int { return s.index }

func (s *Stmt) text() string {
	switch s.kind {
	case assignStmt:
		return fmt.Sprintf("%v = %v", s.lhs, s.rhs)
	case loadStmt:
		return fmt.Sprintf("%v = %v.%v", s.lhs, s.base, s.field)
	case storeStmt:
		return fmt.Sprintf("%v.%v = %v", s.base, s.field, s.rhs)
	case staticLoadStmt:
		return fmt.Sprintf("%v = %v", s.lhs, s.static.Field)
	case staticStoreStmt:
		return fmt.Sprintf("%v = %v", s.static.Field, s.rhs)
	case phiStmt:
		return fmt.Sprintf("%v = phi(%s)", s.lhs, joinVals(s.ops))
	case callStmt:
		if s.lhs != nil {
			return fmt.Sprintf("%v = %v", s.lhs, s.invoke)
		}
		return s.invoke.String()
	case retStmt:
		if len(s.ops) == 0 {
			return "return"
		}
		return "return " + joinVals(s.ops)
	}
	if s.index == 0 {
		return "entry"
	}
	return "nop"
}

// Method returns the method of the statement
func (s *Stmt) Method() scene.Method { return s.method }

// ContainsInvokeExpr returns true for calls
func (s *Stmt) ContainsInvokeExpr() bool { return s.kind == callStmt }

// InvokeExpr returns the call of the statement, or nil
func (s *Stmt) InvokeExpr() scene.InvokeExpr {
	if s.invoke == nil {
		return nil
	}
	return s.invoke
}

// IsAssign returns true for local assignments, allocations and constants
func (s *Stmt) IsAssign() bool { return s.kind == assignStmt }

// LeftOp returns the value defined by the statement, or nil
func (s *Stmt) LeftOp() scene.Val { return s.lhs }

// RightOp returns the value assigned or stored, or nil
func (s *Stmt) RightOp() scene.Val { return s.rhs }

// IsFieldStore returns true for base.f = v
func (s *Stmt) IsFieldStore() bool { return s.kind == storeStmt }

// IsFieldLoad returns true for v = base.f
func (s *Stmt) IsFieldLoad() bool { return s.kind == loadStmt }

// FieldAccess returns the base and field of loads and stores
func (s *Stmt) FieldAccess() (scene.Val, scene.Field) {
	if s.kind != loadStmt && s.kind != storeStmt {
		return nil, scene.EmptyField
	}
	return s.base, s.field
}

// IsStaticFieldStore returns true for G = v
func (s *Stmt) IsStaticFieldStore() bool { return s.kind == staticStoreStmt }

// IsStaticFieldLoad returns true for v = G
func (s *Stmt) IsStaticFieldLoad() bool { return s.kind == staticLoadStmt }

// StaticField returns the static field of static loads and stores
func (s *Stmt) StaticField() scene.StaticFieldVal { return s.static }

// IsPhi returns true for phi statements
func (s *Stmt) IsPhi() bool { return s.kind == phiStmt }

// PhiOps returns the operands of a phi statement
func (s *Stmt) PhiOps() []scene.Val {
	if s.kind != phiStmt {
		return nil
	}
	return s.ops
}

// IsReturn returns true for return statements
func (s *Stmt) IsReturn() bool { return s.kind == retStmt }

// ReturnOps returns the returned values
func (s *Stmt) ReturnOps() []scene.Val {
	if s.kind != retStmt {
		return nil
	}
	return s.ops
}

// Uses returns true if v is read by the statement
func (s *Stmt) Uses(v scene.Val) bool {
	if v == nil {
		return false
	}
	switch s.kind {
	case assignStmt, staticStoreStmt:
		return s.rhs == v
	case loadStmt:
		return s.base == v
	case storeStmt:
		return s.base == v || s.rhs == v
	case phiStmt, retStmt:
		return containsVal(s.ops, v)
	case callStmt:
		return s.invoke.base == v || containsVal(s.invoke.args, v)
	}
	return false
}

// Invoke is a call expression. The callee is resolved by name when the program is built.
type Invoke struct {
	callee  Declared
	base    scene.Val
	args    []scene.Val
	special bool
}

func (e *Invoke) String() string {
	if e.base != nil {
		return fmt.Sprintf("%v.%s(%s)", e.base, e.callee.name, joinVals(e.args))
	}
	return fmt.Sprintf("%s(%s)", e.callee.name, joinVals(e.args))
}

// Arg returns the i-th argument
func (e *Invoke) Arg(i int) (scene.Val, bool) {
	if i < 0 || i >= len(e.args) {
		return nil, false
	}
	return e.args[i], true
}

// Args returns the arguments, receiver excluded
func (e *Invoke) Args() []scene.Val { return e.args }

// Callee returns the name of the callee
func (e *Invoke) Callee() scene.DeclaredMethod { return e.callee }

// Base returns the receiver, or nil
func (e *Invoke) Base() scene.Val { return e.base }

// IsInstance returns true for dynamically dispatched calls on a receiver
func (e *Invoke) IsInstance() bool { return e.base != nil && !e.special }

// IsSpecial returns true for statically dispatched calls on a receiver
func (e *Invoke) IsSpecial() bool { return e.base != nil && e.special }

// IsStatic returns true for calls without receiver
func (e *Invoke) IsStatic() bool { return e.base == nil }

// Declared is the name of a callee
type Declared struct {
	name     string
	receiver string
}

func (d Declared) String() string {
	if d.receiver != "" {
		return d.receiver + "." + d.name
	}
	return d.name
}

// Name returns the name of the callee
func (d Declared) Name() string { return d.name }

// Package returns ""
func (d Declared) Package() string { return "" }

// ReceiverType returns the type of the receiver, or ""
func (d Declared) ReceiverType() string { return d.receiver }

func joinVals(vals []scene.Val) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}

func containsVal(vals []scene.Val, v scene.Val) bool {
	for _, x := range vals {
		if x == v {
			return true
		}
	}
	return false
}
