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

// Package scene defines the program representation consumed by the alias analysis.
//
// The analysis never depends on a concrete frontend. Adapters (see the memscene and ssascene packages)
// implement the interfaces of this package. Implementations of Val, Statement, Method and Type must be
// comparable with == (the analysis uses them as map keys): value types, or pointers with identity semantics.
package scene

import (
	"fmt"
)

// Type is the type of a value
type Type interface {
	fmt.Stringer
}

// Method is a function or method of the program.
type Method interface {
	fmt.Stringer
	// Name returns the short name of the method
	Name() string
	// Parameters returns the formal parameters, receiver excluded
	Parameters() []Val
	// Receiver returns the receiver of the method, or nil for functions
	Receiver() Val
	// Statements returns all statements of the body. Methods without body return nil.
	Statements() []Statement
	// ControlFlowGraph returns the intra-procedural control flow graph of the method
	ControlFlowGraph() ControlFlowGraph
	// IsApplication returns true for methods of the analyzed application, false for library methods
	IsApplication() bool
}

// ControlFlowGraph is the intra-procedural control flow graph of a method.
// Start points must not define any value: parameters hold right before a start point executes.
type ControlFlowGraph interface {
	StartPoints() []Statement
	EndPoints() []Statement
	Succs(s Statement) []Statement
	Preds(s Statement) []Statement
}

// Val is a program value: a local, a static field reference, an allocation expression or a constant.
type Val interface {
	fmt.Stringer
	// Method returns the declaring method, or nil for values not scoped to a method
	Method() Method
	Type() Type
	IsLocal() bool
	IsStatic() bool
	// IsNewExpr returns true for allocation expressions
	IsNewExpr() bool
	IsNull() bool
	IsConstant() bool
}

// Statement is an atomic program point.
//
// A statement is of one of the kinds identified by its predicates. The accessors of a kind may only be called
// when the corresponding predicate holds.
type Statement interface {
	fmt.Stringer
	// Method returns the method containing the statement (nil for the epsilon statement)
	Method() Method

	// ContainsInvokeExpr returns true if the statement is a call; LeftOp is then the value receiving the result,
	// or nil when the result is not used.
	ContainsInvokeExpr() bool
	InvokeExpr() InvokeExpr

	// IsAssign returns true for lhs = rhs, including allocations and constants on the right-hand side.
	IsAssign() bool
	LeftOp() Val
	RightOp() Val

	// IsFieldStore returns true for base.f = RightOp()
	IsFieldStore() bool
	// IsFieldLoad returns true for LeftOp() = base.f
	IsFieldLoad() bool
	// FieldAccess returns the base and the field of a field load or store
	FieldAccess() (base Val, field Field)

	// IsStaticFieldStore returns true for S = RightOp() where S is a static field
	IsStaticFieldStore() bool
	// IsStaticFieldLoad returns true for LeftOp() = S where S is a static field
	IsStaticFieldLoad() bool
	// StaticField returns the static field of a static load or store
	StaticField() StaticFieldVal

	// IsPhi returns true for LeftOp() = phi(PhiOps()...)
	IsPhi() bool
	PhiOps() []Val

	// IsReturn returns true for return statements
	IsReturn() bool
	// ReturnOps returns the returned values, in order
	ReturnOps() []Val

	// Uses returns true if v is read by the statement
	Uses(v Val) bool
}

// InvokeExpr is the call expression of a statement.
type InvokeExpr interface {
	fmt.Stringer
	// Arg returns the i-th argument, receiver excluded, and false if there is no such argument
	Arg(i int) (Val, bool)
	Args() []Val
	// Callee returns the statically named callee
	Callee() DeclaredMethod
	// Base returns the receiver of instance and special invokes, nil for static invokes
	Base() Val
	// IsInstance returns true for dynamically dispatched calls on a receiver
	IsInstance() bool
	// IsSpecial returns true for statically dispatched calls on a receiver
	IsSpecial() bool
	// IsStatic returns true for calls without a receiver
	IsStatic() bool
}

// DeclaredMethod is the callee named by a call site. It may have no body in the program.
type DeclaredMethod interface {
	fmt.Stringer
	Name() string
	// Package returns the path of the package that declares the method, or "" if unknown
	Package() string
	// Receiver returns the name of the receiver type, or "" for functions and closures
	ReceiverType() string
}

// CallEdge is an edge of the call graph, from a call statement to a method.
type CallEdge struct {
	CallSite Statement
	Callee   Method
}

// CallGraph is the call graph of the program.
type CallGraph interface {
	EntryPoints() []Method
	// EdgesOutOf returns the edges whose call site is s
	EdgesOutOf(s Statement) []CallEdge
	// EdgesInto returns the edges whose callee is m
	EdgesInto(m Method) []CallEdge
}

// Edge is an edge of a control flow graph. Forward analyses use (predecessor, successor) edges, backward
// analyses (successor, predecessor).
type Edge struct {
	Start  Statement
	Target Statement
}

func (e Edge) String() string {
	return fmt.Sprintf("%v -> %v", e.Start, e.Target)
}

// IsAllocation returns true if s assigns a new object to its left-hand side.
func IsAllocation(s Statement) bool {
	return s.IsAssign() && !s.ContainsInvokeExpr() && s.RightOp() != nil && s.RightOp().IsNewExpr()
}

// IndexOfParameter returns the index of v in the parameters of m, or -1
func IndexOfParameter(m Method, v Val) int {
	for i, p := range m.Parameters() {
		if p == v {
			return i
		}
	}
	return -1
}

// IsEndPoint returns true if s is an end point of the control flow graph of its method
func IsEndPoint(s Statement) bool {
	if s.Method() == nil {
		return false
	}
	for _, e := range s.Method().ControlFlowGraph().EndPoints() {
		if e == s {
			return true
		}
	}
	return false
}

// IsStartPoint returns true if s is a start point of the control flow graph of its method
func IsStartPoint(s Statement) bool {
	if s.Method() == nil {
		return false
	}
	for _, e := range s.Method().ControlFlowGraph().StartPoints() {
		if e == s {
			return true
		}
	}
	return false
}
