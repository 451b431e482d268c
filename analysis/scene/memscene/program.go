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

// Package memscene is an in-memory program representation for the analysis. Programs are built with a Builder or
// loaded from YAML, and are mostly used to write small test programs.
package memscene

import (
	"errors"
	"fmt"
	"strings"

	"github.com/awslabs/ar-go-spds/analysis/scene"
)

var (
	// ErrUnknownMethod is returned when a program refers to a method it does not define
	ErrUnknownMethod = errors.New("unknown method")
	// ErrUnknownValue is returned when a statement reads a value that is never defined
	ErrUnknownValue = errors.New("unknown value")
)

// Type is a named type
type Type struct {
	name string
}

func (t *Type) String() string { return t.name }

// Program is a set of methods with the call graph resolving calls by callee name
type Program struct {
	methods []*Method
	byName  map[string]*Method
	entries []scene.Method
	statics map[string]scene.StaticFieldVal
	types   map[string]*Type
	out     map[scene.Statement][]scene.CallEdge
	in      map[scene.Method][]scene.CallEdge
}

// Methods returns the methods of the program, in definition order
func (p *Program) Methods() []scene.Method {
	res := make([]scene.Method, len(p.methods))
	for i, m := range p.methods {
		res[i] = m
	}
	return res
}

// Method returns the method named name
func (p *Program) Method(name string) (*Method, error) {
	m, ok := p.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, name)
	}
	return m, nil
}

// MustMethod is Method for programs known to define name
func (p *Program) MustMethod(name string) *Method {
	m, err := p.Method(name)
	if err != nil {
		panic(err)
	}
	return m
}

// Static returns the static field named name
func (p *Program) Static(name string) (scene.StaticFieldVal, bool) {
	s, ok := p.statics[name]
	return s, ok
}

// EntryPoints returns the entry points of the program
func (p *Program) EntryPoints() []scene.Method { return p.entries }

// EdgesOutOf returns the call edges of the call statement s
func (p *Program) EdgesOutOf(s scene.Statement) []scene.CallEdge { return p.out[s] }

// EdgesInto returns the call edges whose callee is m
func (p *Program) EdgesInto(m scene.Method) []scene.CallEdge { return p.in[m] }

func (p *Program) String() string {
	var b strings.Builder
	for _, m := range p.methods {
		b.WriteString(m.Dump())
	}
	return b.String()
}

// Method is a method of a Program. Its first statement is a synthetic entry statement, so the statements written
// by the user are numbered from 1.
type Method struct {
	name        string
	params      []*Local
	receiver    *Local
	stmts       []*Stmt
	succs       map[*Stmt][]*Stmt
	preds       map[*Stmt][]*Stmt
	locals      map[string]*Local
	application bool
}

func (m *Method) String() string { return m.name }

// Name returns the name of the method
func (m *Method) Name() string { return m.name }

// Parameters returns the parameters, receiver excluded
func (m *Method) Parameters() []scene.Val {
	res := make([]scene.Val, len(m.params))
	for i, p := range m.params {
		res[i] = p
	}
	return res
}

// Receiver returns the receiver, or nil
func (m *Method) Receiver() scene.Val {
	if m.receiver == nil {
		return nil
	}
	return m.receiver
}

// Statements returns the statements, entry statement included
func (m *Method) Statements() []scene.Statement {
	res := make([]scene.Statement, len(m.stmts))
	for i, s := range m.stmts {
		res[i] = s
	}
	return res
}

// Stmt returns the i-th statement. Statement 0 is the entry statement.
func (m *Method) Stmt(i int) *Stmt { return m.stmts[i] }

// Var returns the local named name
func (m *Method) Var(name string) *Local { return m.locals[name] }

// ControlFlowGraph returns the method itself
func (m *Method) ControlFlowGraph() scene.ControlFlowGraph { return m }

// IsApplication returns true unless the method was declared as a library method
func (m *Method) IsApplication() bool { return m.application }

// StartPoints returns the entry statement
func (m *Method) StartPoints() []scene.Statement {
	if len(m.stmts) == 0 {
		return nil
	}
	return []scene.Statement{m.stmts[0]}
}

// EndPoints returns the return statements, and the statements without successor
func (m *Method) EndPoints() []scene.Statement {
	var res []scene.Statement
	for _, s := range m.stmts {
		if s.kind == retStmt || len(m.succs[s]) == 0 {
			res = append(res, s)
		}
	}
	return res
}

// Succs returns the successors of s
func (m *Method) Succs(s scene.Statement) []scene.Statement { return toStatements(m.succs[s.(*Stmt)]) }

// Preds returns the predecessors of s
func (m *Method) Preds(s scene.Statement) []scene.Statement { return toStatements(m.preds[s.(*Stmt)]) }

// Dump returns the text of the method
func (m *Method) Dump() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s(", m.name)
	for i, p := range m.params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.name)
	}
	b.WriteString(")\n")
	for _, s := range m.stmts {
		fmt.Fprintf(&b, "  %d: ", s.index)
		if s.label != "" {
			fmt.Fprintf(&b, "%s: ", s.label)
		}
		b.WriteString(s.text())
		if succs := m.succs[s]; len(succs) > 0 && !(len(succs) == 1 && succs[0].index == s.index+1) {
			b.WriteString(" ->")
			for _, t := range succs {
				fmt.Fprintf(&b, " %d", t.index)
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func toStatements(stmts []*Stmt) []scene.Statement {
	res := make([]scene.Statement, len(stmts))
	for i, s := range stmts {
		res[i] = s
	}
	return res
}

// Local is a local variable or a parameter of a method
type Local struct {
	name   string
	typ    *Type
	method *Method
}

func (l *Local) String() string { return l.name }

// Method returns the method declaring the local
func (l *Local) Method() scene.Method { return l.method }

// Type returns the type of the local
func (l *Local) Type() scene.Type { return l.typ }

// IsLocal returns true
func (l *Local) IsLocal() bool { return true }

// IsStatic returns false
func (l *Local) IsStatic() bool { return false }

// IsNewExpr returns false
func (l *Local) IsNewExpr() bool { return false }

// IsNull returns false
func (l *Local) IsNull() bool { return false }

// IsConstant returns false
func (l *Local) IsConstant() bool { return false }

// NewExpr is the allocation of an object of some type
type NewExpr struct {
	typ *Type
}

func (e *NewExpr) String() string { return "new " + e.typ.name }

// Method returns nil
func (e *NewExpr) Method() scene.Method { return nil }

// Type returns the type allocated
func (e *NewExpr) Type() scene.Type { return e.typ }

// IsLocal returns false
func (e *NewExpr) IsLocal() bool { return false }

// IsStatic returns false
func (e *NewExpr) IsStatic() bool { return false }

// IsNewExpr returns true
func (e *NewExpr) IsNewExpr() bool { return true }

// IsNull returns false
func (e *NewExpr) IsNull() bool { return false }

// IsConstant returns false
func (e *NewExpr) IsConstant() bool { return false }

// Const is a constant, or nil
type Const struct {
	text string
	typ  *Type
}

func (c *Const) String() string { return c.text }

// Method returns nil
func (c *Const) Method() scene.Method { return nil }

// Type returns the type of the constant
func (c *Const) Type() scene.Type { return c.typ }

// IsLocal returns false
func (c *Const) IsLocal() bool { return false }

// IsStatic returns false
func (c *Const) IsStatic() bool { return false }

// IsNewExpr returns false
func (c *Const) IsNewExpr() bool { return false }

// IsNull returns true for nil
func (c *Const) IsNull() bool { return c.text == "nil" }

// IsConstant returns true
func (c *Const) IsConstant() bool { return true }
