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

// anyType is the type of locals whose type is not declared
const anyType = "any"

// Builder builds a Program. Statements of a method are appended in order, and each statement falls through to
// the next one unless it is a return or a goto; Edge adds other control flow edges.
//
// Calls are resolved by name when the program is built: a call to a function resolves to the method with that
// name, and a call on a receiver resolves to every method with a receiver, that name, and a receiver type
// compatible with the type of the base. Calls that do not resolve have no call edge.
type Builder struct {
	prog    *Program
	methods []*MethodBuilder
	entries []string
}

// NewBuilder returns an empty builder
func NewBuilder() *Builder {
	return &Builder{
		prog: &Program{
			byName:  map[string]*Method{},
			statics: map[string]scene.StaticFieldVal{},
			types:   map[string]*Type{},
			out:     map[scene.Statement][]scene.CallEdge{},
			in:      map[scene.Method][]scene.CallEdge{},
		},
	}
}

// Type returns the type named name
func (b *Builder) Type(name string) *Type {
	if t, ok := b.prog.types[name]; ok {
		return t
	}
	t := &Type{name: name}
	b.prog.types[name] = t
	return t
}

// Static returns the static field named name, declaring it with type typ the first time
func (b *Builder) Static(name string, typ string) scene.StaticFieldVal {
	if s, ok := b.prog.statics[name]; ok {
		return s
	}
	s := scene.NewStaticFieldVal(name, b.Type(typ))
	b.prog.statics[name] = s
	return s
}

// Method starts an application method
func (b *Builder) Method(name string, params ...string) *MethodBuilder {
	return b.newMethod(name, true, params)
}

// Library starts a method that does not belong to the application
func (b *Builder) Library(name string, params ...string) *MethodBuilder {
	return b.newMethod(name, false, params)
}

// Entry sets the entry points of the program. The default entry point is main, if it exists.
func (b *Builder) Entry(names ...string) *Builder {
	b.entries = append(b.entries, names...)
	return b
}

func (b *Builder) newMethod(name string, application bool, params []string) *MethodBuilder {
	m := &Method{
		name:        name,
		succs:       map[*Stmt][]*Stmt{},
		preds:       map[*Stmt][]*Stmt{},
		locals:      map[string]*Local{},
		application: application,
	}
	mb := &MethodBuilder{b: b, m: m}
	for _, p := range params {
		m.params = append(m.params, mb.Var(p))
	}
	mb.add(&Stmt{kind: nopStmt})
	b.methods = append(b.methods, mb)
	return mb
}

// Build checks the methods and resolves the calls
func (b *Builder) Build() (*Program, error) {
	p := b.prog
	for _, mb := range b.methods {
		if _, dup := p.byName[mb.m.name]; dup {
			return nil, fmt.Errorf("method %s is defined twice", mb.m.name)
		}
		p.byName[mb.m.name] = mb.m
		p.methods = append(p.methods, mb.m)
	}
	for _, mb := range b.methods {
		if err := mb.check(); err != nil {
			return nil, err
		}
		for _, s := range mb.m.stmts {
			if s.kind == callStmt {
				b.resolve(s)
			}
		}
	}
	entries := b.entries
	if len(entries) == 0 {
		if _, ok := p.byName["main"]; ok {
			entries = []string{"main"}
		}
	}
	for _, name := range entries {
		m, err := p.Method(name)
		if err != nil {
			return nil, fmt.Errorf("entry point: %w", err)
		}
		p.entries = append(p.entries, m)
	}
	return p, nil
}

func (b *Builder) resolve(s *Stmt) {
	p := b.prog
	var callees []*Method
	if s.invoke.base == nil {
		if m, ok := p.byName[s.invoke.callee.name]; ok {
			callees = append(callees, m)
		}
	} else {
		baseType := s.invoke.base.Type().String()
		for _, m := range p.methods {
			if m.receiver == nil || shortName(m.name) != s.invoke.callee.name {
				continue
			}
			if baseType == anyType || m.receiver.typ.name == anyType || m.receiver.typ.name == baseType {
				callees = append(callees, m)
			}
		}
	}
	for _, callee := range callees {
		e := scene.CallEdge{CallSite: s, Callee: callee}
		p.out[s] = append(p.out[s], e)
		p.in[callee] = append(p.in[callee], e)
	}
}

func shortName(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// MethodBuilder appends statements to a method
type MethodBuilder struct {
	b        *Builder
	m        *Method
	last     *Stmt
	fallthru bool
}

// Method returns the method being built
func (mb *MethodBuilder) Method() *Method { return mb.m }

// Var returns the local named name, declaring it the first time
func (mb *MethodBuilder) Var(name string) *Local {
	return mb.TypedVar(name, anyType)
}

// TypedVar returns the local named name, declaring it with type typ the first time. The type of a local
// declared without type is set by its first declaration with a type.
func (mb *MethodBuilder) TypedVar(name string, typ string) *Local {
	if l, ok := mb.m.locals[name]; ok {
		if l.typ.name == anyType && typ != anyType {
			l.typ = mb.b.Type(typ)
		}
		return l
	}
	l := &Local{name: name, typ: mb.b.Type(typ), method: mb.m}
	mb.m.locals[name] = l
	return l
}

// Param returns the i-th parameter
func (mb *MethodBuilder) Param(i int) *Local { return mb.m.params[i] }

// Receiver declares the receiver of the method
func (mb *MethodBuilder) Receiver(name string, typ string) *Local {
	mb.m.receiver = mb.TypedVar(name, typ)
	return mb.m.receiver
}

func (mb *MethodBuilder) add(s *Stmt) *Stmt {
	s.method = mb.m
	s.index = len(mb.m.stmts)
	mb.m.stmts = append(mb.m.stmts, s)
	if mb.last != nil && mb.fallthru {
		mb.Edge(mb.last, s)
	}
	mb.last = s
	mb.fallthru = s.kind != retStmt
	return s
}

// Edge adds a control flow edge
func (mb *MethodBuilder) Edge(from *Stmt, to *Stmt) {
	for _, t := range mb.m.succs[from] {
		if t == to {
			return
		}
	}
	mb.m.succs[from] = append(mb.m.succs[from], to)
	mb.m.preds[to] = append(mb.m.preds[to], from)
}

// New appends lhs = new typ
func (mb *MethodBuilder) New(lhs *Local, typ string) *Stmt {
	t := mb.b.Type(typ)
	if lhs.typ.name == anyType {
		lhs.typ = t
	}
	return mb.add(&Stmt{kind: assignStmt, lhs: lhs, rhs: &NewExpr{typ: t}})
}

// Assign appends lhs = rhs
func (mb *MethodBuilder) Assign(lhs *Local, rhs *Local) *Stmt {
	return mb.add(&Stmt{kind: assignStmt, lhs: lhs, rhs: rhs})
}

// Const appends lhs = text, where text is a constant
func (mb *MethodBuilder) Const(lhs *Local, text string) *Stmt {
	return mb.add(&Stmt{kind: assignStmt, lhs: lhs, rhs: &Const{text: text, typ: lhs.typ}})
}

// Null appends lhs = nil
func (mb *MethodBuilder) Null(lhs *Local) *Stmt {
	return mb.Const(lhs, "nil")
}

// Load appends lhs = base.field
func (mb *MethodBuilder) Load(lhs *Local, base *Local, field string) *Stmt {
	return mb.add(&Stmt{kind: loadStmt, lhs: lhs, base: base, field: scene.NewField(field)})
}

// Store appends base.field = rhs
func (mb *MethodBuilder) Store(base *Local, field string, rhs *Local) *Stmt {
	return mb.add(&Stmt{kind: storeStmt, base: base, field: scene.NewField(field), rhs: rhs})
}

// LoadStatic appends lhs = g
func (mb *MethodBuilder) LoadStatic(lhs *Local, g scene.StaticFieldVal) *Stmt {
	return mb.add(&Stmt{kind: staticLoadStmt, lhs: lhs, rhs: g, static: g})
}

// StoreStatic appends g = rhs
func (mb *MethodBuilder) StoreStatic(g scene.StaticFieldVal, rhs *Local) *Stmt {
	return mb.add(&Stmt{kind: staticStoreStmt, lhs: g, rhs: rhs, static: g})
}

// Phi appends lhs = phi(ops...)
func (mb *MethodBuilder) Phi(lhs *Local, ops ...*Local) *Stmt {
	return mb.add(&Stmt{kind: phiStmt, lhs: lhs, ops: locals(ops)})
}

// Call appends lhs = callee(args...). lhs may be nil.
func (mb *MethodBuilder) Call(lhs *Local, callee string, args ...*Local) *Stmt {
	return mb.add(&Stmt{
		kind:   callStmt,
		lhs:    optional(lhs),
		invoke: &Invoke{callee: Declared{name: callee}, args: locals(args)},
	})
}

// Invoke appends lhs = base.callee(args...), dispatched on the type of base. lhs may be nil.
func (mb *MethodBuilder) Invoke(lhs *Local, base *Local, callee string, args ...*Local) *Stmt {
	return mb.add(&Stmt{
		kind:   callStmt,
		lhs:    optional(lhs),
		invoke: &Invoke{callee: Declared{name: callee, receiver: base.typ.name}, base: base, args: locals(args)},
	})
}

// Return appends return vals...
func (mb *MethodBuilder) Return(vals ...*Local) *Stmt {
	return mb.add(&Stmt{kind: retStmt, ops: locals(vals)})
}

// Nop appends a statement without effect
func (mb *MethodBuilder) Nop() *Stmt {
	return mb.add(&Stmt{kind: nopStmt})
}

// Goto appends a statement without effect that does not fall through to the next statement
func (mb *MethodBuilder) Goto() *Stmt {
	s := mb.add(&Stmt{kind: nopStmt})
	mb.fallthru = false
	return s
}

// check returns an error wrapping ErrUnknownValue if a statement reads a local that is never defined
func (mb *MethodBuilder) check() error {
	defined := map[scene.Val]bool{}
	for _, p := range mb.m.params {
		defined[p] = true
	}
	if mb.m.receiver != nil {
		defined[mb.m.receiver] = true
	}
	for _, s := range mb.m.stmts {
		if s.lhs != nil {
			defined[s.lhs] = true
		}
	}
	for _, s := range mb.m.stmts {
		for _, v := range reads(s) {
			if v.IsLocal() && !defined[v] {
				return fmt.Errorf("%w: %v in %v", ErrUnknownValue, v, s)
			}
		}
	}
	return nil
}

func reads(s *Stmt) []scene.Val {
	switch s.kind {
	case assignStmt, staticStoreStmt:
		return []scene.Val{s.rhs}
	case loadStmt:
		return []scene.Val{s.base}
	case storeStmt:
		return []scene.Val{s.base, s.rhs}
	case phiStmt, retStmt:
		return s.ops
	case callStmt:
		if s.invoke.base != nil {
			return append([]scene.Val{s.invoke.base}, s.invoke.args...)
		}
		return s.invoke.args
	}
	return nil
}

func locals(ls []*Local) []scene.Val {
	res := make([]scene.Val, len(ls))
	for i, l := range ls {
		res[i] = l
	}
	return res
}

// optional converts l to a value, keeping nil untyped
func optional(l *Local) scene.Val {
	if l == nil {
		return nil
	}
	return l
}
