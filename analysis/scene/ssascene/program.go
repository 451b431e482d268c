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

// Package ssascene presents Go programs in SSA form (golang.org/x/tools/go/ssa) to the alias analysis.
//
// Every SSA instruction is a statement, and every function with a body starts with a synthetic entry statement.
// Some instructions add statements after their own: a closure stores its bindings, and a struct copy moves one
// field at a time. Functions with free variables are called with their closure as receiver, and load the free
// variables from it after the entry.
//
// Addresses that are only dereferenced or stored to are not values of their own: a store through &x.f is the field
// store x.f = v, and a load through &x.f is the field load x.f. An address used as a value is its base, and the
// field it points to is then the content * of every object of the struct type. Structs and arrays nested by value
// belong to the enclosing object. Elements of slices and arrays are the content *, and elements of maps and
// channels are the field [*]. The tuple of a comma-ok lookup or receive holds the element.
//
// The whole program is translated when the Program is created, after which it is read-only and safe for
// concurrent use.
package ssascene

import (
	"fmt"
	"go/token"
	"go/types"
	"sort"

	"github.com/awslabs/ar-go-spds/analysis/scene"
	"golang.org/x/tools/go/callgraph"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
	"golang.org/x/tools/go/types/typeutil"
)

// Program is a scene.CallGraph over an SSA program and one of its call graphs
type Program struct {
	prog        *ssa.Program
	methods     map[*ssa.Function]*Method
	stmts       map[ssa.Instruction]*Stmt
	entries     []scene.Method
	out         map[*Stmt][]scene.CallEdge
	in          map[*Method][]scene.CallEdge
	application map[*types.Package]bool
	types       typeutil.Map
	collapsed   map[*types.Var]bool // fields whose address is used as a value
}

var _ scene.CallGraph = (*Program)(nil)

// New translates the functions of cg. Functions of the packages in application are application methods. The
// entry points are the main and init functions of the main packages in application, or all the functions of
// application when there is no main package.
func New(prog *ssa.Program, cg *callgraph.Graph, application []*ssa.Package) *Program {
	p := &Program{
		prog:        prog,
		methods:     map[*ssa.Function]*Method{},
		stmts:       map[ssa.Instruction]*Stmt{},
		out:         map[*Stmt][]scene.CallEdge{},
		in:          map[*Method][]scene.CallEdge{},
		application: map[*types.Package]bool{},
		collapsed:   map[*types.Var]bool{},
	}
	for _, pkg := range application {
		if pkg != nil {
			p.application[pkg.Pkg] = true
		}
	}
	var fns []*ssa.Function
	for fn := range cg.Nodes {
		if fn != nil {
			fns = append(fns, fn)
		}
	}
	// deterministic translation order
	sort.Slice(fns, func(i, j int) bool { return fns[i].String() < fns[j].String() })
	for _, fn := range fns {
		p.methods[fn] = &Method{fn: fn, prog: p}
	}
	p.collapseAddressedFields(fns)
	for _, fn := range fns {
		p.methods[fn].translate()
	}
	p.addEdges(cg, fns)
	p.entries = p.findEntries(application)
	return p
}

func (p *Program) addEdges(cg *callgraph.Graph, fns []*ssa.Function) {
	type key struct {
		site   *Stmt
		callee *Method
	}
	seen := map[key]bool{}
	for _, fn := range fns {
		for _, e := range cg.Nodes[fn].Out {
			if e.Site == nil || e.Callee.Func == nil {
				continue
			}
			site, ok := p.stmts[e.Site]
			callee, ok2 := p.methods[e.Callee.Func]
			if !ok || !ok2 || seen[key{site, callee}] {
				continue
			}
			seen[key{site, callee}] = true
			edge := scene.CallEdge{CallSite: site, Callee: callee}
			p.out[site] = append(p.out[site], edge)
			p.in[callee] = append(p.in[callee], edge)
		}
	}
}

func (p *Program) findEntries(application []*ssa.Package) []scene.Method {
	var entries []scene.Method
	for _, pkg := range ssautil.MainPackages(application) {
		for _, name := range []string{"init", "main"} {
			if m, ok := p.methods[pkg.Func(name)]; ok {
				entries = append(entries, m)
			}
		}
	}
	if len(entries) > 0 {
		return entries
	}
	for _, m := range p.Methods() {
		if m.IsApplication() {
			entries = append(entries, m)
		}
	}
	return entries
}

// SSA returns the SSA program
func (p *Program) SSA() *ssa.Program { return p.prog }

// Fset returns the file set of the program
func (p *Program) Fset() *token.FileSet { return p.prog.Fset }

// Methods returns the translated functions, sorted by name
func (p *Program) Methods() []scene.Method {
	res := make([]scene.Method, 0, len(p.methods))
	for _, m := range p.methods {
		res = append(res, m)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].String() < res[j].String() })
	return res
}

// Function returns the method of fn
func (p *Program) Function(fn *ssa.Function) (*Method, bool) {
	m, ok := p.methods[fn]
	return m, ok
}

// Stmt returns the statement of instr
func (p *Program) Stmt(instr ssa.Instruction) (*Stmt, bool) {
	s, ok := p.stmts[instr]
	return s, ok
}

// EntryPoints returns the entry points of the program
func (p *Program) EntryPoints() []scene.Method { return p.entries }

// EdgesOutOf returns the call edges of the call statement s
func (p *Program) EdgesOutOf(s scene.Statement) []scene.CallEdge {
	if st, ok := s.(*Stmt); ok {
		return p.out[st]
	}
	return nil
}

// EdgesInto returns the call edges into m
func (p *Program) EdgesInto(m scene.Method) []scene.CallEdge {
	if mt, ok := m.(*Method); ok {
		return p.in[mt]
	}
	return nil
}

func (p *Program) String() string {
	return fmt.Sprintf("ssa program: %d functions, %d entry points", len(p.methods), len(p.entries))
}

// typ returns the canonical representation of t
func (p *Program) typ(t types.Type) *Type {
	if c, ok := p.types.At(t).(*Type); ok {
		return c
	}
	c := &Type{t: t}
	p.types.Set(t, c)
	return c
}

// Method is a function with its control flow graph
type Method struct {
	fn       *ssa.Function
	prog     *Program
	stmts    []*Stmt
	succs    map[*Stmt][]*Stmt
	preds    map[*Stmt][]*Stmt
	params   []scene.Val
	receiver scene.Val
	temps    int
}

// Function returns the SSA function
func (m *Method) Function() *ssa.Function { return m.fn }

func (m *Method) String() string { return m.fn.String() }

// Name returns the short name of the function
func (m *Method) Name() string { return m.fn.Name() }

// Package returns the path of the package of the function, or ""
func (m *Method) Package() string {
	if m.fn.Pkg == nil {
		return ""
	}
	return m.fn.Pkg.Pkg.Path()
}

// Parameters returns the parameters, receiver excluded
func (m *Method) Parameters() []scene.Val { return m.params }

// Receiver returns the receiver of methods
func (m *Method) Receiver() scene.Val { return m.receiver }

// Statements returns the statements, entry statement first. Functions without body have no statement.
func (m *Method) Statements() []scene.Statement {
	res := make([]scene.Statement, len(m.stmts))
	for i, s := range m.stmts {
		res[i] = s
	}
	return res
}

// ControlFlowGraph returns the method itself
func (m *Method) ControlFlowGraph() scene.ControlFlowGraph { return m }

// IsApplication returns true for functions of the application packages
func (m *Method) IsApplication() bool {
	return m.fn.Pkg != nil && m.prog.application[m.fn.Pkg.Pkg]
}

// StartPoints returns the entry statement
func (m *Method) StartPoints() []scene.Statement {
	if len(m.stmts) == 0 {
		return nil
	}
	return []scene.Statement{m.stmts[0]}
}

// EndPoints returns the returns, and the statements without successor such as panics
func (m *Method) EndPoints() []scene.Statement {
	var res []scene.Statement
	for _, s := range m.stmts {
		if s.kind == returnStmt || len(m.succs[s]) == 0 {
			res = append(res, s)
		}
	}
	return res
}

// Succs returns the successors of s
func (m *Method) Succs(s scene.Statement) []scene.Statement { return toStatements(m.succs[s.(*Stmt)]) }

// Preds returns the predecessors of s
func (m *Method) Preds(s scene.Statement) []scene.Statement { return toStatements(m.preds[s.(*Stmt)]) }

func toStatements(stmts []*Stmt) []scene.Statement {
	res := make([]scene.Statement, len(stmts))
	for i, s := range stmts {
		res[i] = s
	}
	return res
}
