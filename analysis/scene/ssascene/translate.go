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
	"go/types"

	"github.com/awslabs/ar-go-spds/analysis/scene"
	"golang.org/x/tools/go/ssa"
)

// translate builds the statements and the control flow graph of m
func (m *Method) translate() {
	fn := m.fn
	for i, param := range fn.Params {
		l := m.local(param)
		if i == 0 && fn.Signature.Recv() != nil {
			m.receiver = l
		} else {
			m.params = append(m.params, l)
		}
	}
	if len(fn.FreeVars) > 0 && m.receiver == nil {
		m.receiver = Closure{method: m, typ: m.prog.typ(fn.Signature)}
	}
	if len(fn.Blocks) == 0 {
		return
	}
	m.succs = map[*Stmt][]*Stmt{}
	m.preds = map[*Stmt][]*Stmt{}
	entry := &Stmt{method: m}
	m.stmts = append(m.stmts, entry)

	// free variables are loaded from the closure before the body
	prev := entry
	for _, fv := range fn.FreeVars {
		s := &Stmt{method: m, derived: true, kind: loadStmt, lhs: m.local(fv), base: m.receiver,
			field: freeVarField(fv)}
		s.uses = usesOf(s)
		m.stmts = append(m.stmts, s)
		m.edge(prev, s)
		prev = s
	}

	first := map[*ssa.BasicBlock]*Stmt{}
	last := map[*ssa.BasicBlock]*Stmt{}
	for _, b := range fn.Blocks {
		var prevInBlock *Stmt
		for _, instr := range b.Instrs {
			stmts := m.statements(instr)
			m.prog.stmts[instr] = stmts[0]
			for _, s := range stmts {
				m.stmts = append(m.stmts, s)
				if prevInBlock == nil {
					first[b] = s
				} else {
					m.edge(prevInBlock, s)
				}
				prevInBlock = s
			}
		}
		last[b] = prevInBlock
	}
	if s, ok := first[fn.Blocks[0]]; ok {
		m.edge(prev, s)
	}
	for _, b := range fn.Blocks {
		for _, succ := range b.Succs {
			if last[b] != nil && first[succ] != nil {
				m.edge(last[b], first[succ])
			}
		}
	}
}

func (m *Method) edge(from *Stmt, to *Stmt) {
	m.succs[from] = append(m.succs[from], to)
	m.preds[to] = append(m.preds[to], from)
}

// statements translates instr. The first statement stands for the instruction, the others are derived from it.
func (m *Method) statements(instr ssa.Instruction) []*Stmt {
	s := m.statement(instr)
	res := []*Stmt{s}
	switch i := instr.(type) {
	case *ssa.MakeClosure:
		// the bindings are stored in the closure, under the free variables they are bound to
		fn := i.Fn.(*ssa.Function)
		for k, binding := range i.Bindings {
			d := m.derivedStmt(instr)
			m.store(d, m.local(i), freeVarField(fn.FreeVars[k]), binding)
			res = append(res, d)
		}
	case *ssa.Store:
		if isAggregate(i.Val.Type()) {
			res = m.copyFields(s, i.Addr, i.Val)
		}
	}
	for _, d := range res {
		d.uses = usesOf(d)
	}
	return res
}

func (m *Method) derivedStmt(instr ssa.Instruction) *Stmt {
	return &Stmt{method: m, instr: instr, derived: true}
}

// statement translates instr. Instructions that do not move pointers are nops.
func (m *Method) statement(instr ssa.Instruction) *Stmt {
	s := &Stmt{method: m, instr: instr}
	switch i := instr.(type) {
	case *ssa.Alloc:
		m.alloc(s, i)
	case *ssa.MakeMap:
		m.alloc(s, i)
	case *ssa.MakeSlice:
		m.alloc(s, i)
	case *ssa.MakeChan:
		m.alloc(s, i)
	case *ssa.MakeClosure:
		m.alloc(s, i)
	case *ssa.Phi:
		s.kind = phiStmt
		s.lhs = m.local(i)
		s.ops = m.vals(i.Edges)
	case *ssa.ChangeType:
		m.assign(s, i, i.X)
	case *ssa.Convert:
		m.assign(s, i, i.X)
	case *ssa.ChangeInterface:
		m.assign(s, i, i.X)
	case *ssa.MakeInterface:
		m.assign(s, i, i.X)
	case *ssa.SliceToArrayPointer:
		m.assign(s, i, i.X)
	case *ssa.Slice:
		m.assign(s, i, i.X)
	case *ssa.FieldAddr:
		if !lookedThrough(i) {
			m.assign(s, i, i.X)
		}
	case *ssa.IndexAddr:
		if !lookedThrough(i) {
			m.assign(s, i, i.X)
		}
	case *ssa.TypeAssert:
		if i.CommaOk {
			// v, ok := x.(T) stores x in the first component of the tuple
			m.store(s, m.local(i), scene.TupleField(0), i.X)
		} else {
			m.assign(s, i, i.X)
		}
	case *ssa.Extract:
		if elemWithOk(i.Tuple) {
			if i.Index == 0 {
				m.assign(s, i, i.Tuple)
			}
		} else {
			m.load(s, i, i.Tuple, scene.TupleField(i.Index))
		}
	case *ssa.Field:
		m.load(s, i, i.X, m.prog.fieldOf(i.X.Type(), i.Field))
	case *ssa.Index:
		m.load(s, i, i.X, derefField)
	case *ssa.Lookup:
		// the tuple of a comma-ok lookup holds the element itself
		m.load(s, i, i.X, elemField)
	case *ssa.UnOp:
		switch i.Op {
		case token.MUL:
			m.deref(s, i)
		case token.ARROW:
			m.load(s, i, i.X, elemField)
		}
	case *ssa.Store:
		m.storeTo(s, i.Addr, i.Val)
	case *ssa.MapUpdate:
		m.store(s, m.val(i.Map), elemField, i.Value)
	case *ssa.Send:
		m.store(s, m.val(i.Chan), elemField, i.X)
	case *ssa.Call:
		if b, ok := i.Call.Value.(*ssa.Builtin); ok && b.Name() == "append" && len(i.Call.Args) == 2 {
			// the result shares the elements of both slices
			s.kind = phiStmt
			s.lhs = m.local(i)
			s.ops = m.vals(i.Call.Args)
		} else {
			m.call(s, i.Common(), i)
		}
	case *ssa.Go:
		m.call(s, i.Common(), nil)
	case *ssa.Defer:
		m.call(s, i.Common(), nil)
	case *ssa.Return:
		s.kind = returnStmt
		s.ops = m.vals(i.Results)
	}
	return s
}

// lookedThrough returns true when the address addr is only dereferenced or stored to, and does not point to a
// struct or an array. Loads and stores through such an address are field accesses of its base. Any other address
// is the same value as its base: the fields of structs and arrays nested by value belong to the enclosing object.
func lookedThrough(addr ssa.Value) bool {
	if isAggregate(addr.Type().Underlying().(*types.Pointer).Elem()) {
		return false
	}
	refs := addr.Referrers()
	if refs == nil {
		return true
	}
	for _, r := range *refs {
		switch r := r.(type) {
		case *ssa.UnOp:
			if r.Op == token.MUL && r.X == addr {
				continue
			}
		case *ssa.Store:
			if r.Addr == addr && r.Val != addr {
				continue
			}
		case *ssa.DebugRef:
			continue
		}
		return false
	}
	return true
}

// isAggregate returns true for struct and array types
func isAggregate(t types.Type) bool {
	switch t.Underlying().(type) {
	case *types.Struct, *types.Array:
		return true
	}
	return false
}

// elemWithOk returns true for the tuples of comma-ok lookups and receives
func elemWithOk(v ssa.Value) bool {
	switch t := v.(type) {
	case *ssa.Lookup:
		return t.CommaOk
	case *ssa.UnOp:
		return t.Op == token.ARROW && t.CommaOk
	}
	return false
}

func freeVarField(fv *ssa.FreeVar) scene.Field {
	return scene.NewField(fv.Parent().Name() + "." + fv.Name())
}

func (m *Method) alloc(s *Stmt, v ssa.Value) {
	s.kind = assignStmt
	s.lhs = m.local(v)
	s.rhs = NewExpr{instr: v, typ: m.prog.typ(v.Type())}
}

func (m *Method) assign(s *Stmt, v ssa.Value, x ssa.Value) {
	s.kind = assignStmt
	s.lhs = m.local(v)
	s.rhs = m.val(x)
}

func (m *Method) load(s *Stmt, v ssa.Value, base ssa.Value, f scene.Field) {
	s.kind = loadStmt
	s.lhs = m.local(v)
	s.base = m.val(base)
	s.field = f
}

func (m *Method) store(s *Stmt, base scene.Val, f scene.Field, v ssa.Value) {
	s.kind = storeStmt
	s.base = base
	s.field = f
	s.rhs = m.val(v)
}

// deref translates *x, looking through the address of fields and elements. Structs and arrays loaded as a whole
// are their memory.
func (m *Method) deref(s *Stmt, i *ssa.UnOp) {
	switch addr := i.X.(type) {
	case *ssa.Global:
		s.kind = staticLoadStmt
		s.lhs = m.local(i)
		s.static = m.prog.global(addr)
		return
	case *ssa.FieldAddr:
		if lookedThrough(addr) {
			m.load(s, i, addr.X, m.prog.fieldOf(addr.X.Type(), addr.Field))
			return
		}
	case *ssa.IndexAddr:
		if lookedThrough(addr) {
			m.load(s, i, addr.X, derefField)
			return
		}
	}
	if isAggregate(i.Type()) {
		m.assign(s, i, i.X)
	} else {
		m.load(s, i, i.X, derefField)
	}
}

// storeTo translates *addr = v, looking through the address of fields and elements
func (m *Method) storeTo(s *Stmt, addr ssa.Value, v ssa.Value) {
	switch a := addr.(type) {
	case *ssa.Global:
		s.kind = staticStoreStmt
		s.static = m.prog.global(a)
		s.lhs = s.static
		s.rhs = m.val(v)
		return
	case *ssa.FieldAddr:
		if lookedThrough(a) {
			m.store(s, m.val(a.X), m.prog.fieldOf(a.X.Type(), a.Field), v)
			return
		}
	case *ssa.IndexAddr:
		if lookedThrough(a) {
			m.store(s, m.val(a.X), derefField, v)
			return
		}
	}
	m.store(s, m.val(addr), derefField, v)
}

// copyFields translates the store of the struct or array v to addr into one load and one store per field that may
// hold a pointer. The first load replaces s, which stays a nop when nothing is copied.
func (m *Method) copyFields(s *Stmt, addr ssa.Value, v ssa.Value) []*Stmt {
	if _, ok := addr.(*ssa.Global); ok {
		return []*Stmt{s}
	}
	*s = Stmt{method: m, instr: s.instr}
	if _, ok := v.(*ssa.Const); ok {
		return []*Stmt{s}
	}
	var res []*Stmt
	dst, src := m.val(addr), m.val(v)
	for _, f := range m.prog.fieldsOf(v.Type()) {
		tmp := m.temp(f.typ)
		ld := s
		if len(res) > 0 {
			ld = m.derivedStmt(s.instr)
		}
		ld.kind, ld.lhs, ld.base, ld.field = loadStmt, tmp, src, f.field
		st := m.derivedStmt(s.instr)
		st.kind, st.base, st.field, st.rhs = storeStmt, dst, f.field, tmp
		res = append(res, ld, st)
	}
	if len(res) == 0 {
		return []*Stmt{s}
	}
	return res
}

func (m *Method) call(s *Stmt, c *ssa.CallCommon, v ssa.Value) {
	s.kind = callStmt
	if v != nil && c.Signature().Results().Len() > 0 {
		s.lhs = m.local(v)
	}
	ie := &InvokeExpr{call: c}
	callee := c.StaticCallee()
	_, direct := c.Value.(*ssa.Function)
	switch {
	case c.IsInvoke():
		ie.mode = instanceInvoke
		ie.base = m.val(c.Value)
		ie.args = m.vals(c.Args)
		ie.callee = Declared{name: c.Method.Name(), pkg: pkgPath(c.Method.Pkg()), receiver: c.Value.Type().String()}
	case callee != nil && callee.Signature.Recv() != nil && len(c.Args) > 0:
		ie.mode = specialInvoke
		ie.base = m.val(c.Args[0])
		ie.args = m.vals(c.Args[1:])
		ie.callee = declared(callee)
	case callee != nil:
		ie.args = m.vals(c.Args)
		ie.callee = declared(callee)
		if !direct {
			ie.base = m.val(c.Value)
		}
	default:
		// the function value is the closure of the callee
		ie.args = m.vals(c.Args)
		ie.callee = Declared{name: c.Value.Name()}
		ie.base = m.val(c.Value)
	}
	s.invoke = ie
}

func declared(fn *ssa.Function) Declared {
	d := Declared{name: fn.Name()}
	if fn.Pkg != nil {
		d.pkg = fn.Pkg.Pkg.Path()
	}
	if recv := fn.Signature.Recv(); recv != nil {
		d.receiver = recv.Type().String()
	}
	return d
}

func pkgPath(p *types.Package) string {
	if p == nil {
		return ""
	}
	return p.Path()
}

// structField returns the i-th field of the struct t, or of the struct t points to
func structField(t types.Type, i int) (*types.Var, bool) {
	if p, ok := t.Underlying().(*types.Pointer); ok {
		t = p.Elem()
	}
	if st, ok := t.Underlying().(*types.Struct); ok && i < st.NumFields() {
		return st.Field(i), true
	}
	return nil, false
}

// fieldOf returns the field of the i-th field of the struct t, or of the struct t points to. Fields whose address
// is used as a value are the content of the object.
func (p *Program) fieldOf(t types.Type, i int) scene.Field {
	v, ok := structField(t, i)
	if !ok {
		return scene.NewField(fmt.Sprintf("field%d", i))
	}
	if p.collapsed[v] {
		return derefField
	}
	return scene.NewField(v.Name())
}

type typedField struct {
	field scene.Field
	typ   types.Type
}

// fieldsOf returns the fields of a value of type t that may hold pointers. Nested structs and arrays are flattened.
func (p *Program) fieldsOf(t types.Type) []typedField {
	var res []typedField
	seen := map[scene.Field]bool{}
	add := func(f scene.Field, t types.Type) {
		if !seen[f] && mayHoldPointer(t) {
			seen[f] = true
			res = append(res, typedField{field: f, typ: t})
		}
	}
	var visit func(t types.Type, depth int)
	visit = func(t types.Type, depth int) {
		if depth > maxFlattenDepth {
			return
		}
		switch u := t.Underlying().(type) {
		case *types.Struct:
			for i := 0; i < u.NumFields(); i++ {
				if ft := u.Field(i).Type(); isAggregate(ft) {
					visit(ft, depth+1)
				} else {
					add(p.fieldOf(u, i), ft)
				}
			}
		case *types.Array:
			if isAggregate(u.Elem()) {
				visit(u.Elem(), depth+1)
			} else {
				add(derefField, u.Elem())
			}
		}
	}
	visit(t, 0)
	return res
}

const maxFlattenDepth = 8

func mayHoldPointer(t types.Type) bool {
	_, basic := t.Underlying().(*types.Basic)
	return !basic
}

// collapseAddressedFields marks the fields whose address is used as a value in one of fns
func (p *Program) collapseAddressedFields(fns []*ssa.Function) {
	for _, fn := range fns {
		for _, b := range fn.Blocks {
			for _, instr := range b.Instrs {
				fa, ok := instr.(*ssa.FieldAddr)
				if !ok || lookedThrough(fa) {
					continue
				}
				if v, ok := structField(fa.X.Type(), fa.Field); ok {
					p.collapsed[v] = true
				}
			}
		}
	}
}

func (m *Method) local(v ssa.Value) Local {
	return Local{value: v, method: m, typ: m.prog.typ(v.Type())}
}

func (m *Method) temp(t types.Type) Temp {
	m.temps++
	return Temp{id: m.temps, method: m, typ: m.prog.typ(t)}
}

// val translates an operand of the function
func (m *Method) val(v ssa.Value) scene.Val {
	switch x := v.(type) {
	case nil:
		return nil
	case *ssa.Const, *ssa.Function, *ssa.Builtin:
		return Const{value: v, typ: m.prog.typ(v.Type())}
	case *ssa.Global:
		return m.prog.global(x)
	default:
		return m.local(v)
	}
}

func (m *Method) vals(vs []ssa.Value) []scene.Val {
	res := make([]scene.Val, len(vs))
	for i, v := range vs {
		res[i] = m.val(v)
	}
	return res
}

// global returns the static field of the package-level variable g
func (p *Program) global(g *ssa.Global) scene.StaticFieldVal {
	t := g.Type()
	if ptr, ok := t.Underlying().(*types.Pointer); ok {
		t = ptr.Elem()
	}
	return scene.NewStaticFieldVal(g.String(), p.typ(t))
}

func usesOf(s *Stmt) []scene.Val {
	var uses []scene.Val
	switch s.kind {
	case assignStmt, staticStoreStmt:
		uses = append(uses, s.rhs)
	case loadStmt:
		uses = append(uses, s.base)
	case storeStmt:
		uses = append(uses, s.base, s.rhs)
	case phiStmt, returnStmt:
		uses = append(uses, s.ops...)
	case callStmt:
		uses = append(uses, s.invoke.base)
		uses = append(uses, s.invoke.args...)
	}
	res := uses[:0]
	for _, u := range uses {
		if u != nil {
			res = append(res, u)
		}
	}
	return res
}
