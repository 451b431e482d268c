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

package boomerang

import (
	"fmt"

	"github.com/awslabs/ar-go-spds/analysis/scene"
	"github.com/awslabs/ar-go-spds/analysis/spds"
	"github.com/awslabs/ar-go-spds/analysis/wpds"
)

// FieldWrite is a store Base.Field = Stored where Base points to the object tracked by a forward solver.
type FieldWrite struct {
	Stmt   scene.Statement
	Base   scene.Val
	Field  scene.Field
	Stored scene.Val
}

func (fw FieldWrite) String() string {
	return fmt.Sprintf("%v.%v = %v @ %v", fw.Base, fw.Field, fw.Stored, fw.Stmt)
}

type forwardFlow[W wpds.Weight[W]] struct {
	s              *Solver[W]
	seedNode       Node
	writes         []FieldWrite
	writeSet       map[FieldWrite]bool
	writeListeners []func(FieldWrite)
}

func (f *forwardFlow[W]) seed() {
	f.s.seedAutomata()
}

// process computes the facts holding before the successors of n's statement. The seed is defined by its
// statement, so it holds right after it.
func (f *forwardFlow[W]) process(n Node) {
	stmt := n.Stmt()
	if n == f.seedNode {
		v := scene.Unwrap(n.Fact())
		for _, t := range succsOf(stmt) {
			f.s.propagate(n, NewNode(t, v), keep)
		}
		return
	}
	if stmt.ContainsInvokeExpr() {
		f.callFlow(n)
	} else {
		f.normalFlow(n)
	}
	if scene.IsEndPoint(stmt) {
		f.returnFlow(n)
	}
}

func (f *forwardFlow[W]) normalFlow(n Node) {
	stmt, v := n.Stmt(), n.Fact()
	var gen []scene.Val
	kill := false
	switch {
	case stmt.IsFieldStore():
		base, fld := stmt.FieldAccess()
		if stmt.RightOp() == v {
			for _, t := range succsOf(stmt) {
				f.s.propagate(n, NewNode(t, base), push(fld))
			}
			f.importAliases(n, base, fld)
		}
		if base == v {
			f.fieldWriteAt(n, fld)
		}
	case stmt.IsFieldLoad():
		base, fld := stmt.FieldAccess()
		lhs := stmt.LeftOp()
		if base == v {
			for _, t := range succsOf(stmt) {
				f.s.propagate(n, NewNode(t, lhs), pop(fld))
			}
		}
		kill = lhs == v
	case stmt.IsStaticFieldStore():
		g := stmt.StaticField()
		if stmt.RightOp() == v && f.s.engine.options.StaticFieldStrategy != nil {
			out := map[State]bool{}
			for _, t := range succsOf(stmt) {
				f.s.engine.options.StaticFieldStrategy.HandleForward(scene.Edge{Start: stmt, Target: t}, v, g, out)
			}
			f.s.applyStates(n, out)
		}
		kill = v == scene.Val(g)
	case stmt.IsStaticFieldLoad():
		if scene.Val(stmt.StaticField()) == v {
			gen = append(gen, stmt.LeftOp())
		}
		kill = stmt.LeftOp() == v
	case stmt.IsPhi():
		for _, op := range stmt.PhiOps() {
			if op == v {
				gen = append(gen, stmt.LeftOp())
				break
			}
		}
		kill = stmt.LeftOp() == v
	case stmt.IsAssign():
		if stmt.RightOp() == v {
			gen = append(gen, stmt.LeftOp())
		}
		kill = stmt.LeftOp() == v
	}
	for _, t := range succsOf(stmt) {
		if !kill {
			f.s.propagate(n, NewNode(t, v), keep)
		}
		for _, g := range gen {
			f.s.propagate(n, NewNode(t, g), keep)
		}
	}
}

// callFlow enters the callees of the call at n, and continues after the call with the facts the call does not
// define.
func (f *forwardFlow[W]) callFlow(n Node) {
	c, v := n.Stmt(), n.Fact()
	ie := c.InvokeExpr()
	for _, e := range f.s.engine.cg.EdgesOutOf(c) {
		if !hasBody(e.Callee) {
			continue
		}
		for _, p := range forwardCalleeFacts(ie, e.Callee, v) {
			for _, sp := range e.Callee.ControlFlowGraph().StartPoints() {
				f.s.pushCall(n, NewNode(sp, p), c, keep)
			}
		}
	}
	if c.LeftOp() != v {
		for _, t := range succsOf(c) {
			f.s.propagate(n, NewNode(t, v), keep)
		}
	}
}

// returnFlow returns the facts of n that are visible to the callers of the method of n
func (f *forwardFlow[W]) returnFlow(n Node) {
	ret, v := n.Stmt(), n.Fact()
	m := ret.Method()
	f.s.onReturn(n, m, func(c scene.Statement, target CallState, w W) {
		if !c.ContainsInvokeExpr() {
			return
		}
		for _, cf := range forwardCallerFacts(c, m, ret, v) {
			for _, t := range succsOf(c) {
				f.s.popTo(n, NewNode(t, cf.val), target, w, cf.op)
			}
		}
	})
}

type callerFact struct {
	val scene.Val
	op  fieldOp
}

func forwardCalleeFacts(ie scene.InvokeExpr, m scene.Method, v scene.Val) []scene.Val {
	var facts []scene.Val
	params := m.Parameters()
	for i, a := range ie.Args() {
		if a == v && i < len(params) {
			facts = append(facts, params[i])
		}
	}
	if b := ie.Base(); b != nil && b == v && m.Receiver() != nil {
		facts = append(facts, m.Receiver())
	}
	if v.IsStatic() {
		facts = append(facts, v)
	}
	return facts
}

// forwardCallerFacts maps v before ret to the caller values after c. Multiple results are returned through tuple
// fields of the value receiving them.
func forwardCallerFacts(c scene.Statement, m scene.Method, ret scene.Statement, v scene.Val) []callerFact {
	var facts []callerFact
	ie := c.InvokeExpr()
	if lhs := c.LeftOp(); lhs != nil && ret.IsReturn() {
		ops := ret.ReturnOps()
		for i, r := range ops {
			if r != v {
				continue
			}
			if len(ops) == 1 {
				facts = append(facts, callerFact{lhs, keep})
			} else {
				facts = append(facts, callerFact{lhs, push(scene.TupleField(i))})
			}
		}
	}
	if i := scene.IndexOfParameter(m, v); i >= 0 {
		if a, ok := ie.Arg(i); ok && isTrackable(a) {
			facts = append(facts, callerFact{a, keep})
		}
	}
	if r := m.Receiver(); r != nil && r == v && isTrackable(ie.Base()) {
		facts = append(facts, callerFact{ie.Base(), keep})
	}
	if v.IsStatic() {
		facts = append(facts, callerFact{v, keep})
	}
	return facts
}

type fieldWriteKey struct {
	field scene.Field
}

// fieldWriteAt records the store at n when the base of the store is the tracked object itself
func (f *forwardFlow[W]) fieldWriteAt(n Node, fld scene.Field) {
	stmt := n.Stmt()
	stored := stmt.RightOp()
	if !isTrackable(stored) {
		return
	}
	f.s.fieldAutomaton.RegisterListener(&wpds.Listener[scene.Field, FieldState, wpds.NoWeight]{
		On: spds.Single(n),
		ID: fieldWriteKey{fld},
		Out: func(t FieldTransition, _ wpds.NoWeight) {
			if t.Label().IsEmpty() {
				f.addFieldWrite(FieldWrite{Stmt: stmt, Base: n.Fact(), Field: fld, Stored: stored})
			}
		},
	})
}

func (f *forwardFlow[W]) addFieldWrite(fw FieldWrite) {
	if f.writeSet[fw] {
		return
	}
	f.writeSet[fw] = true
	f.writes = append(f.writes, fw)
	f.s.logger.Tracef("%v: field write %v", f.s.query, fw)
	ls := f.writeListeners
	for _, l := range ls[:len(ls):len(ls)] {
		l(fw)
	}
}

// onFieldWrite calls l with every field write into the tracked object, including the ones found later
func (f *forwardFlow[W]) onFieldWrite(l func(FieldWrite)) {
	f.writeListeners = append(f.writeListeners, l)
	ws := f.writes
	for _, fw := range ws[:len(ws):len(ws)] {
		l(fw)
	}
}

type importKey struct {
	into  Query
	from  Node
	field scene.Field
}

// importAliases handles the store base.f = v at n: every alias of base at the store reaches the tracked object
// through f after the store. The aliases are found by a backward query for base, followed by forward queries from
// its allocation sites. Imported nodes continue in the unknown calling context.
func (f *forwardFlow[W]) importAliases(n Node, base scene.Val, fld scene.Field) {
	if !base.IsLocal() {
		return
	}
	engine := f.s.engine
	store := n.Stmt()
	bq := NewBackwardQuery(store, base)
	engine.solverFor(bq).backward().onAllocationFound(func(fq ForwardQuery) {
		p := engine.solverFor(fq)
		p.onReachedAt(store, func(m Node) {
			alias := m.Fact()
			if alias == base || !alias.IsLocal() {
				return
			}
			p.fieldAutomaton.RegisterListener(&wpds.Listener[scene.Field, FieldState, wpds.NoWeight]{
				On: spds.Single(m),
				ID: importKey{f.s.query, n, fld},
				Out: func(t FieldTransition, _ wpds.NoWeight) {
					if !t.Label().IsEmpty() {
						return
					}
					for _, succ := range succsOf(store) {
						f.s.jump(n, NewNode(succ, alias), push(fld))
					}
				},
			})
		})
	})
}
