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
	"github.com/awslabs/ar-go-spds/analysis/scene"
	"github.com/awslabs/ar-go-spds/analysis/spds"
	"github.com/awslabs/ar-go-spds/analysis/wpds"
)

type backwardFlow[W wpds.Weight[W]] struct {
	s              *Solver[W]
	allocations    []ForwardQuery
	allocSet       map[ForwardQuery]bool
	allocListeners []func(ForwardQuery)
}

func (b *backwardFlow[W]) seed() {
	b.s.seedAutomata()
}

// process computes the facts holding before the predecessors of n's statement
func (b *backwardFlow[W]) process(n Node) {
	stmt := n.Stmt()
	if scene.IsStartPoint(stmt) {
		b.entryFlow(n)
	}
	for _, p := range predsOf(stmt) {
		if p.ContainsInvokeExpr() {
			b.callFlow(n, p)
		} else {
			b.normalFlow(n, p)
		}
	}
}

func (b *backwardFlow[W]) normalFlow(n Node, p scene.Statement) {
	v := n.Fact()
	opts := b.s.engine.options
	switch {
	case p.IsFieldStore():
		base, fld := p.FieldAccess()
		b.s.propagate(n, NewNode(p, v), keep)
		if base == v && isTrackable(p.RightOp()) {
			b.s.propagate(n, NewNode(p, p.RightOp()), pop(fld))
		}
	case p.IsFieldLoad():
		base, fld := p.FieldAccess()
		if p.LeftOp() == v {
			b.s.propagate(n, NewNode(p, base), push(fld))
		} else {
			b.s.propagate(n, NewNode(p, v), keep)
		}
	case p.IsStaticFieldStore():
		if scene.Val(p.StaticField()) == v {
			if isTrackable(p.RightOp()) {
				b.s.propagate(n, NewNode(p, p.RightOp()), keep)
			}
		} else {
			b.s.propagate(n, NewNode(p, v), keep)
		}
	case p.IsStaticFieldLoad():
		if p.LeftOp() != v {
			b.s.propagate(n, NewNode(p, v), keep)
		} else if opts.StaticFieldStrategy != nil {
			out := map[State]bool{}
			opts.StaticFieldStrategy.HandleBackward(scene.Edge{Start: n.Stmt(), Target: p}, v, p.StaticField(), out)
			b.s.applyStates(n, out)
		}
	case p.IsPhi():
		if p.LeftOp() != v {
			b.s.propagate(n, NewNode(p, v), keep)
			return
		}
		for _, op := range p.PhiOps() {
			if isTrackable(op) {
				b.s.propagate(n, NewNode(p, op), keep)
			} else if opts.isAllocationSite(p, op) {
				b.allocationAt(n, p)
			}
		}
	case p.IsAssign():
		if p.LeftOp() != v {
			b.s.propagate(n, NewNode(p, v), keep)
		} else if opts.isAllocationSite(p, p.RightOp()) {
			b.allocationAt(n, p)
		} else if isTrackable(p.RightOp()) {
			b.s.propagate(n, NewNode(p, p.RightOp()), keep)
		}
	default:
		b.s.propagate(n, NewNode(p, v), keep)
	}
}

// callFlow goes backward over the call p. A tracked result enters the callees at their returns, tracked arguments
// enter the callees at their exits, and every fact but the result also skips the call.
func (b *backwardFlow[W]) callFlow(n Node, p scene.Statement) {
	v := n.Fact()
	ie := p.InvokeExpr()
	resolved := false
	for _, e := range b.s.engine.cg.EdgesOutOf(p) {
		m := e.Callee
		if !hasBody(m) {
			continue
		}
		resolved = true
		cfg := m.ControlFlowGraph()
		if p.LeftOp() == v {
			for _, ret := range cfg.EndPoints() {
				if !ret.IsReturn() {
					continue
				}
				ops := ret.ReturnOps()
				for i, r := range ops {
					if !isTrackable(r) {
						continue
					}
					if len(ops) == 1 {
						b.s.pushCall(n, NewNode(ret, r), p, keep)
					} else {
						b.s.pushCall(n, NewNode(ret, r), p, pop(scene.TupleField(i)))
					}
				}
			}
		}
		for _, fact := range forwardCalleeFacts(ie, m, v) {
			for _, ret := range cfg.EndPoints() {
				b.s.pushCall(n, NewNode(ret, fact), p, keep)
			}
		}
	}
	if p.LeftOp() != v {
		b.s.propagate(n, NewNode(p, v), keep)
	} else if !resolved && b.s.engine.options.AllocationAtUnresolvedCalls {
		b.allocationAt(n, p)
	}
}

// entryFlow returns from the start of a method to the call sites, mapping parameters to arguments
func (b *backwardFlow[W]) entryFlow(n Node) {
	sp, v := n.Stmt(), n.Fact()
	m := sp.Method()
	b.s.onReturn(n, m, func(c scene.Statement, target CallState, w W) {
		if !c.ContainsInvokeExpr() {
			return
		}
		ie := c.InvokeExpr()
		var facts []scene.Val
		if i := scene.IndexOfParameter(m, v); i >= 0 {
			if a, ok := ie.Arg(i); ok {
				facts = append(facts, a)
			}
		}
		if r := m.Receiver(); r != nil && r == v && ie.Base() != nil {
			facts = append(facts, ie.Base())
		}
		if v.IsStatic() {
			facts = append(facts, v)
		}
		for _, a := range facts {
			if isTrackable(a) {
				b.s.popTo(n, NewNode(c, a), target, w, keep)
			}
		}
	})
}

type allocKey struct {
	site scene.Statement
}

type zeroValueKey struct {
	site  scene.Statement
	field scene.Field
}

// allocationAt handles n reaching the statement p that defines the value of n from scratch.
// When the tracked object is the value itself, p is an allocation site of the query. When the tracked object is
// in a field f of the value, the propagation continues at the values stored into f of the object allocated at p,
// and if nothing is left under f the zero value of f is an allocation site.
func (b *backwardFlow[W]) allocationAt(n Node, p scene.Statement) {
	v := n.Fact()
	container := NewForwardQuery(p, scene.AllocVal{Delegate: v, Site: p, Field: scene.EmptyField})
	b.s.fieldAutomaton.RegisterListener(&wpds.Listener[scene.Field, FieldState, wpds.NoWeight]{
		On: spds.Single(n),
		ID: allocKey{p},
		Out: func(t FieldTransition, _ wpds.NoWeight) {
			if t.Label().IsEmpty() {
				b.addAllocation(container)
				return
			}
			fld := t.Label()
			b.s.engine.solverFor(container).forward().onFieldWrite(func(fw FieldWrite) {
				if fw.Field == fld {
					b.s.jump(n, NewNode(fw.Stmt, fw.Stored), pop(fld))
				}
			})
			b.s.fieldAutomaton.RegisterListener(&wpds.Listener[scene.Field, FieldState, wpds.NoWeight]{
				On: t.Target(),
				ID: zeroValueKey{p, fld},
				Out: func(u FieldTransition, _ wpds.NoWeight) {
					if u.Label().IsEmpty() {
						b.addAllocation(NewForwardQuery(p, scene.AllocVal{Delegate: v, Site: p, Field: fld}))
					}
				},
			})
		},
	})
}

func (b *backwardFlow[W]) addAllocation(fq ForwardQuery) {
	if b.allocSet[fq] {
		return
	}
	b.allocSet[fq] = true
	b.s.engine.solverFor(fq)
	b.allocations = append(b.allocations, fq)
	b.s.logger.Debugf("%v: allocation %v", b.s.query, fq)
	ls := b.allocListeners
	for _, l := range ls[:len(ls):len(ls)] {
		l(fq)
	}
}

// onAllocationFound calls l with every allocation site found by the solver, including the ones found later
func (b *backwardFlow[W]) onAllocationFound(l func(ForwardQuery)) {
	b.allocListeners = append(b.allocListeners, l)
	as := b.allocations
	for _, fq := range as[:len(as):len(as)] {
		l(fq)
	}
}
