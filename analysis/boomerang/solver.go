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
	"github.com/awslabs/ar-go-spds/analysis/config"
	"github.com/awslabs/ar-go-spds/analysis/scene"
	"github.com/awslabs/ar-go-spds/analysis/spds"
	"github.com/awslabs/ar-go-spds/analysis/wpds"
)

// flow is the direction-specific part of a solver
type flow interface {
	// seed adds the transitions of the query to the automata
	seed()
	// process computes the successors of a reached node
	process(n Node)
}

// A Solver computes the fixpoint of one query. It owns a call automaton, whose transitions Single(v) --s--> T
// say that v is relevant before s in the calling context T, and a field automaton, whose transitions
// Single(n) --f--> T say that the tracked object is reachable from the fact of n through f followed by T.
//
// Solvers are created by an engine, and must only be accessed while the engine is not solving.
type Solver[W wpds.Weight[W]] struct {
	engine *Boomerang[W]
	query  Query
	flow   flow
	logger *config.LogGroup

	callAutomaton  *wpds.WeightedPAutomaton[scene.Statement, CallState, W]
	fieldAutomaton *FieldAutomaton

	reached      map[Node]bool
	reachedOrder []Node
	worklist     []Node
	scheduled    bool
	timedout     bool

	callRouters map[scene.Val]*callRouter[W]

	succs map[Node][]Node
	edges map[nodeEdge]bool

	reachedAt      map[scene.Statement][]Node
	reachListeners map[scene.Statement][]func(Node)

	pops int
}

type nodeEdge struct {
	from Node
	to   Node
}

// callRouter dispatches the transitions leaving a concrete call state to the handlers of their label
type callRouter[W wpds.Weight[W]] struct {
	handlers map[scene.Statement][]func(CallTransition, W)
}

func newSolver[W wpds.Weight[W]](engine *Boomerang[W], q Query) *Solver[W] {
	s := &Solver[W]{
		engine:         engine,
		query:          q,
		logger:         engine.logger,
		callAutomaton:  wpds.NewWeightedPAutomaton[scene.Statement, CallState, W](engine.weights.One(), scene.Epsilon),
		fieldAutomaton: wpds.NewWeightedPAutomaton[scene.Field, FieldState, wpds.NoWeight](wpds.NoWeight{}, scene.EpsilonField),
		reached:        map[Node]bool{},
		callRouters:    map[scene.Val]*callRouter[W]{},
		succs:          map[Node][]Node{},
		edges:          map[nodeEdge]bool{},
		reachedAt:      map[scene.Statement][]Node{},
		reachListeners: map[scene.Statement][]func(Node){},
	}
	s.callAutomaton.Name = "call " + q.String()
	s.fieldAutomaton.Name = "field " + q.String()
	switch q := q.(type) {
	case ForwardQuery:
		s.flow = &forwardFlow[W]{s: s, seedNode: q.AsNode(), writeSet: map[FieldWrite]bool{}}
	case BackwardQuery:
		s.flow = &backwardFlow[W]{s: s, allocSet: map[ForwardQuery]bool{}}
	}
	// a node is reached when its concrete field state gets its first transition
	s.fieldAutomaton.RegisterTransitionListener(wpds.TransitionFunc[scene.Field, FieldState, wpds.NoWeight](
		func(t FieldTransition, _ wpds.NoWeight) {
			if n, ok := t.Start().Concrete(); ok {
				s.reach(n)
			}
		}))
	return s
}

// seedAutomata adds the root states and the seed transitions of the query. A forward query whose value is a
// projection of an allocation starts with that field on its stack.
func (s *Solver[W]) seedAutomata() {
	seed := s.query.AsNode()
	callRoot := s.callRoot()
	s.callAutomaton.AddInitialState(callRoot)
	s.callAutomaton.AddFinalState(callRoot)
	fieldRoot := s.fieldRoot()
	s.fieldAutomaton.AddInitialState(fieldRoot)
	s.fieldAutomaton.AddFinalState(fieldRoot)

	s.callAutomaton.AddWeightForTransition(
		wpds.NewTransition(spds.Single(s.query.Var()), s.query.Stmt(), callRoot), s.engine.weights.One())
	if a, ok := s.query.Var().(scene.AllocVal); ok && !a.Field.IsEmpty() {
		gen := spds.Generated[Node](seed, a.Field)
		s.fieldAutomaton.AddTransition(wpds.NewTransition(spds.Single(seed), a.Field, gen))
		s.fieldAutomaton.AddTransition(wpds.NewTransition(gen, scene.EmptyField, fieldRoot))
	} else {
		s.fieldAutomaton.AddTransition(wpds.NewTransition(spds.Single(seed), scene.EmptyField, fieldRoot))
	}
}

// Query returns the query of the solver
func (s *Solver[W]) Query() Query { return s.query }

// CallAutomaton returns the call automaton of the solver
func (s *Solver[W]) CallAutomaton() *wpds.WeightedPAutomaton[scene.Statement, CallState, W] {
	return s.callAutomaton
}

// FieldAutomaton returns the field automaton of the solver
func (s *Solver[W]) FieldAutomaton() *FieldAutomaton { return s.fieldAutomaton }

// ReachedNodes returns the nodes reached so far, in the order they were reached
func (s *Solver[W]) ReachedNodes() []Node {
	return append([]Node(nil), s.reachedOrder...)
}

// IsReached returns true if n has been reached
func (s *Solver[W]) IsReached(n Node) bool { return s.reached[n] }

// IsTimedout returns true if a budget was exhausted while the solver had pending work
func (s *Solver[W]) IsTimedout() bool { return s.timedout }

func (s *Solver[W]) callRoot() CallState { return spds.Root(s.query.Var()) }

func (s *Solver[W]) fieldRoot() FieldState { return spds.Root(s.query.AsNode()) }

func (s *Solver[W]) forward() *forwardFlow[W] {
	f, _ := s.flow.(*forwardFlow[W])
	return f
}

func (s *Solver[W]) backward() *backwardFlow[W] {
	b, _ := s.flow.(*backwardFlow[W])
	return b
}

func (s *Solver[W]) reach(n Node) {
	if s.reached[n] {
		return
	}
	s.reached[n] = true
	s.reachedOrder = append(s.reachedOrder, n)
	s.reachedAt[n.Stmt()] = append(s.reachedAt[n.Stmt()], n)
	s.worklist = append(s.worklist, n)
	if s.logger.LogsTrace() {
		s.logger.Tracef("%v reached %v", s.query, n)
	}
	s.engine.schedule(s)
	ls := s.reachListeners[n.Stmt()]
	for _, l := range ls[:len(ls):len(ls)] {
		l(n)
	}
}

// onReachedAt calls f with every node of stmt reached by the solver, including the ones reached later
func (s *Solver[W]) onReachedAt(stmt scene.Statement, f func(Node)) {
	s.reachListeners[stmt] = append(s.reachListeners[stmt], f)
	ns := s.reachedAt[stmt]
	for _, n := range ns[:len(ns):len(ns)] {
		f(n)
	}
}

func (s *Solver[W]) nextNode() (Node, bool) {
	if len(s.worklist) == 0 {
		return Node{}, false
	}
	var n Node
	if s.engine.options.DepthFirst {
		n = s.worklist[len(s.worklist)-1]
		s.worklist = s.worklist[:len(s.worklist)-1]
	} else {
		n = s.worklist[0]
		s.worklist = s.worklist[1:]
	}
	return n, true
}

// onCallContext calls h with every transition of the call automaton standing for node n, including the ones added
// later.
func (s *Solver[W]) onCallContext(n Node, h func(t CallTransition, w W)) {
	v := n.Fact()
	r, existed := s.callRouters[v]
	if !existed {
		r = &callRouter[W]{handlers: map[scene.Statement][]func(CallTransition, W){}}
		s.callRouters[v] = r
	}
	r.handlers[n.Stmt()] = append(r.handlers[n.Stmt()], h)
	if !existed {
		s.callAutomaton.RegisterListener(&wpds.Listener[scene.Statement, CallState, W]{
			On: spds.Single(v),
			Out: func(t CallTransition, w W) {
				hs := r.handlers[t.Label()]
				for _, h := range hs[:len(hs):len(hs)] {
					h(t, w)
				}
			},
		})
		return
	}
	for _, t := range s.callAutomaton.TransitionsOutOf(spds.Single(v)) {
		if t.Label() == n.Stmt() {
			w, _ := s.callAutomaton.Weight(t)
			h(t, w)
		}
	}
}

type fieldOpKind uint8

const (
	copyField fieldOpKind = iota
	pushField
	popField
)

// fieldOp is the effect of a propagation on the field stack
type fieldOp struct {
	kind  fieldOpKind
	field scene.Field
}

var keep = fieldOp{kind: copyField}

func push(f scene.Field) fieldOp { return fieldOp{kind: pushField, field: f} }

func pop(f scene.Field) fieldOp { return fieldOp{kind: popField, field: f} }

type fieldOpKey struct {
	op   fieldOp
	succ Node
}

// popKey identifies one pop, so that every pop notifies its own connection
type popKey struct {
	id int
}

// connect makes succ a successor of curr: addCall adds the call automaton transitions of succ, the propagation
// graph gets the edge curr -> succ and the field stacks of curr transformed by op are given to succ. A pop only
// connects succ once the popped field is on top of a stack of curr.
func (s *Solver[W]) connect(curr Node, succ Node, op fieldOp, addCall func()) {
	to := spds.Single(succ)
	switch op.kind {
	case copyField:
		addCall()
		s.addEdge(curr, succ)
		s.fieldAutomaton.RegisterListener(&wpds.Listener[scene.Field, FieldState, wpds.NoWeight]{
			On: spds.Single(curr),
			ID: fieldOpKey{op, succ},
			Out: func(t FieldTransition, _ wpds.NoWeight) {
				s.fieldAutomaton.AddTransition(wpds.NewTransition(to, t.Label(), t.Target()))
			},
		})
	case pushField:
		addCall()
		s.addEdge(curr, succ)
		gen := spds.Generated[Node](succ, op.field)
		s.fieldAutomaton.RegisterListener(&wpds.Listener[scene.Field, FieldState, wpds.NoWeight]{
			On: spds.Single(curr),
			ID: fieldOpKey{op, succ},
			Out: func(t FieldTransition, _ wpds.NoWeight) {
				s.fieldAutomaton.AddTransition(wpds.NewTransition(gen, t.Label(), t.Target()))
				s.fieldAutomaton.AddTransition(wpds.NewTransition(to, op.field, gen))
			},
		})
	case popField:
		s.pops++
		key := popKey{s.pops}
		connected := false
		s.fieldAutomaton.RegisterListener(&wpds.Listener[scene.Field, FieldState, wpds.NoWeight]{
			On: spds.Single(curr),
			ID: key,
			Out: func(t FieldTransition, _ wpds.NoWeight) {
				if t.Label() != op.field {
					return
				}
				s.fieldAutomaton.RegisterListener(&wpds.Listener[scene.Field, FieldState, wpds.NoWeight]{
					On: t.Target(),
					ID: key,
					Out: func(u FieldTransition, _ wpds.NoWeight) {
						if !connected {
							connected = true
							addCall()
							s.addEdge(curr, succ)
						}
						s.fieldAutomaton.AddTransition(wpds.NewTransition(to, u.Label(), u.Target()))
					},
				})
			},
		})
	}
}

// propagate continues from curr to succ in the calling context of curr
func (s *Solver[W]) propagate(curr Node, succ Node, op fieldOp) {
	if curr == succ && op == keep {
		return
	}
	to := spds.Single(succ.Fact())
	nw := s.engine.weights.Normal(curr, succ)
	s.connect(curr, succ, op, func() {
		s.onCallContext(curr, func(t CallTransition, w W) {
			s.callAutomaton.AddWeightForTransition(wpds.NewTransition(to, succ.Stmt(), t.Target()), w.Extend(nw))
		})
	})
}

// jump continues from curr to succ in the unknown calling context, represented by the root of the call automaton
func (s *Solver[W]) jump(curr Node, succ Node, op fieldOp) {
	s.connect(curr, succ, op, func() {
		s.callAutomaton.AddWeightForTransition(
			wpds.NewTransition(spds.Single(succ.Fact()), succ.Stmt(), s.callRoot()),
			s.engine.weights.Normal(curr, succ))
	})
}

// pushCall enters a callee at callee from curr at callSite. The call site is pushed on the call stack.
func (s *Solver[W]) pushCall(curr Node, callee Node, callSite scene.Statement, op fieldOp) {
	gen := spds.Generated(callee.Fact(), callee.Stmt())
	pw := s.engine.weights.Push(curr, callee, callSite)
	s.connect(curr, callee, op, func() {
		s.callAutomaton.AddWeightForTransition(
			wpds.NewTransition(spds.Single(callee.Fact()), callee.Stmt(), gen), s.engine.weights.One())
		s.onCallContext(curr, func(t CallTransition, w W) {
			s.callAutomaton.AddWeightForTransition(wpds.NewTransition(gen, callSite, t.Target()), w.Extend(pw))
		})
	})
}

type returnKey struct {
	node   Node
	weight string
}

// onReturn calls ret for every call site the node n of method m may return to, with the calling context of the
// caller and the weight of the callee path. In the unknown calling context, every caller of m is returned to.
func (s *Solver[W]) onReturn(n Node, m scene.Method, ret func(callSite scene.Statement, target CallState, w W)) {
	s.onCallContext(n, func(t CallTransition, w W) {
		x := t.Target()
		switch {
		case x.IsRoot():
			for _, e := range s.engine.cg.EdgesInto(m) {
				ret(e.CallSite, x, w)
			}
		case x.IsGenerated():
			s.callAutomaton.RegisterListener(&wpds.Listener[scene.Statement, CallState, W]{
				On: x,
				ID: returnKey{n, w.String()},
				Out: func(u CallTransition, w2 W) {
					ret(u.Label(), u.Target(), w.Extend(w2))
				},
			})
		}
	})
}

// popTo returns from curr to succ in the caller context target
func (s *Solver[W]) popTo(curr Node, succ Node, target CallState, w W, op fieldOp) {
	s.connect(curr, succ, op, func() {
		s.callAutomaton.AddWeightForTransition(
			wpds.NewTransition(spds.Single(succ.Fact()), succ.Stmt(), target),
			w.Extend(s.engine.weights.Pop(curr)))
	})
}

// applyStates continues from curr to the states computed by a static field strategy
func (s *Solver[W]) applyStates(curr Node, out map[State]bool) {
	for _, st := range sortedStates(out) {
		if st.Kind == JumpState {
			s.jump(curr, st.Node, keep)
		} else {
			s.propagate(curr, st.Node, keep)
		}
	}
}

func (s *Solver[W]) addEdge(from Node, to Node) {
	e := nodeEdge{from, to}
	if s.edges[e] {
		return
	}
	s.edges[e] = true
	s.succs[from] = append(s.succs[from], to)
}

// Successors returns the nodes the propagation went to from n
func (s *Solver[W]) Successors(n Node) []Node {
	return append([]Node(nil), s.succs[n]...)
}

// directlyReaches returns true if the tracked object is the value of n itself, with no field in between
func (s *Solver[W]) directlyReaches(n Node) bool {
	if !s.reached[n] {
		return false
	}
	for _, t := range s.fieldAutomaton.TransitionsOutOf(spds.Single(n)) {
		if t.Label().IsEmpty() {
			return true
		}
	}
	return false
}

func succsOf(s scene.Statement) []scene.Statement {
	return s.Method().ControlFlowGraph().Succs(s)
}

func predsOf(s scene.Statement) []scene.Statement {
	return s.Method().ControlFlowGraph().Preds(s)
}

// hasBody returns true if the propagation can enter m
func hasBody(m scene.Method) bool {
	return m != nil && len(m.Statements()) > 0 && m.ControlFlowGraph() != nil
}

func isTrackable(v scene.Val) bool {
	return v != nil && (v.IsLocal() || v.IsStatic())
}
