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

package wpds

import (
	"fmt"
	"strings"
)

// WeightedPAutomaton is a P-automaton over labels L and states S whose transitions carry weights W.
// The automaton only grows: transitions are never removed and weights only move up in the semiring order.
type WeightedPAutomaton[L comparable, S comparable, W Weight[W]] struct {
	// Name is used when printing the automaton
	Name string

	one     W
	epsilon L

	weights     map[Transition[L, S]]W
	transitions []Transition[L, S]
	out         map[S][]Transition[L, S]
	in          map[S][]Transition[L, S]
	states      []S
	isState     map[S]bool

	initial      []S
	isInitial    map[S]bool
	final        []S
	isFinal      map[S]bool
	finalWeights map[Transition[L, S]]W // nil until TransitionsToFinalWeights is called

	listeners           map[S][]StateListener[L, S, W]
	registered          map[registrationKey[S]]bool
	transitionListeners []TransitionListener[L, S, W]

	queue       []func()
	dispatching bool
}

// NewWeightedPAutomaton returns an empty automaton. one is the identity of the weight semiring and is the weight
// of transitions added without an explicit weight; epsilon is the label of epsilon transitions.
func NewWeightedPAutomaton[L comparable, S comparable, W Weight[W]](one W, epsilon L) *WeightedPAutomaton[L, S, W] {
	return &WeightedPAutomaton[L, S, W]{
		one:        one,
		epsilon:    epsilon,
		weights:    map[Transition[L, S]]W{},
		out:        map[S][]Transition[L, S]{},
		in:         map[S][]Transition[L, S]{},
		isState:    map[S]bool{},
		isInitial:  map[S]bool{},
		isFinal:    map[S]bool{},
		listeners:  map[S][]StateListener[L, S, W]{},
		registered: map[registrationKey[S]]bool{},
	}
}

// One returns the identity weight of the automaton
func (a *WeightedPAutomaton[L, S, W]) One() W { return a.one }

// Epsilon returns the epsilon label of the automaton
func (a *WeightedPAutomaton[L, S, W]) Epsilon() L { return a.epsilon }

// AddTransition adds t with the identity weight. Returns true if t was not in the automaton.
func (a *WeightedPAutomaton[L, S, W]) AddTransition(t Transition[L, S]) bool {
	_, present := a.weights[t]
	a.AddWeightForTransition(t, a.one)
	return !present
}

// AddWeightForTransition adds t with weight w, or combines w into the weight of t if t is already present.
// Returns true if the automaton changed, in which case the listeners of t.Start(), of t.Target() and the
// transition listeners are notified.
func (a *WeightedPAutomaton[L, S, W]) AddWeightForTransition(t Transition[L, S], w W) bool {
	if old, present := a.weights[t]; present {
		combined := old.Combine(w)
		if combined.Equal(old) {
			return false
		}
		a.weights[t] = combined
		w = combined
	} else {
		a.weights[t] = w
		a.transitions = append(a.transitions, t)
		a.out[t.start] = append(a.out[t.start], t)
		a.in[t.target] = append(a.in[t.target], t)
		a.addState(t.start)
		a.addState(t.target)
	}
	outListeners := snapshot(a.listeners[t.start])
	inListeners := snapshot(a.listeners[t.target])
	transitionListeners := snapshot(a.transitionListeners)
	a.post(func() {
		for _, l := range outListeners {
			l.OnOutTransitionAdded(t, w, a)
		}
		for _, l := range inListeners {
			l.OnInTransitionAdded(t, w, a)
		}
		for _, l := range transitionListeners {
			l.OnAddedTransition(t, w, a)
		}
	})
	return true
}

// RegisterListener registers l on l.State(). l is first notified of every transition already leaving or entering
// its state, and then of every new transition. Returns false when l is Keyed and a listener with the same key
// was already registered on the same state; l is then discarded.
func (a *WeightedPAutomaton[L, S, W]) RegisterListener(l StateListener[L, S, W]) bool {
	s := l.State()
	if k, ok := l.(Keyed); ok {
		if key := k.Key(); key != nil {
			rk := registrationKey[S]{state: s, key: key}
			if a.registered[rk] {
				return false
			}
			a.registered[rk] = true
		}
	}
	a.listeners[s] = append(a.listeners[s], l)
	outs := snapshot(a.out[s])
	ins := snapshot(a.in[s])
	a.post(func() {
		for _, t := range outs {
			l.OnOutTransitionAdded(t, a.weights[t], a)
		}
		for _, t := range ins {
			l.OnInTransitionAdded(t, a.weights[t], a)
		}
	})
	return true
}

// RegisterTransitionListener registers l on the whole automaton. l is first notified of every transition already
// present.
func (a *WeightedPAutomaton[L, S, W]) RegisterTransitionListener(l TransitionListener[L, S, W]) {
	a.transitionListeners = append(a.transitionListeners, l)
	existing := snapshot(a.transitions)
	a.post(func() {
		for _, t := range existing {
			l.OnAddedTransition(t, a.weights[t], a)
		}
	})
}

// post enqueues a notification and delivers the pending notifications if no delivery is in progress.
func (a *WeightedPAutomaton[L, S, W]) post(ev func()) {
	a.queue = append(a.queue, ev)
	if a.dispatching {
		return
	}
	a.dispatching = true
	defer func() { a.dispatching = false }()
	for len(a.queue) > 0 {
		next := a.queue[0]
		a.queue[0] = nil
		a.queue = a.queue[1:]
		next()
	}
}

// Dispatching returns true while notifications are being delivered.
func (a *WeightedPAutomaton[L, S, W]) Dispatching() bool { return a.dispatching }

func (a *WeightedPAutomaton[L, S, W]) addState(s S) {
	if !a.isState[s] {
		a.isState[s] = true
		a.states = append(a.states, s)
	}
}

// AddInitialState marks s as an initial state.
func (a *WeightedPAutomaton[L, S, W]) AddInitialState(s S) {
	if !a.isInitial[s] {
		a.isInitial[s] = true
		a.initial = append(a.initial, s)
		a.addState(s)
	}
}

// InitialStates returns the initial states in the order they were added.
func (a *WeightedPAutomaton[L, S, W]) InitialStates() []S { return clone(a.initial) }

// IsInitial returns true if s is an initial state
func (a *WeightedPAutomaton[L, S, W]) IsInitial(s S) bool { return a.isInitial[s] }

// AddFinalState marks s as a final state.
func (a *WeightedPAutomaton[L, S, W]) AddFinalState(s S) {
	if a.isFinal[s] {
		return
	}
	a.isFinal[s] = true
	a.final = append(a.final, s)
	a.addState(s)
	if a.finalWeights != nil {
		a.RegisterListener(&toFinalListener[L, S, W]{state: s, weight: a.one})
	}
}

// FinalStates returns the final states in the order they were added.
func (a *WeightedPAutomaton[L, S, W]) FinalStates() []S { return clone(a.final) }

// IsFinal returns true if s is a final state
func (a *WeightedPAutomaton[L, S, W]) IsFinal(s S) bool { return a.isFinal[s] }

// Transitions returns all the transitions of the automaton in insertion order.
func (a *WeightedPAutomaton[L, S, W]) Transitions() []Transition[L, S] { return clone(a.transitions) }

// TransitionsOutOf returns the transitions starting in s.
func (a *WeightedPAutomaton[L, S, W]) TransitionsOutOf(s S) []Transition[L, S] { return clone(a.out[s]) }

// TransitionsInto returns the transitions ending in s.
func (a *WeightedPAutomaton[L, S, W]) TransitionsInto(s S) []Transition[L, S] { return clone(a.in[s]) }

// Contains returns true if t is in the automaton
func (a *WeightedPAutomaton[L, S, W]) Contains(t Transition[L, S]) bool {
	_, ok := a.weights[t]
	return ok
}

// Weight returns the weight of t and whether t is in the automaton
func (a *WeightedPAutomaton[L, S, W]) Weight(t Transition[L, S]) (W, bool) {
	w, ok := a.weights[t]
	return w, ok
}

// States returns all the states that appear in a transition or were marked initial or final.
func (a *WeightedPAutomaton[L, S, W]) States() []S { return clone(a.states) }

// Size returns the number of transitions.
func (a *WeightedPAutomaton[L, S, W]) Size() int { return len(a.transitions) }

// TransitionsToFinalWeights returns, for every transition t from which a final state can be reached, the
// combination over all paths from t to a final state of the extension of the weights along the path.
// The map is kept up to date as the automaton grows and must not be modified by the caller. When called from
// within a listener, the map is only complete once the pending notifications have been delivered.
func (a *WeightedPAutomaton[L, S, W]) TransitionsToFinalWeights() map[Transition[L, S]]W {
	if a.finalWeights == nil {
		a.finalWeights = map[Transition[L, S]]W{}
		for _, s := range snapshot(a.final) {
			a.RegisterListener(&toFinalListener[L, S, W]{state: s, weight: a.one})
		}
	}
	return a.finalWeights
}

// toFinalListener propagates the weight of reaching a final state from state backwards along in-transitions.
type toFinalListener[L comparable, S comparable, W Weight[W]] struct {
	state  S
	weight W // weight of the paths from state to a final state known when the listener was created
}

func (l *toFinalListener[L, S, W]) State() S { return l.state }

func (l *toFinalListener[L, S, W]) OnOutTransitionAdded(Transition[L, S], W, *WeightedPAutomaton[L, S, W]) {}

func (l *toFinalListener[L, S, W]) OnInTransitionAdded(t Transition[L, S], w W, aut *WeightedPAutomaton[L, S, W]) {
	nw := w.Extend(l.weight)
	if old, ok := aut.finalWeights[t]; ok {
		combined := old.Combine(nw)
		if combined.Equal(old) {
			return
		}
		nw = combined
	}
	aut.finalWeights[t] = nw
	aut.RegisterListener(&toFinalListener[L, S, W]{state: t.start, weight: nw})
}

func (a *WeightedPAutomaton[L, S, W]) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "WPA %s (%d transitions)\n", a.Name, len(a.transitions))
	for _, t := range a.transitions {
		fmt.Fprintf(&b, "\t%s [%s]\n", t, a.weights[t])
	}
	return b.String()
}

// ToDot returns a representation of the automaton in the graphviz DOT language.
func (a *WeightedPAutomaton[L, S, W]) ToDot() string {
	var b strings.Builder
	ids := map[S]int{}
	b.WriteString("digraph {\n\tnode [shape=box];\n")
	for i, s := range a.states {
		ids[s] = i
		shape := "box"
		if a.isFinal[s] {
			shape = "doublecircle"
		}
		fmt.Fprintf(&b, "\t%d [label=%q, shape=%s];\n", i, fmt.Sprintf("%v", s), shape)
	}
	for _, t := range a.transitions {
		fmt.Fprintf(&b, "\t%d -> %d [label=%q];\n", ids[t.start], ids[t.target],
			fmt.Sprintf("%v : %s", t.label, a.weights[t]))
	}
	b.WriteString("}\n")
	return b.String()
}

func clone[T any](s []T) []T {
	return append([]T(nil), s...)
}

// snapshot returns a prefix of s that later appends to s cannot modify.
func snapshot[T any](s []T) []T {
	return s[:len(s):len(s)]
}
