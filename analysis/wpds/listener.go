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

// A StateListener observes the transitions leaving and entering one state of an automaton.
// A transition whose weight changes is notified again with the new weight.
type StateListener[L comparable, S comparable, W Weight[W]] interface {
	// State returns the state the listener observes
	State() S
	// OnOutTransitionAdded is called for every transition t with t.Start() == State()
	OnOutTransitionAdded(t Transition[L, S], w W, aut *WeightedPAutomaton[L, S, W])
	// OnInTransitionAdded is called for every transition t with t.Target() == State()
	OnInTransitionAdded(t Transition[L, S], w W, aut *WeightedPAutomaton[L, S, W])
}

// A TransitionListener observes every transition of an automaton.
type TransitionListener[L comparable, S comparable, W Weight[W]] interface {
	OnAddedTransition(t Transition[L, S], w W, aut *WeightedPAutomaton[L, S, W])
}

// Keyed is implemented by listeners that should be registered at most once per state.
// Two listeners on the same state with equal non-nil keys are considered the same listener, and the
// second registration is ignored. The key must be comparable.
type Keyed interface {
	Key() any
}

// Listener adapts functions to the StateListener interface. A nil function ignores the corresponding
// notifications.
type Listener[L comparable, S comparable, W Weight[W]] struct {
	On  S
	ID  any // registration key, nil to always register
	Out func(t Transition[L, S], w W)
	In  func(t Transition[L, S], w W)
}

// State returns the state observed
func (l *Listener[L, S, W]) State() S { return l.On }

// Key returns the registration key of the listener
func (l *Listener[L, S, W]) Key() any { return l.ID }

// OnOutTransitionAdded calls l.Out if it is set
func (l *Listener[L, S, W]) OnOutTransitionAdded(t Transition[L, S], w W, _ *WeightedPAutomaton[L, S, W]) {
	if l.Out != nil {
		l.Out(t, w)
	}
}

// OnInTransitionAdded calls l.In if it is set
func (l *Listener[L, S, W]) OnInTransitionAdded(t Transition[L, S], w W, _ *WeightedPAutomaton[L, S, W]) {
	if l.In != nil {
		l.In(t, w)
	}
}

// TransitionFunc adapts a function to the TransitionListener interface.
type TransitionFunc[L comparable, S comparable, W Weight[W]] func(t Transition[L, S], w W)

// OnAddedTransition calls f
func (f TransitionFunc[L, S, W]) OnAddedTransition(t Transition[L, S], w W, _ *WeightedPAutomaton[L, S, W]) {
	f(t, w)
}

type registrationKey[S comparable] struct {
	state S
	key   any
}
