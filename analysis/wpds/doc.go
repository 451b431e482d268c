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

/*
Package wpds implements weighted pushdown automata (P-automata) that grow monotonically.

A WeightedPAutomaton is a set of labelled transitions between states, each carrying a weight
from an idempotent semiring (see Weight). Clients observe the automaton through listeners
registered on states (StateListener) or on the whole automaton (TransitionListener). Listeners
registered after some transitions have been added are first replayed every existing transition,
so the order in which listeners and transitions are added does not matter.

Notifications are delivered through a FIFO queue owned by the automaton: a listener that adds
transitions to the automaton it observes does not receive the resulting notifications until it
has returned. This keeps the stack depth bounded no matter how long the chains of derived
transitions get.

The automaton is not safe for concurrent use.
*/
package wpds
