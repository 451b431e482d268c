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

import "fmt"

// A Transition is an edge start --label--> target of a P-automaton. Transitions are values: two transitions
// with the same start, label and target are the same transition.
type Transition[L comparable, S comparable] struct {
	start  S
	label  L
	target S
}

// NewTransition returns the transition start --label--> target
func NewTransition[L comparable, S comparable](start S, label L, target S) Transition[L, S] {
	return Transition[L, S]{start: start, label: label, target: target}
}

// Start returns the source state of the transition
func (t Transition[L, S]) Start() S { return t.start }

// Label returns the label of the transition
func (t Transition[L, S]) Label() L { return t.label }

// Target returns the target state of the transition
func (t Transition[L, S]) Target() S { return t.target }

func (t Transition[L, S]) String() string {
	return fmt.Sprintf("%v ~%v~> %v", t.start, t.label, t.target)
}
