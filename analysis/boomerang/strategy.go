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
	"sort"

	"github.com/awslabs/ar-go-spds/analysis/scene"
)

// StateKind says how a State connects to the propagation
type StateKind uint8

const (
	// NormalState continues in the calling context of the current node
	NormalState StateKind = iota
	// JumpState continues in an unknown calling context
	JumpState
)

// A State is a node produced by a StaticFieldStrategy. The field stack of the current node carries over.
type State struct {
	Node Node
	Kind StateKind
}

func (s State) String() string {
	if s.Kind == JumpState {
		return fmt.Sprintf("jump%v", s.Node)
	}
	return s.Node.String()
}

// StaticFieldStrategy connects static field stores and loads into the propagation.
type StaticFieldStrategy interface {
	// HandleForward is called by forward solvers at a store of the tracked storedVal into staticVal.
	// store goes from the current statement to the store.
	HandleForward(store scene.Edge, storedVal scene.Val, staticVal scene.StaticFieldVal, out map[State]bool)
	// HandleBackward is called by backward solvers at a load of staticVal into the tracked leftOp.
	// curr goes from the current statement to the load.
	HandleBackward(curr scene.Edge, leftOp scene.Val, staticVal scene.StaticFieldVal, out map[State]bool)
}

// sortedStates returns the states of out in a deterministic order
func sortedStates(out map[State]bool) []State {
	states := make([]State, 0, len(out))
	for s, ok := range out {
		if ok {
			states = append(states, s)
		}
	}
	sort.Slice(states, func(i, j int) bool { return states[i].String() < states[j].String() })
	return states
}
