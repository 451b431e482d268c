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

// Package staticfields contains the strategies connecting static (package-level) variables in the alias analysis.
package staticfields

import (
	"fmt"

	"github.com/awslabs/ar-go-spds/analysis/boomerang"
	"github.com/awslabs/ar-go-spds/analysis/config"
	"github.com/awslabs/ar-go-spds/analysis/scene"
)

// Ignore drops all flows through static fields
type Ignore struct{}

// HandleForward does nothing
func (Ignore) HandleForward(scene.Edge, scene.Val, scene.StaticFieldVal, map[boomerang.State]bool) {}

// HandleBackward does nothing
func (Ignore) HandleBackward(scene.Edge, scene.Val, scene.StaticFieldVal, map[boomerang.State]bool) {}

// FlowSensitive tracks a static field like a local: after a store, the static itself becomes a fact that follows
// the control flow, and enters callees and returns to callers.
type FlowSensitive struct{}

// HandleForward continues with the static after the store
func (FlowSensitive) HandleForward(store scene.Edge, _ scene.Val, staticVal scene.StaticFieldVal,
	out map[boomerang.State]bool) {
	out[boomerang.State{Node: boomerang.NewNode(store.Target, staticVal), Kind: boomerang.NormalState}] = true
}

// HandleBackward continues with the static before the load
func (FlowSensitive) HandleBackward(curr scene.Edge, _ scene.Val, staticVal scene.StaticFieldVal,
	out map[boomerang.State]bool) {
	out[boomerang.State{Node: boomerang.NewNode(curr.Target, staticVal), Kind: boomerang.NormalState}] = true
}

// Singleton treats a static field as a single cell shared by the whole program: a store reaches every load of the
// same static, in any order and in any calling context.
type Singleton struct {
	loads  map[scene.StaticFieldVal][]scene.Statement
	stores map[scene.StaticFieldVal][]scene.Statement
}

// NewSingleton indexes the static loads and stores of methods
func NewSingleton(methods []scene.Method) *Singleton {
	s := &Singleton{
		loads:  map[scene.StaticFieldVal][]scene.Statement{},
		stores: map[scene.StaticFieldVal][]scene.Statement{},
	}
	for _, m := range methods {
		for _, stmt := range m.Statements() {
			switch {
			case stmt.IsStaticFieldLoad():
				s.loads[stmt.StaticField()] = append(s.loads[stmt.StaticField()], stmt)
			case stmt.IsStaticFieldStore():
				s.stores[stmt.StaticField()] = append(s.stores[stmt.StaticField()], stmt)
			}
		}
	}
	return s
}

// HandleForward jumps to the value defined by every load of the static
func (s *Singleton) HandleForward(_ scene.Edge, _ scene.Val, staticVal scene.StaticFieldVal,
	out map[boomerang.State]bool) {
	for _, load := range s.loads[staticVal] {
		for _, t := range load.Method().ControlFlowGraph().Succs(load) {
			out[boomerang.State{Node: boomerang.NewNode(t, load.LeftOp()), Kind: boomerang.JumpState}] = true
		}
	}
}

// HandleBackward jumps to the value stored by every store of the static
func (s *Singleton) HandleBackward(_ scene.Edge, _ scene.Val, staticVal scene.StaticFieldVal,
	out map[boomerang.State]bool) {
	for _, store := range s.stores[staticVal] {
		if v := store.RightOp(); v != nil && v.IsLocal() {
			out[boomerang.State{Node: boomerang.NewNode(store, v), Kind: boomerang.JumpState}] = true
		}
	}
}

// New returns the strategy named kind, one of the config.StaticFields constants. methods are the methods of the
// program, used by the singleton strategy.
func New(kind string, methods []scene.Method) (boomerang.StaticFieldStrategy, error) {
	switch kind {
	case config.StaticFieldsIgnore, "":
		return Ignore{}, nil
	case config.StaticFieldsFlowSensitive:
		return FlowSensitive{}, nil
	case config.StaticFieldsSingleton:
		return NewSingleton(methods), nil
	default:
		return nil, fmt.Errorf("unknown static field strategy %q", kind)
	}
}
