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

// Node is a fact of the analysis: right before the statement executes, the value is relevant.
type Node = spds.Node[scene.Statement, scene.Val]

// NewNode returns the node (stmt, v)
func NewNode(stmt scene.Statement, v scene.Val) Node {
	return spds.NewNode[scene.Statement, scene.Val](stmt, v)
}

type (
	// CallState is a state of a call automaton
	CallState = spds.INode[scene.Val]
	// CallTransition is a transition of a call automaton
	CallTransition = wpds.Transition[scene.Statement, CallState]
	// FieldState is a state of a field automaton
	FieldState = spds.INode[Node]
	// FieldTransition is a transition of a field automaton
	FieldTransition = wpds.Transition[scene.Field, FieldState]
	// FieldAutomaton is the automaton tracking the access paths of a query
	FieldAutomaton = wpds.WeightedPAutomaton[scene.Field, FieldState, wpds.NoWeight]
)

// A Query is a seed of the analysis. Queries are immutable values, comparable with ==.
// The direction of a query is its dynamic type: ForwardQuery or BackwardQuery.
type Query interface {
	fmt.Stringer
	// Stmt returns the statement of the seed
	Stmt() scene.Statement
	// Var returns the value of the seed
	Var() scene.Val
	// Type returns the type of the value of the seed
	Type() scene.Type
	// AsNode returns the seed as a node
	AsNode() Node

	isQuery()
}

// ForwardQuery asks what the value defined at a statement may flow to. Forward queries are seeded at allocation
// sites, where the value holds right after the statement.
type ForwardQuery struct {
	stmt     scene.Statement
	variable scene.Val
}

// NewForwardQuery returns the forward query for v defined at stmt
func NewForwardQuery(stmt scene.Statement, v scene.Val) ForwardQuery {
	return ForwardQuery{stmt: stmt, variable: v}
}

// Stmt returns the statement of the seed
func (q ForwardQuery) Stmt() scene.Statement { return q.stmt }

// Var returns the value of the seed
func (q ForwardQuery) Var() scene.Val { return q.variable }

// Type returns the type of the value of the seed
func (q ForwardQuery) Type() scene.Type { return q.variable.Type() }

// AsNode returns the seed as a node
func (q ForwardQuery) AsNode() Node { return NewNode(q.stmt, q.variable) }

func (q ForwardQuery) String() string {
	return fmt.Sprintf("FQ[%v @ %v]", q.variable, q.stmt)
}

func (ForwardQuery) isQuery() {}

// BackwardQuery asks where the value used at a statement may have been allocated.
type BackwardQuery struct {
	stmt     scene.Statement
	variable scene.Val
}

// NewBackwardQuery returns the backward query for v right before stmt
func NewBackwardQuery(stmt scene.Statement, v scene.Val) BackwardQuery {
	return BackwardQuery{stmt: stmt, variable: v}
}

// Stmt returns the statement of the seed
func (q BackwardQuery) Stmt() scene.Statement { return q.stmt }

// Var returns the value of the seed
func (q BackwardQuery) Var() scene.Val { return q.variable }

// Type returns the type of the value of the seed
func (q BackwardQuery) Type() scene.Type { return q.variable.Type() }

// AsNode returns the seed as a node
func (q BackwardQuery) AsNode() Node { return NewNode(q.stmt, q.variable) }

func (q BackwardQuery) String() string {
	return fmt.Sprintf("BQ[%v @ %v]", q.variable, q.stmt)
}

func (BackwardQuery) isQuery() {}
