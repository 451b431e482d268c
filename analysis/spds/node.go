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

// Package spds contains the node and state types shared by the automata of synchronized pushdown systems.
package spds

import "fmt"

// Node is a fact of the analysis: right before Stmt executes, Fact is relevant.
type Node[S comparable, F comparable] struct {
	stmt S
	fact F
}

// NewNode returns the node (stmt, fact)
func NewNode[S comparable, F comparable](stmt S, fact F) Node[S, F] {
	return Node[S, F]{stmt: stmt, fact: fact}
}

// Stmt returns the statement of the node
func (n Node[S, F]) Stmt() S { return n.stmt }

// Fact returns the fact of the node
func (n Node[S, F]) Fact() F { return n.fact }

func (n Node[S, F]) String() string {
	return fmt.Sprintf("(%v @ %v)", n.fact, n.stmt)
}

// Kind is the tag of an INode
type Kind uint8

const (
	// ConcreteKind tags states that are program facts
	ConcreteKind Kind = iota
	// GeneratedKind tags intermediate states created when pushing a symbol
	GeneratedKind
	// RootKind tags the bottom of the stack of an automaton
	RootKind
)

func (k Kind) String() string {
	switch k {
	case ConcreteKind:
		return "concrete"
	case GeneratedKind:
		return "generated"
	case RootKind:
		return "root"
	default:
		return "unknown"
	}
}

// INode is a state of an automaton. It is either a concrete state wrapping a fact, a generated state
// identified by the fact and the symbol whose push created it, or the root state of the fact that seeded the
// automaton. Generated and root states are synthetic: they never stand for a program fact.
type INode[F comparable] struct {
	kind  Kind
	fact  F
	label any
}

// Single returns the concrete state of fact
func Single[F comparable](fact F) INode[F] {
	return INode[F]{kind: ConcreteKind, fact: fact}
}

// Generated returns the synthetic state created when pushing label from fact. label must be comparable.
func Generated[F comparable](fact F, label any) INode[F] {
	return INode[F]{kind: GeneratedKind, fact: fact, label: label}
}

// Root returns the bottom state of the automaton seeded with fact
func Root[F comparable](fact F) INode[F] {
	return INode[F]{kind: RootKind, fact: fact}
}

// Kind returns the tag of the state
func (n INode[F]) Kind() Kind { return n.kind }

// Fact returns the fact of the state. For generated and root states, this is the fact they originate from.
func (n INode[F]) Fact() F { return n.fact }

// Label returns the label of generated states
func (n INode[F]) Label() any { return n.label }

// Concrete returns the fact of a concrete state, and false for synthetic states
func (n INode[F]) Concrete() (F, bool) {
	if n.kind == ConcreteKind {
		return n.fact, true
	}
	var zero F
	return zero, false
}

// IsConcrete returns true for concrete states
func (n INode[F]) IsConcrete() bool { return n.kind == ConcreteKind }

// IsGenerated returns true for generated states
func (n INode[F]) IsGenerated() bool { return n.kind == GeneratedKind }

// IsRoot returns true for root states
func (n INode[F]) IsRoot() bool { return n.kind == RootKind }

func (n INode[F]) String() string {
	switch n.kind {
	case GeneratedKind:
		return fmt.Sprintf("{%v|%v}", n.fact, n.label)
	case RootKind:
		return fmt.Sprintf("<root %v>", n.fact)
	default:
		return fmt.Sprintf("%v", n.fact)
	}
}
