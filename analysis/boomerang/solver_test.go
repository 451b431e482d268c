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
	"context"
	"errors"
	"testing"

	"github.com/awslabs/ar-go-spds/analysis/config"
	"github.com/awslabs/ar-go-spds/analysis/scene"
	"github.com/awslabs/ar-go-spds/analysis/scene/memscene"
	"github.com/awslabs/ar-go-spds/analysis/spds"
	"github.com/awslabs/ar-go-spds/analysis/wpds"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// movedStmt is a statement reported in another method
type movedStmt struct {
	*memscene.Stmt
	method scene.Method
}

func (s movedStmt) Method() scene.Method { return s.method }

func quietOptions() Options {
	cfg := config.NewDefault()
	cfg.LogLevel = int(config.ErrLevel)
	return Options{Logger: config.NewLogGroup(cfg)}
}

func TestDataFlowPathFilter(t *testing.T) {
	b := memscene.NewBuilder()
	main := b.Method("main")
	x, y := main.Var("x"), main.Var("y")
	alloc := main.New(x, "A")
	assign := main.Assign(y, x)
	ret := main.Return(x)
	other := b.Method("other")
	other.Return()
	p, err := b.Build()
	require.NoError(t, err)

	engine := NewUnweighted(p, quietOptions())
	fq := NewForwardQuery(alloc, scene.AllocVal{Delegate: x, Site: alloc, Field: scene.EmptyField})
	s := engine.Solver(fq)
	root := s.callRoot()
	add := func(v scene.Val, stmt scene.Statement) {
		s.callAutomaton.AddTransition(wpds.NewTransition(spds.Single(v), stmt, root))
	}
	add(x, scene.Epsilon)
	add(x, movedStmt{Stmt: assign, method: other.Method()})
	add(y, assign)
	add(x, assign)

	assert.Equal(t, []Node{NewNode(assign, x)}, dataFlowPath(s))

	// ret uses x, but its transition does not reach a final state
	var retStmt scene.Statement = ret
	s.callAutomaton.AddTransition(wpds.NewTransition(spds.Single[scene.Val](x), retStmt,
		spds.Generated[scene.Val](x, retStmt)))
	assert.Equal(t, []Node{NewNode(assign, x)}, dataFlowPath(s))
}

func TestConnectPopWaitsForField(t *testing.T) {
	b := memscene.NewBuilder()
	main := b.Method("main")
	x, y, z := main.Var("x"), main.Var("y"), main.Var("z")
	main.New(x, "A")
	main.Assign(y, x)
	load := main.Load(z, y, "f")
	use := main.Call(nil, "use", z)
	main.Return()
	p, err := b.Build()
	require.NoError(t, err)

	engine := NewUnweighted(p, quietOptions())
	s := engine.Solver(NewBackwardQuery(load, y))
	curr := NewNode(load, y)
	succ := NewNode(use, z)
	s.propagate(curr, succ, pop(scene.NewField("f")))
	assert.False(t, s.IsReached(succ))
	assert.Empty(t, s.Successors(curr))
	for _, t2 := range s.callAutomaton.Transitions() {
		assert.NotEqual(t, scene.Val(z), t2.Start().Fact(), "no call context without the field")
	}

	// once f is on top of the stack of curr, succ gets the rest of the stack
	gen := spds.Generated[Node](curr, scene.NewField("f"))
	s.fieldAutomaton.AddTransition(wpds.NewTransition(spds.Single(curr), scene.NewField("f"), gen))
	s.fieldAutomaton.AddTransition(wpds.NewTransition(gen, scene.EmptyField, s.fieldRoot()))
	assert.True(t, s.IsReached(succ))
	assert.Equal(t, []Node{succ}, s.Successors(curr))
	assert.True(t, s.directlyReaches(succ))
}

func TestAccessPathLimit(t *testing.T) {
	b := memscene.NewBuilder()
	main := b.Method("main")
	x := main.Var("x")
	site := main.New(x, "A")
	main.Return()
	p, err := b.Build()
	require.NoError(t, err)

	engine := NewUnweighted(p, quietOptions())
	s := engine.Solver(NewBackwardQuery(site, x))
	n := NewNode(site, x)
	for _, f := range []string{"a", "b", "c"} {
		gen := spds.Generated[Node](n, scene.NewField(f))
		s.fieldAutomaton.AddTransition(wpds.NewTransition(spds.Single(n), scene.NewField(f), gen))
		s.fieldAutomaton.AddTransition(wpds.NewTransition(gen, scene.EmptyField, s.fieldRoot()))
	}
	cyclic := cyclicStates(s.fieldAutomaton)
	assert.Empty(t, cyclic)
	assert.Len(t, accessPaths(s, n, cyclic, 10), 4)
	assert.Len(t, accessPaths(s, n, cyclic, 2), 2)
	assert.Equal(t, "x.a", sortAccessPaths(accessPaths(s, n, cyclic, 10))[1].String())
}

func TestBudgetCheck(t *testing.T) {
	opts := Options{MaxPropagations: 2}
	bud := newBudget(context.Background(), opts)
	assert.NoError(t, bud.check())
	bud.step()
	assert.NoError(t, bud.check())
	bud.step()
	err := bud.check()
	assert.True(t, errors.Is(err, ErrBudgetExceeded))
	assert.Positive(t, bud.peak)

	tiny := newBudget(context.Background(), Options{MaxMemoryBytes: 1})
	for i := 0; i < memoryCheckInterval; i++ {
		tiny.step()
	}
	assert.True(t, errors.Is(tiny.check(), ErrBudgetExceeded))
}

func TestIsAllocationSite(t *testing.T) {
	b := memscene.NewBuilder()
	main := b.Method("main")
	x := main.Var("x")
	alloc := main.New(x, "A")
	null := main.Null(x)
	constant := main.Const(x, "1")
	call := main.Call(x, "f")
	main.Return()
	_, err := b.Build()
	require.NoError(t, err)

	plain := Options{}
	assert.True(t, plain.isAllocationSite(alloc, alloc.RightOp()))
	assert.False(t, plain.isAllocationSite(null, null.RightOp()))
	assert.False(t, plain.isAllocationSite(constant, constant.RightOp()))
	assert.False(t, plain.isAllocationSite(call, nil))

	tracking := Options{TrackNullAssignments: true, TrackConstants: true}
	assert.True(t, tracking.isAllocationSite(null, null.RightOp()))
	assert.True(t, tracking.isAllocationSite(constant, constant.RightOp()))

	nullsOnly := Options{TrackNullAssignments: true}
	assert.False(t, nullsOnly.isAllocationSite(constant, constant.RightOp()))
}
