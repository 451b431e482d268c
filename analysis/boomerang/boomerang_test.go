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

package boomerang_test

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/awslabs/ar-go-spds/analysis/boomerang"
	"github.com/awslabs/ar-go-spds/analysis/boomerang/staticfields"
	"github.com/awslabs/ar-go-spds/analysis/config"
	"github.com/awslabs/ar-go-spds/analysis/scene"
	"github.com/awslabs/ar-go-spds/analysis/scene/memscene"
	"github.com/awslabs/ar-go-spds/analysis/wpds"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func loadProgram(t *testing.T, name string) *memscene.Program {
	t.Helper()
	p, err := memscene.LoadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return p
}

func testOptions() boomerang.Options {
	cfg := config.NewDefault()
	cfg.LogLevel = int(config.ErrLevel)
	opts := boomerang.DefaultOptions()
	opts.Logger = config.NewLogGroup(cfg)
	return opts
}

func newEngine(p *memscene.Program, opts boomerang.Options) *boomerang.Boomerang[wpds.NoWeight] {
	return boomerang.NewUnweighted(p, opts)
}

func alloc(m *memscene.Method, site int, v string, field scene.Field) boomerang.ForwardQuery {
	s := m.Stmt(site)
	return boomerang.NewForwardQuery(s, scene.AllocVal{Delegate: m.Var(v), Site: s, Field: field})
}

func bq(m *memscene.Method, stmt int, v string) boomerang.BackwardQuery {
	return boomerang.NewBackwardQuery(m.Stmt(stmt), m.Var(v))
}

func keys(allocs map[boomerang.ForwardQuery]boomerang.Context) []boomerang.ForwardQuery {
	res := make([]boomerang.ForwardQuery, 0, len(allocs))
	for fq := range allocs {
		res = append(res, fq)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].String() < res[j].String() })
	return res
}

func names[T interface{ String() string }](xs []T) []string {
	res := make([]string, len(xs))
	for i, x := range xs {
		res[i] = x.String()
	}
	return res
}

// x = new A; y = x; z = y.f: z is the zero value of the field f of the object allocated at 1
func TestFieldLoadOfFreshObject(t *testing.T) {
	p := loadProgram(t, "fields.yaml")
	main := p.MustMethod("main")
	engine := newEngine(p, testOptions())

	res := engine.SolveBackward(context.Background(), bq(main, 4, "z"))
	require.False(t, res.IsTimedout())
	require.NoError(t, res.Err())
	assert.Equal(t, []boomerang.ForwardQuery{alloc(main, 1, "x", scene.NewField("f"))}, keys(res.AllocationSites()))
	assert.False(t, res.IsEmpty())

	aliases := names(res.AllAliasesAt(main.Stmt(3)))
	assert.Subset(t, aliases, []string{"x.f", "y.f"})

	ctx := res.AllocationSites()[alloc(main, 1, "x", scene.NewField("f"))]
	assert.Equal(t, boomerang.NewNode(main.Stmt(4), main.Var("z")), ctx.Node)
	require.NotEmpty(t, ctx.Path)
	assert.Equal(t, ctx.Node, ctx.Path[len(ctx.Path)-1])
	assert.Empty(t, ctx.CallStack)
}

func TestAliases(t *testing.T) {
	p := loadProgram(t, "fields.yaml")
	main := p.MustMethod("main")
	engine := newEngine(p, testOptions())

	res := engine.SolveBackward(context.Background(), bq(main, 3, "y"))
	assert.Equal(t, []boomerang.ForwardQuery{alloc(main, 1, "x", scene.EmptyField)}, keys(res.AllocationSites()))
	assert.True(t, res.Aliases(bq(main, 3, "x")))
	assert.True(t, res.Aliases(bq(main, 3, "y")))
	assert.False(t, res.Aliases(bq(main, 3, "z")), "z is not defined yet")
	assert.False(t, res.Aliases(bq(main, 2, "y")), "y is not defined yet")
	assert.ElementsMatch(t,
		[]boomerang.Node{boomerang.NewNode(main.Stmt(2), main.Var("x")), boomerang.NewNode(main.Stmt(3), main.Var("y"))},
		res.DataFlowPath(alloc(main, 1, "x", scene.EmptyField)))
	assert.Nil(t, res.DataFlowPath(alloc(main, 4, "z", scene.EmptyField)))
	assert.True(t, res.PropagationTypes()[main.Var("x").Type()])
	assert.Equal(t, []string{"x", "y"}, names(res.AllAliases()))
}

func TestResultsAreMonotone(t *testing.T) {
	p := loadProgram(t, "fields.yaml")
	main := p.MustMethod("main")
	engine := newEngine(p, testOptions())
	ctx := context.Background()

	r2 := engine.SolveBackward(ctx, bq(main, 3, "y"))
	before := keys(r2.AllocationSites())
	r1 := engine.SolveBackward(ctx, bq(main, 4, "z"))
	assert.Len(t, r1.AllocationSites(), 1)
	assert.Equal(t, before, keys(r2.AllocationSites()))

	// solving the same query again reuses the solvers
	solvers := len(engine.Solvers())
	again := engine.SolveBackward(ctx, bq(main, 3, "y"))
	assert.Equal(t, before, keys(again.AllocationSites()))
	assert.Len(t, engine.Solvers(), solvers)

	fresh := newEngine(p, testOptions()).SolveBackward(ctx, bq(main, 3, "y"))
	assert.Equal(t, before, keys(fresh.AllocationSites()))
}

func TestWorklistOrderDoesNotChangeResults(t *testing.T) {
	for _, file := range []string{"fields.yaml", "branches.yaml", "recursion.yaml", "store.yaml", "list.yaml"} {
		t.Run(file, func(t *testing.T) {
			p := loadProgram(t, file)
			main := p.MustMethod("main")
			fifo := testOptions()
			lifo := testOptions()
			lifo.DepthFirst = true
			e1, e2 := newEngine(p, fifo), newEngine(p, lifo)
			for _, s := range main.Statements() {
				for _, v := range []string{"x", "z", "b", "p", "c"} {
					if main.Var(v) == nil || !s.Uses(main.Var(v)) {
						continue
					}
					q := boomerang.NewBackwardQuery(s, main.Var(v))
					r1 := e1.SolveBackward(context.Background(), q)
					r2 := e2.SolveBackward(context.Background(), q)
					assert.Equal(t, keys(r1.AllocationSites()), keys(r2.AllocationSites()), "%v", q)
					s1, _ := e1.Lookup(q)
					s2, _ := e2.Lookup(q)
					assert.ElementsMatch(t, s1.ReachedNodes(), s2.ReachedNodes(), "%v", q)
				}
			}
		})
	}
}

func TestPhi(t *testing.T) {
	p := loadProgram(t, "branches.yaml")
	main := p.MustMethod("main")
	res := newEngine(p, testOptions()).SolveBackward(context.Background(), bq(main, 6, "x"))
	assert.Equal(t,
		[]boomerang.ForwardQuery{alloc(main, 2, "x1", scene.EmptyField), alloc(main, 4, "x2", scene.EmptyField)},
		keys(res.AllocationSites()))
	assert.True(t, res.Aliases(bq(main, 6, "x")))
	assert.ElementsMatch(t, []scene.Type{main.Var("x1").Type(), main.Var("x2").Type(), main.Var("x").Type()},
		typeList(res.PropagationTypes()))
}

func typeList(types map[scene.Type]bool) []scene.Type {
	var res []scene.Type
	for t := range types {
		res = append(res, t)
	}
	return res
}

func TestCallAndReturn(t *testing.T) {
	p := loadProgram(t, "calls.yaml")
	main := p.MustMethod("main")
	engine := newEngine(p, testOptions())
	res := engine.SolveBackward(context.Background(), bq(main, 3, "b"))
	want := alloc(main, 1, "a", scene.EmptyField)
	assert.Equal(t, []boomerang.ForwardQuery{want}, keys(res.AllocationSites()))

	fwd := engine.SolveForward(context.Background(), want)
	require.False(t, fwd.IsTimedout())
	reached := fwd.Reached()
	assert.Contains(t, reached[main.Stmt(3)], scene.Val(main.Var("a")))
	assert.Contains(t, reached[main.Stmt(3)], scene.Val(main.Var("b")))
	assert.ElementsMatch(t, []scene.Method{main, p.MustMethod("id")}, fwd.VisitedMethods())
	assert.Contains(t, fwd.DataFlowPath(), boomerang.NewNode(main.Stmt(2), main.Var("a")))
}

func TestReceiverFromUnknownContext(t *testing.T) {
	p := loadProgram(t, "calls.yaml")
	main := p.MustMethod("main")
	get := p.MustMethod("B.get")
	engine := newEngine(p, testOptions())
	res := engine.SolveBackward(context.Background(), bq(get, 1, "this"))
	want := alloc(main, 5, "r", scene.EmptyField)
	assert.Equal(t, []boomerang.ForwardQuery{want}, keys(res.AllocationSites()))

	fwd := engine.SolveForward(context.Background(), want)
	assert.Equal(t, map[scene.Statement]scene.Val{main.Stmt(6): main.Var("r")}, fwd.InvokedMethodOnInstance())
}

func TestStaticFieldStrategies(t *testing.T) {
	p := loadProgram(t, "calls.yaml")
	main := p.MustMethod("main")
	get := p.MustMethod("B.get")
	want := []boomerang.ForwardQuery{alloc(main, 1, "a", scene.EmptyField)}

	strategies := map[string]boomerang.StaticFieldStrategy{
		"nil":            nil,
		"ignore":         staticfields.Ignore{},
		"flow-sensitive": staticfields.FlowSensitive{},
		"singleton":      staticfields.NewSingleton(p.Methods()),
	}
	for name, strategy := range strategies {
		t.Run(name, func(t *testing.T) {
			opts := testOptions()
			opts.StaticFieldStrategy = strategy
			engine := newEngine(p, opts)
			res := engine.SolveBackward(context.Background(), bq(main, 6, "c"))
			ret := engine.SolveBackward(context.Background(), bq(main, 7, "d"))
			if name == "nil" || name == "ignore" {
				assert.True(t, res.IsEmpty())
				assert.True(t, ret.IsEmpty())
				return
			}
			assert.Equal(t, want, keys(res.AllocationSites()))
			assert.Equal(t, want, keys(ret.AllocationSites()))

			fwd := engine.SolveForward(context.Background(), want[0])
			assert.Contains(t, fwd.FieldWrites(), boomerang.FieldWrite{
				Stmt:   get.Stmt(1),
				Base:   get.Var("q"),
				Field:  scene.NewField("f"),
				Stored: get.Var("this"),
			})
			assert.Contains(t, fwd.VisitedMethods(), scene.Method(get))
		})
	}
}

func TestStoreImportsAliases(t *testing.T) {
	p := loadProgram(t, "store.yaml")
	main := p.MustMethod("main")
	engine := newEngine(p, testOptions())
	res := engine.SolveBackward(context.Background(), bq(main, 6, "p"))
	assert.Contains(t, keys(res.AllocationSites()), alloc(main, 3, "o", scene.EmptyField))
	assert.NotContains(t, keys(res.AllocationSites()), alloc(main, 1, "a", scene.EmptyField))

	fwd := engine.SolveForward(context.Background(), alloc(main, 3, "o", scene.EmptyField))
	if diff := cmp.Diff([]string{"a.f", "b.f", "o"}, names(fwd.AccessPaths(main.Stmt(5)))); diff != "" {
		t.Errorf("access paths before 5 (-want +got):\n%s", diff)
	}
	assert.Contains(t, names(fwd.AccessPaths(main.Stmt(6))), "p")
}

func TestRecursion(t *testing.T) {
	p := loadProgram(t, "recursion.yaml")
	main := p.MustMethod("main")
	res := newEngine(p, testOptions()).SolveBackward(context.Background(), bq(main, 3, "b"))
	require.False(t, res.IsTimedout())
	assert.Equal(t, []boomerang.ForwardQuery{alloc(main, 1, "a", scene.EmptyField)}, keys(res.AllocationSites()))
}

func TestUnboundedAccessPaths(t *testing.T) {
	p := loadProgram(t, "list.yaml")
	main := p.MustMethod("main")
	fwd := newEngine(p, testOptions()).SolveForward(context.Background(), alloc(main, 1, "h", scene.EmptyField))
	require.False(t, fwd.IsTimedout())
	aps := names(fwd.AccessPaths(main.Stmt(7)))
	assert.Contains(t, aps, "h")
	assert.Contains(t, aps, "c.next*")
}

func TestTupleReturns(t *testing.T) {
	p := loadProgram(t, "tuples.yaml")
	main := p.MustMethod("main")
	fwd := newEngine(p, testOptions()).SolveForward(context.Background(), alloc(main, 1, "a", scene.EmptyField))
	assert.Equal(t, []string{"a", "t.#1"}, names(fwd.AccessPaths(main.Stmt(3))))
}

func TestAllocationOptions(t *testing.T) {
	p := loadProgram(t, "constants.yaml")
	main := p.MustMethod("main")
	ctx := context.Background()

	plain := newEngine(p, testOptions())
	for _, v := range []string{"x", "c", "u"} {
		assert.True(t, plain.SolveBackward(ctx, bq(main, 4, v)).IsEmpty(), v)
	}

	opts := testOptions()
	opts.TrackNullAssignments = true
	opts.TrackConstants = true
	opts.AllocationAtUnresolvedCalls = true
	engine := newEngine(p, opts)
	for i, v := range []string{"x", "c", "u"} {
		res := engine.SolveBackward(ctx, bq(main, 4, v))
		assert.Equal(t, []boomerang.ForwardQuery{alloc(main, i+1, v, scene.EmptyField)}, keys(res.AllocationSites()))
	}
}

func TestAllocationSitesAreExtractedOnce(t *testing.T) {
	p := loadProgram(t, "branches.yaml")
	main := p.MustMethod("main")
	engine := newEngine(p, testOptions())
	q := bq(main, 6, "x")
	res := engine.SolveBackward(context.Background(), q)
	first := res.AllocationSites()
	// solving forward again extends the solvers the results listen to
	for fq := range first {
		engine.SolveForward(context.Background(), fq)
	}
	assert.Equal(t, keys(first), keys(res.AllocationSites()))
	assert.Equal(t, first, res.AllocationSites())
}

func TestBudget(t *testing.T) {
	p := loadProgram(t, "fields.yaml")
	main := p.MustMethod("main")
	q := bq(main, 4, "z")
	want := keys(newEngine(p, testOptions()).SolveBackward(context.Background(), q).AllocationSites())

	stats := boomerang.NewSimpleStats()
	opts := testOptions()
	opts.MaxPropagations = 1
	opts.Stats = stats
	engine := newEngine(p, opts)
	res := engine.SolveBackward(context.Background(), q)
	require.True(t, res.IsTimedout())
	assert.True(t, errors.Is(res.Err(), boomerang.ErrBudgetExceeded))
	s, ok := engine.Lookup(q)
	require.True(t, ok)
	assert.True(t, s.IsTimedout())

	// each call resumes the pending work
	for i := 0; i < 1000 && res.IsTimedout(); i++ {
		res = engine.SolveBackward(context.Background(), q)
	}
	require.False(t, res.IsTimedout())
	assert.False(t, s.IsTimedout())
	assert.Equal(t, want, keys(res.AllocationSites()))
	assert.GreaterOrEqual(t, stats.Timeouts(), 1)
	_, backward := stats.Queries()
	assert.Equal(t, stats.Timeouts()+1, backward)
}

func TestCancelledContext(t *testing.T) {
	p := loadProgram(t, "fields.yaml")
	main := p.MustMethod("main")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := newEngine(p, testOptions()).SolveBackward(ctx, bq(main, 4, "z"))
	assert.True(t, res.IsTimedout())
	assert.True(t, errors.Is(res.Err(), boomerang.ErrBudgetExceeded))
	assert.True(t, errors.Is(res.Err(), context.Canceled))
	assert.True(t, res.IsEmpty())
}

type panickingStats struct{}

func (panickingStats) Terminated(boomerang.Query, boomerang.Results) { panic("broken sink") }

func TestStatsSinkFailureIsContained(t *testing.T) {
	p := loadProgram(t, "fields.yaml")
	main := p.MustMethod("main")
	opts := testOptions()
	opts.Stats = panickingStats{}
	engine := newEngine(p, opts)
	var res boomerang.Results
	assert.NotPanics(t, func() { res = engine.Solve(context.Background(), bq(main, 3, "y")) })
	require.IsType(t, &boomerang.BackwardResults[wpds.NoWeight]{}, res)
	assert.Len(t, res.(*boomerang.BackwardResults[wpds.NoWeight]).AllocationSites(), 1)
}

func TestSimpleStats(t *testing.T) {
	p := loadProgram(t, "calls.yaml")
	main := p.MustMethod("main")
	stats := boomerang.NewSimpleStats()
	opts := testOptions()
	opts.Stats = stats
	engine := newEngine(p, opts)
	engine.Solve(context.Background(), bq(main, 3, "b"))
	engine.Solve(context.Background(), alloc(main, 1, "a", scene.EmptyField))
	forward, backward := stats.Queries()
	assert.Equal(t, 1, forward)
	assert.Equal(t, 1, backward)
	assert.Equal(t, 0, stats.Timeouts())
	assert.Contains(t, stats.String(), "1 forward, 1 backward queries, 0 timeouts")
}

func TestWeightedEngine(t *testing.T) {
	p := loadProgram(t, "calls.yaml")
	main := p.MustMethod("main")
	labels := boomerang.StatementLabels{Label: func(s scene.Statement, _ scene.Val) []string {
		if s.ContainsInvokeExpr() && s.InvokeExpr().Callee().Name() == "id" {
			return []string{"id"}
		}
		return nil
	}}
	engine := boomerang.New[wpds.LabelSet](p, labels, testOptions())
	fwd := engine.SolveForward(context.Background(), alloc(main, 1, "a", scene.EmptyField))
	reached := fwd.Reached()
	require.Contains(t, reached[main.Stmt(3)], scene.Val(main.Var("b")))
	assert.True(t, reached[main.Stmt(3)][main.Var("b")].Contains("id"))
	require.Contains(t, reached[main.Stmt(2)], scene.Val(main.Var("a")))
	assert.False(t, reached[main.Stmt(2)][main.Var("a")].Contains("id"))
}

func TestConcurrentQueries(t *testing.T) {
	defer goleak.VerifyNone(t)
	p := loadProgram(t, "calls.yaml")
	main := p.MustMethod("main")
	opts := testOptions()
	opts.StaticFieldStrategy = staticfields.FlowSensitive{}
	engine := newEngine(p, opts)
	queries := []boomerang.BackwardQuery{bq(main, 3, "b"), bq(main, 6, "c"), bq(main, 7, "d")}
	want := []boomerang.ForwardQuery{alloc(main, 1, "a", scene.EmptyField)}

	solvers := make([]*boomerang.Solver[wpds.NoWeight], 16)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q := queries[i%len(queries)]
			res := engine.SolveBackward(context.Background(), q)
			assert.Equal(t, want, keys(res.AllocationSites()), "%v", q)
			solvers[i] = engine.Solver(queries[0])
		}(i)
	}
	wg.Wait()
	for _, s := range solvers {
		assert.Same(t, solvers[0], s)
	}
}

func TestSolverSeeding(t *testing.T) {
	p := loadProgram(t, "fields.yaml")
	main := p.MustMethod("main")
	engine := newEngine(p, testOptions())
	q := bq(main, 3, "y")
	_, ok := engine.Lookup(q)
	assert.False(t, ok)
	s := engine.Solver(q)
	assert.Equal(t, boomerang.Query(q), s.Query())
	assert.True(t, s.IsReached(q.AsNode()))
	assert.Equal(t, []boomerang.Node{q.AsNode()}, s.ReachedNodes())
	assert.Equal(t, 1, s.CallAutomaton().Size())
	assert.Equal(t, 1, s.FieldAutomaton().Size())
	assert.Same(t, s, engine.Solver(q))
}
