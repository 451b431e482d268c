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

package seeds

import (
	"testing"

	"github.com/awslabs/ar-go-spds/analysis/boomerang"
	"github.com/awslabs/ar-go-spds/analysis/config"
	"github.com/awslabs/ar-go-spds/analysis/scene"
	"github.com/awslabs/ar-go-spds/analysis/scene/memscene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// main: a = new A; sink(a); b = helper(a); lib(a); return
// helper(p): q = new B; sink(q); return q
// lib(p), library: r = new C; sink(r); return
// unused: u = new D; sink(u); return
func newProgram(t *testing.T) *memscene.Program {
	b := memscene.NewBuilder()
	main := b.Method("main")
	a, bv := main.Var("a"), main.Var("b")
	main.New(a, "A")
	main.Call(nil, "sink", a)
	main.Call(bv, "helper", a)
	main.Call(nil, "lib", a)
	main.Return()

	helper := b.Method("helper", "p")
	q := helper.Var("q")
	helper.New(q, "B")
	helper.Call(nil, "sink", q)
	helper.Return(q)

	lib := b.Library("lib", "p")
	r := lib.Var("r")
	lib.New(r, "C")
	lib.Call(nil, "sink", r)
	lib.Return()

	unused := b.Method("unused")
	u := unused.Var("u")
	unused.New(u, "D")
	unused.Call(nil, "sink", u)
	unused.Return()

	p, err := b.Build()
	require.NoError(t, err)
	return p
}

func quietLogger() *config.LogGroup {
	cfg := config.NewDefault()
	cfg.LogLevel = int(config.ErrLevel)
	return config.NewLogGroup(cfg)
}

func sinkArgs(p *memscene.Program) (main, helper, lib boomerang.Query) {
	m, h, l := p.MustMethod("main"), p.MustMethod("helper"), p.MustMethod("lib")
	return boomerang.NewBackwardQuery(m.Stmt(2), m.Var("a")),
		boomerang.NewBackwardQuery(h.Stmt(2), h.Var("q")),
		boomerang.NewBackwardQuery(l.Stmt(2), l.Var("r"))
}

func TestComputeSeeds(t *testing.T) {
	p := newProgram(t)
	inMain, inHelper, _ := sinkArgs(p)
	sink := FirstArgumentOf(config.CodeIdentifier{Method: "sink"})
	scope := NewAnalysisScope(p, quietLogger(), sink, sink)
	assert.Equal(t, []boomerang.Query{inMain, inHelper}, scope.ComputeSeeds())
	assert.Equal(t, 10, scope.StatementCount())

	assert.Empty(t, scope.ComputeSeeds(), "methods are visited once")
}

func TestComputeSeedsInLibrary(t *testing.T) {
	p := newProgram(t)
	inMain, inHelper, inLib := sinkArgs(p)
	scope := NewAnalysisScope(p, quietLogger(), FirstArgumentOf(config.CodeIdentifier{Method: "sink"}))
	scope.SetScanLibraryMethods(true)
	assert.Equal(t, []boomerang.Query{inMain, inHelper, inLib}, scope.ComputeSeeds())
}

func TestArgumentOf(t *testing.T) {
	p := newProgram(t)
	main := p.MustMethod("main")
	helperCall := main.Stmt(3)

	q := ArgumentOf(config.CodeIdentifier{Method: "helper"}, 0).Test(helperCall)
	require.True(t, q.IsSome())
	assert.Equal(t, boomerang.NewBackwardQuery(helperCall, main.Var("a")), q.Value())

	assert.True(t, ArgumentOf(config.CodeIdentifier{Method: "helper"}, 1).Test(helperCall).IsNone(),
		"index out of range")
	assert.True(t, ArgumentOf(config.CodeIdentifier{Method: "sink"}, 0).Test(helperCall).IsNone())
	assert.True(t, FirstArgumentOf(config.CodeIdentifier{}).Test(main.Stmt(1)).IsNone(), "not a call")
}

func TestAllocationSites(t *testing.T) {
	p := newProgram(t)
	helper := p.MustMethod("helper")
	site := helper.Stmt(1)
	scope := NewAnalysisScope(p, quietLogger(), AllocationSites(config.CodeIdentifier{Method: "helper"}))
	want := boomerang.NewForwardQuery(site,
		scene.AllocVal{Delegate: helper.Var("q"), Site: site, Field: scene.EmptyField})
	assert.Equal(t, []boomerang.Query{want}, scope.ComputeSeeds())
}

func TestFromConfig(t *testing.T) {
	cfg, err := config.Load("seeds.yaml", []byte(`
seeds:
  - kind: first-argument-of
    target:
      method: "^s.*k$"
  - kind: allocation-sites
    target:
      method: "^help"
`))
	require.NoError(t, err)
	tests, err := FromConfig(cfg.Seeds)
	require.NoError(t, err)
	require.Len(t, tests, 2)

	p := newProgram(t)
	inMain, inHelper, _ := sinkArgs(p)
	helper := p.MustMethod("helper")
	alloc := boomerang.NewForwardQuery(helper.Stmt(1),
		scene.AllocVal{Delegate: helper.Var("q"), Site: helper.Stmt(1), Field: scene.EmptyField})
	seeds := NewAnalysisScope(p, quietLogger(), tests...).ComputeSeeds()
	assert.ElementsMatch(t, []boomerang.Query{inMain, inHelper, alloc}, seeds)

	_, err = FromConfig([]config.SeedSpec{{Kind: "everything"}})
	assert.ErrorContains(t, err, "unknown seed kind")
}
