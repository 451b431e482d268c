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

package ssascene_test

import (
	"context"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/awslabs/ar-go-spds/analysis/boomerang"
	"github.com/awslabs/ar-go-spds/analysis/config"
	"github.com/awslabs/ar-go-spds/analysis/scene"
	"github.com/awslabs/ar-go-spds/analysis/scene/ssascene"
	"github.com/awslabs/ar-go-spds/analysis/wpds"
	"github.com/awslabs/ar-go-spds/internal/analysistest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/callgraph/cha"
	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

const loadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedCompiledGoFiles |
	packages.NeedImports |
	packages.NeedDeps |
	packages.NeedTypes |
	packages.NeedSyntax |
	packages.NeedTypesInfo |
	packages.NeedTypesSizes

func loadPackage(t *testing.T, name string) (*ssascene.Program, *ssa.Package) {
	t.Helper()
	file := filepath.Join("testdata", "src", name, "main.go")
	pkgs, err := packages.Load(&packages.Config{Mode: loadMode}, file)
	require.NoError(t, err)
	require.Zero(t, packages.PrintErrors(pkgs))
	prog, ssaPkgs := ssautil.AllPackages(pkgs, ssa.BuilderMode(0))
	prog.Build()
	return ssascene.New(prog, cha.CallGraph(prog), ssaPkgs), ssaPkgs[0]
}

func loadMain(t *testing.T, name string) (*ssascene.Program, *ssascene.Method) {
	t.Helper()
	p, pkg := loadPackage(t, name)
	main, ok := p.Function(pkg.Func("main"))
	require.True(t, ok)
	return p, main
}

func load(t *testing.T) (*ssascene.Program, *ssascene.Method) {
	t.Helper()
	return loadMain(t, "aliasing")
}

func newEngine(p *ssascene.Program) *boomerang.Boomerang[wpds.NoWeight] {
	cfg := config.NewDefault()
	cfg.LogLevel = int(config.ErrLevel)
	return boomerang.NewUnweighted(p, boomerang.Options{
		MaxAccessPaths: config.DefaultMaxAccessPaths,
		Logger:         config.NewLogGroup(cfg),
	})
}

// find returns the statements of m satisfying pred
func find(m *ssascene.Method, pred func(s *ssascene.Stmt) bool) []*ssascene.Stmt {
	var res []*ssascene.Stmt
	for _, s := range m.Statements() {
		if st := s.(*ssascene.Stmt); pred(st) {
			res = append(res, st)
		}
	}
	return res
}

func calls(m *ssascene.Method, name string) []*ssascene.Stmt {
	return find(m, func(s *ssascene.Stmt) bool {
		return s.ContainsInvokeExpr() && s.InvokeExpr().Callee().Name() == name
	})
}

func TestControlFlow(t *testing.T) {
	p, main := load(t)
	stmts := main.Statements()
	require.NotEmpty(t, stmts)
	entry := stmts[0]
	assert.Equal(t, []scene.Statement{entry}, main.StartPoints())
	assert.Nil(t, entry.(*ssascene.Stmt).Instruction())
	assert.Empty(t, main.Preds(entry))
	require.Len(t, main.Succs(entry), 1)
	assert.Equal(t, stmts[1], main.Succs(entry)[0])

	for _, end := range main.EndPoints() {
		assert.Empty(t, main.Succs(end))
	}
	assert.True(t, main.IsApplication())
	assert.Contains(t, p.EntryPoints(), scene.Method(main))
}

func TestFieldsAndStatics(t *testing.T) {
	_, main := load(t)
	stores := find(main, func(s *ssascene.Stmt) bool {
		_, f := s.FieldAccess()
		return s.IsFieldStore() && f == scene.NewField("f")
	})
	require.Len(t, stores, 1)
	base, _ := stores[0].FieldAccess()
	alloc, ok := base.(ssascene.Local).Value().(*ssa.Alloc)
	require.True(t, ok, "a.f = n stores into the object allocated for a")
	assert.True(t, stores[0].Uses(base))
	assert.True(t, stores[0].Uses(stores[0].RightOp()))

	allocs := find(main, func(s *ssascene.Stmt) bool { return scene.IsAllocation(s) })
	assert.GreaterOrEqual(t, len(allocs), 4, "&T{}, new(int), the slice, the map and the channel")
	assert.Contains(t, allocs, mustStmt(t, main, alloc))

	staticStores := find(main, func(s *ssascene.Stmt) bool { return s.IsStaticFieldStore() })
	staticLoads := find(main, func(s *ssascene.Stmt) bool { return s.IsStaticFieldLoad() })
	require.Len(t, staticStores, 1)
	require.Len(t, staticLoads, 1)
	g := staticStores[0].StaticField()
	assert.Equal(t, g, staticLoads[0].StaticField())
	assert.True(t, strings.HasSuffix(g.Field.Name(), "global"))
	assert.Equal(t, "*command-line-arguments.T", g.Type().String())

	sends := find(main, func(s *ssascene.Stmt) bool {
		_, ok := s.Instruction().(*ssa.Send)
		return ok
	})
	require.Len(t, sends, 1)
	_, f := sends[0].FieldAccess()
	assert.Equal(t, "[*]", f.Name())

	asserts := find(main, func(s *ssascene.Stmt) bool {
		_, f := s.FieldAccess()
		return s.IsFieldStore() && f == scene.TupleField(0)
	})
	assert.Len(t, asserts, 1, "comma-ok type assertions store into the first component of the tuple")
}

func mustStmt(t *testing.T, m *ssascene.Method, v ssa.Value) *ssascene.Stmt {
	res := find(m, func(s *ssascene.Stmt) bool { return s.Instruction() == v.(ssa.Instruction) })
	require.Len(t, res, 1)
	return res[0]
}

func TestCalls(t *testing.T) {
	p, main := load(t)
	idCalls := calls(main, "id")
	require.Len(t, idCalls, 1)
	edges := p.EdgesOutOf(idCalls[0])
	require.Len(t, edges, 1)
	assert.Equal(t, "id", edges[0].Callee.Name())
	assert.Contains(t, p.EdgesInto(edges[0].Callee), edges[0])
	assert.True(t, idCalls[0].InvokeExpr().IsStatic())
	assert.Equal(t, main, idCalls[0].LeftOp().Method())

	gets := calls(main, "get")
	require.Len(t, gets, 2)
	var special, instance *ssascene.Stmt
	for _, s := range gets {
		if s.InvokeExpr().IsSpecial() {
			special = s
		} else if s.InvokeExpr().IsInstance() {
			instance = s
		}
	}
	require.NotNil(t, special)
	require.NotNil(t, instance)
	assert.Empty(t, special.InvokeExpr().Args())
	assert.NotNil(t, special.InvokeExpr().Base())
	assert.NotNil(t, instance.InvokeExpr().Base())

	// both calls reach (*T).get
	for _, s := range gets {
		edges := p.EdgesOutOf(s)
		require.Len(t, edges, 1, "%v", s)
		callee := edges[0].Callee
		require.NotNil(t, callee.Receiver())
		assert.Empty(t, callee.Parameters())
		ptr, ok := callee.Receiver().Type().(*ssascene.Type).GoType().(*types.Pointer)
		require.True(t, ok)
		assert.Equal(t, "T", ptr.Elem().(*types.Named).Obj().Name())
	}

	sinks := calls(main, "sink")
	require.Len(t, sinks, 5)
	arg, ok := sinks[0].InvokeExpr().Arg(0)
	require.True(t, ok)
	assert.True(t, arg.IsLocal())
	_, ok = sinks[0].InvokeExpr().Arg(1)
	assert.False(t, ok)
}

func TestChannelAliasing(t *testing.T) {
	p, main := load(t)
	sinks := calls(main, "sink")
	last := sinks[len(sinks)-1]
	arg, _ := last.InvokeExpr().Arg(0)

	res := newEngine(p).SolveBackward(context.Background(), boomerang.NewBackwardQuery(last, arg))
	require.False(t, res.IsTimedout())

	found := false
	for fq := range res.AllocationSites() {
		alloc, ok := fq.Stmt().(*ssascene.Stmt).Instruction().(*ssa.Alloc)
		if ok && alloc.Type().String() == "*int" {
			found = true
		}
	}
	assert.True(t, found, "r received from the channel is the int allocated for n")
}

// instructions returns the instructions of fn satisfying pred
func instructions(fn *ssa.Function, pred func(instr ssa.Instruction) bool) []ssa.Instruction {
	var res []ssa.Instruction
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			if pred(instr) {
				res = append(res, instr)
			}
		}
	}
	return res
}

func TestCommaOk(t *testing.T) {
	p, pkg := loadPackage(t, "flows")
	tuples := instructions(pkg.Func("main"), func(instr ssa.Instruction) bool {
		switch i := instr.(type) {
		case *ssa.Lookup:
			return i.CommaOk
		case *ssa.UnOp:
			return i.Op == token.ARROW && i.CommaOk
		}
		return false
	})
	require.Len(t, tuples, 2, "v, ok := m[k] and r, open := <-ch")

	for _, instr := range tuples {
		tuple := instr.(ssa.Value)
		s, ok := p.Stmt(instr)
		require.True(t, ok)
		require.True(t, s.IsFieldLoad(), "%v", s)
		_, f := s.FieldAccess()
		assert.Equal(t, "[*]", f.Name(), "the tuple holds the element")
		assert.Equal(t, tuple, s.LeftOp().(ssascene.Local).Value())

		extracts := 0
		for _, ref := range *tuple.Referrers() {
			e, ok := ref.(*ssa.Extract)
			if !ok {
				continue
			}
			extracts++
			es, ok := p.Stmt(e)
			require.True(t, ok)
			if e.Index == 0 {
				require.True(t, es.IsAssign(), "%v", es)
				assert.Equal(t, tuple, es.RightOp().(ssascene.Local).Value())
			} else {
				assert.False(t, es.IsAssign() || es.IsFieldLoad(), "the boolean of %v is not a pointer", es)
			}
		}
		assert.Equal(t, 2, extracts)
	}
}

func TestClosures(t *testing.T) {
	p, pkg := loadPackage(t, "flows")
	main, ok := p.Function(pkg.Func("main"))
	require.True(t, ok)
	closures := instructions(pkg.Func("main"), func(instr ssa.Instruction) bool {
		_, ok := instr.(*ssa.MakeClosure)
		return ok
	})
	require.Len(t, closures, 2)

	for _, instr := range closures {
		mc := instr.(*ssa.MakeClosure)
		fn := mc.Fn.(*ssa.Function)
		require.Len(t, fn.FreeVars, 1)
		s, ok := p.Stmt(mc)
		require.True(t, ok)
		assert.True(t, scene.IsAllocation(s))

		// the binding is stored in the closure right after its allocation
		succs := main.Succs(s)
		require.Len(t, succs, 1)
		store := succs[0].(*ssascene.Stmt)
		require.True(t, store.IsFieldStore(), "%v", store)
		base, f := store.FieldAccess()
		assert.Equal(t, s.LeftOp(), base)
		assert.Equal(t, fn.Name()+"."+fn.FreeVars[0].Name(), f.Name())
		assert.Equal(t, mc.Bindings[0], store.RightOp().(ssascene.Local).Value())
		assert.Equal(t, mc, store.Instruction())
		assert.True(t, strings.Contains(store.String(), f.Name()))

		// and loaded from the closure when the function starts
		closure, ok := p.Function(fn)
		require.True(t, ok)
		recv, ok := closure.Receiver().(ssascene.Closure)
		require.True(t, ok)
		assert.True(t, recv.IsLocal())
		assert.Empty(t, closure.Parameters())
		entryLoad := closure.Statements()[1].(*ssascene.Stmt)
		require.True(t, entryLoad.IsFieldLoad(), "%v", entryLoad)
		base, lf := entryLoad.FieldAccess()
		assert.Equal(t, scene.Val(recv), base)
		assert.Equal(t, f, lf)
		assert.Equal(t, ssa.Value(fn.FreeVars[0]), entryLoad.LeftOp().(ssascene.Local).Value())
		assert.Equal(t, closure.Statements()[0], closure.Preds(entryLoad)[0])
	}

	// the function value is the receiver of the dynamic call
	call, ok := p.Function(pkg.Func("call"))
	require.True(t, ok)
	dynamic := calls(call, "f")
	require.Len(t, dynamic, 1)
	ie := dynamic[0].InvokeExpr()
	assert.True(t, ie.IsStatic())
	assert.Equal(t, call.Parameters()[0], ie.Base())
	edges := p.EdgesOutOf(dynamic[0])
	require.NotEmpty(t, edges)
	for _, e := range edges {
		if e.Callee.Receiver() != nil {
			_, ok := e.Callee.Receiver().(ssascene.Closure)
			assert.True(t, ok, "%v", e.Callee)
		}
	}
}

func TestAddressAsValue(t *testing.T) {
	p, pkg := loadPackage(t, "flows")
	main, ok := p.Function(pkg.Func("main"))
	require.True(t, ok)
	passed := instructions(pkg.Func("main"), func(instr ssa.Instruction) bool {
		fa, ok := instr.(*ssa.FieldAddr)
		if !ok {
			return false
		}
		for _, ref := range *fa.Referrers() {
			if _, ok := ref.(*ssa.Call); ok {
				return true
			}
		}
		return false
	})
	require.Len(t, passed, 1, "point(&pair.left)")
	fa := passed[0].(*ssa.FieldAddr)
	s, ok := p.Stmt(fa)
	require.True(t, ok)
	require.True(t, s.IsAssign(), "&pair.left is pair")
	assert.Equal(t, fa.X, s.RightOp().(ssascene.Local).Value())

	fields := map[string]bool{}
	for _, ld := range find(main, func(s *ssascene.Stmt) bool { return s.IsFieldLoad() }) {
		base, f := ld.FieldAccess()
		if l, ok := base.(ssascene.Local); ok && l.Value() == fa.X {
			fields[f.Name()] = true
		}
	}
	assert.Equal(t, map[string]bool{"*": true, "right": true}, fields, "left is the content of pairs")
}

func TestStructCopy(t *testing.T) {
	_, main := loadMain(t, "flows")
	stores := find(main, func(s *ssascene.Stmt) bool {
		_, ok := s.RightOp().(ssascene.Temp)
		return s.IsFieldStore() && ok
	})
	fields := map[string]bool{}
	for _, st := range stores {
		_, f := st.FieldAccess()
		fields[f.Name()] = true
		tmp := st.RightOp()
		loads := main.Preds(st)
		require.Len(t, loads, 1)
		ld := loads[0].(*ssascene.Stmt)
		require.True(t, ld.IsFieldLoad())
		_, lf := ld.FieldAccess()
		assert.Equal(t, tmp, ld.LeftOp())
		assert.Equal(t, f, lf)
	}
	assert.Equal(t, map[string]bool{"*": true, "right": true}, fields, "dup = *pair copies both fields")
}

// markerLine returns the position of the line of file containing marker
func markerLine(t *testing.T, file string, marker string) analysistest.LPos {
	t.Helper()
	content, err := os.ReadFile(file)
	require.NoError(t, err)
	for i, line := range strings.Split(string(content), "\n") {
		if strings.Contains(line, marker) {
			return analysistest.LPos{Filename: filepath.Base(file), Line: i + 1}
		}
	}
	t.Fatalf("%s not found in %s", marker, file)
	return analysistest.LPos{}
}

func TestFlows(t *testing.T) {
	p, main := loadMain(t, "flows")
	dir := filepath.Join("testdata", "src", "flows")
	expected, err := analysistest.GetExpectedAllocations(dir)
	require.NoError(t, err)

	engine := newEngine(p)
	found := map[analysistest.LPos]map[analysistest.LPos]bool{}
	for _, s := range calls(main, "sink") {
		arg, ok := s.InvokeExpr().Arg(0)
		require.True(t, ok)
		res := engine.SolveBackward(context.Background(), boomerang.NewBackwardQuery(s, arg))
		require.False(t, res.IsTimedout(), "%v timed out", s)
		lines := map[analysistest.LPos]bool{}
		for fq := range res.AllocationSites() {
			lines[analysistest.RemoveColumn(fq.Stmt().(*ssascene.Stmt).Position())] = true
		}
		found[analysistest.RemoveColumn(s.Position())] = lines
	}
	require.Len(t, found, len(expected))
	for query, allocs := range expected {
		require.Contains(t, found, query)
		for alloc := range allocs {
			assert.True(t, found[query][alloc], "allocation at %s not found for query at %s", alloc, query)
		}
	}

	// the address of pair.left does not make pair.right point to what is stored through it
	pointed := markerLine(t, filepath.Join(dir, "main.go"), "@Alloc(pointed)")
	right := markerLine(t, filepath.Join(dir, "main.go"), "@Alloc(right)")
	for query, allocs := range expected {
		if allocs[right] {
			assert.False(t, found[query][pointed], "query at %s", query)
		}
	}
}
