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

package graphutil

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

type adjacency map[int][]int

func (a adjacency) nodes() []int {
	var ns []int
	for n := range a {
		ns = append(ns, n)
	}
	sort.Ints(ns)
	return ns
}

func (a adjacency) succs(n int) []int { return a[n] }

// reachable returns the nodes reachable from n, n included
func (a adjacency) reachable(n int) map[int]bool {
	seen := map[int]bool{n: true}
	todo := []int{n}
	for len(todo) > 0 {
		x := todo[len(todo)-1]
		todo = todo[:len(todo)-1]
		for _, y := range a[x] {
			if !seen[y] {
				seen[y] = true
				todo = append(todo, y)
			}
		}
	}
	return seen
}

// checkComponents checks that sccs partitions the nodes of a into strongly connected sets listed
// successors first
func checkComponents(t *testing.T, a adjacency, sccs [][]int) {
	t.Helper()
	component := map[int]int{}
	for i, scc := range sccs {
		for _, x := range scc {
			_, dup := component[x]
			require.False(t, dup, "node %d in two components of %v", x, a)
			component[x] = i
		}
	}
	require.Len(t, component, len(a))
	for x := range a {
		r := a.reachable(x)
		for y := range r {
			assert.LessOrEqual(t, component[y], component[x], "%d reaches %d in %v", x, y, a)
		}
		for _, y := range sccs[component[x]] {
			assert.True(t, r[y], "%d does not reach %d in %v", x, y, a)
		}
	}
}

func randomAdjacency(r *rand.Rand, size int) adjacency {
	a := adjacency{}
	for i := 0; i < size; i++ {
		a[i] = []int{}
		for j := 0; j < 3; j++ {
			if r.Float32() < 0.7 {
				a[i] = append(a[i], r.Intn(size))
			}
		}
	}
	return a
}

func TestSCC(t *testing.T) {
	for name, a := range map[string]adjacency{
		"self-loop":    {0: {0}},
		"single":       {0: {}},
		"edge":         {0: {0, 1}, 1: {}},
		"diamond":      {0: {1, 2}, 1: {3}, 2: {1}, 3: {}},
		"back-edge":    {0: {1, 2}, 1: {3}, 2: {1, 0}, 3: {}},
		"two-cycles":   {0: {3, 1}, 1: {0}, 2: {1}, 3: {3}},
		"disconnected": {0: {1}, 1: {0}, 2: {3}, 3: {}},
	} {
		t.Run(name, func(t *testing.T) {
			checkComponents(t, a, StronglyConnectedComponents(a.nodes(), a.succs))
		})
	}
}

// TestSCCRandom compares the components with the ones gonum computes
func TestSCCRandom(t *testing.T) {
	r := rand.New(rand.NewSource(68348438))
	for _, size := range []int{10, 10, 10, 50, 50, 100} {
		a := randomAdjacency(r, size)
		sccs := StronglyConnectedComponents(a.nodes(), a.succs)
		checkComponents(t, a, sccs)

		g := simple.NewDirectedGraph()
		for _, n := range a.nodes() {
			g.AddNode(simple.Node(n))
		}
		for x, ys := range a {
			for _, y := range ys {
				if x != y {
					g.SetEdge(simple.Edge{F: simple.Node(x), T: simple.Node(y)})
				}
			}
		}
		assert.Equal(t, len(topo.TarjanSCC(g)), len(sccs))
	}
}

func TestSCCLongChain(t *testing.T) {
	const n = 200000
	a := adjacency{}
	for i := 0; i < n; i++ {
		a[i] = []int{(i + 1) % n}
	}
	sccs := StronglyConnectedComponents([]int{0}, a.succs)
	require.Len(t, sccs, 1)
	assert.Len(t, sccs[0], n)
}
