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
	"github.com/awslabs/ar-go-spds/analysis/scene"
	"github.com/yourbasic/graph"
)

// FindAllElementaryCycles finds all elementary cycles in the graph g, self-loops included. Each cycle starts and
// ends with its node of least ID.
// This uses Donald B. Johnson's algorithm presented in
// "Finding All The Elementary Circuits of a Directed Graph", 1975
func FindAllElementaryCycles(g MethodGraph) [][]int64 {
	s := &state{}
	for k, start := range g.Keys {
		// the strongly connected component of start in the subgraph of the nodes not before start
		sub := Subgraph(g, g.Keys[k:])
		var component []int
		for _, c := range graph.StrongComponents(sub) {
			for _, v := range c {
				if int64(v) == start {
					component = c
				}
			}
		}
		if len(component) < 2 && !g.Edges[start][start] {
			continue
		}
		include := make([]int64, len(component))
		for i, v := range component {
			include[i] = int64(v)
		}
		s.blocked = map[int64]bool{}
		s.blist = map[int64]map[int64]bool{}
		s.stack = nil
		s.circuit(start, start, Subgraph(g, include))
	}
	return s.cycles
}

// Cycles returns the elementary cycles of g as sequences of methods
func Cycles(g MethodGraph) [][]scene.Method {
	var res [][]scene.Method
	for _, cycle := range FindAllElementaryCycles(g) {
		methods := make([]scene.Method, len(cycle))
		for i, id := range cycle {
			methods[i] = g.Methods[id]
		}
		res = append(res, methods)
	}
	return res
}

type state struct {
	blocked map[int64]bool
	blist   map[int64]map[int64]bool
	stack   []int64
	cycles  [][]int64
}

func (s *state) unblock(u int64) {
	s.blocked[u] = false
	for w := range s.blist[u] {
		delete(s.blist[u], w)
		if s.blocked[w] {
			s.unblock(w)
		}
	}
}

func (s *state) circuit(v int64, start int64, g MethodGraph) bool {
	found := false
	s.stack = append(s.stack, v)
	s.blocked[v] = true
	for _, w := range g.Successors(v) {
		if w == start {
			cycle := make([]int64, len(s.stack), len(s.stack)+1)
			copy(cycle, s.stack)
			s.cycles = append(s.cycles, append(cycle, w))
			found = true
		} else if !s.blocked[w] && s.circuit(w, start, g) {
			found = true
		}
	}

	if found {
		s.unblock(v)
	} else {
		for _, w := range g.Successors(v) {
			if s.blist[w] == nil {
				s.blist[w] = map[int64]bool{}
			}
			s.blist[w][v] = true
		}
	}
	s.stack = s.stack[:len(s.stack)-1]
	return found
}
