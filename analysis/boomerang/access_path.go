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
	"sort"
	"strings"

	"github.com/awslabs/ar-go-spds/analysis/scene"
	"github.com/awslabs/ar-go-spds/analysis/spds"
	"github.com/awslabs/ar-go-spds/analysis/wpds"
	"github.com/awslabs/ar-go-spds/internal/graphutil"
)

// AccessPath is a value followed by a sequence of fields, e.g. x.f.g
type AccessPath struct {
	Base   scene.Val
	Fields []scene.Field
	// Unbounded is true when the fields go through a cycle of the field automaton, i.e. x.f.g stands for the
	// infinitely many paths x.f.g, x.f.g.g, ...
	Unbounded bool
}

func (ap AccessPath) String() string {
	var b strings.Builder
	b.WriteString(scene.Unwrap(ap.Base).String())
	for _, f := range ap.Fields {
		b.WriteString(".")
		b.WriteString(f.String())
	}
	if ap.Unbounded {
		b.WriteString("*")
	}
	return b.String()
}

// cyclicStates returns the states of the field automaton that are on a cycle
func cyclicStates(a *FieldAutomaton) map[FieldState]bool {
	succs := func(s FieldState) []FieldState {
		var res []FieldState
		for _, t := range a.TransitionsOutOf(s) {
			res = append(res, t.Target())
		}
		return res
	}
	cyclic := map[FieldState]bool{}
	for _, scc := range graphutil.StronglyConnectedComponents(a.States(), succs) {
		if len(scc) > 1 {
			for _, s := range scc {
				cyclic[s] = true
			}
			continue
		}
		for _, t := range a.TransitionsOutOf(scc[0]) {
			if t.Target() == scc[0] {
				cyclic[scc[0]] = true
			}
		}
	}
	return cyclic
}

// accessPaths enumerates at most limit access paths through which the value of n reaches the tracked object
func accessPaths[W wpds.Weight[W]](s *Solver[W], n Node, cyclic map[FieldState]bool, limit int) []AccessPath {
	var res []AccessPath
	var fields []scene.Field
	onPath := map[FieldState]bool{}
	var dfs func(st FieldState, unbounded bool)
	dfs = func(st FieldState, unbounded bool) {
		if onPath[st] {
			return
		}
		onPath[st] = true
		defer delete(onPath, st)
		for _, t := range s.fieldAutomaton.TransitionsOutOf(st) {
			if len(res) >= limit {
				return
			}
			if t.Label().IsEmpty() {
				res = append(res, AccessPath{
					Base:      n.Fact(),
					Fields:    append([]scene.Field(nil), fields...),
					Unbounded: unbounded,
				})
				continue
			}
			fields = append(fields, t.Label())
			dfs(t.Target(), unbounded || cyclic[t.Target()])
			fields = fields[:len(fields)-1]
		}
	}
	dfs(spds.Single(n), false)
	return res
}

func sortAccessPaths(aps []AccessPath) []AccessPath {
	seen := map[string]bool{}
	res := aps[:0]
	for _, ap := range aps {
		if k := ap.String(); !seen[k] {
			seen[k] = true
			res = append(res, ap)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].String() < res[j].String() })
	return res
}
