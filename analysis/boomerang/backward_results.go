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
	"sort"
	"time"

	"github.com/awslabs/ar-go-spds/analysis/scene"
	"github.com/awslabs/ar-go-spds/analysis/wpds"
)

// BackwardResults are the results of a backward query. The allocation sites are extracted from the forward
// solvers of the engine the first time they are needed, and kept up to date by later solve calls.
type BackwardResults[W wpds.Weight[W]] struct {
	engine *Boomerang[W]
	solver *Solver[W]
	query  BackwardQuery
	run    run
	allocs map[ForwardQuery]Context // nil until extracted
}

func newBackwardResults[W wpds.Weight[W]](engine *Boomerang[W], s *Solver[W], r run) *BackwardResults[W] {
	return &BackwardResults[W]{
		engine: engine,
		solver: s,
		query:  s.query.(BackwardQuery),
		run:    r,
	}
}

// Query returns the query of the results
func (r *BackwardResults[W]) Query() Query { return r.query }

// IsTimedout returns true if the solve call producing the results exhausted its budget
func (r *BackwardResults[W]) IsTimedout() bool { return r.run.err != nil }

// Err returns the budget error of the solve call producing the results, wrapping ErrBudgetExceeded, or nil
func (r *BackwardResults[W]) Err() error { return r.run.err }

// AnalysisTime returns the duration of the solve call producing the results
func (r *BackwardResults[W]) AnalysisTime() time.Duration { return r.run.elapsed }

// MaxMemory returns the peak heap in use during the solve call, in bytes
func (r *BackwardResults[W]) MaxMemory() uint64 { return r.run.peak }

// AllocationSites returns the forward queries of the allocation sites whose value reaches the query directly,
// each with the context explaining how.
func (r *BackwardResults[W]) AllocationSites() map[ForwardQuery]Context {
	r.engine.driveMu.Lock()
	defer r.engine.driveMu.Unlock()
	res := make(map[ForwardQuery]Context, len(r.allocationSites()))
	for fq, c := range r.allocationSites() {
		res[fq] = c
	}
	return res
}

// IsEmpty returns true if no allocation site was found
func (r *BackwardResults[W]) IsEmpty() bool {
	r.engine.driveMu.Lock()
	defer r.engine.driveMu.Unlock()
	return len(r.allocationSites()) == 0
}

// allocationSites extracts the allocation sites: a forward solver is an allocation site of the query when its field
// automaton has the transition seed --{}--> root, with seed the node of the query. Forward solvers created by later
// solve calls are observed too. Must be called with the drive lock held.
func (r *BackwardResults[W]) allocationSites() map[ForwardQuery]Context {
	if r.allocs != nil {
		return r.allocs
	}
	r.allocs = map[ForwardQuery]Context{}
	seed := r.query.AsNode()
	r.engine.onForwardSolver(func(fs *Solver[W]) {
		fq := fs.query.(ForwardQuery)
		fs.fieldAutomaton.RegisterListener(&wpds.Listener[scene.Field, FieldState, wpds.NoWeight]{
			On: fs.fieldRoot(),
			ID: r,
			In: func(t FieldTransition, _ wpds.NoWeight) {
				n, ok := t.Start().Concrete()
				if !ok || n != seed || !t.Label().IsEmpty() {
					return
				}
				if _, dup := r.allocs[fq]; dup {
					panic(fmt.Sprintf("allocation site %v extracted twice for %v", fq, r.query))
				}
				r.allocs[fq] = newContext(fs, fq, seed)
			},
		})
	})
	return r.allocs
}

// sortedAllocations returns the allocation sites in a deterministic order. Must be called with the drive lock held.
func (r *BackwardResults[W]) sortedAllocations() []*Solver[W] {
	var solvers []*Solver[W]
	for fq := range r.allocationSites() {
		if s, ok := r.engine.solvers[fq]; ok {
			solvers = append(solvers, s)
		}
	}
	sort.Slice(solvers, func(i, j int) bool { return solvers[i].query.String() < solvers[j].query.String() })
	return solvers
}

// Aliases returns true if the value of el, right before its statement, points to an object allocated at one of
// the allocation sites of the query.
func (r *BackwardResults[W]) Aliases(el Query) bool {
	r.engine.driveMu.Lock()
	defer r.engine.driveMu.Unlock()
	n := el.AsNode()
	for _, fs := range r.sortedAllocations() {
		if fs.directlyReaches(n) {
			return true
		}
	}
	return false
}

// PropagationTypes returns the types of the non-static values the query went through
func (r *BackwardResults[W]) PropagationTypes() map[scene.Type]bool {
	r.engine.driveMu.Lock()
	defer r.engine.driveMu.Unlock()
	types := map[scene.Type]bool{}
	for _, t := range r.solver.callAutomaton.Transitions() {
		v := t.Start().Fact()
		if v == nil || v.IsStatic() || v.Type() == nil {
			continue
		}
		types[v.Type()] = true
	}
	return types
}

// DataFlowPath returns the nodes where the value tracked by the forward solver of fq is used, or nil if fq has
// no solver. Each node keeps the value used at its statement.
func (r *BackwardResults[W]) DataFlowPath(fq ForwardQuery) []Node {
	r.engine.driveMu.Lock()
	defer r.engine.driveMu.Unlock()
	s, ok := r.engine.solvers[fq]
	if !ok {
		return nil
	}
	return dataFlowPath(s)
}

// AllAliasesAt returns the access paths pointing to the objects allocated at the allocation sites of the query,
// right before stmt.
//
// Deprecated: use AllocationSites and ForwardResults.AccessPaths.
func (r *BackwardResults[W]) AllAliasesAt(stmt scene.Statement) []AccessPath {
	r.engine.driveMu.Lock()
	defer r.engine.driveMu.Unlock()
	var aps []AccessPath
	for _, fs := range r.sortedAllocations() {
		cyclic := cyclicStates(fs.fieldAutomaton)
		for _, n := range fs.reachedOrder {
			if n.Stmt() == stmt {
				aps = append(aps, accessPaths(fs, n, cyclic, r.engine.options.MaxAccessPaths)...)
			}
		}
	}
	return sortAccessPaths(aps)
}

// AllAliases returns the access paths aliasing the query at its statement.
//
// Deprecated: use AllocationSites and Aliases.
func (r *BackwardResults[W]) AllAliases() []AccessPath {
	return r.AllAliasesAt(r.query.Stmt())
}

// dataFlowPath returns the nodes of the call automaton of s whose statement uses their value, in the order the
// transitions were added. Only transitions on a path to a final state count. Transitions of the epsilon statement
// and transitions of locals outside their method are skipped.
func dataFlowPath[W wpds.Weight[W]](s *Solver[W]) []Node {
	toFinal := s.callAutomaton.TransitionsToFinalWeights()
	var res []Node
	seen := map[Node]bool{}
	for _, t := range s.callAutomaton.Transitions() {
		if _, ok := toFinal[t]; !ok {
			continue
		}
		stmt := t.Label()
		if stmt == scene.Epsilon {
			continue
		}
		v, ok := t.Start().Concrete()
		if !ok {
			continue
		}
		if v.IsLocal() && stmt.Method() != v.Method() {
			continue
		}
		n := NewNode(stmt, v)
		if stmt.Uses(v) && !seen[n] {
			seen[n] = true
			res = append(res, n)
		}
	}
	return res
}
