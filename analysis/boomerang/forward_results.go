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
	"time"

	"github.com/awslabs/ar-go-spds/analysis/scene"
	"github.com/awslabs/ar-go-spds/analysis/wpds"
)

// ForwardResults are the results of a forward query
type ForwardResults[W wpds.Weight[W]] struct {
	engine *Boomerang[W]
	solver *Solver[W]
	query  ForwardQuery
	run    run
}

func newForwardResults[W wpds.Weight[W]](engine *Boomerang[W], s *Solver[W], r run) *ForwardResults[W] {
	return &ForwardResults[W]{
		engine: engine,
		solver: s,
		query:  s.query.(ForwardQuery),
		run:    r,
	}
}

// Query returns the query of the results
func (r *ForwardResults[W]) Query() Query { return r.query }

// IsTimedout returns true if the solve call producing the results exhausted its budget
func (r *ForwardResults[W]) IsTimedout() bool { return r.run.err != nil }

// Err returns the budget error of the solve call producing the results, wrapping ErrBudgetExceeded, or nil
func (r *ForwardResults[W]) Err() error { return r.run.err }

// AnalysisTime returns the duration of the solve call producing the results
func (r *ForwardResults[W]) AnalysisTime() time.Duration { return r.run.elapsed }

// MaxMemory returns the peak heap in use during the solve call, in bytes
func (r *ForwardResults[W]) MaxMemory() uint64 { return r.run.peak }

// Reached returns, for every statement, the values relevant before it with the weight of the paths reaching them
// from the allocation.
func (r *ForwardResults[W]) Reached() map[scene.Statement]map[scene.Val]W {
	r.engine.driveMu.Lock()
	defer r.engine.driveMu.Unlock()
	table := map[scene.Statement]map[scene.Val]W{}
	for t, w := range r.solver.callAutomaton.TransitionsToFinalWeights() {
		v, ok := t.Start().Concrete()
		if !ok {
			continue
		}
		row, ok := table[t.Label()]
		if !ok {
			row = map[scene.Val]W{}
			table[t.Label()] = row
		}
		if old, ok := row[v]; ok {
			w = old.Combine(w)
		}
		row[v] = w
	}
	return table
}

// VisitedMethods returns the methods of the reached nodes, in the order they were first reached
func (r *ForwardResults[W]) VisitedMethods() []scene.Method {
	r.engine.driveMu.Lock()
	defer r.engine.driveMu.Unlock()
	seen := map[scene.Method]bool{}
	var methods []scene.Method
	for _, n := range r.solver.reachedOrder {
		if m := n.Stmt().Method(); m != nil && !seen[m] {
			seen[m] = true
			methods = append(methods, m)
		}
	}
	return methods
}

// InvokedMethodOnInstance returns the calls whose receiver is the tracked object, mapped to the receiver
func (r *ForwardResults[W]) InvokedMethodOnInstance() map[scene.Statement]scene.Val {
	r.engine.driveMu.Lock()
	defer r.engine.driveMu.Unlock()
	res := map[scene.Statement]scene.Val{}
	for _, n := range r.solver.reachedOrder {
		s := n.Stmt()
		if !s.ContainsInvokeExpr() || s.InvokeExpr().Base() == nil || s.InvokeExpr().Base() != n.Fact() {
			continue
		}
		if r.solver.directlyReaches(n) {
			res[s] = n.Fact()
		}
	}
	return res
}

// DataFlowPath returns the nodes where the tracked value is used
func (r *ForwardResults[W]) DataFlowPath() []Node {
	r.engine.driveMu.Lock()
	defer r.engine.driveMu.Unlock()
	return dataFlowPath(r.solver)
}

// AccessPaths returns the access paths pointing to the tracked object right before stmt
func (r *ForwardResults[W]) AccessPaths(stmt scene.Statement) []AccessPath {
	r.engine.driveMu.Lock()
	defer r.engine.driveMu.Unlock()
	cyclic := cyclicStates(r.solver.fieldAutomaton)
	var aps []AccessPath
	for _, n := range r.solver.reachedOrder {
		if n.Stmt() == stmt {
			aps = append(aps, accessPaths(r.solver, n, cyclic, r.engine.options.MaxAccessPaths)...)
		}
	}
	return sortAccessPaths(aps)
}

// FieldWrites returns the stores into fields of the tracked object
func (r *ForwardResults[W]) FieldWrites() []FieldWrite {
	r.engine.driveMu.Lock()
	defer r.engine.driveMu.Unlock()
	return append([]FieldWrite(nil), r.solver.forward().writes...)
}
