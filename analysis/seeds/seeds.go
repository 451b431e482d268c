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

// Package seeds discovers the queries of an analysis by walking the call graph from its entry points.
package seeds

import (
	"time"

	"github.com/awslabs/ar-go-spds/analysis/boomerang"
	"github.com/awslabs/ar-go-spds/analysis/config"
	"github.com/awslabs/ar-go-spds/analysis/scene"
	"github.com/awslabs/ar-go-spds/internal/funcutil"
)

// ValueOfInterest tests whether a statement is the seed of a query
type ValueOfInterest interface {
	// Test returns the query seeded at stmt, or none if stmt is not a candidate
	Test(stmt scene.Statement) funcutil.Optional[boomerang.Query]
}

// TestFunc is a function implementing ValueOfInterest
type TestFunc func(stmt scene.Statement) funcutil.Optional[boomerang.Query]

// Test calls f
func (f TestFunc) Test(stmt scene.Statement) funcutil.Optional[boomerang.Query] { return f(stmt) }

// AnalysisScope computes the seeds of the methods reachable from the entry points of a call graph.
//
// Callees outside the application are only visited when scanning library methods is enabled. Entry points are
// always visited.
type AnalysisScope struct {
	cg          scene.CallGraph
	tests       []ValueOfInterest
	scanLibrary bool
	logger      *config.LogGroup

	processed      map[scene.Method]bool
	statementCount int
}

// NewAnalysisScope returns a scope over cg, seeded by tests
func NewAnalysisScope(cg scene.CallGraph, logger *config.LogGroup, tests ...ValueOfInterest) *AnalysisScope {
	if logger == nil {
		logger = config.NewLogGroup(config.NewDefault())
	}
	return &AnalysisScope{
		cg:        cg,
		tests:     tests,
		logger:    logger,
		processed: map[scene.Method]bool{},
	}
}

// SetScanLibraryMethods sets whether seeds are searched in methods that are not part of the application
func (a *AnalysisScope) SetScanLibraryMethods(enabled bool) {
	a.scanLibrary = enabled
}

// StatementCount returns the number of statements visited by ComputeSeeds
func (a *AnalysisScope) StatementCount() int {
	return a.statementCount
}

// ComputeSeeds returns the queries seeded in the methods reachable from the entry points, without duplicates and
// in discovery order. Methods are visited at most once per scope, so a second call only returns seeds of methods
// that were not visited before.
func (a *AnalysisScope) ComputeSeeds() []boomerang.Query {
	entries := a.cg.EntryPoints()
	a.logger.Infof("Computing seeds starting at %d entry method(s).", len(entries))
	start := time.Now()

	var seeds []boomerang.Query
	seen := map[boomerang.Query]bool{}
	worklist := append([]scene.Method{}, entries...)
	for len(worklist) > 0 {
		m := worklist[0]
		worklist = worklist[1:]
		if a.processed[m] {
			continue
		}
		a.processed[m] = true
		a.logger.Tracef("Processing %v", m)
		for _, s := range m.Statements() {
			a.statementCount++
			if s.ContainsInvokeExpr() {
				for _, e := range a.cg.EdgesOutOf(s) {
					if !a.scanLibrary && !e.Callee.IsApplication() {
						continue
					}
					if !a.processed[e.Callee] {
						worklist = append(worklist, e.Callee)
					}
				}
			}
			for _, test := range a.tests {
				if q, ok := test.Test(s).Get(); ok && !seen[q] {
					seen[q] = true
					seeds = append(seeds, q)
				}
			}
		}
	}
	a.logger.Infof("Found %d seeds in %.2fs in %d statements.", len(seeds), time.Since(start).Seconds(),
		a.statementCount)
	return seeds
}
