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

package analysis

import (
	"fmt"
	"sync"
	"time"

	"github.com/awslabs/ar-go-spds/analysis/boomerang"
	"github.com/awslabs/ar-go-spds/analysis/config"
	"github.com/awslabs/ar-go-spds/analysis/scene/ssascene"
	"github.com/awslabs/ar-go-spds/analysis/seeds"
	"golang.org/x/tools/go/callgraph"
	"golang.org/x/tools/go/ssa"
)

// State contains the information shared by the queries over one program: the program, its call graph and its
// presentation to the solvers.
type State struct {
	// The logger used during the analysis (can be used to control output.
	Logger *config.LogGroup

	// The configuration file for the analysis
	Config *config.Config

	// The program to be analyzed. It should be a complete buildable program (e.g. loaded by LoadProgram).
	Program *ssa.Program

	// Application are the packages whose functions are application methods
	Application []*ssa.Package

	// CallGraph is the call graph built with the callgraph-algo of Config
	CallGraph *callgraph.Graph

	// Scene is the program as seen by the solvers
	Scene *ssascene.Program

	// Stored errors
	errors     map[error]bool
	errorMutex sync.Mutex
}

// NewState builds the call graph of the loaded program lp and translates the program for the solvers
func NewState(lp LoadedProgram, cfg *config.Config) (*State, error) {
	if cfg == nil {
		cfg = config.NewDefault()
	}
	logger := config.NewLogGroup(cfg)
	mode, err := CallgraphModeOf(cfg.CallgraphAlgo)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	cg, err := mode.ComputeCallgraph(lp.Program)
	if err != nil {
		return nil, fmt.Errorf("failed to compute call graph: %w", err)
	}
	cg.DeleteSyntheticNodes()
	logger.Infof("Computed %s call graph (%d nodes) in %.2f s", mode, len(cg.Nodes), time.Since(start).Seconds())

	start = time.Now()
	sc := ssascene.New(lp.Program, cg, lp.Application)
	logger.Infof("Translated %v in %.2f s", sc, time.Since(start).Seconds())

	return &State{
		Logger:      logger,
		Config:      cfg,
		Program:     lp.Program,
		Application: lp.Application,
		CallGraph:   cg,
		Scene:       sc,
		errors:      map[error]bool{},
	}, nil
}

// AddError stores e, if not nil, to be returned by CheckError
func (s *State) AddError(e error) {
	s.errorMutex.Lock()
	defer s.errorMutex.Unlock()
	if e != nil {
		s.errors[e] = true
	}
}

// CheckError removes and returns one of the stored errors, or nil if there is none
func (s *State) CheckError() error {
	s.errorMutex.Lock()
	defer s.errorMutex.Unlock()
	for e := range s.errors {
		delete(s.errors, e)
		return e
	}
	return nil
}

// Seeds returns the queries of the seed specifications of the config, in discovery order.
// An invalid specification is stored in the errors of the state, and no seed is returned.
func (s *State) Seeds() []boomerang.Query {
	tests, err := seeds.FromConfig(s.Config.Seeds)
	if err != nil {
		s.AddError(fmt.Errorf("invalid seeds: %w", err))
		return nil
	}
	scope := seeds.NewAnalysisScope(s.Scene, s.Logger, tests...)
	scope.SetScanLibraryMethods(s.Config.ScanLibraryMethods)
	start := time.Now()
	queries := scope.ComputeSeeds()
	s.Logger.Infof("Found %d seeds in %d statements in %.2f s", len(queries), scope.StatementCount(),
		time.Since(start).Seconds())
	return queries
}
