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

	"github.com/awslabs/ar-go-spds/analysis/config"
	"golang.org/x/tools/go/callgraph"
	"golang.org/x/tools/go/callgraph/cha"
	"golang.org/x/tools/go/callgraph/static"
	"golang.org/x/tools/go/callgraph/vta"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// CallgraphAnalysisMode is the algorithm building the call graph the solvers follow
type CallgraphAnalysisMode uint64

const (
	StaticAnalysis         CallgraphAnalysisMode = iota // StaticAnalysis is under-approximating (fast)
	ClassHierarchyAnalysis                              // ClassHierarchyAnalysis is a coarse over-approximation (fast)
	VariableTypeAnalysis                                // VariableTypeAnalysis refines the static call graph with types flowing to call sites
)

// CallgraphModeOf returns the mode of the callgraph-algo option algo
func CallgraphModeOf(algo string) (CallgraphAnalysisMode, error) {
	switch algo {
	case config.CallgraphStatic:
		return StaticAnalysis, nil
	case config.CallgraphCHA, "":
		return ClassHierarchyAnalysis, nil
	case config.CallgraphVTA:
		return VariableTypeAnalysis, nil
	default:
		return 0, fmt.Errorf("unsupported callgraph algorithm %q", algo)
	}
}

func (mode CallgraphAnalysisMode) String() string {
	switch mode {
	case StaticAnalysis:
		return config.CallgraphStatic
	case ClassHierarchyAnalysis:
		return config.CallgraphCHA
	case VariableTypeAnalysis:
		return config.CallgraphVTA
	default:
		return fmt.Sprintf("mode(%d)", uint64(mode))
	}
}

// ComputeCallgraph computes the call graph of prog using the provided mode.
func (mode CallgraphAnalysisMode) ComputeCallgraph(prog *ssa.Program) (*callgraph.Graph, error) {
	switch mode {
	case StaticAnalysis:
		return static.CallGraph(prog), nil
	case ClassHierarchyAnalysis:
		return cha.CallGraph(prog), nil
	case VariableTypeAnalysis:
		// VTA refines the edges of an initial call graph. CHA keeps the dynamic calls VTA starts from.
		return vta.CallGraph(ssautil.AllFunctions(prog), cha.CallGraph(prog)), nil
	default:
		return nil, fmt.Errorf("unsupported callgraph analysis mode %v", mode)
	}
}
