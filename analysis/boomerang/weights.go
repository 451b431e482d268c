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
	"github.com/awslabs/ar-go-spds/analysis/scene"
	"github.com/awslabs/ar-go-spds/analysis/wpds"
)

// WeightFunctions compute the weights of the call automaton transitions added by the solvers.
type WeightFunctions[W wpds.Weight[W]] interface {
	// One returns the identity of the semiring
	One() W
	// Normal returns the weight of an intra-procedural step from curr to succ
	Normal(curr Node, succ Node) W
	// Push returns the weight of entering callee from curr at callSite
	Push(curr Node, callee Node, callSite scene.Statement) W
	// Pop returns the weight of returning from curr to a caller
	Pop(curr Node) W
}

// NoWeightFunctions are the weight functions of unweighted analyses
type NoWeightFunctions struct{}

// One returns the unit weight
func (NoWeightFunctions) One() wpds.NoWeight { return wpds.NoWeight{} }

// Normal returns the unit weight
func (NoWeightFunctions) Normal(Node, Node) wpds.NoWeight { return wpds.NoWeight{} }

// Push returns the unit weight
func (NoWeightFunctions) Push(Node, Node, scene.Statement) wpds.NoWeight { return wpds.NoWeight{} }

// Pop returns the unit weight
func (NoWeightFunctions) Pop(Node) wpds.NoWeight { return wpds.NoWeight{} }

// StatementLabels attaches labels to the flows leaving some statements, e.g. to record which sanitizers a value
// went through. Label may be nil.
type StatementLabels struct {
	Label func(s scene.Statement, v scene.Val) []string
}

// One returns the empty label set
func (StatementLabels) One() wpds.LabelSet { return wpds.LabelSet{} }

// Normal returns the labels of the statement of curr
func (l StatementLabels) Normal(curr Node, _ Node) wpds.LabelSet {
	if l.Label == nil {
		return wpds.LabelSet{}
	}
	return wpds.NewLabelSet(l.Label(curr.Stmt(), curr.Fact())...)
}

// Push returns the labels of the call site
func (l StatementLabels) Push(curr Node, _ Node, _ scene.Statement) wpds.LabelSet {
	return l.Normal(curr, curr)
}

// Pop returns the labels of the returning statement
func (l StatementLabels) Pop(curr Node) wpds.LabelSet {
	return l.Normal(curr, curr)
}
