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

/*
Package boomerang implements a demand-driven, field- and context-sensitive alias analysis based on synchronized
pushdown systems.

A BackwardQuery asks which allocation sites a value may come from; a ForwardQuery asks where the value allocated at a
statement may flow. Each query is solved by a Solver that tracks two stacks for every Node it reaches: the calling
context, in a call automaton, and the access path of the tracked object, in a field automaton. Both automata are
wpds.WeightedPAutomaton and solvers are driven by listeners on their states.

Backward and forward solvers cooperate: a backward solver reaching an allocation site starts a forward solver from
it, and a forward solver reaching a store into a field of an unknown object asks a backward query for that object.
All solvers live in one engine, Boomerang, which memoizes them across queries:

	engine := boomerang.NewUnweighted(callGraph, boomerang.DefaultOptions())
	res := engine.SolveBackward(ctx, boomerang.NewBackwardQuery(stmt, v))
	for alloc := range res.AllocationSites() {
		...
	}
*/
package boomerang
