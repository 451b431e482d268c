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
	"strings"

	"github.com/awslabs/ar-go-spds/analysis/scene"
	"github.com/awslabs/ar-go-spds/analysis/spds"
	"github.com/awslabs/ar-go-spds/analysis/wpds"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// Context explains how an allocation site reaches the node of a backward query.
type Context struct {
	// Allocation is the forward query of the allocation site
	Allocation ForwardQuery
	// Node is the node of the backward query reached by the allocation
	Node Node
	// Path is a shortest sequence of nodes from the allocation to Node
	Path []Node
	// CallStack is a sequence of call sites, innermost first, of a calling context in which the allocation
	// reaches Node. It is empty when Node is in the method of the allocation or is reached in an unknown context.
	CallStack []scene.Statement
}

func (c Context) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v reaches %v", c.Allocation, c.Node)
	if len(c.Path) > 0 {
		b.WriteString(" via")
		for _, n := range c.Path {
			fmt.Fprintf(&b, " %v", n)
		}
	}
	if len(c.CallStack) > 0 {
		b.WriteString(" in")
		for _, cs := range c.CallStack {
			fmt.Fprintf(&b, " [%v]", cs)
		}
	}
	return b.String()
}

func newContext[W wpds.Weight[W]](s *Solver[W], fq ForwardQuery, n Node) Context {
	return Context{
		Allocation: fq,
		Node:       n,
		Path:       shortestPath(s, s.query.AsNode(), n),
		CallStack:  callStack(s, n),
	}
}

// shortestPath returns a shortest path from src to dst in the propagation graph of s, or nil
func shortestPath[W wpds.Weight[W]](s *Solver[W], src Node, dst Node) []Node {
	g := simple.NewDirectedGraph()
	ids := map[Node]int64{}
	var nodes []Node
	id := func(n Node) int64 {
		if i, ok := ids[n]; ok {
			return i
		}
		i := int64(len(nodes))
		ids[n] = i
		nodes = append(nodes, n)
		g.AddNode(simple.Node(i))
		return i
	}
	for _, from := range s.reachedOrder {
		for _, to := range s.succs[from] {
			f, t := id(from), id(to)
			if f != t {
				g.SetEdge(g.NewEdge(simple.Node(f), simple.Node(t)))
			}
		}
	}
	srcID, ok := ids[src]
	if !ok {
		return nil
	}
	dstID, ok := ids[dst]
	if !ok {
		return nil
	}
	p, _ := path.DijkstraFrom(g.Node(srcID), g).To(dstID)
	res := make([]Node, 0, len(p))
	for _, gn := range p {
		res = append(res, nodes[gn.ID()])
	}
	return res
}

// callStack follows one calling context of n in the call automaton of s
func callStack[W wpds.Weight[W]](s *Solver[W], n Node) []scene.Statement {
	var state CallState
	found := false
	for _, t := range s.callAutomaton.TransitionsOutOf(spds.Single(n.Fact())) {
		if t.Label() == n.Stmt() {
			state = t.Target()
			found = true
			break
		}
	}
	if !found {
		return nil
	}
	var stack []scene.Statement
	visited := map[CallState]bool{}
	for state.IsGenerated() && !visited[state] {
		visited[state] = true
		out := s.callAutomaton.TransitionsOutOf(state)
		if len(out) == 0 {
			break
		}
		stack = append(stack, out[0].Label())
		state = out[0].Target()
	}
	return stack
}
