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
	"sort"

	"github.com/awslabs/ar-go-spds/analysis/scene"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/iterator"
	"gonum.org/v1/gonum/graph/simple"
)

// MethodGraph is the call graph restricted to a set of methods, as a graph of integer nodes to work with existing
// graph libraries. It satisfies graph.Iterator of yourbasic/graph and graph.Directed of gonum.
type MethodGraph struct {
	// Methods are the methods of the graph. The ID of a method is its index.
	Methods []scene.Method

	// Keys are the IDs of the nodes in the graph, sorted
	Keys []int64

	// Edges is an adjacency matrix: Edges[x][y] means that a call site of Methods[x] calls Methods[y]
	Edges map[int64]map[int64]bool
}

// NewMethodGraph returns the graph of the calls between methods according to cg. Calls to methods that are not in
// methods are dropped.
func NewMethodGraph(cg scene.CallGraph, methods []scene.Method) MethodGraph {
	ids := make(map[scene.Method]int64, len(methods))
	keys := make([]int64, len(methods))
	edges := make(map[int64]map[int64]bool, len(methods))
	for i, m := range methods {
		ids[m] = int64(i)
		keys[i] = int64(i)
		edges[int64(i)] = map[int64]bool{}
	}
	for i, m := range methods {
		for _, s := range m.Statements() {
			if !s.ContainsInvokeExpr() {
				continue
			}
			for _, e := range cg.EdgesOutOf(s) {
				if callee, ok := ids[e.Callee]; ok {
					edges[int64(i)][callee] = true
				}
			}
		}
	}
	return MethodGraph{Methods: methods, Keys: keys, Edges: edges}
}

// Subgraph returns a new graph that is the original graph with only the nodes in include. Only the edges that have
// both the origin and destination nodes in the include nodes are kept in the resulting graph.
// Node IDs stay consistent across subgraphs.
func Subgraph(original MethodGraph, include []int64) MethodGraph {
	edges := make(map[int64]map[int64]bool, len(include))
	for _, i := range include {
		edges[i] = map[int64]bool{}
	}
	for _, i := range include {
		for e := range original.Edges[i] {
			if _, ok := edges[e]; ok {
				edges[i][e] = true
			}
		}
	}
	keys := append([]int64(nil), include...)
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return MethodGraph{Methods: original.Methods, Keys: keys, Edges: edges}
}

// Successors returns the callees of id, sorted
func (g MethodGraph) Successors(id int64) []int64 {
	succs := make([]int64, 0, len(g.Edges[id]))
	for w := range g.Edges[id] {
		succs = append(succs, w)
	}
	sort.Slice(succs, func(i, j int) bool { return succs[i] < succs[j] })
	return succs
}

// Order implements the order of the graph.Iterator interface of yourbasic/graph.
// Nodes outside the subgraph are isolated.
func (g MethodGraph) Order() int {
	return len(g.Methods)
}

// Visit implements the graph.Iterator interface of yourbasic/graph
func (g MethodGraph) Visit(v int, do func(w int, c int64) (skip bool)) (aborted bool) {
	for _, w := range g.Successors(int64(v)) {
		if do(int(w), 1) {
			return true
		}
	}
	return false
}

// *************** gonum graph.Directed implementation **********************

// Node returns the node with the given ID, or nil if it is not in the graph
func (g MethodGraph) Node(id int64) graph.Node {
	if _, ok := g.Edges[id]; !ok {
		return nil
	}
	return MethodNode{id: id, Method: g.Methods[id]}
}

// Nodes returns the nodes of the graph, sorted by ID
func (g MethodGraph) Nodes() graph.Nodes {
	return g.nodes(g.Keys)
}

// From returns the nodes called by id
func (g MethodGraph) From(id int64) graph.Nodes {
	return g.nodes(g.Successors(id))
}

// To returns the nodes calling id
func (g MethodGraph) To(id int64) graph.Nodes {
	var callers []int64
	for _, k := range g.Keys {
		if g.Edges[k][id] {
			callers = append(callers, k)
		}
	}
	return g.nodes(callers)
}

// HasEdgeBetween returns a boolean indicating whether an edge exists between the two node identifiers
func (g MethodGraph) HasEdgeBetween(xid, yid int64) bool {
	return g.Edges[xid][yid] || g.Edges[yid][xid]
}

// HasEdgeFromTo returns whether uid calls vid
func (g MethodGraph) HasEdgeFromTo(uid, vid int64) bool {
	return g.Edges[uid][vid]
}

// Edge returns the edge between the two identifiers (nil if none exists)
func (g MethodGraph) Edge(uid, vid int64) graph.Edge {
	if !g.Edges[uid][vid] {
		return nil
	}
	return simple.Edge{F: g.Node(uid), T: g.Node(vid)}
}

func (g MethodGraph) nodes(ids []int64) graph.Nodes {
	nodes := make([]graph.Node, len(ids))
	for i, id := range ids {
		nodes[i] = MethodNode{id: id, Method: g.Methods[id]}
	}
	return iterator.NewOrderedNodes(nodes)
}

// MethodNode is a method of a MethodGraph. It implements the graph.Node interface.
type MethodNode struct {
	id     int64
	Method scene.Method
}

// ID returns the id of the node
func (n MethodNode) ID() int64 {
	return n.id
}

func (n MethodNode) String() string {
	if n.Method == nil {
		return ""
	}
	return n.Method.String()
}
