// Package scm holds the causal-graph data model: an immutable DAG, the
// linear-Gaussian structural causal model built on it, and the closed motif
// catalog benchmark instances are drawn from.
package scm

import (
	"fmt"

	"causalbench/domain/core"
)

// Edge is a directed parent -> child edge
type Edge struct {
	Parent string
	Child  string
}

func (e Edge) String() string {
	return fmt.Sprintf("%s->%s", e.Parent, e.Child)
}

// Visitation states for topological sorting
const (
	white = iota // unvisited
	gray         // in progress
	black        // done
)

// DAG is an immutable directed acyclic graph. Node order is the order of
// first appearance in the edge list; children and parents keep edge order.
type DAG struct {
	nodes    []string
	edges    []Edge
	children map[string][]string
	parents  map[string][]string
}

// FromEdges builds a DAG from (parent, child) edges. Self-loops and duplicate
// edges are rejected. Cycles are only detected by TopologicalSort.
func FromEdges(edges []Edge) (*DAG, error) {
	d := &DAG{
		nodes:    make([]string, 0, len(edges)+1),
		edges:    make([]Edge, 0, len(edges)),
		children: make(map[string][]string),
		parents:  make(map[string][]string),
	}
	seen := make(map[Edge]bool, len(edges))

	addNode := func(n string) {
		if _, ok := d.children[n]; ok {
			return
		}
		d.nodes = append(d.nodes, n)
		d.children[n] = nil
		d.parents[n] = nil
	}

	for _, e := range edges {
		if e.Parent == "" || e.Child == "" {
			return nil, core.NewValidationError("edge", fmt.Sprintf("empty endpoint in %s", e))
		}
		if e.Parent == e.Child {
			return nil, core.NewValidationError("edge", fmt.Sprintf("self loops not allowed: %s", e))
		}
		if seen[e] {
			return nil, core.NewValidationError("edge", fmt.Sprintf("duplicate edge %s", e))
		}
		seen[e] = true

		addNode(e.Parent)
		addNode(e.Child)
		d.children[e.Parent] = append(d.children[e.Parent], e.Child)
		d.parents[e.Child] = append(d.parents[e.Child], e.Parent)
		d.edges = append(d.edges, e)
	}

	return d, nil
}

// Nodes returns the node identifiers in declaration order
func (d *DAG) Nodes() []string {
	return append([]string(nil), d.nodes...)
}

// HasNode reports whether node is part of the graph
func (d *DAG) HasNode(node string) bool {
	_, ok := d.children[node]
	return ok
}

// ChildrenOf returns the direct children of node
func (d *DAG) ChildrenOf(node string) ([]string, error) {
	c, ok := d.children[node]
	if !ok {
		return nil, core.NewNodeNotFoundError(node)
	}
	return append([]string{}, c...), nil
}

// ParentsOf returns the direct parents of node
func (d *DAG) ParentsOf(node string) ([]string, error) {
	p, ok := d.parents[node]
	if !ok {
		return nil, core.NewNodeNotFoundError(node)
	}
	return append([]string{}, p...), nil
}

// Edges returns the edges in input order
func (d *DAG) Edges() []Edge {
	return append([]Edge(nil), d.edges...)
}

// topoSorter encapsulates state for a topological sort traversal.
type topoSorter struct {
	dag   *DAG
	state map[string]int
	order []string
}

// TopologicalSort returns the nodes ordered so that every parent precedes
// its children. It runs a depth-first search from each unvisited node in
// declaration order and reverses the post-order. Revisiting an in-progress
// node returns ErrCycle.
//
// Complexity: O(V + E) time, O(V) memory.
func (d *DAG) TopologicalSort() ([]string, error) {
	s := &topoSorter{
		dag:   d,
		state: make(map[string]int, len(d.nodes)),
		order: make([]string, 0, len(d.nodes)),
	}
	for _, n := range d.nodes {
		if s.state[n] == white {
			if err := s.visit(n); err != nil {
				return nil, err
			}
		}
	}

	for i, j := 0, len(s.order)-1; i < j; i, j = i+1, j-1 {
		s.order[i], s.order[j] = s.order[j], s.order[i]
	}
	return s.order, nil
}

func (s *topoSorter) visit(id string) error {
	switch s.state[id] {
	case gray:
		return core.NewCycleError(id)
	case black:
		return nil
	}
	s.state[id] = gray

	for _, child := range s.dag.children[id] {
		if err := s.visit(child); err != nil {
			return err
		}
	}

	s.state[id] = black
	s.order = append(s.order, id)
	return nil
}
