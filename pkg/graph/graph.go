// Package graph holds the runtime graph built from normalized records and
// the chunked builder that constructs it.
package graph

import (
	"slices"

	"github.com/vanderheijden86/csvgraph/pkg/model"
	"github.com/vanderheijden86/csvgraph/pkg/normalize"
)

// Node is a runtime node. It is owned by its Graph.
type Node struct {
	ID     string
	Record model.NodeRecord // originating record (tag)
	Color  normalize.Color
}

// Label returns the display label of the node.
func (n *Node) Label() string {
	return n.Record.DisplayLabel()
}

// Category returns the node type used for coloring and the legend.
func (n *Node) Category() string {
	return n.Record.Category()
}

// Edge is a runtime edge. Source and Target point into the owning Graph.
type Edge struct {
	Source *Node
	Target *Node
	Record model.ConsolidatedEdge // originating consolidated record (tag)
}

// Key returns the (source, target) key of the edge.
func (e *Edge) Key() model.EdgeKey {
	return model.EdgeKey{Source: e.Source.ID, Target: e.Target.ID}
}

// Count returns the number of raw rows consolidated into this edge.
func (e *Edge) Count() int {
	return e.Record.Count
}

// Graph is an insertion ordered directed graph with unique node ids and at
// most one edge per (source, target) key. A Graph is not safe for concurrent
// mutation.
type Graph struct {
	nodes     map[string]*Node
	nodeOrder []*Node
	edges     map[model.EdgeKey]*Edge
	edgeOrder []*Edge
	degree    map[string]int
}

// New returns an empty graph.
func New() *Graph {
	g := &Graph{}
	g.Clear()
	return g
}

// Clear removes every node and edge.
func (g *Graph) Clear() {
	g.nodes = make(map[string]*Node)
	g.nodeOrder = nil
	g.edges = make(map[model.EdgeKey]*Edge)
	g.edgeOrder = nil
	g.degree = make(map[string]int)
}

// AddNode inserts a node for rec. When a node with the same id exists its
// record and color are updated in place and created is false.
func (g *Graph) AddNode(rec model.NodeRecord, color normalize.Color) (n *Node, created bool) {
	if existing, ok := g.nodes[rec.ID]; ok {
		existing.Record = rec
		existing.Color = color
		return existing, false
	}
	n = &Node{ID: rec.ID, Record: rec, Color: color}
	g.nodes[rec.ID] = n
	g.nodeOrder = append(g.nodeOrder, n)
	return n, true
}

// AddEdge attaches rec between two existing nodes. It returns false without
// modifying the graph when an endpoint is missing or the key is taken.
func (g *Graph) AddEdge(rec model.ConsolidatedEdge) (*Edge, bool) {
	src, ok := g.nodes[rec.Source]
	if !ok {
		return nil, false
	}
	dst, ok := g.nodes[rec.Target]
	if !ok {
		return nil, false
	}
	key := rec.Key()
	if _, dup := g.edges[key]; dup {
		return nil, false
	}
	e := &Edge{Source: src, Target: dst, Record: rec}
	g.edges[key] = e
	g.edgeOrder = append(g.edgeOrder, e)
	g.degree[src.ID]++
	g.degree[dst.ID]++
	return e, true
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Edge returns the edge with the given key.
func (g *Graph) Edge(key model.EdgeKey) (*Edge, bool) {
	e, ok := g.edges[key]
	return e, ok
}

// Nodes returns the nodes in insertion order. The slice is a copy.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, len(g.nodeOrder))
	copy(out, g.nodeOrder)
	return out
}

// Edges returns the edges in insertion order. The slice is a copy.
func (g *Graph) Edges() []*Edge {
	out := make([]*Edge, len(g.edgeOrder))
	copy(out, g.edgeOrder)
	return out
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.nodeOrder)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	return len(g.edgeOrder)
}

// Degree returns the number of edges incident to id. A self loop counts twice.
func (g *Graph) Degree(id string) int {
	return g.degree[id]
}

// RemoveNode deletes the node and every edge incident to it.
func (g *Graph) RemoveNode(id string) bool {
	if _, ok := g.nodes[id]; !ok {
		return false
	}
	if g.degree[id] > 0 {
		g.edgeOrder = slices.DeleteFunc(g.edgeOrder, func(e *Edge) bool {
			if e.Source.ID != id && e.Target.ID != id {
				return false
			}
			delete(g.edges, e.Key())
			g.degree[e.Source.ID]--
			g.degree[e.Target.ID]--
			return true
		})
	}

	delete(g.nodes, id)
	delete(g.degree, id)
	g.nodeOrder = slices.DeleteFunc(g.nodeOrder, func(n *Node) bool {
		return n.ID == id
	})
	return true
}

// PruneIsolated removes every node without incident edges and returns the
// removed ids in graph order.
func (g *Graph) PruneIsolated() []string {
	var removed []string
	g.nodeOrder = slices.DeleteFunc(g.nodeOrder, func(n *Node) bool {
		if g.degree[n.ID] > 0 {
			return false
		}
		removed = append(removed, n.ID)
		delete(g.nodes, n.ID)
		delete(g.degree, n.ID)
		return true
	})
	return removed
}
