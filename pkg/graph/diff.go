package graph

import (
	"fmt"
	"sort"
	"strings"
)

// Diff lists what changed between two builds of the same inputs.
type Diff struct {
	AddedNodes   []string     `json:"added_nodes,omitempty"`
	RemovedNodes []string     `json:"removed_nodes,omitempty"`
	Retyped      []TypeChange `json:"retyped,omitempty"`
	AddedEdges   []string     `json:"added_edges,omitempty"`
	RemovedEdges []string     `json:"removed_edges,omitempty"`
	CountA       int          `json:"count_a"`
	CountB       int          `json:"count_b"`
}

// TypeChange is a node whose category differs between the two graphs.
type TypeChange struct {
	ID    string `json:"id"`
	TypeA string `json:"type_a"`
	TypeB string `json:"type_b"`
}

// Empty reports whether the graphs have the same nodes, types and edges.
func (d Diff) Empty() bool {
	return len(d.AddedNodes) == 0 && len(d.RemovedNodes) == 0 && len(d.Retyped) == 0 &&
		len(d.AddedEdges) == 0 && len(d.RemovedEdges) == 0
}

// Summary returns a short human-readable report.
func (d Diff) Summary() string {
	if d.Empty() {
		return fmt.Sprintf("no changes (%d nodes)", d.CountB)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d -> %d nodes", d.CountA, d.CountB)
	part := func(n int, what string) {
		if n > 0 {
			fmt.Fprintf(&b, ", %d %s", n, what)
		}
	}
	part(len(d.AddedNodes), "nodes added")
	part(len(d.RemovedNodes), "nodes removed")
	part(len(d.Retyped), "retyped")
	part(len(d.AddedEdges), "edges added")
	part(len(d.RemovedEdges), "edges removed")
	return b.String()
}

// Compare diffs a against b. Either may be nil and reads as empty. Every
// list is sorted.
func Compare(a, b *Graph) Diff {
	if a == nil {
		a = New()
	}
	if b == nil {
		b = New()
	}
	d := Diff{CountA: a.NodeCount(), CountB: b.NodeCount()}

	for id, nb := range b.nodes {
		na, ok := a.nodes[id]
		if !ok {
			d.AddedNodes = append(d.AddedNodes, id)
			continue
		}
		if na.Category() != nb.Category() {
			d.Retyped = append(d.Retyped, TypeChange{ID: id, TypeA: na.Category(), TypeB: nb.Category()})
		}
	}
	for id := range a.nodes {
		if _, ok := b.nodes[id]; !ok {
			d.RemovedNodes = append(d.RemovedNodes, id)
		}
	}
	for key := range b.edges {
		if _, ok := a.edges[key]; !ok {
			d.AddedEdges = append(d.AddedEdges, key.String())
		}
	}
	for key := range a.edges {
		if _, ok := b.edges[key]; !ok {
			d.RemovedEdges = append(d.RemovedEdges, key.String())
		}
	}

	sort.Strings(d.AddedNodes)
	sort.Strings(d.RemovedNodes)
	sort.Strings(d.AddedEdges)
	sort.Strings(d.RemovedEdges)
	sort.Slice(d.Retyped, func(i, j int) bool { return d.Retyped[i].ID < d.Retyped[j].ID })
	return d
}
