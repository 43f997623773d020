package analysis

import (
	gonum "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/topo"
)

// coreNumbers returns the core number of every node: the largest k such
// that the node belongs to a subgraph where every node has degree >= k.
func coreNumbers(g gonum.Undirected) map[int64]int {
	_, shells := topo.DegeneracyOrdering(g)
	core := make(map[int64]int)
	for k, shell := range shells {
		for _, n := range shell {
			core[n.ID()] = k
		}
	}
	return core
}

// cutVertices returns the nodes of g whose removal splits their component.
// The walk is iterative so long chains do not grow the goroutine stack.
func cutVertices(g gonum.Undirected) map[int64]bool {
	type frame struct {
		id       int64
		parent   int64
		children int
		next     []gonum.Node
	}

	disc := make(map[int64]int)
	low := make(map[int64]int)
	cut := make(map[int64]bool)
	clock := 0

	enter := func(id, parent int64) frame {
		clock++
		disc[id], low[id] = clock, clock
		return frame{id: id, parent: parent, next: gonum.NodesOf(g.From(id))}
	}

	roots := g.Nodes()
	for roots.Next() {
		root := roots.Node().ID()
		if disc[root] != 0 {
			continue
		}
		stack := []frame{enter(root, -1)}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if len(top.next) > 0 {
				u := top.next[0].ID()
				top.next = top.next[1:]
				switch {
				case disc[u] == 0:
					top.children++
					stack = append(stack, enter(u, top.id))
				case u != top.parent:
					low[top.id] = min(low[top.id], disc[u])
				}
				continue
			}

			done := *top
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				if done.children > 1 {
					cut[done.id] = true
				}
				continue
			}
			up := &stack[len(stack)-1]
			low[up.id] = min(low[up.id], low[done.id])
			if up.parent != -1 && low[done.id] >= disc[up.id] {
				cut[up.id] = true
			}
		}
	}
	return cut
}
