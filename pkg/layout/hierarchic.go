package layout

import (
	"context"
	"sort"

	gonum "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/vanderheijden86/csvgraph/pkg/graph"
)

// hierarchic assigns each node a layer equal to the longest path reaching it
// in the condensation of the graph (cycles share a layer), then spreads
// layers left to right.
type hierarchic struct {
	opts Options
}

func (e hierarchic) Layout(ctx context.Context, g *graph.Graph) (Positions, error) {
	pos := make(Positions, g.NodeCount())
	if g.NodeCount() == 0 {
		return pos, nil
	}
	idx := newIndex(g)
	levels, err := layerLevels(idx.directed(g))
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	byLevel := make(map[int][]int64)
	maxLevel := 0
	for id, lvl := range levels {
		byLevel[lvl] = append(byLevel[lvl], id)
		maxLevel = max(maxLevel, lvl)
	}
	for lvl := 0; lvl <= maxLevel; lvl++ {
		members := sortedInt64(byLevel[lvl])
		offset := -float64(len(members)-1) * e.opts.NodeGap / 2
		for i, id := range members {
			pos[idx.ids[id]] = Point{
				X: float64(lvl) * e.opts.LayerGap,
				Y: offset + float64(i)*e.opts.NodeGap,
			}
		}
	}
	return pos, nil
}

// layerLevels returns the longest-path level of every node of dg. Strongly
// connected components are collapsed first so cycles do not diverge.
func layerLevels(dg *simple.DirectedGraph) (map[int64]int, error) {
	sccs := topo.TarjanSCC(dg)
	comp := make(map[int64]int64, dg.Nodes().Len())
	cg := simple.NewDirectedGraph()
	for i, scc := range sccs {
		cg.AddNode(simple.Node(int64(i)))
		for _, n := range scc {
			comp[n.ID()] = int64(i)
		}
	}

	edges := dg.Edges()
	for edges.Next() {
		e := edges.Edge()
		from, to := comp[e.From().ID()], comp[e.To().ID()]
		if from != to {
			cg.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
		}
	}

	order, err := topo.SortStabilized(cg, func(nodes []gonum.Node) {
		sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID() < nodes[j].ID() })
	})
	if err != nil {
		return nil, err
	}

	compLevel := make(map[int64]int, len(order))
	for _, n := range order {
		lvl := compLevel[n.ID()]
		succ := cg.From(n.ID())
		for succ.Next() {
			s := succ.Node().ID()
			compLevel[s] = max(compLevel[s], lvl+1)
		}
	}

	levels := make(map[int64]int, len(comp))
	for id, c := range comp {
		levels[id] = compLevel[c]
	}
	return levels, nil
}
