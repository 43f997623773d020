package layout

import (
	"context"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/graph/community"

	"github.com/vanderheijden86/csvgraph/pkg/graph"
)

// cluster groups nodes into modularity communities (Louvain), places each
// community on its own ring and arranges the rings around a larger one.
type cluster struct {
	opts Options
}

func (e cluster) Layout(ctx context.Context, g *graph.Graph) (Positions, error) {
	pos := make(Positions, g.NodeCount())
	if g.NodeCount() == 0 {
		return pos, nil
	}
	idx := newIndex(g)
	groups := communities(idx, g, e.opts.Seed)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Outer ring spacing grows with the largest community.
	largest := 0
	for _, members := range groups {
		largest = max(largest, len(members))
	}
	outerGap := e.opts.NodeGap * (float64(largest)/3 + 2)
	centers := ring(Point{}, len(groups), outerGap)

	for i, members := range groups {
		for j, pt := range ring(centers[i], len(members), e.opts.NodeGap) {
			pos[idx.ids[members[j]]] = pt
		}
	}
	return pos, nil
}

// communities partitions g with Louvain modularity at resolution 1. Groups
// are ordered by their smallest member, members by graph order.
func communities(idx index, g *graph.Graph, seed uint64) [][]int64 {
	reduced := community.Modularize(orderedUndirected{idx.undirected(g)}, 1, rand.NewPCG(seed, seed))
	var groups [][]int64
	for _, c := range reduced.Communities() {
		if len(c) == 0 {
			continue
		}
		members := make([]int64, len(c))
		for i, n := range c {
			members[i] = n.ID()
		}
		groups = append(groups, sortedInt64(members))
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i][0] < groups[j][0] })
	return groups
}
