package layout

import (
	"context"

	"github.com/vanderheijden86/csvgraph/pkg/graph"
)

// circular places nodes on a single ring in graph order.
type circular struct {
	opts Options
}

func (e circular) Layout(ctx context.Context, g *graph.Graph) (Positions, error) {
	nodes := g.Nodes()
	pos := make(Positions, len(nodes))
	if len(nodes) == 0 {
		return pos, ctx.Err()
	}
	for i, pt := range ring(Point{}, len(nodes), e.opts.NodeGap) {
		pos[nodes[i].ID] = pt
	}
	return pos, ctx.Err()
}
