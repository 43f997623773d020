package layout

import (
	"context"
	"math/rand/v2"

	gonumlayout "gonum.org/v1/gonum/graph/layout"

	"github.com/vanderheijden86/csvgraph/pkg/graph"
)

// organic is a force-directed placement using the Eades spring model.
type organic struct {
	opts Options
}

func (e organic) Layout(ctx context.Context, g *graph.Graph) (Positions, error) {
	pos := make(Positions, g.NodeCount())
	if g.NodeCount() == 0 {
		return pos, nil
	}
	idx := newIndex(g)
	if len(idx.ids) == 1 {
		pos[idx.ids[0]] = Point{}
		return pos, nil
	}

	eades := gonumlayout.EadesR2{
		Repulsion: 1,
		Rate:      0.05,
		Updates:   e.opts.Iterations,
		Theta:     0.2,
		Src:       rand.NewPCG(e.opts.Seed, e.opts.Seed),
	}
	opt := gonumlayout.NewOptimizerR2(orderedUndirected{idx.undirected(g)}, eades.Update)
	for opt.Update() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	for i, id := range idx.ids {
		v := opt.Coord2(int64(i))
		pos[id] = Point{X: v.X * e.opts.NodeGap, Y: v.Y * e.opts.NodeGap}
	}
	return pos, nil
}
