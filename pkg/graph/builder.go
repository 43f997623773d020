package graph

import (
	"context"
	"fmt"
	"sort"

	"github.com/vanderheijden86/csvgraph/pkg/debug"
	"github.com/vanderheijden86/csvgraph/pkg/metrics"
	"github.com/vanderheijden86/csvgraph/pkg/model"
	"github.com/vanderheijden86/csvgraph/pkg/normalize"
)

// DefaultChunkSize is the number of node records processed per chunk.
const DefaultChunkSize = 100

// Progress is reported after every completed chunk.
type Progress struct {
	Done  int // chunks completed
	Total int // total chunks
	Nodes int // nodes in the graph so far
	Edges int // edges in the graph so far
}

// Fraction returns Done/Total in [0,1].
func (p Progress) Fraction() float64 {
	if p.Total == 0 {
		return 1
	}
	return float64(p.Done) / float64(p.Total)
}

// BuildStats summarizes one Build call.
type BuildStats struct {
	Chunks        int
	NodesAdded    int
	EdgesAttached int
	EdgesDropped  int      // never resolved: an endpoint id is absent from the node set
	Pruned        []string // isolated node ids removed after the last chunk
}

// Builder constructs a Graph from normalized records in bounded chunks.
type Builder struct {
	// ChunkSize is the number of node records per chunk. Values <= 0 use
	// DefaultChunkSize.
	ChunkSize int

	// Colors resolves node categories to display colors. When nil a fresh
	// map with the default palette is used.
	Colors *normalize.TypeColorMap

	// PruneIsolated removes nodes with no incident edge after the last chunk.
	PruneIsolated bool

	// OnChunk observes the partially built graph after each chunk.
	OnChunk func(*Graph)

	// OnProgress is called after each chunk with the chunk counter.
	OnProgress func(Progress)

	// Handoff receives the finished, non-empty graph (typically to run a
	// layout). Its error is returned from Build with the graph.
	Handoff func(context.Context, *Graph) error
}

// pendingIndex maps a node id to the edges waiting on it.
type pendingIndex struct {
	byNode   map[string][]int
	attached []bool
}

func newPendingIndex(edges []model.ConsolidatedEdge) *pendingIndex {
	idx := &pendingIndex{
		byNode:   make(map[string][]int, len(edges)),
		attached: make([]bool, len(edges)),
	}
	for i, e := range edges {
		idx.byNode[e.Source] = append(idx.byNode[e.Source], i)
		if e.Target != e.Source {
			idx.byNode[e.Target] = append(idx.byNode[e.Target], i)
		}
	}
	return idx
}

// candidates returns the unattached edge indexes touching any of ids, in
// edge list order.
func (p *pendingIndex) candidates(ids []string) []int {
	seen := make(map[int]bool)
	var out []int
	for _, id := range ids {
		for _, i := range p.byNode[id] {
			if p.attached[i] || seen[i] {
				continue
			}
			seen[i] = true
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}

// Build partitions nodes into ceil(N/ChunkSize) ordered chunks. For each
// chunk it merges the chunk's nodes into the graph, attaches every pending
// edge whose endpoints both exist by now and reports progress. Edges whose
// endpoints never both appear are dropped without error.
//
// The context is checked before each chunk; on cancellation the partial graph
// is returned with the context error.
func (b *Builder) Build(ctx context.Context, nodes []model.NodeRecord, edges []model.ConsolidatedEdge) (*Graph, BuildStats, error) {
	defer metrics.Timer(metrics.GraphBuild)()

	size := b.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	colors := b.Colors
	if colors == nil {
		colors = normalize.NewTypeColorMap(nil)
	}

	g := New()
	var stats BuildStats
	if len(nodes) == 0 {
		stats.EdgesDropped = len(edges)
		return g, stats, nil
	}

	total := (len(nodes) + size - 1) / size
	stats.Chunks = total
	pending := newPendingIndex(edges)

	for chunk := 0; chunk < total; chunk++ {
		if err := ctx.Err(); err != nil {
			return g, stats, fmt.Errorf("build interrupted at chunk %d/%d: %w", chunk, total, err)
		}

		lo := chunk * size
		hi := min(lo+size, len(nodes))

		ids := make([]string, 0, hi-lo)
		for _, rec := range nodes[lo:hi] {
			if _, created := g.AddNode(rec, colors.Assign(rec.Category())); created {
				stats.NodesAdded++
			}
			ids = append(ids, rec.ID)
		}

		for _, i := range pending.candidates(ids) {
			if _, ok := g.AddEdge(edges[i]); ok {
				pending.attached[i] = true
				stats.EdgesAttached++
				continue
			}
			// A duplicate key is settled for good; a missing endpoint may
			// still arrive in a later chunk.
			if _, dup := g.Edge(edges[i].Key()); dup {
				pending.attached[i] = true
			}
		}

		if b.OnChunk != nil {
			b.OnChunk(g)
		}
		if b.OnProgress != nil {
			b.OnProgress(Progress{
				Done:  chunk + 1,
				Total: total,
				Nodes: g.NodeCount(),
				Edges: g.EdgeCount(),
			})
		}
		debug.Log("build: chunk %d/%d nodes=%d edges=%d", chunk+1, total, g.NodeCount(), g.EdgeCount())
	}

	stats.EdgesDropped = len(edges) - stats.EdgesAttached

	if b.PruneIsolated {
		stats.Pruned = g.PruneIsolated()
		debug.LogIf(len(stats.Pruned) > 0, "build: pruned %d isolated nodes", len(stats.Pruned))
	}

	if b.Handoff != nil && g.NodeCount() > 0 {
		if err := b.Handoff(ctx, g); err != nil {
			return g, stats, fmt.Errorf("layout handoff: %w", err)
		}
	}
	return g, stats, nil
}
