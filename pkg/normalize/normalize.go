// Package normalize deduplicates node records, consolidates parallel edge
// records into weighted counts and assigns per-type display colors.
package normalize

import (
	"github.com/vanderheijden86/csvgraph/pkg/debug"
	"github.com/vanderheijden86/csvgraph/pkg/metrics"
	"github.com/vanderheijden86/csvgraph/pkg/model"
)

// Result is the output of Normalize.
type Result struct {
	Nodes  []model.NodeRecord
	Edges  []model.ConsolidatedEdge
	Colors *TypeColorMap

	RawNodes int // rows before dedup
	RawEdges int // rows before consolidation
}

// Normalize deduplicates nodes, consolidates edges and assigns a color to
// every node category in deduplicated order. colors is the session's map;
// a nil map is replaced by a fresh one using DefaultPalette.
func Normalize(nodes []model.NodeRecord, edges []model.EdgeRecord, colors *TypeColorMap) Result {
	defer metrics.Timer(metrics.Normalize)()

	if colors == nil {
		colors = NewTypeColorMap(nil)
	}

	deduped := DedupeNodes(nodes)
	for _, n := range deduped {
		colors.Assign(n.Category())
	}
	consolidated := ConsolidateEdges(edges)

	debug.Log("normalize: %d node rows -> %d nodes, %d edge rows -> %d edges, %d types",
		len(nodes), len(deduped), len(edges), len(consolidated), colors.Len())

	return Result{
		Nodes:    deduped,
		Edges:    consolidated,
		Colors:   colors,
		RawNodes: len(nodes),
		RawEdges: len(edges),
	}
}

// DedupeNodes keys nodes by ID with ordered map semantics: a repeated ID keeps
// the position of its first occurrence and takes the value of its last.
func DedupeNodes(nodes []model.NodeRecord) []model.NodeRecord {
	pos := make(map[string]int, len(nodes))
	out := make([]model.NodeRecord, 0, len(nodes))
	for _, n := range nodes {
		if i, ok := pos[n.ID]; ok {
			out[i] = n
			continue
		}
		pos[n.ID] = len(out)
		out = append(out, n)
	}
	return out
}

// ConsolidateEdges merges edge rows sharing a (source, target) pair into one
// edge. The first occurrence fixes the position and EdgeType; every
// occurrence adds one to Count.
func ConsolidateEdges(edges []model.EdgeRecord) []model.ConsolidatedEdge {
	pos := make(map[model.EdgeKey]int, len(edges))
	out := make([]model.ConsolidatedEdge, 0, len(edges))
	for _, e := range edges {
		key := e.Key()
		if i, ok := pos[key]; ok {
			out[i].Count++
			continue
		}
		pos[key] = len(out)
		out = append(out, model.ConsolidatedEdge{
			Source:   e.Source,
			Target:   e.Target,
			EdgeType: e.EdgeType,
			Count:    1,
		})
	}
	return out
}
