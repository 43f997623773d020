// Package analysis computes structural metrics of a loaded graph: degrees,
// PageRank, betweenness, k-cores, cut vertices, connected components and
// groups of nodes that reach each other through directed cycles.
package analysis

import (
	"context"
	"fmt"
	"sort"
	"time"

	gonum "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/vanderheijden86/csvgraph/pkg/graph"
	"github.com/vanderheijden86/csvgraph/pkg/metrics"
)

// Metric states reported in MetricStatus.
const (
	StateComputed = "computed"
	StateSkipped  = "skipped"
	StateTimeout  = "timeout"
	StateFailed   = "failed"
)

// StatusEntry records how one metric was computed.
type StatusEntry struct {
	State   string        `json:"state"`
	Reason  string        `json:"reason,omitempty"`
	Elapsed time.Duration `json:"elapsed_ns,omitempty"`
}

// MetricStatus holds the outcome of every optional metric.
type MetricStatus struct {
	PageRank    StatusEntry `json:"pagerank"`
	Betweenness StatusEntry `json:"betweenness"`
	Structure   StatusEntry `json:"structure"`
	Cycles      StatusEntry `json:"cycles"`
}

// Stats holds the results of one analysis. Node lists follow graph order.
type Stats struct {
	NodeCount int     `json:"nodes"`
	EdgeCount int     `json:"edges"`
	Density   float64 `json:"density"`

	InDegree  map[string]int `json:"in_degree"`
	OutDegree map[string]int `json:"out_degree"`

	// Components are the weakly connected components, largest first.
	Components [][]string `json:"components"`

	PageRank     map[string]float64 `json:"pagerank,omitempty"`
	Betweenness  map[string]float64 `json:"betweenness,omitempty"`
	CoreNumber   map[string]int     `json:"core_number,omitempty"`
	Articulation []string           `json:"articulation,omitempty"`

	// Cycles are strongly connected groups of two or more nodes.
	Cycles [][]string `json:"cycles,omitempty"`

	Status MetricStatus `json:"status"`
}

// Degree returns the number of edges touching id, ignoring self loops.
func (s *Stats) Degree(id string) int {
	return s.InDegree[id] + s.OutDegree[id]
}

// LargestComponent returns the size of the biggest component.
func (s *Stats) LargestComponent() int {
	if len(s.Components) == 0 {
		return 0
	}
	return len(s.Components[0])
}

// Analyzer mirrors a graph into gonum graphs once so several analyses
// can share them.
type Analyzer struct {
	ids        []string
	byID       map[string]int64
	directed   *simple.DirectedGraph
	undirected *simple.UndirectedGraph
	edges      int
}

// NewAnalyzer indexes g. Self loops are dropped since simple graphs
// reject them; the graph is not retained.
func NewAnalyzer(g *graph.Graph) *Analyzer {
	nodes := g.Nodes()
	a := &Analyzer{
		ids:        make([]string, len(nodes)),
		byID:       make(map[string]int64, len(nodes)),
		directed:   simple.NewDirectedGraph(),
		undirected: simple.NewUndirectedGraph(),
	}
	for i, n := range nodes {
		a.ids[i] = n.ID
		a.byID[n.ID] = int64(i)
		a.directed.AddNode(simple.Node(int64(i)))
		a.undirected.AddNode(simple.Node(int64(i)))
	}
	for _, e := range g.Edges() {
		u, v := a.byID[e.Source.ID], a.byID[e.Target.ID]
		if u == v {
			continue
		}
		a.directed.SetEdge(simple.Edge{F: simple.Node(u), T: simple.Node(v)})
		a.undirected.SetEdge(simple.Edge{F: simple.Node(u), T: simple.Node(v)})
		a.edges++
	}
	return a
}

// Analyze computes every metric cfg enables. A metric that exceeds its
// timeout is reported in Status and left empty; the rest still complete.
// Cancelling ctx aborts the whole analysis.
func (a *Analyzer) Analyze(ctx context.Context, cfg Config) (*Stats, error) {
	defer metrics.Timer(metrics.Analysis)()
	n := len(a.ids)
	stats := &Stats{
		NodeCount: n,
		EdgeCount: a.edges,
		InDegree:  make(map[string]int, n),
		OutDegree: make(map[string]int, n),
	}
	if n > 1 {
		stats.Density = float64(a.edges) / float64(n*(n-1))
	}
	for i, id := range a.ids {
		stats.InDegree[id] = a.directed.To(int64(i)).Len()
		stats.OutDegree[id] = a.directed.From(int64(i)).Len()
	}
	stats.Components = a.groups(topo.ConnectedComponents(a.undirected), 1)

	if n == 0 {
		skip := StatusEntry{State: StateSkipped, Reason: "empty graph"}
		stats.Status = MetricStatus{PageRank: skip, Betweenness: skip, Structure: skip, Cycles: skip}
		return stats, nil
	}

	if cfg.ComputePageRank {
		pr, st, err := timed(ctx, cfg.PageRankTimeout, func() map[int64]float64 {
			return network.PageRank(a.directed, 0.85, 1e-6)
		})
		if err != nil {
			return nil, err
		}
		stats.PageRank = a.scores(pr)
		stats.Status.PageRank = st
	} else {
		stats.Status.PageRank = StatusEntry{State: StateSkipped}
	}

	if cfg.ComputeBetweenness {
		bw, st, err := timed(ctx, cfg.BetweennessTimeout, func() map[int64]float64 {
			return network.Betweenness(a.undirected)
		})
		if err != nil {
			return nil, err
		}
		if st.State == StateComputed {
			// gonum omits nodes with zero betweenness
			stats.Betweenness = a.scores(bw)
		}
		stats.Status.Betweenness = st
	} else {
		stats.Status.Betweenness = StatusEntry{State: StateSkipped, Reason: cfg.BetweennessSkipReason}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.ComputeStructure {
		start := time.Now()
		core := coreNumbers(a.undirected)
		stats.CoreNumber = make(map[string]int, n)
		for id, k := range core {
			stats.CoreNumber[a.ids[id]] = k
		}
		for id := range cutVertices(a.undirected) {
			stats.Articulation = append(stats.Articulation, a.ids[id])
		}
		a.sortIDs(stats.Articulation)
		stats.Status.Structure = StatusEntry{State: StateComputed, Elapsed: time.Since(start)}
	} else {
		stats.Status.Structure = StatusEntry{State: StateSkipped}
	}

	if cfg.ComputeCycles {
		start := time.Now()
		stats.Cycles = a.groups(topo.TarjanSCC(a.directed), 2)
		sort.SliceStable(stats.Cycles, func(i, j int) bool {
			return a.byID[stats.Cycles[i][0]] < a.byID[stats.Cycles[j][0]]
		})
		st := StatusEntry{State: StateComputed}
		if limit := cfg.MaxCyclesToStore; limit > 0 && len(stats.Cycles) > limit {
			st.Reason = fmt.Sprintf("kept %d of %d groups", limit, len(stats.Cycles))
			stats.Cycles = stats.Cycles[:limit]
		}
		st.Elapsed = time.Since(start)
		stats.Status.Cycles = st
	} else {
		stats.Status.Cycles = StatusEntry{State: StateSkipped}
	}

	return stats, nil
}

// Analyze is a shorthand for NewAnalyzer(g).Analyze with a config sized
// to g.
func Analyze(ctx context.Context, g *graph.Graph) (*Stats, error) {
	return NewAnalyzer(g).Analyze(ctx, ConfigForSize(g.NodeCount(), g.EdgeCount()))
}

// timed runs fn in its own goroutine and gives up after d. A panic in fn
// is reported as a failed metric.
func timed(ctx context.Context, d time.Duration, fn func() map[int64]float64) (map[int64]float64, StatusEntry, error) {
	start := time.Now()
	type outcome struct {
		scores map[int64]float64
		panic  any
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{panic: r}
			}
		}()
		done <- outcome{scores: fn()}
	}()

	if d <= 0 {
		d = 500 * time.Millisecond
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, StatusEntry{}, ctx.Err()
	case <-timer.C:
		return nil, StatusEntry{State: StateTimeout, Reason: fmt.Sprintf("exceeded %v", d), Elapsed: time.Since(start)}, nil
	case o := <-done:
		if o.panic != nil {
			return nil, StatusEntry{State: StateFailed, Reason: fmt.Sprint(o.panic), Elapsed: time.Since(start)}, nil
		}
		return o.scores, StatusEntry{State: StateComputed, Elapsed: time.Since(start)}, nil
	}
}

// scores maps gonum ids back to node ids. Every node gets an entry.
func (a *Analyzer) scores(in map[int64]float64) map[string]float64 {
	if in == nil {
		return nil
	}
	out := make(map[string]float64, len(a.ids))
	for i, id := range a.ids {
		out[id] = in[int64(i)]
	}
	return out
}

// groups converts gonum node sets of at least minSize nodes to id lists in
// graph order, largest group first.
func (a *Analyzer) groups(sets [][]gonum.Node, minSize int) [][]string {
	var out [][]string
	for _, set := range sets {
		if len(set) < minSize {
			continue
		}
		ids := make([]string, len(set))
		for i, n := range set {
			ids[i] = a.ids[n.ID()]
		}
		a.sortIDs(ids)
		out = append(out, ids)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return a.byID[out[i][0]] < a.byID[out[j][0]]
	})
	return out
}

func (a *Analyzer) sortIDs(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		return a.byID[ids[i]] < a.byID[ids[j]]
	})
}

// Ranked is one node with its score.
type Ranked struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Top returns the n highest scores, ties broken by id. n <= 0 returns all.
func Top(scores map[string]float64, n int) []Ranked {
	out := make([]Ranked, 0, len(scores))
	for id, s := range scores {
		out = append(out, Ranked{ID: id, Score: s})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
