package analysis

import (
	"context"
	"errors"
	"math"
	"slices"
	"testing"
	"time"

	"github.com/vanderheijden86/csvgraph/pkg/graph"
	"github.com/vanderheijden86/csvgraph/pkg/model"
)

// buildGraph adds nodes in order, then every edge as "src>dst".
func buildGraph(ids []string, edges ...[2]string) *graph.Graph {
	g := graph.New()
	for _, id := range ids {
		g.AddNode(model.NodeRecord{ID: id}, "#000000")
	}
	for _, e := range edges {
		g.AddEdge(model.ConsolidatedEdge{Source: e[0], Target: e[1], Count: 1})
	}
	return g
}

// sample is a triangle a-b-c with a tail c-d-e, a self loop on e and an
// isolated f.
func sample() *graph.Graph {
	return buildGraph([]string{"a", "b", "c", "d", "e", "f"},
		[2]string{"a", "b"},
		[2]string{"b", "c"},
		[2]string{"c", "a"},
		[2]string{"c", "d"},
		[2]string{"d", "e"},
		[2]string{"e", "e"},
	)
}

func TestAnalyze_Structure(t *testing.T) {
	stats, err := NewAnalyzer(sample()).Analyze(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	if stats.NodeCount != 6 || stats.EdgeCount != 5 {
		t.Errorf("size = %d/%d, want 6/5 (self loop ignored)", stats.NodeCount, stats.EdgeCount)
	}
	if math.Abs(stats.Density-1.0/6) > 1e-12 {
		t.Errorf("density = %v", stats.Density)
	}
	if stats.InDegree["c"] != 1 || stats.OutDegree["c"] != 2 || stats.Degree("e") != 1 {
		t.Errorf("degrees in=%v out=%v", stats.InDegree, stats.OutDegree)
	}

	wantComponents := [][]string{{"a", "b", "c", "d", "e"}, {"f"}}
	if !slices.EqualFunc(stats.Components, wantComponents, slices.Equal[[]string]) {
		t.Errorf("components = %v", stats.Components)
	}
	if stats.LargestComponent() != 5 {
		t.Errorf("largest = %d", stats.LargestComponent())
	}

	if len(stats.Cycles) != 1 || !slices.Equal(stats.Cycles[0], []string{"a", "b", "c"}) {
		t.Errorf("cycles = %v", stats.Cycles)
	}
	if !slices.Equal(stats.Articulation, []string{"c", "d"}) {
		t.Errorf("articulation = %v", stats.Articulation)
	}

	wantCore := map[string]int{"a": 2, "b": 2, "c": 2, "d": 1, "e": 1, "f": 0}
	for id, k := range wantCore {
		if stats.CoreNumber[id] != k {
			t.Errorf("core[%s] = %d, want %d", id, stats.CoreNumber[id], k)
		}
	}
}

func TestAnalyze_Centrality(t *testing.T) {
	stats, err := NewAnalyzer(sample()).Analyze(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Status.PageRank.State != StateComputed || stats.Status.Betweenness.State != StateComputed {
		t.Fatalf("status = %+v", stats.Status)
	}

	if len(stats.PageRank) != 6 {
		t.Errorf("pagerank has %d entries, want every node", len(stats.PageRank))
	}
	sum := 0.0
	for _, v := range stats.PageRank {
		sum += v
	}
	if math.Abs(sum-1) > 1e-3 {
		t.Errorf("pagerank sums to %v", sum)
	}

	if _, ok := stats.Betweenness["a"]; !ok {
		t.Error("zero betweenness nodes should still have an entry")
	}
	top := Top(stats.Betweenness, 2)
	if top[0].ID != "c" || top[1].ID != "d" {
		t.Errorf("betweenness top = %+v", top)
	}
}

func TestAnalyze_SkippedMetrics(t *testing.T) {
	cfg := Config{BetweennessSkipReason: "off"}
	stats, err := NewAnalyzer(sample()).Analyze(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if stats.PageRank != nil || stats.Betweenness != nil || stats.CoreNumber != nil || stats.Cycles != nil {
		t.Error("disabled metrics should stay empty")
	}
	if stats.Status.Betweenness.State != StateSkipped || stats.Status.Betweenness.Reason != "off" {
		t.Errorf("status = %+v", stats.Status.Betweenness)
	}
	if len(stats.Components) != 2 {
		t.Error("components are always computed")
	}
}

func TestAnalyze_EmptyGraph(t *testing.T) {
	stats, err := Analyze(context.Background(), graph.New())
	if err != nil {
		t.Fatal(err)
	}
	if stats.NodeCount != 0 || stats.LargestComponent() != 0 || stats.Status.PageRank.State != StateSkipped {
		t.Errorf("stats = %+v", stats)
	}
}

func TestAnalyze_CycleLimit(t *testing.T) {
	g := buildGraph([]string{"a", "b", "c", "d"},
		[2]string{"a", "b"}, [2]string{"b", "a"},
		[2]string{"c", "d"}, [2]string{"d", "c"},
	)
	cfg := DefaultConfig()
	cfg.MaxCyclesToStore = 1
	stats, err := NewAnalyzer(g).Analyze(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(stats.Cycles) != 1 || stats.Cycles[0][0] != "a" {
		t.Errorf("cycles = %v", stats.Cycles)
	}
	if stats.Status.Cycles.Reason != "kept 1 of 2 groups" {
		t.Errorf("reason = %q", stats.Status.Cycles.Reason)
	}
}

func TestAnalyze_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewAnalyzer(sample()).Analyze(ctx, DefaultConfig()); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestTimed(t *testing.T) {
	ctx := context.Background()

	_, st, err := timed(ctx, 10*time.Millisecond, func() map[int64]float64 {
		time.Sleep(200 * time.Millisecond)
		return nil
	})
	if err != nil || st.State != StateTimeout {
		t.Errorf("slow fn: state=%q err=%v", st.State, err)
	}

	_, st, err = timed(ctx, time.Second, func() map[int64]float64 { panic("boom") })
	if err != nil || st.State != StateFailed || st.Reason != "boom" {
		t.Errorf("panic: %+v err=%v", st, err)
	}

	got, st, err := timed(ctx, time.Second, func() map[int64]float64 { return map[int64]float64{1: 2} })
	if err != nil || st.State != StateComputed || got[1] != 2 {
		t.Errorf("ok: %+v %v err=%v", st, got, err)
	}
}

func TestTop(t *testing.T) {
	scores := map[string]float64{"b": 1, "a": 1, "c": 3, "d": 0.5}
	got := Top(scores, 3)
	want := []Ranked{{"c", 3}, {"a", 1}, {"b", 1}}
	if !slices.Equal(got, want) {
		t.Errorf("Top = %v, want %v", got, want)
	}
	if len(Top(scores, 0)) != 4 || len(Top(scores, 10)) != 4 || len(Top(nil, 3)) != 0 {
		t.Error("bounds")
	}
}

func TestConfigForSize(t *testing.T) {
	if cfg := ConfigForSize(10, 10); !cfg.ComputeBetweenness || cfg.BetweennessTimeout != 500*time.Millisecond {
		t.Errorf("small = %+v", cfg)
	}
	if cfg := ConfigForSize(2000, 10); cfg.BetweennessTimeout != 2*time.Second {
		t.Errorf("medium = %+v", cfg)
	}
	if cfg := ConfigForSize(6000, 10); cfg.ComputeBetweenness || cfg.BetweennessSkipReason == "" {
		t.Errorf("large = %+v", cfg)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("CSVGRAPH_SKIP_BETWEENNESS", "yes")
	t.Setenv("CSVGRAPH_SKIP_PAGERANK", "true")
	t.Setenv("CSVGRAPH_ANALYSIS_TIMEOUT", "3s")

	cfg := DefaultConfig()
	if cfg.ComputeBetweenness || cfg.ComputePageRank {
		t.Errorf("skips not applied: %+v", cfg)
	}
	if cfg.PageRankTimeout != 3*time.Second || cfg.BetweennessTimeout != 3*time.Second {
		t.Errorf("timeouts = %v/%v", cfg.PageRankTimeout, cfg.BetweennessTimeout)
	}

	t.Setenv("CSVGRAPH_SKIP_PAGERANK", "nope")
	t.Setenv("CSVGRAPH_ANALYSIS_TIMEOUT", "-1s")
	if cfg := DefaultConfig(); !cfg.ComputePageRank || cfg.PageRankTimeout != 500*time.Millisecond {
		t.Errorf("invalid values should be ignored: %+v", cfg)
	}
}
