package session_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/vanderheijden86/csvgraph/pkg/graph"
	"github.com/vanderheijden86/csvgraph/pkg/layout"
	"github.com/vanderheijden86/csvgraph/pkg/model"
	"github.com/vanderheijden86/csvgraph/pkg/session"
	"github.com/vanderheijden86/csvgraph/pkg/testutil"
)

const nodesCSV = `id,type,label
p1,person,Ada
p2,person,Grace
c1,city,London
p1,scientist,Ada Lovelace
x9,,
`

const edgesCSV = `source,target,edge_type
p1,p2,knows
p1,p2,admires
p2,c1,lives_in
p1,ghost,haunts
c1,p1
`

func writeInputs(t *testing.T) session.Request {
	t.Helper()
	dir := t.TempDir()
	return session.Request{
		NodesPath: testutil.WriteFile(t, dir, "nodes.csv", nodesCSV),
		EdgesPath: testutil.WriteFile(t, dir, "edges.csv", edgesCSV),
	}
}

func newSession(t *testing.T, opts session.Options) *session.Session {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = zaptest.NewLogger(t)
	}
	s, err := session.New(opts)
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	return s
}

func TestLoad_FullPipeline(t *testing.T) {
	var progress []graph.Progress
	s := newSession(t, session.Options{
		ChunkSize:  2,
		Algorithm:  layout.Circular,
		OnProgress: func(p graph.Progress) { progress = append(progress, p) },
	})

	res, err := s.Load(context.Background(), writeInputs(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	st := res.Stats
	if st.RawNodes != 5 || st.Nodes != 4 {
		t.Errorf("nodes raw=%d final=%d, want 5/4", st.RawNodes, st.Nodes)
	}
	if st.RawEdges != 5 || st.Edges != 3 || st.EdgesDropped != 1 {
		t.Errorf("edges raw=%d final=%d dropped=%d, want 5/3/1", st.RawEdges, st.Edges, st.EdgesDropped)
	}
	if st.Chunks != 2 || len(progress) != 2 {
		t.Errorf("chunks=%d progress=%d, want 2/2", st.Chunks, len(progress))
	}

	// p1 keeps its first position and takes its last record
	if first := res.Graph.Nodes()[0]; first.ID != "p1" {
		t.Errorf("first node = %s, want p1", first.ID)
	}
	testutil.AssertNode(t, res.Graph, "p1", "scientist", "Ada Lovelace")
	testutil.AssertEdge(t, res.Graph, "p1", "p2", 2)
	if e, _ := res.Graph.Edge(model.EdgeKey{Source: "p1", Target: "p2"}); e.Record.EdgeType != "knows" {
		t.Errorf("edge type = %q, want first occurrence", e.Record.EdgeType)
	}

	wantLegend := []string{"scientist", "person", "city", model.NoType}
	if res.Legend.Len() != len(wantLegend) {
		t.Fatalf("legend = %+v", res.Legend.Entries)
	}
	for i, cat := range wantLegend {
		if res.Legend.Entries[i].Category != cat {
			t.Errorf("legend[%d] = %q, want %q", i, res.Legend.Entries[i].Category, cat)
		}
	}

	if len(res.Positions) != 4 || res.LayoutErr != nil {
		t.Errorf("positions=%d layoutErr=%v", len(res.Positions), res.LayoutErr)
	}
	if res.Token == "" {
		t.Error("token not set")
	}
	if s.Last() != res {
		t.Error("Last should return the latest result")
	}
	if l, v := s.Panel().Current(); v != 1 || l.Len() != 4 {
		t.Errorf("panel version=%d len=%d", v, l.Len())
	}
	if s.Loading() {
		t.Error("Loading should be false after Load returns")
	}
}

func TestLoad_PruneIsolated(t *testing.T) {
	s := newSession(t, session.Options{PruneIsolated: true, Algorithm: layout.Hierarchic})
	res, err := s.Load(context.Background(), writeInputs(t))
	if err != nil {
		t.Fatal(err)
	}
	if res.Stats.Pruned != 1 {
		t.Errorf("pruned = %d, want 1 (x9)", res.Stats.Pruned)
	}
	if _, ok := res.Legend.Lookup(model.NoType); ok {
		t.Error("pruned category should not appear in the legend")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	req := writeInputs(t)
	s := newSession(t, session.Options{})

	tests := []session.Request{
		{NodesPath: "", EdgesPath: req.EdgesPath},
		{NodesPath: req.NodesPath, EdgesPath: filepath.Join(t.TempDir(), "nope.csv")},
		{NodesPath: filepath.Dir(req.NodesPath), EdgesPath: req.EdgesPath},
	}
	for _, r := range tests {
		res, err := s.Load(context.Background(), r)
		if !errors.Is(err, session.ErrMissingFile) || res != nil {
			t.Errorf("Load(%+v) = %v, %v; want ErrMissingFile", r, res, err)
		}
	}
	if s.Last() != nil {
		t.Error("failed loads must not publish a result")
	}
	if _, v := s.Panel().Current(); v != 0 {
		t.Error("failed loads must not touch the legend panel")
	}
}

func TestLoad_InProgress(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	s := newSession(t, session.Options{
		Engine: layout.EngineFunc(func(ctx context.Context, g *graph.Graph) (layout.Positions, error) {
			close(started)
			<-release
			return layout.Positions{}, nil
		}),
	})
	req := writeInputs(t)

	done := make(chan error, 1)
	go func() {
		_, err := s.Load(context.Background(), req)
		done <- err
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("first load never reached layout")
	}
	if !s.Loading() {
		t.Error("Loading should be true during a load")
	}
	if _, err := s.Load(context.Background(), req); !errors.Is(err, session.ErrLoadInProgress) {
		t.Errorf("concurrent Load err = %v, want ErrLoadInProgress", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first load: %v", err)
	}
	if s.Loading() {
		t.Error("guard not released after the load finished")
	}
}

func TestLoad_LayoutFailureKeepsGraph(t *testing.T) {
	boom := errors.New("no room")
	tests := map[string]layout.Engine{
		"error": layout.EngineFunc(func(context.Context, *graph.Graph) (layout.Positions, error) {
			return nil, boom
		}),
		"panic": layout.EngineFunc(func(context.Context, *graph.Graph) (layout.Positions, error) {
			panic("engine exploded")
		}),
	}
	for name, eng := range tests {
		t.Run(name, func(t *testing.T) {
			s := newSession(t, session.Options{Engine: eng})
			res, err := s.Load(context.Background(), writeInputs(t))
			if err != nil {
				t.Fatalf("layout failure should not fail the load: %v", err)
			}
			if res.LayoutErr == nil || res.Positions != nil {
				t.Errorf("LayoutErr=%v positions=%v", res.LayoutErr, res.Positions)
			}
			if name == "error" && !errors.Is(res.LayoutErr, boom) {
				t.Errorf("LayoutErr = %v, want boom", res.LayoutErr)
			}
			if res.Graph.NodeCount() != 4 || res.Legend.Len() != 4 {
				t.Error("graph and legend should survive a layout failure")
			}
		})
	}
}

func TestLoad_EmptyInputs(t *testing.T) {
	dir := t.TempDir()
	req := session.Request{
		NodesPath: testutil.WriteFile(t, dir, "nodes.csv", ""),
		EdgesPath: testutil.WriteFile(t, dir, "edges.csv", "source,target\n"),
	}
	called := false
	s := newSession(t, session.Options{
		Engine: layout.EngineFunc(func(context.Context, *graph.Graph) (layout.Positions, error) {
			called = true
			return nil, nil
		}),
	})
	res, err := s.Load(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if called {
		t.Error("layout should not run on an empty graph")
	}
	testutil.AssertGraphSize(t, res.Graph, 0, 0)
	if res.Legend.Len() != 0 || res.Positions != nil {
		t.Errorf("legend=%d positions=%v", res.Legend.Len(), res.Positions)
	}
}

func TestLoad_ReplacesLegendAndColors(t *testing.T) {
	s := newSession(t, session.Options{Algorithm: layout.Circular})
	dir := t.TempDir()
	edges := testutil.WriteFile(t, dir, "edges.csv", "source,target\n")

	first := testutil.WriteFile(t, dir, "a.csv", "id,type\n1,alpha\n2,beta\n")
	res1, err := s.Load(context.Background(), session.Request{NodesPath: first, EdgesPath: edges})
	if err != nil {
		t.Fatal(err)
	}

	second := testutil.WriteFile(t, dir, "b.csv", "id,type\n1,beta\n")
	res2, err := s.Load(context.Background(), session.Request{NodesPath: second, EdgesPath: edges})
	if err != nil {
		t.Fatal(err)
	}

	if res1.Token == res2.Token {
		t.Error("each load should get its own token")
	}
	l, v := s.Panel().Current()
	if v != 2 || l.Len() != 1 {
		t.Fatalf("panel version=%d entries=%+v", v, l.Entries)
	}
	// a fresh color map per load: beta is first seen, so it takes palette[0]
	c1, _ := res1.Legend.Lookup("alpha")
	c2, _ := l.Lookup("beta")
	if c1 != c2 {
		t.Errorf("beta = %s, want first palette color %s", c2, c1)
	}
}

func TestLoad_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := newSession(t, session.Options{})
	if _, err := s.Load(ctx, writeInputs(t)); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if s.Loading() {
		t.Error("guard not released after a cancelled load")
	}
}

func TestNew_UnknownAlgorithm(t *testing.T) {
	if _, err := session.New(session.Options{Algorithm: "spiral"}); !errors.Is(err, layout.ErrUnknownAlgorithm) {
		t.Errorf("err = %v, want ErrUnknownAlgorithm", err)
	}
}
