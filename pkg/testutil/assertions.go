package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vanderheijden86/csvgraph/pkg/graph"
	"github.com/vanderheijden86/csvgraph/pkg/model"
)

// AssertGraphSize checks the node and edge counts of g.
func AssertGraphSize(t testing.TB, g *graph.Graph, nodes, edges int) {
	t.Helper()
	if n, e := g.NodeCount(), g.EdgeCount(); n != nodes || e != edges {
		t.Errorf("graph has %d nodes / %d edges, want %d / %d", n, e, nodes, edges)
	}
}

// AssertNode checks that id exists with the given category and label.
func AssertNode(t testing.TB, g *graph.Graph, id, category, label string) {
	t.Helper()
	n, ok := g.Node(id)
	switch {
	case !ok:
		t.Errorf("node %s not found", id)
	case n.Category() != category || n.Label() != label:
		t.Errorf("node %s = (%s, %q), want (%s, %q)", id, n.Category(), n.Label(), category, label)
	}
}

// AssertEdge checks that source -> target exists and was seen count times.
func AssertEdge(t testing.TB, g *graph.Graph, source, target string, count int) {
	t.Helper()
	e, ok := g.Edge(model.EdgeKey{Source: source, Target: target})
	switch {
	case !ok:
		t.Errorf("edge %s -> %s not found", source, target)
	case e.Count() != count:
		t.Errorf("edge %s -> %s count = %d, want %d", source, target, e.Count(), count)
	}
}

// WriteFixture writes nodes.csv and edges.csv into a fresh temp dir.
func WriteFixture(t testing.TB, nodes []model.NodeRecord, edges []model.EdgeRecord) (nodesPath, edgesPath string) {
	t.Helper()
	nodesPath, edgesPath, err := WriteCSV(t.TempDir(), nodes, edges)
	if err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return nodesPath, edgesPath
}

// WriteFile writes content to dir/name and returns the path.
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}
