package export

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanderheijden86/csvgraph/pkg/graph"
	"github.com/vanderheijden86/csvgraph/pkg/layout"
	"github.com/vanderheijden86/csvgraph/pkg/model"
)

func TestSaveSnapshot_SVGAndPNG(t *testing.T) {
	g, l := sampleGraph()
	tmp := t.TempDir()

	cases := []struct {
		name  string
		file  string
		magic string
	}{
		{"svg", "graph.svg", "<?xml"},
		{"png", "nested/graph.png", "\x89PNG"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := filepath.Join(tmp, tc.file)
			if err := SaveSnapshot(SnapshotOptions{Path: out, Graph: g, Legend: l, Title: "People"}); err != nil {
				t.Fatalf("SaveSnapshot error: %v", err)
			}
			data, err := os.ReadFile(out)
			if err != nil {
				t.Fatalf("output not created: %v", err)
			}
			if !bytes.HasPrefix(data, []byte(tc.magic)) {
				t.Errorf("output starts with %q, want %q", data[:min(8, len(data))], tc.magic)
			}
		})
	}
}

func TestSaveSnapshot_FormatResolution(t *testing.T) {
	g, l := sampleGraph()
	tmp := t.TempDir()

	noExt := filepath.Join(tmp, "graph")
	if err := SaveSnapshot(SnapshotOptions{Path: noExt, Graph: g, Legend: l}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(noExt + ".svg"); err != nil {
		t.Errorf("missing extension should default to svg: %v", err)
	}

	explicit := filepath.Join(tmp, "out.img")
	if err := SaveSnapshot(SnapshotOptions{Path: explicit, Format: "PNG", Graph: g}); err != nil {
		t.Fatal(err)
	}

	err := SaveSnapshot(SnapshotOptions{Path: filepath.Join(tmp, "graph.txt"), Graph: g})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("txt: err = %v, want ErrUnsupportedFormat", err)
	}
	err = SaveSnapshot(SnapshotOptions{Path: explicit, Format: "gif", Graph: g})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("gif: err = %v, want ErrUnsupportedFormat", err)
	}
	if err := SaveSnapshot(SnapshotOptions{Path: explicit}); err == nil {
		t.Error("nil graph should fail")
	}
	if err := SaveSnapshot(SnapshotOptions{Graph: g}); err == nil {
		t.Error("empty path should fail")
	}
}

func TestWriteSVG_Content(t *testing.T) {
	g, l := sampleGraph()
	var buf bytes.Buffer
	if err := WriteSVG(&buf, SnapshotOptions{Graph: g, Legend: l, Title: "People & Places"}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, want := range []string{
		`data-id="alice"`,
		`data-type="place"`,
		`data-source="alice"`,
		"Legend",
		"person (3)",
		"nodes: 5  edges: 3  types: 3",
		"People &amp; Places",
		"Bob &lt;admin&gt;",
		"alice -&gt; bob (knows) x2",
		"fill:#4e79a7",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("SVG missing %q", want)
		}
	}
	if strings.Contains(out, "Bob <admin>") {
		t.Error("label not escaped")
	}
}

func TestWriteSVG_UsesPositions(t *testing.T) {
	g := graph.New()
	g.AddNode(nodeRec("left"), "#000000")
	g.AddNode(nodeRec("right"), "#ffffff")
	pos := layout.Positions{"left": {X: 0}, "right": {X: 100}}

	sc, err := buildScene(SnapshotOptions{Graph: g, Positions: pos, Width: 1000, Height: 700})
	if err != nil {
		t.Fatal(err)
	}
	if sc.Nodes[0].X >= sc.Nodes[1].X {
		t.Errorf("left at %f, right at %f", sc.Nodes[0].X, sc.Nodes[1].X)
	}
	if sc.Width != 1000 || sc.Title != "Graph Snapshot" {
		t.Errorf("scene = %dx%d %q", sc.Width, sc.Height, sc.Title)
	}
	if sc.Nodes[0].Text != colorLight || sc.Nodes[1].Text != colorText {
		t.Error("text color should contrast with the fill")
	}
}

func TestWriteSVG_SelfLoop(t *testing.T) {
	g := graph.New()
	g.AddNode(nodeRec("solo"), "#4e79a7")
	g.AddEdge(model.ConsolidatedEdge{Source: "solo", Target: "solo", EdgeType: "self", Count: 1})

	var buf bytes.Buffer
	if err := WriteSVG(&buf, SnapshotOptions{Graph: g}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, `data-source="solo" data-target="solo"`) || !strings.Contains(out, `r="11"`) {
		t.Errorf("self loop not drawn as a small circle:\n%s", out)
	}

	if err := SaveSnapshot(SnapshotOptions{Path: filepath.Join(t.TempDir(), "loop.png"), Graph: g}); err != nil {
		t.Errorf("png with self loop: %v", err)
	}
}

func TestWriteSVG_EmptyGraph(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSVG(&buf, SnapshotOptions{Graph: graph.New()}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "nodes: 0  edges: 0  types: 0") {
		t.Error("empty graph should still render the summary block")
	}
}

func TestEdgeWidth(t *testing.T) {
	if edgeWidth(1) != 1.5 || edgeWidth(0) != 1.5 {
		t.Error("single edge width should be 1.5")
	}
	if edgeWidth(4) != 3.5 {
		t.Errorf("edgeWidth(4) = %f, want 3.5", edgeWidth(4))
	}
	if edgeWidth(1<<20) != 7 {
		t.Error("edge width should be capped at 7")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"a long label", 8, "a lon..."},
		{"abc", 2, "ab"},
		{"日本語ラベル", 7, "日本..."},
		{"x", 0, ""},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}
