package export

import (
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/csvgraph/pkg/layout"
)

func TestParseGraphExportFormat(t *testing.T) {
	tests := map[string]GraphExportFormat{
		"json":    GraphFormatJSON,
		".JSON":   GraphFormatJSON,
		"dot":     GraphFormatDOT,
		"gv":      GraphFormatDOT,
		"mermaid": GraphFormatMermaid,
		".mmd":    GraphFormatMermaid,
	}
	for in, want := range tests {
		got, err := ParseGraphExportFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseGraphExportFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseGraphExportFormat("xlsx"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("xlsx: err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestExportGraph_JSON(t *testing.T) {
	g, l := sampleGraph()
	positions := layout.Positions{"alice": {X: 1, Y: 2}}

	result, err := ExportGraph(g, positions, l, GraphExportConfig{})
	if err != nil {
		t.Fatalf("ExportGraph failed: %v", err)
	}
	if result.Format != "json" {
		t.Errorf("format = %q, want json", result.Format)
	}
	if result.Nodes != 5 || result.Edges != 3 {
		t.Errorf("nodes=%d edges=%d, want 5/3", result.Nodes, result.Edges)
	}
	if result.Adjacency == nil {
		t.Fatal("adjacency should be set for json")
	}

	alice := result.Adjacency.Nodes[0]
	if alice.X == nil || *alice.X != 1 || *alice.Y != 2 {
		t.Errorf("alice position = %v,%v", alice.X, alice.Y)
	}
	if result.Adjacency.Nodes[1].X != nil {
		t.Error("bob has no position and should omit x")
	}
	if widget := result.Adjacency.Nodes[3]; widget.Label != "No Label" || widget.Type != "thing" {
		t.Errorf("widget = %+v", widget)
	}
	if e := result.Adjacency.Edges[0]; e.From != "alice" || e.To != "bob" || e.Count != 2 || e.Type != "knows" {
		t.Errorf("first edge = %+v", e)
	}

	body, err := result.Body()
	if err != nil {
		t.Fatal(err)
	}
	var decoded GraphExportResult
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if len(decoded.Legend) != 3 || decoded.Legend[0].Category != "person" || decoded.Legend[0].Count != 3 {
		t.Errorf("legend = %+v", decoded.Legend)
	}
}

func TestExportGraph_DOT(t *testing.T) {
	g, l := sampleGraph()
	result, err := ExportGraph(g, nil, l, GraphExportConfig{Format: GraphFormatDOT})
	if err != nil {
		t.Fatal(err)
	}
	dot := result.Graph
	for _, want := range []string{
		"digraph G {",
		`"alice" [label="Alice\nperson", fillcolor="#4e79a7"];`,
		`"widget" [label="No Label\nthing"`,
		`"alice" -> "bob" [penwidth=2.5, label="knows", weight=2];`,
		`"carol" -> "alice" [penwidth=1.5];`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
	// edges are sorted by source then target
	if strings.Index(dot, `"alice" -> "bob"`) > strings.Index(dot, `"bob" -> "paris"`) {
		t.Error("DOT edges not sorted")
	}
	body, _ := result.Body()
	if string(body) != dot {
		t.Error("Body should be the DOT text")
	}
}

func TestExportGraph_Mermaid(t *testing.T) {
	g, l := sampleGraph()
	result, err := ExportGraph(g, nil, l, GraphExportConfig{Format: GraphFormatMermaid})
	if err != nil {
		t.Fatal(err)
	}
	m := result.Graph
	for _, want := range []string{
		"graph LR",
		"classDef t0 fill:#4e79a7",
		`bob["bob<br/>Bob &lt;admin&gt;"]`,
		"class paris t1",
		"alice ==>|knows x2| bob",
		"carol --> alice",
	} {
		if !strings.Contains(m, want) {
			t.Errorf("mermaid missing %q:\n%s", want, m)
		}
	}
}

func TestExportGraph_Filters(t *testing.T) {
	g, l := sampleGraph()

	tests := []struct {
		name      string
		config    GraphExportConfig
		wantNodes int
		wantEdges int
	}{
		{"type is case-insensitive", GraphExportConfig{Type: "PERSON"}, 3, 2},
		{"root depth 1", GraphExportConfig{Root: "bob", Depth: 1}, 3, 2},
		{"root unlimited", GraphExportConfig{Root: "bob"}, 4, 3},
		{"root and type", GraphExportConfig{Root: "bob", Type: "person"}, 3, 2},
		{"root filtered out", GraphExportConfig{Root: "paris", Type: "person"}, 0, 0},
		{"unknown root", GraphExportConfig{Root: "nobody"}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ExportGraph(g, nil, l, tt.config)
			if err != nil {
				t.Fatal(err)
			}
			if result.Nodes != tt.wantNodes || result.Edges != tt.wantEdges {
				t.Errorf("nodes=%d edges=%d, want %d/%d", result.Nodes, result.Edges, tt.wantNodes, tt.wantEdges)
			}
		})
	}

	result, _ := ExportGraph(g, nil, l, GraphExportConfig{Root: "bob", Depth: 1, Type: "person"})
	if result.FiltersApplied["root"] != "bob" || result.FiltersApplied["depth"] != "1" || result.FiltersApplied["type"] != "person" {
		t.Errorf("filters = %v", result.FiltersApplied)
	}
}

func TestExportGraph_Errors(t *testing.T) {
	if _, err := ExportGraph(nil, nil, legendOf(), GraphExportConfig{}); err == nil {
		t.Error("nil graph should fail")
	}
	g, l := sampleGraph()
	if _, err := ExportGraph(g, nil, l, GraphExportConfig{Format: "gexf"}); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestSanitizeMermaidID_Collisions(t *testing.T) {
	g, _ := sampleGraph()
	g.AddNode(nodeRec("a.b"), "")
	g.AddNode(nodeRec("ab"), "")
	g.AddNode(nodeRec("!!!"), "")
	out := GenerateMermaidGraph(g.Nodes(), nil, legendOf())

	if !strings.Contains(out, "    ab[") {
		t.Errorf("first sanitized id should stay plain:\n%s", out)
	}
	if !strings.Contains(out, "    ab_") {
		t.Errorf("colliding id should get a hash suffix:\n%s", out)
	}
	if !strings.Contains(out, "    node[") {
		t.Errorf("empty sanitized id should become node:\n%s", out)
	}
}
