package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vanderheijden86/csvgraph/pkg/graph"
	"github.com/vanderheijden86/csvgraph/pkg/legend"
	"github.com/vanderheijden86/csvgraph/pkg/model"
)

func TestGenerateMarkdown(t *testing.T) {
	g, l := sampleGraph()
	md, err := GenerateMarkdown(MarkdownOptions{
		Title:   "Social",
		Graph:   g,
		Legend:  l,
		Summary: []SummaryRow{{Metric: "Layout", Value: "organic | seeded"}},
		Now:     time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		"# Social\n",
		"*Generated: Fri, 02 Jan 2026 03:04:05 UTC*",
		"| **Nodes** | 5 |",
		"| **Edges** | 3 |",
		`| Layout | organic \| seeded |`,
		"## Legend",
		"- [person](#person)",
		"```mermaid\ngraph LR\n",
		`<a id="place"></a>`,
		"Color `#4e79a7`, 3 nodes.",
		"| `alice` | Alice | 2 |",
		"| `widget` | No Label | 0 |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}

	// sections follow legend order
	if strings.Index(md, "## person") > strings.Index(md, "## place") {
		t.Error("type sections out of legend order")
	}
}

func TestGenerateMarkdown_LargeGraphOmitsDiagram(t *testing.T) {
	g := graph.New()
	for i := 0; i <= MaxMermaidNodes; i++ {
		g.AddNode(model.NodeRecord{ID: fmt.Sprintf("n%d", i)}, "#000000")
	}
	md, err := GenerateMarkdown(MarkdownOptions{Graph: g, Legend: legend.FromGraph(g)})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(md, "```mermaid") {
		t.Error("diagram should be omitted above the node limit")
	}
	if !strings.Contains(md, "Diagram omitted: 301 nodes") {
		t.Error("missing omission note")
	}
	if !strings.HasPrefix(md, "# Graph Report\n") {
		t.Error("default title not used")
	}
}

func TestGenerateMarkdown_EmptyGraph(t *testing.T) {
	md, err := GenerateMarkdown(MarkdownOptions{Graph: graph.New()})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(md, "Table of Contents") {
		t.Error("empty legend should not produce a TOC")
	}
	if !strings.Contains(md, "| **Nodes** | 0 |") {
		t.Error("summary should still render")
	}
	if _, err := GenerateMarkdown(MarkdownOptions{}); err == nil {
		t.Error("nil graph should fail")
	}
}

func TestSaveMarkdownToFile(t *testing.T) {
	g, l := sampleGraph()
	path := filepath.Join(t.TempDir(), "report.md")
	if err := SaveMarkdownToFile(path, MarkdownOptions{Graph: g, Legend: l}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil || !strings.Contains(string(data), "## thing") {
		t.Errorf("report not written: %v", err)
	}
}

func TestSlugs(t *testing.T) {
	counts := make(map[string]int)
	got := []string{
		uniqueSlug(createSlug("Person"), counts),
		uniqueSlug(createSlug("person!"), counts),
		uniqueSlug(createSlug("No Type"), counts),
		uniqueSlug(createSlug("???"), counts),
		uniqueSlug(createSlug("PERSON"), counts),
	}
	want := []string{"person", "person-1", "no-type", "section", "person-2"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("slug %d = %q, want %q", i, got[i], want[i])
		}
	}
}
