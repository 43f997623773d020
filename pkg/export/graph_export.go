package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/csvgraph/pkg/graph"
	"github.com/vanderheijden86/csvgraph/pkg/layout"
	"github.com/vanderheijden86/csvgraph/pkg/legend"
)

// GraphExportFormat specifies the output format for text graph export.
type GraphExportFormat string

const (
	GraphFormatJSON    GraphExportFormat = "json"
	GraphFormatDOT     GraphExportFormat = "dot"
	GraphFormatMermaid GraphExportFormat = "mermaid"
)

// ParseGraphExportFormat maps a format name or file extension to a format.
func ParseGraphExportFormat(s string) (GraphExportFormat, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "json":
		return GraphFormatJSON, nil
	case "dot", "gv":
		return GraphFormatDOT, nil
	case "mermaid", "mmd":
		return GraphFormatMermaid, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// GraphExportConfig configures graph export behavior.
type GraphExportConfig struct {
	Format GraphExportFormat // Output format (json, dot, mermaid)
	Type   string            // Keep only nodes of this category
	Root   string            // Subgraph around a specific node
	Depth  int               // Max hops from Root (0 = unlimited)
}

// GraphExportResult contains the exported graph and metadata.
type GraphExportResult struct {
	Format         string            `json:"format"`
	Graph          string            `json:"graph,omitempty"`
	Nodes          int               `json:"nodes"`
	Edges          int               `json:"edges"`
	FiltersApplied map[string]string `json:"filters_applied,omitempty"`
	Legend         []legend.Entry    `json:"legend,omitempty"`
	Adjacency      *AdjacencyGraph   `json:"adjacency,omitempty"`
}

// AdjacencyGraph is the JSON adjacency list representation.
type AdjacencyGraph struct {
	Nodes []AdjacencyNode `json:"nodes"`
	Edges []AdjacencyEdge `json:"edges"`
}

// AdjacencyNode is a node in the adjacency graph.
type AdjacencyNode struct {
	ID    string            `json:"id"`
	Label string            `json:"label"`
	Type  string            `json:"type"`
	Color string            `json:"color"`
	X     *float64          `json:"x,omitempty"`
	Y     *float64          `json:"y,omitempty"`
	Extra map[string]string `json:"extra,omitempty"`
}

// AdjacencyEdge is an edge in the adjacency graph.
type AdjacencyEdge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Type  string `json:"type,omitempty"`
	Count int    `json:"count"`
}

// ExportGraph renders g as text in the configured format. positions are
// optional and only used by the json format.
func ExportGraph(g *graph.Graph, positions layout.Positions, l legend.Legend, config GraphExportConfig) (*GraphExportResult, error) {
	if g == nil {
		return nil, fmt.Errorf("graph is required for export")
	}
	nodes, edges := filterGraph(g, config)

	filtersApplied := make(map[string]string)
	if config.Type != "" {
		filtersApplied["type"] = config.Type
	}
	if config.Root != "" {
		filtersApplied["root"] = config.Root
	}
	if config.Depth > 0 {
		filtersApplied["depth"] = fmt.Sprintf("%d", config.Depth)
	}

	result := &GraphExportResult{
		Format:         string(config.Format),
		Nodes:          len(nodes),
		Edges:          len(edges),
		FiltersApplied: filtersApplied,
	}

	switch config.Format {
	case GraphFormatDOT:
		result.Graph = generateDOT(nodes, edges)
	case GraphFormatMermaid:
		result.Graph = GenerateMermaidGraph(nodes, edges, l)
	case GraphFormatJSON, "":
		result.Format = string(GraphFormatJSON)
		result.Legend = l.Entries
		result.Adjacency = generateAdjacency(nodes, edges, positions)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, config.Format)
	}
	return result, nil
}

// JSON returns the result as indented JSON.
func (r *GraphExportResult) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Body returns what a file in the result's format should contain: the text
// graph for dot and mermaid, the JSON document otherwise.
func (r *GraphExportResult) Body() ([]byte, error) {
	if r.Graph != "" {
		return []byte(r.Graph), nil
	}
	return r.JSON()
}

// filterGraph applies the type and root filters. Edges survive when both
// endpoints do. Order follows the graph.
func filterGraph(g *graph.Graph, config GraphExportConfig) ([]*graph.Node, []*graph.Edge) {
	keep := make(map[string]bool, g.NodeCount())
	for _, n := range g.Nodes() {
		if config.Type == "" || strings.EqualFold(n.Category(), config.Type) {
			keep[n.ID] = true
		}
	}
	if config.Root != "" {
		keep = neighborhood(g, config.Root, config.Depth, keep)
	}

	var nodes []*graph.Node
	for _, n := range g.Nodes() {
		if keep[n.ID] {
			nodes = append(nodes, n)
		}
	}
	var edges []*graph.Edge
	for _, e := range g.Edges() {
		if keep[e.Source.ID] && keep[e.Target.ID] {
			edges = append(edges, e)
		}
	}
	return nodes, edges
}

// neighborhood walks edges in both directions from root, staying inside
// allowed, up to maxDepth hops.
func neighborhood(g *graph.Graph, root string, maxDepth int, allowed map[string]bool) map[string]bool {
	out := make(map[string]bool)
	if !allowed[root] {
		return out
	}
	adj := make(map[string][]string)
	for _, e := range g.Edges() {
		adj[e.Source.ID] = append(adj[e.Source.ID], e.Target.ID)
		adj[e.Target.ID] = append(adj[e.Target.ID], e.Source.ID)
	}

	out[root] = true
	frontier := []string{root}
	for depth := 0; len(frontier) > 0 && (maxDepth <= 0 || depth < maxDepth); depth++ {
		var next []string
		for _, id := range frontier {
			for _, nb := range adj[id] {
				if out[nb] || !allowed[nb] {
					continue
				}
				out[nb] = true
				next = append(next, nb)
			}
		}
		frontier = next
	}
	return out
}

// generateDOT creates a Graphviz DOT digraph. Nodes are filled with their
// type color and edge pen width follows the consolidated count.
func generateDOT(nodes []*graph.Node, edges []*graph.Edge) string {
	var sb strings.Builder

	sb.WriteString("digraph G {\n")
	sb.WriteString("    rankdir=LR;\n")
	sb.WriteString("    node [shape=ellipse, style=filled, fontname=\"Helvetica\", fontsize=10];\n")
	sb.WriteString("    edge [fontname=\"Helvetica\", fontsize=8];\n")
	sb.WriteString("\n")

	for _, n := range nodes {
		label := fmt.Sprintf("%s\\n%s", escapeDOTString(truncate(n.Label(), 30)), escapeDOTString(n.Category()))
		fmt.Fprintf(&sb, "    \"%s\" [label=\"%s\", fillcolor=\"%s\"];\n",
			escapeDOTString(n.ID), label, n.Color)
	}

	sb.WriteString("\n")

	sorted := make([]*graph.Edge, len(edges))
	copy(sorted, edges)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Source.ID != sorted[j].Source.ID {
			return sorted[i].Source.ID < sorted[j].Source.ID
		}
		return sorted[i].Target.ID < sorted[j].Target.ID
	})
	for _, e := range sorted {
		attrs := fmt.Sprintf("penwidth=%.1f", edgeWidth(e.Count()))
		if e.Record.EdgeType != "" {
			attrs += fmt.Sprintf(", label=\"%s\"", escapeDOTString(e.Record.EdgeType))
		}
		if e.Count() > 1 {
			attrs += fmt.Sprintf(", weight=%d", e.Count())
		}
		fmt.Fprintf(&sb, "    \"%s\" -> \"%s\" [%s];\n",
			escapeDOTString(e.Source.ID), escapeDOTString(e.Target.ID), attrs)
	}

	sb.WriteString("}\n")
	return sb.String()
}

func escapeDOTString(s string) string {
	replacer := strings.NewReplacer(
		"\\", "\\\\",
		"\"", "\\\"",
		"\n", " ",
		"\r", " ",
	)
	return replacer.Replace(s)
}

func generateAdjacency(nodes []*graph.Node, edges []*graph.Edge, positions layout.Positions) *AdjacencyGraph {
	adj := &AdjacencyGraph{
		Nodes: make([]AdjacencyNode, 0, len(nodes)),
		Edges: make([]AdjacencyEdge, 0, len(edges)),
	}
	for _, n := range nodes {
		an := AdjacencyNode{
			ID:    n.ID,
			Label: n.Label(),
			Type:  n.Category(),
			Color: string(n.Color),
			Extra: n.Record.Extra,
		}
		if pt, ok := positions[n.ID]; ok {
			x, y := pt.X, pt.Y
			an.X, an.Y = &x, &y
		}
		adj.Nodes = append(adj.Nodes, an)
	}
	for _, e := range edges {
		adj.Edges = append(adj.Edges, AdjacencyEdge{
			From:  e.Source.ID,
			To:    e.Target.ID,
			Type:  e.Record.EdgeType,
			Count: e.Count(),
		})
	}
	return adj
}
