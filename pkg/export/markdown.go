package export

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/vanderheijden86/csvgraph/pkg/graph"
	"github.com/vanderheijden86/csvgraph/pkg/legend"
)

// Package-level compiled regex for slug creation (avoids recompilation per call)
var slugNonAlphanumericRegex = regexp.MustCompile(`[^a-z0-9]+`)

// MaxMermaidNodes caps the inline diagram; larger graphs get a note instead.
const MaxMermaidNodes = 300

// SummaryRow is one line of the report summary table.
type SummaryRow struct {
	Metric string
	Value  string
}

// MarkdownOptions configures the markdown report.
type MarkdownOptions struct {
	Title   string
	Graph   *graph.Graph
	Legend  legend.Legend
	Summary []SummaryRow
	Now     time.Time // zero means time.Now
}

// GenerateMarkdown creates a report with the summary, the legend, a Mermaid
// diagram and one section per node type.
func GenerateMarkdown(opts MarkdownOptions) (string, error) {
	if opts.Graph == nil {
		return "", fmt.Errorf("graph is required for markdown export")
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	title := opts.Title
	if title == "" {
		title = "Graph Report"
	}
	g := opts.Graph

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", title)
	fmt.Fprintf(&sb, "*Generated: %s*\n\n", now.Format(time.RFC1123))

	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n|--------|-------|\n")
	fmt.Fprintf(&sb, "| **Nodes** | %d |\n", g.NodeCount())
	fmt.Fprintf(&sb, "| **Edges** | %d |\n", g.EdgeCount())
	for _, r := range opts.Summary {
		fmt.Fprintf(&sb, "| %s | %s |\n", escapeCell(r.Metric), escapeCell(r.Value))
	}
	sb.WriteString("\n")

	sb.WriteString("## Legend\n\n")
	sb.WriteString(opts.Legend.Markdown())
	sb.WriteString("\n")

	// Precompute stable, unique slugs for TOC anchors and headings.
	slugCounts := make(map[string]int, opts.Legend.Len())
	slugs := make([]string, opts.Legend.Len())
	for i, e := range opts.Legend.Entries {
		slugs[i] = uniqueSlug(createSlug(e.Category), slugCounts)
	}

	if len(opts.Legend.Entries) > 0 {
		sb.WriteString("## Table of Contents\n\n")
		for i, e := range opts.Legend.Entries {
			fmt.Fprintf(&sb, "- [%s](#%s)\n", e.Category, slugs[i])
		}
		sb.WriteString("\n---\n\n")
	}

	sb.WriteString("## Graph\n\n")
	if g.NodeCount() > MaxMermaidNodes {
		fmt.Fprintf(&sb, "*Diagram omitted: %d nodes exceed the inline limit of %d.*\n\n", g.NodeCount(), MaxMermaidNodes)
	} else {
		sb.WriteString("```mermaid\n")
		sb.WriteString(GenerateMermaidGraph(g.Nodes(), g.Edges(), opts.Legend))
		sb.WriteString("```\n\n")
	}
	sb.WriteString("---\n\n")

	byType := make(map[string][]*graph.Node)
	for _, n := range g.Nodes() {
		byType[n.Category()] = append(byType[n.Category()], n)
	}
	for i, e := range opts.Legend.Entries {
		fmt.Fprintf(&sb, "<a id=\"%s\"></a>\n\n", slugs[i])
		fmt.Fprintf(&sb, "## %s\n\n", e.Category)
		fmt.Fprintf(&sb, "Color `%s`, %d nodes.\n\n", e.Color, len(byType[e.Category]))
		sb.WriteString("| ID | Label | Degree |\n|----|-------|-------:|\n")
		for _, n := range byType[e.Category] {
			fmt.Fprintf(&sb, "| `%s` | %s | %d |\n", escapeCell(n.ID), escapeCell(n.Label()), g.Degree(n.ID))
		}
		sb.WriteString("\n")
	}

	return sb.String(), nil
}

// SaveMarkdownToFile writes the generated markdown to a file.
func SaveMarkdownToFile(path string, opts MarkdownOptions) error {
	content, err := GenerateMarkdown(opts)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", "\\|")
}

func uniqueSlug(base string, counts map[string]int) string {
	if base == "" {
		base = "section"
	}
	if count, ok := counts[base]; ok {
		count++
		counts[base] = count
		return fmt.Sprintf("%s-%d", base, count)
	}
	counts[base] = 0
	return base
}

// createSlug creates a URL-friendly slug from heading text.
func createSlug(text string) string {
	slug := strings.ToLower(text)
	slug = slugNonAlphanumericRegex.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
