package export

import (
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/vanderheijden86/csvgraph/pkg/graph"
	"github.com/vanderheijden86/csvgraph/pkg/legend"
)

// GenerateMermaidGraph generates a Mermaid flowchart. Every legend category
// becomes a classDef filled with its color.
func GenerateMermaidGraph(nodes []*graph.Node, edges []*graph.Edge, l legend.Legend) string {
	var sb strings.Builder

	sb.WriteString("graph LR\n")

	classOf := make(map[string]string, l.Len())
	for i, e := range l.Entries {
		class := fmt.Sprintf("t%d", i)
		classOf[e.Category] = class
		text := "#000"
		if e.Color.Luminance() < 0.55 {
			text = "#fff"
		}
		fmt.Fprintf(&sb, "    classDef %s fill:%s,stroke:#333,color:%s\n", class, e.Color, text)
	}
	sb.WriteString("\n")

	// Deterministic, collision-free Mermaid IDs
	safeIDMap := make(map[string]string)
	usedSafe := make(map[string]bool)
	getSafeID := func(orig string) string {
		if safe, ok := safeIDMap[orig]; ok {
			return safe
		}
		base := sanitizeMermaidID(orig)
		safe := base
		if usedSafe[safe] {
			h := fnv.New32a()
			_, _ = h.Write([]byte(orig))
			safe = fmt.Sprintf("%s_%x", base, h.Sum32())
		}
		usedSafe[safe] = true
		safeIDMap[orig] = safe
		return safe
	}

	for _, n := range nodes {
		safeID := getSafeID(n.ID)
		fmt.Fprintf(&sb, "    %s[\"%s<br/>%s\"]\n", safeID, sanitizeMermaidText(n.ID), sanitizeMermaidText(n.Label()))
		if class, ok := classOf[n.Category()]; ok {
			fmt.Fprintf(&sb, "    class %s %s\n", safeID, class)
		}
	}

	sb.WriteString("\n")

	for _, e := range edges {
		arrow := "-->"
		if e.Count() > 1 {
			arrow = "==>"
		}
		from, to := getSafeID(e.Source.ID), getSafeID(e.Target.ID)
		switch label := edgeLabel(e); label {
		case "":
			fmt.Fprintf(&sb, "    %s %s %s\n", from, arrow, to)
		default:
			fmt.Fprintf(&sb, "    %s %s|%s| %s\n", from, arrow, label, to)
		}
	}

	return sb.String()
}

func edgeLabel(e *graph.Edge) string {
	label := sanitizeMermaidText(e.Record.EdgeType)
	if e.Count() > 1 {
		if label != "" {
			label += " "
		}
		label += fmt.Sprintf("x%d", e.Count())
	}
	return label
}

// sanitizeMermaidID keeps letters, digits, '-' and '_'.
func sanitizeMermaidID(id string) string {
	var sb strings.Builder
	for _, r := range id {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			sb.WriteRune(r)
		}
	}
	if sb.Len() == 0 {
		return "node"
	}
	return sb.String()
}

// sanitizeMermaidText replaces characters that break Mermaid label syntax.
func sanitizeMermaidText(text string) string {
	replacer := strings.NewReplacer(
		"\"", "'",
		"[", "(",
		"]", ")",
		"{", "(",
		"}", ")",
		"<", "&lt;",
		">", "&gt;",
		"|", "/",
		"`", "'",
		"\n", " ",
		"\r", "",
	)
	result := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, replacer.Replace(text))
	return strings.TrimSpace(result)
}
