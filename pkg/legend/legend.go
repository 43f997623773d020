// Package legend derives the category to color table shown next to a
// rendered graph.
package legend

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/vanderheijden86/csvgraph/pkg/graph"
	"github.com/vanderheijden86/csvgraph/pkg/normalize"
)

// Entry is one legend row.
type Entry struct {
	Category string          `json:"category"`
	Color    normalize.Color `json:"color"`
	Count    int             `json:"count,omitempty"` // nodes of this category, when derived from a graph
}

// Legend is an ordered list of entries in first-seen order.
type Legend struct {
	Entries []Entry `json:"entries"`
}

// FromColorMap lists every assignment of the map in first-seen order.
func FromColorMap(m *normalize.TypeColorMap) Legend {
	if m == nil {
		return Legend{}
	}
	assignments := m.Entries()
	entries := make([]Entry, 0, len(assignments))
	for _, a := range assignments {
		entries = append(entries, Entry{Category: a.Type, Color: a.Color})
	}
	return Legend{Entries: entries}
}

// FromGraph walks the node tags of g in graph order. Only categories that
// survived construction (and pruning) appear; each entry carries its node
// count and the color of the first node seen.
func FromGraph(g *graph.Graph) Legend {
	if g == nil {
		return Legend{}
	}
	pos := make(map[string]int)
	var entries []Entry
	for _, n := range g.Nodes() {
		cat := n.Category()
		if i, ok := pos[cat]; ok {
			entries[i].Count++
			continue
		}
		pos[cat] = len(entries)
		entries = append(entries, Entry{Category: cat, Color: n.Color, Count: 1})
	}
	return Legend{Entries: entries}
}

// Len returns the number of entries.
func (l Legend) Len() int {
	return len(l.Entries)
}

// Lookup returns the color for category.
func (l Legend) Lookup(category string) (normalize.Color, bool) {
	for _, e := range l.Entries {
		if e.Category == category {
			return e.Color, true
		}
	}
	return "", false
}

// Markdown renders the legend as a markdown table.
func (l Legend) Markdown() string {
	var sb strings.Builder
	sb.WriteString("| Type | Color | Nodes |\n")
	sb.WriteString("|------|-------|------:|\n")
	for _, e := range l.Entries {
		count := ""
		if e.Count > 0 {
			count = fmt.Sprintf("%d", e.Count)
		}
		fmt.Fprintf(&sb, "| %s | `%s` | %s |\n", escapeMarkdownCell(e.Category), e.Color, count)
	}
	return sb.String()
}

// WriteTable renders the legend as a box drawn table.
func (l Legend) WriteTable(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Type", "Color", "Nodes"})
	for _, e := range l.Entries {
		var count any = ""
		if e.Count > 0 {
			count = e.Count
		}
		t.AppendRow(table.Row{e.Category, string(e.Color), count})
	}
	t.Render()
}

func escapeMarkdownCell(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
}

// Panel holds the legend currently shown to the user. Replace swaps the whole
// table so entries from a previous load never linger.
type Panel struct {
	mu      sync.RWMutex
	current Legend
	version int
}

// Replace installs l as the current legend and returns the new version.
func (p *Panel) Replace(l Legend) int {
	entries := make([]Entry, len(l.Entries))
	copy(entries, l.Entries)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = Legend{Entries: entries}
	p.version++
	return p.version
}

// Current returns a copy of the installed legend and its version.
func (p *Panel) Current() (Legend, int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entries := make([]Entry, len(p.current.Entries))
	copy(entries, p.current.Entries)
	return Legend{Entries: entries}, p.version
}
