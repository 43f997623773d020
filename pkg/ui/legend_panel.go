package ui

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/csvgraph/pkg/legend"
)

// LegendPanelModel lists legend entries with a selection cursor.
type LegendPanelModel struct {
	entries  []legend.Entry
	selected int
	width    int
	height   int
}

// NewLegendPanelModel creates a panel over l.
func NewLegendPanelModel(l legend.Legend) LegendPanelModel {
	return LegendPanelModel{entries: l.Entries}
}

// SetLegend replaces every entry and resets the cursor.
func (m *LegendPanelModel) SetLegend(l legend.Legend) {
	m.entries = l.Entries
	m.selected = 0
}

// SetSize sets the space available to the panel.
func (m *LegendPanelModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *LegendPanelModel) MoveUp() {
	if m.selected > 0 {
		m.selected--
	}
}

func (m *LegendPanelModel) MoveDown() {
	if m.selected < len(m.entries)-1 {
		m.selected++
	}
}

// Selected returns the entry under the cursor.
func (m *LegendPanelModel) Selected() (legend.Entry, bool) {
	if m.selected < 0 || m.selected >= len(m.entries) {
		return legend.Entry{}, false
	}
	return m.entries[m.selected], true
}

// Len returns the number of entries.
func (m *LegendPanelModel) Len() int {
	return len(m.entries)
}

// View renders the panel. When the entries exceed the height the list
// scrolls to keep the cursor visible.
func (m *LegendPanelModel) View() string {
	nameWidth := 24
	if m.width > 0 {
		nameWidth = max(8, m.width-16)
	}

	rows := m.entries
	offset := 0
	if visible := m.height - 4; visible > 0 && len(rows) > visible {
		offset = min(max(0, m.selected-visible+1), len(rows)-visible)
		rows = rows[offset : offset+visible]
	}

	lines := []string{titleStyle.Render("Legend"), ""}
	if len(m.entries) == 0 {
		lines = append(lines, subtleStyle.Render("(no types)"))
	}
	for i, e := range rows {
		name := runewidth.FillRight(runewidth.Truncate(e.Category, nameWidth, "…"), nameWidth)
		line := fmt.Sprintf("%s %s %5d", swatch(string(e.Color)), name, e.Count)
		if offset+i == m.selected {
			lines = append(lines, selectedStyle.Render("▸ ")+line)
		} else {
			lines = append(lines, "  "+line)
		}
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}
