package main

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/vanderheijden86/csvgraph/pkg/metrics"
	"github.com/vanderheijden86/csvgraph/pkg/session"
)

// printStats writes the load counters and the phase timings of res.
func printStats(w io.Writer, res *session.Result) {
	s := res.Stats

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Load " + res.Token)
	t.AppendHeader(table.Row{"", "Rows", "Kept"})
	t.AppendRow(table.Row{"Nodes", s.RawNodes, s.Nodes})
	t.AppendRow(table.Row{"Edges", s.RawEdges, s.Edges})
	t.AppendSeparator()
	t.AppendRow(table.Row{"Dangling edges", "", s.EdgesDropped})
	t.AppendRow(table.Row{"Pruned nodes", "", s.Pruned})
	t.AppendRow(table.Row{"Types", "", s.Types})
	t.AppendRow(table.Row{"Chunks", "", s.Chunks})
	t.AppendRow(table.Row{"Parse warnings", "", s.Warnings})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})
	t.Render()

	p := table.NewWriter()
	p.SetOutputMirror(w)
	p.SetStyle(table.StyleLight)
	p.AppendHeader(table.Row{"Phase", "This load", "Calls", "Avg ms", "Max ms"})
	phases := map[string]time.Duration{
		"csv_parse":   s.Read,
		"normalize":   s.Normalize,
		"graph_build": s.Build,
		"layout":      s.Layout,
	}
	for _, st := range metrics.AllTimingStats() {
		this := ""
		if d, ok := phases[st.Name]; ok {
			this = d.Round(time.Microsecond).String()
		}
		p.AppendRow(table.Row{st.Name, this, st.Count, fmt.Sprintf("%.2f", st.AvgMs), fmt.Sprintf("%.2f", st.MaxMs)})
	}
	p.Render()
}
