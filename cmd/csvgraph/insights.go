package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vanderheijden86/csvgraph/pkg/analysis"
	"github.com/vanderheijden86/csvgraph/pkg/session"
)

type insightsFlags struct {
	inputFlags
	top  int
	json bool
}

func newInsightsCmd() *cobra.Command {
	f := &insightsFlags{}
	cmd := &cobra.Command{
		Use:   "insights",
		Short: "Load the inputs and report central nodes, components and cycles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFrom(cmd.Context())
			req, err := f.request(a.log)
			if err != nil {
				return err
			}
			sess, err := newSession(a.cfg, f.seed, a.log, nil)
			if err != nil {
				return err
			}
			res, err := sess.Load(cmd.Context(), req)
			if err != nil {
				return err
			}
			stats, err := analyze(cmd.Context(), res, a.log)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if f.json {
				data, err := json.MarshalIndent(stats, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(data))
				return err
			}
			printInsights(out, res, stats, f.top)
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().IntVar(&f.top, "top", 10, "number of nodes to list")
	cmd.Flags().BoolVar(&f.json, "json", false, "print every metric as JSON")
	return cmd
}

// analyze runs the structural analysis on a loaded graph and logs metrics
// that did not complete.
func analyze(ctx context.Context, res *session.Result, log *zap.Logger) (*analysis.Stats, error) {
	stats, err := analysis.Analyze(ctx, res.Graph)
	if err != nil {
		return nil, err
	}
	for name, st := range map[string]analysis.StatusEntry{
		"pagerank":    stats.Status.PageRank,
		"betweenness": stats.Status.Betweenness,
	} {
		if st.State == analysis.StateTimeout || st.State == analysis.StateFailed {
			log.Warn("metric incomplete", zap.String("metric", name), zap.String("state", st.State), zap.String("reason", st.Reason))
		}
	}
	return stats, nil
}

func printInsights(w io.Writer, res *session.Result, stats *analysis.Stats, top int) {
	s := table.NewWriter()
	s.SetOutputMirror(w)
	s.SetStyle(table.StyleLight)
	s.SetTitle("Structure")
	s.AppendRows([]table.Row{
		{"Nodes", stats.NodeCount},
		{"Edges", stats.EdgeCount},
		{"Density", fmt.Sprintf("%.4f", stats.Density)},
		{"Components", len(stats.Components)},
		{"Largest component", stats.LargestComponent()},
		{"Cyclic groups", len(stats.Cycles)},
		{"Cut vertices", strings.Join(stats.Articulation, ", ")},
	})
	s.Render()

	if stats.NodeCount == 0 {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Most central")
	t.AppendHeader(table.Row{"Node", "Type", "Degree", "PageRank", "Betweenness", "Core"})
	ranked := analysis.Top(stats.PageRank, top)
	if stats.PageRank == nil {
		ranked = topByDegree(stats, top)
	}
	for _, r := range ranked {
		typ := ""
		if n, ok := res.Graph.Node(r.ID); ok {
			typ = n.Category()
		}
		bw := "-"
		if stats.Betweenness != nil {
			bw = fmt.Sprintf("%.2f", stats.Betweenness[r.ID])
		}
		t.AppendRow(table.Row{r.ID, typ, stats.Degree(r.ID), fmt.Sprintf("%.4f", stats.PageRank[r.ID]), bw, stats.CoreNumber[r.ID]})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	t.Render()

	for i, group := range stats.Cycles {
		fmt.Fprintf(w, "cyclic group %d: %s\n", i+1, strings.Join(group, ", "))
	}
}

func topByDegree(stats *analysis.Stats, n int) []analysis.Ranked {
	deg := make(map[string]float64, len(stats.InDegree))
	for id := range stats.InDegree {
		deg[id] = float64(stats.Degree(id))
	}
	return analysis.Top(deg, n)
}
