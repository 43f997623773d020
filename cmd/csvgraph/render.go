package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vanderheijden86/csvgraph/pkg/analysis"
	"github.com/vanderheijden86/csvgraph/pkg/config"
	"github.com/vanderheijden86/csvgraph/pkg/export"
	"github.com/vanderheijden86/csvgraph/pkg/graph"
	"github.com/vanderheijden86/csvgraph/pkg/hooks"
	"github.com/vanderheijden86/csvgraph/pkg/session"
	"github.com/vanderheijden86/csvgraph/pkg/watcher"
)

type renderFlags struct {
	inputFlags
	output  string
	format  string
	typ     string
	root    string
	depth   int
	watch   bool
	stats   bool
	noHooks bool
}

func newRenderCmd() *cobra.Command {
	f := &renderFlags{}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the graph to svg, png, html, json, dot, mermaid or markdown",
		Example: `  csvgraph render -n nodes.csv -e edges.csv -o graph.svg
  csvgraph render -d ./data -o graph.html --layout hierarchic
  csvgraph render -n nodes.csv -e edges.csv -o - --format dot --type service`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRender(cmd, f)
		},
	}
	f.register(cmd)
	fl := cmd.Flags()
	fl.StringVarP(&f.output, "output", "o", "graph.svg", `output file, "-" for stdout (text formats only)`)
	fl.StringVar(&f.format, "format", "", "output format; inferred from the output extension when empty")
	fl.Int("width", 0, "canvas width in pixels (0 sizes from the node count)")
	fl.Int("height", 0, "canvas height in pixels (0 sizes from the node count)")
	fl.String("title", "", "title shown above the graph")
	fl.StringVar(&f.typ, "type", "", "keep only nodes of this type (text formats)")
	fl.StringVar(&f.root, "root", "", "keep only the neighborhood of this node id (text formats)")
	fl.IntVar(&f.depth, "depth", 0, "max hops from --root (0 = unlimited)")
	fl.BoolVarP(&f.watch, "watch", "w", false, "re-render whenever an input file changes")
	fl.BoolVar(&f.stats, "stats", false, "print load statistics and phase timings")
	fl.BoolVar(&f.noHooks, "no-hooks", false, "skip hooks from .csvgraph/hooks.yaml")
	return cmd
}

func runRender(cmd *cobra.Command, f *renderFlags) error {
	a := appFrom(cmd.Context())
	req, err := f.request(a.log)
	if err != nil {
		return err
	}
	sess, err := newSession(a.cfg, f.seed, a.log, nil)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := renderOnce(ctx, sess, req, a, f, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if f.stats {
		printStats(cmd.ErrOrStderr(), res)
	}
	if !f.watch {
		return nil
	}
	return watchAndRender(ctx, sess, req, a, f, cmd.OutOrStdout(), res)
}

// renderOnce loads req and writes the configured output, running the
// project's render hooks around the write.
func renderOnce(ctx context.Context, sess *session.Session, req session.Request, a *app, f *renderFlags, stdout io.Writer) (*session.Result, error) {
	res, err := sess.Load(ctx, req)
	if err != nil {
		return nil, err
	}
	if res.LayoutErr != nil {
		return res, fmt.Errorf("layout failed: %w", res.LayoutErr)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return res, err
	}
	runner, warnings, err := hooks.RunHooks(cwd, hooks.RenderContext{
		OutputPath:   f.output,
		OutputFormat: outputFormat(f),
		NodeCount:    res.Graph.NodeCount(),
		EdgeCount:    res.Graph.EdgeCount(),
		Timestamp:    time.Now(),
	}, f.noHooks)
	if err != nil {
		return res, fmt.Errorf("loading hooks: %w", err)
	}
	for _, w := range warnings {
		a.log.Warn("hooks", zap.String("warning", w))
	}

	if runner != nil {
		if err := runner.RunPreRender(ctx); err != nil {
			return res, err
		}
	}
	if err := writeOutput(ctx, res, req, a.cfg, f, stdout); err != nil {
		return res, err
	}
	if runner != nil {
		if err := runner.RunPostRender(ctx); err != nil {
			a.log.Warn("post-render hook failed", zap.Error(err))
		}
		a.log.Debug(runner.Summary())
	}
	return res, nil
}

func watchAndRender(ctx context.Context, sess *session.Session, req session.Request, a *app, f *renderFlags, stdout io.Writer, prev *session.Result) error {
	w, err := watcher.NewWatcher([]string{req.NodesPath, req.EdgesPath},
		watcher.WithOnError(func(err error) {
			a.log.Warn("watch", zap.Error(err))
		}),
		watcher.WithOnChange(func(changed []string) {
			a.log.Debug("inputs changed", zap.Strings("paths", changed))
		}),
	)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()
	a.log.Info("watching inputs", zap.Strings("paths", w.Paths()), zap.Bool("polling", w.IsPolling()))

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.Changed():
		}

		res, err := renderOnce(ctx, sess, req, a, f, stdout)
		switch {
		case errors.Is(err, session.ErrLoadInProgress):
			continue
		case err != nil:
			a.log.Error("re-render failed", zap.Error(err))
			continue
		}
		d := graph.Compare(prev.Graph, res.Graph)
		a.log.Info("re-rendered", zap.String("output", f.output), zap.String("changes", d.Summary()))
		if f.stats {
			printStats(os.Stderr, res)
		}
		prev = res
	}
}

// outputFormat resolves --format, falling back to the output extension.
func outputFormat(f *renderFlags) string {
	if f.format != "" {
		return strings.ToLower(strings.TrimPrefix(f.format, "."))
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(f.output), "."))
	if ext == "" {
		return "svg"
	}
	return ext
}

func writeOutput(ctx context.Context, res *session.Result, req session.Request, cfg config.Config, f *renderFlags, stdout io.Writer) error {
	title := cfg.Render.Title
	if title == "" {
		title = fmt.Sprintf("%s + %s", filepath.Base(req.NodesPath), filepath.Base(req.EdgesPath))
	}

	format := outputFormat(f)
	if f.output == "-" {
		switch format {
		case "svg":
			return export.WriteSVG(stdout, snapshotOptions(res, f.output, format, title, cfg))
		case "png", "html", "htm":
			return fmt.Errorf("%s output cannot be written to stdout", format)
		}
	}

	switch format {
	case "svg", "png":
		return export.SaveSnapshot(snapshotOptions(res, f.output, format, title, cfg))

	case "html", "htm":
		_, err := export.GenerateInteractiveHTML(export.HTMLOptions{
			Path:        f.output,
			ProjectName: strings.TrimSuffix(filepath.Base(req.NodesPath), filepath.Ext(req.NodesPath)),
			Title:       title,
			Width:       cfg.Render.Width,
			Height:      cfg.Render.Height,
			Graph:       res.Graph,
			Positions:   res.Positions,
			Legend:      res.Legend,
		})
		return err

	case "md", "markdown":
		stats, err := analysis.Analyze(ctx, res.Graph)
		if err != nil {
			return err
		}
		content, err := export.GenerateMarkdown(export.MarkdownOptions{
			Title:   title,
			Graph:   res.Graph,
			Legend:  res.Legend,
			Summary: append(summaryRows(res), insightRows(stats)...),
		})
		if err != nil {
			return err
		}
		return writeText(f.output, []byte(content), stdout)
	}

	gf, err := export.ParseGraphExportFormat(format)
	if err != nil {
		return err
	}
	out, err := export.ExportGraph(res.Graph, res.Positions, res.Legend, export.GraphExportConfig{
		Format: gf,
		Type:   f.typ,
		Root:   f.root,
		Depth:  f.depth,
	})
	if err != nil {
		return err
	}
	body, err := out.Body()
	if err != nil {
		return err
	}
	return writeText(f.output, body, stdout)
}

func snapshotOptions(res *session.Result, path, format, title string, cfg config.Config) export.SnapshotOptions {
	return export.SnapshotOptions{
		Path:      path,
		Format:    format,
		Title:     title,
		Width:     cfg.Render.Width,
		Height:    cfg.Render.Height,
		Graph:     res.Graph,
		Positions: res.Positions,
		Legend:    res.Legend,
	}
}

func writeText(path string, body []byte, stdout io.Writer) error {
	if path == "-" {
		_, err := stdout.Write(body)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	return os.WriteFile(path, body, 0o644)
}

func summaryRows(res *session.Result) []export.SummaryRow {
	s := res.Stats
	return []export.SummaryRow{
		{Metric: "Node rows", Value: fmt.Sprint(s.RawNodes)},
		{Metric: "Edge rows", Value: fmt.Sprint(s.RawEdges)},
		{Metric: "Dangling edges dropped", Value: fmt.Sprint(s.EdgesDropped)},
		{Metric: "Isolated nodes pruned", Value: fmt.Sprint(s.Pruned)},
		{Metric: "Types", Value: fmt.Sprint(s.Types)},
		{Metric: "Parse warnings", Value: fmt.Sprint(s.Warnings)},
	}
}

func insightRows(stats *analysis.Stats) []export.SummaryRow {
	rows := []export.SummaryRow{
		{Metric: "Components", Value: fmt.Sprint(len(stats.Components))},
		{Metric: "Largest component", Value: fmt.Sprint(stats.LargestComponent())},
		{Metric: "Cyclic groups", Value: fmt.Sprint(len(stats.Cycles))},
	}
	if top := analysis.Top(stats.PageRank, 3); len(top) > 0 {
		ids := make([]string, len(top))
		for i, r := range top {
			ids[i] = r.ID
		}
		rows = append(rows, export.SummaryRow{Metric: "Most central", Value: strings.Join(ids, ", ")})
	}
	return rows
}
