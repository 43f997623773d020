// Package session runs one complete load: read both CSV files, normalize the
// records with a session scoped color map, build the graph in chunks, derive
// the legend and hand the graph to a layout engine.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/csvgraph/pkg/graph"
	"github.com/vanderheijden86/csvgraph/pkg/layout"
	"github.com/vanderheijden86/csvgraph/pkg/legend"
	"github.com/vanderheijden86/csvgraph/pkg/loader"
	"github.com/vanderheijden86/csvgraph/pkg/metrics"
	"github.com/vanderheijden86/csvgraph/pkg/model"
	"github.com/vanderheijden86/csvgraph/pkg/normalize"
)

var (
	// ErrMissingFile is returned when a required input path is empty or does
	// not exist. No part of the pipeline runs.
	ErrMissingFile = errors.New("missing input file")

	// ErrLoadInProgress is returned when Load is called while another load
	// on the same session is still running.
	ErrLoadInProgress = errors.New("a load is already in progress")
)

// Options configures a Session. Zero values select defaults.
type Options struct {
	ChunkSize     int
	Palette       normalize.Palette
	Algorithm     layout.Algorithm // default organic
	Layout        layout.Options
	Engine        layout.Engine // overrides Algorithm when set
	PruneIsolated bool
	Logger        *zap.Logger

	OnProgress func(graph.Progress)
	OnChunk    func(*graph.Graph)
}

// Request names the two input files of one load.
type Request struct {
	NodesPath string
	EdgesPath string
}

// Stats describes one completed load.
type Stats struct {
	RawNodes      int `json:"raw_nodes"`
	Nodes         int `json:"nodes"`
	RawEdges      int `json:"raw_edges"`
	Edges         int `json:"edges"`
	EdgesAttached int `json:"edges_attached"`
	EdgesDropped  int `json:"edges_dropped"`
	Chunks        int `json:"chunks"`
	Pruned        int `json:"pruned"`
	Types         int `json:"types"`
	Warnings      int `json:"warnings"`

	Read      time.Duration `json:"read_ns"`
	Normalize time.Duration `json:"normalize_ns"`
	Build     time.Duration `json:"build_ns"`
	Layout    time.Duration `json:"layout_ns"`
}

// Result is the outcome of a load. Graph and Legend are always set on a nil
// error; Positions is nil when the graph is empty or layout failed.
type Result struct {
	Token     string
	Graph     *graph.Graph
	Legend    legend.Legend
	Colors    *normalize.TypeColorMap
	Positions layout.Positions
	Stats     Stats

	// LayoutErr records a failed layout. The graph is still usable.
	LayoutErr error
}

// Session serializes loads and publishes the legend of the latest one.
type Session struct {
	opts   Options
	engine layout.Engine
	log    *zap.Logger

	loading atomic.Bool
	last    atomic.Pointer[Result]
	panel   legend.Panel
}

// New validates opts and returns a ready session.
func New(opts Options) (*Session, error) {
	s := &Session{opts: opts, log: opts.Logger}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if len(s.opts.Palette) == 0 {
		s.opts.Palette = normalize.DefaultPalette
	}

	s.engine = opts.Engine
	if s.engine == nil {
		algo := opts.Algorithm
		if algo == "" {
			algo = layout.Organic
		}
		eng, err := layout.New(algo, opts.Layout)
		if err != nil {
			return nil, err
		}
		s.engine = eng
	}
	return s, nil
}

// Panel returns the legend panel updated after every successful load.
func (s *Session) Panel() *legend.Panel {
	return &s.panel
}

// Last returns the result of the latest successful load, or nil.
func (s *Session) Last() *Result {
	return s.last.Load()
}

// Loading reports whether a load is running.
func (s *Session) Loading() bool {
	return s.loading.Load()
}

// CheckFiles reports ErrMissingFile for an empty or non-existent path.
func CheckFiles(req Request) error {
	for _, f := range []struct{ role, path string }{
		{"nodes", req.NodesPath},
		{"edges", req.EdgesPath},
	} {
		if f.path == "" {
			return fmt.Errorf("%w: no %s file selected", ErrMissingFile, f.role)
		}
		info, err := os.Stat(f.path)
		if err != nil {
			return fmt.Errorf("%w: %s file %s: %v", ErrMissingFile, f.role, f.path, err)
		}
		if info.IsDir() {
			return fmt.Errorf("%w: %s path %s is a directory", ErrMissingFile, f.role, f.path)
		}
	}
	return nil
}

// Load runs the whole pipeline for req. A second call while one is running
// fails with ErrLoadInProgress. Malformed rows and dangling edges never fail
// a load; a layout failure is reported in Result.LayoutErr.
func (s *Session) Load(ctx context.Context, req Request) (*Result, error) {
	if err := CheckFiles(req); err != nil {
		return nil, err
	}
	if !s.loading.CompareAndSwap(false, true) {
		return nil, ErrLoadInProgress
	}
	defer s.loading.Store(false)

	res := &Result{Token: uuid.NewString()}
	log := s.log.With(zap.String("token", res.Token))
	log.Debug("load started", zap.String("nodes", req.NodesPath), zap.String("edges", req.EdgesPath))

	var warnings atomic.Int64
	parseOpts := loader.ParseOptions{
		WarningHandler: func(msg string) {
			warnings.Add(1)
			log.Warn("csv", zap.String("detail", msg))
		},
	}

	start := time.Now()
	nodes, edges, err := readInputs(ctx, req, parseOpts)
	if err != nil {
		return nil, err
	}
	res.Stats.Read = time.Since(start)

	start = time.Now()
	norm := normalize.Normalize(nodes, edges, normalize.NewTypeColorMap(s.opts.Palette))
	res.Stats.Normalize = time.Since(start)
	res.Colors = norm.Colors

	builder := &graph.Builder{
		ChunkSize:     s.opts.ChunkSize,
		Colors:        norm.Colors,
		PruneIsolated: s.opts.PruneIsolated,
		OnChunk:       s.opts.OnChunk,
		OnProgress: func(p graph.Progress) {
			log.Debug("chunk",
				zap.Int("chunk", p.Done),
				zap.Int("total", p.Total),
				zap.Int("nodes", p.Nodes),
				zap.Int("edges", p.Edges))
			if s.opts.OnProgress != nil {
				s.opts.OnProgress(p)
			}
		},
		Handoff: func(ctx context.Context, g *graph.Graph) error {
			layoutStart := time.Now()
			res.Positions, res.LayoutErr = s.runLayout(ctx, g)
			res.Stats.Layout = time.Since(layoutStart)
			if res.LayoutErr != nil {
				log.Warn("layout failed", zap.Error(res.LayoutErr))
			}
			return nil
		},
	}

	start = time.Now()
	g, bs, err := builder.Build(ctx, norm.Nodes, norm.Edges)
	if err != nil {
		return nil, err
	}
	res.Stats.Build = time.Since(start) - res.Stats.Layout

	res.Graph = g
	res.Legend = legend.FromGraph(g)
	s.panel.Replace(res.Legend)

	res.Stats.RawNodes = norm.RawNodes
	res.Stats.Nodes = g.NodeCount()
	res.Stats.RawEdges = norm.RawEdges
	res.Stats.Edges = g.EdgeCount()
	res.Stats.EdgesAttached = bs.EdgesAttached
	res.Stats.EdgesDropped = bs.EdgesDropped
	res.Stats.Chunks = bs.Chunks
	res.Stats.Pruned = len(bs.Pruned)
	res.Stats.Types = res.Legend.Len()
	res.Stats.Warnings = int(warnings.Load())

	s.last.Store(res)
	log.Info("load finished",
		zap.Int("nodes", res.Stats.Nodes),
		zap.Int("edges", res.Stats.Edges),
		zap.Int("dropped", res.Stats.EdgesDropped),
		zap.Int("types", res.Stats.Types),
		zap.Bool("layout_ok", res.LayoutErr == nil))
	return res, nil
}

// runLayout times the engine and converts a panic into an error so a broken
// engine cannot take the load down with it.
func (s *Session) runLayout(ctx context.Context, g *graph.Graph) (pos layout.Positions, err error) {
	defer metrics.Timer(metrics.Layout)()
	defer func() {
		if r := recover(); r != nil {
			pos, err = nil, fmt.Errorf("layout panicked: %v", r)
		}
	}()
	return s.engine.Layout(ctx, g)
}

// readInputs parses both files concurrently. A file with no header at all
// reads as zero records.
func readInputs(ctx context.Context, req Request, opts loader.ParseOptions) ([]model.NodeRecord, []model.EdgeRecord, error) {
	var (
		nodes []model.NodeRecord
		edges []model.EdgeRecord
	)
	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := egctx.Err(); err != nil {
			return err
		}
		var err error
		nodes, err = loader.LoadNodesFromFileWithOptions(req.NodesPath, opts)
		if errors.Is(err, loader.ErrEmptyInput) {
			return nil
		}
		return err
	})
	eg.Go(func() error {
		if err := egctx.Err(); err != nil {
			return err
		}
		var err error
		edges, err = loader.LoadEdgesFromFileWithOptions(req.EdgesPath, opts)
		if errors.Is(err, loader.ErrEmptyInput) {
			return nil
		}
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}
	return nodes, edges, nil
}
