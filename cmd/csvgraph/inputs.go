package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vanderheijden86/csvgraph/internal/datasource"
	"github.com/vanderheijden86/csvgraph/pkg/config"
	"github.com/vanderheijden86/csvgraph/pkg/graph"
	"github.com/vanderheijden86/csvgraph/pkg/layout"
	"github.com/vanderheijden86/csvgraph/pkg/normalize"
	"github.com/vanderheijden86/csvgraph/pkg/session"
)

// inputFlags names the two input files, directly or through a directory.
type inputFlags struct {
	nodes string
	edges string
	dir   string
	seed  uint64
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.nodes, "nodes", "n", "", "nodes CSV file")
	cmd.Flags().StringVarP(&f.edges, "edges", "e", "", "edges CSV file")
	cmd.Flags().StringVarP(&f.dir, "dir", "d", "", "directory to search for nodes and edges CSV files")
	cmd.Flags().Uint64Var(&f.seed, "seed", 1, "layout random seed")
	cmd.MarkFlagsMutuallyExclusive("dir", "nodes")
	cmd.MarkFlagsMutuallyExclusive("dir", "edges")
}

// request resolves the flags to a load request. Explicit paths are passed
// through unchecked; the session reports missing files.
func (f *inputFlags) request(log *zap.Logger) (session.Request, error) {
	if f.dir != "" {
		return datasource.ResolveDir(f.dir, log)
	}
	return session.Request{NodesPath: f.nodes, EdgesPath: f.edges}, nil
}

// newSession builds a session from the effective config.
func newSession(cfg config.Config, seed uint64, log *zap.Logger, onProgress func(graph.Progress)) (*session.Session, error) {
	palette, err := normalize.ParsePalette(cfg.Palette)
	if err != nil {
		return nil, err
	}
	algo, err := layout.ParseAlgorithm(cfg.Layout)
	if err != nil {
		return nil, err
	}
	return session.New(session.Options{
		ChunkSize:     cfg.ChunkSize,
		Palette:       palette,
		Algorithm:     algo,
		Layout:        layout.Options{Seed: seed},
		PruneIsolated: cfg.PruneIsolated,
		Logger:        log,
		OnProgress:    onProgress,
	})
}
