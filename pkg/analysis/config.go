package analysis

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config controls which metrics to compute and how long each may run.
type Config struct {
	// PageRank over the directed graph
	ComputePageRank bool
	PageRankTimeout time.Duration

	// Betweenness centrality (expensive: O(V*E))
	ComputeBetweenness    bool
	BetweennessTimeout    time.Duration
	BetweennessSkipReason string

	// k-core decomposition and cut vertices on the undirected view
	ComputeStructure bool

	// Strongly connected groups of more than one node
	ComputeCycles    bool
	MaxCyclesToStore int
}

// DefaultConfig returns every metric enabled with standard timeouts.
func DefaultConfig() Config {
	cfg := Config{
		ComputePageRank:    true,
		PageRankTimeout:    500 * time.Millisecond,
		ComputeBetweenness: true,
		BetweennessTimeout: 500 * time.Millisecond,
		ComputeStructure:   true,
		ComputeCycles:      true,
		MaxCyclesToStore:   100,
	}
	return ApplyEnvOverrides(cfg)
}

// ConfigForSize returns a configuration suited to a graph of the given
// size. Betweenness is skipped on large graphs.
func ConfigForSize(nodes, edges int) Config {
	cfg := DefaultConfig()
	switch {
	case nodes > 5000:
		cfg.ComputeBetweenness = false
		cfg.BetweennessSkipReason = "graph too large (>5000 nodes)"
		cfg.PageRankTimeout = 2 * time.Second
	case nodes > 1000 || edges > 10000:
		cfg.BetweennessTimeout = 2 * time.Second
		cfg.PageRankTimeout = time.Second
	}
	return ApplyEnvOverrides(cfg)
}

// ApplyEnvOverrides applies environment overrides:
//
//	CSVGRAPH_SKIP_BETWEENNESS=1  disable betweenness
//	CSVGRAPH_SKIP_PAGERANK=1     disable PageRank
//	CSVGRAPH_ANALYSIS_TIMEOUT=2s timeout for each metric
func ApplyEnvOverrides(cfg Config) Config {
	if envBool("CSVGRAPH_SKIP_BETWEENNESS") {
		cfg.ComputeBetweenness = false
		cfg.BetweennessSkipReason = "disabled by CSVGRAPH_SKIP_BETWEENNESS"
	}
	if envBool("CSVGRAPH_SKIP_PAGERANK") {
		cfg.ComputePageRank = false
	}
	if v := os.Getenv("CSVGRAPH_ANALYSIS_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.PageRankTimeout = d
			cfg.BetweennessTimeout = d
		}
	}
	return cfg
}

func envBool(name string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(name)))
	if v == "" {
		return false
	}
	if v == "yes" {
		return true
	}
	b, _ := strconv.ParseBool(v)
	return b
}
