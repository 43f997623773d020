// Package testutil provides deterministic CSV graph fixtures for tests and
// benchmarks.
package testutil

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"

	"github.com/vanderheijden86/csvgraph/pkg/model"
)

// GraphFixture is an abstract topology: node names plus index pairs.
type GraphFixture struct {
	Description string   `json:"description"`
	Nodes       []string `json:"nodes"`
	Edges       [][2]int `json:"edges"` // [from_idx, to_idx]
}

// GeneratorConfig controls how fixtures become CSV records.
type GeneratorConfig struct {
	Seed      int64    // Random seed; 0 means 42
	IDPrefix  string   // Prefix for node ids (default: "N")
	Types     []string // Node types cycled by index (default: person, place, thing)
	EdgeTypes []string // Edge types picked at random (default: links)

	DuplicateNodes float64 // fraction of node rows repeated with a new label
	DuplicateEdges float64 // fraction of edge rows repeated
	Dangling       int     // edges whose target id is absent from the node file
	MissingType    float64 // fraction of nodes with an empty type
	MissingLabel   float64 // fraction of nodes with an empty label
}

// DefaultConfig returns a config producing clean records.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:      42,
		IDPrefix:  "N",
		Types:     []string{"person", "place", "thing"},
		EdgeTypes: []string{"links"},
	}
}

// Generator creates fixtures and converts them to records.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	def := DefaultConfig()
	if cfg.Seed == 0 {
		cfg.Seed = def.Seed
	}
	if cfg.IDPrefix == "" {
		cfg.IDPrefix = def.IDPrefix
	}
	if len(cfg.Types) == 0 {
		cfg.Types = def.Types
	}
	if len(cfg.EdgeTypes) == 0 {
		cfg.EdgeTypes = def.EdgeTypes
	}
	return &Generator{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}
}

// NewDefault creates a Generator with default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

func names(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("n%d", i)
	}
	return out
}

// Chain creates n0 -> n1 -> ... -> n{size-1}.
func (g *Generator) Chain(size int) GraphFixture {
	edges := make([][2]int, 0, max(0, size-1))
	for i := 1; i < size; i++ {
		edges = append(edges, [2]int{i - 1, i})
	}
	return GraphFixture{
		Description: fmt.Sprintf("chain of %d nodes", size),
		Nodes:       names(size),
		Edges:       edges,
	}
}

// Star creates a hub with edges to every spoke.
func (g *Generator) Star(spokes int) GraphFixture {
	nodes := names(spokes + 1)
	edges := make([][2]int, spokes)
	for i := 1; i <= spokes; i++ {
		edges[i-1] = [2]int{0, i}
	}
	return GraphFixture{
		Description: fmt.Sprintf("star with %d spokes", spokes),
		Nodes:       nodes,
		Edges:       edges,
	}
}

// Cycle creates n0 -> n1 -> ... -> n0.
func (g *Generator) Cycle(size int) GraphFixture {
	if size < 2 {
		size = 2
	}
	gf := g.Chain(size)
	gf.Edges = append(gf.Edges, [2]int{size - 1, 0})
	gf.Description = fmt.Sprintf("cycle of %d nodes", size)
	return gf
}

// Disconnected creates components chains of componentSize nodes each.
func (g *Generator) Disconnected(components, componentSize int) GraphFixture {
	var edges [][2]int
	for c := 0; c < components; c++ {
		base := c * componentSize
		for i := 1; i < componentSize; i++ {
			edges = append(edges, [2]int{base + i - 1, base + i})
		}
	}
	return GraphFixture{
		Description: fmt.Sprintf("%d chains of %d nodes", components, componentSize),
		Nodes:       names(components * componentSize),
		Edges:       edges,
	}
}

// Random creates size nodes where each ordered pair i<j is linked with
// probability density.
func (g *Generator) Random(size int, density float64) GraphFixture {
	var edges [][2]int
	for i := 0; i < size; i++ {
		for j := i + 1; j < size; j++ {
			if g.rng.Float64() < density {
				edges = append(edges, [2]int{i, j})
			}
		}
	}
	return GraphFixture{
		Description: fmt.Sprintf("random graph of %d nodes, density %.2f", size, density),
		Nodes:       names(size),
		Edges:       edges,
	}
}

// Records converts a fixture to raw node and edge rows, applying the
// configured duplicates, dangling edges and missing fields.
func (g *Generator) Records(gf GraphFixture) ([]model.NodeRecord, []model.EdgeRecord) {
	id := func(i int) string { return fmt.Sprintf("%s%d", g.cfg.IDPrefix, i) }

	nodes := make([]model.NodeRecord, 0, len(gf.Nodes))
	for i, name := range gf.Nodes {
		rec := model.NodeRecord{
			ID:    id(i),
			Type:  g.cfg.Types[i%len(g.cfg.Types)],
			Label: name,
		}
		if g.rng.Float64() < g.cfg.MissingType {
			rec.Type = ""
		}
		if g.rng.Float64() < g.cfg.MissingLabel {
			rec.Label = ""
		}
		nodes = append(nodes, rec)
	}
	for i := range gf.Nodes {
		if g.rng.Float64() < g.cfg.DuplicateNodes {
			dup := nodes[i]
			dup.Label = dup.Label + " (updated)"
			nodes = append(nodes, dup)
		}
	}

	edges := make([]model.EdgeRecord, 0, len(gf.Edges))
	for _, e := range gf.Edges {
		edges = append(edges, model.EdgeRecord{
			Source:   id(e[0]),
			Target:   id(e[1]),
			EdgeType: g.cfg.EdgeTypes[g.rng.Intn(len(g.cfg.EdgeTypes))],
		})
	}
	for i := range gf.Edges {
		if g.rng.Float64() < g.cfg.DuplicateEdges {
			edges = append(edges, edges[i])
		}
	}
	for i := 0; i < g.cfg.Dangling && len(gf.Nodes) > 0; i++ {
		edges = append(edges, model.EdgeRecord{
			Source:   id(g.rng.Intn(len(gf.Nodes))),
			Target:   fmt.Sprintf("missing%d", i),
			EdgeType: g.cfg.EdgeTypes[0],
		})
	}

	for i := range nodes {
		nodes[i].Row = i + 1
	}
	for i := range edges {
		edges[i].Row = i + 1
	}
	return nodes, edges
}

// WriteCSV writes nodes.csv and edges.csv into dir and returns their paths.
func WriteCSV(dir string, nodes []model.NodeRecord, edges []model.EdgeRecord) (nodesPath, edgesPath string, err error) {
	nodesPath = filepath.Join(dir, "nodes.csv")
	edgesPath = filepath.Join(dir, "edges.csv")

	nodeRows := [][]string{{"id", "type", "label"}}
	for _, n := range nodes {
		nodeRows = append(nodeRows, []string{n.ID, n.Type, n.Label})
	}
	edgeRows := [][]string{{"source", "target", "edge_type"}}
	for _, e := range edges {
		edgeRows = append(edgeRows, []string{e.Source, e.Target, e.EdgeType})
	}

	if err := writeRows(nodesPath, nodeRows); err != nil {
		return "", "", err
	}
	if err := writeRows(edgesPath, edgeRows); err != nil {
		return "", "", err
	}
	return nodesPath, edgesPath, nil
}

func writeRows(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// QuickChain returns clean records for a chain of size nodes.
func QuickChain(size int) ([]model.NodeRecord, []model.EdgeRecord) {
	g := NewDefault()
	return g.Records(g.Chain(size))
}

// QuickRandom returns clean records for a random graph.
func QuickRandom(size int, density float64) ([]model.NodeRecord, []model.EdgeRecord) {
	g := NewDefault()
	return g.Records(g.Random(size, density))
}

// NodeID returns the id Records assigns to fixture index i with the default
// prefix.
func NodeID(i int) string {
	return "N" + strconv.Itoa(i)
}
