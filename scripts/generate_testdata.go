//go:build ignore

// generate_testdata.go creates standard CSV datasets for benchmarking.
// Usage: go run scripts/generate_testdata.go
//
// Creates tests/testdata/benchmark/<name>/{nodes,edges}.csv for
// small (100 nodes), medium (1000), large (5000) and huge (20000).
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vanderheijden86/csvgraph/pkg/testutil"
)

type datasetSpec struct {
	name string
	size int
}

var datasets = []datasetSpec{
	{"small", 100},
	{"medium", 1000},
	{"large", 5000},
	{"huge", 20000},
}

func main() {
	outputDir := "tests/testdata/benchmark"

	for _, ds := range datasets {
		fmt.Printf("Generating %s dataset (%d nodes)...\n", ds.name, ds.size)

		dir := filepath.Join(outputDir, ds.name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
			os.Exit(1)
		}

		gen := testutil.New(testutil.GeneratorConfig{
			Seed:           int64(ds.size),
			IDPrefix:       "B",
			Types:          []string{"service", "database", "queue", "client", "cache", "job"},
			EdgeTypes:      []string{"calls", "reads", "writes", "publishes"},
			DuplicateNodes: 0.02,
			DuplicateEdges: 0.05,
			Dangling:       ds.size / 100,
			MissingType:    0.01,
			MissingLabel:   0.03,
		})
		nodes, edges := gen.Records(gen.Random(ds.size, averageDegree(ds.size)))

		nodesPath, edgesPath, err := testutil.WriteCSV(dir, nodes, edges)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", dir, err)
			os.Exit(1)
		}
		fmt.Printf("  Written %s (%d rows), %s (%d rows)\n", nodesPath, len(nodes), edgesPath, len(edges))
	}

	fmt.Println("\nDone! Test datasets created in", outputDir)
}

// averageDegree keeps roughly three edges per node regardless of size.
func averageDegree(size int) float64 {
	if size < 2 {
		return 0
	}
	return 6 / float64(size-1)
}
