// Package datasource discovers node and edge CSV files in a directory and
// selects the pair to load when the user names a directory instead of two
// files.
package datasource

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vanderheijden86/csvgraph/pkg/loader"
)

// Priority values by how a file was recognized (higher = preferred).
const (
	PriorityExactName   = 100 // nodes.csv, edges.csv
	PriorityNameMatch   = 80  // name mentions node or edge
	PriorityHeaderSniff = 50  // recognized from the header alone
)

// DataSource is one candidate CSV file.
type DataSource struct {
	// Kind is what the header says the file holds
	Kind loader.Kind `json:"kind"`
	// Path is the absolute path to the file
	Path string `json:"path"`
	// Priority determines preference between files of the same kind
	Priority int `json:"priority"`
	// ModTime is the last modification time of the file
	ModTime time.Time `json:"mod_time"`
	// Size is the file size in bytes
	Size int64 `json:"size"`
	// Valid indicates whether the file passed validation
	Valid bool `json:"valid"`
	// ValidationError describes why validation failed (if Valid is false)
	ValidationError string `json:"validation_error,omitempty"`
	// Rows is the number of data rows (set during validation)
	Rows int `json:"rows"`
}

// String returns a human-readable description of the source
func (s DataSource) String() string {
	status := "valid"
	if !s.Valid {
		status = fmt.Sprintf("invalid: %s", s.ValidationError)
	}
	return fmt.Sprintf("%s (%s, priority=%d, mod=%s, rows=%d, %s)",
		s.Path, s.Kind, s.Priority, s.ModTime.Format(time.RFC3339), s.Rows, status)
}

// DiscoveryOptions configures source discovery behavior
type DiscoveryOptions struct {
	// Dir is the directory to scan (cwd if empty)
	Dir string
	// ValidateAfterDiscovery parses each discovered file
	ValidateAfterDiscovery bool
	// IncludeInvalid includes sources that failed validation in results
	IncludeInvalid bool
	// Logger receives discovery details at debug level
	Logger *zap.Logger
}

// DiscoverSources finds every recognizable CSV file directly inside Dir,
// most preferred first.
func DiscoverSources(opts DiscoveryOptions) ([]DataSource, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	dir := opts.Dir
	if dir == "" {
		var err error
		if dir, err = os.Getwd(); err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}
	log.Debug("discovering sources", zap.String("dir", dir))

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var sources []DataSource
	for _, e := range entries {
		if e.IsDir() || skipName(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		info, err := e.Info()
		if err != nil {
			continue
		}
		kind, err := loader.SniffKind(path)
		if err != nil || kind == loader.KindUnknown {
			log.Debug("skipping unrecognized csv", zap.String("path", path), zap.Error(err))
			continue
		}

		src := DataSource{
			Kind:     kind,
			Path:     path,
			Priority: namePriority(e.Name(), kind),
			ModTime:  info.ModTime(),
			Size:     info.Size(),
		}
		sources = append(sources, src)
		log.Debug("found source",
			zap.String("path", path),
			zap.Stringer("kind", kind),
			zap.Int("priority", src.Priority))
	}

	if opts.ValidateAfterDiscovery {
		for i := range sources {
			if err := ValidateSource(&sources[i]); err != nil {
				log.Debug("validation failed", zap.String("path", sources[i].Path), zap.Error(err))
			}
		}
		if !opts.IncludeInvalid {
			valid := sources[:0]
			for _, s := range sources {
				if s.Valid {
					valid = append(valid, s)
				}
			}
			sources = valid
		}
	}

	sortSources(sources)
	log.Debug("discovered sources", zap.Int("count", len(sources)))
	return sources, nil
}

// sortSources orders by priority, then freshness, then path.
func sortSources(sources []DataSource) {
	sort.SliceStable(sources, func(i, j int) bool {
		a, b := sources[i], sources[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if !a.ModTime.Equal(b.ModTime) {
			return a.ModTime.After(b.ModTime)
		}
		return a.Path < b.Path
	})
}

func skipName(name string) bool {
	lower := strings.ToLower(name)
	if !strings.HasSuffix(lower, ".csv") {
		return true
	}
	// editor backups and merge artifacts
	return strings.HasPrefix(name, ".") ||
		strings.Contains(lower, ".backup") ||
		strings.Contains(lower, ".orig") ||
		strings.Contains(lower, ".bak")
}

func namePriority(name string, kind loader.Kind) int {
	base := strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
	word := "node"
	if kind == loader.KindEdges {
		word = "edge"
	}
	switch {
	case base == word+"s" || base == word:
		return PriorityExactName
	case strings.Contains(base, word):
		return PriorityNameMatch
	default:
		return PriorityHeaderSniff
	}
}
