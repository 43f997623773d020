package datasource

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/vanderheijden86/csvgraph/pkg/loader"
	"github.com/vanderheijden86/csvgraph/pkg/session"
)

// ErrNoSource is returned when a directory holds no usable file of a kind.
var ErrNoSource = errors.New("no csv source found")

// ValidateSource parses the whole file and records its row count. Files
// without a header are invalid; malformed rows are not.
func ValidateSource(s *DataSource) error {
	f, err := os.Open(s.Path)
	if err != nil {
		s.Valid = false
		s.ValidationError = err.Error()
		return err
	}
	defer f.Close()

	_, records, err := loader.ParseRecordsWithOptions(f, loader.ParseOptions{
		WarningHandler: func(string) {},
	})
	if err != nil {
		s.Valid = false
		s.ValidationError = err.Error()
		return err
	}
	s.Rows = len(records)
	s.Valid = true
	s.ValidationError = ""
	return nil
}

// SelectBestSource returns the first valid source of kind. sources must be
// ordered as DiscoverSources returns them.
func SelectBestSource(sources []DataSource, kind loader.Kind) (DataSource, error) {
	for _, s := range sources {
		if s.Kind == kind && (s.Valid || s.ValidationError == "") {
			return s, nil
		}
	}
	return DataSource{}, fmt.Errorf("%w: no %s file", ErrNoSource, kind)
}

// ResolveDir discovers the nodes and edges files inside dir and returns
// them as a load request.
func ResolveDir(dir string, log *zap.Logger) (session.Request, error) {
	sources, err := DiscoverSources(DiscoveryOptions{
		Dir:                    dir,
		ValidateAfterDiscovery: true,
		Logger:                 log,
	})
	if err != nil {
		return session.Request{}, err
	}

	nodes, err := SelectBestSource(sources, loader.KindNodes)
	if err != nil {
		return session.Request{}, fmt.Errorf("%s: %w", dir, err)
	}
	edges, err := SelectBestSource(sources, loader.KindEdges)
	if err != nil {
		return session.Request{}, fmt.Errorf("%s: %w", dir, err)
	}
	if log != nil {
		log.Info("selected sources", zap.String("nodes", nodes.Path), zap.String("edges", edges.Path))
	}
	return session.Request{NodesPath: nodes.Path, EdgesPath: edges.Path}, nil
}
