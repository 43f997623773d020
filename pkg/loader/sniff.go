package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

// Kind classifies a CSV file by its header.
type Kind int

const (
	KindUnknown Kind = iota
	KindNodes
	KindEdges
)

func (k Kind) String() string {
	switch k {
	case KindNodes:
		return "nodes"
	case KindEdges:
		return "edges"
	default:
		return "unknown"
	}
}

// SniffKind reads only the header of path. A header naming both a source
// and a target column is an edges file; one naming an id column is a nodes
// file. Edges win when both match.
func SniffKind(path string) (Kind, error) {
	f, err := os.Open(path)
	if err != nil {
		return KindUnknown, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return SniffKindReader(f)
}

// SniffKindReader is SniffKind over an open stream.
func SniffKindReader(r io.Reader) (Kind, error) {
	lr, err := newLineReader(r, 0)
	if err != nil {
		return KindUnknown, err
	}

	for {
		raw, err := lr.next()
		if err == io.EOF {
			return KindUnknown, ErrEmptyInput
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				continue
			}
			return KindUnknown, fmt.Errorf("error reading csv header: %w", err)
		}
		if isBlank(raw) {
			continue
		}
		return classify(raw), nil
	}
}

func classify(raw []string) Kind {
	present := make(map[string]bool, len(raw))
	for _, h := range raw {
		present[canonicalHeader(h)] = true
	}
	anyOf := func(cols []string) bool {
		for _, c := range cols {
			if present[c] {
				return true
			}
		}
		return false
	}
	switch {
	case anyOf(edgeSourceColumns) && anyOf(edgeTargetColumns):
		return KindEdges
	case anyOf(nodeIDColumns):
		return KindNodes
	default:
		return KindUnknown
	}
}
