// Package loader reads node and edge CSV files into loosely typed records.
//
// Parsing is best effort: a header row names the fields, every following row
// becomes one record, and short or malformed rows are kept with empty fields
// and a warning. Only I/O failures are returned as errors.
package loader

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vanderheijden86/csvgraph/pkg/debug"
	"github.com/vanderheijden86/csvgraph/pkg/metrics"
	"github.com/vanderheijden86/csvgraph/pkg/model"
)

// ErrEmptyInput is returned when the input has no header row at all.
var ErrEmptyInput = errors.New("csv input has no header row")

// Column aliases, in priority order. Header names are compared after
// canonicalHeader folding, so "edgeType", "edge_type" and "Edge Type" match.
// "name" is the last resort for both id and label.
var (
	nodeIDColumns    = []string{"id", "nodeid", "node", "key", "name"}
	nodeTypeColumns  = []string{"type", "category", "group", "kind"}
	nodeLabelColumns = []string{"label", "title", "name"}

	edgeSourceColumns = []string{"source", "from", "src"}
	edgeTargetColumns = []string{"target", "to", "dst"}
	edgeTypeColumns   = []string{"edgetype", "type", "relation", "kind"}
)

// ParseOptions configures the behavior of the CSV parsers.
type ParseOptions struct {
	// WarningHandler is called with warning messages (e.g., malformed rows).
	// If nil, warnings go to the debug channel.
	WarningHandler func(string)

	// Comma is the field delimiter. If 0, ',' is used.
	Comma rune

	// RowFilter, when set, drops every record for which it returns false.
	// Filtered rows keep their place in the Row numbering.
	RowFilter func(Record) bool
}

// Record is one parsed data row keyed by canonical header name.
type Record struct {
	Row    int // 1-based data row, header excluded
	Fields map[string]string
}

// Get returns the first non-empty value among the given columns.
func (r Record) Get(columns ...string) string {
	for _, c := range columns {
		if v, ok := r.Fields[c]; ok && v != "" {
			return v
		}
	}
	return ""
}

// LoadNodesFromFile reads node records from a CSV file.
func LoadNodesFromFile(path string) ([]model.NodeRecord, error) {
	return LoadNodesFromFileWithOptions(path, ParseOptions{})
}

// LoadNodesFromFileWithOptions reads node records from a CSV file with custom options.
func LoadNodesFromFileWithOptions(path string, opts ParseOptions) ([]model.NodeRecord, error) {
	file, err := openInput(path, "nodes")
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ParseNodesWithOptions(file, opts)
}

// LoadEdgesFromFile reads edge records from a CSV file.
func LoadEdgesFromFile(path string) ([]model.EdgeRecord, error) {
	return LoadEdgesFromFileWithOptions(path, ParseOptions{})
}

// LoadEdgesFromFileWithOptions reads edge records from a CSV file with custom options.
func LoadEdgesFromFileWithOptions(path string, opts ParseOptions) ([]model.EdgeRecord, error) {
	file, err := openInput(path, "edges")
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ParseEdgesWithOptions(file, opts)
}

func openInput(path, kind string) (*os.File, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("no %s file found at %s", kind, path)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file: %w", kind, err)
	}
	return file, nil
}

// ParseNodes parses node CSV content from a reader.
func ParseNodes(r io.Reader) ([]model.NodeRecord, error) {
	return ParseNodesWithOptions(r, ParseOptions{})
}

// ParseNodesWithOptions parses node CSV content with custom options.
// Columns outside id/type/label are preserved in NodeRecord.Extra.
func ParseNodesWithOptions(r io.Reader, opts ParseOptions) ([]model.NodeRecord, error) {
	header, records, err := ParseRecordsWithOptions(r, opts)
	if err != nil {
		return nil, err
	}
	warnMissingColumns(header, opts, "nodes", [][]string{nodeIDColumns})

	known := columnSet(nodeIDColumns, nodeTypeColumns, nodeLabelColumns)
	nodes := make([]model.NodeRecord, 0, len(records))
	for _, rec := range records {
		n := model.NodeRecord{
			ID:    rec.Get(nodeIDColumns...),
			Type:  rec.Get(nodeTypeColumns...),
			Label: rec.Get(nodeLabelColumns...),
			Row:   rec.Row,
		}
		for k, v := range rec.Fields {
			if known[k] || v == "" {
				continue
			}
			if n.Extra == nil {
				n.Extra = make(map[string]string)
			}
			n.Extra[k] = v
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// ParseEdges parses edge CSV content from a reader.
func ParseEdges(r io.Reader) ([]model.EdgeRecord, error) {
	return ParseEdgesWithOptions(r, ParseOptions{})
}

// ParseEdgesWithOptions parses edge CSV content with custom options.
func ParseEdgesWithOptions(r io.Reader, opts ParseOptions) ([]model.EdgeRecord, error) {
	header, records, err := ParseRecordsWithOptions(r, opts)
	if err != nil {
		return nil, err
	}
	warnMissingColumns(header, opts, "edges", [][]string{edgeSourceColumns, edgeTargetColumns})

	edges := make([]model.EdgeRecord, 0, len(records))
	for _, rec := range records {
		edges = append(edges, model.EdgeRecord{
			Source:   rec.Get(edgeSourceColumns...),
			Target:   rec.Get(edgeTargetColumns...),
			EdgeType: rec.Get(edgeTypeColumns...),
			Row:      rec.Row,
		})
	}
	return edges, nil
}

// ParseRecords parses header-driven CSV into loosely typed records.
func ParseRecords(r io.Reader) ([]string, []Record, error) {
	return ParseRecordsWithOptions(r, ParseOptions{})
}

// ParseRecordsWithOptions parses header-driven CSV with custom options.
// It returns the canonical header and one Record per data row. Each physical
// line is one row: quotes are read lazily and never span lines, so a stray
// quote affects only the row it is on.
func ParseRecordsWithOptions(r io.Reader, opts ParseOptions) ([]string, []Record, error) {
	defer metrics.Timer(metrics.CSVParse)()

	warn := opts.WarningHandler
	if warn == nil {
		warn = func(msg string) {
			debug.Log("loader: %s", msg)
		}
	}

	lr, err := newLineReader(r, opts.Comma)
	if err != nil {
		return nil, nil, err
	}

	var header []string
	for header == nil {
		raw, err := lr.next()
		if err == io.EOF {
			return nil, nil, ErrEmptyInput
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				warn(fmt.Sprintf("skipping malformed header on line %d: %v", perr.Line, perr.Err))
				continue
			}
			return nil, nil, fmt.Errorf("error reading csv header: %w", err)
		}
		if isBlank(raw) {
			continue
		}
		header = make([]string, len(raw))
		for i, h := range raw {
			header[i] = canonicalHeader(h)
		}
	}

	var records []Record
	row := 0
	for {
		raw, err := lr.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return nil, nil, fmt.Errorf("error reading csv stream at row %d: %w", row+1, err)
			}
			// unsplittable lines still count as a row, with every field empty
			warn(fmt.Sprintf("malformed row on line %d: %v", perr.Line, perr.Err))
			raw = nil
		} else if isBlank(raw) {
			continue
		}
		row++

		if raw != nil && len(raw) != len(header) {
			warn(fmt.Sprintf("row %d has %d fields, header has %d", row, len(raw), len(header)))
		}

		fields := make(map[string]string, len(header))
		for i, name := range header {
			if name == "" || i >= len(raw) {
				continue
			}
			// first occurrence of a duplicated header wins
			if _, dup := fields[name]; dup {
				continue
			}
			fields[name] = strings.TrimSpace(raw[i])
		}
		rec := Record{Row: row, Fields: fields}
		if opts.RowFilter != nil && !opts.RowFilter(rec) {
			continue
		}
		records = append(records, rec)
	}

	return header, records, nil
}

// lineReader yields one CSV record per physical line.
type lineReader struct {
	br    *bufio.Reader
	comma rune
	line  int
}

func newLineReader(r io.Reader, comma rune) (*lineReader, error) {
	br := bufio.NewReader(r)
	if err := skipBOM(br); err != nil {
		return nil, fmt.Errorf("error reading csv stream: %w", err)
	}
	if comma == 0 {
		comma = ','
	}
	return &lineReader{br: br, comma: comma}, nil
}

// next returns the fields of the next line, an empty slice for a blank line,
// io.EOF at the end and a *csv.ParseError for a line that cannot be split.
func (lr *lineReader) next() ([]string, error) {
	line, err := lr.br.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return nil, err
	}
	lr.line++
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return []string{}, nil
	}

	cr := csv.NewReader(strings.NewReader(line))
	cr.Comma = lr.comma
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true
	fields, err := cr.Read()
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			perr.StartLine, perr.Line = lr.line, lr.line
			return nil, perr
		}
		return nil, &csv.ParseError{StartLine: lr.line, Line: lr.line, Err: err}
	}
	return fields, nil
}

func warnMissingColumns(header []string, opts ParseOptions, kind string, required [][]string) {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}
	for _, aliases := range required {
		found := false
		for _, a := range aliases {
			if present[a] {
				found = true
				break
			}
		}
		if !found {
			msg := fmt.Sprintf("%s header has no %q column; values will be empty", kind, aliases[0])
			if opts.WarningHandler != nil {
				opts.WarningHandler(msg)
			} else {
				debug.Log("loader: %s", msg)
			}
		}
	}
}

// canonicalHeader folds a header cell to lower case without separators.
func canonicalHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(h)
}

func columnSet(groups ...[]string) map[string]bool {
	set := make(map[string]bool)
	for _, g := range groups {
		for _, c := range g {
			set[c] = true
		}
	}
	return set
}

func isBlank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// skipBOM discards a leading UTF-8 Byte Order Mark if present.
func skipBOM(br *bufio.Reader) error {
	b, err := br.Peek(3)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return err
	}
	if bytes.HasPrefix(b, []byte{0xEF, 0xBB, 0xBF}) {
		_, _ = br.Discard(3)
	}
	return nil
}
