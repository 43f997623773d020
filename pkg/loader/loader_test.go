package loader_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/vanderheijden86/csvgraph/pkg/loader"
	"github.com/vanderheijden86/csvgraph/pkg/model"
)

func TestParseNodes(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      []model.NodeRecord
		wantWarns int
	}{
		{
			name:  "basic",
			input: "id,type,label\n1,person,Ada\n2,place,Paris\n",
			want: []model.NodeRecord{
				{ID: "1", Type: "person", Label: "Ada", Row: 1},
				{ID: "2", Type: "place", Label: "Paris", Row: 2},
			},
		},
		{
			name:  "header aliases and case",
			input: "Node ID,Category,Name\nx,thing,Box\n",
			want:  []model.NodeRecord{{ID: "x", Type: "thing", Label: "Box", Row: 1}},
		},
		{
			name:  "extra columns preserved",
			input: "id,type,label,weight\n1,a,One,5\n",
			want: []model.NodeRecord{
				{ID: "1", Type: "a", Label: "One", Row: 1, Extra: map[string]string{"weight": "5"}},
			},
		},
		{
			name:      "short row leaves fields empty",
			input:     "id,type,label\n1,a\n",
			want:      []model.NodeRecord{{ID: "1", Type: "a", Row: 1}},
			wantWarns: 1,
		},
		{
			name:  "stray quote kept verbatim",
			input: "id,type,label\n1,a,One\n2,b\"x,Two\nn1,person,Bob \"the builder\"\n3,c,Three\n",
			want: []model.NodeRecord{
				{ID: "1", Type: "a", Label: "One", Row: 1},
				{ID: "2", Type: "b\"x", Label: "Two", Row: 2},
				{ID: "n1", Type: "person", Label: `Bob "the builder"`, Row: 3},
				{ID: "3", Type: "c", Label: "Three", Row: 4},
			},
		},
		{
			name:  "unterminated quote stays on its line",
			input: "id,type,label\nn1,person,\"Bob\nn2,person,Ann\nn3,city,Oslo\n",
			want: []model.NodeRecord{
				{ID: "n1", Type: "person", Label: "Bob", Row: 1},
				{ID: "n2", Type: "person", Label: "Ann", Row: 2},
				{ID: "n3", Type: "city", Label: "Oslo", Row: 3},
			},
		},
		{
			name:  "crlf line endings",
			input: "id,type\r\n1,a\r\n2,b\r\n",
			want:  []model.NodeRecord{{ID: "1", Type: "a", Row: 1}, {ID: "2", Type: "b", Row: 2}},
		},
		{
			name:  "name column is the id without an id column",
			input: "name,group\nalpha,x\nbeta,y\n",
			want: []model.NodeRecord{
				{ID: "alpha", Type: "x", Label: "alpha", Row: 1},
				{ID: "beta", Type: "y", Label: "beta", Row: 2},
			},
		},
		{
			name:  "blank lines ignored",
			input: "id,type\n\n1,a\n , \n2,b\n",
			want:  []model.NodeRecord{{ID: "1", Type: "a", Row: 1}, {ID: "2", Type: "b", Row: 2}},
		},
		{
			name:  "utf8 bom stripped",
			input: "\ufeffid,type\n1,a\n",
			want:  []model.NodeRecord{{ID: "1", Type: "a", Row: 1}},
		},
		{
			name:  "header only",
			input: "id,type,label\n",
			want:  []model.NodeRecord{},
		},
		{
			name:      "missing id column warns",
			input:     "type,label\na,One\n",
			want:      []model.NodeRecord{{Type: "a", Label: "One", Row: 1}},
			wantWarns: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var warns []string
			got, err := loader.ParseNodesWithOptions(strings.NewReader(tt.input), loader.ParseOptions{
				WarningHandler: func(msg string) { warns = append(warns, msg) },
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got  %+v\nwant %+v", got, tt.want)
			}
			if len(warns) != tt.wantWarns {
				t.Errorf("warnings = %d (%v), want %d", len(warns), warns, tt.wantWarns)
			}
		})
	}
}

func TestParseEdges(t *testing.T) {
	input := "from,to,relation\na,b,knows\na,b,likes\nb,c,\n"
	got, err := loader.ParseEdges(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	want := []model.EdgeRecord{
		{Source: "a", Target: "b", EdgeType: "knows", Row: 1},
		{Source: "a", Target: "b", EdgeType: "likes", Row: 2},
		{Source: "b", Target: "c", Row: 3},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got  %+v\nwant %+v", got, want)
	}
}

func TestParseEdges_CustomDelimiter(t *testing.T) {
	got, err := loader.ParseEdgesWithOptions(strings.NewReader("source;target;edge_type\na;b;x\n"), loader.ParseOptions{Comma: ';'})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Source != "a" || got[0].Target != "b" || got[0].EdgeType != "x" {
		t.Errorf("got %+v", got)
	}
}

func TestParseRecords_RowFilter(t *testing.T) {
	input := "id,type\n1,a\n2,skip\n3,b\n"
	_, recs, err := loader.ParseRecordsWithOptions(strings.NewReader(input), loader.ParseOptions{
		RowFilter: func(r loader.Record) bool { return r.Get("type") != "skip" },
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 || recs[0].Row != 1 || recs[1].Row != 3 {
		t.Fatalf("records = %+v, want rows 1 and 3", recs)
	}

	nodes, err := loader.ParseNodesWithOptions(strings.NewReader(input), loader.ParseOptions{
		RowFilter: func(r loader.Record) bool { return r.Row != 1 },
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 2 || nodes[0].ID != "2" {
		t.Errorf("nodes = %+v, want 2 and 3", nodes)
	}
}

func TestEmptyInput(t *testing.T) {
	_, err := loader.ParseNodes(strings.NewReader(""))
	if !errors.Is(err, loader.ErrEmptyInput) {
		t.Errorf("err = %v, want ErrEmptyInput", err)
	}
	_, err = loader.ParseEdges(strings.NewReader("\n\n"))
	if !errors.Is(err, loader.ErrEmptyInput) {
		t.Errorf("err = %v, want ErrEmptyInput", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nodes.csv")
	if err := os.WriteFile(path, []byte("id,type\n1,a\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	nodes, err := loader.LoadNodesFromFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 1 {
		t.Errorf("nodes = %d, want 1", len(nodes))
	}

	_, err = loader.LoadEdgesFromFile(filepath.Join(dir, "missing.csv"))
	if err == nil || !strings.Contains(err.Error(), "no edges file found") {
		t.Errorf("err = %v, want missing file error", err)
	}
}

func TestParseRecords_DuplicateHeaderFirstWins(t *testing.T) {
	header, recs, err := loader.ParseRecords(strings.NewReader("id,ID,type\n1,2,a\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(header) != 3 || header[0] != "id" || header[1] != "id" {
		t.Errorf("header = %v", header)
	}
	if got := recs[0].Get("id"); got != "1" {
		t.Errorf("id = %q, want 1", got)
	}
}

func TestSniffKind(t *testing.T) {
	tests := []struct {
		input string
		want  loader.Kind
	}{
		{"id,type,label\n", loader.KindNodes},
		{"source,target\n", loader.KindEdges},
		{"From,To,Type\n", loader.KindEdges},
		{"id,source,target\n", loader.KindEdges},
		{"\n\nkey,kind\n", loader.KindNodes},
		{"name,group\n", loader.KindNodes},
		{"value,weight\n", loader.KindUnknown},
	}
	for _, tt := range tests {
		got, err := loader.SniffKindReader(strings.NewReader(tt.input))
		if err != nil {
			t.Errorf("%q: unexpected error %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%q: kind = %v, want %v", tt.input, got, tt.want)
		}
	}

	if _, err := loader.SniffKindReader(strings.NewReader("")); !errors.Is(err, loader.ErrEmptyInput) {
		t.Errorf("empty: err = %v, want ErrEmptyInput", err)
	}
}
