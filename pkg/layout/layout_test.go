package layout

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/vanderheijden86/csvgraph/pkg/graph"
	"github.com/vanderheijden86/csvgraph/pkg/model"
)

func chain(ids ...string) *graph.Graph {
	g := graph.New()
	for _, id := range ids {
		g.AddNode(model.NodeRecord{ID: id}, "")
	}
	for i := 1; i < len(ids); i++ {
		g.AddEdge(model.ConsolidatedEdge{Source: ids[i-1], Target: ids[i], Count: 1})
	}
	return g
}

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		in      string
		want    Algorithm
		wantErr bool
	}{
		{"organic", Organic, false},
		{" Hierarchic ", Hierarchic, false},
		{"CIRCULAR", Circular, false},
		{"cluster", Cluster, false},
		{"spiral", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseAlgorithm(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseAlgorithm(%q) err = %v", tt.in, err)
			continue
		}
		if tt.wantErr && !errors.Is(err, ErrUnknownAlgorithm) {
			t.Errorf("ParseAlgorithm(%q) err = %v, want ErrUnknownAlgorithm", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseAlgorithm(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if _, err := New("spiral", Options{}); !errors.Is(err, ErrUnknownAlgorithm) {
		t.Errorf("New(spiral) err = %v", err)
	}
}

func TestEngines_PlaceEveryNode(t *testing.T) {
	g := chain("a", "b", "c", "d", "e")
	g.AddEdge(model.ConsolidatedEdge{Source: "e", Target: "a", Count: 1})
	g.AddNode(model.NodeRecord{ID: "island"}, "")
	g.AddEdge(model.ConsolidatedEdge{Source: "c", Target: "c", Count: 1})

	for _, a := range Algorithms() {
		t.Run(string(a), func(t *testing.T) {
			eng, err := New(a, Options{Seed: 3})
			if err != nil {
				t.Fatal(err)
			}
			pos, err := eng.Layout(context.Background(), g)
			if err != nil {
				t.Fatal(err)
			}
			if len(pos) != g.NodeCount() {
				t.Fatalf("positions = %d, want %d", len(pos), g.NodeCount())
			}
			for id, pt := range pos {
				if math.IsNaN(pt.X) || math.IsNaN(pt.Y) || math.IsInf(pt.X, 0) || math.IsInf(pt.Y, 0) {
					t.Errorf("%s at %+v", id, pt)
				}
			}
		})
	}
}

func TestEngines_EmptyAndSingle(t *testing.T) {
	for _, a := range Algorithms() {
		eng, _ := New(a, Options{})
		pos, err := eng.Layout(context.Background(), graph.New())
		if err != nil || len(pos) != 0 {
			t.Errorf("%s: empty graph gave %v, %v", a, pos, err)
		}
		pos, err = eng.Layout(context.Background(), chain("solo"))
		if err != nil || len(pos) != 1 {
			t.Errorf("%s: single node gave %v, %v", a, pos, err)
		}
	}
}

func TestEngines_Deterministic(t *testing.T) {
	g := chain("a", "b", "c", "d", "e", "f", "g", "h")
	g.AddEdge(model.ConsolidatedEdge{Source: "a", Target: "e", Count: 1})
	g.AddEdge(model.ConsolidatedEdge{Source: "h", Target: "b", Count: 1})

	for _, a := range Algorithms() {
		t.Run(string(a), func(t *testing.T) {
			eng, _ := New(a, Options{Seed: 11})
			first, err := eng.Layout(context.Background(), g)
			if err != nil {
				t.Fatal(err)
			}
			for run := 0; run < 3; run++ {
				again, err := eng.Layout(context.Background(), g)
				if err != nil {
					t.Fatal(err)
				}
				for id, pt := range first {
					if again[id] != pt {
						t.Fatalf("run %d: %s moved from %+v to %+v", run, id, pt, again[id])
					}
				}
			}
		})
	}
}

func TestHierarchic_Layers(t *testing.T) {
	g := chain("a", "b", "c")
	g.AddNode(model.NodeRecord{ID: "d"}, "")
	g.AddEdge(model.ConsolidatedEdge{Source: "c", Target: "d", Count: 1})
	g.AddEdge(model.ConsolidatedEdge{Source: "d", Target: "c", Count: 1})

	eng, _ := New(Hierarchic, Options{LayerGap: 100})
	pos, err := eng.Layout(context.Background(), g)
	if err != nil {
		t.Fatal(err)
	}
	if pos["a"].X != 0 || pos["b"].X != 100 || pos["c"].X != 200 {
		t.Errorf("layers: a=%v b=%v c=%v", pos["a"], pos["b"], pos["c"])
	}
	if pos["c"].X != pos["d"].X {
		t.Errorf("cycle members on different layers: c=%v d=%v", pos["c"], pos["d"])
	}
}

func TestCircular_Ring(t *testing.T) {
	g := chain("a", "b", "c", "d")
	eng, _ := New(Circular, Options{NodeGap: 80})
	pos, _ := eng.Layout(context.Background(), g)

	r := math.Hypot(pos["a"].X, pos["a"].Y)
	for id, pt := range pos {
		if d := math.Hypot(pt.X, pt.Y); math.Abs(d-r) > 1e-9 {
			t.Errorf("%s at radius %f, want %f", id, d, r)
		}
	}
	// first node at the top
	if pos["a"].Y >= 0 || math.Abs(pos["a"].X) > 1e-9 {
		t.Errorf("a = %+v, want top of ring", pos["a"])
	}
}

func TestOrganic_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	eng, _ := New(Organic, Options{})
	if _, err := eng.Layout(ctx, chain("a", "b", "c")); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestFit(t *testing.T) {
	p := Positions{
		"a": {X: -10, Y: 0},
		"b": {X: 10, Y: 5},
		"c": {X: 0, Y: -5},
	}
	fit := p.Fit(200, 100, 10)

	lo, hi := fit.Bounds()
	if lo.X < 10-1e-9 || lo.Y < 10-1e-9 || hi.X > 190+1e-9 || hi.Y > 90+1e-9 {
		t.Errorf("bounds %+v..%+v outside padded viewport", lo, hi)
	}
	// x span 20 maps to 180, y span 10 would map to 90 > 80 available: y limits
	if got := hi.Y - lo.Y; math.Abs(got-80) > 1e-9 {
		t.Errorf("y extent = %f, want 80", got)
	}
	if got := hi.X - lo.X; math.Abs(got-160) > 1e-9 {
		t.Errorf("x extent = %f, want 160 (uniform scale)", got)
	}
}

func TestFit_Degenerate(t *testing.T) {
	single := Positions{"a": {X: 42, Y: -7}}.Fit(100, 60, 5)
	if single["a"] != (Point{X: 50, Y: 30}) {
		t.Errorf("single point = %+v, want centered", single["a"])
	}

	line := Positions{"a": {X: 0, Y: 3}, "b": {X: 10, Y: 3}}.Fit(100, 60, 0)
	if line["a"].Y != 30 || line["b"].Y != 30 {
		t.Errorf("flat line not centered vertically: %+v", line)
	}
	if line["a"].X != 0 || line["b"].X != 100 {
		t.Errorf("flat line x = %f..%f, want 0..100", line["a"].X, line["b"].X)
	}

	if len(Positions{}.Fit(10, 10, 1)) != 0 {
		t.Error("empty positions should stay empty")
	}
}

func TestEngineFunc(t *testing.T) {
	var e Engine = EngineFunc(func(context.Context, *graph.Graph) (Positions, error) {
		return Positions{"x": {X: 1}}, nil
	})
	pos, err := e.Layout(context.Background(), nil)
	if err != nil || pos["x"].X != 1 {
		t.Errorf("EngineFunc = %v, %v", pos, err)
	}
}
