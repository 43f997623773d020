package export

import (
	"github.com/vanderheijden86/csvgraph/pkg/graph"
	"github.com/vanderheijden86/csvgraph/pkg/legend"
	"github.com/vanderheijden86/csvgraph/pkg/model"
	"github.com/vanderheijden86/csvgraph/pkg/normalize"
)

// sampleGraph builds:
//
//	alice(person) -knows x2-> bob(person) -lives-> paris(place)
//	widget(thing) isolated, carol(person) -> alice
func sampleGraph() (*graph.Graph, legend.Legend) {
	colors := normalize.NewTypeColorMap(nil)
	g := graph.New()
	add := func(id, typ, label string) {
		rec := model.NodeRecord{ID: id, Type: typ, Label: label}
		g.AddNode(rec, colors.Assign(rec.Category()))
	}
	add("alice", "person", "Alice")
	add("bob", "person", "Bob <admin>")
	add("paris", "place", "Paris")
	add("widget", "thing", "")
	add("carol", "person", "Carol")

	g.AddEdge(model.ConsolidatedEdge{Source: "alice", Target: "bob", EdgeType: "knows", Count: 2})
	g.AddEdge(model.ConsolidatedEdge{Source: "bob", Target: "paris", EdgeType: "lives", Count: 1})
	g.AddEdge(model.ConsolidatedEdge{Source: "carol", Target: "alice", Count: 1})
	return g, legend.FromGraph(g)
}

func legendOf(entries ...legend.Entry) legend.Legend {
	return legend.Legend{Entries: entries}
}

func nodeRec(id string) model.NodeRecord {
	return model.NodeRecord{ID: id}
}
