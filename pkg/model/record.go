// Package model defines the record types parsed from node and edge CSV files.
package model

import "fmt"

// Fallback values substituted for missing optional fields.
const (
	NoLabel = "No Label"
	NoType  = "No Type"
)

// NodeRecord is one row of the nodes file. Identity is ID.
type NodeRecord struct {
	ID    string            `json:"id"`
	Type  string            `json:"type"`
	Label string            `json:"label,omitempty"`
	Row   int               `json:"row,omitempty"`   // 1-based data row, header excluded
	Extra map[string]string `json:"extra,omitempty"` // columns outside id/type/label
}

// DisplayLabel returns the label, falling back to NoLabel.
func (n NodeRecord) DisplayLabel() string {
	if n.Label == "" {
		return NoLabel
	}
	return n.Label
}

// Category returns the type used for color assignment, falling back to NoType.
func (n NodeRecord) Category() string {
	if n.Type == "" {
		return NoType
	}
	return n.Type
}

// EdgeRecord is one row of the edges file.
type EdgeRecord struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	EdgeType string `json:"edge_type,omitempty"`
	Row      int    `json:"row,omitempty"`
}

// Key returns the composite (source, target) key used for consolidation.
func (e EdgeRecord) Key() EdgeKey {
	return EdgeKey{Source: e.Source, Target: e.Target}
}

// EdgeKey identifies a logical edge. Direction matters: (a,b) and (b,a) differ.
type EdgeKey struct {
	Source string
	Target string
}

func (k EdgeKey) String() string {
	return fmt.Sprintf("%s->%s", k.Source, k.Target)
}

// ConsolidatedEdge is the single logical edge for every raw row sharing
// one EdgeKey. EdgeType comes from the first occurrence.
type ConsolidatedEdge struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	EdgeType string `json:"edge_type,omitempty"`
	Count    int    `json:"count"`
}

// Key returns the composite key of the edge.
func (e ConsolidatedEdge) Key() EdgeKey {
	return EdgeKey{Source: e.Source, Target: e.Target}
}
