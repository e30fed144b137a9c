package graph

import "github.com/brunobiangulo/gocvot/schema"

// Analysis type tags recorded on every edge.
const (
	AnalysisPlaceholder = "placeholder"
	AnalysisReconciled  = "llm_contextual_analysis"
)

// Weight and confidence bounds for causal vectors.
const (
	MinScore = 0.1
	MaxScore = 1.0
)

// Node is one deduplicated entity mention.
type Node struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Description string `json:"description"`
	SourceTitle string `json:"source_title,omitempty"`
}

// Edge is a directed, weighted causal vector between two nodes.
type Edge struct {
	From             string  `json:"from"`
	To               string  `json:"to"`
	RelationshipType string  `json:"relationship_type"`
	Weight           float64 `json:"weight"`
	Confidence       float64 `json:"confidence"`
	AnalysisType     string  `json:"analysis_type"`
}

// Key returns the "from->to" identity used for dedup and reconciliation.
func (e Edge) Key() string {
	return edgeKey(e.From, e.To)
}

func edgeKey(from, to string) string {
	return from + "->" + to
}

// Metadata describes a CVOT snapshot.
type Metadata struct {
	System               string `json:"system"`
	Version              string `json:"version"`
	CreatedDate          string `json:"created_date"`
	Description          string `json:"description"`
	SafetyLevel          string `json:"safety_level,omitempty"`
	LastWeightUpdate     string `json:"last_weight_update,omitempty"`
	WeightAnalysisMethod string `json:"weight_analysis_method,omitempty"`
}

// Graph is the persisted CVOT snapshot. Slices keep discovery order.
type Graph struct {
	Metadata Metadata          `json:"cvot_metadata"`
	Nodes    map[string][]Node `json:"nodes"`
	Edges    map[string][]Edge `json:"causal_vectors"`
}

// Defaults are the placeholder scores given to edges before reconciliation.
type Defaults struct {
	Weight     float64 `json:"weight" yaml:"weight"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// DefaultScores is the placeholder used when none is configured.
var DefaultScores = Defaults{Weight: 0.5, Confidence: 0.5}

// New returns an empty graph with a key for every declared type.
func New(s schema.Schema, meta Metadata) *Graph {
	g := &Graph{
		Metadata: meta,
		Nodes:    make(map[string][]Node, len(s.EntityTypes)),
		Edges:    make(map[string][]Edge, len(s.RelationshipTypes)),
	}
	for _, name := range s.EntityNames() {
		g.Nodes[name] = []Node{}
	}
	for _, name := range s.RelationshipNames() {
		g.Edges[name] = []Edge{}
	}
	return g
}

// Counts summarises a snapshot for logging and metrics.
type Counts struct {
	Nodes      map[string]int `json:"nodes"`
	Edges      map[string]int `json:"edges"`
	TotalNodes int            `json:"total_nodes"`
	TotalEdges int            `json:"total_edges"`
	Reconciled int            `json:"reconciled"`
}

// Counts returns node counts per type and edge counts per relationship type.
func (g *Graph) Counts() Counts {
	c := Counts{
		Nodes: make(map[string]int, len(g.Nodes)),
		Edges: make(map[string]int, len(g.Edges)),
	}
	for t, nodes := range g.Nodes {
		c.Nodes[t] = len(nodes)
		c.TotalNodes += len(nodes)
	}
	for rel, edges := range g.Edges {
		c.Edges[rel] = len(edges)
		c.TotalEdges += len(edges)
		for _, e := range edges {
			if e.AnalysisType == AnalysisReconciled {
				c.Reconciled++
			}
		}
	}
	return c
}
