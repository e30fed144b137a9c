package graph

import (
	"log/slog"

	"github.com/brunobiangulo/gocvot/schema"
)

// EdgeBuilder turns relationship maps into validated causal vectors that
// reference registry node IDs.
type EdgeBuilder struct {
	reg      *Registry
	defaults Defaults
	edges    map[string][]Edge
	seen     map[string]map[string]bool // relationship type -> "from->to"
}

// NewEdgeBuilder returns a builder resolving endpoints against reg.
func NewEdgeBuilder(reg *Registry, defaults Defaults) *EdgeBuilder {
	return &EdgeBuilder{
		reg:      reg,
		defaults: defaults,
		edges:    make(map[string][]Edge),
		seen:     make(map[string]map[string]bool),
	}
}

// Add resolves every source/target pair of links against the relationship's
// declared endpoint types and appends the new edges. Endpoints that are not
// registered under the expected type are dropped silently. It returns the
// number of edges added.
func (b *EdgeBuilder) Add(rel schema.RelationshipType, links Links) int {
	added := 0
	for _, link := range links {
		fromID, ok := b.reg.Resolve(rel.From, link.Source)
		if !ok {
			slog.Debug("graph: dropping unresolved source",
				"relationship", rel.Name, "source", link.Source, "want_type", rel.From)
			continue
		}
		for _, target := range link.Targets {
			toID, ok := b.reg.Resolve(rel.To, target)
			if !ok {
				slog.Debug("graph: dropping unresolved target",
					"relationship", rel.Name, "target", target, "want_type", rel.To)
				continue
			}
			if b.hasEdge(rel.Name, fromID, toID) {
				continue
			}
			b.edges[rel.Name] = append(b.edges[rel.Name], Edge{
				From:             fromID,
				To:               toID,
				RelationshipType: rel.Name,
				Weight:           b.defaults.Weight,
				Confidence:       b.defaults.Confidence,
				AnalysisType:     AnalysisPlaceholder,
			})
			b.seen[rel.Name][edgeKey(fromID, toID)] = true
			added++
		}
	}
	return added
}

// hasEdge decides edge identity: within one relationship type, (from, to)
// occurs at most once. Re-deriving an edge from another section is a no-op.
func (b *EdgeBuilder) hasEdge(rel, from, to string) bool {
	set, ok := b.seen[rel]
	if !ok {
		set = make(map[string]bool)
		b.seen[rel] = set
	}
	return set[edgeKey(from, to)]
}

// Edges returns the accumulated edges keyed by relationship type, each list
// in append order.
func (b *EdgeBuilder) Edges() map[string][]Edge {
	out := make(map[string][]Edge, len(b.edges))
	for rel, edges := range b.edges {
		cp := make([]Edge, len(edges))
		copy(cp, edges)
		out[rel] = cp
	}
	return out
}

// Len returns the total number of edges built.
func (b *EdgeBuilder) Len() int {
	n := 0
	for _, edges := range b.edges {
		n += len(edges)
	}
	return n
}
