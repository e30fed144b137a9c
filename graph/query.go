package graph

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// UnknownDescription stands in for an edge endpoint missing from the node set.
const UnknownDescription = "Unknown"

// EdgeRef is a flattened causal vector with endpoint descriptions, the unit
// handed to the weight analyzer.
type EdgeRef struct {
	RelationshipType string `json:"relationship_type"`
	FromID           string `json:"from_id"`
	ToID             string `json:"to_id"`
	FromDesc         string `json:"from_desc"`
	ToDesc           string `json:"to_desc"`
}

// SourceTexts resolves a section title to its retained raw text. An unknown
// title yields "".
type SourceTexts interface {
	SourceTextFor(title string) string
}

// Index is a read-only view over a snapshot for lookups.
type Index struct {
	g     *Graph
	reg   *Registry
	nodes map[string]Node
	out   map[string][]Edge
}

// NewIndex builds an index over g. g must not be mutated while the index is
// in use.
func NewIndex(g *Graph) *Index {
	ix := &Index{
		g:     g,
		reg:   NewRegistryFromGraph(g),
		nodes: make(map[string]Node),
		out:   make(map[string][]Edge),
	}
	for _, nodes := range g.Nodes {
		for _, n := range nodes {
			ix.nodes[n.ID] = n
		}
	}
	for _, rel := range sortedKeys(g.Edges) {
		for _, e := range g.Edges[rel] {
			ix.out[e.From] = append(ix.out[e.From], e)
		}
	}
	return ix
}

// Node returns the node record for id.
func (ix *Index) Node(id string) (Node, bool) {
	n, ok := ix.nodes[id]
	return n, ok
}

// NodeDescription returns the canonical description for id.
func (ix *Index) NodeDescription(id string) (string, bool) {
	n, ok := ix.nodes[id]
	if !ok {
		return "", false
	}
	return n.Description, true
}

// FindNode resolves a description to a node ID, matching case- and
// whitespace-insensitively. An empty typ searches all types.
func (ix *Index) FindNode(typ, description string) (string, bool) {
	if typ != "" {
		return ix.reg.Resolve(typ, description)
	}
	for _, t := range sortedKeys(ix.g.Nodes) {
		if id, ok := ix.reg.Resolve(t, description); ok {
			return id, true
		}
	}
	return "", false
}

// AllEdgesFlat lists every edge in snapshot order. Relationship types follow
// order; types not named there come after, by name.
func (ix *Index) AllEdgesFlat(order []string) []EdgeRef {
	var refs []EdgeRef
	for _, rel := range ix.relationOrder(order) {
		for _, e := range ix.g.Edges[rel] {
			refs = append(refs, EdgeRef{
				RelationshipType: rel,
				FromID:           e.From,
				ToID:             e.To,
				FromDesc:         ix.describe(e.From),
				ToDesc:           ix.describe(e.To),
			})
		}
	}
	return refs
}

func (ix *Index) relationOrder(order []string) []string {
	seen := make(map[string]bool, len(ix.g.Edges))
	var rels []string
	for _, rel := range order {
		if _, ok := ix.g.Edges[rel]; ok && !seen[rel] {
			seen[rel] = true
			rels = append(rels, rel)
		}
	}
	for _, rel := range sortedKeys(ix.g.Edges) {
		if !seen[rel] {
			rels = append(rels, rel)
		}
	}
	return rels
}

func (ix *Index) describe(id string) string {
	if d, ok := ix.NodeDescription(id); ok {
		return d
	}
	return UnknownDescription
}

// ContextFor assembles the documentation excerpts for a batch: one block per
// distinct from-node, holding up to limit bytes of the text of the section
// the node was first seen in. Nodes without provenance or retained text
// contribute nothing.
func (ix *Index) ContextFor(batch []EdgeRef, texts SourceTexts, limit int) string {
	if texts == nil {
		return ""
	}
	var b strings.Builder
	seen := make(map[string]bool)
	for _, ref := range batch {
		if seen[ref.FromID] {
			continue
		}
		seen[ref.FromID] = true

		n, ok := ix.nodes[ref.FromID]
		if !ok || n.SourceTitle == "" {
			continue
		}
		text := texts.SourceTextFor(n.SourceTitle)
		if text == "" {
			continue
		}
		if limit > 0 && len(text) > limit {
			text = truncateUTF8(text, limit)
		}
		fmt.Fprintf(&b, "--- Context for '%s' ---\n%s\n\n", n.Description, text)
	}
	return b.String()
}

// Batches splits refs into consecutive batches of at most size elements.
func Batches(refs []EdgeRef, size int) [][]EdgeRef {
	if size <= 0 {
		size = len(refs)
	}
	var out [][]EdgeRef
	for start := 0; start < len(refs); start += size {
		end := start + size
		if end > len(refs) {
			end = len(refs)
		}
		out = append(out, refs[start:end])
	}
	return out
}

// EdgesFrom returns the outgoing edges of id, heaviest first.
func (ix *Index) EdgesFrom(id string) []Edge {
	out := slices.Clone(ix.out[id])
	sort.SliceStable(out, func(i, j int) bool { return out[i].Weight > out[j].Weight })
	return out
}

// Hop is one step of a causal trace.
type Hop struct {
	Depth int  `json:"depth"`
	Edge  Edge `json:"edge"`
	To    Node `json:"to"`
}

// Trace walks outgoing causal vectors breadth-first from id, up to maxDepth
// hops, e.g. indicator -> error -> cause -> solution. Each node is expanded
// once; hops at each depth are ordered by descending weight.
func (ix *Index) Trace(id string, maxDepth int) []Hop {
	if _, ok := ix.nodes[id]; !ok || maxDepth <= 0 {
		return nil
	}
	visited := map[string]bool{id: true}
	queue := []string{id}
	var hops []Hop

	for depth := 1; depth <= maxDepth && len(queue) > 0; depth++ {
		var level []Hop
		var next []string
		for _, from := range queue {
			for _, e := range ix.out[from] {
				if visited[e.To] {
					continue
				}
				visited[e.To] = true
				next = append(next, e.To)
				level = append(level, Hop{Depth: depth, Edge: e, To: ix.nodes[e.To]})
			}
		}
		sort.SliceStable(level, func(i, j int) bool {
			return level[i].Edge.Weight > level[j].Edge.Weight
		})
		hops = append(hops, level...)
		queue = next
	}
	return hops
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
