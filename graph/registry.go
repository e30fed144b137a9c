package graph

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// nodeKey is the matching identity of a mention. Only the description is
// normalised; storage keeps the first-seen surface form.
type nodeKey struct {
	typ  string
	norm string
}

func normalize(description string) string {
	return strings.ToLower(strings.TrimSpace(description))
}

// Registry deduplicates entity mentions into stable node IDs. IDs are
// allocated sequentially in first-seen order and never reused, so replaying
// the same ResolveOrCreate calls always yields the same assignment.
//
// A Registry is append-only and not safe for concurrent use.
type Registry struct {
	nodes []Node
	byKey map[nodeKey]int
	byID  map[string]int
	next  int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byKey: make(map[nodeKey]int),
		byID:  make(map[string]int),
	}
}

// NewRegistryFromGraph rebuilds a registry from a persisted snapshot's node
// list. Nodes are replayed in ID order so the next allocated ID continues the
// snapshot's sequence.
func NewRegistryFromGraph(g *Graph) *Registry {
	var all []Node
	for _, nodes := range g.Nodes {
		all = append(all, nodes...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return idOrdinal(all[i].ID) < idOrdinal(all[j].ID)
	})

	r := NewRegistry()
	for _, n := range all {
		key := nodeKey{typ: n.Type, norm: normalize(n.Description)}
		if _, exists := r.byKey[key]; exists {
			continue
		}
		r.byKey[key] = len(r.nodes)
		r.byID[n.ID] = len(r.nodes)
		r.nodes = append(r.nodes, n)
		if ord := idOrdinal(n.ID); ord > r.next {
			r.next = ord
		}
	}
	return r
}

// ResolveOrCreate returns the node ID for (typ, description), allocating a
// new node on first sight. A blank description yields ok=false. An existing
// node's description and provenance are never modified.
func (r *Registry) ResolveOrCreate(typ, description, sourceTitle string) (id string, ok bool) {
	norm := normalize(description)
	if norm == "" {
		return "", false
	}
	key := nodeKey{typ: typ, norm: norm}
	if i, exists := r.byKey[key]; exists {
		return r.nodes[i].ID, true
	}

	r.next++
	n := Node{
		ID:          formatID(r.next),
		Type:        typ,
		Description: description,
		SourceTitle: sourceTitle,
	}
	r.byKey[key] = len(r.nodes)
	r.byID[n.ID] = len(r.nodes)
	r.nodes = append(r.nodes, n)
	return n.ID, true
}

// Resolve looks up (typ, description) without allocating.
func (r *Registry) Resolve(typ, description string) (string, bool) {
	i, ok := r.byKey[nodeKey{typ: typ, norm: normalize(description)}]
	if !ok {
		return "", false
	}
	return r.nodes[i].ID, true
}

// Lookup returns the node with the given ID.
func (r *Registry) Lookup(id string) (Node, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Node{}, false
	}
	return r.nodes[i], true
}

// Nodes returns all nodes in allocation order.
func (r *Registry) Nodes() []Node {
	out := make([]Node, len(r.nodes))
	copy(out, r.nodes)
	return out
}

// Len returns the number of registered nodes.
func (r *Registry) Len() int { return len(r.nodes) }

func formatID(n int) string {
	return fmt.Sprintf("N%04d", n)
}

// idOrdinal parses the numeric part of an "N0042" style ID. Foreign IDs
// yield 0, so they order first and do not advance the sequence.
func idOrdinal(id string) int {
	if !strings.HasPrefix(id, "N") {
		return 0
	}
	n, err := strconv.Atoi(id[1:])
	if err != nil {
		return 0
	}
	return n
}
