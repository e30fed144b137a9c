package graph

import (
	"fmt"
	"time"

	"github.com/brunobiangulo/gocvot/schema"
)

// SnapshotVersion is written to every snapshot's metadata.
const SnapshotVersion = "1.0"

// AssembleOptions configures snapshot construction.
type AssembleOptions struct {
	Defaults  Defaults
	CreatedAt time.Time
}

// Assembler feeds extraction results into a Registry and an EdgeBuilder in
// schema order. Callers must add every section's entities before adding any
// relationships so that no edge is lost to a node discovered later.
type Assembler struct {
	schema  schema.Schema
	reg     *Registry
	builder *EdgeBuilder
	opts    AssembleOptions
}

// NewAssembler returns an assembler with an empty registry.
func NewAssembler(s schema.Schema, opts AssembleOptions) *Assembler {
	if opts.Defaults == (Defaults{}) {
		opts.Defaults = DefaultScores
	}
	reg := NewRegistry()
	return &Assembler{
		schema:  s,
		reg:     reg,
		builder: NewEdgeBuilder(reg, opts.Defaults),
		opts:    opts,
	}
}

// AddEntities registers one section's entities: types in schema order,
// items in extraction order. Types missing from the schema are ignored.
func (a *Assembler) AddEntities(sourceTitle string, entities map[string][]string) int {
	created := 0
	for _, typ := range a.schema.EntityNames() {
		for _, item := range entities[typ] {
			before := a.reg.Len()
			if _, ok := a.reg.ResolveOrCreate(typ, item, sourceTitle); ok && a.reg.Len() > before {
				created++
			}
		}
	}
	return created
}

// AddRelationships builds edges for one section's relationship maps in
// schema order. Undeclared relationship types are ignored.
func (a *Assembler) AddRelationships(rels map[string]Links) int {
	added := 0
	for _, rt := range a.schema.RelationshipTypes {
		links, ok := rels[rt.Name]
		if !ok {
			continue
		}
		added += a.builder.Add(rt, links)
	}
	return added
}

// Graph returns the assembled snapshot.
func (a *Assembler) Graph() *Graph {
	created := a.opts.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	g := New(a.schema, Metadata{
		System:      a.schema.SystemName,
		Version:     SnapshotVersion,
		CreatedDate: created.Format("2006-01-02"),
		Description: fmt.Sprintf("Causal Vector Orchestration Template for %s troubleshooting.", a.schema.SystemName),
		SafetyLevel: a.schema.SafetyLevel,
	})
	for _, n := range a.reg.Nodes() {
		g.Nodes[n.Type] = append(g.Nodes[n.Type], n)
	}
	for rel, edges := range a.builder.Edges() {
		g.Edges[rel] = append(g.Edges[rel], edges...)
	}
	return g
}
