// Package session accumulates per-section extraction results across
// resumable runs and assembles them into a CVOT snapshot.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/brunobiangulo/gocvot/graph"
	"github.com/brunobiangulo/gocvot/schema"
)

// ErrAlreadyProcessed is returned by Append for a title that is already
// recorded.
var ErrAlreadyProcessed = errors.New("session: section already processed")

// Record is the persisted result of processing one document section.
type Record struct {
	Title         string                 `json:"title"`
	SourceText    string                 `json:"source_text,omitempty"`
	Entities      map[string][]string    `json:"entities"`
	Relationships map[string]graph.Links `json:"relationships"`
}

// Persister durably stores the full ordered record list.
type Persister interface {
	SaveSessions(ctx context.Context, records []Record) error
}

// Options configures an Accumulator.
type Options struct {
	// RetainSourceText keeps raw section text for later reconciliation
	// context. When false, Append drops it before storing.
	RetainSourceText bool
}

// Accumulator holds the ordered session records of one extraction run.
// It has a single writer; it is not safe for concurrent use.
type Accumulator struct {
	persister Persister
	opts      Options
	records   []Record
	titles    map[string]int
}

// New returns an empty accumulator that persists through p. A nil p keeps
// records in memory only.
func New(p Persister, opts Options) *Accumulator {
	return &Accumulator{
		persister: p,
		opts:      opts,
		titles:    make(map[string]int),
	}
}

// Load seeds the accumulator with previously persisted records. Records
// repeating an earlier title are dropped, keeping the first.
func (a *Accumulator) Load(records []Record) {
	for _, r := range records {
		if _, seen := a.titles[r.Title]; seen {
			continue
		}
		a.titles[r.Title] = len(a.records)
		a.records = append(a.records, r)
	}
}

// HasProcessed reports whether a section title is already recorded.
func (a *Accumulator) HasProcessed(title string) bool {
	_, ok := a.titles[title]
	return ok
}

// Append records one processed section and persists the full list before
// returning. On persistence failure the record is not kept, so the section
// is retried by the next run.
func (a *Accumulator) Append(ctx context.Context, r Record) error {
	if a.HasProcessed(r.Title) {
		return fmt.Errorf("%w: %q", ErrAlreadyProcessed, r.Title)
	}
	if !a.opts.RetainSourceText {
		r.SourceText = ""
	}
	if r.Entities == nil {
		r.Entities = map[string][]string{}
	}
	if r.Relationships == nil {
		r.Relationships = map[string]graph.Links{}
	}

	next := append(a.records[:len(a.records):len(a.records)], r)
	if a.persister != nil {
		if err := a.persister.SaveSessions(ctx, next); err != nil {
			return fmt.Errorf("persisting session %q: %w", r.Title, err)
		}
	}
	a.titles[r.Title] = len(a.records)
	a.records = next
	return nil
}

// Records returns the records in append order.
func (a *Accumulator) Records() []Record {
	out := make([]Record, len(a.records))
	copy(out, a.records)
	return out
}

// Len returns the number of recorded sections.
func (a *Accumulator) Len() int { return len(a.records) }

// SourceTextFor returns the retained text of a section, or "".
func (a *Accumulator) SourceTextFor(title string) string {
	i, ok := a.titles[title]
	if !ok {
		return ""
	}
	return a.records[i].SourceText
}

// Finalize assembles the graph from the accumulated records. It is a pure
// function of the ordered record list: all nodes are registered first
// (records in order, entity types in schema order, items in extraction
// order), then all edges, so an edge is never lost to a node that appears
// in a later record.
func (a *Accumulator) Finalize(s schema.Schema, opts graph.AssembleOptions) *graph.Graph {
	return Assemble(s, a.records, opts)
}

// Assemble builds a snapshot from an ordered record list.
func Assemble(s schema.Schema, records []Record, opts graph.AssembleOptions) *graph.Graph {
	asm := graph.NewAssembler(s, opts)
	for _, r := range records {
		asm.AddEntities(r.Title, r.Entities)
	}
	for _, r := range records {
		asm.AddRelationships(r.Relationships)
	}
	return asm.Graph()
}
