package gocvot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/brunobiangulo/gocvot/graph"
	"github.com/brunobiangulo/gocvot/metrics"
	"github.com/brunobiangulo/gocvot/session"
	"github.com/brunobiangulo/gocvot/store"
)

// ExtractSummary reports what an extraction run did.
type ExtractSummary struct {
	Sections  int          `json:"sections"`
	Processed int          `json:"processed"`
	Resumed   int          `json:"resumed"`
	Short     int          `json:"short"`
	Gated     int          `json:"gated"`
	Counts    graph.Counts `json:"counts"`
}

// Extract processes every located section not already recorded, then
// assembles and saves the snapshot. Each processed section is persisted to
// the session file before the next one starts, so an interrupted run
// resumes from its last completed section.
func (e *Engine) Extract(ctx context.Context) (*ExtractSummary, error) {
	if e.collab.Locator == nil || e.collab.Text == nil {
		return nil, fmt.Errorf("%w: no document to extract from", ErrMissingInput)
	}
	if e.collab.Entities == nil || e.collab.Relationships == nil {
		return nil, fmt.Errorf("%w: entity and relationship extractors are required", ErrInvalidConfig)
	}

	sections, err := e.collab.Locator.Sections(ctx)
	if err != nil {
		return nil, fmt.Errorf("locating sections: %w", err)
	}
	if len(sections) == 0 {
		return nil, ErrNoSections
	}
	slog.Info("pipeline: sections located", "count", len(sections))

	file := store.SessionFile{Path: e.cfg.SessionPath}
	acc := session.New(file, session.Options{RetainSourceText: e.cfg.RetainSourceText})
	if e.cfg.Resume {
		records, err := file.Load(ctx)
		switch {
		case errors.Is(err, store.ErrNotFound):
		case err != nil:
			return nil, fmt.Errorf("loading sessions: %w", err)
		default:
			acc.Load(records)
			slog.Info("pipeline: resuming", "recorded", acc.Len())
		}
	}

	sum := &ExtractSummary{Sections: len(sections)}
	for _, sec := range sections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		log := slog.With("section", sec.Title, "start_page", sec.StartPage, "end_page", sec.EndPage)

		if acc.HasProcessed(sec.Title) {
			log.Info("pipeline: skipping already processed section")
			e.metrics.IncSection(metrics.SectionResumed)
			sum.Resumed++
			continue
		}

		text, err := e.collab.Text.Text(ctx, sec.StartPage, sec.EndPage)
		if err != nil {
			log.Warn("pipeline: text extraction failed", "error", err)
			text = ""
		}
		if len(strings.TrimSpace(text)) < e.cfg.MinSectionChars {
			log.Info("pipeline: section text too short, skipping", "chars", len(strings.TrimSpace(text)))
			e.metrics.IncSection(metrics.SectionSkipped)
			sum.Short++
			continue
		}

		record, gated := e.processSection(ctx, sec.Title, text)
		if gated {
			sum.Gated++
		}
		if err := acc.Append(ctx, record); err != nil {
			return nil, fmt.Errorf("recording section %q: %w", sec.Title, err)
		}
		e.metrics.IncSection(metrics.SectionProcessed)
		sum.Processed++
		log.Info("pipeline: section processed",
			"entities", countEntities(record.Entities),
			"relationship_types", len(record.Relationships),
		)
	}

	g := acc.Finalize(e.cfg.Schema, graph.AssembleOptions{
		Defaults:  e.cfg.defaults(),
		CreatedAt: e.now(),
	})
	if err := store.SaveGraph(e.cfg.GraphPath, g); err != nil {
		return nil, fmt.Errorf("saving graph: %w", err)
	}
	sum.Counts = g.Counts()
	slog.Info("pipeline: graph assembled",
		"path", e.cfg.GraphPath,
		"nodes", sum.Counts.TotalNodes,
		"edges", sum.Counts.TotalEdges,
	)

	if err := e.publish(ctx, g); err != nil {
		return sum, err
	}
	return sum, nil
}

// processSection runs the entity and relationship collaborators for one
// section. Failed calls degrade to empty results. gated reports that the
// relationship call was skipped because no gate entity was found.
func (e *Engine) processSection(ctx context.Context, title, text string) (rec session.Record, gated bool) {
	done := metrics.TimeCall(e.metrics, "entities")
	ents := e.collab.Entities.Entities(ctx, text)
	done(ents.Status.String())
	entities := ents.ValueOr(nil)
	if entities == nil {
		entities = emptyEntities(e.cfg.Schema.EntityNames())
	}

	rels := map[string]graph.Links{}
	if e.passesGate(entities) {
		done := metrics.TimeCall(e.metrics, "relationships")
		res := e.collab.Relationships.Relationships(ctx, text, entities)
		done(res.Status.String())
		if res.OK() {
			rels = res.Value
		}
	} else {
		slog.Info("pipeline: no gate entities found, skipping relationship mapping", "section", title)
		e.metrics.IncSection(metrics.SectionGated)
		gated = true
	}

	return session.Record{
		Title:         title,
		SourceText:    text,
		Entities:      entities,
		Relationships: rels,
	}, gated
}

func (e *Engine) passesGate(entities map[string][]string) bool {
	if len(e.cfg.RelationshipGateTypes) == 0 {
		return true
	}
	for _, t := range e.cfg.RelationshipGateTypes {
		if len(entities[t]) > 0 {
			return true
		}
	}
	return false
}

func emptyEntities(types []string) map[string][]string {
	m := make(map[string][]string, len(types))
	for _, t := range types {
		m[t] = []string{}
	}
	return m
}

func countEntities(entities map[string][]string) int {
	n := 0
	for _, items := range entities {
		n += len(items)
	}
	return n
}
