// Package gocvot extracts troubleshooting knowledge from technical manuals
// into a weighted causal graph (a Causal Vector Orchestration Template).
//
// An extraction run locates the relevant sections of a manual, asks an LLM
// for the entities and causal relationships in each one, checkpoints every
// section to a resumable session file, and assembles the deduplicated
// graph. A reconciliation run then asks the LLM to weigh every causal
// vector against its documentation context.
package gocvot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/brunobiangulo/gocvot/export"
	"github.com/brunobiangulo/gocvot/extract"
	"github.com/brunobiangulo/gocvot/graph"
	"github.com/brunobiangulo/gocvot/llm"
	"github.com/brunobiangulo/gocvot/metrics"
	"github.com/brunobiangulo/gocvot/parser"
	"github.com/brunobiangulo/gocvot/store"
)

// SectionLocator yields the sections to process, in document order.
type SectionLocator interface {
	Sections(ctx context.Context) ([]parser.SectionRef, error)
}

// TextExtractor returns the raw text of an inclusive page range.
type TextExtractor interface {
	Text(ctx context.Context, startPage, endPage int) (string, error)
}

// EntityExtractor finds schema entities in section text.
type EntityExtractor interface {
	Entities(ctx context.Context, text string) extract.Result[map[string][]string]
}

// RelationshipExtractor maps causal links between extracted entities.
type RelationshipExtractor interface {
	Relationships(ctx context.Context, text string, entities map[string][]string) extract.Result[map[string]graph.Links]
}

// WeightAnalyzer proposes weights for a batch of causal vectors.
type WeightAnalyzer interface {
	Weights(ctx context.Context, batch []graph.EdgeRef, docContext string) extract.Result[[]graph.Proposal]
}

var (
	_ EntityExtractor       = (*extract.Extractor)(nil)
	_ RelationshipExtractor = (*extract.Extractor)(nil)
	_ WeightAnalyzer        = (*extract.Extractor)(nil)
)

// Collaborators are the external steps a run depends on. Locator and Text
// are needed for extraction only; Weights for reconciliation only.
type Collaborators struct {
	Locator       SectionLocator
	Text          TextExtractor
	Entities      EntityExtractor
	Relationships RelationshipExtractor
	Weights       WeightAnalyzer
}

// Engine runs extraction and reconciliation over one configuration.
type Engine struct {
	cfg     Config
	collab  Collaborators
	metrics metrics.Recorder
	closers []io.Closer
	now     func() time.Time
}

// New wires the LLM-backed collaborators and, when cfg.PDFPath is set, opens
// the document. The caller must Close the engine.
func New(cfg Config, rec metrics.Recorder) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	chat, err := llm.NewProvider(llm.Config{
		Provider: cfg.Chat.Provider,
		Model:    cfg.Chat.Model,
		BaseURL:  cfg.Chat.BaseURL,
		APIKey:   cfg.Chat.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("creating chat provider: %w", err)
	}
	x := extract.New(chat, cfg.Schema)
	collab := Collaborators{Entities: x, Relationships: x, Weights: x}

	var closers []io.Closer
	if cfg.PDFPath != "" {
		doc, err := parser.Open(cfg.PDFPath)
		if err != nil {
			return nil, fmt.Errorf("%w: opening document: %v", ErrMissingInput, err)
		}
		src := &documentSource{doc: doc, match: cfg.Schema.MatchesKeyword}
		collab.Locator, collab.Text = src, src
		closers = append(closers, doc)
	}

	e, err := NewWithCollaborators(cfg, collab, rec)
	if err != nil {
		for _, c := range closers {
			c.Close()
		}
		return nil, err
	}
	e.closers = closers
	return e, nil
}

// NewWithCollaborators builds an engine over caller-supplied collaborators.
// A nil recorder disables metrics.
func NewWithCollaborators(cfg Config, collab Collaborators, rec metrics.Recorder) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		cfg:     cfg,
		collab:  collab,
		metrics: metrics.OrNoop(rec),
		now:     time.Now,
	}, nil
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config { return e.cfg }

// Close releases the opened document, if any.
func (e *Engine) Close() error {
	var errs []error
	for _, c := range e.closers {
		errs = append(errs, c.Close())
	}
	e.closers = nil
	return errors.Join(errs...)
}

// publish writes the optional outputs for a snapshot.
func (e *Engine) publish(ctx context.Context, g *graph.Graph) error {
	c := g.Counts()
	e.metrics.SetGraphSize(c.TotalNodes, c.TotalEdges)

	if e.cfg.SQLitePath != "" {
		m, err := store.OpenMirror(e.cfg.SQLitePath)
		if err != nil {
			return fmt.Errorf("opening sqlite mirror: %w", err)
		}
		defer m.Close()
		if err := m.SyncGraph(ctx, g); err != nil {
			return fmt.Errorf("syncing sqlite mirror: %w", err)
		}
		slog.Info("engine: sqlite mirror synced", "path", e.cfg.SQLitePath)
	}
	if e.cfg.XLSXPath != "" {
		if err := export.WriteXLSX(e.cfg.XLSXPath, g); err != nil {
			return fmt.Errorf("exporting workbook: %w", err)
		}
		slog.Info("engine: workbook exported", "path", e.cfg.XLSXPath)
	}
	return nil
}

// documentSource adapts a parser.Document to SectionLocator and
// TextExtractor.
type documentSource struct {
	doc   parser.Document
	match func(string) bool
}

func (s *documentSource) Sections(ctx context.Context) ([]parser.SectionRef, error) {
	return parser.Locate(ctx, s.doc, s.match)
}

func (s *documentSource) Text(ctx context.Context, start, end int) (string, error) {
	return parser.ExtractText(ctx, s.doc, start, end)
}
