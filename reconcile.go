package gocvot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/brunobiangulo/gocvot/graph"
	"github.com/brunobiangulo/gocvot/metrics"
	"github.com/brunobiangulo/gocvot/session"
	"github.com/brunobiangulo/gocvot/store"
)

// ReconcileSummary reports what a reconciliation run did.
type ReconcileSummary struct {
	Edges     int `json:"edges"`
	Batches   int `json:"batches"`
	Proposals int `json:"proposals"`
	graph.ReconcileResult
}

// Reconcile loads the assembled snapshot and the session file, asks the
// weight analyzer to score every causal vector in batches with the source
// text of each batch as context, and writes the weighted snapshot. Both
// inputs must exist.
func (e *Engine) Reconcile(ctx context.Context) (*ReconcileSummary, error) {
	if e.collab.Weights == nil {
		return nil, fmt.Errorf("%w: weight analyzer is required", ErrInvalidConfig)
	}

	g, err := store.LoadGraph(e.cfg.GraphPath)
	if err != nil {
		return nil, missingInput(err)
	}
	records, err := store.SessionFile{Path: e.cfg.SessionPath}.Load(ctx)
	if err != nil {
		return nil, missingInput(err)
	}

	texts := session.New(nil, session.Options{RetainSourceText: true})
	texts.Load(records)

	ix := graph.NewIndex(g)
	refs := ix.AllEdgesFlat(e.cfg.Schema.RelationshipNames())
	batches := graph.Batches(refs, e.cfg.WeightBatchSize)
	slog.Info("reconcile: analyzing relationships", "edges", len(refs), "batches", len(batches))

	var proposals []graph.Proposal
	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		docContext := ix.ContextFor(batch, texts, e.cfg.ContextCharLimit)

		done := metrics.TimeCall(e.metrics, "weights")
		res := e.collab.Weights.Weights(ctx, batch, docContext)
		done(res.Status.String())

		got := res.ValueOr(nil)
		proposals = append(proposals, got...)
		slog.Info("reconcile: batch analyzed",
			"batch", i+1,
			"relationships", len(batch),
			"proposals", len(got),
			"status", res.Status.String(),
		)
	}
	if len(proposals) == 0 {
		slog.Warn("reconcile: analyzer produced no weight proposals; only metadata will change")
	}

	result := graph.Reconcile(g, proposals, graph.ReconcileOptions{
		Method: graph.DefaultReconcileMethod,
		At:     e.now(),
	})
	e.metrics.AddWeightUpdates(result.Applied)

	if err := store.SaveGraph(e.cfg.WeightedGraphPath, g); err != nil {
		return nil, fmt.Errorf("saving weighted graph: %w", err)
	}
	slog.Info("reconcile: weighted graph saved",
		"path", e.cfg.WeightedGraphPath,
		"applied", result.Applied,
		"unmatched", result.Unmatched,
	)

	sum := &ReconcileSummary{
		Edges:           len(refs),
		Batches:         len(batches),
		Proposals:       len(proposals),
		ReconcileResult: result,
	}
	if err := e.publish(ctx, g); err != nil {
		return sum, err
	}
	return sum, nil
}

func missingInput(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrMissingInput, err)
	}
	return err
}
