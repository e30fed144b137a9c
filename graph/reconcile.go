package graph

import (
	"math"
	"time"
)

// DefaultReconcileMethod is recorded in metadata when no method is given.
const DefaultReconcileMethod = "LLM analysis with targeted documentation context"

// Proposal is an externally analysed weight/confidence for one edge. A nil
// score means the analyzer did not supply it.
type Proposal struct {
	FromID     string   `json:"from_id"`
	ToID       string   `json:"to_id"`
	Weight     *float64 `json:"weight,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// ReconcileOptions configures a reconciliation pass.
type ReconcileOptions struct {
	Method string
	At     time.Time
}

// ReconcileResult reports the effect of a pass.
type ReconcileResult struct {
	Applied   int `json:"applied"`
	Unmatched int `json:"unmatched"` // proposals naming no edge in the graph
}

// Reconcile overlays proposals onto g's edges in place. Each proposal is
// matched by "from->to" across all relationship types; for a repeated key
// the last proposal wins. Edges without a proposal are left untouched.
// Metadata is stamped on every call, even when nothing matched. Applying the
// same proposals twice with the same At yields the same graph.
func Reconcile(g *Graph, proposals []Proposal, opts ReconcileOptions) ReconcileResult {
	lookup := make(map[string]Proposal, len(proposals))
	for _, p := range proposals {
		lookup[edgeKey(p.FromID, p.ToID)] = p
	}

	matched := make(map[string]bool, len(lookup))
	var res ReconcileResult
	for rel, edges := range g.Edges {
		for i := range edges {
			e := &g.Edges[rel][i]
			p, ok := lookup[e.Key()]
			if !ok {
				continue
			}
			e.Weight = overlayScore(e.Weight, p.Weight)
			e.Confidence = overlayScore(e.Confidence, p.Confidence)
			e.AnalysisType = AnalysisReconciled
			matched[e.Key()] = true
			res.Applied++
		}
	}
	res.Unmatched = len(lookup) - len(matched)

	at := opts.At
	if at.IsZero() {
		at = time.Now()
	}
	method := opts.Method
	if method == "" {
		method = DefaultReconcileMethod
	}
	g.Metadata.LastWeightUpdate = at.Format(time.RFC3339)
	g.Metadata.WeightAnalysisMethod = method
	return res
}

// overlayScore never blanks out an existing score.
func overlayScore(current float64, proposed *float64) float64 {
	if proposed == nil || math.IsNaN(*proposed) || math.IsInf(*proposed, 0) {
		return current
	}
	return ClampScore(*proposed)
}

// ClampScore bounds v to [MinScore, MaxScore].
func ClampScore(v float64) float64 {
	if v < MinScore {
		return MinScore
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}
