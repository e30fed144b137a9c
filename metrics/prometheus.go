package metrics

import (
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus records into its own registry.
type Prometheus struct {
	registry      *prom.Registry
	sections      *prom.CounterVec
	calls         *prom.CounterVec
	callSeconds   *prom.HistogramVec
	nodes         prom.Gauge
	edges         prom.Gauge
	weightUpdates prom.Counter
}

// NewPrometheus creates a recorder with all collectors registered.
func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prom.NewRegistry(),
		sections: prom.NewCounterVec(prom.CounterOpts{
			Name: "cvot_sections_total",
			Help: "Document sections seen by extraction runs, by outcome",
		}, []string{"outcome"}),
		calls: prom.NewCounterVec(prom.CounterOpts{
			Name: "cvot_collaborator_calls_total",
			Help: "Extraction collaborator calls, by call and result status",
		}, []string{"call", "status"}),
		callSeconds: prom.NewHistogramVec(prom.HistogramOpts{
			Name:    "cvot_collaborator_call_seconds",
			Help:    "Extraction collaborator call duration in seconds",
			Buckets: prom.ExponentialBuckets(0.25, 2, 10),
		}, []string{"call"}),
		nodes: prom.NewGauge(prom.GaugeOpts{
			Name: "cvot_graph_nodes",
			Help: "Nodes in the last assembled or loaded snapshot",
		}),
		edges: prom.NewGauge(prom.GaugeOpts{
			Name: "cvot_graph_edges",
			Help: "Causal vectors in the last assembled or loaded snapshot",
		}),
		weightUpdates: prom.NewCounter(prom.CounterOpts{
			Name: "cvot_weight_updates_total",
			Help: "Edges updated by weight reconciliation",
		}),
	}
	p.registry.MustRegister(p.sections, p.calls, p.callSeconds, p.nodes, p.edges, p.weightUpdates)
	return p
}

func (p *Prometheus) IncSection(outcome string) {
	p.sections.WithLabelValues(outcome).Inc()
}

func (p *Prometheus) IncCollaboratorCall(call, status string) {
	p.calls.WithLabelValues(call, status).Inc()
}

func (p *Prometheus) ObserveCollaboratorSeconds(call string, seconds float64) {
	p.callSeconds.WithLabelValues(call).Observe(seconds)
}

func (p *Prometheus) SetGraphSize(nodes, edges int) {
	p.nodes.Set(float64(nodes))
	p.edges.Set(float64(edges))
}

func (p *Prometheus) AddWeightUpdates(n int) {
	p.weightUpdates.Add(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
