package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	p := NewPrometheus()
	p.IncSection(SectionProcessed)
	p.IncSection(SectionProcessed)
	p.IncSection(SectionSkipped)
	p.SetGraphSize(12, 7)
	p.AddWeightUpdates(3)
	p.AddWeightUpdates(2)

	done := TimeCall(p, "entities")
	done("ok")

	assert.Equal(t, 2.0, testutil.ToFloat64(p.sections.WithLabelValues(SectionProcessed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.sections.WithLabelValues(SectionSkipped)))
	assert.Equal(t, 12.0, testutil.ToFloat64(p.nodes))
	assert.Equal(t, 7.0, testutil.ToFloat64(p.edges))
	assert.Equal(t, 5.0, testutil.ToFloat64(p.weightUpdates))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.calls.WithLabelValues("entities", "ok")))
	assert.Equal(t, 1, testutil.CollectAndCount(p.callSeconds))
}

func TestPrometheusHandler(t *testing.T) {
	p := NewPrometheus()
	p.SetGraphSize(4, 2)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "cvot_graph_nodes 4")
}

func TestNoop(t *testing.T) {
	r := OrNoop(nil)
	assert.NotPanics(t, func() {
		TimeCall(r, "weights")("empty")
		r.SetGraphSize(1, 1)
		r.IncSection(SectionGated)
		r.AddWeightUpdates(1)
	})

	p := NewPrometheus()
	assert.Same(t, p, OrNoop(p))
}
