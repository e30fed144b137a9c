package graph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunobiangulo/gocvot/schema"
)

var errorToCause = schema.RelationshipType{
	Name: schema.RelErrorToCause,
	From: schema.EntityErrorConditions,
	To:   schema.EntityRootCauses,
}

func TestEdgeBuilderScenario(t *testing.T) {
	r := NewRegistry()
	busFault, _ := r.ResolveOrCreate(schema.EntityErrorConditions, "Bus fault", "Faults")
	pointer, _ := r.ResolveOrCreate(schema.EntityRootCauses, "Invalid pointer", "Faults")

	b := NewEdgeBuilder(r, Defaults{Weight: 0.5, Confidence: 0.5})
	added := b.Add(errorToCause, Links{{Source: "Bus fault", Targets: []string{"Invalid pointer"}}})
	require.Equal(t, 1, added)

	edges := b.Edges()[schema.RelErrorToCause]
	require.Len(t, edges, 1)
	assert.Equal(t, Edge{
		From:             busFault,
		To:               pointer,
		RelationshipType: schema.RelErrorToCause,
		Weight:           0.5,
		Confidence:       0.5,
		AnalysisType:     AnalysisPlaceholder,
	}, edges[0])
}

func TestEdgeBuilderDropsUnknownEndpoints(t *testing.T) {
	r := NewRegistry()
	r.ResolveOrCreate(schema.EntityErrorConditions, "Bus fault", "")
	r.ResolveOrCreate(schema.EntityRootCauses, "Invalid pointer", "")

	b := NewEdgeBuilder(r, DefaultScores)
	added := b.Add(errorToCause, Links{
		{Source: "Bus fault", Targets: []string{"Cosmic rays"}},
		{Source: "Phantom error", Targets: []string{"Invalid pointer"}},
	})
	assert.Equal(t, 0, added)
	assert.Equal(t, 0, b.Len())
}

func TestEdgeBuilderEnforcesDeclaredTypes(t *testing.T) {
	r := NewRegistry()
	// Same descriptions exist, but under the wrong types for error_to_cause.
	r.ResolveOrCreate(schema.EntityComponents, "Bus fault", "")
	r.ResolveOrCreate(schema.EntitySolutions, "Invalid pointer", "")
	r.ResolveOrCreate(schema.EntityErrorConditions, "Stack overflow", "")

	b := NewEdgeBuilder(r, DefaultScores)
	added := b.Add(errorToCause, Links{
		{Source: "Bus fault", Targets: []string{"Invalid pointer"}},
		{Source: "Stack overflow", Targets: []string{"Invalid pointer"}},
	})
	assert.Equal(t, 0, added)

	for _, e := range b.Edges()[schema.RelErrorToCause] {
		from, _ := r.Lookup(e.From)
		assert.Equal(t, schema.EntityErrorConditions, from.Type)
	}
}

func TestEdgeBuilderDedupsFromTo(t *testing.T) {
	r := NewRegistry()
	r.ResolveOrCreate(schema.EntityErrorConditions, "Bus fault", "")
	r.ResolveOrCreate(schema.EntityRootCauses, "Invalid pointer", "")
	r.ResolveOrCreate(schema.EntityRootCauses, "Misaligned access", "")

	b := NewEdgeBuilder(r, DefaultScores)
	assert.Equal(t, 2, b.Add(errorToCause, Links{
		{Source: "Bus fault", Targets: []string{"Invalid pointer", "invalid POINTER", "Misaligned access"}},
	}))
	assert.Equal(t, 0, b.Add(errorToCause, Links{
		{Source: " bus fault ", Targets: []string{"Invalid pointer"}},
	}))

	edges := b.Edges()[schema.RelErrorToCause]
	require.Len(t, edges, 2)
	assert.Equal(t, "N0002", edges[0].To)
	assert.Equal(t, "N0003", edges[1].To)
}

func TestLinksJSONPreservesOrder(t *testing.T) {
	in := `{"zeta": ["a", "b"], "alpha": "c", "mid": null, "zeta": ["d"]}`

	var l Links
	require.NoError(t, json.Unmarshal([]byte(in), &l))
	require.Len(t, l, 3)
	assert.Equal(t, Link{Source: "zeta", Targets: []string{"a", "b", "d"}}, l[0])
	assert.Equal(t, Link{Source: "alpha", Targets: []string{"c"}}, l[1])
	assert.Equal(t, Link{Source: "mid", Targets: []string{}}, l[2])

	out, err := json.Marshal(l)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":["a","b","d"],"alpha":["c"],"mid":[]}`, string(out))
}

func TestLinksRejectsNonObject(t *testing.T) {
	var l Links
	assert.Error(t, json.Unmarshal([]byte(`["a"]`), &l))
	require.NoError(t, json.Unmarshal([]byte(`null`), &l))
	assert.Nil(t, l)
}

func TestLinksRejectsIllShapedTargets(t *testing.T) {
	for _, in := range []string{
		`{"Bus fault": 42}`,
		`{"Bus fault": ["Invalid pointer", 3]}`,
		`{"Bus fault": {"x": "y"}}`,
	} {
		var l Links
		assert.Error(t, json.Unmarshal([]byte(in), &l), in)
	}
}
