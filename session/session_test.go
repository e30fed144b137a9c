package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunobiangulo/gocvot/graph"
	"github.com/brunobiangulo/gocvot/schema"
)

// memPersister keeps every saved snapshot of the record list.
type memPersister struct {
	saves [][]Record
	err   error
}

func (m *memPersister) SaveSessions(_ context.Context, records []Record) error {
	if m.err != nil {
		return m.err
	}
	cp := make([]Record, len(records))
	copy(cp, records)
	m.saves = append(m.saves, cp)
	return nil
}

var (
	mcu    = schema.TroubleshootingMCU()
	asmOpt = graph.AssembleOptions{
		Defaults:  graph.Defaults{Weight: 0.5, Confidence: 0.5},
		CreatedAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
	}
)

func faultsRecord() Record {
	return Record{
		Title:      "Faults",
		SourceText: "A bus fault is raised on an invalid pointer dereference.",
		Entities: map[string][]string{
			"error_conditions": {"Bus fault"},
			"root_causes":      {"Invalid pointer"},
		},
		Relationships: map[string]graph.Links{
			"error_to_cause": {{Source: "Bus fault", Targets: []string{"Invalid pointer"}}},
		},
	}
}

func TestBusFaultScenario(t *testing.T) {
	acc := New(nil, Options{})
	require.NoError(t, acc.Append(context.Background(), faultsRecord()))

	g := acc.Finalize(mcu, asmOpt)
	require.Len(t, g.Nodes["error_conditions"], 1)
	require.Len(t, g.Nodes["root_causes"], 1)
	assert.Empty(t, g.Nodes["solutions"])

	edges := g.Edges["error_to_cause"]
	require.Len(t, edges, 1)
	assert.Equal(t, g.Nodes["error_conditions"][0].ID, edges[0].From)
	assert.Equal(t, g.Nodes["root_causes"][0].ID, edges[0].To)
	assert.Equal(t, 0.5, edges[0].Weight)
	assert.Equal(t, 0.5, edges[0].Confidence)
	assert.Equal(t, graph.AnalysisPlaceholder, edges[0].AnalysisType)

	assert.Contains(t, g.Edges, "indicator_to_error", "declared keys are always present")
	assert.Equal(t, "2026-01-02", g.Metadata.CreatedDate)
	assert.Equal(t, mcu.SystemName, g.Metadata.System)
}

func TestUnknownTargetProducesNoEdge(t *testing.T) {
	r := faultsRecord()
	r.Relationships["error_to_cause"] = graph.Links{{Source: "Bus fault", Targets: []string{"Solar flare"}}}

	g := Assemble(mcu, []Record{r}, asmOpt)
	assert.Empty(t, g.Edges["error_to_cause"])
	assert.Equal(t, 2, g.Counts().TotalNodes)
}

func TestDuplicateSectionAcrossRecords(t *testing.T) {
	second := Record{
		Title: "Faults (continued)",
		Entities: map[string][]string{
			"error_conditions": {"BUS FAULT "},
			"root_causes":      {"invalid pointer"},
		},
		Relationships: map[string]graph.Links{
			"error_to_cause": {{Source: "bus fault", Targets: []string{"INVALID POINTER"}}},
		},
	}

	g := Assemble(mcu, []Record{faultsRecord(), second}, asmOpt)
	require.Len(t, g.Nodes["error_conditions"], 1)
	assert.Equal(t, "Bus fault", g.Nodes["error_conditions"][0].Description)
	assert.Equal(t, "Faults", g.Nodes["error_conditions"][0].SourceTitle)
	assert.Len(t, g.Nodes["root_causes"], 1)
	assert.Len(t, g.Edges["error_to_cause"], 1)
}

func TestEdgeToNodeFromLaterRecord(t *testing.T) {
	early := Record{
		Title:    "Overview",
		Entities: map[string][]string{"error_conditions": {"Watchdog reset"}},
		Relationships: map[string]graph.Links{
			"error_to_cause": {{Source: "Watchdog reset", Targets: []string{"Missed watchdog kick"}}},
		},
	}
	late := Record{
		Title:    "Watchdog",
		Entities: map[string][]string{"root_causes": {"Missed watchdog kick"}},
	}

	g := Assemble(mcu, []Record{early, late}, asmOpt)
	assert.Len(t, g.Edges["error_to_cause"], 1)
}

func TestFinalizeIsDeterministic(t *testing.T) {
	records := []Record{
		faultsRecord(),
		{
			Title: "Reset causes",
			Entities: map[string][]string{
				"solutions":         {"Check memory allocation", "Reset the device"},
				"status_indicators": {"NMI_FLG bit is 1"},
				"error_conditions":  {"Bus fault", "Watchdog reset"},
				"root_causes":       {"Invalid pointer", "Stack overflow"},
			},
			Relationships: map[string]graph.Links{
				"cause_to_solution": {
					{Source: "Stack overflow", Targets: []string{"Check memory allocation"}},
					{Source: "Invalid pointer", Targets: []string{"Reset the device", "Check memory allocation"}},
				},
				"indicator_to_error": {{Source: "NMI_FLG bit is 1", Targets: []string{"Watchdog reset"}}},
			},
		},
	}

	a := Assemble(mcu, records, asmOpt)
	b := Assemble(mcu, records, asmOpt)
	assert.Equal(t, a, b)

	// Entity types follow schema order within a record.
	assert.Equal(t, "N0003", a.Nodes["error_conditions"][1].ID)
	assert.Equal(t, "N0004", a.Nodes["status_indicators"][0].ID)
	assert.Equal(t, "N0005", a.Nodes["root_causes"][1].ID)
	assert.Equal(t, "N0006", a.Nodes["solutions"][0].ID)

	// Link order follows extraction order.
	sol := a.Edges["cause_to_solution"]
	require.Len(t, sol, 3)
	assert.Equal(t, "N0005", sol[0].From)
	assert.Equal(t, "N0002", sol[1].From)
}

func TestIncrementalMatchesSinglePass(t *testing.T) {
	records := []Record{faultsRecord(), {Title: "Empty"}, {
		Title:    "Stack",
		Entities: map[string][]string{"root_causes": {"Stack overflow"}, "solutions": {"Increase stack size"}},
		Relationships: map[string]graph.Links{
			"cause_to_solution": {{Source: "Stack overflow", Targets: []string{"Increase stack size"}}},
		},
	}}

	onePass := New(nil, Options{})
	onePass.Load(records)

	incremental := New(&memPersister{}, Options{RetainSourceText: true})
	for _, r := range records {
		require.NoError(t, incremental.Append(context.Background(), r))
		_ = incremental.Finalize(mcu, asmOpt)
	}

	want := onePass.Finalize(mcu, asmOpt)
	got := incremental.Finalize(mcu, asmOpt)
	assert.Equal(t, want.Nodes, got.Nodes)
	assert.Equal(t, want.Edges, got.Edges)

	// Finalizing again with no new sessions changes nothing.
	again := incremental.Finalize(mcu, asmOpt)
	assert.Equal(t, got.Counts(), again.Counts())
}

func TestResumeNeverReprocesses(t *testing.T) {
	p := &memPersister{}
	first := New(p, Options{RetainSourceText: true})
	require.NoError(t, first.Append(context.Background(), faultsRecord()))
	require.Len(t, p.saves, 1)

	// Restart from the persisted list.
	resumed := New(p, Options{RetainSourceText: true})
	resumed.Load(p.saves[len(p.saves)-1])
	assert.True(t, resumed.HasProcessed("Faults"))
	assert.False(t, resumed.HasProcessed("faults"), "titles match exactly")

	err := resumed.Append(context.Background(), faultsRecord())
	assert.True(t, errors.Is(err, ErrAlreadyProcessed))
	assert.Equal(t, 1, resumed.Len())
	assert.Len(t, p.saves, 1, "no write for a rejected append")

	g := resumed.Finalize(mcu, asmOpt)
	assert.Equal(t, 2, g.Counts().TotalNodes)
}

func TestLoadDropsDuplicateTitles(t *testing.T) {
	acc := New(nil, Options{})
	dup := faultsRecord()
	dup.Entities = map[string][]string{"solutions": {"Something else"}}
	acc.Load([]Record{faultsRecord(), dup})
	assert.Equal(t, 1, acc.Len())
	assert.Equal(t, []string{"Bus fault"}, acc.Records()[0].Entities["error_conditions"])
}

func TestAppendPersistsBeforeCommit(t *testing.T) {
	p := &memPersister{}
	acc := New(p, Options{RetainSourceText: true})
	require.NoError(t, acc.Append(context.Background(), faultsRecord()))
	require.NoError(t, acc.Append(context.Background(), Record{Title: "Second"}))

	require.Len(t, p.saves, 2)
	assert.Len(t, p.saves[0], 1)
	assert.Len(t, p.saves[1], 2, "each save holds the full accumulated list")
	assert.NotNil(t, p.saves[1][1].Entities)

	p.err = errors.New("disk full")
	err := acc.Append(context.Background(), Record{Title: "Third"})
	require.Error(t, err)
	assert.False(t, acc.HasProcessed("Third"))
	assert.Equal(t, 2, acc.Len())
}

func TestSourceTextRetention(t *testing.T) {
	keep := New(nil, Options{RetainSourceText: true})
	require.NoError(t, keep.Append(context.Background(), faultsRecord()))
	assert.Contains(t, keep.SourceTextFor("Faults"), "bus fault")
	assert.Empty(t, keep.SourceTextFor("Missing"))

	drop := New(nil, Options{RetainSourceText: false})
	require.NoError(t, drop.Append(context.Background(), faultsRecord()))
	assert.Empty(t, drop.SourceTextFor("Faults"))
}
