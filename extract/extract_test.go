package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunobiangulo/gocvot/graph"
	"github.com/brunobiangulo/gocvot/llm"
	"github.com/brunobiangulo/gocvot/schema"
)

// stubChat returns a canned reply and records the last request.
type stubChat struct {
	reply string
	err   error
	last  llm.ChatRequest
}

func (s *stubChat) Chat(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	return &llm.ChatResponse{Content: s.reply}, nil
}

func TestEntities(t *testing.T) {
	tests := []struct {
		name       string
		reply      string
		err        error
		wantStatus Status
		want       map[string][]string
	}{
		{
			name:       "fenced with prose",
			reply:      "Here you go:\n```json\n{\"error_conditions\": [\"Bus fault\"], \"root_causes\": [\"Invalid pointer\"]}\n```",
			wantStatus: StatusOK,
			want: map[string][]string{
				"error_conditions": {"Bus fault"}, "root_causes": {"Invalid pointer"},
				"status_indicators": {}, "components": {}, "solutions": {},
			},
		},
		{
			name:       "lone string and blanks",
			reply:      `{"error_conditions": "Hard fault", "components": ["CPU", "  "], "unknown_type": 7}`,
			wantStatus: StatusOK,
			want: map[string][]string{
				"error_conditions": {"Hard fault"}, "components": {"CPU"},
				"root_causes": {}, "status_indicators": {}, "solutions": {},
			},
		},
		{
			name:       "wrong shape for a declared type",
			reply:      `{"error_conditions": 42, "root_causes": ["Invalid pointer"]}`,
			wantStatus: StatusMalformed,
		},
		{
			name:       "non-string member",
			reply:      `{"components": ["CPU", 3, {"x": 1}]}`,
			wantStatus: StatusMalformed,
		},
		{
			name:       "repairable trailing comma",
			reply:      `{"solutions": ["Reset the device",],}`,
			wantStatus: StatusOK,
			want: map[string][]string{
				"solutions": {"Reset the device"}, "error_conditions": {},
				"root_causes": {}, "status_indicators": {}, "components": {},
			},
		},
		{name: "no json", reply: "I could not find anything.", wantStatus: StatusMalformed},
		{name: "call failure", err: errors.New("connection refused"), wantStatus: StatusEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat := &stubChat{reply: tt.reply, err: tt.err}
			res := New(chat, schema.TroubleshootingMCU()).Entities(context.Background(), "section text")
			assert.Equal(t, tt.wantStatus, res.Status)
			if tt.wantStatus == StatusOK {
				assert.Equal(t, tt.want, res.Value)
			} else {
				assert.Nil(t, res.ValueOr(nil))
				assert.Error(t, res.Err)
			}
		})
	}
}

func TestEntityPromptListsSchema(t *testing.T) {
	chat := &stubChat{reply: `{}`}
	New(chat, schema.TroubleshootingMCU()).Entities(context.Background(), "THE TEXT")

	require.Len(t, chat.last.Messages, 2)
	system := chat.last.Messages[0].Content
	assert.Contains(t, system, "mspm0c1104")
	assert.Contains(t, system, "- root_causes: The primary reasons")
	assert.Contains(t, system, `["error_conditions","status_indicators","components","root_causes","solutions"]`)
	assert.Contains(t, chat.last.Messages[1].Content, "THE TEXT")
	assert.Equal(t, "json_object", chat.last.ResponseFormat)
}

func TestRelationships(t *testing.T) {
	chat := &stubChat{reply: `{
		"error_to_cause": {"Bus fault": ["Invalid pointer", "Misaligned access"], "Hard fault": "Stack overflow"},
		"made_up": {"a": ["b"]}
	}`}
	res := New(chat, schema.TroubleshootingMCU()).Relationships(context.Background(), "text",
		map[string][]string{"error_conditions": {"Bus fault"}})

	require.True(t, res.OK())
	assert.Equal(t, graph.Links{
		{Source: "Bus fault", Targets: []string{"Invalid pointer", "Misaligned access"}},
		{Source: "Hard fault", Targets: []string{"Stack overflow"}},
	}, res.Value["error_to_cause"])
	assert.NotContains(t, res.Value, "cause_to_solution")
	assert.NotContains(t, res.Value, "made_up")
	assert.NotContains(t, res.Value, "indicator_to_error")
	assert.Contains(t, chat.last.Messages[1].Content, `"Bus fault"`)
}

func TestRelationshipsMalformed(t *testing.T) {
	replies := []string{
		"```\nnot json at all\n```",
		`{"error_to_cause": {"Bus fault": ["Invalid pointer"]}, "cause_to_solution": "garbage"}`,
		`{"error_to_cause": {"Bus fault": ["Invalid pointer"]}, "cause_to_solution": []}`,
		`{"error_to_cause": {"Bus fault": ["Invalid pointer", 7]}}`,
	}
	for _, reply := range replies {
		res := New(&stubChat{reply: reply}, schema.TroubleshootingMCU()).
			Relationships(context.Background(), "text", nil)
		assert.Equal(t, StatusMalformed, res.Status, reply)
		assert.Empty(t, res.ValueOr(map[string]graph.Links{}), reply)
	}
}

func TestWeights(t *testing.T) {
	chat := &stubChat{reply: `Sure. [
		{"from_id": "N0002", "to_id": "N0003", "weight": 0.9, "confidence": 0.95},
		{"from_id": "N0001", "to_id": "N0002", "weight": 0.7},
		{"from_id": "", "to_id": "N0002", "weight": 0.7}
	] Done.`}
	batch := []graph.EdgeRef{
		{FromID: "N0002", ToID: "N0003", FromDesc: "Bus fault", ToDesc: "Invalid pointer"},
	}

	res := New(chat, schema.TroubleshootingMCU()).Weights(context.Background(), batch, "CTX BLOCK")
	require.True(t, res.OK())
	require.Len(t, res.Value, 2)
	assert.Equal(t, "N0002", res.Value[0].FromID)
	assert.Equal(t, 0.95, *res.Value[0].Confidence)
	assert.Nil(t, res.Value[1].Confidence)

	user := chat.last.Messages[1].Content
	assert.Contains(t, user, "CTX BLOCK")
	assert.Contains(t, user, `"from_desc": "Bus fault"`)
	assert.Empty(t, chat.last.ResponseFormat, "array replies are not JSON-object mode")
}

func TestWeightsFailure(t *testing.T) {
	res := New(&stubChat{err: errors.New("timeout")}, schema.TroubleshootingMCU()).
		Weights(context.Background(), nil, "")
	assert.Equal(t, StatusEmpty, res.Status)

	res = New(&stubChat{reply: `{"from_id": "N1"}`}, schema.TroubleshootingMCU()).
		Weights(context.Background(), nil, "")
	assert.Equal(t, StatusMalformed, res.Status)

	res = New(&stubChat{reply: `[{"from_id": "N0002", "to_id": "N0003", "weight": 0.9}, {"from_id": "N0004", "to_id": "N0005", "weight": "high"}]`},
		schema.TroubleshootingMCU()).Weights(context.Background(), nil, "")
	assert.Equal(t, StatusMalformed, res.Status, "one undecodable proposal fails the batch")
	assert.Nil(t, res.ValueOr(nil))
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		in      string
		open    byte
		close   byte
		want    string
		wantErr bool
	}{
		{in: `{"a":1}`, open: '{', close: '}', want: `{"a":1}`},
		{in: "```json\n{\"a\":1}\n```", open: '{', close: '}', want: `{"a":1}`},
		{in: `noise {"a":{"b":2}} tail`, open: '{', close: '}', want: `{"a":{"b":2}}`},
		{in: `result: [{"x":1}]`, open: '[', close: ']', want: `[{"x":1}]`},
		{in: `nothing here`, open: '{', close: '}', wantErr: true},
	}
	for _, tt := range tests {
		got, err := extractJSON(tt.in, tt.open, tt.close)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, strings.TrimSpace(got))
	}
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "ok", StatusOK.String())
	assert.Equal(t, "malformed", StatusMalformed.String())
	assert.Equal(t, "empty", StatusEmpty.String())
}
