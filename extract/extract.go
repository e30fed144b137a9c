// Package extract implements the best-effort LLM collaborators that turn
// section text into entity lists, relationship maps and weight proposals.
// Every call returns a Result; failures never propagate as errors.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/brunobiangulo/gocvot/graph"
	"github.com/brunobiangulo/gocvot/llm"
	"github.com/brunobiangulo/gocvot/schema"
)

// Temperature is low to keep extraction close to the text.
const Temperature = 0.1

// DefaultMaxTokens bounds each completion.
const DefaultMaxTokens = 4000

// Extractor issues the entity, relationship and weight calls against one
// chat provider.
type Extractor struct {
	chat      llm.Provider
	schema    schema.Schema
	maxTokens int
}

// New creates an Extractor for the given schema.
func New(chat llm.Provider, s schema.Schema) *Extractor {
	return &Extractor{chat: chat, schema: s, maxTokens: DefaultMaxTokens}
}

func (x *Extractor) complete(ctx context.Context, system, user string, jsonMode bool) (string, error) {
	req := llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: Temperature,
		MaxTokens:   x.maxTokens,
	}
	if jsonMode {
		req.ResponseFormat = "json_object"
	}
	resp, err := x.chat.Chat(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// Entities extracts schema entities from text. Every declared entity type is
// present in an OK result and a missing key defaults to empty. A declared key
// of any shape other than a string list or a lone string makes the whole
// response malformed.
func (x *Extractor) Entities(ctx context.Context, text string) Result[map[string][]string] {
	system, user := entityPrompts(x.schema, text)
	raw, err := x.complete(ctx, system, user, true)
	if err != nil {
		slog.Warn("extract: entity call failed", "error", err)
		return empty[map[string][]string](err)
	}

	var fields map[string]json.RawMessage
	if err := decodeJSON(raw, '{', '}', &fields); err != nil {
		slog.Warn("extract: entity response malformed", "error", err)
		return malformed[map[string][]string](err)
	}

	out := make(map[string][]string, len(x.schema.EntityTypes))
	for _, name := range x.schema.EntityNames() {
		items, err := stringList(fields[name])
		if err != nil {
			err = fmt.Errorf("entity type %s: %w", name, err)
			slog.Warn("extract: entity response malformed", "error", err)
			return malformed[map[string][]string](err)
		}
		out[name] = items
	}
	return ok(out)
}

// Relationships maps causal relationships between the given entities. An OK
// result holds only declared relationship types that were present; an
// ill-shaped map for any of them makes the whole response malformed.
func (x *Extractor) Relationships(ctx context.Context, text string, entities map[string][]string) Result[map[string]graph.Links] {
	system, user := relationshipPrompts(x.schema, text, entities)
	raw, err := x.complete(ctx, system, user, true)
	if err != nil {
		slog.Warn("extract: relationship call failed", "error", err)
		return empty[map[string]graph.Links](err)
	}

	var fields map[string]json.RawMessage
	if err := decodeJSON(raw, '{', '}', &fields); err != nil {
		slog.Warn("extract: relationship response malformed", "error", err)
		return malformed[map[string]graph.Links](err)
	}

	out := make(map[string]graph.Links)
	for _, name := range x.schema.RelationshipNames() {
		v, present := fields[name]
		if !present {
			continue
		}
		var links graph.Links
		if err := json.Unmarshal(v, &links); err != nil {
			err = fmt.Errorf("relationship %s: %w", name, err)
			slog.Warn("extract: relationship response malformed", "error", err)
			return malformed[map[string]graph.Links](err)
		}
		out[name] = links
	}
	return ok(out)
}

// Weights asks the analyzer to score a batch of edges given documentation
// context. Proposals may cover any subset of the batch in any order.
func (x *Extractor) Weights(ctx context.Context, batch []graph.EdgeRef, docContext string) Result[[]graph.Proposal] {
	type rel struct {
		FromID   string `json:"from_id"`
		ToID     string `json:"to_id"`
		FromDesc string `json:"from_desc"`
		ToDesc   string `json:"to_desc"`
	}
	rels := make([]rel, len(batch))
	for i, r := range batch {
		rels[i] = rel{FromID: r.FromID, ToID: r.ToID, FromDesc: r.FromDesc, ToDesc: r.ToDesc}
	}
	relsJSON, _ := json.MarshalIndent(rels, "", "  ")
	user := fmt.Sprintf(weightUserPrompt, x.schema.SystemName, relsJSON, docContext)

	raw, err := x.complete(ctx, weightSystemPrompt, user, false)
	if err != nil {
		slog.Warn("extract: weight call failed", "error", err)
		return empty[[]graph.Proposal](err)
	}

	var items []json.RawMessage
	if err := decodeJSON(raw, '[', ']', &items); err != nil {
		slog.Warn("extract: weight response malformed", "error", err)
		return malformed[[]graph.Proposal](err)
	}

	proposals := make([]graph.Proposal, 0, len(items))
	for i, item := range items {
		var p graph.Proposal
		if err := json.Unmarshal(item, &p); err != nil {
			err = fmt.Errorf("proposal %d: %w", i, err)
			slog.Warn("extract: weight response malformed", "error", err)
			return malformed[[]graph.Proposal](err)
		}
		p.FromID = strings.TrimSpace(p.FromID)
		p.ToID = strings.TrimSpace(p.ToID)
		if p.FromID == "" || p.ToID == "" {
			continue
		}
		proposals = append(proposals, p)
	}
	return ok(proposals)
}

// stringList reads an array of strings, a lone string, or nothing. Blank
// strings are dropped; members of any other type are an error.
func stringList(raw json.RawMessage) ([]string, error) {
	out := []string{}
	if len(raw) == 0 {
		return out, nil
	}
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return nil, errors.New("want an array of strings or a string")
		}
		items = []string{s}
	}
	for _, item := range items {
		if strings.TrimSpace(item) != "" {
			out = append(out, item)
		}
	}
	return out, nil
}
