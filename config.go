package gocvot

import (
	"fmt"
	"os"
	"strconv"

	"github.com/goccy/go-yaml"

	"github.com/brunobiangulo/gocvot/graph"
	"github.com/brunobiangulo/gocvot/schema"
)

// Config holds all configuration for extraction and reconciliation runs.
type Config struct {
	// PDFPath is the manual to extract from. Plain-text documents with
	// form-feed page breaks are accepted too.
	PDFPath string `json:"pdf_path" yaml:"pdf_path"`

	// SessionPath is the resumable per-section record list.
	SessionPath string `json:"session_path" yaml:"session_path"`

	// GraphPath receives the assembled snapshot; WeightedGraphPath the
	// reconciled one.
	GraphPath         string `json:"graph_path" yaml:"graph_path"`
	WeightedGraphPath string `json:"weighted_graph_path" yaml:"weighted_graph_path"`

	// Optional outputs. Empty disables them.
	SQLitePath string `json:"sqlite_path,omitempty" yaml:"sqlite_path,omitempty"`
	XLSXPath   string `json:"xlsx_path,omitempty" yaml:"xlsx_path,omitempty"`

	// Resume skips sections already present in the session file.
	Resume bool `json:"resume" yaml:"resume"`

	// RetainSourceText stores raw section text in session records so that
	// reconciliation can quote it as context.
	RetainSourceText bool `json:"retain_source_text" yaml:"retain_source_text"`

	// MinSectionChars is the shortest section text worth extracting from.
	MinSectionChars int `json:"min_section_chars" yaml:"min_section_chars"`

	// Placeholder scores for edges before reconciliation.
	DefaultWeight     float64 `json:"default_weight" yaml:"default_weight"`
	DefaultConfidence float64 `json:"default_confidence" yaml:"default_confidence"`

	// Reconciliation batching
	WeightBatchSize  int `json:"weight_batch_size" yaml:"weight_batch_size"`
	ContextCharLimit int `json:"context_char_limit" yaml:"context_char_limit"`

	// RelationshipGateTypes are the entity types of which at least one must
	// be found before relationships are requested. Empty disables the gate.
	RelationshipGateTypes []string `json:"relationship_gate_types" yaml:"relationship_gate_types"`

	Chat   LLMConfig     `json:"chat" yaml:"chat"`
	Schema schema.Schema `json:"schema" yaml:"schema"`

	// MetricsAddr serves Prometheus metrics during long runs when set.
	MetricsAddr string `json:"metrics_addr,omitempty" yaml:"metrics_addr,omitempty"`
}

// LLMConfig configures a single LLM provider endpoint.
type LLMConfig struct {
	Provider string `json:"provider" yaml:"provider"` // ollama, lmstudio, openrouter, openai, groq, xai, gemini, custom
	Model    string `json:"model" yaml:"model"`
	BaseURL  string `json:"base_url" yaml:"base_url"`
	APIKey   string `json:"api_key" yaml:"api_key"`
}

// DefaultConfig returns a Config for the MSPM0C1104 manual with a local
// Ollama model.
func DefaultConfig() Config {
	return Config{
		PDFPath:           "mspm0c1104.pdf",
		SessionPath:       "intermediate_data.json",
		GraphPath:         "cvot.json",
		WeightedGraphPath: "cvot_weighted.json",
		Resume:            true,
		RetainSourceText:  true,
		MinSectionChars:   100,
		DefaultWeight:     graph.DefaultScores.Weight,
		DefaultConfidence: graph.DefaultScores.Confidence,
		WeightBatchSize:   20,
		ContextCharLimit:  2000,
		RelationshipGateTypes: []string{
			schema.EntityErrorConditions,
			schema.EntityRootCauses,
		},
		Chat: LLMConfig{
			Provider: "ollama",
			Model:    "llama3.1:8b",
			BaseURL:  "http://localhost:11434",
		},
		Schema: schema.TroubleshootingMCU(),
	}
}

// LoadConfig reads a YAML or JSON config file over DefaultConfig. An empty
// path returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: parsing %s: %v", ErrInvalidConfig, path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from GOCVOT_* environment variables and falls
// back to well-known provider API key variables.
func (c *Config) ApplyEnv() error {
	return c.applyEnv(os.Getenv)
}

func (c *Config) applyEnv(getenv func(string) string) error {
	strs := []struct {
		key string
		dst *string
	}{
		{"GOCVOT_PDF_PATH", &c.PDFPath},
		{"GOCVOT_SESSION_PATH", &c.SessionPath},
		{"GOCVOT_GRAPH_PATH", &c.GraphPath},
		{"GOCVOT_WEIGHTED_GRAPH_PATH", &c.WeightedGraphPath},
		{"GOCVOT_SQLITE_PATH", &c.SQLitePath},
		{"GOCVOT_XLSX_PATH", &c.XLSXPath},
		{"GOCVOT_METRICS_ADDR", &c.MetricsAddr},
		{"GOCVOT_CHAT_PROVIDER", &c.Chat.Provider},
		{"GOCVOT_CHAT_MODEL", &c.Chat.Model},
		{"GOCVOT_CHAT_BASE_URL", &c.Chat.BaseURL},
		{"GOCVOT_CHAT_API_KEY", &c.Chat.APIKey},
	}
	for _, s := range strs {
		if v := getenv(s.key); v != "" {
			*s.dst = v
		}
	}

	if v := getenv("GOCVOT_RESUME"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: GOCVOT_RESUME: %v", ErrInvalidConfig, err)
		}
		c.Resume = b
	}

	// Fallback: check well-known provider env vars for API keys.
	if c.Chat.APIKey == "" {
		switch c.Chat.Provider {
		case "openai":
			c.Chat.APIKey = getenv("OPENAI_API_KEY")
		case "groq":
			c.Chat.APIKey = getenv("GROQ_API_KEY")
		case "openrouter":
			c.Chat.APIKey = getenv("OPENROUTER_API_KEY")
		case "xai":
			c.Chat.APIKey = getenv("XAI_API_KEY")
		case "gemini":
			c.Chat.APIKey = getenv("GEMINI_API_KEY")
		}
	}
	return nil
}

// Validate checks paths, bounds and the schema.
func (c *Config) Validate() error {
	if c.SessionPath == "" || c.GraphPath == "" || c.WeightedGraphPath == "" {
		return fmt.Errorf("%w: session, graph and weighted graph paths are required", ErrInvalidConfig)
	}
	if c.MinSectionChars < 0 {
		return fmt.Errorf("%w: min_section_chars must not be negative", ErrInvalidConfig)
	}
	for name, v := range map[string]float64{"default_weight": c.DefaultWeight, "default_confidence": c.DefaultConfidence} {
		if v < graph.MinScore || v > graph.MaxScore {
			return fmt.Errorf("%w: %s %.2f outside [%.1f, %.1f]", ErrInvalidConfig, name, v, graph.MinScore, graph.MaxScore)
		}
	}
	if c.WeightBatchSize <= 0 {
		return fmt.Errorf("%w: weight_batch_size must be positive", ErrInvalidConfig)
	}
	if c.ContextCharLimit <= 0 {
		return fmt.Errorf("%w: context_char_limit must be positive", ErrInvalidConfig)
	}
	if err := c.Schema.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	for _, t := range c.RelationshipGateTypes {
		if !c.Schema.HasEntityType(t) {
			return fmt.Errorf("%w: relationship gate type %q is not a schema entity type", ErrInvalidConfig, t)
		}
	}
	return nil
}

func (c *Config) defaults() graph.Defaults {
	return graph.Defaults{Weight: c.DefaultWeight, Confidence: c.DefaultConfidence}
}
