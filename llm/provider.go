package llm

import (
	"context"
	"fmt"
)

// Provider is the interface for LLM chat completions.
type Provider interface {
	// Chat sends a chat completion request.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ChatRequest is a chat completion request.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	// ResponseFormat can be set to "json_object" for JSON mode.
	ResponseFormat string `json:"response_format,omitempty"`
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse is the response from a chat completion.
type ChatResponse struct {
	Content          string `json:"content"`
	Model            string `json:"model"`
	FinishReason     string `json:"finish_reason"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
}

// Config configures an LLM provider.
type Config struct {
	Provider string `json:"provider"` // ollama, lmstudio, openrouter, openai, groq, xai, gemini, custom
	Model    string `json:"model"`
	BaseURL  string `json:"base_url"`
	APIKey   string `json:"api_key"`
}

// providerDefaults holds the endpoint used when Config.BaseURL is empty and
// the API path prefix of each OpenAI-compatible service.
var providerDefaults = map[string]struct {
	baseURL string
	prefix  string
	model   string
}{
	"ollama":     {baseURL: "http://localhost:11434", prefix: "/v1"},
	"lmstudio":   {baseURL: "http://localhost:1234", prefix: "/v1"},
	"openrouter": {baseURL: "https://openrouter.ai/api", prefix: "/v1"},
	"openai":     {baseURL: "https://api.openai.com", prefix: "/v1", model: "gpt-4o-mini"},
	"groq":       {baseURL: "https://api.groq.com/openai", prefix: "/v1", model: "llama-3.3-70b-versatile"},
	"xai":        {baseURL: "https://api.x.ai", prefix: "/v1"},
	"gemini":     {baseURL: "https://generativelanguage.googleapis.com/v1beta/openai", prefix: ""},
	"custom":     {prefix: "/v1"},
}

// NewProvider creates an LLM provider from configuration. Every supported
// service speaks the OpenAI chat completions protocol.
func NewProvider(cfg Config) (Provider, error) {
	if cfg.Provider == "" {
		return nil, fmt.Errorf("llm provider not specified")
	}
	d, ok := providerDefaults[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = d.baseURL
	}
	if cfg.Model == "" {
		cfg.Model = d.model
	}
	return &compatProvider{
		name: cfg.Provider,
		base: newOpenAICompatClientPrefix(cfg, d.prefix),
	}, nil
}

// compatProvider implements Provider for any OpenAI-compatible endpoint.
type compatProvider struct {
	name string
	base openAICompatClient
}

func (p *compatProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	resp, err := p.base.chat(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.name, err)
	}
	return resp, nil
}
