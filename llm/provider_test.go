package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewProvider(t *testing.T) {
	for name := range providerDefaults {
		t.Run(name, func(t *testing.T) {
			p, err := NewProvider(Config{Provider: name, Model: "test-model"})
			if err != nil {
				t.Fatalf("NewProvider(%q) returned error: %v", name, err)
			}
			if p == nil {
				t.Fatal("provider is nil")
			}
		})
	}
}

func TestNewProviderUnknown(t *testing.T) {
	_, err := NewProvider(Config{Provider: "doesnotexist"})
	if err == nil {
		t.Fatal("expected error for unknown provider, got nil")
	}
	want := "unknown llm provider: doesnotexist"
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}

func TestNewProviderEmpty(t *testing.T) {
	_, err := NewProvider(Config{})
	if err == nil {
		t.Fatal("expected error for empty provider, got nil")
	}
	if err.Error() != "llm provider not specified" {
		t.Errorf("error = %q", err.Error())
	}
}

// TestDefaultBaseURLs verifies that an empty BaseURL is filled per provider
// and that an explicit one is preserved.
func TestDefaultBaseURLs(t *testing.T) {
	tests := []struct {
		provider string
		baseURL  string
		wantURL  string
		wantPath string
	}{
		{"ollama", "", "http://localhost:11434", "/v1"},
		{"lmstudio", "", "http://localhost:1234", "/v1"},
		{"openrouter", "", "https://openrouter.ai/api", "/v1"},
		{"xai", "", "https://api.x.ai", "/v1"},
		{"gemini", "", "https://generativelanguage.googleapis.com/v1beta/openai", ""},
		{"custom", "", "", "/v1"},
		{"ollama", "http://my-server:9999", "http://my-server:9999", "/v1"},
	}

	for _, tt := range tests {
		t.Run(tt.provider+tt.baseURL, func(t *testing.T) {
			p, err := NewProvider(Config{Provider: tt.provider, BaseURL: tt.baseURL})
			if err != nil {
				t.Fatalf("NewProvider(%q): %v", tt.provider, err)
			}
			cp := p.(*compatProvider)
			if cp.base.cfg.BaseURL != tt.wantURL {
				t.Errorf("BaseURL = %q, want %q", cp.base.cfg.BaseURL, tt.wantURL)
			}
			if cp.base.pathPrefix != tt.wantPath {
				t.Errorf("pathPrefix = %q, want %q", cp.base.pathPrefix, tt.wantPath)
			}
		})
	}
}

func newTestProvider(t *testing.T, h http.HandlerFunc) *compatProvider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	p, err := NewProvider(Config{Provider: "custom", BaseURL: srv.URL, Model: "m", APIKey: "secret"})
	if err != nil {
		t.Fatal(err)
	}
	cp := p.(*compatProvider)
	cp.base.retry = retryPolicy{maxRetries: 2}
	return cp
}

func TestChatRoundTrip(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Model != "m" || len(req.Messages) != 2 || req.ResponseFormat == nil {
			t.Errorf("unexpected request: %+v", req)
		}
		w.Write([]byte(`{"model":"m","choices":[{"message":{"content":"{}"},"finish_reason":"stop"}],"usage":{"total_tokens":7}}`))
	})

	resp, err := p.Chat(context.Background(), ChatRequest{
		Messages: []Message{
			{Role: "system", Content: "s"},
			{Role: "user", Content: "u"},
		},
		ResponseFormat: "json_object",
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "{}" || resp.TotalTokens != 7 {
		t.Errorf("response = %+v", resp)
	}
}

func TestChatRetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	})

	resp, err := p.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "x"}}})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "ok" || calls.Load() != 2 {
		t.Errorf("content = %q, calls = %d", resp.Content, calls.Load())
	}
}

func TestChatDoesNotRetryClientError(t *testing.T) {
	var calls atomic.Int32
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	})

	_, err := p.Chat(context.Background(), ChatRequest{})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestDelayFor(t *testing.T) {
	p := retryPolicy{baseDelay: time.Second, rateLimitDelay: 5 * time.Second}
	tests := []struct {
		attempt     int
		rateLimited bool
		retryAfter  string
		want        time.Duration
	}{
		{1, false, "", time.Second},
		{3, false, "", 4 * time.Second},
		{1, true, "", 5 * time.Second},
		{2, true, "", 10 * time.Second},
		{1, true, "30", 30 * time.Second},
		{1, true, "soon", 5 * time.Second},
	}
	for _, tt := range tests {
		if got := p.delayFor(tt.attempt, tt.rateLimited, tt.retryAfter); got != tt.want {
			t.Errorf("delayFor(%d, %v, %q) = %v, want %v", tt.attempt, tt.rateLimited, tt.retryAfter, got, tt.want)
		}
	}
}
