package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ragbench/ragbench/internal/errdefs"
)

func TestAnthropicGenerate(t *testing.T) {
	var got anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/messages" {
			t.Errorf("request = %s %s, want POST /v1/messages", r.Method, r.URL.Path)
		}
		if key := r.Header.Get("x-api-key"); key != "test-key" {
			t.Errorf("x-api-key = %q, want %q", key, "test-key")
		}
		if v := r.Header.Get("anthropic-version"); v != anthropicVersion {
			t.Errorf("anthropic-version = %q, want %q", v, anthropicVersion)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"content": [
				{"type": "text", "text": "Paris is"},
				{"type": "tool_use", "text": "ignored"},
				{"type": "text", "text": " the capital."}
			],
			"model": "claude-3-5-sonnet-20241022",
			"usage": {"input_tokens": 17, "output_tokens": 6}
		}`)
	}))
	defer srv.Close()

	p := NewAnthropic("test-key", "")
	p.baseURL = srv.URL

	result, err := p.Generate(context.Background(), GenerateRequest{
		System:      "Answer briefly.",
		Prompt:      "What is the capital of France?",
		Temperature: 0.2,
		MaxTokens:   256,
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if result.Text != "Paris is the capital." {
		t.Errorf("Text = %q, want %q", result.Text, "Paris is the capital.")
	}
	if result.Model != "claude-3-5-sonnet-20241022" {
		t.Errorf("Model = %q, want %q", result.Model, "claude-3-5-sonnet-20241022")
	}
	want := Usage{PromptTokens: 17, CompletionTokens: 6, TotalTokens: 23}
	if result.Usage != want {
		t.Errorf("Usage = %+v, want %+v", result.Usage, want)
	}

	if got.Model != "claude-3-5-sonnet-20241022" {
		t.Errorf("request model = %q, want default %q", got.Model, "claude-3-5-sonnet-20241022")
	}
	if got.System != "Answer briefly." {
		t.Errorf("request system = %q, want %q", got.System, "Answer briefly.")
	}
	if got.MaxTokens != 256 {
		t.Errorf("request max_tokens = %d, want 256", got.MaxTokens)
	}
	if len(got.Messages) != 1 {
		t.Fatalf("len(request messages) = %d, want 1", len(got.Messages))
	}
	if got.Messages[0].Role != "user" || got.Messages[0].Content != "What is the capital of France?" {
		t.Errorf("request message = %+v, want user question", got.Messages[0])
	}
}

func TestAnthropicGenerateDefaultMaxTokens(t *testing.T) {
	var got anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		fmt.Fprint(w, `{"content": [{"type": "text", "text": "ok"}], "model": "m", "usage": {}}`)
	}))
	defer srv.Close()

	p := NewAnthropic("test-key", "claude-3-5-haiku-20241022")
	p.baseURL = srv.URL

	if _, err := p.Generate(context.Background(), GenerateRequest{Prompt: "hi"}); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	// The messages API rejects requests without max_tokens.
	if got.MaxTokens != anthropicDefaultMaxTokens {
		t.Errorf("request max_tokens = %d, want %d", got.MaxTokens, anthropicDefaultMaxTokens)
	}
}

func TestAnthropicGenerateAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"type": "error", "error": {"type": "authentication_error", "message": "invalid x-api-key"}}`)
	}))
	defer srv.Close()

	p := NewAnthropic("bad-key", "")
	p.baseURL = srv.URL

	_, err := p.Generate(context.Background(), GenerateRequest{Prompt: "hi"})
	if err == nil {
		t.Fatal("Generate() error = nil, want provider error")
	}
	var provErr *errdefs.ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("Generate() error = %v, want *errdefs.ProviderError", err)
	}
	if provErr.Provider != "anthropic" {
		t.Errorf("Provider = %q, want %q", provErr.Provider, "anthropic")
	}
	if !strings.Contains(err.Error(), "status 401") || !strings.Contains(err.Error(), "invalid x-api-key") {
		t.Errorf("error = %q, want status and API message", err)
	}
}
