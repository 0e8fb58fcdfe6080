package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ragbench/ragbench/internal/errdefs"
)

// newTestOpenAI points the sashabaranov client at a local server.
func newTestOpenAI(t *testing.T, handler http.HandlerFunc) *OpenAI {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	return &OpenAI{client: openai.NewClientWithConfig(cfg), model: "gpt-3.5-turbo"}
}

func TestOpenAIGenerate(t *testing.T) {
	var got openai.ChatCompletionRequest
	p := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q, want /v1/chat/completions", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization = %q, want bearer key", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-3.5-turbo-0125",
			"choices": [
				{"index": 0, "message": {"role": "assistant", "content": "Paris."}, "finish_reason": "stop"}
			],
			"usage": {"prompt_tokens": 9, "completion_tokens": 3, "total_tokens": 12}
		}`)
	})

	result, err := p.Generate(context.Background(), GenerateRequest{
		System:      "Answer briefly.",
		Prompt:      "Capital of France?",
		Temperature: 0.3,
		MaxTokens:   64,
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if result.Text != "Paris." {
		t.Errorf("Text = %q, want %q", result.Text, "Paris.")
	}
	// The API reports the snapshot it actually served.
	if result.Model != "gpt-3.5-turbo-0125" {
		t.Errorf("Model = %q, want %q", result.Model, "gpt-3.5-turbo-0125")
	}
	want := Usage{PromptTokens: 9, CompletionTokens: 3, TotalTokens: 12}
	if result.Usage != want {
		t.Errorf("Usage = %+v, want %+v", result.Usage, want)
	}

	if got.Model != "gpt-3.5-turbo" {
		t.Errorf("request model = %q, want %q", got.Model, "gpt-3.5-turbo")
	}
	if got.MaxTokens != 64 {
		t.Errorf("request max_tokens = %d, want 64", got.MaxTokens)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("len(request messages) = %d, want 2", len(got.Messages))
	}
	if got.Messages[0].Role != openai.ChatMessageRoleSystem || got.Messages[0].Content != "Answer briefly." {
		t.Errorf("first message = %+v, want the system prompt", got.Messages[0])
	}
	if got.Messages[1].Role != openai.ChatMessageRoleUser || got.Messages[1].Content != "Capital of France?" {
		t.Errorf("second message = %+v, want the user prompt", got.Messages[1])
	}
}

func TestOpenAIGenerateNoChoices(t *testing.T) {
	p := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": "chatcmpl-2", "object": "chat.completion", "model": "gpt-3.5-turbo", "choices": []}`)
	})

	_, err := p.Generate(context.Background(), GenerateRequest{Prompt: "hi"})
	if err == nil {
		t.Fatal("Generate() error = nil, want provider error")
	}
	if !errdefs.IsProvider(err) {
		t.Fatalf("Generate() error = %v, want provider error", err)
	}
	if !strings.Contains(err.Error(), "no choices") {
		t.Errorf("error = %q, want no-choices reason", err)
	}
}

func TestOpenAIGenerateAPIError(t *testing.T) {
	p := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error": {"message": "Incorrect API key provided", "type": "invalid_request_error"}}`)
	})

	_, err := p.Generate(context.Background(), GenerateRequest{Prompt: "hi"})
	if err == nil {
		t.Fatal("Generate() error = nil, want provider error")
	}
	if !errdefs.IsProvider(err) {
		t.Fatalf("Generate() error = %v, want provider error", err)
	}
}
