package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ragbench/ragbench/internal/errdefs"
)

func TestOllamaGenerate(t *testing.T) {
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// A host with a trailing slash must not produce //api/chat.
		if r.Method != http.MethodPost || r.URL.Path != "/api/chat" {
			t.Errorf("request = %s %s, want POST /api/chat", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		fmt.Fprint(w, `{
			"model": "llama2",
			"message": {"role": "assistant", "content": "Hello from the herd."},
			"done": true,
			"prompt_eval_count": 12,
			"eval_count": 7
		}`)
	}))
	defer srv.Close()

	p := NewOllama(srv.URL+"/", "")

	result, err := p.Generate(context.Background(), GenerateRequest{
		System:      "Be terse.",
		Prompt:      "Say hello.",
		Temperature: 0.5,
		MaxTokens:   128,
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if result.Text != "Hello from the herd." {
		t.Errorf("Text = %q, want %q", result.Text, "Hello from the herd.")
	}
	if result.Model != "llama2" {
		t.Errorf("Model = %q, want %q", result.Model, "llama2")
	}
	want := Usage{PromptTokens: 12, CompletionTokens: 7, TotalTokens: 19}
	if result.Usage != want {
		t.Errorf("Usage = %+v, want %+v", result.Usage, want)
	}

	if got.Stream {
		t.Error("request stream = true, want false")
	}
	if got.Model != "llama2" {
		t.Errorf("request model = %q, want default %q", got.Model, "llama2")
	}
	if len(got.Messages) != 2 {
		t.Fatalf("len(request messages) = %d, want 2", len(got.Messages))
	}
	if got.Messages[0].Role != "system" || got.Messages[0].Content != "Be terse." {
		t.Errorf("first message = %+v, want the system prompt", got.Messages[0])
	}
	if got.Messages[1].Role != "user" || got.Messages[1].Content != "Say hello." {
		t.Errorf("second message = %+v, want the user prompt", got.Messages[1])
	}
	if got.Options.Temperature != 0.5 {
		t.Errorf("options temperature = %v, want 0.5", got.Options.Temperature)
	}
	if got.Options.NumPredict != 128 {
		t.Errorf("options num_predict = %d, want 128", got.Options.NumPredict)
	}
}

func TestOllamaGenerateNoSystem(t *testing.T) {
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		fmt.Fprint(w, `{"model": "llama2", "message": {"role": "assistant", "content": "hi"}, "done": true}`)
	}))
	defer srv.Close()

	p := NewOllama(srv.URL, "llama2")
	if _, err := p.Generate(context.Background(), GenerateRequest{Prompt: "hi"}); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" {
		t.Errorf("messages = %+v, want a single user message", got.Messages)
	}
}

func TestOllamaGenerateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error": "model 'nope' not found"}`)
	}))
	defer srv.Close()

	p := NewOllama(srv.URL, "nope")
	_, err := p.Generate(context.Background(), GenerateRequest{Prompt: "hi"})
	if err == nil {
		t.Fatal("Generate() error = nil, want provider error")
	}
	if !errdefs.IsProvider(err) {
		t.Fatalf("Generate() error = %v, want provider error", err)
	}
	if !strings.Contains(err.Error(), "status 404") {
		t.Errorf("error = %q, want the response status", err)
	}
}

func TestOllamaGenerateServerUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	host := srv.URL
	srv.Close()

	p := NewOllama(host, "llama2")
	_, err := p.Generate(context.Background(), GenerateRequest{Prompt: "hi"})
	if err == nil {
		t.Fatal("Generate() error = nil, want provider error")
	}
	if !errdefs.IsProvider(err) {
		t.Fatalf("Generate() error = %v, want provider error", err)
	}
	if !strings.Contains(err.Error(), "is the server running?") {
		t.Errorf("error = %q, want the local-server hint", err)
	}
}
