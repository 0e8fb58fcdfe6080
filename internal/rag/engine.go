// Package rag orchestrates retrieval-augmented generation: retrieve
// context for a question, build a grounding prompt, dispatch to one
// provider or fan out to several, and aggregate the answers.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ragbench/ragbench/internal/config"
	"github.com/ragbench/ragbench/internal/errdefs"
	"github.com/ragbench/ragbench/internal/llm"
	"github.com/ragbench/ragbench/internal/vectorstore"
)

var tracer = otel.Tracer("ragbench/rag")

// Retriever supplies ranked context chunks for a question.
type Retriever interface {
	Retrieve(ctx context.Context, collection, queryText string, topK int, model string) ([]vectorstore.Result, error)
}

// QueryRequest asks one provider to answer a question grounded in one
// collection. Model names the embedding model the collection was built
// with; Backend is echoed into the result for the caller's bookkeeping.
type QueryRequest struct {
	Question     string
	Collection   string
	Model        string
	Backend      string
	Provider     string
	TopK         int
	Temperature  float32
	MaxTokens    int
	SystemPrompt string
}

// QueryResult is a single-provider answer plus the context that
// grounded it.
type QueryResult struct {
	Answer    string               `json:"answer"`
	Context   []vectorstore.Result `json:"context"`
	Provider  string               `json:"provider"`
	Model     string               `json:"model"`
	Usage     llm.Usage            `json:"usage"`
	Backend   string               `json:"retrieval_backend"`
	NumChunks int                  `json:"num_chunks"`
}

// CompareRequest asks several providers to answer the same question over
// one shared retrieved context. An empty Providers list selects every
// registered provider.
type CompareRequest struct {
	Question     string
	Collection   string
	Model        string
	Backend      string
	Providers    []string
	TopK         int
	Temperature  float32
	MaxTokens    int
	SystemPrompt string
}

// ProviderAnswer is one provider's slot in a compare. Either Answer,
// Model and Usage are set, or Err holds the failure.
type ProviderAnswer struct {
	Provider string    `json:"provider"`
	Model    string    `json:"model,omitempty"`
	Answer   string    `json:"answer,omitempty"`
	Usage    llm.Usage `json:"usage,omitzero"`
	Err      string    `json:"error,omitempty"`
}

// CompareResult aggregates a fan-out, keyed by provider name.
type CompareResult struct {
	Question  string                    `json:"question"`
	Context   []vectorstore.Result      `json:"context"`
	Providers map[string]ProviderAnswer `json:"providers"`
}

// Engine runs the retrieve, prompt, generate pipeline.
type Engine struct {
	providers *llm.Registry
	history   *History
	timeout   time.Duration
	budget    int
	logger    *slog.Logger
}

// New creates an engine. Generation calls are bounded per provider by
// cfg.ProviderTimeout; context blocks by cfg.ContextBudget tokens.
func New(providers *llm.Registry, history *History, cfg *config.Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		providers: providers,
		history:   history,
		timeout:   time.Duration(cfg.ProviderTimeout) * time.Second,
		budget:    cfg.ContextBudget,
		logger:    logger,
	}
}

// Query retrieves context and asks a single provider. A generation
// failure is the request's failure, but the returned result still
// carries the retrieved context so callers can see what grounded the
// attempt.
func (e *Engine) Query(ctx context.Context, ret Retriever, req QueryRequest) (*QueryResult, error) {
	if strings.TrimSpace(req.Question) == "" {
		return nil, errdefs.Validationf("question", "empty question")
	}
	ctx, span := tracer.Start(ctx, "rag.query", trace.WithAttributes(
		attribute.String("provider", req.Provider),
		attribute.String("collection", req.Collection),
		attribute.String("backend", req.Backend),
	))
	defer span.End()

	provider, err := e.providers.Get(req.Provider)
	if err != nil {
		return nil, err
	}

	// 1. Retrieve grounding context. Zero hits proceed with an empty
	// block; the prompt says so instead of aborting.
	results, err := e.retrieve(ctx, ret, req.Collection, req.Question, req.TopK, req.Model)
	if err != nil {
		return nil, err
	}

	// 2. Build the grounding prompt.
	system := req.SystemPrompt
	if system == "" {
		system = defaultSystemPrompt
	}
	prompt := buildPrompt(formatContext(results, e.budget), req.Question)

	// 3. Generate.
	result := &QueryResult{
		Context:   results,
		Provider:  provider.Name(),
		Backend:   req.Backend,
		NumChunks: len(results),
	}
	gen, err := e.generate(ctx, provider, system, prompt, req.Temperature, req.MaxTokens)
	if err != nil {
		span.SetStatus(codes.Error, "generation failed")
		return result, err
	}
	result.Answer = gen.Text
	result.Model = gen.Model
	result.Usage = gen.Usage

	e.record(HistoryEntry{
		Question:   req.Question,
		Mode:       ModeQuery,
		Providers:  []string{provider.Name()},
		Backend:    req.Backend,
		Collection: req.Collection,
	})
	e.logger.Debug("query answered",
		slog.String("provider", provider.Name()),
		slog.String("collection", req.Collection),
		slog.Int("chunks", len(results)))
	return result, nil
}

// Compare retrieves context once and fans the same prompt out to every
// selected provider concurrently. Each provider's outcome lands in its
// own slot; one provider failing never fails the others or the request.
// Cancelling ctx discards partial answers and returns the context's
// error.
func (e *Engine) Compare(ctx context.Context, ret Retriever, req CompareRequest) (*CompareResult, error) {
	if strings.TrimSpace(req.Question) == "" {
		return nil, errdefs.Validationf("question", "empty question")
	}
	names := req.Providers
	if len(names) == 0 {
		names = e.providers.Names()
	}
	if len(names) == 0 {
		return nil, errdefs.Validationf("providers", "no providers registered")
	}
	ctx, span := tracer.Start(ctx, "rag.compare", trace.WithAttributes(
		attribute.StringSlice("providers", names),
		attribute.String("collection", req.Collection),
		attribute.String("backend", req.Backend),
	))
	defer span.End()

	// 1. Retrieve the shared context exactly once.
	results, err := e.retrieve(ctx, ret, req.Collection, req.Question, req.TopK, req.Model)
	if err != nil {
		return nil, err
	}

	// 2. Build the grounding prompt all providers share.
	system := req.SystemPrompt
	if system == "" {
		system = defaultSystemPrompt
	}
	prompt := buildPrompt(formatContext(results, e.budget), req.Question)

	// 3. One goroutine and one slot per provider. The join waits for
	// every provider; nothing short-circuits on first success or first
	// failure.
	slots := make([]ProviderAnswer, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			slots[i] = e.callProvider(ctx, name, system, prompt, req.Temperature, req.MaxTokens)
		}()
	}
	wg.Wait()

	// 4. A cancelled compare returns no partial answers.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	providers := make(map[string]ProviderAnswer, len(slots))
	for _, slot := range slots {
		providers[slot.Provider] = slot
	}

	e.record(HistoryEntry{
		Question:   req.Question,
		Mode:       ModeCompare,
		Providers:  names,
		Backend:    req.Backend,
		Collection: req.Collection,
	})
	e.logger.Debug("compare finished",
		slog.Int("providers", len(names)),
		slog.Int("chunks", len(results)))

	return &CompareResult{Question: req.Question, Context: results, Providers: providers}, nil
}

// callProvider resolves one provider and converts its outcome into a
// slot. Lookup failures land in the slot too, so asking for an
// unregistered provider shows up next to the answers instead of
// sinking the whole compare.
func (e *Engine) callProvider(ctx context.Context, name, system, prompt string, temperature float32, maxTokens int) ProviderAnswer {
	p, err := e.providers.Get(name)
	if err != nil {
		return ProviderAnswer{Provider: name, Err: err.Error()}
	}
	gen, err := e.generate(ctx, p, system, prompt, temperature, maxTokens)
	if err != nil {
		return ProviderAnswer{Provider: name, Err: err.Error()}
	}
	return ProviderAnswer{
		Provider: name,
		Model:    gen.Model,
		Answer:   gen.Text,
		Usage:    gen.Usage,
	}
}

// retrieve wraps the retriever call in its pipeline-stage span.
func (e *Engine) retrieve(ctx context.Context, ret Retriever, collection, question string, topK int, model string) ([]vectorstore.Result, error) {
	ctx, span := tracer.Start(ctx, "rag.retrieve")
	defer span.End()

	results, err := ret.Retrieve(ctx, collection, question, topK, model)
	if err != nil {
		span.SetStatus(codes.Error, "retrieval failed")
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}
	span.SetAttributes(attribute.Int("chunks", len(results)))
	return results, nil
}

// generate runs one provider call under the per-provider timeout and
// normalizes a deadline hit into a "timeout" provider error.
func (e *Engine) generate(ctx context.Context, p llm.Provider, system, prompt string, temperature float32, maxTokens int) (*llm.GenerateResult, error) {
	ctx, span := tracer.Start(ctx, "rag.generate", trace.WithAttributes(
		attribute.String("provider", p.Name()),
	))
	defer span.End()

	callCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	gen, err := p.Generate(callCtx, llm.GenerateRequest{
		System:      system,
		Prompt:      prompt,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider call failed")
		if callCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return nil, errdefs.Provider(p.Name(), "timeout", context.DeadlineExceeded)
		}
		return nil, err
	}
	span.SetAttributes(attribute.Int("completion_tokens", gen.Usage.CompletionTokens))
	return gen, nil
}

func (e *Engine) record(entry HistoryEntry) {
	if e.history != nil {
		e.history.Record(entry)
	}
}
