// Package llm defines the text-generation provider contract and the
// clients that satisfy it. Providers are interchangeable from the
// orchestrator's point of view: one request shape in, one result shape
// out, failures typed as provider errors carrying the provider name.
package llm

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/ragbench/ragbench/internal/config"
	"github.com/ragbench/ragbench/internal/errdefs"
)

// Usage counts tokens as reported by the provider. Counts are passed
// through untouched; providers that report nothing leave zeros.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// GenerateRequest is one generation call.
type GenerateRequest struct {
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
}

// GenerateResult is the provider's answer. Model is the exact model the
// provider reports serving, which may differ from the configured alias.
type GenerateResult struct {
	Text  string
	Model string
	Usage Usage
}

// Provider generates text. Implementations return provider errors
// (errdefs.ProviderError) for any call failure so callers can isolate
// them per provider.
type Provider interface {
	Name() string
	Model() string
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
}

// Info describes a registered provider for discovery endpoints.
type Info struct {
	Name  string `json:"name"`
	Model string `json:"model"`
}

// Registry holds the providers this deployment can reach. Built once at
// startup; a provider joins only when its key or endpoint is configured,
// so the map never changes afterwards and reads need no lock.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry wires every configured provider. Ollama registers
// whenever a host is set (the default points at a local server); the
// cloud providers need their API keys.
func NewRegistry(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Registry, error) {
	r := &Registry{providers: make(map[string]Provider)}

	if cfg.OpenAIAPIKey != "" {
		r.register(NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel))
	}
	if cfg.AnthropicAPIKey != "" {
		r.register(NewAnthropic(cfg.AnthropicAPIKey, cfg.AnthropicModel))
	}
	if cfg.GeminiAPIKey != "" {
		gemini, err := NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		r.register(gemini)
	}
	if cfg.OllamaHost != "" {
		r.register(NewOllama(cfg.OllamaHost, cfg.OllamaModel))
	}

	logger.Info("llm providers registered", slog.Any("providers", r.Names()))
	return r, nil
}

// NewStaticRegistry builds a registry from explicit providers,
// bypassing the config-driven wiring for callers that construct
// providers themselves.
func NewStaticRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider)}
	for _, p := range providers {
		r.register(p)
	}
	return r
}

func (r *Registry) register(p Provider) {
	r.providers[p.Name()] = p
}

// Get returns the named provider or a configuration error listing what
// is actually available.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		available := strings.Join(r.Names(), ", ")
		if available == "" {
			available = "none"
		}
		return nil, errdefs.Configurationf("provider",
			"provider %q is not configured; available: %s", name, available)
	}
	return p, nil
}

// Names returns the registered provider names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Infos returns name and model for every registered provider, sorted by
// name.
func (r *Registry) Infos() []Info {
	infos := make([]Info, 0, len(r.providers))
	for _, p := range r.providers {
		infos = append(infos, Info{Name: p.Name(), Model: p.Model()})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Len reports how many providers are registered.
func (r *Registry) Len() int {
	return len(r.providers)
}
