package config

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/ragbench/ragbench/internal/log"
)

// validBackends are the vector store backends this deployment can construct.
var validBackends = []string{BackendMemory, BackendChromem, BackendSQLite, BackendPgvector}

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	// 0. Check for nil config (defensive programming)
	if c == nil {
		return ErrConfigNil
	}

	// 1. Server validation
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPort, c.Port)
	}
	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("%w: rate_limit_rps must be positive, got %g", ErrInvalidRateLimit, c.RateLimitRPS)
	}
	if c.RateLimitBurst < 1 {
		return fmt.Errorf("%w: rate_limit_burst must be at least 1, got %d", ErrInvalidRateLimit, c.RateLimitBurst)
	}

	// 2. Vector store validation
	if !slices.Contains(validBackends, c.Backend) {
		return fmt.Errorf("%w: %q (valid: %s)", ErrInvalidBackend, c.Backend, strings.Join(validBackends, ", "))
	}
	if c.Backend == BackendPgvector && c.PostgresURL == "" {
		return fmt.Errorf("%w: backend %q requires RAGBENCH_POSTGRES_URL or DATABASE_URL",
			ErrMissingPostgresURL, BackendPgvector)
	}

	// 3. Embedding validation
	if c.EmbedModel == "" {
		return fmt.Errorf("%w: embed_model cannot be empty", ErrInvalidEmbedModel)
	}
	if c.HashDimension < 8 || c.HashDimension > 4096 {
		return fmt.Errorf("%w: hash_dimension must be between 8 and 4096, got %d",
			ErrInvalidDimension, c.HashDimension)
	}
	if c.LexicalMaxFeatures < 16 || c.LexicalMaxFeatures > 65536 {
		return fmt.Errorf("%w: lexical_max_features must be between 16 and 65536, got %d",
			ErrInvalidMaxFeatures, c.LexicalMaxFeatures)
	}

	// 4. Provider validation
	if c.OllamaHost == "" {
		return fmt.Errorf("%w: ollama_host cannot be empty", ErrInvalidOllamaHost)
	}
	if !strings.HasPrefix(c.OllamaHost, "http://") && !strings.HasPrefix(c.OllamaHost, "https://") {
		return fmt.Errorf("%w: must start with http:// or https://, got %q", ErrInvalidOllamaHost, c.OllamaHost)
	}
	if c.ProviderTimeout < 1 || c.ProviderTimeout > 600 {
		return fmt.Errorf("%w: provider_timeout must be between 1 and 600 seconds, got %d",
			ErrInvalidTimeout, c.ProviderTimeout)
	}

	// 5. RAG defaults validation
	// Temperature range: 0.0 (deterministic) to 2.0 (maximum creativity)
	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("%w: must be between 0.0 and 2.0, got %.2f", ErrInvalidTemperature, c.Temperature)
	}
	if c.MaxTokens < 1 || c.MaxTokens > 131072 {
		return fmt.Errorf("%w: must be between 1 and 131,072, got %d", ErrInvalidMaxTokens, c.MaxTokens)
	}
	if c.TopK < 1 || c.TopK > 100 {
		return fmt.Errorf("%w: must be between 1 and 100, got %d", ErrInvalidTopK, c.TopK)
	}
	if c.ContextBudget < 100 {
		return fmt.Errorf("%w: context_budget must be at least 100 tokens, got %d",
			ErrInvalidMaxTokens, c.ContextBudget)
	}

	// 6. Upload validation
	if c.MaxUploadBytes < 1 || c.MaxUploadBytes > 1<<30 {
		return fmt.Errorf("%w: must be between 1 byte and 1 GiB, got %d", ErrInvalidMaxUpload, c.MaxUploadBytes)
	}

	// 7. Logging validation
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLogLevel, err)
	}

	// Warn when no provider is configured: query/compare will be unavailable,
	// but chunking/embedding/search still work.
	if c.OpenAIAPIKey == "" && c.AnthropicAPIKey == "" && c.GeminiAPIKey == "" {
		slog.Warn("no LLM provider API key configured",
			"hint", "set OPENAI_API_KEY, ANTHROPIC_API_KEY or GEMINI_API_KEY to enable query/compare; Ollama needs only a reachable host")
	}

	return nil
}
