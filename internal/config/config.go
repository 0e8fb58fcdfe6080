// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.ragbench/config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main configuration categories:
//   - Server: HTTP listen address, CORS, rate limiting
//   - Store: default vector store backend, chromem persistence, Postgres DSN
//   - Embedding: default model, hash encoder dimension, lexical vocabulary cap
//   - Providers: API keys, model names, and timeouts for the LLM providers
//   - RAG: retrieval and generation defaults
//
// Security: sensitive values (API keys, the Postgres DSN) are never logged;
// the config directory uses 0750 permissions.
//
// Error Handling:
//   - Uses sentinel errors for Go-idiomatic error checking with errors.Is()
//   - Wrap with context using fmt.Errorf("%w: details", ErrXxx)
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidPort indicates the HTTP port is out of range.
	ErrInvalidPort = errors.New("invalid port")

	// ErrInvalidBackend indicates the default vector store backend is unknown.
	ErrInvalidBackend = errors.New("invalid vector store backend")

	// ErrMissingPostgresURL indicates the pgvector backend was selected
	// without a Postgres DSN.
	ErrMissingPostgresURL = errors.New("missing postgres URL")

	// ErrInvalidEmbedModel indicates the default embedding model is empty.
	ErrInvalidEmbedModel = errors.New("invalid embedding model")

	// ErrInvalidDimension indicates the hash encoder dimension is out of range.
	ErrInvalidDimension = errors.New("invalid embedding dimension")

	// ErrInvalidMaxFeatures indicates the lexical vocabulary cap is out of range.
	ErrInvalidMaxFeatures = errors.New("invalid lexical max features")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates the max tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidTopK indicates the default retrieval depth is out of range.
	ErrInvalidTopK = errors.New("invalid top_k")

	// ErrInvalidTimeout indicates the provider timeout is out of range.
	ErrInvalidTimeout = errors.New("invalid provider timeout")

	// ErrInvalidOllamaHost indicates the Ollama host is invalid.
	ErrInvalidOllamaHost = errors.New("invalid Ollama host")

	// ErrInvalidMaxUpload indicates the upload size cap is out of range.
	ErrInvalidMaxUpload = errors.New("invalid max upload size")

	// ErrInvalidLogLevel indicates the log level name is unknown.
	ErrInvalidLogLevel = errors.New("invalid log level")

	// ErrInvalidRateLimit indicates the rate limit settings are out of range.
	ErrInvalidRateLimit = errors.New("invalid rate limit")
)

// Vector store backend identifiers used in Config.Backend.
const (
	BackendMemory   = "memory"
	BackendChromem  = "chromem"
	BackendSQLite   = "sqlite"
	BackendPgvector = "pgvector"
)

// Config stores application configuration.
// SECURITY: Sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (API keys, DSNs), update MarshalJSON.
type Config struct {
	// Server configuration (serve mode)
	Host           string   `mapstructure:"host" json:"host"`
	Port           int      `mapstructure:"port" json:"port"`
	CORSOrigins    []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy     bool     `mapstructure:"trust_proxy" json:"trust_proxy"` // Trust X-Real-IP/X-Forwarded-For (set true behind reverse proxy)
	RateLimitRPS   float64  `mapstructure:"rate_limit_rps" json:"rate_limit_rps"`
	RateLimitBurst int      `mapstructure:"rate_limit_burst" json:"rate_limit_burst"`

	// DataDir holds everything the workbench persists: the sqlite backend's
	// database file and the chromem backend's persist directory.
	DataDir string `mapstructure:"data_dir" json:"data_dir"`

	// Vector store configuration
	Backend        string `mapstructure:"backend" json:"backend"` // "memory", "chromem", "sqlite", "pgvector"
	ChromemPersist bool   `mapstructure:"chromem_persist" json:"chromem_persist"`
	PostgresURL    string `mapstructure:"postgres_url" json:"postgres_url"` // SENSITIVE: masked in MarshalJSON

	// Embedding configuration
	EmbedModel         string `mapstructure:"embed_model" json:"embed_model"` // default model for embed/search when the request omits one
	HashDimension      int    `mapstructure:"hash_dimension" json:"hash_dimension"`
	LexicalMaxFeatures int    `mapstructure:"lexical_max_features" json:"lexical_max_features"`

	// LLM provider configuration. A provider registers only when its key
	// (or host, for Ollama) is present.
	OpenAIAPIKey    string `mapstructure:"openai_api_key" json:"openai_api_key"` // SENSITIVE: masked in MarshalJSON
	OpenAIModel     string `mapstructure:"openai_model" json:"openai_model"`
	AnthropicAPIKey string `mapstructure:"anthropic_api_key" json:"anthropic_api_key"` // SENSITIVE: masked in MarshalJSON
	AnthropicModel  string `mapstructure:"anthropic_model" json:"anthropic_model"`
	GeminiAPIKey    string `mapstructure:"gemini_api_key" json:"gemini_api_key"` // SENSITIVE: masked in MarshalJSON
	GeminiModel     string `mapstructure:"gemini_model" json:"gemini_model"`
	OllamaHost      string `mapstructure:"ollama_host" json:"ollama_host"`
	OllamaModel     string `mapstructure:"ollama_model" json:"ollama_model"`
	ProviderTimeout int    `mapstructure:"provider_timeout" json:"provider_timeout"` // seconds, per generation call

	// RAG defaults, overridable per request
	TopK          int     `mapstructure:"top_k" json:"top_k"`
	Temperature   float32 `mapstructure:"temperature" json:"temperature"`
	MaxTokens     int     `mapstructure:"max_tokens" json:"max_tokens"`
	ContextBudget int     `mapstructure:"context_budget" json:"context_budget"` // prompt context budget in tokens

	// Upload limits
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes" json:"max_upload_bytes"`

	// Logging
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`

	// Tracing (disabled when OTLPEndpoint is empty)
	OTLPEndpoint string `mapstructure:"otlp_endpoint" json:"otlp_endpoint"`
	Environment  string `mapstructure:"environment" json:"environment"`
	ServiceName  string `mapstructure:"service_name" json:"service_name"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	// Configuration directory: ~/.ragbench/
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".ragbench")

	// Ensure directory exists (use 0750 permission for better security)
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	// Configure Viper
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	// Set default values
	setDefaults(configDir)

	// Bind environment variables
	bindEnvVariables()

	// Read configuration file (if exists)
	if err := viper.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	// Use Unmarshal to automatically map to struct (type-safe)
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// CRITICAL: Validate immediately (fail-fast)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(configDir string) {
	// Server defaults
	viper.SetDefault("host", "127.0.0.1")
	viper.SetDefault("port", 8080)
	viper.SetDefault("cors_origins", []string{"http://localhost:5173"})
	viper.SetDefault("trust_proxy", false)
	viper.SetDefault("rate_limit_rps", 10.0)
	viper.SetDefault("rate_limit_burst", 30)

	// Data defaults
	viper.SetDefault("data_dir", configDir)

	// Vector store defaults
	viper.SetDefault("backend", BackendChromem)
	viper.SetDefault("chromem_persist", false)

	// Embedding defaults
	viper.SetDefault("embed_model", "hash-dense")
	viper.SetDefault("hash_dimension", 384)
	viper.SetDefault("lexical_max_features", 1000)

	// Provider defaults
	viper.SetDefault("openai_model", "gpt-3.5-turbo")
	viper.SetDefault("anthropic_model", "claude-3-5-sonnet-20241022")
	viper.SetDefault("gemini_model", "gemini-2.0-flash")
	viper.SetDefault("ollama_host", "http://localhost:11434")
	viper.SetDefault("ollama_model", "llama2")
	viper.SetDefault("provider_timeout", 60)

	// RAG defaults
	viper.SetDefault("top_k", 3)
	viper.SetDefault("temperature", 0.7)
	viper.SetDefault("max_tokens", 1000)
	viper.SetDefault("context_budget", 3000)

	// Upload defaults (10 MB)
	viper.SetDefault("max_upload_bytes", int64(10*1024*1024))

	// Logging defaults
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_json", false)

	// Tracing defaults (empty endpoint disables tracing)
	viper.SetDefault("otlp_endpoint", "")
	viper.SetDefault("environment", "dev")
	viper.SetDefault("service_name", "ragbench")
}

// bindEnvVariables binds environment variables explicitly.
// Secrets use their conventional names (OPENAI_API_KEY, ANTHROPIC_API_KEY,
// GEMINI_API_KEY, DATABASE_URL); everything else is RAGBENCH_-prefixed.
func bindEnvVariables() {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail)
	// If this panics, it's a BUG in our code, not a runtime error
	mustBind := func(key string, envVars ...string) {
		if err := viper.BindEnv(append([]string{key}, envVars...)...); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %v: %v", key, envVars, err))
		}
	}

	// Provider secrets
	mustBind("openai_api_key", "OPENAI_API_KEY")
	mustBind("anthropic_api_key", "ANTHROPIC_API_KEY")
	mustBind("gemini_api_key", "GEMINI_API_KEY")

	// Postgres DSN (either name works; RAGBENCH_POSTGRES_URL wins)
	mustBind("postgres_url", "RAGBENCH_POSTGRES_URL", "DATABASE_URL")

	// Server overrides
	mustBind("host", "RAGBENCH_HOST")
	mustBind("port", "RAGBENCH_PORT")
	mustBind("cors_origins", "RAGBENCH_CORS_ORIGINS")
	mustBind("trust_proxy", "RAGBENCH_TRUST_PROXY")

	// Pipeline overrides
	mustBind("data_dir", "RAGBENCH_DATA_DIR")
	mustBind("backend", "RAGBENCH_BACKEND")
	mustBind("chromem_persist", "RAGBENCH_CHROMEM_PERSIST")
	mustBind("embed_model", "RAGBENCH_EMBED_MODEL")
	mustBind("ollama_host", "RAGBENCH_OLLAMA_HOST")
	mustBind("ollama_model", "RAGBENCH_OLLAMA_MODEL")

	// Logging overrides
	mustBind("log_level", "RAGBENCH_LOG_LEVEL")
	mustBind("log_json", "RAGBENCH_LOG_JSON")

	// Tracing overrides
	mustBind("otlp_endpoint", "RAGBENCH_OTLP_ENDPOINT")
	mustBind("environment", "RAGBENCH_ENVIRONMENT")
	mustBind("service_name", "RAGBENCH_SERVICE_NAME")
}

// SQLitePath returns the sqlite backend's database file path.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "vectors.db")
}

// ChromemDir returns the chromem backend's persist directory.
func (c *Config) ChromemDir() string {
	return filepath.Join(c.DataDir, "chromem")
}

// maskedValue is the placeholder for masked sensitive data.
// Using ████████ (full block U+2588) to avoid substring matching:
// "****" leaks passwords containing "*", "[REDACTED]" leaks ones
// containing "A", "D", "E", and so on.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Shows first 2 and last 2 characters, masks the rest.
// SECURITY: secrets <= 8 chars are fully masked to prevent substring
// matching; longer ones keep the edge characters for debug utility.
//
// THREAT MODEL: defends against accidental logging of real secrets. It is
// not cryptographically secure; if logs are compromised, rotate secrets.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	prefix := make([]byte, 2)
	suffix := make([]byte, 2)
	copy(prefix, s[:2])
	copy(suffix, s[len(s)-2:])
	return string(prefix) + "<" + maskedValue + ">" + string(suffix)
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
//
// Sensitive fields masked:
//   - OpenAIAPIKey, AnthropicAPIKey, GeminiAPIKey
//   - PostgresURL (embeds the database password)
//
// When adding new sensitive fields, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.OpenAIAPIKey = maskSecret(a.OpenAIAPIKey)
	a.AnthropicAPIKey = maskSecret(a.AnthropicAPIKey)
	a.GeminiAPIKey = maskSecret(a.GeminiAPIKey)
	a.PostgresURL = maskSecret(a.PostgresURL)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
