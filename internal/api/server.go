package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ragbench/ragbench/internal/config"
	"github.com/ragbench/ragbench/internal/document"
	"github.com/ragbench/ragbench/internal/embed"
	"github.com/ragbench/ragbench/internal/llm"
	"github.com/ragbench/ragbench/internal/rag"
	"github.com/ragbench/ragbench/internal/vectorstore"
)

// ServerConfig contains everything the API server serves from.
type ServerConfig struct {
	Logger    *slog.Logger
	Config    *config.Config        // Required: request defaults, upload cap, rate limits
	Documents *document.Registry    // Required
	Embedder  *embed.Service        // Required
	Stores    *vectorstore.Registry // Required
	Providers *llm.Registry         // Required
	Engine    *rag.Engine           // Required
	History   *rag.History          // Required
	Version   string                // Reported by / and /api/health; "dev" when empty
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	switch {
	case cfg.Config == nil:
		return nil, errors.New("config is required")
	case cfg.Documents == nil:
		return nil, errors.New("document registry is required")
	case cfg.Embedder == nil:
		return nil, errors.New("embedder is required")
	case cfg.Stores == nil:
		return nil, errors.New("vector store registry is required")
	case cfg.Providers == nil:
		return nil, errors.New("provider registry is required")
	case cfg.Engine == nil:
		return nil, errors.New("rag engine is required")
	case cfg.History == nil:
		return nil, errors.New("history is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	started := time.Now()

	// One catalog shared by indexing and querying: it is how a query
	// finds the embedding space its collection lives in.
	cat := newCatalog()
	defaults := requestDefaults{
		TopK:        cfg.Config.TopK,
		Temperature: cfg.Config.Temperature,
		MaxTokens:   cfg.Config.MaxTokens,
		Model:       cfg.Config.EmbedModel,
	}

	dh := &documentHandler{
		docs:     cfg.Documents,
		maxBytes: cfg.Config.MaxUploadBytes,
		logger:   logger,
	}
	ch := &chunkHandler{docs: cfg.Documents, logger: logger}
	eh := &embedHandler{
		docs:         cfg.Documents,
		embedder:     cfg.Embedder,
		defaultModel: cfg.Config.EmbedModel,
		logger:       logger,
	}
	colh := &collectionHandler{
		docs:         cfg.Documents,
		embedder:     cfg.Embedder,
		stores:       cfg.Stores,
		catalog:      cat,
		defaultModel: cfg.Config.EmbedModel,
		logger:       logger,
	}
	qh := &queryHandler{
		embedder: cfg.Embedder,
		stores:   cfg.Stores,
		catalog:  cat,
		engine:   cfg.Engine,
		history:  cfg.History,
		defaults: defaults,
		logger:   logger,
	}
	mh := &metaHandler{
		embedder:     cfg.Embedder,
		stores:       cfg.Stores,
		providers:    cfg.Providers,
		defaultModel: cfg.Config.EmbedModel,
	}

	mux := http.NewServeMux()

	// Documents
	mux.HandleFunc("POST /api/upload", dh.upload)
	mux.HandleFunc("GET /api/documents", dh.list)
	mux.HandleFunc("GET /api/documents/{id}", dh.get)
	mux.HandleFunc("DELETE /api/documents/{id}", dh.delete)
	mux.HandleFunc("GET /api/documents/{id}/chunks", dh.chunks)

	// Chunking and embedding
	mux.HandleFunc("POST /api/chunk", ch.split)
	mux.HandleFunc("POST /api/embed", eh.run)

	// Collections
	mux.HandleFunc("POST /api/collections", colh.create)
	mux.HandleFunc("GET /api/collections", colh.list)
	mux.HandleFunc("GET /api/collections/{name}/stats", colh.stats)
	mux.HandleFunc("DELETE /api/collections/{name}", colh.delete)

	// Retrieval and generation
	mux.HandleFunc("POST /api/search", qh.search)
	mux.HandleFunc("POST /api/query", qh.query)
	mux.HandleFunc("POST /api/compare", qh.compare)
	mux.HandleFunc("GET /api/history", qh.listHistory)

	// Discovery
	mux.HandleFunc("GET /api/strategies", mh.listStrategies)
	mux.HandleFunc("GET /api/models", mh.listModels)
	mux.HandleFunc("GET /api/backends", mh.listBackends)
	mux.HandleFunc("GET /api/providers", mh.listProviders)

	// Rate limiter: per-IP token bucket
	rps := cfg.Config.RateLimitRPS
	if rps <= 0 {
		rps = 10
	}
	burst := cfg.Config.RateLimitBurst
	if burst <= 0 {
		burst = 30
	}
	rl := newRateLimiter(rps, burst)

	// Build middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → RateLimit → Routes
	// RequestID must be before Logging so request_id is available in log attributes.
	// CORS must be before RateLimit so preflight OPTIONS gets proper CORS headers.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.Config.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.Config.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Wrap with security headers
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w)
		handler.ServeHTTP(w, r)
	})

	// Use a top-level mux to keep the banner and health probe outside
	// the middleware stack
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /{$}", banner(version))
	topMux.HandleFunc("GET /api/health", health(version, started))
	topMux.Handle("/", final)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
