package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ragbench/ragbench/internal/api"
	"github.com/ragbench/ragbench/internal/config"
	"github.com/ragbench/ragbench/internal/document"
	"github.com/ragbench/ragbench/internal/embed"
	"github.com/ragbench/ragbench/internal/llm"
	"github.com/ragbench/ragbench/internal/log"
	"github.com/ragbench/ragbench/internal/observability"
	"github.com/ragbench/ragbench/internal/rag"
	"github.com/ragbench/ragbench/internal/vectorstore"
)

// Server timeout configuration.
const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 2 * time.Minute // compare blocks until the slowest provider answers
	idleTimeout       = 2 * time.Minute
	shutdownTimeout   = 30 * time.Second
)

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the ragbench HTTP API server.

The listen address comes from the configuration (RAGBENCH_HOST and
RAGBENCH_PORT, or ~/.ragbench/config.yaml) unless --addr overrides it.
The server shuts down gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (host:port), overrides configured host and port")
	return cmd
}

// runServe wires the pipeline components together and runs the HTTP
// server until a termination signal arrives.
func runServe(addr string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	logger := log.New(log.Config{Level: level, JSON: cfg.LogJSON})
	slog.SetDefault(logger)

	if addr == "" {
		addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	}
	if err := validateAddr(addr); err != nil {
		return fmt.Errorf("invalid address %q: %w", addr, err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting ragbench", "version", AppVersion, "backend", cfg.Backend)

	stopTracing, err := observability.Setup(ctx, observability.Config{
		Endpoint:    cfg.OTLPEndpoint,
		Environment: cfg.Environment,
		ServiceName: cfg.ServiceName,
	}, logger)
	if err != nil {
		return fmt.Errorf("setting up tracing: %w", err)
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer flushCancel()
		if err := stopTracing(flushCtx); err != nil {
			logger.Warn("tracer shutdown error", "error", err)
		}
	}()

	docs := document.NewRegistry(nil, cfg.MaxUploadBytes, logger.With("component", "document"))
	embedder := embed.New(cfg, logger.With("component", "embed"))

	stores, err := vectorstore.NewRegistry(ctx, cfg, logger.With("component", "vectorstore"))
	if err != nil {
		return fmt.Errorf("opening vector stores: %w", err)
	}
	defer func() {
		if err := stores.Close(); err != nil {
			logger.Warn("vector store shutdown error", "error", err)
		}
	}()

	providers, err := llm.NewRegistry(ctx, cfg, logger.With("component", "llm"))
	if err != nil {
		return fmt.Errorf("configuring providers: %w", err)
	}

	history := rag.NewHistory(0)
	engine := rag.New(providers, history, cfg, logger.With("component", "rag"))

	srv, err := api.NewServer(api.ServerConfig{
		Logger:    logger.With("component", "api"),
		Config:    cfg,
		Documents: docs,
		Embedder:  embedder,
		Stores:    stores,
		Providers: providers,
		Engine:    engine,
		History:   history,
		Version:   AppVersion,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	// A long provider timeout must not get cut off by the response
	// deadline.
	respTimeout := writeTimeout
	if pt := time.Duration(cfg.ProviderTimeout)*time.Second + 30*time.Second; pt > respTimeout {
		respTimeout = pt
	}

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(srv.Handler(), "ragbench.http"),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      respTimeout,
		IdleTimeout:       idleTimeout,
	}

	logger.Info("HTTP server ready",
		"addr", addr,
		"api", "/api/*",
		"providers", providers.Names(),
		"backends", stores.Names(),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down HTTP server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server: %w", err)
	}
}
