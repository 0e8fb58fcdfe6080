package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/ragbench/ragbench/internal/config"
	"github.com/ragbench/ragbench/internal/database"
	"github.com/ragbench/ragbench/internal/errdefs"
)

// Registry holds one live Store per available backend so a single
// process can serve side-by-side comparisons. The in-process backends
// (memory, chromem, sqlite) are always opened; pgvector joins when a
// Postgres DSN is configured.
type Registry struct {
	stores map[string]Store
	def    string
}

// NewRegistry opens every available backend. cfg.Backend becomes the
// default used when a request does not name one.
func NewRegistry(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Registry, error) {
	stores := map[string]Store{
		config.BackendMemory: NewMemory(),
	}
	// Close whatever already opened when a later backend fails.
	cleanup := func() {
		for _, s := range stores {
			_ = s.Close()
		}
	}

	chromemDir := ""
	if cfg.ChromemPersist {
		chromemDir = cfg.ChromemDir()
	}
	ch, err := NewChromem(chromemDir, logger)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to open chromem backend: %w", err)
	}
	stores[config.BackendChromem] = ch

	db, err := database.Open(cfg.SQLitePath())
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to open sqlite backend: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		_ = db.Close()
		cleanup()
		return nil, fmt.Errorf("failed to migrate sqlite backend: %w", err)
	}
	stores[config.BackendSQLite] = NewSQLite(db, logger)

	if cfg.PostgresURL != "" {
		pg, err := NewPgvector(ctx, cfg.PostgresURL, logger)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("failed to open pgvector backend: %w", err)
		}
		stores[config.BackendPgvector] = pg
	}

	if _, ok := stores[cfg.Backend]; !ok {
		cleanup()
		return nil, errdefs.Configurationf("backend",
			"default backend %q is not available; set postgres_url to enable pgvector", cfg.Backend)
	}

	r := &Registry{stores: stores, def: cfg.Backend}
	logger.Info("vector store backends ready",
		slog.String("default", r.def),
		slog.Any("backends", r.Names()))
	return r, nil
}

// NewStaticRegistry builds a registry from explicit backends, bypassing
// the config-driven wiring for callers that construct stores themselves.
func NewStaticRegistry(def string, stores map[string]Store) (*Registry, error) {
	if _, ok := stores[def]; !ok {
		return nil, errdefs.Configurationf("backend",
			"default backend %q is not among the provided stores", def)
	}
	return &Registry{stores: stores, def: def}, nil
}

// Get returns the backend registered under name. The empty string
// selects the configured default.
func (r *Registry) Get(name string) (Store, error) {
	if name == "" {
		name = r.def
	}
	s, ok := r.stores[name]
	if !ok {
		return nil, errdefs.Configurationf("backend",
			"unknown backend %q; available: %s", name, strings.Join(r.Names(), ", "))
	}
	return s, nil
}

// Default returns the backend name used when a request omits one.
func (r *Registry) Default() string { return r.def }

// Names returns the registered backend names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.stores))
	for name := range r.stores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes every backend and joins their errors.
func (r *Registry) Close() error {
	var errs []error
	for name, s := range r.stores {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s backend: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
