// Package retrieve turns a text query into ranked chunks from one
// collection: embed the query, check dimensions, search the store.
package retrieve

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ragbench/ragbench/internal/embed"
	"github.com/ragbench/ragbench/internal/errdefs"
	"github.com/ragbench/ragbench/internal/vectorstore"
)

// FitLookup resolves the lexical fit id bound to a collection. A nil
// lookup or an empty result falls back to the embedder's current fit.
type FitLookup func(collection string) string

// Retriever embeds queries and searches one backend. It is cheap to
// construct per logical request; query embeddings are cached per
// (collection, model, query) for the retriever's lifetime, so a compare
// request embeds its shared question exactly once.
type Retriever struct {
	store    vectorstore.Store
	embedder *embed.Service
	fits     FitLookup
	logger   *slog.Logger

	mu    sync.Mutex
	cache map[queryKey][]float32
}

type queryKey struct {
	collection string
	model      string
	query      string
}

// New creates a Retriever over one backend.
func New(store vectorstore.Store, embedder *embed.Service, fits FitLookup, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		store:    store,
		embedder: embedder,
		fits:     fits,
		logger:   logger,
		cache:    make(map[queryKey][]float32),
	}
}

// Retrieve embeds queryText with the named model and returns the topK
// best-scoring chunks of collection. The query's dimension is checked
// against the collection's before searching; a mismatch fails fast
// instead of ranking vectors from different spaces. An absent
// collection yields no results, not an error.
func (r *Retriever) Retrieve(ctx context.Context, collection, queryText string, topK int, model string) ([]vectorstore.Result, error) {
	if queryText == "" {
		return nil, errdefs.Validationf("query", "empty query text")
	}

	// 1. Embed the query (cached within this retriever).
	values, err := r.queryVector(ctx, collection, queryText, model)
	if err != nil {
		return nil, err
	}

	// 2. Verify the model speaks the collection's dimension.
	stats, err := r.store.Stats(ctx, collection)
	switch {
	case errdefs.IsNotFound(err):
		return []vectorstore.Result{}, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read collection stats: %w", err)
	}
	if stats.Dimension != len(values) {
		return nil, fmt.Errorf("model %s embeds %d dimensions but collection %s holds %d: %w",
			model, len(values), collection, stats.Dimension,
			errdefs.DimensionMismatch(collection, stats.Dimension, len(values)))
	}

	// 3. Search.
	results, err := r.store.Search(ctx, collection, values, topK)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	r.logger.Debug("retrieved chunks",
		slog.String("collection", collection),
		slog.String("model", model),
		slog.Int("hits", len(results)))
	return results, nil
}

func (r *Retriever) queryVector(ctx context.Context, collection, queryText, model string) ([]float32, error) {
	key := queryKey{collection: collection, model: model, query: queryText}

	r.mu.Lock()
	cached, ok := r.cache[key]
	r.mu.Unlock()
	if ok {
		return cached, nil
	}

	fitID := ""
	if r.fits != nil {
		fitID = r.fits(collection)
	}
	vec, err := r.embedder.EmbedQuery(ctx, queryText, model, fitID)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	r.mu.Lock()
	r.cache[key] = vec.Values
	r.mu.Unlock()
	return vec.Values, nil
}
