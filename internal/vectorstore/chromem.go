package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/gofrs/flock"
	chromem "github.com/philippgille/chromem-go"

	"github.com/ragbench/ragbench/internal/errdefs"
)

// Chromem adapts chromem-go to the Store contract. chromem normalizes
// embeddings itself, so its similarity is the same cosine the other
// backends compute.
//
// Two contract gaps are papered over here: chromem neither enforces
// vector dimensions nor accepts nResults above the document count. The
// adapter tracks per-collection dimensions itself (in a sidecar file
// when persistent, guarded by a file lock so two processes cannot share
// the directory) and clamps topK before querying.
type Chromem struct {
	db     *chromem.DB
	logger *slog.Logger

	mu       sync.Mutex
	dims     map[string]int
	metaPath string
	lock     *flock.Flock
}

// NewChromem opens an in-memory store when dir is empty, otherwise a
// persistent one rooted at dir.
func NewChromem(dir string, logger *slog.Logger) (*Chromem, error) {
	c := &Chromem{logger: logger, dims: make(map[string]int)}
	if dir == "" {
		c.db = chromem.NewDB()
		return c, nil
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create chromem directory: %w", err)
	}
	c.lock = flock.New(filepath.Join(dir, ".ragbench.lock"))
	locked, err := c.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock chromem directory: %w", err)
	}
	if !locked {
		return nil, errdefs.Configurationf("chromem", "directory %s is locked by another process", dir)
	}

	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		_ = c.lock.Unlock()
		return nil, fmt.Errorf("failed to open chromem at %s: %w", dir, err)
	}
	c.db = db
	c.metaPath = filepath.Join(dir, "collections.meta.json")
	if err := c.loadMeta(); err != nil {
		_ = c.lock.Unlock()
		return nil, err
	}
	return c, nil
}

func (c *Chromem) Upsert(ctx context.Context, collection string, entries []Entry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	dim, err := validateEntries(collection, entries, c.dims[collection])
	if err != nil {
		return 0, err
	}

	col, err := c.db.GetOrCreateCollection(collection, nil, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to open collection %q: %w", collection, err)
	}

	docs := make([]chromem.Document, len(entries))
	for i, e := range entries {
		docs[i] = chromem.Document{
			ID:        e.ID,
			Metadata:  copyMetadata(e.Metadata),
			Embedding: e.Values,
			Content:   e.Text,
		}
	}
	if err := col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return 0, fmt.Errorf("failed to add documents to %q: %w", collection, err)
	}

	c.dims[collection] = dim
	if err := c.saveMeta(); err != nil {
		return 0, err
	}
	return len(entries), nil
}

func (c *Chromem) Search(ctx context.Context, collection string, query []float32, topK int) ([]Result, error) {
	if err := validateQuery(query, topK); err != nil {
		return nil, err
	}

	c.mu.Lock()
	dim, known := c.dims[collection]
	c.mu.Unlock()

	col := c.db.GetCollection(collection, nil)
	if col == nil {
		return []Result{}, nil
	}
	if known && len(query) != dim {
		return nil, errdefs.DimensionMismatch(collection, dim, len(query))
	}

	count := col.Count()
	if count == 0 {
		return []Result{}, nil
	}
	// chromem rejects nResults above the document count.
	n := topK
	if n > count {
		n = count
	}

	hits, err := col.QueryEmbedding(ctx, query, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query on %q failed: %w", collection, err)
	}

	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = Result{
			ChunkID:  h.ID,
			Text:     h.Content,
			Score:    float64(h.Similarity),
			Metadata: h.Metadata,
		}
	}
	return results, nil
}

func (c *Chromem) ListCollections(_ context.Context) ([]string, error) {
	cols := c.db.ListCollections()
	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (c *Chromem) Stats(_ context.Context, collection string) (CollectionStats, error) {
	col := c.db.GetCollection(collection, nil)
	if col == nil {
		return CollectionStats{}, errdefs.NotFound("collection", collection)
	}

	c.mu.Lock()
	dim := c.dims[collection]
	c.mu.Unlock()

	return CollectionStats{
		Name:      collection,
		Count:     col.Count(),
		Dimension: dim,
	}, nil
}

func (c *Chromem) Delete(_ context.Context, collection string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.db.DeleteCollection(collection); err != nil {
		return fmt.Errorf("failed to delete collection %q: %w", collection, err)
	}
	delete(c.dims, collection)
	return c.saveMeta()
}

func (c *Chromem) Close() error {
	if c.lock != nil {
		if err := c.lock.Unlock(); err != nil {
			return fmt.Errorf("failed to release chromem lock: %w", err)
		}
	}
	return nil
}

// loadMeta reads the sidecar dimension map. Missing file means a fresh
// directory.
func (c *Chromem) loadMeta() error {
	data, err := os.ReadFile(c.metaPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read collection metadata: %w", err)
	}
	if err := json.Unmarshal(data, &c.dims); err != nil {
		return fmt.Errorf("failed to parse collection metadata: %w", err)
	}
	return nil
}

// saveMeta is called with c.mu held.
func (c *Chromem) saveMeta() error {
	if c.metaPath == "" {
		return nil
	}
	data, err := json.Marshal(c.dims)
	if err != nil {
		return fmt.Errorf("failed to marshal collection metadata: %w", err)
	}
	if err := os.WriteFile(c.metaPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write collection metadata: %w", err)
	}
	return nil
}
