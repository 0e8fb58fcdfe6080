package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ragbench/ragbench/internal/document"
	"github.com/ragbench/ragbench/internal/embed"
	"github.com/ragbench/ragbench/internal/errdefs"
	"github.com/ragbench/ragbench/internal/retrieve"
	"github.com/ragbench/ragbench/internal/vectorstore"
)

type catalogKey struct {
	backend    string
	collection string
}

// catalogEntry remembers how a collection was built so later queries
// embed into the same space: the model, the lexical fit when there is
// one, and the source document.
type catalogEntry struct {
	Model      string    `json:"model"`
	FitID      string    `json:"fit_id,omitempty"`
	DocumentID string    `json:"document_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// catalog indexes catalogEntry by (backend, collection). The same
// collection name on two backends is two different collections.
type catalog struct {
	mu      sync.RWMutex
	entries map[catalogKey]catalogEntry
}

func newCatalog() *catalog {
	return &catalog{entries: make(map[catalogKey]catalogEntry)}
}

// put stores an entry and returns the one it displaced, if any.
func (c *catalog) put(backend, collection string, e catalogEntry) (catalogEntry, bool) {
	key := catalogKey{backend: backend, collection: collection}
	c.mu.Lock()
	defer c.mu.Unlock()
	prev, ok := c.entries[key]
	c.entries[key] = e
	return prev, ok
}

func (c *catalog) get(backend, collection string) (catalogEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[catalogKey{backend: backend, collection: collection}]
	return e, ok
}

// drop removes and returns an entry.
func (c *catalog) drop(backend, collection string) (catalogEntry, bool) {
	key := catalogKey{backend: backend, collection: collection}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	delete(c.entries, key)
	return e, ok
}

// fitLookup adapts the catalog to the retriever's fit resolution.
func (c *catalog) fitLookup(backend string) retrieve.FitLookup {
	return func(collection string) string {
		e, _ := c.get(backend, collection)
		return e.FitID
	}
}

// modelFor resolves the embedding model for a query against a
// collection: the request's explicit choice wins, then the model the
// collection was indexed with, then the configured default.
func (c *catalog) modelFor(backend, collection, requested, fallback string) string {
	if requested != "" {
		return requested
	}
	if e, ok := c.get(backend, collection); ok && e.Model != "" {
		return e.Model
	}
	return fallback
}

// resolveStore picks a backend by name, with "" meaning the configured
// default, and reports the name actually used.
func resolveStore(stores *vectorstore.Registry, name string) (vectorstore.Store, string, error) {
	store, err := stores.Get(name)
	if err != nil {
		return nil, "", err
	}
	if name == "" {
		name = stores.Default()
	}
	return store, name, nil
}

type collectionHandler struct {
	docs         *document.Registry
	embedder     *embed.Service
	stores       *vectorstore.Registry
	catalog      *catalog
	defaultModel string
	logger       *slog.Logger
}

type createCollectionRequest struct {
	DocumentID string `json:"document_id"`
	Collection string `json:"collection"`
	Model      string `json:"model"`
	Backend    string `json:"backend"`
}

type createCollectionResponse struct {
	Collection string `json:"collection"`
	Backend    string `json:"backend"`
	Model      string `json:"model"`
	DocumentID string `json:"document_id"`
	Stored     int    `json:"stored"`
	Dimension  int    `json:"dimension"`
	FitID      string `json:"fit_id,omitempty"`
}

// collectionInfo is one listed collection: store-side counts joined
// with what the catalog knows about its construction.
type collectionInfo struct {
	Name       string    `json:"name"`
	Count      int       `json:"count"`
	Dimension  int       `json:"dimension"`
	Model      string    `json:"model,omitempty"`
	DocumentID string    `json:"document_id,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitzero"`
}

// create runs the indexing pipeline: take the document's latest chunk
// run, embed every chunk with one model, upsert the vectors into one
// backend, and record how the collection was built. Indexing the same
// collection again replaces the catalog entry and releases a displaced
// lexical fit.
func (h *collectionHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createCollectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	collection := strings.TrimSpace(req.Collection)
	if collection == "" {
		respondError(w, h.logger, r, errdefs.Validationf("collection", "empty collection name"))
		return
	}

	store, backend, err := resolveStore(h.stores, req.Backend)
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	doc, err := h.docs.Get(req.DocumentID)
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	set, err := h.docs.Chunks(req.DocumentID)
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	if len(set.Chunks) == 0 {
		respondError(w, h.logger, r,
			errdefs.Validationf("document_id", "chunk run for document %s holds no chunks", req.DocumentID))
		return
	}

	model := req.Model
	if model == "" {
		model = h.defaultModel
	}
	vectors, err := h.embedder.Embed(r.Context(), chunkTexts(set.Chunks), model)
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}

	entries := make([]vectorstore.Entry, len(vectors))
	for i, v := range vectors {
		c := set.Chunks[i]
		entries[i] = vectorstore.Entry{
			ID:     c.ID,
			Values: v.Values,
			Text:   c.Text,
			Metadata: map[string]string{
				"document_id": req.DocumentID,
				"chunk_index": strconv.Itoa(c.Index),
				"model_name":  model,
				"filename":    doc.Filename,
			},
		}
	}

	stored, err := store.Upsert(r.Context(), collection, entries)
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}

	fitID := ""
	if model == embed.ModelLexical {
		fitID = h.embedder.FitID()
	}
	prev, existed := h.catalog.put(backend, collection, catalogEntry{
		Model:      model,
		FitID:      fitID,
		DocumentID: req.DocumentID,
		CreatedAt:  time.Now().UTC(),
	})
	if existed && prev.FitID != "" && prev.FitID != fitID {
		h.embedder.ReleaseFit(prev.FitID)
	}

	h.logger.Info("collection indexed",
		"collection", collection,
		"backend", backend,
		"model", model,
		"stored", stored,
	)
	writeJSON(w, http.StatusCreated, createCollectionResponse{
		Collection: collection,
		Backend:    backend,
		Model:      model,
		DocumentID: req.DocumentID,
		Stored:     stored,
		Dimension:  len(entries[0].Values),
		FitID:      fitID,
	})
}

func (h *collectionHandler) list(w http.ResponseWriter, r *http.Request) {
	store, backend, err := resolveStore(h.stores, r.URL.Query().Get("backend"))
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	names, err := store.ListCollections(r.Context())
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}

	infos := make([]collectionInfo, 0, len(names))
	for _, name := range names {
		info := collectionInfo{Name: name}
		if stats, err := store.Stats(r.Context(), name); err == nil {
			info.Count = stats.Count
			info.Dimension = stats.Dimension
		}
		if e, ok := h.catalog.get(backend, name); ok {
			info.Model = e.Model
			info.DocumentID = e.DocumentID
			info.CreatedAt = e.CreatedAt
		}
		infos = append(infos, info)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"backend":     backend,
		"collections": infos,
		"total":       len(infos),
	})
}

func (h *collectionHandler) stats(w http.ResponseWriter, r *http.Request) {
	store, backend, err := resolveStore(h.stores, r.URL.Query().Get("backend"))
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	name := r.PathValue("name")
	stats, err := store.Stats(r.Context(), name)
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}

	info := collectionInfo{Name: stats.Name, Count: stats.Count, Dimension: stats.Dimension}
	if e, ok := h.catalog.get(backend, name); ok {
		info.Model = e.Model
		info.DocumentID = e.DocumentID
		info.CreatedAt = e.CreatedAt
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"backend":    backend,
		"collection": info,
	})
}

// delete removes a collection from its backend and releases any lexical
// fit the catalog held for it. Deleting an absent collection succeeds.
func (h *collectionHandler) delete(w http.ResponseWriter, r *http.Request) {
	store, backend, err := resolveStore(h.stores, r.URL.Query().Get("backend"))
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	name := r.PathValue("name")
	if err := store.Delete(r.Context(), name); err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	if prev, ok := h.catalog.drop(backend, name); ok && prev.FitID != "" {
		h.embedder.ReleaseFit(prev.FitID)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
