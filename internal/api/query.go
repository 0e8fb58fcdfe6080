package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/ragbench/ragbench/internal/embed"
	"github.com/ragbench/ragbench/internal/errdefs"
	"github.com/ragbench/ragbench/internal/rag"
	"github.com/ragbench/ragbench/internal/retrieve"
	"github.com/ragbench/ragbench/internal/vectorstore"
)

// requestDefaults fills in what a request leaves out, sourced from the
// application config at server construction.
type requestDefaults struct {
	TopK        int
	Temperature float32
	MaxTokens   int
	Model       string
}

type queryHandler struct {
	embedder *embed.Service
	stores   *vectorstore.Registry
	catalog  *catalog
	engine   *rag.Engine
	history  *rag.History
	defaults requestDefaults
	logger   *slog.Logger
}

// retriever builds a per-request retriever over one backend, with fit
// resolution bound to that backend's catalog entries.
func (h *queryHandler) retriever(store vectorstore.Store, backend string) *retrieve.Retriever {
	return retrieve.New(store, h.embedder, h.catalog.fitLookup(backend), h.logger)
}

type searchRequest struct {
	Collection string `json:"collection"`
	Backend    string `json:"backend"`
	Query      string `json:"query"`
	TopK       int    `json:"top_k"`
	Model      string `json:"model"`
}

// search runs retrieval only: embed the query, rank the collection,
// return the scored chunks without any generation.
func (h *queryHandler) search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		respondError(w, h.logger, r, errdefs.Validationf("query", "empty query text"))
		return
	}

	store, backend, err := resolveStore(h.stores, req.Backend)
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	topK := req.TopK
	if topK == 0 {
		topK = h.defaults.TopK
	}
	model := h.catalog.modelFor(backend, req.Collection, req.Model, h.defaults.Model)

	results, err := h.retriever(store, backend).Retrieve(r.Context(), req.Collection, req.Query, topK, model)
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":      req.Query,
		"collection": req.Collection,
		"backend":    backend,
		"model":      model,
		"results":    results,
		"total":      len(results),
	})
}

type queryRequest struct {
	Question     string   `json:"question"`
	Provider     string   `json:"provider"`
	Collection   string   `json:"collection"`
	Backend      string   `json:"backend"`
	TopK         int      `json:"top_k"`
	Temperature  *float32 `json:"temperature"`
	MaxTokens    int      `json:"max_tokens"`
	SystemPrompt string   `json:"system_prompt"`
}

type queryResponse struct {
	Question string `json:"question"`
	*rag.QueryResult
}

// query answers a question with one provider, grounded in one
// collection. The embedding model comes from the catalog, so the
// question lands in the space the collection was indexed with.
func (h *queryHandler) query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	store, backend, err := resolveStore(h.stores, req.Backend)
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}

	temperature := h.defaults.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	topK := req.TopK
	if topK == 0 {
		topK = h.defaults.TopK
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = h.defaults.MaxTokens
	}

	result, err := h.engine.Query(r.Context(), h.retriever(store, backend), rag.QueryRequest{
		Question:     req.Question,
		Collection:   req.Collection,
		Model:        h.catalog.modelFor(backend, req.Collection, "", h.defaults.Model),
		Backend:      backend,
		Provider:     req.Provider,
		TopK:         topK,
		Temperature:  temperature,
		MaxTokens:    maxTokens,
		SystemPrompt: req.SystemPrompt,
	})
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, queryResponse{Question: req.Question, QueryResult: result})
}

type compareRequest struct {
	Question    string   `json:"question"`
	Providers   []string `json:"providers"`
	Collection  string   `json:"collection"`
	Backend     string   `json:"backend"`
	TopK        int      `json:"top_k"`
	Temperature *float32 `json:"temperature"`
	MaxTokens   int      `json:"max_tokens"`
}

type compareResponse struct {
	Backend string `json:"retrieval_backend"`
	*rag.CompareResult
}

// compare fans one question out to several providers over one shared
// retrieved context. Per-provider failures come back inside their
// slots; the request itself succeeds.
func (h *queryHandler) compare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	store, backend, err := resolveStore(h.stores, req.Backend)
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}

	temperature := h.defaults.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	topK := req.TopK
	if topK == 0 {
		topK = h.defaults.TopK
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = h.defaults.MaxTokens
	}

	result, err := h.engine.Compare(r.Context(), h.retriever(store, backend), rag.CompareRequest{
		Question:    req.Question,
		Collection:  req.Collection,
		Model:       h.catalog.modelFor(backend, req.Collection, "", h.defaults.Model),
		Backend:     backend,
		Providers:   req.Providers,
		TopK:        topK,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, compareResponse{Backend: backend, CompareResult: result})
}

// listHistory returns the recent query and compare invocations, newest
// first.
func (h *queryHandler) listHistory(w http.ResponseWriter, _ *http.Request) {
	entries := h.history.Recent()
	writeJSON(w, http.StatusOK, map[string]any{
		"history": entries,
		"total":   len(entries),
	})
}
