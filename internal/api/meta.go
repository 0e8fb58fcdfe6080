package api

import (
	"net/http"

	"github.com/ragbench/ragbench/internal/chunk"
	"github.com/ragbench/ragbench/internal/embed"
	"github.com/ragbench/ragbench/internal/llm"
	"github.com/ragbench/ragbench/internal/vectorstore"
)

// metaHandler serves the discovery endpoints a workbench UI populates
// its pickers from.
type metaHandler struct {
	embedder     *embed.Service
	stores       *vectorstore.Registry
	providers    *llm.Registry
	defaultModel string
}

func (h *metaHandler) listStrategies(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"strategies": chunk.Strategies(),
	})
}

func (h *metaHandler) listModels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"models":  h.embedder.Models(),
		"default": h.defaultModel,
	})
}

func (h *metaHandler) listBackends(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"backends": h.stores.Names(),
		"default":  h.stores.Default(),
	})
}

func (h *metaHandler) listProviders(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"providers": h.providers.Infos(),
	})
}
