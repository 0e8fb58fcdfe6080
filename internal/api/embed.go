package api

import (
	"log/slog"
	"net/http"

	"github.com/ragbench/ragbench/internal/chunk"
	"github.com/ragbench/ragbench/internal/document"
	"github.com/ragbench/ragbench/internal/embed"
	"github.com/ragbench/ragbench/internal/errdefs"
)

const (
	vectorPreviewCount  = 3
	vectorPreviewValues = 8
)

type embedHandler struct {
	docs         *document.Registry
	embedder     *embed.Service
	defaultModel string
	logger       *slog.Logger
}

type embedRequest struct {
	DocumentID string `json:"document_id"`
	Model      string `json:"model"`
}

// vectorPreview is one embedded chunk with its values truncated to the
// first few; the full-width diagnostics still describe the whole vector.
type vectorPreview struct {
	ChunkID   string                    `json:"chunk_id"`
	Dimension int                       `json:"dimension"`
	Values    []float32                 `json:"values"`
	Lexical   *embed.LexicalDiagnostics `json:"lexical,omitempty"`
	Dense     *embed.DenseDiagnostics   `json:"dense,omitempty"`
}

type embedResponse struct {
	DocumentID string           `json:"document_id"`
	Model      string           `json:"model"`
	FitID      string           `json:"fit_id,omitempty"`
	Stats      embed.BatchStats `json:"stats"`
	Preview    []vectorPreview  `json:"preview"`
}

// run embeds a document's latest chunk run without storing anything.
// It exists to inspect what a model does to the chunks before
// committing them to a collection.
func (h *embedHandler) run(w http.ResponseWriter, r *http.Request) {
	var req embedRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	model := req.Model
	if model == "" {
		model = h.defaultModel
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

	vectors, err := h.embedder.Embed(r.Context(), chunkTexts(set.Chunks), model)
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}

	resp := embedResponse{
		DocumentID: req.DocumentID,
		Model:      model,
		Stats:      embed.Statistics(vectors),
		Preview:    previewVectors(set.Chunks, vectors),
	}
	if model == embed.ModelLexical {
		resp.FitID = h.embedder.FitID()
	}
	writeJSON(w, http.StatusOK, resp)
}

func chunkTexts(chunks []chunk.Chunk) []string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return texts
}

func previewVectors(chunks []chunk.Chunk, vectors []embed.Vector) []vectorPreview {
	n := min(len(vectors), vectorPreviewCount)
	out := make([]vectorPreview, n)
	for i := range n {
		v := vectors[i]
		values := v.Values
		if len(values) > vectorPreviewValues {
			values = values[:vectorPreviewValues]
		}
		out[i] = vectorPreview{
			ChunkID:   chunks[i].ID,
			Dimension: v.Dimension,
			Values:    values,
			Lexical:   v.Lexical,
			Dense:     v.Dense,
		}
	}
	return out
}
