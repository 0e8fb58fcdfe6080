package api

import (
	"log/slog"
	"net/http"

	"github.com/ragbench/ragbench/internal/chunk"
	"github.com/ragbench/ragbench/internal/document"
)

const (
	defaultChunkSize    = 500
	defaultChunkOverlap = 50
	chunkPreviewCount   = 3
)

type chunkHandler struct {
	docs   *document.Registry
	logger *slog.Logger
}

// chunkRequest selects a strategy and its parameters. Size defaults to
// 500 and Overlap to 50 when omitted; Overlap is a pointer so an
// explicit zero survives decoding.
type chunkRequest struct {
	DocumentID        string  `json:"document_id"`
	Strategy          string  `json:"strategy"`
	Size              int     `json:"size"`
	Overlap           *int    `json:"overlap"`
	Stride            int     `json:"stride"`
	SemanticThreshold float64 `json:"semantic_threshold"`
}

type chunkResponse struct {
	DocumentID string         `json:"document_id"`
	Strategy   chunk.Strategy `json:"strategy"`
	Size       int            `json:"size"`
	Overlap    int            `json:"overlap"`
	Stats      chunk.Stats    `json:"stats"`
	Preview    []chunk.Chunk  `json:"preview"`
}

// split chunks a document's text and records the run, superseding any
// previous one. The response carries the stats and the first three
// chunks; the full set stays behind GET /api/documents/{id}/chunks.
func (h *chunkHandler) split(w http.ResponseWriter, r *http.Request) {
	var req chunkRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	strategy, err := chunk.ParseStrategy(req.Strategy)
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}

	size := req.Size
	if size == 0 {
		size = defaultChunkSize
	}
	overlap := 0
	switch {
	case req.Overlap != nil:
		overlap = *req.Overlap
	case defaultChunkOverlap < size:
		overlap = defaultChunkOverlap
	}

	text, err := h.docs.Text(req.DocumentID)
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}

	set, err := chunk.Split(text, chunk.Options{
		DocumentID:        req.DocumentID,
		Strategy:          strategy,
		Size:              size,
		Overlap:           overlap,
		Stride:            req.Stride,
		SemanticThreshold: req.SemanticThreshold,
	})
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	if err := h.docs.SetChunks(req.DocumentID, set); err != nil {
		respondError(w, h.logger, r, err)
		return
	}

	h.logger.Info("document chunked",
		"document_id", req.DocumentID,
		"strategy", string(strategy),
		"chunks", len(set.Chunks),
	)
	writeJSON(w, http.StatusOK, chunkResponse{
		DocumentID: req.DocumentID,
		Strategy:   set.Strategy,
		Size:       set.Size,
		Overlap:    set.Overlap,
		Stats:      set.Stats,
		Preview:    chunkPreview(set.Chunks),
	})
}

func chunkPreview(chunks []chunk.Chunk) []chunk.Chunk {
	if len(chunks) <= chunkPreviewCount {
		return chunks
	}
	return chunks[:chunkPreviewCount]
}
