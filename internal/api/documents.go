package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/ragbench/ragbench/internal/document"
)

// previewChars caps how much extracted text document responses carry.
const previewChars = 500

// multipart boundary and part headers on top of the file itself.
const formOverheadBytes = 1 << 20

type documentHandler struct {
	docs     *document.Registry
	maxBytes int64
	logger   *slog.Logger
}

// documentResponse is a document plus a bounded slice of its text.
type documentResponse struct {
	*document.Document
	TextPreview string `json:"text_preview,omitempty"`
}

func newDocumentResponse(doc *document.Document) documentResponse {
	return documentResponse{Document: doc, TextPreview: preview(doc.Text, previewChars)}
}

// preview returns the first n runes of text.
func preview(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}

// upload accepts a multipart form with a "file" field, extracts its
// text and registers the document. A failed extraction still answers
// 201: the document exists with status error and the message attached.
func (h *documentHandler) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+formOverheadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "file_too_large", "uploaded file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_upload", `multipart form with a "file" field required`)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "file_too_large", "uploaded file too large")
			return
		}
		h.logger.Error("reading upload", "error", err, "filename", header.Filename)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	doc, err := h.docs.Create(header.Filename, content)
	if doc == nil {
		respondError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newDocumentResponse(doc))
}

func (h *documentHandler) list(w http.ResponseWriter, _ *http.Request) {
	docs := h.docs.List()
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"total":     len(docs),
	})
}

func (h *documentHandler) get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.docs.Get(r.PathValue("id"))
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newDocumentResponse(doc))
}

func (h *documentHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.docs.Delete(r.PathValue("id")); err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// chunks returns the latest chunking run for a document.
func (h *documentHandler) chunks(w http.ResponseWriter, r *http.Request) {
	set, err := h.docs.Chunks(r.PathValue("id"))
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}
