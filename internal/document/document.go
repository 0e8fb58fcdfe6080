// Package document tracks uploaded source texts: extraction, status,
// per-document statistics, and the latest chunking run.
package document

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/ragbench/ragbench/internal/chunk"
	"github.com/ragbench/ragbench/internal/errdefs"
)

// Status tracks a document through extraction.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusError      Status = "error"
)

// Stats summarizes an extracted text.
type Stats struct {
	CharCount       int `json:"char_count"`
	WordCount       int `json:"word_count"`
	EstimatedTokens int `json:"estimated_tokens"`
}

// Document is one uploaded file and its extracted text. Text stays out
// of JSON; handlers decide how much of it to expose.
type Document struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	FileSize   int64     `json:"file_size"`
	FileType   string    `json:"file_type"`
	UploadedAt time.Time `json:"upload_timestamp"`
	Status     Status    `json:"status"`
	Stats      Stats     `json:"stats"`
	Error      string    `json:"error_message,omitempty"`
	Text       string    `json:"-"`
}

// Store persists documents. Implementations must be safe for concurrent
// use.
type Store interface {
	Get(id string) (*Document, bool)
	Put(doc *Document)
	Delete(id string) bool
	List() []*Document
}

// memStore is the map-backed Store. Documents are copied in and out so
// no caller holds a pointer into the store's state.
type memStore struct {
	mu   sync.RWMutex
	docs map[string]*Document
}

// NewMemoryStore creates the in-memory Store.
func NewMemoryStore() Store {
	return &memStore{docs: make(map[string]*Document)}
}

func (s *memStore) Get(id string) (*Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, false
	}
	cp := *doc
	return &cp, true
}

func (s *memStore) Put(doc *Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *doc
	s.docs[doc.ID] = &cp
}

func (s *memStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.docs[id]
	delete(s.docs, id)
	return ok
}

func (s *memStore) List() []*Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Document, 0, len(s.docs))
	for _, doc := range s.docs {
		cp := *doc
		out = append(out, &cp)
	}
	return out
}

// Registry owns the document lifecycle: validate an upload, extract its
// text, compute statistics, and keep the latest chunking run per
// document. A re-chunk replaces the previous run whole.
type Registry struct {
	store    Store
	maxBytes int64
	logger   *slog.Logger

	mu     sync.RWMutex
	chunks map[string]*chunk.Set
}

// NewRegistry creates a registry over store. A nil store gets the
// in-memory implementation; maxBytes caps upload sizes (0 means no cap).
func NewRegistry(store Store, maxBytes int64, logger *slog.Logger) *Registry {
	if store == nil {
		store = NewMemoryStore()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		store:    store,
		maxBytes: maxBytes,
		logger:   logger,
		chunks:   make(map[string]*chunk.Set),
	}
}

// Create registers an upload and extracts its text. When extraction
// fails the document is still stored with status error so the failure
// stays inspectable, and the error is returned alongside it.
func (r *Registry) Create(filename string, content []byte) (*Document, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, errdefs.Validationf("filename", "no filename provided")
	}
	fileType, err := TypeForFilename(filename)
	if err != nil {
		return nil, err
	}
	if r.maxBytes > 0 && int64(len(content)) > r.maxBytes {
		return nil, errdefs.Validationf("file",
			"file too large: %d bytes exceeds the %d byte limit", len(content), r.maxBytes)
	}

	doc := &Document{
		ID:         uuid.NewString(),
		Filename:   filename,
		FileSize:   int64(len(content)),
		FileType:   fileType,
		UploadedAt: time.Now(),
		Status:     StatusProcessing,
	}
	r.store.Put(doc)

	text, err := Extract(filename, content)
	if err != nil {
		doc.Status = StatusError
		doc.Error = err.Error()
		r.store.Put(doc)
		return doc, fmt.Errorf("extracting %s: %w", filename, err)
	}

	doc.Text = text
	doc.Status = StatusReady
	doc.Stats = TextStats(text)
	r.store.Put(doc)

	r.logger.Info("document ready",
		slog.String("id", doc.ID),
		slog.String("filename", filename),
		slog.Int("chars", doc.Stats.CharCount))
	return doc, nil
}

// Get returns the document or a not-found error.
func (r *Registry) Get(id string) (*Document, error) {
	doc, ok := r.store.Get(id)
	if !ok {
		return nil, errdefs.NotFound("document", id)
	}
	return doc, nil
}

// Text returns the extracted text of a ready document.
func (r *Registry) Text(id string) (string, error) {
	doc, ok := r.store.Get(id)
	if !ok {
		return "", errdefs.NotFound("document", id)
	}
	if doc.Status != StatusReady {
		return "", errdefs.Validationf("document", "document %s is %s, not ready", id, doc.Status)
	}
	return doc.Text, nil
}

// List returns all documents, newest first.
func (r *Registry) List() []*Document {
	docs := r.store.List()
	sort.Slice(docs, func(i, j int) bool { return docs[i].UploadedAt.After(docs[j].UploadedAt) })
	return docs
}

// Delete removes the document and its chunk run. Deleting an unknown
// document is a not-found error.
func (r *Registry) Delete(id string) error {
	if !r.store.Delete(id) {
		return errdefs.NotFound("document", id)
	}
	r.mu.Lock()
	delete(r.chunks, id)
	r.mu.Unlock()
	return nil
}

// SetChunks records the latest chunking run for a document, replacing
// any previous one.
func (r *Registry) SetChunks(id string, set *chunk.Set) error {
	if _, ok := r.store.Get(id); !ok {
		return errdefs.NotFound("document", id)
	}
	r.mu.Lock()
	r.chunks[id] = set
	r.mu.Unlock()
	return nil
}

// Chunks returns the latest chunking run for a document.
func (r *Registry) Chunks(id string) (*chunk.Set, error) {
	if _, ok := r.store.Get(id); !ok {
		return nil, errdefs.NotFound("document", id)
	}
	r.mu.RLock()
	set, ok := r.chunks[id]
	r.mu.RUnlock()
	if !ok {
		return nil, errdefs.NotFound("chunk run for document", id)
	}
	return set, nil
}

// TextStats computes the per-document statistics over extracted text.
// Characters are counted as runes, tokens estimated at four characters
// each.
func TextStats(text string) Stats {
	chars := utf8.RuneCountInString(text)
	return Stats{
		CharCount:       chars,
		WordCount:       len(strings.Fields(text)),
		EstimatedTokens: chars / 4,
	}
}
