package vectorstore

import (
	"context"
	"sort"
	"sync"

	"github.com/ragbench/ragbench/internal/errdefs"
)

// Memory is the reference Store: a map guarded by a RWMutex. Vectors
// are normalized once at insert so search is a plain dot product. Other
// backends are checked against its behavior.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

type memoryCollection struct {
	dimension int
	entries   map[string]memoryEntry
}

type memoryEntry struct {
	normalized []float32
	text       string
	metadata   map[string]string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{collections: make(map[string]*memoryCollection)}
}

func (m *Memory) Upsert(_ context.Context, collection string, entries []Entry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	col := m.collections[collection]
	established := 0
	if col != nil {
		established = col.dimension
	}
	dim, err := validateEntries(collection, entries, established)
	if err != nil {
		return 0, err
	}

	if col == nil {
		col = &memoryCollection{
			dimension: dim,
			entries:   make(map[string]memoryEntry, len(entries)),
		}
		m.collections[collection] = col
	}
	for _, e := range entries {
		col.entries[e.ID] = memoryEntry{
			normalized: normalize(e.Values),
			text:       e.Text,
			metadata:   copyMetadata(e.Metadata),
		}
	}
	return len(entries), nil
}

func (m *Memory) Search(_ context.Context, collection string, query []float32, topK int) ([]Result, error) {
	if err := validateQuery(query, topK); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	col := m.collections[collection]
	if col == nil || len(col.entries) == 0 {
		return []Result{}, nil
	}
	if len(query) != col.dimension {
		return nil, errdefs.DimensionMismatch(collection, col.dimension, len(query))
	}

	q := normalize(query)
	results := make([]Result, 0, len(col.entries))
	for id, e := range col.entries {
		results = append(results, Result{
			ChunkID:  id,
			Text:     e.text,
			Score:    dot(q, e.normalized),
			Metadata: copyMetadata(e.metadata),
		})
	}
	return rankResults(results, topK), nil
}

func (m *Memory) ListCollections(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.collections))
	for name := range m.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *Memory) Stats(_ context.Context, collection string) (CollectionStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	col := m.collections[collection]
	if col == nil {
		return CollectionStats{}, errdefs.NotFound("collection", collection)
	}
	return CollectionStats{
		Name:      collection,
		Count:     len(col.entries),
		Dimension: col.dimension,
	}, nil
}

func (m *Memory) Delete(_ context.Context, collection string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.collections, collection)
	return nil
}

func (*Memory) Close() error { return nil }
