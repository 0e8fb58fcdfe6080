// Package vectorstore holds embedded chunks and searches them by cosine
// similarity. Every backend implements the same Store contract with the
// same scoring, so the same query against the same data ranks the same
// way regardless of where the vectors live. That equivalence is what
// makes side-by-side backend comparison meaningful.
package vectorstore

import (
	"context"
	"math"
	"sort"

	"github.com/ragbench/ragbench/internal/errdefs"
)

// Entry is the durable unit a collection holds.
type Entry struct {
	ID       string            `json:"id"`
	Values   []float32         `json:"values"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Result is one search hit. Score is cosine similarity in [-1, 1],
// descending across a result set.
type Result struct {
	ChunkID  string            `json:"chunk_id"`
	Text     string            `json:"text"`
	Score    float64           `json:"score"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// CollectionStats describes one collection.
type CollectionStats struct {
	Name      string `json:"name"`
	Count     int    `json:"count"`
	Dimension int    `json:"dimension"`
}

// Store is the backend contract. Implementations must behave
// identically:
//
//   - Upsert creates the collection on first use and fixes its dimension
//     from the first entry; entries disagreeing with the established
//     dimension are rejected with a dimension-mismatch error and the
//     call stores nothing (all-or-nothing). ID collisions overwrite.
//   - Search returns at most topK results by descending cosine
//     similarity. An empty or absent collection yields an empty slice,
//     never an error; a query of the wrong dimension is a
//     dimension-mismatch error; topK <= 0 is a validation error.
//   - Delete is idempotent. Stats on an unknown collection is not found.
//
// Implementations must be safe for concurrent use; upserts to one
// collection are serialized, reads run concurrently with reads.
type Store interface {
	Upsert(ctx context.Context, collection string, entries []Entry) (int, error)
	Search(ctx context.Context, collection string, query []float32, topK int) ([]Result, error)
	ListCollections(ctx context.Context) ([]string, error)
	Stats(ctx context.Context, collection string) (CollectionStats, error)
	Delete(ctx context.Context, collection string) error
	Close() error
}

// validateEntries checks a batch against the collection's established
// dimension before anything is written. dim <= 0 means the collection
// does not exist yet and the first entry establishes it.
func validateEntries(collection string, entries []Entry, dim int) (int, error) {
	if dim <= 0 {
		dim = len(entries[0].Values)
	}
	if dim == 0 {
		return 0, errdefs.Validationf("entries", "entry %q has an empty vector", entries[0].ID)
	}
	for _, e := range entries {
		if e.ID == "" {
			return 0, errdefs.Validationf("entries", "entry with empty id")
		}
		if len(e.Values) != dim {
			return 0, errdefs.DimensionMismatch(collection, dim, len(e.Values))
		}
		// A zero vector has no direction; cosine against it is NaN in
		// backends that normalize. Reject it everywhere instead.
		if isZero(e.Values) {
			return 0, errdefs.Validationf("entries", "entry %q has a zero vector", e.ID)
		}
	}
	return dim, nil
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// validateQuery checks search arguments shared by all backends.
func validateQuery(query []float32, topK int) error {
	if topK <= 0 {
		return errdefs.Validationf("top_k", "must be positive, got %d", topK)
	}
	if len(query) == 0 {
		return errdefs.Validationf("query", "empty query vector")
	}
	if isZero(query) {
		return errdefs.Validationf("query", "zero query vector cannot be ranked by cosine")
	}
	return nil
}

// normalize returns a unit-length copy of v. A zero vector comes back
// as a zero copy, which scores 0 against everything.
func normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// dot computes the inner product of two equal-length vectors. Over
// normalized inputs this is cosine similarity.
func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// rankResults sorts hits by descending score, breaking ties by id so
// result order is stable, and truncates to topK.
func rankResults(results []Result, topK int) []Result {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ChunkID < results[j].ChunkID
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

// copyMetadata clones entry metadata so stored state never aliases
// caller maps.
func copyMetadata(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
