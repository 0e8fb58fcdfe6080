package embed

import (
	"context"
	"hash/fnv"

	"github.com/ragbench/ragbench/internal/textutil"
)

// DenseEncoder produces fixed-dimension embeddings for a batch of
// texts, one vector per text in input order.
type DenseEncoder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	ModelName() string
}

// hashEncoder embeds by feature hashing: each token lands in one of
// Dimension buckets by FNV-1a, incrementing or decrementing it with the
// hash's top bit as the sign. Deterministic and offline, so the whole
// pipeline is exercisable without an API key or a model server.
type hashEncoder struct {
	dim int
}

func newHashEncoder(dim int) *hashEncoder {
	return &hashEncoder{dim: dim}
}

func (e *hashEncoder) ModelName() string { return ModelHashDense }
func (e *hashEncoder) Dimension() int    { return e.dim }

func (e *hashEncoder) Encode(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, e.dim)
		for _, tok := range textutil.Tokenize(text) {
			h := fnv.New32a()
			h.Write([]byte(tok))
			sum := h.Sum32()
			idx := int(sum % uint32(e.dim))
			if sum>>31 == 0 {
				vec[idx]++
			} else {
				vec[idx]--
			}
		}
		out[i] = vec
	}
	return out, nil
}
