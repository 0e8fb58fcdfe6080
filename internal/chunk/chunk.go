// Package chunk splits document text into ordered chunks under one of
// five strategies: fixed windows, recursive structure-aware splitting,
// sentence accumulation, semantic similarity grouping, and sliding
// windows with an explicit stride.
//
// Splitting is deterministic for identical inputs. Every strategy
// produces chunks whose (StartOffset, EndOffset) pairs are non-decreasing
// in Index and whose spans cover the entire input without gaps; a chunk's
// CharCount always equals EndOffset minus StartOffset.
package chunk

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ragbench/ragbench/internal/errdefs"
)

// Strategy identifies a chunking strategy.
type Strategy string

const (
	StrategyFixed     Strategy = "fixed"
	StrategyRecursive Strategy = "recursive"
	StrategySentence  Strategy = "sentence"
	StrategySemantic  Strategy = "semantic"
	StrategySliding   Strategy = "sliding"
)

// DefaultSemanticThreshold is the keyword-overlap similarity below which
// the semantic strategy starts a new chunk.
const DefaultSemanticThreshold = 0.3

// Chunk is one contiguous slice of a document's text. Offsets are byte
// positions into the source; Text is exactly the source bytes in
// [StartOffset, EndOffset).
type Chunk struct {
	ID              string `json:"chunk_id"`
	DocumentID      string `json:"document_id"`
	Index           int    `json:"chunk_index"`
	Text            string `json:"text"`
	CharCount       int    `json:"char_count"`
	EstimatedTokens int    `json:"estimated_tokens"`
	StartOffset     int    `json:"start_offset"`
	EndOffset       int    `json:"end_offset"`
}

// Set is the ordered output of one chunking run plus aggregate
// statistics. A new run on the same document supersedes the previous
// Set; Sets are never mutated.
type Set struct {
	DocumentID string    `json:"document_id"`
	Strategy   Strategy  `json:"strategy"`
	Size       int       `json:"size"`
	Overlap    int       `json:"overlap"`
	Chunks     []Chunk   `json:"chunks"`
	Stats      Stats     `json:"stats"`
	CreatedAt  time.Time `json:"created_at"`
}

// Options configures a chunking run. Size and Overlap apply to every
// strategy; Stride only to sliding (0 means Size-Overlap);
// SemanticThreshold only to semantic (0 means DefaultSemanticThreshold).
type Options struct {
	DocumentID        string
	Strategy          Strategy
	Size              int
	Overlap           int
	Stride            int
	SemanticThreshold float64
}

// span is a half-open [start, end) byte range into the source text.
type span struct {
	start, end int
}

// splitters maps each strategy to its handler. Selection goes through
// this table, never through type inspection.
var splitters = map[Strategy]func(text string, opts Options) []span{
	StrategyFixed:     splitFixed,
	StrategyRecursive: splitRecursive,
	StrategySentence:  splitSentence,
	StrategySemantic:  splitSemantic,
	StrategySliding:   splitSliding,
}

// Strategies returns the known strategy names, sorted.
func Strategies() []string {
	names := make([]string, 0, len(splitters))
	for s := range splitters {
		names = append(names, string(s))
	}
	sort.Strings(names)
	return names
}

// ParseStrategy validates a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	st := Strategy(s)
	if _, ok := splitters[st]; !ok {
		return "", errdefs.Validationf("strategy", "unknown strategy %q (valid: fixed, recursive, sentence, semantic, sliding)", s)
	}
	return st, nil
}

// Split chunks text under the given options. Invalid options are
// rejected before any work begins. Empty input yields a Set with zero
// chunks.
func Split(text string, opts Options) (*Set, error) {
	if err := validateOptions(opts); err != nil {
		return nil, err
	}

	docID := opts.DocumentID
	if docID == "" {
		docID = "unknown"
	}

	var chunks []Chunk
	if len(text) > 0 {
		spans := splitters[opts.Strategy](text, opts)
		chunks = make([]Chunk, 0, len(spans))
		for i, sp := range spans {
			chunks = append(chunks, Chunk{
				ID:              uuid.NewString(),
				DocumentID:      docID,
				Index:           i,
				Text:            text[sp.start:sp.end],
				CharCount:       sp.end - sp.start,
				EstimatedTokens: estimateTokens(sp.end - sp.start),
				StartOffset:     sp.start,
				EndOffset:       sp.end,
			})
		}
	}

	return &Set{
		DocumentID: docID,
		Strategy:   opts.Strategy,
		Size:       opts.Size,
		Overlap:    opts.Overlap,
		Chunks:     chunks,
		Stats:      computeStats(chunks),
		CreatedAt:  time.Now().UTC(),
	}, nil
}

func validateOptions(opts Options) error {
	if _, ok := splitters[opts.Strategy]; !ok {
		return errdefs.Validationf("strategy", "unknown strategy %q", string(opts.Strategy))
	}
	if opts.Size <= 0 {
		return errdefs.Validationf("size", "must be positive, got %d", opts.Size)
	}
	if opts.Overlap < 0 || opts.Overlap >= opts.Size {
		return errdefs.Validationf("overlap", "must satisfy 0 <= overlap < size, got overlap=%d size=%d",
			opts.Overlap, opts.Size)
	}
	if opts.Strategy == StrategySliding && opts.Stride != 0 {
		if opts.Stride < 0 || opts.Stride >= opts.Size {
			return errdefs.Validationf("stride", "must satisfy 0 < stride < size, got stride=%d size=%d",
				opts.Stride, opts.Size)
		}
	}
	if opts.SemanticThreshold < 0 || opts.SemanticThreshold > 1 {
		return errdefs.Validationf("semantic_threshold", "must be between 0 and 1, got %g", opts.SemanticThreshold)
	}
	return nil
}

// estimateTokens approximates the token count of a chunk as one token
// per four characters, with a floor of one for non-empty text.
func estimateTokens(charCount int) int {
	if charCount <= 0 {
		return 0
	}
	if charCount < 4 {
		return 1
	}
	return charCount / 4
}
