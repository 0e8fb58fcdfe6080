// Package embed turns chunk texts into vectors. Two families share one
// interface: the lexical family builds a TF-IDF space over the batch it
// is given, the dense family delegates to a fixed-dimension encoder.
// Queries embed through the same service so they land in the space the
// collection was indexed in.
package embed

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/ragbench/ragbench/internal/config"
	"github.com/ragbench/ragbench/internal/errdefs"
)

// Family groups models by how their vectors behave downstream.
type Family string

const (
	FamilyLexical Family = "lexical"
	FamilyDense   Family = "dense"
)

// Registered model names.
const (
	ModelLexical     = "tfidf-lexical"
	ModelHashDense   = "hash-dense"
	ModelOpenAIDense = "openai-dense"
)

// Vector is one embedded text. Values are dense even for the lexical
// family; the family-specific diagnostics say how sparse they really
// are. Dense vectors are not unit-normalized here, the vector store
// normalizes at index and query time.
type Vector struct {
	ChunkID     string              `json:"chunk_id,omitempty"`
	ModelFamily Family              `json:"model_family"`
	ModelName   string              `json:"model_name"`
	Dimension   int                 `json:"dimension"`
	Values      []float32           `json:"values"`
	Lexical     *LexicalDiagnostics `json:"lexical,omitempty"`
	Dense       *DenseDiagnostics   `json:"dense,omitempty"`
}

// LexicalDiagnostics describes the sparsity of a TF-IDF row.
type LexicalDiagnostics struct {
	VocabSize       int     `json:"vocab_size"`
	NonZeroFeatures int     `json:"non_zero_features"`
	Sparsity        float64 `json:"sparsity"`
}

// DenseDiagnostics summarizes the value distribution of a dense vector.
type DenseDiagnostics struct {
	L2Norm float64 `json:"l2_norm"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// BatchStats aggregates one Embed call for reporting.
type BatchStats struct {
	TotalEmbeddings int     `json:"total_embeddings"`
	ModelFamily     Family  `json:"model_family,omitempty"`
	ModelName       string  `json:"model_name,omitempty"`
	Dimension       int     `json:"dimension"`
	TotalSizeMB     float64 `json:"total_size_mb"`
	AvgSizeKB       float64 `json:"avg_size_kb,omitempty"`
	AvgNonZero      float64 `json:"avg_non_zero_features,omitempty"`
	AvgSparsity     float64 `json:"avg_sparsity,omitempty"`
	AvgL2Norm       float64 `json:"avg_l2_norm,omitempty"`
}

// Service embeds texts with a named model. Lexical fits are retained in
// memory keyed by fit id so later queries can transform into the space
// a collection was indexed with; the id travels in collection metadata.
type Service struct {
	logger      *slog.Logger
	maxFeatures int

	mu       sync.Mutex
	encoders map[string]DenseEncoder
	fits     map[string]*lexicalFit
	current  string
}

// New builds the model registry from cfg: the lexical model and the
// hash encoder are always available, the OpenAI encoder only when a key
// is configured.
func New(cfg *config.Config, logger *slog.Logger) *Service {
	s := &Service{
		logger:      logger,
		maxFeatures: cfg.LexicalMaxFeatures,
		encoders:    make(map[string]DenseEncoder),
		fits:        make(map[string]*lexicalFit),
	}
	s.RegisterDense(newHashEncoder(cfg.HashDimension))
	if cfg.OpenAIAPIKey != "" {
		s.RegisterDense(newOpenAIEncoder(cfg.OpenAIAPIKey))
	}
	return s
}

// RegisterDense adds (or replaces) a dense encoder under its model name.
func (s *Service) RegisterDense(enc DenseEncoder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.encoders[enc.ModelName()] = enc
}

// Models lists the registered model names, sorted.
func (s *Service) Models() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.encoders)+1)
	names = append(names, ModelLexical)
	for name := range s.encoders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Embed returns one vector per input text, in input order, all with the
// same dimension. An empty input is an empty output, not an error. An
// unregistered model name is a configuration error.
//
// For the lexical model each call is a fresh fit over the whole batch;
// the fit is retained and FitID reports its id.
func (s *Service) Embed(ctx context.Context, texts []string, modelName string) ([]Vector, error) {
	if len(texts) == 0 {
		return []Vector{}, nil
	}
	if modelName == ModelLexical {
		return s.embedLexical(texts)
	}

	s.mu.Lock()
	enc, ok := s.encoders[modelName]
	s.mu.Unlock()
	if !ok {
		return nil, errdefs.Configurationf("embedder", "unknown model %q, registered models: %s",
			modelName, strings.Join(s.Models(), ", "))
	}
	return s.embedDense(ctx, enc, texts)
}

// EmbedQuery embeds a single query text into the space identified by
// fitID for the lexical model. Dense models ignore fitID. An empty
// fitID falls back to the most recent lexical fit.
func (s *Service) EmbedQuery(ctx context.Context, text, modelName, fitID string) (Vector, error) {
	if modelName != ModelLexical {
		vecs, err := s.Embed(ctx, []string{text}, modelName)
		if err != nil {
			return Vector{}, err
		}
		return vecs[0], nil
	}

	s.mu.Lock()
	id := fitID
	if id == "" {
		id = s.current
	}
	fit := s.fits[id]
	s.mu.Unlock()
	if fit == nil {
		return Vector{}, errdefs.Configurationf("embedder",
			"no lexical fit %q retained; re-embed the collection with %s", fitID, ModelLexical)
	}
	return lexicalVector(fit, fit.transform(text)), nil
}

// FitID returns the id of the most recent lexical fit, or "" when no
// lexical embedding has run yet.
func (s *Service) FitID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// ReleaseFit drops a retained lexical fit. Called when the collection
// that owns the fit is deleted; releasing an unknown id is a no-op.
func (s *Service) ReleaseFit(id string) {
	if id == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.fits, id)
	if s.current == id {
		s.current = ""
	}
}

func (s *Service) embedLexical(texts []string) ([]Vector, error) {
	fit, rows, err := fitLexical(texts, s.maxFeatures)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.fits[fit.id] = fit
	s.current = fit.id
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Debug("fitted lexical vocabulary",
			slog.String("fit_id", fit.id),
			slog.Int("texts", len(texts)),
			slog.Int("vocab_size", len(fit.terms)))
	}

	vectors := make([]Vector, len(rows))
	for i, row := range rows {
		vectors[i] = lexicalVector(fit, row)
	}
	return vectors, nil
}

func (s *Service) embedDense(ctx context.Context, enc DenseEncoder, texts []string) ([]Vector, error) {
	rows, err := enc.Encode(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(rows) != len(texts) {
		return nil, errdefs.Provider(enc.ModelName(),
			fmt.Sprintf("encoder returned %d vectors for %d texts", len(rows), len(texts)), nil)
	}

	vectors := make([]Vector, len(rows))
	for i, row := range rows {
		vectors[i] = Vector{
			ModelFamily: FamilyDense,
			ModelName:   enc.ModelName(),
			Dimension:   len(row),
			Values:      row,
			Dense:       denseDiagnostics(row),
		}
	}
	return vectors, nil
}

func lexicalVector(fit *lexicalFit, row []float32) Vector {
	nonZero := 0
	for _, v := range row {
		if v != 0 {
			nonZero++
		}
	}
	sparsity := 0.0
	if len(row) > 0 {
		sparsity = 1 - float64(nonZero)/float64(len(row))
	}
	return Vector{
		ModelFamily: FamilyLexical,
		ModelName:   ModelLexical,
		Dimension:   len(row),
		Values:      row,
		Lexical: &LexicalDiagnostics{
			VocabSize:       len(fit.terms),
			NonZeroFeatures: nonZero,
			Sparsity:        sparsity,
		},
	}
}

func denseDiagnostics(row []float32) *DenseDiagnostics {
	d := &DenseDiagnostics{}
	if len(row) == 0 {
		return d
	}
	var sum, sumSq float64
	minV, maxV := float64(row[0]), float64(row[0])
	for _, v := range row {
		f := float64(v)
		sum += f
		sumSq += f * f
		minV = math.Min(minV, f)
		maxV = math.Max(maxV, f)
	}
	n := float64(len(row))
	mean := sum / n
	d.L2Norm = math.Sqrt(sumSq)
	d.Mean = mean
	d.Std = math.Sqrt(sumSq/n - mean*mean)
	d.Min = minV
	d.Max = maxV
	return d
}

// Statistics aggregates a batch of vectors the way the embed endpoint
// reports them. Sizes assume 4 bytes per value.
func Statistics(vectors []Vector) BatchStats {
	if len(vectors) == 0 {
		return BatchStats{}
	}

	first := vectors[0]
	stats := BatchStats{
		TotalEmbeddings: len(vectors),
		ModelFamily:     first.ModelFamily,
		ModelName:       first.ModelName,
		Dimension:       first.Dimension,
	}
	totalBytes := float64(len(vectors)) * float64(first.Dimension) * 4
	stats.TotalSizeMB = round2(totalBytes / (1024 * 1024))
	stats.AvgSizeKB = round2(totalBytes / float64(len(vectors)) / 1024)

	switch first.ModelFamily {
	case FamilyLexical:
		var nonZero, sparsity float64
		for _, v := range vectors {
			if v.Lexical == nil {
				continue
			}
			nonZero += float64(v.Lexical.NonZeroFeatures)
			sparsity += v.Lexical.Sparsity
		}
		stats.AvgNonZero = round2(nonZero / float64(len(vectors)))
		stats.AvgSparsity = round4(sparsity / float64(len(vectors)))
	case FamilyDense:
		var norm float64
		for _, v := range vectors {
			if v.Dense == nil {
				continue
			}
			norm += v.Dense.L2Norm
		}
		stats.AvgL2Norm = round4(norm / float64(len(vectors)))
	}
	return stats
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }
func round4(x float64) float64 { return math.Round(x*10000) / 10000 }
