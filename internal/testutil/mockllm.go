package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/ragbench/ragbench/internal/errdefs"
	"github.com/ragbench/ragbench/internal/llm"
)

// MockProvider provides deterministic generation results for testing.
// It matches the prompt against registered patterns and returns the
// corresponding answer; the fallback covers everything else.
//
// Thread-safe for concurrent use. Err and Delay are read without
// locking and must be set before the provider is shared.
type MockProvider struct {
	name  string
	model string

	// Err, when set, makes every Generate call fail with it.
	Err error

	// Delay simulates provider latency. Generate honors context
	// cancellation while waiting.
	Delay time.Duration

	mu        sync.Mutex
	responses []mockRule
	fallback  string
	calls     []MockCall
}

var _ llm.Provider = (*MockProvider)(nil)

type mockRule struct {
	pattern string // substring match in the prompt, lowercased
	answer  string
}

// MockCall records a single call to the mock provider.
type MockCall struct {
	System string
	Prompt string
	Answer string
}

// NewMockProvider creates a mock provider with the given fallback
// answer. The fallback is returned when no pattern matches.
func NewMockProvider(name, fallback string) *MockProvider {
	return &MockProvider{name: name, model: name + "-test-model", fallback: fallback}
}

// AddResponse registers a pattern-answer pair.
// When a prompt contains the pattern (case-insensitive), the answer is
// returned. Patterns are checked in registration order; first match wins.
func (m *MockProvider) AddResponse(pattern, answer string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, mockRule{
		pattern: strings.ToLower(pattern),
		answer:  answer,
	})
}

// Calls returns a copy of all recorded calls.
func (m *MockProvider) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]MockCall, len(m.calls))
	copy(cp, m.calls)
	return cp
}

// Reset clears all recorded calls (keeps registered responses).
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

func (m *MockProvider) Name() string  { return m.name }
func (m *MockProvider) Model() string { return m.model }

// Generate implements llm.Provider.
func (m *MockProvider) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResult, error) {
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, errdefs.Provider(m.name, "request failed", ctx.Err())
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, errdefs.Provider(m.name, "request failed", err)
	}
	if m.Err != nil {
		return nil, m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	answer := m.fallback
	lower := strings.ToLower(req.Prompt)
	for _, rule := range m.responses {
		if strings.Contains(lower, rule.pattern) {
			answer = rule.answer
			break
		}
	}
	m.calls = append(m.calls, MockCall{System: req.System, Prompt: req.Prompt, Answer: answer})

	return &llm.GenerateResult{
		Text:  answer,
		Model: m.model,
		Usage: llm.Usage{
			PromptTokens:     len(req.Prompt) / 4,
			CompletionTokens: len(answer) / 4,
			TotalTokens:      len(req.Prompt)/4 + len(answer)/4,
		},
	}, nil
}

// MockEncoder provides deterministic embedding vectors for testing.
//
// By default, it generates a deterministic vector from content using
// SHA-256. Explicit mappings can be added for precise cosine similarity
// control.
//
// Thread-safe for concurrent use.
type MockEncoder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	dim     int
	calls   int
}

// NewMockEncoder creates a mock encoder with the given vector dimensions.
func NewMockEncoder(dim int) *MockEncoder {
	return &MockEncoder{
		vectors: make(map[string][]float32),
		dim:     dim,
	}
}

// SetVector registers an explicit vector for a given content string.
// Use this to control exact cosine similarity between test inputs.
func (e *MockEncoder) SetVector(content string, vec []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vectors[content] = vec
}

// Calls returns how many Encode calls the encoder has served.
func (e *MockEncoder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func (e *MockEncoder) ModelName() string { return "mock-dense" }
func (e *MockEncoder) Dimension() int    { return e.dim }

// Encode implements embed.DenseEncoder.
func (e *MockEncoder) Encode(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	rows := make([][]float32, len(texts))
	for i, text := range texts {
		rows[i] = e.vectorFor(text)
	}
	return rows, nil
}

// vectorFor returns the vector for a given content string.
// Uses explicit mapping if available, otherwise generates deterministically from hash.
func (e *MockEncoder) vectorFor(content string) []float32 {
	e.mu.Lock()
	if v, ok := e.vectors[content]; ok {
		e.mu.Unlock()
		return v
	}
	e.mu.Unlock()

	return deterministicVector(content, e.dim)
}

// deterministicVector generates a normalized vector from content using SHA-256.
// The same content always produces the same vector.
func deterministicVector(content string, dim int) []float32 {
	hash := sha256.Sum256([]byte(content))
	vec := make([]float32, dim)

	// Use hash bytes to seed vector values
	for i := range vec {
		// Cycle through hash bytes
		idx := (i * 4) % len(hash)
		bits := binary.LittleEndian.Uint32([]byte{
			hash[idx%32],
			hash[(idx+1)%32],
			hash[(idx+2)%32],
			hash[(idx+3)%32],
		})
		// Map to [-1, 1] range
		vec[i] = (float32(bits)/float32(math.MaxUint32))*2 - 1
	}

	// Normalize to unit vector
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	norm = float32(math.Sqrt(float64(norm)))
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}

	return vec
}
