package testutil

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/ragbench/ragbench/internal/errdefs"
	"github.com/ragbench/ragbench/internal/llm"
)

func TestMockProvider_PatternMatching(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		patterns []struct{ pattern, answer string }
		prompt   string
		want     string
	}{
		{
			name:   "fallback when no patterns",
			prompt: "hello",
			want:   "default answer",
		},
		{
			name: "exact match",
			patterns: []struct{ pattern, answer string }{
				{"hello", "hi there"},
			},
			prompt: "hello",
			want:   "hi there",
		},
		{
			name: "case insensitive match",
			patterns: []struct{ pattern, answer string }{
				{"hello", "hi there"},
			},
			prompt: "HELLO world",
			want:   "hi there",
		},
		{
			name: "first match wins",
			patterns: []struct{ pattern, answer string }{
				{"hello", "first"},
				{"hello", "second"},
			},
			prompt: "hello",
			want:   "first",
		},
		{
			name: "no match returns fallback",
			patterns: []struct{ pattern, answer string }{
				{"hello", "hi"},
			},
			prompt: "goodbye",
			want:   "default answer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := NewMockProvider("mock", "default answer")
			for _, p := range tt.patterns {
				m.AddResponse(p.pattern, p.answer)
			}

			result, err := m.Generate(context.Background(), llm.GenerateRequest{Prompt: tt.prompt})
			if err != nil {
				t.Fatalf("Generate() unexpected error: %v", err)
			}
			if result.Text != tt.want {
				t.Errorf("Generate(%q) = %q, want %q", tt.prompt, result.Text, tt.want)
			}
		})
	}
}

func TestMockProvider_CallRecording(t *testing.T) {
	t.Parallel()
	m := NewMockProvider("mock", "ok")
	m.AddResponse("special", "special answer")

	// Make two calls
	if _, err := m.Generate(context.Background(), llm.GenerateRequest{System: "sys", Prompt: "hello"}); err != nil {
		t.Fatalf("Generate() unexpected error: %v", err)
	}
	if _, err := m.Generate(context.Background(), llm.GenerateRequest{Prompt: "special input"}); err != nil {
		t.Fatalf("Generate() unexpected error: %v", err)
	}

	want := []MockCall{
		{System: "sys", Prompt: "hello", Answer: "ok"},
		{Prompt: "special input", Answer: "special answer"},
	}
	if diff := cmp.Diff(want, m.Calls()); diff != "" {
		t.Errorf("Calls() mismatch (-want +got):\n%s", diff)
	}

	// Test Reset
	m.Reset()
	if got := len(m.Calls()); got != 0 {
		t.Errorf("Calls() after Reset() len = %d, want 0", got)
	}
}

func TestMockProvider_Err(t *testing.T) {
	t.Parallel()
	m := NewMockProvider("mock", "ok")
	m.Err = errdefs.Provider("mock", "boom", nil)

	_, err := m.Generate(context.Background(), llm.GenerateRequest{Prompt: "hi"})
	if !errors.Is(err, m.Err) {
		t.Errorf("Generate() error = %v, want %v", err, m.Err)
	}
}

func TestMockProvider_DelayHonorsCancellation(t *testing.T) {
	t.Parallel()
	m := NewMockProvider("mock", "ok")
	m.Delay = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Generate(ctx, llm.GenerateRequest{Prompt: "hi"})
	if err == nil {
		t.Fatal("Generate() error = nil, want cancellation error")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Generate() error = %v, want context.Canceled", err)
	}
}

func TestMockEncoder_DeterministicVector(t *testing.T) {
	t.Parallel()
	e := NewMockEncoder(768)

	// Same content should produce same vector
	v1 := e.vectorFor("test content")
	v2 := e.vectorFor("test content")

	if diff := cmp.Diff(v1, v2); diff != "" {
		t.Errorf("vectorFor() same content produced different vectors:\n%s", diff)
	}

	// Different content should produce different vectors
	v3 := e.vectorFor("different content")
	if cmp.Equal(v1, v3) {
		t.Error("vectorFor() different content produced same vector")
	}

	// Vector should be normalized (unit length)
	var norm float64
	for _, val := range v1 {
		norm += float64(val) * float64(val)
	}
	norm = math.Sqrt(norm)
	if diff := math.Abs(norm - 1.0); diff > 0.01 {
		t.Errorf("vectorFor() norm = %f, want ~1.0", norm)
	}
}

func TestMockEncoder_ExplicitVector(t *testing.T) {
	t.Parallel()
	e := NewMockEncoder(3)

	custom := []float32{0.1, 0.2, 0.3}
	e.SetVector("special", custom)

	got := e.vectorFor("special")
	if diff := cmp.Diff(custom, got, cmpopts.EquateApprox(0, 0.001)); diff != "" {
		t.Errorf("vectorFor(\"special\") mismatch (-want +got):\n%s", diff)
	}

	// Non-mapped content should still use hash
	other := e.vectorFor("other")
	if cmp.Equal(custom, other) {
		t.Error("vectorFor(\"other\") should not match explicit vector")
	}
}

func TestMockEncoder_Encode(t *testing.T) {
	t.Parallel()
	e := NewMockEncoder(768)

	rows, err := e.Encode(context.Background(), []string{"hello world", "goodbye world"})
	if err != nil {
		t.Fatalf("Encode() unexpected error: %v", err)
	}

	if got, want := len(rows), 2; got != want {
		t.Fatalf("Encode() returned %d vectors, want %d", got, want)
	}

	// Each vector should have correct dimensions
	for i, row := range rows {
		if got, want := len(row), 768; got != want {
			t.Errorf("Encode() vector[%d] dim = %d, want %d", i, got, want)
		}
	}

	// Different texts should have different vectors
	if cmp.Equal(rows[0], rows[1]) {
		t.Error("Encode() different texts produced same vector")
	}

	if got := e.Calls(); got != 1 {
		t.Errorf("Calls() = %d, want 1", got)
	}
}
