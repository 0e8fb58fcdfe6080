package embed

import (
	"context"
	"math"
	"testing"
)

func TestHashEncoderSingleToken(t *testing.T) {
	enc := newHashEncoder(64)
	rows, err := enc.Encode(context.Background(), []string{"quantum"})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if len(rows) != 1 || len(rows[0]) != 64 {
		t.Fatalf("Encode() shape = %dx%d, want 1x64", len(rows), len(rows[0]))
	}

	// One token contributes exactly one +1 or -1 to one bucket.
	nonZero := 0
	for _, v := range rows[0] {
		if v != 0 {
			nonZero++
			if v != 1 && v != -1 {
				t.Errorf("bucket value = %v, want +1 or -1", v)
			}
		}
	}
	if nonZero != 1 {
		t.Errorf("non-zero buckets = %d, want 1", nonZero)
	}
}

func TestHashEncoderDeterministic(t *testing.T) {
	enc := newHashEncoder(64)
	a, err := enc.Encode(context.Background(), []string{"vector stores compared side by side"})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	b, err := enc.Encode(context.Background(), []string{"vector stores compared side by side"})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	for i := range a[0] {
		if a[0][i] != b[0][i] {
			t.Fatalf("encodings differ at bucket %d", i)
		}
	}
}

func TestHashEncoderEmptyText(t *testing.T) {
	enc := newHashEncoder(16)
	rows, err := enc.Encode(context.Background(), []string{""})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	for i, v := range rows[0] {
		if v != 0 {
			t.Errorf("bucket %d = %v for empty text, want 0", i, v)
		}
	}
}

func TestDenseDiagnosticsValues(t *testing.T) {
	d := denseDiagnostics([]float32{3, 4})
	if d.L2Norm != 5 {
		t.Errorf("L2Norm = %v, want 5", d.L2Norm)
	}
	if d.Mean != 3.5 {
		t.Errorf("Mean = %v, want 3.5", d.Mean)
	}
	if math.Abs(d.Std-0.5) > 1e-9 {
		t.Errorf("Std = %v, want 0.5", d.Std)
	}
	if d.Min != 3 || d.Max != 4 {
		t.Errorf("Min/Max = %v/%v, want 3/4", d.Min, d.Max)
	}
}
