package chunk

import (
	"strings"
	"testing"
)

func TestRecursiveKeepsParagraphs(t *testing.T) {
	text := "Alpha beta gamma.\n\nDelta epsilon zeta.\n\nEta theta iota kappa."
	set, err := Split(text, Options{Strategy: StrategyRecursive, Size: 25})
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	want := []string{
		"Alpha beta gamma.\n\n",
		"Delta epsilon zeta.\n\n",
		"Eta theta iota kappa.",
	}
	if len(set.Chunks) != len(want) {
		t.Fatalf("got %d chunks, want %d", len(set.Chunks), len(want))
	}
	for i, c := range set.Chunks {
		if c.Text != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, c.Text, want[i])
		}
	}
	assertTiling(t, text, set)
}

func TestRecursiveMergesSmallPieces(t *testing.T) {
	text := "Alpha beta gamma.\n\nDelta epsilon zeta.\n\nEta theta iota kappa."
	set, err := Split(text, Options{Strategy: StrategyRecursive, Size: 45})
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	// The first two paragraphs fit together under 45 bytes.
	want := []string{
		"Alpha beta gamma.\n\nDelta epsilon zeta.\n\n",
		"Eta theta iota kappa.",
	}
	if len(set.Chunks) != len(want) {
		t.Fatalf("got %d chunks, want %d", len(set.Chunks), len(want))
	}
	for i, c := range set.Chunks {
		if c.Text != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, c.Text, want[i])
		}
	}
}

func TestRecursiveDescendsToSentences(t *testing.T) {
	text := "One two three. Four five six. Seven eight nine."
	set, err := Split(text, Options{Strategy: StrategyRecursive, Size: 20})
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	want := []string{"One two three. ", "Four five six. ", "Seven eight nine."}
	if len(set.Chunks) != len(want) {
		t.Fatalf("got %d chunks, want %d", len(set.Chunks), len(want))
	}
	for i, c := range set.Chunks {
		if c.Text != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, c.Text, want[i])
		}
		if c.CharCount > 20 {
			t.Errorf("chunk %d has %d chars, want <= 20", i, c.CharCount)
		}
	}
}

func TestRecursiveOverlapExtendsIntoSuccessor(t *testing.T) {
	text := "One two three. Four five six. Seven eight nine."
	set, err := Split(text, Options{Strategy: StrategyRecursive, Size: 20, Overlap: 5})
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(set.Chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(set.Chunks))
	}

	// Every chunk except the last reaches 5 bytes into the next one.
	for i := 0; i < len(set.Chunks)-1; i++ {
		c, next := set.Chunks[i], set.Chunks[i+1]
		if got := c.EndOffset - next.StartOffset; got != 5 {
			t.Errorf("chunk %d extends %d bytes into its successor, want 5", i, got)
		}
	}
	if got := set.Chunks[0].Text; got != "One two three. Four " {
		t.Errorf("chunk 0 = %q, want %q", got, "One two three. Four ")
	}
	assertTiling(t, text, set)
}

func TestRecursiveOversizedWordFixedSliced(t *testing.T) {
	long := strings.Repeat("m", 50)
	text := "start " + long + " end"
	set, err := Split(text, Options{Strategy: StrategyRecursive, Size: 20})
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	for i, c := range set.Chunks {
		if c.CharCount > 20 {
			t.Errorf("chunk %d has %d chars, want <= 20", i, c.CharCount)
		}
	}
	assertTiling(t, text, set)
}

func TestRecursiveNoSeparators(t *testing.T) {
	text := strings.Repeat("k", 95)
	set, err := Split(text, Options{Strategy: StrategyRecursive, Size: 30})
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	wantLens := []int{30, 30, 30, 5}
	if len(set.Chunks) != len(wantLens) {
		t.Fatalf("got %d chunks, want %d", len(set.Chunks), len(wantLens))
	}
	for i, c := range set.Chunks {
		if c.CharCount != wantLens[i] {
			t.Errorf("chunk %d: CharCount = %d, want %d", i, c.CharCount, wantLens[i])
		}
	}
}

func TestRecursiveTrailingSeparatorTerminates(t *testing.T) {
	// The only separator appears once, at the very end. Splitting on it
	// makes no progress, so the splitter must move on rather than loop.
	text := "aaaaaa\n"
	set, err := Split(text, Options{Strategy: StrategyRecursive, Size: 5})
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	assertTiling(t, text, set)
	for i, c := range set.Chunks {
		if c.CharCount > 5 {
			t.Errorf("chunk %d has %d chars, want <= 5", i, c.CharCount)
		}
	}
}

func TestRecursiveSizeBoundWithoutOverlap(t *testing.T) {
	for name, text := range sampleTexts {
		set, err := Split(text, Options{Strategy: StrategyRecursive, Size: 40})
		if err != nil {
			t.Fatalf("Split(%s) error = %v", name, err)
		}
		for i, c := range set.Chunks {
			if c.CharCount > 40 {
				t.Errorf("%s: chunk %d has %d chars, want <= 40", name, i, c.CharCount)
			}
		}
	}
}
