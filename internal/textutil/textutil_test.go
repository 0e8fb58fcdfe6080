package textutil

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"simple", "Hello, World!", []string{"hello", "world"}},
		{"digits kept", "port 8080 open", []string{"port", "8080", "open"}},
		{"hyphen splits", "state-of-the-art", []string{"state", "of", "the", "art"}},
		{"empty", "", nil},
		{"punctuation only", "... !!! ???", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestKeywordsDropsStopWords(t *testing.T) {
	kw := Keywords("The quick brown fox jumps over the lazy dog")

	for _, stop := range []string{"the", "over"} {
		if _, ok := kw[stop]; ok {
			t.Errorf("Keywords() kept stopword %q", stop)
		}
	}
	for _, keep := range []string{"quick", "brown", "fox", "jumps", "lazy", "dog"} {
		if _, ok := kw[keep]; !ok {
			t.Errorf("Keywords() missing %q", keep)
		}
	}
}

func TestJaccard(t *testing.T) {
	set := func(words ...string) map[string]struct{} {
		m := make(map[string]struct{})
		for _, w := range words {
			m[w] = struct{}{}
		}
		return m
	}

	tests := []struct {
		name string
		a, b map[string]struct{}
		want float64
	}{
		{"identical", set("x", "y"), set("x", "y"), 1.0},
		{"disjoint", set("x"), set("y"), 0.0},
		{"half", set("x", "y"), set("y", "z"), 1.0 / 3.0},
		{"both empty", set(), set(), 1.0},
		{"one empty", set("x"), set(), 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Jaccard(tt.a, tt.b); got != tt.want {
				t.Errorf("Jaccard() = %v, want %v", got, tt.want)
			}
		})
	}
}
