package embed

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/ragbench/ragbench/internal/errdefs"
	"github.com/ragbench/ragbench/internal/textutil"
)

// lexicalGrams returns the unigrams and bigrams of text after
// lowercasing and dropping single-character tokens and stopwords.
// Bigrams pair the surviving tokens, so a stopword between two content
// words does not block their pairing.
func lexicalGrams(text string) []string {
	var kept []string
	for _, tok := range textutil.Tokenize(text) {
		if len(tok) < 2 || textutil.IsStopWord(tok) {
			continue
		}
		kept = append(kept, tok)
	}

	grams := make([]string, 0, 2*len(kept))
	grams = append(grams, kept...)
	for i := 0; i+1 < len(kept); i++ {
		grams = append(grams, kept[i]+" "+kept[i+1])
	}
	return grams
}

// lexicalFit is a fitted TF-IDF space: the selected vocabulary and its
// inverse document frequencies.
type lexicalFit struct {
	id    string
	terms []string
	vocab map[string]int
	idf   []float64
}

// fitLexical builds a vocabulary over texts and transforms them in one
// pass. Selection keeps the maxFeatures most frequent terms across the
// corpus, ties broken alphabetically; column indices are assigned in
// alphabetical order so the fit is deterministic for identical input.
func fitLexical(texts []string, maxFeatures int) (*lexicalFit, [][]float32, error) {
	docs := make([][]string, len(texts))
	corpusCount := make(map[string]int)
	docFreq := make(map[string]int)
	for i, t := range texts {
		grams := lexicalGrams(t)
		docs[i] = grams
		seen := make(map[string]bool, len(grams))
		for _, g := range grams {
			corpusCount[g]++
			if !seen[g] {
				seen[g] = true
				docFreq[g]++
			}
		}
	}
	if len(corpusCount) == 0 {
		return nil, nil, errdefs.Validationf("texts", "no terms survive tokenization; input is empty or stopwords only")
	}

	selected := make([]string, 0, len(corpusCount))
	for term := range corpusCount {
		selected = append(selected, term)
	}
	sort.Slice(selected, func(i, j int) bool {
		if corpusCount[selected[i]] != corpusCount[selected[j]] {
			return corpusCount[selected[i]] > corpusCount[selected[j]]
		}
		return selected[i] < selected[j]
	})
	if len(selected) > maxFeatures {
		selected = selected[:maxFeatures]
	}
	sort.Strings(selected)

	fit := &lexicalFit{
		id:    uuid.NewString(),
		terms: selected,
		vocab: make(map[string]int, len(selected)),
		idf:   make([]float64, len(selected)),
	}
	n := float64(len(texts))
	for i, term := range selected {
		fit.vocab[term] = i
		fit.idf[i] = math.Log((1+n)/(1+float64(docFreq[term]))) + 1
	}

	rows := make([][]float32, len(docs))
	for i, grams := range docs {
		rows[i] = fit.transformGrams(grams)
	}
	return fit, rows, nil
}

func (f *lexicalFit) transform(text string) []float32 {
	return f.transformGrams(lexicalGrams(text))
}

// transformGrams maps term counts through the fitted idf weights and
// L2-normalizes the row. Terms outside the vocabulary are ignored; a
// row with no known terms stays all zero.
func (f *lexicalFit) transformGrams(grams []string) []float32 {
	weights := make([]float64, len(f.terms))
	for _, g := range grams {
		if i, ok := f.vocab[g]; ok {
			weights[i]++
		}
	}

	var norm float64
	for i := range weights {
		weights[i] *= f.idf[i]
		norm += weights[i] * weights[i]
	}
	norm = math.Sqrt(norm)

	row := make([]float32, len(weights))
	if norm == 0 {
		return row
	}
	for i, w := range weights {
		row[i] = float32(w / norm)
	}
	return row
}
