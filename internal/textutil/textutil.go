// Package textutil provides the tokenization primitives shared by the
// semantic chunking strategy and the lexical embedder: lowercase word
// extraction, an English stopword list, and keyword-set similarity.
package textutil

import (
	"strings"
	"unicode"
)

// stopWords is a compact English stopword list. Tokens in this set carry
// no topical signal and are excluded from keyword sets and the lexical
// vocabulary.
var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		a about above after again against all am an and any are as at be
		because been before being below between both but by can could did
		do does doing down during each few for from further had has have
		having he her here hers herself him himself his how i if in into
		is it its itself just me more most my myself no nor not now of off
		on once only or other our ours ourselves out over own s same she
		should so some such t than that the their theirs them themselves
		then there these they this those through to too under until up
		very was we were what when where which while who whom why will
		with you your yours yourself yourselves`) {
		stopWords[w] = struct{}{}
	}
}

// IsStopWord reports whether the lowercase token is a stopword.
func IsStopWord(token string) bool {
	_, ok := stopWords[token]
	return ok
}

// Tokenize splits text into lowercase word tokens. A token is a maximal
// run of letters or digits; everything else separates tokens.
func Tokenize(text string) []string {
	var tokens []string
	var b strings.Builder
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}
	return tokens
}

// Keywords returns the set of non-stopword tokens in text.
func Keywords(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range Tokenize(text) {
		if IsStopWord(tok) {
			continue
		}
		set[tok] = struct{}{}
	}
	return set
}

// Jaccard returns the Jaccard similarity |a∩b| / |a∪b| of two keyword
// sets. Two empty sets are treated as identical (similarity 1), since
// neither offers evidence of a topic shift.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 1.0
	}
	return float64(inter) / float64(union)
}
