package chunk

import "github.com/ragbench/ragbench/internal/textutil"

// splitSemantic groups consecutive sentences while they stay on topic.
// The signal is keyword overlap: the Jaccard similarity of the
// stopword-filtered token sets of each adjacent sentence pair. A new
// chunk starts when similarity falls below the threshold and the current
// chunk already has content, or when adding the sentence would exceed
// Size. Unlike the sentence strategy, semantic respects Size strictly:
// a single sentence larger than Size is cut into fixed slices.
func splitSemantic(text string, opts Options) []span {
	threshold := opts.SemanticThreshold
	if threshold == 0 {
		threshold = DefaultSemanticThreshold
	}

	sents := sentenceSpans(text)

	var spans []span
	cur := span{-1, -1}
	var prevKeywords map[string]struct{}

	flush := func() {
		if cur.start < 0 {
			return
		}
		spans = appendSized(spans, cur, opts.Size)
		cur = span{-1, -1}
	}

	for _, s := range sents {
		kw := textutil.Keywords(text[s.start:s.end])
		if cur.start < 0 {
			cur = s
			prevKeywords = kw
			continue
		}

		overflow := s.end-cur.start > opts.Size
		drifted := textutil.Jaccard(prevKeywords, kw) < threshold
		if overflow || drifted {
			flush()
			cur = s
		} else {
			cur.end = s.end
		}
		prevKeywords = kw
	}
	flush()
	return spans
}

// appendSized appends sp, slicing it into Size-byte windows when it
// exceeds Size.
func appendSized(spans []span, sp span, size int) []span {
	if sp.end-sp.start <= size {
		return append(spans, sp)
	}
	for start := sp.start; start < sp.end; start += size {
		spans = append(spans, span{start, min(start+size, sp.end)})
	}
	return spans
}
