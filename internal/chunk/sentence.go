package chunk

// splitSentence accumulates whole sentences into a chunk until adding
// the next sentence would exceed Size. A single sentence longer than
// Size is emitted whole; sentence is the only strategy allowed to exceed
// Size, because it never splits mid-sentence.
//
// Overlap is accepted but unused here: extending a chunk by a byte count
// would cut into the middle of the following sentence, which is exactly
// what this strategy exists to avoid.
func splitSentence(text string, opts Options) []span {
	sents := sentenceSpans(text)

	var spans []span
	cur := span{-1, -1}
	for _, s := range sents {
		switch {
		case cur.start < 0:
			cur = s
		case s.end-cur.start <= opts.Size:
			cur.end = s.end
		default:
			spans = append(spans, cur)
			cur = s
		}
	}
	if cur.start >= 0 {
		spans = append(spans, cur)
	}
	return spans
}

// sentenceSpans splits text into sentence ranges that tile the input.
// A boundary is a run of '.', '!' or '?', optionally followed by closing
// quotes or brackets, followed by whitespace or end of text. The
// whitespace after a boundary belongs to the preceding sentence, so
// consecutive spans share no gap. Text with no boundary is a single
// sentence.
func sentenceSpans(text string) []span {
	n := len(text)
	if n == 0 {
		return nil
	}

	var spans []span
	start := 0
	i := 0
	for i < n {
		if !isTerminator(text[i]) {
			i++
			continue
		}
		j := i
		for j < n && isTerminator(text[j]) {
			j++
		}
		for j < n && isClosing(text[j]) {
			j++
		}
		if j < n && !isSpaceByte(text[j]) {
			// Punctuation inside a token ("3.14", "e.g.x"), not a boundary.
			i = j
			continue
		}
		for j < n && isSpaceByte(text[j]) {
			j++
		}
		spans = append(spans, span{start, j})
		start = j
		i = j
	}
	if start < n {
		spans = append(spans, span{start, n})
	}
	return spans
}

func isTerminator(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}

func isClosing(b byte) bool {
	return b == '"' || b == '\'' || b == ')' || b == ']'
}

func isSpaceByte(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}
