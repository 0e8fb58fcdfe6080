package chunk

import "strings"

// recursiveSeparators in priority order: paragraph breaks, line breaks,
// sentence endings, clause punctuation, spaces.
var recursiveSeparators = []string{"\n\n", "\n", ". ", "! ", "? ", "; ", ", ", " "}

// splitRecursive splits on the highest-priority separator present,
// keeping each separator attached to the fragment before it so the
// fragments tile the text. Fragments still larger than Size descend to
// the remaining lower-priority separators; a fragment with no separator
// left falls back to fixed slicing. Adjacent undersized fragments merge
// greedily up to Size.
//
// With Overlap > 0, each chunk except the last is extended by up to
// Overlap bytes into its successor, the way retrieval-oriented splitters
// usually blur chunk borders. Extension moves EndOffset forward, so
// CharCount still equals the span width.
func splitRecursive(text string, opts Options) []span {
	parts := recursiveSplit(text, opts.Size, recursiveSeparators)

	spans := make([]span, 0, len(parts))
	pos := 0
	for _, p := range parts {
		spans = append(spans, span{pos, pos + len(p)})
		pos += len(p)
	}

	if opts.Overlap > 0 && len(spans) > 1 {
		for i := 0; i < len(spans)-1; i++ {
			next := spans[i+1]
			ext := min(opts.Overlap, next.end-next.start)
			spans[i].end = next.start + ext
		}
	}
	return spans
}

// recursiveSplit returns substrings that concatenate exactly to text.
func recursiveSplit(text string, size int, seps []string) []string {
	if len(text) <= size {
		return []string{text}
	}

	for i, sep := range seps {
		if !strings.Contains(text, sep) {
			continue
		}
		units := strings.SplitAfter(text, sep)
		// Trailing separator produces an empty last unit; a single real
		// unit means the separator made no progress, so try the next one.
		if units[len(units)-1] == "" {
			units = units[:len(units)-1]
		}
		if len(units) < 2 {
			continue
		}
		return mergeUnits(units, size, seps[i+1:])
	}

	// No separator present at all.
	return sliceFixed(text, size)
}

// mergeUnits greedily packs consecutive units into chunks of at most
// size bytes. An oversized unit is never split at an arbitrary point
// here; it descends into recursiveSplit with the remaining separators.
func mergeUnits(units []string, size int, rest []string) []string {
	var out []string
	var cur strings.Builder

	for _, u := range units {
		if u == "" {
			continue
		}
		if cur.Len()+len(u) <= size {
			cur.WriteString(u)
			continue
		}
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
		if len(u) > size {
			out = append(out, recursiveSplit(u, size, rest)...)
		} else {
			cur.WriteString(u)
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

func sliceFixed(text string, size int) []string {
	var out []string
	for i := 0; i < len(text); i += size {
		out = append(out, text[i:min(i+size, len(text))])
	}
	return out
}
