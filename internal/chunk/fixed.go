package chunk

// splitFixed slides a Size-byte window advancing by Size-Overlap. The
// final window may be shorter than Size and is still emitted; iteration
// stops once a window reaches the end of the text, so no fully-redundant
// suffix windows appear. For text of length L the chunk count is
// ceil((L-Overlap)/(Size-Overlap)).
func splitFixed(text string, opts Options) []span {
	return windows(text, opts.Size, opts.Size-opts.Overlap)
}

// splitSliding is splitFixed with an explicit stride. Every window is
// exactly Size bytes except the final one.
func splitSliding(text string, opts Options) []span {
	stride := opts.Stride
	if stride == 0 {
		stride = opts.Size - opts.Overlap
	}
	return windows(text, opts.Size, stride)
}

func windows(text string, size, stride int) []span {
	if len(text) == 0 {
		return nil
	}
	var spans []span
	for start := 0; ; start += stride {
		end := min(start+size, len(text))
		spans = append(spans, span{start, end})
		if end >= len(text) {
			break
		}
	}
	return spans
}
