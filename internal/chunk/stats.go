package chunk

// Size histogram bucket boundaries, in characters.
const (
	bucketSmallMax = 300
	bucketLargeMin = 700
)

// Stats aggregates a chunk set: counts, character sizes, a small/medium/
// large histogram, and the estimated token total.
type Stats struct {
	Count           int `json:"total_chunks"`
	TotalChars      int `json:"total_chars"`
	AvgChars        int `json:"avg_chunk_size"`
	MinChars        int `json:"min_chunk_size"`
	MaxChars        int `json:"max_chunk_size"`
	Small           int `json:"small"`
	Medium          int `json:"medium"`
	Large           int `json:"large"`
	EstimatedTokens int `json:"total_tokens"`
}

func computeStats(chunks []Chunk) Stats {
	if len(chunks) == 0 {
		return Stats{}
	}

	s := Stats{
		Count:    len(chunks),
		MinChars: chunks[0].CharCount,
	}
	for _, c := range chunks {
		s.TotalChars += c.CharCount
		s.EstimatedTokens += c.EstimatedTokens
		if c.CharCount < s.MinChars {
			s.MinChars = c.CharCount
		}
		if c.CharCount > s.MaxChars {
			s.MaxChars = c.CharCount
		}
		switch {
		case c.CharCount < bucketSmallMax:
			s.Small++
		case c.CharCount < bucketLargeMin:
			s.Medium++
		default:
			s.Large++
		}
	}
	s.AvgChars = s.TotalChars / s.Count
	return s
}
