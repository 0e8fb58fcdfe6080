package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ragbench/ragbench/internal/chunk"
	"github.com/ragbench/ragbench/internal/document"
)

// chunkPreviewCount is how many chunks the human-readable output shows.
const chunkPreviewCount = 3

func newChunkCmd() *cobra.Command {
	var (
		strategy  string
		size      int
		overlap   int
		stride    int
		threshold float64
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "chunk <file>",
		Short: "Run a chunking strategy over a file",
		Long: `Run a chunking strategy over a local file and print the resulting
statistics with a preview of the first chunks.

Supported file types are .txt, .md and .html; HTML is reduced to its
article text first, the same way an uploaded document would be.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := chunk.Options{
				Size:              size,
				Overlap:           overlap,
				Stride:            stride,
				SemanticThreshold: threshold,
			}
			return runChunk(cmd.OutOrStdout(), args[0], strategy, opts, asJSON)
		},
	}
	cmd.Flags().StringVarP(&strategy, "strategy", "s", string(chunk.StrategyFixed),
		fmt.Sprintf("chunking strategy (%s)", strings.Join(chunk.Strategies(), ", ")))
	cmd.Flags().IntVar(&size, "size", 500, "target chunk size in characters")
	cmd.Flags().IntVar(&overlap, "overlap", 50, "overlap between consecutive chunks in characters")
	cmd.Flags().IntVar(&stride, "stride", 0, "sliding window step in characters (0 = size-overlap)")
	cmd.Flags().Float64Var(&threshold, "threshold", 0,
		fmt.Sprintf("semantic similarity threshold (0 = %g)", chunk.DefaultSemanticThreshold))
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full chunk set as JSON")
	return cmd
}

func runChunk(w io.Writer, path, strategy string, opts chunk.Options, asJSON bool) error {
	st, err := chunk.ParseStrategy(strategy)
	if err != nil {
		return err
	}
	opts.Strategy = st

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}
	text, err := document.Extract(filepath.Base(path), content)
	if err != nil {
		return fmt.Errorf("extracting text: %w", err)
	}

	set, err := chunk.Split(text, opts)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(set)
	}

	printChunkSet(w, filepath.Base(path), len(text), set)
	return nil
}

func printChunkSet(w io.Writer, name string, textLen int, set *chunk.Set) {
	fmt.Fprintf(w, "Document: %s (%d chars)\n", name, textLen)
	fmt.Fprintf(w, "Strategy: %s (size %d, overlap %d)\n\n", set.Strategy, set.Size, set.Overlap)

	s := set.Stats
	fmt.Fprintf(w, "Chunks:           %d\n", s.Count)
	if s.Count == 0 {
		return
	}
	fmt.Fprintf(w, "Average size:     %d chars\n", s.AvgChars)
	fmt.Fprintf(w, "Size range:       %d to %d chars\n", s.MinChars, s.MaxChars)
	fmt.Fprintf(w, "Distribution:     %d small / %d medium / %d large\n", s.Small, s.Medium, s.Large)
	fmt.Fprintf(w, "Estimated tokens: %d\n\n", s.EstimatedTokens)

	fmt.Fprintln(w, "Preview:")
	for i, c := range set.Chunks {
		if i == chunkPreviewCount {
			fmt.Fprintf(w, "  ... %d more\n", len(set.Chunks)-chunkPreviewCount)
			break
		}
		fmt.Fprintf(w, "  [%d] %s\n", c.Index, previewText(c.Text, 80))
	}
}

// previewText flattens newlines and truncates on a rune boundary.
func previewText(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
