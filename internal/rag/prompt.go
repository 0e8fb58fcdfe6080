package rag

import (
	"fmt"
	"strings"

	"github.com/ragbench/ragbench/internal/vectorstore"
)

// defaultSystemPrompt grounds the model in the retrieved context.
const defaultSystemPrompt = "You are a helpful assistant that answers questions based on the provided context. " +
	"Use the context to answer the question accurately. " +
	"If the answer is not in the context, say so clearly."

// noContextFound replaces the context block when retrieval produced
// nothing usable; the model is told so instead of being handed silence.
const noContextFound = "No relevant context found."

// formatContext renders ranked chunks into a labeled context block.
// budgetTokens caps the block at roughly budgetTokens*4 characters;
// chunks that do not fit are dropped whole, lowest-ranked first. A
// non-positive budget means no cap.
func formatContext(results []vectorstore.Result, budgetTokens int) string {
	if len(results) == 0 {
		return noContextFound
	}

	budget := budgetTokens * 4
	var b strings.Builder
	b.WriteString("Relevant context:\n\n")

	kept := 0
	for i, r := range results {
		seg := formatChunk(i+1, r)
		if budget > 0 && b.Len()+len(seg) > budget {
			break
		}
		b.WriteString(seg)
		kept++
	}
	if kept == 0 {
		return noContextFound
	}
	return b.String()
}

func formatChunk(rank int, r vectorstore.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%d] ", rank)
	if name := r.Metadata["filename"]; name != "" {
		fmt.Fprintf(&b, "From %s: ", name)
	}
	b.WriteString(r.Text)
	b.WriteString("\n\n")
	return b.String()
}

// buildPrompt assembles the user prompt handed to a provider.
func buildPrompt(contextBlock, question string) string {
	return fmt.Sprintf("%s\n\nQuestion: %s\n\nAnswer:", contextBlock, question)
}
