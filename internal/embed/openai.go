package embed

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ragbench/ragbench/internal/errdefs"
)

const openAIDimension = 1536

// openAIEncoder embeds through the OpenAI embeddings API with
// text-embedding-3-small.
type openAIEncoder struct {
	client *openai.Client
}

func newOpenAIEncoder(apiKey string) *openAIEncoder {
	return &openAIEncoder{client: openai.NewClient(apiKey)}
}

func (e *openAIEncoder) ModelName() string { return ModelOpenAIDense }
func (e *openAIEncoder) Dimension() int    { return openAIDimension }

func (e *openAIEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: texts,
		Model: openai.SmallEmbedding3,
	})
	if err != nil {
		return nil, errdefs.Provider("openai", "embedding request failed", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, errdefs.Provider("openai",
			fmt.Sprintf("sent %d texts, got %d embeddings", len(texts), len(resp.Data)), nil)
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, errdefs.Provider("openai",
				fmt.Sprintf("embedding index %d out of range", d.Index), nil)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}
