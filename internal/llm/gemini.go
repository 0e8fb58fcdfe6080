package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/ragbench/ragbench/internal/errdefs"
)

// Gemini generates through the google genai SDK against the Gemini API
// backend.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates the provider. An empty model falls back to
// gemini-2.0-flash.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

func (p *Gemini) Name() string  { return "gemini" }
func (p *Gemini) Model() string { return p.model }

func (p *Gemini) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(req.Temperature),
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return nil, errdefs.Provider("gemini", "generation failed", err)
	}

	result := &GenerateResult{Text: resp.Text(), Model: p.model}
	if resp.ModelVersion != "" {
		result.Model = resp.ModelVersion
	}
	if resp.UsageMetadata != nil {
		result.Usage = Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return result, nil
}
