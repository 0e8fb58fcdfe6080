package llm

import (
	"context"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ragbench/ragbench/internal/errdefs"
)

// OpenAI generates through the chat completions API.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates the provider. An empty model falls back to
// gpt-3.5-turbo.
func NewOpenAI(apiKey, model string) *OpenAI {
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}
	return &OpenAI{client: openai.NewClient(apiKey), model: model}
}

func (p *OpenAI) Name() string  { return "openai" }
func (p *OpenAI) Model() string { return p.model }

func (p *OpenAI) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, errdefs.Provider("openai", "chat completion failed", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errdefs.Provider("openai", "no choices returned", nil)
	}

	return &GenerateResult{
		Text:  resp.Choices[0].Message.Content,
		Model: resp.Model,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}
