// internal/llm/openai/openai.go
package openai

import (
	"context"
	"fmt"

	"github.com/newthinker/signalforge/internal/llm"
	"github.com/sashabaranov/go-openai"
)

// DefaultModel is used when no model is configured
const DefaultModel = "gpt-4o"

// Provider implements the LLM interface for OpenAI.
type Provider struct {
	client *openai.Client
	model  string
}

// New creates a new OpenAI provider. An optional base URL targets any
// OpenAI-compatible endpoint.
func New(apiKey, model string, baseURL ...string) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key required")
	}
	if model == "" {
		model = DefaultModel
	}
	cfg := openai.DefaultConfig(apiKey)
	if len(baseURL) > 0 && baseURL[0] != "" {
		cfg.BaseURL = baseURL[0]
	}
	return &Provider{client: openai.NewClientWithConfig(cfg), model: model}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "openai"
}

// Chat sends a chat request to the OpenAI API.
func (p *Provider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)

	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}

	for _, m := range req.Messages {
		role := openai.ChatMessageRoleUser
		if m.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		})
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = llm.DefaultMaxTokens
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: float32(req.Temperature),
	}

	if req.JSONMode {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, llm.Failure(ctx, p.Name(), err)
	}
	if len(resp.Choices) == 0 {
		return nil, llm.Failure(ctx, p.Name(), fmt.Errorf("empty choices"))
	}

	return &llm.ChatResponse{
		Content: resp.Choices[0].Message.Content,
		Usage: llm.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
		FinishReason: string(resp.Choices[0].FinishReason),
	}, nil
}
