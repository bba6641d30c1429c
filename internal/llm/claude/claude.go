// internal/llm/claude/claude.go
package claude

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/newthinker/signalforge/internal/llm"
)

// DefaultModel is used when no model is configured
const DefaultModel = "claude-sonnet-4-20250514"

// Provider implements the LLM interface for Claude/Anthropic.
type Provider struct {
	client anthropic.Client
	model  string
}

// New creates a new Claude provider. An optional base URL points the client
// at a proxy or test server.
func New(apiKey, model string, baseURL ...string) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key required")
	}
	if model == "" {
		model = DefaultModel
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if len(baseURL) > 0 && baseURL[0] != "" {
		opts = append(opts, option.WithBaseURL(baseURL[0]))
	}
	client := anthropic.NewClient(opts...)
	return &Provider{client: client, model: model}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "claude"
}

// Chat sends a chat request to the Claude API.
func (p *Provider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	messages := make([]anthropic.MessageParam, len(req.Messages))
	for i, m := range req.Messages {
		if m.Role == "user" {
			messages[i] = anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content))
		} else {
			messages[i] = anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content))
		}
	}

	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = llm.DefaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   maxTokens,
		Messages:    messages,
		Temperature: anthropic.Float(req.Temperature),
	}

	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: req.SystemPrompt},
		}
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, llm.Failure(ctx, p.Name(), err)
	}

	content := ""
	for _, block := range resp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	return &llm.ChatResponse{
		Content: content,
		Usage: llm.Usage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
		},
		FinishReason: string(resp.StopReason),
	}, nil
}
