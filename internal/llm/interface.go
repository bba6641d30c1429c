package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/newthinker/signalforge/internal/core"
)

// Provider defines the interface for LLM providers
type Provider interface {
	Name() string
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ChatRequest holds the request parameters
type ChatRequest struct {
	SystemPrompt string
	Messages     []Message
	MaxTokens    int
	Temperature  float64
	JSONMode     bool
}

// Message represents a chat message
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// ChatResponse holds the response from the LLM
type ChatResponse struct {
	Content      string
	Usage        Usage
	FinishReason string
}

// Usage tracks token consumption
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// DefaultMaxTokens is used when a request leaves MaxTokens unset
const DefaultMaxTokens = 1024

// Failure wraps a provider error as ErrLLMTimeout when the context expired
// and ErrLLMFailed otherwise.
func Failure(ctx context.Context, provider string, err error) error {
	cause := fmt.Errorf("%s: %w", provider, err)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return core.WrapError(core.ErrLLMTimeout, cause)
	}
	return core.WrapError(core.ErrLLMFailed, cause)
}
