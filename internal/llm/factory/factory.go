// internal/llm/factory/factory.go
package factory

import (
	"fmt"

	"github.com/newthinker/signalforge/internal/config"
	"github.com/newthinker/signalforge/internal/core"
	"github.com/newthinker/signalforge/internal/llm"
	"github.com/newthinker/signalforge/internal/llm/claude"
	"github.com/newthinker/signalforge/internal/llm/ollama"
	"github.com/newthinker/signalforge/internal/llm/openai"
)

// New creates an LLM provider based on configuration. An empty provider
// name yields a nil provider and no error.
func New(cfg config.LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case "claude":
		return claude.New(cfg.Claude.APIKey, cfg.Claude.Model, cfg.Claude.BaseURL)
	case "openai":
		return openai.New(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL)
	case "ollama":
		return ollama.New(cfg.Ollama.Endpoint, cfg.Ollama.Model, ollama.WithTimeout(cfg.Timeout))
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown LLM provider: %s", cfg.Provider))
	}
}
