// internal/llm/claude/claude_test.go
package claude

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/newthinker/signalforge/internal/core"
	"github.com/newthinker/signalforge/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_ImplementsInterface(t *testing.T) {
	var _ llm.Provider = (*Provider)(nil)
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New("", "model")
	if err == nil {
		t.Error("expected error for empty API key")
	}
}

func TestNew_DefaultModel(t *testing.T) {
	p, err := New("test-key", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, p.model)
}

func TestChat(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-test",
			"content": [{"type": "text", "text": "Trend is up."}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 12, "output_tokens": 4}
		}`))
	}))
	defer srv.Close()

	p, err := New("test-key", "claude-test", srv.URL)
	require.NoError(t, err)

	resp, err := p.Chat(context.Background(), llm.ChatRequest{
		SystemPrompt: "be brief",
		Messages:     []llm.Message{{Role: "user", Content: "AAPL?"}},
		Temperature:  0.2,
	})
	require.NoError(t, err)

	assert.Equal(t, "Trend is up.", resp.Content)
	assert.Equal(t, 12, resp.Usage.InputTokens)
	assert.Equal(t, "end_turn", resp.FinishReason)
	assert.Equal(t, "claude-test", got["model"])
	assert.EqualValues(t, llm.DefaultMaxTokens, got["max_tokens"])
}

func TestChat_ErrorIsTyped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`))
	}))
	defer srv.Close()

	p, err := New("test-key", "", srv.URL)
	require.NoError(t, err)

	_, err = p.Chat(context.Background(), llm.ChatRequest{Messages: []llm.Message{{Role: "user", Content: "hi"}}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrLLMFailed))
}
