// internal/explain/explain_test.go
package explain

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/signalforge/internal/core"
	"github.com/newthinker/signalforge/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLLMProvider struct {
	response string
	err      error
	block    bool
	last     llm.ChatRequest
}

func (m *mockLLMProvider) Name() string { return "mock" }

func (m *mockLLMProvider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	m.last = req
	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.err != nil {
		return nil, m.err
	}
	return &llm.ChatResponse{Content: m.response}, nil
}

func testSignal() core.Signal {
	return core.Signal{
		ID:             "sig-1",
		Ticker:         "AAPL",
		Decision:       core.DecisionBuy,
		CompositeScore: 0.42,
		Confidence:     0.75,
		CategoryScores: []core.CategoryScore{
			{
				Category:        core.CategoryTechnical,
				NormalizedScore: 0.5,
				Weight:          0.3,
				Confidence:      1,
				Contribution:    0.5,
				Metrics: map[string]core.MetricResult[core.Metric]{
					"macd":      core.Resolved(core.Metric{Value: 1.2, Score: 0.6}, "computed"),
					"bollinger": core.Unresolved[core.Metric](core.ReasonInsufficientData),
				},
			},
			core.DegradedCategory(core.CategoryOptions, 0.2, core.ReasonPipelineTimeout),
		},
	}
}

func TestExplain(t *testing.T) {
	mock := &mockLLMProvider{response: "  Trend and momentum are positive.\n"}
	e := New(mock, nil, time.Second)

	got := e.Explain(context.Background(), testSignal())
	assert.Equal(t, "Trend and momentum are positive.", got)
	assert.Equal(t, temperature, mock.last.Temperature)
	assert.Equal(t, systemPrompt, mock.last.SystemPrompt)
	require.Len(t, mock.last.Messages, 1)
	assert.Contains(t, mock.last.Messages[0].Content, "AAPL")
}

func TestExplain_Failures(t *testing.T) {
	tests := []struct {
		name string
		e    *Explainer
	}{
		{name: "no provider", e: New(nil, nil, 0)},
		{name: "provider error", e: New(&mockLLMProvider{err: errors.New("boom")}, nil, time.Second)},
		{name: "empty response", e: New(&mockLLMProvider{response: "   "}, nil, time.Second)},
		{name: "timeout", e: New(&mockLLMProvider{block: true}, nil, 20*time.Millisecond)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, Unavailable, tt.e.Explain(context.Background(), testSignal()))
		})
	}
}

func TestEnabled(t *testing.T) {
	var nilExplainer *Explainer
	assert.False(t, nilExplainer.Enabled())
	assert.False(t, New(nil, nil, 0).Enabled())
	assert.True(t, New(&mockLLMProvider{}, nil, 0).Enabled())
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(testSignal())

	assert.Contains(t, prompt, "Decision: Buy (composite 0.420, confidence 0.75)")
	assert.Contains(t, prompt, "- macd: value 1.2, score +0.60")
	assert.Contains(t, prompt, "Contribution to composite:\n- technical: +0.500\n- options: +0.000\n")
	assert.Contains(t, prompt, "- bollinger: unavailable (insufficient-data)")
	assert.Contains(t, prompt, "- unavailable: pipeline-timeout")
	assert.Less(t, strings.Index(prompt, "bollinger"), strings.Index(prompt, "macd"), "metrics are sorted")
}
