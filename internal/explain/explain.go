// internal/explain/explain.go
package explain

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/newthinker/signalforge/internal/core"
	"github.com/newthinker/signalforge/internal/llm"
	"go.uber.org/zap"
)

// Unavailable is returned in place of an explanation whenever the LLM call
// fails or returns nothing.
const Unavailable = "explanation unavailable"

const (
	defaultTimeout   = 30 * time.Second
	defaultMaxTokens = 512
	temperature      = 0.2
)

// Explainer turns a Signal into a short natural-language rationale.
type Explainer struct {
	llm     llm.Provider
	logger  *zap.Logger
	timeout time.Duration
}

// New creates an explainer. A nil provider makes every call return Unavailable.
func New(provider llm.Provider, logger *zap.Logger, timeout time.Duration) *Explainer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Explainer{llm: provider, logger: logger, timeout: timeout}
}

// Enabled reports whether an LLM provider is configured.
func (e *Explainer) Enabled() bool {
	return e != nil && e.llm != nil
}

// Explain returns the LLM rationale for sig, or Unavailable. It never fails.
func (e *Explainer) Explain(ctx context.Context, sig core.Signal) string {
	if !e.Enabled() {
		return Unavailable
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.llm.Chat(ctx, llm.ChatRequest{
		SystemPrompt: systemPrompt,
		Messages:     []llm.Message{{Role: "user", Content: BuildPrompt(sig)}},
		MaxTokens:    defaultMaxTokens,
		Temperature:  temperature,
	})
	if err != nil {
		e.logger.Warn("explanation failed",
			zap.String("ticker", sig.Ticker.String()),
			zap.String("provider", e.llm.Name()),
			zap.Error(err),
		)
		return Unavailable
	}

	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return Unavailable
	}
	return text
}

// BuildPrompt renders the signal as the user message sent to the LLM.
func BuildPrompt(sig core.Signal) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("## Ticker: %s\n\n", sig.Ticker))
	sb.WriteString(fmt.Sprintf("Decision: %s (composite %.3f, confidence %.2f)\n\n",
		sig.Decision, sig.CompositeScore, sig.Confidence))

	sb.WriteString("Contribution to composite:\n")
	for _, cs := range sig.CategoryScores {
		sb.WriteString(fmt.Sprintf("- %s: %+.3f\n", cs.Category, cs.Contribution))
	}
	sb.WriteString("\n")

	for _, cs := range sig.CategoryScores {
		sb.WriteString(fmt.Sprintf("## %s (score %.3f, weight %.2f, confidence %.2f)\n",
			cs.Category, cs.NormalizedScore, cs.Weight, cs.Confidence))
		if cs.Reason != "" {
			sb.WriteString(fmt.Sprintf("- unavailable: %s\n\n", cs.Reason))
			continue
		}

		names := make([]string, 0, len(cs.Metrics))
		for name := range cs.Metrics {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			m := cs.Metrics[name]
			if m.Unavailable {
				sb.WriteString(fmt.Sprintf("- %s: unavailable (%s)\n", name, m.Reason))
				continue
			}
			line := fmt.Sprintf("- %s: value %.4g, score %+.2f", name, m.Value.Value, m.Value.Score)
			if m.Value.Label != "" {
				line += fmt.Sprintf(" [%s]", m.Value.Label)
			}
			sb.WriteString(line + "\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Task:\n")
	sb.WriteString("Explain in 3-5 sentences why this decision follows from the data above.\n")

	return sb.String()
}

const systemPrompt = `You are an equity analyst summarizing a quantitative Buy/Sell/Hold signal for a retail investor.

When weighing the technical picture, prioritize:
1. Trend - the SMA50/SMA200 regime and any recent crossover
2. Momentum - the MACD histogram
3. Bands - where the close sits within the Bollinger bands

For fundamentals, note whether earnings and revenue are growing, whether valuation (PE, PEG) is reasonable,
and whether free cash flow yield is healthy.
For options, mention the average probability of profit and how open interest is skewed between calls and puts.
For smart money, highlight insider buying in particular, then institutional position changes and congressional trades.

Do not invent numbers that are not in the data. Mention categories that were unavailable.
Keep the answer plain text, no markdown, no investment disclaimer.`
