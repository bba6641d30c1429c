// internal/api/handler/api/analysis.go
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/newthinker/signalforge/internal/api/response"
	"github.com/newthinker/signalforge/internal/core"
	"go.uber.org/zap"
)

// Runner produces a signal for a raw ticker symbol.
type Runner interface {
	Run(ctx context.Context, ticker string) (core.Signal, error)
}

// Explainer attaches a natural-language rationale to a signal.
type Explainer interface {
	Enabled() bool
	Explain(ctx context.Context, sig core.Signal) string
}

// SignalResponse is a signal plus its optional explanation.
type SignalResponse struct {
	core.Signal
	Explanation string `json:"explanation,omitempty"`
}

// AnalysisHandler computes signals on demand.
type AnalysisHandler struct {
	runner         Runner
	explainer      Explainer
	explainDefault bool
	logger         *zap.Logger
}

// NewAnalysisHandler creates a new analysis handler. explainer may be nil.
func NewAnalysisHandler(runner Runner, explainer Explainer, explainDefault bool, logger *zap.Logger) *AnalysisHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalysisHandler{
		runner:         runner,
		explainer:      explainer,
		explainDefault: explainDefault,
		logger:         logger,
	}
}

// Analyze runs the pipeline for the {ticker} path value. The explain query
// parameter overrides the configured default.
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	sig, err := h.runner.Run(r.Context(), r.PathValue("ticker"))
	if err != nil {
		status := response.StatusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("signal computation failed", zap.String("ticker", r.PathValue("ticker")), zap.Error(err))
		}
		response.Error(w, status, err)
		return
	}

	resp := SignalResponse{Signal: sig}
	if h.wantExplanation(r) {
		resp.Explanation = h.explainer.Explain(r.Context(), sig)
	}

	response.JSON(w, http.StatusOK, resp)
}

func (h *AnalysisHandler) wantExplanation(r *http.Request) bool {
	if h.explainer == nil || !h.explainer.Enabled() {
		return false
	}
	if v := r.URL.Query().Get("explain"); v != "" {
		want, err := strconv.ParseBool(v)
		return err == nil && want
	}
	return h.explainDefault
}
