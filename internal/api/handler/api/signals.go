// internal/api/handler/api/signals.go
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/signalforge/internal/api/response"
	"github.com/newthinker/signalforge/internal/core"
	"github.com/newthinker/signalforge/internal/storage/signal"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// Archive looks up signals that aged out of the store.
type Archive interface {
	Find(ctx context.Context, id string) (core.Signal, error)
}

// SignalsHandler serves recently produced signals.
type SignalsHandler struct {
	store   signal.Store
	archive Archive
}

// NewSignalsHandler creates a new signals handler. archive may be nil.
func NewSignalsHandler(store signal.Store, archive Archive) *SignalsHandler {
	return &SignalsHandler{store: store, archive: archive}
}

// List returns signals matching query parameters, newest first.
func (h *SignalsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := signal.ListFilter{
		Ticker: core.Ticker(strings.ToUpper(strings.TrimSpace(q.Get("ticker")))),
		Limit:  defaultLimit,
	}

	if d := q.Get("decision"); d != "" {
		decision, ok := parseDecision(d)
		if !ok {
			response.Error(w, http.StatusBadRequest,
				core.WrapError(core.ErrInvalidRequest, fmt.Errorf("invalid decision filter %q", d)))
			return
		}
		filter.Decision = decision
	}

	filter.From = parseTime(q.Get("from"))
	filter.To = parseTime(q.Get("to"))

	if limit := q.Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil && n > 0 {
			filter.Limit = min(n, maxLimit)
		}
	}

	if offset := q.Get("offset"); offset != "" {
		if n, err := strconv.Atoi(offset); err == nil && n > 0 {
			filter.Offset = n
		}
	}

	signals, err := h.store.List(r.Context(), filter)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, err)
		return
	}

	count, err := h.store.Count(r.Context(), filter)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"signals": signals,
		"total":   count,
		"limit":   filter.Limit,
		"offset":  filter.Offset,
	})
}

// GetByID returns a single signal by the {id} path value, falling back to
// the archive when the store no longer holds it.
func (h *SignalsHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sig, err := h.store.GetByID(r.Context(), id)
	if errors.Is(err, core.ErrSignalNotFound) && h.archive != nil {
		var archived core.Signal
		archived, err = h.archive.Find(r.Context(), id)
		sig = &archived
	}
	if err != nil {
		response.Error(w, response.StatusFor(err), err)
		return
	}

	response.JSON(w, http.StatusOK, sig)
}

func parseDecision(s string) (core.Decision, bool) {
	for _, d := range []core.Decision{core.DecisionBuy, core.DecisionSell, core.DecisionHold} {
		if strings.EqualFold(s, string(d)) {
			return d, true
		}
	}
	return "", false
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t
	}
	return time.Time{}
}
