// Package resolver tries provider adapters in priority order and records
// provenance for every attempt.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/newthinker/signalforge/internal/core"
	"github.com/newthinker/signalforge/internal/provider"
	"github.com/newthinker/signalforge/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// DefaultCallTimeout bounds a single adapter call
const DefaultCallTimeout = 10 * time.Second

// Chains maps each data category to its ordered adapters
type Chains map[provider.Category][]provider.Adapter

// Observer is notified after every adapter attempt. reason is empty on success.
type Observer interface {
	ObserveAttempt(id core.ProviderID, c provider.Category, reason core.Reason, elapsed time.Duration)
}

// Resolver holds the configured fallback chains. It carries no per-run state
// and is safe for concurrent use.
type Resolver struct {
	chains      Chains
	callTimeout time.Duration
	logger      *zap.Logger
	observer    Observer
}

// Option configures the resolver
type Option func(*Resolver)

// WithCallTimeout sets the per-call timeout
func WithCallTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.callTimeout = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithObserver sets the attempt observer
func WithObserver(o Observer) Option {
	return func(r *Resolver) {
		r.observer = o
	}
}

// New creates a resolver over a copy of chains
func New(chains Chains, opts ...Option) *Resolver {
	r := &Resolver{
		chains:      make(Chains, len(chains)),
		callTimeout: DefaultCallTimeout,
		logger:      zap.NewNop(),
	}
	for c, adapters := range chains {
		r.chains[c] = append([]provider.Adapter(nil), adapters...)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Chain returns the ordered provider ids for a category
func (r *Resolver) Chain(c provider.Category) []core.ProviderID {
	ids := make([]core.ProviderID, len(r.chains[c]))
	for i, a := range r.chains[c] {
		ids[i] = a.ID()
	}
	return ids
}

// Validate fails when a required category has no adapters
func (r *Resolver) Validate() error {
	for _, c := range provider.Categories() {
		if c.Required() && len(r.chains[c]) == 0 {
			return core.WrapError(core.ErrNoAdapters, fmt.Errorf("category %s", c))
		}
	}
	return nil
}

// Resolve invokes the chain for category c strictly in order and returns the
// first successful payload. Subsequent adapters are never called after a
// success. Once ctx is done the remaining adapters are recorded as timed out
// without being invoked. Failure is returned as an unavailable result.
func Resolve[T any](ctx context.Context, r *Resolver, ticker core.Ticker, c provider.Category) core.MetricResult[T] {
	chain := r.chains[c]
	if len(chain) == 0 {
		return core.Unresolved[T](core.ReasonNotResolved)
	}

	ctx, span := tracing.StartSpan(ctx, "resolver.resolve")
	defer span.End()
	span.SetAttributes(attribute.String("category", string(c)), attribute.String("ticker", ticker.String()))

	var tried []core.Attempt
	for _, a := range chain {
		if err := ctx.Err(); err != nil {
			tried = append(tried, core.Attempt{Provider: a.ID(), Reason: core.ReasonTimeout, Detail: "not attempted: " + err.Error()})
			continue
		}

		v, attempt, ok := invoke[T](ctx, r, a, ticker, c)
		if ok {
			span.SetAttributes(attribute.String("source", string(a.ID())), attribute.Int("failed_attempts", len(tried)))
			return core.Resolved(v, a.ID(), tried...)
		}
		tried = append(tried, attempt)
	}

	span.SetStatus(codes.Error, "all providers unavailable")
	r.logger.Debug("category unresolved",
		zap.String("ticker", ticker.String()),
		zap.String("category", string(c)),
		zap.Int("attempts", len(tried)),
	)
	return core.Unresolved[T](tried[len(tried)-1].Reason, tried...)
}

func invoke[T any](ctx context.Context, r *Resolver, a provider.Adapter, ticker core.Ticker, c provider.Category) (T, core.Attempt, bool) {
	var zero T

	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()
	callCtx, span := tracing.StartSpan(callCtx, "provider.fetch")
	defer span.End()
	span.SetAttributes(attribute.String("provider", string(a.ID())), attribute.String("category", string(c)))

	start := time.Now()
	v, err := a.Fetch(callCtx, ticker, c)
	elapsed := time.Since(start)

	var attempt core.Attempt
	switch {
	case err != nil:
		attempt = attemptFor(callCtx, a.ID(), err)
	default:
		typed, ok := v.(T)
		if !ok {
			attempt = core.Attempt{Provider: a.ID(), Reason: core.ReasonMalformed, Detail: fmt.Sprintf("unexpected payload %T", v)}
			break
		}
		r.observe(a.ID(), c, "", elapsed)
		r.logger.Debug("provider answered",
			zap.String("provider", string(a.ID())),
			zap.String("category", string(c)),
			zap.Duration("elapsed", elapsed),
		)
		return typed, core.Attempt{}, true
	}

	span.SetStatus(codes.Error, string(attempt.Reason))
	r.observe(a.ID(), c, attempt.Reason, elapsed)
	r.logger.Debug("provider unavailable",
		zap.String("provider", string(a.ID())),
		zap.String("category", string(c)),
		zap.String("reason", string(attempt.Reason)),
		zap.String("detail", attempt.Detail),
	)
	return zero, attempt, false
}

// attemptFor converts an adapter error into provenance. An expired call
// context always counts as a timeout.
func attemptFor(callCtx context.Context, id core.ProviderID, err error) core.Attempt {
	var a core.Attempt
	if u, ok := provider.AsUnavailable(err); ok {
		a = u.Attempt()
	} else {
		a = core.Attempt{Provider: id, Reason: core.ReasonTransport, Detail: err.Error()}
	}
	a.Provider = id
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		a.Reason = core.ReasonTimeout
	}
	return a
}

func (r *Resolver) observe(id core.ProviderID, c provider.Category, reason core.Reason, elapsed time.Duration) {
	if r.observer != nil {
		r.observer.ObserveAttempt(id, c, reason, elapsed)
	}
}
