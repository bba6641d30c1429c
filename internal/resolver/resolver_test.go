package resolver

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/newthinker/signalforge/internal/core"
	"github.com/newthinker/signalforge/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingAdapter struct {
	id    core.ProviderID
	calls int
	fn    func(ctx context.Context) (any, error)
}

func (a *countingAdapter) ID() core.ProviderID              { return a.id }
func (a *countingAdapter) Supports(c provider.Category) bool { return true }
func (a *countingAdapter) Fetch(ctx context.Context, ticker core.Ticker, c provider.Category) (any, error) {
	a.calls++
	return a.fn(ctx)
}

func failing(id core.ProviderID, reason core.Reason) *countingAdapter {
	return &countingAdapter{id: id, fn: func(ctx context.Context) (any, error) {
		return nil, provider.NewUnavailable(id, provider.Fundamentals, reason, errors.New("fail"))
	}}
}

func succeeding(id core.ProviderID, v core.Fundamentals) *countingAdapter {
	return &countingAdapter{id: id, fn: func(ctx context.Context) (any, error) {
		return v, nil
	}}
}

type recordingObserver struct {
	mu       sync.Mutex
	attempts []core.Reason
}

func (o *recordingObserver) ObserveAttempt(id core.ProviderID, c provider.Category, reason core.Reason, elapsed time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.attempts = append(o.attempts, reason)
}

func TestResolve_FallsBackInOrder(t *testing.T) {
	want := core.Fundamentals{PERatio: core.Float(18)}
	a := failing("A", core.ReasonTimeout)
	b := failing("B", core.ReasonRateLimited)
	c := succeeding("C", want)
	d := succeeding("D", core.Fundamentals{})

	obs := &recordingObserver{}
	r := New(Chains{provider.Fundamentals: {a, b, c, d}}, WithObserver(obs))

	got := Resolve[core.Fundamentals](context.Background(), r, "AAPL", provider.Fundamentals)

	require.True(t, got.Available())
	assert.Equal(t, want, got.Value)
	assert.Equal(t, core.ProviderID("C"), got.Source)
	assert.Equal(t, []core.ProviderID{"A", "B"}, got.TriedProviders())
	assert.Equal(t, core.ReasonTimeout, got.Tried[0].Reason)
	assert.Equal(t, core.ReasonRateLimited, got.Tried[1].Reason)

	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
	assert.Equal(t, 1, c.calls)
	assert.Equal(t, 0, d.calls, "adapters after the first success must not be invoked")
	assert.Equal(t, []core.Reason{core.ReasonTimeout, core.ReasonRateLimited, ""}, obs.attempts)
}

func TestResolve_AllFail(t *testing.T) {
	a := failing("A", core.ReasonTimeout)
	b := failing("B", core.ReasonNotFound)
	c := failing("C", core.ReasonMalformed)
	r := New(Chains{provider.Fundamentals: {a, b, c}})

	got := Resolve[core.Fundamentals](context.Background(), r, "AAPL", provider.Fundamentals)

	assert.False(t, got.Available())
	require.Len(t, got.Tried, 3)
	assert.Equal(t, []core.ProviderID{"A", "B", "C"}, got.TriedProviders())
	assert.Equal(t, core.ReasonTimeout, got.Tried[0].Reason)
	assert.Equal(t, core.ReasonNotFound, got.Tried[1].Reason)
	assert.Equal(t, core.ReasonMalformed, got.Tried[2].Reason)
	assert.Equal(t, core.ReasonMalformed, got.Reason)
	for _, ad := range []*countingAdapter{a, b, c} {
		assert.Equal(t, 1, ad.calls, "%s invoked once", ad.id)
	}
}

func TestResolve_FirstSucceedsShortCircuits(t *testing.T) {
	a := succeeding("A", core.Fundamentals{})
	b := succeeding("B", core.Fundamentals{})
	r := New(Chains{provider.Fundamentals: {a, b}})

	got := Resolve[core.Fundamentals](context.Background(), r, "AAPL", provider.Fundamentals)

	assert.True(t, got.Available())
	assert.Empty(t, got.Tried)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 0, b.calls)
}

func TestResolve_PerCallTimeout(t *testing.T) {
	slow := &countingAdapter{id: "slow", fn: func(ctx context.Context) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	fast := succeeding("fast", core.Fundamentals{})
	r := New(Chains{provider.Fundamentals: {slow, fast}}, WithCallTimeout(10*time.Millisecond))

	got := Resolve[core.Fundamentals](context.Background(), r, "AAPL", provider.Fundamentals)

	require.True(t, got.Available())
	assert.Equal(t, core.ProviderID("fast"), got.Source)
	require.Len(t, got.Tried, 1)
	assert.Equal(t, core.ReasonTimeout, got.Tried[0].Reason)
}

func TestResolve_ParentDeadlineSkipsRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	a := &countingAdapter{id: "A", fn: func(context.Context) (any, error) {
		cancel()
		return nil, provider.NewUnavailable("A", provider.Fundamentals, core.ReasonTransport, nil)
	}}
	b := succeeding("B", core.Fundamentals{})
	r := New(Chains{provider.Fundamentals: {a, b}})

	got := Resolve[core.Fundamentals](ctx, r, "AAPL", provider.Fundamentals)

	assert.False(t, got.Available())
	assert.Equal(t, 0, b.calls)
	require.Len(t, got.Tried, 2)
	assert.Equal(t, core.ReasonTimeout, got.Tried[1].Reason)
}

func TestResolve_WrongPayloadIsMalformed(t *testing.T) {
	bad := &countingAdapter{id: "bad", fn: func(context.Context) (any, error) {
		return "not fundamentals", nil
	}}
	r := New(Chains{provider.Fundamentals: {bad}})

	got := Resolve[core.Fundamentals](context.Background(), r, "AAPL", provider.Fundamentals)

	assert.False(t, got.Available())
	require.Len(t, got.Tried, 1)
	assert.Equal(t, core.ReasonMalformed, got.Tried[0].Reason)
}

func TestResolve_UntypedErrorIsTransport(t *testing.T) {
	raw := &countingAdapter{id: "raw", fn: func(context.Context) (any, error) {
		return nil, errors.New("connection reset")
	}}
	r := New(Chains{provider.Fundamentals: {raw}})

	got := Resolve[core.Fundamentals](context.Background(), r, "AAPL", provider.Fundamentals)

	require.Len(t, got.Tried, 1)
	assert.Equal(t, core.ReasonTransport, got.Tried[0].Reason)
}

func TestResolve_EmptyChain(t *testing.T) {
	r := New(Chains{})
	got := Resolve[[]core.CongressTrade](context.Background(), r, "AAPL", provider.Congress)

	assert.False(t, got.Available())
	assert.Equal(t, core.ReasonNotResolved, got.Reason)
	assert.Empty(t, got.Tried)
}

func TestResolver_Validate(t *testing.T) {
	full := Chains{}
	for _, c := range provider.Categories() {
		if c.Required() {
			full[c] = []provider.Adapter{succeeding("x", core.Fundamentals{})}
		}
	}
	assert.NoError(t, New(full).Validate())

	delete(full, provider.OptionsChain)
	err := New(full).Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrNoAdapters))
}

func TestResolver_Chain(t *testing.T) {
	r := New(Chains{provider.Fundamentals: {failing("fmp", ""), failing("yahoo", "")}})
	assert.Equal(t, []core.ProviderID{"fmp", "yahoo"}, r.Chain(provider.Fundamentals))
	assert.Empty(t, r.Chain(provider.Congress))
}
