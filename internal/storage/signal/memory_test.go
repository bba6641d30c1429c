// internal/storage/signal/memory_test.go
package signal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/newthinker/signalforge/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SaveAndList(t *testing.T) {
	store := NewMemoryStore(100)
	ctx := context.Background()

	sig := core.Signal{
		Ticker:      "AAPL",
		Decision:    core.DecisionBuy,
		Confidence:  0.85,
		GeneratedAt: time.Now(),
	}

	err := store.Save(ctx, sig)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	signals, err := store.List(ctx, ListFilter{Ticker: "AAPL"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(signals) != 1 {
		t.Errorf("expected 1 signal, got %d", len(signals))
	}
	if signals[0].ID == "" {
		t.Error("expected an assigned ID")
	}
}

func TestMemoryStore_KeepsExistingID(t *testing.T) {
	store := NewMemoryStore(10)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, core.Signal{ID: "sig-1", Ticker: "AAPL"}))

	got, err := store.GetByID(ctx, "sig-1")
	require.NoError(t, err)
	assert.Equal(t, core.Ticker("AAPL"), got.Ticker)
}

func TestMemoryStore_ListByDecision(t *testing.T) {
	store := NewMemoryStore(100)
	ctx := context.Background()

	store.Save(ctx, core.Signal{Ticker: "AAPL", Decision: core.DecisionBuy, GeneratedAt: time.Now()})
	store.Save(ctx, core.Signal{Ticker: "GOOG", Decision: core.DecisionHold, GeneratedAt: time.Now()})

	signals, _ := store.List(ctx, ListFilter{Decision: core.DecisionBuy})
	if len(signals) != 1 {
		t.Errorf("expected 1, got %d", len(signals))
	}

	n, _ := store.Count(ctx, ListFilter{Decision: core.DecisionHold})
	assert.Equal(t, 1, n)
}

func TestMemoryStore_ListByTimeRange(t *testing.T) {
	store := NewMemoryStore(100)
	ctx := context.Background()

	now := time.Now()
	store.Save(ctx, core.Signal{Ticker: "AAPL", GeneratedAt: now.Add(-2 * time.Hour)})
	store.Save(ctx, core.Signal{Ticker: "GOOG", GeneratedAt: now})

	signals, _ := store.List(ctx, ListFilter{From: now.Add(-1 * time.Hour)})
	if len(signals) != 1 {
		t.Errorf("expected 1, got %d", len(signals))
	}

	signals, _ = store.List(ctx, ListFilter{To: now.Add(-1 * time.Hour)})
	require.Len(t, signals, 1)
	assert.Equal(t, core.Ticker("AAPL"), signals[0].Ticker)
}

func TestMemoryStore_NewestFirstWithPaging(t *testing.T) {
	store := NewMemoryStore(100)
	ctx := context.Background()

	for _, tk := range []core.Ticker{"A", "B", "C", "D"} {
		store.Save(ctx, core.Signal{Ticker: tk})
	}

	tickers := func(sigs []core.Signal) []core.Ticker {
		out := []core.Ticker{}
		for _, s := range sigs {
			out = append(out, s.Ticker)
		}
		return out
	}

	all, _ := store.List(ctx, ListFilter{})
	assert.Equal(t, []core.Ticker{"D", "C", "B", "A"}, tickers(all))

	page, _ := store.List(ctx, ListFilter{Offset: 1, Limit: 2})
	assert.Equal(t, []core.Ticker{"C", "B"}, tickers(page))

	empty, _ := store.List(ctx, ListFilter{Offset: 10})
	assert.Empty(t, empty)
}

func TestMemoryStore_MaxSize(t *testing.T) {
	store := NewMemoryStore(2)
	ctx := context.Background()

	var sizes []int
	store.OnSizeChange(func(n int) { sizes = append(sizes, n) })

	store.Save(ctx, core.Signal{Ticker: "A", GeneratedAt: time.Now()})
	store.Save(ctx, core.Signal{Ticker: "B", GeneratedAt: time.Now()})
	store.Save(ctx, core.Signal{Ticker: "C", GeneratedAt: time.Now()})

	signals, _ := store.List(ctx, ListFilter{})
	if len(signals) != 2 {
		t.Errorf("expected 2 (max size), got %d", len(signals))
	}
	assert.Equal(t, core.Ticker("C"), signals[0].Ticker)
	assert.Equal(t, []int{1, 2, 2}, sizes)
}

func TestMemoryStore_GetByIDNotFound(t *testing.T) {
	store := NewMemoryStore(0)

	_, err := store.GetByID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrSignalNotFound))
	assert.Equal(t, DefaultMaxSize, store.maxSize)
}
