// internal/storage/signal/memory.go
package signal

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/newthinker/signalforge/internal/core"
)

// DefaultMaxSize bounds a store created with a non-positive size
const DefaultMaxSize = 1000

// MemoryStore is a bounded in-memory signal store. The oldest signal is
// evicted once the store is full.
type MemoryStore struct {
	signals []core.Signal
	maxSize int
	mu      sync.RWMutex
	onSize  func(int)
}

// NewMemoryStore creates a new in-memory store with max capacity.
func NewMemoryStore(maxSize int) *MemoryStore {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &MemoryStore{
		signals: make([]core.Signal, 0, maxSize),
		maxSize: maxSize,
	}
}

// OnSizeChange registers a callback invoked with the store size after every save.
func (m *MemoryStore) OnSizeChange(fn func(int)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onSize = fn
}

// Save adds a signal to the store.
func (m *MemoryStore) Save(ctx context.Context, signal core.Signal) error {
	if signal.ID == "" {
		signal.ID = uuid.NewString()
	}

	m.mu.Lock()
	m.signals = append(m.signals, signal)
	if len(m.signals) > m.maxSize {
		m.signals = m.signals[len(m.signals)-m.maxSize:]
	}
	size, onSize := len(m.signals), m.onSize
	m.mu.Unlock()

	if onSize != nil {
		onSize(size)
	}
	return nil
}

// GetByID retrieves a signal by ID.
func (m *MemoryStore) GetByID(ctx context.Context, id string) (*core.Signal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := range m.signals {
		if m.signals[i].ID == id {
			sig := m.signals[i]
			return &sig, nil
		}
	}
	return nil, core.ErrSignalNotFound
}

// List returns signals matching the filter, newest first.
func (m *MemoryStore) List(ctx context.Context, filter ListFilter) ([]core.Signal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []core.Signal{}
	for i := len(m.signals) - 1; i >= 0; i-- {
		if matches(m.signals[i], filter) {
			result = append(result, m.signals[i])
		}
	}

	if filter.Offset >= len(result) {
		return []core.Signal{}, nil
	}
	if filter.Offset > 0 {
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}

	return result, nil
}

// Count returns the count of matching signals.
func (m *MemoryStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, sig := range m.signals {
		if matches(sig, filter) {
			count++
		}
	}
	return count, nil
}

func matches(sig core.Signal, filter ListFilter) bool {
	if filter.Ticker != "" && sig.Ticker != filter.Ticker {
		return false
	}
	if filter.Decision != "" && sig.Decision != filter.Decision {
		return false
	}
	if !filter.From.IsZero() && sig.GeneratedAt.Before(filter.From) {
		return false
	}
	if !filter.To.IsZero() && sig.GeneratedAt.After(filter.To) {
		return false
	}
	return true
}
