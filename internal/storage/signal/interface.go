// internal/storage/signal/interface.go
package signal

import (
	"context"
	"time"

	"github.com/newthinker/signalforge/internal/core"
)

// Store defines the interface for signal persistence.
type Store interface {
	// Save persists a signal. Signals without an ID get one assigned.
	Save(ctx context.Context, signal core.Signal) error

	// GetByID retrieves a signal by its ID.
	GetByID(ctx context.Context, id string) (*core.Signal, error)

	// List retrieves signals matching the filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]core.Signal, error)

	// Count returns the number of signals matching the filter.
	Count(ctx context.Context, filter ListFilter) (int, error)
}

// ListFilter defines criteria for listing signals.
type ListFilter struct {
	Ticker   core.Ticker
	Decision core.Decision
	From     time.Time
	To       time.Time
	Limit    int
	Offset   int
}
