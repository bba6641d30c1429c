package provider

import (
	"errors"
	"fmt"

	"github.com/newthinker/signalforge/internal/core"
)

// Unavailable is the only error an adapter returns from Fetch
type Unavailable struct {
	Provider core.ProviderID
	Category Category
	Reason   core.Reason
	Cause    error
}

// NewUnavailable creates a typed unavailability error
func NewUnavailable(id core.ProviderID, c Category, reason core.Reason, cause error) *Unavailable {
	return &Unavailable{Provider: id, Category: c, Reason: reason, Cause: cause}
}

func (e *Unavailable) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s unavailable (%s): %v", e.Provider, e.Category, e.Reason, e.Cause)
	}
	return fmt.Sprintf("%s %s unavailable (%s)", e.Provider, e.Category, e.Reason)
}

func (e *Unavailable) Unwrap() error {
	return e.Cause
}

// Is matches core.ErrProviderUnavailable
func (e *Unavailable) Is(target error) bool {
	if t, ok := target.(*core.Error); ok {
		return t.Code == core.ErrProviderUnavailable.Code
	}
	return false
}

// Attempt converts the error into a provenance record
func (e *Unavailable) Attempt() core.Attempt {
	a := core.Attempt{Provider: e.Provider, Reason: e.Reason}
	if e.Cause != nil {
		a.Detail = e.Cause.Error()
	}
	return a
}

// AsUnavailable extracts an *Unavailable from an error chain
func AsUnavailable(err error) (*Unavailable, bool) {
	var u *Unavailable
	if errors.As(err, &u) {
		return u, true
	}
	return nil, false
}

// Unsupported is returned by adapters asked for a category they do not serve
func Unsupported(id core.ProviderID, c Category) *Unavailable {
	return NewUnavailable(id, c, core.ReasonNotFound, fmt.Errorf("category %s not supported", c))
}
