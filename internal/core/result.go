package core

// ProviderID identifies an external data provider
type ProviderID string

// Reason explains why a provider or metric is unavailable
type Reason string

const (
	// Provider reasons
	ReasonTimeout      Reason = "timeout"
	ReasonRateLimited  Reason = "rate-limited"
	ReasonNotFound     Reason = "not-found"
	ReasonMalformed    Reason = "malformed-response"
	ReasonUnauthorized Reason = "unauthorized"
	ReasonTransport    Reason = "transport-error"

	// Computed metric reasons
	ReasonInsufficientData Reason = "insufficient-data"
	ReasonInvalidInput     Reason = "invalid-input"
	ReasonDegenerateInput  Reason = "degenerate-input"
	ReasonNotResolved      Reason = "not-resolved"
	ReasonPipelineTimeout  Reason = "pipeline-timeout"
)

// Attempt records one failed provider invocation
type Attempt struct {
	Provider ProviderID `json:"provider"`
	Reason   Reason     `json:"reason"`
	Detail   string     `json:"detail,omitempty"`
}

// MetricResult wraps every value flowing through the pipeline.
// On success Value and Source are set and Tried lists the providers that
// failed before Source answered. When Unavailable is true, Tried holds every
// attempted provider, or Reason explains why a computed metric is missing.
type MetricResult[T any] struct {
	Value       T          `json:"value"`
	Source      ProviderID `json:"source,omitempty"`
	Unavailable bool       `json:"unavailable,omitempty"`
	Tried       []Attempt  `json:"tried_providers,omitempty"`
	Reason      Reason     `json:"reason,omitempty"`
}

// Resolved creates an available result
func Resolved[T any](value T, source ProviderID, tried ...Attempt) MetricResult[T] {
	return MetricResult[T]{Value: value, Source: source, Tried: tried}
}

// Unresolved creates an unavailable result carrying every attempt
func Unresolved[T any](reason Reason, tried ...Attempt) MetricResult[T] {
	return MetricResult[T]{Unavailable: true, Reason: reason, Tried: tried}
}

// Available reports whether the result carries a value
func (m MetricResult[T]) Available() bool {
	return !m.Unavailable
}

// Get returns the value and whether it is available
func (m MetricResult[T]) Get() (T, bool) {
	return m.Value, !m.Unavailable
}

// TriedProviders lists the providers recorded in Tried, in order
func (m MetricResult[T]) TriedProviders() []ProviderID {
	ids := make([]ProviderID, len(m.Tried))
	for i, a := range m.Tried {
		ids[i] = a.Provider
	}
	return ids
}

// Derive maps an available result to a computed value, keeping provenance.
// If the source is unavailable the derived result is unavailable with
// ReasonNotResolved.
func Derive[T, U any](src MetricResult[T], fn func(T) (U, Reason)) MetricResult[U] {
	if src.Unavailable {
		return MetricResult[U]{Unavailable: true, Reason: ReasonNotResolved, Tried: src.Tried}
	}
	v, reason := fn(src.Value)
	if reason != "" {
		return MetricResult[U]{Unavailable: true, Reason: reason, Source: src.Source}
	}
	return MetricResult[U]{Value: v, Source: src.Source}
}
