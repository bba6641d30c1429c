// Package analysis holds the shared normalization rubric and the
// sub-metric aggregation used by every category engine.
package analysis

import (
	"math"

	"github.com/newthinker/signalforge/internal/core"
)

// Clamp limits x to [-1, 1]. NaN maps to 0.
func Clamp(x float64) float64 {
	switch {
	case math.IsNaN(x):
		return 0
	case x > 1:
		return 1
	case x < -1:
		return -1
	}
	return x
}

// Saturate maps x smoothly into (-1, 1) with tanh(x/scale)
func Saturate(x, scale float64) float64 {
	if scale <= 0 || math.IsNaN(x) {
		return 0
	}
	return math.Tanh(x / scale)
}

// Linear maps x onto a line through (good, +1) and (bad, -1) and clamps.
// good may be above or below bad.
func Linear(x, good, bad float64) float64 {
	if good == bad {
		return 0
	}
	return Clamp(1 - 2*(x-good)/(bad-good))
}

// Sign returns -1, 0 or +1
func Sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

// Finite reports whether x is neither NaN nor infinite
func Finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// Scored builds an available sub-metric result
func Scored(value, score float64, label string, source core.ProviderID) core.MetricResult[core.Metric] {
	return core.Resolved(core.Metric{Value: value, Score: Clamp(score), Label: label}, source)
}

// Missing builds an unavailable sub-metric result for a computed metric
func Missing(reason core.Reason, source core.ProviderID) core.MetricResult[core.Metric] {
	r := core.Unresolved[core.Metric](reason)
	r.Source = source
	return r
}
