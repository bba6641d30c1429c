// Package fundamental scores valuation and growth from raw financial
// statement fields.
package fundamental

import (
	"math"

	"github.com/newthinker/signalforge/internal/analysis"
	"github.com/newthinker/signalforge/internal/core"
)

// Sub-metric names
const (
	MetricEPSTrend     = "eps_trend"
	MetricRevenueTrend = "revenue_trend"
	MetricPE           = "pe"
	MetricPEG          = "peg"
	MetricFCFYield     = "fcf_yield"
)

// DefaultPEThreshold is the sector-neutral P/E that scores 0
const DefaultPEThreshold = 25.0

const (
	trailingQuarters = 4
	revenueScale     = 0.20 // trailing growth that saturates the revenue score
	fcfYieldScale    = 0.05 // FCF yield that saturates the score
	pegGood          = 1.0
	pegBad           = 2.0
	scoredWeight     = 0.2
)

// Config tunes the aggregator
type Config struct {
	PEThreshold float64
}

// Analyze computes the fundamental category score
func Analyze(f core.MetricResult[core.Fundamentals], weight float64, cfg Config) core.CategoryScore {
	threshold := cfg.PEThreshold
	if threshold <= 0 {
		threshold = DefaultPEThreshold
	}

	subs := []analysis.SubMetric{
		{Name: MetricEPSTrend, Weight: scoredWeight, Result: core.Derive(f, epsTrend)},
		{Name: MetricRevenueTrend, Weight: scoredWeight, Result: core.Derive(f, revenueTrend)},
		{Name: MetricPE, Weight: scoredWeight, Result: core.Derive(f, func(v core.Fundamentals) (core.Metric, core.Reason) {
			return pe(v, threshold)
		})},
		{Name: MetricPEG, Weight: scoredWeight, Result: core.Derive(f, peg)},
		{Name: MetricFCFYield, Weight: scoredWeight, Result: core.Derive(f, fcfYield)},
	}
	subs = append(subs, passThrough(f)...)
	return analysis.Aggregate(core.CategoryFundamental, weight, subs)
}

// EPSGrowth returns (newest - 4th newest) / |4th newest| over quarterly EPS
func EPSGrowth(f core.Fundamentals) (float64, core.Reason) {
	q := f.QuarterlyEPS
	if len(q) < trailingQuarters {
		return 0, core.ReasonInsufficientData
	}
	base := q[trailingQuarters-1]
	if base == 0 || !analysis.Finite(base) || !analysis.Finite(q[0]) {
		return 0, core.ReasonDegenerateInput
	}
	return (q[0] - base) / math.Abs(base), ""
}

func epsTrend(f core.Fundamentals) (core.Metric, core.Reason) {
	g, reason := EPSGrowth(f)
	if reason != "" {
		return core.Metric{}, reason
	}
	label := "flat"
	switch {
	case g > 0:
		label = "growing"
	case g < 0:
		label = "declining"
	}
	return core.Metric{Value: g, Score: analysis.Sign(g), Label: label}, ""
}

func revenueTrend(f core.Fundamentals) (core.Metric, core.Reason) {
	q := f.QuarterlyRevenue
	if len(q) < trailingQuarters {
		return core.Metric{}, core.ReasonInsufficientData
	}
	base := q[trailingQuarters-1]
	if base <= 0 || !analysis.Finite(q[0]) {
		return core.Metric{}, core.ReasonDegenerateInput
	}
	g := (q[0] - base) / base
	return core.Metric{Value: g, Score: analysis.Clamp(g / revenueScale)}, ""
}

func pe(f core.Fundamentals, threshold float64) (core.Metric, core.Reason) {
	if f.PERatio == nil {
		return core.Metric{}, core.ReasonInsufficientData
	}
	v := *f.PERatio
	if v <= 0 || !analysis.Finite(v) {
		return core.Metric{}, core.ReasonInvalidInput
	}
	return core.Metric{Value: v, Score: analysis.Clamp((threshold - v) / threshold)}, ""
}

// peg divides P/E by EPS growth in percent. Non-positive growth is invalid.
// A provider-reported PEG is used only when growth cannot be computed.
func peg(f core.Fundamentals) (core.Metric, core.Reason) {
	g, reason := EPSGrowth(f)
	if reason == "" && f.PERatio != nil && *f.PERatio > 0 {
		if g <= 0 {
			return core.Metric{}, core.ReasonInvalidInput
		}
		v := *f.PERatio / (g * 100)
		return core.Metric{Value: v, Score: analysis.Linear(v, pegGood, pegBad), Label: "computed"}, ""
	}

	if f.PEGRatio != nil && *f.PEGRatio > 0 && analysis.Finite(*f.PEGRatio) {
		v := *f.PEGRatio
		return core.Metric{Value: v, Score: analysis.Linear(v, pegGood, pegBad), Label: "reported"}, ""
	}
	if f.PEGRatio != nil {
		return core.Metric{}, core.ReasonInvalidInput
	}
	if reason == "" {
		// growth known but no usable P/E
		return core.Metric{}, core.ReasonInsufficientData
	}
	return core.Metric{}, reason
}

func fcfYield(f core.Fundamentals) (core.Metric, core.Reason) {
	if f.FreeCashFlow != nil && f.MarketCap != nil {
		if *f.MarketCap <= 0 {
			return core.Metric{}, core.ReasonInvalidInput
		}
		y := *f.FreeCashFlow / *f.MarketCap
		if !analysis.Finite(y) {
			return core.Metric{}, core.ReasonInvalidInput
		}
		return core.Metric{Value: y, Score: analysis.Clamp(y / fcfYieldScale), Label: "computed"}, ""
	}
	if f.FCFYield != nil && analysis.Finite(*f.FCFYield) {
		y := *f.FCFYield
		return core.Metric{Value: y, Score: analysis.Clamp(y / fcfYieldScale), Label: "reported"}, ""
	}
	return core.Metric{}, core.ReasonInsufficientData
}

// passThrough reports raw fields unscored
func passThrough(f core.MetricResult[core.Fundamentals]) []analysis.SubMetric {
	fields := []struct {
		name string
		get  func(core.Fundamentals) *float64
	}{
		{"eps", func(v core.Fundamentals) *float64 { return v.EPS }},
		{"revenue", func(v core.Fundamentals) *float64 { return v.Revenue }},
		{"net_income", func(v core.Fundamentals) *float64 { return v.NetIncome }},
		{"ebitda", func(v core.Fundamentals) *float64 { return v.EBITDA }},
		{"price_to_sales", func(v core.Fundamentals) *float64 { return v.PriceToSales }},
		{"gross_margin", func(v core.Fundamentals) *float64 { return v.GrossMargin }},
		{"operating_margin", func(v core.Fundamentals) *float64 { return v.OperatingMargin }},
		{"market_cap", func(v core.Fundamentals) *float64 { return v.MarketCap }},
	}

	out := make([]analysis.SubMetric, 0, len(fields))
	for _, fld := range fields {
		get := fld.get
		out = append(out, analysis.SubMetric{
			Name: fld.name,
			Result: core.Derive(f, func(v core.Fundamentals) (core.Metric, core.Reason) {
				p := get(v)
				if p == nil {
					return core.Metric{}, core.ReasonInsufficientData
				}
				return core.Metric{Value: *p}, ""
			}),
		})
	}
	return out
}
