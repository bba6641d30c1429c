// Package technical scores price action: SMA50/SMA200 cross and trend,
// MACD momentum and Bollinger band position.
package technical

import (
	"github.com/newthinker/signalforge/internal/analysis"
	"github.com/newthinker/signalforge/internal/core"
	"github.com/newthinker/signalforge/internal/indicator"
)

// Sub-metric names
const (
	MetricSMACross     = "sma_cross"
	MetricSMATrend     = "sma_trend"
	MetricMACD         = "macd"
	MetricBollinger    = "bollinger"
	MetricSMA50        = "sma50"
	MetricLatestOpen   = "latest_open"
	MetricLatestClose  = "latest_close"
	MetricLatestVolume = "latest_volume"
)

// Cross states
const (
	GoldenCross = "golden-cross"
	DeathCross  = "death-cross"
	NoCross     = "no-cross"
)

const (
	fastSMA = 50
	slowSMA = 200

	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9

	bollingerPeriod = 20
	bollingerK      = 2.0

	// macdScale is the histogram size, as a fraction of price, that maps to tanh(1)
	macdScale = 0.005
	// trendScale is the SMA50/SMA200 spread that saturates the trend score
	trendScale = 0.05
)

var weights = map[string]float64{
	MetricSMACross:  0.25,
	MetricSMATrend:  0.25,
	MetricMACD:      0.30,
	MetricBollinger: 0.20,
}

// Analyze computes the technical category score. Each sub-metric needs its
// own minimum number of bars; shorter series leave only that sub-metric
// unavailable.
func Analyze(series core.MetricResult[core.PriceSeries], weight float64) core.CategoryScore {
	subs := []analysis.SubMetric{
		{Name: MetricSMACross, Weight: weights[MetricSMACross], Result: core.Derive(series, smaCross)},
		{Name: MetricSMATrend, Weight: weights[MetricSMATrend], Result: core.Derive(series, smaTrend)},
		{Name: MetricMACD, Weight: weights[MetricMACD], Result: core.Derive(series, macd)},
		{Name: MetricBollinger, Weight: weights[MetricBollinger], Result: core.Derive(series, bollinger)},
		{Name: MetricSMA50, Result: core.Derive(series, sma50)},
		{Name: MetricLatestOpen, Result: core.Derive(series, latestOpen)},
		{Name: MetricLatestClose, Result: core.Derive(series, latestClose)},
		{Name: MetricLatestVolume, Result: core.Derive(series, latestVolume)},
	}
	return analysis.Aggregate(core.CategoryTechnical, weight, subs)
}

// CrossState compares SMA50-SMA200 on the last two bars
func CrossState(closes []float64) (state string, spread float64, ok bool) {
	fast, ok1 := indicator.SMATail(closes, fastSMA, 2)
	slow, ok2 := indicator.SMATail(closes, slowSMA, 2)
	if !ok1 || !ok2 {
		return "", 0, false
	}
	prev := fast[0] - slow[0]
	cur := fast[1] - slow[1]
	switch {
	case prev <= 0 && cur > 0:
		return GoldenCross, cur, true
	case prev >= 0 && cur < 0:
		return DeathCross, cur, true
	}
	return NoCross, cur, true
}

func smaCross(p core.PriceSeries) (core.Metric, core.Reason) {
	state, spread, ok := CrossState(p.Closes())
	if !ok {
		return core.Metric{}, core.ReasonInsufficientData
	}
	var score float64
	switch state {
	case GoldenCross:
		score = 1
	case DeathCross:
		score = -1
	}
	return core.Metric{Value: spread, Score: score, Label: state}, ""
}

func smaTrend(p core.PriceSeries) (core.Metric, core.Reason) {
	closes := p.Closes()
	fast, ok1 := indicator.SMATail(closes, fastSMA, 1)
	slow, ok2 := indicator.SMATail(closes, slowSMA, 1)
	if !ok1 || !ok2 {
		return core.Metric{}, core.ReasonInsufficientData
	}
	if slow[0] <= 0 {
		return core.Metric{}, core.ReasonDegenerateInput
	}
	spread := (fast[0] - slow[0]) / slow[0]
	label := "sma50-above-sma200"
	if spread < 0 {
		label = "sma50-below-sma200"
	}
	return core.Metric{Value: spread, Score: analysis.Clamp(spread / trendScale), Label: label}, ""
}

func macd(p core.PriceSeries) (core.Metric, core.Reason) {
	closes := p.Closes()
	m := indicator.MACD(closes, macdFast, macdSlow, macdSignal)
	if len(m.Histogram) == 0 {
		return core.Metric{}, core.ReasonInsufficientData
	}
	last := closes[len(closes)-1]
	if last <= 0 {
		return core.Metric{}, core.ReasonDegenerateInput
	}
	hist := m.Histogram[len(m.Histogram)-1]
	label := "bullish"
	if hist < 0 {
		label = "bearish"
	}
	return core.Metric{Value: hist, Score: analysis.Saturate(hist, macdScale*last), Label: label}, ""
}

func bollinger(p core.PriceSeries) (core.Metric, core.Reason) {
	closes := p.Closes()
	b, ok := indicator.Bollinger(closes, bollingerPeriod, bollingerK)
	if !ok {
		return core.Metric{}, core.ReasonInsufficientData
	}
	width, ok := b.Width()
	if !ok {
		return core.Metric{}, core.ReasonDegenerateInput
	}
	// Flat window: close sits on every band
	if b.Upper == b.Middle {
		return core.Metric{Value: width, Score: 0, Label: "flat"}, ""
	}
	last := closes[len(closes)-1]
	return core.Metric{Value: width, Score: analysis.Clamp((last - b.Middle) / (b.Upper - b.Middle)), Label: "band-position"}, ""
}

func sma50(p core.PriceSeries) (core.Metric, core.Reason) {
	v, ok := indicator.SMATail(p.Closes(), fastSMA, 1)
	if !ok {
		return core.Metric{}, core.ReasonInsufficientData
	}
	return core.Metric{Value: v[0]}, ""
}

func latestOpen(p core.PriceSeries) (core.Metric, core.Reason) {
	bar, ok := p.Latest()
	if !ok {
		return core.Metric{}, core.ReasonInsufficientData
	}
	return core.Metric{Value: bar.Open, Label: bar.Time.Format("2006-01-02")}, ""
}

func latestClose(p core.PriceSeries) (core.Metric, core.Reason) {
	bar, ok := p.Latest()
	if !ok {
		return core.Metric{}, core.ReasonInsufficientData
	}
	return core.Metric{Value: bar.Close, Label: bar.Time.Format("2006-01-02")}, ""
}

func latestVolume(p core.PriceSeries) (core.Metric, core.Reason) {
	bar, ok := p.Latest()
	if !ok {
		return core.Metric{}, core.ReasonInsufficientData
	}
	return core.Metric{Value: float64(bar.Volume)}, ""
}
