// Package options computes per-contract Black-Scholes analytics and scores
// options-market positioning.
package options

import (
	"math"
	"time"

	"github.com/newthinker/signalforge/internal/analysis"
	"github.com/newthinker/signalforge/internal/core"
)

// Sub-metric names
const (
	MetricDeltaSentiment = "delta_sentiment"
	MetricOISkew         = "oi_skew"
	MetricAvgPOP         = "avg_pop"
	MetricContracts      = "contracts"
)

// DefaultRiskFreeRate is the annualized rate used when none is configured
const DefaultRiskFreeRate = 0.045

const (
	daysPerYear = 365.0

	// Implied volatility outside (0, maxIV) is treated as bad data
	maxIV = 5.0

	strikeEpsilon = 0.01 // fraction of spot added to |K - S|
	daysEpsilon   = 1.0

	deltaWeight = 0.6
	skewWeight  = 0.4
)

// Config tunes the engine. Now is the evaluation date.
type Config struct {
	RiskFreeRate float64
	Side         Side
	Now          time.Time
}

// Contract holds the analytics of one contract. Delta and POP are
// meaningful only when Reason is empty.
type Contract struct {
	core.OptionContract
	Days   float64     `json:"days_to_expiry"`
	Delta  float64     `json:"delta"`
	POP    float64     `json:"pop"`
	Reason core.Reason `json:"reason,omitempty"`
}

// Weight favors near-the-money, near-term contracts
func (c Contract) Weight(spot float64) float64 {
	return 1 / (math.Abs(c.Strike-spot) + strikeEpsilon*spot) * 1 / (math.Max(c.Days, 0) + daysEpsilon)
}

// Evaluate computes delta and POP for every contract in the chain
func Evaluate(chain core.OptionsChain, cfg Config) []Contract {
	side := cfg.Side
	if side == "" {
		side = Short
	}

	out := make([]Contract, 0, len(chain.Contracts))
	for _, oc := range chain.Contracts {
		c := Contract{OptionContract: oc, Days: oc.Expiry.Sub(cfg.Now).Hours() / 24}

		if oc.ImpliedVolatility <= 0 || oc.ImpliedVolatility >= maxIV || !analysis.Finite(oc.ImpliedVolatility) {
			c.Reason = core.ReasonInvalidInput
			out = append(out, c)
			continue
		}

		in := Inputs{
			Spot:   chain.UnderlyingPrice,
			Strike: oc.Strike,
			Rate:   cfg.RiskFreeRate,
			Vol:    oc.ImpliedVolatility,
			T:      c.Days / daysPerYear,
		}
		delta, ok1 := Delta(in, oc.Type)
		pop, ok2 := POP(in, oc.Type, side)
		if !ok1 || !ok2 {
			c.Reason = core.ReasonDegenerateInput
			out = append(out, c)
			continue
		}
		c.Delta, c.POP = delta, pop
		out = append(out, c)
	}
	return out
}

// Analyze computes the options category score
func Analyze(chain core.MetricResult[core.OptionsChain], weight float64, cfg Config) core.CategoryScore {
	var evaluated []Contract
	if v, ok := chain.Get(); ok {
		evaluated = Evaluate(v, cfg)
	}

	subs := []analysis.SubMetric{
		{Name: MetricDeltaSentiment, Weight: deltaWeight, Result: core.Derive(chain, func(ch core.OptionsChain) (core.Metric, core.Reason) {
			return deltaSentiment(ch, evaluated)
		})},
		{Name: MetricOISkew, Weight: skewWeight, Result: core.Derive(chain, oiSkew)},
		{Name: MetricAvgPOP, Result: core.Derive(chain, func(ch core.OptionsChain) (core.Metric, core.Reason) {
			return avgPOP(ch, evaluated)
		})},
		{Name: MetricContracts, Result: core.Derive(chain, func(ch core.OptionsChain) (core.Metric, core.Reason) {
			return core.Metric{Value: float64(len(ch.Contracts))}, ""
		})},
	}
	return analysis.Aggregate(core.CategoryOptions, weight, subs)
}

// deltaSentiment is the activity- and proximity-weighted balance of call
// versus put delta exposure.
func deltaSentiment(ch core.OptionsChain, contracts []Contract) (core.Metric, core.Reason) {
	if ch.UnderlyingPrice <= 0 {
		return core.Metric{}, core.ReasonInvalidInput
	}

	var num, den float64
	reason := core.ReasonInsufficientData
	for _, c := range contracts {
		if c.Reason != "" {
			reason = c.Reason
			continue
		}
		sign := 1.0
		if c.Type == core.OptionPut {
			sign = -1
		}
		activity := math.Max(float64(c.Volume+c.OpenInterest), 1)
		w := c.Weight(ch.UnderlyingPrice) * math.Abs(c.Delta) * activity
		num += sign * w
		den += w
	}
	if den == 0 {
		return core.Metric{}, reason
	}
	s := num / den
	return core.Metric{Value: s, Score: s}, ""
}

func oiSkew(ch core.OptionsChain) (core.Metric, core.Reason) {
	var calls, puts float64
	for _, c := range ch.Contracts {
		switch c.Type {
		case core.OptionCall:
			calls += float64(c.OpenInterest)
		case core.OptionPut:
			puts += float64(c.OpenInterest)
		}
	}
	total := calls + puts
	if total <= 0 {
		return core.Metric{}, core.ReasonInsufficientData
	}
	skew := (calls - puts) / total
	return core.Metric{Value: skew, Score: skew}, ""
}

func avgPOP(ch core.OptionsChain, contracts []Contract) (core.Metric, core.Reason) {
	var num, den float64
	for _, c := range contracts {
		if c.Reason != "" {
			continue
		}
		w := c.Weight(ch.UnderlyingPrice)
		num += w * c.POP
		den += w
	}
	if den == 0 || !analysis.Finite(num/den) {
		return core.Metric{}, core.ReasonInsufficientData
	}
	return core.Metric{Value: num / den}, ""
}
