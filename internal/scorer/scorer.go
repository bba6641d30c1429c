// Package scorer combines category scores into a composite decision.
package scorer

import (
	"fmt"

	"github.com/newthinker/signalforge/internal/core"
)

// tolerance keeps values at a threshold from flipping on float error
const tolerance = 1e-9

// Weights holds the per-category composite weights
type Weights struct {
	Technical   float64 `mapstructure:"technical"`
	Fundamental float64 `mapstructure:"fundamental"`
	Options     float64 `mapstructure:"options"`
	SmartMoney  float64 `mapstructure:"smart_money"`
}

// DefaultWeights returns the documented default weighting
func DefaultWeights() Weights {
	return Weights{Technical: 0.3, Fundamental: 0.3, Options: 0.2, SmartMoney: 0.2}
}

// Of returns the weight for a category
func (w Weights) Of(c core.Category) float64 {
	switch c {
	case core.CategoryTechnical:
		return w.Technical
	case core.CategoryFundamental:
		return w.Fundamental
	case core.CategoryOptions:
		return w.Options
	case core.CategorySmartMoney:
		return w.SmartMoney
	}
	return 0
}

// Sum returns the total weight
func (w Weights) Sum() float64 {
	return w.Technical + w.Fundamental + w.Options + w.SmartMoney
}

// Thresholds map the composite score to a decision
type Thresholds struct {
	Buy  float64 `mapstructure:"buy"`
	Sell float64 `mapstructure:"sell"`
}

// DefaultThresholds returns +0.2 / -0.2
func DefaultThresholds() Thresholds {
	return Thresholds{Buy: 0.2, Sell: -0.2}
}

// Validate checks the thresholds are ordered and within [-1, 1]
func (t Thresholds) Validate() error {
	if t.Buy > 1 || t.Buy < -1 || t.Sell > 1 || t.Sell < -1 {
		return fmt.Errorf("thresholds must be within [-1, 1], got buy=%g sell=%g", t.Buy, t.Sell)
	}
	if t.Buy <= t.Sell {
		return fmt.Errorf("buy threshold %g must be greater than sell threshold %g", t.Buy, t.Sell)
	}
	return nil
}

// Decide maps a composite score to a decision. Values at a threshold are Hold.
func (t Thresholds) Decide(composite float64) core.Decision {
	switch {
	case composite > t.Buy+tolerance:
		return core.DecisionBuy
	case composite < t.Sell-tolerance:
		return core.DecisionSell
	default:
		return core.DecisionHold
	}
}

// Result is the scored outcome of one set of categories
type Result struct {
	Decision   core.Decision
	Composite  float64
	Confidence float64
}

// Scorer is stateless; safe for concurrent use
type Scorer struct {
	thresholds Thresholds
}

// New creates a scorer
func New(thresholds Thresholds) *Scorer {
	return &Scorer{thresholds: thresholds}
}

// Score combines categories. The composite is the confidence-weighted mean
// over contributing categories; with none contributing the result is Hold
// with zero composite and confidence.
func (s *Scorer) Score(categories []core.CategoryScore) Result {
	var num, den, confNum, weightSum float64
	for _, cs := range categories {
		if cs.Weight <= 0 {
			continue
		}
		weightSum += cs.Weight
		confNum += cs.Weight * cs.Confidence
		if !cs.Contributes() {
			continue
		}
		wc := cs.Weight * cs.Confidence
		num += cs.NormalizedScore * wc
		den += wc
	}

	if den == 0 {
		return Result{Decision: core.DecisionHold}
	}

	composite := num / den
	if composite > 1 {
		composite = 1
	} else if composite < -1 {
		composite = -1
	}

	r := Result{Composite: composite, Decision: s.thresholds.Decide(composite)}
	if weightSum > 0 {
		r.Confidence = confNum / weightSum
	}
	return r
}

// Contribution is one category's share of the composite
type Contribution struct {
	Category core.Category
	Share    float64 // normalizedScore * weight * confidence / sum(weight * confidence)
}

// Breakdown returns each category's contribution to the composite, in input order
func (s *Scorer) Breakdown(categories []core.CategoryScore) []Contribution {
	var den float64
	for _, cs := range categories {
		if cs.Contributes() {
			den += cs.Weight * cs.Confidence
		}
	}

	out := make([]Contribution, 0, len(categories))
	for _, cs := range categories {
		c := Contribution{Category: cs.Category}
		if den > 0 && cs.Contributes() {
			c.Share = cs.NormalizedScore * cs.Weight * cs.Confidence / den
		}
		out = append(out, c)
	}
	return out
}
