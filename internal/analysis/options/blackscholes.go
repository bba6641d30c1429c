package options

import (
	"math"

	"github.com/newthinker/signalforge/internal/core"
)

// Side is the position side used for probability of profit
type Side string

const (
	Short Side = "short" // option seller
	Long  Side = "long"  // option buyer
)

// Inputs is one Black-Scholes evaluation. T is in years, Rate and Vol are annualized.
type Inputs struct {
	Spot   float64
	Strike float64
	Rate   float64
	Vol    float64
	T      float64
}

// NormCDF is the standard normal cumulative distribution
func NormCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

// D1D2 returns the Black-Scholes d1 and d2 terms, or false for degenerate
// inputs (non-positive T, volatility, spot or strike).
func D1D2(in Inputs) (d1, d2 float64, ok bool) {
	if in.T <= 0 || in.Vol <= 0 || in.Spot <= 0 || in.Strike <= 0 {
		return 0, 0, false
	}
	volT := in.Vol * math.Sqrt(in.T)
	d1 = (math.Log(in.Spot/in.Strike) + (in.Rate+in.Vol*in.Vol/2)*in.T) / volT
	d2 = d1 - volT
	if math.IsNaN(d1) || math.IsNaN(d2) {
		return 0, 0, false
	}
	return d1, d2, true
}

// Delta is N(d1) for calls and N(d1) - 1 for puts
func Delta(in Inputs, typ core.OptionType) (float64, bool) {
	d1, _, ok := D1D2(in)
	if !ok {
		return 0, false
	}
	if typ == core.OptionPut {
		return NormCDF(d1) - 1, true
	}
	return NormCDF(d1), true
}

// POP is the risk-neutral probability of profit at expiry, approximated by
// the probability of finishing out of the money for the seller and in the
// money for the buyer.
func POP(in Inputs, typ core.OptionType, side Side) (float64, bool) {
	_, d2, ok := D1D2(in)
	if !ok {
		return 0, false
	}
	// N(d2) is the risk-neutral probability that a call finishes in the money
	itm := NormCDF(d2)
	if typ == core.OptionPut {
		itm = NormCDF(-d2)
	}
	if side == Long {
		return itm, true
	}
	return 1 - itm, true
}
