package indicator

import "math"

// Bands is one Bollinger band reading
type Bands struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// Width returns (upper - lower) / middle, or false when middle is zero
func (b Bands) Width() (float64, bool) {
	if b.Middle == 0 {
		return 0, false
	}
	return (b.Upper - b.Lower) / b.Middle, true
}

// StdDev calculates the population standard deviation of the last period prices
func StdDev(prices []float64, period int) (float64, bool) {
	if period <= 0 || len(prices) < period {
		return 0, false
	}
	window := prices[len(prices)-period:]

	var mean float64
	for _, p := range window {
		mean += p
	}
	mean /= float64(period)

	var variance float64
	for _, p := range window {
		d := p - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(period)), true
}

// Bollinger calculates bands over the last period prices with k standard deviations
func Bollinger(prices []float64, period int, k float64) (Bands, bool) {
	sd, ok := StdDev(prices, period)
	if !ok {
		return Bands{}, false
	}
	sma := SMA(prices[len(prices)-period:], period)
	mid := sma[0]
	return Bands{Upper: mid + k*sd, Middle: mid, Lower: mid - k*sd}, true
}
