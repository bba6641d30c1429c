// Package indicator implements the moving-average family of price indicators.
package indicator

// SMA calculates Simple Moving Average.
// Returns slice of length len(prices) - period + 1, empty when there is not enough data.
func SMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return []float64{}
	}

	result := make([]float64, 0, len(prices)-period+1)

	var sum float64
	for i := 0; i < period; i++ {
		sum += prices[i]
	}
	result = append(result, sum/float64(period))

	// Rolling window
	for i := period; i < len(prices); i++ {
		sum = sum - prices[i-period] + prices[i]
		result = append(result, sum/float64(period))
	}

	return result
}

// SMATail returns the last n SMA values, oldest first, or false when fewer exist
func SMATail(prices []float64, period, n int) ([]float64, bool) {
	if n <= 0 || len(prices) < period+n-1 {
		return nil, false
	}
	sma := SMA(prices[len(prices)-(period+n-1):], period)
	return sma, len(sma) == n
}

// EMA calculates Exponential Moving Average with smoothing 2/(period+1),
// seeded by the SMA of the first period prices.
func EMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return []float64{}
	}

	result := make([]float64, 0, len(prices)-period+1)
	alpha := 2.0 / float64(period+1)

	var sum float64
	for i := 0; i < period; i++ {
		sum += prices[i]
	}
	ema := sum / float64(period)
	result = append(result, ema)

	for i := period; i < len(prices); i++ {
		ema += alpha * (prices[i] - ema)
		result = append(result, ema)
	}

	return result
}
