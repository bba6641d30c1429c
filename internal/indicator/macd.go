package indicator

// MACDResult holds aligned MACD, signal and histogram series. All three
// slices end at the last input price.
type MACDResult struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// MACDMinBars returns the number of prices needed for one histogram value
func MACDMinBars(fast, slow, signal int) int {
	return max(fast, slow) + signal - 1
}

// MACD calculates EMA(fast) - EMA(slow) and its EMA(signal) signal line.
// Returns empty slices when there is not enough data.
func MACD(prices []float64, fast, slow, signal int) MACDResult {
	if len(prices) < MACDMinBars(fast, slow, signal) {
		return MACDResult{}
	}

	fastEMA := EMA(prices, fast)
	slowEMA := EMA(prices, slow)

	// Align on the slow series: both end at the last price
	offset := len(fastEMA) - len(slowEMA)
	line := make([]float64, len(slowEMA))
	for i := range slowEMA {
		line[i] = fastEMA[i+offset] - slowEMA[i]
	}

	sig := EMA(line, signal)
	line = line[len(line)-len(sig):]

	hist := make([]float64, len(sig))
	for i := range sig {
		hist[i] = line[i] - sig[i]
	}

	return MACDResult{MACD: line, Signal: sig, Histogram: hist}
}
