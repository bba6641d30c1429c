package options

import (
	"math"
	"testing"
	"time"

	"github.com/newthinker/signalforge/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var evalDate = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

func TestNormCDF(t *testing.T) {
	assert.InDelta(t, 0.5, NormCDF(0), 1e-15)
	assert.InDelta(t, 0.841344746, NormCDF(1), 1e-9)
	assert.InDelta(t, 1-NormCDF(1.7), NormCDF(-1.7), 1e-15)
}

func TestDelta_PutCallParity(t *testing.T) {
	cases := []Inputs{
		{Spot: 100, Strike: 100, Rate: 0.045, Vol: 0.25, T: 30.0 / 365},
		{Spot: 100, Strike: 120, Rate: 0.01, Vol: 0.6, T: 1},
		{Spot: 50, Strike: 40, Rate: 0, Vol: 0.15, T: 0.1},
	}
	for _, in := range cases {
		call, ok1 := Delta(in, core.OptionCall)
		put, ok2 := Delta(in, core.OptionPut)
		require.True(t, ok1 && ok2)
		assert.InDelta(t, 1, call-put, 1e-12)
		assert.Greater(t, call, 0.0)
		assert.Less(t, put, 0.0)
	}
}

func TestDelta_AtTheMoneyLimit(t *testing.T) {
	for _, scale := range []float64{1e-2, 1e-4, 1e-6} {
		in := Inputs{Spot: 100, Strike: 100, Rate: 0, Vol: scale, T: scale}
		d, ok := Delta(in, core.OptionCall)
		require.True(t, ok)
		assert.InDelta(t, 0.5, d, 1e-3, "scale %g", scale)
	}
}

func TestDelta_KnownValue(t *testing.T) {
	// S=100 K=100 r=5% sigma=20% T=1: d1 = 0.35, N(d1) ~ 0.6368
	d, ok := Delta(Inputs{Spot: 100, Strike: 100, Rate: 0.05, Vol: 0.2, T: 1}, core.OptionCall)
	require.True(t, ok)
	assert.InDelta(t, 0.63683, d, 1e-4)
}

func TestDegenerateInputs(t *testing.T) {
	bad := []Inputs{
		{Spot: 100, Strike: 100, Vol: 0.2, T: 0},
		{Spot: 100, Strike: 100, Vol: 0.2, T: -1},
		{Spot: 100, Strike: 100, Vol: 0, T: 1},
		{Spot: 100, Strike: 100, Vol: -0.1, T: 1},
		{Spot: 0, Strike: 100, Vol: 0.2, T: 1},
	}
	for _, in := range bad {
		_, ok := Delta(in, core.OptionCall)
		assert.False(t, ok, "%+v", in)
		_, ok = POP(in, core.OptionPut, Short)
		assert.False(t, ok, "%+v", in)
	}
}

func TestPOP_SidesAndTypes(t *testing.T) {
	in := Inputs{Spot: 100, Strike: 110, Rate: 0.045, Vol: 0.3, T: 45.0 / 365}
	_, d2, ok := D1D2(in)
	require.True(t, ok)

	shortCall, _ := POP(in, core.OptionCall, Short)
	longCall, _ := POP(in, core.OptionCall, Long)
	shortPut, _ := POP(in, core.OptionPut, Short)
	longPut, _ := POP(in, core.OptionPut, Long)

	assert.InDelta(t, NormCDF(-d2), shortCall, 1e-12)
	assert.InDelta(t, NormCDF(d2), longCall, 1e-12)
	assert.InDelta(t, NormCDF(d2), shortPut, 1e-12)
	assert.InDelta(t, NormCDF(-d2), longPut, 1e-12)
	assert.InDelta(t, 1, shortCall+longCall, 1e-12)

	// Selling an out-of-the-money call is more likely profitable than not
	assert.Greater(t, shortCall, 0.5)
}

func contract(typ core.OptionType, strike float64, days int, iv float64, oi int64) core.OptionContract {
	return core.OptionContract{
		Strike:            strike,
		Expiry:            evalDate.AddDate(0, 0, days),
		Type:              typ,
		ImpliedVolatility: iv,
		OpenInterest:      oi,
		Volume:            oi / 10,
	}
}

func TestEvaluate_FlagsBadContracts(t *testing.T) {
	chain := core.OptionsChain{UnderlyingPrice: 100, Contracts: []core.OptionContract{
		contract(core.OptionCall, 100, 30, 0.25, 100),
		contract(core.OptionCall, 100, 30, 6, 100),
		contract(core.OptionPut, 100, 30, 0, 100),
		contract(core.OptionPut, 100, -1, 0.25, 100),
	}}

	got := Evaluate(chain, Config{RiskFreeRate: DefaultRiskFreeRate, Now: evalDate})
	require.Len(t, got, 4)

	assert.Empty(t, got[0].Reason)
	assert.InDelta(t, 30, got[0].Days, 1e-9)
	assert.Greater(t, got[0].Delta, 0.5)
	assert.Equal(t, core.ReasonInvalidInput, got[1].Reason)
	assert.Equal(t, core.ReasonInvalidInput, got[2].Reason)
	assert.Equal(t, core.ReasonDegenerateInput, got[3].Reason)
}

func TestAnalyze_CallHeavyChainIsBullish(t *testing.T) {
	chain := core.OptionsChain{UnderlyingPrice: 100, Contracts: []core.OptionContract{
		contract(core.OptionCall, 100, 14, 0.3, 5000),
		contract(core.OptionCall, 105, 14, 0.3, 3000),
		contract(core.OptionPut, 95, 14, 0.3, 500),
		contract(core.OptionPut, 60, 90, 0.5, 20000), // far and long dated, low weight
	}}

	cs := Analyze(core.Resolved(chain, "yahoo"), 0.2, Config{RiskFreeRate: DefaultRiskFreeRate, Now: evalDate})

	assert.Equal(t, core.CategoryOptions, cs.Category)
	assert.Equal(t, 1.0, cs.Confidence)

	ds := cs.Metrics[MetricDeltaSentiment]
	require.True(t, ds.Available())
	assert.Greater(t, ds.Value.Score, 0.5)

	skew := cs.Metrics[MetricOISkew]
	require.True(t, skew.Available())
	assert.InDelta(t, (8000.0-20500.0)/28500.0, skew.Value.Score, 1e-12)

	pop := cs.Metrics[MetricAvgPOP]
	require.True(t, pop.Available())
	assert.Greater(t, pop.Value.Value, 0.0)
	assert.Less(t, pop.Value.Value, 1.0)

	assert.Equal(t, 4.0, cs.Metrics[MetricContracts].Value.Value)
	assert.False(t, math.IsNaN(cs.NormalizedScore))
}

func TestAnalyze_AllContractsInvalid(t *testing.T) {
	chain := core.OptionsChain{UnderlyingPrice: 100, Contracts: []core.OptionContract{
		contract(core.OptionCall, 100, 10, 9, 0),
	}}

	cs := Analyze(core.Resolved(chain, "yahoo"), 0.2, Config{Now: evalDate})

	assert.Equal(t, core.ReasonInvalidInput, cs.Metrics[MetricDeltaSentiment].Reason)
	assert.Equal(t, core.ReasonInsufficientData, cs.Metrics[MetricOISkew].Reason)
	assert.Equal(t, 0.0, cs.Confidence)
}

func TestAnalyze_Unresolved(t *testing.T) {
	cs := Analyze(core.Unresolved[core.OptionsChain](core.ReasonNotFound, core.Attempt{Provider: "yahoo", Reason: core.ReasonNotFound}), 0.2, Config{Now: evalDate})

	assert.Equal(t, 0.0, cs.Confidence)
	assert.Equal(t, core.ReasonNotResolved, cs.Metrics[MetricDeltaSentiment].Reason)
}
