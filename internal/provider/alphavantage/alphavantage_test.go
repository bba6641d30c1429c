package alphavantage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/newthinker/signalforge/internal/core"
	"github.com/newthinker/signalforge/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAV(t *testing.T, functions map[string]string) *AlphaVantage {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "av-key", r.URL.Query().Get("apikey"))
		body, ok := functions[r.URL.Query().Get("function")]
		if !ok {
			body = `{}`
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return New("av-key", WithBaseURL(server.URL), WithClientOptions(provider.WithRateLimit(0)))
}

func TestAlphaVantage_ImplementsAdapter(t *testing.T) {
	var _ provider.Adapter = (*AlphaVantage)(nil)
}

func TestNumber(t *testing.T) {
	tests := []struct {
		in   string
		want *float64
	}{
		{"1.25", core.Float(1.25)},
		{"None", nil},
		{"-", nil},
		{"", nil},
		{"abc", nil},
	}
	for _, tc := range tests {
		got := number(tc.in)
		if tc.want == nil {
			assert.Nil(t, got, tc.in)
			continue
		}
		require.NotNil(t, got, tc.in)
		assert.Equal(t, *tc.want, *got)
	}
}

func TestAlphaVantage_FetchFundamentals(t *testing.T) {
	a := newTestAV(t, map[string]string{
		"OVERVIEW": `{"Symbol":"IBM","EPS":"6.43","RevenueTTM":"1000","GrossProfitTTM":"550","ProfitMargin":"0.1",
			"PERatio":"22.1","PEGRatio":"None","MarketCapitalization":"20000","OperatingMarginTTM":"0.15"}`,
		"EARNINGS": `{"symbol":"IBM","quarterlyEarnings":[
			{"fiscalDateEnding":"2024-09-30","reportedEPS":"2.30"},
			{"fiscalDateEnding":"2024-06-30","reportedEPS":"2.43"},
			{"fiscalDateEnding":"2024-03-31","reportedEPS":"1.68"},
			{"fiscalDateEnding":"2023-12-31","reportedEPS":"3.87"},
			{"fiscalDateEnding":"2023-09-30","reportedEPS":"2.20"}]}`,
		"CASH_FLOW": `{"symbol":"IBM","quarterlyReports":[
			{"operatingCashflow":"100","capitalExpenditures":"10"},
			{"operatingCashflow":"100","capitalExpenditures":"10"},
			{"operatingCashflow":"100","capitalExpenditures":"10"},
			{"operatingCashflow":"100","capitalExpenditures":"10"}]}`,
	})

	got, err := a.Fetch(context.Background(), "IBM", provider.Fundamentals)
	require.NoError(t, err)

	f := got.(core.Fundamentals)
	require.NotNil(t, f.PERatio)
	assert.Equal(t, 22.1, *f.PERatio)
	assert.Nil(t, f.PEGRatio)
	require.NotNil(t, f.GrossMargin)
	assert.InDelta(t, 0.55, *f.GrossMargin, 1e-12)
	assert.Equal(t, []float64{2.30, 2.43, 1.68, 3.87}, f.QuarterlyEPS)
	require.NotNil(t, f.FreeCashFlow)
	assert.Equal(t, 360.0, *f.FreeCashFlow)
}

func TestAlphaVantage_RateLimitNote(t *testing.T) {
	a := newTestAV(t, map[string]string{
		"OVERVIEW": `{"Note":"Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute."}`,
	})

	_, err := a.Fetch(context.Background(), "IBM", provider.Fundamentals)
	u, ok := provider.AsUnavailable(err)
	require.True(t, ok)
	assert.Equal(t, core.ReasonRateLimited, u.Reason)
}

func TestAlphaVantage_UnknownSymbol(t *testing.T) {
	a := newTestAV(t, map[string]string{
		"TIME_SERIES_DAILY": `{"Error Message":"Invalid API call."}`,
	})

	_, err := a.Fetch(context.Background(), "NOPE", provider.PriceHistory)
	u, ok := provider.AsUnavailable(err)
	require.True(t, ok)
	assert.Equal(t, core.ReasonNotFound, u.Reason)

	// Empty object for OVERVIEW
	_, err = a.Fetch(context.Background(), "NOPE", provider.Fundamentals)
	u, ok = provider.AsUnavailable(err)
	require.True(t, ok)
	assert.Equal(t, core.ReasonNotFound, u.Reason)
}

func TestAlphaVantage_FetchHistory(t *testing.T) {
	a := newTestAV(t, map[string]string{
		"TIME_SERIES_DAILY": `{"Meta Data":{"2. Symbol":"IBM"},"Time Series (Daily)":{
			"2024-01-03":{"1. open":"2","2. high":"2.5","3. low":"1.5","4. close":"2.2","5. volume":"200"},
			"2024-01-02":{"1. open":"1","2. high":"1.5","3. low":"0.5","4. close":"1.2","5. volume":"100"},
			"2024-01-04":{"1. open":"3","2. high":"3.5","3. low":"2.5","4. close":"0","5. volume":"300"}}}`,
	})

	got, err := a.Fetch(context.Background(), "IBM", provider.PriceHistory)
	require.NoError(t, err)

	series := got.(core.PriceSeries)
	require.Equal(t, 2, series.Len(), "non-positive closes are dropped")
	assert.NoError(t, series.Validate())
	assert.Equal(t, 1.2, series.Bars[0].Close)
	assert.Equal(t, int64(200), series.Bars[1].Volume)
}
