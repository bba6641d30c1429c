package yahoo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/newthinker/signalforge/internal/core"
	"github.com/newthinker/signalforge/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYahoo_ImplementsAdapter(t *testing.T) {
	var _ provider.Adapter = (*Yahoo)(nil)
}

func TestYahoo_ID(t *testing.T) {
	y := New()
	if y.ID() != "yahoo" {
		t.Errorf("expected 'yahoo', got '%s'", y.ID())
	}
}

func TestYahoo_Supports(t *testing.T) {
	y := New()
	for _, c := range []provider.Category{provider.PriceHistory, provider.Fundamentals, provider.OptionsChain, provider.Insider, provider.Institutional} {
		assert.True(t, y.Supports(c), "expected support for %s", c)
	}
	assert.False(t, y.Supports(provider.Congress))
}

func TestYahoo_ToYahooSymbol(t *testing.T) {
	tests := []struct {
		input    core.Ticker
		expected string
	}{
		{"AAPL", "AAPL"},
		{"0700.HK", "0700.HK"},
		{"600519.SH", "600519.SS"}, // Shanghai -> SS for Yahoo
		{"BRK.B", "BRK-B"},
		{"VOD.L", "VOD.L"},
	}

	for _, tc := range tests {
		got := toYahooSymbol(tc.input)
		if got != tc.expected {
			t.Errorf("toYahooSymbol(%s) = %s, want %s", tc.input, got, tc.expected)
		}
	}
}

func TestClassifyTransaction(t *testing.T) {
	tests := []struct {
		text      string
		buy, sell bool
	}{
		{"Purchase at price 180.00 per share.", true, false},
		{"Sale at price 190.12 per share.", false, true},
		{"Stock Award(Grant) at price 0.00 per share.", false, false},
		{"", false, false},
	}
	for _, tc := range tests {
		buy, sell := ClassifyTransaction(tc.text)
		assert.Equal(t, tc.buy, buy, tc.text)
		assert.Equal(t, tc.sell, sell, tc.text)
	}
}

func newTestServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path
		if d := r.URL.Query().Get("date"); d != "" {
			key += "?date=" + d
		}
		body, ok := routes[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestYahoo(server *httptest.Server, opts ...Option) *Yahoo {
	opts = append([]Option{WithBaseURL(server.URL), WithClientOptions(provider.WithRateLimit(0))}, opts...)
	return New(opts...)
}

func TestYahoo_FetchHistory(t *testing.T) {
	server := newTestServer(t, map[string]string{
		"/v8/finance/chart/AAPL": `{"chart":{"result":[{
			"meta":{"symbol":"AAPL","shortName":"Apple Inc.","regularMarketPrice":190},
			"timestamp":[1700172800,1700000000,1700086400],
			"indicators":{
				"quote":[{"open":[3,1,null],"high":[3.5,1.5,null],"low":[2.5,0.5,null],"close":[3.2,1.2,null],"volume":[300,100,null]}],
				"adjclose":[{"adjclose":[3.1,1.1,null]}]
			}}],"error":null}}`,
	})

	y := newTestYahoo(server)
	got, err := y.Fetch(context.Background(), "AAPL", provider.PriceHistory)
	require.NoError(t, err)

	series, ok := got.(core.PriceSeries)
	require.True(t, ok)
	require.Equal(t, 2, series.Len())
	assert.NoError(t, series.Validate())
	assert.Equal(t, 1.2, series.Bars[0].Close)
	assert.Equal(t, 3.2, series.Bars[1].Close)
	assert.Equal(t, int64(300), series.Bars[1].Volume)
	assert.Equal(t, 3.1, series.Bars[1].AdjClose)
	assert.Equal(t, "Apple Inc.", series.Info.ShortName)
}

func TestYahoo_FetchHistory_NotFound(t *testing.T) {
	server := newTestServer(t, map[string]string{
		"/v8/finance/chart/NOPE": `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`,
	})

	y := newTestYahoo(server)
	_, err := y.Fetch(context.Background(), "NOPE", provider.PriceHistory)

	u, ok := provider.AsUnavailable(err)
	require.True(t, ok)
	assert.Equal(t, core.ReasonNotFound, u.Reason)
}

func optionQuotesJSON(n int, baseOI int) string {
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = fmt.Sprintf(`{"strike":%d,"lastPrice":1.5,"volume":10,"openInterest":%d,"impliedVolatility":0.3}`, 100+i, baseOI+i)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func TestYahoo_FetchOptions(t *testing.T) {
	page := func(exp int64, calls, puts string) string {
		return fmt.Sprintf(`{"optionChain":{"result":[{"underlyingSymbol":"AAPL","expirationDates":[1700000000,1700604800,1701209600],
			"quote":{"regularMarketPrice":110},
			"options":[{"expirationDate":%d,"calls":%s,"puts":%s}]}],"error":null}}`, exp, calls, puts)
	}
	server := newTestServer(t, map[string]string{
		"/v7/finance/options/AAPL":                 page(1700000000, optionQuotesJSON(20, 1000), optionQuotesJSON(3, 50)),
		"/v7/finance/options/AAPL?date=1700604800": page(1700604800, optionQuotesJSON(2, 10), optionQuotesJSON(2, 10)),
	})

	y := newTestYahoo(server, WithExpiries(2))
	got, err := y.Fetch(context.Background(), "AAPL", provider.OptionsChain)
	require.NoError(t, err)

	chain := got.(core.OptionsChain)
	assert.Equal(t, 110.0, chain.UnderlyingPrice)
	// 15 calls + 3 puts from the first expiry, 2 + 2 from the second
	require.Len(t, chain.Contracts, 22)

	first := chain.Contracts[0]
	assert.Equal(t, core.OptionCall, first.Type)
	assert.Equal(t, int64(1019), first.OpenInterest, "calls are sorted by open interest descending")

	for _, c := range chain.Contracts[:15] {
		assert.GreaterOrEqual(t, c.OpenInterest, int64(1005), "lowest open interest calls are dropped")
	}
}

func TestYahoo_FetchOptions_SingleExpiryByDefault(t *testing.T) {
	server := newTestServer(t, map[string]string{
		"/v7/finance/options/AAPL": `{"optionChain":{"result":[{"expirationDates":[1700000000,1700604800],
			"quote":{"regularMarketPrice":110},
			"options":[{"expirationDate":1700000000,"calls":[{"strike":110,"openInterest":5,"impliedVolatility":0.2}],"puts":[]}]}]}}`,
	})

	y := newTestYahoo(server)
	got, err := y.Fetch(context.Background(), "AAPL", provider.OptionsChain)
	require.NoError(t, err)
	assert.Len(t, got.(core.OptionsChain).Contracts, 1)
}

func TestYahoo_FetchFundamentals(t *testing.T) {
	server := newTestServer(t, map[string]string{
		"/v10/finance/quoteSummary/AAPL": `{"quoteSummary":{"result":[{
			"defaultKeyStatistics":{"trailingEps":{"raw":6.1,"fmt":"6.10"},"pegRatio":{"raw":2.4}},
			"financialData":{"totalRevenue":{"raw":383000000000},"freeCashflow":{"raw":99000000000},"grossMargins":{"raw":0.44}},
			"summaryDetail":{"trailingPE":{"raw":29.5},"marketCap":{"raw":2900000000000}},
			"earnings":{
				"earningsChart":{"quarterly":[{"date":"4Q2023","actual":{"raw":2.18}},{"date":"1Q2024","actual":{"raw":1.53}},{"date":"2Q2024","actual":{"raw":1.40}},{"date":"3Q2024","actual":{"raw":1.64}}]},
				"financialsChart":{"quarterly":[{"date":"4Q2023","revenue":{"raw":119}},{"date":"1Q2024","revenue":{"raw":90}}]}
			}}],"error":null}}`,
	})

	y := newTestYahoo(server)
	got, err := y.Fetch(context.Background(), "AAPL", provider.Fundamentals)
	require.NoError(t, err)

	f := got.(core.Fundamentals)
	require.NotNil(t, f.EPS)
	assert.Equal(t, 6.1, *f.EPS)
	require.NotNil(t, f.PERatio)
	assert.Equal(t, 29.5, *f.PERatio)
	assert.Nil(t, f.EBITDA)
	assert.Equal(t, []float64{1.64, 1.40, 1.53, 2.18}, f.QuarterlyEPS, "quarterly EPS is newest first")
	assert.Equal(t, []float64{90, 119}, f.QuarterlyRevenue)
}

func TestYahoo_FetchInsiderAndInstitutional(t *testing.T) {
	server := newTestServer(t, map[string]string{
		"/v10/finance/quoteSummary/AAPL": `{"quoteSummary":{"result":[{
			"insiderTransactions":{"transactions":[
				{"filerName":"COOK TIMOTHY D","transactionText":"Sale at price 190.00 per share.","shares":{"raw":50000},"startDate":{"raw":1700000000}},
				{"filerName":"LEVINSON ARTHUR D","transactionText":"Purchase at price 180.00 per share.","shares":{"raw":1000},"startDate":{"raw":1700086400}}
			]},
			"institutionOwnership":{"ownershipList":[
				{"organization":"Vanguard Group Inc","reportDate":{"raw":1700000000},"position":{"raw":1300000000},"pctChange":{"raw":0.012}}
			]}}]}}`,
	})

	y := newTestYahoo(server)

	got, err := y.Fetch(context.Background(), "AAPL", provider.Insider)
	require.NoError(t, err)
	txs := got.([]core.InsiderTransaction)
	require.Len(t, txs, 2)
	assert.True(t, txs[0].Sell)
	assert.True(t, txs[1].Buy)
	assert.Equal(t, int64(1000), txs[1].Shares)

	got, err = y.Fetch(context.Background(), "AAPL", provider.Institutional)
	require.NoError(t, err)
	holders := got.([]core.InstitutionalHolder)
	require.Len(t, holders, 1)
	assert.Equal(t, "Vanguard Group Inc", holders[0].Holder)
	assert.InDelta(t, 0.012, holders[0].Change, 1e-12)
}

func TestYahoo_FetchUnsupported(t *testing.T) {
	y := New()
	_, err := y.Fetch(context.Background(), "AAPL", provider.Congress)

	u, ok := provider.AsUnavailable(err)
	require.True(t, ok)
	assert.Equal(t, core.ReasonNotFound, u.Reason)
}
