package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/newthinker/signalforge/internal/core"
	"github.com/newthinker/signalforge/internal/provider"
)

// fetchHistory fetches daily OHLCV bars
func (y *Yahoo) fetchHistory(ctx context.Context, ticker core.Ticker, symbol string) (core.PriceSeries, error) {
	u := fmt.Sprintf("%s/%s?interval=1d&range=%s", y.chartURL, url.PathEscape(symbol), y.historyRng)

	var result chartResponse
	if err := y.client.GetJSON(ctx, provider.PriceHistory, u, &result); err != nil {
		return core.PriceSeries{}, err
	}

	if result.Chart.Error != nil {
		return core.PriceSeries{}, provider.NewUnavailable(ID, provider.PriceHistory, result.Chart.Error.reason(),
			fmt.Errorf("yahoo error: %s", result.Chart.Error.Description))
	}
	if len(result.Chart.Result) == 0 || len(result.Chart.Result[0].Indicators.Quote) == 0 {
		return core.PriceSeries{}, provider.NewUnavailable(ID, provider.PriceHistory, core.ReasonNotFound,
			fmt.Errorf("no data for symbol: %s", symbol))
	}

	r := result.Chart.Result[0]
	q := r.Indicators.Quote[0]
	var adj []*float64
	if len(r.Indicators.AdjClose) > 0 {
		adj = r.Indicators.AdjClose[0].AdjClose
	}

	bars := make([]core.Bar, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		c := at(q.Close, i)
		if c == nil || *c <= 0 {
			continue // Skip missing data
		}
		bar := core.Bar{
			Time:  time.Unix(ts, 0).UTC(),
			Open:  deref(at(q.Open, i)),
			High:  deref(at(q.High, i)),
			Low:   deref(at(q.Low, i)),
			Close: *c,
		}
		if v := at(q.Volume, i); v != nil {
			bar.Volume = int64(*v)
		}
		if a := at(adj, i); a != nil {
			bar.AdjClose = *a
		}
		bars = append(bars, bar)
	}

	if len(bars) == 0 {
		return core.PriceSeries{}, provider.NewUnavailable(ID, provider.PriceHistory, core.ReasonNotFound,
			fmt.Errorf("no bars for symbol: %s", symbol))
	}

	series := core.NewPriceSeries(ticker, bars)
	series.Info = core.CompanyInfo{ShortName: r.Meta.ShortName}
	return series, nil
}

func at[T any](s []*T, i int) *T {
	if i < 0 || i >= len(s) {
		return nil
	}
	return s[i]
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// Yahoo chart response types
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *yahooError   `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta       chartMeta  `json:"meta"`
	Timestamp  []int64    `json:"timestamp"`
	Indicators indicators `json:"indicators"`
}

type chartMeta struct {
	Symbol             string  `json:"symbol"`
	ShortName          string  `json:"shortName"`
	RegularMarketPrice float64 `json:"regularMarketPrice"`
}

type indicators struct {
	Quote    []quoteIndicator `json:"quote"`
	AdjClose []struct {
		AdjClose []*float64 `json:"adjclose"`
	} `json:"adjclose"`
}

type quoteIndicator struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*float64 `json:"volume"`
}
