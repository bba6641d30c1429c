package alphavantage

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/newthinker/signalforge/internal/core"
	"github.com/newthinker/signalforge/internal/provider"
)

const quarters = 4

// fetchFundamentals combines OVERVIEW, EARNINGS and CASH_FLOW
func (a *AlphaVantage) fetchFundamentals(ctx context.Context, symbol string) (core.Fundamentals, error) {
	var ov overview
	if err := a.query(ctx, provider.Fundamentals, "OVERVIEW", symbol, nil, &ov); err != nil {
		return core.Fundamentals{}, err
	}
	if ov.Symbol == "" {
		return core.Fundamentals{}, provider.NewUnavailable(ID, provider.Fundamentals, core.ReasonNotFound,
			fmt.Errorf("no overview for symbol: %s", symbol))
	}

	var earnings earningsResponse
	if err := a.query(ctx, provider.Fundamentals, "EARNINGS", symbol, nil, &earnings); err != nil {
		return core.Fundamentals{}, err
	}
	var cash cashFlowResponse
	if err := a.query(ctx, provider.Fundamentals, "CASH_FLOW", symbol, nil, &cash); err != nil {
		return core.Fundamentals{}, err
	}

	f := core.Fundamentals{
		EPS:          number(ov.EPS),
		Revenue:      number(ov.RevenueTTM),
		EBITDA:       number(ov.EBITDA),
		PERatio:      number(ov.PERatio),
		PriceToSales: number(ov.PriceToSalesRatioTTM),
		MarketCap:    number(ov.MarketCapitalization),
		PEGRatio:     number(ov.PEGRatio),
	}
	if v := number(ov.OperatingMarginTTM); v != nil {
		f.OperatingMargin = v
	}
	if gp, rev := number(ov.GrossProfitTTM), f.Revenue; gp != nil && rev != nil && *rev != 0 {
		f.GrossMargin = core.Float(*gp / *rev)
	}
	if pm, rev := number(ov.ProfitMargin), f.Revenue; pm != nil && rev != nil {
		f.NetIncome = core.Float(*pm * *rev)
	}

	// Reports are newest first
	for _, q := range earnings.QuarterlyEarnings {
		if len(f.QuarterlyEPS) == quarters {
			break
		}
		if v := number(q.ReportedEPS); v != nil {
			f.QuarterlyEPS = append(f.QuarterlyEPS, *v)
		}
	}

	if len(cash.QuarterlyReports) >= quarters {
		var fcf float64
		complete := true
		for _, r := range cash.QuarterlyReports[:quarters] {
			op, capex := number(r.OperatingCashflow), number(r.CapitalExpenditures)
			if op == nil || capex == nil {
				complete = false
				break
			}
			fcf += *op - *capex
		}
		if complete {
			f.FreeCashFlow = core.Float(fcf)
		}
	}

	return f, nil
}

// fetchHistory fetches the full daily series
func (a *AlphaVantage) fetchHistory(ctx context.Context, ticker core.Ticker) (core.PriceSeries, error) {
	var ts timeSeriesResponse
	if err := a.query(ctx, provider.PriceHistory, "TIME_SERIES_DAILY", ticker.String(), url.Values{"outputsize": {"full"}}, &ts); err != nil {
		return core.PriceSeries{}, err
	}

	bars := make([]core.Bar, 0, len(ts.Series))
	for date, d := range ts.Series {
		t, err := time.Parse("2006-01-02", date)
		if err != nil {
			continue
		}
		c := number(d.Close)
		if c == nil || *c <= 0 {
			continue
		}
		bar := core.Bar{Time: t, Close: *c}
		if v := number(d.Open); v != nil {
			bar.Open = *v
		}
		if v := number(d.High); v != nil {
			bar.High = *v
		}
		if v := number(d.Low); v != nil {
			bar.Low = *v
		}
		if v := number(d.Volume); v != nil {
			bar.Volume = int64(*v)
		}
		bars = append(bars, bar)
	}

	if len(bars) == 0 {
		return core.PriceSeries{}, provider.NewUnavailable(ID, provider.PriceHistory, core.ReasonNotFound,
			fmt.Errorf("no bars for symbol: %s", ticker))
	}
	return core.NewPriceSeries(ticker, bars), nil
}

// Alpha Vantage response types. Every number is string encoded.
type overview struct {
	Symbol               string `json:"Symbol"`
	Name                 string `json:"Name"`
	Sector               string `json:"Sector"`
	EPS                  string `json:"EPS"`
	RevenueTTM           string `json:"RevenueTTM"`
	GrossProfitTTM       string `json:"GrossProfitTTM"`
	ProfitMargin         string `json:"ProfitMargin"`
	OperatingMarginTTM   string `json:"OperatingMarginTTM"`
	EBITDA               string `json:"EBITDA"`
	PERatio              string `json:"PERatio"`
	PEGRatio             string `json:"PEGRatio"`
	PriceToSalesRatioTTM string `json:"PriceToSalesRatioTTM"`
	MarketCapitalization string `json:"MarketCapitalization"`
}

type earningsResponse struct {
	QuarterlyEarnings []struct {
		FiscalDateEnding string `json:"fiscalDateEnding"`
		ReportedEPS      string `json:"reportedEPS"`
	} `json:"quarterlyEarnings"`
}

type cashFlowResponse struct {
	QuarterlyReports []struct {
		FiscalDateEnding    string `json:"fiscalDateEnding"`
		OperatingCashflow   string `json:"operatingCashflow"`
		CapitalExpenditures string `json:"capitalExpenditures"`
	} `json:"quarterlyReports"`
}

type timeSeriesResponse struct {
	Series map[string]struct {
		Open   string `json:"1. open"`
		High   string `json:"2. high"`
		Low    string `json:"3. low"`
		Close  string `json:"4. close"`
		Volume string `json:"5. volume"`
	} `json:"Time Series (Daily)"`
}
