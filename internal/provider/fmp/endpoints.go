package fmp

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/newthinker/signalforge/internal/core"
	"github.com/newthinker/signalforge/internal/provider"
)

const quarters = 4

// fetchFundamentals combines profile, TTM key metrics and the last four
// quarterly income and cash flow statements.
func (f *FMP) fetchFundamentals(ctx context.Context, symbol string) (core.Fundamentals, error) {
	sym := url.PathEscape(symbol)
	quarterly := func() url.Values {
		return url.Values{"period": {"quarter"}, "limit": {fmt.Sprint(quarters)}}
	}

	var profiles []profile
	if err := f.getList(ctx, provider.Fundamentals, "/api/v3/profile/"+sym, nil, &profiles); err != nil {
		return core.Fundamentals{}, err
	}
	if len(profiles) == 0 {
		return core.Fundamentals{}, provider.NewUnavailable(ID, provider.Fundamentals, core.ReasonNotFound,
			fmt.Errorf("no profile for symbol: %s", symbol))
	}

	var metrics []keyMetricsTTM
	if err := f.getList(ctx, provider.Fundamentals, "/api/v3/key-metrics-ttm/"+sym, nil, &metrics); err != nil {
		return core.Fundamentals{}, err
	}
	var income []incomeStatement
	if err := f.getList(ctx, provider.Fundamentals, "/api/v3/income-statement/"+sym, quarterly(), &income); err != nil {
		return core.Fundamentals{}, err
	}
	var cash []cashFlowStatement
	if err := f.getList(ctx, provider.Fundamentals, "/api/v3/cash-flow-statement/"+sym, quarterly(), &cash); err != nil {
		return core.Fundamentals{}, err
	}

	p := profiles[0]
	out := core.Fundamentals{
		PERatio:   optional(p.PE),
		MarketCap: optional(p.MktCap),
	}

	if len(metrics) > 0 {
		m := metrics[0]
		if out.PERatio == nil {
			out.PERatio = optional(m.PERatioTTM)
		}
		if out.MarketCap == nil {
			out.MarketCap = optional(m.MarketCapTTM)
		}
		out.PriceToSales = optional(m.PriceToSalesRatioTTM)
		out.GrossMargin = optional(m.GrossProfitMarginTTM)
		out.OperatingMargin = optional(m.OperatingMarginTTM)
		out.FCFYield = optional(m.FreeCashFlowYieldTTM)
		out.PEGRatio = optional(m.PEGRatioTTM)
	}

	// Statements are newest first; TTM sums need all four quarters
	if len(income) > 0 {
		var eps, revenue, netIncome, ebitda float64
		for _, s := range income {
			out.QuarterlyEPS = append(out.QuarterlyEPS, s.EPS)
			out.QuarterlyRevenue = append(out.QuarterlyRevenue, s.Revenue)
			eps += s.EPS
			revenue += s.Revenue
			netIncome += s.NetIncome
			ebitda += s.EBITDA
		}
		if len(income) >= quarters {
			out.EPS = core.Float(eps)
			out.Revenue = core.Float(revenue)
			out.NetIncome = core.Float(netIncome)
			out.EBITDA = core.Float(ebitda)
		}
	}
	if len(cash) >= quarters {
		var fcf float64
		for _, s := range cash[:quarters] {
			fcf += s.FreeCashFlow
		}
		out.FreeCashFlow = core.Float(fcf)
	}

	return out, nil
}

// fetchInsider returns insider trades reported on Form 4
func (f *FMP) fetchInsider(ctx context.Context, symbol string) ([]core.InsiderTransaction, error) {
	var trades []insiderTrade
	if err := f.getList(ctx, provider.Insider, "/api/v4/insider-trading", url.Values{"symbol": {symbol}}, &trades); err != nil {
		return nil, err
	}

	txs := make([]core.InsiderTransaction, 0, len(trades))
	for _, t := range trades {
		date, err := time.Parse("2006-01-02", t.TransactionDate)
		if err != nil {
			continue
		}
		typ := strings.ToUpper(t.TransactionType)
		txs = append(txs, core.InsiderTransaction{
			Filer:  t.ReportingName,
			Date:   date,
			Shares: int64(t.SecuritiesTransacted),
			Buy:    strings.HasPrefix(typ, "P-"),
			Sell:   strings.HasPrefix(typ, "S-"),
			Text:   t.TransactionType,
		})
	}
	return txs, nil
}

// fetchInstitutional returns 13F institutional holders
func (f *FMP) fetchInstitutional(ctx context.Context, symbol string) ([]core.InstitutionalHolder, error) {
	var holders []institutionalHolder
	if err := f.getList(ctx, provider.Institutional, "/api/v3/institutional-holder/"+url.PathEscape(symbol), nil, &holders); err != nil {
		return nil, err
	}

	out := make([]core.InstitutionalHolder, 0, len(holders))
	for _, h := range holders {
		reported, _ := time.Parse("2006-01-02", h.DateReported)
		out = append(out, core.InstitutionalHolder{
			Holder:       h.Holder,
			Shares:       h.Shares,
			Change:       h.Change,
			DateReported: reported,
		})
	}
	return out, nil
}

// FMP response types
type profile struct {
	Symbol      string   `json:"symbol"`
	CompanyName string   `json:"companyName"`
	Price       float64  `json:"price"`
	MktCap      *float64 `json:"mktCap"`
	PE          *float64 `json:"pe"`
	Sector      string   `json:"sector"`
	Industry    string   `json:"industry"`
}

type keyMetricsTTM struct {
	PERatioTTM           *float64 `json:"peRatioTTM"`
	MarketCapTTM         *float64 `json:"marketCapTTM"`
	PriceToSalesRatioTTM *float64 `json:"priceToSalesRatioTTM"`
	GrossProfitMarginTTM *float64 `json:"grossProfitMarginTTM"`
	OperatingMarginTTM   *float64 `json:"operatingMarginTTM"`
	FreeCashFlowYieldTTM *float64 `json:"freeCashFlowYieldTTM"`
	PEGRatioTTM          *float64 `json:"pegRatioTTM"`
}

type incomeStatement struct {
	Date      string  `json:"date"`
	EPS       float64 `json:"eps"`
	Revenue   float64 `json:"revenue"`
	NetIncome float64 `json:"netIncome"`
	EBITDA    float64 `json:"ebitda"`
}

type cashFlowStatement struct {
	Date         string  `json:"date"`
	FreeCashFlow float64 `json:"freeCashFlow"`
}

type insiderTrade struct {
	TransactionDate      string  `json:"transactionDate"`
	TransactionType      string  `json:"transactionType"`
	SecuritiesTransacted float64 `json:"securitiesTransacted"`
	ReportingName        string  `json:"reportingName"`
}

type institutionalHolder struct {
	Holder       string  `json:"holder"`
	Shares       int64   `json:"shares"`
	DateReported string  `json:"dateReported"`
	Change       float64 `json:"change"`
}
