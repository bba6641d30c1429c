package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/newthinker/signalforge/internal/core"
	"github.com/newthinker/signalforge/internal/provider"
)

const (
	fundamentalModules   = "defaultKeyStatistics,financialData,summaryDetail,earnings"
	insiderModules       = "insiderTransactions"
	institutionalModules = "institutionOwnership"
)

func (y *Yahoo) quoteSummary(ctx context.Context, c provider.Category, symbol, modules string) (summaryResult, error) {
	u := fmt.Sprintf("%s/%s?modules=%s", y.summaryURL, url.PathEscape(symbol), modules)

	var resp summaryResponse
	if err := y.client.GetJSON(ctx, c, u, &resp); err != nil {
		return summaryResult{}, err
	}
	if resp.QuoteSummary.Error != nil {
		return summaryResult{}, provider.NewUnavailable(ID, c, resp.QuoteSummary.Error.reason(),
			fmt.Errorf("yahoo error: %s", resp.QuoteSummary.Error.Description))
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return summaryResult{}, provider.NewUnavailable(ID, c, core.ReasonNotFound,
			fmt.Errorf("no summary for symbol: %s", symbol))
	}
	return resp.QuoteSummary.Result[0], nil
}

// fetchFundamentals maps quoteSummary modules to raw fundamentals
func (y *Yahoo) fetchFundamentals(ctx context.Context, symbol string) (core.Fundamentals, error) {
	r, err := y.quoteSummary(ctx, provider.Fundamentals, symbol, fundamentalModules)
	if err != nil {
		return core.Fundamentals{}, err
	}

	f := core.Fundamentals{
		EPS:             r.DefaultKeyStatistics.TrailingEps.ptr(),
		NetIncome:       r.DefaultKeyStatistics.NetIncomeToCommon.ptr(),
		PEGRatio:        r.DefaultKeyStatistics.PegRatio.ptr(),
		Revenue:         r.FinancialData.TotalRevenue.ptr(),
		EBITDA:          r.FinancialData.Ebitda.ptr(),
		GrossMargin:     r.FinancialData.GrossMargins.ptr(),
		OperatingMargin: r.FinancialData.OperatingMargins.ptr(),
		FreeCashFlow:    r.FinancialData.FreeCashflow.ptr(),
		PERatio:         r.SummaryDetail.TrailingPE.ptr(),
		PriceToSales:    r.SummaryDetail.PriceToSalesTrailing12Months.ptr(),
		MarketCap:       r.SummaryDetail.MarketCap.ptr(),
	}
	if f.PERatio == nil {
		f.PERatio = r.SummaryDetail.ForwardPE.ptr()
	}

	// Quarterly charts are oldest first
	eq := r.Earnings.EarningsChart.Quarterly
	for i := len(eq) - 1; i >= 0; i-- {
		if eq[i].Actual.Raw != nil {
			f.QuarterlyEPS = append(f.QuarterlyEPS, *eq[i].Actual.Raw)
		}
	}
	fq := r.Earnings.FinancialsChart.Quarterly
	for i := len(fq) - 1; i >= 0; i-- {
		if fq[i].Revenue.Raw != nil {
			f.QuarterlyRevenue = append(f.QuarterlyRevenue, *fq[i].Revenue.Raw)
		}
	}

	if f.EPS == nil && f.PERatio == nil && f.Revenue == nil && f.MarketCap == nil && len(f.QuarterlyEPS) == 0 {
		return core.Fundamentals{}, provider.NewUnavailable(ID, provider.Fundamentals, core.ReasonNotFound,
			fmt.Errorf("no fundamentals for symbol: %s", symbol))
	}
	return f, nil
}

// fetchInsider returns reported insider transactions, newest first as reported
func (y *Yahoo) fetchInsider(ctx context.Context, symbol string) ([]core.InsiderTransaction, error) {
	r, err := y.quoteSummary(ctx, provider.Insider, symbol, insiderModules)
	if err != nil {
		return nil, err
	}

	txs := make([]core.InsiderTransaction, 0, len(r.InsiderTransactions.Transactions))
	for _, t := range r.InsiderTransactions.Transactions {
		buy, sell := ClassifyTransaction(t.TransactionText)
		txs = append(txs, core.InsiderTransaction{
			Filer:  t.FilerName,
			Date:   time.Unix(int64(t.StartDate.float()), 0).UTC(),
			Shares: int64(t.Shares.float()),
			Buy:    buy,
			Sell:   sell,
			Text:   t.TransactionText,
		})
	}
	return txs, nil
}

// fetchInstitutional returns the largest reported institutional holders
func (y *Yahoo) fetchInstitutional(ctx context.Context, symbol string) ([]core.InstitutionalHolder, error) {
	r, err := y.quoteSummary(ctx, provider.Institutional, symbol, institutionalModules)
	if err != nil {
		return nil, err
	}

	holders := make([]core.InstitutionalHolder, 0, len(r.InstitutionOwnership.OwnershipList))
	for _, o := range r.InstitutionOwnership.OwnershipList {
		holders = append(holders, core.InstitutionalHolder{
			Holder:       o.Organization,
			Shares:       int64(o.Position.float()),
			Change:       o.PctChange.float(),
			DateReported: time.Unix(int64(o.ReportDate.float()), 0).UTC(),
		})
	}
	return holders, nil
}

// ClassifyTransaction derives buy/sell direction from a transaction description
func ClassifyTransaction(text string) (buy, sell bool) {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "purchase"), strings.Contains(t, "buy"):
		return true, false
	case strings.Contains(t, "sale"), strings.Contains(t, "sell"):
		return false, true
	}
	return false, false
}

// Yahoo quoteSummary response types
type summaryResponse struct {
	QuoteSummary struct {
		Result []summaryResult `json:"result"`
		Error  *yahooError     `json:"error"`
	} `json:"quoteSummary"`
}

type summaryResult struct {
	DefaultKeyStatistics struct {
		TrailingEps       rawValue `json:"trailingEps"`
		NetIncomeToCommon rawValue `json:"netIncomeToCommon"`
		PegRatio          rawValue `json:"pegRatio"`
	} `json:"defaultKeyStatistics"`
	FinancialData struct {
		TotalRevenue     rawValue `json:"totalRevenue"`
		Ebitda           rawValue `json:"ebitda"`
		GrossMargins     rawValue `json:"grossMargins"`
		OperatingMargins rawValue `json:"operatingMargins"`
		FreeCashflow     rawValue `json:"freeCashflow"`
	} `json:"financialData"`
	SummaryDetail struct {
		TrailingPE                   rawValue `json:"trailingPE"`
		ForwardPE                    rawValue `json:"forwardPE"`
		PriceToSalesTrailing12Months rawValue `json:"priceToSalesTrailing12Months"`
		MarketCap                    rawValue `json:"marketCap"`
	} `json:"summaryDetail"`
	Earnings struct {
		EarningsChart struct {
			Quarterly []struct {
				Date   string   `json:"date"`
				Actual rawValue `json:"actual"`
			} `json:"quarterly"`
		} `json:"earningsChart"`
		FinancialsChart struct {
			Quarterly []struct {
				Date    string   `json:"date"`
				Revenue rawValue `json:"revenue"`
			} `json:"quarterly"`
		} `json:"financialsChart"`
	} `json:"earnings"`
	InsiderTransactions struct {
		Transactions []struct {
			FilerName       string   `json:"filerName"`
			TransactionText string   `json:"transactionText"`
			Shares          rawValue `json:"shares"`
			StartDate       rawValue `json:"startDate"`
		} `json:"transactions"`
	} `json:"insiderTransactions"`
	InstitutionOwnership struct {
		OwnershipList []struct {
			Organization string   `json:"organization"`
			ReportDate   rawValue `json:"reportDate"`
			Position     rawValue `json:"position"`
			PctChange    rawValue `json:"pctChange"`
		} `json:"ownershipList"`
	} `json:"institutionOwnership"`
}
