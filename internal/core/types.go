package core

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// validTicker matches symbols like AAPL, BRK.B, BF-B, 0700.HK
var validTicker = regexp.MustCompile(`^[A-Z0-9.\-]{1,15}$`)

var hasAlnum = regexp.MustCompile(`[A-Z0-9]`)

// Ticker is a validated, upper-cased ticker symbol
type Ticker string

// ParseTicker validates a raw symbol and returns its canonical form
func ParseTicker(raw string) (Ticker, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return "", WrapError(ErrInvalidTicker, fmt.Errorf("symbol cannot be empty"))
	}
	if !validTicker.MatchString(s) || !hasAlnum.MatchString(s) {
		return "", WrapError(ErrInvalidTicker, fmt.Errorf("invalid symbol format: %q", raw))
	}
	return Ticker(s), nil
}

func (t Ticker) String() string {
	return string(t)
}

// Bar represents one daily candlestick
type Bar struct {
	Time     time.Time `json:"time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	AdjClose float64   `json:"adj_close,omitempty"`
	Volume   int64     `json:"volume"`
}

// CompanyInfo is descriptive metadata returned alongside price history
type CompanyInfo struct {
	ShortName string  `json:"short_name,omitempty"`
	Sector    string  `json:"sector,omitempty"`
	Industry  string  `json:"industry,omitempty"`
	MarketCap float64 `json:"market_cap,omitempty"`
}

// PriceSeries is an ascending, duplicate-free sequence of bars
type PriceSeries struct {
	Ticker Ticker
	Bars   []Bar
	Info   CompanyInfo
}

// NewPriceSeries sorts bars ascending by time and drops duplicate
// timestamps, keeping the last occurrence.
func NewPriceSeries(ticker Ticker, bars []Bar) PriceSeries {
	sorted := make([]Bar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	out := make([]Bar, 0, len(sorted))
	for _, b := range sorted {
		if n := len(out); n > 0 && out[n-1].Time.Equal(b.Time) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return PriceSeries{Ticker: ticker, Bars: out}
}

// Len returns the number of bars
func (p PriceSeries) Len() int {
	return len(p.Bars)
}

// Closes extracts closing prices in order
func (p PriceSeries) Closes() []float64 {
	closes := make([]float64, len(p.Bars))
	for i, b := range p.Bars {
		closes[i] = b.Close
	}
	return closes
}

// Latest returns the most recent bar
func (p PriceSeries) Latest() (Bar, bool) {
	if len(p.Bars) == 0 {
		return Bar{}, false
	}
	return p.Bars[len(p.Bars)-1], true
}

// Validate checks ordering and uniqueness of timestamps
func (p PriceSeries) Validate() error {
	for i := 1; i < len(p.Bars); i++ {
		if !p.Bars[i].Time.After(p.Bars[i-1].Time) {
			return fmt.Errorf("bars not strictly ascending at index %d", i)
		}
	}
	return nil
}

// Fundamentals holds raw financial statement fields from one provider.
// Quarterly slices are ordered newest first.
type Fundamentals struct {
	EPS              *float64  `json:"eps,omitempty"`
	Revenue          *float64  `json:"revenue,omitempty"`
	NetIncome        *float64  `json:"net_income,omitempty"`
	EBITDA           *float64  `json:"ebitda,omitempty"`
	PERatio          *float64  `json:"pe_ratio,omitempty"`
	PriceToSales     *float64  `json:"price_to_sales,omitempty"`
	GrossMargin      *float64  `json:"gross_margin,omitempty"`
	OperatingMargin  *float64  `json:"operating_margin,omitempty"`
	FreeCashFlow     *float64  `json:"free_cash_flow,omitempty"`
	FCFYield         *float64  `json:"fcf_yield,omitempty"` // provider-reported, used when FCF or market cap is missing
	MarketCap        *float64  `json:"market_cap,omitempty"`
	PEGRatio         *float64  `json:"peg_ratio,omitempty"`
	QuarterlyEPS     []float64 `json:"quarterly_eps,omitempty"`
	QuarterlyRevenue []float64 `json:"quarterly_revenue,omitempty"`
}

// Float returns a pointer to v, for optional fundamentals fields
func Float(v float64) *float64 {
	return &v
}

// OptionType is call or put
type OptionType string

const (
	OptionCall OptionType = "call"
	OptionPut  OptionType = "put"
)

// OptionContract is one listed option
type OptionContract struct {
	Strike            float64    `json:"strike"`
	Expiry            time.Time  `json:"expiry"`
	Type              OptionType `json:"type"`
	ImpliedVolatility float64    `json:"implied_volatility"`
	OpenInterest      int64      `json:"open_interest"`
	Volume            int64      `json:"volume"`
	LastPrice         float64    `json:"last_price,omitempty"`
}

// OptionsChain is a snapshot of contracts against one underlying price
type OptionsChain struct {
	UnderlyingPrice float64          `json:"underlying_price"`
	Contracts       []OptionContract `json:"contracts"`
}

// InsiderTransaction is a single reported insider trade
type InsiderTransaction struct {
	Filer  string    `json:"filer,omitempty"`
	Date   time.Time `json:"date"`
	Shares int64     `json:"shares"`
	Buy    bool      `json:"buy"`
	Sell   bool      `json:"sell"`
	Text   string    `json:"text,omitempty"`
}

// InstitutionalHolder is one institution's latest reported position
type InstitutionalHolder struct {
	Holder       string    `json:"holder"`
	Shares       int64     `json:"shares"`
	Change       float64   `json:"change"` // signed position change, shares or fraction
	DateReported time.Time `json:"date_reported"`
}

// CongressTrade is one congressional stock transaction disclosure
type CongressTrade struct {
	Representative string    `json:"representative"`
	Date           time.Time `json:"date"`
	Purchase       bool      `json:"purchase"`
	Sale           bool      `json:"sale"`
	Amount         string    `json:"amount,omitempty"`
}
