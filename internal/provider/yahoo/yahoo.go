package yahoo

import (
	"context"
	"strings"

	"github.com/newthinker/signalforge/internal/core"
	"github.com/newthinker/signalforge/internal/provider"
)

// ID is the provider id used in configuration and provenance
const ID core.ProviderID = "yahoo"

const (
	defaultChartURL   = "https://query1.finance.yahoo.com/v8/finance/chart"
	defaultOptionsURL = "https://query2.finance.yahoo.com/v7/finance/options"
	defaultSummaryURL = "https://query2.finance.yahoo.com/v10/finance/quoteSummary"

	// maxContractsPerSide is the number of contracts kept per side per expiry, by open interest
	maxContractsPerSide = 15
)

// Yahoo implements the Yahoo Finance adapter. It needs no credentials and
// serves price history, fundamentals, options chains, insider transactions
// and institutional holders.
type Yahoo struct {
	client     *provider.Client
	chartURL   string
	optionsURL string
	summaryURL string
	historyRng string
	expiries   int
}

// Option configures the adapter
type Option func(*Yahoo)

// WithBaseURL points every endpoint at one host, mainly for tests
func WithBaseURL(base string) Option {
	return func(y *Yahoo) {
		base = strings.TrimRight(base, "/")
		y.chartURL = base + "/v8/finance/chart"
		y.optionsURL = base + "/v7/finance/options"
		y.summaryURL = base + "/v10/finance/quoteSummary"
	}
}

// WithExpiries sets how many expiries are fetched for the options chain
func WithExpiries(n int) Option {
	return func(y *Yahoo) {
		if n > 0 {
			y.expiries = n
		}
	}
}

// WithHistoryRange sets the chart range parameter, e.g. "2y"
func WithHistoryRange(r string) Option {
	return func(y *Yahoo) {
		if r != "" {
			y.historyRng = r
		}
	}
}

// WithClientOptions configures the underlying HTTP client
func WithClientOptions(opts ...provider.ClientOption) Option {
	return func(y *Yahoo) {
		y.client = provider.NewClient(ID, opts...)
	}
}

// New creates a new Yahoo adapter
func New(opts ...Option) *Yahoo {
	y := &Yahoo{
		client:     provider.NewClient(ID),
		chartURL:   defaultChartURL,
		optionsURL: defaultOptionsURL,
		summaryURL: defaultSummaryURL,
		historyRng: "2y",
		expiries:   1,
	}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

func (y *Yahoo) ID() core.ProviderID {
	return ID
}

func (y *Yahoo) Supports(c provider.Category) bool {
	switch c {
	case provider.PriceHistory, provider.Fundamentals, provider.OptionsChain,
		provider.Insider, provider.Institutional:
		return true
	}
	return false
}

func (y *Yahoo) Fetch(ctx context.Context, ticker core.Ticker, c provider.Category) (any, error) {
	symbol := toYahooSymbol(ticker)
	switch c {
	case provider.PriceHistory:
		return y.fetchHistory(ctx, ticker, symbol)
	case provider.Fundamentals:
		return y.fetchFundamentals(ctx, symbol)
	case provider.OptionsChain:
		return y.fetchOptions(ctx, symbol)
	case provider.Insider:
		return y.fetchInsider(ctx, symbol)
	case provider.Institutional:
		return y.fetchInstitutional(ctx, symbol)
	}
	return nil, provider.Unsupported(ID, c)
}

// toYahooSymbol converts internal symbol format to Yahoo format
func toYahooSymbol(ticker core.Ticker) string {
	symbol := ticker.String()
	// Shanghai stocks: 600519.SH -> 600519.SS
	if strings.HasSuffix(symbol, ".SH") {
		return strings.TrimSuffix(symbol, ".SH") + ".SS"
	}
	// Share classes: BRK.B -> BRK-B
	if i := strings.LastIndex(symbol, "."); i > 0 && len(symbol)-i == 2 && strings.ContainsRune("ABC", rune(symbol[i+1])) {
		return symbol[:i] + "-" + symbol[i+1:]
	}
	return symbol
}

// yahooError is the error envelope shared by every endpoint
type yahooError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *yahooError) reason() core.Reason {
	if strings.EqualFold(e.Code, "Not Found") {
		return core.ReasonNotFound
	}
	return core.ReasonMalformed
}

// rawValue is Yahoo's {raw, fmt} number wrapper
type rawValue struct {
	Raw *float64 `json:"raw"`
}

func (v rawValue) ptr() *float64 {
	return v.Raw
}

func (v rawValue) float() float64 {
	if v.Raw == nil {
		return 0
	}
	return *v.Raw
}
