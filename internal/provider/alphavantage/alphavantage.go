// Package alphavantage implements the Alpha Vantage adapter.
package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/newthinker/signalforge/internal/core"
	"github.com/newthinker/signalforge/internal/provider"
)

// ID is the provider id used in configuration and provenance
const ID core.ProviderID = "alphavantage"

const defaultBaseURL = "https://www.alphavantage.co/query"

// AlphaVantage serves fundamentals and daily price history. It requires an
// API key; the free tier is heavily rate limited.
type AlphaVantage struct {
	client  *provider.Client
	apiKey  string
	baseURL string
}

// Option configures the adapter
type Option func(*AlphaVantage)

// WithBaseURL overrides the query endpoint
func WithBaseURL(base string) Option {
	return func(a *AlphaVantage) {
		a.baseURL = base
	}
}

// WithClientOptions configures the underlying HTTP client
func WithClientOptions(opts ...provider.ClientOption) Option {
	return func(a *AlphaVantage) {
		a.client = provider.NewClient(ID, opts...)
	}
}

// New creates a new Alpha Vantage adapter
func New(apiKey string, opts ...Option) *AlphaVantage {
	a := &AlphaVantage{
		client:  provider.NewClient(ID),
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *AlphaVantage) ID() core.ProviderID {
	return ID
}

func (a *AlphaVantage) Supports(c provider.Category) bool {
	return c == provider.Fundamentals || c == provider.PriceHistory
}

func (a *AlphaVantage) Fetch(ctx context.Context, ticker core.Ticker, c provider.Category) (any, error) {
	switch c {
	case provider.Fundamentals:
		return a.fetchFundamentals(ctx, ticker.String())
	case provider.PriceHistory:
		return a.fetchHistory(ctx, ticker)
	}
	return nil, provider.Unsupported(ID, c)
}

// query calls one function. Alpha Vantage answers 200 for every outcome and
// signals throttling with "Note" or "Information", unknown symbols with
// "Error Message" or an empty object.
func (a *AlphaVantage) query(ctx context.Context, c provider.Category, function, symbol string, extra url.Values, out any) error {
	params := url.Values{
		"function": {function},
		"symbol":   {symbol},
		"apikey":   {a.apiKey},
	}
	for k, v := range extra {
		params[k] = v
	}

	var envelope map[string]json.RawMessage
	if err := a.client.GetJSON(ctx, c, a.baseURL+"?"+params.Encode(), &envelope); err != nil {
		return err
	}

	if msg, ok := message(envelope, "Note", "Information"); ok {
		return provider.NewUnavailable(ID, c, core.ReasonRateLimited, fmt.Errorf("alphavantage: %s", msg))
	}
	if msg, ok := message(envelope, "Error Message"); ok {
		return provider.NewUnavailable(ID, c, core.ReasonNotFound, fmt.Errorf("alphavantage: %s", msg))
	}
	if len(envelope) == 0 {
		return provider.NewUnavailable(ID, c, core.ReasonNotFound, fmt.Errorf("alphavantage: no %s data for %s", function, symbol))
	}

	raw, err := json.Marshal(envelope)
	if err != nil {
		return provider.NewUnavailable(ID, c, core.ReasonMalformed, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return provider.NewUnavailable(ID, c, core.ReasonMalformed, fmt.Errorf("decoding %s: %w", function, err))
	}
	return nil
}

func message(envelope map[string]json.RawMessage, keys ...string) (string, bool) {
	for _, k := range keys {
		raw, ok := envelope[k]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			s = string(raw)
		}
		return s, true
	}
	return "", false
}

// number parses Alpha Vantage's string-encoded numbers; "None" and "-" are missing
func number(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "None" || s == "-" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
