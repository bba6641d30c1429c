// Package fmp implements the FinancialModelingPrep adapter.
package fmp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/newthinker/signalforge/internal/core"
	"github.com/newthinker/signalforge/internal/provider"
)

// ID is the provider id used in configuration and provenance
const ID core.ProviderID = "fmp"

const defaultBaseURL = "https://financialmodelingprep.com"

// FMP serves fundamentals, insider trades and institutional holders.
// It requires an API key.
type FMP struct {
	client  *provider.Client
	apiKey  string
	baseURL string
}

// Option configures the adapter
type Option func(*FMP)

// WithBaseURL overrides the API host
func WithBaseURL(base string) Option {
	return func(f *FMP) {
		f.baseURL = strings.TrimRight(base, "/")
	}
}

// WithClientOptions configures the underlying HTTP client
func WithClientOptions(opts ...provider.ClientOption) Option {
	return func(f *FMP) {
		f.client = provider.NewClient(ID, opts...)
	}
}

// New creates a new FMP adapter
func New(apiKey string, opts ...Option) *FMP {
	f := &FMP{
		client:  provider.NewClient(ID),
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *FMP) ID() core.ProviderID {
	return ID
}

func (f *FMP) Supports(c provider.Category) bool {
	return c == provider.Fundamentals || c == provider.Insider || c == provider.Institutional
}

func (f *FMP) Fetch(ctx context.Context, ticker core.Ticker, c provider.Category) (any, error) {
	switch c {
	case provider.Fundamentals:
		return f.fetchFundamentals(ctx, ticker.String())
	case provider.Insider:
		return f.fetchInsider(ctx, ticker.String())
	case provider.Institutional:
		return f.fetchInstitutional(ctx, ticker.String())
	}
	return nil, provider.Unsupported(ID, c)
}

// getList fetches an endpoint that answers with a JSON array. FMP reports
// key and plan problems as a 200 object carrying "Error Message".
func (f *FMP) getList(ctx context.Context, c provider.Category, path string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("apikey", f.apiKey)
	u := f.baseURL + path + "?" + params.Encode()

	var raw json.RawMessage
	if err := f.client.GetJSON(ctx, c, u, &raw); err != nil {
		return err
	}

	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '{' {
		var e struct {
			ErrorMessage string `json:"Error Message"`
		}
		if err := json.Unmarshal(trimmed, &e); err == nil && e.ErrorMessage != "" {
			return provider.NewUnavailable(ID, c, core.ReasonUnauthorized, fmt.Errorf("fmp error: %s", e.ErrorMessage))
		}
		return provider.NewUnavailable(ID, c, core.ReasonMalformed, fmt.Errorf("expected array from %s", path))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return provider.NewUnavailable(ID, c, core.ReasonMalformed, fmt.Errorf("decoding %s: %w", path, err))
	}
	return nil
}

func optional(v *float64) *float64 {
	if v == nil || *v == 0 {
		return nil
	}
	return v
}
