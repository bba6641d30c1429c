// Package quiver implements the QuiverQuant congressional trading adapter.
package quiver

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/newthinker/signalforge/internal/core"
	"github.com/newthinker/signalforge/internal/provider"
)

// ID is the provider id used in configuration and provenance
const ID core.ProviderID = "quiver"

const defaultBaseURL = "https://api.quiverquant.com/beta"

// Quiver serves congressional trade disclosures. It requires an API token.
type Quiver struct {
	client     *provider.Client
	baseURL    string
	clientOpts []provider.ClientOption
}

// Option configures the adapter
type Option func(*Quiver)

// WithBaseURL overrides the API root
func WithBaseURL(base string) Option {
	return func(q *Quiver) {
		q.baseURL = strings.TrimRight(base, "/")
	}
}

// WithClientOptions configures the underlying HTTP client
func WithClientOptions(opts ...provider.ClientOption) Option {
	return func(q *Quiver) {
		q.clientOpts = append(q.clientOpts, opts...)
	}
}

// New creates a new Quiver adapter
func New(token string, opts ...Option) *Quiver {
	q := &Quiver{baseURL: defaultBaseURL}
	for _, opt := range opts {
		opt(q)
	}
	clientOpts := append([]provider.ClientOption{provider.WithHeader("Authorization", "Token "+token)}, q.clientOpts...)
	q.client = provider.NewClient(ID, clientOpts...)
	return q
}

func (q *Quiver) ID() core.ProviderID {
	return ID
}

func (q *Quiver) Supports(c provider.Category) bool {
	return c == provider.Congress
}

func (q *Quiver) Fetch(ctx context.Context, ticker core.Ticker, c provider.Category) (any, error) {
	if c != provider.Congress {
		return nil, provider.Unsupported(ID, c)
	}

	u := fmt.Sprintf("%s/historical/congresstrading/%s", q.baseURL, url.PathEscape(ticker.String()))
	var trades []congressTrade
	if err := q.client.GetJSON(ctx, c, u, &trades); err != nil {
		return nil, err
	}

	out := make([]core.CongressTrade, 0, len(trades))
	for _, t := range trades {
		date, err := time.Parse("2006-01-02", t.TransactionDate)
		if err != nil {
			continue
		}
		typ := strings.ToLower(t.Transaction)
		out = append(out, core.CongressTrade{
			Representative: t.Representative,
			Date:           date,
			Purchase:       strings.Contains(typ, "purchase"),
			Sale:           strings.Contains(typ, "sale"),
			Amount:         t.Range,
		})
	}
	return out, nil
}

type congressTrade struct {
	Representative  string `json:"Representative"`
	TransactionDate string `json:"TransactionDate"`
	Transaction     string `json:"Transaction"`
	Range           string `json:"Range"`
}
