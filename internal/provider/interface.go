package provider

import (
	"context"

	"github.com/newthinker/signalforge/internal/core"
)

// Category is a data category fetched from providers. Each category has a
// fixed payload type:
//
//	PriceHistory   core.PriceSeries
//	Fundamentals   core.Fundamentals
//	OptionsChain   core.OptionsChain
//	Insider        []core.InsiderTransaction
//	Institutional  []core.InstitutionalHolder
//	Congress       []core.CongressTrade
type Category string

const (
	PriceHistory  Category = "price_history"
	Fundamentals  Category = "fundamentals"
	OptionsChain  Category = "options_chain"
	Insider       Category = "insider"
	Institutional Category = "institutional"
	Congress      Category = "congress"
)

// Categories returns every data category
func Categories() []Category {
	return []Category{PriceHistory, Fundamentals, OptionsChain, Insider, Institutional, Congress}
}

// Required reports whether a category must have at least one adapter
func (c Category) Required() bool {
	return c != Congress
}

// Adapter is the uniform fetch contract implemented once per provider.
// Fetch performs the provider's calls for one category without retrying and
// returns either the category payload or an *Unavailable error.
type Adapter interface {
	ID() core.ProviderID
	Supports(c Category) bool
	Fetch(ctx context.Context, ticker core.Ticker, c Category) (any, error)
}

// AdapterFunc adapts a function to the Adapter interface, mainly for tests
type AdapterFunc struct {
	Provider   core.ProviderID
	Categories []Category
	Fn         func(ctx context.Context, ticker core.Ticker, c Category) (any, error)
}

func (a AdapterFunc) ID() core.ProviderID { return a.Provider }

func (a AdapterFunc) Supports(c Category) bool {
	if len(a.Categories) == 0 {
		return true
	}
	for _, s := range a.Categories {
		if s == c {
			return true
		}
	}
	return false
}

func (a AdapterFunc) Fetch(ctx context.Context, ticker core.Ticker, c Category) (any, error) {
	return a.Fn(ctx, ticker, c)
}
