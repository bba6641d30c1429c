package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/newthinker/signalforge/internal/core"
	"github.com/newthinker/signalforge/internal/provider"
)

// fetchOptions fetches the nearest expiries of the options chain. The first
// call returns the nearest expiry and the list of expiration dates; one extra
// call is made per additional expiry.
func (y *Yahoo) fetchOptions(ctx context.Context, symbol string) (core.OptionsChain, error) {
	base := fmt.Sprintf("%s/%s", y.optionsURL, url.PathEscape(symbol))

	first, err := y.optionPage(ctx, base)
	if err != nil {
		return core.OptionsChain{}, err
	}

	chain := core.OptionsChain{UnderlyingPrice: first.Quote.RegularMarketPrice}
	if chain.UnderlyingPrice <= 0 {
		return core.OptionsChain{}, provider.NewUnavailable(ID, provider.OptionsChain, core.ReasonMalformed,
			fmt.Errorf("missing underlying price for %s", symbol))
	}

	for _, o := range first.Options {
		chain.Contracts = append(chain.Contracts, toContracts(o)...)
	}

	for i := 1; i < len(first.ExpirationDates) && i < y.expiries; i++ {
		page, err := y.optionPage(ctx, fmt.Sprintf("%s?date=%d", base, first.ExpirationDates[i]))
		if err != nil {
			return core.OptionsChain{}, err
		}
		for _, o := range page.Options {
			chain.Contracts = append(chain.Contracts, toContracts(o)...)
		}
	}

	if len(chain.Contracts) == 0 {
		return core.OptionsChain{}, provider.NewUnavailable(ID, provider.OptionsChain, core.ReasonNotFound,
			fmt.Errorf("no listed options for %s", symbol))
	}
	return chain, nil
}

func (y *Yahoo) optionPage(ctx context.Context, u string) (optionResult, error) {
	var resp optionsResponse
	if err := y.client.GetJSON(ctx, provider.OptionsChain, u, &resp); err != nil {
		return optionResult{}, err
	}
	if resp.OptionChain.Error != nil {
		return optionResult{}, provider.NewUnavailable(ID, provider.OptionsChain, resp.OptionChain.Error.reason(),
			fmt.Errorf("yahoo error: %s", resp.OptionChain.Error.Description))
	}
	if len(resp.OptionChain.Result) == 0 {
		return optionResult{}, provider.NewUnavailable(ID, provider.OptionsChain, core.ReasonNotFound,
			fmt.Errorf("empty option chain"))
	}
	return resp.OptionChain.Result[0], nil
}

// toContracts converts one expiry page, keeping the most open calls and puts
func toContracts(o optionExpiry) []core.OptionContract {
	expiry := time.Unix(o.ExpirationDate, 0).UTC()
	out := make([]core.OptionContract, 0, 2*maxContractsPerSide)
	out = append(out, topByOpenInterest(o.Calls, core.OptionCall, expiry)...)
	out = append(out, topByOpenInterest(o.Puts, core.OptionPut, expiry)...)
	return out
}

func topByOpenInterest(quotes []optionQuote, typ core.OptionType, expiry time.Time) []core.OptionContract {
	contracts := make([]core.OptionContract, 0, len(quotes))
	for _, q := range quotes {
		if q.Strike <= 0 {
			continue
		}
		contracts = append(contracts, core.OptionContract{
			Strike:            q.Strike,
			Expiry:            expiry,
			Type:              typ,
			ImpliedVolatility: q.ImpliedVolatility,
			OpenInterest:      q.OpenInterest,
			Volume:            q.Volume,
			LastPrice:         q.LastPrice,
		})
	}
	sort.SliceStable(contracts, func(i, j int) bool {
		return contracts[i].OpenInterest > contracts[j].OpenInterest
	})
	if len(contracts) > maxContractsPerSide {
		contracts = contracts[:maxContractsPerSide]
	}
	return contracts
}

// Yahoo options response types
type optionsResponse struct {
	OptionChain struct {
		Result []optionResult `json:"result"`
		Error  *yahooError    `json:"error"`
	} `json:"optionChain"`
}

type optionResult struct {
	UnderlyingSymbol string  `json:"underlyingSymbol"`
	ExpirationDates  []int64 `json:"expirationDates"`
	Quote            struct {
		RegularMarketPrice float64 `json:"regularMarketPrice"`
	} `json:"quote"`
	Options []optionExpiry `json:"options"`
}

type optionExpiry struct {
	ExpirationDate int64         `json:"expirationDate"`
	Calls          []optionQuote `json:"calls"`
	Puts           []optionQuote `json:"puts"`
}

type optionQuote struct {
	Strike            float64 `json:"strike"`
	LastPrice         float64 `json:"lastPrice"`
	Volume            int64   `json:"volume"`
	OpenInterest      int64   `json:"openInterest"`
	ImpliedVolatility float64 `json:"impliedVolatility"`
}
