package config

import (
	"fmt"

	"github.com/newthinker/signalforge/internal/core"
	"github.com/newthinker/signalforge/internal/provider"
	"github.com/newthinker/signalforge/internal/provider/alphavantage"
	"github.com/newthinker/signalforge/internal/provider/fmp"
	"github.com/newthinker/signalforge/internal/provider/quiver"
	"github.com/newthinker/signalforge/internal/provider/yahoo"
	"github.com/newthinker/signalforge/internal/resolver"
	"go.uber.org/zap"
)

func knownCategory(name string) bool {
	for _, c := range provider.Categories() {
		if string(c) == name {
			return true
		}
	}
	return false
}

func knownProvider(id string) bool {
	switch core.ProviderID(id) {
	case yahoo.ID, fmp.ID, alphavantage.ID, quiver.ID:
		return true
	}
	return false
}

// YahooRange maps a history length in days onto a chart range
func YahooRange(days int) string {
	switch {
	case days <= 0:
		return "2y"
	case days <= 30:
		return "1mo"
	case days <= 90:
		return "3mo"
	case days <= 180:
		return "6mo"
	case days <= 365:
		return "1y"
	case days <= 730:
		return "2y"
	default:
		return "5y"
	}
}

func clientOptions(pc ProviderConfig) []provider.ClientOption {
	if pc.RateLimit != 0 {
		return []provider.ClientOption{provider.WithRateLimit(pc.RateLimit)}
	}
	return nil
}

// Registry builds every enabled adapter. Providers that need a credential
// and have none are left out with a warning.
func (c *Config) Registry(logger *zap.Logger) *provider.Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := provider.NewRegistry()
	p := c.Providers

	if p.Yahoo.Enabled {
		opts := []yahoo.Option{
			yahoo.WithExpiries(c.Pipeline.OptionExpiries),
			yahoo.WithHistoryRange(YahooRange(c.Pipeline.HistoryDays)),
			yahoo.WithClientOptions(clientOptions(p.Yahoo)...),
		}
		if p.Yahoo.BaseURL != "" {
			opts = append(opts, yahoo.WithBaseURL(p.Yahoo.BaseURL))
		}
		reg.Register(yahoo.New(opts...))
	}

	keyed := func(id core.ProviderID, pc ProviderConfig, build func() provider.Adapter) {
		if !pc.Enabled {
			return
		}
		if pc.APIKey == "" {
			logger.Warn("provider disabled: missing api key", zap.String("provider", string(id)))
			return
		}
		reg.Register(build())
	}

	keyed(fmp.ID, p.FMP, func() provider.Adapter {
		opts := []fmp.Option{fmp.WithClientOptions(clientOptions(p.FMP)...)}
		if p.FMP.BaseURL != "" {
			opts = append(opts, fmp.WithBaseURL(p.FMP.BaseURL))
		}
		return fmp.New(p.FMP.APIKey, opts...)
	})
	keyed(alphavantage.ID, p.AlphaVantage, func() provider.Adapter {
		opts := []alphavantage.Option{alphavantage.WithClientOptions(clientOptions(p.AlphaVantage)...)}
		if p.AlphaVantage.BaseURL != "" {
			opts = append(opts, alphavantage.WithBaseURL(p.AlphaVantage.BaseURL))
		}
		return alphavantage.New(p.AlphaVantage.APIKey, opts...)
	})
	keyed(quiver.ID, p.Quiver, func() provider.Adapter {
		opts := []quiver.Option{quiver.WithClientOptions(clientOptions(p.Quiver)...)}
		if p.Quiver.BaseURL != "" {
			opts = append(opts, quiver.WithBaseURL(p.Quiver.BaseURL))
		}
		return quiver.New(p.Quiver.APIKey, opts...)
	})

	return reg
}

// BuildChains resolves providers.order against the registry. A required
// category left without adapters is a configuration error.
func (c *Config) BuildChains(reg *provider.Registry, logger *zap.Logger) (resolver.Chains, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	chains := resolver.Chains{}
	used := map[core.ProviderID]bool{}
	for _, category := range provider.Categories() {
		names := c.Providers.Order[string(category)]
		ids := make([]core.ProviderID, len(names))
		for i, n := range names {
			ids[i] = core.ProviderID(n)
		}

		chain, skipped := reg.Chain(category, ids)
		if len(skipped) > 0 {
			logger.Debug("providers skipped for category",
				zap.String("category", string(category)),
				zap.Any("skipped", skipped),
			)
		}
		if len(chain) == 0 {
			if category.Required() {
				return nil, core.WrapError(core.ErrNoAdapters, fmt.Errorf("category %s has no usable provider (order %v)", category, names))
			}
			logger.Info("optional category disabled", zap.String("category", string(category)))
			continue
		}
		chains[category] = chain
		for _, a := range chain {
			used[a.ID()] = true
		}
	}

	for _, a := range reg.GetAll() {
		if !used[a.ID()] {
			logger.Warn("provider enabled but not in any category order", zap.String("provider", string(a.ID())))
		}
	}
	return chains, nil
}

// Resolver builds the fallback resolver from configuration
func (c *Config) Resolver(logger *zap.Logger, opts ...resolver.Option) (*resolver.Resolver, error) {
	chains, err := c.BuildChains(c.Registry(logger), logger)
	if err != nil {
		return nil, err
	}
	base := []resolver.Option{
		resolver.WithCallTimeout(c.Pipeline.CallTimeout),
		resolver.WithLogger(logger),
	}
	return resolver.New(chains, append(base, opts...)...), nil
}
