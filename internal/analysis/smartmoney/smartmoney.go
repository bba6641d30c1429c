// Package smartmoney turns insider, institutional and congressional
// activity into a net directional score.
package smartmoney

import (
	"fmt"
	"sort"
	"time"

	"github.com/newthinker/signalforge/internal/analysis"
	"github.com/newthinker/signalforge/internal/core"
)

// Sub-metric names
const (
	MetricInsider       = "insider"
	MetricInstitutional = "institutional"
	MetricCongress      = "congress"
)

const (
	// DefaultInsiderWindow is the insider lookback
	DefaultInsiderWindow = 90 * 24 * time.Hour
	// DefaultCongressWindow is the congressional trade lookback
	DefaultCongressWindow = 30 * 24 * time.Hour

	// maxHolders is the number of most recently reported institutions considered
	maxHolders = 10

	insiderWeight       = 0.4
	institutionalWeight = 0.4
	congressWeight      = 0.2
)

// Config tunes the aggregator. Now is the evaluation date.
type Config struct {
	Now            time.Time
	InsiderWindow  time.Duration
	CongressWindow time.Duration
}

// Inputs are the resolved smart-money feeds
type Inputs struct {
	Insider       core.MetricResult[[]core.InsiderTransaction]
	Institutional core.MetricResult[[]core.InstitutionalHolder]
	Congress      core.MetricResult[[]core.CongressTrade]
}

// Analyze computes the smart-money category score. Congressional data only
// counts toward confidence when it resolved, so its absence never lowers
// confidence below what insider and institutional data give.
func Analyze(in Inputs, weight float64, cfg Config) core.CategoryScore {
	if cfg.InsiderWindow <= 0 {
		cfg.InsiderWindow = DefaultInsiderWindow
	}
	if cfg.CongressWindow <= 0 {
		cfg.CongressWindow = DefaultCongressWindow
	}

	subs := []analysis.SubMetric{
		{Name: MetricInsider, Weight: insiderWeight, Result: core.Derive(in.Insider, func(txs []core.InsiderTransaction) (core.Metric, core.Reason) {
			return insider(txs, cfg.Now.Add(-cfg.InsiderWindow), cfg.Now)
		})},
		{Name: MetricInstitutional, Weight: institutionalWeight, Result: core.Derive(in.Institutional, institutional)},
		{Name: MetricCongress, Weight: congressWeight, Result: core.Derive(in.Congress, func(trades []core.CongressTrade) (core.Metric, core.Reason) {
			return congress(trades, cfg.Now.Add(-cfg.CongressWindow), cfg.Now)
		})},
	}

	considered, resolved := 2, 0
	for _, m := range subs[:2] {
		if m.Result.Available() {
			resolved++
		}
	}
	if subs[2].Result.Available() {
		considered++
		resolved++
	}

	s := analysis.Summarize(subs)
	return analysis.Build(core.CategorySmartMoney, weight, subs, s, float64(resolved)/float64(considered))
}

// NetDirection returns (buys - sells) / (buys + sells), 0 without activity
func NetDirection(buys, sells int) float64 {
	if buys+sells == 0 {
		return 0
	}
	return float64(buys-sells) / float64(buys+sells)
}

func direction(buys, sells int) core.Metric {
	d := NetDirection(buys, sells)
	return core.Metric{Value: d, Score: d, Label: fmt.Sprintf("%d buys / %d sells", buys, sells)}
}

func within(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}

func insider(txs []core.InsiderTransaction, from, to time.Time) (core.Metric, core.Reason) {
	var buys, sells int
	for _, tx := range txs {
		if !within(tx.Date, from, to) {
			continue
		}
		switch {
		case tx.Buy:
			buys++
		case tx.Sell:
			sells++
		}
	}
	return direction(buys, sells), ""
}

// institutional reads position changes of the most recently reported holders
func institutional(holders []core.InstitutionalHolder) (core.Metric, core.Reason) {
	sorted := make([]core.InstitutionalHolder, len(holders))
	copy(sorted, holders)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DateReported.After(sorted[j].DateReported)
	})
	if len(sorted) > maxHolders {
		sorted = sorted[:maxHolders]
	}

	var buys, sells int
	for _, h := range sorted {
		switch {
		case h.Change > 0:
			buys++
		case h.Change < 0:
			sells++
		}
	}
	return direction(buys, sells), ""
}

func congress(trades []core.CongressTrade, from, to time.Time) (core.Metric, core.Reason) {
	var buys, sells int
	for _, t := range trades {
		if !within(t.Date, from, to) {
			continue
		}
		switch {
		case t.Purchase:
			buys++
		case t.Sale:
			sells++
		}
	}
	return direction(buys, sells), ""
}
