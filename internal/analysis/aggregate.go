package analysis

import "github.com/newthinker/signalforge/internal/core"

// SubMetric is one named input to a category score. A zero weight marks a
// pass-through metric that is reported but never scored.
type SubMetric struct {
	Name   string
	Weight float64
	Result core.MetricResult[core.Metric]
}

// Summary is the renormalized weighted mean over available scored sub-metrics
type Summary struct {
	Score     float64
	Available int
	Scored    int
	Reason    core.Reason // first unavailable scored reason
}

// Summarize averages available scored sub-metrics, renormalizing weights
// over what is available. Score is 0 when nothing scored is available.
func Summarize(subs []SubMetric) Summary {
	var s Summary
	var num, den float64
	for _, m := range subs {
		if m.Weight <= 0 {
			continue
		}
		s.Scored++
		if !m.Result.Available() {
			if s.Reason == "" {
				s.Reason = m.Result.Reason
			}
			continue
		}
		s.Available++
		num += m.Weight * m.Result.Value.Score
		den += m.Weight
	}
	if den > 0 {
		s.Score = Clamp(num / den)
	}
	return s
}

// Aggregate builds a category score whose confidence is the fraction of
// scored sub-metrics that resolved.
func Aggregate(category core.Category, weight float64, subs []SubMetric) core.CategoryScore {
	s := Summarize(subs)
	var confidence float64
	if s.Scored > 0 {
		confidence = float64(s.Available) / float64(s.Scored)
	}
	return Build(category, weight, subs, s, confidence)
}

// Build assembles a category score from a summary and an explicit confidence
func Build(category core.Category, weight float64, subs []SubMetric, s Summary, confidence float64) core.CategoryScore {
	cs := core.CategoryScore{
		Category:        category,
		NormalizedScore: s.Score,
		Weight:          weight,
		Confidence:      confidence,
		Metrics:         make(map[string]core.MetricResult[core.Metric], len(subs)),
	}
	for _, m := range subs {
		cs.Metrics[m.Name] = m.Result
	}
	if s.Available == 0 {
		cs.NormalizedScore = 0
		cs.Confidence = 0
		cs.Reason = s.Reason
		if cs.Reason == "" {
			cs.Reason = core.ReasonInsufficientData
		}
	}
	return cs
}
