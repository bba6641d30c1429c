package core

import "time"

// Category is one of the four scored signal categories
type Category string

const (
	CategoryTechnical   Category = "technical"
	CategoryFundamental Category = "fundamental"
	CategoryOptions     Category = "options"
	CategorySmartMoney  Category = "smart_money"
)

// Categories returns the categories in signal order
func Categories() []Category {
	return []Category{CategoryTechnical, CategoryFundamental, CategoryOptions, CategorySmartMoney}
}

// Decision is the final recommendation
type Decision string

const (
	DecisionBuy  Decision = "Buy"
	DecisionSell Decision = "Sell"
	DecisionHold Decision = "Hold"
)

// Metric is a raw metric value with its normalized score in [-1, 1]
type Metric struct {
	Value float64 `json:"value"`
	Score float64 `json:"score"`
	Label string  `json:"label,omitempty"`
}

// CategoryScore is the normalized output of one category aggregator.
// Contribution is its share of the composite, set when the signal is scored;
// the contributions of a signal sum to its unclamped composite.
type CategoryScore struct {
	Category        Category                        `json:"category"`
	NormalizedScore float64                         `json:"normalized_score"`
	Weight          float64                         `json:"weight"`
	Confidence      float64                         `json:"confidence"`
	Contribution    float64                         `json:"contribution"`
	Metrics         map[string]MetricResult[Metric] `json:"metrics"`
	Reason          Reason                          `json:"reason,omitempty"`
}

// Contributes reports whether the category enters the composite
func (c CategoryScore) Contributes() bool {
	return c.Confidence > 0 && c.Weight > 0
}

// DegradedCategory returns a zero-confidence score for a category that
// produced nothing usable.
func DegradedCategory(category Category, weight float64, reason Reason) CategoryScore {
	return CategoryScore{
		Category: category,
		Weight:   weight,
		Metrics:  map[string]MetricResult[Metric]{},
		Reason:   reason,
	}
}

// Signal is the immutable result of one pipeline run
type Signal struct {
	ID             string          `json:"id"`
	Ticker         Ticker          `json:"ticker"`
	Decision       Decision        `json:"decision"`
	CompositeScore float64         `json:"composite_score"`
	Confidence     float64         `json:"confidence"`
	CategoryScores []CategoryScore `json:"category_scores"`
	GeneratedAt    time.Time       `json:"generated_at"`
}

// Category looks up a category score by name
func (s Signal) Category(c Category) (CategoryScore, bool) {
	for _, cs := range s.CategoryScores {
		if cs.Category == c {
			return cs, true
		}
	}
	return CategoryScore{}, false
}

// Degraded reports whether no category contributed to the composite
func (s Signal) Degraded() bool {
	for _, cs := range s.CategoryScores {
		if cs.Contributes() {
			return false
		}
	}
	return true
}
