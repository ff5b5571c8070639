// Package health computes the composite marketplace health score. All
// functions are pure so the formula can be tested without a database.
package health

import "math"

// Component weights. They must sum to 1.
const (
	ComplianceWeight   = 0.4
	SatisfactionWeight = 0.3
	FulfillmentWeight  = 0.3
)

// Inputs are the three component scores, each on a 0..100 scale.
type Inputs struct {
	Compliance   float64
	Satisfaction float64
	Fulfillment  float64
}

// Score blends the components into a single 0..100 integer.
func Score(in Inputs) int {
	raw := in.Compliance*ComplianceWeight +
		in.Satisfaction*SatisfactionWeight +
		in.Fulfillment*FulfillmentWeight
	score := int(math.Round(raw))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Satisfaction scales an average star rating (0..5) onto 0..100. When no
// seller has been rated yet the configured fallback keeps the composite
// score from collapsing on an empty marketplace.
func Satisfaction(avgRating float64, hasData bool, fallback float64) float64 {
	if !hasData {
		return fallback
	}
	return avgRating * 20
}

// Fulfillment is the share of delivered orders that arrived on time, in
// percent. No deliveries means no evidence, which scores zero.
func Fulfillment(delivered, onTime int64) float64 {
	if delivered == 0 {
		return 0
	}
	return float64(onTime) / float64(delivered) * 100
}
