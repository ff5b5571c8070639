package health

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWeightsSumToOne(t *testing.T) {
	require.Equal(t, 1.0, ComplianceWeight+SatisfactionWeight+FulfillmentWeight)

	weights := []float64{ComplianceWeight, SatisfactionWeight, FulfillmentWeight}
	var sum float64
	for _, w := range weights {
		sum += w
	}
	require.InDelta(t, 1.0, sum, 1e-9)
}

func TestScoreBlendsComponents(t *testing.T) {
	require.Equal(t, 100, Score(Inputs{Compliance: 100, Satisfaction: 100, Fulfillment: 100}))
	require.Equal(t, 0, Score(Inputs{}))

	// 0.4*50 + 0.3*90 + 0.3*66.667 = 20 + 27 + 20.0001 -> 67
	require.Equal(t, 67, Score(Inputs{Compliance: 50, Satisfaction: 90, Fulfillment: 200.0 / 3.0}))

	// 0.4*100 + 0.3*85 = 65.5 rounds up.
	require.Equal(t, 66, Score(Inputs{Compliance: 100, Satisfaction: 85}))
}

func TestScoreClampsOutOfRangeInputs(t *testing.T) {
	require.Equal(t, 100, Score(Inputs{Compliance: 300, Satisfaction: 300, Fulfillment: 300}))
	require.Equal(t, 0, Score(Inputs{Compliance: -50, Satisfaction: -50, Fulfillment: -50}))
}

func TestSatisfactionScalesRatings(t *testing.T) {
	require.Equal(t, 100.0, Satisfaction(5, true, 85))
	require.Equal(t, 70.0, Satisfaction(3.5, true, 85))
	require.Equal(t, 0.0, Satisfaction(0, true, 85))
}

func TestSatisfactionFallsBackWithoutRatings(t *testing.T) {
	require.Equal(t, 85.0, Satisfaction(0, false, 85))
	require.Equal(t, 60.0, Satisfaction(4.5, false, 60))
}

func TestFulfillmentHandlesZeroDeliveries(t *testing.T) {
	require.Equal(t, 0.0, Fulfillment(0, 0))
	require.Equal(t, 50.0, Fulfillment(4, 2))
	require.Equal(t, 100.0, Fulfillment(3, 3))
	require.InDelta(t, 66.667, Fulfillment(3, 2), 0.001)
}
