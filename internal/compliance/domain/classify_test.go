package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func TestDecideWithoutCeiling(t *testing.T) {
	got := Decide(dec("999999.99"), nil)

	assert.Equal(t, StatusCompliant, got.Status)
	assert.True(t, got.OveragePct.IsZero())
	assert.Nil(t, got.Ceiling)
	assert.False(t, got.Violated())
}

func TestDecideBoundary(t *testing.T) {
	ceiling := dec("100.00")

	tests := []struct {
		name    string
		listed  string
		status  ComplianceStatus
		overage string
	}{
		{name: "below", listed: "99.99", status: StatusCompliant, overage: "0"},
		{name: "equal", listed: "100.00", status: StatusCompliant, overage: "0"},
		{name: "one cent over", listed: "100.01", status: StatusViolation, overage: "0.01"},
		{name: "ten percent over", listed: "110.00", status: StatusViolation, overage: "10"},
		{name: "double", listed: "200.00", status: StatusViolation, overage: "100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(dec(tt.listed), &ceiling)

			assert.Equal(t, tt.status, got.Status)
			assert.True(t, got.OveragePct.Equal(dec(tt.overage)),
				"overage = %s, want %s", got.OveragePct, tt.overage)
			if got.Violated() {
				assert.True(t, got.OveragePct.GreaterThan(decimal.Zero))
			}
		})
	}
}

func TestDecideRoundsOverageToTwoPlaces(t *testing.T) {
	ceiling := dec("3.00")

	got := Decide(dec("4.00"), &ceiling)

	assert.Equal(t, StatusViolation, got.Status)
	assert.Equal(t, "33.33", got.OveragePct.StringFixed(2))
}
