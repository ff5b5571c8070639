package domain

import (
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Classification is the outcome of weighing a listed price against the
// ceiling in force for its product.
type Classification struct {
	Status     ComplianceStatus `json:"status"`
	OveragePct decimal.Decimal  `json:"overage_pct"`
	Ceiling    *decimal.Decimal `json:"ceiling,omitempty"`
	CeilingID  snowflake.ID     `json:"ceiling_id,omitempty"`
}

// Violated reports whether the classification found an overage.
func (c Classification) Violated() bool {
	return c.Status == StatusViolation
}

// Decide classifies a listed price against a ceiling amount. A nil
// ceiling means the product is unregulated and any price is compliant.
// Equality sits on the compliant side of the boundary; the overage
// percentage is strictly positive on violation and zero otherwise.
func Decide(listed decimal.Decimal, ceiling *decimal.Decimal) Classification {
	if ceiling == nil {
		return Classification{Status: StatusCompliant, OveragePct: decimal.Zero}
	}

	c := Classification{Status: StatusCompliant, OveragePct: decimal.Zero, Ceiling: ceiling}
	if listed.LessThanOrEqual(*ceiling) {
		return c
	}

	c.Status = StatusViolation
	c.OveragePct = listed.Sub(*ceiling).
		Div(*ceiling).
		Mul(decimal.NewFromInt(100)).
		Round(2)
	return c
}
