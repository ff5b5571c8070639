package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/openagora/agora/pkg/db/lifecycle"
	"github.com/shopspring/decimal"
)

// ChangeReason explains why a ceiling was issued.
type ChangeReason string

var (
	ReasonInitial            ChangeReason = "INITIAL"
	ReasonMarketCorrection   ChangeReason = "MARKET_CORRECTION"
	ReasonSupplyShock        ChangeReason = "SUPPLY_SHOCK"
	ReasonCurrencyAdjustment ChangeReason = "CURRENCY_ADJUSTMENT"
	ReasonEmergencyControl   ChangeReason = "EMERGENCY_CONTROL"
	ReasonOther              ChangeReason = "OTHER"
)

func ValidChangeReason(r ChangeReason) bool {
	switch r {
	case ReasonInitial, ReasonMarketCorrection, ReasonSupplyShock,
		ReasonCurrencyAdjustment, ReasonEmergencyControl, ReasonOther:
		return true
	default:
		return false
	}
}

// PriceCeiling caps what sellers may charge for a product over a time
// window. Rows are immutable: a correction is a new ceiling with a later
// effective_from, never an edit in place.
type PriceCeiling struct {
	ID             snowflake.ID    `json:"id" gorm:"primaryKey"`
	ProductID      snowflake.ID    `json:"product_id" gorm:"not null;index"`
	Amount         decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null"`
	EffectiveFrom  time.Time       `json:"effective_from" gorm:"not null;index"`
	EffectiveUntil *time.Time      `json:"effective_until,omitempty"`
	CreatedBy      snowflake.ID    `json:"created_by"`
	State          lifecycle.State `json:"-" gorm:"type:text;not null;default:'ACTIVE'"`
	CreatedAt      time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (PriceCeiling) TableName() string { return "price_ceilings" }

// EffectiveAt reports whether the ceiling is in force at the given instant.
func (c PriceCeiling) EffectiveAt(t time.Time) bool {
	if t.Before(c.EffectiveFrom) {
		return false
	}
	return c.EffectiveUntil == nil || t.Before(*c.EffectiveUntil)
}

// PriceHistoryEntry is the append-only audit trail of ceiling changes.
// OldAmount is null on a product's first ceiling.
type PriceHistoryEntry struct {
	ID        snowflake.ID        `json:"id" gorm:"primaryKey"`
	ProductID snowflake.ID        `json:"product_id" gorm:"not null;index"`
	CeilingID snowflake.ID        `json:"ceiling_id" gorm:"not null"`
	OldAmount decimal.NullDecimal `json:"old_amount" gorm:"type:decimal(12,2)"`
	NewAmount decimal.Decimal     `json:"new_amount" gorm:"type:decimal(12,2);not null"`
	Reason    ChangeReason        `json:"reason" gorm:"type:text;not null"`
	Note      string              `json:"note,omitempty" gorm:"type:text"`
	CreatedBy snowflake.ID        `json:"created_by"`
	CreatedAt time.Time           `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (PriceHistoryEntry) TableName() string { return "price_history" }
