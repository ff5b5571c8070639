package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CeilingFilter struct {
	ProductID snowflake.ID
	ActiveAt  *time.Time
	Limit     int
	Offset    int
}

type HistoryFilter struct {
	ProductID snowflake.ID
	AdminID   snowflake.ID
	Reason    ChangeReason
	From      time.Time
	To        time.Time
	Query     string
	Limit     int
	Offset    int
}

// HistoryRecord is a history entry joined with product and admin names,
// the shape history listings and exports render.
type HistoryRecord struct {
	ID          snowflake.ID        `json:"id"`
	ProductID   snowflake.ID        `json:"product_id"`
	ProductName string              `json:"product_name"`
	CeilingID   snowflake.ID        `json:"ceiling_id"`
	OldAmount   decimal.NullDecimal `json:"old_amount"`
	NewAmount   decimal.Decimal     `json:"new_amount"`
	Reason      ChangeReason        `json:"reason"`
	Note        string              `json:"note,omitempty"`
	CreatedBy   snowflake.ID        `json:"created_by"`
	AdminName   string              `json:"admin_name"`
	CreatedAt   time.Time           `json:"created_at"`
}

// CeilingRecord is a ceiling joined with its product name for exports.
type CeilingRecord struct {
	PriceCeiling
	ProductName string `json:"product_name"`
}

type Repository interface {
	InsertCeiling(ctx context.Context, db *gorm.DB, ceiling *PriceCeiling) error
	InsertHistory(ctx context.Context, db *gorm.DB, entry *PriceHistoryEntry) error
	FindCeilingByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*PriceCeiling, error)

	// LatestCeiling returns the newest ceiling for a product by
	// effective_from regardless of whether it is still in force, locking
	// the row when forUpdate is set so concurrent issues serialize.
	LatestCeiling(ctx context.Context, db *gorm.DB, productID snowflake.ID, forUpdate bool) (*PriceCeiling, error)

	// EffectiveCeiling resolves the ceiling in force for a product at the
	// given instant, nil when the product is unregulated at that time.
	EffectiveCeiling(ctx context.Context, db *gorm.DB, productID snowflake.ID, asOf time.Time) (*PriceCeiling, error)

	// EffectiveCeilings resolves the ceiling in force at the given instant
	// for every product that has one.
	EffectiveCeilings(ctx context.Context, db *gorm.DB, asOf time.Time) ([]PriceCeiling, error)

	ListCeilings(ctx context.Context, db *gorm.DB, filter CeilingFilter) ([]PriceCeiling, int64, error)
	ListHistory(ctx context.Context, db *gorm.DB, filter HistoryFilter) ([]HistoryRecord, int64, error)

	// ExportCeilings returns every visible ceiling with its product name,
	// ordered for stable export output.
	ExportCeilings(ctx context.Context, db *gorm.DB) ([]CeilingRecord, error)
	// ExportHistory returns the full history joined with names, oldest first.
	ExportHistory(ctx context.Context, db *gorm.DB) ([]HistoryRecord, error)
}
