package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/openagora/agora/pkg/db/lifecycle"
	"github.com/shopspring/decimal"
)

type ListingStatus string

const (
	StatusActive   ListingStatus = "ACTIVE"
	StatusInactive ListingStatus = "INACTIVE"
)

// Listing is a seller's offer for a product. ACTIVE listings form the
// classifier's scan surface.
type Listing struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	SellerID    snowflake.ID    `gorm:"column:seller_id;not null;index" json:"seller_id"`
	ProductID   snowflake.ID    `gorm:"column:product_id;not null;index" json:"product_id"`
	ListedPrice decimal.Decimal `gorm:"column:listed_price;type:decimal(12,2);not null" json:"listed_price"`
	Status      ListingStatus   `gorm:"type:text;not null;default:'ACTIVE';index" json:"status"`
	State       lifecycle.State `gorm:"type:text;not null;default:'ACTIVE'" json:"-"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Listing) TableName() string { return "listings" }
