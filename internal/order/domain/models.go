package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/openagora/agora/pkg/db/lifecycle"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusDelivered OrderStatus = "DELIVERED"
	StatusCancelled OrderStatus = "CANCELLED"
)

// Order mirrors marketplace purchases into the admin backend. Rows arrive
// from the marketplace feed; admins only read them.
type Order struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	SellerID    snowflake.ID    `gorm:"column:seller_id;not null;index" json:"seller_id"`
	BuyerLabel  string          `gorm:"column:buyer_label;type:text;not null" json:"buyer_label"`
	TotalAmount decimal.Decimal `gorm:"column:total_amount;type:decimal(12,2);not null" json:"total_amount"`
	Status      OrderStatus     `gorm:"type:text;not null;default:'PENDING';index" json:"status"`
	DeliveredAt *time.Time      `gorm:"column:delivered_at" json:"delivered_at,omitempty"`
	OnTime      *bool           `gorm:"column:on_time" json:"on_time,omitempty"`
	State       lifecycle.State `gorm:"type:text;not null;default:'ACTIVE'" json:"-"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Order) TableName() string { return "orders" }
