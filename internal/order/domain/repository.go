package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ListFilter struct {
	SellerID snowflake.ID
	Status   OrderStatus
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}

// SalesTotals cover the market metrics group: delivered sales for today
// and the calendar month, plus the month's delivered order count.
type SalesTotals struct {
	TodaySales      decimal.Decimal
	MonthSales      decimal.Decimal
	MonthOrderCount int64
}

type FulfillmentCounts struct {
	Delivered int64
	OnTime    int64
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *Order) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Order, int64, error)
	SalesTotals(ctx context.Context, db *gorm.DB, dayStart, monthStart time.Time) (SalesTotals, error)
	FulfillmentCounts(ctx context.Context, db *gorm.DB) (FulfillmentCounts, error)
}
