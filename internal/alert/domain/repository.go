package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status    Status
	Category  Category
	Severity  Severity
	SellerID  snowflake.ID
	ProductID snowflake.ID
	Since     *time.Time
	Limit     int
	Offset    int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, alert *Alert) error
	Update(ctx context.Context, db *gorm.DB, alert *Alert) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Alert, error)
	// FindOpenByDedupeKey locks the open row for the key so concurrent
	// raises serialize on the dedupe decision.
	FindOpenByDedupeKey(ctx context.Context, db *gorm.DB, key string) (*Alert, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Alert, int64, error)
	OpenCountsByCategory(ctx context.Context, db *gorm.DB) (map[Category]int64, error)
}
