package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status Status
	Query  string
	Limit  int
	Offset int
}

// StatusCounts feed the seller metrics group.
type StatusCounts struct {
	Total     int64
	Pending   int64
	Active    int64
	Suspended int64
}

type ApprovalCounts struct {
	Approved int64
	Rejected int64
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, seller *Seller) error
	Update(ctx context.Context, db *gorm.DB, seller *Seller) error
	// FindByID locks the row when forUpdate is set so moderation
	// transitions serialize per seller.
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID, forUpdate bool) (*Seller, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Seller, int64, error)

	CountByStatus(ctx context.Context, db *gorm.DB) (StatusCounts, error)
	CountNewSince(ctx context.Context, db *gorm.DB, since time.Time) (int64, error)
	CountApprovals(ctx context.Context, db *gorm.DB) (ApprovalCounts, error)
	// AverageRating returns the mean rating across rated sellers and
	// whether any rating data exists at all.
	AverageRating(ctx context.Context, db *gorm.DB) (float64, bool, error)
}
