package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	SellerID  snowflake.ID
	ProductID snowflake.ID
	Status    ListingStatus
	Limit     int
	Offset    int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, listing *Listing) error
	Update(ctx context.Context, db *gorm.DB, listing *Listing) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID, forUpdate bool) (*Listing, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Listing, int64, error)

	// ListActive returns the classifier's scan surface: every visible
	// ACTIVE listing.
	ListActive(ctx context.Context, db *gorm.DB) ([]*Listing, error)
	CountActive(ctx context.Context, db *gorm.DB) (int64, error)
}
