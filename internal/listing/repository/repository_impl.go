package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/openagora/agora/internal/listing/domain"
	"github.com/openagora/agora/pkg/db/lifecycle"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, listing *domain.Listing) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO listings (id, seller_id, product_id, listed_price, status, state, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		listing.ID,
		listing.SellerID,
		listing.ProductID,
		listing.ListedPrice,
		listing.Status,
		listing.State,
		listing.CreatedAt,
		listing.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, listing *domain.Listing) error {
	return db.WithContext(ctx).Exec(
		`UPDATE listings
		 SET listed_price = ?, status = ?, state = ?, updated_at = ?
		 WHERE id = ?`,
		listing.ListedPrice,
		listing.Status,
		listing.State,
		listing.UpdatedAt,
		listing.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID, forUpdate bool) (*domain.Listing, error) {
	query := `SELECT * FROM listings WHERE id = ? AND state = ?`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var listing domain.Listing
	err := db.WithContext(ctx).Raw(query, id, lifecycle.StateActive).Scan(&listing).Error
	if err != nil {
		return nil, err
	}
	if listing.ID == 0 {
		return nil, nil
	}
	return &listing, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Listing, int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.Listing{}).Scopes(lifecycle.Visible)
	if filter.SellerID != 0 {
		stmt = stmt.Where("seller_id = ?", filter.SellerID)
	}
	if filter.ProductID != 0 {
		stmt = stmt.Where("product_id = ?", filter.ProductID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var listings []*domain.Listing
	err := stmt.
		Order("created_at desc, id desc").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&listings).Error
	if err != nil {
		return nil, 0, err
	}
	return listings, total, nil
}

func (r *repo) ListActive(ctx context.Context, db *gorm.DB) ([]*domain.Listing, error) {
	var listings []*domain.Listing
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM listings
		 WHERE status = ? AND state = ?
		 ORDER BY id ASC`,
		domain.StatusActive,
		lifecycle.StateActive,
	).Scan(&listings).Error
	if err != nil {
		return nil, err
	}
	return listings, nil
}

func (r *repo) CountActive(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM listings WHERE status = ? AND state = ?`,
		domain.StatusActive,
		lifecycle.StateActive,
	).Scan(&total).Error
	return total, err
}
