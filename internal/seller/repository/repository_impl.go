package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/openagora/agora/internal/seller/domain"
	"github.com/openagora/agora/pkg/db/lifecycle"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, seller *domain.Seller) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO sellers (id, business_name, owner_name, email, phone, status, average_rating, approved_at, rejected_at, suspended_at, state, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		seller.ID,
		seller.BusinessName,
		seller.OwnerName,
		seller.Email,
		seller.Phone,
		seller.Status,
		seller.AverageRating,
		seller.ApprovedAt,
		seller.RejectedAt,
		seller.SuspendedAt,
		seller.State,
		seller.CreatedAt,
		seller.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, seller *domain.Seller) error {
	return db.WithContext(ctx).Exec(
		`UPDATE sellers
		 SET business_name = ?, owner_name = ?, email = ?, phone = ?, status = ?, average_rating = ?, approved_at = ?, rejected_at = ?, suspended_at = ?, state = ?, updated_at = ?
		 WHERE id = ?`,
		seller.BusinessName,
		seller.OwnerName,
		seller.Email,
		seller.Phone,
		seller.Status,
		seller.AverageRating,
		seller.ApprovedAt,
		seller.RejectedAt,
		seller.SuspendedAt,
		seller.State,
		seller.UpdatedAt,
		seller.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID, forUpdate bool) (*domain.Seller, error) {
	query := `SELECT * FROM sellers WHERE id = ? AND state = ?`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var seller domain.Seller
	err := db.WithContext(ctx).Raw(query, id, lifecycle.StateActive).Scan(&seller).Error
	if err != nil {
		return nil, err
	}
	if seller.ID == 0 {
		return nil, nil
	}
	return &seller, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Seller, int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.Seller{}).Scopes(lifecycle.Visible)
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.Query != "" {
		pattern := "%" + strings.ToLower(filter.Query) + "%"
		stmt = stmt.Where("(LOWER(business_name) LIKE ? OR LOWER(owner_name) LIKE ? OR LOWER(email) LIKE ?)", pattern, pattern, pattern)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var sellers []*domain.Seller
	err := stmt.
		Order("created_at desc, id desc").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&sellers).Error
	if err != nil {
		return nil, 0, err
	}
	return sellers, total, nil
}

func (r *repo) CountByStatus(ctx context.Context, db *gorm.DB) (domain.StatusCounts, error) {
	var counts domain.StatusCounts
	err := db.WithContext(ctx).Raw(
		`SELECT
			COUNT(*) AS total,
			COUNT(CASE WHEN status = ? THEN 1 END) AS pending,
			COUNT(CASE WHEN status = ? THEN 1 END) AS active,
			COUNT(CASE WHEN status = ? THEN 1 END) AS suspended
		 FROM sellers WHERE state = ?`,
		domain.StatusPending,
		domain.StatusActive,
		domain.StatusSuspended,
		lifecycle.StateActive,
	).Scan(&counts).Error
	return counts, err
}

func (r *repo) CountNewSince(ctx context.Context, db *gorm.DB, since time.Time) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM sellers WHERE state = ? AND created_at >= ?`,
		lifecycle.StateActive,
		since,
	).Scan(&total).Error
	return total, err
}

func (r *repo) CountApprovals(ctx context.Context, db *gorm.DB) (domain.ApprovalCounts, error) {
	var counts domain.ApprovalCounts
	err := db.WithContext(ctx).Raw(
		`SELECT
			COUNT(CASE WHEN approved_at IS NOT NULL THEN 1 END) AS approved,
			COUNT(CASE WHEN rejected_at IS NOT NULL THEN 1 END) AS rejected
		 FROM sellers WHERE state = ?`,
		lifecycle.StateActive,
	).Scan(&counts).Error
	return counts, err
}

func (r *repo) AverageRating(ctx context.Context, db *gorm.DB) (float64, bool, error) {
	var row struct {
		Avg   float64
		Rated int64
	}
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(AVG(average_rating), 0) AS avg, COUNT(average_rating) AS rated
		 FROM sellers WHERE state = ? AND average_rating IS NOT NULL`,
		lifecycle.StateActive,
	).Scan(&row).Error
	if err != nil {
		return 0, false, err
	}
	return row.Avg, row.Rated > 0, nil
}
