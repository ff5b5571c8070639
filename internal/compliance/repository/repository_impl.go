package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/openagora/agora/internal/compliance/domain"
	"github.com/openagora/agora/pkg/db/lifecycle"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, record *domain.NonComplianceRecord) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO non_compliance_records (id, seller_id, product_id, listing_id, listed_price, ceiling_price, overage_pct, detected_at, status, acknowledged_by, acknowledged_at, resolved_by, resolved_notes, resolved_at, state, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.SellerID,
		record.ProductID,
		record.ListingID,
		record.ListedPrice,
		record.CeilingPrice,
		record.OveragePct,
		record.DetectedAt,
		record.Status,
		record.AcknowledgedBy,
		record.AcknowledgedAt,
		record.ResolvedBy,
		record.ResolvedNotes,
		record.ResolvedAt,
		record.State,
		record.CreatedAt,
		record.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, record *domain.NonComplianceRecord) error {
	return db.WithContext(ctx).Exec(
		`UPDATE non_compliance_records
		 SET listed_price = ?, ceiling_price = ?, overage_pct = ?, detected_at = ?, status = ?, acknowledged_by = ?, acknowledged_at = ?, resolved_by = ?, resolved_notes = ?, resolved_at = ?, state = ?, updated_at = ?
		 WHERE id = ?`,
		record.ListedPrice,
		record.CeilingPrice,
		record.OveragePct,
		record.DetectedAt,
		record.Status,
		record.AcknowledgedBy,
		record.AcknowledgedAt,
		record.ResolvedBy,
		record.ResolvedNotes,
		record.ResolvedAt,
		record.State,
		record.UpdatedAt,
		record.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID, forUpdate bool) (*domain.NonComplianceRecord, error) {
	query := `SELECT * FROM non_compliance_records WHERE id = ? AND state = ?`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var record domain.NonComplianceRecord
	err := db.WithContext(ctx).Raw(
		query,
		id,
		lifecycle.StateActive,
	).Scan(&record).Error
	if err != nil {
		return nil, err
	}
	if record.ID == 0 {
		return nil, nil
	}
	return &record, nil
}

func (r *repo) FindUnresolved(ctx context.Context, db *gorm.DB, sellerID, productID snowflake.ID, forUpdate bool) (*domain.NonComplianceRecord, error) {
	query := `SELECT * FROM non_compliance_records
		 WHERE seller_id = ? AND product_id = ? AND status != ? AND state = ?
		 ORDER BY detected_at ASC, id ASC
		 LIMIT 1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var record domain.NonComplianceRecord
	err := db.WithContext(ctx).Raw(
		query,
		sellerID,
		productID,
		domain.ViolationResolved,
		lifecycle.StateActive,
	).Scan(&record).Error
	if err != nil {
		return nil, err
	}
	if record.ID == 0 {
		return nil, nil
	}
	return &record, nil
}

const violationSelect = `v.*, p.name AS product_name, s.business_name AS seller_name`

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ViolationFilter) ([]domain.ViolationRecord, int64, error) {
	stmt := db.WithContext(ctx).
		Table("non_compliance_records AS v").
		Joins("JOIN products p ON p.id = v.product_id").
		Joins("JOIN sellers s ON s.id = v.seller_id").
		Where("v.state = ?", lifecycle.StateActive)
	if filter.SellerID != 0 {
		stmt = stmt.Where("v.seller_id = ?", filter.SellerID)
	}
	if filter.ProductID != 0 {
		stmt = stmt.Where("v.product_id = ?", filter.ProductID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("v.status = ?", filter.Status)
	}
	if !filter.From.IsZero() {
		stmt = stmt.Where("v.detected_at >= ?", filter.From.UTC())
	}
	if !filter.To.IsZero() {
		stmt = stmt.Where("v.detected_at <= ?", filter.To.UTC())
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var violations []domain.ViolationRecord
	err := stmt.
		Select(violationSelect).
		Order("v.detected_at desc, v.id desc").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Scan(&violations).Error
	if err != nil {
		return nil, 0, err
	}
	return violations, total, nil
}

func (r *repo) CountByStatus(ctx context.Context, db *gorm.DB) (domain.StatusCounts, error) {
	var counts domain.StatusCounts
	err := db.WithContext(ctx).Raw(
		`SELECT
			COUNT(CASE WHEN status = ? THEN 1 END) AS "new",
			COUNT(CASE WHEN status = ? THEN 1 END) AS acknowledged,
			COUNT(CASE WHEN status = ? THEN 1 END) AS resolved
		 FROM non_compliance_records WHERE state = ?`,
		domain.ViolationNew,
		domain.ViolationAcknowledged,
		domain.ViolationResolved,
		lifecycle.StateActive,
	).Scan(&counts).Error
	return counts, err
}

func (r *repo) ExportViolations(ctx context.Context, db *gorm.DB) ([]domain.ViolationRecord, error) {
	var violations []domain.ViolationRecord
	err := db.WithContext(ctx).Raw(
		`SELECT `+violationSelect+`
		 FROM non_compliance_records v
		 JOIN products p ON p.id = v.product_id
		 JOIN sellers s ON s.id = v.seller_id
		 WHERE v.state = ?
		 ORDER BY v.detected_at ASC, v.id ASC`,
		lifecycle.StateActive,
	).Scan(&violations).Error
	if err != nil {
		return nil, err
	}
	return violations, nil
}
