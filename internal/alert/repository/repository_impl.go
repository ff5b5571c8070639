package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/openagora/agora/internal/alert/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, alert *domain.Alert) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO marketplace_alerts (id, category, severity, seller_id, product_id, message, dedupe_key, status, resolved_by, resolved_notes, resolved_at, meta, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		alert.ID,
		alert.Category,
		alert.Severity,
		alert.SellerID,
		alert.ProductID,
		alert.Message,
		alert.DedupeKey,
		alert.Status,
		alert.ResolvedBy,
		alert.ResolvedNotes,
		alert.ResolvedAt,
		alert.Meta,
		alert.CreatedAt,
		alert.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, alert *domain.Alert) error {
	return db.WithContext(ctx).Exec(
		`UPDATE marketplace_alerts
		 SET severity = ?, message = ?, status = ?, resolved_by = ?, resolved_notes = ?, resolved_at = ?, meta = ?, updated_at = ?
		 WHERE id = ?`,
		alert.Severity,
		alert.Message,
		alert.Status,
		alert.ResolvedBy,
		alert.ResolvedNotes,
		alert.ResolvedAt,
		alert.Meta,
		alert.UpdatedAt,
		alert.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Alert, error) {
	var alert domain.Alert
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM marketplace_alerts WHERE id = ?`,
		id,
	).Scan(&alert).Error
	if err != nil {
		return nil, err
	}
	if alert.ID == 0 {
		return nil, nil
	}
	return &alert, nil
}

func (r *repo) FindOpenByDedupeKey(ctx context.Context, db *gorm.DB, key string) (*domain.Alert, error) {
	var alert domain.Alert
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM marketplace_alerts WHERE dedupe_key = ? AND status = ? FOR UPDATE`,
		key,
		domain.StatusOpen,
	).Scan(&alert).Error
	if err != nil {
		return nil, err
	}
	if alert.ID == 0 {
		return nil, nil
	}
	return &alert, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Alert, int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.Alert{})
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.Category != "" {
		stmt = stmt.Where("category = ?", filter.Category)
	}
	if filter.Severity != "" {
		stmt = stmt.Where("severity = ?", filter.Severity)
	}
	if filter.SellerID != 0 {
		stmt = stmt.Where("seller_id = ?", filter.SellerID)
	}
	if filter.ProductID != 0 {
		stmt = stmt.Where("product_id = ?", filter.ProductID)
	}
	if filter.Since != nil {
		stmt = stmt.Where("created_at >= ?", *filter.Since)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var alerts []*domain.Alert
	err := stmt.
		Order("created_at desc, id desc").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&alerts).Error
	if err != nil {
		return nil, 0, err
	}
	return alerts, total, nil
}

func (r *repo) OpenCountsByCategory(ctx context.Context, db *gorm.DB) (map[domain.Category]int64, error) {
	var rows []struct {
		Category domain.Category
		Total    int64
	}
	err := db.WithContext(ctx).Raw(
		`SELECT category, COUNT(*) AS total
		 FROM marketplace_alerts
		 WHERE status = ?
		 GROUP BY category`,
		domain.StatusOpen,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[domain.Category]int64, len(rows))
	for _, row := range rows {
		counts[row.Category] = row.Total
	}
	return counts, nil
}
