package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/openagora/agora/internal/pricing/domain"
	"github.com/openagora/agora/pkg/db/lifecycle"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertCeiling(ctx context.Context, db *gorm.DB, ceiling *domain.PriceCeiling) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO price_ceilings (id, product_id, amount, effective_from, effective_until, created_by, state, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ceiling.ID,
		ceiling.ProductID,
		ceiling.Amount,
		ceiling.EffectiveFrom,
		ceiling.EffectiveUntil,
		ceiling.CreatedBy,
		ceiling.State,
		ceiling.CreatedAt,
	).Error
}

func (r *repo) InsertHistory(ctx context.Context, db *gorm.DB, entry *domain.PriceHistoryEntry) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO price_history (id, product_id, ceiling_id, old_amount, new_amount, reason, note, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.ProductID,
		entry.CeilingID,
		entry.OldAmount,
		entry.NewAmount,
		entry.Reason,
		entry.Note,
		entry.CreatedBy,
		entry.CreatedAt,
	).Error
}

func (r *repo) FindCeilingByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.PriceCeiling, error) {
	var ceiling domain.PriceCeiling
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM price_ceilings WHERE id = ? AND state = ?`,
		id,
		lifecycle.StateActive,
	).Scan(&ceiling).Error
	if err != nil {
		return nil, err
	}
	if ceiling.ID == 0 {
		return nil, nil
	}
	return &ceiling, nil
}

func (r *repo) LatestCeiling(ctx context.Context, db *gorm.DB, productID snowflake.ID, forUpdate bool) (*domain.PriceCeiling, error) {
	query := `SELECT * FROM price_ceilings
		 WHERE product_id = ? AND state = ?
		 ORDER BY effective_from DESC, id DESC
		 LIMIT 1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var ceiling domain.PriceCeiling
	err := db.WithContext(ctx).Raw(query, productID, lifecycle.StateActive).Scan(&ceiling).Error
	if err != nil {
		return nil, err
	}
	if ceiling.ID == 0 {
		return nil, nil
	}
	return &ceiling, nil
}

func (r *repo) EffectiveCeiling(ctx context.Context, db *gorm.DB, productID snowflake.ID, asOf time.Time) (*domain.PriceCeiling, error) {
	var ceiling domain.PriceCeiling
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM price_ceilings
		 WHERE product_id = ? AND state = ?
		   AND effective_from <= ?
		   AND (effective_until IS NULL OR effective_until > ?)
		 ORDER BY effective_from DESC, id DESC
		 LIMIT 1`,
		productID,
		lifecycle.StateActive,
		asOf,
		asOf,
	).Scan(&ceiling).Error
	if err != nil {
		return nil, err
	}
	if ceiling.ID == 0 {
		return nil, nil
	}
	return &ceiling, nil
}

func (r *repo) EffectiveCeilings(ctx context.Context, db *gorm.DB, asOf time.Time) ([]domain.PriceCeiling, error) {
	var ceilings []domain.PriceCeiling
	err := db.WithContext(ctx).Raw(
		`SELECT c.* FROM price_ceilings c
		 WHERE c.state = ?
		   AND c.effective_from <= ?
		   AND (c.effective_until IS NULL OR c.effective_until > ?)
		   AND c.id = (
			SELECT c2.id FROM price_ceilings c2
			WHERE c2.product_id = c.product_id AND c2.state = ?
			  AND c2.effective_from <= ?
			  AND (c2.effective_until IS NULL OR c2.effective_until > ?)
			ORDER BY c2.effective_from DESC, c2.id DESC
			LIMIT 1
		   )
		 ORDER BY c.product_id`,
		lifecycle.StateActive,
		asOf,
		asOf,
		lifecycle.StateActive,
		asOf,
		asOf,
	).Scan(&ceilings).Error
	if err != nil {
		return nil, err
	}
	return ceilings, nil
}

func (r *repo) ListCeilings(ctx context.Context, db *gorm.DB, filter domain.CeilingFilter) ([]domain.PriceCeiling, int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.PriceCeiling{}).Scopes(lifecycle.Visible)
	if filter.ProductID != 0 {
		stmt = stmt.Where("product_id = ?", filter.ProductID)
	}
	if filter.ActiveAt != nil {
		at := filter.ActiveAt.UTC()
		stmt = stmt.Where("effective_from <= ? AND (effective_until IS NULL OR effective_until > ?)", at, at)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var ceilings []domain.PriceCeiling
	err := stmt.
		Order("effective_from desc, id desc").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&ceilings).Error
	if err != nil {
		return nil, 0, err
	}
	return ceilings, total, nil
}

const historySelect = `h.id, h.product_id, p.name AS product_name, h.ceiling_id,
	h.old_amount, h.new_amount, h.reason, h.note, h.created_by,
	COALESCE(a.display_name, '') AS admin_name, h.created_at`

func (r *repo) ListHistory(ctx context.Context, db *gorm.DB, filter domain.HistoryFilter) ([]domain.HistoryRecord, int64, error) {
	stmt := db.WithContext(ctx).
		Table("price_history AS h").
		Joins("JOIN products p ON p.id = h.product_id").
		Joins("LEFT JOIN admin_users a ON a.id = h.created_by")
	if filter.ProductID != 0 {
		stmt = stmt.Where("h.product_id = ?", filter.ProductID)
	}
	if filter.AdminID != 0 {
		stmt = stmt.Where("h.created_by = ?", filter.AdminID)
	}
	if filter.Reason != "" {
		stmt = stmt.Where("h.reason = ?", filter.Reason)
	}
	if !filter.From.IsZero() {
		stmt = stmt.Where("h.created_at >= ?", filter.From.UTC())
	}
	if !filter.To.IsZero() {
		stmt = stmt.Where("h.created_at <= ?", filter.To.UTC())
	}
	if filter.Query != "" {
		pattern := "%" + strings.ToLower(filter.Query) + "%"
		stmt = stmt.Where("(LOWER(p.name) LIKE ? OR LOWER(COALESCE(a.display_name, '')) LIKE ?)", pattern, pattern)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []domain.HistoryRecord
	err := stmt.
		Select(historySelect).
		Order("h.created_at desc, h.id desc").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Scan(&entries).Error
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *repo) ExportCeilings(ctx context.Context, db *gorm.DB) ([]domain.CeilingRecord, error) {
	var records []domain.CeilingRecord
	err := db.WithContext(ctx).Raw(
		`SELECT c.*, p.name AS product_name
		 FROM price_ceilings c
		 JOIN products p ON p.id = c.product_id
		 WHERE c.state = ?
		 ORDER BY p.name ASC, c.effective_from DESC, c.id DESC`,
		lifecycle.StateActive,
	).Scan(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repo) ExportHistory(ctx context.Context, db *gorm.DB) ([]domain.HistoryRecord, error) {
	var entries []domain.HistoryRecord
	err := db.WithContext(ctx).Raw(
		`SELECT `+historySelect+`
		 FROM price_history h
		 JOIN products p ON p.id = h.product_id
		 LEFT JOIN admin_users a ON a.id = h.created_by
		 ORDER BY h.created_at ASC, h.id ASC`,
	).Scan(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
