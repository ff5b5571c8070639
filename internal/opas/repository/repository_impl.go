package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/openagora/agora/internal/opas/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, submission *domain.Submission) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO opas_submissions (id, seller_id, product_id, quantity, unit_price, expires_at, status, decided_by, decided_at, decision_note, batch_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		submission.ID,
		submission.SellerID,
		submission.ProductID,
		submission.Quantity,
		submission.UnitPrice,
		submission.ExpiresAt,
		submission.Status,
		submission.DecidedBy,
		submission.DecidedAt,
		submission.DecisionNote,
		submission.BatchID,
		submission.CreatedAt,
		submission.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, submission *domain.Submission) error {
	return db.WithContext(ctx).Exec(
		`UPDATE opas_submissions
		 SET status = ?, decided_by = ?, decided_at = ?, decision_note = ?, batch_id = ?, updated_at = ?
		 WHERE id = ?`,
		submission.Status,
		submission.DecidedBy,
		submission.DecidedAt,
		submission.DecisionNote,
		submission.BatchID,
		submission.UpdatedAt,
		submission.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID, forUpdate bool) (*domain.Submission, error) {
	query := `SELECT * FROM opas_submissions WHERE id = ?`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var submission domain.Submission
	err := db.WithContext(ctx).Raw(query, id).Scan(&submission).Error
	if err != nil {
		return nil, err
	}
	if submission.ID == 0 {
		return nil, nil
	}
	return &submission, nil
}

const submissionSelect = `o.*, p.name AS product_name, s.business_name AS seller_name`

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.SubmissionFilter) ([]domain.SubmissionRecord, int64, error) {
	stmt := db.WithContext(ctx).
		Table("opas_submissions AS o").
		Joins("JOIN products p ON p.id = o.product_id").
		Joins("JOIN sellers s ON s.id = o.seller_id")
	if filter.SellerID != 0 {
		stmt = stmt.Where("o.seller_id = ?", filter.SellerID)
	}
	if filter.ProductID != 0 {
		stmt = stmt.Where("o.product_id = ?", filter.ProductID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("o.status = ?", filter.Status)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var submissions []domain.SubmissionRecord
	err := stmt.
		Select(submissionSelect).
		Order("o.created_at desc, o.id desc").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Scan(&submissions).Error
	if err != nil {
		return nil, 0, err
	}
	return submissions, total, nil
}

func (r *repo) CountPending(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM opas_submissions WHERE status = ?`,
		domain.StatusPending,
	).Scan(&count).Error
	return count, err
}

func (r *repo) CountApprovedSince(ctx context.Context, db *gorm.DB, since time.Time) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM opas_submissions WHERE status = ? AND decided_at >= ?`,
		domain.StatusApproved,
		since.UTC(),
	).Scan(&count).Error
	return count, err
}
