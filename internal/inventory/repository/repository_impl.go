package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/openagora/agora/internal/inventory/domain"
	"github.com/openagora/agora/pkg/db/lifecycle"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertBatch(ctx context.Context, db *gorm.DB, batch *domain.Batch) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO inventory_batches (id, product_id, quantity_received, quantity_on_hand, quantity_consumed, unit_price, storage, received_at, expires_at, low_stock_threshold, state, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		batch.ID,
		batch.ProductID,
		batch.QuantityReceived,
		batch.QuantityOnHand,
		batch.QuantityConsumed,
		batch.UnitPrice,
		batch.Storage,
		batch.ReceivedAt,
		batch.ExpiresAt,
		batch.LowStockThreshold,
		batch.State,
		batch.CreatedAt,
		batch.UpdatedAt,
	).Error
}

func (r *repo) UpdateBatch(ctx context.Context, db *gorm.DB, batch *domain.Batch) error {
	return db.WithContext(ctx).Exec(
		`UPDATE inventory_batches
		 SET quantity_received = ?, quantity_on_hand = ?, quantity_consumed = ?, storage = ?, low_stock_threshold = ?, state = ?, updated_at = ?
		 WHERE id = ?`,
		batch.QuantityReceived,
		batch.QuantityOnHand,
		batch.QuantityConsumed,
		batch.Storage,
		batch.LowStockThreshold,
		batch.State,
		batch.UpdatedAt,
		batch.ID,
	).Error
}

func (r *repo) FindBatchByID(ctx context.Context, db *gorm.DB, id snowflake.ID, forUpdate bool) (*domain.Batch, error) {
	query := `SELECT * FROM inventory_batches WHERE id = ? AND state = ?`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var batch domain.Batch
	err := db.WithContext(ctx).Raw(query, id, lifecycle.StateActive).Scan(&batch).Error
	if err != nil {
		return nil, err
	}
	if batch.ID == 0 {
		return nil, nil
	}
	return &batch, nil
}

func (r *repo) OpenBatches(ctx context.Context, db *gorm.DB, productID snowflake.ID, asOf time.Time, forUpdate bool) ([]*domain.Batch, error) {
	query := `SELECT * FROM inventory_batches
		 WHERE product_id = ? AND quantity_on_hand > 0 AND expires_at > ? AND state = ?
		 ORDER BY received_at ASC, expires_at ASC, id ASC`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var batches []*domain.Batch
	err := db.WithContext(ctx).Raw(query, productID, asOf, lifecycle.StateActive).Scan(&batches).Error
	if err != nil {
		return nil, err
	}
	return batches, nil
}

func (r *repo) ListBatches(ctx context.Context, db *gorm.DB, filter domain.BatchFilter) ([]domain.Batch, int64, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Batch{}).
		Scopes(lifecycle.Visible)
	if filter.ProductID != 0 {
		stmt = stmt.Where("product_id = ?", filter.ProductID)
	}
	if filter.LowStock {
		stmt = stmt.Where("quantity_on_hand <= low_stock_threshold")
	}
	if filter.ExpiringBefore != nil {
		stmt = stmt.Where("expires_at <= ? AND quantity_on_hand > 0", filter.ExpiringBefore.UTC())
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var batches []domain.Batch
	err := stmt.
		Order("received_at desc, id desc").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&batches).Error
	if err != nil {
		return nil, 0, err
	}
	return batches, total, nil
}

func (r *repo) InsertTransaction(ctx context.Context, db *gorm.DB, trx *domain.Transaction) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO inventory_transactions (id, batch_id, product_id, type, quantity, reason, is_fifo_compliant, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		trx.ID,
		trx.BatchID,
		trx.ProductID,
		trx.Type,
		trx.Quantity,
		trx.Reason,
		trx.IsFIFOCompliant,
		trx.CreatedBy,
		trx.CreatedAt,
	).Error
}

func (r *repo) ListTransactions(ctx context.Context, db *gorm.DB, filter domain.TransactionFilter) ([]domain.Transaction, int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.Transaction{})
	if filter.BatchID != 0 {
		stmt = stmt.Where("batch_id = ?", filter.BatchID)
	}
	if filter.ProductID != 0 {
		stmt = stmt.Where("product_id = ?", filter.ProductID)
	}
	if filter.Type != "" {
		stmt = stmt.Where("type = ?", filter.Type)
	}
	if !filter.From.IsZero() {
		stmt = stmt.Where("created_at >= ?", filter.From.UTC())
	}
	if !filter.To.IsZero() {
		stmt = stmt.Where("created_at <= ?", filter.To.UTC())
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var transactions []domain.Transaction
	err := stmt.
		Order("created_at desc, id desc").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&transactions).Error
	if err != nil {
		return nil, 0, err
	}
	return transactions, total, nil
}

func (r *repo) TransactionsForBatch(ctx context.Context, db *gorm.DB, batchID snowflake.ID) ([]domain.Transaction, error) {
	var transactions []domain.Transaction
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM inventory_transactions WHERE batch_id = ? ORDER BY created_at ASC, id ASC`,
		batchID,
	).Scan(&transactions).Error
	if err != nil {
		return nil, err
	}
	return transactions, nil
}

func (r *repo) StockSummary(ctx context.Context, db *gorm.DB) (domain.StockSummary, error) {
	var summary domain.StockSummary
	err := db.WithContext(ctx).Raw(
		`SELECT
			COALESCE(SUM(quantity_on_hand), 0) AS total_on_hand,
			COALESCE(SUM(quantity_on_hand * unit_price), 0) AS total_value
		 FROM inventory_batches
		 WHERE state = ?`,
		lifecycle.StateActive,
	).Scan(&summary).Error
	return summary, err
}

func (r *repo) CountLowStock(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM inventory_batches
		 WHERE quantity_on_hand <= low_stock_threshold AND state = ?`,
		lifecycle.StateActive,
	).Scan(&count).Error
	return count, err
}

func (r *repo) CountExpiring(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM inventory_batches
		 WHERE expires_at <= ? AND quantity_on_hand > 0 AND state = ?`,
		cutoff.UTC(),
		lifecycle.StateActive,
	).Scan(&count).Error
	return count, err
}
