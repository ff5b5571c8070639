package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type BatchFilter struct {
	ProductID snowflake.ID
	// LowStock keeps only batches at or under their threshold.
	LowStock bool
	// ExpiringBefore keeps only batches with stock expiring at or before
	// the cutoff.
	ExpiringBefore *time.Time
	Limit          int
	Offset         int
}

type TransactionFilter struct {
	BatchID   snowflake.ID
	ProductID snowflake.ID
	Type      TransactionType
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}

// StockSummary feeds the OPAS dashboard group.
type StockSummary struct {
	TotalOnHand int64           `json:"total_on_hand"`
	TotalValue  decimal.Decimal `json:"total_value"`
}

type Repository interface {
	InsertBatch(ctx context.Context, db *gorm.DB, batch *Batch) error
	UpdateBatch(ctx context.Context, db *gorm.DB, batch *Batch) error
	// FindBatchByID locks the row when forUpdate is set so manual
	// corrections serialize per batch.
	FindBatchByID(ctx context.Context, db *gorm.DB, id snowflake.ID, forUpdate bool) (*Batch, error)

	// OpenBatches returns the batches consumption may draw from (stock on
	// hand, unexpired, visible) in FIFO order, locked when forUpdate is
	// set.
	OpenBatches(ctx context.Context, db *gorm.DB, productID snowflake.ID, asOf time.Time, forUpdate bool) ([]*Batch, error)
	ListBatches(ctx context.Context, db *gorm.DB, filter BatchFilter) ([]Batch, int64, error)

	InsertTransaction(ctx context.Context, db *gorm.DB, trx *Transaction) error
	ListTransactions(ctx context.Context, db *gorm.DB, filter TransactionFilter) ([]Transaction, int64, error)
	// TransactionsForBatch returns a batch's full movement ledger, oldest
	// first.
	TransactionsForBatch(ctx context.Context, db *gorm.DB, batchID snowflake.ID) ([]Transaction, error)

	StockSummary(ctx context.Context, db *gorm.DB) (StockSummary, error)
	CountLowStock(ctx context.Context, db *gorm.DB) (int64, error)
	CountExpiring(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error)
}
