package domain

import (
	"context"
	"errors"
	"time"

	"github.com/openagora/agora/pkg/db/pagination"
	"github.com/shopspring/decimal"
)

type ReceiveRequest struct {
	ProductID string          `json:"product_id"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	ExpiresAt time.Time       `json:"expires_at"`
	Storage   map[string]any  `json:"storage,omitempty"`
	// LowStockThreshold overrides the regulation default for this batch.
	LowStockThreshold *int64 `json:"low_stock_threshold,omitempty"`
}

type ConsumeRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

type ConsumeResponse struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
	Draws     []Draw `json:"draws"`
}

type AdjustRequest struct {
	BatchID string `json:"-"`
	Delta   int64  `json:"delta"`
	Reason  string `json:"reason"`
}

// BatchView is a batch with its derived flags. The flags are computed on
// read, never stored.
type BatchView struct {
	Batch
	IsLowStock bool `json:"is_low_stock"`
	IsExpiring bool `json:"is_expiring"`
}

type ListBatchRequest struct {
	pagination.Page
	ProductID string
	LowStock  bool
	Expiring  bool
}

type ListBatchResponse struct {
	pagination.PageInfo
	Batches []BatchView `json:"batches"`
}

type BatchDetail struct {
	BatchView
	Transactions []Transaction `json:"transactions"`
}

type ListTransactionRequest struct {
	pagination.Page
	BatchID   string
	ProductID string
	Type      string
	From      time.Time
	To        time.Time
}

type ListTransactionResponse struct {
	pagination.PageInfo
	Transactions []Transaction `json:"transactions"`
}

type Service interface {
	Receive(ctx context.Context, req ReceiveRequest) (BatchView, error)
	Consume(ctx context.Context, req ConsumeRequest) (ConsumeResponse, error)
	Adjust(ctx context.Context, req AdjustRequest) (Transaction, error)
	ListBatches(ctx context.Context, req ListBatchRequest) (ListBatchResponse, error)
	GetBatch(ctx context.Context, id string) (BatchDetail, error)
	ListTransactions(ctx context.Context, req ListTransactionRequest) (ListTransactionResponse, error)
}

var (
	ErrInvalidProduct   = errors.New("invalid_product")
	ErrInvalidQuantity  = errors.New("invalid_quantity")
	ErrInvalidPrice     = errors.New("invalid_price")
	ErrInvalidExpiry    = errors.New("invalid_expiry")
	ErrInvalidThreshold = errors.New("invalid_threshold")
	ErrInvalidReason    = errors.New("invalid_reason")
	ErrInvalidType      = errors.New("invalid_type")
	ErrInvalidID        = errors.New("invalid_id")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
	ErrNotFound         = errors.New("not_found")

	// ErrConsistencyViolation fires when a batch fails its quantity
	// invariant after a mutation. The transaction rolls back; nothing is
	// auto-corrected.
	ErrConsistencyViolation = errors.New("consistency_violation")
)
