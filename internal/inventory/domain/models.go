package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/openagora/agora/pkg/db/lifecycle"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type TransactionType string

var (
	TransactionReceipt     TransactionType = "RECEIPT"
	TransactionConsumption TransactionType = "CONSUMPTION"
	TransactionAdjustment  TransactionType = "ADJUSTMENT"
)

func ValidTransactionType(t TransactionType) bool {
	switch t {
	case TransactionReceipt, TransactionConsumption, TransactionAdjustment:
		return true
	default:
		return false
	}
}

// Batch is a received lot of a regulated product. Quantities reconcile at
// all times: on_hand + consumed == received and on_hand >= 0. Batches are
// never hard-deleted; a drained batch keeps its ledger.
type Batch struct {
	ID                snowflake.ID      `json:"id" gorm:"primaryKey"`
	ProductID         snowflake.ID      `json:"product_id" gorm:"column:product_id;not null;index"`
	QuantityReceived  int64             `json:"quantity_received" gorm:"column:quantity_received;not null"`
	QuantityOnHand    int64             `json:"quantity_on_hand" gorm:"column:quantity_on_hand;not null"`
	QuantityConsumed  int64             `json:"quantity_consumed" gorm:"column:quantity_consumed;not null"`
	UnitPrice         decimal.Decimal   `json:"unit_price" gorm:"column:unit_price;type:decimal(12,2);not null"`
	Storage           datatypes.JSONMap `json:"storage,omitempty" gorm:"type:jsonb"`
	ReceivedAt        time.Time         `json:"received_at" gorm:"column:received_at;not null;index"`
	ExpiresAt         time.Time         `json:"expires_at" gorm:"column:expires_at;not null;index"`
	LowStockThreshold int64             `json:"low_stock_threshold" gorm:"column:low_stock_threshold;not null"`
	State             lifecycle.State   `json:"-" gorm:"type:text;not null;default:'ACTIVE'"`
	CreatedAt         time.Time         `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time         `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Batch) TableName() string { return "inventory_batches" }

// Reconciles reports whether the batch quantities still satisfy the
// ledger invariant.
func (b Batch) Reconciles() bool {
	return b.QuantityOnHand >= 0 && b.QuantityOnHand+b.QuantityConsumed == b.QuantityReceived
}

// LowStock reports whether on-hand stock sits at or below the batch
// threshold. A drained batch counts.
func (b Batch) LowStock() bool {
	return b.QuantityOnHand <= b.LowStockThreshold
}

// ExpiringWithin reports whether the batch still holds stock expiring
// inside the window.
func (b Batch) ExpiringWithin(now time.Time, window time.Duration) bool {
	return b.QuantityOnHand > 0 && !b.ExpiresAt.After(now.Add(window))
}

// Transaction is one signed stock movement against a batch. Append-only;
// the deltas per batch reconcile with the batch quantities.
type Transaction struct {
	ID              snowflake.ID    `json:"id" gorm:"primaryKey"`
	BatchID         snowflake.ID    `json:"batch_id" gorm:"column:batch_id;not null;index"`
	ProductID       snowflake.ID    `json:"product_id" gorm:"column:product_id;not null;index"`
	Type            TransactionType `json:"type" gorm:"type:text;not null"`
	Quantity        int64           `json:"quantity" gorm:"not null"`
	Reason          string          `json:"reason,omitempty" gorm:"type:text"`
	IsFIFOCompliant bool            `json:"is_fifo_compliant" gorm:"column:is_fifo_compliant;not null"`
	CreatedBy       snowflake.ID    `json:"created_by" gorm:"column:created_by"`
	CreatedAt       time.Time       `json:"created_at" gorm:"not null;index"`
}

func (Transaction) TableName() string { return "inventory_transactions" }
