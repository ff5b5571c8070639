package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Status string

var (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

// Submission is a seller's offer to sell stock into the bulk-purchase
// program. Approval receives the offered goods into inventory in the
// same transaction; either decision is final.
type Submission struct {
	ID           snowflake.ID    `json:"id" gorm:"primaryKey"`
	SellerID     snowflake.ID    `json:"seller_id" gorm:"column:seller_id;not null;index"`
	ProductID    snowflake.ID    `json:"product_id" gorm:"column:product_id;not null;index"`
	Quantity     int64           `json:"quantity" gorm:"not null"`
	UnitPrice    decimal.Decimal `json:"unit_price" gorm:"column:unit_price;type:decimal(12,2);not null"`
	ExpiresAt    time.Time       `json:"expires_at" gorm:"column:expires_at;not null"`
	Status       Status          `json:"status" gorm:"type:text;not null;default:'PENDING';index"`
	DecidedBy    *string         `json:"decided_by,omitempty" gorm:"column:decided_by;type:text"`
	DecidedAt    *time.Time      `json:"decided_at,omitempty" gorm:"column:decided_at"`
	DecisionNote *string         `json:"decision_note,omitempty" gorm:"column:decision_note;type:text"`
	// BatchID links the inventory batch created by an approval.
	BatchID   *snowflake.ID `json:"batch_id,omitempty" gorm:"column:batch_id"`
	CreatedAt time.Time     `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP;index"`
	UpdatedAt time.Time     `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Submission) TableName() string { return "opas_submissions" }

// Pending reports whether the submission still awaits a decision.
func (s Submission) Pending() bool { return s.Status == StatusPending }
