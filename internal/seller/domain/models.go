package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/openagora/agora/pkg/db/lifecycle"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusActive    Status = "ACTIVE"
	StatusSuspended Status = "SUSPENDED"
	StatusRejected  Status = "REJECTED"
)

type Seller struct {
	ID            snowflake.ID        `gorm:"primaryKey" json:"id"`
	BusinessName  string              `gorm:"column:business_name;type:text;not null" json:"business_name"`
	OwnerName     string              `gorm:"column:owner_name;type:text;not null" json:"owner_name"`
	Email         string              `gorm:"type:text;not null" json:"email"`
	Phone         string              `gorm:"type:text" json:"phone,omitempty"`
	Status        Status              `gorm:"type:text;not null;default:'PENDING'" json:"status"`
	AverageRating decimal.NullDecimal `gorm:"column:average_rating;type:decimal(3,2)" json:"average_rating"`
	ApprovedAt    *time.Time          `gorm:"column:approved_at" json:"approved_at,omitempty"`
	RejectedAt    *time.Time          `gorm:"column:rejected_at" json:"rejected_at,omitempty"`
	SuspendedAt   *time.Time          `gorm:"column:suspended_at" json:"suspended_at,omitempty"`
	State         lifecycle.State     `gorm:"type:text;not null;default:'ACTIVE'" json:"-"`
	CreatedAt     time.Time           `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time           `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Seller) TableName() string { return "sellers" }
