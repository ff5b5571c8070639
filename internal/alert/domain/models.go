package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Category string

const (
	CategoryPriceViolation Category = "PRICE_VIOLATION"
	CategoryLowStock       Category = "LOW_STOCK"
	CategoryExpiring       Category = "EXPIRING"
	CategorySellerIssue    Category = "SELLER_ISSUE"
)

type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

type Status string

const (
	StatusOpen     Status = "OPEN"
	StatusResolved Status = "RESOLVED"
)

// Alert is an operational signal for admins. DedupeKey collapses repeat
// conditions: at most one OPEN alert exists per key.
type Alert struct {
	ID            snowflake.ID      `gorm:"primaryKey" json:"id"`
	Category      Category          `gorm:"type:text;not null;index" json:"category"`
	Severity      Severity          `gorm:"type:text;not null" json:"severity"`
	SellerID      *snowflake.ID     `gorm:"column:seller_id;index" json:"seller_id,omitempty"`
	ProductID     *snowflake.ID     `gorm:"column:product_id;index" json:"product_id,omitempty"`
	Message       string            `gorm:"type:text;not null" json:"message"`
	DedupeKey     string            `gorm:"column:dedupe_key;type:text;not null;index" json:"-"`
	Status        Status            `gorm:"type:text;not null;default:'OPEN';index" json:"status"`
	ResolvedBy    *string           `gorm:"column:resolved_by;type:text" json:"resolved_by,omitempty"`
	ResolvedNotes *string           `gorm:"column:resolved_notes;type:text" json:"resolved_notes,omitempty"`
	ResolvedAt    *time.Time        `gorm:"column:resolved_at" json:"resolved_at,omitempty"`
	Meta          datatypes.JSONMap `gorm:"type:jsonb" json:"meta,omitempty"`
	CreatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Alert) TableName() string { return "marketplace_alerts" }

func ValidCategory(value Category) bool {
	switch value {
	case CategoryPriceViolation, CategoryLowStock, CategoryExpiring, CategorySellerIssue:
		return true
	default:
		return false
	}
}

func ValidSeverity(value Severity) bool {
	switch value {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return true
	default:
		return false
	}
}
