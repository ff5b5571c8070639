package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/openagora/agora/pkg/db/lifecycle"
	"github.com/shopspring/decimal"
)

type ComplianceStatus string

var (
	StatusCompliant ComplianceStatus = "COMPLIANT"
	StatusViolation ComplianceStatus = "VIOLATION"
)

type ViolationStatus string

var (
	ViolationNew          ViolationStatus = "NEW"
	ViolationAcknowledged ViolationStatus = "ACKNOWLEDGED"
	ViolationResolved     ViolationStatus = "RESOLVED"
)

func ValidViolationStatus(s ViolationStatus) bool {
	switch s {
	case ViolationNew, ViolationAcknowledged, ViolationResolved:
		return true
	default:
		return false
	}
}

// NonComplianceRecord documents a listing caught above the ceiling in
// force. At most one unresolved record exists per (seller, product);
// repeat detections fold into it. Admins resolve explicitly, the engine
// never clears a record on its own.
type NonComplianceRecord struct {
	ID             snowflake.ID    `json:"id" gorm:"primaryKey"`
	SellerID       snowflake.ID    `json:"seller_id" gorm:"not null;index"`
	ProductID      snowflake.ID    `json:"product_id" gorm:"not null;index"`
	ListingID      snowflake.ID    `json:"listing_id"`
	ListedPrice    decimal.Decimal `json:"listed_price" gorm:"type:decimal(12,2);not null"`
	CeilingPrice   decimal.Decimal `json:"ceiling_price" gorm:"type:decimal(12,2);not null"`
	OveragePct     decimal.Decimal `json:"overage_pct" gorm:"type:decimal(8,2);not null"`
	DetectedAt     time.Time       `json:"detected_at" gorm:"not null"`
	Status         ViolationStatus `json:"status" gorm:"type:text;not null;default:'NEW'"`
	AcknowledgedBy *string         `json:"acknowledged_by,omitempty" gorm:"type:text"`
	AcknowledgedAt *time.Time      `json:"acknowledged_at,omitempty"`
	ResolvedBy     *string         `json:"resolved_by,omitempty" gorm:"type:text"`
	ResolvedNotes  *string         `json:"resolved_notes,omitempty" gorm:"type:text"`
	ResolvedAt     *time.Time      `json:"resolved_at,omitempty"`
	State          lifecycle.State `json:"-" gorm:"type:text;not null;default:'ACTIVE'"`
	CreatedAt      time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time       `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (NonComplianceRecord) TableName() string { return "non_compliance_records" }

// Unresolved reports whether the record still demands admin attention.
func (r NonComplianceRecord) Unresolved() bool {
	return r.Status != ViolationResolved
}
