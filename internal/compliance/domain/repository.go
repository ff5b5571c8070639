package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ViolationFilter struct {
	SellerID  snowflake.ID
	ProductID snowflake.ID
	Status    ViolationStatus
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}

// ViolationRecord joins a violation with product and seller names, the
// shape violation listings and exports render.
type ViolationRecord struct {
	NonComplianceRecord
	ProductName string `json:"product_name"`
	SellerName  string `json:"seller_name"`
}

type StatusCounts struct {
	New          int64 `json:"new"`
	Acknowledged int64 `json:"acknowledged"`
	Resolved     int64 `json:"resolved"`
}

// Unresolved is the count of records still demanding admin attention.
func (c StatusCounts) Unresolved() int64 { return c.New + c.Acknowledged }

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, record *NonComplianceRecord) error
	Update(ctx context.Context, db *gorm.DB, record *NonComplianceRecord) error
	// FindByID locks the row when forUpdate is set so status transitions
	// serialize per record.
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID, forUpdate bool) (*NonComplianceRecord, error)

	// FindUnresolved returns the open record for a (seller, product) pair,
	// locking it when forUpdate is set so concurrent detections serialize.
	FindUnresolved(ctx context.Context, db *gorm.DB, sellerID, productID snowflake.ID, forUpdate bool) (*NonComplianceRecord, error)

	List(ctx context.Context, db *gorm.DB, filter ViolationFilter) ([]ViolationRecord, int64, error)
	CountByStatus(ctx context.Context, db *gorm.DB) (StatusCounts, error)

	// ExportViolations returns every visible violation with names, oldest
	// first, for bundled exports.
	ExportViolations(ctx context.Context, db *gorm.DB) ([]ViolationRecord, error)
}
