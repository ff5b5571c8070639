package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type SubmissionFilter struct {
	SellerID  snowflake.ID
	ProductID snowflake.ID
	Status    Status
	Limit     int
	Offset    int
}

// SubmissionRecord joins a submission with product and seller names, the
// shape admin listings render.
type SubmissionRecord struct {
	Submission
	ProductName string `json:"product_name"`
	SellerName  string `json:"seller_name"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, submission *Submission) error
	Update(ctx context.Context, db *gorm.DB, submission *Submission) error
	// FindByID locks the row when forUpdate is set so concurrent decisions
	// serialize per submission.
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID, forUpdate bool) (*Submission, error)
	List(ctx context.Context, db *gorm.DB, filter SubmissionFilter) ([]SubmissionRecord, int64, error)

	CountPending(ctx context.Context, db *gorm.DB) (int64, error)
	CountApprovedSince(ctx context.Context, db *gorm.DB, since time.Time) (int64, error)
}
