package domain

import (
	"context"
	"errors"
	"time"

	"github.com/openagora/agora/pkg/db/pagination"
	"github.com/shopspring/decimal"
)

type SubmitRequest struct {
	SellerID  string          `json:"seller_id"`
	ProductID string          `json:"product_id"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	// ExpiresAt is the expiry date of the offered goods; it becomes the
	// batch expiry on approval.
	ExpiresAt time.Time `json:"expires_at"`
}

type DecideRequest struct {
	ID   string `json:"-"`
	Note string `json:"note,omitempty"`
}

type ListSubmissionRequest struct {
	pagination.Page
	SellerID  string
	ProductID string
	Status    string
}

type ListSubmissionResponse struct {
	pagination.PageInfo
	Submissions []SubmissionRecord `json:"submissions"`
}

type Service interface {
	// Submit records an offer as PENDING.
	Submit(ctx context.Context, req SubmitRequest) (Submission, error)
	List(ctx context.Context, req ListSubmissionRequest) (ListSubmissionResponse, error)

	// Approve accepts the offer and receives the goods into inventory in
	// the same transaction; the returned submission carries the batch id.
	Approve(ctx context.Context, req DecideRequest) (Submission, error)
	Reject(ctx context.Context, req DecideRequest) (Submission, error)
}

var (
	ErrInvalidSeller   = errors.New("invalid_seller")
	ErrInvalidProduct  = errors.New("invalid_product")
	ErrInvalidQuantity = errors.New("invalid_quantity")
	ErrInvalidPrice    = errors.New("invalid_price")
	ErrInvalidExpiry   = errors.New("invalid_expiry")
	ErrInvalidStatus   = errors.New("invalid_status")
	ErrInvalidID       = errors.New("invalid_id")
	ErrNotFound        = errors.New("not_found")

	// ErrSellerNotActive rejects offers from sellers outside ACTIVE status.
	ErrSellerNotActive = errors.New("seller_not_active")

	// ErrAlreadyDecided fires on a second decision attempt; decisions are
	// final.
	ErrAlreadyDecided = errors.New("already_decided")

	// ErrOfferExpired blocks approving an offer whose goods passed their
	// expiry date while the submission sat pending.
	ErrOfferExpired = errors.New("offer_expired")
)
