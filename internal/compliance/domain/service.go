package domain

import (
	"context"
	"errors"
	"time"

	"github.com/openagora/agora/pkg/db/pagination"
	"github.com/shopspring/decimal"
)

type ClassifyRequest struct {
	ProductID   string          `json:"product_id"`
	SellerID    string          `json:"seller_id"`
	ListingID   string          `json:"listing_id"`
	ListedPrice decimal.Decimal `json:"listed_price"`
}

// ClassifyResponse carries the decision plus the violation record it
// created or folded into, nil when compliant.
type ClassifyResponse struct {
	Classification
	Record *NonComplianceRecord `json:"record,omitempty"`
}

// ScanResult summarizes one classification pass over the active listings.
type ScanResult struct {
	Scanned        int     `json:"scanned"`
	Compliant      int     `json:"compliant"`
	Violations     int     `json:"violations"`
	NewViolations  int     `json:"new_violations"`
	AlertsRaised   int     `json:"alerts_raised"`
	ComplianceRate float64 `json:"compliance_rate"`
}

type ListViolationRequest struct {
	pagination.Page
	SellerID  string
	ProductID string
	Status    string
	From      time.Time
	To        time.Time
}

type ListViolationResponse struct {
	pagination.PageInfo
	Violations []ViolationRecord `json:"violations"`
}

type ViolationActionRequest struct {
	ID    string
	Notes string
}

type Service interface {
	Classify(ctx context.Context, req ClassifyRequest) (ClassifyResponse, error)
	Scan(ctx context.Context) (ScanResult, error)
	ListViolations(ctx context.Context, req ListViolationRequest) (ListViolationResponse, error)
	Acknowledge(ctx context.Context, req ViolationActionRequest) (NonComplianceRecord, error)
	Resolve(ctx context.Context, req ViolationActionRequest) (NonComplianceRecord, error)
}

var (
	ErrInvalidProduct   = errors.New("invalid_product")
	ErrInvalidSeller    = errors.New("invalid_seller")
	ErrInvalidListing   = errors.New("invalid_listing")
	ErrInvalidPrice     = errors.New("invalid_price")
	ErrInvalidStatus    = errors.New("invalid_status")
	ErrInvalidID        = errors.New("invalid_id")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
	ErrNotFound         = errors.New("not_found")
	ErrAlreadyResolved  = errors.New("already_resolved")
	ErrScanInProgress   = errors.New("scan_in_progress")
)
