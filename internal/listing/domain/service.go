package domain

import (
	"context"
	"errors"

	"github.com/openagora/agora/pkg/db/pagination"
	"github.com/shopspring/decimal"
)

type CreateListingRequest struct {
	SellerID  string          `json:"seller_id"`
	ProductID string          `json:"product_id"`
	Price     decimal.Decimal `json:"price"`
	Status    string          `json:"status"`
}

type ListListingRequest struct {
	pagination.Page
	SellerID  string
	ProductID string
	Status    string
}

type ListListingResponse struct {
	pagination.PageInfo
	Listings []Listing `json:"listings"`
}

type UpdatePriceRequest struct {
	ID    string
	Price decimal.Decimal
}

type SetStatusRequest struct {
	ID     string
	Status string
}

type Service interface {
	Create(ctx context.Context, req CreateListingRequest) (Listing, error)
	List(ctx context.Context, req ListListingRequest) (ListListingResponse, error)
	Get(ctx context.Context, id string) (Listing, error)
	// UpdatePrice changes the listed price. Callers re-classify the
	// listing afterwards; the update itself carries no compliance
	// judgment.
	UpdatePrice(ctx context.Context, req UpdatePriceRequest) (Listing, error)
	SetStatus(ctx context.Context, req SetStatusRequest) (Listing, error)
}

var (
	ErrInvalidSeller   = errors.New("invalid_seller")
	ErrInvalidProduct  = errors.New("invalid_product")
	ErrInvalidPrice    = errors.New("invalid_price")
	ErrInvalidStatus   = errors.New("invalid_status")
	ErrInvalidID       = errors.New("invalid_id")
	ErrSellerNotActive = errors.New("seller_not_active")
	ErrNotFound        = errors.New("not_found")
)
