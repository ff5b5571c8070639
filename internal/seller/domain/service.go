package domain

import (
	"context"
	"errors"

	"github.com/openagora/agora/pkg/db/pagination"
)

type CreateSellerRequest struct {
	BusinessName string `json:"business_name"`
	OwnerName    string `json:"owner_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
}

type ListSellerRequest struct {
	pagination.Page
	Status string
	Query  string
}

type ListSellerResponse struct {
	pagination.PageInfo
	Sellers []Seller `json:"sellers"`
}

type GetSellerRequest struct {
	ID string
}

// ModerationRequest drives the status machine: approve and reject act on
// PENDING sellers, suspend on ACTIVE, reactivate on SUSPENDED.
type ModerationRequest struct {
	ID     string
	Reason string
}

type Service interface {
	Create(ctx context.Context, req CreateSellerRequest) (Seller, error)
	List(ctx context.Context, req ListSellerRequest) (ListSellerResponse, error)
	GetByID(ctx context.Context, req GetSellerRequest) (Seller, error)
	Approve(ctx context.Context, req ModerationRequest) (Seller, error)
	Reject(ctx context.Context, req ModerationRequest) (Seller, error)
	Suspend(ctx context.Context, req ModerationRequest) (Seller, error)
	Reactivate(ctx context.Context, req ModerationRequest) (Seller, error)
}

var (
	ErrInvalidBusinessName = errors.New("invalid_business_name")
	ErrInvalidOwnerName    = errors.New("invalid_owner_name")
	ErrInvalidEmail        = errors.New("invalid_email")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidTransition   = errors.New("invalid_transition")
	ErrNotFound            = errors.New("not_found")
)
