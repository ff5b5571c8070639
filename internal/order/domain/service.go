package domain

import (
	"context"
	"errors"
	"time"

	"github.com/openagora/agora/pkg/db/pagination"
)

type ListOrderRequest struct {
	pagination.Page
	SellerID string
	Status   string
	From     *time.Time
	To       *time.Time
}

type ListOrderResponse struct {
	pagination.PageInfo
	Orders []Order `json:"orders"`
}

type Service interface {
	List(ctx context.Context, req ListOrderRequest) (ListOrderResponse, error)
}

var (
	ErrInvalidSeller    = errors.New("invalid_seller")
	ErrInvalidStatus    = errors.New("invalid_status")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
)
