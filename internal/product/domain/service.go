package domain

import (
	"context"
	"errors"

	"github.com/openagora/agora/pkg/db/pagination"
)

type CreateRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Unit     string `json:"unit"`
}

type ListRequest struct {
	pagination.Page
	Category string
	Query    string
}

type ListResponse struct {
	pagination.PageInfo
	Products []Product `json:"products"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (Product, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Get(ctx context.Context, id string) (Product, error)
}

var (
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidCategory = errors.New("invalid_category")
	ErrInvalidUnit     = errors.New("invalid_unit")
	ErrInvalidID       = errors.New("invalid_id")
	ErrSlugTaken       = errors.New("slug_taken")
	ErrNotFound        = errors.New("not_found")
)
