package domain

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/openagora/agora/pkg/db/pagination"
	"github.com/shopspring/decimal"
)

type CreateCeilingRequest struct {
	ProductID      string          `json:"product_id"`
	Amount         decimal.Decimal `json:"amount"`
	EffectiveFrom  *time.Time      `json:"effective_from"`
	EffectiveUntil *time.Time      `json:"effective_until"`
	Reason         string          `json:"reason"`
	Note           string          `json:"note"`
}

type ListCeilingRequest struct {
	pagination.Page
	ProductID  string
	ActiveOnly bool
}

type ListCeilingResponse struct {
	pagination.PageInfo
	Ceilings []PriceCeiling `json:"ceilings"`
}

type ListHistoryRequest struct {
	pagination.Page
	ProductID string
	AdminID   string
	Reason    string
	From      time.Time
	To        time.Time
	Query     string
}

type ListHistoryResponse struct {
	pagination.PageInfo
	Entries []HistoryRecord `json:"entries"`
}

type ExportFormat string

var (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
	FormatPDF  ExportFormat = "pdf"
)

type ExportRequest struct {
	Format            string
	IncludeHistory    bool
	IncludeViolations bool
}

// ExportFile is a planned export: the data is already gathered, Render
// serializes it to the response writer.
type ExportFile struct {
	Name        string
	ContentType string
	Render      func(w io.Writer) error
}

type Service interface {
	CreateCeiling(ctx context.Context, req CreateCeilingRequest) (PriceCeiling, error)
	ListCeilings(ctx context.Context, req ListCeilingRequest) (ListCeilingResponse, error)
	GetCeiling(ctx context.Context, id string) (PriceCeiling, error)
	ListHistory(ctx context.Context, req ListHistoryRequest) (ListHistoryResponse, error)
	Export(ctx context.Context, req ExportRequest) (*ExportFile, error)
}

var (
	ErrInvalidProduct   = errors.New("invalid_product")
	ErrInvalidAmount    = errors.New("invalid_amount")
	ErrInvalidWindow    = errors.New("invalid_window")
	ErrInvalidReason    = errors.New("invalid_reason")
	ErrInvalidAdmin     = errors.New("invalid_admin")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
	ErrInvalidFormat    = errors.New("invalid_format")
	ErrInvalidID        = errors.New("invalid_id")
	ErrNotFound         = errors.New("not_found")
)
