package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/openagora/agora/pkg/db/pagination"
)

type RaiseRequest struct {
	Category  Category
	Severity  Severity
	SellerID  *snowflake.ID
	ProductID *snowflake.ID
	Message   string
	DedupeKey string
	Meta      map[string]any
}

type ListAlertRequest struct {
	pagination.Page
	Status   string
	Category string
	Severity string
	Since    *time.Time
}

type ListAlertResponse struct {
	pagination.PageInfo
	Alerts []Alert `json:"alerts"`
}

type ResolveRequest struct {
	ID    string
	Notes string
}

type Service interface {
	// Raise opens an alert unless an OPEN one already exists for the same
	// dedupe key. The bool reports whether a new row was created.
	Raise(ctx context.Context, req RaiseRequest) (Alert, bool, error)
	List(ctx context.Context, req ListAlertRequest) (ListAlertResponse, error)
	Resolve(ctx context.Context, req ResolveRequest) (Alert, error)
}

var (
	ErrInvalidCategory  = errors.New("invalid_category")
	ErrInvalidSeverity  = errors.New("invalid_severity")
	ErrInvalidMessage   = errors.New("invalid_message")
	ErrInvalidDedupeKey = errors.New("invalid_dedupe_key")
	ErrInvalidID        = errors.New("invalid_id")
	ErrNotFound         = errors.New("not_found")
	ErrAlreadyResolved  = errors.New("already_resolved")
)
