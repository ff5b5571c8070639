package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	compliancedomain "github.com/openagora/agora/internal/compliance/domain"
	dashboarddomain "github.com/openagora/agora/internal/dashboard/domain"
	inventorydomain "github.com/openagora/agora/internal/inventory/domain"
	opasdomain "github.com/openagora/agora/internal/opas/domain"
	pricingdomain "github.com/openagora/agora/internal/pricing/domain"
	sellerdomain "github.com/openagora/agora/internal/seller/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMapErrorStatuses(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		typ    string
	}{
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{"forbidden", ErrForbidden, http.StatusForbidden, "forbidden"},
		{"not found sentinel", sellerdomain.ErrNotFound, http.StatusNotFound, "not_found"},
		{"gorm record not found", gorm.ErrRecordNotFound, http.StatusNotFound, "not_found"},
		{"malformed request", ErrInvalidRequest, http.StatusBadRequest, "invalid_request"},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
		{"state transition conflict", sellerdomain.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
		{"scan in progress", compliancedomain.ErrScanInProgress, http.StatusConflict, "scan_in_progress"},
		{"offer expired", opasdomain.ErrOfferExpired, http.StatusConflict, "offer_expired"},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, payload := mapError(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.typ, payload.Type)
		})
	}
}

func TestMapErrorValidation(t *testing.T) {
	status, payload := mapError(pricingdomain.ErrInvalidAmount)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "validation_error", payload.Type)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "amount", payload.Errors[0].Field)
	assert.Equal(t, "invalid_amount", payload.Errors[0].Code)
}

func TestMapErrorInsufficientStock(t *testing.T) {
	err := &inventorydomain.InsufficientStockError{Requested: 10, Available: 4}
	status, payload := mapError(err)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "insufficient_stock", payload.Type)
	require.Len(t, payload.Errors, 1)
	assert.Contains(t, payload.Errors[0].Message, "requested 10")
	assert.Contains(t, payload.Errors[0].Message, "available 4")
}

func TestMapErrorAggregationFailure(t *testing.T) {
	status, payload := mapError(&dashboarddomain.AggregationFailure{Group: "sellers", Err: errors.New("timeout")})
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "aggregation_failure", payload.Type)
	assert.Contains(t, payload.Message, "sellers")
}

func TestMapErrorWrappedSentinel(t *testing.T) {
	status, payload := mapError(fmt.Errorf("load seller: %w", sellerdomain.ErrNotFound))
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", payload.Type)
}

func TestClassifyErrorForLog(t *testing.T) {
	typ, code := classifyErrorForLog(pricingdomain.ErrInvalidWindow)
	assert.Equal(t, "validation_error", typ)
	assert.Equal(t, "invalid_window", code)

	typ, code = classifyErrorForLog(ErrForbidden)
	assert.Equal(t, "forbidden", typ)
	assert.Equal(t, "forbidden", code)
}
