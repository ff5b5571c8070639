package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	alertdomain "github.com/openagora/agora/internal/alert/domain"
	apikeydomain "github.com/openagora/agora/internal/apikey/domain"
	auditdomain "github.com/openagora/agora/internal/audit/domain"
	authdomain "github.com/openagora/agora/internal/auth/domain"
	authscope "github.com/openagora/agora/internal/auth/scope"
	"github.com/openagora/agora/internal/authorization"
	compliancedomain "github.com/openagora/agora/internal/compliance/domain"
	dashboarddomain "github.com/openagora/agora/internal/dashboard/domain"
	inventorydomain "github.com/openagora/agora/internal/inventory/domain"
	listingdomain "github.com/openagora/agora/internal/listing/domain"
	opasdomain "github.com/openagora/agora/internal/opas/domain"
	orderdomain "github.com/openagora/agora/internal/order/domain"
	pricingdomain "github.com/openagora/agora/internal/pricing/domain"
	productdomain "github.com/openagora/agora/internal/product/domain"
	sellerdomain "github.com/openagora/agora/internal/seller/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrInternal           = errors.New("internal_error")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

// ErrorHandlingMiddleware turns errors attached to the gin context into the
// structured error envelope. Handlers never write error bodies themselves.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

// malformedRequestError covers bodies and query strings that fail to bind
// at all. Field-level rejections use newValidationError instead.
func malformedRequestError() error {
	return ErrInvalidRequest
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

// classifyErrorForLog feeds the request logger the type and code of the
// error a request ended with.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	var insufficient *inventorydomain.InsufficientStockError
	if errors.As(err, &insufficient) {
		return http.StatusConflict, errorPayload{
			Type:    "insufficient_stock",
			Message: "insufficient stock",
			Errors: []ValidationError{
				{
					Field:   "quantity",
					Code:    "insufficient_stock",
					Message: fmt.Sprintf("requested %d, available %d", insufficient.Requested, insufficient.Available),
				},
			},
		}
	}

	var aggregation *dashboarddomain.AggregationFailure
	if errors.As(err, &aggregation) {
		return http.StatusInternalServerError, errorPayload{
			Type:    "aggregation_failure",
			Message: fmt.Sprintf("aggregating %s failed", aggregation.Group),
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if errors.Is(err, ErrInvalidRequest) {
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_request",
			Message: "malformed request",
		}
	}

	if isValidationError(err) {
		code := err.Error()
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case isUnauthorizedError(err):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    err.Error(),
			Message: conflictErrorMessage(err),
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, sellerdomain.ErrInvalidBusinessName),
		errors.Is(err, sellerdomain.ErrInvalidOwnerName),
		errors.Is(err, sellerdomain.ErrInvalidEmail),
		errors.Is(err, sellerdomain.ErrInvalidStatus),
		errors.Is(err, sellerdomain.ErrInvalidID):
		return true
	case errors.Is(err, productdomain.ErrInvalidName),
		errors.Is(err, productdomain.ErrInvalidCategory),
		errors.Is(err, productdomain.ErrInvalidUnit),
		errors.Is(err, productdomain.ErrInvalidID):
		return true
	case errors.Is(err, listingdomain.ErrInvalidSeller),
		errors.Is(err, listingdomain.ErrInvalidProduct),
		errors.Is(err, listingdomain.ErrInvalidPrice),
		errors.Is(err, listingdomain.ErrInvalidStatus),
		errors.Is(err, listingdomain.ErrInvalidID),
		errors.Is(err, listingdomain.ErrSellerNotActive):
		return true
	case errors.Is(err, pricingdomain.ErrInvalidProduct),
		errors.Is(err, pricingdomain.ErrInvalidAmount),
		errors.Is(err, pricingdomain.ErrInvalidWindow),
		errors.Is(err, pricingdomain.ErrInvalidReason),
		errors.Is(err, pricingdomain.ErrInvalidAdmin),
		errors.Is(err, pricingdomain.ErrInvalidTimeRange),
		errors.Is(err, pricingdomain.ErrInvalidFormat),
		errors.Is(err, pricingdomain.ErrInvalidID):
		return true
	case errors.Is(err, compliancedomain.ErrInvalidProduct),
		errors.Is(err, compliancedomain.ErrInvalidSeller),
		errors.Is(err, compliancedomain.ErrInvalidListing),
		errors.Is(err, compliancedomain.ErrInvalidPrice),
		errors.Is(err, compliancedomain.ErrInvalidStatus),
		errors.Is(err, compliancedomain.ErrInvalidID),
		errors.Is(err, compliancedomain.ErrInvalidTimeRange):
		return true
	case errors.Is(err, inventorydomain.ErrInvalidProduct),
		errors.Is(err, inventorydomain.ErrInvalidQuantity),
		errors.Is(err, inventorydomain.ErrInvalidPrice),
		errors.Is(err, inventorydomain.ErrInvalidExpiry),
		errors.Is(err, inventorydomain.ErrInvalidThreshold),
		errors.Is(err, inventorydomain.ErrInvalidReason),
		errors.Is(err, inventorydomain.ErrInvalidType),
		errors.Is(err, inventorydomain.ErrInvalidID),
		errors.Is(err, inventorydomain.ErrInvalidTimeRange):
		return true
	case errors.Is(err, opasdomain.ErrInvalidSeller),
		errors.Is(err, opasdomain.ErrInvalidProduct),
		errors.Is(err, opasdomain.ErrInvalidQuantity),
		errors.Is(err, opasdomain.ErrInvalidPrice),
		errors.Is(err, opasdomain.ErrInvalidExpiry),
		errors.Is(err, opasdomain.ErrInvalidStatus),
		errors.Is(err, opasdomain.ErrInvalidID),
		errors.Is(err, opasdomain.ErrSellerNotActive):
		return true
	case errors.Is(err, alertdomain.ErrInvalidCategory),
		errors.Is(err, alertdomain.ErrInvalidSeverity),
		errors.Is(err, alertdomain.ErrInvalidMessage),
		errors.Is(err, alertdomain.ErrInvalidDedupeKey),
		errors.Is(err, alertdomain.ErrInvalidID):
		return true
	case errors.Is(err, orderdomain.ErrInvalidSeller),
		errors.Is(err, orderdomain.ErrInvalidStatus),
		errors.Is(err, orderdomain.ErrInvalidTimeRange):
		return true
	case errors.Is(err, auditdomain.ErrInvalidTimeRange),
		errors.Is(err, auditdomain.ErrInvalidAction):
		return true
	case errors.Is(err, apikeydomain.ErrInvalidName),
		errors.Is(err, apikeydomain.ErrInvalidKeyID),
		errors.Is(err, apikeydomain.ErrInvalidScopes),
		errors.Is(err, authscope.ErrInvalidScope):
		return true
	default:
		return false
	}
}

func isUnauthorizedError(err error) bool {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrInvalidSession),
		errors.Is(err, authdomain.ErrSessionExpired),
		errors.Is(err, authdomain.ErrSessionRevoked),
		errors.Is(err, authdomain.ErrSessionNotFound),
		errors.Is(err, apikeydomain.ErrInvalidKey):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, sellerdomain.ErrNotFound),
		errors.Is(err, productdomain.ErrNotFound),
		errors.Is(err, listingdomain.ErrNotFound),
		errors.Is(err, pricingdomain.ErrNotFound),
		errors.Is(err, compliancedomain.ErrNotFound),
		errors.Is(err, inventorydomain.ErrNotFound),
		errors.Is(err, opasdomain.ErrNotFound),
		errors.Is(err, alertdomain.ErrNotFound),
		errors.Is(err, apikeydomain.ErrNotFound),
		errors.Is(err, authdomain.ErrUserNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

// isConflictError groups the state-machine rejections: the request is well
// formed but the target's current state forbids it.
func isConflictError(err error) bool {
	switch {
	case errors.Is(err, sellerdomain.ErrInvalidTransition),
		errors.Is(err, productdomain.ErrSlugTaken),
		errors.Is(err, compliancedomain.ErrScanInProgress),
		errors.Is(err, compliancedomain.ErrAlreadyResolved),
		errors.Is(err, alertdomain.ErrAlreadyResolved),
		errors.Is(err, opasdomain.ErrAlreadyDecided),
		errors.Is(err, opasdomain.ErrOfferExpired):
		return true
	default:
		return false
	}
}

func conflictErrorMessage(err error) string {
	switch {
	case errors.Is(err, sellerdomain.ErrInvalidTransition):
		return "action not allowed in the current status"
	case errors.Is(err, productdomain.ErrSlugTaken):
		return "a product with this name already exists"
	case errors.Is(err, compliancedomain.ErrScanInProgress):
		return "a compliance scan is already running"
	case errors.Is(err, compliancedomain.ErrAlreadyResolved),
		errors.Is(err, alertdomain.ErrAlreadyResolved):
		return "already resolved"
	case errors.Is(err, opasdomain.ErrAlreadyDecided):
		return "submission already decided"
	case errors.Is(err, opasdomain.ErrOfferExpired):
		return "offered goods passed their expiry date"
	default:
		return "conflict"
	}
}

func validationErrorField(code string) string {
	switch code {
	case "seller_not_active":
		return "seller_id"
	case "invalid_scope":
		return "scopes"
	}
	if field, ok := strings.CutPrefix(code, "invalid_"); ok {
		return field
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "seller_not_active":
		return "seller is not active"
	default:
		return "invalid value"
	}
}
