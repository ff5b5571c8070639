package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	pricingdomain "github.com/openagora/agora/internal/pricing/domain"
	"github.com/openagora/agora/pkg/db/pagination"
)

func (s *Server) CreateCeiling(c *gin.Context) {
	var req pricingdomain.CreateCeilingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, malformedRequestError())
		return
	}

	ceiling, err := s.pricingSvc.CreateCeiling(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, ceiling)
}

func (s *Server) ListCeilings(c *gin.Context) {
	var query struct {
		pagination.Page
		ProductID  string `form:"product_id"`
		ActiveOnly string `form:"active_only"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, malformedRequestError())
		return
	}

	activeOnly, err := parseOptionalBool(query.ActiveOnly)
	if err != nil {
		AbortWithError(c, newValidationError("active_only", "invalid_active_only", "invalid active_only"))
		return
	}

	resp, err := s.pricingSvc.ListCeilings(c.Request.Context(), pricingdomain.ListCeilingRequest{
		Page:       query.Page,
		ProductID:  strings.TrimSpace(query.ProductID),
		ActiveOnly: activeOnly != nil && *activeOnly,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetCeiling(c *gin.Context) {
	ceiling, err := s.pricingSvc.GetCeiling(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, ceiling)
}

func (s *Server) ListPriceHistory(c *gin.Context) {
	var query struct {
		pagination.Page
		ProductID string `form:"product_id"`
		AdminID   string `form:"admin_id"`
		Reason    string `form:"reason"`
		From      string `form:"from"`
		To        string `form:"to"`
		Query     string `form:"q"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, malformedRequestError())
		return
	}

	from, err := parseOptionalTime(query.From, false)
	if err != nil {
		AbortWithError(c, newValidationError("from", "invalid_from", "invalid from"))
		return
	}
	to, err := parseOptionalTime(query.To, true)
	if err != nil {
		AbortWithError(c, newValidationError("to", "invalid_to", "invalid to"))
		return
	}

	resp, err := s.pricingSvc.ListHistory(c.Request.Context(), pricingdomain.ListHistoryRequest{
		Page:      query.Page,
		ProductID: strings.TrimSpace(query.ProductID),
		AdminID:   strings.TrimSpace(query.AdminID),
		Reason:    strings.TrimSpace(query.Reason),
		From:      timeOrZero(from),
		To:        timeOrZero(to),
		Query:     strings.TrimSpace(query.Query),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ExportPrices streams a bulk export of ceilings with optional nested
// history and violations. Exports carry their own rate limit because one
// run touches every regulated product.
func (s *Server) ExportPrices(c *gin.Context) {
	var query struct {
		Format            string `form:"format,default=csv"`
		IncludeHistory    string `form:"include_history"`
		IncludeViolations string `form:"include_violations"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, malformedRequestError())
		return
	}

	includeHistory, err := parseOptionalBool(query.IncludeHistory)
	if err != nil {
		AbortWithError(c, newValidationError("include_history", "invalid_include_history", "invalid include_history"))
		return
	}
	includeViolations, err := parseOptionalBool(query.IncludeViolations)
	if err != nil {
		AbortWithError(c, newValidationError("include_violations", "invalid_include_violations", "invalid include_violations"))
		return
	}

	format := strings.ToLower(strings.TrimSpace(query.Format))

	if s.limiter.Enabled() {
		result, limitErr := s.limiter.AllowExport(c.Request.Context(), format)
		if limitErr != nil {
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !result.Allowed {
			denyRateLimited(c, result.RetryAfter)
			return
		}
	}

	file, err := s.pricingSvc.Export(c.Request.Context(), pricingdomain.ExportRequest{
		Format:            format,
		IncludeHistory:    includeHistory != nil && *includeHistory,
		IncludeViolations: includeViolations != nil && *includeViolations,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Type", file.ContentType)
	c.Header("Content-Disposition", `attachment; filename="`+file.Name+`"`)
	c.Status(http.StatusOK)
	if err := file.Render(c.Writer); err != nil {
		// Headers are gone; all we can do is log through the request
		// logger via the error list.
		_ = c.Error(err)
	}
}
