package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	compliancedomain "github.com/openagora/agora/internal/compliance/domain"
	"github.com/openagora/agora/pkg/db/pagination"
)

// Classify runs one listing through the compliance classifier. A violation
// folds into the existing open record for the (seller, product) pair
// instead of stacking duplicates.
func (s *Server) Classify(c *gin.Context) {
	var req compliancedomain.ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, malformedRequestError())
		return
	}

	resp, err := s.complianceSvc.Classify(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// RunComplianceScan classifies every active listing under a ceiling in
// force. At most one scan runs at a time; a second request gets
// scan_in_progress.
func (s *Server) RunComplianceScan(c *gin.Context) {
	result, err := s.complianceSvc.Scan(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) ListViolations(c *gin.Context) {
	var query struct {
		pagination.Page
		SellerID  string `form:"seller_id"`
		ProductID string `form:"product_id"`
		Status    string `form:"status"`
		From      string `form:"from"`
		To        string `form:"to"`
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

	resp, err := s.complianceSvc.ListViolations(c.Request.Context(), compliancedomain.ListViolationRequest{
		Page:      query.Page,
		SellerID:  strings.TrimSpace(query.SellerID),
		ProductID: strings.TrimSpace(query.ProductID),
		Status:    strings.TrimSpace(query.Status),
		From:      timeOrZero(from),
		To:        timeOrZero(to),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

type violationActionRequest struct {
	Notes string `json:"notes"`
}

func (s *Server) AcknowledgeViolation(c *gin.Context) {
	var req violationActionRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		AbortWithError(c, malformedRequestError())
		return
	}

	record, err := s.complianceSvc.Acknowledge(c.Request.Context(), compliancedomain.ViolationActionRequest{
		ID:    c.Param("id"),
		Notes: strings.TrimSpace(req.Notes),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

func (s *Server) ResolveViolation(c *gin.Context) {
	var req violationActionRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		AbortWithError(c, malformedRequestError())
		return
	}

	record, err := s.complianceSvc.Resolve(c.Request.Context(), compliancedomain.ViolationActionRequest{
		ID:    c.Param("id"),
		Notes: strings.TrimSpace(req.Notes),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}
