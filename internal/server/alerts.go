package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	alertdomain "github.com/openagora/agora/internal/alert/domain"
	"github.com/openagora/agora/pkg/db/pagination"
)

func (s *Server) ListAlerts(c *gin.Context) {
	var query struct {
		pagination.Page
		Status   string `form:"status"`
		Category string `form:"category"`
		Severity string `form:"severity"`
		Since    string `form:"since"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, malformedRequestError())
		return
	}

	since, err := parseOptionalTime(query.Since, false)
	if err != nil {
		AbortWithError(c, newValidationError("since", "invalid_since", "invalid since"))
		return
	}

	resp, err := s.alertSvc.List(c.Request.Context(), alertdomain.ListAlertRequest{
		Page:     query.Page,
		Status:   strings.TrimSpace(query.Status),
		Category: strings.TrimSpace(query.Category),
		Severity: strings.TrimSpace(query.Severity),
		Since:    since,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

type resolveAlertRequest struct {
	Notes string `json:"notes"`
}

func (s *Server) ResolveAlert(c *gin.Context) {
	var req resolveAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		AbortWithError(c, malformedRequestError())
		return
	}

	resolved, err := s.alertSvc.Resolve(c.Request.Context(), alertdomain.ResolveRequest{
		ID:    c.Param("id"),
		Notes: strings.TrimSpace(req.Notes),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resolved)
}
