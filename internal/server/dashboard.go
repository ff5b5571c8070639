package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetDashboardStats returns the marketplace dashboard snapshot. The
// response is the whole aggregate or nothing; a failed sub-aggregation
// surfaces as aggregation_failure rather than a partial body.
func (s *Server) GetDashboardStats(c *gin.Context) {
	snapshot, err := s.dashboardSvc.GetStats(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}
