package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	opasdomain "github.com/openagora/agora/internal/opas/domain"
	"github.com/openagora/agora/pkg/db/pagination"
)

func (s *Server) SubmitOpasOffer(c *gin.Context) {
	var req opasdomain.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, malformedRequestError())
		return
	}

	submission, err := s.opasSvc.Submit(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, submission)
}

func (s *Server) ListOpasSubmissions(c *gin.Context) {
	var query struct {
		pagination.Page
		SellerID  string `form:"seller_id"`
		ProductID string `form:"product_id"`
		Status    string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, malformedRequestError())
		return
	}

	resp, err := s.opasSvc.List(c.Request.Context(), opasdomain.ListSubmissionRequest{
		Page:      query.Page,
		SellerID:  strings.TrimSpace(query.SellerID),
		ProductID: strings.TrimSpace(query.ProductID),
		Status:    strings.TrimSpace(query.Status),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

type opasDecisionRequest struct {
	Note string `json:"note"`
}

// ApproveOpasSubmission accepts the offer and books the goods into the
// inventory ledger in the same transaction. Decisions are final.
func (s *Server) ApproveOpasSubmission(c *gin.Context) {
	var req opasDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		AbortWithError(c, malformedRequestError())
		return
	}

	submission, err := s.opasSvc.Approve(c.Request.Context(), opasdomain.DecideRequest{
		ID:   c.Param("id"),
		Note: strings.TrimSpace(req.Note),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, submission)
}

func (s *Server) RejectOpasSubmission(c *gin.Context) {
	var req opasDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		AbortWithError(c, malformedRequestError())
		return
	}

	submission, err := s.opasSvc.Reject(c.Request.Context(), opasdomain.DecideRequest{
		ID:   c.Param("id"),
		Note: strings.TrimSpace(req.Note),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, submission)
}
