package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	sellerdomain "github.com/openagora/agora/internal/seller/domain"
	"github.com/openagora/agora/pkg/db/pagination"
)

func (s *Server) CreateSeller(c *gin.Context) {
	var req sellerdomain.CreateSellerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, malformedRequestError())
		return
	}

	seller, err := s.sellerSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, seller)
}

func (s *Server) ListSellers(c *gin.Context) {
	var query struct {
		pagination.Page
		Status string `form:"status"`
		Query  string `form:"q"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, malformedRequestError())
		return
	}

	resp, err := s.sellerSvc.List(c.Request.Context(), sellerdomain.ListSellerRequest{
		Page:   query.Page,
		Status: strings.TrimSpace(query.Status),
		Query:  strings.TrimSpace(query.Query),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetSeller(c *gin.Context) {
	seller, err := s.sellerSvc.GetByID(c.Request.Context(), sellerdomain.GetSellerRequest{ID: c.Param("id")})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, seller)
}

type sellerModerationRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) moderationRequest(c *gin.Context) (sellerdomain.ModerationRequest, bool) {
	var req sellerModerationRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		AbortWithError(c, malformedRequestError())
		return sellerdomain.ModerationRequest{}, false
	}
	return sellerdomain.ModerationRequest{
		ID:     c.Param("id"),
		Reason: strings.TrimSpace(req.Reason),
	}, true
}

func (s *Server) ApproveSeller(c *gin.Context) {
	req, ok := s.moderationRequest(c)
	if !ok {
		return
	}

	seller, err := s.sellerSvc.Approve(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, seller)
}

func (s *Server) RejectSeller(c *gin.Context) {
	req, ok := s.moderationRequest(c)
	if !ok {
		return
	}

	seller, err := s.sellerSvc.Reject(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, seller)
}

func (s *Server) SuspendSeller(c *gin.Context) {
	req, ok := s.moderationRequest(c)
	if !ok {
		return
	}

	seller, err := s.sellerSvc.Suspend(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, seller)
}

func (s *Server) ReactivateSeller(c *gin.Context) {
	req, ok := s.moderationRequest(c)
	if !ok {
		return
	}

	seller, err := s.sellerSvc.Reactivate(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, seller)
}
