package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	compliancedomain "github.com/openagora/agora/internal/compliance/domain"
	listingdomain "github.com/openagora/agora/internal/listing/domain"
	obslogger "github.com/openagora/agora/internal/observability/logger"
	"github.com/openagora/agora/pkg/db/pagination"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func (s *Server) CreateListing(c *gin.Context) {
	var req listingdomain.CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, malformedRequestError())
		return
	}

	created, err := s.listingSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (s *Server) ListListings(c *gin.Context) {
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

	resp, err := s.listingSvc.List(c.Request.Context(), listingdomain.ListListingRequest{
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

func (s *Server) GetListing(c *gin.Context) {
	found, err := s.listingSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, found)
}

type updateListingPriceRequest struct {
	Price decimal.Decimal `json:"price"`
}

func (s *Server) UpdateListingPrice(c *gin.Context) {
	var req updateListingPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, malformedRequestError())
		return
	}

	updated, err := s.listingSvc.UpdatePrice(c.Request.Context(), listingdomain.UpdatePriceRequest{
		ID:    c.Param("id"),
		Price: req.Price,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// Price changes take compliance effect immediately, not at the next
	// scan. The update is already committed, so a classification failure
	// is logged rather than surfaced; the next scan will catch up.
	if _, err := s.complianceSvc.Classify(c.Request.Context(), compliancedomain.ClassifyRequest{
		ProductID:   updated.ProductID.String(),
		SellerID:    updated.SellerID.String(),
		ListingID:   updated.ID.String(),
		ListedPrice: updated.ListedPrice,
	}); err != nil {
		obslogger.FromContext(c.Request.Context()).Warn("post-update classification failed",
			zap.String("listing_id", updated.ID.String()), zap.Error(err))
	}

	c.JSON(http.StatusOK, updated)
}

type setListingStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) SetListingStatus(c *gin.Context) {
	var req setListingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, malformedRequestError())
		return
	}

	updated, err := s.listingSvc.SetStatus(c.Request.Context(), listingdomain.SetStatusRequest{
		ID:     c.Param("id"),
		Status: strings.TrimSpace(req.Status),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}
