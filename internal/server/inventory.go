package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	inventorydomain "github.com/openagora/agora/internal/inventory/domain"
	"github.com/openagora/agora/pkg/db/pagination"
)

func (s *Server) ReceiveInventory(c *gin.Context) {
	var req inventorydomain.ReceiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, malformedRequestError())
		return
	}

	batch, err := s.inventorySvc.Receive(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, batch)
}

// ConsumeInventory draws stock oldest-batch-first. The draw is
// all-or-nothing: short stock rejects the whole request with
// insufficient_stock and commits nothing.
func (s *Server) ConsumeInventory(c *gin.Context) {
	var req inventorydomain.ConsumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, malformedRequestError())
		return
	}

	resp, err := s.inventorySvc.Consume(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

type adjustBatchRequest struct {
	Delta  int64  `json:"delta"`
	Reason string `json:"reason"`
}

func (s *Server) AdjustBatch(c *gin.Context) {
	var req adjustBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, malformedRequestError())
		return
	}

	txn, err := s.inventorySvc.Adjust(c.Request.Context(), inventorydomain.AdjustRequest{
		BatchID: c.Param("id"),
		Delta:   req.Delta,
		Reason:  strings.TrimSpace(req.Reason),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, txn)
}

func (s *Server) ListBatches(c *gin.Context) {
	var query struct {
		pagination.Page
		ProductID string `form:"product_id"`
		LowStock  string `form:"low_stock"`
		Expiring  string `form:"expiring"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, malformedRequestError())
		return
	}

	lowStock, err := parseOptionalBool(query.LowStock)
	if err != nil {
		AbortWithError(c, newValidationError("low_stock", "invalid_low_stock", "invalid low_stock"))
		return
	}
	expiring, err := parseOptionalBool(query.Expiring)
	if err != nil {
		AbortWithError(c, newValidationError("expiring", "invalid_expiring", "invalid expiring"))
		return
	}

	resp, err := s.inventorySvc.ListBatches(c.Request.Context(), inventorydomain.ListBatchRequest{
		Page:      query.Page,
		ProductID: strings.TrimSpace(query.ProductID),
		LowStock:  lowStock != nil && *lowStock,
		Expiring:  expiring != nil && *expiring,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetBatch(c *gin.Context) {
	batch, err := s.inventorySvc.GetBatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, batch)
}

func (s *Server) ListInventoryTransactions(c *gin.Context) {
	var query struct {
		pagination.Page
		BatchID   string `form:"batch_id"`
		ProductID string `form:"product_id"`
		Type      string `form:"type"`
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

	resp, err := s.inventorySvc.ListTransactions(c.Request.Context(), inventorydomain.ListTransactionRequest{
		Page:      query.Page,
		BatchID:   strings.TrimSpace(query.BatchID),
		ProductID: strings.TrimSpace(query.ProductID),
		Type:      strings.TrimSpace(query.Type),
		From:      timeOrZero(from),
		To:        timeOrZero(to),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
