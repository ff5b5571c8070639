package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/openagora/agora/internal/adminctx"
	alertdomain "github.com/openagora/agora/internal/alert/domain"
	auditdomain "github.com/openagora/agora/internal/audit/domain"
	"github.com/openagora/agora/internal/config"
	"github.com/openagora/agora/internal/inventory/domain"
	"github.com/openagora/agora/internal/observability/metrics"
	productdomain "github.com/openagora/agora/internal/product/domain"
	"github.com/openagora/agora/pkg/db/lifecycle"
	"github.com/openagora/agora/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Repo        domain.Repository
	ProductRepo productdomain.Repository
	Regulation  *config.RegulationHolder
	AlertSvc    alertdomain.Service `optional:"true"`
	AuditSvc    auditdomain.Service `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	repo        domain.Repository
	productRepo productdomain.Repository
	regulation  *config.RegulationHolder
	alertSvc    alertdomain.Service
	auditSvc    auditdomain.Service
	metrics     *metrics.EngineMetrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("inventory.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		productRepo: p.ProductRepo,
		regulation:  p.Regulation,
		alertSvc:    p.AlertSvc,
		auditSvc:    p.AuditSvc,
		metrics:     metrics.Engine(),
	}
}

func (s *Service) Receive(ctx context.Context, req domain.ReceiveRequest) (domain.BatchView, error) {
	productID, err := parseID(req.ProductID)
	if err != nil {
		return domain.BatchView{}, domain.ErrInvalidProduct
	}
	if req.Quantity <= 0 {
		return domain.BatchView{}, domain.ErrInvalidQuantity
	}
	if req.UnitPrice.IsNegative() {
		return domain.BatchView{}, domain.ErrInvalidPrice
	}

	now := time.Now().UTC()
	if !req.ExpiresAt.After(now) {
		return domain.BatchView{}, domain.ErrInvalidExpiry
	}

	threshold := s.regulation.Get().DefaultLowStockThreshold
	if req.LowStockThreshold != nil {
		if *req.LowStockThreshold < 0 {
			return domain.BatchView{}, domain.ErrInvalidThreshold
		}
		threshold = *req.LowStockThreshold
	}

	product, err := s.productRepo.FindByID(ctx, s.db, productID)
	if err != nil {
		return domain.BatchView{}, err
	}
	if product == nil {
		return domain.BatchView{}, domain.ErrInvalidProduct
	}

	storage := datatypes.JSONMap{}
	for key, value := range req.Storage {
		if key == "" {
			continue
		}
		storage[key] = value
	}

	createdBy := actorID(ctx)
	batch := domain.Batch{
		ID:                s.genID.Generate(),
		ProductID:         productID,
		QuantityReceived:  req.Quantity,
		QuantityOnHand:    req.Quantity,
		UnitPrice:         req.UnitPrice.Round(2),
		Storage:           storage,
		ReceivedAt:        now,
		ExpiresAt:         req.ExpiresAt.UTC(),
		LowStockThreshold: threshold,
		State:             lifecycle.StateActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.InsertBatch(ctx, tx, &batch); err != nil {
			return err
		}
		if err := s.checkInvariant(&batch); err != nil {
			return err
		}

		trx := domain.Transaction{
			ID:              s.genID.Generate(),
			BatchID:         batch.ID,
			ProductID:       productID,
			Type:            domain.TransactionReceipt,
			Quantity:        req.Quantity,
			IsFIFOCompliant: true,
			CreatedBy:       createdBy,
			CreatedAt:       now,
		}
		return s.repo.InsertTransaction(ctx, tx, &trx)
	})
	if err != nil {
		s.metrics.IncMutationError(metrics.MutationOpInventoryReceive, err)
		return domain.BatchView{}, err
	}

	s.log.Info("inventory batch received",
		zap.String("batch_id", batch.ID.String()),
		zap.String("product_id", productID.String()),
		zap.Int64("quantity", req.Quantity),
	)
	s.recordAudit(ctx, "inventory.receive", batch.ID, map[string]any{
		"product_id": productID.String(),
		"quantity":   req.Quantity,
		"unit_price": batch.UnitPrice.StringFixed(2),
	})

	view := s.view(batch, now)
	s.raiseStockAlerts(ctx, view)
	return view, nil
}

func (s *Service) Consume(ctx context.Context, req domain.ConsumeRequest) (domain.ConsumeResponse, error) {
	productID, err := parseID(req.ProductID)
	if err != nil {
		return domain.ConsumeResponse{}, domain.ErrInvalidProduct
	}
	if req.Quantity <= 0 {
		return domain.ConsumeResponse{}, domain.ErrInvalidQuantity
	}

	product, err := s.productRepo.FindByID(ctx, s.db, productID)
	if err != nil {
		return domain.ConsumeResponse{}, err
	}
	if product == nil {
		return domain.ConsumeResponse{}, domain.ErrInvalidProduct
	}

	now := time.Now().UTC()
	createdBy := actorID(ctx)

	var (
		draws   []domain.Draw
		touched []domain.Batch
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lockStart := time.Now()
		batches, err := s.repo.OpenBatches(ctx, tx, productID, now, true)
		s.metrics.ObserveDBLockWait(metrics.LockResourceBatchesForConsume, time.Since(lockStart))
		if err != nil {
			return err
		}

		stocks := make([]domain.BatchStock, 0, len(batches))
		byID := make(map[snowflake.ID]*domain.Batch, len(batches))
		for _, batch := range batches {
			stocks = append(stocks, domain.BatchStock{
				BatchID:    batch.ID,
				OnHand:     batch.QuantityOnHand,
				ReceivedAt: batch.ReceivedAt,
				ExpiresAt:  batch.ExpiresAt,
			})
			byID[batch.ID] = batch
		}

		plan, err := domain.PlanConsumption(stocks, req.Quantity)
		if err != nil {
			return err
		}

		for _, draw := range plan {
			batch := byID[draw.BatchID]
			batch.QuantityOnHand -= draw.Taken
			batch.QuantityConsumed += draw.Taken
			batch.UpdatedAt = now

			if err := s.repo.UpdateBatch(ctx, tx, batch); err != nil {
				return err
			}
			if err := s.checkInvariant(batch); err != nil {
				return err
			}

			trx := domain.Transaction{
				ID:              s.genID.Generate(),
				BatchID:         batch.ID,
				ProductID:       productID,
				Type:            domain.TransactionConsumption,
				Quantity:        -draw.Taken,
				IsFIFOCompliant: true,
				CreatedBy:       createdBy,
				CreatedAt:       now,
			}
			if err := s.repo.InsertTransaction(ctx, tx, &trx); err != nil {
				return err
			}
			touched = append(touched, *batch)
		}
		draws = plan
		return nil
	})
	if err != nil {
		var insufficient *domain.InsufficientStockError
		if errors.As(err, &insufficient) {
			s.metrics.IncConsumeRejected("insufficient_stock")
		} else {
			s.metrics.IncMutationError(metrics.MutationOpInventoryConsume, err)
		}
		return domain.ConsumeResponse{}, err
	}

	s.log.Info("inventory consumed",
		zap.String("product_id", productID.String()),
		zap.Int64("quantity", req.Quantity),
		zap.Int("draws", len(draws)),
	)
	s.recordAudit(ctx, "inventory.consume", productID, map[string]any{
		"product_id": productID.String(),
		"quantity":   req.Quantity,
		"draws":      len(draws),
	})

	for _, batch := range touched {
		s.raiseStockAlerts(ctx, s.view(batch, now))
	}

	return domain.ConsumeResponse{
		ProductID: productID.String(),
		Quantity:  req.Quantity,
		Draws:     draws,
	}, nil
}

func (s *Service) Adjust(ctx context.Context, req domain.AdjustRequest) (domain.Transaction, error) {
	batchID, err := parseID(req.BatchID)
	if err != nil {
		return domain.Transaction{}, domain.ErrInvalidID
	}
	if req.Delta == 0 {
		return domain.Transaction{}, domain.ErrInvalidQuantity
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return domain.Transaction{}, domain.ErrInvalidReason
	}

	now := time.Now().UTC()
	createdBy := actorID(ctx)

	var (
		trx  domain.Transaction
		view domain.BatchView
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lockStart := time.Now()
		batch, err := s.repo.FindBatchByID(ctx, tx, batchID, true)
		s.metrics.ObserveDBLockWait(metrics.LockResourceBatchByID, time.Since(lockStart))
		if err != nil {
			return err
		}
		if batch == nil {
			return domain.ErrNotFound
		}

		// Negative corrections count as consumed out of band; positive
		// ones as extra receipts. Either way the quantity identity holds.
		if req.Delta < 0 {
			if batch.QuantityOnHand+req.Delta < 0 {
				return &domain.InsufficientStockError{Requested: -req.Delta, Available: batch.QuantityOnHand}
			}
			batch.QuantityOnHand += req.Delta
			batch.QuantityConsumed += -req.Delta
		} else {
			batch.QuantityOnHand += req.Delta
			batch.QuantityReceived += req.Delta
		}
		batch.UpdatedAt = now

		if err := s.repo.UpdateBatch(ctx, tx, batch); err != nil {
			return err
		}
		if err := s.checkInvariant(batch); err != nil {
			return err
		}

		trx = domain.Transaction{
			ID:              s.genID.Generate(),
			BatchID:         batch.ID,
			ProductID:       batch.ProductID,
			Type:            domain.TransactionAdjustment,
			Quantity:        req.Delta,
			Reason:          reason,
			IsFIFOCompliant: false,
			CreatedBy:       createdBy,
			CreatedAt:       now,
		}
		if err := s.repo.InsertTransaction(ctx, tx, &trx); err != nil {
			return err
		}
		view = s.view(*batch, now)
		return nil
	})
	if err != nil {
		s.metrics.IncMutationError(metrics.MutationOpInventoryAdjust, err)
		return domain.Transaction{}, err
	}

	s.log.Info("inventory batch adjusted",
		zap.String("batch_id", batchID.String()),
		zap.Int64("delta", req.Delta),
		zap.String("reason", reason),
	)
	s.recordAudit(ctx, "inventory.adjust", batchID, map[string]any{
		"batch_id": batchID.String(),
		"delta":    req.Delta,
		"reason":   reason,
	})

	s.raiseStockAlerts(ctx, view)
	return trx, nil
}

func (s *Service) ListBatches(ctx context.Context, req domain.ListBatchRequest) (domain.ListBatchResponse, error) {
	page := req.Page.Normalize()
	now := time.Now().UTC()

	filter := domain.BatchFilter{
		LowStock: req.LowStock,
		Limit:    page.Limit,
		Offset:   page.Offset,
	}
	if strings.TrimSpace(req.ProductID) != "" {
		id, err := parseID(req.ProductID)
		if err != nil {
			return domain.ListBatchResponse{}, domain.ErrInvalidProduct
		}
		filter.ProductID = id
	}
	if req.Expiring {
		cutoff := now.Add(s.regulation.Get().ExpiryWindow())
		filter.ExpiringBefore = &cutoff
	}

	batches, total, err := s.repo.ListBatches(ctx, s.db, filter)
	if err != nil {
		return domain.ListBatchResponse{}, err
	}

	views := make([]domain.BatchView, 0, len(batches))
	for _, batch := range batches {
		views = append(views, s.view(batch, now))
	}

	return domain.ListBatchResponse{
		PageInfo: pagination.BuildPageInfo(page, total),
		Batches:  views,
	}, nil
}

func (s *Service) GetBatch(ctx context.Context, id string) (domain.BatchDetail, error) {
	batchID, err := parseID(id)
	if err != nil {
		return domain.BatchDetail{}, domain.ErrInvalidID
	}

	batch, err := s.repo.FindBatchByID(ctx, s.db, batchID, false)
	if err != nil {
		return domain.BatchDetail{}, err
	}
	if batch == nil {
		return domain.BatchDetail{}, domain.ErrNotFound
	}

	transactions, err := s.repo.TransactionsForBatch(ctx, s.db, batchID)
	if err != nil {
		return domain.BatchDetail{}, err
	}

	return domain.BatchDetail{
		BatchView:    s.view(*batch, time.Now().UTC()),
		Transactions: transactions,
	}, nil
}

func (s *Service) ListTransactions(ctx context.Context, req domain.ListTransactionRequest) (domain.ListTransactionResponse, error) {
	page := req.Page.Normalize()

	filter := domain.TransactionFilter{
		Limit:  page.Limit,
		Offset: page.Offset,
	}
	if strings.TrimSpace(req.BatchID) != "" {
		id, err := parseID(req.BatchID)
		if err != nil {
			return domain.ListTransactionResponse{}, domain.ErrInvalidID
		}
		filter.BatchID = id
	}
	if strings.TrimSpace(req.ProductID) != "" {
		id, err := parseID(req.ProductID)
		if err != nil {
			return domain.ListTransactionResponse{}, domain.ErrInvalidProduct
		}
		filter.ProductID = id
	}
	if trxType := strings.ToUpper(strings.TrimSpace(req.Type)); trxType != "" {
		if !domain.ValidTransactionType(domain.TransactionType(trxType)) {
			return domain.ListTransactionResponse{}, domain.ErrInvalidType
		}
		filter.Type = domain.TransactionType(trxType)
	}
	if !req.From.IsZero() && !req.To.IsZero() && req.To.Before(req.From) {
		return domain.ListTransactionResponse{}, domain.ErrInvalidTimeRange
	}
	filter.From = req.From
	filter.To = req.To

	transactions, total, err := s.repo.ListTransactions(ctx, s.db, filter)
	if err != nil {
		return domain.ListTransactionResponse{}, err
	}

	return domain.ListTransactionResponse{
		PageInfo:     pagination.BuildPageInfo(page, total),
		Transactions: transactions,
	}, nil
}

// view derives the read-only stock flags; they are never persisted.
func (s *Service) view(batch domain.Batch, now time.Time) domain.BatchView {
	return domain.BatchView{
		Batch:      batch,
		IsLowStock: batch.LowStock(),
		IsExpiring: batch.ExpiringWithin(now, s.regulation.Get().ExpiryWindow()),
	}
}

// checkInvariant verifies the quantity identity after a mutation. A
// failure rolls the enclosing transaction back; nothing is auto-corrected.
func (s *Service) checkInvariant(batch *domain.Batch) error {
	if batch.Reconciles() {
		return nil
	}
	s.log.Error("inventory batch failed its quantity invariant",
		zap.String("batch_id", batch.ID.String()),
		zap.Int64("received", batch.QuantityReceived),
		zap.Int64("on_hand", batch.QuantityOnHand),
		zap.Int64("consumed", batch.QuantityConsumed),
	)
	return domain.ErrConsistencyViolation
}

// raiseStockAlerts flags threshold crossings, deduped per batch.
// Best-effort.
func (s *Service) raiseStockAlerts(ctx context.Context, view domain.BatchView) {
	if s.alertSvc == nil {
		return
	}

	productID := view.ProductID
	if view.IsLowStock {
		_, _, err := s.alertSvc.Raise(ctx, alertdomain.RaiseRequest{
			Category:  alertdomain.CategoryLowStock,
			Severity:  alertdomain.SeverityWarning,
			ProductID: &productID,
			Message: fmt.Sprintf("batch %s down to %d units (threshold %d)",
				view.ID, view.QuantityOnHand, view.LowStockThreshold),
			DedupeKey: "low_stock:" + view.ID.String(),
			Meta: map[string]any{
				"batch_id":   view.ID.String(),
				"on_hand":    view.QuantityOnHand,
				"threshold":  view.LowStockThreshold,
				"product_id": productID.String(),
			},
		})
		if err != nil {
			s.log.Warn("failed to raise low stock alert",
				zap.Int64("batch_id", int64(view.ID)), zap.Error(err))
		}
	}

	if view.IsExpiring {
		_, _, err := s.alertSvc.Raise(ctx, alertdomain.RaiseRequest{
			Category:  alertdomain.CategoryExpiring,
			Severity:  alertdomain.SeverityInfo,
			ProductID: &productID,
			Message: fmt.Sprintf("batch %s expires %s with %d units on hand",
				view.ID, view.ExpiresAt.Format("2006-01-02"), view.QuantityOnHand),
			DedupeKey: "expiring:" + view.ID.String(),
			Meta: map[string]any{
				"batch_id":   view.ID.String(),
				"expires_at": view.ExpiresAt.Format(time.RFC3339),
				"on_hand":    view.QuantityOnHand,
				"product_id": productID.String(),
			},
		})
		if err != nil {
			s.log.Warn("failed to raise expiring stock alert",
				zap.Int64("batch_id", int64(view.ID)), zap.Error(err))
		}
	}
}

func (s *Service) recordAudit(ctx context.Context, action string, targetID snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	target := targetID.String()
	_ = s.auditSvc.Record(ctx, "", nil, action, "inventory_batch", &target, metadata)
}

func actorID(ctx context.Context) snowflake.ID {
	if actor, ok := adminctx.ActorFromContext(ctx); ok {
		return actor.ID
	}
	return 0
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
