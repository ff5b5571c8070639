package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/openagora/agora/internal/adminctx"
	alertdomain "github.com/openagora/agora/internal/alert/domain"
	auditdomain "github.com/openagora/agora/internal/audit/domain"
	"github.com/openagora/agora/internal/config"
	inventorydomain "github.com/openagora/agora/internal/inventory/domain"
	"github.com/openagora/agora/internal/observability/metrics"
	"github.com/openagora/agora/internal/opas/domain"
	productdomain "github.com/openagora/agora/internal/product/domain"
	sellerdomain "github.com/openagora/agora/internal/seller/domain"
	"github.com/openagora/agora/pkg/db/lifecycle"
	"github.com/openagora/agora/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Repo          domain.Repository
	SellerRepo    sellerdomain.Repository
	ProductRepo   productdomain.Repository
	InventoryRepo inventorydomain.Repository
	Regulation    *config.RegulationHolder
	AlertSvc      alertdomain.Service `optional:"true"`
	AuditSvc      auditdomain.Service `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	repo          domain.Repository
	sellerRepo    sellerdomain.Repository
	productRepo   productdomain.Repository
	inventoryRepo inventorydomain.Repository
	regulation    *config.RegulationHolder
	alertSvc      alertdomain.Service
	auditSvc      auditdomain.Service
	metrics       *metrics.EngineMetrics
}

func New(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("opas.service"),
		genID:         p.GenID,
		repo:          p.Repo,
		sellerRepo:    p.SellerRepo,
		productRepo:   p.ProductRepo,
		inventoryRepo: p.InventoryRepo,
		regulation:    p.Regulation,
		alertSvc:      p.AlertSvc,
		auditSvc:      p.AuditSvc,
		metrics:       metrics.Engine(),
	}
}

func (s *Service) Submit(ctx context.Context, req domain.SubmitRequest) (domain.Submission, error) {
	sellerID, err := parseID(req.SellerID)
	if err != nil {
		return domain.Submission{}, domain.ErrInvalidSeller
	}
	productID, err := parseID(req.ProductID)
	if err != nil {
		return domain.Submission{}, domain.ErrInvalidProduct
	}
	if req.Quantity <= 0 {
		return domain.Submission{}, domain.ErrInvalidQuantity
	}
	if !req.UnitPrice.IsPositive() {
		return domain.Submission{}, domain.ErrInvalidPrice
	}

	now := time.Now().UTC()
	if !req.ExpiresAt.After(now) {
		return domain.Submission{}, domain.ErrInvalidExpiry
	}

	seller, err := s.sellerRepo.FindByID(ctx, s.db, sellerID, false)
	if err != nil {
		return domain.Submission{}, err
	}
	if seller == nil {
		return domain.Submission{}, domain.ErrInvalidSeller
	}
	if seller.Status != sellerdomain.StatusActive {
		return domain.Submission{}, domain.ErrSellerNotActive
	}

	product, err := s.productRepo.FindByID(ctx, s.db, productID)
	if err != nil {
		return domain.Submission{}, err
	}
	if product == nil {
		return domain.Submission{}, domain.ErrInvalidProduct
	}

	submission := domain.Submission{
		ID:        s.genID.Generate(),
		SellerID:  sellerID,
		ProductID: productID,
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice.Round(2),
		ExpiresAt: req.ExpiresAt.UTC(),
		Status:    domain.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.Insert(ctx, tx, &submission)
	})
	if err != nil {
		s.metrics.IncMutationError(metrics.MutationOpOpasSubmit, err)
		return domain.Submission{}, err
	}

	s.log.Info("opas submission recorded",
		zap.String("submission_id", submission.ID.String()),
		zap.String("seller_id", sellerID.String()),
		zap.String("product_id", productID.String()),
		zap.Int64("quantity", req.Quantity),
	)
	s.recordAudit(ctx, "opas.submit", submission.ID, map[string]any{
		"seller_id":  sellerID.String(),
		"product_id": productID.String(),
		"quantity":   req.Quantity,
		"unit_price": submission.UnitPrice.StringFixed(2),
	})
	return submission, nil
}

func (s *Service) List(ctx context.Context, req domain.ListSubmissionRequest) (domain.ListSubmissionResponse, error) {
	page := req.Page.Normalize()

	filter := domain.SubmissionFilter{
		Limit:  page.Limit,
		Offset: page.Offset,
	}
	if strings.TrimSpace(req.SellerID) != "" {
		id, err := parseID(req.SellerID)
		if err != nil {
			return domain.ListSubmissionResponse{}, domain.ErrInvalidSeller
		}
		filter.SellerID = id
	}
	if strings.TrimSpace(req.ProductID) != "" {
		id, err := parseID(req.ProductID)
		if err != nil {
			return domain.ListSubmissionResponse{}, domain.ErrInvalidProduct
		}
		filter.ProductID = id
	}
	if status := strings.ToUpper(strings.TrimSpace(req.Status)); status != "" {
		if !domain.ValidStatus(domain.Status(status)) {
			return domain.ListSubmissionResponse{}, domain.ErrInvalidStatus
		}
		filter.Status = domain.Status(status)
	}

	submissions, total, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListSubmissionResponse{}, err
	}

	return domain.ListSubmissionResponse{
		PageInfo:    pagination.BuildPageInfo(page, total),
		Submissions: submissions,
	}, nil
}

func (s *Service) Approve(ctx context.Context, req domain.DecideRequest) (domain.Submission, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.Submission{}, domain.ErrInvalidID
	}

	now := time.Now().UTC()
	var (
		submission domain.Submission
		batch      inventorydomain.Batch
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.lockSubmission(ctx, tx, id)
		if err != nil {
			return err
		}
		if !found.ExpiresAt.After(now) {
			return domain.ErrOfferExpired
		}

		batch = inventorydomain.Batch{
			ID:                s.genID.Generate(),
			ProductID:         found.ProductID,
			QuantityReceived:  found.Quantity,
			QuantityOnHand:    found.Quantity,
			UnitPrice:         found.UnitPrice,
			Storage:           datatypes.JSONMap{},
			ReceivedAt:        now,
			ExpiresAt:         found.ExpiresAt,
			LowStockThreshold: s.regulation.Get().DefaultLowStockThreshold,
			State:             lifecycle.StateActive,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := s.inventoryRepo.InsertBatch(ctx, tx, &batch); err != nil {
			return err
		}
		if !batch.Reconciles() {
			return inventorydomain.ErrConsistencyViolation
		}

		receipt := inventorydomain.Transaction{
			ID:              s.genID.Generate(),
			BatchID:         batch.ID,
			ProductID:       found.ProductID,
			Type:            inventorydomain.TransactionReceipt,
			Quantity:        found.Quantity,
			Reason:          "opas_submission:" + found.ID.String(),
			IsFIFOCompliant: true,
			CreatedBy:       actorID(ctx),
			CreatedAt:       now,
		}
		if err := s.inventoryRepo.InsertTransaction(ctx, tx, &receipt); err != nil {
			return err
		}

		s.stampDecision(ctx, found, domain.StatusApproved, req.Note, now)
		found.BatchID = &batch.ID
		if err := s.repo.Update(ctx, tx, found); err != nil {
			return err
		}
		submission = *found
		return nil
	})
	if err != nil {
		s.metrics.IncMutationError(metrics.MutationOpOpasDecide, err)
		return domain.Submission{}, err
	}

	s.log.Info("opas submission approved",
		zap.String("submission_id", submission.ID.String()),
		zap.String("batch_id", batch.ID.String()),
		zap.Int64("quantity", submission.Quantity),
	)
	s.recordAudit(ctx, "opas.approve", submission.ID, map[string]any{
		"batch_id":   batch.ID.String(),
		"product_id": submission.ProductID.String(),
		"seller_id":  submission.SellerID.String(),
		"quantity":   submission.Quantity,
	})

	s.raiseStockAlerts(ctx, batch, now)
	return submission, nil
}

func (s *Service) Reject(ctx context.Context, req domain.DecideRequest) (domain.Submission, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.Submission{}, domain.ErrInvalidID
	}

	now := time.Now().UTC()
	var submission domain.Submission
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.lockSubmission(ctx, tx, id)
		if err != nil {
			return err
		}

		s.stampDecision(ctx, found, domain.StatusRejected, req.Note, now)
		if err := s.repo.Update(ctx, tx, found); err != nil {
			return err
		}
		submission = *found
		return nil
	})
	if err != nil {
		s.metrics.IncMutationError(metrics.MutationOpOpasDecide, err)
		return domain.Submission{}, err
	}

	s.log.Info("opas submission rejected",
		zap.String("submission_id", submission.ID.String()),
		zap.String("seller_id", submission.SellerID.String()),
	)
	s.recordAudit(ctx, "opas.reject", submission.ID, map[string]any{
		"seller_id":  submission.SellerID.String(),
		"product_id": submission.ProductID.String(),
	})
	return submission, nil
}

// lockSubmission loads a pending submission FOR UPDATE so double decisions
// serialize into ErrAlreadyDecided.
func (s *Service) lockSubmission(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Submission, error) {
	lockStart := time.Now()
	found, err := s.repo.FindByID(ctx, tx, id, true)
	s.metrics.ObserveDBLockWait(metrics.LockResourceOpasSubmission, time.Since(lockStart))
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, domain.ErrNotFound
	}
	if !found.Pending() {
		return nil, domain.ErrAlreadyDecided
	}
	return found, nil
}

func (s *Service) stampDecision(ctx context.Context, submission *domain.Submission, status domain.Status, note string, now time.Time) {
	submission.Status = status
	if actor, ok := adminctx.ActorFromContext(ctx); ok {
		decidedBy := actor.ID.String()
		submission.DecidedBy = &decidedBy
	}
	decidedAt := now
	submission.DecidedAt = &decidedAt
	if trimmed := strings.TrimSpace(note); trimmed != "" {
		submission.DecisionNote = &trimmed
	}
	submission.UpdatedAt = now
}

// raiseStockAlerts mirrors the receive path: an approved offer can arrive
// already under the stock threshold or short-dated. Best-effort.
func (s *Service) raiseStockAlerts(ctx context.Context, batch inventorydomain.Batch, now time.Time) {
	if s.alertSvc == nil {
		return
	}

	productID := batch.ProductID
	if batch.LowStock() {
		_, _, err := s.alertSvc.Raise(ctx, alertdomain.RaiseRequest{
			Category:  alertdomain.CategoryLowStock,
			Severity:  alertdomain.SeverityWarning,
			ProductID: &productID,
			Message: fmt.Sprintf("batch %s down to %d units (threshold %d)",
				batch.ID, batch.QuantityOnHand, batch.LowStockThreshold),
			DedupeKey: "low_stock:" + batch.ID.String(),
			Meta: map[string]any{
				"batch_id":   batch.ID.String(),
				"on_hand":    batch.QuantityOnHand,
				"threshold":  batch.LowStockThreshold,
				"product_id": productID.String(),
			},
		})
		if err != nil {
			s.log.Warn("failed to raise low stock alert",
				zap.Int64("batch_id", int64(batch.ID)), zap.Error(err))
		}
	}

	if batch.ExpiringWithin(now, s.regulation.Get().ExpiryWindow()) {
		_, _, err := s.alertSvc.Raise(ctx, alertdomain.RaiseRequest{
			Category:  alertdomain.CategoryExpiring,
			Severity:  alertdomain.SeverityInfo,
			ProductID: &productID,
			Message: fmt.Sprintf("batch %s expires %s with %d units on hand",
				batch.ID, batch.ExpiresAt.Format("2006-01-02"), batch.QuantityOnHand),
			DedupeKey: "expiring:" + batch.ID.String(),
			Meta: map[string]any{
				"batch_id":   batch.ID.String(),
				"expires_at": batch.ExpiresAt.Format(time.RFC3339),
				"on_hand":    batch.QuantityOnHand,
				"product_id": productID.String(),
			},
		})
		if err != nil {
			s.log.Warn("failed to raise expiring stock alert",
				zap.Int64("batch_id", int64(batch.ID)), zap.Error(err))
		}
	}
}

func (s *Service) recordAudit(ctx context.Context, action string, targetID snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	target := targetID.String()
	_ = s.auditSvc.Record(ctx, "", nil, action, "opas_submission", &target, metadata)
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
