package service

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/openagora/agora/internal/adminctx"
	alertdomain "github.com/openagora/agora/internal/alert/domain"
	auditdomain "github.com/openagora/agora/internal/audit/domain"
	"github.com/openagora/agora/internal/compliance/domain"
	listingdomain "github.com/openagora/agora/internal/listing/domain"
	"github.com/openagora/agora/internal/observability/metrics"
	pricingdomain "github.com/openagora/agora/internal/pricing/domain"
	productdomain "github.com/openagora/agora/internal/product/domain"
	"github.com/openagora/agora/internal/ratelimit"
	sellerdomain "github.com/openagora/agora/internal/seller/domain"
	"github.com/openagora/agora/pkg/db/lifecycle"
	"github.com/openagora/agora/pkg/db/pagination"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// criticalOverage is the overage percentage at which a price violation
// alert escalates from WARNING to CRITICAL.
var criticalOverage = decimal.NewFromInt(25)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Repo        domain.Repository
	PricingRepo pricingdomain.Repository
	ListingRepo listingdomain.Repository
	ProductRepo productdomain.Repository
	SellerRepo  sellerdomain.Repository
	AlertSvc    alertdomain.Service        `optional:"true"`
	Limiter     *ratelimit.AdminAPILimiter `optional:"true"`
	AuditSvc    auditdomain.Service        `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	repo        domain.Repository
	pricingRepo pricingdomain.Repository
	listingRepo listingdomain.Repository
	productRepo productdomain.Repository
	sellerRepo  sellerdomain.Repository
	alertSvc    alertdomain.Service
	limiter     *ratelimit.AdminAPILimiter
	auditSvc    auditdomain.Service
	metrics     *metrics.EngineMetrics

	scanning atomic.Bool
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("compliance.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		pricingRepo: p.PricingRepo,
		listingRepo: p.ListingRepo,
		productRepo: p.ProductRepo,
		sellerRepo:  p.SellerRepo,
		alertSvc:    p.AlertSvc,
		limiter:     p.Limiter,
		auditSvc:    p.AuditSvc,
		metrics:     metrics.Engine(),
	}
}

func (s *Service) Classify(ctx context.Context, req domain.ClassifyRequest) (domain.ClassifyResponse, error) {
	productID, err := parseID(req.ProductID)
	if err != nil {
		return domain.ClassifyResponse{}, domain.ErrInvalidProduct
	}
	sellerID, err := parseID(req.SellerID)
	if err != nil {
		return domain.ClassifyResponse{}, domain.ErrInvalidSeller
	}
	var listingID snowflake.ID
	if strings.TrimSpace(req.ListingID) != "" {
		listingID, err = parseID(req.ListingID)
		if err != nil {
			return domain.ClassifyResponse{}, domain.ErrInvalidListing
		}
	}
	if req.ListedPrice.LessThanOrEqual(decimal.Zero) {
		return domain.ClassifyResponse{}, domain.ErrInvalidPrice
	}

	product, err := s.productRepo.FindByID(ctx, s.db, productID)
	if err != nil {
		return domain.ClassifyResponse{}, err
	}
	if product == nil {
		return domain.ClassifyResponse{}, domain.ErrNotFound
	}
	seller, err := s.sellerRepo.FindByID(ctx, s.db, sellerID, false)
	if err != nil {
		return domain.ClassifyResponse{}, err
	}
	if seller == nil {
		return domain.ClassifyResponse{}, domain.ErrNotFound
	}

	now := time.Now().UTC()
	var resp domain.ClassifyResponse
	created := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ceiling, err := s.pricingRepo.EffectiveCeiling(ctx, tx, productID, now)
		if err != nil {
			return err
		}

		var amount *decimal.Decimal
		if ceiling != nil {
			amount = &ceiling.Amount
		}
		resp.Classification = domain.Decide(req.ListedPrice, amount)
		if ceiling != nil {
			resp.CeilingID = ceiling.ID
		}
		if !resp.Violated() {
			return nil
		}

		record, existed, err := s.recordViolation(ctx, tx, violationInput{
			SellerID:    sellerID,
			ProductID:   productID,
			ListingID:   listingID,
			ListedPrice: req.ListedPrice,
			Ceiling:     ceiling.Amount,
			OveragePct:  resp.OveragePct,
			DetectedAt:  now,
		})
		if err != nil {
			return err
		}
		resp.Record = record
		created = !existed
		return nil
	})
	if err != nil {
		s.metrics.IncMutationError(metrics.MutationOpClassify, err)
		return domain.ClassifyResponse{}, err
	}

	if resp.Record != nil {
		if created {
			s.log.Info("price violation recorded",
				zap.String("seller_id", sellerID.String()),
				zap.String("product_id", productID.String()),
				zap.String("overage_pct", resp.OveragePct.String()),
			)
		}
		s.raiseViolationAlert(ctx, *resp.Record)
	}

	return resp, nil
}

// violationInput carries everything a detection needs to persist.
type violationInput struct {
	SellerID    snowflake.ID
	ProductID   snowflake.ID
	ListingID   snowflake.ID
	ListedPrice decimal.Decimal
	Ceiling     decimal.Decimal
	OveragePct  decimal.Decimal
	DetectedAt  time.Time
}

// recordViolation folds a detection into the open record for the
// (seller, product) pair, inserting a NEW one only when none exists. The
// existing record is left untouched: its first detected_at and price
// snapshot are evidence. Runs on the caller's transaction; the unresolved
// lookup takes a row lock so concurrent detections serialize.
func (s *Service) recordViolation(ctx context.Context, tx *gorm.DB, in violationInput) (*domain.NonComplianceRecord, bool, error) {
	lockStart := time.Now()
	existing, err := s.repo.FindUnresolved(ctx, tx, in.SellerID, in.ProductID, true)
	s.metrics.ObserveDBLockWait(metrics.LockResourceViolationDedupe, time.Since(lockStart))
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, true, nil
	}

	record := &domain.NonComplianceRecord{
		ID:           s.genID.Generate(),
		SellerID:     in.SellerID,
		ProductID:    in.ProductID,
		ListingID:    in.ListingID,
		ListedPrice:  in.ListedPrice,
		CeilingPrice: in.Ceiling,
		OveragePct:   in.OveragePct,
		DetectedAt:   in.DetectedAt,
		Status:       domain.ViolationNew,
		State:        lifecycle.StateActive,
		CreatedAt:    in.DetectedAt,
		UpdatedAt:    in.DetectedAt,
	}
	if err := s.repo.Insert(ctx, tx, record); err != nil {
		return nil, false, err
	}
	return record, false, nil
}

func (s *Service) ListViolations(ctx context.Context, req domain.ListViolationRequest) (domain.ListViolationResponse, error) {
	page := req.Page.Normalize()

	filter := domain.ViolationFilter{
		Limit:  page.Limit,
		Offset: page.Offset,
	}
	if strings.TrimSpace(req.SellerID) != "" {
		id, err := parseID(req.SellerID)
		if err != nil {
			return domain.ListViolationResponse{}, domain.ErrInvalidSeller
		}
		filter.SellerID = id
	}
	if strings.TrimSpace(req.ProductID) != "" {
		id, err := parseID(req.ProductID)
		if err != nil {
			return domain.ListViolationResponse{}, domain.ErrInvalidProduct
		}
		filter.ProductID = id
	}
	if status := strings.ToUpper(strings.TrimSpace(req.Status)); status != "" {
		if !domain.ValidViolationStatus(domain.ViolationStatus(status)) {
			return domain.ListViolationResponse{}, domain.ErrInvalidStatus
		}
		filter.Status = domain.ViolationStatus(status)
	}
	if !req.From.IsZero() && !req.To.IsZero() && req.To.Before(req.From) {
		return domain.ListViolationResponse{}, domain.ErrInvalidTimeRange
	}
	filter.From = req.From
	filter.To = req.To

	violations, total, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListViolationResponse{}, err
	}

	return domain.ListViolationResponse{
		PageInfo:   pagination.BuildPageInfo(page, total),
		Violations: violations,
	}, nil
}

func (s *Service) Acknowledge(ctx context.Context, req domain.ViolationActionRequest) (domain.NonComplianceRecord, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.NonComplianceRecord{}, domain.ErrInvalidID
	}

	var record domain.NonComplianceRecord
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByID(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrNotFound
		}
		if existing.Status == domain.ViolationResolved {
			return domain.ErrAlreadyResolved
		}
		if existing.Status == domain.ViolationAcknowledged {
			record = *existing
			return nil
		}

		now := time.Now().UTC()
		existing.Status = domain.ViolationAcknowledged
		existing.AcknowledgedAt = &now
		existing.UpdatedAt = now
		if actor, ok := adminctx.ActorFromContext(ctx); ok {
			acknowledgedBy := actor.ID.String()
			existing.AcknowledgedBy = &acknowledgedBy
		}

		if err := s.repo.Update(ctx, tx, existing); err != nil {
			return err
		}
		record = *existing
		return nil
	})
	if err != nil {
		return domain.NonComplianceRecord{}, err
	}

	s.recordAudit(ctx, "compliance.acknowledge_violation", record.ID, map[string]any{
		"seller_id":  record.SellerID.String(),
		"product_id": record.ProductID.String(),
	})

	return record, nil
}

func (s *Service) Resolve(ctx context.Context, req domain.ViolationActionRequest) (domain.NonComplianceRecord, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.NonComplianceRecord{}, domain.ErrInvalidID
	}

	var record domain.NonComplianceRecord
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByID(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrNotFound
		}
		if existing.Status == domain.ViolationResolved {
			return domain.ErrAlreadyResolved
		}

		now := time.Now().UTC()
		existing.Status = domain.ViolationResolved
		existing.ResolvedAt = &now
		existing.UpdatedAt = now
		if notes := strings.TrimSpace(req.Notes); notes != "" {
			existing.ResolvedNotes = &notes
		}
		if actor, ok := adminctx.ActorFromContext(ctx); ok {
			resolvedBy := actor.ID.String()
			existing.ResolvedBy = &resolvedBy
		}

		if err := s.repo.Update(ctx, tx, existing); err != nil {
			return err
		}
		record = *existing
		return nil
	})
	if err != nil {
		return domain.NonComplianceRecord{}, err
	}

	s.recordAudit(ctx, "compliance.resolve_violation", record.ID, map[string]any{
		"seller_id":  record.SellerID.String(),
		"product_id": record.ProductID.String(),
	})

	return record, nil
}

// raiseViolationAlert keeps the alert surface in step with a detection.
// The dedupe key collapses repeats while an OPEN alert exists; a resolved
// alert over a still-violating listing gets re-raised. Best-effort.
func (s *Service) raiseViolationAlert(ctx context.Context, record domain.NonComplianceRecord) bool {
	if s.alertSvc == nil {
		return false
	}

	severity := alertdomain.SeverityWarning
	if record.OveragePct.GreaterThanOrEqual(criticalOverage) {
		severity = alertdomain.SeverityCritical
	}

	sellerID := record.SellerID
	productID := record.ProductID
	_, created, err := s.alertSvc.Raise(ctx, alertdomain.RaiseRequest{
		Category:  alertdomain.CategoryPriceViolation,
		Severity:  severity,
		SellerID:  &sellerID,
		ProductID: &productID,
		Message: fmt.Sprintf("listed price %s exceeds ceiling %s by %s%%",
			record.ListedPrice.StringFixed(2),
			record.CeilingPrice.StringFixed(2),
			record.OveragePct.String(),
		),
		DedupeKey: fmt.Sprintf("price_violation:%s:%s", sellerID, productID),
		Meta: map[string]any{
			"record_id":     record.ID.String(),
			"listed_price":  record.ListedPrice.StringFixed(2),
			"ceiling_price": record.CeilingPrice.StringFixed(2),
			"overage_pct":   record.OveragePct.String(),
		},
	})
	if err != nil {
		s.log.Warn("failed to raise price violation alert",
			zap.Int64("seller_id", int64(record.SellerID)),
			zap.Int64("product_id", int64(record.ProductID)),
			zap.Error(err),
		)
		return false
	}
	return created
}

func (s *Service) recordAudit(ctx context.Context, action string, recordID snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	targetID := recordID.String()
	_ = s.auditSvc.Record(ctx, "", nil, action, "non_compliance_record", &targetID, metadata)
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
