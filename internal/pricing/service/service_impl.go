package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/openagora/agora/internal/adminctx"
	auditdomain "github.com/openagora/agora/internal/audit/domain"
	compliancedomain "github.com/openagora/agora/internal/compliance/domain"
	"github.com/openagora/agora/internal/pricing/domain"
	productdomain "github.com/openagora/agora/internal/product/domain"
	"github.com/openagora/agora/internal/providers/pdf"
	"github.com/openagora/agora/pkg/db/lifecycle"
	"github.com/openagora/agora/pkg/db/pagination"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Repo          domain.Repository
	ProductRepo   productdomain.Repository
	ViolationRepo compliancedomain.Repository
	PDF           pdf.Provider
	AuditSvc      auditdomain.Service `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	repo          domain.Repository
	productRepo   productdomain.Repository
	violationRepo compliancedomain.Repository
	pdf           pdf.Provider
	auditSvc      auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("pricing.service"),
		genID:         p.GenID,
		repo:          p.Repo,
		productRepo:   p.ProductRepo,
		violationRepo: p.ViolationRepo,
		pdf:           p.PDF,
		auditSvc:      p.AuditSvc,
	}
}

func (s *Service) CreateCeiling(ctx context.Context, req domain.CreateCeilingRequest) (domain.PriceCeiling, error) {
	productID, err := parseID(req.ProductID)
	if err != nil {
		return domain.PriceCeiling{}, domain.ErrInvalidProduct
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return domain.PriceCeiling{}, domain.ErrInvalidAmount
	}

	now := time.Now().UTC()
	effectiveFrom := now
	if req.EffectiveFrom != nil {
		effectiveFrom = req.EffectiveFrom.UTC()
	}
	var effectiveUntil *time.Time
	if req.EffectiveUntil != nil {
		until := req.EffectiveUntil.UTC()
		if !until.After(effectiveFrom) {
			return domain.PriceCeiling{}, domain.ErrInvalidWindow
		}
		effectiveUntil = &until
	}

	reason := domain.ChangeReason(strings.ToUpper(strings.TrimSpace(req.Reason)))
	if reason == "" {
		reason = domain.ReasonOther
	}
	if !domain.ValidChangeReason(reason) {
		return domain.PriceCeiling{}, domain.ErrInvalidReason
	}

	product, err := s.productRepo.FindByID(ctx, s.db, productID)
	if err != nil {
		return domain.PriceCeiling{}, err
	}
	if product == nil {
		return domain.PriceCeiling{}, domain.ErrInvalidProduct
	}

	var createdBy snowflake.ID
	if actor, ok := adminctx.ActorFromContext(ctx); ok {
		createdBy = actor.ID
	}

	ceiling := domain.PriceCeiling{
		ID:             s.genID.Generate(),
		ProductID:      productID,
		Amount:         req.Amount.Round(2),
		EffectiveFrom:  effectiveFrom,
		EffectiveUntil: effectiveUntil,
		CreatedBy:      createdBy,
		State:          lifecycle.StateActive,
		CreatedAt:      now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		latest, err := s.repo.LatestCeiling(ctx, tx, productID, true)
		if err != nil {
			return err
		}

		// A product's first ceiling is always the INITIAL entry; after
		// that the admin has to say why the cap moved.
		if latest == nil {
			reason = domain.ReasonInitial
		} else if reason == domain.ReasonInitial {
			return domain.ErrInvalidReason
		}

		if err := s.repo.InsertCeiling(ctx, tx, &ceiling); err != nil {
			return err
		}

		entry := domain.PriceHistoryEntry{
			ID:        s.genID.Generate(),
			ProductID: productID,
			CeilingID: ceiling.ID,
			NewAmount: ceiling.Amount,
			Reason:    reason,
			Note:      strings.TrimSpace(req.Note),
			CreatedBy: createdBy,
			CreatedAt: now,
		}
		if latest != nil {
			entry.OldAmount = decimal.NewNullDecimal(latest.Amount)
		}
		return s.repo.InsertHistory(ctx, tx, &entry)
	})
	if err != nil {
		return domain.PriceCeiling{}, err
	}

	s.log.Info("price ceiling issued",
		zap.String("product_id", productID.String()),
		zap.String("amount", ceiling.Amount.StringFixed(2)),
		zap.String("reason", string(reason)),
	)

	s.recordAudit(ctx, "price.create_ceiling", ceiling.ID, map[string]any{
		"product_id": productID.String(),
		"amount":     ceiling.Amount.StringFixed(2),
		"reason":     string(reason),
	})

	return ceiling, nil
}

func (s *Service) ListCeilings(ctx context.Context, req domain.ListCeilingRequest) (domain.ListCeilingResponse, error) {
	page := req.Page.Normalize()

	filter := domain.CeilingFilter{
		Limit:  page.Limit,
		Offset: page.Offset,
	}
	if strings.TrimSpace(req.ProductID) != "" {
		id, err := parseID(req.ProductID)
		if err != nil {
			return domain.ListCeilingResponse{}, domain.ErrInvalidProduct
		}
		filter.ProductID = id
	}
	if req.ActiveOnly {
		now := time.Now().UTC()
		filter.ActiveAt = &now
	}

	ceilings, total, err := s.repo.ListCeilings(ctx, s.db, filter)
	if err != nil {
		return domain.ListCeilingResponse{}, err
	}

	return domain.ListCeilingResponse{
		PageInfo: pagination.BuildPageInfo(page, total),
		Ceilings: ceilings,
	}, nil
}

func (s *Service) GetCeiling(ctx context.Context, id string) (domain.PriceCeiling, error) {
	ceilingID, err := parseID(id)
	if err != nil {
		return domain.PriceCeiling{}, domain.ErrInvalidID
	}

	ceiling, err := s.repo.FindCeilingByID(ctx, s.db, ceilingID)
	if err != nil {
		return domain.PriceCeiling{}, err
	}
	if ceiling == nil {
		return domain.PriceCeiling{}, domain.ErrNotFound
	}
	return *ceiling, nil
}

func (s *Service) ListHistory(ctx context.Context, req domain.ListHistoryRequest) (domain.ListHistoryResponse, error) {
	page := req.Page.Normalize()

	filter := domain.HistoryFilter{
		Query:  strings.TrimSpace(req.Query),
		Limit:  page.Limit,
		Offset: page.Offset,
	}
	if strings.TrimSpace(req.ProductID) != "" {
		id, err := parseID(req.ProductID)
		if err != nil {
			return domain.ListHistoryResponse{}, domain.ErrInvalidProduct
		}
		filter.ProductID = id
	}
	if strings.TrimSpace(req.AdminID) != "" {
		id, err := parseID(req.AdminID)
		if err != nil {
			return domain.ListHistoryResponse{}, domain.ErrInvalidAdmin
		}
		filter.AdminID = id
	}
	if reason := strings.ToUpper(strings.TrimSpace(req.Reason)); reason != "" {
		if !domain.ValidChangeReason(domain.ChangeReason(reason)) {
			return domain.ListHistoryResponse{}, domain.ErrInvalidReason
		}
		filter.Reason = domain.ChangeReason(reason)
	}
	if !req.From.IsZero() && !req.To.IsZero() && req.To.Before(req.From) {
		return domain.ListHistoryResponse{}, domain.ErrInvalidTimeRange
	}
	filter.From = req.From
	filter.To = req.To

	entries, total, err := s.repo.ListHistory(ctx, s.db, filter)
	if err != nil {
		return domain.ListHistoryResponse{}, err
	}

	return domain.ListHistoryResponse{
		PageInfo: pagination.BuildPageInfo(page, total),
		Entries:  entries,
	}, nil
}

func (s *Service) recordAudit(ctx context.Context, action string, ceilingID snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	targetID := ceilingID.String()
	_ = s.auditSvc.Record(ctx, "", nil, action, "price_ceiling", &targetID, metadata)
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
