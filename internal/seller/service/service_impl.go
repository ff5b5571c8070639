package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	alertdomain "github.com/openagora/agora/internal/alert/domain"
	auditdomain "github.com/openagora/agora/internal/audit/domain"
	"github.com/openagora/agora/internal/seller/domain"
	"github.com/openagora/agora/pkg/db/lifecycle"
	"github.com/openagora/agora/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	AuditSvc auditdomain.Service `optional:"true"`
	AlertSvc alertdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	auditSvc auditdomain.Service
	alertSvc alertdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("seller.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
		alertSvc: p.AlertSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateSellerRequest) (domain.Seller, error) {
	businessName := strings.TrimSpace(req.BusinessName)
	if businessName == "" {
		return domain.Seller{}, domain.ErrInvalidBusinessName
	}

	ownerName := strings.TrimSpace(req.OwnerName)
	if ownerName == "" {
		return domain.Seller{}, domain.ErrInvalidOwnerName
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return domain.Seller{}, domain.ErrInvalidEmail
	}

	now := time.Now().UTC()
	seller := domain.Seller{
		ID:           s.genID.Generate(),
		BusinessName: businessName,
		OwnerName:    ownerName,
		Email:        email,
		Phone:        strings.TrimSpace(req.Phone),
		Status:       domain.StatusPending,
		State:        lifecycle.StateActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Insert(ctx, s.db, &seller); err != nil {
		return domain.Seller{}, err
	}

	s.recordAudit(ctx, "seller.create", seller.ID, map[string]any{
		"business_name": seller.BusinessName,
	})

	return seller, nil
}

func (s *Service) List(ctx context.Context, req domain.ListSellerRequest) (domain.ListSellerResponse, error) {
	page := req.Page.Normalize()

	filter := domain.ListFilter{
		Query:  strings.TrimSpace(req.Query),
		Limit:  page.Limit,
		Offset: page.Offset,
	}
	if status := strings.ToUpper(strings.TrimSpace(req.Status)); status != "" {
		switch domain.Status(status) {
		case domain.StatusPending, domain.StatusActive, domain.StatusSuspended, domain.StatusRejected:
			filter.Status = domain.Status(status)
		default:
			return domain.ListSellerResponse{}, domain.ErrInvalidStatus
		}
	}

	items, total, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListSellerResponse{}, err
	}

	sellers := make([]domain.Seller, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		sellers = append(sellers, *item)
	}

	return domain.ListSellerResponse{
		PageInfo: pagination.BuildPageInfo(page, total),
		Sellers:  sellers,
	}, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetSellerRequest) (domain.Seller, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Seller{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, id, false)
	if err != nil {
		return domain.Seller{}, err
	}
	if item == nil {
		return domain.Seller{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) Approve(ctx context.Context, req domain.ModerationRequest) (domain.Seller, error) {
	seller, err := s.moderate(ctx, req.ID, domain.StatusPending, func(target *domain.Seller, now time.Time) {
		target.Status = domain.StatusActive
		target.ApprovedAt = &now
	})
	if err != nil {
		return domain.Seller{}, err
	}

	s.recordAudit(ctx, "seller.approve", seller.ID, moderationMeta(req.Reason))
	return seller, nil
}

func (s *Service) Reject(ctx context.Context, req domain.ModerationRequest) (domain.Seller, error) {
	seller, err := s.moderate(ctx, req.ID, domain.StatusPending, func(target *domain.Seller, now time.Time) {
		target.Status = domain.StatusRejected
		target.RejectedAt = &now
	})
	if err != nil {
		return domain.Seller{}, err
	}

	s.recordAudit(ctx, "seller.reject", seller.ID, moderationMeta(req.Reason))
	return seller, nil
}

func (s *Service) Suspend(ctx context.Context, req domain.ModerationRequest) (domain.Seller, error) {
	seller, err := s.moderate(ctx, req.ID, domain.StatusActive, func(target *domain.Seller, now time.Time) {
		target.Status = domain.StatusSuspended
		target.SuspendedAt = &now
	})
	if err != nil {
		return domain.Seller{}, err
	}

	s.recordAudit(ctx, "seller.suspend", seller.ID, moderationMeta(req.Reason))
	s.raiseSuspensionAlert(ctx, seller, req.Reason)
	return seller, nil
}

func (s *Service) Reactivate(ctx context.Context, req domain.ModerationRequest) (domain.Seller, error) {
	seller, err := s.moderate(ctx, req.ID, domain.StatusSuspended, func(target *domain.Seller, now time.Time) {
		target.Status = domain.StatusActive
	})
	if err != nil {
		return domain.Seller{}, err
	}

	s.recordAudit(ctx, "seller.reactivate", seller.ID, moderationMeta(req.Reason))
	return seller, nil
}

// moderate runs one status transition under a row lock. The fromStatus
// check makes repeated or out-of-order calls fail loudly instead of
// silently rewriting history.
func (s *Service) moderate(ctx context.Context, rawID string, fromStatus domain.Status, apply func(*domain.Seller, time.Time)) (domain.Seller, error) {
	id, err := s.parseID(rawID)
	if err != nil {
		return domain.Seller{}, err
	}

	var seller domain.Seller
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByID(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrNotFound
		}
		if existing.Status != fromStatus {
			return domain.ErrInvalidTransition
		}

		now := time.Now().UTC()
		apply(existing, now)
		existing.UpdatedAt = now

		if err := s.repo.Update(ctx, tx, existing); err != nil {
			return err
		}
		seller = *existing
		return nil
	})
	if err != nil {
		return domain.Seller{}, err
	}

	return seller, nil
}

func (s *Service) raiseSuspensionAlert(ctx context.Context, seller domain.Seller, reason string) {
	if s.alertSvc == nil {
		return
	}

	message := fmt.Sprintf("seller %s suspended", seller.BusinessName)
	if reason = strings.TrimSpace(reason); reason != "" {
		message += ": " + reason
	}

	sellerID := seller.ID
	_, _, err := s.alertSvc.Raise(ctx, alertdomain.RaiseRequest{
		Category:  alertdomain.CategorySellerIssue,
		Severity:  alertdomain.SeverityWarning,
		SellerID:  &sellerID,
		Message:   message,
		DedupeKey: "seller_issue:" + seller.ID.String(),
		Meta: map[string]any{
			"business_name": seller.BusinessName,
		},
	})
	if err != nil {
		s.log.Warn("failed to raise suspension alert", zap.Int64("seller_id", int64(seller.ID)), zap.Error(err))
	}
}

func (s *Service) recordAudit(ctx context.Context, action string, sellerID snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	targetID := sellerID.String()
	_ = s.auditSvc.Record(ctx, "", nil, action, "seller", &targetID, metadata)
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func moderationMeta(reason string) map[string]any {
	meta := map[string]any{}
	if reason = strings.TrimSpace(reason); reason != "" {
		meta["reason"] = reason
	}
	return meta
}
