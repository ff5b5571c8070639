package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/openagora/agora/internal/adminctx"
	"github.com/openagora/agora/internal/alert/domain"
	auditdomain "github.com/openagora/agora/internal/audit/domain"
	"github.com/openagora/agora/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("alert.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Raise(ctx context.Context, req domain.RaiseRequest) (domain.Alert, bool, error) {
	if !domain.ValidCategory(req.Category) {
		return domain.Alert{}, false, domain.ErrInvalidCategory
	}
	if !domain.ValidSeverity(req.Severity) {
		return domain.Alert{}, false, domain.ErrInvalidSeverity
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		return domain.Alert{}, false, domain.ErrInvalidMessage
	}

	dedupeKey := strings.TrimSpace(req.DedupeKey)
	if dedupeKey == "" {
		return domain.Alert{}, false, domain.ErrInvalidDedupeKey
	}

	meta := datatypes.JSONMap{}
	for key, value := range req.Meta {
		if key == "" {
			continue
		}
		meta[key] = value
	}

	var alert domain.Alert
	created := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindOpenByDedupeKey(ctx, tx, dedupeKey)
		if err != nil {
			return err
		}
		if existing != nil {
			alert = *existing
			return nil
		}

		now := time.Now().UTC()
		alert = domain.Alert{
			ID:        s.genID.Generate(),
			Category:  req.Category,
			Severity:  req.Severity,
			SellerID:  req.SellerID,
			ProductID: req.ProductID,
			Message:   message,
			DedupeKey: dedupeKey,
			Status:    domain.StatusOpen,
			Meta:      meta,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.Insert(ctx, tx, &alert); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return domain.Alert{}, false, err
	}

	if created {
		s.log.Info("alert raised",
			zap.String("category", string(alert.Category)),
			zap.String("severity", string(alert.Severity)),
			zap.String("dedupe_key", alert.DedupeKey),
		)
	}

	return alert, created, nil
}

func (s *Service) List(ctx context.Context, req domain.ListAlertRequest) (domain.ListAlertResponse, error) {
	page := req.Page.Normalize()

	filter := domain.ListFilter{
		Since:  req.Since,
		Limit:  page.Limit,
		Offset: page.Offset,
	}

	if status := strings.ToUpper(strings.TrimSpace(req.Status)); status != "" {
		filter.Status = domain.Status(status)
	}
	if category := strings.ToUpper(strings.TrimSpace(req.Category)); category != "" {
		if !domain.ValidCategory(domain.Category(category)) {
			return domain.ListAlertResponse{}, domain.ErrInvalidCategory
		}
		filter.Category = domain.Category(category)
	}
	if severity := strings.ToUpper(strings.TrimSpace(req.Severity)); severity != "" {
		if !domain.ValidSeverity(domain.Severity(severity)) {
			return domain.ListAlertResponse{}, domain.ErrInvalidSeverity
		}
		filter.Severity = domain.Severity(severity)
	}

	items, total, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListAlertResponse{}, err
	}

	alerts := make([]domain.Alert, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		alerts = append(alerts, *item)
	}

	return domain.ListAlertResponse{
		PageInfo: pagination.BuildPageInfo(page, total),
		Alerts:   alerts,
	}, nil
}

func (s *Service) Resolve(ctx context.Context, req domain.ResolveRequest) (domain.Alert, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil || id == 0 {
		return domain.Alert{}, domain.ErrInvalidID
	}

	var alert domain.Alert
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrNotFound
		}
		if existing.Status == domain.StatusResolved {
			return domain.ErrAlreadyResolved
		}

		now := time.Now().UTC()
		existing.Status = domain.StatusResolved
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
		alert = *existing
		return nil
	})
	if err != nil {
		return domain.Alert{}, err
	}

	if s.auditSvc != nil {
		targetID := alert.ID.String()
		_ = s.auditSvc.Record(ctx, "", nil, "alert.resolve", "alert", &targetID, map[string]any{
			"category": string(alert.Category),
		})
	}

	return alert, nil
}
