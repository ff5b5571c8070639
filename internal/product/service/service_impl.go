package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	auditdomain "github.com/openagora/agora/internal/audit/domain"
	"github.com/openagora/agora/internal/product/domain"
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
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	repo     domain.Repository
	genID    *snowflake.Node
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("product.service"),
		repo:     p.Repo,
		genID:    p.GenID,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Product{}, domain.ErrInvalidName
	}

	category := strings.ToUpper(strings.TrimSpace(req.Category))
	if category == "" {
		return domain.Product{}, domain.ErrInvalidCategory
	}

	unit := strings.TrimSpace(req.Unit)
	if unit == "" {
		return domain.Product{}, domain.ErrInvalidUnit
	}

	productSlug := slug.Make(name)
	existing, err := s.repo.FindBySlug(ctx, s.db, productSlug)
	if err != nil {
		return domain.Product{}, err
	}
	if existing != nil {
		return domain.Product{}, domain.ErrSlugTaken
	}

	now := time.Now().UTC()
	product := domain.Product{
		ID:        s.genID.Generate(),
		Name:      name,
		Slug:      productSlug,
		Category:  category,
		Unit:      unit,
		State:     lifecycle.StateActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, &product); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.Product{}, domain.ErrSlugTaken
		}
		return domain.Product{}, err
	}

	if s.auditSvc != nil {
		targetID := product.ID.String()
		_ = s.auditSvc.Record(ctx, "", nil, "product.create", "product", &targetID, map[string]any{
			"slug":     product.Slug,
			"category": product.Category,
		})
	}

	return product, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	page := req.Page.Normalize()

	items, total, err := s.repo.List(ctx, s.db, domain.ListFilter{
		Category: strings.ToUpper(strings.TrimSpace(req.Category)),
		Query:    strings.TrimSpace(req.Query),
		Limit:    page.Limit,
		Offset:   page.Offset,
	})
	if err != nil {
		return domain.ListResponse{}, err
	}

	products := make([]domain.Product, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		products = append(products, *item)
	}

	return domain.ListResponse{
		PageInfo: pagination.BuildPageInfo(page, total),
		Products: products,
	}, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Product, error) {
	productID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || productID == 0 {
		return domain.Product{}, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, productID)
	if err != nil {
		return domain.Product{}, err
	}
	if item == nil {
		return domain.Product{}, domain.ErrNotFound
	}

	return *item, nil
}
