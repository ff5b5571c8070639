package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/openagora/agora/internal/order/domain"
	"github.com/openagora/agora/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("order.service"),
		repo: p.Repo,
	}
}

func (s *Service) List(ctx context.Context, req domain.ListOrderRequest) (domain.ListOrderResponse, error) {
	if req.From != nil && req.To != nil && req.From.After(*req.To) {
		return domain.ListOrderResponse{}, domain.ErrInvalidTimeRange
	}

	page := req.Page.Normalize()

	filter := domain.ListFilter{
		From:   req.From,
		To:     req.To,
		Limit:  page.Limit,
		Offset: page.Offset,
	}
	if raw := strings.TrimSpace(req.SellerID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil || id == 0 {
			return domain.ListOrderResponse{}, domain.ErrInvalidSeller
		}
		filter.SellerID = id
	}
	if status := strings.ToUpper(strings.TrimSpace(req.Status)); status != "" {
		switch domain.OrderStatus(status) {
		case domain.StatusPending, domain.StatusDelivered, domain.StatusCancelled:
			filter.Status = domain.OrderStatus(status)
		default:
			return domain.ListOrderResponse{}, domain.ErrInvalidStatus
		}
	}

	items, total, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListOrderResponse{}, err
	}

	orders := make([]domain.Order, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		orders = append(orders, *item)
	}

	return domain.ListOrderResponse{
		PageInfo: pagination.BuildPageInfo(page, total),
		Orders:   orders,
	}, nil
}
