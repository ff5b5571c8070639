package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/openagora/agora/internal/audit/domain"
	"github.com/openagora/agora/internal/listing/domain"
	productdomain "github.com/openagora/agora/internal/product/domain"
	sellerdomain "github.com/openagora/agora/internal/seller/domain"
	"github.com/openagora/agora/pkg/db/lifecycle"
	"github.com/openagora/agora/pkg/db/pagination"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Repo        domain.Repository
	SellerRepo  sellerdomain.Repository
	ProductRepo productdomain.Repository
	AuditSvc    auditdomain.Service `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	repo        domain.Repository
	sellerRepo  sellerdomain.Repository
	productRepo productdomain.Repository
	auditSvc    auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("listing.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		sellerRepo:  p.SellerRepo,
		productRepo: p.ProductRepo,
		auditSvc:    p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateListingRequest) (domain.Listing, error) {
	sellerID, err := parseID(req.SellerID)
	if err != nil {
		return domain.Listing{}, domain.ErrInvalidSeller
	}
	productID, err := parseID(req.ProductID)
	if err != nil {
		return domain.Listing{}, domain.ErrInvalidProduct
	}
	if req.Price.LessThanOrEqual(decimal.Zero) {
		return domain.Listing{}, domain.ErrInvalidPrice
	}

	status := domain.StatusActive
	if raw := strings.ToUpper(strings.TrimSpace(req.Status)); raw != "" {
		switch domain.ListingStatus(raw) {
		case domain.StatusActive, domain.StatusInactive:
			status = domain.ListingStatus(raw)
		default:
			return domain.Listing{}, domain.ErrInvalidStatus
		}
	}

	seller, err := s.sellerRepo.FindByID(ctx, s.db, sellerID, false)
	if err != nil {
		return domain.Listing{}, err
	}
	if seller == nil {
		return domain.Listing{}, domain.ErrInvalidSeller
	}
	if seller.Status != sellerdomain.StatusActive {
		return domain.Listing{}, domain.ErrSellerNotActive
	}

	product, err := s.productRepo.FindByID(ctx, s.db, productID)
	if err != nil {
		return domain.Listing{}, err
	}
	if product == nil {
		return domain.Listing{}, domain.ErrInvalidProduct
	}

	now := time.Now().UTC()
	listing := domain.Listing{
		ID:          s.genID.Generate(),
		SellerID:    sellerID,
		ProductID:   productID,
		ListedPrice: req.Price.Round(2),
		Status:      status,
		State:       lifecycle.StateActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Insert(ctx, s.db, &listing); err != nil {
		return domain.Listing{}, err
	}

	s.recordAudit(ctx, "listing.create", listing.ID, map[string]any{
		"seller_id":  listing.SellerID.String(),
		"product_id": listing.ProductID.String(),
		"price":      listing.ListedPrice.StringFixed(2),
	})

	return listing, nil
}

func (s *Service) List(ctx context.Context, req domain.ListListingRequest) (domain.ListListingResponse, error) {
	page := req.Page.Normalize()

	filter := domain.ListFilter{
		Limit:  page.Limit,
		Offset: page.Offset,
	}
	if strings.TrimSpace(req.SellerID) != "" {
		id, err := parseID(req.SellerID)
		if err != nil {
			return domain.ListListingResponse{}, domain.ErrInvalidSeller
		}
		filter.SellerID = id
	}
	if strings.TrimSpace(req.ProductID) != "" {
		id, err := parseID(req.ProductID)
		if err != nil {
			return domain.ListListingResponse{}, domain.ErrInvalidProduct
		}
		filter.ProductID = id
	}
	if status := strings.ToUpper(strings.TrimSpace(req.Status)); status != "" {
		switch domain.ListingStatus(status) {
		case domain.StatusActive, domain.StatusInactive:
			filter.Status = domain.ListingStatus(status)
		default:
			return domain.ListListingResponse{}, domain.ErrInvalidStatus
		}
	}

	items, total, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListListingResponse{}, err
	}

	listings := make([]domain.Listing, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		listings = append(listings, *item)
	}

	return domain.ListListingResponse{
		PageInfo: pagination.BuildPageInfo(page, total),
		Listings: listings,
	}, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Listing, error) {
	listingID, err := parseID(id)
	if err != nil {
		return domain.Listing{}, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, listingID, false)
	if err != nil {
		return domain.Listing{}, err
	}
	if item == nil {
		return domain.Listing{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) UpdatePrice(ctx context.Context, req domain.UpdatePriceRequest) (domain.Listing, error) {
	listingID, err := parseID(req.ID)
	if err != nil {
		return domain.Listing{}, domain.ErrInvalidID
	}
	if req.Price.LessThanOrEqual(decimal.Zero) {
		return domain.Listing{}, domain.ErrInvalidPrice
	}

	var listing domain.Listing
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByID(ctx, tx, listingID, true)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrNotFound
		}

		existing.ListedPrice = req.Price.Round(2)
		existing.UpdatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, tx, existing); err != nil {
			return err
		}
		listing = *existing
		return nil
	})
	if err != nil {
		return domain.Listing{}, err
	}

	s.recordAudit(ctx, "listing.update_price", listing.ID, map[string]any{
		"price": listing.ListedPrice.StringFixed(2),
	})

	return listing, nil
}

func (s *Service) SetStatus(ctx context.Context, req domain.SetStatusRequest) (domain.Listing, error) {
	listingID, err := parseID(req.ID)
	if err != nil {
		return domain.Listing{}, domain.ErrInvalidID
	}

	status := domain.ListingStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	switch status {
	case domain.StatusActive, domain.StatusInactive:
	default:
		return domain.Listing{}, domain.ErrInvalidStatus
	}

	var listing domain.Listing
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByID(ctx, tx, listingID, true)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrNotFound
		}

		existing.Status = status
		existing.UpdatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, tx, existing); err != nil {
			return err
		}
		listing = *existing
		return nil
	})
	if err != nil {
		return domain.Listing{}, err
	}

	s.recordAudit(ctx, "listing.set_status", listing.ID, map[string]any{
		"status": string(listing.Status),
	})

	return listing, nil
}

func (s *Service) recordAudit(ctx context.Context, action string, listingID snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	targetID := listingID.String()
	_ = s.auditSvc.Record(ctx, "", nil, action, "listing", &targetID, metadata)
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
