package service

import (
	"context"
	"database/sql"
	"math"
	"time"

	"github.com/bwmarrin/snowflake"
	alertdomain "github.com/openagora/agora/internal/alert/domain"
	"github.com/openagora/agora/internal/cache"
	compliancedomain "github.com/openagora/agora/internal/compliance/domain"
	"github.com/openagora/agora/internal/config"
	"github.com/openagora/agora/internal/dashboard/domain"
	"github.com/openagora/agora/internal/dashboard/health"
	inventorydomain "github.com/openagora/agora/internal/inventory/domain"
	listingdomain "github.com/openagora/agora/internal/listing/domain"
	"github.com/openagora/agora/internal/observability/metrics"
	opasdomain "github.com/openagora/agora/internal/opas/domain"
	orderdomain "github.com/openagora/agora/internal/order/domain"
	pricingdomain "github.com/openagora/agora/internal/pricing/domain"
	sellerdomain "github.com/openagora/agora/internal/seller/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	SellerRepo    sellerdomain.Repository
	ListingRepo   listingdomain.Repository
	OrderRepo     orderdomain.Repository
	PricingRepo   pricingdomain.Repository
	InventoryRepo inventorydomain.Repository
	OpasRepo      opasdomain.Repository
	AlertRepo     alertdomain.Repository
	Regulation    *config.RegulationHolder
	Cache         cache.SnapshotCache
	Oversight     domain.Publisher `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	sellerRepo    sellerdomain.Repository
	listingRepo   listingdomain.Repository
	orderRepo     orderdomain.Repository
	pricingRepo   pricingdomain.Repository
	inventoryRepo inventorydomain.Repository
	opasRepo      opasdomain.Repository
	alertRepo     alertdomain.Repository
	regulation    *config.RegulationHolder
	cache         cache.SnapshotCache
	oversight     domain.Publisher
	metrics       *metrics.EngineMetrics
}

func New(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("dashboard.service"),
		sellerRepo:    p.SellerRepo,
		listingRepo:   p.ListingRepo,
		orderRepo:     p.OrderRepo,
		pricingRepo:   p.PricingRepo,
		inventoryRepo: p.InventoryRepo,
		opasRepo:      p.OpasRepo,
		alertRepo:     p.AlertRepo,
		regulation:    p.Regulation,
		cache:         p.Cache,
		oversight:     p.Oversight,
		metrics:       metrics.Engine(),
	}
}

func (s *Service) GetStats(ctx context.Context) (domain.Snapshot, error) {
	if snapshot, ok := s.cache.Get(); ok {
		s.metrics.IncSnapshotBuild("cache")
		return snapshot, nil
	}

	start := time.Now()
	snapshot, err := s.build(ctx)
	if err != nil {
		return domain.Snapshot{}, err
	}
	s.metrics.IncSnapshotBuild("fresh")
	s.metrics.ObserveSnapshotDuration(time.Since(start))

	s.cache.Set(snapshot, s.regulation.Get().SnapshotTTL())
	s.publishOversight(ctx, snapshot)
	return snapshot, nil
}

// build recomputes the snapshot wholesale. Every group reads through one
// transaction so sub-totals come from the same logical instant; any group
// error aborts the whole snapshot rather than returning a partial one.
func (s *Service) build(ctx context.Context) (domain.Snapshot, error) {
	now := time.Now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	snapshot := domain.Snapshot{Timestamp: now}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sellers, err := s.sellerGroup(ctx, tx, monthStart)
		if err != nil {
			return &domain.AggregationFailure{Group: "seller_metrics", Err: err}
		}
		snapshot.SellerMetrics = sellers

		market, err := s.marketGroup(ctx, tx, dayStart, monthStart)
		if err != nil {
			return &domain.AggregationFailure{Group: "market_metrics", Err: err}
		}
		snapshot.MarketMetrics = market

		opas, err := s.opasGroup(ctx, tx, now, monthStart)
		if err != nil {
			return &domain.AggregationFailure{Group: "opas_metrics", Err: err}
		}
		snapshot.OpasMetrics = opas

		compliance, err := s.complianceGroup(ctx, tx, now)
		if err != nil {
			return &domain.AggregationFailure{Group: "price_compliance", Err: err}
		}
		snapshot.PriceCompliance = compliance

		alerts, err := s.alertGroup(ctx, tx)
		if err != nil {
			return &domain.AggregationFailure{Group: "alerts", Err: err}
		}
		snapshot.Alerts = alerts

		score, err := s.healthScore(ctx, tx, compliance.ComplianceRate)
		if err != nil {
			return &domain.AggregationFailure{Group: "health", Err: err}
		}
		snapshot.HealthScore = score
		return nil
	}, s.txOptions()...)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return snapshot, nil
}

// txOptions pins the aggregation reads to one repeatable-read snapshot on
// engines that support it. The sqlite driver rejects isolation options and
// is single-writer already.
func (s *Service) txOptions() []*sql.TxOptions {
	if s.db.Name() == "sqlite" {
		return nil
	}
	return []*sql.TxOptions{{Isolation: sql.LevelRepeatableRead, ReadOnly: true}}
}

func (s *Service) sellerGroup(ctx context.Context, tx *gorm.DB, monthStart time.Time) (domain.SellerMetrics, error) {
	counts, err := s.sellerRepo.CountByStatus(ctx, tx)
	if err != nil {
		return domain.SellerMetrics{}, err
	}
	newThisMonth, err := s.sellerRepo.CountNewSince(ctx, tx, monthStart)
	if err != nil {
		return domain.SellerMetrics{}, err
	}
	approvals, err := s.sellerRepo.CountApprovals(ctx, tx)
	if err != nil {
		return domain.SellerMetrics{}, err
	}

	var rate float64
	if decided := approvals.Approved + approvals.Rejected; decided > 0 {
		rate = roundRate(float64(approvals.Approved) / float64(decided) * 100)
	}
	return domain.SellerMetrics{
		Total:        counts.Total,
		Pending:      counts.Pending,
		Active:       counts.Active,
		Suspended:    counts.Suspended,
		NewThisMonth: newThisMonth,
		ApprovalRate: rate,
	}, nil
}

func (s *Service) marketGroup(ctx context.Context, tx *gorm.DB, dayStart, monthStart time.Time) (domain.MarketMetrics, error) {
	active, err := s.listingRepo.CountActive(ctx, tx)
	if err != nil {
		return domain.MarketMetrics{}, err
	}
	sales, err := s.orderRepo.SalesTotals(ctx, tx, dayStart, monthStart)
	if err != nil {
		return domain.MarketMetrics{}, err
	}

	avg := decimal.Zero
	if sales.MonthOrderCount > 0 {
		avg = sales.MonthSales.Div(decimal.NewFromInt(sales.MonthOrderCount)).Round(2)
	}
	return domain.MarketMetrics{
		ActiveListings:   active,
		SalesToday:       sales.TodaySales,
		SalesMonthToDate: sales.MonthSales,
		AvgTransaction:   avg,
		AvgPriceChange:   decimal.Zero,
	}, nil
}

func (s *Service) opasGroup(ctx context.Context, tx *gorm.DB, now, monthStart time.Time) (domain.OpasMetrics, error) {
	pending, err := s.opasRepo.CountPending(ctx, tx)
	if err != nil {
		return domain.OpasMetrics{}, err
	}
	approved, err := s.opasRepo.CountApprovedSince(ctx, tx, monthStart)
	if err != nil {
		return domain.OpasMetrics{}, err
	}
	stock, err := s.inventoryRepo.StockSummary(ctx, tx)
	if err != nil {
		return domain.OpasMetrics{}, err
	}
	lowStock, err := s.inventoryRepo.CountLowStock(ctx, tx)
	if err != nil {
		return domain.OpasMetrics{}, err
	}
	expiring, err := s.inventoryRepo.CountExpiring(ctx, tx, now.Add(s.regulation.Get().ExpiryWindow()))
	if err != nil {
		return domain.OpasMetrics{}, err
	}

	return domain.OpasMetrics{
		PendingSubmissions:  pending,
		ApprovedThisMonth:   approved,
		TotalQuantityOnHand: stock.TotalOnHand,
		LowStockBatches:     lowStock,
		ExpiringBatches:     expiring,
		TotalInventoryValue: stock.TotalValue,
	}, nil
}

// complianceGroup classifies every active listing whose product has a
// ceiling in force, the same surface the violation scan walks.
func (s *Service) complianceGroup(ctx context.Context, tx *gorm.DB, now time.Time) (domain.PriceCompliance, error) {
	listings, err := s.listingRepo.ListActive(ctx, tx)
	if err != nil {
		return domain.PriceCompliance{}, err
	}
	ceilings, err := s.pricingRepo.EffectiveCeilings(ctx, tx, now)
	if err != nil {
		return domain.PriceCompliance{}, err
	}

	inForce := make(map[snowflake.ID]pricingdomain.PriceCeiling, len(ceilings))
	for _, ceiling := range ceilings {
		inForce[ceiling.ProductID] = ceiling
	}

	var result domain.PriceCompliance
	for _, listing := range listings {
		if listing == nil {
			continue
		}
		ceiling, regulated := inForce[listing.ProductID]
		if !regulated {
			continue
		}
		if compliancedomain.Decide(listing.ListedPrice, &ceiling.Amount).Violated() {
			result.ViolatingListings++
		} else {
			result.CompliantListings++
		}
	}
	if monitored := result.CompliantListings + result.ViolatingListings; monitored > 0 {
		result.ComplianceRate = roundRate(float64(result.CompliantListings) / float64(monitored) * 100)
	}
	return result, nil
}

func (s *Service) alertGroup(ctx context.Context, tx *gorm.DB) (domain.AlertMetrics, error) {
	counts, err := s.alertRepo.OpenCountsByCategory(ctx, tx)
	if err != nil {
		return domain.AlertMetrics{}, err
	}

	open := make(map[string]int64, len(counts))
	var total int64
	for category, n := range counts {
		open[string(category)] = n
		total += n
	}
	return domain.AlertMetrics{OpenByCategory: open, TotalOpen: total}, nil
}

func (s *Service) healthScore(ctx context.Context, tx *gorm.DB, complianceRate float64) (int, error) {
	avgRating, rated, err := s.sellerRepo.AverageRating(ctx, tx)
	if err != nil {
		return 0, err
	}
	fulfillment, err := s.orderRepo.FulfillmentCounts(ctx, tx)
	if err != nil {
		return 0, err
	}

	return health.Score(health.Inputs{
		Compliance:   complianceRate,
		Satisfaction: health.Satisfaction(avgRating, rated, s.regulation.Get().SatisfactionFallback),
		Fulfillment:  health.Fulfillment(fulfillment.Delivered, fulfillment.OnTime),
	}), nil
}

func (s *Service) publishOversight(ctx context.Context, snapshot domain.Snapshot) {
	if s.oversight == nil {
		return
	}
	if err := s.oversight.Publish(ctx, snapshot); err != nil {
		s.log.Warn("oversight publish failed", zap.Error(err))
	}
}

func roundRate(rate float64) float64 {
	return math.Round(rate*100) / 100
}
