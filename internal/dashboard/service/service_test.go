package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	alertdomain "github.com/openagora/agora/internal/alert/domain"
	alertrepository "github.com/openagora/agora/internal/alert/repository"
	"github.com/openagora/agora/internal/cache"
	"github.com/openagora/agora/internal/clock"
	"github.com/openagora/agora/internal/config"
	"github.com/openagora/agora/internal/dashboard/domain"
	inventorydomain "github.com/openagora/agora/internal/inventory/domain"
	inventoryrepository "github.com/openagora/agora/internal/inventory/repository"
	listingdomain "github.com/openagora/agora/internal/listing/domain"
	listingrepository "github.com/openagora/agora/internal/listing/repository"
	opasdomain "github.com/openagora/agora/internal/opas/domain"
	opasrepository "github.com/openagora/agora/internal/opas/repository"
	orderdomain "github.com/openagora/agora/internal/order/domain"
	orderrepository "github.com/openagora/agora/internal/order/repository"
	pricingdomain "github.com/openagora/agora/internal/pricing/domain"
	pricingrepository "github.com/openagora/agora/internal/pricing/repository"
	productdomain "github.com/openagora/agora/internal/product/domain"
	sellerdomain "github.com/openagora/agora/internal/seller/domain"
	sellerrepository "github.com/openagora/agora/internal/seller/repository"
	"github.com/openagora/agora/pkg/db"
	"github.com/openagora/agora/pkg/db/lifecycle"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type capturingPublisher struct {
	published []domain.Snapshot
	fail      bool
}

func (p *capturingPublisher) Publish(_ context.Context, snapshot domain.Snapshot) error {
	if p.fail {
		return errors.New("sink unreachable")
	}
	p.published = append(p.published, snapshot)
	return nil
}

type fixture struct {
	svc  domain.Service
	conn *gorm.DB
	node *snowflake.Node
	clk  *clock.FakeClock
	pub  *capturingPublisher
	ctx  context.Context
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWith(t, config.DefaultRegulationConfig())
}

func newFixtureWith(t *testing.T, cfg config.RegulationConfig) *fixture {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&sellerdomain.Seller{},
		&productdomain.Product{},
		&listingdomain.Listing{},
		&orderdomain.Order{},
		&pricingdomain.PriceCeiling{},
		&inventorydomain.Batch{},
		&inventorydomain.Transaction{},
		&opasdomain.Submission{},
		&alertdomain.Alert{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	regulation, err := config.NewStaticRegulationHolder(cfg)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Now().UTC())
	pub := &capturingPublisher{}
	svc := New(Params{
		DB:            conn,
		Log:           zap.NewNop(),
		SellerRepo:    sellerrepository.Provide(),
		ListingRepo:   listingrepository.Provide(),
		OrderRepo:     orderrepository.Provide(),
		PricingRepo:   pricingrepository.Provide(),
		InventoryRepo: inventoryrepository.Provide(),
		OpasRepo:      opasrepository.Provide(),
		AlertRepo:     alertrepository.Provide(),
		Regulation:    regulation,
		Cache:         cache.NewSnapshotCacheWithClock(clk),
		Oversight:     pub,
	})

	return &fixture{svc: svc, conn: conn, node: node, clk: clk, pub: pub, ctx: context.Background()}
}

func (f *fixture) seedSeller(t *testing.T, name string, status sellerdomain.Status, createdAt time.Time, rating string) sellerdomain.Seller {
	t.Helper()
	seller := sellerdomain.Seller{
		ID:           f.node.Generate(),
		BusinessName: name,
		OwnerName:    "Owner of " + name,
		Email:        "owner@example.com",
		Status:       status,
		State:        lifecycle.StateActive,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
	decidedAt := createdAt.Add(time.Hour)
	switch status {
	case sellerdomain.StatusActive, sellerdomain.StatusSuspended:
		seller.ApprovedAt = &decidedAt
	case sellerdomain.StatusRejected:
		seller.RejectedAt = &decidedAt
	}
	if rating != "" {
		seller.AverageRating = decimal.NullDecimal{Decimal: decimal.RequireFromString(rating), Valid: true}
	}
	require.NoError(t, f.conn.Create(&seller).Error)
	return seller
}

func (f *fixture) seedProduct(t *testing.T, name, slug string) productdomain.Product {
	t.Helper()
	now := time.Now().UTC()
	product := productdomain.Product{
		ID:        f.node.Generate(),
		Name:      name,
		Slug:      slug,
		Category:  "STAPLES",
		Unit:      "kg",
		State:     lifecycle.StateActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, f.conn.Create(&product).Error)
	return product
}

func (f *fixture) seedListing(t *testing.T, sellerID, productID snowflake.ID, price string) {
	t.Helper()
	now := time.Now().UTC()
	listing := listingdomain.Listing{
		ID:          f.node.Generate(),
		SellerID:    sellerID,
		ProductID:   productID,
		ListedPrice: decimal.RequireFromString(price),
		Status:      listingdomain.StatusActive,
		State:       lifecycle.StateActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, f.conn.Create(&listing).Error)
}

func (f *fixture) seedCeiling(t *testing.T, productID snowflake.ID, amount string, effectiveFrom time.Time) {
	t.Helper()
	ceiling := pricingdomain.PriceCeiling{
		ID:            f.node.Generate(),
		ProductID:     productID,
		Amount:        decimal.RequireFromString(amount),
		EffectiveFrom: effectiveFrom,
		CreatedBy:     f.node.Generate(),
		State:         lifecycle.StateActive,
		CreatedAt:     effectiveFrom,
	}
	require.NoError(t, f.conn.Create(&ceiling).Error)
}

func (f *fixture) seedDeliveredOrder(t *testing.T, sellerID snowflake.ID, amount string, deliveredAt time.Time, onTime bool) {
	t.Helper()
	order := orderdomain.Order{
		ID:          f.node.Generate(),
		SellerID:    sellerID,
		BuyerLabel:  "walk-in",
		TotalAmount: decimal.RequireFromString(amount),
		Status:      orderdomain.StatusDelivered,
		DeliveredAt: &deliveredAt,
		OnTime:      &onTime,
		State:       lifecycle.StateActive,
		CreatedAt:   deliveredAt.Add(-24 * time.Hour),
		UpdatedAt:   deliveredAt,
	}
	require.NoError(t, f.conn.Create(&order).Error)
}

func (f *fixture) seedBatch(t *testing.T, productID snowflake.ID, onHand int64, price string, expiresAt time.Time, threshold int64) {
	t.Helper()
	now := time.Now().UTC()
	batch := inventorydomain.Batch{
		ID:                f.node.Generate(),
		ProductID:         productID,
		QuantityReceived:  onHand,
		QuantityOnHand:    onHand,
		UnitPrice:         decimal.RequireFromString(price),
		ReceivedAt:        now.Add(-48 * time.Hour),
		ExpiresAt:         expiresAt,
		LowStockThreshold: threshold,
		State:             lifecycle.StateActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	require.NoError(t, f.conn.Create(&batch).Error)
}

func (f *fixture) seedSubmission(t *testing.T, sellerID, productID snowflake.ID, status opasdomain.Status, decidedAt *time.Time) {
	t.Helper()
	now := time.Now().UTC()
	submission := opasdomain.Submission{
		ID:        f.node.Generate(),
		SellerID:  sellerID,
		ProductID: productID,
		Quantity:  10,
		UnitPrice: decimal.RequireFromString("2.00"),
		ExpiresAt: now.AddDate(0, 0, 30),
		Status:    status,
		DecidedAt: decidedAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, f.conn.Create(&submission).Error)
}

func (f *fixture) seedOpenAlert(t *testing.T, category alertdomain.Category, key string) {
	t.Helper()
	now := time.Now().UTC()
	alert := alertdomain.Alert{
		ID:        f.node.Generate(),
		Category:  category,
		Severity:  alertdomain.SeverityWarning,
		Message:   "seeded",
		DedupeKey: key,
		Status:    alertdomain.StatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, f.conn.Create(&alert).Error)
}

func TestEmptyDatabaseSnapshot(t *testing.T) {
	f := newFixture(t)

	snapshot, err := f.svc.GetStats(f.ctx)
	require.NoError(t, err)

	require.False(t, snapshot.Timestamp.IsZero())
	require.Zero(t, snapshot.SellerMetrics.Total)
	require.Zero(t, snapshot.SellerMetrics.ApprovalRate)
	require.Zero(t, snapshot.MarketMetrics.ActiveListings)
	require.True(t, snapshot.MarketMetrics.SalesToday.IsZero())
	require.True(t, snapshot.MarketMetrics.AvgTransaction.IsZero())
	require.Zero(t, snapshot.OpasMetrics.PendingSubmissions)
	require.True(t, snapshot.OpasMetrics.TotalInventoryValue.IsZero())
	require.Zero(t, snapshot.PriceCompliance.ComplianceRate)
	require.Empty(t, snapshot.Alerts.OpenByCategory)
	require.Zero(t, snapshot.Alerts.TotalOpen)

	// Only the satisfaction fallback contributes: round(85 * 0.3) = 26.
	require.Equal(t, 26, snapshot.HealthScore)
}

func TestSnapshotAggregatesAllGroups(t *testing.T) {
	f := newFixture(t)
	now := time.Now().UTC()
	older := now.AddDate(0, -2, 0)

	makmur := f.seedSeller(t, "Toko Makmur", sellerdomain.StatusActive, now, "4.00")
	sari := f.seedSeller(t, "Warung Sari", sellerdomain.StatusActive, now, "5.00")
	f.seedSeller(t, "Kios Baru", sellerdomain.StatusPending, older, "")
	f.seedSeller(t, "Lapak Lama", sellerdomain.StatusSuspended, older, "")
	f.seedSeller(t, "Dagang Tutup", sellerdomain.StatusRejected, older, "")

	rice := f.seedProduct(t, "Rice Premium", "rice-premium")
	salt := f.seedProduct(t, "Salt Coarse", "salt-coarse")

	f.seedCeiling(t, rice.ID, "100.00", now.Add(-time.Hour))
	f.seedListing(t, makmur.ID, rice.ID, "90.00")
	f.seedListing(t, sari.ID, rice.ID, "120.00")
	f.seedListing(t, makmur.ID, salt.ID, "50.00")

	f.seedDeliveredOrder(t, makmur.ID, "100.00", now, true)
	f.seedDeliveredOrder(t, makmur.ID, "50.00", now, true)
	f.seedDeliveredOrder(t, sari.ID, "40.00", now.AddDate(0, 0, -40), false)

	f.seedSubmission(t, makmur.ID, rice.ID, opasdomain.StatusPending, nil)
	f.seedSubmission(t, sari.ID, rice.ID, opasdomain.StatusPending, nil)
	f.seedSubmission(t, makmur.ID, salt.ID, opasdomain.StatusApproved, &now)

	f.seedBatch(t, rice.ID, 100, "2.00", now.AddDate(0, 0, 30), 10)
	f.seedBatch(t, salt.ID, 5, "3.00", now.AddDate(0, 0, 30), 10)
	f.seedBatch(t, rice.ID, 50, "2.50", now.AddDate(0, 0, 3), 10)

	f.seedOpenAlert(t, alertdomain.CategoryLowStock, "low_stock:seed")
	f.seedOpenAlert(t, alertdomain.CategoryExpiring, "expiring:seed")

	snapshot, err := f.svc.GetStats(f.ctx)
	require.NoError(t, err)

	sellers := snapshot.SellerMetrics
	require.Equal(t, int64(5), sellers.Total)
	require.Equal(t, int64(1), sellers.Pending)
	require.Equal(t, int64(2), sellers.Active)
	require.Equal(t, int64(1), sellers.Suspended)
	require.Equal(t, int64(2), sellers.NewThisMonth)
	// 3 approved (two active, one suspended) out of 4 decided.
	require.Equal(t, 75.0, sellers.ApprovalRate)

	market := snapshot.MarketMetrics
	require.Equal(t, int64(3), market.ActiveListings)
	require.Equal(t, "150.00", market.SalesToday.StringFixed(2))
	require.Equal(t, "150.00", market.SalesMonthToDate.StringFixed(2))
	require.Equal(t, "75.00", market.AvgTransaction.StringFixed(2))
	require.True(t, market.AvgPriceChange.IsZero())

	opas := snapshot.OpasMetrics
	require.Equal(t, int64(2), opas.PendingSubmissions)
	require.Equal(t, int64(1), opas.ApprovedThisMonth)
	require.Equal(t, int64(155), opas.TotalQuantityOnHand)
	require.Equal(t, int64(1), opas.LowStockBatches)
	require.Equal(t, int64(1), opas.ExpiringBatches)
	require.Equal(t, "340.00", opas.TotalInventoryValue.StringFixed(2))

	compliance := snapshot.PriceCompliance
	require.Equal(t, int64(1), compliance.CompliantListings)
	require.Equal(t, int64(1), compliance.ViolatingListings)
	require.Equal(t, 50.0, compliance.ComplianceRate)

	require.Equal(t, int64(2), snapshot.Alerts.TotalOpen)
	require.Equal(t, map[string]int64{
		"LOW_STOCK": 1,
		"EXPIRING":  1,
	}, snapshot.Alerts.OpenByCategory)

	// compliance 50, satisfaction avg(4,5)*20 = 90, fulfillment 2/3 on time:
	// round(0.4*50 + 0.3*90 + 0.3*66.667) = 67.
	require.Equal(t, 67, snapshot.HealthScore)
}

func TestSnapshotServedFromCacheWithinTTL(t *testing.T) {
	f := newFixture(t)
	now := time.Now().UTC()

	f.seedSeller(t, "Toko Makmur", sellerdomain.StatusActive, now, "")

	first, err := f.svc.GetStats(f.ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), first.SellerMetrics.Total)

	f.seedSeller(t, "Warung Sari", sellerdomain.StatusActive, now, "")

	cached, err := f.svc.GetStats(f.ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), cached.SellerMetrics.Total, "inside the TTL the stale snapshot is served")
	require.Equal(t, first.Timestamp, cached.Timestamp)

	f.clk.Advance(31 * time.Second)

	fresh, err := f.svc.GetStats(f.ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), fresh.SellerMetrics.Total, "past the TTL the snapshot is rebuilt")
}

func TestZeroTTLDisablesSnapshotCache(t *testing.T) {
	cfg := config.DefaultRegulationConfig()
	cfg.SnapshotTTLSeconds = 0
	f := newFixtureWith(t, cfg)

	_, err := f.svc.GetStats(f.ctx)
	require.NoError(t, err)

	f.seedSeller(t, "Toko Makmur", sellerdomain.StatusActive, time.Now().UTC(), "")

	fresh, err := f.svc.GetStats(f.ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), fresh.SellerMetrics.Total)
}

func TestFreshSnapshotsForwardToOversight(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GetStats(f.ctx)
	require.NoError(t, err)
	require.Len(t, f.pub.published, 1)

	_, err = f.svc.GetStats(f.ctx)
	require.NoError(t, err)
	require.Len(t, f.pub.published, 1, "cache hits are not republished")
}

func TestOversightFailureDoesNotFailSnapshot(t *testing.T) {
	f := newFixture(t)
	f.pub.fail = true

	snapshot, err := f.svc.GetStats(f.ctx)
	require.NoError(t, err)
	require.Equal(t, 26, snapshot.HealthScore)
}

func TestAggregationFailureNamesGroup(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.conn.Migrator().DropTable("orders"))

	_, err := f.svc.GetStats(f.ctx)
	require.Error(t, err)

	var failure *domain.AggregationFailure
	require.ErrorAs(t, err, &failure)
	require.Equal(t, "market_metrics", failure.Group)
}
