package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/openagora/agora/internal/adminctx"
	alertdomain "github.com/openagora/agora/internal/alert/domain"
	alertrepository "github.com/openagora/agora/internal/alert/repository"
	alertservice "github.com/openagora/agora/internal/alert/service"
	"github.com/openagora/agora/internal/config"
	inventorydomain "github.com/openagora/agora/internal/inventory/domain"
	inventoryrepository "github.com/openagora/agora/internal/inventory/repository"
	"github.com/openagora/agora/internal/opas/domain"
	"github.com/openagora/agora/internal/opas/repository"
	productdomain "github.com/openagora/agora/internal/product/domain"
	productrepository "github.com/openagora/agora/internal/product/repository"
	sellerdomain "github.com/openagora/agora/internal/seller/domain"
	sellerrepository "github.com/openagora/agora/internal/seller/repository"
	"github.com/openagora/agora/pkg/db"
	"github.com/openagora/agora/pkg/db/lifecycle"
	"github.com/openagora/agora/pkg/db/pagination"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc     domain.Service
	repo    domain.Repository
	alerts  alertdomain.Service
	conn    *gorm.DB
	node    *snowflake.Node
	ctx     context.Context
	actorID snowflake.ID
	seller  sellerdomain.Seller
	product productdomain.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&domain.Submission{},
		&inventorydomain.Batch{},
		&inventorydomain.Transaction{},
		&productdomain.Product{},
		&sellerdomain.Seller{},
		&alertdomain.Alert{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	regulation, err := config.NewStaticRegulationHolder(config.DefaultRegulationConfig())
	require.NoError(t, err)

	alerts := alertservice.New(alertservice.Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  alertrepository.Provide(),
	})

	repo := repository.Provide()
	svc := New(Params{
		DB:            conn,
		Log:           zap.NewNop(),
		GenID:         node,
		Repo:          repo,
		SellerRepo:    sellerrepository.Provide(),
		ProductRepo:   productrepository.Provide(),
		InventoryRepo: inventoryrepository.Provide(),
		Regulation:    regulation,
		AlertSvc:      alerts,
	})

	f := &fixture{svc: svc, repo: repo, alerts: alerts, conn: conn, node: node}
	f.seller = f.seedSeller(t, "Toko Makmur", sellerdomain.StatusActive)
	f.product = f.seedProduct(t, "Rice Premium", "rice-premium")
	f.actorID = node.Generate()
	f.ctx = adminctx.WithActor(context.Background(), adminctx.Actor{
		ID:       f.actorID,
		Email:    "officer@agora.gov",
		Role:     "INVENTORY_MANAGER",
		AuthKind: adminctx.AuthSession,
	})
	return f
}

func (f *fixture) seedSeller(t *testing.T, name string, status sellerdomain.Status) sellerdomain.Seller {
	t.Helper()
	now := time.Now().UTC()
	seller := sellerdomain.Seller{
		ID:           f.node.Generate(),
		BusinessName: name,
		OwnerName:    "Owner of " + name,
		Email:        "owner@example.com",
		Status:       status,
		State:        lifecycle.StateActive,
		CreatedAt:    now,
		UpdatedAt:    now,
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

func (f *fixture) submit(t *testing.T, quantity int64, price string, expiresAt time.Time) domain.Submission {
	t.Helper()
	submission, err := f.svc.Submit(f.ctx, domain.SubmitRequest{
		SellerID:  f.seller.ID.String(),
		ProductID: f.product.ID.String(),
		Quantity:  quantity,
		UnitPrice: decimal.RequireFromString(price),
		ExpiresAt: expiresAt,
	})
	require.NoError(t, err)
	return submission
}

func TestSubmitRecordsPendingOffer(t *testing.T) {
	f := newFixture(t)
	expiry := time.Now().UTC().AddDate(0, 0, 30)

	submission := f.submit(t, 100, "2.505", expiry)
	require.Equal(t, domain.StatusPending, submission.Status)
	require.Equal(t, "2.51", submission.UnitPrice.StringFixed(2))
	require.Nil(t, submission.DecidedBy)
	require.Nil(t, submission.DecidedAt)
	require.Nil(t, submission.BatchID)

	resp, err := f.svc.List(f.ctx, domain.ListSubmissionRequest{})
	require.NoError(t, err)
	require.EqualValues(t, 1, resp.Total)
	require.Equal(t, "Rice Premium", resp.Submissions[0].ProductName)
	require.Equal(t, "Toko Makmur", resp.Submissions[0].SellerName)
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture(t)
	future := time.Now().UTC().AddDate(0, 0, 30)
	price := decimal.RequireFromString("2.00")

	_, err := f.svc.Submit(f.ctx, domain.SubmitRequest{
		SellerID: "garbage", ProductID: f.product.ID.String(),
		Quantity: 10, UnitPrice: price, ExpiresAt: future,
	})
	require.ErrorIs(t, err, domain.ErrInvalidSeller)

	_, err = f.svc.Submit(f.ctx, domain.SubmitRequest{
		SellerID: f.node.Generate().String(), ProductID: f.product.ID.String(),
		Quantity: 10, UnitPrice: price, ExpiresAt: future,
	})
	require.ErrorIs(t, err, domain.ErrInvalidSeller)

	pending := f.seedSeller(t, "Warung Baru", sellerdomain.StatusPending)
	_, err = f.svc.Submit(f.ctx, domain.SubmitRequest{
		SellerID: pending.ID.String(), ProductID: f.product.ID.String(),
		Quantity: 10, UnitPrice: price, ExpiresAt: future,
	})
	require.ErrorIs(t, err, domain.ErrSellerNotActive)

	_, err = f.svc.Submit(f.ctx, domain.SubmitRequest{
		SellerID: f.seller.ID.String(), ProductID: f.node.Generate().String(),
		Quantity: 10, UnitPrice: price, ExpiresAt: future,
	})
	require.ErrorIs(t, err, domain.ErrInvalidProduct)

	_, err = f.svc.Submit(f.ctx, domain.SubmitRequest{
		SellerID: f.seller.ID.String(), ProductID: f.product.ID.String(),
		Quantity: 0, UnitPrice: price, ExpiresAt: future,
	})
	require.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = f.svc.Submit(f.ctx, domain.SubmitRequest{
		SellerID: f.seller.ID.String(), ProductID: f.product.ID.String(),
		Quantity: 10, ExpiresAt: future,
	})
	require.ErrorIs(t, err, domain.ErrInvalidPrice)

	_, err = f.svc.Submit(f.ctx, domain.SubmitRequest{
		SellerID: f.seller.ID.String(), ProductID: f.product.ID.String(),
		Quantity: 10, UnitPrice: price, ExpiresAt: time.Now().UTC().Add(-time.Hour),
	})
	require.ErrorIs(t, err, domain.ErrInvalidExpiry)
}

func TestApproveReceivesIntoInventory(t *testing.T) {
	f := newFixture(t)
	expiry := time.Now().UTC().AddDate(0, 0, 30)
	submission := f.submit(t, 100, "2.50", expiry)

	decided, err := f.svc.Approve(f.ctx, domain.DecideRequest{
		ID:   submission.ID.String(),
		Note: "meets quality bar",
	})
	require.NoError(t, err)
	require.Equal(t, domain.StatusApproved, decided.Status)
	require.NotNil(t, decided.DecidedBy)
	require.Equal(t, f.actorID.String(), *decided.DecidedBy)
	require.NotNil(t, decided.DecidedAt)
	require.NotNil(t, decided.DecisionNote)
	require.Equal(t, "meets quality bar", *decided.DecisionNote)
	require.NotNil(t, decided.BatchID)

	var batch inventorydomain.Batch
	require.NoError(t, f.conn.First(&batch, "id = ?", *decided.BatchID).Error)
	require.Equal(t, f.product.ID, batch.ProductID)
	require.EqualValues(t, 100, batch.QuantityReceived)
	require.EqualValues(t, 100, batch.QuantityOnHand)
	require.EqualValues(t, 0, batch.QuantityConsumed)
	require.Equal(t, "2.50", batch.UnitPrice.StringFixed(2))
	require.WithinDuration(t, expiry, batch.ExpiresAt, time.Second)
	require.EqualValues(t, 10, batch.LowStockThreshold)
	require.True(t, batch.Reconciles())

	var receipts []inventorydomain.Transaction
	require.NoError(t, f.conn.Find(&receipts, "batch_id = ?", batch.ID).Error)
	require.Len(t, receipts, 1)
	require.Equal(t, inventorydomain.TransactionReceipt, receipts[0].Type)
	require.EqualValues(t, 100, receipts[0].Quantity)
	require.True(t, receipts[0].IsFIFOCompliant)
	require.Equal(t, "opas_submission:"+submission.ID.String(), receipts[0].Reason)
	require.Equal(t, f.actorID, receipts[0].CreatedBy)
}

func TestDecisionsAreFinal(t *testing.T) {
	f := newFixture(t)
	future := time.Now().UTC().AddDate(0, 0, 30)

	approved := f.submit(t, 50, "2.00", future)
	_, err := f.svc.Approve(f.ctx, domain.DecideRequest{ID: approved.ID.String()})
	require.NoError(t, err)
	_, err = f.svc.Approve(f.ctx, domain.DecideRequest{ID: approved.ID.String()})
	require.ErrorIs(t, err, domain.ErrAlreadyDecided)
	_, err = f.svc.Reject(f.ctx, domain.DecideRequest{ID: approved.ID.String()})
	require.ErrorIs(t, err, domain.ErrAlreadyDecided)

	rejected := f.submit(t, 50, "2.00", future)
	_, err = f.svc.Reject(f.ctx, domain.DecideRequest{ID: rejected.ID.String()})
	require.NoError(t, err)
	_, err = f.svc.Approve(f.ctx, domain.DecideRequest{ID: rejected.ID.String()})
	require.ErrorIs(t, err, domain.ErrAlreadyDecided)

	_, err = f.svc.Approve(f.ctx, domain.DecideRequest{ID: f.node.Generate().String()})
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.svc.Reject(f.ctx, domain.DecideRequest{ID: "garbage"})
	require.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestRejectTouchesNoInventory(t *testing.T) {
	f := newFixture(t)
	submission := f.submit(t, 80, "3.00", time.Now().UTC().AddDate(0, 0, 20))

	decided, err := f.svc.Reject(f.ctx, domain.DecideRequest{
		ID:   submission.ID.String(),
		Note: "price above current ceiling",
	})
	require.NoError(t, err)
	require.Equal(t, domain.StatusRejected, decided.Status)
	require.NotNil(t, decided.DecidedBy)
	require.NotNil(t, decided.DecidedAt)
	require.Equal(t, "price above current ceiling", *decided.DecisionNote)
	require.Nil(t, decided.BatchID)

	var batchCount, trxCount int64
	require.NoError(t, f.conn.Model(&inventorydomain.Batch{}).Count(&batchCount).Error)
	require.NoError(t, f.conn.Model(&inventorydomain.Transaction{}).Count(&trxCount).Error)
	require.Zero(t, batchCount)
	require.Zero(t, trxCount)
}

func TestApproveExpiredOfferIsRefused(t *testing.T) {
	f := newFixture(t)
	now := time.Now().UTC()

	// Seeded directly: Submit would refuse a past expiry, but an offer can
	// go stale while it sits pending.
	stale := domain.Submission{
		ID:        f.node.Generate(),
		SellerID:  f.seller.ID,
		ProductID: f.product.ID,
		Quantity:  40,
		UnitPrice: decimal.RequireFromString("2.00"),
		ExpiresAt: now.Add(-time.Hour),
		Status:    domain.StatusPending,
		CreatedAt: now.Add(-48 * time.Hour),
		UpdatedAt: now.Add(-48 * time.Hour),
	}
	require.NoError(t, f.conn.Create(&stale).Error)

	_, err := f.svc.Approve(f.ctx, domain.DecideRequest{ID: stale.ID.String()})
	require.ErrorIs(t, err, domain.ErrOfferExpired)

	reloaded, err := f.repo.FindByID(f.ctx, f.conn, stale.ID, false)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, reloaded.Status)

	var batchCount int64
	require.NoError(t, f.conn.Model(&inventorydomain.Batch{}).Count(&batchCount).Error)
	require.Zero(t, batchCount)
}

func TestApproveShortDatedOfferRaisesAlerts(t *testing.T) {
	f := newFixture(t)

	// 5 units is under the default threshold of 10 and the goods expire
	// inside the 7 day window.
	submission := f.submit(t, 5, "4.00", time.Now().UTC().AddDate(0, 0, 3))
	_, err := f.svc.Approve(f.ctx, domain.DecideRequest{ID: submission.ID.String()})
	require.NoError(t, err)

	resp, err := f.alerts.List(f.ctx, alertdomain.ListAlertRequest{Status: "OPEN"})
	require.NoError(t, err)
	counts := map[alertdomain.Category]int{}
	for _, alert := range resp.Alerts {
		counts[alert.Category]++
	}
	require.Equal(t, 1, counts[alertdomain.CategoryLowStock])
	require.Equal(t, 1, counts[alertdomain.CategoryExpiring])
}

func TestListFiltersAndCounts(t *testing.T) {
	f := newFixture(t)
	future := time.Now().UTC().AddDate(0, 0, 30)
	other := f.seedSeller(t, "Warung Sejahtera", sellerdomain.StatusActive)
	oil := f.seedProduct(t, "Cooking Oil", "cooking-oil")

	first := f.submit(t, 100, "2.00", future)
	_, err := f.svc.Submit(f.ctx, domain.SubmitRequest{
		SellerID:  other.ID.String(),
		ProductID: oil.ID.String(),
		Quantity:  60,
		UnitPrice: decimal.RequireFromString("3.00"),
		ExpiresAt: future,
	})
	require.NoError(t, err)
	f.submit(t, 40, "2.20", future)

	_, err = f.svc.Approve(f.ctx, domain.DecideRequest{ID: first.ID.String()})
	require.NoError(t, err)

	resp, err := f.svc.List(f.ctx, domain.ListSubmissionRequest{Status: "pending"})
	require.NoError(t, err)
	require.EqualValues(t, 2, resp.Total)

	resp, err = f.svc.List(f.ctx, domain.ListSubmissionRequest{Status: "APPROVED"})
	require.NoError(t, err)
	require.EqualValues(t, 1, resp.Total)
	require.Equal(t, first.ID, resp.Submissions[0].ID)

	resp, err = f.svc.List(f.ctx, domain.ListSubmissionRequest{SellerID: other.ID.String()})
	require.NoError(t, err)
	require.EqualValues(t, 1, resp.Total)
	require.Equal(t, "Warung Sejahtera", resp.Submissions[0].SellerName)
	require.Equal(t, "Cooking Oil", resp.Submissions[0].ProductName)

	resp, err = f.svc.List(f.ctx, domain.ListSubmissionRequest{ProductID: f.product.ID.String()})
	require.NoError(t, err)
	require.EqualValues(t, 2, resp.Total)

	_, err = f.svc.List(f.ctx, domain.ListSubmissionRequest{Status: "SHELVED"})
	require.ErrorIs(t, err, domain.ErrInvalidStatus)

	resp, err = f.svc.List(f.ctx, domain.ListSubmissionRequest{Page: pagination.Page{Limit: 2}})
	require.NoError(t, err)
	require.Len(t, resp.Submissions, 2)
	require.True(t, resp.HasMore)

	pendingCount, err := f.repo.CountPending(f.ctx, f.conn)
	require.NoError(t, err)
	require.EqualValues(t, 2, pendingCount)

	approvedRecently, err := f.repo.CountApprovedSince(f.ctx, f.conn, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 1, approvedRecently)

	approvedLater, err := f.repo.CountApprovedSince(f.ctx, f.conn, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 0, approvedLater)
}
