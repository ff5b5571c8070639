package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	alertdomain "github.com/openagora/agora/internal/alert/domain"
	alertrepository "github.com/openagora/agora/internal/alert/repository"
	alertservice "github.com/openagora/agora/internal/alert/service"
	"github.com/openagora/agora/internal/seller/domain"
	"github.com/openagora/agora/internal/seller/repository"
	"github.com/openagora/agora/pkg/db"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (domain.Service, alertdomain.Service) {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Seller{}, &alertdomain.Alert{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	alertSvc := alertservice.New(alertservice.Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  alertrepository.Provide(),
	})

	svc := New(Params{
		DB:       conn,
		Log:      zap.NewNop(),
		GenID:    node,
		Repo:     repository.Provide(),
		AlertSvc: alertSvc,
	})

	return svc, alertSvc
}

func createSeller(t *testing.T, svc domain.Service, businessName string) domain.Seller {
	t.Helper()
	seller, err := svc.Create(context.Background(), domain.CreateSellerRequest{
		BusinessName: businessName,
		OwnerName:    "Owner",
		Email:        businessName + "@market.test",
	})
	require.NoError(t, err)
	return seller
}

func TestCreateStartsPending(t *testing.T) {
	svc, _ := newTestService(t)

	seller := createSeller(t, svc, "fresh-goods")
	require.Equal(t, domain.StatusPending, seller.Status)
	require.Nil(t, seller.ApprovedAt)
	require.False(t, seller.AverageRating.Valid)

	_, err := svc.Create(context.Background(), domain.CreateSellerRequest{
		BusinessName: "",
		OwnerName:    "Owner",
		Email:        "x@market.test",
	})
	require.ErrorIs(t, err, domain.ErrInvalidBusinessName)

	_, err = svc.Create(context.Background(), domain.CreateSellerRequest{
		BusinessName: "no-email",
		OwnerName:    "Owner",
		Email:        "not-an-email",
	})
	require.ErrorIs(t, err, domain.ErrInvalidEmail)
}

func TestModerationStatusMachine(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	seller := createSeller(t, svc, "status-machine")

	// Suspension requires an ACTIVE seller.
	_, err := svc.Suspend(ctx, domain.ModerationRequest{ID: seller.ID.String()})
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	approved, err := svc.Approve(ctx, domain.ModerationRequest{ID: seller.ID.String()})
	require.NoError(t, err)
	require.Equal(t, domain.StatusActive, approved.Status)
	require.NotNil(t, approved.ApprovedAt)

	// A second approval must fail, the seller already left PENDING.
	_, err = svc.Approve(ctx, domain.ModerationRequest{ID: seller.ID.String()})
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	suspended, err := svc.Suspend(ctx, domain.ModerationRequest{ID: seller.ID.String(), Reason: "fake goods"})
	require.NoError(t, err)
	require.Equal(t, domain.StatusSuspended, suspended.Status)
	require.NotNil(t, suspended.SuspendedAt)

	reactivated, err := svc.Reactivate(ctx, domain.ModerationRequest{ID: seller.ID.String()})
	require.NoError(t, err)
	require.Equal(t, domain.StatusActive, reactivated.Status)
	// Approval timestamp survives the suspension round-trip.
	require.NotNil(t, reactivated.ApprovedAt)
}

func TestRejectIsTerminal(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	seller := createSeller(t, svc, "rejected-inc")

	rejected, err := svc.Reject(ctx, domain.ModerationRequest{ID: seller.ID.String(), Reason: "missing permits"})
	require.NoError(t, err)
	require.Equal(t, domain.StatusRejected, rejected.Status)
	require.NotNil(t, rejected.RejectedAt)

	_, err = svc.Approve(ctx, domain.ModerationRequest{ID: seller.ID.String()})
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = svc.Reactivate(ctx, domain.ModerationRequest{ID: seller.ID.String()})
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestSuspendRaisesSellerIssueAlert(t *testing.T) {
	svc, alertSvc := newTestService(t)
	ctx := context.Background()

	seller := createSeller(t, svc, "hot-water")
	_, err := svc.Approve(ctx, domain.ModerationRequest{ID: seller.ID.String()})
	require.NoError(t, err)

	_, err = svc.Suspend(ctx, domain.ModerationRequest{ID: seller.ID.String(), Reason: "price gouging"})
	require.NoError(t, err)

	alerts, err := alertSvc.List(ctx, alertdomain.ListAlertRequest{Category: string(alertdomain.CategorySellerIssue)})
	require.NoError(t, err)
	require.Len(t, alerts.Alerts, 1)
	require.Equal(t, alertdomain.StatusOpen, alerts.Alerts[0].Status)
	require.NotNil(t, alerts.Alerts[0].SellerID)
	require.Equal(t, seller.ID, *alerts.Alerts[0].SellerID)
	require.Contains(t, alerts.Alerts[0].Message, "price gouging")
}

func TestListFiltersByStatusAndQuery(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first := createSeller(t, svc, "alpha-traders")
	createSeller(t, svc, "beta-foods")

	_, err := svc.Approve(ctx, domain.ModerationRequest{ID: first.ID.String()})
	require.NoError(t, err)

	active, err := svc.List(ctx, domain.ListSellerRequest{Status: "active"})
	require.NoError(t, err)
	require.Len(t, active.Sellers, 1)
	require.Equal(t, "alpha-traders", active.Sellers[0].BusinessName)

	matched, err := svc.List(ctx, domain.ListSellerRequest{Query: "beta"})
	require.NoError(t, err)
	require.Len(t, matched.Sellers, 1)
	require.Equal(t, "beta-foods", matched.Sellers[0].BusinessName)

	_, err = svc.List(ctx, domain.ListSellerRequest{Status: "vip"})
	require.ErrorIs(t, err, domain.ErrInvalidStatus)

	_, err = svc.GetByID(ctx, domain.GetSellerRequest{ID: "123456789"})
	require.ErrorIs(t, err, domain.ErrNotFound)
}
