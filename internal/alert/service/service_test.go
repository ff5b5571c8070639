package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/openagora/agora/internal/alert/domain"
	"github.com/openagora/agora/internal/alert/repository"
	"github.com/openagora/agora/pkg/db"
	"github.com/openagora/agora/pkg/db/pagination"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) domain.Service {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Alert{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})
}

func TestRaiseDeduplicatesOpenAlerts(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, created, err := svc.Raise(ctx, domain.RaiseRequest{
		Category:  domain.CategoryLowStock,
		Severity:  domain.SeverityWarning,
		Message:   "batch 42 under threshold",
		DedupeKey: "low_stock:42",
	})
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := svc.Raise(ctx, domain.RaiseRequest{
		Category:  domain.CategoryLowStock,
		Severity:  domain.SeverityCritical,
		Message:   "batch 42 still under threshold",
		DedupeKey: "low_stock:42",
	})
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.ID, second.ID)

	list, err := svc.List(ctx, domain.ListAlertRequest{})
	require.NoError(t, err)
	require.Len(t, list.Alerts, 1)
}

func TestRaiseValidatesInput(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.Raise(ctx, domain.RaiseRequest{
		Category:  "METEOR_STRIKE",
		Severity:  domain.SeverityInfo,
		Message:   "x",
		DedupeKey: "k",
	})
	require.ErrorIs(t, err, domain.ErrInvalidCategory)

	_, _, err = svc.Raise(ctx, domain.RaiseRequest{
		Category:  domain.CategoryExpiring,
		Severity:  "LOUD",
		Message:   "x",
		DedupeKey: "k",
	})
	require.ErrorIs(t, err, domain.ErrInvalidSeverity)

	_, _, err = svc.Raise(ctx, domain.RaiseRequest{
		Category:  domain.CategoryExpiring,
		Severity:  domain.SeverityInfo,
		Message:   "   ",
		DedupeKey: "k",
	})
	require.ErrorIs(t, err, domain.ErrInvalidMessage)

	_, _, err = svc.Raise(ctx, domain.RaiseRequest{
		Category:  domain.CategoryExpiring,
		Severity:  domain.SeverityInfo,
		Message:   "x",
		DedupeKey: "",
	})
	require.ErrorIs(t, err, domain.ErrInvalidDedupeKey)
}

func TestResolveReopensDedupeKey(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, created, err := svc.Raise(ctx, domain.RaiseRequest{
		Category:  domain.CategoryPriceViolation,
		Severity:  domain.SeverityCritical,
		Message:   "listing over ceiling",
		DedupeKey: "price_violation:7:9",
	})
	require.NoError(t, err)
	require.True(t, created)

	resolved, err := svc.Resolve(ctx, domain.ResolveRequest{
		ID:    first.ID.String(),
		Notes: "seller corrected price",
	})
	require.NoError(t, err)
	require.Equal(t, domain.StatusResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)
	require.NotNil(t, resolved.ResolvedNotes)

	_, err = svc.Resolve(ctx, domain.ResolveRequest{ID: first.ID.String()})
	require.ErrorIs(t, err, domain.ErrAlreadyResolved)

	// Once resolved, the same condition may open a fresh alert.
	_, created, err = svc.Raise(ctx, domain.RaiseRequest{
		Category:  domain.CategoryPriceViolation,
		Severity:  domain.SeverityCritical,
		Message:   "listing over ceiling again",
		DedupeKey: "price_violation:7:9",
	})
	require.NoError(t, err)
	require.True(t, created)
}

func TestListFiltersByStatusAndCategory(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	seed := []domain.RaiseRequest{
		{Category: domain.CategoryLowStock, Severity: domain.SeverityWarning, Message: "a", DedupeKey: "k1"},
		{Category: domain.CategoryExpiring, Severity: domain.SeverityInfo, Message: "b", DedupeKey: "k2"},
		{Category: domain.CategorySellerIssue, Severity: domain.SeverityCritical, Message: "c", DedupeKey: "k3"},
	}
	var last domain.Alert
	for _, req := range seed {
		alert, created, err := svc.Raise(ctx, req)
		require.NoError(t, err)
		require.True(t, created)
		last = alert
	}

	_, err := svc.Resolve(ctx, domain.ResolveRequest{ID: last.ID.String()})
	require.NoError(t, err)

	open, err := svc.List(ctx, domain.ListAlertRequest{Status: "open"})
	require.NoError(t, err)
	require.Len(t, open.Alerts, 2)
	require.EqualValues(t, 2, open.Total)

	expiring, err := svc.List(ctx, domain.ListAlertRequest{Category: "expiring"})
	require.NoError(t, err)
	require.Len(t, expiring.Alerts, 1)
	require.Equal(t, domain.CategoryExpiring, expiring.Alerts[0].Category)

	_, err = svc.List(ctx, domain.ListAlertRequest{Category: "bogus"})
	require.ErrorIs(t, err, domain.ErrInvalidCategory)

	paged, err := svc.List(ctx, domain.ListAlertRequest{Page: pagination.Page{Limit: 2}})
	require.NoError(t, err)
	require.Len(t, paged.Alerts, 2)
	require.True(t, paged.HasMore)
}
