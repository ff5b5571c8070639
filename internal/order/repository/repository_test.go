package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/openagora/agora/internal/order/domain"
	"github.com/openagora/agora/pkg/db"
	"github.com/openagora/agora/pkg/db/lifecycle"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setup(t *testing.T) (*gorm.DB, *snowflake.Node, domain.Repository) {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Order{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return conn, node, Provide()
}

func insertOrder(t *testing.T, conn *gorm.DB, node *snowflake.Node, repo domain.Repository, amount string, status domain.OrderStatus, deliveredAt *time.Time, onTime *bool) {
	t.Helper()
	now := time.Now().UTC()
	err := repo.Insert(context.Background(), conn, &domain.Order{
		ID:          node.Generate(),
		SellerID:    42,
		BuyerLabel:  "household-a",
		TotalAmount: decimal.RequireFromString(amount),
		Status:      status,
		DeliveredAt: deliveredAt,
		OnTime:      onTime,
		State:       lifecycle.StateActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	require.NoError(t, err)
}

func boolPtr(v bool) *bool { return &v }

func TestSalesTotalsCountsDeliveredOnly(t *testing.T) {
	conn, node, repo := setup(t)
	ctx := context.Background()

	dayStart := time.Date(2026, time.May, 20, 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC)

	today := dayStart.Add(11 * time.Hour)
	earlierThisMonth := monthStart.Add(48 * time.Hour)

	insertOrder(t, conn, node, repo, "100.50", domain.StatusDelivered, &today, boolPtr(true))
	insertOrder(t, conn, node, repo, "49.50", domain.StatusDelivered, &earlierThisMonth, boolPtr(false))
	// Pending and cancelled orders never count as sales.
	insertOrder(t, conn, node, repo, "500.00", domain.StatusPending, nil, nil)
	insertOrder(t, conn, node, repo, "300.00", domain.StatusCancelled, nil, nil)

	totals, err := repo.SalesTotals(ctx, conn, dayStart, monthStart)
	require.NoError(t, err)
	require.Equal(t, "100.50", totals.TodaySales.StringFixed(2))
	require.Equal(t, "150.00", totals.MonthSales.StringFixed(2))
	require.EqualValues(t, 2, totals.MonthOrderCount)

	fulfillment, err := repo.FulfillmentCounts(ctx, conn)
	require.NoError(t, err)
	require.EqualValues(t, 2, fulfillment.Delivered)
	require.EqualValues(t, 1, fulfillment.OnTime)
}

func TestSalesTotalsEmptyTablesAreZero(t *testing.T) {
	conn, _, repo := setup(t)
	ctx := context.Background()

	now := time.Now().UTC()
	totals, err := repo.SalesTotals(ctx, conn, now, now)
	require.NoError(t, err)
	require.True(t, totals.TodaySales.IsZero())
	require.True(t, totals.MonthSales.IsZero())
	require.Zero(t, totals.MonthOrderCount)

	fulfillment, err := repo.FulfillmentCounts(ctx, conn)
	require.NoError(t, err)
	require.Zero(t, fulfillment.Delivered)
	require.Zero(t, fulfillment.OnTime)
}
