package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/openagora/agora/internal/product/domain"
	"github.com/openagora/agora/internal/product/repository"
	"github.com/openagora/agora/pkg/db"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) domain.Service {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Product{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})
}

func TestCreateSlugifiesName(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	product, err := svc.Create(ctx, domain.CreateRequest{
		Name:     "Rice Premium 5kg",
		Category: "staple_food",
		Unit:     "sack",
	})
	require.NoError(t, err)
	require.Equal(t, "rice-premium-5kg", product.Slug)
	require.Equal(t, "STAPLE_FOOD", product.Category)

	_, err = svc.Create(ctx, domain.CreateRequest{
		Name:     "Rice Premium 5kg",
		Category: "staple_food",
		Unit:     "sack",
	})
	require.ErrorIs(t, err, domain.ErrSlugTaken)
}

func TestCreateValidatesFields(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateRequest{Name: " ", Category: "c", Unit: "u"})
	require.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Create(ctx, domain.CreateRequest{Name: "n", Category: "", Unit: "u"})
	require.ErrorIs(t, err, domain.ErrInvalidCategory)

	_, err = svc.Create(ctx, domain.CreateRequest{Name: "n", Category: "c", Unit: ""})
	require.ErrorIs(t, err, domain.ErrInvalidUnit)
}

func TestListAndGet(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	rice, err := svc.Create(ctx, domain.CreateRequest{Name: "Rice", Category: "staple_food", Unit: "kg"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.CreateRequest{Name: "Cooking Oil", Category: "staple_food", Unit: "liter"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.CreateRequest{Name: "Paracetamol", Category: "medicine", Unit: "box"})
	require.NoError(t, err)

	all, err := svc.List(ctx, domain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, all.Products, 3)
	require.EqualValues(t, 3, all.Total)

	staple, err := svc.List(ctx, domain.ListRequest{Category: "staple_food"})
	require.NoError(t, err)
	require.Len(t, staple.Products, 2)

	matched, err := svc.List(ctx, domain.ListRequest{Query: "oil"})
	require.NoError(t, err)
	require.Len(t, matched.Products, 1)
	require.Equal(t, "cooking-oil", matched.Products[0].Slug)

	got, err := svc.Get(ctx, rice.ID.String())
	require.NoError(t, err)
	require.Equal(t, rice.Slug, got.Slug)

	_, err = svc.Get(ctx, "424242")
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Get(ctx, "abc")
	require.ErrorIs(t, err, domain.ErrInvalidID)
}
