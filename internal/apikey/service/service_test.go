package service

import (
	"context"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	apikeydomain "github.com/openagora/agora/internal/apikey/domain"
	"github.com/openagora/agora/internal/apikey/repository"
	"github.com/openagora/agora/pkg/db"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) apikeydomain.Service {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&apikeydomain.APIKey{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})
}

func TestCreateIssuesKeyWithNormalizedScopes(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	secret, err := svc.Create(ctx, apikeydomain.CreateRequest{
		Name:   "warehouse sync",
		Scopes: []string{"Inventory:View", "inventory:view", "price:view"},
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(secret.APIKey, "ak_live_"))
	require.True(t, strings.HasPrefix(secret.KeyID, "key_"))

	keys, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	require.Equal(t, "warehouse sync", keys[0].Name)
	require.Equal(t, []string{"inventory:view", "price:view"}, keys[0].Scopes)
	require.True(t, keys[0].IsActive)
	require.Nil(t, keys[0].LastUsedAt)
}

func TestCreateValidatesInput(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, apikeydomain.CreateRequest{Name: "  ", Scopes: []string{"price:view"}})
	require.ErrorIs(t, err, apikeydomain.ErrInvalidName)

	_, err = svc.Create(ctx, apikeydomain.CreateRequest{Name: "reporting"})
	require.ErrorIs(t, err, apikeydomain.ErrInvalidScopes)

	_, err = svc.Create(ctx, apikeydomain.CreateRequest{Name: "reporting", Scopes: []string{"warehouse:teleport"}})
	require.ErrorIs(t, err, apikeydomain.ErrInvalidScopes)
}

func TestAuthenticateAcceptsIssuedKeyOnly(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	secret, err := svc.Create(ctx, apikeydomain.CreateRequest{
		Name:   "exports",
		Scopes: []string{"export:run"},
	})
	require.NoError(t, err)

	key, err := svc.Authenticate(ctx, secret.APIKey)
	require.NoError(t, err)
	require.Equal(t, secret.KeyID, key.KeyID)
	require.NotNil(t, key.LastUsedAt)

	_, err = svc.Authenticate(ctx, secret.APIKey+"0")
	require.ErrorIs(t, err, apikeydomain.ErrInvalidKey)

	_, err = svc.Authenticate(ctx, "sk_test_not_ours")
	require.ErrorIs(t, err, apikeydomain.ErrInvalidKey)
}

func TestRotateKeepsOldKeyDuringGrace(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, apikeydomain.CreateRequest{
		Name:   "scanner",
		Scopes: []string{"compliance:scan"},
	})
	require.NoError(t, err)

	second, err := svc.Rotate(ctx, first.KeyID)
	require.NoError(t, err)
	require.NotEqual(t, first.KeyID, second.KeyID)

	// The rotated-out key stays valid inside the grace window.
	_, err = svc.Authenticate(ctx, first.APIKey)
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, second.APIKey)
	require.NoError(t, err)

	keys, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 2)

	var rotated *apikeydomain.Response
	for i := range keys {
		if keys[i].KeyID == second.KeyID {
			rotated = &keys[i]
		}
	}
	require.NotNil(t, rotated)
	require.NotNil(t, rotated.RotatedFromKeyID)
	require.Equal(t, first.KeyID, *rotated.RotatedFromKeyID)

	_, err = svc.Rotate(ctx, "key_missing")
	require.ErrorIs(t, err, apikeydomain.ErrNotFound)
}

func TestRevokeStopsAuthentication(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	secret, err := svc.Create(ctx, apikeydomain.CreateRequest{
		Name:   "ops",
		Scopes: []string{"*"},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, secret.KeyID))

	_, err = svc.Authenticate(ctx, secret.APIKey)
	require.ErrorIs(t, err, apikeydomain.ErrInvalidKey)

	_, err = svc.Rotate(ctx, secret.KeyID)
	require.ErrorIs(t, err, apikeydomain.ErrNotFound)
}
