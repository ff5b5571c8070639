package service

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/openagora/agora/internal/adminctx"
	authdomain "github.com/openagora/agora/internal/auth/domain"
	compliancedomain "github.com/openagora/agora/internal/compliance/domain"
	compliancerepository "github.com/openagora/agora/internal/compliance/repository"
	"github.com/openagora/agora/internal/pricing/domain"
	"github.com/openagora/agora/internal/pricing/repository"
	productdomain "github.com/openagora/agora/internal/product/domain"
	productrepository "github.com/openagora/agora/internal/product/repository"
	"github.com/openagora/agora/internal/providers/pdf"
	sellerdomain "github.com/openagora/agora/internal/seller/domain"
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
	conn    *gorm.DB
	node    *snowflake.Node
	ctx     context.Context
	admin   authdomain.AdminUser
	product productdomain.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&domain.PriceCeiling{},
		&domain.PriceHistoryEntry{},
		&productdomain.Product{},
		&sellerdomain.Seller{},
		&authdomain.AdminUser{},
		&compliancedomain.NonComplianceRecord{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	repo := repository.Provide()
	svc := New(Params{
		DB:            conn,
		Log:           zap.NewNop(),
		GenID:         node,
		Repo:          repo,
		ProductRepo:   productrepository.Provide(),
		ViolationRepo: compliancerepository.Provide(),
		PDF:           pdf.New(),
	})

	f := &fixture{svc: svc, repo: repo, conn: conn, node: node}
	f.product = f.seedProduct(t, "Rice Premium", "rice-premium")

	now := time.Now().UTC()
	f.admin = authdomain.AdminUser{
		ID:          node.Generate(),
		Email:       "officer@agora.gov",
		DisplayName: "Officer Rivera",
		Role:        "COMPLIANCE_OFFICER",
		Status:      authdomain.UserStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, conn.Create(&f.admin).Error)

	f.ctx = adminctx.WithActor(context.Background(), adminctx.Actor{
		ID:       f.admin.ID,
		Email:    f.admin.Email,
		Role:     f.admin.Role,
		AuthKind: adminctx.AuthSession,
	})
	return f
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

func (f *fixture) createCeiling(t *testing.T, productID string, amount string, reason string, from, until *time.Time) domain.PriceCeiling {
	t.Helper()
	ceiling, err := f.svc.CreateCeiling(f.ctx, domain.CreateCeilingRequest{
		ProductID:      productID,
		Amount:         decimal.RequireFromString(amount),
		EffectiveFrom:  from,
		EffectiveUntil: until,
		Reason:         reason,
	})
	require.NoError(t, err)
	return ceiling
}

func TestCreateCeilingRecordsHistory(t *testing.T) {
	f := newFixture(t)

	first := f.createCeiling(t, f.product.ID.String(), "100.00", "MARKET_CORRECTION", nil, nil)
	require.Equal(t, "100.00", first.Amount.StringFixed(2))
	require.Equal(t, f.admin.ID, first.CreatedBy)

	history, err := f.svc.ListHistory(f.ctx, domain.ListHistoryRequest{})
	require.NoError(t, err)
	require.Len(t, history.Entries, 1)

	// The first ceiling is recorded as INITIAL no matter what the
	// request said, with no prior amount.
	initial := history.Entries[0]
	require.Equal(t, domain.ReasonInitial, initial.Reason)
	require.False(t, initial.OldAmount.Valid)
	require.Equal(t, "100.00", initial.NewAmount.StringFixed(2))
	require.Equal(t, "Rice Premium", initial.ProductName)
	require.Equal(t, "Officer Rivera", initial.AdminName)

	f.createCeiling(t, f.product.ID.String(), "120.00", "SUPPLY_SHOCK", nil, nil)

	history, err = f.svc.ListHistory(f.ctx, domain.ListHistoryRequest{})
	require.NoError(t, err)
	require.Len(t, history.Entries, 2)

	latest := history.Entries[0]
	require.Equal(t, domain.ReasonSupplyShock, latest.Reason)
	require.True(t, latest.OldAmount.Valid)
	require.Equal(t, "100.00", latest.OldAmount.Decimal.StringFixed(2))
	require.Equal(t, "120.00", latest.NewAmount.StringFixed(2))

	// INITIAL is reserved for a product's first ceiling.
	_, err = f.svc.CreateCeiling(f.ctx, domain.CreateCeilingRequest{
		ProductID: f.product.ID.String(),
		Amount:    decimal.RequireFromString("130.00"),
		Reason:    "INITIAL",
	})
	require.ErrorIs(t, err, domain.ErrInvalidReason)
}

func TestCreateCeilingValidatesInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateCeiling(f.ctx, domain.CreateCeilingRequest{
		ProductID: f.product.ID.String(),
		Amount:    decimal.Zero,
	})
	require.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.svc.CreateCeiling(f.ctx, domain.CreateCeilingRequest{
		ProductID: f.product.ID.String(),
		Amount:    decimal.RequireFromString("-5"),
	})
	require.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.svc.CreateCeiling(f.ctx, domain.CreateCeilingRequest{
		ProductID: "not-an-id",
		Amount:    decimal.RequireFromString("10.00"),
	})
	require.ErrorIs(t, err, domain.ErrInvalidProduct)

	_, err = f.svc.CreateCeiling(f.ctx, domain.CreateCeilingRequest{
		ProductID: f.node.Generate().String(),
		Amount:    decimal.RequireFromString("10.00"),
	})
	require.ErrorIs(t, err, domain.ErrInvalidProduct)

	from := time.Now().UTC()
	until := from.Add(-time.Hour)
	_, err = f.svc.CreateCeiling(f.ctx, domain.CreateCeilingRequest{
		ProductID:      f.product.ID.String(),
		Amount:         decimal.RequireFromString("10.00"),
		EffectiveFrom:  &from,
		EffectiveUntil: &until,
	})
	require.ErrorIs(t, err, domain.ErrInvalidWindow)

	_, err = f.svc.CreateCeiling(f.ctx, domain.CreateCeilingRequest{
		ProductID: f.product.ID.String(),
		Amount:    decimal.RequireFromString("10.00"),
		Reason:    "BECAUSE",
	})
	require.ErrorIs(t, err, domain.ErrInvalidReason)
}

func TestEffectiveCeilingResolution(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	older := now.Add(-2 * time.Hour)
	newer := now.Add(-1 * time.Hour)
	future := now.Add(time.Hour)

	f.createCeiling(t, f.product.ID.String(), "100.00", "", &older, nil)
	f.createCeiling(t, f.product.ID.String(), "90.00", "MARKET_CORRECTION", &newer, nil)
	f.createCeiling(t, f.product.ID.String(), "80.00", "EMERGENCY_CONTROL", &future, nil)

	effective, err := f.repo.EffectiveCeiling(ctx, f.conn, f.product.ID, now)
	require.NoError(t, err)
	require.NotNil(t, effective)
	require.Equal(t, "90.00", effective.Amount.StringFixed(2))

	effective, err = f.repo.EffectiveCeiling(ctx, f.conn, f.product.ID, now.Add(2*time.Hour))
	require.NoError(t, err)
	require.NotNil(t, effective)
	require.Equal(t, "80.00", effective.Amount.StringFixed(2))

	effective, err = f.repo.EffectiveCeiling(ctx, f.conn, f.product.ID, now.Add(-3*time.Hour))
	require.NoError(t, err)
	require.Nil(t, effective)

	// A window that already closed leaves the product unregulated.
	windowed := f.seedProduct(t, "Cooking Oil", "cooking-oil")
	windowFrom := now.Add(-2 * time.Hour)
	windowUntil := now.Add(-1 * time.Hour)
	f.createCeiling(t, windowed.ID.String(), "50.00", "", &windowFrom, &windowUntil)

	effective, err = f.repo.EffectiveCeiling(ctx, f.conn, windowed.ID, now)
	require.NoError(t, err)
	require.Nil(t, effective)

	effective, err = f.repo.EffectiveCeiling(ctx, f.conn, windowed.ID, now.Add(-90*time.Minute))
	require.NoError(t, err)
	require.NotNil(t, effective)
	require.Equal(t, "50.00", effective.Amount.StringFixed(2))

	all, err := f.repo.EffectiveCeilings(ctx, f.conn, now)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, f.product.ID, all[0].ProductID)
	require.Equal(t, "90.00", all[0].Amount.StringFixed(2))
}

func TestListCeilingsAndGet(t *testing.T) {
	f := newFixture(t)
	now := time.Now().UTC()

	expiredFrom := now.Add(-3 * time.Hour)
	expiredUntil := now.Add(-2 * time.Hour)
	f.createCeiling(t, f.product.ID.String(), "70.00", "", &expiredFrom, &expiredUntil)
	current := f.createCeiling(t, f.product.ID.String(), "75.00", "MARKET_CORRECTION", nil, nil)

	list, err := f.svc.ListCeilings(f.ctx, domain.ListCeilingRequest{ProductID: f.product.ID.String()})
	require.NoError(t, err)
	require.Len(t, list.Ceilings, 2)
	require.EqualValues(t, 2, list.Total)

	active, err := f.svc.ListCeilings(f.ctx, domain.ListCeilingRequest{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active.Ceilings, 1)
	require.Equal(t, current.ID, active.Ceilings[0].ID)

	got, err := f.svc.GetCeiling(f.ctx, current.ID.String())
	require.NoError(t, err)
	require.Equal(t, "75.00", got.Amount.StringFixed(2))

	_, err = f.svc.GetCeiling(f.ctx, f.node.Generate().String())
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.GetCeiling(f.ctx, "abc")
	require.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestListHistoryFilters(t *testing.T) {
	f := newFixture(t)
	oil := f.seedProduct(t, "Cooking Oil", "cooking-oil")

	now := time.Now().UTC()
	second := authdomain.AdminUser{
		ID:          f.node.Generate(),
		Email:       "analyst@agora.gov",
		DisplayName: "Analyst Chen",
		Role:        "ANALYST",
		Status:      authdomain.UserStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, f.conn.Create(&second).Error)
	secondCtx := adminctx.WithActor(context.Background(), adminctx.Actor{
		ID:       second.ID,
		Email:    second.Email,
		Role:     second.Role,
		AuthKind: adminctx.AuthSession,
	})

	f.createCeiling(t, f.product.ID.String(), "100.00", "", nil, nil)
	f.createCeiling(t, f.product.ID.String(), "110.00", "SUPPLY_SHOCK", nil, nil)
	_, err := f.svc.CreateCeiling(secondCtx, domain.CreateCeilingRequest{
		ProductID: oil.ID.String(),
		Amount:    decimal.RequireFromString("45.00"),
	})
	require.NoError(t, err)

	byProduct, err := f.svc.ListHistory(f.ctx, domain.ListHistoryRequest{ProductID: f.product.ID.String()})
	require.NoError(t, err)
	require.Len(t, byProduct.Entries, 2)

	byReason, err := f.svc.ListHistory(f.ctx, domain.ListHistoryRequest{Reason: "supply_shock"})
	require.NoError(t, err)
	require.Len(t, byReason.Entries, 1)
	require.Equal(t, "110.00", byReason.Entries[0].NewAmount.StringFixed(2))

	byAdmin, err := f.svc.ListHistory(f.ctx, domain.ListHistoryRequest{AdminID: second.ID.String()})
	require.NoError(t, err)
	require.Len(t, byAdmin.Entries, 1)
	require.Equal(t, "Analyst Chen", byAdmin.Entries[0].AdminName)

	byProductName, err := f.svc.ListHistory(f.ctx, domain.ListHistoryRequest{Query: "oil"})
	require.NoError(t, err)
	require.Len(t, byProductName.Entries, 1)
	require.Equal(t, "Cooking Oil", byProductName.Entries[0].ProductName)

	byAdminName, err := f.svc.ListHistory(f.ctx, domain.ListHistoryRequest{Query: "rivera"})
	require.NoError(t, err)
	require.Len(t, byAdminName.Entries, 2)

	_, err = f.svc.ListHistory(f.ctx, domain.ListHistoryRequest{Reason: "WHIM"})
	require.ErrorIs(t, err, domain.ErrInvalidReason)

	_, err = f.svc.ListHistory(f.ctx, domain.ListHistoryRequest{
		From: now,
		To:   now.Add(-time.Hour),
	})
	require.ErrorIs(t, err, domain.ErrInvalidTimeRange)

	paged, err := f.svc.ListHistory(f.ctx, domain.ListHistoryRequest{Page: pagination.Page{Limit: 2}})
	require.NoError(t, err)
	require.Len(t, paged.Entries, 2)
	require.True(t, paged.HasMore)
}

func (f *fixture) seedViolation(t *testing.T) compliancedomain.NonComplianceRecord {
	t.Helper()
	now := time.Now().UTC()
	seller := sellerdomain.Seller{
		ID:           f.node.Generate(),
		BusinessName: "Toko Makmur",
		OwnerName:    "Budi",
		Email:        "budi@example.com",
		Status:       sellerdomain.StatusActive,
		State:        lifecycle.StateActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, f.conn.Create(&seller).Error)

	record := compliancedomain.NonComplianceRecord{
		ID:           f.node.Generate(),
		SellerID:     seller.ID,
		ProductID:    f.product.ID,
		ListingID:    f.node.Generate(),
		ListedPrice:  decimal.RequireFromString("110.00"),
		CeilingPrice: decimal.RequireFromString("100.00"),
		OveragePct:   decimal.RequireFromString("10.00"),
		DetectedAt:   now,
		Status:       compliancedomain.ViolationNew,
		State:        lifecycle.StateActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, f.conn.Create(&record).Error)
	return record
}

func TestExportCSVAndJSON(t *testing.T) {
	f := newFixture(t)

	f.createCeiling(t, f.product.ID.String(), "100.00", "", nil, nil)
	f.createCeiling(t, f.product.ID.String(), "120.00", "CURRENCY_ADJUSTMENT", nil, nil)
	f.seedViolation(t)

	file, err := f.svc.Export(f.ctx, domain.ExportRequest{
		Format:            "csv",
		IncludeHistory:    true,
		IncludeViolations: true,
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(file.Name, "price_ceilings_"))
	require.True(t, strings.HasSuffix(file.Name, ".csv"))
	require.Equal(t, "text/csv", file.ContentType)

	var buf bytes.Buffer
	require.NoError(t, file.Render(&buf))
	out := buf.String()
	require.Contains(t, out, "product_id,product_name,ceiling_id,amount")
	require.Contains(t, out, "Rice Premium")
	require.Contains(t, out, "history_id")
	require.Contains(t, out, "CURRENCY_ADJUSTMENT")
	require.Contains(t, out, "violation_id")
	require.Contains(t, out, "Toko Makmur")

	file, err = f.svc.Export(f.ctx, domain.ExportRequest{
		Format:            "json",
		IncludeHistory:    true,
		IncludeViolations: true,
	})
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(file.Name, ".json"))
	require.Equal(t, "application/json", file.ContentType)

	buf.Reset()
	require.NoError(t, file.Render(&buf))

	var doc struct {
		Products []struct {
			ProductName string            `json:"product_name"`
			Ceilings    []json.RawMessage `json:"ceilings"`
			History     []json.RawMessage `json:"history"`
			Violations  []json.RawMessage `json:"violations"`
		} `json:"products"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Products, 1)
	require.Equal(t, "Rice Premium", doc.Products[0].ProductName)
	require.Len(t, doc.Products[0].Ceilings, 2)
	require.Len(t, doc.Products[0].History, 2)
	require.Len(t, doc.Products[0].Violations, 1)

	// Flags off leaves the related collections out entirely.
	file, err = f.svc.Export(f.ctx, domain.ExportRequest{Format: "json"})
	require.NoError(t, err)
	buf.Reset()
	require.NoError(t, file.Render(&buf))
	require.NotContains(t, buf.String(), "\"history\"")
	require.NotContains(t, buf.String(), "\"violations\"")

	_, err = f.svc.Export(f.ctx, domain.ExportRequest{Format: "xml"})
	require.ErrorIs(t, err, domain.ErrInvalidFormat)
}

func TestExportPDFRenders(t *testing.T) {
	f := newFixture(t)

	f.createCeiling(t, f.product.ID.String(), "100.00", "", nil, nil)
	f.seedViolation(t)

	file, err := f.svc.Export(f.ctx, domain.ExportRequest{
		Format:            "pdf",
		IncludeHistory:    true,
		IncludeViolations: true,
	})
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(file.Name, ".pdf"))
	require.Equal(t, "application/pdf", file.ContentType)

	var buf bytes.Buffer
	require.NoError(t, file.Render(&buf))
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}
