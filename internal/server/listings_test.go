package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	compliancedomain "github.com/openagora/agora/internal/compliance/domain"
	compliancerepository "github.com/openagora/agora/internal/compliance/repository"
	complianceservice "github.com/openagora/agora/internal/compliance/service"
	listingdomain "github.com/openagora/agora/internal/listing/domain"
	listingrepository "github.com/openagora/agora/internal/listing/repository"
	listingservice "github.com/openagora/agora/internal/listing/service"
	pricingdomain "github.com/openagora/agora/internal/pricing/domain"
	pricingrepository "github.com/openagora/agora/internal/pricing/repository"
	productdomain "github.com/openagora/agora/internal/product/domain"
	productrepository "github.com/openagora/agora/internal/product/repository"
	sellerdomain "github.com/openagora/agora/internal/seller/domain"
	sellerrepository "github.com/openagora/agora/internal/seller/repository"
	"github.com/openagora/agora/pkg/db"
	"github.com/openagora/agora/pkg/db/lifecycle"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type listingServerFixture struct {
	server  *Server
	conn    *gorm.DB
	node    *snowflake.Node
	seller  sellerdomain.Seller
	product productdomain.Product
	listing listingdomain.Listing
}

func newListingServerFixture(t *testing.T) *listingServerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&sellerdomain.Seller{},
		&productdomain.Product{},
		&listingdomain.Listing{},
		&pricingdomain.PriceCeiling{},
		&compliancedomain.NonComplianceRecord{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	listingSvc := listingservice.New(listingservice.Params{
		DB:          conn,
		Log:         zap.NewNop(),
		GenID:       node,
		Repo:        listingrepository.Provide(),
		SellerRepo:  sellerrepository.Provide(),
		ProductRepo: productrepository.Provide(),
	})
	complianceSvc := complianceservice.New(complianceservice.Params{
		DB:          conn,
		Log:         zap.NewNop(),
		GenID:       node,
		Repo:        compliancerepository.Provide(),
		PricingRepo: pricingrepository.Provide(),
		ListingRepo: listingrepository.Provide(),
		ProductRepo: productrepository.Provide(),
		SellerRepo:  sellerrepository.Provide(),
	})

	srv := &Server{
		engine:        gin.New(),
		listingSvc:    listingSvc,
		complianceSvc: complianceSvc,
	}
	srv.engine.PATCH("/listings/:id/price", srv.UpdateListingPrice)

	now := time.Now().UTC()
	seller := sellerdomain.Seller{
		ID:           node.Generate(),
		BusinessName: "Toko Sejahtera",
		OwnerName:    "Owner",
		Email:        "owner@example.com",
		Status:       sellerdomain.StatusActive,
		State:        lifecycle.StateActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, conn.Create(&seller).Error)

	product := productdomain.Product{
		ID:        node.Generate(),
		Name:      "Cooking Oil",
		Slug:      "cooking-oil",
		Category:  "STAPLES",
		Unit:      "liter",
		State:     lifecycle.StateActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, conn.Create(&product).Error)

	ceiling := pricingdomain.PriceCeiling{
		ID:            node.Generate(),
		ProductID:     product.ID,
		Amount:        decimal.RequireFromString("100.00"),
		EffectiveFrom: now.Add(-24 * time.Hour),
		State:         lifecycle.StateActive,
		CreatedAt:     now,
	}
	require.NoError(t, conn.Create(&ceiling).Error)

	listing := listingdomain.Listing{
		ID:          node.Generate(),
		SellerID:    seller.ID,
		ProductID:   product.ID,
		ListedPrice: decimal.RequireFromString("95.00"),
		Status:      listingdomain.StatusActive,
		State:       lifecycle.StateActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, conn.Create(&listing).Error)

	return &listingServerFixture{
		server:  srv,
		conn:    conn,
		node:    node,
		seller:  seller,
		product: product,
		listing: listing,
	}
}

func (f *listingServerFixture) patchPrice(t *testing.T, price string) *httptest.ResponseRecorder {
	t.Helper()
	body := fmt.Sprintf(`{"price":"%s"}`, price)
	req := httptest.NewRequest(http.MethodPatch, "/listings/"+f.listing.ID.String()+"/price", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.server.engine.ServeHTTP(rec, req)
	return rec
}

func TestUpdateListingPriceOverCeilingRecordsViolation(t *testing.T) {
	f := newListingServerFixture(t)

	rec := f.patchPrice(t, "120.00")
	require.Equal(t, http.StatusOK, rec.Code)

	var updated listingdomain.Listing
	require.NoError(t, f.conn.First(&updated, "id = ?", f.listing.ID).Error)
	assert.True(t, updated.ListedPrice.Equal(decimal.RequireFromString("120.00")))

	var records []compliancedomain.NonComplianceRecord
	require.NoError(t, f.conn.
		Where("seller_id = ? AND product_id = ?", f.seller.ID, f.product.ID).
		Find(&records).Error)
	require.Len(t, records, 1)
	assert.Equal(t, compliancedomain.ViolationNew, records[0].Status)
	assert.Equal(t, f.listing.ID, records[0].ListingID)
	assert.True(t, records[0].ListedPrice.Equal(decimal.RequireFromString("120.00")))
	assert.True(t, records[0].OveragePct.Equal(decimal.RequireFromString("20")))
}

func TestUpdateListingPriceUnderCeilingRecordsNothing(t *testing.T) {
	f := newListingServerFixture(t)

	rec := f.patchPrice(t, "99.00")
	require.Equal(t, http.StatusOK, rec.Code)

	var count int64
	require.NoError(t, f.conn.Model(&compliancedomain.NonComplianceRecord{}).Count(&count).Error)
	assert.Zero(t, count)
}
