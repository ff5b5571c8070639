package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/openagora/agora/internal/alert"
	alertdomain "github.com/openagora/agora/internal/alert/domain"
	"github.com/openagora/agora/internal/apikey"
	apikeydomain "github.com/openagora/agora/internal/apikey/domain"
	"github.com/openagora/agora/internal/audit"
	auditdomain "github.com/openagora/agora/internal/audit/domain"
	"github.com/openagora/agora/internal/auth"
	authdomain "github.com/openagora/agora/internal/auth/domain"
	authlocal "github.com/openagora/agora/internal/auth/local"
	"github.com/openagora/agora/internal/auth/session"
	"github.com/openagora/agora/internal/authorization"
	"github.com/openagora/agora/internal/compliance"
	compliancedomain "github.com/openagora/agora/internal/compliance/domain"
	"github.com/openagora/agora/internal/config"
	"github.com/openagora/agora/internal/dashboard"
	dashboarddomain "github.com/openagora/agora/internal/dashboard/domain"
	"github.com/openagora/agora/internal/inventory"
	inventorydomain "github.com/openagora/agora/internal/inventory/domain"
	"github.com/openagora/agora/internal/listing"
	listingdomain "github.com/openagora/agora/internal/listing/domain"
	"github.com/openagora/agora/internal/observability"
	obsmiddleware "github.com/openagora/agora/internal/observability/logger"
	obsmetrics "github.com/openagora/agora/internal/observability/metrics"
	obstracing "github.com/openagora/agora/internal/observability/tracing"
	"github.com/openagora/agora/internal/opas"
	opasdomain "github.com/openagora/agora/internal/opas/domain"
	"github.com/openagora/agora/internal/order"
	orderdomain "github.com/openagora/agora/internal/order/domain"
	"github.com/openagora/agora/internal/oversight"
	"github.com/openagora/agora/internal/pricing"
	pricingdomain "github.com/openagora/agora/internal/pricing/domain"
	"github.com/openagora/agora/internal/product"
	productdomain "github.com/openagora/agora/internal/product/domain"
	"github.com/openagora/agora/internal/providers"
	"github.com/openagora/agora/internal/ratelimit"
	"github.com/openagora/agora/internal/seller"
	sellerdomain "github.com/openagora/agora/internal/seller/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	config.Module,
	fx.Provide(registerGin),
	authorization.Module,
	audit.Module,
	auth.Module,
	authlocal.Module,
	session.Module,
	apikey.Module,
	alert.Module,
	seller.Module,
	product.Module,
	listing.Module,
	order.Module,
	providers.Module,
	pricing.Module,
	compliance.Module,
	inventory.Module,
	opas.Module,
	dashboard.Module,
	oversight.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	db            *gorm.DB
	authsvc       authdomain.Service
	sessions      *session.Manager
	apiKeySvc     apikeydomain.Service
	authzSvc      authorization.Service
	auditSvc      auditdomain.Service
	limiter       *ratelimit.AdminAPILimiter
	dashboardSvc  dashboarddomain.Service
	sellerSvc     sellerdomain.Service
	productSvc    productdomain.Service
	listingSvc    listingdomain.Service
	orderSvc      orderdomain.Service
	pricingSvc    pricingdomain.Service
	complianceSvc compliancedomain.Service
	inventorySvc  inventorydomain.Service
	opasSvc       opasdomain.Service
	alertSvc      alertdomain.Service
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	DB            *gorm.DB
	Authsvc       authdomain.Service
	Sessions      *session.Manager
	APIKeySvc     apikeydomain.Service
	AuthzSvc      authorization.Service
	AuditSvc      auditdomain.Service
	Limiter       *ratelimit.AdminAPILimiter `optional:"true"`
	DashboardSvc  dashboarddomain.Service
	SellerSvc     sellerdomain.Service
	ProductSvc    productdomain.Service
	ListingSvc    listingdomain.Service
	OrderSvc      orderdomain.Service
	PricingSvc    pricingdomain.Service
	ComplianceSvc compliancedomain.Service
	InventorySvc  inventorydomain.Service
	OpasSvc       opasdomain.Service
	AlertSvc      alertdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		db:            p.DB,
		authsvc:       p.Authsvc,
		sessions:      p.Sessions,
		apiKeySvc:     p.APIKeySvc,
		authzSvc:      p.AuthzSvc,
		auditSvc:      p.AuditSvc,
		limiter:       p.Limiter,
		dashboardSvc:  p.DashboardSvc,
		sellerSvc:     p.SellerSvc,
		productSvc:    p.ProductSvc,
		listingSvc:    p.ListingSvc,
		orderSvc:      p.OrderSvc,
		pricingSvc:    p.PricingSvc,
		complianceSvc: p.ComplianceSvc,
		inventorySvc:  p.InventorySvc,
		opasSvc:       p.OpasSvc,
		alertSvc:      p.AlertSvc,
	}

	svc.registerRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires the admin API. Every route sits behind AuthRequired;
// each is additionally gated on one capability, checked here at the
// boundary and nowhere else.
func (s *Server) registerRoutes() {
	r := s.engine.Group("/", s.AuthRequired())

	mutate := s.MutationRateLimit()

	// Dashboard
	r.GET("/dashboard/stats", s.requireCapability(authorization.ObjectDashboard, authorization.ActionView), s.GetDashboardStats)

	// Price ceilings, history, export
	r.GET("/prices/ceilings", s.requireCapability(authorization.ObjectPrice, authorization.ActionView), s.ListCeilings)
	r.POST("/prices/ceilings", s.requireCapability(authorization.ObjectPrice, authorization.ActionCreate), mutate, s.CreateCeiling)
	r.GET("/prices/ceilings/:id", s.requireCapability(authorization.ObjectPrice, authorization.ActionView), s.GetCeiling)
	r.GET("/prices/history", s.requireCapability(authorization.ObjectPrice, authorization.ActionView), s.ListPriceHistory)
	r.GET("/prices/export", s.requireCapability(authorization.ObjectExport, authorization.ActionRun), s.ExportPrices)

	// Compliance
	r.POST("/compliance/classify", s.requireCapability(authorization.ObjectCompliance, authorization.ActionScan), mutate, s.Classify)
	r.POST("/compliance/scan", s.requireCapability(authorization.ObjectCompliance, authorization.ActionScan), mutate, s.RunComplianceScan)
	r.GET("/compliance/violations", s.requireCapability(authorization.ObjectCompliance, authorization.ActionView), s.ListViolations)
	r.POST("/compliance/violations/:id/acknowledge", s.requireCapability(authorization.ObjectCompliance, authorization.ActionResolve), mutate, s.AcknowledgeViolation)
	r.POST("/compliance/violations/:id/resolve", s.requireCapability(authorization.ObjectCompliance, authorization.ActionResolve), mutate, s.ResolveViolation)

	// Inventory
	r.POST("/inventory/receive", s.requireCapability(authorization.ObjectInventory, authorization.ActionReceive), mutate, s.ReceiveInventory)
	r.POST("/inventory/consume", s.requireCapability(authorization.ObjectInventory, authorization.ActionConsume), mutate, s.ConsumeInventory)
	r.GET("/inventory/batches", s.requireCapability(authorization.ObjectInventory, authorization.ActionView), s.ListBatches)
	r.GET("/inventory/batches/:id", s.requireCapability(authorization.ObjectInventory, authorization.ActionView), s.GetBatch)
	r.POST("/inventory/batches/:id/adjust", s.requireCapability(authorization.ObjectInventory, authorization.ActionAdjust), mutate, s.AdjustBatch)
	r.GET("/inventory/transactions", s.requireCapability(authorization.ObjectInventory, authorization.ActionView), s.ListInventoryTransactions)

	// OPAS bulk-purchase submissions
	r.GET("/opas/submissions", s.requireCapability(authorization.ObjectOpas, authorization.ActionView), s.ListOpasSubmissions)
	r.POST("/opas/submissions", s.requireCapability(authorization.ObjectOpas, authorization.ActionCreate), mutate, s.SubmitOpasOffer)
	r.POST("/opas/submissions/:id/approve", s.requireCapability(authorization.ObjectOpas, authorization.ActionDecide), mutate, s.ApproveOpasSubmission)
	r.POST("/opas/submissions/:id/reject", s.requireCapability(authorization.ObjectOpas, authorization.ActionDecide), mutate, s.RejectOpasSubmission)

	// Sellers
	r.GET("/sellers", s.requireCapability(authorization.ObjectSeller, authorization.ActionView), s.ListSellers)
	r.POST("/sellers", s.requireCapability(authorization.ObjectSeller, authorization.ActionCreate), mutate, s.CreateSeller)
	r.GET("/sellers/:id", s.requireCapability(authorization.ObjectSeller, authorization.ActionView), s.GetSeller)
	r.POST("/sellers/:id/approve", s.requireCapability(authorization.ObjectSeller, authorization.ActionModerate), mutate, s.ApproveSeller)
	r.POST("/sellers/:id/reject", s.requireCapability(authorization.ObjectSeller, authorization.ActionModerate), mutate, s.RejectSeller)
	r.POST("/sellers/:id/suspend", s.requireCapability(authorization.ObjectSeller, authorization.ActionModerate), mutate, s.SuspendSeller)
	r.POST("/sellers/:id/reactivate", s.requireCapability(authorization.ObjectSeller, authorization.ActionModerate), mutate, s.ReactivateSeller)

	// Products
	r.GET("/products", s.requireCapability(authorization.ObjectProduct, authorization.ActionView), s.ListProducts)
	r.POST("/products", s.requireCapability(authorization.ObjectProduct, authorization.ActionCreate), mutate, s.CreateProduct)
	r.GET("/products/:id", s.requireCapability(authorization.ObjectProduct, authorization.ActionView), s.GetProduct)

	// Listings
	r.GET("/listings", s.requireCapability(authorization.ObjectListing, authorization.ActionView), s.ListListings)
	r.POST("/listings", s.requireCapability(authorization.ObjectListing, authorization.ActionModerate), mutate, s.CreateListing)
	r.GET("/listings/:id", s.requireCapability(authorization.ObjectListing, authorization.ActionView), s.GetListing)
	r.PATCH("/listings/:id/price", s.requireCapability(authorization.ObjectListing, authorization.ActionModerate), mutate, s.UpdateListingPrice)
	r.POST("/listings/:id/status", s.requireCapability(authorization.ObjectListing, authorization.ActionModerate), mutate, s.SetListingStatus)

	// Orders (read-only marketplace feed)
	r.GET("/orders", s.requireCapability(authorization.ObjectOrder, authorization.ActionView), s.ListOrders)

	// Alerts
	r.GET("/alerts", s.requireCapability(authorization.ObjectAlert, authorization.ActionView), s.ListAlerts)
	r.POST("/alerts/:id/resolve", s.requireCapability(authorization.ObjectAlert, authorization.ActionResolve), mutate, s.ResolveAlert)

	// Audit trail
	r.GET("/audit-logs", s.requireCapability(authorization.ObjectAuditLog, authorization.ActionView), s.ListAuditLogs)

	// API keys
	r.GET("/api-keys", s.requireCapability(authorization.ObjectAPIKey, authorization.ActionView), s.ListAPIKeys)
	r.GET("/api-keys/scopes", s.requireCapability(authorization.ObjectAPIKey, authorization.ActionView), s.ListAPIKeyScopes)
	r.POST("/api-keys", s.requireCapability(authorization.ObjectAPIKey, authorization.ActionCreate), mutate, s.CreateAPIKey)
	r.POST("/api-keys/:key_id/rotate", s.requireCapability(authorization.ObjectAPIKey, authorization.ActionCreate), mutate, s.RotateAPIKey)
	r.POST("/api-keys/:key_id/revoke", s.requireCapability(authorization.ObjectAPIKey, authorization.ActionRevoke), mutate, s.RevokeAPIKey)
}
