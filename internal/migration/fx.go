package migration

import (
	alertdomain "github.com/openagora/agora/internal/alert/domain"
	apikeydomain "github.com/openagora/agora/internal/apikey/domain"
	auditdomain "github.com/openagora/agora/internal/audit/domain"
	authdomain "github.com/openagora/agora/internal/auth/domain"
	compliancedomain "github.com/openagora/agora/internal/compliance/domain"
	"github.com/openagora/agora/internal/config"
	inventorydomain "github.com/openagora/agora/internal/inventory/domain"
	listingdomain "github.com/openagora/agora/internal/listing/domain"
	opasdomain "github.com/openagora/agora/internal/opas/domain"
	orderdomain "github.com/openagora/agora/internal/order/domain"
	pricingdomain "github.com/openagora/agora/internal/pricing/domain"
	productdomain "github.com/openagora/agora/internal/product/domain"
	"github.com/openagora/agora/internal/seed"
	sellerdomain "github.com/openagora/agora/internal/seller/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// sqlite and mysql are dev/test targets; the versioned SQL is
			// postgres-only so let gorm derive the schema from the models.
			if err := conn.AutoMigrate(
				&authdomain.AdminUser{},
				&authdomain.Session{},
				&apikeydomain.APIKey{},
				&auditdomain.AuditLog{},
				&sellerdomain.Seller{},
				&productdomain.Product{},
				&listingdomain.Listing{},
				&orderdomain.Order{},
				&pricingdomain.PriceCeiling{},
				&pricingdomain.PriceHistoryEntry{},
				&compliancedomain.NonComplianceRecord{},
				&inventorydomain.Batch{},
				&inventorydomain.Transaction{},
				&opasdomain.Submission{},
				&alertdomain.Alert{},
			); err != nil {
				return err
			}
		}

		if err := seed.EnsureDefaultAdmin(conn); err != nil {
			return err
		}
		if cfg.SeedDemoData {
			return seed.EnsureDemoData(conn)
		}
		return nil
	}),
)
