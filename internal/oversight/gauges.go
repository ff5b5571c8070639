package oversight

import (
	dashboarddomain "github.com/openagora/agora/internal/dashboard/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// snapshotGauges mirror the dashboard snapshot onto a private registry so
// the regulator ingests the same numbers the admin dashboard shows.
type snapshotGauges struct {
	sellers         *prometheus.GaugeVec
	sellersNewMonth prometheus.Gauge
	approvalRate    prometheus.Gauge
	activeListings  prometheus.Gauge
	salesToday      prometheus.Gauge
	salesMonth      prometheus.Gauge
	avgTransaction  prometheus.Gauge
	opasPending     prometheus.Gauge
	opasApproved    prometheus.Gauge
	stockOnHand     prometheus.Gauge
	stockValue      prometheus.Gauge
	lowStock        prometheus.Gauge
	expiring        prometheus.Gauge
	compliant       prometheus.Gauge
	violating       prometheus.Gauge
	complianceRate  prometheus.Gauge
	openAlerts      *prometheus.GaugeVec
	openAlertsTotal prometheus.Gauge
	healthScore     prometheus.Gauge
}

func newSnapshotGauges(registry *prometheus.Registry, constLabels prometheus.Labels) *snapshotGauges {
	gauge := func(name, help string) prometheus.Gauge {
		g := prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        name,
			Help:        help,
			ConstLabels: constLabels,
		})
		registry.MustRegister(g)
		return g
	}

	sellers := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:        "agora_oversight_sellers",
		Help:        "Seller accounts by moderation status.",
		ConstLabels: constLabels,
	}, []string{"status"})
	openAlerts := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:        "agora_oversight_open_alerts",
		Help:        "Open marketplace alerts by category.",
		ConstLabels: constLabels,
	}, []string{"category"})
	registry.MustRegister(sellers, openAlerts)

	return &snapshotGauges{
		sellers:         sellers,
		sellersNewMonth: gauge("agora_oversight_sellers_new_month", "Sellers registered in the current calendar month."),
		approvalRate:    gauge("agora_oversight_seller_approval_rate_pct", "Share of decided seller applications that were approved."),
		activeListings:  gauge("agora_oversight_active_listings", "Active marketplace listings."),
		salesToday:      gauge("agora_oversight_sales_today", "Delivered sales total for the current day."),
		salesMonth:      gauge("agora_oversight_sales_month_to_date", "Delivered sales total for the current calendar month."),
		avgTransaction:  gauge("agora_oversight_avg_transaction", "Average delivered order value this month."),
		opasPending:     gauge("agora_oversight_opas_pending_submissions", "Bulk-purchase submissions awaiting a decision."),
		opasApproved:    gauge("agora_oversight_opas_approved_month", "Bulk-purchase submissions approved this month."),
		stockOnHand:     gauge("agora_oversight_inventory_on_hand_units", "Total units on hand across inventory batches."),
		stockValue:      gauge("agora_oversight_inventory_value", "Total inventory value at batch unit prices."),
		lowStock:        gauge("agora_oversight_inventory_low_stock_batches", "Batches at or under their low-stock threshold."),
		expiring:        gauge("agora_oversight_inventory_expiring_batches", "Batches with stock expiring inside the configured window."),
		compliant:       gauge("agora_oversight_price_compliant_listings", "Regulated listings at or under their ceiling."),
		violating:       gauge("agora_oversight_price_violating_listings", "Regulated listings above their ceiling."),
		complianceRate:  gauge("agora_oversight_price_compliance_rate_pct", "Share of regulated listings in compliance."),
		openAlerts:      openAlerts,
		openAlertsTotal: gauge("agora_oversight_open_alerts_total", "Open marketplace alerts."),
		healthScore:     gauge("agora_oversight_marketplace_health_score", "Composite marketplace health score (0-100)."),
	}
}

func (g *snapshotGauges) set(snapshot dashboarddomain.Snapshot) {
	g.sellers.WithLabelValues("total").Set(float64(snapshot.SellerMetrics.Total))
	g.sellers.WithLabelValues("pending").Set(float64(snapshot.SellerMetrics.Pending))
	g.sellers.WithLabelValues("active").Set(float64(snapshot.SellerMetrics.Active))
	g.sellers.WithLabelValues("suspended").Set(float64(snapshot.SellerMetrics.Suspended))
	g.sellersNewMonth.Set(float64(snapshot.SellerMetrics.NewThisMonth))
	g.approvalRate.Set(snapshot.SellerMetrics.ApprovalRate)

	g.activeListings.Set(float64(snapshot.MarketMetrics.ActiveListings))
	g.salesToday.Set(snapshot.MarketMetrics.SalesToday.InexactFloat64())
	g.salesMonth.Set(snapshot.MarketMetrics.SalesMonthToDate.InexactFloat64())
	g.avgTransaction.Set(snapshot.MarketMetrics.AvgTransaction.InexactFloat64())

	g.opasPending.Set(float64(snapshot.OpasMetrics.PendingSubmissions))
	g.opasApproved.Set(float64(snapshot.OpasMetrics.ApprovedThisMonth))
	g.stockOnHand.Set(float64(snapshot.OpasMetrics.TotalQuantityOnHand))
	g.stockValue.Set(snapshot.OpasMetrics.TotalInventoryValue.InexactFloat64())
	g.lowStock.Set(float64(snapshot.OpasMetrics.LowStockBatches))
	g.expiring.Set(float64(snapshot.OpasMetrics.ExpiringBatches))

	g.compliant.Set(float64(snapshot.PriceCompliance.CompliantListings))
	g.violating.Set(float64(snapshot.PriceCompliance.ViolatingListings))
	g.complianceRate.Set(snapshot.PriceCompliance.ComplianceRate)

	// Reset so categories absent from this snapshot do not linger at a
	// stale count.
	g.openAlerts.Reset()
	for category, count := range snapshot.Alerts.OpenByCategory {
		g.openAlerts.WithLabelValues(category).Set(float64(count))
	}
	g.openAlertsTotal.Set(float64(snapshot.Alerts.TotalOpen))

	g.healthScore.Set(float64(snapshot.HealthScore))
}
