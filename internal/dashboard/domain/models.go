package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is the full dashboard read model. It is recomputed wholesale,
// never persisted, and optionally cached for a short TTL.
type Snapshot struct {
	Timestamp       time.Time       `json:"timestamp"`
	SellerMetrics   SellerMetrics   `json:"seller_metrics"`
	MarketMetrics   MarketMetrics   `json:"market_metrics"`
	OpasMetrics     OpasMetrics     `json:"opas_metrics"`
	PriceCompliance PriceCompliance `json:"price_compliance"`
	Alerts          AlertMetrics    `json:"alerts"`
	HealthScore     int             `json:"marketplace_health_score"`
}

type SellerMetrics struct {
	Total        int64 `json:"total"`
	Pending      int64 `json:"pending"`
	Active       int64 `json:"active"`
	Suspended    int64 `json:"suspended"`
	NewThisMonth int64 `json:"new_this_month"`
	// ApprovalRate is approved / (approved + rejected) in percent, 0 when
	// nothing was decided yet.
	ApprovalRate float64 `json:"approval_rate"`
}

type MarketMetrics struct {
	ActiveListings   int64           `json:"active_listings"`
	SalesToday       decimal.Decimal `json:"sales_today"`
	SalesMonthToDate decimal.Decimal `json:"sales_month_to_date"`
	AvgTransaction   decimal.Decimal `json:"avg_transaction"`
	// AvgPriceChange is reserved and always 0 until a price-delta formula
	// is agreed; consumers should not chart it yet.
	AvgPriceChange decimal.Decimal `json:"avg_price_change"`
}

type OpasMetrics struct {
	PendingSubmissions  int64           `json:"pending_submissions"`
	ApprovedThisMonth   int64           `json:"approved_this_month"`
	TotalQuantityOnHand int64           `json:"total_quantity_on_hand"`
	LowStockBatches     int64           `json:"low_stock_batches"`
	ExpiringBatches     int64           `json:"expiring_batches"`
	TotalInventoryValue decimal.Decimal `json:"total_inventory_value"`
}

// PriceCompliance counts active listings whose product has a ceiling in
// force. Unregulated listings are not monitored and do not dilute the rate.
type PriceCompliance struct {
	CompliantListings int64   `json:"compliant_listings"`
	ViolatingListings int64   `json:"violating_listings"`
	ComplianceRate    float64 `json:"compliance_rate"`
}

type AlertMetrics struct {
	OpenByCategory map[string]int64 `json:"open_by_category"`
	TotalOpen      int64            `json:"total_open"`
}
