package oversight

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang/snappy"
	"github.com/openagora/agora/internal/config"
	dashboarddomain "github.com/openagora/agora/internal/dashboard/domain"
	"github.com/prometheus/prometheus/prompb"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type captureServer struct {
	mu      sync.Mutex
	bodies  [][]byte
	headers []http.Header
	status  int
	server  *httptest.Server
}

func newCaptureServer(t *testing.T) *captureServer {
	t.Helper()
	c := &captureServer{status: http.StatusNoContent}
	c.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.bodies = append(c.bodies, body)
		c.headers = append(c.headers, r.Header.Clone())
		status := c.status
		c.mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(c.server.Close)
	return c
}

func (c *captureServer) lastRequest(t *testing.T) (prompb.WriteRequest, http.Header) {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.bodies)

	raw, err := snappy.Decode(nil, c.bodies[len(c.bodies)-1])
	require.NoError(t, err)

	var req prompb.WriteRequest
	require.NoError(t, req.Unmarshal(raw))
	return req, c.headers[len(c.headers)-1]
}

// seriesValues indexes the write request by metric name, suffixed with the
// status/category label where one exists.
func seriesValues(req prompb.WriteRequest) map[string]float64 {
	out := make(map[string]float64, len(req.Timeseries))
	for _, ts := range req.Timeseries {
		var name, sub string
		for _, label := range ts.Labels {
			switch label.Name {
			case "__name__":
				name = label.Value
			case "status", "category":
				sub = label.Value
			}
		}
		key := name
		if sub != "" {
			key = name + ":" + sub
		}
		if len(ts.Samples) > 0 {
			out[key] = ts.Samples[0].Value
		}
	}
	return out
}

func remoteWriteConfig(endpoint string) config.Config {
	return config.Config{
		AppName:     "agora",
		Environment: "test",
		Oversight: config.OversightConfig{
			Enabled:   true,
			Exporter:  "prometheus_remote_write",
			Endpoint:  endpoint,
			AuthToken: "feed-token",
			MarketID:  "PSR-7",
		},
	}
}

func sampleSnapshot() dashboarddomain.Snapshot {
	return dashboarddomain.Snapshot{
		Timestamp: time.Now().UTC(),
		SellerMetrics: dashboarddomain.SellerMetrics{
			Total: 5, Pending: 1, Active: 2, Suspended: 1, NewThisMonth: 2, ApprovalRate: 75,
		},
		MarketMetrics: dashboarddomain.MarketMetrics{
			ActiveListings:   3,
			SalesToday:       decimal.RequireFromString("150.00"),
			SalesMonthToDate: decimal.RequireFromString("150.00"),
			AvgTransaction:   decimal.RequireFromString("75.00"),
		},
		OpasMetrics: dashboarddomain.OpasMetrics{
			PendingSubmissions: 2, ApprovedThisMonth: 1, TotalQuantityOnHand: 155,
			LowStockBatches: 1, ExpiringBatches: 1,
			TotalInventoryValue: decimal.RequireFromString("340.00"),
		},
		PriceCompliance: dashboarddomain.PriceCompliance{
			CompliantListings: 1, ViolatingListings: 1, ComplianceRate: 50,
		},
		Alerts: dashboarddomain.AlertMetrics{
			OpenByCategory: map[string]int64{"LOW_STOCK": 2},
			TotalOpen:      2,
		},
		HealthScore: 67,
	}
}

func TestPublisherDisabledByConfig(t *testing.T) {
	require.Nil(t, New(config.Config{}, zap.NewNop()))

	cfg := remoteWriteConfig("http://collector.example/api/v1/write")
	cfg.Oversight.Exporter = "carrier_pigeon"
	require.Nil(t, New(cfg, zap.NewNop()))

	cfg = remoteWriteConfig("")
	require.Nil(t, New(cfg, zap.NewNop()))
}

func TestPublishSendsSnapshotOverRemoteWrite(t *testing.T) {
	srv := newCaptureServer(t)
	pub := New(remoteWriteConfig(srv.server.URL), zap.NewNop())
	require.NotNil(t, pub)

	require.NoError(t, pub.Publish(context.Background(), sampleSnapshot()))

	req, headers := srv.lastRequest(t)
	require.Equal(t, "snappy", headers.Get("Content-Encoding"))
	require.Equal(t, "application/x-protobuf", headers.Get("Content-Type"))
	require.Equal(t, "0.1.0", headers.Get("X-Prometheus-Remote-Write-Version"))
	require.Equal(t, "Bearer feed-token", headers.Get("Authorization"))

	values := seriesValues(req)
	require.Equal(t, 67.0, values["agora_oversight_marketplace_health_score"])
	require.Equal(t, 5.0, values["agora_oversight_sellers:total"])
	require.Equal(t, 2.0, values["agora_oversight_sellers:active"])
	require.Equal(t, 75.0, values["agora_oversight_seller_approval_rate_pct"])
	require.Equal(t, 150.0, values["agora_oversight_sales_today"])
	require.Equal(t, 340.0, values["agora_oversight_inventory_value"])
	require.Equal(t, 50.0, values["agora_oversight_price_compliance_rate_pct"])
	require.Equal(t, 2.0, values["agora_oversight_open_alerts:LOW_STOCK"])
	require.Equal(t, 2.0, values["agora_oversight_open_alerts_total"])

	// Every series carries the market identity.
	for _, ts := range req.Timeseries {
		var market string
		for _, label := range ts.Labels {
			if label.Name == "market_id" {
				market = label.Value
			}
		}
		require.Equal(t, "PSR-7", market)
	}
}

func TestPublishResetsAlertCategories(t *testing.T) {
	srv := newCaptureServer(t)
	pub := New(remoteWriteConfig(srv.server.URL), zap.NewNop())
	require.NotNil(t, pub)

	require.NoError(t, pub.Publish(context.Background(), sampleSnapshot()))

	next := sampleSnapshot()
	next.Alerts = dashboarddomain.AlertMetrics{
		OpenByCategory: map[string]int64{"EXPIRING": 1},
		TotalOpen:      1,
	}
	require.NoError(t, pub.Publish(context.Background(), next))

	req, _ := srv.lastRequest(t)
	values := seriesValues(req)
	require.Equal(t, 1.0, values["agora_oversight_open_alerts:EXPIRING"])
	require.NotContains(t, values, "agora_oversight_open_alerts:LOW_STOCK",
		"a category cleared since the last snapshot must not linger")
}

func TestPublishSurfacesCollectorRejection(t *testing.T) {
	srv := newCaptureServer(t)
	srv.status = http.StatusBadGateway

	pub := New(remoteWriteConfig(srv.server.URL), zap.NewNop())
	require.NotNil(t, pub)

	err := pub.Publish(context.Background(), sampleSnapshot())
	require.Error(t, err)
	require.Contains(t, err.Error(), "502")
}
