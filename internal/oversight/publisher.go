package oversight

import (
	"context"

	"github.com/openagora/agora/internal/config"
	dashboarddomain "github.com/openagora/agora/internal/dashboard/domain"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Publisher maps dashboard snapshots onto oversight gauges and pushes
// them. The registry is private: these series never appear on the local
// /metrics endpoint.
type Publisher struct {
	registry *prometheus.Registry
	gauges   *snapshotGauges
	pusher   Pusher
}

// New builds the oversight publisher from config. It returns nil when the
// feed is disabled or misconfigured; callers treat a nil publisher as
// no feed.
func New(cfg config.Config, log *zap.Logger) dashboarddomain.Publisher {
	pusher := NewPusher(cfg, log)
	if pusher == nil {
		return nil
	}

	registry := prometheus.NewRegistry()
	return &Publisher{
		registry: registry,
		gauges:   newSnapshotGauges(registry, constLabels(cfg.Oversight)),
		pusher:   pusher,
	}
}

func constLabels(cfg config.OversightConfig) prometheus.Labels {
	labels := prometheus.Labels{}
	if cfg.MarketID != "" {
		labels["market_id"] = cfg.MarketID
	}
	if cfg.MarketName != "" {
		labels["market_name"] = cfg.MarketName
	}
	return labels
}

func (p *Publisher) Publish(ctx context.Context, snapshot dashboarddomain.Snapshot) error {
	p.gauges.set(snapshot)
	return p.pusher.Push(ctx, p.registry)
}
