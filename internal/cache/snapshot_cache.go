package cache

import (
	"time"

	"github.com/openagora/agora/internal/clock"
	dashboarddomain "github.com/openagora/agora/internal/dashboard/domain"
)

const snapshotKey = "dashboard_snapshot"

// SnapshotCache holds the most recent dashboard snapshot. There is only
// ever one entry; the TTL comes from regulation config at call time.
type SnapshotCache interface {
	Get() (dashboarddomain.Snapshot, bool)
	Set(snapshot dashboarddomain.Snapshot, ttl time.Duration)
}

type snapshotCache struct {
	entries Cache[string, dashboarddomain.Snapshot]
}

// NewSnapshotCache returns a snapshot cache backed by the system clock.
func NewSnapshotCache() SnapshotCache {
	return NewSnapshotCacheWithClock(clock.NewSystem())
}

// NewSnapshotCacheWithClock returns a snapshot cache using the given clock.
func NewSnapshotCacheWithClock(clk clock.Clock) SnapshotCache {
	return &snapshotCache{
		entries: NewTTLCacheWithClock[string, dashboarddomain.Snapshot](clk),
	}
}

func (c *snapshotCache) Get() (dashboarddomain.Snapshot, bool) {
	return c.entries.Get(snapshotKey)
}

// Set stores the snapshot for ttl. A non-positive ttl disables caching
// entirely rather than pinning a stale snapshot forever.
func (c *snapshotCache) Set(snapshot dashboarddomain.Snapshot, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.entries.Set(snapshotKey, snapshot, ttl)
}
