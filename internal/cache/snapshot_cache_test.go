package cache

import (
	"testing"
	"time"

	"github.com/openagora/agora/internal/clock"
	dashboarddomain "github.com/openagora/agora/internal/dashboard/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotCacheServesWithinTTL(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	c := NewSnapshotCacheWithClock(clk)

	_, ok := c.Get()
	require.False(t, ok, "empty cache should miss")

	snap := dashboarddomain.Snapshot{Timestamp: clk.Now(), HealthScore: 67}
	c.Set(snap, 30*time.Second)

	got, ok := c.Get()
	require.True(t, ok)
	assert.Equal(t, 67, got.HealthScore)

	clk.Advance(31 * time.Second)
	_, ok = c.Get()
	assert.False(t, ok, "snapshot should expire once the TTL elapses")
}

func TestSnapshotCacheZeroTTLDisablesCaching(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	c := NewSnapshotCacheWithClock(clk)

	c.Set(dashboarddomain.Snapshot{HealthScore: 50}, 0)

	_, ok := c.Get()
	assert.False(t, ok, "a non-positive TTL should store nothing")
}

func TestSnapshotCacheSetReplacesPrevious(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	c := NewSnapshotCacheWithClock(clk)

	c.Set(dashboarddomain.Snapshot{HealthScore: 40}, 30*time.Second)
	clk.Advance(10 * time.Second)
	c.Set(dashboarddomain.Snapshot{HealthScore: 55}, 30*time.Second)

	got, ok := c.Get()
	require.True(t, ok)
	assert.Equal(t, 55, got.HealthScore)
}
