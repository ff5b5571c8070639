package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/openagora/agora/internal/authorization"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/gorm"
)

func TestClassifyMutationReason(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: MutationReasonUnknown},
		{name: "deadline", err: context.DeadlineExceeded, want: MutationReasonDeadlineExceeded},
		{name: "canceled", err: context.Canceled, want: MutationReasonDeadlineExceeded},
		{name: "wrapped deadline", err: fmt.Errorf("consume batches: %w", context.DeadlineExceeded), want: MutationReasonDeadlineExceeded},
		{name: "forbidden", err: authorization.ErrForbidden, want: MutationReasonForbidden},
		{name: "wrapped forbidden", err: fmt.Errorf("adjust: %w", authorization.ErrForbidden), want: MutationReasonForbidden},
		{name: "lock timeout", err: &pgconn.PgError{Code: "55P03"}, want: MutationReasonDBLockTimeout},
		{name: "serialization failure", err: &pgconn.PgError{Code: "40001"}, want: MutationReasonSerializationFailure},
		{name: "unique violation pg", err: &pgconn.PgError{Code: "23505"}, want: MutationReasonUniqueViolation},
		{name: "unique violation gorm", err: gorm.ErrDuplicatedKey, want: MutationReasonUniqueViolation},
		{name: "plain error", err: errors.New("boom"), want: MutationReasonUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyMutationReason(tt.err)
			if got != tt.want {
				t.Fatalf("ClassifyMutationReason(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsMutationRetryable(t *testing.T) {
	if !IsMutationRetryable(&pgconn.PgError{Code: "55P03"}) {
		t.Fatalf("lock timeout should be retryable")
	}
	if !IsMutationRetryable(&pgconn.PgError{Code: "40001"}) {
		t.Fatalf("serialization failure should be retryable")
	}
	if IsMutationRetryable(gorm.ErrDuplicatedKey) {
		t.Fatalf("unique violation should not be retryable")
	}
	if IsMutationRetryable(nil) {
		t.Fatalf("nil error should not be retryable")
	}
}

func TestEngineMetricsCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newEngineMetrics(registry, Config{ServiceName: "agora-test", Environment: "test"})

	m.IncScanRun("scheduled")
	m.IncScanRun("scheduled")
	m.IncScanRun("manual")
	m.IncMutationError(MutationOpInventoryConsume, &pgconn.PgError{Code: "55P03"})
	m.IncSnapshotBuild("fresh")
	m.IncConsumeRejected("insufficient_stock")
	m.ObserveScanDuration("scheduled", 150*time.Millisecond)
	m.ObserveSnapshotDuration(20 * time.Millisecond)
	m.ObserveDBLockWait(LockResourceBatchesForConsume, 5*time.Millisecond)
	m.ObserveDBLockWait("unlisted_resource", time.Millisecond)

	if got := testutil.ToFloat64(m.scanRuns.WithLabelValues("scheduled")); got != 2 {
		t.Fatalf("scheduled scan runs = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.scanRuns.WithLabelValues("manual")); got != 1 {
		t.Fatalf("manual scan runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.mutationErrors.WithLabelValues(MutationOpInventoryConsume, MutationReasonDBLockTimeout)); got != 1 {
		t.Fatalf("mutation errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.snapshotBuilds.WithLabelValues("fresh")); got != 1 {
		t.Fatalf("snapshot builds = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.consumeRejected.WithLabelValues("insufficient_stock")); got != 1 {
		t.Fatalf("consume rejections = %v, want 1", got)
	}
}

func TestEngineMetricsNilSafe(t *testing.T) {
	var m *EngineMetrics
	m.IncScanRun("scheduled")
	m.IncMutationError(MutationOpScan, errors.New("boom"))
	m.IncSnapshotBuild("cache")
	m.ObserveScanDuration("scheduled", time.Second)
	m.ObserveSnapshotDuration(time.Second)
	m.ObserveDBLockWait(LockResourceBatchByID, time.Second)
}
