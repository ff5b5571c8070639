package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/openagora/agora/internal/authorization"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	MutationOpClassify         = "compliance_classify"
	MutationOpScan             = "compliance_scan"
	MutationOpInventoryReceive = "inventory_receive"
	MutationOpInventoryConsume = "inventory_consume"
	MutationOpInventoryAdjust  = "inventory_adjust"
	MutationOpCeilingCreate    = "ceiling_create"
	MutationOpSellerModerate   = "seller_moderate"
	MutationOpOpasSubmit       = "opas_submit"
	MutationOpOpasDecide       = "opas_decide"
)

const (
	MutationReasonDeadlineExceeded     = "deadline_exceeded"
	MutationReasonForbidden            = "forbidden"
	MutationReasonDBLockTimeout        = "db_lock_timeout"
	MutationReasonSerializationFailure = "serialization_failure"
	MutationReasonUniqueViolation      = "unique_violation"
	MutationReasonUnknown              = "unknown"
)

const (
	LockResourceBatchesForConsume = "inventory_batches_for_consume"
	LockResourceBatchByID         = "inventory_batch_by_id"
	LockResourceViolationDedupe   = "violation_dedupe"
	LockResourceOpasSubmission    = "opas_submission"
)

// EngineMetrics captures compliance engine health signals.
type EngineMetrics struct {
	scanRuns         *prometheus.CounterVec
	scanDuration     *prometheus.HistogramVec
	mutationErrors   *prometheus.CounterVec
	snapshotBuilds   *prometheus.CounterVec
	snapshotDuration prometheus.Observer
	consumeRejected  *prometheus.CounterVec
	dbLockWait       *prometheus.HistogramVec
	lockWaitObserver map[string]prometheus.Observer
}

var (
	engineMetricsOnce sync.Once
	engineMetrics     *EngineMetrics
)

// Engine returns the singleton engine metrics registry.
func Engine() *EngineMetrics {
	return EngineWithConfig(Config{})
}

// EngineWithConfig returns the singleton engine metrics registry using config labels.
func EngineWithConfig(cfg Config) *EngineMetrics {
	engineMetricsOnce.Do(func() {
		engineMetrics = newEngineMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return engineMetrics
}

// ResetEngineMetricsForTest resets the engine metrics singleton for tests.
func ResetEngineMetricsForTest() {
	engineMetricsOnce = sync.Once{}
	engineMetrics = nil
}

func newEngineMetrics(registerer prometheus.Registerer, cfg Config) *EngineMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "agora"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	scanRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "agora_compliance_scan_runs_total",
		Help:        "Compliance classifier scan runs by trigger.",
		ConstLabels: constLabels,
	}, []string{"trigger"})
	scanDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "agora_compliance_scan_duration_seconds",
		Help:        "Compliance scan latency across the active listing set.",
		Buckets:     []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		ConstLabels: constLabels,
	}, []string{"trigger"})
	mutationErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "agora_mutation_errors_total",
		Help:        "Ledger mutation errors by operation and low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"op", "reason"})
	snapshotBuilds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "agora_snapshot_builds_total",
		Help:        "Dashboard snapshot builds by source (fresh or cache).",
		ConstLabels: constLabels,
	}, []string{"source"})
	snapshotDurationVec := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "agora_snapshot_build_duration_seconds",
		Help:        "Dashboard snapshot aggregation latency.",
		Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		ConstLabels: constLabels,
	})
	consumeRejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "agora_inventory_consume_rejected_total",
		Help:        "Inventory consume rejections by reason.",
		ConstLabels: constLabels,
	}, []string{"reason"})
	dbLockWait := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "agora_db_lock_wait_seconds",
		Help:        "DB lock wait time for SELECT FOR UPDATE contention.",
		Buckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		ConstLabels: constLabels,
	}, []string{"resource"})

	registerer.MustRegister(
		scanRuns,
		scanDuration,
		mutationErrors,
		snapshotBuilds,
		snapshotDurationVec,
		consumeRejected,
		dbLockWait,
	)

	lockWaitObserver := map[string]prometheus.Observer{
		LockResourceBatchesForConsume: dbLockWait.WithLabelValues(LockResourceBatchesForConsume),
		LockResourceBatchByID:         dbLockWait.WithLabelValues(LockResourceBatchByID),
		LockResourceViolationDedupe:   dbLockWait.WithLabelValues(LockResourceViolationDedupe),
		LockResourceOpasSubmission:    dbLockWait.WithLabelValues(LockResourceOpasSubmission),
	}

	return &EngineMetrics{
		scanRuns:         scanRuns,
		scanDuration:     scanDuration,
		mutationErrors:   mutationErrors,
		snapshotBuilds:   snapshotBuilds,
		snapshotDuration: snapshotDurationVec,
		consumeRejected:  consumeRejected,
		dbLockWait:       dbLockWait,
		lockWaitObserver: lockWaitObserver,
	}
}

// IncScanRun increments the scan run counter for a trigger.
func (m *EngineMetrics) IncScanRun(trigger string) {
	if m == nil || m.scanRuns == nil {
		return
	}
	m.scanRuns.WithLabelValues(trigger).Inc()
}

// ObserveScanDuration records scan latency in seconds.
func (m *EngineMetrics) ObserveScanDuration(trigger string, duration time.Duration) {
	if m == nil || m.scanDuration == nil {
		return
	}
	m.scanDuration.WithLabelValues(trigger).Observe(duration.Seconds())
}

// IncMutationError increments mutation errors with reason classification.
func (m *EngineMetrics) IncMutationError(op string, err error) {
	if m == nil || m.mutationErrors == nil || err == nil {
		return
	}
	m.mutationErrors.WithLabelValues(op, ClassifyMutationReason(err)).Inc()
}

// IncSnapshotBuild increments snapshot build counts by source.
func (m *EngineMetrics) IncSnapshotBuild(source string) {
	if m == nil || m.snapshotBuilds == nil {
		return
	}
	m.snapshotBuilds.WithLabelValues(source).Inc()
}

// ObserveSnapshotDuration records snapshot aggregation latency.
func (m *EngineMetrics) ObserveSnapshotDuration(duration time.Duration) {
	if m == nil || m.snapshotDuration == nil {
		return
	}
	m.snapshotDuration.Observe(duration.Seconds())
}

// IncConsumeRejected increments consume rejections by reason.
func (m *EngineMetrics) IncConsumeRejected(reason string) {
	if m == nil || m.consumeRejected == nil {
		return
	}
	m.consumeRejected.WithLabelValues(reason).Inc()
}

// ObserveDBLockWait records lock wait time for SELECT FOR UPDATE work.
func (m *EngineMetrics) ObserveDBLockWait(resource string, duration time.Duration) {
	if m == nil {
		return
	}
	if observer, ok := m.lockWaitObserver[resource]; ok {
		observer.Observe(duration.Seconds())
		return
	}
	m.dbLockWait.WithLabelValues(resource).Observe(duration.Seconds())
}

// ClassifyMutationReason maps mutation errors to low-cardinality reasons.
func ClassifyMutationReason(err error) string {
	if err == nil {
		return MutationReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return MutationReasonDeadlineExceeded
	}
	if errors.Is(err, authorization.ErrForbidden) {
		return MutationReasonForbidden
	}
	if isDBLockTimeout(err) {
		return MutationReasonDBLockTimeout
	}
	if isSerializationFailure(err) {
		return MutationReasonSerializationFailure
	}
	if isUniqueViolation(err) {
		return MutationReasonUniqueViolation
	}
	return MutationReasonUnknown
}

// IsMutationRetryable reports whether the failed mutation is worth retrying.
func IsMutationRetryable(err error) bool {
	if err == nil {
		return false
	}
	return isDBLockTimeout(err) || isSerializationFailure(err)
}

func isDBLockTimeout(err error) bool {
	return hasPGCode(err, "55P03")
}

func isSerializationFailure(err error) bool {
	return hasPGCode(err, "40001")
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return hasPGCode(err, "23505")
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}
