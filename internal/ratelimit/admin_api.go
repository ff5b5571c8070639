package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/openagora/agora/internal/config"
)

const (
	keyAdminMutateActor = "admin:mutate:actor:%s"
	keyAdminExport      = "admin:export:%s"
	keyComplianceScan   = "compliance:scan:lock"
)

// scanLockTTL bounds a stuck scan so the lock cannot be held forever.
const scanLockTTL = 2 * time.Minute

// AdminAPILimiter throttles mutating admin calls per actor and expensive
// export work per endpoint, and serializes full compliance scans.
type AdminAPILimiter struct {
	enabled bool

	bucket *TokenBucket
	locker *Locker

	actorRate   float64
	actorBurst  int
	exportRate  float64
	exportBurst int
}

func NewAdminAPILimiter(cfg config.Config) (*AdminAPILimiter, error) {
	if !cfg.RateLimitEnabled {
		return nil, nil
	}

	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if cfg.RateLimitRPS <= 0 || cfg.RateLimitBurst <= 0 {
		return nil, errors.New("actor rate limit must be positive")
	}
	if cfg.RateLimitExportRPS <= 0 || cfg.RateLimitExportBurst <= 0 {
		return nil, errors.New("export rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})

	return &AdminAPILimiter{
		enabled:     true,
		bucket:      NewTokenBucket(client),
		locker:      NewLocker(client),
		actorRate:   cfg.RateLimitRPS,
		actorBurst:  cfg.RateLimitBurst,
		exportRate:  cfg.RateLimitExportRPS,
		exportBurst: cfg.RateLimitExportBurst,
	}, nil
}

func (l *AdminAPILimiter) Enabled() bool {
	return l != nil && l.enabled
}

// AllowActor admits one mutating request for the given actor.
func (l *AdminAPILimiter) AllowActor(ctx context.Context, actorID string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyAdminMutateActor, strings.TrimSpace(actorID)), l.actorRate, l.actorBurst)
}

// AllowExport admits one export request for the given format.
func (l *AdminAPILimiter) AllowExport(ctx context.Context, format string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyAdminExport, strings.TrimSpace(format)), l.exportRate, l.exportBurst)
}

// TryLockScan acquires the single-flight lock for a full compliance scan.
func (l *AdminAPILimiter) TryLockScan(ctx context.Context) (string, bool, error) {
	if !l.Enabled() {
		return "", true, nil
	}
	return l.locker.TryLock(ctx, keyComplianceScan, scanLockTTL)
}

// ReleaseScan releases the compliance scan lock held with token.
func (l *AdminAPILimiter) ReleaseScan(ctx context.Context, token string) error {
	if !l.Enabled() {
		return nil
	}
	return l.locker.Release(ctx, keyComplianceScan, token)
}
