package service

import (
	"context"
	"math"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/openagora/agora/internal/compliance/domain"
	"github.com/openagora/agora/internal/observability/metrics"
	pricingdomain "github.com/openagora/agora/internal/pricing/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const scanTrigger = "manual"

// Scan classifies every active listing whose product has a ceiling in
// force. Listings without a ceiling sit outside the scan set entirely.
// The whole pass runs in one transaction so the scan sees a single
// point-in-time marketplace; alerts go out after commit.
func (s *Service) Scan(ctx context.Context) (domain.ScanResult, error) {
	if !s.scanning.CompareAndSwap(false, true) {
		return domain.ScanResult{}, domain.ErrScanInProgress
	}
	defer s.scanning.Store(false)

	token, ok, err := s.limiter.TryLockScan(ctx)
	if err != nil {
		return domain.ScanResult{}, err
	}
	if !ok {
		return domain.ScanResult{}, domain.ErrScanInProgress
	}
	defer func() { _ = s.limiter.ReleaseScan(ctx, token) }()

	start := time.Now()
	now := start.UTC()

	var (
		result     domain.ScanResult
		violations []domain.NonComplianceRecord
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		listings, err := s.listingRepo.ListActive(ctx, tx)
		if err != nil {
			return err
		}
		ceilings, err := s.pricingRepo.EffectiveCeilings(ctx, tx, now)
		if err != nil {
			return err
		}

		inForce := make(map[snowflake.ID]pricingdomain.PriceCeiling, len(ceilings))
		for _, ceiling := range ceilings {
			inForce[ceiling.ProductID] = ceiling
		}

		for _, listing := range listings {
			if listing == nil {
				continue
			}
			ceiling, regulated := inForce[listing.ProductID]
			if !regulated {
				continue
			}

			result.Scanned++
			decision := domain.Decide(listing.ListedPrice, &ceiling.Amount)
			if !decision.Violated() {
				result.Compliant++
				continue
			}
			result.Violations++

			record, existed, err := s.recordViolation(ctx, tx, violationInput{
				SellerID:    listing.SellerID,
				ProductID:   listing.ProductID,
				ListingID:   listing.ID,
				ListedPrice: listing.ListedPrice,
				Ceiling:     ceiling.Amount,
				OveragePct:  decision.OveragePct,
				DetectedAt:  now,
			})
			if err != nil {
				return err
			}
			if !existed {
				result.NewViolations++
			}
			violations = append(violations, *record)
		}
		return nil
	})
	if err != nil {
		s.metrics.IncMutationError(metrics.MutationOpScan, err)
		return domain.ScanResult{}, err
	}

	for _, record := range violations {
		if s.raiseViolationAlert(ctx, record) {
			result.AlertsRaised++
		}
	}

	if result.Scanned > 0 {
		rate := float64(result.Compliant) / float64(result.Scanned) * 100
		result.ComplianceRate = math.Round(rate*100) / 100
	}

	s.metrics.IncScanRun(scanTrigger)
	s.metrics.ObserveScanDuration(scanTrigger, time.Since(start))

	s.log.Info("compliance scan finished",
		zap.Int("scanned", result.Scanned),
		zap.Int("violations", result.Violations),
		zap.Int("new_violations", result.NewViolations),
		zap.Int("alerts_raised", result.AlertsRaised),
		zap.Duration("took", time.Since(start)),
	)

	if s.auditSvc != nil {
		_ = s.auditSvc.Record(ctx, "", nil, "compliance.scan", "compliance_scan", nil, map[string]any{
			"scanned":        result.Scanned,
			"violations":     result.Violations,
			"new_violations": result.NewViolations,
		})
	}

	return result, nil
}
