package domain

import (
	"context"
	"fmt"
)

type Service interface {
	// GetStats returns the current dashboard snapshot, served from cache
	// when a fresh enough one exists.
	GetStats(ctx context.Context) (Snapshot, error)
}

// Publisher forwards freshly built snapshots to an external oversight
// sink. Publishing is best-effort; a failing sink never fails GetStats.
type Publisher interface {
	Publish(ctx context.Context, snapshot Snapshot) error
}

// AggregationFailure names the metric group that failed so operators can
// tell a broken orders query from a broken alerts query.
type AggregationFailure struct {
	Group string
	Err   error
}

func (e *AggregationFailure) Error() string {
	return fmt.Sprintf("aggregating %s: %v", e.Group, e.Err)
}

func (e *AggregationFailure) Unwrap() error {
	return e.Err
}
