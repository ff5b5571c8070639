package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
)

// BatchStock is the slice of a batch the consumption planner looks at.
type BatchStock struct {
	BatchID    snowflake.ID
	OnHand     int64
	ReceivedAt time.Time
	ExpiresAt  time.Time
}

// Draw is one planned take from a batch.
type Draw struct {
	BatchID snowflake.ID `json:"batch_id"`
	Taken   int64        `json:"taken"`
}

// InsufficientStockError rejects a consumption or adjustment the stock on
// hand cannot cover. Nothing is committed when it fires.
type InsufficientStockError struct {
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: requested %d, available %d", e.Requested, e.Available)
}

// PlanConsumption splits a requested quantity across batches oldest
// received first, expiry and then id breaking ties. Batches with nothing
// on hand are skipped. When the total on hand cannot cover the request it
// returns InsufficientStockError and no draws: consumption is all or
// nothing. Pure; callers wire it to locked rows.
func PlanConsumption(batches []BatchStock, quantity int64) ([]Draw, error) {
	open := make([]BatchStock, 0, len(batches))
	var available int64
	for _, batch := range batches {
		if batch.OnHand <= 0 {
			continue
		}
		open = append(open, batch)
		available += batch.OnHand
	}
	if available < quantity {
		return nil, &InsufficientStockError{Requested: quantity, Available: available}
	}

	sort.Slice(open, func(i, j int) bool {
		if !open[i].ReceivedAt.Equal(open[j].ReceivedAt) {
			return open[i].ReceivedAt.Before(open[j].ReceivedAt)
		}
		if !open[i].ExpiresAt.Equal(open[j].ExpiresAt) {
			return open[i].ExpiresAt.Before(open[j].ExpiresAt)
		}
		return open[i].BatchID < open[j].BatchID
	})

	draws := make([]Draw, 0, len(open))
	remaining := quantity
	for _, batch := range open {
		if remaining == 0 {
			break
		}
		take := batch.OnHand
		if take > remaining {
			take = remaining
		}
		draws = append(draws, Draw{BatchID: batch.BatchID, Taken: take})
		remaining -= take
	}
	return draws, nil
}
