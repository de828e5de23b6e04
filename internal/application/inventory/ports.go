package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// StockCache caches the available quantity per product size
type StockCache interface {
	// GetAvailable returns the cached total and whether it was present
	GetAvailable(ctx context.Context, productSizeID uuid.UUID) (int, bool, error)
	// Generation returns a counter bumped by every Invalidate of the size
	Generation(ctx context.Context, productSizeID uuid.UUID) (uint64, error)
	// SetAvailable stores the total for ttl only if the size's generation
	// still equals generation
	SetAvailable(ctx context.Context, productSizeID uuid.UUID, available int, generation uint64, ttl time.Duration) error
	// Invalidate drops the cached totals of the given sizes and bumps their generation
	Invalidate(ctx context.Context, productSizeIDs ...uuid.UUID) error
}

// Metrics records inventory activity
type Metrics interface {
	RecordDeduction(ctx context.Context, units, lots int)
	RecordShortfall(ctx context.Context, shortfall int)
	RecordWriteOff(ctx context.Context, txType string, units int)
	RecordExpirySweep(ctx context.Context, succeeded, failed int, elapsed time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) RecordDeduction(context.Context, int, int) {}
func (noopMetrics) RecordShortfall(context.Context, int) {}
func (noopMetrics) RecordWriteOff(context.Context, string, int) {}
func (noopMetrics) RecordExpirySweep(context.Context, int, int, time.Duration) {}
