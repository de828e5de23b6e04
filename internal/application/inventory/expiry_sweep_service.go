package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rxsupply/backend/internal/domain/inventory"
	"go.uber.org/zap"
)

// DefaultSweepBatchSize bounds the number of lots expired per sweep
const DefaultSweepBatchSize = 500

// BatchExpirer moves a single lot to expired
type BatchExpirer interface {
	MarkBatchExpired(ctx context.Context, batchID uuid.UUID, req StatusChangeRequest) (*BatchResponse, error)
}

// ExpirySweepService marks active lots whose expiry date has passed as
// expired, so they stop being allocated and leave the size counter.
type ExpirySweepService struct {
	batchRepo inventory.BatchRepository
	expirer   BatchExpirer
	batchSize int
	metrics   Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewExpirySweepService creates a new ExpirySweepService
func NewExpirySweepService(
	batchRepo inventory.BatchRepository,
	expirer BatchExpirer,
	batchSize int,
	logger *zap.Logger,
) *ExpirySweepService {
	if batchSize <= 0 {
		batchSize = DefaultSweepBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpirySweepService{
		batchRepo: batchRepo,
		expirer:   expirer,
		batchSize: batchSize,
		metrics:   noopMetrics{},
		logger:    logger,
		now:       time.Now,
	}
}

// SetMetrics sets the metrics recorder
func (s *ExpirySweepService) SetMetrics(metrics Metrics) {
	if metrics != nil {
		s.metrics = metrics
	}
}

// ExpirySweepStats contains statistics about one sweep
type ExpirySweepStats struct {
	Total       int       `json:"total"`
	Success     int       `json:"success"`
	Failed      int       `json:"failed"`
	ProcessedAt time.Time `json:"processed_at"`
}

// ExpireDueBatches expires every active lot whose expiry date lies before
// today (UTC). A lot that fails is logged and counted; the rest still run.
func (s *ExpirySweepService) ExpireDueBatches(ctx context.Context) (*ExpirySweepStats, error) {
	started := s.now()
	stats := &ExpirySweepStats{ProcessedAt: started}

	due, err := s.batchRepo.FindPastExpiry(ctx, startOfDayUTC(started), s.batchSize)
	if err != nil {
		s.logger.Error("Failed to find lots past expiry", zap.Error(err))
		return nil, err
	}

	stats.Total = len(due)
	if stats.Total == 0 {
		s.logger.Debug("No lots past expiry")
		return stats, nil
	}

	s.logger.Info("Found lots past expiry", zap.Int("count", stats.Total))

	for _, batch := range due {
		if ctx.Err() != nil {
			stats.Failed += stats.Total - stats.Success - stats.Failed
			break
		}
		_, err := s.expirer.MarkBatchExpired(ctx, batch.ID, StatusChangeRequest{Notes: "Expired by sweep"})
		if err != nil {
			s.logger.Error("Failed to expire lot",
				zap.String("batch_id", batch.ID.String()),
				zap.String("lot_number", batch.LotNumber),
				zap.Error(err),
			)
			stats.Failed++
			continue
		}
		stats.Success++
	}

	s.metrics.RecordExpirySweep(ctx, stats.Success, stats.Failed, s.now().Sub(started))
	s.logger.Info("Completed expiry sweep",
		zap.Int("total", stats.Total),
		zap.Int("expired", stats.Success),
		zap.Int("failed", stats.Failed),
	)
	return stats, nil
}

// Run sweeps once immediately and then on every interval until ctx is done
func (s *ExpirySweepService) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.ExpireDueBatches(ctx); err != nil {
			s.logger.Warn("Expiry sweep failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			s.logger.Info("Expiry sweep stopped")
			return
		case <-ticker.C:
		}
	}
}
