package inventory

import (
	"context"
	"fmt"

	"github.com/rxsupply/backend/internal/domain/inventory"
	"github.com/rxsupply/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// StockCacheInvalidationHandler drops cached available totals whenever a
// lot of that size changes
type StockCacheInvalidationHandler struct {
	cache  StockCache
	logger *zap.Logger
}

// NewStockCacheInvalidationHandler creates a new handler for lot events
func NewStockCacheInvalidationHandler(cache StockCache, logger *zap.Logger) *StockCacheInvalidationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockCacheInvalidationHandler{
		cache:  cache,
		logger: logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *StockCacheInvalidationHandler) EventTypes() []string {
	return inventory.AllBatchEventTypes()
}

// Handle invalidates the cached total of the event's product size
func (h *StockCacheInvalidationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	changed, ok := event.(*inventory.BatchStockChangedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}

	if err := h.cache.Invalidate(ctx, changed.ProductSizeID); err != nil {
		h.logger.Warn("failed to invalidate stock cache",
			zap.String("product_size_id", changed.ProductSizeID.String()),
			zap.Error(err),
		)
		return err
	}

	h.logger.Debug("stock cache invalidated",
		zap.String("product_size_id", changed.ProductSizeID.String()),
		zap.String("event_type", changed.EventType()),
	)
	return nil
}

// Ensure StockCacheInvalidationHandler implements shared.EventHandler
var _ shared.EventHandler = (*StockCacheInvalidationHandler)(nil)
