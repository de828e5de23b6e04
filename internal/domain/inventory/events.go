package inventory

import (
	"github.com/google/uuid"
	"github.com/rxsupply/backend/internal/domain/shared"
)

// AggregateTypeBatch is the aggregate type for lot events
const AggregateTypeBatch = "ProductBatch"

// Event type constants
const (
	EventTypeBatchReceived = "BatchReceived"
	EventTypeBatchDeducted = "BatchDeducted"
	EventTypeBatchAdjusted = "BatchAdjusted"
	EventTypeBatchReturned = "BatchReturned"
	EventTypeBatchExpired  = "BatchExpired"
	EventTypeBatchDamaged  = "BatchDamaged"
)

// BatchStockChangedEvent is raised whenever a lot's available quantity or
// status changes. Delta is the change applied to the size-level counter.
type BatchStockChangedEvent struct {
	shared.BaseDomainEvent
	BatchID         uuid.UUID       `json:"batch_id"`
	ProductID       uuid.UUID       `json:"product_id"`
	ProductSizeID   uuid.UUID       `json:"product_size_id"`
	LotNumber       string          `json:"lot_number"`
	TransactionType TransactionType `json:"transaction_type"`
	Quantity        int             `json:"quantity"`
	Delta           int             `json:"delta"`
	ReferenceID     string          `json:"reference_id,omitempty"`
}

// NewBatchStockChangedEvent creates an event of the given type for a lot
func NewBatchStockChangedEvent(eventType string, b *Batch, txType TransactionType, quantity, delta int, referenceID string) *BatchStockChangedEvent {
	return &BatchStockChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeBatch, b.ID),
		BatchID:         b.ID,
		ProductID:       b.ProductID,
		ProductSizeID:   b.ProductSizeID,
		LotNumber:       b.LotNumber,
		TransactionType: txType,
		Quantity:        quantity,
		Delta:           delta,
		ReferenceID:     referenceID,
	}
}

// AllBatchEventTypes lists every lot event type
func AllBatchEventTypes() []string {
	return []string{
		EventTypeBatchReceived,
		EventTypeBatchDeducted,
		EventTypeBatchAdjusted,
		EventTypeBatchReturned,
		EventTypeBatchExpired,
		EventTypeBatchDamaged,
	}
}
