package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rxsupply/backend/internal/domain/shared"
)

// BatchRepository defines persistence for lots (table product_batches)
type BatchRepository interface {
	// FindByID finds a lot by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Batch, error)

	// FindByIDForUpdate finds a lot and locks its row until the surrounding
	// transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Batch, error)

	// FindAvailableBySize returns active lots with stock for a size,
	// ordered by expiry ascending (no expiry last), then received date
	FindAvailableBySize(ctx context.Context, productSizeID uuid.UUID) ([]Batch, error)

	// FindAvailableBySizeForUpdate is FindAvailableBySize with row locks
	FindAvailableBySizeForUpdate(ctx context.Context, productSizeID uuid.UUID) ([]Batch, error)

	// FindExpiring returns active lots with stock whose expiry date is on or
	// before cutoff, expiry ascending
	FindExpiring(ctx context.Context, cutoff time.Time) ([]Batch, error)

	// FindPastExpiry returns active lots whose expiry date is before asOf
	FindPastExpiry(ctx context.Context, asOf time.Time, limit int) ([]Batch, error)

	// FindAll lists lots matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Batch, error)

	// Count counts lots matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// Save creates or updates a lot
	Save(ctx context.Context, batch *Batch) error

	// DecrementAvailable subtracts quantity from an active lot only if at
	// least that much is available. Returns an *InsufficientStockError when
	// the guard fails.
	DecrementAvailable(ctx context.Context, id uuid.UUID, quantity int) error

	// SumAvailableBySize sums quantity_available over active lots of a size
	SumAvailableBySize(ctx context.Context, productSizeID uuid.UUID) (int, error)
}

// BatchTransactionRepository defines persistence for the append-only
// audit log (table batch_transactions)
type BatchTransactionRepository interface {
	// Create appends an audit record
	Create(ctx context.Context, tx *BatchTransaction) error

	// CreateMany appends several audit records
	CreateMany(ctx context.Context, txs []*BatchTransaction) error

	// FindByBatch returns the history of a lot, newest first
	FindByBatch(ctx context.Context, batchID uuid.UUID) ([]BatchTransaction, error)

	// ExistsByReference reports whether records of the given type exist for a reference
	ExistsByReference(ctx context.Context, txType TransactionType, referenceType, referenceID string) (bool, error)
}

// ProductSizeRepository defines persistence for size variants and their
// denormalized stock counter (table product_sizes)
type ProductSizeRepository interface {
	// FindByID finds a product size by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*ProductSize, error)

	// Save creates or updates a product size
	Save(ctx context.Context, size *ProductSize) error

	// ApplyStockDelta adds delta to the stock counter, clamping at zero
	ApplyStockDelta(ctx context.Context, id uuid.UUID, delta int) error

	// SetStock overwrites the stock counter
	SetStock(ctx context.Context, id uuid.UUID, stock int) error
}
