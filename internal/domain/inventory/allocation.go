package inventory

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rxsupply/backend/internal/domain/shared"
)

// Allocation is a proposed, not yet committed, draw of quantity from one lot
type Allocation struct {
	BatchID       uuid.UUID
	ProductSizeID uuid.UUID
	LotNumber     string
	Quantity      int
	ExpiryDate    *time.Time
}

// AllocationStrategyType selects the lot ordering used for allocation
type AllocationStrategyType string

const (
	// AllocationStrategyFEFO consumes the earliest-expiring lots first,
	// lots without expiry last, ties broken by received date
	AllocationStrategyFEFO AllocationStrategyType = "FEFO"
	// AllocationStrategyFIFO consumes the oldest received lots first
	AllocationStrategyFIFO AllocationStrategyType = "FIFO"
)

// IsValid checks if the strategy type is valid
func (t AllocationStrategyType) IsValid() bool {
	return t == AllocationStrategyFEFO || t == AllocationStrategyFIFO
}

// AllocationStrategy orders candidate lots for greedy consumption
type AllocationStrategy interface {
	Type() AllocationStrategyType
	// Less reports whether lot a should be consumed before lot b
	Less(a, b *Batch) bool
}

// FEFOStrategy is first-expiry-first-out with a received-date fallback
type FEFOStrategy struct{}

// Type returns the strategy type
func (FEFOStrategy) Type() AllocationStrategyType { return AllocationStrategyFEFO }

// Less orders by expiry ascending (no expiry last), then received date, then ID
func (FEFOStrategy) Less(a, b *Batch) bool {
	switch {
	case a.ExpiryDate != nil && b.ExpiryDate != nil:
		if !a.ExpiryDate.Equal(*b.ExpiryDate) {
			return a.ExpiryDate.Before(*b.ExpiryDate)
		}
	case a.ExpiryDate != nil:
		return true
	case b.ExpiryDate != nil:
		return false
	}
	return receivedBefore(a, b)
}

// FIFOStrategy is first-in-first-out by received date
type FIFOStrategy struct{}

// Type returns the strategy type
func (FIFOStrategy) Type() AllocationStrategyType { return AllocationStrategyFIFO }

// Less orders by received date, then ID
func (FIFOStrategy) Less(a, b *Batch) bool {
	return receivedBefore(a, b)
}

func receivedBefore(a, b *Batch) bool {
	if !a.ReceivedDate.Equal(b.ReceivedDate) {
		return a.ReceivedDate.Before(b.ReceivedDate)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}

// NewAllocationStrategy returns the strategy for the given type.
// An empty type defaults to FEFO.
func NewAllocationStrategy(t AllocationStrategyType) (AllocationStrategy, error) {
	switch t {
	case "", AllocationStrategyFEFO:
		return FEFOStrategy{}, nil
	case AllocationStrategyFIFO:
		return FIFOStrategy{}, nil
	}
	return nil, shared.NewDomainErrorf(shared.ErrInvalidInput.Code, "Unknown allocation strategy %q", t)
}

// SortBatches returns the available lots in consumption order without
// modifying the input slice
func SortBatches(batches []Batch, strategy AllocationStrategy) []Batch {
	sorted := make([]Batch, 0, len(batches))
	for _, b := range batches {
		if b.IsAvailable() {
			sorted = append(sorted, b)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return strategy.Less(&sorted[i], &sorted[j])
	})
	return sorted
}

// Allocate greedily assigns the requested quantity across lots in strategy
// order. Either the returned allocations sum exactly to requested or an
// *InsufficientStockError reporting the shortfall is returned.
func Allocate(requested int, batches []Batch, strategy AllocationStrategy) ([]Allocation, error) {
	if requested <= 0 {
		return nil, shared.NewDomainError(CodeInvalidQuantity, "Requested quantity must be positive")
	}
	if strategy == nil {
		strategy = FEFOStrategy{}
	}

	remaining := requested
	allocations := make([]Allocation, 0)
	for _, b := range SortBatches(batches, strategy) {
		if remaining == 0 {
			break
		}
		take := min(b.QuantityAvailable, remaining)
		if take <= 0 {
			continue
		}
		allocations = append(allocations, Allocation{
			BatchID:       b.ID,
			ProductSizeID: b.ProductSizeID,
			LotNumber:     b.LotNumber,
			Quantity:      take,
			ExpiryDate:    b.ExpiryDate,
		})
		remaining -= take
	}

	if remaining > 0 {
		return nil, NewInsufficientStockError(requested, requested-remaining)
	}
	return allocations, nil
}

// TotalAllocated sums the allocated quantities
func TotalAllocated(allocations []Allocation) int {
	total := 0
	for _, a := range allocations {
		total += a.Quantity
	}
	return total
}

// TotalAvailable sums QuantityAvailable over the available lots
func TotalAvailable(batches []Batch) int {
	total := 0
	for _, b := range batches {
		if b.IsAvailable() {
			total += b.QuantityAvailable
		}
	}
	return total
}

// ValidateAllocations checks that a set of allocations can be committed
func ValidateAllocations(allocations []Allocation) error {
	if len(allocations) == 0 {
		return shared.NewDomainError(shared.ErrInvalidInput.Code, "At least one allocation is required")
	}
	seen := make(map[uuid.UUID]struct{}, len(allocations))
	for _, a := range allocations {
		if a.BatchID == uuid.Nil {
			return shared.NewDomainError(shared.ErrInvalidInput.Code, "Allocation batch ID is required")
		}
		if a.Quantity <= 0 {
			return shared.NewDomainErrorf(CodeInvalidQuantity, "Allocation quantity for lot %s must be positive", a.LotNumber)
		}
		if _, dup := seen[a.BatchID]; dup {
			return shared.NewDomainErrorf(shared.ErrInvalidInput.Code, "Batch %s appears more than once", a.BatchID)
		}
		seen[a.BatchID] = struct{}{}
	}
	return nil
}
