package inventory

import (
	"fmt"

	"github.com/rxsupply/backend/internal/domain/shared"
)

// Inventory-specific error codes
const (
	CodeInvalidQuantity    = "INVALID_QUANTITY"
	CodeNegativeQuantity   = "NEGATIVE_QUANTITY"
	CodeBatchNotActive     = "BATCH_NOT_ACTIVE"
	CodeDuplicateReference = "DUPLICATE_REFERENCE"
)

// InsufficientStockError is returned when the requested quantity cannot be
// covered by the available lots. It unwraps to a DomainError with code
// INSUFFICIENT_STOCK.
type InsufficientStockError struct {
	Requested int
	Available int
}

// NewInsufficientStockError creates an InsufficientStockError
func NewInsufficientStockError(requested, available int) *InsufficientStockError {
	return &InsufficientStockError{Requested: requested, Available: available}
}

// Shortfall returns the unmet quantity
func (e *InsufficientStockError) Shortfall() int {
	return e.Requested - e.Available
}

// Error implements the error interface
func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock: requested %d, available %d, short by %d",
		e.Requested, e.Available, e.Shortfall())
}

// Unwrap exposes the equivalent DomainError
func (e *InsufficientStockError) Unwrap() error {
	return shared.NewDomainError(shared.ErrInsufficientStock.Code, e.Error())
}
