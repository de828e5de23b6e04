package inventory

import (
	"github.com/google/uuid"
	"github.com/rxsupply/backend/internal/domain/shared"
)

// ProductSize is a sellable size variant of a product. Stock is a
// denormalized counter of available units across its active lots.
type ProductSize struct {
	shared.BaseEntity
	ProductID uuid.UUID
	SizeName  string
	SKU       string
	Stock     int
}

// ClampedStock returns the counter after applying delta, never below zero
func ClampedStock(current, delta int) int {
	next := current + delta
	if next < 0 {
		return 0
	}
	return next
}
