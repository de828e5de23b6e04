package inventory

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rxsupply/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// BatchStatus is the lifecycle status of a lot
type BatchStatus string

const (
	BatchStatusActive  BatchStatus = "active"
	BatchStatusExpired BatchStatus = "expired"
	BatchStatusDamaged BatchStatus = "damaged"
)

// IsValid checks if the status is one of the known values
func (s BatchStatus) IsValid() bool {
	switch s {
	case BatchStatusActive, BatchStatusExpired, BatchStatusDamaged:
		return true
	}
	return false
}

// String returns the string representation
func (s BatchStatus) String() string {
	return string(s)
}

// Batch is a received quantity of one product size, tracked with its own
// expiry date and cost. QuantityAvailable always stays within [0, Quantity].
type Batch struct {
	shared.BaseEntity
	ProductID         uuid.UUID
	ProductSizeID     uuid.UUID
	BatchNumber       string
	LotNumber         string
	ManufacturingDate *time.Time
	ExpiryDate        *time.Time
	Quantity          int // total received
	QuantityAvailable int
	CostPerUnit       *decimal.Decimal
	SupplierID        *uuid.UUID
	Status            BatchStatus
	ReceivedDate      time.Time
}

// NewBatchParams holds the attributes of a lot being received
type NewBatchParams struct {
	ProductID         uuid.UUID
	ProductSizeID     uuid.UUID
	BatchNumber       string
	LotNumber         string
	ManufacturingDate *time.Time
	ExpiryDate        *time.Time
	Quantity          int
	CostPerUnit       *decimal.Decimal
	SupplierID        *uuid.UUID
	ReceivedDate      *time.Time
}

// NewBatch creates an active lot with its full quantity available
func NewBatch(p NewBatchParams) (*Batch, error) {
	if p.ProductID == uuid.Nil {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Product ID is required")
	}
	if p.ProductSizeID == uuid.Nil {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Product size ID is required")
	}
	if strings.TrimSpace(p.BatchNumber) == "" {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Batch number is required")
	}
	if p.Quantity <= 0 {
		return nil, shared.NewDomainError(CodeInvalidQuantity, "Received quantity must be positive")
	}
	if p.ManufacturingDate != nil && p.ExpiryDate != nil && !p.ExpiryDate.After(*p.ManufacturingDate) {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Expiry date must be after manufacturing date")
	}
	if p.CostPerUnit != nil && p.CostPerUnit.IsNegative() {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Cost per unit cannot be negative")
	}

	lotNumber := strings.TrimSpace(p.LotNumber)
	if lotNumber == "" {
		lotNumber = strings.TrimSpace(p.BatchNumber)
	}

	return &Batch{
		BaseEntity:        shared.NewBaseEntity(),
		ProductID:         p.ProductID,
		ProductSizeID:     p.ProductSizeID,
		BatchNumber:       strings.TrimSpace(p.BatchNumber),
		LotNumber:         lotNumber,
		ManufacturingDate: p.ManufacturingDate,
		ExpiryDate:        p.ExpiryDate,
		Quantity:          p.Quantity,
		QuantityAvailable: p.Quantity,
		CostPerUnit:       p.CostPerUnit,
		SupplierID:        p.SupplierID,
		Status:            BatchStatusActive,
		ReceivedDate:      receivedOrNow(p.ReceivedDate),
	}, nil
}

func receivedOrNow(t *time.Time) time.Time {
	if t == nil || t.IsZero() {
		return time.Now()
	}
	return *t
}

// IsActive returns true if the lot can still be allocated from
func (b *Batch) IsActive() bool {
	return b.Status == BatchStatusActive
}

// IsAvailable returns true if the lot is active and has stock left
func (b *Batch) IsAvailable() bool {
	return b.IsActive() && b.QuantityAvailable > 0
}

// IsExpiredAt returns true if the expiry date lies before t.
// Lots without an expiry date never expire.
func (b *Batch) IsExpiredAt(t time.Time) bool {
	if b.ExpiryDate == nil {
		return false
	}
	return b.ExpiryDate.Before(t)
}

// ExpiresOnOrBefore returns true if the lot has an expiry date not after cutoff
func (b *Batch) ExpiresOnOrBefore(cutoff time.Time) bool {
	if b.ExpiryDate == nil {
		return false
	}
	return !b.ExpiryDate.After(cutoff)
}

// DaysUntilExpiry returns whole days from now until expiry, -1 if no expiry date
func (b *Batch) DaysUntilExpiry(now time.Time) int {
	if b.ExpiryDate == nil {
		return -1
	}
	return int(b.ExpiryDate.Sub(now).Hours() / 24)
}

// Deduct removes quantity from the lot's available stock
func (b *Batch) Deduct(quantity int) error {
	if quantity <= 0 {
		return shared.NewDomainError(CodeInvalidQuantity, "Deduction quantity must be positive")
	}
	if !b.IsActive() {
		return shared.NewDomainErrorf(CodeBatchNotActive, "Batch %s is %s", b.BatchNumber, b.Status)
	}
	if quantity > b.QuantityAvailable {
		return NewInsufficientStockError(quantity, b.QuantityAvailable)
	}
	b.QuantityAvailable -= quantity
	b.Touch()
	return nil
}

// Adjust applies a signed delta to the available quantity. The result may
// not go below zero; a result above Quantity raises Quantity to match.
func (b *Batch) Adjust(delta int) error {
	if delta == 0 {
		return shared.NewDomainError(CodeInvalidQuantity, "Adjustment delta cannot be zero")
	}
	next := b.QuantityAvailable + delta
	if next < 0 {
		return shared.NewDomainErrorf(CodeNegativeQuantity,
			"Adjustment would result in negative quantity (available %d, delta %d)", b.QuantityAvailable, delta)
	}
	b.QuantityAvailable = next
	if next > b.Quantity {
		b.Quantity = next
	}
	b.Touch()
	return nil
}

// Restock puts returned units back into an active lot
func (b *Batch) Restock(quantity int) error {
	if quantity <= 0 {
		return shared.NewDomainError(CodeInvalidQuantity, "Return quantity must be positive")
	}
	if !b.IsActive() {
		return shared.NewDomainErrorf(CodeBatchNotActive, "Batch %s is %s", b.BatchNumber, b.Status)
	}
	if b.QuantityAvailable+quantity > b.Quantity {
		return shared.NewDomainErrorf(shared.ErrInvalidInput.Code,
			"Return of %d exceeds received quantity (available %d of %d)", quantity, b.QuantityAvailable, b.Quantity)
	}
	b.QuantityAvailable += quantity
	b.Touch()
	return nil
}

// MarkExpired moves an active lot to expired. QuantityAvailable is kept:
// expired stock is still physically present until disposed of.
func (b *Batch) MarkExpired() error {
	if !b.IsActive() {
		return shared.NewDomainErrorf(shared.ErrInvalidState.Code, "Cannot expire batch in status %s", b.Status)
	}
	b.Status = BatchStatusExpired
	b.Touch()
	return nil
}

// MarkDamaged writes off the lot and returns the quantity written off
func (b *Batch) MarkDamaged() (int, error) {
	if b.Status == BatchStatusDamaged {
		return 0, shared.NewDomainError(shared.ErrInvalidState.Code, "Batch is already marked damaged")
	}
	writtenOff := b.QuantityAvailable
	b.Status = BatchStatusDamaged
	b.QuantityAvailable = 0
	b.Touch()
	return writtenOff, nil
}

// AvailableValue returns available quantity times unit cost (zero when cost is unknown)
func (b *Batch) AvailableValue() decimal.Decimal {
	if b.CostPerUnit == nil {
		return decimal.Zero
	}
	return b.CostPerUnit.Mul(decimal.NewFromInt(int64(b.QuantityAvailable)))
}
