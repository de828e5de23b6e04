package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/rxsupply/backend/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// BatchResponse represents a lot in API responses
type BatchResponse struct {
	ID                uuid.UUID        `json:"id"`
	ProductID         uuid.UUID        `json:"product_id"`
	ProductSizeID     uuid.UUID        `json:"product_size_id"`
	BatchNumber       string           `json:"batch_number"`
	LotNumber         string           `json:"lot_number"`
	ManufacturingDate *time.Time       `json:"manufacturing_date,omitempty"`
	ExpiryDate        *time.Time       `json:"expiry_date,omitempty"`
	DaysUntilExpiry   *int             `json:"days_until_expiry,omitempty"`
	Quantity          int              `json:"quantity"`
	QuantityAvailable int              `json:"quantity_available"`
	CostPerUnit       *decimal.Decimal `json:"cost_per_unit,omitempty"`
	SupplierID        *uuid.UUID       `json:"supplier_id,omitempty"`
	Status            string           `json:"status"`
	ReceivedDate      time.Time        `json:"received_date"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// ToBatchResponse converts a domain lot to a response
func ToBatchResponse(b *inventory.Batch, now time.Time) BatchResponse {
	resp := BatchResponse{
		ID:                b.ID,
		ProductID:         b.ProductID,
		ProductSizeID:     b.ProductSizeID,
		BatchNumber:       b.BatchNumber,
		LotNumber:         b.LotNumber,
		ManufacturingDate: b.ManufacturingDate,
		ExpiryDate:        b.ExpiryDate,
		Quantity:          b.Quantity,
		QuantityAvailable: b.QuantityAvailable,
		CostPerUnit:       b.CostPerUnit,
		SupplierID:        b.SupplierID,
		Status:            b.Status.String(),
		ReceivedDate:      b.ReceivedDate,
		CreatedAt:         b.CreatedAt,
		UpdatedAt:         b.UpdatedAt,
	}
	if b.ExpiryDate != nil {
		days := b.DaysUntilExpiry(now)
		resp.DaysUntilExpiry = &days
	}
	return resp
}

// ToBatchResponses converts a slice of lots
func ToBatchResponses(batches []inventory.Batch, now time.Time) []BatchResponse {
	out := make([]BatchResponse, len(batches))
	for i := range batches {
		out[i] = ToBatchResponse(&batches[i], now)
	}
	return out
}

// BatchTransactionResponse represents an audit record in API responses
type BatchTransactionResponse struct {
	ID              uuid.UUID  `json:"id"`
	BatchID         uuid.UUID  `json:"batch_id"`
	TransactionType string     `json:"transaction_type"`
	Quantity        int        `json:"quantity"`
	ReferenceID     string     `json:"reference_id,omitempty"`
	ReferenceType   string     `json:"reference_type,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	PerformedBy     *uuid.UUID `json:"performed_by,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// ToBatchTransactionResponses converts audit records
func ToBatchTransactionResponses(txs []inventory.BatchTransaction) []BatchTransactionResponse {
	out := make([]BatchTransactionResponse, len(txs))
	for i, tx := range txs {
		out[i] = BatchTransactionResponse{
			ID:              tx.ID,
			BatchID:         tx.BatchID,
			TransactionType: tx.TransactionType.String(),
			Quantity:        tx.Quantity,
			ReferenceID:     tx.ReferenceID,
			ReferenceType:   tx.ReferenceType,
			Notes:           tx.Notes,
			PerformedBy:     tx.PerformedBy,
			CreatedAt:       tx.CreatedAt,
		}
	}
	return out
}

// AllocationResponse is one line of an allocation plan
type AllocationResponse struct {
	BatchID       uuid.UUID  `json:"batch_id"`
	ProductSizeID uuid.UUID  `json:"product_size_id"`
	LotNumber     string     `json:"lot_number"`
	Quantity      int        `json:"quantity"`
	ExpiryDate    *time.Time `json:"expiry_date,omitempty"`
}

// AllocationResult is an allocation plan with its total
type AllocationResult struct {
	Allocations   []AllocationResponse `json:"allocations"`
	TotalQuantity int                  `json:"total_quantity"`
	ReferenceID   string               `json:"reference_id,omitempty"`
}

// ToAllocationResult converts domain allocations to a result
func ToAllocationResult(allocations []inventory.Allocation, referenceID string) *AllocationResult {
	lines := make([]AllocationResponse, len(allocations))
	for i, a := range allocations {
		lines[i] = AllocationResponse{
			BatchID:       a.BatchID,
			ProductSizeID: a.ProductSizeID,
			LotNumber:     a.LotNumber,
			Quantity:      a.Quantity,
			ExpiryDate:    a.ExpiryDate,
		}
	}
	return &AllocationResult{
		Allocations:   lines,
		TotalQuantity: inventory.TotalAllocated(allocations),
		ReferenceID:   referenceID,
	}
}

// CreateBatchRequest receives a new lot for a product size
type CreateBatchRequest struct {
	ProductSizeID     uuid.UUID        `json:"product_size_id" binding:"required"`
	BatchNumber       string           `json:"batch_number" binding:"required,max=100"`
	LotNumber         string           `json:"lot_number" binding:"max=100"`
	ManufacturingDate *Date            `json:"manufacturing_date" swaggertype:"string" format:"date" example:"2024-08-01"`
	ExpiryDate        *Date            `json:"expiry_date" swaggertype:"string" format:"date" example:"2025-02-01"`
	Quantity          int              `json:"quantity" binding:"required,gt=0"`
	CostPerUnit       *decimal.Decimal `json:"cost_per_unit"`
	SupplierID        *uuid.UUID       `json:"supplier_id"`
	ReceivedDate      *time.Time       `json:"received_date"`
	Notes             string           `json:"notes" binding:"max=500"`
	PerformedBy       *uuid.UUID       `json:"-"`
}

// AdjustBatchRequest applies a signed correction to a lot
type AdjustBatchRequest struct {
	Delta       int        `json:"delta"`
	Notes       string     `json:"notes" binding:"max=500"`
	PerformedBy *uuid.UUID `json:"-"`
}

// ReturnToBatchRequest puts sold units back into a lot
type ReturnToBatchRequest struct {
	Quantity      int        `json:"quantity" binding:"required,gt=0"`
	ReferenceID   string     `json:"reference_id" binding:"max=100"`
	ReferenceType string     `json:"reference_type" binding:"max=50"`
	Notes         string     `json:"notes" binding:"max=500"`
	PerformedBy   *uuid.UUID `json:"-"`
}

// StatusChangeRequest carries the notes for expire and damage
type StatusChangeRequest struct {
	Notes       string     `json:"notes" binding:"max=500"`
	PerformedBy *uuid.UUID `json:"-"`
}

// AllocateRequest asks for an allocation plan without committing it
type AllocateRequest struct {
	ProductSizeID uuid.UUID `json:"product_size_id" binding:"required"`
	Quantity      int       `json:"quantity" binding:"required,gt=0"`
}

// AllocationInput is one line of a deduction request
type AllocationInput struct {
	BatchID  uuid.UUID `json:"batch_id" binding:"required"`
	Quantity int       `json:"quantity" binding:"required,gt=0"`
}

// DeductRequest commits a previously computed allocation plan
type DeductRequest struct {
	Allocations   []AllocationInput `json:"allocations" binding:"required,min=1,dive"`
	ReferenceID   string            `json:"reference_id" binding:"max=100"`
	ReferenceType string            `json:"reference_type" binding:"max=50"`
	Notes         string            `json:"notes" binding:"max=500"`
	PerformedBy   *uuid.UUID        `json:"-"`
}

// Meta returns the audit metadata shared by every line of the deduction
func (r DeductRequest) Meta() inventory.TransactionMeta {
	return inventory.TransactionMeta{
		ReferenceID:   r.ReferenceID,
		ReferenceType: r.ReferenceType,
		Notes:         r.Notes,
		PerformedBy:   r.PerformedBy,
	}
}

// FulfillRequest allocates and deducts in one step
type FulfillRequest struct {
	ProductSizeID uuid.UUID  `json:"product_size_id" binding:"required"`
	Quantity      int        `json:"quantity" binding:"required,gt=0"`
	ReferenceID   string     `json:"reference_id" binding:"max=100"`
	ReferenceType string     `json:"reference_type" binding:"max=50"`
	Notes         string     `json:"notes" binding:"max=500"`
	PerformedBy   *uuid.UUID `json:"-"`
}

// BatchListFilter represents filter options for lot listings
type BatchListFilter struct {
	Search        string
	ProductID     *uuid.UUID
	ProductSizeID *uuid.UUID
	SupplierID    *uuid.UUID
	Status        string
	HasStock      *bool
	Page          int
	PageSize      int
	OrderBy       string
	OrderDir      string
}

// BatchListResult is a page of lots with the total match count
type BatchListResult struct {
	Items []BatchResponse `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Size  int             `json:"page_size"`
}

// AvailableQuantityResponse is the total available quantity of a size
type AvailableQuantityResponse struct {
	ProductSizeID uuid.UUID `json:"product_size_id"`
	Available     int       `json:"available"`
}

// InventoryValueResponse is the cost value of the available stock of a size
type InventoryValueResponse struct {
	ProductSizeID uuid.UUID       `json:"product_size_id"`
	Available     int             `json:"available"`
	Value         decimal.Decimal `json:"value"`
	LotCount      int             `json:"lot_count"`
}

// ReconcileResult reports a counter recomputation
type ReconcileResult struct {
	ProductSizeID uuid.UUID `json:"product_size_id"`
	PreviousStock int       `json:"previous_stock"`
	Stock         int       `json:"stock"`
	Drift         int       `json:"drift"`
}

// Meta returns the audit metadata for the fulfillment
func (r FulfillRequest) Meta() inventory.TransactionMeta {
	return inventory.TransactionMeta{
		ReferenceID:   r.ReferenceID,
		ReferenceType: r.ReferenceType,
		Notes:         r.Notes,
		PerformedBy:   r.PerformedBy,
	}
}

// ToAllocations converts the request lines to domain allocations
func (r DeductRequest) ToAllocations() []inventory.Allocation {
	out := make([]inventory.Allocation, len(r.Allocations))
	for i, a := range r.Allocations {
		out[i] = inventory.Allocation{BatchID: a.BatchID, Quantity: a.Quantity}
	}
	return out
}
