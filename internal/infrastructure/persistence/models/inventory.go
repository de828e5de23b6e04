package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/rxsupply/backend/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// ProductSizeModel is the persistence model for the ProductSize entity.
type ProductSizeModel struct {
	BaseModel
	ProductID uuid.UUID `gorm:"type:uuid;not null;index"`
	SizeName  string    `gorm:"type:varchar(100);not null"`
	SKU       string    `gorm:"column:sku;type:varchar(100);index"`
	Stock     int       `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (ProductSizeModel) TableName() string {
	return "product_sizes"
}

// ToDomain converts the persistence model to a domain ProductSize entity.
func (m *ProductSizeModel) ToDomain() *inventory.ProductSize {
	return &inventory.ProductSize{
		BaseEntity: m.BaseModel.ToDomain(),
		ProductID:  m.ProductID,
		SizeName:   m.SizeName,
		SKU:        m.SKU,
		Stock:      m.Stock,
	}
}

// FromDomain populates the persistence model from a domain ProductSize entity.
func (m *ProductSizeModel) FromDomain(s *inventory.ProductSize) {
	m.FromDomainBaseEntity(s.BaseEntity)
	m.ProductID = s.ProductID
	m.SizeName = s.SizeName
	m.SKU = s.SKU
	m.Stock = s.Stock
}

// ProductSizeModelFromDomain creates a new persistence model from a domain ProductSize entity.
func ProductSizeModelFromDomain(s *inventory.ProductSize) *ProductSizeModel {
	m := &ProductSizeModel{}
	m.FromDomain(s)
	return m
}

// ProductBatchModel is the persistence model for the Batch entity.
type ProductBatchModel struct {
	BaseModel
	ProductID         uuid.UUID        `gorm:"type:uuid;not null;index"`
	ProductSizeID     uuid.UUID        `gorm:"type:uuid;not null;index:idx_product_batches_size_status"`
	BatchNumber       string           `gorm:"type:varchar(100);not null"`
	LotNumber         string           `gorm:"type:varchar(100);not null"`
	ManufacturingDate *time.Time       `gorm:"type:date"`
	ExpiryDate        *time.Time       `gorm:"type:date;index"`
	Quantity          int              `gorm:"not null"`
	QuantityAvailable int              `gorm:"not null"`
	CostPerUnit       *decimal.Decimal `gorm:"type:decimal(12,4)"`
	SupplierID        *uuid.UUID       `gorm:"type:uuid"`
	Status            string           `gorm:"type:varchar(20);not null;default:'active';index:idx_product_batches_size_status"`
	ReceivedDate      time.Time        `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProductBatchModel) TableName() string {
	return "product_batches"
}

// ToDomain converts the persistence model to a domain Batch entity.
func (m *ProductBatchModel) ToDomain() *inventory.Batch {
	return &inventory.Batch{
		BaseEntity:        m.BaseModel.ToDomain(),
		ProductID:         m.ProductID,
		ProductSizeID:     m.ProductSizeID,
		BatchNumber:       m.BatchNumber,
		LotNumber:         m.LotNumber,
		ManufacturingDate: m.ManufacturingDate,
		ExpiryDate:        m.ExpiryDate,
		Quantity:          m.Quantity,
		QuantityAvailable: m.QuantityAvailable,
		CostPerUnit:       m.CostPerUnit,
		SupplierID:        m.SupplierID,
		Status:            inventory.BatchStatus(m.Status),
		ReceivedDate:      m.ReceivedDate,
	}
}

// FromDomain populates the persistence model from a domain Batch entity.
func (m *ProductBatchModel) FromDomain(b *inventory.Batch) {
	m.FromDomainBaseEntity(b.BaseEntity)
	m.ProductID = b.ProductID
	m.ProductSizeID = b.ProductSizeID
	m.BatchNumber = b.BatchNumber
	m.LotNumber = b.LotNumber
	m.ManufacturingDate = b.ManufacturingDate
	m.ExpiryDate = b.ExpiryDate
	m.Quantity = b.Quantity
	m.QuantityAvailable = b.QuantityAvailable
	m.CostPerUnit = b.CostPerUnit
	m.SupplierID = b.SupplierID
	m.Status = string(b.Status)
	m.ReceivedDate = b.ReceivedDate
}

// ProductBatchModelFromDomain creates a new persistence model from a domain Batch entity.
func ProductBatchModelFromDomain(b *inventory.Batch) *ProductBatchModel {
	m := &ProductBatchModel{}
	m.FromDomain(b)
	return m
}

// BatchTransactionModel is the persistence model for the BatchTransaction
// audit record. Rows are insert-only, so there is no updated_at column.
type BatchTransactionModel struct {
	ID              uuid.UUID  `gorm:"type:uuid;primary_key"`
	BatchID         uuid.UUID  `gorm:"type:uuid;not null;index"`
	TransactionType string     `gorm:"type:varchar(20);not null"`
	Quantity        int        `gorm:"not null"`
	ReferenceID     *string    `gorm:"type:varchar(100);index:idx_batch_transactions_reference"`
	ReferenceType   *string    `gorm:"type:varchar(50);index:idx_batch_transactions_reference"`
	Notes           *string    `gorm:"type:text"`
	PerformedBy     *uuid.UUID `gorm:"type:uuid"`
	CreatedAt       time.Time  `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (BatchTransactionModel) TableName() string {
	return "batch_transactions"
}

// ToDomain converts the persistence model to a domain BatchTransaction.
func (m *BatchTransactionModel) ToDomain() *inventory.BatchTransaction {
	return &inventory.BatchTransaction{
		ID:              m.ID,
		BatchID:         m.BatchID,
		TransactionType: inventory.TransactionType(m.TransactionType),
		Quantity:        m.Quantity,
		ReferenceID:     derefString(m.ReferenceID),
		ReferenceType:   derefString(m.ReferenceType),
		Notes:           derefString(m.Notes),
		PerformedBy:     m.PerformedBy,
		CreatedAt:       m.CreatedAt,
	}
}

// FromDomain populates the persistence model from a domain BatchTransaction.
func (m *BatchTransactionModel) FromDomain(t *inventory.BatchTransaction) {
	m.ID = t.ID
	m.BatchID = t.BatchID
	m.TransactionType = string(t.TransactionType)
	m.Quantity = t.Quantity
	m.ReferenceID = optionalString(t.ReferenceID)
	m.ReferenceType = optionalString(t.ReferenceType)
	m.Notes = optionalString(t.Notes)
	m.PerformedBy = t.PerformedBy
	m.CreatedAt = t.CreatedAt
}

// BatchTransactionModelFromDomain creates a new persistence model from a domain BatchTransaction.
func BatchTransactionModelFromDomain(t *inventory.BatchTransaction) *BatchTransactionModel {
	m := &BatchTransactionModel{}
	m.FromDomain(t)
	return m
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// AllModels returns every model managed by this service, in dependency order
func AllModels() []any {
	return []any{
		&ProductSizeModel{},
		&ProductBatchModel{},
		&BatchTransactionModel{},
	}
}
