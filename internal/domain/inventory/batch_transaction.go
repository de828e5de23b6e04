package inventory

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType identifies the kind of lot movement recorded in the audit log
type TransactionType string

const (
	TransactionTypeReceive    TransactionType = "receive"
	TransactionTypeSale       TransactionType = "sale"
	TransactionTypeAdjustment TransactionType = "adjustment"
	TransactionTypeReturn     TransactionType = "return"
	TransactionTypeExpired    TransactionType = "expired"
	TransactionTypeDamaged    TransactionType = "damaged"
)

// IsValid checks if the transaction type is valid
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeReceive, TransactionTypeSale, TransactionTypeAdjustment,
		TransactionTypeReturn, TransactionTypeExpired, TransactionTypeDamaged:
		return true
	}
	return false
}

// String returns the string representation
func (t TransactionType) String() string {
	return string(t)
}

// TransactionMeta carries the optional context attached to an audit record
type TransactionMeta struct {
	ReferenceID   string     // e.g. order ID
	ReferenceType string     // e.g. "order"
	Notes         string
	PerformedBy   *uuid.UUID // acting user
}

// BatchTransaction is an append-only audit record of one lot movement.
// Records are never updated or deleted.
type BatchTransaction struct {
	ID              uuid.UUID
	BatchID         uuid.UUID
	TransactionType TransactionType
	Quantity        int
	ReferenceID     string
	ReferenceType   string
	Notes           string
	PerformedBy     *uuid.UUID
	CreatedAt       time.Time
}

// NewBatchTransaction creates an audit record for a lot movement
func NewBatchTransaction(batchID uuid.UUID, txType TransactionType, quantity int, meta TransactionMeta) *BatchTransaction {
	return &BatchTransaction{
		ID:              uuid.New(),
		BatchID:         batchID,
		TransactionType: txType,
		Quantity:        quantity,
		ReferenceID:     meta.ReferenceID,
		ReferenceType:   meta.ReferenceType,
		Notes:           meta.Notes,
		PerformedBy:     meta.PerformedBy,
		CreatedAt:       time.Now(),
	}
}

// HasReference returns true if the record points at an external document
func (t *BatchTransaction) HasReference() bool {
	return t.ReferenceID != ""
}
