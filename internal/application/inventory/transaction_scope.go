package inventory

import (
	"context"

	"github.com/rxsupply/backend/internal/domain/inventory"
)

// TransactionScope provides transactional access to the lot repositories.
// All repository operations made through fn are committed together, or
// rolled back together when fn returns an error.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides the repositories bound to one transaction
type TransactionalRepositories interface {
	// BatchRepo returns the lot repository scoped to the current transaction
	BatchRepo() inventory.BatchRepository
	// TransactionRepo returns the audit log repository scoped to the current transaction
	TransactionRepo() inventory.BatchTransactionRepository
	// SizeRepo returns the product size repository scoped to the current transaction
	SizeRepo() inventory.ProductSizeRepository
}

// NoOpTransactionScope runs fn directly against the given repositories
// without a real transaction. Used in tests.
type NoOpTransactionScope struct {
	batchRepo       inventory.BatchRepository
	transactionRepo inventory.BatchTransactionRepository
	sizeRepo        inventory.ProductSizeRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	batchRepo inventory.BatchRepository,
	transactionRepo inventory.BatchTransactionRepository,
	sizeRepo inventory.ProductSizeRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		batchRepo:       batchRepo,
		transactionRepo: transactionRepo,
		sizeRepo:        sizeRepo,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// BatchRepo returns the lot repository.
func (s *NoOpTransactionScope) BatchRepo() inventory.BatchRepository {
	return s.batchRepo
}

// TransactionRepo returns the audit log repository.
func (s *NoOpTransactionScope) TransactionRepo() inventory.BatchTransactionRepository {
	return s.transactionRepo
}

// SizeRepo returns the product size repository.
func (s *NoOpTransactionScope) SizeRepo() inventory.ProductSizeRepository {
	return s.sizeRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
