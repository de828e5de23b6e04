package persistence

import (
	"context"

	appinv "github.com/rxsupply/backend/internal/application/inventory"
	"github.com/rxsupply/backend/internal/domain/inventory"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction. The transaction is rolled
// back if fn returns an error or panics, and committed otherwise.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appinv.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories hands out repositories bound to one transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// BatchRepo returns the lot repository scoped to the current transaction.
func (r *gormTransactionalRepositories) BatchRepo() inventory.BatchRepository {
	return NewGormBatchRepository(r.tx)
}

// TransactionRepo returns the audit log repository scoped to the current transaction.
func (r *gormTransactionalRepositories) TransactionRepo() inventory.BatchTransactionRepository {
	return NewGormBatchTransactionRepository(r.tx)
}

// SizeRepo returns the product size repository scoped to the current transaction.
func (r *gormTransactionalRepositories) SizeRepo() inventory.ProductSizeRepository {
	return NewGormProductSizeRepository(r.tx)
}

var _ appinv.TransactionScope = (*GormTransactionScope)(nil)
var _ appinv.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
