package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/rxsupply/backend/internal/domain/inventory"
	"github.com/rxsupply/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormBatchTransactionRepository implements BatchTransactionRepository using GORM.
// It only ever inserts; audit records are never updated or deleted.
type GormBatchTransactionRepository struct {
	db *gorm.DB
}

// NewGormBatchTransactionRepository creates a new GormBatchTransactionRepository
func NewGormBatchTransactionRepository(db *gorm.DB) *GormBatchTransactionRepository {
	return &GormBatchTransactionRepository{db: db}
}

// Create appends an audit record
func (r *GormBatchTransactionRepository) Create(ctx context.Context, tx *inventory.BatchTransaction) error {
	return r.db.WithContext(ctx).Create(models.BatchTransactionModelFromDomain(tx)).Error
}

// CreateMany appends several audit records in one statement
func (r *GormBatchTransactionRepository) CreateMany(ctx context.Context, txs []*inventory.BatchTransaction) error {
	if len(txs) == 0 {
		return nil
	}
	rows := make([]*models.BatchTransactionModel, len(txs))
	for i, tx := range txs {
		rows[i] = models.BatchTransactionModelFromDomain(tx)
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// FindByBatch returns the history of a lot, newest first
func (r *GormBatchTransactionRepository) FindByBatch(ctx context.Context, batchID uuid.UUID) ([]inventory.BatchTransaction, error) {
	var rows []models.BatchTransactionModel
	if err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	txs := make([]inventory.BatchTransaction, len(rows))
	for i := range rows {
		txs[i] = *rows[i].ToDomain()
	}
	return txs, nil
}

// ExistsByReference reports whether records of the given type exist for a reference
func (r *GormBatchTransactionRepository) ExistsByReference(ctx context.Context, txType inventory.TransactionType, referenceType, referenceID string) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).
		Model(&models.BatchTransactionModel{}).
		Where("transaction_type = ? AND reference_id = ?", string(txType), referenceID)
	if referenceType != "" {
		query = query.Where("reference_type = ?", referenceType)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Ensure GormBatchTransactionRepository implements BatchTransactionRepository
var _ inventory.BatchTransactionRepository = (*GormBatchTransactionRepository)(nil)
