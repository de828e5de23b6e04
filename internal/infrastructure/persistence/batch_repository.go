package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rxsupply/backend/internal/domain/inventory"
	"github.com/rxsupply/backend/internal/domain/shared"
	"github.com/rxsupply/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// fefoOrder is earliest expiry first, lots without expiry last, then oldest received
const fefoOrder = "COALESCE(expiry_date, '9999-12-31') ASC, received_date ASC, created_at ASC, id ASC"

// GormBatchRepository implements BatchRepository using GORM
type GormBatchRepository struct {
	db *gorm.DB
}

// NewGormBatchRepository creates a new GormBatchRepository
func NewGormBatchRepository(db *gorm.DB) *GormBatchRepository {
	return &GormBatchRepository{db: db}
}

// FindByID finds a lot by its ID
func (r *GormBatchRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Batch, error) {
	return r.findByID(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds a lot and locks its row (SELECT ... FOR UPDATE)
func (r *GormBatchRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*inventory.Batch, error) {
	return r.findByID(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormBatchRepository) findByID(query *gorm.DB, id uuid.UUID) (*inventory.Batch, error) {
	var model models.ProductBatchModel
	if err := query.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAvailableBySize returns active lots with stock for a size in FEFO order
func (r *GormBatchRepository) FindAvailableBySize(ctx context.Context, productSizeID uuid.UUID) ([]inventory.Batch, error) {
	return r.findAvailable(r.db.WithContext(ctx), productSizeID)
}

// FindAvailableBySizeForUpdate is FindAvailableBySize with row locks held
// until the surrounding transaction ends
func (r *GormBatchRepository) FindAvailableBySizeForUpdate(ctx context.Context, productSizeID uuid.UUID) ([]inventory.Batch, error) {
	return r.findAvailable(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), productSizeID)
}

func (r *GormBatchRepository) findAvailable(query *gorm.DB, productSizeID uuid.UUID) ([]inventory.Batch, error) {
	var batchModels []models.ProductBatchModel
	if err := query.
		Where("product_size_id = ? AND status = ? AND quantity_available > 0", productSizeID, string(inventory.BatchStatusActive)).
		Order(fefoOrder).
		Find(&batchModels).Error; err != nil {
		return nil, err
	}
	return toDomainBatches(batchModels), nil
}

// FindExpiring returns active lots with stock expiring on or before cutoff
func (r *GormBatchRepository) FindExpiring(ctx context.Context, cutoff time.Time) ([]inventory.Batch, error) {
	var batchModels []models.ProductBatchModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND quantity_available > 0", string(inventory.BatchStatusActive)).
		Where("expiry_date IS NOT NULL AND expiry_date <= ?", cutoff).
		Order("expiry_date ASC, received_date ASC").
		Find(&batchModels).Error; err != nil {
		return nil, err
	}
	return toDomainBatches(batchModels), nil
}

// FindPastExpiry returns active lots whose expiry date lies before asOf
func (r *GormBatchRepository) FindPastExpiry(ctx context.Context, asOf time.Time, limit int) ([]inventory.Batch, error) {
	var batchModels []models.ProductBatchModel
	query := r.db.WithContext(ctx).
		Where("status = ?", string(inventory.BatchStatusActive)).
		Where("expiry_date IS NOT NULL AND expiry_date < ?", asOf).
		Order("expiry_date ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&batchModels).Error; err != nil {
		return nil, err
	}
	return toDomainBatches(batchModels), nil
}

// FindAll lists lots matching the filter
func (r *GormBatchRepository) FindAll(ctx context.Context, filter shared.Filter) ([]inventory.Batch, error) {
	var batchModels []models.ProductBatchModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.ProductBatchModel{}), filter)
	query = r.applyPagination(query, filter)
	if err := query.Find(&batchModels).Error; err != nil {
		return nil, err
	}
	return toDomainBatches(batchModels), nil
}

// Count counts lots matching the filter
func (r *GormBatchRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.ProductBatchModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates a lot
func (r *GormBatchRepository) Save(ctx context.Context, batch *inventory.Batch) error {
	model := models.ProductBatchModelFromDomain(batch)
	return r.db.WithContext(ctx).Save(model).Error
}

// DecrementAvailable subtracts quantity from an active lot in a single
// conditional UPDATE. When no row matches, the lot is re-read to report why.
func (r *GormBatchRepository) DecrementAvailable(ctx context.Context, id uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return shared.NewDomainError(inventory.CodeInvalidQuantity, "Deduction quantity must be positive")
	}

	result := r.db.WithContext(ctx).
		Model(&models.ProductBatchModel{}).
		Where("id = ? AND status = ? AND quantity_available >= ?", id, string(inventory.BatchStatusActive), quantity).
		Updates(map[string]any{
			"quantity_available": gorm.Expr("quantity_available - ?", quantity),
			"updated_at":         time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	current, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !current.IsActive() {
		return shared.NewDomainErrorf(inventory.CodeBatchNotActive, "Batch %s is %s", current.BatchNumber, current.Status)
	}
	return inventory.NewInsufficientStockError(quantity, current.QuantityAvailable)
}

// SumAvailableBySize sums quantity_available over active lots of a size
func (r *GormBatchRepository) SumAvailableBySize(ctx context.Context, productSizeID uuid.UUID) (int, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.ProductBatchModel{}).
		Select("COALESCE(SUM(quantity_available), 0)").
		Where("product_size_id = ? AND status = ?", productSizeID, string(inventory.BatchStatusActive)).
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return int(total), nil
}

// applyFilter applies the supported filter keys to the query
func (r *GormBatchRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(batch_number) LIKE ? OR LOWER(lot_number) LIKE ?", like, like)
	}

	for key, value := range filter.Filters {
		switch key {
		case "product_id":
			query = query.Where("product_id = ?", value)
		case "product_size_id":
			query = query.Where("product_size_id = ?", value)
		case "supplier_id":
			query = query.Where("supplier_id = ?", value)
		case "status":
			query = query.Where("status = ?", value)
		case "has_stock":
			if value == true {
				query = query.Where("quantity_available > 0")
			}
		}
	}
	return query
}

// applyPagination applies ordering and paging. Unknown sort columns fall
// back to FEFO order.
func (r *GormBatchRepository) applyPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	column, ok := ValidateSortField(filter.OrderBy, BatchSortFields)
	if !ok {
		return query.Order(fefoOrder)
	}
	return query.Order(column + " " + ValidateSortOrder(filter.OrderDir))
}

func toDomainBatches(batchModels []models.ProductBatchModel) []inventory.Batch {
	batches := make([]inventory.Batch, len(batchModels))
	for i := range batchModels {
		batches[i] = *batchModels[i].ToDomain()
	}
	return batches
}

// Ensure GormBatchRepository implements BatchRepository
var _ inventory.BatchRepository = (*GormBatchRepository)(nil)
