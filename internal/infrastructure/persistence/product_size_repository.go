package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rxsupply/backend/internal/domain/inventory"
	"github.com/rxsupply/backend/internal/domain/shared"
	"github.com/rxsupply/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormProductSizeRepository implements ProductSizeRepository using GORM
type GormProductSizeRepository struct {
	db *gorm.DB
}

// NewGormProductSizeRepository creates a new GormProductSizeRepository
func NewGormProductSizeRepository(db *gorm.DB) *GormProductSizeRepository {
	return &GormProductSizeRepository{db: db}
}

// FindByID finds a product size by its ID
func (r *GormProductSizeRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.ProductSize, error) {
	var model models.ProductSizeModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a product size
func (r *GormProductSizeRepository) Save(ctx context.Context, size *inventory.ProductSize) error {
	return r.db.WithContext(ctx).Save(models.ProductSizeModelFromDomain(size)).Error
}

// ApplyStockDelta adds delta to the stock counter in one statement,
// clamping the result at zero
func (r *GormProductSizeRepository) ApplyStockDelta(ctx context.Context, id uuid.UUID, delta int) error {
	result := r.db.WithContext(ctx).
		Model(&models.ProductSizeModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"stock":      gorm.Expr("CASE WHEN stock + ? < 0 THEN 0 ELSE stock + ? END", delta, delta),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetStock overwrites the stock counter
func (r *GormProductSizeRepository) SetStock(ctx context.Context, id uuid.UUID, stock int) error {
	if stock < 0 {
		return shared.NewDomainError(inventory.CodeNegativeQuantity, "Stock cannot be negative")
	}
	result := r.db.WithContext(ctx).
		Model(&models.ProductSizeModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"stock":      stock,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormProductSizeRepository implements ProductSizeRepository
var _ inventory.ProductSizeRepository = (*GormProductSizeRepository)(nil)
