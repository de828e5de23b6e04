package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rxsupply/backend/internal/domain/inventory"
	"github.com/rxsupply/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// DefaultIdempotencyTTL is how long a deduction reference stays reserved
	DefaultIdempotencyTTL = 24 * time.Hour
	// DefaultStockCacheTTL is how long an available total stays cached
	DefaultStockCacheTTL = 5 * time.Minute
)

// BatchInventoryService manages lot-tracked stock: receiving lots, FEFO
// allocation, atomic deduction, status changes and the per-size counter.
type BatchInventoryService struct {
	batchRepo       inventory.BatchRepository
	transactionRepo inventory.BatchTransactionRepository
	sizeRepo        inventory.ProductSizeRepository
	txScope         TransactionScope
	strategy        inventory.AllocationStrategy
	eventPublisher  shared.EventPublisher
	idempotency     shared.IdempotencyStore
	idempotencyTTL  time.Duration
	stockCache      StockCache
	stockCacheTTL   time.Duration
	metrics         Metrics
	logger          *zap.Logger
	now             func() time.Time
}

// NewBatchInventoryService creates a new BatchInventoryService using FEFO allocation
func NewBatchInventoryService(
	batchRepo inventory.BatchRepository,
	transactionRepo inventory.BatchTransactionRepository,
	sizeRepo inventory.ProductSizeRepository,
	txScope TransactionScope,
	logger *zap.Logger,
) *BatchInventoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchInventoryService{
		batchRepo:       batchRepo,
		transactionRepo: transactionRepo,
		sizeRepo:        sizeRepo,
		txScope:         txScope,
		strategy:        inventory.FEFOStrategy{},
		idempotencyTTL:  DefaultIdempotencyTTL,
		stockCacheTTL:   DefaultStockCacheTTL,
		metrics:         noopMetrics{},
		logger:          logger,
		now:             time.Now,
	}
}

// SetAllocationStrategy replaces the lot ordering used for allocation
func (s *BatchInventoryService) SetAllocationStrategy(strategy inventory.AllocationStrategy) {
	if strategy != nil {
		s.strategy = strategy
	}
}

// SetEventPublisher sets the publisher for lot events
func (s *BatchInventoryService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetIdempotencyStore enables at-most-once deductions per reference
func (s *BatchInventoryService) SetIdempotencyStore(store shared.IdempotencyStore, ttl time.Duration) {
	s.idempotency = store
	if ttl > 0 {
		s.idempotencyTTL = ttl
	}
}

// SetStockCache enables caching of available totals. The cache is kept
// fresh by StockCacheInvalidationHandler on the event bus.
func (s *BatchInventoryService) SetStockCache(cache StockCache, ttl time.Duration) {
	s.stockCache = cache
	if ttl > 0 {
		s.stockCacheTTL = ttl
	}
}

// SetMetrics sets the metrics recorder
func (s *BatchInventoryService) SetMetrics(metrics Metrics) {
	if metrics != nil {
		s.metrics = metrics
	}
}

// =============================================================================
// Allocation and deduction
// =============================================================================

// AllocateQuantity plans which lots cover the requested quantity of a size.
// It is a pure read: nothing is reserved or changed.
func (s *BatchInventoryService) AllocateQuantity(ctx context.Context, productSizeID uuid.UUID, requested int) ([]inventory.Allocation, error) {
	if requested <= 0 {
		return nil, shared.NewDomainError(inventory.CodeInvalidQuantity, "Requested quantity must be positive")
	}

	batches, err := s.batchRepo.FindAvailableBySize(ctx, productSizeID)
	if err != nil {
		return nil, err
	}

	allocations, err := inventory.Allocate(requested, batches, s.strategy)
	if err != nil {
		s.recordShortfall(ctx, err)
		return nil, err
	}
	return allocations, nil
}

// DeductFromBatches commits an allocation plan in a single transaction.
// Every lot is decremented only if it still holds the allocated quantity;
// otherwise nothing is written and the error is returned.
func (s *BatchInventoryService) DeductFromBatches(ctx context.Context, allocations []inventory.Allocation, meta inventory.TransactionMeta) error {
	if err := inventory.ValidateAllocations(allocations); err != nil {
		return err
	}

	release, err := s.reserveReference(ctx, meta)
	if err != nil {
		return err
	}

	var deducted []deductedLot
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := ensureReferenceUnused(ctx, repos, meta); err != nil {
			return err
		}
		var err error
		deducted, err = deductInTx(ctx, repos, allocations, meta)
		return err
	})
	if err != nil {
		release()
		s.recordShortfall(ctx, err)
		s.logger.Warn("Deduction rolled back",
			zap.String("reference_id", meta.ReferenceID),
			zap.Int("lines", len(allocations)),
			zap.Error(err),
		)
		return err
	}

	s.afterDeduction(ctx, deducted, meta)
	return nil
}

// AllocateAndDeduct allocates and deducts in one transaction with the
// candidate lots locked, so no concurrent deduction can invalidate the plan.
func (s *BatchInventoryService) AllocateAndDeduct(ctx context.Context, productSizeID uuid.UUID, requested int, meta inventory.TransactionMeta) ([]inventory.Allocation, error) {
	if requested <= 0 {
		return nil, shared.NewDomainError(inventory.CodeInvalidQuantity, "Requested quantity must be positive")
	}

	release, err := s.reserveReference(ctx, meta)
	if err != nil {
		return nil, err
	}

	var allocations []inventory.Allocation
	var deducted []deductedLot
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := ensureReferenceUnused(ctx, repos, meta); err != nil {
			return err
		}
		batches, err := repos.BatchRepo().FindAvailableBySizeForUpdate(ctx, productSizeID)
		if err != nil {
			return err
		}
		allocations, err = inventory.Allocate(requested, batches, s.strategy)
		if err != nil {
			return err
		}
		deducted, err = deductInTx(ctx, repos, allocations, meta)
		return err
	})
	if err != nil {
		release()
		s.recordShortfall(ctx, err)
		return nil, err
	}

	s.afterDeduction(ctx, deducted, meta)
	return allocations, nil
}

type deductedLot struct {
	batch    *inventory.Batch
	quantity int
}

// deductInTx applies the plan through the transactional repositories:
// conditional decrement per lot, one sale record per lot, then the counter
// delta per size.
func deductInTx(ctx context.Context, repos TransactionalRepositories, allocations []inventory.Allocation, meta inventory.TransactionMeta) ([]deductedLot, error) {
	deducted := make([]deductedLot, 0, len(allocations))
	records := make([]*inventory.BatchTransaction, 0, len(allocations))
	sizeOrder := make([]uuid.UUID, 0, 1)
	totals := make(map[uuid.UUID]int, 1)

	for _, a := range allocations {
		batch, err := repos.BatchRepo().FindByIDForUpdate(ctx, a.BatchID)
		if err != nil {
			return nil, err
		}
		if err := repos.BatchRepo().DecrementAvailable(ctx, a.BatchID, a.Quantity); err != nil {
			return nil, err
		}
		batch.QuantityAvailable -= a.Quantity

		records = append(records, inventory.NewBatchTransaction(batch.ID, inventory.TransactionTypeSale, a.Quantity, meta))
		deducted = append(deducted, deductedLot{batch: batch, quantity: a.Quantity})
		if _, seen := totals[batch.ProductSizeID]; !seen {
			sizeOrder = append(sizeOrder, batch.ProductSizeID)
		}
		totals[batch.ProductSizeID] += a.Quantity
	}

	if err := repos.TransactionRepo().CreateMany(ctx, records); err != nil {
		return nil, err
	}
	for _, sizeID := range sizeOrder {
		if err := repos.SizeRepo().ApplyStockDelta(ctx, sizeID, -totals[sizeID]); err != nil {
			return nil, err
		}
	}
	return deducted, nil
}

func (s *BatchInventoryService) afterDeduction(ctx context.Context, deducted []deductedLot, meta inventory.TransactionMeta) {
	events := make([]shared.DomainEvent, 0, len(deducted))
	units := 0
	for _, d := range deducted {
		units += d.quantity
		events = append(events, inventory.NewBatchStockChangedEvent(
			inventory.EventTypeBatchDeducted, d.batch, inventory.TransactionTypeSale, d.quantity, -d.quantity, meta.ReferenceID,
		))
	}
	s.metrics.RecordDeduction(ctx, units, len(deducted))
	s.publish(ctx, events...)

	s.logger.Info("Deducted stock from lots",
		zap.String("reference_id", meta.ReferenceID),
		zap.String("reference_type", meta.ReferenceType),
		zap.Int("units", units),
		zap.Int("lots", len(deducted)),
	)
}

// reserveReference claims the deduction reference in the idempotency store.
// The returned func releases the claim when the deduction fails.
func (s *BatchInventoryService) reserveReference(ctx context.Context, meta inventory.TransactionMeta) (func(), error) {
	noop := func() {}
	if meta.ReferenceID == "" || s.idempotency == nil {
		return noop, nil
	}

	key := referenceKey(meta)
	claimed, err := s.idempotency.MarkProcessed(ctx, key, s.idempotencyTTL)
	if err != nil {
		// the audit log check inside the transaction still applies
		s.logger.Warn("Idempotency store unavailable", zap.String("key", key), zap.Error(err))
		return noop, nil
	}
	if !claimed {
		return nil, duplicateReferenceError(meta)
	}

	return func() {
		if err := s.idempotency.Release(context.WithoutCancel(ctx), key); err != nil {
			s.logger.Warn("Failed to release deduction reference", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

func ensureReferenceUnused(ctx context.Context, repos TransactionalRepositories, meta inventory.TransactionMeta) error {
	if meta.ReferenceID == "" {
		return nil
	}
	exists, err := repos.TransactionRepo().ExistsByReference(ctx, inventory.TransactionTypeSale, meta.ReferenceType, meta.ReferenceID)
	if err != nil {
		return err
	}
	if exists {
		return duplicateReferenceError(meta)
	}
	return nil
}

func referenceKey(meta inventory.TransactionMeta) string {
	return fmt.Sprintf("deduction:%s:%s", meta.ReferenceType, meta.ReferenceID)
}

func duplicateReferenceError(meta inventory.TransactionMeta) error {
	return shared.NewDomainErrorf(inventory.CodeDuplicateReference,
		"Reference %s has already been deducted", meta.ReferenceID)
}

func (s *BatchInventoryService) recordShortfall(ctx context.Context, err error) {
	var stockErr *inventory.InsufficientStockError
	if errors.As(err, &stockErr) {
		s.metrics.RecordShortfall(ctx, stockErr.Shortfall())
	}
}

// =============================================================================
// Lot lifecycle
// =============================================================================

// CreateBatch receives a new lot: the lot row, its receive record and the
// counter increase are written together.
func (s *BatchInventoryService) CreateBatch(ctx context.Context, req CreateBatchRequest) (*BatchResponse, error) {
	var batch *inventory.Batch
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		size, err := repos.SizeRepo().FindByID(ctx, req.ProductSizeID)
		if err != nil {
			return err
		}

		batch, err = inventory.NewBatch(inventory.NewBatchParams{
			ProductID:         size.ProductID,
			ProductSizeID:     size.ID,
			BatchNumber:       req.BatchNumber,
			LotNumber:         req.LotNumber,
			ManufacturingDate: req.ManufacturingDate.TimePtr(),
			ExpiryDate:        req.ExpiryDate.TimePtr(),
			Quantity:          req.Quantity,
			CostPerUnit:       req.CostPerUnit,
			SupplierID:        req.SupplierID,
			ReceivedDate:      req.ReceivedDate,
		})
		if err != nil {
			return err
		}

		if err := repos.BatchRepo().Save(ctx, batch); err != nil {
			return err
		}
		record := inventory.NewBatchTransaction(batch.ID, inventory.TransactionTypeReceive, batch.Quantity, inventory.TransactionMeta{
			Notes:       req.Notes,
			PerformedBy: req.PerformedBy,
		})
		if err := repos.TransactionRepo().Create(ctx, record); err != nil {
			return err
		}
		return repos.SizeRepo().ApplyStockDelta(ctx, size.ID, batch.Quantity)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, inventory.NewBatchStockChangedEvent(
		inventory.EventTypeBatchReceived, batch, inventory.TransactionTypeReceive, batch.Quantity, batch.Quantity, "",
	))
	s.logger.Info("Lot received",
		zap.String("batch_id", batch.ID.String()),
		zap.String("lot_number", batch.LotNumber),
		zap.String("product_size_id", batch.ProductSizeID.String()),
		zap.Int("quantity", batch.Quantity),
	)

	resp := ToBatchResponse(batch, s.today())
	return &resp, nil
}

// MarkBatchExpired moves an active lot to expired. Its available quantity
// stays on the lot but leaves the sellable counter.
func (s *BatchInventoryService) MarkBatchExpired(ctx context.Context, batchID uuid.UUID, req StatusChangeRequest) (*BatchResponse, error) {
	var batch *inventory.Batch
	var removed int
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		batch, err = repos.BatchRepo().FindByIDForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		if err := batch.MarkExpired(); err != nil {
			return err
		}
		removed = batch.QuantityAvailable

		if err := repos.BatchRepo().Save(ctx, batch); err != nil {
			return err
		}
		record := inventory.NewBatchTransaction(batch.ID, inventory.TransactionTypeExpired, 0, inventory.TransactionMeta{
			Notes:       req.Notes,
			PerformedBy: req.PerformedBy,
		})
		if err := repos.TransactionRepo().Create(ctx, record); err != nil {
			return err
		}
		if removed == 0 {
			return nil
		}
		return repos.SizeRepo().ApplyStockDelta(ctx, batch.ProductSizeID, -removed)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordWriteOff(ctx, inventory.TransactionTypeExpired.String(), removed)
	s.publish(ctx, inventory.NewBatchStockChangedEvent(
		inventory.EventTypeBatchExpired, batch, inventory.TransactionTypeExpired, 0, -removed, "",
	))
	s.logger.Info("Lot expired",
		zap.String("batch_id", batch.ID.String()),
		zap.String("lot_number", batch.LotNumber),
		zap.Int("removed_from_counter", removed),
	)

	resp := ToBatchResponse(batch, s.today())
	return &resp, nil
}

// MarkBatchDamaged writes off the remaining stock of a lot
func (s *BatchInventoryService) MarkBatchDamaged(ctx context.Context, batchID uuid.UUID, req StatusChangeRequest) (*BatchResponse, error) {
	var batch *inventory.Batch
	var writtenOff, counterDelta int
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		batch, err = repos.BatchRepo().FindByIDForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		wasActive := batch.IsActive()
		writtenOff, err = batch.MarkDamaged()
		if err != nil {
			return err
		}
		// expired stock already left the counter
		if wasActive {
			counterDelta = -writtenOff
		}

		if err := repos.BatchRepo().Save(ctx, batch); err != nil {
			return err
		}
		record := inventory.NewBatchTransaction(batch.ID, inventory.TransactionTypeDamaged, writtenOff, inventory.TransactionMeta{
			Notes:       req.Notes,
			PerformedBy: req.PerformedBy,
		})
		if err := repos.TransactionRepo().Create(ctx, record); err != nil {
			return err
		}
		if counterDelta == 0 {
			return nil
		}
		return repos.SizeRepo().ApplyStockDelta(ctx, batch.ProductSizeID, counterDelta)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordWriteOff(ctx, inventory.TransactionTypeDamaged.String(), writtenOff)
	s.publish(ctx, inventory.NewBatchStockChangedEvent(
		inventory.EventTypeBatchDamaged, batch, inventory.TransactionTypeDamaged, writtenOff, counterDelta, "",
	))
	s.logger.Info("Lot written off as damaged",
		zap.String("batch_id", batch.ID.String()),
		zap.String("lot_number", batch.LotNumber),
		zap.Int("quantity", writtenOff),
	)

	resp := ToBatchResponse(batch, s.today())
	return &resp, nil
}

// AdjustBatchQuantity applies a signed correction to a lot's available
// quantity. A correction that would go below zero is rejected before any write.
func (s *BatchInventoryService) AdjustBatchQuantity(ctx context.Context, batchID uuid.UUID, req AdjustBatchRequest) (*BatchResponse, error) {
	if req.Delta == 0 {
		return nil, shared.NewDomainError(inventory.CodeInvalidQuantity, "Adjustment delta cannot be zero")
	}

	var batch *inventory.Batch
	var counterDelta int
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		batch, err = repos.BatchRepo().FindByIDForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		if err := batch.Adjust(req.Delta); err != nil {
			return err
		}
		if batch.IsActive() {
			counterDelta = req.Delta
		}

		if err := repos.BatchRepo().Save(ctx, batch); err != nil {
			return err
		}
		notes := req.Notes
		if notes == "" {
			notes = fmt.Sprintf("Adjusted by %+d", req.Delta)
		}
		record := inventory.NewBatchTransaction(batch.ID, inventory.TransactionTypeAdjustment, abs(req.Delta), inventory.TransactionMeta{
			Notes:       notes,
			PerformedBy: req.PerformedBy,
		})
		if err := repos.TransactionRepo().Create(ctx, record); err != nil {
			return err
		}
		if counterDelta == 0 {
			return nil
		}
		return repos.SizeRepo().ApplyStockDelta(ctx, batch.ProductSizeID, counterDelta)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, inventory.NewBatchStockChangedEvent(
		inventory.EventTypeBatchAdjusted, batch, inventory.TransactionTypeAdjustment, abs(req.Delta), counterDelta, "",
	))
	s.logger.Info("Lot adjusted",
		zap.String("batch_id", batch.ID.String()),
		zap.Int("delta", req.Delta),
		zap.Int("quantity_available", batch.QuantityAvailable),
	)

	resp := ToBatchResponse(batch, s.today())
	return &resp, nil
}

// ReturnToBatch puts returned units back into an active lot
func (s *BatchInventoryService) ReturnToBatch(ctx context.Context, batchID uuid.UUID, req ReturnToBatchRequest) (*BatchResponse, error) {
	var batch *inventory.Batch
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		batch, err = repos.BatchRepo().FindByIDForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		if err := batch.Restock(req.Quantity); err != nil {
			return err
		}

		if err := repos.BatchRepo().Save(ctx, batch); err != nil {
			return err
		}
		record := inventory.NewBatchTransaction(batch.ID, inventory.TransactionTypeReturn, req.Quantity, inventory.TransactionMeta{
			ReferenceID:   req.ReferenceID,
			ReferenceType: req.ReferenceType,
			Notes:         req.Notes,
			PerformedBy:   req.PerformedBy,
		})
		if err := repos.TransactionRepo().Create(ctx, record); err != nil {
			return err
		}
		return repos.SizeRepo().ApplyStockDelta(ctx, batch.ProductSizeID, req.Quantity)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, inventory.NewBatchStockChangedEvent(
		inventory.EventTypeBatchReturned, batch, inventory.TransactionTypeReturn, req.Quantity, req.Quantity, req.ReferenceID,
	))
	s.logger.Info("Units returned to lot",
		zap.String("batch_id", batch.ID.String()),
		zap.Int("quantity", req.Quantity),
		zap.String("reference_id", req.ReferenceID),
	)

	resp := ToBatchResponse(batch, s.today())
	return &resp, nil
}

// ReconcileStock recomputes the size counter from its active lots
func (s *BatchInventoryService) ReconcileStock(ctx context.Context, productSizeID uuid.UUID) (*ReconcileResult, error) {
	var result ReconcileResult
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		size, err := repos.SizeRepo().FindByID(ctx, productSizeID)
		if err != nil {
			return err
		}
		lots, err := repos.BatchRepo().FindAvailableBySizeForUpdate(ctx, productSizeID)
		if err != nil {
			return err
		}
		total := inventory.TotalAvailable(lots)
		result = ReconcileResult{
			ProductSizeID: size.ID,
			PreviousStock: size.Stock,
			Stock:         total,
			Drift:         size.Stock - total,
		}
		if result.Drift == 0 {
			return nil
		}
		return repos.SizeRepo().SetStock(ctx, size.ID, total)
	})
	if err != nil {
		return nil, err
	}

	if result.Drift != 0 {
		s.logger.Warn("Stock counter drift corrected",
			zap.String("product_size_id", productSizeID.String()),
			zap.Int("previous_stock", result.PreviousStock),
			zap.Int("stock", result.Stock),
		)
	}
	return &result, nil
}

// =============================================================================
// Queries
// =============================================================================

// GetBatch returns a lot by ID
func (s *BatchInventoryService) GetBatch(ctx context.Context, batchID uuid.UUID) (*BatchResponse, error) {
	batch, err := s.batchRepo.FindByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	resp := ToBatchResponse(batch, s.today())
	return &resp, nil
}

// ListBatches returns a page of lots matching the filter
func (s *BatchInventoryService) ListBatches(ctx context.Context, filter BatchListFilter) (*BatchListResult, error) {
	f := shared.DefaultFilter()
	if filter.Page > 0 {
		f.Page = filter.Page
	}
	if filter.PageSize > 0 {
		f.PageSize = filter.PageSize
	}
	f.Search = filter.Search
	f.OrderBy = filter.OrderBy
	f.OrderDir = filter.OrderDir
	f.Filters = make(map[string]any)
	if filter.ProductID != nil {
		f.Filters["product_id"] = *filter.ProductID
	}
	if filter.ProductSizeID != nil {
		f.Filters["product_size_id"] = *filter.ProductSizeID
	}
	if filter.SupplierID != nil {
		f.Filters["supplier_id"] = *filter.SupplierID
	}
	if filter.Status != "" {
		f.Filters["status"] = filter.Status
	}
	if filter.HasStock != nil {
		f.Filters["has_stock"] = *filter.HasStock
	}

	batches, err := s.batchRepo.FindAll(ctx, f)
	if err != nil {
		return nil, err
	}
	total, err := s.batchRepo.Count(ctx, f)
	if err != nil {
		return nil, err
	}
	return &BatchListResult{
		Items: ToBatchResponses(batches, s.today()),
		Total: total,
		Page:  f.Page,
		Size:  f.PageSize,
	}, nil
}

// GetAvailableBatches returns the sellable lots of a size in FEFO order
func (s *BatchInventoryService) GetAvailableBatches(ctx context.Context, productSizeID uuid.UUID) ([]BatchResponse, error) {
	batches, err := s.batchRepo.FindAvailableBySize(ctx, productSizeID)
	if err != nil {
		return nil, err
	}
	return ToBatchResponses(inventory.SortBatches(batches, inventory.FEFOStrategy{}), s.today()), nil
}

// GetExpiringBatches returns active lots with stock whose expiry date falls
// on or before today (UTC) plus days
func (s *BatchInventoryService) GetExpiringBatches(ctx context.Context, days int) ([]BatchResponse, error) {
	if days < 0 {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Days must not be negative")
	}
	today := s.today()
	cutoff := today.AddDate(0, 0, days)

	batches, err := s.batchRepo.FindExpiring(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	return ToBatchResponses(batches, today), nil
}

// GetTotalAvailableQuantity returns the sum of available units over the
// active lots of a size. The cache generation is read before summing so a
// total computed across a concurrent invalidation is never cached.
func (s *BatchInventoryService) GetTotalAvailableQuantity(ctx context.Context, productSizeID uuid.UUID) (int, error) {
	var generation uint64
	cacheable := false
	if s.stockCache != nil {
		if cached, ok, err := s.stockCache.GetAvailable(ctx, productSizeID); err != nil {
			s.logger.Warn("Stock cache read failed", zap.String("product_size_id", productSizeID.String()), zap.Error(err))
		} else if ok {
			return cached, nil
		}
		if gen, err := s.stockCache.Generation(ctx, productSizeID); err != nil {
			s.logger.Warn("Stock cache generation read failed", zap.String("product_size_id", productSizeID.String()), zap.Error(err))
		} else {
			generation, cacheable = gen, true
		}
	}

	total, err := s.batchRepo.SumAvailableBySize(ctx, productSizeID)
	if err != nil {
		return 0, err
	}

	if cacheable {
		if err := s.stockCache.SetAvailable(ctx, productSizeID, total, generation, s.stockCacheTTL); err != nil {
			s.logger.Warn("Stock cache write failed", zap.String("product_size_id", productSizeID.String()), zap.Error(err))
		}
	}
	return total, nil
}

// GetBatchTransactions returns the audit history of a lot, newest first
func (s *BatchInventoryService) GetBatchTransactions(ctx context.Context, batchID uuid.UUID) ([]BatchTransactionResponse, error) {
	if _, err := s.batchRepo.FindByID(ctx, batchID); err != nil {
		return nil, err
	}
	txs, err := s.transactionRepo.FindByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	return ToBatchTransactionResponses(txs), nil
}

// GetInventoryValue returns the cost value of the available stock of a size.
// Lots without a unit cost count as zero.
func (s *BatchInventoryService) GetInventoryValue(ctx context.Context, productSizeID uuid.UUID) (*InventoryValueResponse, error) {
	batches, err := s.batchRepo.FindAvailableBySize(ctx, productSizeID)
	if err != nil {
		return nil, err
	}

	value := decimal.Zero
	for i := range batches {
		value = value.Add(batches[i].AvailableValue())
	}
	return &InventoryValueResponse{
		ProductSizeID: productSizeID,
		Available:     inventory.TotalAvailable(batches),
		Value:         value,
		LotCount:      len(batches),
	}, nil
}

func (s *BatchInventoryService) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish lot events", zap.Int("count", len(events)), zap.Error(err))
	}
}

// today is the current UTC date at midnight
func (s *BatchInventoryService) today() time.Time {
	return startOfDayUTC(s.now())
}

func startOfDayUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
