package handler

import (
	"context"

	"github.com/google/uuid"
	inventoryapp "github.com/rxsupply/backend/internal/application/inventory"
	"github.com/rxsupply/backend/internal/domain/inventory"
	"github.com/stretchr/testify/mock"
)

// MockBatchService is a mock implementation of BatchService
type MockBatchService struct {
	mock.Mock
}

func (m *MockBatchService) CreateBatch(ctx context.Context, req inventoryapp.CreateBatchRequest) (*inventoryapp.BatchResponse, error) {
	args := m.Called(ctx, req)
	return batchResult(args)
}

func (m *MockBatchService) GetBatch(ctx context.Context, batchID uuid.UUID) (*inventoryapp.BatchResponse, error) {
	args := m.Called(ctx, batchID)
	return batchResult(args)
}

func (m *MockBatchService) ListBatches(ctx context.Context, filter inventoryapp.BatchListFilter) (*inventoryapp.BatchListResult, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.BatchListResult), args.Error(1)
}

func (m *MockBatchService) MarkBatchExpired(ctx context.Context, batchID uuid.UUID, req inventoryapp.StatusChangeRequest) (*inventoryapp.BatchResponse, error) {
	args := m.Called(ctx, batchID, req)
	return batchResult(args)
}

func (m *MockBatchService) MarkBatchDamaged(ctx context.Context, batchID uuid.UUID, req inventoryapp.StatusChangeRequest) (*inventoryapp.BatchResponse, error) {
	args := m.Called(ctx, batchID, req)
	return batchResult(args)
}

func (m *MockBatchService) AdjustBatchQuantity(ctx context.Context, batchID uuid.UUID, req inventoryapp.AdjustBatchRequest) (*inventoryapp.BatchResponse, error) {
	args := m.Called(ctx, batchID, req)
	return batchResult(args)
}

func (m *MockBatchService) ReturnToBatch(ctx context.Context, batchID uuid.UUID, req inventoryapp.ReturnToBatchRequest) (*inventoryapp.BatchResponse, error) {
	args := m.Called(ctx, batchID, req)
	return batchResult(args)
}

func (m *MockBatchService) GetBatchTransactions(ctx context.Context, batchID uuid.UUID) ([]inventoryapp.BatchTransactionResponse, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inventoryapp.BatchTransactionResponse), args.Error(1)
}

func (m *MockBatchService) GetExpiringBatches(ctx context.Context, days int) ([]inventoryapp.BatchResponse, error) {
	args := m.Called(ctx, days)
	return batchListResult(args)
}

func (m *MockBatchService) GetAvailableBatches(ctx context.Context, productSizeID uuid.UUID) ([]inventoryapp.BatchResponse, error) {
	args := m.Called(ctx, productSizeID)
	return batchListResult(args)
}

func (m *MockBatchService) GetTotalAvailableQuantity(ctx context.Context, productSizeID uuid.UUID) (int, error) {
	args := m.Called(ctx, productSizeID)
	return args.Int(0), args.Error(1)
}

func (m *MockBatchService) GetInventoryValue(ctx context.Context, productSizeID uuid.UUID) (*inventoryapp.InventoryValueResponse, error) {
	args := m.Called(ctx, productSizeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.InventoryValueResponse), args.Error(1)
}

func (m *MockBatchService) ReconcileStock(ctx context.Context, productSizeID uuid.UUID) (*inventoryapp.ReconcileResult, error) {
	args := m.Called(ctx, productSizeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.ReconcileResult), args.Error(1)
}

func (m *MockBatchService) AllocateQuantity(ctx context.Context, productSizeID uuid.UUID, requested int) ([]inventory.Allocation, error) {
	args := m.Called(ctx, productSizeID, requested)
	return allocationResult(args)
}

func (m *MockBatchService) DeductFromBatches(ctx context.Context, allocations []inventory.Allocation, meta inventory.TransactionMeta) error {
	args := m.Called(ctx, allocations, meta)
	return args.Error(0)
}

func (m *MockBatchService) AllocateAndDeduct(ctx context.Context, productSizeID uuid.UUID, requested int, meta inventory.TransactionMeta) ([]inventory.Allocation, error) {
	args := m.Called(ctx, productSizeID, requested, meta)
	return allocationResult(args)
}

func batchResult(args mock.Arguments) (*inventoryapp.BatchResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.BatchResponse), args.Error(1)
}

func batchListResult(args mock.Arguments) ([]inventoryapp.BatchResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inventoryapp.BatchResponse), args.Error(1)
}

func allocationResult(args mock.Arguments) ([]inventory.Allocation, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inventory.Allocation), args.Error(1)
}
