package inventory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rxsupply/backend/internal/domain/inventory"
	"github.com/rxsupply/backend/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

// MockEventPublisher records published events
type MockEventPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{
		events: make([]shared.DomainEvent, 0),
	}
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

func (m *MockEventPublisher) GetEvents() []shared.DomainEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]shared.DomainEvent, len(m.events))
	copy(result, m.events)
	return result
}

func (m *MockEventPublisher) GetEventsByType(eventType string) []shared.DomainEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]shared.DomainEvent, 0)
	for _, e := range m.events {
		if e.EventType() == eventType {
			result = append(result, e)
		}
	}
	return result
}

// MockBatchRepository is a mock implementation of BatchRepository
type MockBatchRepository struct {
	mock.Mock
}

func (m *MockBatchRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Batch, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.Batch), args.Error(1)
}

func (m *MockBatchRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*inventory.Batch, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.Batch), args.Error(1)
}

func (m *MockBatchRepository) FindAvailableBySize(ctx context.Context, productSizeID uuid.UUID) ([]inventory.Batch, error) {
	args := m.Called(ctx, productSizeID)
	return args.Get(0).([]inventory.Batch), args.Error(1)
}

func (m *MockBatchRepository) FindAvailableBySizeForUpdate(ctx context.Context, productSizeID uuid.UUID) ([]inventory.Batch, error) {
	args := m.Called(ctx, productSizeID)
	return args.Get(0).([]inventory.Batch), args.Error(1)
}

func (m *MockBatchRepository) FindExpiring(ctx context.Context, cutoff time.Time) ([]inventory.Batch, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).([]inventory.Batch), args.Error(1)
}

func (m *MockBatchRepository) FindPastExpiry(ctx context.Context, asOf time.Time, limit int) ([]inventory.Batch, error) {
	args := m.Called(ctx, asOf, limit)
	return args.Get(0).([]inventory.Batch), args.Error(1)
}

func (m *MockBatchRepository) FindAll(ctx context.Context, filter shared.Filter) ([]inventory.Batch, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]inventory.Batch), args.Error(1)
}

func (m *MockBatchRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBatchRepository) Save(ctx context.Context, batch *inventory.Batch) error {
	args := m.Called(ctx, batch)
	return args.Error(0)
}

func (m *MockBatchRepository) DecrementAvailable(ctx context.Context, id uuid.UUID, quantity int) error {
	args := m.Called(ctx, id, quantity)
	return args.Error(0)
}

func (m *MockBatchRepository) SumAvailableBySize(ctx context.Context, productSizeID uuid.UUID) (int, error) {
	args := m.Called(ctx, productSizeID)
	return args.Int(0), args.Error(1)
}

// MockBatchTransactionRepository is a mock implementation of BatchTransactionRepository
type MockBatchTransactionRepository struct {
	mock.Mock
}

func (m *MockBatchTransactionRepository) Create(ctx context.Context, tx *inventory.BatchTransaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockBatchTransactionRepository) CreateMany(ctx context.Context, txs []*inventory.BatchTransaction) error {
	args := m.Called(ctx, txs)
	return args.Error(0)
}

func (m *MockBatchTransactionRepository) FindByBatch(ctx context.Context, batchID uuid.UUID) ([]inventory.BatchTransaction, error) {
	args := m.Called(ctx, batchID)
	return args.Get(0).([]inventory.BatchTransaction), args.Error(1)
}

func (m *MockBatchTransactionRepository) ExistsByReference(ctx context.Context, txType inventory.TransactionType, referenceType, referenceID string) (bool, error) {
	args := m.Called(ctx, txType, referenceType, referenceID)
	return args.Bool(0), args.Error(1)
}

// MockProductSizeRepository is a mock implementation of ProductSizeRepository
type MockProductSizeRepository struct {
	mock.Mock
}

func (m *MockProductSizeRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.ProductSize, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.ProductSize), args.Error(1)
}

func (m *MockProductSizeRepository) Save(ctx context.Context, size *inventory.ProductSize) error {
	args := m.Called(ctx, size)
	return args.Error(0)
}

func (m *MockProductSizeRepository) ApplyStockDelta(ctx context.Context, id uuid.UUID, delta int) error {
	args := m.Called(ctx, id, delta)
	return args.Error(0)
}

func (m *MockProductSizeRepository) SetStock(ctx context.Context, id uuid.UUID, stock int) error {
	args := m.Called(ctx, id, stock)
	return args.Error(0)
}

// MockMetrics is a mock implementation of Metrics
type MockMetrics struct {
	mock.Mock
}

func (m *MockMetrics) RecordDeduction(ctx context.Context, units, lots int) {
	m.Called(ctx, units, lots)
}

func (m *MockMetrics) RecordShortfall(ctx context.Context, shortfall int) {
	m.Called(ctx, shortfall)
}

func (m *MockMetrics) RecordWriteOff(ctx context.Context, txType string, units int) {
	m.Called(ctx, txType, units)
}

func (m *MockMetrics) RecordExpirySweep(ctx context.Context, succeeded, failed int, elapsed time.Duration) {
	m.Called(ctx, succeeded, failed, elapsed)
}

// memoryIdempotencyStore is a map-backed IdempotencyStore
type memoryIdempotencyStore struct {
	mu   sync.Mutex
	keys map[string]struct{}
	err  error
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{keys: make(map[string]struct{})}
}

func (s *memoryIdempotencyStore) MarkProcessed(_ context.Context, key string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	if _, ok := s.keys[key]; ok {
		return false, nil
	}
	s.keys[key] = struct{}{}
	return true, nil
}

func (s *memoryIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[key]
	return ok, s.err
}

func (s *memoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
	return nil
}

func (s *memoryIdempotencyStore) Close() error { return nil }

// mapStockCache is a map-backed StockCache
type mapStockCache struct {
	mu          sync.Mutex
	totals      map[uuid.UUID]int
	generations map[uuid.UUID]uint64
	invalidated []uuid.UUID
}

func newMapStockCache() *mapStockCache {
	return &mapStockCache{totals: make(map[uuid.UUID]int), generations: make(map[uuid.UUID]uint64)}
}

func (c *mapStockCache) Generation(_ context.Context, id uuid.UUID) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[id], nil
}

func (c *mapStockCache) GetAvailable(_ context.Context, id uuid.UUID) (int, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.totals[id]
	return v, ok, nil
}

func (c *mapStockCache) SetAvailable(_ context.Context, id uuid.UUID, available int, generation uint64, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[id] != generation {
		return nil
	}
	c.totals[id] = available
	return nil
}

func (c *mapStockCache) Invalidate(_ context.Context, ids ...uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.totals, id)
		c.generations[id]++
		c.invalidated = append(c.invalidated, id)
	}
	return nil
}
