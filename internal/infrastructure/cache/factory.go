package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rxsupply/backend/internal/domain/shared"
	"github.com/rxsupply/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Backend names accepted by inventory.cache_backend
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// StockCache caches the available total per product size. Every Invalidate
// bumps the size's generation; SetAvailable only writes when the generation
// read before computing the total is still current.
type StockCache interface {
	GetAvailable(ctx context.Context, productSizeID uuid.UUID) (int, bool, error)
	Generation(ctx context.Context, productSizeID uuid.UUID) (uint64, error)
	SetAvailable(ctx context.Context, productSizeID uuid.UUID, available int, generation uint64, ttl time.Duration) error
	Invalidate(ctx context.Context, productSizeIDs ...uuid.UUID) error
}

// Stores bundles the idempotency store and stock cache for one backend
type Stores struct {
	Idempotency shared.IdempotencyStore
	Stock       StockCache
	Backend     string
	client      redis.UniversalClient
}

// Ping checks the Redis connection. In-memory stores are always reachable.
func (s *Stores) Ping(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Ping(ctx).Err()
}

// Close releases the stores and the Redis client, if any
func (s *Stores) Close() error {
	err := s.Idempotency.Close()
	if s.client != nil {
		if cerr := s.client.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Factory creates the cache-backed stores based on configuration
type Factory struct {
	backend               string
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to
// in-memory stores. Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a new factory for the given backend
func NewFactory(backend string, redisCfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		backend:               backend,
		redisConfig:           redisCfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create builds the stores. With the redis backend the client is pinged
// first; on failure the factory falls back to memory when allowed.
func (f *Factory) Create(ctx context.Context) (*Stores, error) {
	switch f.backend {
	case "", BackendMemory:
		f.logger.Info("using in-memory inventory caches")
		return f.memoryStores(), nil
	case BackendRedis:
	default:
		return nil, fmt.Errorf("unknown cache backend %q", f.backend)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     f.redisConfig.Addr(),
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("redis required for inventory caches but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory inventory caches. "+
			"Deduction references are then not shared between instances.",
			zap.String("addr", f.redisConfig.Addr()),
			zap.Error(err),
		)
		return f.memoryStores(), nil
	}

	f.logger.Info("using Redis inventory caches", zap.String("addr", f.redisConfig.Addr()))
	return NewRedisStores(client), nil
}

// NewRedisStores builds Redis-backed stores on an existing client.
// Closing the stores closes the client.
func NewRedisStores(client redis.UniversalClient) *Stores {
	return &Stores{
		Idempotency: NewRedisIdempotencyStore(client, ""),
		Stock:       NewRedisStockCache(client, ""),
		Backend:     BackendRedis,
		client:      client,
	}
}

func (f *Factory) memoryStores() *Stores {
	return &Stores{
		Idempotency: NewInMemoryIdempotencyStore(),
		Stock:       NewInMemoryStockCache(),
		Backend:     BackendMemory,
	}
}
