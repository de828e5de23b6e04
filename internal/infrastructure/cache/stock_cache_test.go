package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rxsupply/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestInMemoryStockCache(t *testing.T) {
	cache := NewInMemoryStockCache()
	ctx := context.Background()
	sizeID := uuid.New()

	_, ok, err := cache.GetAvailable(ctx, sizeID)
	require.NoError(t, err)
	assert.False(t, ok)

	gen, err := cache.Generation(ctx, sizeID)
	require.NoError(t, err)
	require.NoError(t, cache.SetAvailable(ctx, sizeID, 42, gen, time.Hour))
	n, ok, err := cache.GetAvailable(ctx, sizeID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 42, n)

	require.NoError(t, cache.Invalidate(ctx, sizeID, uuid.New()))
	_, ok, _ = cache.GetAvailable(ctx, sizeID)
	assert.False(t, ok)
}

func TestInMemoryStockCache_Expiry(t *testing.T) {
	cache := NewInMemoryStockCache()
	ctx := context.Background()
	sizeID := uuid.New()

	require.NoError(t, cache.SetAvailable(ctx, sizeID, 7, 0, 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	_, ok, err := cache.GetAvailable(ctx, sizeID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInMemoryStockCache_DropsTotalComputedBeforeInvalidate(t *testing.T) {
	cache := NewInMemoryStockCache()
	ctx := context.Background()
	sizeID := uuid.New()

	// a reader takes the generation and sums 10 units; a deduction then
	// commits and its event invalidates the size before the reader writes
	gen, err := cache.Generation(ctx, sizeID)
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(ctx, sizeID))
	require.NoError(t, cache.SetAvailable(ctx, sizeID, 10, gen, time.Hour))

	_, ok, err := cache.GetAvailable(ctx, sizeID)
	require.NoError(t, err)
	assert.False(t, ok)

	next, err := cache.Generation(ctx, sizeID)
	require.NoError(t, err)
	assert.Equal(t, gen+1, next)
	require.NoError(t, cache.SetAvailable(ctx, sizeID, 6, next, time.Hour))
	n, ok, err := cache.GetAvailable(ctx, sizeID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 6, n)
}

func TestFactory_Create(t *testing.T) {
	t.Run("memory backend", func(t *testing.T) {
		stores, err := NewFactory(BackendMemory, config.RedisConfig{}).Create(context.Background())
		require.NoError(t, err)
		defer stores.Close()

		assert.Equal(t, BackendMemory, stores.Backend)
		assert.IsType(t, &InMemoryIdempotencyStore{}, stores.Idempotency)
		assert.IsType(t, &InMemoryStockCache{}, stores.Stock)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := NewFactory("memcached", config.RedisConfig{}).Create(context.Background())
		assert.Error(t, err)
	})

	t.Run("unreachable redis falls back to memory", func(t *testing.T) {
		factory := NewFactory(BackendRedis, config.RedisConfig{Host: "127.0.0.1", Port: 1},
			WithLogger(zaptest.NewLogger(t)))

		stores, err := factory.Create(context.Background())
		require.NoError(t, err)
		defer stores.Close()
		assert.Equal(t, BackendMemory, stores.Backend)
	})

	t.Run("unreachable redis without fallback", func(t *testing.T) {
		factory := NewFactory(BackendRedis, config.RedisConfig{Host: "127.0.0.1", Port: 1},
			WithInMemoryFallback(false))

		_, err := factory.Create(context.Background())
		assert.Error(t, err)
	})
}

// newTestRedis connects to RX_TEST_REDIS_ADDR or skips
func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("RX_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("RX_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, client.Ping(context.Background()).Err())
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisStores(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()
	prefix := "rx:test:" + uuid.NewString() + ":"

	store := NewRedisIdempotencyStore(client, prefix)
	isNew, err := store.MarkProcessed(ctx, "ORD-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, isNew)
	isNew, err = store.MarkProcessed(ctx, "ORD-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, isNew)
	require.NoError(t, store.Release(ctx, "ORD-1"))
	processed, err := store.IsProcessed(ctx, "ORD-1")
	require.NoError(t, err)
	assert.False(t, processed)

	stock := NewRedisStockCache(client, prefix)
	sizeID := uuid.New()
	gen, err := stock.Generation(ctx, sizeID)
	require.NoError(t, err)
	assert.Zero(t, gen)
	require.NoError(t, stock.SetAvailable(ctx, sizeID, 12, gen, time.Minute))
	n, ok, err := stock.GetAvailable(ctx, sizeID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 12, n)

	require.NoError(t, stock.Invalidate(ctx, sizeID))
	_, ok, err = stock.GetAvailable(ctx, sizeID)
	require.NoError(t, err)
	assert.False(t, ok)

	// a total computed under the old generation is not written back
	require.NoError(t, stock.SetAvailable(ctx, sizeID, 12, gen, time.Minute))
	_, ok, err = stock.GetAvailable(ctx, sizeID)
	require.NoError(t, err)
	assert.False(t, ok)

	next, err := stock.Generation(ctx, sizeID)
	require.NoError(t, err)
	assert.Equal(t, gen+1, next)
	require.NoError(t, stock.SetAvailable(ctx, sizeID, 8, next, time.Minute))
	n, _, err = stock.GetAvailable(ctx, sizeID)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
}
