package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultStockPrefix = "rx:stock:available:"

type stockEntry struct {
	available int
	expiresAt time.Time
}

// InMemoryStockCache caches available totals per product size in process
type InMemoryStockCache struct {
	mu          sync.RWMutex
	entries     map[uuid.UUID]stockEntry
	generations map[uuid.UUID]uint64
}

// NewInMemoryStockCache creates an empty in-memory stock cache
func NewInMemoryStockCache() *InMemoryStockCache {
	return &InMemoryStockCache{
		entries:     make(map[uuid.UUID]stockEntry),
		generations: make(map[uuid.UUID]uint64),
	}
}

// GetAvailable returns the cached total if present and not expired
func (c *InMemoryStockCache) GetAvailable(_ context.Context, productSizeID uuid.UUID) (int, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[productSizeID]
	if !ok || !time.Now().Before(e.expiresAt) {
		return 0, false, nil
	}
	return e.available, true, nil
}

// Generation returns the number of invalidations seen for the size
func (c *InMemoryStockCache) Generation(_ context.Context, productSizeID uuid.UUID) (uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generations[productSizeID], nil
}

// SetAvailable stores the total for ttl unless the size was invalidated
// after generation was read
func (c *InMemoryStockCache) SetAvailable(_ context.Context, productSizeID uuid.UUID, available int, generation uint64, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[productSizeID] != generation {
		return nil
	}
	c.entries[productSizeID] = stockEntry{available: available, expiresAt: time.Now().Add(ttl)}
	return nil
}

// Invalidate drops the totals of the given sizes and bumps their generation
func (c *InMemoryStockCache) Invalidate(_ context.Context, productSizeIDs ...uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range productSizeIDs {
		delete(c.entries, id)
		c.generations[id]++
	}
	return nil
}

// setIfGeneration writes the total only while the generation key still holds
// the expected value. KEYS[1] generation, KEYS[2] total; ARGV generation,
// total, ttl in ms (0 keeps no expiry).
var setIfGeneration = redis.NewScript(`
local current = redis.call('GET', KEYS[1]) or '0'
if current ~= ARGV[1] then
	return 0
end
if ARGV[3] == '0' then
	redis.call('SET', KEYS[2], ARGV[2])
else
	redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
end
return 1
`)

// RedisStockCache caches available totals per product size in Redis
type RedisStockCache struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisStockCache creates a stock cache on an existing client
func NewRedisStockCache(client redis.UniversalClient, keyPrefix string) *RedisStockCache {
	if keyPrefix == "" {
		keyPrefix = defaultStockPrefix
	}
	return &RedisStockCache{client: client, keyPrefix: keyPrefix}
}

func (c *RedisStockCache) key(id uuid.UUID) string {
	return c.keyPrefix + id.String()
}

func (c *RedisStockCache) generationKey(id uuid.UUID) string {
	return c.keyPrefix + "gen:" + id.String()
}

// GetAvailable returns the cached total if present
func (c *RedisStockCache) GetAvailable(ctx context.Context, productSizeID uuid.UUID) (int, bool, error) {
	raw, err := c.client.Get(ctx, c.key(productSizeID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read stock cache: %w", err)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt stock cache entry %q: %w", raw, err)
	}
	return n, true, nil
}

// Generation returns the invalidation counter of the size, 0 if never invalidated
func (c *RedisStockCache) Generation(ctx context.Context, productSizeID uuid.UUID) (uint64, error) {
	gen, err := c.client.Get(ctx, c.generationKey(productSizeID)).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read stock cache generation: %w", err)
	}
	return gen, nil
}

// SetAvailable stores the total for ttl unless the size was invalidated
// after generation was read. The check and the write run as one script.
func (c *RedisStockCache) SetAvailable(ctx context.Context, productSizeID uuid.UUID, available int, generation uint64, ttl time.Duration) error {
	keys := []string{c.generationKey(productSizeID), c.key(productSizeID)}
	err := setIfGeneration.Run(ctx, c.client, keys,
		strconv.FormatUint(generation, 10), available, ttl.Milliseconds(),
	).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to write stock cache: %w", err)
	}
	return nil
}

// Invalidate deletes the totals of the given sizes and bumps their
// generation in one MULTI/EXEC
func (c *RedisStockCache) Invalidate(ctx context.Context, productSizeIDs ...uuid.UUID) error {
	if len(productSizeIDs) == 0 {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range productSizeIDs {
			pipe.Incr(ctx, c.generationKey(id))
			pipe.Del(ctx, c.key(id))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate stock cache: %w", err)
	}
	return nil
}

var (
	_ StockCache = (*InMemoryStockCache)(nil)
	_ StockCache = (*RedisStockCache)(nil)
)
