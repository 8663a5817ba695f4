package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"gitlab.com/timkado/api/accessibility-finder-service/internal/adapters/metrics"
	"gitlab.com/timkado/api/accessibility-finder-service/internal/domain"
	"gitlab.com/timkado/api/accessibility-finder-service/pkg/cachekeys"
)

const storeName = "redis"

// setScript inserts a value while keeping the entry count bounded.
// KEYS[1] data key, KEYS[2] insertion-order zset, KEYS[3] sequence counter.
// ARGV[1] value, ARGV[2] ttl in ms, ARGV[3] max entries.
// A new key evicts the lowest-sequence (oldest inserted) members until there is room.
// Returns the number of evicted entries.
var setScript = redis.NewScript(`
	local evicted = 0
	if not redis.call("ZSCORE", KEYS[2], KEYS[1]) then
		local size = redis.call("ZCARD", KEYS[2])
		local max = tonumber(ARGV[3])
		while size >= max do
			local oldest = redis.call("ZPOPMIN", KEYS[2])
			if #oldest == 0 then
				break
			end
			redis.call("DEL", oldest[1])
			evicted = evicted + 1
			size = size - 1
		end
		local seq = redis.call("INCR", KEYS[3])
		redis.call("ZADD", KEYS[2], seq, KEYS[1])
	end
	redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
	return evicted
`)

// CacheStoreAdapter implements domain.CacheStore on Redis so replicas share one cache.
// Redis enforces the TTL; a sorted set tracks insertion order for the entry bound.
// Values are stored brotli-compressed.
type CacheStoreAdapter struct {
	redisClient *redis.Client
	logger      domain.Logger
	prefix      string
	maxEntries  int
}

// NewCacheStoreAdapter creates a new CacheStoreAdapter.
func NewCacheStoreAdapter(redisClient *redis.Client, logger domain.Logger, prefix string, maxEntries int) *CacheStoreAdapter {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &CacheStoreAdapter{
		redisClient: redisClient,
		logger:      logger,
		prefix:      prefix,
		maxEntries:  maxEntries,
	}
}

func (a *CacheStoreAdapter) dataKey(key string) string {
	return cachekeys.StoreKey(a.prefix, "entry:"+key)
}

func (a *CacheStoreAdapter) orderKey() string {
	return cachekeys.StoreKey(a.prefix, "order")
}

func (a *CacheStoreAdapter) seqKey() string {
	return cachekeys.StoreKey(a.prefix, "seq")
}

// Get retrieves a value. Redis errors are logged and reported as a miss.
func (a *CacheStoreAdapter) Get(ctx context.Context, key string) ([]byte, bool) {
	dataKey := a.dataKey(key)
	val, err := a.redisClient.Get(ctx, dataKey).Bytes()
	if errors.Is(err, redis.Nil) {
		// Expired by Redis or never set; drop a stale order entry if one lingers.
		if remErr := a.redisClient.ZRem(ctx, a.orderKey(), dataKey).Err(); remErr != nil {
			a.logger.Debug(ctx, "Failed to prune cache order entry", "key", dataKey, "error", remErr.Error())
		}
		metrics.ObserveCacheLookup(storeName, metrics.CacheMiss)
		return nil, false
	}
	if err != nil {
		a.logger.Error(ctx, "Redis GET for cache entry failed, treating as miss", "key", dataKey, "error", err.Error())
		metrics.ObserveCacheLookup(storeName, metrics.CacheMiss)
		return nil, false
	}
	out, err := decompress(val)
	if err != nil {
		a.logger.Warn(ctx, "Undecodable cache entry in Redis, treating as miss", "key", dataKey, "error", err.Error())
		metrics.ObserveCacheLookup(storeName, metrics.CacheMiss)
		return nil, false
	}
	metrics.ObserveCacheLookup(storeName, metrics.CacheHit)
	return out, true
}

// Set stores a value with a TTL. Redis errors are logged and the write is dropped.
func (a *CacheStoreAdapter) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	dataKey := a.dataKey(key)
	ttlMs := ttl.Milliseconds()
	if ttlMs < 1 {
		ttlMs = 1
	}

	packed, err := compress(value)
	if err != nil {
		a.logger.Error(ctx, "Failed to compress cache entry, dropping write", "key", dataKey, "error", err.Error())
		return
	}

	evicted, err := setScript.Run(ctx, a.redisClient,
		[]string{dataKey, a.orderKey(), a.seqKey()},
		packed, ttlMs, a.maxEntries,
	).Int64()
	if err != nil {
		a.logger.Error(ctx, "Redis cache SET script failed, dropping write", "key", dataKey, "error", err.Error())
		return
	}
	for i := int64(0); i < evicted; i++ {
		metrics.ObserveCacheEviction(storeName)
	}
	a.logger.Debug(ctx, "Cached entry in Redis", "key", dataKey, "ttl", ttl.String(), "evicted", evicted)
}

// Name identifies the dependency in readiness reports.
func (a *CacheStoreAdapter) Name() string {
	return storeName
}

// Ping reports whether Redis is reachable, for readiness checks.
func (a *CacheStoreAdapter) Ping(ctx context.Context) error {
	return a.redisClient.Ping(ctx).Err()
}

var _ domain.CacheStore = (*CacheStoreAdapter)(nil)
