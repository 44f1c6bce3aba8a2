package cache

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/eko/gocache/lib/v4/store"
	gocache_store "github.com/eko/gocache/store/go_cache/v4"
	redis_store "github.com/eko/gocache/store/redis/v4"
	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// RedisStoreEnvVar holds a redis URL. When set, verifying keys are cached in redis
// so that several validator instances share one view of the intermediate.
const RedisStoreEnvVar = "TRUSTCHAIN_KEY_CACHE_REDIS_ADDRESS"

const redisPingTimeout = 2 * time.Second

// NewStore returns a redis store if RedisStoreEnvVar is set and an in-memory store otherwise
func NewStore(ctx context.Context, maxTimeout, cleanupInterval time.Duration) (store.StoreInterface, error) {
	redisAddr := os.Getenv(RedisStoreEnvVar)
	if redisAddr != "" {
		log.WithContext(ctx).Info("using redis key cache")
		return getRedisStore(ctx, redisAddr)
	}
	goc := gocache.New(maxTimeout, cleanupInterval)
	return gocache_store.NewGoCache(goc), nil
}

func getRedisStore(ctx context.Context, redisEnvAddr string) (store.StoreInterface, error) {
	options, err := redis.ParseURL(redisEnvAddr)
	if err != nil {
		return nil, fmt.Errorf("parsing redis cache url: %s", err)
	}

	redisClient := redis.NewClient(options)
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()

	_, err = redisClient.Ping(pingCtx).Result()
	if err != nil {
		_ = redisClient.Close()
		return nil, fmt.Errorf("ping redis cache: %w", err)
	}

	return redis_store.NewRedis(redisClient), nil
}

// GetString reads a string value regardless of whether the backing store hands back a string or bytes
func GetString(ctx context.Context, s store.StoreInterface, key string) (string, error) {
	v, err := s.Get(ctx, key)
	if err != nil {
		return "", err
	}

	switch v := v.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	}

	return "", fmt.Errorf("unexpected type: %T", v)
}
