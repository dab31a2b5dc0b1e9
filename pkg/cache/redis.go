// Package cache is a thin JSON cache over Redis. Every call is a no-op (or
// a miss) while RDB is nil, so callers never need to check availability.
package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/farmdirect/farmdirect/config"
	"github.com/farmdirect/farmdirect/pkg/metrics"
)

var RDB *redis.Client

// Connect initialises the Redis client and verifies the connection with a ping.
// Returns an error so the caller can react (log warning, fall back, or abort).
func Connect(ctx context.Context) error {
	client := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr(),
		Password: config.RedisPassword(),
		DB:       0,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		RDB = nil // mark as unavailable so Get/Set/Del no-op safely
		return fmt.Errorf("cache: redis ping: %w", err)
	}
	RDB = client
	return nil
}

// Close releases the client.
func Close() error {
	if RDB == nil {
		return nil
	}
	err := RDB.Close()
	RDB = nil
	return err
}

// Get retrieves a cached value by key and unmarshals into dest.
// Returns true on a cache hit, false on miss or error.
func Get(ctx context.Context, key string, dest interface{}) bool {
	if RDB == nil {
		return false
	}

	val, err := RDB.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}

	return json.Unmarshal(val, dest) == nil
}

// Set stores value in Redis under key for the given TTL.
func Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if RDB == nil {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return RDB.Set(ctx, key, data, ttl).Err()
}

// Del removes one or more keys from Redis.
func Del(ctx context.Context, keys ...string) error {
	if RDB == nil || len(keys) == 0 {
		return nil
	}
	return RDB.Del(ctx, keys...).Err()
}

// Remember returns the cached value of key, or calls fn and caches its
// result for ttl. name labels the hit/miss metrics. A ttl of 0 bypasses the
// cache entirely.
func Remember[T any](ctx context.Context, name, key string, ttl time.Duration, fn func() (T, error)) (T, error) {
	var v T
	if ttl > 0 && Get(ctx, key, &v) {
		metrics.CacheHits.WithLabelValues(name).Inc()
		return v, nil
	}
	metrics.CacheMisses.WithLabelValues(name).Inc()

	v, err := fn()
	if err != nil {
		return v, err
	}
	if ttl > 0 {
		_ = Set(ctx, key, v, ttl)
	}
	return v, nil
}

// Key builds a namespaced key from prefix and the JSON form of parts.
func Key(prefix string, parts ...interface{}) string {
	data, _ := json.Marshal(parts)
	sum := sha1.Sum(data)
	return prefix + ":" + hex.EncodeToString(sum[:])
}
