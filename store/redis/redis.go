package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ryhazerus/apigate/store"
)

// Compile-time interface check.
var _ store.TokenStore = (*RedisStore)(nil)

// RedisStore is a TokenStore backed by Redis. Each record is a Redis hash
// with fields "value" and "issued_at" (Unix nanoseconds). Records saved with
// a ttl expire through Redis itself, which lets several processes share one
// token.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis-backed store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Load returns the record for key. A missing or expired hash reports ok=false.
func (r *RedisStore) Load(ctx context.Context, key string) (store.Record, bool, error) {
	vals, err := r.client.HGetAll(ctx, redisKey(key)).Result()
	if err != nil {
		return store.Record{}, false, fmt.Errorf("apigate/store/redis: load: %w", err)
	}

	if len(vals) == 0 || vals["value"] == "" {
		return store.Record{}, false, nil
	}

	issued, err := strconv.ParseInt(vals["issued_at"], 10, 64)
	if err != nil {
		return store.Record{}, false, fmt.Errorf("apigate/store/redis: parse issued_at: %w", err)
	}

	return store.Record{Value: vals["value"], IssuedAt: time.Unix(0, issued).UTC()}, true, nil
}

// Save replaces the hash for key in one MULTI/EXEC transaction.
func (r *RedisStore) Save(ctx context.Context, key string, rec store.Record, ttl time.Duration) error {
	k := redisKey(key)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, k)
		pipe.HSet(ctx, k, "value", rec.Value, "issued_at", strconv.FormatInt(rec.IssuedAt.UnixNano(), 10))
		if ttl > 0 {
			pipe.PExpire(ctx, k, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("apigate/store/redis: save: %w", err)
	}
	return nil
}

// Delete removes the record for key.
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, redisKey(key)).Err()
}

// Close closes the underlying Redis client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

func redisKey(key string) string {
	return "apigate:token:" + key
}
