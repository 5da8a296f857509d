package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idempotencyKeyPrefix = "order:request:"
	idempotencyKeyTTL    = 24 * time.Hour
)

// RedisAdapter backs the request-id deduplication gate. Keys expire after
// 24h; a key stranded by a crash between claim and commit ages out on its
// own.
type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	return r.client.SetNX(ctx, idempotencyKeyPrefix+key, 1, idempotencyKeyTTL).Result()
}
