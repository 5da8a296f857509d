package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func TestSetIdempotency(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client)

	key := "test-req-" + time.Now().Format("20060102150405.000")
	defer client.Del(ctx, idempotencyKeyPrefix+key)

	ok, err := adapter.SetIdempotency(ctx, key)
	if err != nil {
		t.Fatalf("SetIdempotency failed: %v", err)
	}
	if !ok {
		t.Error("expected first claim to succeed")
	}

	ok, err = adapter.SetIdempotency(ctx, key)
	if err != nil {
		t.Fatalf("SetIdempotency failed: %v", err)
	}
	if ok {
		t.Error("expected second claim to be rejected")
	}

	ttl, err := client.TTL(ctx, idempotencyKeyPrefix+key).Result()
	if err != nil {
		t.Fatalf("TTL failed: %v", err)
	}
	if ttl <= 0 || ttl > idempotencyKeyTTL {
		t.Errorf("unexpected ttl: %v", ttl)
	}
}
