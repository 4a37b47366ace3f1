package cooldown

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares cooldowns between bot processes. Each key lives for
// exactly one window, so Redis expiry does the sweeping.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client, prefix: "xp:cooldown:"}, nil
}

func (s *RedisStore) Allow(ctx context.Context, key string, window time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.prefix+key, time.Now().UnixMilli(), window).Result()
	if err != nil {
		return false, fmt.Errorf("cooldown check for %s: %w", key, err)
	}
	return ok, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
