package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/guillermoBallester/telemetry-receiver/internal/core/port"
	"github.com/redis/go-redis/v9"
)

var _ port.Cache = (*Redis)(nil)

// Redis is a cache shared between receiver instances.
type Redis struct {
	client    *redis.Client
	keyPrefix string
	logger    *slog.Logger
}

// NewRedis connects to the server at url (redis://[:password@]host:port/db)
// and verifies the connection.
func NewRedis(ctx context.Context, url, keyPrefix string, logger *slog.Logger) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{client: client, keyPrefix: keyPrefix, logger: logger}, nil
}

func (r *Redis) prefixedKey(key string) string {
	if r.keyPrefix == "" {
		return key
	}
	return r.keyPrefix + ":" + key
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.client.Get(ctx, r.prefixedKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return b, true, nil
}

// Set stores value. A zero ttl keeps the key until evicted.
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.prefixedKey(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	r.logger.DebugContext(ctx, "cache entry stored",
		slog.String("cache.key", key),
		slog.Duration("cache.ttl", ttl),
	)
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
