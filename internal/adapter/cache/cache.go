// Package cache provides the byte caches used to avoid repeated outbound calls.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/guillermoBallester/telemetry-receiver/internal/core/port"
)

// Backends accepted by New.
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config selects and tunes a cache backend.
type Config struct {
	Backend    string
	DefaultTTL time.Duration
	RedisURL   string
	KeyPrefix  string
}

// New builds the configured backend. BackendNone (or empty) returns a nil cache.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (port.Cache, error) {
	switch cfg.Backend {
	case "", BackendNone:
		return nil, nil
	case BackendMemory:
		return NewMemory(cfg.DefaultTTL, 2*cfg.DefaultTTL), nil
	case BackendRedis:
		return NewRedis(ctx, cfg.RedisURL, cfg.KeyPrefix, logger)
	default:
		return nil, fmt.Errorf("unsupported cache backend %q", cfg.Backend)
	}
}
