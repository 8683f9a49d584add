package address

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/guillermoBallester/telemetry-receiver/internal/core/domain"
	"github.com/guillermoBallester/telemetry-receiver/internal/core/port"
)

const cacheKey = "address:random"

// Cached serves the last fetched address until its TTL expires. Cache
// failures are logged and fall through to the wrapped provider.
type Cached struct {
	next   port.AddressProvider
	cache  port.Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewCached wraps next with cache. A nil cache returns next unchanged.
func NewCached(next port.AddressProvider, cache port.Cache, ttl time.Duration, logger *slog.Logger) port.AddressProvider {
	if cache == nil {
		return next
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{next: next, cache: cache, ttl: ttl, logger: logger}
}

func (c *Cached) RandomAddress(ctx context.Context) (domain.Address, error) {
	if addr, ok := c.lookup(ctx); ok {
		return addr, nil
	}

	addr, err := c.next.RandomAddress(ctx)
	if err != nil {
		return domain.Address{}, err
	}

	data, err := json.Marshal(addr)
	if err == nil {
		err = c.cache.Set(ctx, cacheKey, data, c.ttl)
	}
	if err != nil {
		c.logger.WarnContext(ctx, "caching address failed", slog.String("error.message", err.Error()))
	}
	return addr, nil
}

func (c *Cached) lookup(ctx context.Context) (domain.Address, bool) {
	data, found, err := c.cache.Get(ctx, cacheKey)
	if err != nil {
		c.logger.WarnContext(ctx, "reading cached address failed", slog.String("error.message", err.Error()))
		return domain.Address{}, false
	}
	if !found {
		return domain.Address{}, false
	}

	var addr domain.Address
	if err := json.Unmarshal(data, &addr); err != nil {
		c.logger.WarnContext(ctx, "discarding malformed cached address", slog.String("error.message", err.Error()))
		return domain.Address{}, false
	}
	return addr, true
}
