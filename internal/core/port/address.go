package port

import (
	"context"
	"time"

	"github.com/guillermoBallester/telemetry-receiver/internal/core/domain"
)

// AddressProvider returns a postal address to decorate forecasts with.
type AddressProvider interface {
	RandomAddress(ctx context.Context) (domain.Address, error)
}

// Cache stores opaque values with an expiration. A miss is (nil, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}
