package cache

import (
	"bytes"
	"context"
	"time"

	"github.com/guillermoBallester/telemetry-receiver/internal/core/port"
	gocache "github.com/patrickmn/go-cache"
)

var _ port.Cache = (*Memory)(nil)

// Memory is an in-process cache. Values are copied on the way in and out.
type Memory struct {
	cache *gocache.Cache
}

func NewMemory(defaultExpiration, cleanupInterval time.Duration) *Memory {
	return &Memory{cache: gocache.New(defaultExpiration, cleanupInterval)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, found := m.cache.Get(key)
	if !found {
		return nil, false, nil
	}
	b, ok := value.([]byte)
	if !ok {
		m.cache.Delete(key)
		return nil, false, nil
	}
	return bytes.Clone(b), true, nil
}

// Set stores value. A zero ttl uses the cache default expiration.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	m.cache.Set(key, bytes.Clone(value), ttl)
	return nil
}

func (m *Memory) Close() error {
	m.cache.Flush()
	return nil
}
