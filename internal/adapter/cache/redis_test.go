package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func setupRedis(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	return url
}

func TestRedis_GetSet(t *testing.T) {
	url := setupRedis(t)
	ctx := context.Background()

	r, err := NewRedis(ctx, url, "telemetry-receiver", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	_, found, err := r.Get(ctx, "address:random")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, r.Set(ctx, "address:random", []byte("payload"), time.Minute))

	got, found, err := r.Get(ctx, "address:random")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "payload", string(got))

	// The prefix is applied to the stored key.
	raw, err := r.client.Get(ctx, "telemetry-receiver:address:random").Result()
	require.NoError(t, err)
	assert.Equal(t, "payload", raw)
}

func TestRedis_Expiration(t *testing.T) {
	url := setupRedis(t)
	ctx := context.Background()

	r, err := NewRedis(ctx, url, "", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	require.NoError(t, r.Set(ctx, "k", []byte("v"), 100*time.Millisecond))
	require.Eventually(t, func() bool {
		_, found, err := r.Get(ctx, "k")
		return err == nil && !found
	}, 3*time.Second, 50*time.Millisecond)
}

func TestNewRedis_Unreachable(t *testing.T) {
	_, err := NewRedis(context.Background(), "redis://127.0.0.1:1/0", "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pinging redis")
}
