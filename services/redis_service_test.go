package services

import (
	"context"
	"net"
	"strconv"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quoteapi-server/models"
)

func newTestRedis(t *testing.T) *RedisService {
	t.Helper()
	srv, err := miniredis.Run()
	if err != nil {
		t.Skipf("miniredis unavailable: %v", err)
	}
	t.Cleanup(srv.Close)

	host, portStr, err := net.SplitHostPort(srv.Addr())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	return NewRedisService(host, port)
}

func TestAIConfigCacheRoundTrip(t *testing.T) {
	r := newTestRedis(t)
	ctx := context.Background()

	assert.Nil(t, r.GetCachedAIConfig(ctx))

	cfg := models.AIConfig{APIURL: "https://api.example.com/v1", APIKey: "sk-test", Model: "gpt-4o-mini"}
	r.CacheAIConfig(ctx, cfg)

	cached := r.GetCachedAIConfig(ctx)
	require.NotNil(t, cached)
	assert.Equal(t, cfg, *cached)

	r.InvalidateAIConfig(ctx)
	assert.Nil(t, r.GetCachedAIConfig(ctx))
}

func TestAllowRunFixedWindow(t *testing.T) {
	r := newTestRedis(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.True(t, r.AllowRun(ctx, "203.0.113.1", 3), "request %d should pass", i+1)
	}
	assert.False(t, r.AllowRun(ctx, "203.0.113.1", 3))

	// Other callers have their own window.
	assert.True(t, r.AllowRun(ctx, "203.0.113.2", 3))
}

func TestAllowRunZeroLimitDisablesThrottle(t *testing.T) {
	r := newTestRedis(t)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		assert.True(t, r.AllowRun(ctx, "203.0.113.1", 0))
	}
}

func TestAllowRunFailsOpen(t *testing.T) {
	// Points at a port nothing listens on.
	r := NewRedisService("127.0.0.1", 1)
	assert.True(t, r.AllowRun(context.Background(), "203.0.113.1", 3))
}
