//go:build integration

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"go.uber.org/zap"
)

func TestSessionStatusCache_Integration(t *testing.T) {
	ctx := context.Background()

	redisC, err := tcredis.RunContainer(ctx, tc.WithImage("redis:7-alpine"))
	require.NoError(t, err)
	defer func() { require.NoError(t, redisC.Terminate(ctx)) }()

	uri, err := redisC.ConnectionString(ctx)
	require.NoError(t, err)

	opts, err := redis.ParseURL(uri)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	defer client.Close()

	cache := NewSessionStatusCache(client, zap.NewNop())

	_, found, err := cache.GetPaymentStatus(ctx, "sess_1")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, cache.SetPaymentStatus(ctx, "sess_1", "paid", time.Minute))

	status, found, err := cache.GetPaymentStatus(ctx, "sess_1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "paid", status)

	ttl, err := client.TTL(ctx, "checkout_session:sess_1").Result()
	require.NoError(t, err)
	require.Greater(t, ttl, time.Duration(0))
	require.LessOrEqual(t, ttl, time.Minute)
}
