package ratelimit

import (
	"context"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/recipeverse/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDefaultBucketTTL(t *testing.T) {
	assert.Equal(t, 20*time.Second, defaultBucketTTL(0.5, 5))
	assert.Equal(t, time.Second, defaultBucketTTL(100, 1))
	assert.Equal(t, time.Second, defaultBucketTTL(0, 5))
}

func TestCastHelpersAcceptRedisReplyTypes(t *testing.T) {
	assert.Equal(t, int64(1), castToInt(int64(1)))
	assert.Equal(t, int64(42), castToInt("42"))
	assert.InDelta(t, 2.5, castToFloat("2.5"), 1e-9)
	assert.InDelta(t, 3.0, castToFloat(int64(3)), 1e-9)
	assert.Zero(t, castToFloat(nil))
}

func TestBuildResultComputesRetryAfter(t *testing.T) {
	res := buildResult(false, 0.5, 1_000, 0.5, 5)
	assert.False(t, res.Allowed)
	assert.Equal(t, time.Second, res.RetryAfter)
	assert.Equal(t, 5, res.Limit)

	res = buildResult(true, 3.2, 1_000, 0.5, 5)
	assert.True(t, res.Allowed)
	assert.Equal(t, 3, res.Remaining)
	assert.Zero(t, res.RetryAfter)
}

func TestNilGenerateLimiterAllows(t *testing.T) {
	var l *GenerateLimiter
	assert.True(t, l.Allow(context.Background(), "u1").Allowed)
}

func TestNewGenerateLimiterDisabledWithoutClient(t *testing.T) {
	cfg := config.Config{RateLimit: config.RateLimitConfig{GenerateRate: 1, GenerateBurst: 1}}
	assert.Nil(t, NewGenerateLimiter(cfg, nil, zap.NewNop()))
}

func TestGenerateLimiterFailsOpenWhenRedisUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	cfg := config.Config{RateLimit: config.RateLimitConfig{GenerateRate: 1, GenerateBurst: 2}}
	l := NewGenerateLimiter(cfg, client, zap.NewNop())
	require.NotNil(t, l)

	d := l.Allow(context.Background(), "u1")
	assert.True(t, d.Allowed)
}

func TestCustomerLockDisabledWithoutClient(t *testing.T) {
	l := NewCustomerLock(config.Config{}, nil)
	assert.Nil(t, l)

	release, err := l.Acquire(context.Background(), "u1")
	require.NoError(t, err)
	assert.NoError(t, release(context.Background()))

	_, err = l.Acquire(context.Background(), "  ")
	assert.ErrorIs(t, err, errEmptyLockUser)
}

func TestCustomerLockTTLFromConfig(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { _ = client.Close() })

	l := NewCustomerLock(config.Config{RateLimit: config.RateLimitConfig{LockTTLSecs: 5}}, client)
	assert.Equal(t, 5*time.Second, l.ttl)
	assert.Equal(t, defaultCustomerLockTTL, NewCustomerLock(config.Config{}, client).ttl)
	assert.Equal(t, "lock:billing_customer:u1", customerLockKey("u1"))
}

func TestCustomerLockReportsRedisFailure(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	_, err := NewCustomerLock(config.Config{}, client).Acquire(context.Background(), "u1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCustomerLockHeld)
}
