package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/bonos/internal/clock"
	"github.com/smallbiznis/bonos/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalBucketRefills(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	buckets := newLocalBuckets(fake.Now)

	for i := 0; i < 2; i++ {
		res, err := buckets.Allow("k", 1, 2)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}
	res, err := buckets.Allow("k", 1, 2)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, time.Second, res.RetryAfter)

	fake.Advance(time.Second)
	res, err = buckets.Allow("k", 1, 2)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestLocalBucketKeysAreIndependent(t *testing.T) {
	buckets := newLocalBuckets(nil)
	res, err := buckets.Allow("a", 1, 1)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	res, err = buckets.Allow("b", 1, 1)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestLocalBucketValidatesInput(t *testing.T) {
	buckets := newLocalBuckets(nil)
	_, err := buckets.Allow("", 1, 1)
	assert.Error(t, err)
	_, err = buckets.Allow("k", 0, 1)
	assert.Error(t, err)
}

func TestVerifyLimiterWithoutRedis(t *testing.T) {
	cfg := config.Config{Verify: config.VerifyConfig{RatePerSecond: 1, Burst: 1}}
	fake := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	limiter := NewVerifyLimiter(cfg, nil, fake, zap.NewNop())
	ctx := context.Background()

	res, err := limiter.Allow(ctx, "shop-1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = limiter.Allow(ctx, "shop-1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
}

func TestVerifyLimiterDisabledAllowsAll(t *testing.T) {
	limiter := NewVerifyLimiter(config.Config{}, nil, clock.SystemClock{}, zap.NewNop())
	assert.False(t, limiter.Enabled())
	res, err := limiter.Allow(context.Background(), "x")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestLockerWithoutClient(t *testing.T) {
	var l *Locker
	_, _, err := l.TryLock(context.Background(), "k", time.Second)
	assert.ErrorIs(t, err, ErrLockNotConfigured)
	assert.NoError(t, l.Release(context.Background(), "k", "t"))
}
