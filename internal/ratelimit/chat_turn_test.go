package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/fincoach/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestTokenBucketDeniesAfterBurst(t *testing.T) {
	_, client := newTestRedis(t)
	bucket := NewTokenBucket(client)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := bucket.Allow(ctx, "fincoach:chat:test", 1.0/60, 2)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "call %d", i)
	}

	res, err := bucket.Allow(ctx, "fincoach:chat:test", 1.0/60, 2)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, 60*time.Second, res.RetryAfter)
}

func TestTokenBucketKeysAreIndependent(t *testing.T) {
	_, client := newTestRedis(t)
	bucket := NewTokenBucket(client)
	ctx := context.Background()

	res, err := bucket.Allow(ctx, "fincoach:chat:a", 1.0/60, 1)
	require.NoError(t, err)
	require.True(t, res.Allowed)

	res, err = bucket.Allow(ctx, "fincoach:chat:b", 1.0/60, 1)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestLockerAcquireIsExclusive(t *testing.T) {
	mr, client := newTestRedis(t)
	locker := NewLocker(client)
	ctx := context.Background()

	lease, ok, err := locker.Acquire(ctx, "fincoach:chat:lock:x", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, lease.Token, mustGet(t, mr, "fincoach:chat:lock:x"))

	_, ok, err = locker.Acquire(ctx, "fincoach:chat:lock:x", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, locker.Release(ctx, lease))
	assert.False(t, mr.Exists("fincoach:chat:lock:x"))
}

func TestLockerStaleReleaseKeepsNewHolder(t *testing.T) {
	mr, client := newTestRedis(t)
	locker := NewLocker(client)
	ctx := context.Background()

	stale, ok, err := locker.Acquire(ctx, "fincoach:chat:lock:x", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)
	require.False(t, mr.Exists("fincoach:chat:lock:x"))

	current, ok, err := locker.Acquire(ctx, "fincoach:chat:lock:x", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, locker.Release(ctx, stale))
	assert.Equal(t, current.Token, mustGet(t, mr, "fincoach:chat:lock:x"))
}

func TestChatTurnLimiterLeaseLifecycle(t *testing.T) {
	mr, client := newTestRedis(t)
	limiter := newChatTurnLimiter(client, config.ChatConfig{
		RatePerMinute:   10,
		RateBurst:       5,
		TurnLockSeconds: 90,
	})
	require.True(t, limiter.Enabled())

	userID := uuid.New()
	ctx := context.Background()

	lease, ok, err := limiter.Begin(ctx, userID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 90*time.Second, mr.TTL(LockKey(userID)))

	_, ok, err = limiter.Begin(ctx, userID)
	require.NoError(t, err)
	assert.False(t, ok, "second turn while the first is in flight")

	_, ok, err = limiter.Begin(ctx, uuid.New())
	require.NoError(t, err)
	assert.True(t, ok, "other identities are not blocked")

	require.NoError(t, limiter.End(ctx, lease))
	assert.False(t, mr.Exists(LockKey(userID)))
}

func TestChatTurnLimiterSurfacesRedisErrors(t *testing.T) {
	mr, client := newTestRedis(t)
	limiter := newChatTurnLimiter(client, config.ChatConfig{RatePerMinute: 10, RateBurst: 5, TurnLockSeconds: 90})
	mr.SetError("ERR unavailable")

	_, err := limiter.Allow(context.Background(), uuid.New())
	assert.Error(t, err)

	_, _, err = limiter.Begin(context.Background(), uuid.New())
	assert.Error(t, err)
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	value, err := mr.Get(key)
	require.NoError(t, err)
	return value
}
