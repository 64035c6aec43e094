package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/fincoach/internal/config"
)

const (
	keyChatTurnBucket = "fincoach:chat:%s"
	keyChatTurnLock   = "fincoach:chat:lock:%s"
)

// ChatTurnLimiter throttles chat turns per identity. A nil limiter allows
// everything.
type ChatTurnLimiter struct {
	bucket  *TokenBucket
	locker  *Locker
	rate    float64
	burst   int
	lockTTL time.Duration
}

func NewChatTurnLimiter(client *redis.Client, cfg config.Config) *ChatTurnLimiter {
	if client == nil {
		return nil
	}
	return newChatTurnLimiter(client, cfg.Chat)
}

func newChatTurnLimiter(client redis.Cmdable, cfg config.ChatConfig) *ChatTurnLimiter {
	rate := cfg.RatePerMinute / 60
	if rate <= 0 || cfg.RateBurst <= 0 {
		return nil
	}
	lockTTL := time.Duration(cfg.TurnLockSeconds) * time.Second
	return &ChatTurnLimiter{
		bucket:  NewTokenBucket(client),
		locker:  NewLocker(client),
		rate:    rate,
		burst:   cfg.RateBurst,
		lockTTL: lockTTL,
	}
}

func (l *ChatTurnLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// Allow takes one turn from the identity's bucket.
func (l *ChatTurnLimiter) Allow(ctx context.Context, userID uuid.UUID) (Result, error) {
	if !l.Enabled() {
		return Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, BucketKey(userID), l.rate, l.burst)
}

// Begin marks a turn in flight for the identity. ok is false while another
// turn for the same identity still holds the lease.
func (l *ChatTurnLimiter) Begin(ctx context.Context, userID uuid.UUID) (Lease, bool, error) {
	if !l.Enabled() || l.lockTTL <= 0 {
		return Lease{}, true, nil
	}
	return l.locker.Acquire(ctx, LockKey(userID), l.lockTTL)
}

func (l *ChatTurnLimiter) End(ctx context.Context, lease Lease) error {
	if !l.Enabled() {
		return nil
	}
	return l.locker.Release(ctx, lease)
}

func BucketKey(userID uuid.UUID) string {
	return fmt.Sprintf(keyChatTurnBucket, userID.String())
}

func LockKey(userID uuid.UUID) string {
	return fmt.Sprintf(keyChatTurnLock, userID.String())
}
