package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only when the caller still owns it.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

var (
	ErrEmptyLockKey   = errors.New("lock key is empty")
	ErrInvalidLockTTL = errors.New("lock ttl must be positive")
)

// Lease is a held lock. The zero value is a lease that was never acquired.
type Lease struct {
	Key   string
	Token string
}

type Locker struct {
	client redis.Cmdable
	script *redis.Script
}

func NewLocker(client redis.Cmdable) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{
		client: client,
		script: redis.NewScript(releaseScript),
	}
}

// Acquire sets key when absent. The lease expires after ttl even if the
// holder never releases it.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, bool, error) {
	if l == nil || l.client == nil {
		return Lease{}, false, ErrNotConfigured
	}
	if key == "" {
		return Lease{}, false, ErrEmptyLockKey
	}
	if ttl <= 0 {
		return Lease{}, false, ErrInvalidLockTTL
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return Lease{}, false, err
	}
	if !ok {
		return Lease{}, false, nil
	}
	return Lease{Key: key, Token: token}, true, nil
}

func (l *Locker) Release(ctx context.Context, lease Lease) error {
	if l == nil || l.client == nil || lease.Key == "" || lease.Token == "" {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{lease.Key}, lease.Token).Err()
}
