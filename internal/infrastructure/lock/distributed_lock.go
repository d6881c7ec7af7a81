package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

var (
	ErrLockFailed = errors.New("could not acquire distributed lock")
)

// DistributedLock is a Redis SetNX lock with an owner token. The token is
// verified on release so an expired holder cannot delete a lock someone
// else now owns.
type DistributedLock struct {
	client     *redis.Client
	key        string
	value      string
	expiration time.Duration
}

func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// TryLock attempts SET key value NX EX once. The expiry keeps a crashed
// holder from leaving the lock stuck forever.
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	success, err := l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
	if err != nil {
		return false, err
	}
	return success, nil
}

// Lock retries TryLock up to maxRetries times.
func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		success, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if success {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return ErrLockFailed
}

// Unlock releases the lock via a check-and-delete Lua script so the
// comparison and the delete are atomic.
func (l *DistributedLock) Unlock(ctx context.Context) error {
	script := `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`
	_, err := l.client.Eval(ctx, script, []string{l.key}, l.value).Result()
	return err
}

// NewCreditLock scopes a lock to one user's credit account. Different users
// pay concurrently; the same user's double-submitted payment serializes
// here before it ever reaches the account row lock.
func NewCreditLock(client *redis.Client, userID int64, holder string) *DistributedLock {
	key := fmt.Sprintf("credit:lock:user:%d", userID)
	return NewDistributedLock(client, key, holder, 30*time.Second)
}
