// Package redis provides a Redis-backed locker so that several intake
// instances can reconcile against the same store without interleaving.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"intake/pkg/platform/sentinel"
)

// releaseScript deletes the lock key only when it still holds our token, so a
// lease that expired and was taken over by another instance is never removed.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker implements leased mutual exclusion with SET NX plus a TTL.
type Locker struct {
	client        *redis.Client
	retryInterval time.Duration
}

// Option configures the locker.
type Option func(*Locker)

// WithRetryInterval overrides how often a blocked Acquire re-attempts the lock.
func WithRetryInterval(d time.Duration) Option {
	return func(l *Locker) {
		l.retryInterval = d
	}
}

func New(client *redis.Client, opts ...Option) *Locker {
	l := &Locker{
		client:        client,
		retryInterval: 50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire blocks until the lock is held or ctx is done. The lease expires
// after ttl; the returned release revokes it early.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	ticker := time.NewTicker(l.retryInterval)
	defer ticker.Stop()

	for {
		release, err := l.TryAcquire(ctx, key, ttl)
		if err == nil {
			return release, nil
		}
		if err != sentinel.ErrLockHeld {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// TryAcquire attempts a single non-blocking acquisition, returning
// sentinel.ErrLockHeld when another holder owns the lease.
func (l *Locker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, sentinel.ErrLockHeld
	}
	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
			return fmt.Errorf("release lock %s: %w", key, err)
		}
		return nil
	}
	return release, nil
}
