// Package memory provides an in-process locker for tests and single-node runs.
package memory

import (
	"context"
	"sync"
	"time"

	"intake/pkg/platform/sentinel"
)

type lease struct {
	token  uint64
	expiry time.Time
}

// Locker serializes reconciliation within one process. Lock state expires
// after its ttl so a holder that never releases cannot wedge the pipeline.
// Each acquisition carries a token; release is a no-op unless the lease is
// still the releaser's own, mirroring the Redis locker.
type Locker struct {
	mu    sync.Mutex
	locks map[string]lease
	next  uint64
}

func New() *Locker {
	return &Locker{locks: make(map[string]lease)}
}

func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		if token, ok := l.tryAcquire(key, ttl); ok {
			return l.releaseFunc(key, token), nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// TryAcquire attempts a non-blocking acquisition, returning sentinel.ErrLockHeld
// when the lock is taken.
func (l *Locker) TryAcquire(_ context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	token, ok := l.tryAcquire(key, ttl)
	if !ok {
		return nil, sentinel.ErrLockHeld
	}
	return l.releaseFunc(key, token), nil
}

func (l *Locker) tryAcquire(key string, ttl time.Duration) (uint64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cur, held := l.locks[key]; held && time.Now().Before(cur.expiry) {
		return 0, false
	}
	l.next++
	l.locks[key] = lease{token: l.next, expiry: time.Now().Add(ttl)}
	return l.next, true
}

func (l *Locker) releaseFunc(key string, token uint64) func(context.Context) error {
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		// An expired lease may belong to a successor by now; only the current
		// holder's release removes it.
		if cur, held := l.locks[key]; held && cur.token == token {
			delete(l.locks, key)
		}
		return nil
	}
}
