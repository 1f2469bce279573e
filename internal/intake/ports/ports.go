// Package ports defines shared interfaces for the intake module.
// Interfaces are placed here when consumed by multiple services to avoid duplication.
package ports

import (
	"context"
	"time"

	"intake/internal/intake/models"
)

// Source yields raw inbound messages to the pipeline. Receive blocks until a
// message is available, the source is drained, or the context is cancelled.
type Source interface {
	// Receive returns the next raw message. ok is false when the source is
	// exhausted and no further messages will arrive.
	Receive(ctx context.Context) (msg models.RawMessage, ok bool, err error)
}

// StoreClient reconciles records against one of the target databases. Every
// method addresses a single database identified by its selector.
type StoreClient interface {
	// FindCandidates returns all entries in the selected database whose
	// registration code equals code.
	FindCandidates(ctx context.Context, selector models.Selector, code string) ([]models.Candidate, error)

	// NextSequence allocates the next sequence key for the selected database.
	// Allocated keys are never returned to the pool, even when the caller's
	// commit subsequently fails.
	NextSequence(ctx context.Context, selector models.Selector) (int64, error)

	// Commit applies a create or update decision and returns the stored
	// entry's identifier.
	Commit(ctx context.Context, decision models.MatchDecision) (string, error)
}

// Notifier delivers operator-facing notifications about processing outcomes.
type Notifier interface {
	Send(ctx context.Context, req models.NotificationRequest) error
}

// Locker provides mutual exclusion for reconciliation against a shared store.
// Acquire blocks until the lock is held or ctx is done; the returned release
// function must be called exactly once.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error)
}
