// Package reconcile matches resolved records against the destination store
// and applies the create-or-update decision under an external lock.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"intake/internal/intake/metrics"
	"intake/internal/intake/models"
	"intake/internal/intake/ports"
	pkgerrors "intake/pkg/errors"
)

// Type aliases for shared interfaces.
type (
	StoreClient = ports.StoreClient
	Locker      = ports.Locker
)

// Result reports what reconciliation did to the store.
type Result struct {
	Op          models.Operation
	StoreID     string
	SequenceKey int64
}

type Service struct {
	store   StoreClient
	locker  Locker
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer

	lockTTL     time.Duration
	callTimeout time.Duration
	maxElapsed  time.Duration
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLockTTL overrides the lease duration on the per-selector lock.
func WithLockTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.lockTTL = ttl
	}
}

// WithCallTimeout bounds each individual store call.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.callTimeout = d
	}
}

// WithMaxElapsed bounds the total time spent retrying one store call.
func WithMaxElapsed(d time.Duration) Option {
	return func(s *Service) {
		s.maxElapsed = d
	}
}

func New(store StoreClient, locker Locker, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("store client is required")
	}
	if locker == nil {
		return nil, fmt.Errorf("locker is required")
	}

	svc := &Service{
		store:  store,
		locker: locker,
		logger: slog.Default(),
		tracer: otel.Tracer("intake/reconcile"),
		// The lease must outlast the worst case of three store calls, each
		// retried up to maxElapsed; an expired lease lets a second writer in
		// mid-reconcile and only the store's uniqueness check stops a
		// duplicate then.
		lockTTL:     2 * time.Minute,
		callTimeout: 5 * time.Second,
		maxElapsed:  20 * time.Second,
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc, nil
}

// Reconcile finds the record's place in the selected database and commits it.
// Exactly one entry per registration code is maintained: no match creates a
// fresh entry, a single match is updated in place keeping its sequence key,
// and several matches abort with an ambiguity error rather than guessing.
func (s *Service) Reconcile(ctx context.Context, selector models.Selector, record models.ResolvedRecord) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "reconcile",
		trace.WithAttributes(
			attribute.String("selector", string(selector)),
			attribute.String("registration_code", record.RegistrationCode),
		))
	defer span.End()

	release, err := s.locker.Acquire(ctx, lockKey(selector, record.RegistrationCode), s.lockTTL)
	if err != nil {
		return Result{}, pkgerrors.Wrap(err, pkgerrors.CodeStoreUnavailable, "acquire store lock")
	}
	defer func() {
		// The record is already committed (or abandoned) at this point, so a
		// failed release only delays the next holder until the lease expires.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.callTimeout)
		defer cancel()
		if err := release(releaseCtx); err != nil {
			s.logger.WarnContext(ctx, "failed to release store lock",
				"selector", selector, "error", err)
		}
	}()

	decision, err := s.decide(ctx, selector, record)
	if err != nil {
		return Result{}, err
	}

	// Commit is shielded from caller cancellation: once the decision is made
	// the write must land or fail on its own terms, never half-cancelled.
	commitCtx := context.WithoutCancel(ctx)
	storeID, err := withRetry(s, commitCtx, "commit", func(callCtx context.Context) (string, error) {
		return s.store.Commit(callCtx, decision)
	})
	if err != nil {
		return Result{}, err
	}

	if s.metrics != nil {
		s.metrics.IncrementStoreOperation(string(selector), string(decision.Op))
	}
	s.logger.InfoContext(ctx, "record reconciled",
		"selector", selector,
		"operation", decision.Op,
		"store_id", storeID,
		"sequence_key", decision.Record.SequenceKey,
		"registration_code", record.RegistrationCode,
	)

	return Result{Op: decision.Op, StoreID: storeID, SequenceKey: decision.Record.SequenceKey}, nil
}

func (s *Service) decide(ctx context.Context, selector models.Selector, record models.ResolvedRecord) (models.MatchDecision, error) {
	candidates, err := withRetry(s, ctx, "find candidates", func(callCtx context.Context) ([]models.Candidate, error) {
		return s.store.FindCandidates(callCtx, selector, record.RegistrationCode)
	})
	if err != nil {
		return models.MatchDecision{}, err
	}

	switch len(candidates) {
	case 0:
		key, err := withRetry(s, ctx, "next sequence", func(callCtx context.Context) (int64, error) {
			return s.store.NextSequence(callCtx, selector)
		})
		if err != nil {
			return models.MatchDecision{}, err
		}
		record.SequenceKey = key
		return models.MatchDecision{Op: models.OpCreate, Selector: selector, Record: record}, nil

	case 1:
		record.SequenceKey = candidates[0].SequenceKey
		return models.MatchDecision{
			Op:         models.OpUpdate,
			Selector:   selector,
			ExistingID: candidates[0].ID,
			Record:     record,
		}, nil

	default:
		if s.metrics != nil {
			s.metrics.IncrementAmbiguousMatches()
		}
		return models.MatchDecision{}, pkgerrors.Newf(pkgerrors.CodeAmbiguousMatch,
			"%d entries share registration code %s in %s", len(candidates), record.RegistrationCode, selector)
	}
}

// withRetry runs one store call with a per-attempt timeout and exponential
// backoff on transient failures. Non-retryable errors abort immediately.
// A free function because methods cannot be generic.
func withRetry[T any](s *Service, ctx context.Context, op string, call func(context.Context) (T, error)) (T, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	policy.MaxElapsedTime = s.maxElapsed

	attempt := 0
	result, err := backoff.RetryWithData(func() (T, error) {
		attempt++
		callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
		defer cancel()

		value, err := call(callCtx)
		if err == nil {
			return value, nil
		}
		if !pkgerrors.IsRetryable(err) {
			return value, backoff.Permanent(err)
		}
		if s.metrics != nil {
			s.metrics.IncrementStoreRetries()
		}
		s.logger.WarnContext(ctx, "store call failed, retrying",
			"operation", op, "attempt", attempt, "error", err)
		return value, err
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		var zero T
		return zero, pkgerrors.Wrap(err, pkgerrors.CodeOf(err), op)
	}
	return result, nil
}

// lockKey scopes the lease to one registration code in one destination, so
// unrelated codes reconcile in parallel.
func lockKey(selector models.Selector, code string) string {
	return "intake:lock:" + string(selector) + ":" + code
}
