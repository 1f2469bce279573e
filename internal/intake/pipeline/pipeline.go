// Package pipeline orchestrates one message's path from raw text to a
// committed store entry and its operator notification.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"intake/internal/intake/extract"
	"intake/internal/intake/location"
	"intake/internal/intake/metrics"
	"intake/internal/intake/models"
	"intake/internal/intake/normalize"
	"intake/internal/intake/ports"
	"intake/internal/intake/reconcile"
	"intake/internal/intake/report"
	"intake/internal/intake/route"
	"intake/internal/intake/validate"
)

// Reconciler is the store-matching collaborator.
type Reconciler interface {
	Reconcile(ctx context.Context, selector models.Selector, record models.ResolvedRecord) (reconcile.Result, error)
}

type Service struct {
	reconciler Reconciler
	reporter   *report.Reporter
	notifier   ports.Notifier
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
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

func New(reconciler Reconciler, reporter *report.Reporter, notifier ports.Notifier, opts ...Option) (*Service, error) {
	if reconciler == nil {
		return nil, fmt.Errorf("reconciler is required")
	}
	if reporter == nil {
		return nil, fmt.Errorf("reporter is required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier is required")
	}

	svc := &Service{
		reconciler: reconciler,
		reporter:   reporter,
		notifier:   notifier,
		logger:     slog.Default(),
		tracer:     otel.Tracer("intake/pipeline"),
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc, nil
}

// Process runs one message through the full pipeline. It always returns an
// outcome and always hands that outcome to the notifier exactly once; a
// failed notification is logged but never re-queues the message.
func (s *Service) Process(ctx context.Context, msg models.RawMessage) models.Outcome {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "process",
		trace.WithAttributes(attribute.String("message_id", msg.ID)))
	defer span.End()

	outcome := s.run(ctx, msg)

	if s.metrics != nil {
		s.metrics.ObserveMessage(string(outcome.Status), time.Since(start))
	}
	s.logger.InfoContext(ctx, "message processed",
		"message_id", msg.ID,
		"status", outcome.Status,
		"selector", outcome.Selector,
		"operation", outcome.Op,
		"reason", outcome.Reason,
	)

	s.notify(ctx, outcome)
	return outcome
}

func (s *Service) run(ctx context.Context, msg models.RawMessage) models.Outcome {
	normalized := normalize.Normalize(msg.Body, msg.Locale)

	locale := msg.Locale
	if locale == "" {
		locale = extract.DetectLocale(normalized.Text)
	}

	extracted := extract.Extract(normalized)
	counts := extract.DetectServices(normalized.Text, locale)
	selector := route.Select(counts)

	outcome := models.Outcome{
		MessageID: msg.ID,
		Selector:  selector,
		Partial:   extracted,
		RawBody:   msg.Body,
	}

	validated, failure := validate.Validate(extracted, msg.ReceivedAt)
	if failure != nil {
		if s.metrics != nil {
			for _, field := range failure.Fields() {
				s.metrics.IncrementValidationFailure(field)
			}
		}
		outcome.Status = models.OutcomeFailure
		outcome.Reason = failure.Error()
		return outcome
	}

	loc, err := location.Resolve(validated.RegistrationCode)
	if err != nil {
		// Unknown prefix is a soft failure: keep going with the fallback tag
		// and surface it in the notification.
		outcome.Notes = append(outcome.Notes,
			fmt.Sprintf("tundmatu riigiprefiks koodil %s, asukoht määramata", validated.RegistrationCode))
	}
	resolved := models.ResolvedRecord{ValidatedRecord: validated, Location: loc}

	result, err := s.reconciler.Reconcile(ctx, selector, resolved)
	if err != nil {
		outcome.Status = models.OutcomeFailure
		outcome.Reason = err.Error()
		return outcome
	}

	outcome.Status = models.OutcomeSuccess
	outcome.Op = result.Op
	outcome.StoreID = result.StoreID
	outcome.SequenceKey = result.SequenceKey
	outcome.CompanyName = validated.CompanyName
	return outcome
}

func (s *Service) notify(ctx context.Context, outcome models.Outcome) {
	req := s.reporter.Build(outcome)
	// The send is bounded but survives caller cancellation; an outcome that
	// reached this point must be reported.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	if err := s.notifier.Send(sendCtx, req); err != nil {
		if s.metrics != nil {
			s.metrics.IncrementNotifierErrors()
		}
		s.logger.ErrorContext(ctx, "failed to send notification",
			"message_id", outcome.MessageID, "error", err)
	}
}
