package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"intake/internal/intake/ports"
)

// Worker drains a source with a fixed number of concurrent processors.
type Worker struct {
	source      ports.Source
	service     *Service
	logger      *slog.Logger
	concurrency int
}

type WorkerOption func(*Worker)

func WithConcurrency(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.concurrency = n
		}
	}
}

func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		w.logger = logger
	}
}

func NewWorker(source ports.Source, service *Service, opts ...WorkerOption) (*Worker, error) {
	if source == nil {
		return nil, fmt.Errorf("source is required")
	}
	if service == nil {
		return nil, fmt.Errorf("pipeline service is required")
	}

	w := &Worker{
		source:      source,
		service:     service,
		logger:      slog.Default(),
		concurrency: 4,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// Run processes messages until the source is drained or ctx is cancelled.
// Message failures are terminal per message and never stop the worker; only
// source errors and cancellation do.
func (w *Worker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for i := 0; i < w.concurrency; i++ {
		g.Go(func() error {
			for {
				msg, ok, err := w.source.Receive(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					return fmt.Errorf("receive message: %w", err)
				}
				if !ok {
					return nil
				}
				w.service.Process(ctx, msg)
			}
		})
	}

	return g.Wait()
}
