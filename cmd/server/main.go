package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"intake/internal/intake/handler"
	intakemetrics "intake/internal/intake/metrics"
	"intake/internal/intake/pipeline"
	"intake/internal/intake/ports"
	"intake/internal/intake/reconcile"
	"intake/internal/intake/report"
	lockmemory "intake/internal/lock/memory"
	lockredis "intake/internal/lock/redis"
	"intake/internal/notify"
	"intake/internal/platform/config"
	"intake/internal/platform/httpserver"
	"intake/internal/platform/logger"
	platformmetrics "intake/internal/platform/metrics"
	platformredis "intake/internal/platform/redis"
	"intake/internal/source"
	storememory "intake/internal/store/memory"
	storepostgres "intake/internal/store/postgres"
	httptransport "intake/internal/transport/http"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Server.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]httptransport.HealthChecker{}

	// Store: Postgres when configured, in-memory otherwise.
	var store ports.StoreClient
	if cfg.Store.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.Store.DatabaseURL)
		if err != nil {
			log.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		pg := storepostgres.New(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Error("failed to ensure schema", "error", err)
			os.Exit(1)
		}
		store = pg
		checks["postgres"] = dbHealth{db}
	} else {
		log.Warn("DATABASE_URL not set, using in-memory store")
		store = storememory.New()
	}

	// Locker: Redis when configured, in-process otherwise.
	var locker ports.Locker = lockmemory.New()
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		locker = lockredis.New(redisClient.Client)
		checks["redis"] = redisClient
	} else {
		log.Warn("REDIS_URL not set, using in-process locks")
	}

	// Notifier: SMTP when configured, structured log otherwise.
	var notifier ports.Notifier
	if cfg.SMTP.Host != "" {
		notifier = notify.NewSMTP(notify.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			From:     cfg.SMTP.From,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
		})
	} else {
		log.Warn("SMTP_HOST not set, notifications go to the log")
		notifier = notify.NewLog(log)
	}

	domainMetrics := intakemetrics.New()
	httpMetrics := platformmetrics.New()

	reconciler, err := reconcile.New(store, locker,
		reconcile.WithLogger(log),
		reconcile.WithMetrics(domainMetrics),
		reconcile.WithLockTTL(cfg.Store.LockTTL),
		reconcile.WithCallTimeout(cfg.Store.CallTimeout),
		reconcile.WithMaxElapsed(cfg.Store.MaxElapsed),
	)
	if err != nil {
		log.Error("failed to build reconciler", "error", err)
		os.Exit(1)
	}

	reporter := report.New(report.Config{
		Recipients:        cfg.Notify.Recipients,
		CC:                cfg.Notify.CC,
		DefaultRecipients: cfg.Notify.DefaultRecipients,
		MaxRawBody:        cfg.Notify.MaxRawBody,
	})

	svc, err := pipeline.New(reconciler, reporter, notifier,
		pipeline.WithLogger(log),
		pipeline.WithMetrics(domainMetrics),
	)
	if err != nil {
		log.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}

	src := source.NewChannel(cfg.Pipeline.SourceBuffer)
	worker, err := pipeline.NewWorker(src, svc,
		pipeline.WithConcurrency(cfg.Pipeline.Concurrency),
		pipeline.WithWorkerLogger(log),
	)
	if err != nil {
		log.Error("failed to build worker", "error", err)
		os.Exit(1)
	}

	ingest := handler.New(src, log, httpMetrics)
	router := httptransport.NewRouter(httptransport.Deps{
		Ingest: ingest,
		Checks: checks,
	})
	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting intake server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		// Detached from cancellation: workers stop by draining the closed
		// source, so accepted messages are processed before exit.
		return worker.Run(context.WithoutCancel(gctx))
	})
	g.Go(func() error {
		<-gctx.Done()
		// Stop accepting new messages, then close the source; the workers
		// finish what is already buffered.
		if err := httpserver.Shutdown(srv, 10*time.Second); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		src.Close()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("intake server stopped")
}

type dbHealth struct {
	db *sql.DB
}

func (h dbHealth) Health(ctx context.Context) error {
	return h.db.PingContext(ctx)
}
