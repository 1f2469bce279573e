// Package config builds the process configuration from environment variables
// so main stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"intake/internal/intake/models"
	"intake/internal/intake/route"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr     string
	LogLevel string
}

// Store configures the record store connection. An empty URL selects the
// in-memory store.
type Store struct {
	DatabaseURL string
	CallTimeout time.Duration
	MaxElapsed  time.Duration
	LockTTL     time.Duration
}

// Redis configures the distributed lock backend. An empty URL selects the
// in-process locker.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// SMTP configures the mail notifier. An empty host selects the log notifier.
type SMTP struct {
	Host     string
	Port     int
	From     string
	Username string
	Password string
}

// Notify maps destinations to responsible recipients.
type Notify struct {
	Recipients        map[models.Selector][]string
	CC                string
	DefaultRecipients []string
	MaxRawBody        int
}

// Pipeline configures intake processing.
type Pipeline struct {
	Concurrency  int
	SourceBuffer int
}

type Config struct {
	Server   Server
	Store    Store
	Redis    Redis
	SMTP     SMTP
	Notify   Notify
	Pipeline Pipeline
}

// FromEnv reads the full configuration from environment variables.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:     envOr("INTAKE_ADDR", ":8080"),
			LogLevel: envOr("INTAKE_LOG_LEVEL", "info"),
		},
		Store: Store{
			DatabaseURL: os.Getenv("DATABASE_URL"),
			CallTimeout: envDuration("STORE_CALL_TIMEOUT", 5*time.Second),
			MaxElapsed:  envDuration("STORE_RETRY_MAX_ELAPSED", 20*time.Second),
			// must outlast the full store retry budget, see reconcile.New
			LockTTL: envDuration("STORE_LOCK_TTL", 2*time.Minute),
		},
		Redis: Redis{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		SMTP: SMTP{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     envInt("SMTP_PORT", 587),
			From:     os.Getenv("SMTP_FROM"),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
		},
		Notify: Notify{
			Recipients:        recipientsFromEnv(),
			CC:                os.Getenv("CC_EMAIL"),
			DefaultRecipients: parseEmails("DEFAULT_RECIPIENTS"),
			MaxRawBody:        envInt("NOTIFY_MAX_RAW_BODY", 4096),
		},
		Pipeline: Pipeline{
			Concurrency:  envInt("PIPELINE_CONCURRENCY", 4),
			SourceBuffer: envInt("PIPELINE_SOURCE_BUFFER", 64),
		},
	}
}

// recipientsFromEnv reads the responsible addresses for every known
// destination from RECIPIENTS_<SELECTOR>, with the selector uppercased and
// dashes replaced (RECIPIENTS_MAIN, RECIPIENTS_ROBOTICS_CONSULTANCY, ...).
func recipientsFromEnv() map[models.Selector][]string {
	selectors := route.Selectors()
	out := make(map[models.Selector][]string, len(selectors))
	for _, sel := range selectors {
		key := "RECIPIENTS_" + strings.ToUpper(strings.ReplaceAll(string(sel), "-", "_"))
		out[sel] = parseEmails(key)
	}
	return out
}

func parseEmails(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
