// Package postgres provides the PostgreSQL-backed store client. Each logical
// destination database is a selector value inside two shared tables, which
// keeps candidate lookup and sequence allocation in one place.
package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"intake/internal/intake/models"
	pkgerrors "intake/pkg/errors"
	txctx "intake/pkg/platform/tx"
)

// Store persists registration records in PostgreSQL.
// This store is pure I/O; match decisions and sequence semantics belong to the reconciler.
type Store struct {
	db *sql.DB
}

// New constructs a PostgreSQL-backed store client.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// q returns the caller's transaction when one rides the context, otherwise
// the shared pool.
func (s *Store) q(ctx context.Context) querier {
	if tx, ok := txctx.From(ctx); ok {
		return tx
	}
	return s.db
}

const schema = `
CREATE TABLE IF NOT EXISTS registration_records (
	id                UUID PRIMARY KEY,
	selector          TEXT NOT NULL,
	sequence_key      BIGINT NOT NULL,
	company_name      TEXT NOT NULL,
	registration_code TEXT NOT NULL,
	email             TEXT NOT NULL DEFAULT '',
	phone             TEXT NOT NULL DEFAULT '',
	industry          TEXT NOT NULL DEFAULT '',
	participants      TEXT[] NOT NULL DEFAULT '{}',
	raw_text          TEXT NOT NULL DEFAULT '',
	location          TEXT NOT NULL DEFAULT '',
	received_at       TIMESTAMPTZ NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS registration_records_selector_code_key
	ON registration_records (selector, registration_code);

CREATE TABLE IF NOT EXISTS sequence_counters (
	selector TEXT PRIMARY KEY,
	value    BIGINT NOT NULL
);
`

// EnsureSchema creates the store tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *Store) FindCandidates(ctx context.Context, selector models.Selector, code string) ([]models.Candidate, error) {
	query := `
		SELECT id, sequence_key
		FROM registration_records
		WHERE selector = $1 AND registration_code = $2
		ORDER BY sequence_key
	`
	rows, err := s.q(ctx).QueryContext(ctx, query, string(selector), code)
	if err != nil {
		return nil, wrapStoreErr(err, "find candidates")
	}
	defer rows.Close()

	var out []models.Candidate
	for rows.Next() {
		var c models.Candidate
		if err := rows.Scan(&c.ID, &c.SequenceKey); err != nil {
			return nil, wrapStoreErr(err, "scan candidate")
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr(err, "iterate candidates")
	}
	return out, nil
}

// NextSequence allocates a sequence key with a single atomic upsert. Keys are
// consumed on allocation and never handed out twice, even when the caller's
// commit later fails.
func (s *Store) NextSequence(ctx context.Context, selector models.Selector) (int64, error) {
	query := `
		INSERT INTO sequence_counters (selector, value)
		VALUES ($1, 1)
		ON CONFLICT (selector) DO UPDATE SET
			value = sequence_counters.value + 1
		RETURNING value
	`
	var value int64
	if err := s.q(ctx).QueryRowContext(ctx, query, string(selector)).Scan(&value); err != nil {
		return 0, wrapStoreErr(err, "next sequence")
	}
	return value, nil
}

func (s *Store) Commit(ctx context.Context, decision models.MatchDecision) (string, error) {
	switch decision.Op {
	case models.OpCreate:
		return s.create(ctx, decision)
	case models.OpUpdate:
		return s.update(ctx, decision)
	default:
		return "", pkgerrors.Newf(pkgerrors.CodeInternal, "unsupported operation %q", decision.Op)
	}
}

func (s *Store) create(ctx context.Context, decision models.MatchDecision) (string, error) {
	rec := decision.Record
	id := uuid.NewString()
	query := `
		INSERT INTO registration_records
			(id, selector, sequence_key, company_name, registration_code,
			 email, phone, industry, participants, raw_text, location, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.q(ctx).ExecContext(ctx, query,
		id,
		string(decision.Selector),
		rec.SequenceKey,
		rec.CompanyName,
		rec.RegistrationCode,
		rec.Email,
		rec.Phone,
		rec.Industry,
		pq.Array(rec.Participants),
		rec.RawText,
		rec.Location,
		rec.ReceivedAt,
	)
	if err != nil {
		return "", wrapStoreErr(err, "create record")
	}
	return id, nil
}

// update overwrites the entry's fields while leaving its sequence_key intact.
func (s *Store) update(ctx context.Context, decision models.MatchDecision) (string, error) {
	rec := decision.Record
	query := `
		UPDATE registration_records SET
			company_name = $2,
			registration_code = $3,
			email = $4,
			phone = $5,
			industry = $6,
			participants = $7,
			raw_text = $8,
			location = $9,
			received_at = $10,
			updated_at = NOW()
		WHERE id = $1
	`
	result, err := s.q(ctx).ExecContext(ctx, query,
		decision.ExistingID,
		rec.CompanyName,
		rec.RegistrationCode,
		rec.Email,
		rec.Phone,
		rec.Industry,
		pq.Array(rec.Participants),
		rec.RawText,
		rec.Location,
		rec.ReceivedAt,
	)
	if err != nil {
		return "", wrapStoreErr(err, "update record")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return "", wrapStoreErr(err, "update rows affected")
	}
	if rows == 0 {
		return "", pkgerrors.Newf(pkgerrors.CodeNotFound, "entry %s not found", decision.ExistingID)
	}
	return decision.ExistingID, nil
}

// wrapStoreErr classifies driver failures so the reconciler can tell transient
// conditions (worth retrying) from permanent ones.
func wrapStoreErr(err error, op string) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return pkgerrors.Wrap(err, pkgerrors.CodeStoreTimeout, op)
	case isUniqueViolation(err):
		return pkgerrors.Wrap(err, pkgerrors.CodeConflict, op)
	case isUnavailable(err):
		return pkgerrors.Wrap(err, pkgerrors.CodeStoreUnavailable, op)
	default:
		return pkgerrors.Wrap(err, pkgerrors.CodeStore, op)
	}
}

// isUniqueViolation matches the unique index on (selector, registration_code).
// It is the backstop for two writers deciding Create for one code after a
// lock lease expired: the second insert fails instead of duplicating.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func isUnavailable(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// Class 08: connection exceptions. Class 57: operator intervention
		// (shutdown, crash recovery).
		class := pqErr.Code.Class()
		return class == "08" || class == "57"
	}
	return errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn)
}
