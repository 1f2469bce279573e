// Package memory provides an in-memory store client, used in tests and for
// local development without a database.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"intake/internal/intake/models"
	pkgerrors "intake/pkg/errors"
)

// Entry is a stored business registration record.
type Entry struct {
	ID          string
	SequenceKey int64
	Record      models.ResolvedRecord
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Store keeps one entry table and one sequence counter per selector.
type Store struct {
	mu        sync.RWMutex
	entries   map[models.Selector]map[string]*Entry
	sequences map[models.Selector]int64
}

func New() *Store {
	return &Store{
		entries:   make(map[models.Selector]map[string]*Entry),
		sequences: make(map[models.Selector]int64),
	}
}

func (s *Store) FindCandidates(_ context.Context, selector models.Selector, code string) ([]models.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Candidate
	for _, e := range s.entries[selector] {
		if e.Record.RegistrationCode == code {
			out = append(out, models.Candidate{ID: e.ID, SequenceKey: e.SequenceKey})
		}
	}
	return out, nil
}

func (s *Store) NextSequence(_ context.Context, selector models.Selector) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sequences[selector]++
	return s.sequences[selector], nil
}

func (s *Store) Commit(_ context.Context, decision models.MatchDecision) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	switch decision.Op {
	case models.OpCreate:
		if s.codeInUse(decision.Selector, decision.Record.RegistrationCode, "") {
			return "", pkgerrors.Newf(pkgerrors.CodeConflict,
				"registration code %s already present in %s", decision.Record.RegistrationCode, decision.Selector)
		}
		table, exists := s.entries[decision.Selector]
		if !exists {
			table = make(map[string]*Entry)
			s.entries[decision.Selector] = table
		}
		id := uuid.NewString()
		table[id] = &Entry{
			ID:          id,
			SequenceKey: decision.Record.SequenceKey,
			Record:      decision.Record,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return id, nil

	case models.OpUpdate:
		entry, exists := s.entries[decision.Selector][decision.ExistingID]
		if !exists {
			return "", pkgerrors.Newf(pkgerrors.CodeNotFound, "entry %s not found", decision.ExistingID)
		}
		if s.codeInUse(decision.Selector, decision.Record.RegistrationCode, decision.ExistingID) {
			return "", pkgerrors.Newf(pkgerrors.CodeConflict,
				"registration code %s already present in %s", decision.Record.RegistrationCode, decision.Selector)
		}
		key := entry.SequenceKey
		entry.Record = decision.Record
		entry.Record.SequenceKey = key
		entry.UpdatedAt = now
		return entry.ID, nil

	default:
		return "", pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("unsupported operation %q", decision.Op))
	}
}

// codeInUse reports whether another entry in the selected database already
// carries the registration code. Callers hold s.mu.
func (s *Store) codeInUse(selector models.Selector, code, excludeID string) bool {
	for _, e := range s.entries[selector] {
		if e.ID != excludeID && e.Record.RegistrationCode == code {
			return true
		}
	}
	return false
}

// Seed plants an entry directly, bypassing the duplicate-code check. Tests
// use it to model pre-constraint databases that already hold duplicates.
func (s *Store) Seed(selector models.Selector, rec models.ResolvedRecord) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, exists := s.entries[selector]
	if !exists {
		table = make(map[string]*Entry)
		s.entries[selector] = table
	}
	id := uuid.NewString()
	now := time.Now()
	table[id] = &Entry{ID: id, SequenceKey: rec.SequenceKey, Record: rec, CreatedAt: now, UpdatedAt: now}
	return id
}

// Get returns a stored entry by selector and id.
func (s *Store) Get(selector models.Selector, id string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[selector][id]
	if !ok {
		return nil, false
	}
	copied := *e
	return &copied, true
}

// Len reports the number of entries in the selected database.
func (s *Store) Len(selector models.Selector) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries[selector])
}
