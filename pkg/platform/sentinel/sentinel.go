package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and collaborator clients
// return these (optionally wrapped) so services can translate them into
// coded domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in the destination database
// - ErrConflict: a concurrent writer already holds the resource
// - ErrLockHeld: the reconciliation lease for a registration code is taken
// - ErrUnavailable: store or collaborator temporarily unreachable
//
// For validation errors (bad input, missing fields), use pkg/errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrLockHeld    = errors.New("lock held")
	ErrUnavailable = errors.New("unavailable")
)
