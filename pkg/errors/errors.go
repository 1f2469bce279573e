// Package errors provides coded domain errors. Services wrap infrastructure
// failures with a code so transports, reporters, and retry policies can act
// on the classification without string matching.
package errors

import (
	"errors"
	"fmt"
)

// Code classifies a failure for routing and retry decisions.
type Code string

const (
	// CodeValidation marks missing or malformed required fields. Non-retryable;
	// routed straight to the failure notification.
	CodeValidation Code = "validation"

	// CodeUnknownLocation marks a registration code prefix outside the known
	// set. Soft: processing continues with the fallback location tag.
	CodeUnknownLocation Code = "unknown_location"

	// CodeAmbiguousMatch marks duplicate candidates in the destination
	// database. Non-retryable; requires manual resolution.
	CodeAmbiguousMatch Code = "ambiguous_match"

	// CodeStoreTimeout marks a store call that exceeded its deadline. Retryable.
	CodeStoreTimeout Code = "store_timeout"

	// CodeStoreUnavailable marks a transient store failure. Retryable.
	CodeStoreUnavailable Code = "store_unavailable"

	// CodeStore marks a non-transient store failure.
	CodeStore Code = "store"

	// CodeConflict marks a commit that would duplicate a registration code in
	// one destination. The store already holds the entry another writer won;
	// non-retryable, reprocessing the message yields an update.
	CodeConflict Code = "conflict"

	// CodeNotifier marks a notification delivery failure. Logged only; never
	// escalated back into reprocessing.
	CodeNotifier Code = "notifier"

	CodeNotFound   Code = "not_found"
	CodeBadRequest Code = "bad_request"
	CodeInternal   Code = "internal"
)

// Error carries a code alongside the message and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error without a cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an existing error. A nil err returns nil.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf extracts the code from an error chain, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// IsRetryable reports whether the failure is worth retrying. Only transient
// store conditions qualify; validation and ambiguity never do.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case CodeStoreTimeout, CodeStoreUnavailable:
		return true
	default:
		return false
	}
}
