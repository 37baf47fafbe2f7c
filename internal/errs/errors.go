package errs

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed schedule or review-cycle input. It is
// always detected synchronously, before any state mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// NewValidation creates a ValidationError naming the offending field.
func NewValidation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// PersistenceError reports that the document store failed to durably apply
// a mutation. The in-memory mutation must be rolled back by the caller; the
// action is never retried automatically.
type PersistenceError struct {
	Op         string
	Collection string
	ID         string
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s failed for %s/%s: %v", e.Op, e.Collection, e.ID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// NewPersistence wraps a store failure.
func NewPersistence(op, collection, id string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Collection: collection, ID: id, Err: err}
}

// IsPersistence reports whether err is (or wraps) a PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

// InvariantViolation reports an internally-detected inconsistency. It is a
// programming-level fault, not recoverable at runtime.
type InvariantViolation struct {
	Invariant string
	Detail    string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violated (%s): %s", e.Invariant, e.Detail)
}

func NewInvariant(invariant, detail string) *InvariantViolation {
	return &InvariantViolation{Invariant: invariant, Detail: detail}
}

// ErrNotFound is returned by the document store when no document exists for
// the requested collection and id.
var ErrNotFound = errors.New("document not found")

// ErrStaleWrite is returned by the note coalescer when a queued write
// carries a version at or below the latest accepted one.
var ErrStaleWrite = errors.New("stale write: version is not newer than the accepted one")

// ErrActionInFlight is returned when a disposition action targets an item
// that already has an action awaiting persistence.
var ErrActionInFlight = errors.New("a disposition action for this item is already in flight")
