package core

import (
	"errors"
	"fmt"
)

// ErrNotAuthenticated is returned when a mutation is attempted without a
// current user identity.
var ErrNotAuthenticated = errors.New("not authenticated")

// ValidationError marks malformed or missing input. No mutation has been
// performed when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError marks an operation that referenced an unknown record.
type NotFoundError struct {
	Collection Collection
	ID         string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s/%s not found", e.Collection, e.ID)
}

// ConsistencyError marks a compound operation that partially succeeded,
// such as a goal contribution whose mirrored expense insert failed after
// the goal increment could not be rolled back. The caller should retry the
// missing half rather than re-issue the whole operation.
type ConsistencyError struct {
	Op    string
	Cause error
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("%s left partial state: %v", e.Op, e.Cause)
}

func (e *ConsistencyError) Unwrap() error { return e.Cause }

// StoreError wraps a failed persistence call. The coordinator performs no
// automatic retry; retry policy belongs to the caller.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsConsistency reports whether err is (or wraps) a ConsistencyError.
func IsConsistency(err error) bool {
	var ce *ConsistencyError
	return errors.As(err, &ce)
}

// IsStore reports whether err is (or wraps) a StoreError.
func IsStore(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
