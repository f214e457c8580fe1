package dao

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for common operations.
var (
	// ErrNotFound is returned when a row expected to exist is missing.
	ErrNotFound = errors.New("dao: entity not found")

	// ErrNotSingular is returned when a lookup that expects at most one row
	// matches several.
	ErrNotSingular = errors.New("dao: entity not singular")

	// ErrUsage is returned when a caller violates an operation precondition.
	ErrUsage = errors.New("dao: invalid usage")

	// ErrWriteAnomaly is returned in strict mode when an insert reports
	// that no row was written.
	ErrWriteAnomaly = errors.New("dao: no row written")
)

// NotFoundError represents an error when an entity is not found.
type NotFoundError struct {
	label string
	id    any // Optional: the key that was searched for
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if e.id != nil {
		return fmt.Sprintf("dao: %s not found (key=%v)", e.label, e.id)
	}
	return fmt.Sprintf("dao: %s not found", e.label)
}

// Is reports whether the target error matches NotFoundError.
// This allows errors.Is(notFoundErr, ErrNotFound) to return true.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Label returns the entity label.
func (e *NotFoundError) Label() string {
	return e.label
}

// ID returns the key that was searched for, if available.
func (e *NotFoundError) ID() any {
	return e.id
}

// NewNotFoundError returns a new NotFoundError for the given entity type.
func NewNotFoundError(label string) *NotFoundError {
	return &NotFoundError{label: label}
}

// NewNotFoundErrorWithID returns a new NotFoundError with the key that was searched for.
func NewNotFoundErrorWithID(label string, id any) *NotFoundError {
	return &NotFoundError{label: label, id: id}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// NotSingularError represents an error when a lookup expects at most one
// row but receives several.
type NotSingularError struct {
	label string
	count int // Number of results returned (-1 if unknown)
}

// Error returns the error string.
func (e *NotSingularError) Error() string {
	if e.count >= 0 {
		return fmt.Sprintf("dao: %s not singular (got %d results, expected 1)", e.label, e.count)
	}
	return fmt.Sprintf("dao: %s not singular", e.label)
}

// Is reports whether the target error matches NotSingularError.
func (e *NotSingularError) Is(err error) bool {
	return err == ErrNotSingular
}

// Label returns the entity label.
func (e *NotSingularError) Label() string {
	return e.label
}

// Count returns the number of results, or -1 if unknown.
func (e *NotSingularError) Count() int {
	return e.count
}

// NewNotSingularError returns a new NotSingularError for the given entity type.
func NewNotSingularError(label string) *NotSingularError {
	return &NotSingularError{label: label, count: -1}
}

// NewNotSingularErrorWithCount returns a new NotSingularError with the result count.
func NewNotSingularErrorWithCount(label string, count int) *NotSingularError {
	return &NotSingularError{label: label, count: count}
}

// IsNotSingular returns true if the error is a NotSingularError.
func IsNotSingular(err error) bool {
	if err == nil {
		return false
	}
	var e *NotSingularError
	return errors.As(err, &e) || errors.Is(err, ErrNotSingular)
}

// IsConsistencyError reports whether storage returned a shape the caller
// did not expect: a missing row or more than one row for a key.
func IsConsistencyError(err error) bool {
	return IsNotFound(err) || IsNotSingular(err)
}

// UsageError represents a violated operation precondition, such as a
// composite key used where a single-column key is required.
type UsageError struct {
	Op  string // Operation that rejected the call (e.g. "load", "build")
	Msg string
}

// Error returns the error string.
func (e *UsageError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("dao: %s: %s", e.Op, e.Msg)
	}
	return "dao: " + e.Msg
}

// Is reports whether the target error matches UsageError.
func (e *UsageError) Is(err error) bool {
	return err == ErrUsage
}

// NewUsageError returns a new UsageError.
func NewUsageError(op, format string, args ...any) *UsageError {
	return &UsageError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

// IsUsageError returns true if the error is a UsageError.
func IsUsageError(err error) bool {
	if err == nil {
		return false
	}
	var e *UsageError
	return errors.As(err, &e) || errors.Is(err, ErrUsage)
}

// WriteAnomalyError reports an insert that the engine acknowledged without
// writing a row.
type WriteAnomalyError struct {
	Table string
	SQL   string
}

// Error returns the error string.
func (e *WriteAnomalyError) Error() string {
	return fmt.Sprintf("dao: insert into %s wrote no row (sql=%q)", e.Table, e.SQL)
}

// Is reports whether the target error matches WriteAnomalyError.
func (e *WriteAnomalyError) Is(err error) bool {
	return err == ErrWriteAnomaly
}

// IsWriteAnomaly returns true if the error is a WriteAnomalyError.
func IsWriteAnomaly(err error) bool {
	if err == nil {
		return false
	}
	var e *WriteAnomalyError
	return errors.As(err, &e) || errors.Is(err, ErrWriteAnomaly)
}
