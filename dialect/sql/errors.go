package sql

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"modernc.org/sqlite"
)

// Engine errors are never wrapped by this module. The helpers below
// classify them in place so callers can react to constraint violations
// without depending on a specific driver package.

// sqlStateError is implemented by Postgres drivers other than lib/pq.
type sqlStateError interface {
	SQLState() string
}

// constraintKind describes how each engine reports one kind of violation.
type constraintKind struct {
	sqlState  string   // PostgreSQL SQLSTATE (Class 23)
	numbers   []uint16 // MySQL error numbers
	codes     []int    // SQLite extended result codes
	fragments []string // message fallbacks for wrapped or foreign drivers
}

var (
	uniqueViolation = constraintKind{
		sqlState:  "23505",
		numbers:   []uint16{1062},
		codes:     []int{2067, 1555},
		fragments: []string{"Error 1062", "violates unique constraint", "UNIQUE constraint failed", "PRIMARY KEY constraint failed"},
	}
	foreignKeyViolation = constraintKind{
		sqlState:  "23503",
		numbers:   []uint16{1451, 1452},
		codes:     []int{787},
		fragments: []string{"Error 1451", "Error 1452", "violates foreign key constraint", "FOREIGN KEY constraint failed"},
	}
	checkViolation = constraintKind{
		sqlState:  "23514",
		numbers:   []uint16{3819},
		codes:     []int{275},
		fragments: []string{"Error 3819", "violates check constraint", "CHECK constraint failed"},
	}
	notNullViolation = constraintKind{
		sqlState:  "23502",
		numbers:   []uint16{1048},
		codes:     []int{1299},
		fragments: []string{"Error 1048", "violates not-null constraint", "NOT NULL constraint failed"},
	}
)

func (k constraintKind) match(err error) bool {
	if err == nil {
		return false
	}
	var (
		pqErr *pq.Error
		myErr *mysql.MySQLError
		liErr *sqlite.Error
	)
	switch {
	case errors.As(err, &pqErr):
		return string(pqErr.Code) == k.sqlState
	case errors.As(err, &myErr):
		for _, n := range k.numbers {
			if myErr.Number == n {
				return true
			}
		}
		return false
	case errors.As(err, &liErr):
		for _, c := range k.codes {
			if liErr.Code() == c {
				return true
			}
		}
		// Primary result code only; fall back to the message.
	}
	if e, ok := asError[sqlStateError](err); ok {
		return e.SQLState() == k.sqlState
	}
	msg := err.Error()
	for _, f := range k.fragments {
		if strings.Contains(msg, f) {
			return true
		}
	}
	return false
}

// IsConstraintError returns true if the error resulted from a database constraint violation.
func IsConstraintError(err error) bool {
	return IsUniqueConstraintError(err) ||
		IsForeignKeyConstraintError(err) ||
		IsCheckConstraintError(err) ||
		IsNotNullConstraintError(err)
}

// IsUniqueConstraintError reports if the error resulted from a uniqueness
// or primary-key constraint violation.
func IsUniqueConstraintError(err error) bool { return uniqueViolation.match(err) }

// IsForeignKeyConstraintError reports if the error resulted from a foreign-key constraint violation.
func IsForeignKeyConstraintError(err error) bool { return foreignKeyViolation.match(err) }

// IsCheckConstraintError reports if the error resulted from a check constraint violation.
func IsCheckConstraintError(err error) bool { return checkViolation.match(err) }

// IsNotNullConstraintError reports if the error resulted from a NOT NULL constraint violation.
func IsNotNullConstraintError(err error) bool { return notNullViolation.match(err) }

// asError attempts to extract an error implementing interface T from the error chain.
func asError[T any](err error) (T, bool) {
	var target T
	for err != nil {
		if e, ok := err.(T); ok {
			return e, true
		}
		err = errors.Unwrap(err)
	}
	return target, false
}
