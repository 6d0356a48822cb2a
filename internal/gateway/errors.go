package gateway

import (
	"errors"
	"fmt"
)

// QueryError represents a failure detected while processing an
// OperationSpec.
//
// The gateway never lets a failure cross its boundary as a panic or a
// bare error: everything is normalized into a QueryError with a code and
// a human-readable message, which the HTTP layer renders as
// {data: null, error: {message}}.
type QueryError struct {
	// Code identifies the error category.
	Code QueryErrorCode

	// Message is a human-readable description. For remote operation
	// failures it carries the backing store's message verbatim.
	Message string

	// Table identifies the target table, when known.
	Table string
}

// QueryErrorCode categorizes gateway errors.
type QueryErrorCode string

const (
	// ErrCodeUnsafeIdentifier indicates the table name (or upsert
	// conflict column) failed the identifier guard. Filter and payload
	// identifiers never produce this: they are dropped silently.
	ErrCodeUnsafeIdentifier QueryErrorCode = "UNSAFE_IDENTIFIER"

	// ErrCodeTableNotAllowed indicates a table outside the fixed
	// allow-list. Checked before any SQL is built.
	ErrCodeTableNotAllowed QueryErrorCode = "TABLE_NOT_ALLOWED"

	// ErrCodeBindingMissing indicates the backing-store handle is
	// unavailable - a server configuration error, not a query error.
	ErrCodeBindingMissing QueryErrorCode = "BINDING_MISSING"

	// ErrCodeUnsupportedAction indicates an action outside the five
	// supported verbs.
	ErrCodeUnsupportedAction QueryErrorCode = "UNSUPPORTED_ACTION"

	// ErrCodeRemoteOperation indicates the backing store itself reported
	// a failure (constraint violation, malformed statement, ...).
	ErrCodeRemoteOperation QueryErrorCode = "REMOTE_OPERATION"
)

// Error implements the error interface.
func (e *QueryError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("%s: %s (table=%s)", e.Code, e.Message, e.Table)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsBindingMissing returns true if the error is a missing-handle error.
// Uses errors.As to handle wrapped errors.
func IsBindingMissing(err error) bool {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Code == ErrCodeBindingMissing
	}
	return false
}

// IsTableNotAllowed returns true if the error is an allow-list rejection.
func IsTableNotAllowed(err error) bool {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Code == ErrCodeTableNotAllowed
	}
	return false
}

// newTableNotAllowedError creates a QueryError for an allow-list miss.
func newTableNotAllowedError(table string) *QueryError {
	return &QueryError{
		Code:    ErrCodeTableNotAllowed,
		Message: fmt.Sprintf("table %q is not allowed", table),
		Table:   table,
	}
}

// newBindingMissingError creates a QueryError for a missing store handle.
func newBindingMissingError() *QueryError {
	return &QueryError{
		Code:    ErrCodeBindingMissing,
		Message: "database binding is not configured",
	}
}
