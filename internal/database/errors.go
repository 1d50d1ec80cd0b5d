package database

import (
	"errors"
	"fmt"
)

var (
	// ErrTxNotActive is returned when commit, rollback or a statement is
	// attempted on a transaction that is not in the Active state.
	ErrTxNotActive = errors.New("transaction is not active")

	// ErrTxAlreadyStarted is returned when Start is called twice.
	ErrTxAlreadyStarted = errors.New("transaction already started")

	// ErrAlreadyPersisted is returned when inserting a project that already
	// carries a store-assigned identifier.
	ErrAlreadyPersisted = errors.New("project already has an identifier")
)

// ConnectionError reports that the backend could not be reached or refused
// the configured credentials.
type ConnectionError struct {
	Dialect string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to %s backend: %v", e.Dialect, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// TypeMismatchError reports a bind value whose runtime type does not match
// the parameter type the statement expects.
type TypeMismatchError struct {
	Position int
	Expected ParamType
	Actual   string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("parameter %d: expected %s, got %s", e.Position, e.Expected, e.Actual)
}

// MappingError reports a result row that could not be mapped onto an entity.
// Column is set when a required column is missing from the result.
type MappingError struct {
	Column string
	Field  string
	Err    error
}

func (e *MappingError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("failed to map row onto %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("failed to map column %q to field %s: %v", e.Column, e.Field, e.Err)
}

func (e *MappingError) Unwrap() error { return e.Err }

// DataAccessError wraps any failure that happened while a transaction was
// active. The transaction has already been rolled back when this is returned.
type DataAccessError struct {
	Op   string
	Code Code
	Err  error
}

func (e *DataAccessError) Error() string {
	if e.Code != Other {
		return fmt.Sprintf("failed to %s (%s): %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *DataAccessError) Unwrap() error { return e.Err }

func newDataAccessError(op string, err error) error {
	var dae *DataAccessError
	if errors.As(err, &dae) {
		return err
	}
	return &DataAccessError{Op: op, Code: Classify(err), Err: err}
}
