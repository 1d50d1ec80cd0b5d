package database

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"time"

	"github.com/shopspring/decimal"
)

// DecimalPlaces is the fixed scale of every decimal column in the schema.
// Values are rounded half away from zero to this scale on the way in and on
// the way out.
const DecimalPlaces = 2

// ParamType is the SQL parameter type a statement position expects.
type ParamType int

const (
	ParamString ParamType = iota + 1
	ParamInt
	ParamDecimal
	ParamBool
	ParamTime
)

func (p ParamType) String() string {
	switch p {
	case ParamString:
		return "string"
	case ParamInt:
		return "integer"
	case ParamDecimal:
		return "decimal"
	case ParamBool:
		return "boolean"
	case ParamTime:
		return "timestamp"
	default:
		return fmt.Sprintf("ParamType(%d)", int(p))
	}
}

type preparer interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// Statement is a prepared statement whose positional parameters are bound one
// at a time with an expected type.
type Statement struct {
	stmt  *sql.Stmt
	args  []any
	bound []bool
}

// Prepare prepares query, written with ? placeholders, on p after rewriting
// the placeholders for dialect.
func Prepare(ctx context.Context, p preparer, dialect Dialect, query string) (*Statement, error) {
	n := placeholderCount(query)

	stmt, err := p.PrepareContext(ctx, dialect.Rebind(query))
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}

	return &Statement{
		stmt:  stmt,
		args:  make([]any, n),
		bound: make([]bool, n),
	}, nil
}

// Bind sets the parameter at the 1-based position. A nil value, a nil
// pointer, or an invalid decimal.NullDecimal binds SQL NULL; any other value
// whose type does not match expected yields a *TypeMismatchError.
func (s *Statement) Bind(position int, value any, expected ParamType) error {
	if position < 1 || position > len(s.args) {
		return fmt.Errorf("parameter position %d out of range 1..%d", position, len(s.args))
	}

	v, ok := bindValue(value, expected)
	if !ok {
		return &TypeMismatchError{Position: position, Expected: expected, Actual: fmt.Sprintf("%T", value)}
	}

	s.args[position-1] = v
	s.bound[position-1] = true
	return nil
}

// Exec runs the statement once every position has been bound.
func (s *Statement) Exec(ctx context.Context) (sql.Result, error) {
	if err := s.checkBound(); err != nil {
		return nil, err
	}
	return s.stmt.ExecContext(ctx, s.args...)
}

// Query runs the statement and returns its result cursor, which the caller
// must close.
func (s *Statement) Query(ctx context.Context) (*sql.Rows, error) {
	if err := s.checkBound(); err != nil {
		return nil, err
	}
	return s.stmt.QueryContext(ctx, s.args...)
}

// Close releases the prepared statement.
func (s *Statement) Close() error {
	return s.stmt.Close()
}

func (s *Statement) checkBound() error {
	for i, ok := range s.bound {
		if !ok {
			return fmt.Errorf("parameter %d is not bound", i+1)
		}
	}
	return nil
}

func bindValue(value any, expected ParamType) (any, bool) {
	if value == nil {
		return nil, true
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, true
		}
		value = rv.Elem().Interface()
	}

	switch expected {
	case ParamString:
		v, ok := value.(string)
		return v, ok

	case ParamInt:
		switch v := value.(type) {
		case int:
			return int64(v), true
		case int8:
			return int64(v), true
		case int16:
			return int64(v), true
		case int32:
			return int64(v), true
		case int64:
			return v, true
		case uint8:
			return int64(v), true
		case uint16:
			return int64(v), true
		case uint32:
			return int64(v), true
		}
		return nil, false

	case ParamDecimal:
		switch v := value.(type) {
		case decimal.Decimal:
			return v.StringFixed(DecimalPlaces), true
		case decimal.NullDecimal:
			if !v.Valid {
				return nil, true
			}
			return v.Decimal.StringFixed(DecimalPlaces), true
		}
		return nil, false

	case ParamBool:
		v, ok := value.(bool)
		return v, ok

	case ParamTime:
		v, ok := value.(time.Time)
		return v, ok
	}

	return nil, false
}

// placeholderCount counts ? placeholders outside single-quoted literals.
func placeholderCount(query string) int {
	n := 0
	inQuote := false
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
		case r == '?' && !inQuote:
			n++
		}
	}
	return n
}

// LastInsertID returns the key generated by the most recent insert into table.
// It runs inside tx because several backends scope the value to the session,
// and it must run before tx commits.
func LastInsertID(ctx context.Context, tx *Transaction, dialect Dialect, table string) (int64, error) {
	row, err := tx.QueryRowContext(ctx, dialect.LastInsertIDQuery(table))
	if err != nil {
		return 0, err
	}

	var id sql.NullInt64
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to read generated id for %s: %w", table, err)
	}
	if !id.Valid || id.Int64 == 0 {
		return 0, fmt.Errorf("no generated id for %s", table)
	}
	return id.Int64, nil
}
