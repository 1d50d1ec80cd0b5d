package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConn(t *testing.T, db *DB) *sql.Conn {
	t.Helper()

	conn, err := db.Connect(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestBind_TypeMismatch(t *testing.T) {
	db := newTestDB(t)
	conn := newTestConn(t, db)

	stmt, err := Prepare(context.Background(), conn, db.Dialect(), "SELECT project_name FROM project WHERE project_id = ?")
	require.NoError(t, err)
	defer stmt.Close()

	err = stmt.Bind(1, "one", ParamInt)
	var mismatch *TypeMismatchError
	require.True(t, errors.As(err, &mismatch), "expected *TypeMismatchError, got %v", err)
	assert.Equal(t, 1, mismatch.Position)
	assert.Equal(t, ParamInt, mismatch.Expected)
	assert.Equal(t, "string", mismatch.Actual)
}

func TestBind_PositionOutOfRange(t *testing.T) {
	db := newTestDB(t)
	conn := newTestConn(t, db)

	stmt, err := Prepare(context.Background(), conn, db.Dialect(), "SELECT ? , ?")
	require.NoError(t, err)
	defer stmt.Close()

	assert.Error(t, stmt.Bind(0, 1, ParamInt))
	assert.Error(t, stmt.Bind(3, 1, ParamInt))
	assert.NoError(t, stmt.Bind(2, 1, ParamInt))
}

func TestExec_RequiresEveryParameterBound(t *testing.T) {
	db := newTestDB(t)
	conn := newTestConn(t, db)
	ctx := context.Background()

	stmt, err := Prepare(ctx, conn, db.Dialect(), "INSERT INTO project (project_name, notes) VALUES (?, ?)")
	require.NoError(t, err)
	defer stmt.Close()

	require.NoError(t, stmt.Bind(1, "Lamp", ParamString))
	_, err = stmt.Exec(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parameter 2 is not bound")
	assert.Equal(t, 0, countRows(t, db, "project"))
}

func TestBind_NilBindsNull(t *testing.T) {
	db := newTestDB(t)
	conn := newTestConn(t, db)
	ctx := context.Background()

	stmt, err := Prepare(ctx, conn, db.Dialect(), "INSERT INTO project (project_name, estimated_hours, difficulty, notes) VALUES (?, ?, ?, ?)")
	require.NoError(t, err)
	defer stmt.Close()

	require.NoError(t, stmt.Bind(1, "Lamp", ParamString))
	require.NoError(t, stmt.Bind(2, (*decimal.Decimal)(nil), ParamDecimal))
	require.NoError(t, stmt.Bind(3, (*int)(nil), ParamInt))
	require.NoError(t, stmt.Bind(4, nil, ParamString))
	_, err = stmt.Exec(ctx)
	require.NoError(t, err)

	var nulls int
	err = conn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM project
		WHERE estimated_hours IS NULL AND difficulty IS NULL AND notes IS NULL
	`).Scan(&nulls)
	require.NoError(t, err)
	assert.Equal(t, 1, nulls)
}

func TestBindValue(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected ParamType
		want     any
		ok       bool
	}{
		{"string", "oak", ParamString, "oak", true},
		{"string pointer", ptr("oak"), ParamString, "oak", true},
		{"int widens", int32(4), ParamInt, int64(4), true},
		{"int pointer", ptr(5), ParamInt, int64(5), true},
		{"uint64 rejected", uint64(4), ParamInt, nil, false},
		{"decimal rounds half up", decimal.RequireFromString("12.345"), ParamDecimal, "12.35", true},
		{"decimal rounds down", decimal.RequireFromString("12.344"), ParamDecimal, "12.34", true},
		{"negative decimal rounds away from zero", decimal.RequireFromString("-12.345"), ParamDecimal, "-12.35", true},
		{"decimal pads scale", decimal.NewFromInt(3), ParamDecimal, "3.00", true},
		{"invalid null decimal", decimal.NullDecimal{}, ParamDecimal, nil, true},
		{"float is not decimal", 12.5, ParamDecimal, nil, false},
		{"bool", true, ParamBool, true, true},
		{"string is not bool", "true", ParamBool, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := bindValue(tt.value, tt.expected)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlaceholderCount(t *testing.T) {
	assert.Equal(t, 0, placeholderCount("SELECT 1"))
	assert.Equal(t, 2, placeholderCount("SELECT ? WHERE a = ?"))
	assert.Equal(t, 1, placeholderCount("SELECT '?' WHERE a = ?"))
}

func TestLastInsertID(t *testing.T) {
	db := newTestDB(t)
	conn := newTestConn(t, db)
	ctx := context.Background()

	var id int64
	err := InTransaction(ctx, conn, "insert", func(tx *Transaction) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO category (category_name) VALUES ('Metal')"); err != nil {
			return err
		}
		var err error
		id, err = LastInsertID(ctx, tx, db.Dialect(), "category")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
}

func TestLastInsertID_RequiresActiveTransaction(t *testing.T) {
	db := newTestDB(t)
	conn := newTestConn(t, db)

	_, err := LastInsertID(context.Background(), NewTransaction(conn), db.Dialect(), "project")
	assert.ErrorIs(t, err, ErrTxNotActive)
}
