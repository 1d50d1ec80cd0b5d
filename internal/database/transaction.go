package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// TxState is the lifecycle state of a Transaction.
type TxState int

const (
	TxNotStarted TxState = iota
	TxActive
	TxCommitted
	TxRolledBack
)

func (s TxState) String() string {
	switch s {
	case TxNotStarted:
		return "not started"
	case TxActive:
		return "active"
	case TxCommitted:
		return "committed"
	case TxRolledBack:
		return "rolled back"
	default:
		return fmt.Sprintf("TxState(%d)", int(s))
	}
}

// Transaction is a unit of work on a single connection.
// Statements are prepared through it so they run inside the unit of work.
type Transaction struct {
	conn  *sql.Conn
	tx    *sql.Tx
	state TxState
}

// NewTransaction returns a transaction bound to conn that has not started.
func NewTransaction(conn *sql.Conn) *Transaction {
	return &Transaction{conn: conn}
}

// State reports the current lifecycle state.
func (t *Transaction) State() TxState {
	return t.state
}

// Start begins the transaction. Until Commit or Rollback, statements are no
// longer auto-committed by the backend.
func (t *Transaction) Start(ctx context.Context) error {
	if t.state != TxNotStarted {
		return ErrTxAlreadyStarted
	}

	tx, err := t.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	t.tx = tx
	t.state = TxActive
	return nil
}

// Commit makes every change since Start durable.
func (t *Transaction) Commit() error {
	if t.state != TxActive {
		return ErrTxNotActive
	}

	err := t.tx.Commit()
	// A failed commit still ends the transaction; the backend discarded it.
	if err != nil {
		t.state = TxRolledBack
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	t.state = TxCommitted
	return nil
}

// Rollback discards every change since Start.
func (t *Transaction) Rollback() error {
	if t.state != TxActive {
		return ErrTxNotActive
	}

	t.state = TxRolledBack
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// PrepareContext prepares query inside the active transaction.
func (t *Transaction) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	if t.state != TxActive {
		return nil, ErrTxNotActive
	}
	return t.tx.PrepareContext(ctx, query)
}

// QueryRowContext runs a single-row query inside the active transaction.
func (t *Transaction) QueryRowContext(ctx context.Context, query string, args ...any) (*sql.Row, error) {
	if t.state != TxActive {
		return nil, ErrTxNotActive
	}
	return t.tx.QueryRowContext(ctx, query, args...), nil
}

// ExecContext runs a statement inside the active transaction.
func (t *Transaction) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if t.state != TxActive {
		return nil, ErrTxNotActive
	}
	return t.tx.ExecContext(ctx, query, args...)
}

// InTransaction runs fn inside a new transaction on conn. If fn fails, the
// transaction is rolled back before the error is returned, wrapped as a
// *DataAccessError naming op. If fn succeeds the transaction is committed.
func InTransaction(ctx context.Context, conn *sql.Conn, op string, fn func(*Transaction) error) error {
	tx := NewTransaction(conn)
	if err := tx.Start(ctx); err != nil {
		return newDataAccessError(op, err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Str("op", op).Msg("Failed to rollback transaction")
		}
		return newDataAccessError(op, err)
	}

	if err := tx.Commit(); err != nil {
		return newDataAccessError(op, err)
	}

	return nil
}
