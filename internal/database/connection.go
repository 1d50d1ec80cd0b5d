package database

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog/log"
)

// Provider hands out one live connection per logical operation. The caller
// owns the connection and must close it.
type Provider interface {
	Connect(ctx context.Context) (*sql.Conn, error)
	Dialect() Dialect
}

var _ Provider = (*DB)(nil)

// Connect acquires a dedicated connection to the backend.
func (db *DB) Connect(ctx context.Context) (*sql.Conn, error) {
	conn, err := db.conn.Conn(ctx)
	if err != nil {
		return nil, &ConnectionError{Dialect: db.dialect.Name(), Err: err}
	}
	return conn, nil
}

// release closes conn, logging rather than returning the error so it never
// masks the outcome of the operation that used it.
func release(conn *sql.Conn) {
	if err := conn.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to release database connection")
	}
}
