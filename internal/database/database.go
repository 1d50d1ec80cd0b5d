package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/saltyorg/projects/internal/config"
)

// DB is the connection provider for the configured relational backend.
type DB struct {
	conn    *sql.DB
	dialect Dialect
}

// Open opens the backend described by cfg and verifies it is reachable.
// Failures are reported as *ConnectionError.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	return open(ctx, cfg, dialect)
}

func open(ctx context.Context, cfg config.DatabaseConfig, dialect Dialect) (*DB, error) {
	conn, err := dialect.open(cfg)
	if err != nil {
		return nil, &ConnectionError{Dialect: dialect.Name(), Err: err}
	}

	// Connections are not pooled: each operation dials its own and closing
	// it tears the session down.
	conn.SetMaxIdleConns(0)

	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, &ConnectionError{Dialect: dialect.Name(), Err: fmt.Errorf("failed to ping database: %w", err)}
	}

	log.Debug().Str("driver", dialect.Name()).Msg("Database connection established")

	return &DB{conn: conn, dialect: dialect}, nil
}

// Dialect returns the dialect of the opened backend.
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// Close releases the underlying driver handle.
func (db *DB) Close() error {
	if db == nil || db.conn == nil {
		return nil
	}
	return db.conn.Close()
}
