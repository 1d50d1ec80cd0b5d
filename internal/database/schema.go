package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

// CreateSchema creates any of the project tables that do not exist yet. It
// is safe to run on every start; existing tables are left as they are.
func (db *DB) CreateSchema(ctx context.Context) error {
	conn, err := db.Connect(ctx)
	if err != nil {
		return err
	}
	defer release(conn)

	statements := db.dialect.Schema()

	if !db.dialect.TransactionalDDL() {
		// Each CREATE TABLE commits implicitly; run them one by one.
		if err := execAll(ctx, conn, statements); err != nil {
			return newDataAccessError("create schema", err)
		}
	} else {
		err = InTransaction(ctx, conn, "create schema", func(tx *Transaction) error {
			return execAll(ctx, tx, statements)
		})
		if err != nil {
			return err
		}
	}

	log.Debug().Str("driver", db.dialect.Name()).Int("tables", len(statements)).Msg("Schema ready")
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func execAll(ctx context.Context, e execer, statements []string) error {
	for i, stmt := range statements {
		if _, err := e.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
