package database

import (
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/saltyorg/projects/internal/config"
)

// Dialect captures the per-backend differences the data-access layer has to
// care about: how to open the backend, placeholder syntax, how to read back
// a generated key, and the DDL for the project schema.
type Dialect interface {
	Name() string
	// Rebind rewrites a query written with ? placeholders into the
	// backend's native placeholder syntax.
	Rebind(query string) string
	// LastInsertIDQuery returns a query yielding the key generated by the
	// most recent insert into table on the current session.
	LastInsertIDQuery(table string) string
	// Schema returns the DDL statements creating the project tables.
	Schema() []string
	// TransactionalDDL reports whether CREATE TABLE participates in a
	// transaction on this backend.
	TransactionalDDL() bool

	open(cfg config.DatabaseConfig) (*sql.DB, error)
}

// DialectFor returns the dialect registered under name.
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "", "sqlite", "sqlite3":
		return sqliteDialect{}, nil
	case "mysql", "mariadb":
		return mysqlDialect{}, nil
	case "postgres", "postgresql", "pgx":
		return postgresDialect{}, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q (expected sqlite, mysql or postgres)", name)
	}
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string               { return "sqlite" }
func (sqliteDialect) Rebind(query string) string { return query }
func (sqliteDialect) TransactionalDDL() bool     { return true }

func (sqliteDialect) LastInsertIDQuery(string) string {
	return "SELECT last_insert_rowid()"
}

func (sqliteDialect) open(cfg config.DatabaseConfig) (*sql.DB, error) {
	// Foreign keys are a per-connection pragma in SQLite, so they ride on the DSN.
	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", cfg.Path)
	return sql.Open("sqlite", dsn)
}

func (sqliteDialect) Schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS project (
			project_id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_name VARCHAR(128) NOT NULL,
			estimated_hours DECIMAL(7,2),
			actual_hours DECIMAL(7,2),
			difficulty INT,
			notes TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS material (
			material_id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id INTEGER NOT NULL REFERENCES project (project_id) ON DELETE CASCADE,
			material_name VARCHAR(128) NOT NULL,
			num_required INT,
			cost DECIMAL(7,2)
		)`,
		`CREATE TABLE IF NOT EXISTS step (
			step_id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id INTEGER NOT NULL REFERENCES project (project_id) ON DELETE CASCADE,
			step_text TEXT NOT NULL,
			step_order INT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS category (
			category_id INTEGER PRIMARY KEY AUTOINCREMENT,
			category_name VARCHAR(128) NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS project_category (
			project_id INTEGER NOT NULL REFERENCES project (project_id) ON DELETE CASCADE,
			category_id INTEGER NOT NULL REFERENCES category (category_id) ON DELETE CASCADE,
			PRIMARY KEY (project_id, category_id)
		)`,
	}
}

type mysqlDialect struct{}

func (mysqlDialect) Name() string               { return "mysql" }
func (mysqlDialect) Rebind(query string) string { return query }
func (mysqlDialect) TransactionalDDL() bool     { return false }

func (mysqlDialect) LastInsertIDQuery(string) string {
	return "SELECT LAST_INSERT_ID()"
}

func (mysqlDialect) open(cfg config.DatabaseConfig) (*sql.DB, error) {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	mc.DBName = cfg.Schema
	mc.ParseTime = true
	if cfg.ConnectTimeout > 0 {
		mc.Timeout = cfg.ConnectTimeout
	}

	connector, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, fmt.Errorf("failed to build mysql connector: %w", err)
	}
	return sql.OpenDB(connector), nil
}

func (mysqlDialect) Schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS project (
			project_id INT AUTO_INCREMENT NOT NULL,
			project_name VARCHAR(128) NOT NULL,
			estimated_hours DECIMAL(7,2),
			actual_hours DECIMAL(7,2),
			difficulty INT,
			notes TEXT,
			PRIMARY KEY (project_id)
		)`,
		`CREATE TABLE IF NOT EXISTS material (
			material_id INT AUTO_INCREMENT NOT NULL,
			project_id INT NOT NULL,
			material_name VARCHAR(128) NOT NULL,
			num_required INT,
			cost DECIMAL(7,2),
			PRIMARY KEY (material_id),
			FOREIGN KEY (project_id) REFERENCES project (project_id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS step (
			step_id INT AUTO_INCREMENT NOT NULL,
			project_id INT NOT NULL,
			step_text TEXT NOT NULL,
			step_order INT NOT NULL,
			PRIMARY KEY (step_id),
			FOREIGN KEY (project_id) REFERENCES project (project_id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS category (
			category_id INT AUTO_INCREMENT NOT NULL,
			category_name VARCHAR(128) NOT NULL,
			PRIMARY KEY (category_id),
			UNIQUE KEY (category_name)
		)`,
		`CREATE TABLE IF NOT EXISTS project_category (
			project_id INT NOT NULL,
			category_id INT NOT NULL,
			FOREIGN KEY (project_id) REFERENCES project (project_id) ON DELETE CASCADE,
			FOREIGN KEY (category_id) REFERENCES category (category_id) ON DELETE CASCADE,
			UNIQUE KEY (project_id, category_id)
		)`,
	}
}

type postgresDialect struct{}

func (postgresDialect) Name() string           { return "postgres" }
func (postgresDialect) TransactionalDDL() bool { return true }

// Rebind converts ? placeholders to $1..$n, leaving quoted literals alone.
func (postgresDialect) Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)

	n := 0
	inQuote := false
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (postgresDialect) LastInsertIDQuery(table string) string {
	return fmt.Sprintf("SELECT currval(pg_get_serial_sequence('%s', '%s_id'))", table, table)
}

func (postgresDialect) open(cfg config.DatabaseConfig) (*sql.DB, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=%s",
		url.QueryEscape(cfg.User),
		url.QueryEscape(cfg.Password),
		net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		cfg.Schema,
		sslMode,
	)

	connConfig, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}
	if cfg.ConnectTimeout > 0 {
		connConfig.ConnectTimeout = cfg.ConnectTimeout
	}
	return stdlib.OpenDB(*connConfig), nil
}

func (postgresDialect) Schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS project (
			project_id SERIAL PRIMARY KEY,
			project_name VARCHAR(128) NOT NULL,
			estimated_hours NUMERIC(7,2),
			actual_hours NUMERIC(7,2),
			difficulty INT,
			notes TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS material (
			material_id SERIAL PRIMARY KEY,
			project_id INT NOT NULL REFERENCES project (project_id) ON DELETE CASCADE,
			material_name VARCHAR(128) NOT NULL,
			num_required INT,
			cost NUMERIC(7,2)
		)`,
		`CREATE TABLE IF NOT EXISTS step (
			step_id SERIAL PRIMARY KEY,
			project_id INT NOT NULL REFERENCES project (project_id) ON DELETE CASCADE,
			step_text TEXT NOT NULL,
			step_order INT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS category (
			category_id SERIAL PRIMARY KEY,
			category_name VARCHAR(128) NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS project_category (
			project_id INT NOT NULL REFERENCES project (project_id) ON DELETE CASCADE,
			category_id INT NOT NULL REFERENCES category (category_id) ON DELETE CASCADE,
			PRIMARY KEY (project_id, category_id)
		)`,
	}
}
