package database

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Code is a backend-independent classification of a statement failure.
type Code int

const (
	Other Code = iota
	UniqueViolation
	ForeignKeyViolation
	NotNullViolation
	CheckViolation
)

func (c Code) String() string {
	switch c {
	case UniqueViolation:
		return "unique violation"
	case ForeignKeyViolation:
		return "foreign key violation"
	case NotNullViolation:
		return "not null violation"
	case CheckViolation:
		return "check violation"
	default:
		return "other"
	}
}

// SQLSTATE classes for integrity constraint violations.
var pgCodes = map[string]Code{
	"23505": UniqueViolation,
	"23503": ForeignKeyViolation,
	"23502": NotNullViolation,
	"23514": CheckViolation,
}

var mysqlCodes = map[uint16]Code{
	1062: UniqueViolation,
	1451: ForeignKeyViolation,
	1452: ForeignKeyViolation,
	1048: NotNullViolation,
	3819: CheckViolation,
}

var sqliteCodes = map[int]Code{
	sqlite3.SQLITE_CONSTRAINT_UNIQUE:     UniqueViolation,
	sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY: UniqueViolation,
	sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY: ForeignKeyViolation,
	sqlite3.SQLITE_CONSTRAINT_NOTNULL:    NotNullViolation,
	sqlite3.SQLITE_CONSTRAINT_CHECK:      CheckViolation,
}

// Classify maps a driver error from any supported backend onto a Code.
// Errors that are not constraint violations classify as Other.
func Classify(err error) Code {
	if err == nil {
		return Other
	}

	var dae *DataAccessError
	if errors.As(err, &dae) {
		return dae.Code
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgCodes[pgErr.Code]
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return mysqlCodes[myErr.Number]
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		if code, ok := sqliteCodes[liteErr.Code()]; ok {
			return code
		}
		if liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
			return sqliteConstraint(liteErr.Error())
		}
	}

	return Other
}

// sqliteConstraint classifies a constraint failure reported with only the
// primary result code.
func sqliteConstraint(msg string) Code {
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return UniqueViolation
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return ForeignKeyViolation
	case strings.Contains(msg, "NOT NULL constraint failed"):
		return NotNullViolation
	case strings.Contains(msg, "CHECK constraint failed"):
		return CheckViolation
	default:
		return Other
	}
}
