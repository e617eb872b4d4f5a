package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// SchemaMismatchError is returned when a table or column a statement relies
// on doesn't exist.
type SchemaMismatchError struct {
	Table  string
	Column string
}

// Error returns a string representation of the error.
func (e *SchemaMismatchError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("table %s doesn't exist", e.Table)
	}
	return fmt.Sprintf("column %s.%s doesn't exist", e.Table, e.Column)
}

// UnsupportedRebuildError is returned when a SQLite table declares a clause
// that a column change would lose in the table rebuild.
type UnsupportedRebuildError struct {
	Table  string
	Clause string
}

func (e *UnsupportedRebuildError) Error() string {
	return fmt.Sprintf("table %s uses %s, which a SQLite column change can't preserve", e.Table, e.Clause)
}

// MySQL server error numbers for integrity constraint failures.
const (
	mysqlErrBadNull         = 1048
	mysqlErrDupEntry        = 1062
	mysqlErrInvalidUseNull  = 1138
	mysqlErrRowIsReferenced = 1451
	mysqlErrNoReferencedRow = 1452
)

// IsConstraintViolation reports whether err is an integrity constraint
// failure raised by any of the supported stores (NOT NULL, UNIQUE, foreign
// key or CHECK).
func IsConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 23: integrity constraint violation
		return strings.HasPrefix(pgErr.Code, "23")
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case mysqlErrBadNull, mysqlErrDupEntry, mysqlErrInvalidUseNull,
			mysqlErrRowIsReferenced, mysqlErrNoReferencedRow:
			return true
		}
	}

	return false
}

// IsUniqueViolation reports whether err is a duplicate key failure.
func IsUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlErrDupEntry
	}

	return false
}
