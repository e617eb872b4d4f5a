package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsConstraintViolation(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		want   bool
		unique bool
	}{
		{name: "nil", err: nil},
		{name: "plain error", err: errors.New("connection refused")},
		{
			name: "sqlite not null",
			err:  sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintNotNull},
			want: true,
		},
		{
			name:   "sqlite unique",
			err:    sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique},
			want:   true,
			unique: true,
		},
		{
			name: "sqlite busy",
			err:  sqlite3.Error{Code: sqlite3.ErrBusy},
		},
		{
			name: "postgres not null",
			err:  &pgconn.PgError{Code: "23502", Message: `column "email" of relation "users" contains null values`},
			want: true,
		},
		{
			name:   "postgres unique, wrapped",
			err:    fmt.Errorf("seed 20180612130000: %w", &pgconn.PgError{Code: "23505"}),
			want:   true,
			unique: true,
		},
		{
			name: "postgres undefined table",
			err:  &pgconn.PgError{Code: "42P01"},
		},
		{
			name: "mysql invalid use of null",
			err:  &mysql.MySQLError{Number: 1138, Message: "Invalid use of NULL value"},
			want: true,
		},
		{
			name:   "mysql duplicate entry",
			err:    &mysql.MySQLError{Number: 1062},
			want:   true,
			unique: true,
		},
		{
			name: "mysql unknown table",
			err:  &mysql.MySQLError{Number: 1146},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsConstraintViolation(tt.err))
			assert.Equal(t, tt.unique, IsUniqueViolation(tt.err))
		})
	}
}

func TestSchemaMismatchError(t *testing.T) {
	assert.EqualError(t, &SchemaMismatchError{Table: "users"}, "table users doesn't exist")
	assert.EqualError(t, &SchemaMismatchError{Table: "users", Column: "email"}, "column users.email doesn't exist")
}

func TestMySQLConfig(t *testing.T) {
	cfg, err := mysqlConfig("root:secret@tcp(localhost:3306)/demo")
	require.NoError(t, err)
	assert.Equal(t, "demo", cfg.DBName)
	assert.True(t, cfg.ParseTime)

	_, err = mysqlConfig("root:secret@tcp(localhost:3306)/")
	assert.EqualError(t, err, "MySQL DSN doesn't name a database")

	_, err = mysqlConfig("not a dsn")
	assert.ErrorContains(t, err, "invalid MySQL DSN")
}
