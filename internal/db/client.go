package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tordrt/demomigrate/internal/schema"
)

// Executor is implemented by both *sql.DB and *sql.Tx
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Extractor reads table structure back from a store
type Extractor interface {
	ExtractSchema(ctx context.Context, tables []string) (*schema.Schema, error)
	ExtractTable(ctx context.Context, tableName string) (*schema.Table, error)
}

// Dialect holds everything that differs between the supported stores: quoting,
// placeholders, type mapping and how a column definition is changed.
type Dialect interface {
	Name() string
	Quote(ident string) string
	// Placeholder returns the bind parameter for the n-th argument (1-based).
	Placeholder(n int) string
	ColumnType(t schema.ValueType) (string, error)
	// AttributeSQL renders a column definition for CREATE TABLE.
	AttributeSQL(attr schema.Attribute) (string, error)
	// InsertVerb returns the statement prefix and suffix of a bulk insert.
	InsertVerb(ignoreDuplicates bool) (prefix, suffix string)
	ChangeColumn(ctx context.Context, ex Executor, table, column string, def schema.ColumnDefinition) error
	Extractor(ex Executor) Extractor
}

// Client manages the connection to one store
type Client struct {
	db      *sql.DB
	dialect Dialect
}

func open(ctx context.Context, driverName, dsn string, dialect Dialect) (*Client, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Client{db: db, dialect: dialect}, nil
}

// Close closes the database connection
func (c *Client) Close() error {
	return c.db.Close()
}

// GetDB returns the underlying database connection
func (c *Client) GetDB() *sql.DB {
	return c.db
}

// Dialect returns the SQL dialect of the connected store
func (c *Client) Dialect() Dialect {
	return c.dialect
}

// QueryInterface returns a query interface that runs its statements on ex.
// Pass the client's own *sql.DB or a transaction begun on it.
func (c *Client) QueryInterface(ex Executor, timeNow func() time.Time) *QueryInterface {
	return NewQueryInterface(ex, c.dialect, timeNow)
}

// Describe extracts the structure of the given tables, or of every table when
// tables is empty.
func (c *Client) Describe(ctx context.Context, tables []string) (*schema.Schema, error) {
	return c.dialect.Extractor(c.db).ExtractSchema(ctx, tables)
}

// NewClient wraps an already open database. It is meant for callers that
// manage the *sql.DB themselves, such as tests.
func NewClient(db *sql.DB, dialect Dialect) *Client {
	return &Client{db: db, dialect: dialect}
}
