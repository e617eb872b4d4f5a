package db

import (
	"context"
	"fmt"
	"time"

	"github.com/tordrt/demomigrate/internal/schema"
)

// BulkInsertOptions tunes BulkInsert. A nil value uses the defaults.
type BulkInsertOptions struct {
	// IgnoreDuplicates skips rows that collide with an existing unique key
	// instead of failing the whole statement.
	IgnoreDuplicates bool
}

// QueryInterface is the handle migrations and seeders work through. Each
// method issues a single statement (or, for SQLite column changes, a single
// atomic rebuild) and returns store errors exactly as the driver reported them.
type QueryInterface struct {
	ex      Executor
	dialect Dialect
	timeNow func() time.Time
}

// NewQueryInterface creates a query interface over ex. A nil timeNow falls
// back to time.Now.
func NewQueryInterface(ex Executor, dialect Dialect, timeNow func() time.Time) *QueryInterface {
	if timeNow == nil {
		timeNow = time.Now
	}
	return &QueryInterface{ex: ex, dialect: dialect, timeNow: timeNow}
}

// Dialect returns the dialect statements are rendered in
func (q *QueryInterface) Dialect() Dialect {
	return q.dialect
}

// TimeNow returns the current time according to the query interface's clock
func (q *QueryInterface) TimeNow() time.Time {
	return q.timeNow()
}

// ChangeColumn alters an existing column to match def.
func (q *QueryInterface) ChangeColumn(ctx context.Context, table, column string, def schema.ColumnDefinition) error {
	if err := def.Type.Validate(); err != nil {
		return fmt.Errorf("change column %s.%s: %w", table, column, err)
	}
	return q.dialect.ChangeColumn(ctx, q.ex, table, column, def)
}

// BulkInsert inserts records into table with one multi-row INSERT. Columns
// missing from a record are inserted as NULL. Inserting no records is a no-op.
func (q *QueryInterface) BulkInsert(ctx context.Context, table string, records []schema.Record, opts *BulkInsertOptions) error {
	if len(records) == 0 {
		return nil
	}
	if opts == nil {
		opts = &BulkInsertOptions{}
	}

	query, args := buildInsert(q.dialect, table, records, opts.IgnoreDuplicates)
	_, err := q.ex.ExecContext(ctx, query, args...)
	return err
}

// RowsUnknown is the count BulkDelete reports when the driver can't tell how
// many rows a statement affected.
const RowsUnknown int64 = -1

// BulkDelete deletes the rows of table matching filter and returns how many
// were removed. A nil filter deletes every row. If the delete succeeded but
// the driver can't report the affected row count, BulkDelete returns
// RowsUnknown and a nil error.
func (q *QueryInterface) BulkDelete(ctx context.Context, table string, filter schema.Filter) (int64, error) {
	query, args := buildDelete(q.dialect, table, filter)
	res, err := q.ex.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return RowsUnknown, nil
	}
	return n, nil
}

// CreateTable creates table unless it already exists
func (q *QueryInterface) CreateTable(ctx context.Context, table string, attrs []schema.Attribute) error {
	query, err := buildCreateTable(q.dialect, table, attrs)
	if err != nil {
		return err
	}
	_, err = q.ex.ExecContext(ctx, query)
	return err
}

// DropTable drops table if it exists
func (q *QueryInterface) DropTable(ctx context.Context, table string) error {
	_, err := q.ex.ExecContext(ctx, buildDropTable(q.dialect, table))
	return err
}

// DescribeTable reads the current structure of table
func (q *QueryInterface) DescribeTable(ctx context.Context, table string) (*schema.Table, error) {
	return q.dialect.Extractor(q.ex).ExtractTable(ctx, table)
}

// Count returns the number of rows in table
func (q *QueryInterface) Count(ctx context.Context, table string) (int64, error) {
	var n int64
	err := q.ex.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+q.dialect.Quote(table)).Scan(&n)
	return n, err
}
