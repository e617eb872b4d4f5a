package db

import (
	"context"
	"fmt"
	"strconv"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/tordrt/demomigrate/internal/schema"
)

// NewPostgresClient connects to PostgreSQL through pgx. Tables are resolved in
// schemaName, or "public" when it is empty.
func NewPostgresClient(ctx context.Context, connString, schemaName string) (*Client, error) {
	if schemaName == "" {
		schemaName = "public"
	}
	return open(ctx, "pgx", connString, PostgresDialect{Schema: schemaName})
}

// PostgresDialect renders statements for PostgreSQL
type PostgresDialect struct {
	// Schema is the namespace inspected by the extractor.
	Schema string
}

var _ Dialect = PostgresDialect{}

// Name returns the dialect name
func (PostgresDialect) Name() string { return "postgres" }

// Quote quotes an identifier. Quoted identifiers keep their case, so "users"
// and "Users" are different relations.
func (PostgresDialect) Quote(ident string) string { return quoteWith(ident, `"`) }

// Placeholder returns a numbered bind parameter
func (PostgresDialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

// ColumnType maps a logical type to a PostgreSQL column type
func (PostgresDialect) ColumnType(t schema.ValueType) (string, error) {
	switch t {
	case schema.String:
		return "VARCHAR(255)", nil
	case schema.Integer:
		return "INTEGER", nil
	case schema.Date:
		return "TIMESTAMP WITH TIME ZONE", nil
	}
	return "", t.Validate()
}

// AttributeSQL renders a column definition for CREATE TABLE
func (d PostgresDialect) AttributeSQL(attr schema.Attribute) (string, error) {
	if attr.PrimaryKey && attr.AutoIncrement {
		return "SERIAL PRIMARY KEY", nil
	}
	return attributeSQL(d, attr)
}

// InsertVerb returns the bulk insert prefix and suffix
func (PostgresDialect) InsertVerb(ignoreDuplicates bool) (string, string) {
	if ignoreDuplicates {
		return "INSERT INTO", " ON CONFLICT DO NOTHING"
	}
	return "INSERT INTO", ""
}

// Extractor returns a schema extractor running on ex
func (d PostgresDialect) Extractor(ex Executor) Extractor {
	return NewPostgresExtractor(ex, d.Schema)
}

// ChangeColumn issues a single ALTER TABLE changing both type and nullability
func (d PostgresDialect) ChangeColumn(ctx context.Context, ex Executor, table, column string, def schema.ColumnDefinition) error {
	stmt, err := d.changeColumnSQL(table, column, def)
	if err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx, stmt)
	return err
}

func (d PostgresDialect) changeColumnSQL(table, column string, def schema.ColumnDefinition) (string, error) {
	colType, err := d.ColumnType(def.Type)
	if err != nil {
		return "", err
	}

	nullability := "SET NOT NULL"
	if def.Nullable {
		nullability = "DROP NOT NULL"
	}

	col := d.Quote(column)
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s, ALTER COLUMN %s %s",
		d.Quote(table), col, colType, col, nullability), nil
}
