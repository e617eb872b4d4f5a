package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tordrt/demomigrate/internal/schema"
)

// PostgresExtractor handles schema extraction from PostgreSQL
type PostgresExtractor struct {
	ex     Executor
	schema string
}

// NewPostgresExtractor creates a new schema extractor
func NewPostgresExtractor(ex Executor, schemaName string) *PostgresExtractor {
	return &PostgresExtractor{
		ex:     ex,
		schema: schemaName,
	}
}

// ExtractSchema extracts the given tables, or every base table in the schema
func (e *PostgresExtractor) ExtractSchema(ctx context.Context, tables []string) (*schema.Schema, error) {
	return describeTables(ctx, tables, e.tableNames, e.ExtractTable)
}

func (e *PostgresExtractor) tableNames(ctx context.Context) ([]string, error) {
	return queryStrings(ctx, e.ex, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name`, e.schema)
}

// ExtractTable extracts columns and primary key of a single table. The name
// is matched exactly.
func (e *PostgresExtractor) ExtractTable(ctx context.Context, tableName string) (*schema.Table, error) {
	table := &schema.Table{Name: tableName}

	columns, err := e.extractColumns(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	if len(columns) == 0 {
		return nil, &SchemaMismatchError{Table: tableName}
	}
	table.Columns = columns

	pk, err := e.primaryKey(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract primary key: %w", err)
	}
	table.PrimaryKey = pk

	return table, nil
}

func (e *PostgresExtractor) extractColumns(ctx context.Context, tableName string) ([]schema.Column, error) {
	query := `
		SELECT
			column_name,
			data_type,
			is_nullable,
			column_default,
			CASE WHEN EXISTS (
				SELECT 1 FROM information_schema.table_constraints tc
				JOIN information_schema.constraint_column_usage ccu
					ON tc.constraint_name = ccu.constraint_name
					AND tc.table_schema = ccu.table_schema
				WHERE tc.table_schema = $1
					AND tc.table_name = $2
					AND tc.constraint_type = 'UNIQUE'
					AND ccu.column_name = c.column_name
			) THEN true ELSE false END as is_unique
		FROM information_schema.columns c
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`

	rows, err := e.ex.QueryContext(ctx, query, e.schema, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []schema.Column
	for rows.Next() {
		var col schema.Column
		var nullable string
		var defaultVal sql.NullString

		if err := rows.Scan(&col.Name, &col.Type, &nullable, &defaultVal, &col.IsUnique); err != nil {
			return nil, err
		}

		col.Nullable = nullable == "YES"
		if defaultVal.Valid {
			col.DefaultValue = &defaultVal.String
		}

		columns = append(columns, col)
	}

	return columns, rows.Err()
}

// primaryKey lists the primary key columns of tableName in key order
func (e *PostgresExtractor) primaryKey(ctx context.Context, tableName string) ([]string, error) {
	return queryStrings(ctx, e.ex, `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
			AND tc.table_name = kcu.table_name
		WHERE tc.table_schema = $1
			AND tc.table_name = $2
			AND tc.constraint_type = 'PRIMARY KEY'
		ORDER BY kcu.ordinal_position`, e.schema, tableName)
}
