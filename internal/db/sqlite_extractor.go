package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/tordrt/demomigrate/internal/schema"
)

// SQLiteExtractor handles schema extraction from SQLite
type SQLiteExtractor struct {
	ex Executor
	d  SQLiteDialect
}

// NewSQLiteExtractor creates a new SQLite schema extractor
func NewSQLiteExtractor(ex Executor) *SQLiteExtractor {
	return &SQLiteExtractor{ex: ex}
}

// ExtractSchema extracts the given tables, or every user table in the database
func (e *SQLiteExtractor) ExtractSchema(ctx context.Context, tables []string) (*schema.Schema, error) {
	return describeTables(ctx, tables, e.tableNames, e.ExtractTable)
}

func (e *SQLiteExtractor) tableNames(ctx context.Context) ([]string, error) {
	return queryStrings(ctx, e.ex, `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`)
}

// ExtractTable extracts all information for a single table. Table names are
// matched case-insensitively, like SQLite itself does; the returned table
// carries the name as stored.
func (e *SQLiteExtractor) ExtractTable(ctx context.Context, tableName string) (*schema.Table, error) {
	var name, createSQL string
	err := e.ex.QueryRowContext(ctx,
		`SELECT name, sql FROM sqlite_master WHERE type = 'table' AND name = ? COLLATE NOCASE`,
		tableName).Scan(&name, &createSQL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &SchemaMismatchError{Table: tableName}
	}
	if err != nil {
		return nil, err
	}

	table := &schema.Table{Name: name}

	// Columns and primary key
	if err := e.extractColumns(ctx, table); err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	if len(table.PrimaryKey) == 1 && strings.Contains(strings.ToUpper(createSQL), "AUTOINCREMENT") {
		table.Column(table.PrimaryKey[0]).AutoIncrement = true
	}

	// Relations
	relations, err := e.extractRelations(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to extract relations: %w", err)
	}
	table.Relations = relations

	// Indexes, including the implicit ones behind UNIQUE constraints
	indexes, err := e.extractIndexes(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to extract indexes: %w", err)
	}
	for _, idx := range indexes {
		if idx.Definition == "" && idx.IsUnique && len(idx.Columns) == 1 {
			if col := table.Column(idx.Columns[0]); col != nil {
				col.IsUnique = true
			}
		}
	}
	table.Indexes = indexes

	return table, nil
}

func (e *SQLiteExtractor) extractColumns(ctx context.Context, table *schema.Table) error {
	rows, err := e.ex.QueryContext(ctx, "PRAGMA table_info("+e.d.Quote(table.Name)+")")
	if err != nil {
		return err
	}
	defer rows.Close()

	type pkCol struct {
		order int
		name  string
	}
	var pks []pkCol

	for rows.Next() {
		var cid, notNull, pk int
		var name, colType string
		var defaultValue sql.NullString

		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultValue, &pk); err != nil {
			return err
		}

		col := schema.Column{
			Name:     name,
			Type:     colType,
			Nullable: notNull == 0,
		}
		if defaultValue.Valid {
			col.DefaultValue = &defaultValue.String
		}
		if pk > 0 {
			pks = append(pks, pkCol{order: pk, name: name})
		}

		table.Columns = append(table.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	// pk holds the 1-based position within the key
	table.PrimaryKey = make([]string, len(pks))
	for _, p := range pks {
		if p.order <= len(pks) {
			table.PrimaryKey[p.order-1] = p.name
		}
	}
	if len(pks) == 0 {
		table.PrimaryKey = nil
	}

	return nil
}

// extractRelations extracts foreign key relationships
func (e *SQLiteExtractor) extractRelations(ctx context.Context, tableName string) ([]schema.Relation, error) {
	rows, err := e.ex.QueryContext(ctx, "PRAGMA foreign_key_list("+e.d.Quote(tableName)+")")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var relations []schema.Relation
	for rows.Next() {
		var id, seq int
		var targetTable, fromCol, onUpdate, onDelete, match string
		var toCol sql.NullString

		if err := rows.Scan(&id, &seq, &targetTable, &fromCol, &toCol, &onUpdate, &onDelete, &match); err != nil {
			return nil, err
		}

		relations = append(relations, schema.Relation{
			SourceColumn: fromCol,
			TargetTable:  targetTable,
			TargetColumn: toCol.String,
			OnUpdate:     onUpdate,
			OnDelete:     onDelete,
		})
	}

	return relations, rows.Err()
}

// extractIndexes extracts index information. Indexes backing a PRIMARY KEY
// are skipped; those backing a UNIQUE constraint have no Definition.
func (e *SQLiteExtractor) extractIndexes(ctx context.Context, tableName string) ([]schema.Index, error) {
	rows, err := e.ex.QueryContext(ctx, "PRAGMA index_list("+e.d.Quote(tableName)+")")
	if err != nil {
		return nil, err
	}

	var indexes []schema.Index
	for rows.Next() {
		var seq, unique, partial int
		var name, origin string

		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			rows.Close()
			return nil, err
		}
		if origin == "pk" {
			continue
		}

		indexes = append(indexes, schema.Index{Name: name, IsUnique: unique == 1})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// The pool may hold a single connection, so the index list is drained
	// before issuing the per-index queries.
	for i := range indexes {
		columns, err := e.indexColumns(ctx, indexes[i].Name)
		if err != nil {
			return nil, err
		}
		indexes[i].Columns = columns

		var def sql.NullString
		err = e.ex.QueryRowContext(ctx,
			`SELECT sql FROM sqlite_master WHERE type = 'index' AND name = ?`,
			indexes[i].Name).Scan(&def)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		indexes[i].Definition = def.String
	}

	return indexes, nil
}

func (e *SQLiteExtractor) indexColumns(ctx context.Context, indexName string) ([]string, error) {
	rows, err := e.ex.QueryContext(ctx, "PRAGMA index_info("+e.d.Quote(indexName)+")")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var seqno, cid int
		var colName sql.NullString

		if err := rows.Scan(&seqno, &cid, &colName); err != nil {
			return nil, err
		}
		if colName.Valid {
			columns = append(columns, colName.String)
		}
	}

	return columns, rows.Err()
}
