package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tordrt/demomigrate/internal/schema"
)

// NewSQLiteClient opens the SQLite database at path. The pool is limited to a
// single connection: in-memory databases are per connection, and savepoints
// must stay on the connection that opened them.
func NewSQLiteClient(ctx context.Context, path string) (*Client, error) {
	c, err := open(ctx, "sqlite3", path, SQLiteDialect{})
	if err != nil {
		return nil, err
	}
	c.db.SetMaxOpenConns(1)
	return c, nil
}

// SQLiteDialect renders statements for SQLite
type SQLiteDialect struct{}

var _ Dialect = SQLiteDialect{}

// Name returns the dialect name
func (SQLiteDialect) Name() string { return "sqlite" }

// Quote quotes an identifier
func (SQLiteDialect) Quote(ident string) string { return quoteWith(ident, `"`) }

// Placeholder returns a positional bind parameter
func (SQLiteDialect) Placeholder(int) string { return "?" }

// ColumnType maps a logical type to a SQLite column type
func (SQLiteDialect) ColumnType(t schema.ValueType) (string, error) {
	switch t {
	case schema.String:
		return "VARCHAR(255)", nil
	case schema.Integer:
		return "INTEGER", nil
	case schema.Date:
		return "DATETIME", nil
	}
	return "", t.Validate()
}

// AttributeSQL renders a column definition for CREATE TABLE
func (d SQLiteDialect) AttributeSQL(attr schema.Attribute) (string, error) {
	if attr.PrimaryKey && attr.AutoIncrement {
		return "INTEGER PRIMARY KEY AUTOINCREMENT", nil
	}
	return attributeSQL(d, attr)
}

// InsertVerb returns the bulk insert prefix and suffix
func (SQLiteDialect) InsertVerb(ignoreDuplicates bool) (string, string) {
	if ignoreDuplicates {
		return "INSERT OR IGNORE INTO", ""
	}
	return "INSERT INTO", ""
}

// Extractor returns a schema extractor running on ex
func (SQLiteDialect) Extractor(ex Executor) Extractor {
	return NewSQLiteExtractor(ex)
}

// ChangeColumn changes a column definition. SQLite has no ALTER COLUMN, so the
// table is rebuilt: a new table is created with the changed column, rows are
// copied over, the old table is dropped and the new one renamed into place.
// The whole rebuild runs in one transaction (or savepoint, if ex already is a
// transaction), so a failed copy leaves the original table untouched.
//
// The new table is rendered from what the PRAGMAs report. Tables declaring
// CHECK constraints, COLLATE clauses or generated columns can't be reproduced
// that way and are refused with an *UnsupportedRebuildError. The AUTOINCREMENT
// counter is carried over, so ids handed out before the change are never reused.
func (d SQLiteDialect) ChangeColumn(ctx context.Context, ex Executor, table, column string, def schema.ColumnDefinition) error {
	colType, err := d.ColumnType(def.Type)
	if err != nil {
		return err
	}

	return withSavepoint(ctx, ex, "change_column", func(ex Executor) error {
		t, err := NewSQLiteExtractor(ex).ExtractTable(ctx, table)
		if err != nil {
			return err
		}
		if err := checkRebuildable(ctx, ex, t.Name); err != nil {
			return err
		}
		col := t.Column(column)
		if col == nil {
			return &SchemaMismatchError{Table: table, Column: column}
		}
		col.Type = colType
		col.Nullable = def.Nullable

		return d.rebuild(ctx, ex, t)
	})
}

// unrebuildable matches table clauses the PRAGMAs don't report
var unrebuildable = regexp.MustCompile(`(?i)\b(CHECK|COLLATE|GENERATED)\b|\bAS\s*\(`)

func checkRebuildable(ctx context.Context, ex Executor, table string) error {
	var ddl sql.NullString
	err := ex.QueryRowContext(ctx,
		`SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ? COLLATE NOCASE`, table).Scan(&ddl)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &SchemaMismatchError{Table: table}
		}
		return err
	}
	m := strings.ToUpper(unrebuildable.FindString(ddl.String))
	if m == "" {
		return nil
	}
	if strings.HasPrefix(m, "AS") {
		// Short form of a generated column: name TYPE AS (expr)
		m = "GENERATED"
	}
	return &UnsupportedRebuildError{Table: table, Clause: m}
}

// sequence returns the AUTOINCREMENT counter of table, if it has one
func sequence(ctx context.Context, ex Executor, table string) (int64, bool, error) {
	var seq int64
	err := ex.QueryRowContext(ctx, `SELECT seq FROM sqlite_sequence WHERE name = ?`, table).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return seq, true, nil
}

func hasAutoIncrement(t *schema.Table) bool {
	for _, col := range t.Columns {
		if col.AutoIncrement {
			return true
		}
	}
	return false
}

func (d SQLiteDialect) rebuild(ctx context.Context, ex Executor, t *schema.Table) error {
	tmp := "_rebuild_" + t.Name

	var (
		seq    int64
		hasSeq bool
	)
	if hasAutoIncrement(t) {
		var err error
		if seq, hasSeq, err = sequence(ctx, ex, t.Name); err != nil {
			return err
		}
	}

	create, err := d.createTableSQL(tmp, t)
	if err != nil {
		return err
	}

	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = col.Name
	}
	cols := quoteAll(d, names)

	stmts := []string{
		create,
		fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s", d.Quote(tmp), cols, cols, d.Quote(t.Name)),
		"DROP TABLE " + d.Quote(t.Name),
		fmt.Sprintf("ALTER TABLE %s RENAME TO %s", d.Quote(tmp), d.Quote(t.Name)),
	}
	for _, idx := range t.Indexes {
		if idx.Definition != "" {
			stmts = append(stmts, idx.Definition)
		}
	}

	for _, stmt := range stmts {
		if _, err := ex.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	if !hasSeq {
		return nil
	}
	if _, err := ex.ExecContext(ctx, `DELETE FROM sqlite_sequence WHERE name IN (?, ?)`, t.Name, tmp); err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx, `INSERT INTO sqlite_sequence (name, seq) VALUES (?, ?)`, t.Name, seq)
	return err
}

// createTableSQL renders a CREATE TABLE statement reproducing t under name
func (d SQLiteDialect) createTableSQL(name string, t *schema.Table) (string, error) {
	if len(t.Columns) == 0 {
		return "", &SchemaMismatchError{Table: t.Name}
	}

	inlinePK := len(t.PrimaryKey) == 1
	var defs []string
	for _, col := range t.Columns {
		parts := []string{d.Quote(col.Name)}
		if col.Type != "" {
			parts = append(parts, col.Type)
		}
		isPK := inlinePK && t.PrimaryKey[0] == col.Name
		if isPK {
			parts = append(parts, "PRIMARY KEY")
			if col.AutoIncrement {
				parts = append(parts, "AUTOINCREMENT")
			}
		}
		if !col.Nullable && !isPK {
			parts = append(parts, "NOT NULL")
		}
		if col.IsUnique {
			parts = append(parts, "UNIQUE")
		}
		if col.DefaultValue != nil {
			parts = append(parts, "DEFAULT "+*col.DefaultValue)
		}
		defs = append(defs, strings.Join(parts, " "))
	}

	if len(t.PrimaryKey) > 1 {
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", quoteAll(d, t.PrimaryKey)))
	}

	for _, idx := range t.Indexes {
		// Multi-column UNIQUE constraints live on the table; single-column
		// ones were already folded into the column.
		if idx.Definition == "" && idx.IsUnique && len(idx.Columns) > 1 {
			defs = append(defs, fmt.Sprintf("UNIQUE (%s)", quoteAll(d, idx.Columns)))
		}
	}

	for _, rel := range t.Relations {
		fk := fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s", d.Quote(rel.SourceColumn), d.Quote(rel.TargetTable))
		if rel.TargetColumn != "" {
			fk += fmt.Sprintf(" (%s)", d.Quote(rel.TargetColumn))
		}
		if rel.OnUpdate != "" && rel.OnUpdate != "NO ACTION" {
			fk += " ON UPDATE " + rel.OnUpdate
		}
		if rel.OnDelete != "" && rel.OnDelete != "NO ACTION" {
			fk += " ON DELETE " + rel.OnDelete
		}
		defs = append(defs, fk)
	}

	return fmt.Sprintf("CREATE TABLE %s (%s)", d.Quote(name), strings.Join(defs, ", ")), nil
}

// txBeginner is implemented by *sql.DB but not by *sql.Tx
type txBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// withSavepoint runs fn atomically. On a *sql.DB it opens a transaction; on
// anything else (an open transaction) it uses a named savepoint.
func withSavepoint(ctx context.Context, ex Executor, name string, fn func(Executor) error) error {
	if b, ok := ex.(txBeginner); ok {
		tx, err := b.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	}

	if _, err := ex.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return err
	}
	if err := fn(ex); err != nil {
		_, _ = ex.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name)
		_, _ = ex.ExecContext(ctx, "RELEASE SAVEPOINT "+name)
		return err
	}
	_, err := ex.ExecContext(ctx, "RELEASE SAVEPOINT "+name)
	return err
}
