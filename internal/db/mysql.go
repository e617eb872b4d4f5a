package db

import (
	"context"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/tordrt/demomigrate/internal/schema"
)

// NewMySQLClient connects to MySQL. dsn is in the driver's native format
// (user:pass@tcp(host:port)/dbname). The inspected schema is the DSN's
// database name.
func NewMySQLClient(ctx context.Context, dsn string) (*Client, error) {
	cfg, err := mysqlConfig(dsn)
	if err != nil {
		return nil, err
	}
	return open(ctx, "mysql", cfg.FormatDSN(), MySQLDialect{Schema: cfg.DBName})
}

// mysqlConfig parses dsn and requires it to name a database. DATETIME
// columns are always scanned as time.Time.
func mysqlConfig(dsn string) (*mysql.Config, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid MySQL DSN: %w", err)
	}
	if cfg.DBName == "" {
		return nil, fmt.Errorf("MySQL DSN doesn't name a database")
	}
	cfg.ParseTime = true
	return cfg, nil
}

// MySQLDialect renders statements for MySQL
type MySQLDialect struct {
	// Schema is the database inspected by the extractor.
	Schema string
}

var _ Dialect = MySQLDialect{}

// Name returns the dialect name
func (MySQLDialect) Name() string { return "mysql" }

// Quote quotes an identifier with backticks
func (MySQLDialect) Quote(ident string) string { return quoteWith(ident, "`") }

// Placeholder returns a positional bind parameter
func (MySQLDialect) Placeholder(int) string { return "?" }

// ColumnType maps a logical type to a MySQL column type
func (MySQLDialect) ColumnType(t schema.ValueType) (string, error) {
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
func (d MySQLDialect) AttributeSQL(attr schema.Attribute) (string, error) {
	if attr.PrimaryKey && attr.AutoIncrement {
		return "INTEGER NOT NULL AUTO_INCREMENT PRIMARY KEY", nil
	}
	return attributeSQL(d, attr)
}

// InsertVerb returns the bulk insert prefix and suffix
func (MySQLDialect) InsertVerb(ignoreDuplicates bool) (string, string) {
	if ignoreDuplicates {
		return "INSERT IGNORE INTO", ""
	}
	return "INSERT INTO", ""
}

// Extractor returns a schema extractor running on ex
func (d MySQLDialect) Extractor(ex Executor) Extractor {
	return NewMySQLExtractor(ex, d.Schema)
}

// ChangeColumn issues a single ALTER TABLE ... MODIFY. MySQL commits DDL
// implicitly, so this can't be rolled back by an enclosing transaction.
func (d MySQLDialect) ChangeColumn(ctx context.Context, ex Executor, table, column string, def schema.ColumnDefinition) error {
	stmt, err := d.changeColumnSQL(table, column, def)
	if err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx, stmt)
	return err
}

func (d MySQLDialect) changeColumnSQL(table, column string, def schema.ColumnDefinition) (string, error) {
	colType, err := d.ColumnType(def.Type)
	if err != nil {
		return "", err
	}

	nullability := "NOT NULL"
	if def.Nullable {
		nullability = "NULL"
	}

	return fmt.Sprintf("ALTER TABLE %s MODIFY %s %s %s",
		d.Quote(table), d.Quote(column), colType, nullability), nil
}
