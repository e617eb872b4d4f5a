package db

import (
	"fmt"
	"strings"

	"github.com/tordrt/demomigrate/internal/schema"
)

func quoteWith(ident, q string) string {
	return q + strings.ReplaceAll(ident, q, q+q) + q
}

func quoteAll(d Dialect, idents []string) string {
	quoted := make([]string, len(idents))
	for i, ident := range idents {
		quoted[i] = d.Quote(ident)
	}
	return strings.Join(quoted, ", ")
}

// attributeSQL renders the parts of a column definition that every dialect
// writes the same way.
func attributeSQL(d Dialect, attr schema.Attribute) (string, error) {
	colType, err := d.ColumnType(attr.Type)
	if err != nil {
		return "", err
	}

	parts := []string{colType}
	if attr.PrimaryKey {
		parts = append(parts, "PRIMARY KEY")
	} else if !attr.Nullable {
		parts = append(parts, "NOT NULL")
	}
	return strings.Join(parts, " "), nil
}

func buildCreateTable(d Dialect, table string, attrs []schema.Attribute) (string, error) {
	if len(attrs) == 0 {
		return "", fmt.Errorf("table %s has no columns", table)
	}

	cols := make([]string, 0, len(attrs))
	for _, attr := range attrs {
		def, err := d.AttributeSQL(attr)
		if err != nil {
			return "", fmt.Errorf("column %s: %w", attr.Name, err)
		}
		cols = append(cols, d.Quote(attr.Name)+" "+def)
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		d.Quote(table), strings.Join(cols, ", ")), nil
}

func buildDropTable(d Dialect, table string) string {
	return "DROP TABLE IF EXISTS " + d.Quote(table)
}

func buildInsert(d Dialect, table string, records []schema.Record, ignoreDuplicates bool) (string, []any) {
	columns := schema.RecordColumns(records)
	args := make([]any, 0, len(records)*len(columns))

	rows := make([]string, 0, len(records))
	for _, r := range records {
		ph := make([]string, len(columns))
		for i, col := range columns {
			args = append(args, r[col])
			ph[i] = d.Placeholder(len(args))
		}
		rows = append(rows, "("+strings.Join(ph, ", ")+")")
	}

	prefix, suffix := d.InsertVerb(ignoreDuplicates)
	query := fmt.Sprintf("%s %s (%s) VALUES %s%s",
		prefix, d.Quote(table), quoteAll(d, columns), strings.Join(rows, ", "), suffix)

	return query, args
}

func buildDelete(d Dialect, table string, filter schema.Filter) (string, []any) {
	query := "DELETE FROM " + d.Quote(table)
	if len(filter) == 0 {
		return query, nil
	}

	columns := filter.Columns()
	args := make([]any, 0, len(columns))
	conds := make([]string, 0, len(columns))
	for _, col := range columns {
		val := filter[col]
		if val == nil {
			conds = append(conds, d.Quote(col)+" IS NULL")
			continue
		}
		args = append(args, val)
		conds = append(conds, fmt.Sprintf("%s = %s", d.Quote(col), d.Placeholder(len(args))))
	}

	return query + " WHERE " + strings.Join(conds, " AND "), args
}
