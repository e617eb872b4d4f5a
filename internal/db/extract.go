package db

import (
	"context"
	"fmt"

	"github.com/tordrt/demomigrate/internal/schema"
)

// describeTables extracts each named table, or every table listTables
// reports when names is empty.
func describeTables(
	ctx context.Context,
	names []string,
	listTables func(context.Context) ([]string, error),
	extract func(context.Context, string) (*schema.Table, error),
) (*schema.Schema, error) {
	if len(names) == 0 {
		var err error
		if names, err = listTables(ctx); err != nil {
			return nil, fmt.Errorf("failed to get table names: %w", err)
		}
	}

	s := &schema.Schema{Tables: make([]schema.Table, 0, len(names))}
	for _, name := range names {
		table, err := extract(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to extract table %s: %w", name, err)
		}
		s.Tables = append(s.Tables, *table)
	}
	return s, nil
}

// queryStrings runs a query selecting a single text column and collects it
func queryStrings(ctx context.Context, ex Executor, query string, args ...any) ([]string, error) {
	rows, err := ex.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
