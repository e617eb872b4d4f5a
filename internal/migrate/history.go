package migrate

import (
	"context"
	"fmt"
	"time"

	"github.com/tordrt/demomigrate/internal/db"
	"github.com/tordrt/demomigrate/internal/schema"
)

// Default history table names.
const (
	MigrationsTable = "schema_migrations"
	SeedsTable      = "schema_seeds"
)

// history records which migrations have been applied, one row per version
type history struct {
	table   string
	dialect db.Dialect
}

func (h history) ensure(ctx context.Context, ex db.Executor) error {
	strType, err := h.dialect.ColumnType(schema.String)
	if err != nil {
		return err
	}
	dateType, err := h.dialect.ColumnType(schema.Date)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (
		version %s PRIMARY KEY,
		name %s NOT NULL,
		applied_at %s NOT NULL)`,
		h.dialect.Quote(h.table), strType, strType, dateType,
	)
	_, err = ex.ExecContext(ctx, query)
	return err
}

// applied returns the applied versions with the time each was applied
func (h history) applied(ctx context.Context, ex db.Executor) (map[string]time.Time, error) {
	query := fmt.Sprintf(`SELECT version, applied_at FROM %s`, h.dialect.Quote(h.table))
	rows, err := ex.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	migs := make(map[string]time.Time)
	for rows.Next() {
		var ver string
		var at time.Time
		if err := rows.Scan(&ver, &at); err != nil {
			return nil, err
		}
		migs[ver] = at
	}
	return migs, rows.Err()
}

func (h history) record(ctx context.Context, ex db.Executor, m Migration, at time.Time) error {
	query := fmt.Sprintf(
		`INSERT INTO %s (version, name, applied_at) VALUES (%s, %s, %s)`,
		h.dialect.Quote(h.table), h.dialect.Placeholder(1), h.dialect.Placeholder(2), h.dialect.Placeholder(3),
	)
	_, err := ex.ExecContext(ctx, query, m.Version, m.Name, at.UTC())
	return err
}

func (h history) remove(ctx context.Context, ex db.Executor, m Migration) error {
	query := fmt.Sprintf(
		`DELETE FROM %s WHERE version = %s`,
		h.dialect.Quote(h.table), h.dialect.Placeholder(1),
	)
	_, err := ex.ExecContext(ctx, query, m.Version)
	return err
}
