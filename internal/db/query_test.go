package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blindResult is a sql.Result from a driver that can't count rows
type blindResult struct{}

func (blindResult) LastInsertId() (int64, error) { return 0, errors.New("not supported") }
func (blindResult) RowsAffected() (int64, error) { return 0, errors.New("not supported") }

type blindExecutor struct {
	Executor
	queries []string
}

func (e *blindExecutor) ExecContext(_ context.Context, query string, _ ...any) (sql.Result, error) {
	e.queries = append(e.queries, query)
	return blindResult{}, nil
}

func TestBulkDeleteUnknownRowCount(t *testing.T) {
	ex := &blindExecutor{}
	qi := NewQueryInterface(ex, SQLiteDialect{}, nil)

	n, err := qi.BulkDelete(context.Background(), "Users", nil)
	require.NoError(t, err)
	assert.Equal(t, RowsUnknown, n)
	assert.Equal(t, []string{`DELETE FROM "Users"`}, ex.queries)
}
