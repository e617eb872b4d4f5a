package main

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cliResult struct {
	stdout string
	stderr string
	err    error
}

func runCLI(t *testing.T, args ...string) cliResult {
	t.Helper()

	var stdout, stderr bytes.Buffer
	a := &app{
		stdout:  &stdout,
		stderr:  &stderr,
		timeNow: func() time.Time { return time.Date(2022, 4, 11, 15, 10, 37, 0, time.UTC) },
	}
	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())

	return cliResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func testDBURL(t *testing.T) string {
	t.Helper()
	return "sqlite://" + filepath.Join(t.TempDir(), "app.db")
}

func TestParseTableList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{in: "", want: nil},
		{in: "users", want: []string{"users"}},
		{in: " users , Users,,schema_seeds ", want: []string{"users", "Users", "schema_seeds"}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseTableList(tt.in), "input %q", tt.in)
	}
}

func TestMigrateLifecycle(t *testing.T) {
	url := testDBURL(t)

	res := runCLI(t, "--db-url", url, "migrate", "up", "--to", "20190911165000")
	require.NoError(t, res.err)
	assert.Equal(t, "1 migrations applied\n", res.stdout)
	assert.Contains(t, res.stderr, "applying")
	assert.Contains(t, res.stderr, "create-user")

	res = runCLI(t, "--db-url", url, "--format", "markdown", "migrate", "status")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "| 20190911165000 | create-user | applied | 2022-04-11 15:10:37 |")
	assert.Contains(t, res.stdout, "| 20220411151037 | add-null-constraint-user-email | pending |  |")

	res = runCLI(t, "--db-url", url, "migrate", "up")
	require.NoError(t, res.err)
	assert.Equal(t, "1 migrations applied\n", res.stdout)

	res = runCLI(t, "--db-url", url, "migrate", "down")
	require.NoError(t, res.err)
	assert.Equal(t, "1 migrations reverted\n", res.stdout)

	res = runCLI(t, "--db-url", url, "migrate", "down", "--all")
	require.NoError(t, res.err)
	assert.Equal(t, "1 migrations reverted\n", res.stdout)
}

func TestSeedLifecycle(t *testing.T) {
	url := testDBURL(t)

	require.NoError(t, runCLI(t, "--db-url", url, "migrate", "up").err)

	res := runCLI(t, "--db-url", url, "seed", "up")
	require.NoError(t, res.err)
	assert.Equal(t, "1 seeds applied\n", res.stdout)

	res = runCLI(t, "--db-url", url, "seed", "status")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "SEEDS:")
	assert.Contains(t, res.stdout, "demo-user")

	// Applying again is a no-op, not a duplicate insert.
	res = runCLI(t, "--db-url", url, "seed", "up")
	require.NoError(t, res.err)
	assert.Equal(t, "0 seeds applied\n", res.stdout)

	res = runCLI(t, "--db-url", url, "seed", "down", "--all")
	require.NoError(t, res.err)
	assert.Equal(t, "1 seeds reverted\n", res.stdout)
}

func TestMigrateNullEmailFails(t *testing.T) {
	url := testDBURL(t)

	require.NoError(t, runCLI(t, "--db-url", url, "migrate", "up", "--to", "20190911165000").err)
	require.NoError(t, runCLI(t, "--db-url", url, "seed", "up").err)

	// A user without an email blocks the NOT NULL change.
	db, err := sql.Open("sqlite3", strings.TrimPrefix(url, "sqlite://"))
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO users (first_name, created_at, updated_at) VALUES ('Anon', '2022-04-11', '2022-04-11')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	res := runCLI(t, "--db-url", url, "migrate", "up")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "migration 20220411151037 (add-null-constraint-user-email) up")
	assert.Contains(t, res.err.Error(), "NOT NULL constraint failed")
}

func TestDescribe(t *testing.T) {
	url := testDBURL(t)
	require.NoError(t, runCLI(t, "--db-url", url, "migrate", "up").err)

	res := runCLI(t, "--db-url", url, "describe", "--exclude", "schema_migrations")
	require.NoError(t, res.err)
	assert.True(t, strings.HasPrefix(res.stdout, "TABLE users (PK: id)\n"), res.stdout)
	assert.Contains(t, res.stdout, "  email: VARCHAR(255) NOT NULL\n")

	dir := filepath.Join(t.TempDir(), "schema")
	res = runCLI(t, "--db-url", url, "--format", "markdown", "describe", "--tables", "users", "--output-dir", dir)
	require.NoError(t, res.err)
	assert.FileExists(t, filepath.Join(dir, "_overview.md"))
	users, err := os.ReadFile(filepath.Join(dir, "users.md"))
	require.NoError(t, err)
	assert.Contains(t, string(users), "- **email:** VARCHAR(255), NOT NULL\n")
}

func TestCLIErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "no database",
			args: []string{"migrate", "status"},
			want: "invalid config: database_url is required",
		},
		{
			name: "bad format",
			args: []string{"--db-url", "sqlite://:memory:", "--format", "json", "migrate", "status"},
			want: `unknown format "json" (expected text or markdown)`,
		},
		{
			name: "conflicting down flags",
			args: []string{"--db-url", "sqlite://:memory:", "migrate", "down", "--to", "1", "--all"},
			want: "if any flags in the group [to all] are set none of the others can be",
		},
		{
			name: "bad target",
			args: []string{"--db-url", "sqlite://:memory:", "migrate", "up", "--to", "latest"},
			want: `invalid target version "latest"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := runCLI(t, tt.args...)
			require.Error(t, res.err)
			assert.Contains(t, res.err.Error(), tt.want)
		})
	}
}
