package db

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/demomigrate/internal/schema"
)

func TestChangeColumnSQL(t *testing.T) {
	tests := []struct {
		name     string
		render   func(schema.ColumnDefinition) (string, error)
		nullable bool
		want     string
	}{
		{
			name:   "postgres not null",
			render: func(def schema.ColumnDefinition) (string, error) { return PostgresDialect{}.changeColumnSQL("users", "email", def) },
			want:   `ALTER TABLE "users" ALTER COLUMN "email" TYPE VARCHAR(255), ALTER COLUMN "email" SET NOT NULL`,
		},
		{
			name:     "postgres nullable",
			render:   func(def schema.ColumnDefinition) (string, error) { return PostgresDialect{}.changeColumnSQL("users", "email", def) },
			nullable: true,
			want:     `ALTER TABLE "users" ALTER COLUMN "email" TYPE VARCHAR(255), ALTER COLUMN "email" DROP NOT NULL`,
		},
		{
			name:   "mysql not null",
			render: func(def schema.ColumnDefinition) (string, error) { return MySQLDialect{}.changeColumnSQL("users", "email", def) },
			want:   "ALTER TABLE `users` MODIFY `email` VARCHAR(255) NOT NULL",
		},
		{
			name:     "mysql nullable",
			render:   func(def schema.ColumnDefinition) (string, error) { return MySQLDialect{}.changeColumnSQL("users", "email", def) },
			nullable: true,
			want:     "ALTER TABLE `users` MODIFY `email` VARCHAR(255) NULL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.render(schema.ColumnDefinition{Type: schema.String, Nullable: tt.nullable})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChangeColumnSQLRejectsUnknownType(t *testing.T) {
	_, err := PostgresDialect{}.changeColumnSQL("users", "email", schema.ColumnDefinition{Type: "BLOB"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, schema.ErrUnsupportedType))
}

func TestBuildInsert(t *testing.T) {
	records := []schema.Record{
		{"first_name": "John", "email": "demo@demo.com"},
		{"email": "jane@demo.com", "last_name": "Roe"},
	}

	tests := []struct {
		name    string
		dialect Dialect
		ignore  bool
		want    string
	}{
		{
			name:    "sqlite",
			dialect: SQLiteDialect{},
			want:    `INSERT INTO "Users" ("email", "first_name", "last_name") VALUES (?, ?, ?), (?, ?, ?)`,
		},
		{
			name:    "sqlite ignore duplicates",
			dialect: SQLiteDialect{},
			ignore:  true,
			want:    `INSERT OR IGNORE INTO "Users" ("email", "first_name", "last_name") VALUES (?, ?, ?), (?, ?, ?)`,
		},
		{
			name:    "postgres",
			dialect: PostgresDialect{},
			want:    `INSERT INTO "Users" ("email", "first_name", "last_name") VALUES ($1, $2, $3), ($4, $5, $6)`,
		},
		{
			name:    "postgres ignore duplicates",
			dialect: PostgresDialect{},
			ignore:  true,
			want:    `INSERT INTO "Users" ("email", "first_name", "last_name") VALUES ($1, $2, $3), ($4, $5, $6) ON CONFLICT DO NOTHING`,
		},
		{
			name:    "mysql ignore duplicates",
			dialect: MySQLDialect{},
			ignore:  true,
			want:    "INSERT IGNORE INTO `Users` (`email`, `first_name`, `last_name`) VALUES (?, ?, ?), (?, ?, ?)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := buildInsert(tt.dialect, "Users", records, tt.ignore)
			assert.Equal(t, tt.want, query)
			assert.Equal(t, []any{"demo@demo.com", "John", nil, "jane@demo.com", nil, "Roe"}, args)
		})
	}
}

func TestBuildDelete(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		filter   schema.Filter
		want     string
		wantArgs []any
	}{
		{
			name:    "nil filter deletes everything",
			dialect: SQLiteDialect{},
			want:    `DELETE FROM "Users"`,
		},
		{
			name:    "empty filter deletes everything",
			dialect: MySQLDialect{},
			filter:  schema.Filter{},
			want:    "DELETE FROM `Users`",
		},
		{
			name:     "equality conditions",
			dialect:  PostgresDialect{},
			filter:   schema.Filter{"last_name": "Doe", "email": "demo@demo.com"},
			want:     `DELETE FROM "Users" WHERE "email" = $1 AND "last_name" = $2`,
			wantArgs: []any{"demo@demo.com", "Doe"},
		},
		{
			name:     "nil value matches NULL",
			dialect:  PostgresDialect{},
			filter:   schema.Filter{"email": nil, "last_name": "Doe"},
			want:     `DELETE FROM "Users" WHERE "email" IS NULL AND "last_name" = $1`,
			wantArgs: []any{"Doe"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := buildDelete(tt.dialect, "Users", tt.filter)
			assert.Equal(t, tt.want, query)
			if tt.wantArgs == nil {
				assert.Empty(t, args)
			} else {
				assert.Equal(t, tt.wantArgs, args)
			}
		})
	}
}

func TestBuildCreateTable(t *testing.T) {
	attrs := []schema.Attribute{
		{Name: "id", ColumnDefinition: schema.ColumnDefinition{Type: schema.Integer}, PrimaryKey: true, AutoIncrement: true},
		{Name: "email", ColumnDefinition: schema.ColumnDefinition{Type: schema.String, Nullable: true}},
		{Name: "created_at", ColumnDefinition: schema.ColumnDefinition{Type: schema.Date}},
	}

	tests := []struct {
		dialect Dialect
		want    string
	}{
		{
			dialect: SQLiteDialect{},
			want:    `CREATE TABLE IF NOT EXISTS "users" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "email" VARCHAR(255), "created_at" DATETIME NOT NULL)`,
		},
		{
			dialect: PostgresDialect{},
			want:    `CREATE TABLE IF NOT EXISTS "users" ("id" SERIAL PRIMARY KEY, "email" VARCHAR(255), "created_at" TIMESTAMP WITH TIME ZONE NOT NULL)`,
		},
		{
			dialect: MySQLDialect{},
			want:    "CREATE TABLE IF NOT EXISTS `users` (`id` INTEGER NOT NULL AUTO_INCREMENT PRIMARY KEY, `email` VARCHAR(255), `created_at` DATETIME NOT NULL)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.dialect.Name(), func(t *testing.T) {
			got, err := buildCreateTable(tt.dialect, "users", attrs)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := buildCreateTable(SQLiteDialect{}, "users", nil)
	assert.Error(t, err)
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `"we""ird"`, SQLiteDialect{}.Quote(`we"ird`))
	assert.Equal(t, "`we``ird`", MySQLDialect{}.Quote("we`ird"))
	assert.Equal(t, `"Users"`, PostgresDialect{}.Quote("Users"))
}
