// Package migrations holds the schema migrations of the users store, in the
// order they were written.
package migrations

import (
	"context"

	"github.com/tordrt/demomigrate/internal/db"
	"github.com/tordrt/demomigrate/internal/migrate"
	"github.com/tordrt/demomigrate/internal/schema"
)

// UsersTable is the table the migrations manage. The demo seeder writes to
// "Users"; stores that fold identifier case treat both as one table.
const UsersTable = "users"

// userEmailNotNull is the forward shape of users.email. Reverting uses its
// inverse.
var userEmailNotNull = schema.ColumnDescriptor{
	Table:            UsersTable,
	Column:           "email",
	ColumnDefinition: schema.ColumnDefinition{Type: schema.String, Nullable: false},
}

// All returns every migration
func All() []migrate.Migration {
	return []migrate.Migration{
		CreateUser(),
		ChangeUserEmailNotNull(),
	}
}

// CreateUser creates the users table with a nullable email
func CreateUser() migrate.Migration {
	return migrate.Migration{
		Version: "20190911165000",
		Name:    "create-user",
		Up: func(ctx context.Context, qi *db.QueryInterface) error {
			return qi.CreateTable(ctx, UsersTable, []schema.Attribute{
				{Name: "id", ColumnDefinition: schema.ColumnDefinition{Type: schema.Integer}, PrimaryKey: true, AutoIncrement: true},
				{Name: "first_name", ColumnDefinition: schema.ColumnDefinition{Type: schema.String, Nullable: true}},
				{Name: "last_name", ColumnDefinition: schema.ColumnDefinition{Type: schema.String, Nullable: true}},
				{Name: "email", ColumnDefinition: schema.ColumnDefinition{Type: schema.String, Nullable: true}},
				{Name: "created_at", ColumnDefinition: schema.ColumnDefinition{Type: schema.Date}},
				{Name: "updated_at", ColumnDefinition: schema.ColumnDefinition{Type: schema.Date}},
			})
		},
		Down: func(ctx context.Context, qi *db.QueryInterface) error {
			return qi.DropTable(ctx, UsersTable)
		},
	}
}

// ChangeUserEmailNotNull makes users.email mandatory. It fails with the
// store's constraint error while any row still has a NULL email.
func ChangeUserEmailNotNull() migrate.Migration {
	return migrate.Migration{
		Version: "20220411151037",
		Name:    "add-null-constraint-user-email",
		Up: func(ctx context.Context, qi *db.QueryInterface) error {
			return changeColumn(ctx, qi, userEmailNotNull)
		},
		Down: func(ctx context.Context, qi *db.QueryInterface) error {
			return changeColumn(ctx, qi, userEmailNotNull.Inverse())
		},
	}
}

func changeColumn(ctx context.Context, qi *db.QueryInterface, d schema.ColumnDescriptor) error {
	return qi.ChangeColumn(ctx, d.Table, d.Column, d.ColumnDefinition)
}
