// Package seeders holds the data seeds of the users store.
package seeders

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/tordrt/demomigrate/internal/db"
	"github.com/tordrt/demomigrate/internal/migrate"
	"github.com/tordrt/demomigrate/internal/schema"
)

// DemoUsersTable is the table the demo seed writes to.
const DemoUsersTable = "Users"

var validate = validator.New()

// DemoUser is one row of seed data
type DemoUser struct {
	FirstName string `validate:"required,max=255"`
	LastName  string `validate:"required,max=255"`
	Email     string `validate:"required,email,max=255"`
}

// Record validates u and converts it to a row stamped with now
func (u DemoUser) Record(now time.Time) (schema.Record, error) {
	if err := validate.Struct(u); err != nil {
		return nil, fmt.Errorf("invalid seed user %q: %w", u.Email, err)
	}
	return schema.Record{
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"email":      u.Email,
		"created_at": now,
		"updated_at": now,
	}, nil
}

// John is the single demo account
var John = DemoUser{FirstName: "John", LastName: "Doe", Email: "demo@demo.com"}

// All returns every seeder
func All() []migrate.Migration {
	return []migrate.Migration{DemoUserSeed()}
}

// DemoUserSeed inserts John on up. Down empties the table, including rows
// the seed did not insert.
func DemoUserSeed() migrate.Migration {
	return migrate.Migration{
		Version: "20190911165500",
		Name:    "demo-user",
		Up: func(ctx context.Context, qi *db.QueryInterface) error {
			rec, err := John.Record(qi.TimeNow())
			if err != nil {
				return err
			}
			return qi.BulkInsert(ctx, DemoUsersTable, []schema.Record{rec}, nil)
		},
		Down: func(ctx context.Context, qi *db.QueryInterface) error {
			_, err := qi.BulkDelete(ctx, DemoUsersTable, nil)
			return err
		},
	}
}
