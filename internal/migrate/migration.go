package migrate

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/tordrt/demomigrate/internal/db"
)

// Direction selects which half of a migration runs
type Direction int

const (
	// Up applies a migration.
	Up Direction = iota
	// Down reverts it.
	Down
)

func (d Direction) String() string {
	if d == Down {
		return "down"
	}
	return "up"
}

// Step performs one direction of a migration through the query interface
type Step func(ctx context.Context, qi *db.QueryInterface) error

// Migration is a versioned pair of steps. Versions are numeric strings
// (timestamps, usually) and define the order migrations run in.
type Migration struct {
	Version string
	Name    string
	Up      Step
	Down    Step
}

// Apply runs the step for dir. Errors from the step are returned as is.
func (m Migration) Apply(ctx context.Context, qi *db.QueryInterface, dir Direction) error {
	step := m.Up
	if dir == Down {
		step = m.Down
	}
	if step == nil {
		return fmt.Errorf("migration %s (%s) has no %s step", m.Version, m.Name, dir)
	}
	return step(ctx, qi)
}

func (m Migration) number() uint64 {
	n, _ := strconv.ParseUint(m.Version, 10, 64)
	return n
}

// validate checks that every migration has a numeric, unique version and an
// up step, and returns them sorted by version.
func validate(migrations []Migration) ([]Migration, error) {
	seen := make(map[string]string, len(migrations))
	for _, m := range migrations {
		if _, err := strconv.ParseUint(m.Version, 10, 64); err != nil {
			return nil, fmt.Errorf("migration %q has invalid version %q", m.Name, m.Version)
		}
		if other, ok := seen[m.Version]; ok {
			return nil, fmt.Errorf("migrations %s and %s share version %s", other, m.Name, m.Version)
		}
		seen[m.Version] = m.Name
		if m.Up == nil {
			return nil, fmt.Errorf("migration %s (%s) has no up step defined", m.Version, m.Name)
		}
	}

	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].number() < sorted[j].number()
	})
	return sorted, nil
}
