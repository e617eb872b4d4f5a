package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/tordrt/demomigrate/internal/db"
)

// Runner applies and reverts migrations against one client and records
// which versions have run in a history table.
type Runner struct {
	client        *db.Client
	history       history
	transactional bool
	logger        *slog.Logger
	timeNow       func() time.Time
}

// Option configures a Runner
type Option func(*Runner)

// WithLogger sets the logger progress is reported on
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// WithTimeNow sets the clock used for history rows and handed to migrations
func WithTimeNow(timeNow func() time.Time) Option {
	return func(r *Runner) { r.timeNow = timeNow }
}

// WithTransactional controls whether each migration and its history row are
// committed together. It is on by default.
func WithTransactional(transactional bool) Option {
	return func(r *Runner) { r.transactional = transactional }
}

// NewRunner creates a runner that keeps its history in historyTable
func NewRunner(client *db.Client, historyTable string, opts ...Option) *Runner {
	r := &Runner{
		client:        client,
		history:       history{table: historyTable, dialect: client.Dialect()},
		transactional: true,
		logger:        slog.Default(),
		timeNow:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DownOptions selects how many migrations Down reverts. The zero value
// reverts only the most recently applied one.
type DownOptions struct {
	// To reverts every applied migration down to and including this version.
	To string
	// All reverts every applied migration.
	All bool
}

// Status describes one migration and whether it has been applied
type Status struct {
	Version   string
	Name      string
	Applied   bool
	AppliedAt time.Time
}

// Up applies pending migrations in version order and returns how many ran.
// A non-empty to stops after that version. It stops at the first failure;
// migrations applied before it stay applied.
func (r *Runner) Up(ctx context.Context, migrations []Migration, to string) (int, error) {
	if err := checkTarget(to); err != nil {
		return 0, err
	}
	sorted, applied, err := r.load(ctx, migrations)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, m := range sorted {
		if to != "" && m.number() > versionNumber(to) {
			break
		}
		if _, ok := applied[m.Version]; ok {
			r.logger.Debug("skipping applied migration", "version", m.Version, "name", m.Name)
			continue
		}
		if err := r.run(ctx, m, Up); err != nil {
			return count, err
		}
		count++
	}

	r.logger.Info("migrate up complete", "table", r.history.table, "applied", count)
	return count, nil
}

// Down reverts applied migrations newest first and returns how many ran.
func (r *Runner) Down(ctx context.Context, migrations []Migration, opts DownOptions) (int, error) {
	if err := checkTarget(opts.To); err != nil {
		return 0, err
	}
	sorted, applied, err := r.load(ctx, migrations)
	if err != nil {
		return 0, err
	}

	count := 0
	for i := len(sorted) - 1; i >= 0; i-- {
		m := sorted[i]
		if _, ok := applied[m.Version]; !ok {
			continue
		}
		if opts.To != "" && m.number() < versionNumber(opts.To) {
			break
		}
		if err := r.run(ctx, m, Down); err != nil {
			return count, err
		}
		count++
		if !opts.All && opts.To == "" {
			break
		}
	}

	r.logger.Info("migrate down complete", "table", r.history.table, "reverted", count)
	return count, nil
}

// Status reports every known migration in version order
func (r *Runner) Status(ctx context.Context, migrations []Migration) ([]Status, error) {
	sorted, applied, err := r.load(ctx, migrations)
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(sorted))
	out := make([]Status, 0, len(sorted))
	for _, m := range sorted {
		known[m.Version] = true
		at, ok := applied[m.Version]
		out = append(out, Status{Version: m.Version, Name: m.Name, Applied: ok, AppliedAt: at})
	}
	for ver := range applied {
		if !known[ver] {
			r.logger.Warn("history has a version with no matching migration", "table", r.history.table, "version", ver)
		}
	}
	return out, nil
}

func (r *Runner) load(ctx context.Context, migrations []Migration) ([]Migration, map[string]time.Time, error) {
	sorted, err := validate(migrations)
	if err != nil {
		return nil, nil, err
	}

	conn := r.client.GetDB()
	if err := r.history.ensure(ctx, conn); err != nil {
		return nil, nil, fmt.Errorf("ensure history table %s: %w", r.history.table, err)
	}
	applied, err := r.history.applied(ctx, conn)
	if err != nil {
		return nil, nil, fmt.Errorf("read history table %s: %w", r.history.table, err)
	}
	r.logger.Debug("loaded history", "table", r.history.table, "applied", len(applied), "known", len(sorted))

	return sorted, applied, nil
}

// run executes one direction of m and updates the history, inside a
// transaction when the runner is transactional.
func (r *Runner) run(ctx context.Context, m Migration, dir Direction) error {
	msg := "applying"
	if dir == Down {
		msg = "reverting"
	}
	r.logger.Info(msg, "table", r.history.table, "version", m.Version, "name", m.Name)

	if !r.transactional {
		if err := r.step(ctx, r.client.GetDB(), m, dir); err != nil {
			return err
		}
		r.logger.Info("done", "version", m.Version, "direction", dir.String())
		return nil
	}

	tx, err := r.client.GetDB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := r.step(ctx, tx, m, dir); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			r.logger.Error("rollback failed", "version", m.Version, "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", m.Version, err)
	}
	r.logger.Info("done", "version", m.Version, "direction", dir.String())
	return nil
}

func (r *Runner) step(ctx context.Context, ex db.Executor, m Migration, dir Direction) error {
	qi := r.client.QueryInterface(ex, r.timeNow)
	if err := m.Apply(ctx, qi, dir); err != nil {
		r.logger.Error("migration failed", "direction", dir.String(), "version", m.Version, "name", m.Name, "error", err)
		return fmt.Errorf("migration %s (%s) %s: %w", m.Version, m.Name, dir, err)
	}

	var err error
	if dir == Up {
		err = r.history.record(ctx, ex, m, r.timeNow())
	} else {
		err = r.history.remove(ctx, ex, m)
	}
	if err != nil {
		return fmt.Errorf("update history for %s: %w", m.Version, err)
	}
	return nil
}

func checkTarget(to string) error {
	if to == "" {
		return nil
	}
	if _, err := strconv.ParseUint(to, 10, 64); err != nil {
		return fmt.Errorf("invalid target version %q", to)
	}
	return nil
}

func versionNumber(v string) uint64 {
	return Migration{Version: v}.number()
}
